package uow

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"loanledger/internal/domain/event"
	"loanledger/internal/domain/factory"
	"loanledger/internal/domain/loan"
)

// Repos are the repositories bound to one transaction.
type Repos struct {
	Factories factory.Repository
	Loans     loan.Repository
	Events    event.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// locks the factory row, then passes the factory in
	WithinFactoryTx(ctx context.Context, addr common.Address, fn func(r Repos, f *factory.Factory) error) error
	// locks the loan row and loads its factory. The loan is not bound yet.
	WithinLoanTx(ctx context.Context, addr common.Address, fn func(r Repos, f *factory.Factory, l *loan.Loan) error) error
}
