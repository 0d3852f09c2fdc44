package uowmock

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"loanledger/internal/domain/factory"
	"loanledger/internal/domain/loan"
	"loanledger/internal/domain/uow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn        func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinFactoryTxFn func(ctx context.Context, addr common.Address, fn func(r uow.Repos, f *factory.Factory) error) error
	WithinLoanTxFn    func(ctx context.Context, addr common.Address, fn func(r uow.Repos, f *factory.Factory, l *loan.Loan) error) error
}

func New() *UoW { return &UoW{} }

// Passthrough wires every method to repos without a real transaction: the
// aggregates are loaded through the repos and fn runs once.
func Passthrough(repos uow.Repos) *UoW {
	return &UoW{
		WithinTxFn: func(ctx context.Context, fn func(uow.Repos) error) error {
			return fn(repos)
		},
		WithinFactoryTxFn: func(ctx context.Context, addr common.Address, fn func(uow.Repos, *factory.Factory) error) error {
			f, err := repos.Factories.GetForUpdate(ctx, addr)
			if err != nil {
				return err
			}
			return fn(repos, f)
		},
		WithinLoanTxFn: func(ctx context.Context, addr common.Address, fn func(uow.Repos, *factory.Factory, *loan.Loan) error) error {
			l, err := repos.Loans.GetByAddressForUpdate(ctx, addr)
			if err != nil {
				return err
			}
			f, err := repos.Factories.Get(ctx, l.Factory)
			if err != nil {
				return err
			}
			return fn(repos, f, l)
		},
	}
}

func (m *UoW) Reset() { *m = UoW{} }

func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinFactoryTx(ctx context.Context, addr common.Address, fn func(r uow.Repos, f *factory.Factory) error) error {
	if m.WithinFactoryTxFn != nil {
		return m.WithinFactoryTxFn(ctx, addr, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinLoanTx(ctx context.Context, addr common.Address, fn func(r uow.Repos, f *factory.Factory, l *loan.Loan) error) error {
	if m.WithinLoanTxFn != nil {
		return m.WithinLoanTxFn(ctx, addr, fn)
	}
	return errUnimplemented
}
