package loanmock

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	domain "loanledger/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

var errUnimplemented = errors.New("loanmock: method not implemented")

// Repo is a function-backed mock that satisfies domain.Repository.
// Writes default to a nil error, reads to errUnimplemented.
type Repo struct {
	CreateFn                func(ctx context.Context, l *domain.Loan) error
	GetByAddressFn          func(ctx context.Context, a common.Address) (*domain.Loan, error)
	GetByAddressForUpdateFn func(ctx context.Context, a common.Address) (*domain.Loan, error)
	SaveFn                  func(ctx context.Context, l *domain.Loan) error
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByAddress(ctx context.Context, a common.Address) (*domain.Loan, error) {
	if m.GetByAddressFn != nil {
		return m.GetByAddressFn(ctx, a)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetByAddressForUpdate(ctx context.Context, a common.Address) (*domain.Loan, error) {
	if m.GetByAddressForUpdateFn != nil {
		return m.GetByAddressForUpdateFn(ctx, a)
	}
	return nil, errUnimplemented
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}
