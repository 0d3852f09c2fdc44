package factorymock

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	domain "loanledger/internal/domain/factory"
)

var _ domain.Repository = (*Repo)(nil)

var errUnimplemented = errors.New("factorymock: method not implemented")

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn       func(ctx context.Context, f *domain.Factory) error
	GetFn          func(ctx context.Context, a common.Address) (*domain.Factory, error)
	GetForUpdateFn func(ctx context.Context, a common.Address) (*domain.Factory, error)
	SaveFn         func(ctx context.Context, f *domain.Factory) error
}

func (m *Repo) Create(ctx context.Context, f *domain.Factory) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, f)
	}
	return nil
}

func (m *Repo) Get(ctx context.Context, a common.Address) (*domain.Factory, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, a)
	}
	return nil, errUnimplemented
}

func (m *Repo) GetForUpdate(ctx context.Context, a common.Address) (*domain.Factory, error) {
	if m.GetForUpdateFn != nil {
		return m.GetForUpdateFn(ctx, a)
	}
	return nil, errUnimplemented
}

func (m *Repo) Save(ctx context.Context, f *domain.Factory) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, f)
	}
	return nil
}
