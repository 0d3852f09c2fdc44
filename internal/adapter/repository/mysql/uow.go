package mysql

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	"loanledger/internal/domain/factory"
	"loanledger/internal/domain/loan"
	"loanledger/internal/domain/uow"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func repos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Factories: &FactoryRepository{db: tx},
		Loans:     &LoanRepository{db: tx},
		Events:    &EventRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repos(tx))
	})
}

func (u *GormUoW) WithinFactoryTx(ctx context.Context, addr common.Address, fn func(r uow.Repos, f *factory.Factory) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := repos(tx)
		// lock the factory row up-front so registry appends serialize
		f, err := r.Factories.GetForUpdate(ctx, addr)
		if err != nil {
			return err
		}
		return fn(r, f)
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, addr common.Address, fn func(r uow.Repos, f *factory.Factory, l *loan.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := repos(tx)
		// lock the loan row up-front to prevent races
		l, err := r.Loans.GetByAddressForUpdate(ctx, addr)
		if err != nil {
			return err
		}
		f, err := r.Factories.Get(ctx, l.Factory)
		if err != nil {
			return err
		}
		return fn(r, f, l)
	})
}
