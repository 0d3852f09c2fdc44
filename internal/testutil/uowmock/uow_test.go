package uowmock

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"loanledger/internal/domain/factory"
	"loanledger/internal/domain/loan"
	"loanledger/internal/domain/uow"
	"loanledger/internal/testutil/eventmock"
	"loanledger/internal/testutil/factorymock"
	"loanledger/internal/testutil/loanmock"
)

func TestUoW_Unimplemented(t *testing.T) {
	m := New()
	ctx := context.Background()
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinTx: %v", err)
	}
	if err := m.WithinFactoryTx(ctx, common.Address{}, func(uow.Repos, *factory.Factory) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinFactoryTx: %v", err)
	}
	if err := m.WithinLoanTx(ctx, common.Address{}, func(uow.Repos, *factory.Factory, *loan.Loan) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinLoanTx: %v", err)
	}
}

func TestPassthrough(t *testing.T) {
	ctx := context.Background()
	fAddr := common.HexToAddress("0xf0")
	lAddr := common.HexToAddress("0xb1")
	f, err := factory.Deploy(fAddr, common.HexToAddress("0xa0"))
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	l := &loan.Loan{Address: lAddr, Factory: fAddr}

	repos := uow.Repos{
		Factories: &factorymock.Repo{
			GetFn:          func(context.Context, common.Address) (*factory.Factory, error) { return f, nil },
			GetForUpdateFn: func(context.Context, common.Address) (*factory.Factory, error) { return f, nil },
		},
		Loans: &loanmock.Repo{
			GetByAddressForUpdateFn: func(_ context.Context, a common.Address) (*loan.Loan, error) {
				if a != lAddr {
					t.Fatalf("unexpected loan address %s", a.Hex())
				}
				return l, nil
			},
		},
		Events: &eventmock.Repo{},
	}
	m := Passthrough(repos)

	called := 0
	if err := m.WithinFactoryTx(ctx, fAddr, func(r uow.Repos, got *factory.Factory) error {
		called++
		if got != f || r.Events != repos.Events {
			t.Fatalf("factory tx: wrong arguments")
		}
		return nil
	}); err != nil {
		t.Fatalf("WithinFactoryTx: %v", err)
	}
	if err := m.WithinLoanTx(ctx, lAddr, func(r uow.Repos, gotF *factory.Factory, gotL *loan.Loan) error {
		called++
		if gotF != f || gotL != l {
			t.Fatalf("loan tx: wrong arguments")
		}
		return nil
	}); err != nil {
		t.Fatalf("WithinLoanTx: %v", err)
	}
	wantErr := errors.New("inner")
	if err := m.WithinTx(ctx, func(uow.Repos) error { called++; return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("WithinTx: %v", err)
	}
	if called != 3 {
		t.Fatalf("called=%d", called)
	}

	m.Reset()
	if m.WithinTxFn != nil {
		t.Fatalf("Reset did not clear")
	}
}
