package factory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"loanledger/internal/domain/event"
	factoryDomain "loanledger/internal/domain/factory"
	"loanledger/internal/domain/fault"
	"loanledger/internal/domain/loan"
	"loanledger/internal/domain/uow"
	"loanledger/internal/usecase/runner"
)

const entity = "factory"

// Usecase serves the single factory deployed at address.
type Usecase struct {
	uow     uow.UnitOfWork
	address common.Address
	run     runner.Runner
}

func NewUsecase(tx uow.UnitOfWork, address common.Address, run runner.Runner) *Usecase {
	return &Usecase{uow: tx, address: address, run: run}
}

func (u *Usecase) Address() common.Address { return u.address }

// Deploy creates the factory with deployer as owner and worker unless it
// already exists. It reports whether a deployment happened.
func (u *Usecase) Deploy(ctx context.Context, deployer common.Address) (bool, error) {
	deployed := false
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		_, err := r.Factories.Get(ctx, u.address)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fault.ErrNotFound) {
			return err
		}
		f, err := factoryDomain.Deploy(u.address, deployer)
		if err != nil {
			return err
		}
		deployed = true
		return r.Factories.Create(ctx, f)
	})
	if err != nil {
		return false, fmt.Errorf("deploy factory %s: %w", u.address.Hex(), err)
	}
	if deployed {
		u.run.Log.Info("factory deployed", zap.String("address", u.address.Hex()), zap.String("deployer", deployer.Hex()))
	}
	return deployed, nil
}

func (u *Usecase) load(ctx context.Context) (*factoryDomain.Factory, error) {
	var out *factoryDomain.Factory
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		f, err := r.Factories.Get(ctx, u.address)
		out = f
		return err
	})
	return out, err
}

func (u *Usecase) Get(ctx context.Context) (*FactoryDTO, error) {
	f, err := u.load(ctx)
	if err != nil {
		return nil, err
	}
	return toFactoryDTO(f), nil
}

func (u *Usecase) LeadTime(ctx context.Context, market, typ string) (*LeadTimeDTO, error) {
	f, err := u.load(ctx)
	if err != nil {
		return nil, err
	}
	v, ok := f.LeadTime(market, typ)
	if !ok {
		return nil, fmt.Errorf("%w: lead time %s/%s", fault.ErrNotFound, market, typ)
	}
	return &LeadTimeDTO{Market: market, LeadTimeType: typ, LeadTime: v}, nil
}

func (u *Usecase) LoanAt(ctx context.Context, index uint64) (*RegistryEntryDTO, error) {
	f, err := u.load(ctx)
	if err != nil {
		return nil, err
	}
	e, ok := f.LoanAt(index)
	if !ok {
		return nil, fmt.Errorf("%w: loan #%d", fault.ErrNotFound, index)
	}
	return &RegistryEntryDTO{Index: e.Index, ID: e.ID, Address: e.Address}, nil
}

func (u *Usecase) LoanByID(ctx context.Context, loanID string) (*RegistryEntryDTO, error) {
	f, err := u.load(ctx)
	if err != nil {
		return nil, err
	}
	e, ok := f.LoanByID(loanID)
	if !ok {
		return nil, fmt.Errorf("%w: loan id %q", fault.ErrNotFound, loanID)
	}
	return &RegistryEntryDTO{Index: e.Index, ID: e.ID, Address: e.Address}, nil
}

func (u *Usecase) Events(ctx context.Context, afterSeq uint64, limit int) (*EventsDTO, error) {
	out := &EventsDTO{Address: u.address}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		evs, err := r.Events.ListByAddress(ctx, u.address, afterSeq, limit)
		out.Events = evs
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// mutate runs op on the locked factory, persists it with its records and
// publishes them after commit.
func (u *Usecase) mutate(ctx context.Context, op string, fn func(r uow.Repos, f *factoryDomain.Factory) error) error {
	start := time.Now()
	var events []event.Event
	err := u.uow.WithinFactoryTx(ctx, u.address, func(r uow.Repos, f *factoryDomain.Factory) error {
		if err := fn(r, f); err != nil {
			return err
		}
		if err := r.Factories.Save(ctx, f); err != nil {
			return err
		}
		events = f.DrainEvents()
		return r.Events.Append(ctx, events)
	})
	return u.run.Finish(ctx, entity, op, start, err, events)
}

func (u *Usecase) CreateLoan(ctx context.Context, caller common.Address, in CreateLoanInput) (*LoanCreatedDTO, error) {
	var out *LoanCreatedDTO
	err := u.mutate(ctx, "createLoan", func(r uow.Repos, f *factoryDomain.Factory) error {
		l, err := f.CreateLoan(caller, loan.Terms{
			ID:               in.ID,
			Market:           in.Market,
			PrincipalAmount:  in.PrincipalAmount,
			CollateralAmount: in.CollateralAmount,
			Meta:             in.Meta,
			Timestamp:        in.Timestamp,
		})
		if err != nil {
			return err
		}
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		out = &LoanCreatedDTO{Address: l.Address, Index: l.Index, ID: l.ID, FactorySeq: f.Seq()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Usecase) ChangeLeadtime(ctx context.Context, caller common.Address, in ChangeLeadtimeInput) error {
	return u.mutate(ctx, "changeLeadtime", func(_ uow.Repos, f *factoryDomain.Factory) error {
		return f.ChangeLeadtime(caller, in.Market, in.LeadTimeType, in.LeadTime, in.Timestamp)
	})
}

func (u *Usecase) ChangeOwner(ctx context.Context, caller, candidate common.Address) error {
	return u.mutate(ctx, "changeOwner", func(_ uow.Repos, f *factoryDomain.Factory) error {
		return f.ChangeOwner(caller, candidate)
	})
}

func (u *Usecase) AcceptOwner(ctx context.Context, caller common.Address) error {
	return u.mutate(ctx, "acceptOwner", func(_ uow.Repos, f *factoryDomain.Factory) error {
		return f.AcceptOwner(caller)
	})
}

func (u *Usecase) ChangeWorker(ctx context.Context, caller, candidate common.Address) error {
	return u.mutate(ctx, "changeWorker", func(_ uow.Repos, f *factoryDomain.Factory) error {
		return f.ChangeWorker(caller, candidate)
	})
}

func toFactoryDTO(f *factoryDomain.Factory) *FactoryDTO {
	roles := f.Roles()
	out := &FactoryDTO{
		Address:      f.Address(),
		Owner:        roles.Owner,
		PendingOwner: roles.PendingOwner,
		Worker:       roles.Worker,
		Seq:          f.Seq(),
		LoanCount:    f.LoanCount(),
		LeadTimes:    []LeadTimeDTO{},
	}
	for k, v := range f.LeadTimes() {
		out.LeadTimes = append(out.LeadTimes, LeadTimeDTO{Market: k.Market, LeadTimeType: k.Type, LeadTime: v})
	}
	sort.Slice(out.LeadTimes, func(i, j int) bool {
		a, b := out.LeadTimes[i], out.LeadTimes[j]
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		return a.LeadTimeType < b.LeadTimeType
	})
	return out
}
