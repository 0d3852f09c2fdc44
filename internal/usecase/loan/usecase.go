package loan

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"loanledger/internal/domain/event"
	"loanledger/internal/domain/factory"
	domain "loanledger/internal/domain/loan"
	"loanledger/internal/domain/uow"
	"loanledger/internal/usecase/runner"
)

const entity = "loan"

type Usecase struct {
	uow  uow.UnitOfWork
	run  runner.Runner
	opts []domain.Option
}

func NewUsecase(tx uow.UnitOfWork, run runner.Runner, opts ...domain.Option) *Usecase {
	return &Usecase{uow: tx, run: run, opts: opts}
}

func (u *Usecase) load(ctx context.Context, addr common.Address) (*domain.Loan, error) {
	var out *domain.Loan
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByAddress(ctx, addr)
		out = l
		return err
	})
	return out, err
}

func (u *Usecase) Get(ctx context.Context, addr common.Address) (*LoanDTO, error) {
	l, err := u.load(ctx, addr)
	if err != nil {
		return nil, err
	}
	return toLoanDTO(l), nil
}

func (u *Usecase) Distribution(ctx context.Context, addr common.Address, i int) (*DistributionDTO, error) {
	l, err := u.load(ctx, addr)
	if err != nil {
		return nil, err
	}
	payouts, err := l.Distribution(i)
	if err != nil {
		return nil, err
	}
	return &DistributionDTO{Address: addr, Installment: i, Payouts: payouts}, nil
}

func (u *Usecase) Events(ctx context.Context, addr common.Address, afterSeq uint64, limit int) (*EventsDTO, error) {
	out := &EventsDTO{Address: addr}
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if _, err := r.Loans.GetByAddress(ctx, addr); err != nil {
			return err
		}
		evs, err := r.Events.ListByAddress(ctx, addr, afterSeq, limit)
		out.Events = evs
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// mutate applies op to the locked loan. A call that leaves seq untouched is a
// no-op and writes nothing.
func (u *Usecase) mutate(ctx context.Context, addr common.Address, op string, fn func(l *domain.Loan) error) (*LoanDTO, error) {
	start := time.Now()
	var (
		events []event.Event
		out    *LoanDTO
	)
	err := u.uow.WithinLoanTx(ctx, addr, func(r uow.Repos, f *factory.Factory, l *domain.Loan) error {
		if err := l.Bind(f, u.opts...); err != nil {
			return err
		}
		before := l.Seq
		if err := fn(l); err != nil {
			return err
		}
		out = toLoanDTO(l)
		if l.Seq == before {
			return nil
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		events = l.DrainEvents()
		return r.Events.Append(ctx, events)
	})
	if err := u.run.Finish(ctx, entity, op, start, err, events); err != nil {
		return nil, err
	}
	return out, nil
}

func (u *Usecase) AddLenders(ctx context.Context, addr, caller common.Address, in []LenderInput) (*LoanDTO, error) {
	amounts := make([]decimal.Decimal, len(in))
	weights := make([]domain.Weight, len(in))
	refs := make([]domain.LenderRef, len(in))
	for i, v := range in {
		amounts[i] = v.Amount
		weights[i] = domain.Weight{Amount: v.AmountWeight, Rate: v.RateWeight}
		refs[i] = domain.LenderRef{ID: v.ID, OrderID: v.OrderID, LenderUserID: v.LenderUserID}
	}
	return u.mutate(ctx, addr, "addLenders", func(l *domain.Loan) error {
		return l.AddLenders(caller, amounts, weights, refs)
	})
}

func (u *Usecase) AddInterest(ctx context.Context, addr, caller common.Address, in []InterestInput) (*LoanDTO, error) {
	times := make([]int64, len(in))
	amounts := make([]decimal.Decimal, len(in))
	for i, v := range in {
		times[i] = v.PaymentTime
		amounts[i] = v.Amount
	}
	return u.mutate(ctx, addr, "addInterest", func(l *domain.Loan) error {
		return l.AddInterest(caller, times, amounts)
	})
}

func (u *Usecase) Start(ctx context.Context, addr, caller common.Address) (*LoanDTO, error) {
	return u.mutate(ctx, addr, "start", func(l *domain.Loan) error { return l.Start(caller) })
}

func (u *Usecase) ExpectTransfer(ctx context.Context, addr, caller common.Address, in domain.TransferInput) (*LoanDTO, error) {
	return u.mutate(ctx, addr, "expectTransfer", func(l *domain.Loan) error { return l.ExpectTransfer(caller, in) })
}

func (u *Usecase) ObserveTransfer(ctx context.Context, addr, caller common.Address, in domain.TransferInput) (*LoanDTO, error) {
	return u.mutate(ctx, addr, "observeTransfer", func(l *domain.Loan) error { return l.ObserveTransfer(caller, in) })
}

func (u *Usecase) AddTransferOutcomeRecords(ctx context.Context, addr, caller common.Address, hashes []common.Hash) (*LoanDTO, error) {
	return u.mutate(ctx, addr, "addTransferOutcomeRecords", func(l *domain.Loan) error {
		return l.AddTransferOutcomeRecords(caller, hashes)
	})
}

func (u *Usecase) PayInterest(ctx context.Context, addr, caller common.Address, i int) (*LoanDTO, error) {
	return u.mutate(ctx, addr, "payInterest", func(l *domain.Loan) error { return l.PayInterest(caller, i) })
}

func (u *Usecase) InterestPaid(ctx context.Context, addr, caller common.Address, i int) (*LoanDTO, error) {
	return u.mutate(ctx, addr, "interestPaid", func(l *domain.Loan) error { return l.InterestPaid(caller, i) })
}

func (u *Usecase) Mature(ctx context.Context, addr, caller common.Address) (*LoanDTO, error) {
	return u.mutate(ctx, addr, "mature", func(l *domain.Loan) error { return l.Mature(caller) })
}

func (u *Usecase) ChangeStatus(ctx context.Context, addr, caller common.Address, label string, timestamp int64) (*LoanDTO, error) {
	return u.mutate(ctx, addr, "changeStatus", func(l *domain.Loan) error {
		return l.ChangeStatus(caller, label, timestamp)
	})
}

func (u *Usecase) ChangeInterest(ctx context.Context, addr, caller common.Address, in ChangeInterestInput) (*LoanDTO, error) {
	return u.mutate(ctx, addr, "changeInterest", func(l *domain.Loan) error {
		return l.ChangeInterest(caller, in.Index, in.PaymentTime, in.Amount, in.Paid, in.Timestamp)
	})
}

func (u *Usecase) UpdateMeta(ctx context.Context, addr, caller common.Address, blob string) (*LoanDTO, error) {
	return u.mutate(ctx, addr, "updateMeta", func(l *domain.Loan) error { return l.UpdateMeta(caller, blob) })
}
