package loan

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"loanledger/internal/domain/event"
	"loanledger/internal/domain/factory"
	"loanledger/internal/domain/fault"
	domain "loanledger/internal/domain/loan"
	"loanledger/internal/domain/uow"
	"loanledger/internal/testutil/eventmock"
	"loanledger/internal/testutil/factorymock"
	"loanledger/internal/testutil/loanmock"
	"loanledger/internal/testutil/uowmock"
	"loanledger/internal/usecase/runner"
)

var (
	factoryAddr = common.HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	owner       = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	worker      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	stranger    = common.HexToAddress("0x00000000000000000000000000000000000000a9")
)

type fixture struct {
	uc      *Usecase
	loan    *domain.Loan
	saves   int
	events  *eventmock.Repo
	emitter *eventmock.Emitter
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newFixture(t *testing.T, opts ...domain.Option) *fixture {
	t.Helper()
	f, err := factory.Deploy(factoryAddr, owner)
	require.NoError(t, err)
	require.NoError(t, f.ChangeWorker(owner, worker))
	l, err := f.CreateLoan(owner, domain.Terms{
		ID: "loan-1", Market: "IDR", PrincipalAmount: dec(1000), CollateralAmount: dec(10), Meta: "{}", Timestamp: 1700000000,
	})
	require.NoError(t, err)
	f.DrainEvents()

	fx := &fixture{loan: l, events: &eventmock.Repo{}, emitter: &eventmock.Emitter{}}
	loans := &loanmock.Repo{
		GetByAddressFn: func(_ context.Context, a common.Address) (*domain.Loan, error) {
			if a != l.Address {
				return nil, fault.ErrNotFound
			}
			return l, nil
		},
		SaveFn: func(context.Context, *domain.Loan) error {
			fx.saves++
			return nil
		},
	}
	loans.GetByAddressForUpdateFn = loans.GetByAddressFn
	factories := &factorymock.Repo{
		GetFn: func(context.Context, common.Address) (*factory.Factory, error) { return f, nil },
	}
	tx := uowmock.Passthrough(uow.Repos{Factories: factories, Loans: loans, Events: fx.events})
	fx.uc = NewUsecase(tx, runner.New(fx.emitter, nil, nil), opts...)
	return fx
}

func (fx *fixture) fund(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := fx.uc.AddLenders(ctx, fx.loan.Address, owner, []LenderInput{
		{LenderUserID: common.HexToHash("0x01"), Amount: dec(400), AmountWeight: dec(400), RateWeight: dec(1)},
		{LenderUserID: common.HexToHash("0x02"), Amount: dec(600), AmountWeight: dec(600), RateWeight: dec(2)},
	})
	require.NoError(t, err)
	_, err = fx.uc.AddInterest(ctx, fx.loan.Address, worker, []InterestInput{{PaymentTime: 100, Amount: dec(90)}, {PaymentTime: 200, Amount: dec(90)}})
	require.NoError(t, err)
	_, err = fx.uc.Start(ctx, fx.loan.Address, worker)
	require.NoError(t, err)
}

func (fx *fixture) settle(t *testing.T, i int) {
	t.Helper()
	ctx := context.Background()
	addr := fx.loan.Address
	_, err := fx.uc.AddTransferOutcomeRecords(ctx, addr, worker, []common.Hash{common.BigToHash(big.NewInt(int64(2*i + 1)))})
	require.NoError(t, err)
	dto, err := fx.uc.PayInterest(ctx, addr, worker, i)
	require.NoError(t, err)
	require.Equal(t, "interest_due", dto.Status)

	_, err = fx.uc.AddTransferOutcomeRecords(ctx, addr, worker, []common.Hash{common.BigToHash(big.NewInt(int64(2*i + 2)))})
	require.NoError(t, err)
	dto, err = fx.uc.InterestPaid(ctx, addr, worker, i)
	require.NoError(t, err)
	require.Equal(t, "active", dto.Status)
	require.True(t, dto.Installments[i].Paid)
}

func TestUsecase_FullLifecycle(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	addr := fx.loan.Address
	fx.fund(t)
	fx.settle(t, 0)
	fx.settle(t, 1)

	dto, err := fx.uc.Mature(ctx, addr, worker)
	require.NoError(t, err)
	require.Equal(t, "mature", dto.Status)
	require.EqualValues(t, 12, dto.Seq)
	require.Equal(t, 12, fx.saves)

	stored := fx.events.Stored()
	require.Len(t, fx.emitter.Batches(), 12)
	last := stored[len(stored)-1]
	require.Equal(t, event.TypeStatusChanged, last.Type)
	require.EqualValues(t, 12, last.Seq)

	evs, err := fx.uc.Events(ctx, addr, 5, 0)
	require.NoError(t, err)
	require.NotEmpty(t, evs.Events)
	for _, e := range evs.Events {
		require.Greater(t, e.Seq, uint64(5))
	}

	_, err = fx.uc.UpdateMeta(ctx, addr, worker, "late")
	require.ErrorIs(t, err, fault.ErrInvalidTransition)
	require.Equal(t, 12, fx.saves)
}

func TestUsecase_RejectedWritesNothing(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.uc.UpdateMeta(ctx, fx.loan.Address, stranger, "x")
	require.ErrorIs(t, err, fault.ErrUnauthorized)
	_, err = fx.uc.Start(ctx, fx.loan.Address, worker)
	require.ErrorIs(t, err, fault.ErrInvalidTransition)

	require.Zero(t, fx.saves)
	require.Empty(t, fx.events.Stored())
	require.Empty(t, fx.emitter.Batches())
}

func TestUsecase_InterestPaidTwiceIsNoop(t *testing.T) {
	fx := newFixture(t)
	fx.fund(t)
	fx.settle(t, 0)

	saves, batches := fx.saves, len(fx.emitter.Batches())
	dto, err := fx.uc.InterestPaid(context.Background(), fx.loan.Address, worker, 0)
	require.NoError(t, err)
	require.Equal(t, "active", dto.Status)
	require.Equal(t, saves, fx.saves)
	require.Len(t, fx.emitter.Batches(), batches)
}

func TestUsecase_PublishFailureDoesNotFailOperation(t *testing.T) {
	fx := newFixture(t)
	fx.emitter.EmitFn = func(context.Context, []event.Event) error { return errors.New("redis down") }

	dto, err := fx.uc.UpdateMeta(context.Background(), fx.loan.Address, worker, "v2")
	require.NoError(t, err)
	require.EqualValues(t, 1, dto.MetaVersion)
	require.Len(t, fx.events.Stored(), 1)
}

func TestUsecase_AppendFailureRollsBack(t *testing.T) {
	fx := newFixture(t)
	fx.events.AppendFn = func(context.Context, []event.Event) error { return errors.New("disk full") }

	_, err := fx.uc.UpdateMeta(context.Background(), fx.loan.Address, worker, "v2")
	require.Error(t, err)
	require.Empty(t, fx.emitter.Batches())
}

func TestUsecase_Distribution(t *testing.T) {
	fx := newFixture(t)
	fx.fund(t)

	dto, err := fx.uc.Distribution(context.Background(), fx.loan.Address, 1)
	require.NoError(t, err)
	require.Len(t, dto.Payouts, 2)
	require.True(t, dto.Payouts[0].Amount.Equal(dec(30)))
	require.True(t, dto.Payouts[1].Amount.Equal(dec(60)))

	_, err = fx.uc.Distribution(context.Background(), fx.loan.Address, 7)
	require.Error(t, err)
}

func TestUsecase_TransfersAndInterestChange(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	addr := fx.loan.Address
	fx.fund(t)

	in := domain.TransferInput{From: "escrow", To: "lender", Amount: dec(90), Currency: "IDR", Reason: "interest", Timestamp: 1700000100}
	dto, err := fx.uc.ExpectTransfer(ctx, addr, worker, in)
	require.NoError(t, err)
	require.Len(t, dto.Transfers, 1)
	require.Equal(t, "expected", dto.Transfers[0].Kind)

	_, err = fx.uc.AddTransferOutcomeRecords(ctx, addr, worker, []common.Hash{dto.Transfers[0].Hash})
	require.NoError(t, err)
	in.TxID = "tx-1"
	dto, err = fx.uc.ObserveTransfer(ctx, addr, worker, in)
	require.NoError(t, err)
	require.True(t, dto.Transfers[0].Resolved)
	require.Equal(t, "observed", dto.Transfers[1].Kind)

	dto, err = fx.uc.ChangeInterest(ctx, addr, worker, ChangeInterestInput{Index: 1, PaymentTime: 300, Amount: dec(95)})
	require.NoError(t, err)
	require.EqualValues(t, 300, dto.Installments[1].PaymentTime)

	dto, err = fx.uc.ChangeStatus(ctx, addr, worker, "interest_due", 1700000200)
	require.NoError(t, err)
	require.Equal(t, "interest_due", dto.Status)
}

func TestUsecase_UnknownLoan(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.uc.Get(context.Background(), stranger)
	require.ErrorIs(t, err, fault.ErrNotFound)
	_, err = fx.uc.Start(context.Background(), stranger, worker)
	require.ErrorIs(t, err, fault.ErrNotFound)
}

func TestUsecase_PaymentTimeEnforced(t *testing.T) {
	fx := newFixture(t, domain.WithPaymentTimeEnforced(func() int64 { return 50 }))
	ctx := context.Background()
	fx.fund(t)

	_, err := fx.uc.AddTransferOutcomeRecords(ctx, fx.loan.Address, worker, []common.Hash{common.HexToHash("0xaa")})
	require.NoError(t, err)
	_, err = fx.uc.PayInterest(ctx, fx.loan.Address, worker, 0)
	require.ErrorIs(t, err, fault.ErrInvalidTransition)
}
