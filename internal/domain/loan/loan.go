// Package loan implements the per-loan lifecycle: lender allocation, interest
// installments, the transfer custody ledger and status changes.
//
// Every mutating method checks the caller against the factory's role record,
// validates all of its input and only then applies its effects, so a failed
// call leaves the loan untouched and records nothing. Each accepted mutation
// bumps Seq by exactly one.
package loan

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"loanledger/internal/domain/access"
	"loanledger/internal/domain/event"
	"loanledger/internal/domain/fault"
)

var (
	errUnbound         = errors.New("loan: authority not bound")
	errFactoryMismatch = errors.New("loan: authority is not this loan's factory")
)

// Policy holds the knobs an operator may set on loan behaviour.
type Policy struct {
	// EnforcePaymentTime rejects payInterest before the installment's
	// payment time. Off by default: payment times are advisory.
	EnforcePaymentTime bool
	// Now returns unix time in the unit used for payment times.
	Now func() int64
}

type Option func(*Policy)

func WithPaymentTimeEnforced(now func() int64) Option {
	return func(p *Policy) {
		p.EnforcePaymentTime = true
		if now != nil {
			p.Now = now
		}
	}
}

// New mints a pending loan. Callers other than the factory use it only to
// rebuild fixtures.
func New(addr, factory common.Address, index uint64, t Terms) (*Loan, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Loan{
		Address:            addr,
		Factory:            factory,
		Index:              index,
		ID:                 t.ID,
		Market:             t.Market,
		PrincipalAmount:    t.PrincipalAmount,
		CollateralAmount:   t.CollateralAmount,
		Meta:               t.Meta,
		CreatedAt:          t.Timestamp,
		Status:             StatusPending,
		PendingInstallment: -1,
	}, nil
}

// Bind attaches the factory the loan authorizes against.
func (l *Loan) Bind(a Authority, opts ...Option) error {
	if a == nil {
		return errUnbound
	}
	if a.Address() != l.Factory {
		return fmt.Errorf("%w: %s", errFactoryMismatch, a.Address().Hex())
	}
	l.authority = a
	l.policy = Policy{Now: func() int64 { return time.Now().Unix() }}
	for _, o := range opts {
		o(&l.policy)
	}
	return nil
}

// DrainEvents hands out the records of accepted mutations since the last
// drain.
func (l *Loan) DrainEvents() []event.Event { return l.events.Drain() }

func (l *Loan) guard(caller common.Address, required access.Role) error {
	if l.authority == nil {
		return errUnbound
	}
	if err := access.Authorize(l.authority.Roles(), caller, required); err != nil {
		return err
	}
	if l.Status == StatusMature {
		return fmt.Errorf("%w: loan is mature", fault.ErrInvalidTransition)
	}
	return nil
}

func (l *Loan) bump() { l.Seq++ }

func (l *Loan) emit(typ event.Type, attrs map[string]string) {
	l.events.Append(l.Address, typ, l.Seq, attrs)
}

func (l *Loan) setStatus(s Status, attrs map[string]string) {
	prev := l.Status
	l.Status = s
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrs["status"] = s.String()
	attrs["previous"] = prev.String()
	l.emit(event.TypeStatusChanged, attrs)
}

// Start activates a pending loan once lenders and a schedule exist.
func (l *Loan) Start(caller common.Address) error {
	if err := l.guard(caller, access.RoleOwnerOrWorker); err != nil {
		return err
	}
	if l.Status != StatusPending {
		return fmt.Errorf("%w: start from %s", fault.ErrInvalidTransition, l.Status)
	}
	if len(l.Lenders) == 0 || len(l.Installments) == 0 {
		return fmt.Errorf("%w: start needs lenders and a schedule", fault.ErrInvalidTransition)
	}
	l.bump()
	l.PhaseSeq = l.Seq
	l.setStatus(StatusActive, nil)
	return nil
}

// PayInterest opens settlement of installment i.
func (l *Loan) PayInterest(caller common.Address, i int) error {
	if err := l.guard(caller, access.RoleWorker); err != nil {
		return err
	}
	inst, err := l.installment(i)
	if err != nil {
		return err
	}
	if inst.Paid {
		return fmt.Errorf("%w: installment %d", fault.ErrInstallmentAlreadyPaid, i)
	}
	if l.Status != StatusActive {
		return fmt.Errorf("%w: payInterest from %s", fault.ErrInvalidTransition, l.Status)
	}
	if l.policy.EnforcePaymentTime && l.policy.Now() < inst.PaymentTime {
		return fmt.Errorf("%w: installment %d not due before %d", fault.ErrInvalidTransition, i, inst.PaymentTime)
	}
	if !l.hasFreshEvidence() {
		return fmt.Errorf("%w: no outcome records since seq %d", fault.ErrMissingSettlementEvidence, l.PhaseSeq)
	}
	if n := len(l.OutstandingTransfers()); n > 0 {
		return fmt.Errorf("%w: %d expected transfers unresolved", fault.ErrMissingSettlementEvidence, n)
	}
	l.bump()
	l.PhaseSeq = l.Seq
	l.PendingInstallment = i
	l.setStatus(StatusInterestDue, map[string]string{"interestId": strconv.Itoa(i)})
	return nil
}

// InterestPaid confirms settlement of the installment opened by PayInterest
// and returns the loan to active. Repeating the confirmation is a no-op.
func (l *Loan) InterestPaid(caller common.Address, i int) error {
	if err := l.guard(caller, access.RoleWorker); err != nil {
		return err
	}
	inst, err := l.installment(i)
	if err != nil {
		return err
	}
	if inst.Paid {
		if inst.Confirmed {
			return nil
		}
		return fmt.Errorf("%w: installment %d was marked paid without payInterest", fault.ErrInvalidTransition, i)
	}
	if l.Status != StatusInterestDue || l.PendingInstallment != i {
		return fmt.Errorf("%w: interestPaid(%d) without matching payInterest", fault.ErrInvalidTransition, i)
	}
	if !l.hasFreshEvidence() {
		return fmt.Errorf("%w: no outcome records since payInterest", fault.ErrMissingSettlementEvidence)
	}
	l.bump()
	l.PhaseSeq = l.Seq
	l.PendingInstallment = -1
	l.Installments[i].Paid = true
	l.Installments[i].Confirmed = true
	l.setStatus(StatusActive, map[string]string{"interestId": strconv.Itoa(i)})
	l.emit(event.TypeInterestChanged, installmentAttrs(l.Installments[i], -1))
	return nil
}

// Mature closes the loan once every installment is paid. No mutation is
// accepted afterwards.
func (l *Loan) Mature(caller common.Address) error {
	if err := l.guard(caller, access.RoleWorker); err != nil {
		return err
	}
	if l.Status != StatusActive && l.Status != StatusInterestPaid {
		return fmt.Errorf("%w: mature from %s", fault.ErrInvalidTransition, l.Status)
	}
	for _, inst := range l.Installments {
		if !inst.Paid {
			return fmt.Errorf("%w: installment %d unpaid", fault.ErrInvalidTransition, inst.Index)
		}
	}
	l.bump()
	l.setStatus(StatusMature, nil)
	return nil
}

// ChangeStatus overrides the status directly. A loan that has left pending
// never returns to it.
func (l *Loan) ChangeStatus(caller common.Address, label string, timestamp int64) error {
	if err := l.guard(caller, access.RoleWorker); err != nil {
		return err
	}
	s, err := ParseStatus(label)
	if err != nil {
		return err
	}
	if s == StatusPending && l.Status != StatusPending {
		return fmt.Errorf("%w: %s back to pending", fault.ErrInvalidTransition, l.Status)
	}
	if err := CheckTimestamp(timestamp); err != nil {
		return err
	}
	l.bump()
	if s != StatusInterestDue {
		l.PendingInstallment = -1
	}
	l.setStatus(s, map[string]string{"timestamp": strconv.FormatInt(timestamp, 10)})
	return nil
}

// UpdateMeta replaces the opaque metadata blob; its version is the seq that
// wrote it.
func (l *Loan) UpdateMeta(caller common.Address, blob string) error {
	if err := l.guard(caller, access.RoleWorker); err != nil {
		return err
	}
	l.bump()
	l.Meta = blob
	l.MetaVersion = l.Seq
	l.emit(event.TypeMetaUpdated, map[string]string{
		"updatedMeta": blob,
		"seq":         strconv.FormatUint(l.Seq, 10),
	})
	return nil
}

func (l *Loan) installment(i int) (Installment, error) {
	if i < 0 || i >= len(l.Installments) {
		return Installment{}, fmt.Errorf("%w: no installment %d", fault.ErrMalformedInput, i)
	}
	return l.Installments[i], nil
}

// Outcome seqs never decrease, so only the newest one matters.
func (l *Loan) hasFreshEvidence() bool {
	n := len(l.Outcomes)
	return n > 0 && l.Outcomes[n-1].Seq > l.PhaseSeq
}
