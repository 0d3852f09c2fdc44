package loan

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"loanledger/internal/domain/access"
	"loanledger/internal/domain/event"
	"loanledger/internal/domain/fault"
)

type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusInterestDue
	StatusInterestPaid
	StatusMature
)

var statusLabels = [...]string{
	StatusPending:      "pending",
	StatusActive:       "active",
	StatusInterestDue:  "interest_due",
	StatusInterestPaid: "interest_paid",
	StatusMature:       "mature",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusLabels) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusLabels[s]
}

// ParseStatus resolves a status label, case-insensitively.
func ParseStatus(label string) (Status, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	for i, s := range statusLabels {
		if s == l {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown status %q", fault.ErrMalformedInput, label)
}

// Terms are the values fixed at creation time.
type Terms struct {
	ID               string
	Market           string
	PrincipalAmount  decimal.Decimal
	CollateralAmount decimal.Decimal
	Meta             string
	Timestamp        int64
}

func (t Terms) Validate() error {
	if err := CheckLabel("id", t.ID); err != nil {
		return err
	}
	if err := CheckLabel("market", t.Market); err != nil {
		return err
	}
	if err := CheckAmount("principalAmount", t.PrincipalAmount); err != nil {
		return err
	}
	if err := CheckAmount("collateralAmount", t.CollateralAmount); err != nil {
		return err
	}
	return CheckTimestamp(t.Timestamp)
}

type LenderAllocation struct {
	Index        int
	ID           common.Hash
	OrderID      common.Hash
	LenderUserID common.Hash
	Amount       decimal.Decimal
	AmountWeight decimal.Decimal
	RateWeight   decimal.Decimal
}

// LenderRef identifies one lender row.
type LenderRef struct {
	ID           common.Hash
	OrderID      common.Hash
	LenderUserID common.Hash
}

// Weight pairs the amount and rate weights of one lender row.
type Weight struct {
	Amount decimal.Decimal
	Rate   decimal.Decimal
}

type Installment struct {
	Index       int
	PaymentTime int64
	Amount      decimal.Decimal
	Paid        bool
	// Confirmed is set only by InterestPaid after a matching PayInterest.
	Confirmed bool
}

type TransferKind string

const (
	TransferExpected TransferKind = "expected"
	TransferObserved TransferKind = "observed"
)

// TransferRecord is one entry of the custody ledger. Records are never updated
// except for the Resolved flag, which an outcome record may set once.
type TransferRecord struct {
	Index     int
	Kind      TransferKind
	From      string
	To        string
	Amount    decimal.Decimal
	Currency  string
	Reason    string
	TxID      string
	Timestamp int64
	Hash      common.Hash
	Resolved  bool
}

// TransferInput carries the fields of an expected or observed transfer.
type TransferInput struct {
	From      string
	To        string
	Amount    decimal.Decimal
	Currency  string
	Reason    string
	TxID      string
	Timestamp int64
}

// OutcomeRecord is one settlement hash, stamped with the loan seq of the batch
// that added it.
type OutcomeRecord struct {
	Index int
	Hash  common.Hash
	Seq   uint64
}

// Authority supplies the role record a loan authorizes against. The loan only
// reads it.
type Authority interface {
	Address() common.Address
	Roles() access.Roles
}

// Loan is the per-loan state machine.
type Loan struct {
	Address          common.Address
	Factory          common.Address
	Index            uint64
	ID               string
	Market           string
	PrincipalAmount  decimal.Decimal
	CollateralAmount decimal.Decimal
	Meta             string
	MetaVersion      uint64
	CreatedAt        int64
	Status           Status
	Seq              uint64

	Lenders      []LenderAllocation
	Installments []Installment
	Transfers    []TransferRecord
	Outcomes     []OutcomeRecord

	// PendingInstallment is the installment awaiting interestPaid, or -1.
	PendingInstallment int
	// PhaseSeq is the seq of the last start/payInterest/interestPaid.
	PhaseSeq uint64

	authority Authority
	policy    Policy
	events    event.Log
}
