package mysql

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"loanledger/internal/domain/fault"
)

// Amounts are stored as decimal strings and addresses/hashes as 0x hex so the
// same schema runs on mysql and sqlite without precision loss.

type factoryModel struct {
	ID           uint64 `gorm:"primaryKey"`
	Address      string `gorm:"size:42;uniqueIndex"`
	Owner        string `gorm:"size:42"`
	PendingOwner string `gorm:"size:42"`
	Worker       string `gorm:"size:42"`
	Seq          uint64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (factoryModel) TableName() string { return "factories" }

type leadTimeModel struct {
	ID             uint64 `gorm:"primaryKey"`
	FactoryAddress string `gorm:"size:42;uniqueIndex:ux_lead_time"`
	Market         string `gorm:"size:32;uniqueIndex:ux_lead_time"`
	LeadTimeType   string `gorm:"size:32;uniqueIndex:ux_lead_time"`
	LeadTime       uint64
	UpdatedAt      time.Time
}

func (leadTimeModel) TableName() string { return "lead_times" }

type loanModel struct {
	ID                 uint64 `gorm:"primaryKey"`
	Address            string `gorm:"size:42;uniqueIndex"`
	FactoryAddress     string `gorm:"size:42;uniqueIndex:ux_loan_factory_id;uniqueIndex:ux_loan_factory_index"`
	CreationIndex      uint64 `gorm:"uniqueIndex:ux_loan_factory_index"`
	LoanID             string `gorm:"column:loan_id;size:32;uniqueIndex:ux_loan_factory_id"`
	Market             string `gorm:"size:32"`
	PrincipalAmount    string `gorm:"size:80"`
	CollateralAmount   string `gorm:"size:80"`
	Meta               string `gorm:"type:text"`
	MetaVersion        uint64
	CreatedTs          int64
	Status             int
	Seq                uint64
	PendingInstallment int
	PhaseSeq           uint64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (loanModel) TableName() string { return "loans" }

type lenderModel struct {
	ID           uint64 `gorm:"primaryKey"`
	LoanAddress  string `gorm:"size:42;uniqueIndex:ux_lender_pos"`
	Position     int    `gorm:"uniqueIndex:ux_lender_pos"`
	LenderID     string `gorm:"size:66"`
	OrderID      string `gorm:"size:66"`
	LenderUserID string `gorm:"size:66"`
	Amount       string `gorm:"size:80"`
	AmountWeight string `gorm:"size:80"`
	RateWeight   string `gorm:"size:80"`
}

func (lenderModel) TableName() string { return "loan_lenders" }

type installmentModel struct {
	ID          uint64 `gorm:"primaryKey"`
	LoanAddress string `gorm:"size:42;uniqueIndex:ux_installment_pos"`
	Position    int    `gorm:"uniqueIndex:ux_installment_pos"`
	PaymentTime int64
	Amount      string `gorm:"size:80"`
	Paid        bool
	Confirmed   bool
}

func (installmentModel) TableName() string { return "loan_installments" }

type transferModel struct {
	ID          uint64 `gorm:"primaryKey"`
	LoanAddress string `gorm:"size:42;uniqueIndex:ux_transfer_pos"`
	Position    int    `gorm:"uniqueIndex:ux_transfer_pos"`
	Kind        string `gorm:"size:16"`
	FromUser    string `gorm:"size:32"`
	ToUser      string `gorm:"size:32"`
	Amount      string `gorm:"size:80"`
	Currency    string `gorm:"size:32"`
	Reason      string `gorm:"type:text"`
	TxID        string `gorm:"column:tx_id;size:128"`
	Timestamp   int64
	Hash        string `gorm:"size:66;index"`
	Resolved    bool
}

func (transferModel) TableName() string { return "loan_transfers" }

type outcomeModel struct {
	ID          uint64 `gorm:"primaryKey"`
	LoanAddress string `gorm:"size:42;uniqueIndex:ux_outcome_pos"`
	Position    int    `gorm:"uniqueIndex:ux_outcome_pos"`
	Hash        string `gorm:"size:66"`
	Seq         uint64
}

func (outcomeModel) TableName() string { return "loan_outcomes" }

type eventModel struct {
	ID         uint64 `gorm:"primaryKey"`
	EventID    string `gorm:"size:32;uniqueIndex"`
	Address    string `gorm:"size:42;uniqueIndex:ux_event_pos"`
	Seq        uint64 `gorm:"uniqueIndex:ux_event_pos"`
	LogIndex   int    `gorm:"uniqueIndex:ux_event_pos"`
	Type       string `gorm:"size:32"`
	Attributes string `gorm:"type:text"`
	CreatedAt  time.Time
}

func (eventModel) TableName() string { return "events" }

// AutoMigrate creates or updates every ledger table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&factoryModel{}, &leadTimeModel{},
		&loanModel{}, &lenderModel{}, &installmentModel{}, &transferModel{}, &outcomeModel{},
		&eventModel{},
	)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", fault.ErrNotFound, what)
	}
	return err
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt %s %q: %w", field, s, err)
	}
	return d, nil
}

func addr(s string) common.Address { return common.HexToAddress(s) }
func hash(s string) common.Hash    { return common.HexToHash(s) }
