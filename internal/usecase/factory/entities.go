package factory

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"loanledger/internal/domain/event"
)

type CreateLoanInput struct {
	ID               string
	Market           string
	PrincipalAmount  decimal.Decimal
	CollateralAmount decimal.Decimal
	Meta             string
	Timestamp        int64
}

type ChangeLeadtimeInput struct {
	Market       string
	LeadTimeType string
	LeadTime     uint64
	Timestamp    int64
}

type LeadTimeDTO struct {
	Market       string `json:"market"`
	LeadTimeType string `json:"lead_time_type"`
	LeadTime     uint64 `json:"lead_time"`
}

type FactoryDTO struct {
	Address      common.Address `json:"address"`
	Owner        common.Address `json:"owner"`
	PendingOwner common.Address `json:"pending_owner"`
	Worker       common.Address `json:"worker"`
	Seq          uint64         `json:"seq"`
	LoanCount    uint64         `json:"loan_count"`
	LeadTimes    []LeadTimeDTO  `json:"lead_times"`
}

type RegistryEntryDTO struct {
	Index   uint64         `json:"index"`
	ID      string         `json:"id"`
	Address common.Address `json:"address"`
}

type LoanCreatedDTO struct {
	Address    common.Address `json:"address"`
	Index      uint64         `json:"index"`
	ID         string         `json:"id"`
	FactorySeq uint64         `json:"factory_seq"`
}

type EventsDTO struct {
	Address common.Address `json:"address"`
	Events  []event.Event  `json:"events"`
}
