package loan

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"loanledger/internal/domain/event"
	domain "loanledger/internal/domain/loan"
)

type LenderInput struct {
	ID           common.Hash
	OrderID      common.Hash
	LenderUserID common.Hash
	Amount       decimal.Decimal
	AmountWeight decimal.Decimal
	RateWeight   decimal.Decimal
}

type InterestInput struct {
	PaymentTime int64
	Amount      decimal.Decimal
}

type ChangeInterestInput struct {
	Index       int
	PaymentTime int64
	Amount      decimal.Decimal
	Paid        bool
	Timestamp   int64
}

type LenderDTO struct {
	Index        int             `json:"index"`
	ID           common.Hash     `json:"id"`
	OrderID      common.Hash     `json:"order_id"`
	LenderUserID common.Hash     `json:"lender_user_id"`
	Amount       decimal.Decimal `json:"amount"`
	AmountWeight decimal.Decimal `json:"amount_weight"`
	RateWeight   decimal.Decimal `json:"rate_weight"`
}

type InstallmentDTO struct {
	Index       int             `json:"index"`
	PaymentTime int64           `json:"payment_time"`
	Amount      decimal.Decimal `json:"amount"`
	Paid        bool            `json:"paid"`
	Confirmed   bool            `json:"confirmed"`
}

type TransferDTO struct {
	Index     int             `json:"index"`
	Kind      string          `json:"kind"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Reason    string          `json:"reason"`
	TxID      string          `json:"tx_id"`
	Timestamp int64           `json:"timestamp"`
	Hash      common.Hash     `json:"hash"`
	Resolved  bool            `json:"resolved"`
}

type OutcomeDTO struct {
	Index int         `json:"index"`
	Hash  common.Hash `json:"hash"`
	Seq   uint64      `json:"seq"`
}

type LoanDTO struct {
	Address            common.Address   `json:"address"`
	Factory            common.Address   `json:"factory"`
	Index              uint64           `json:"index"`
	ID                 string           `json:"id"`
	Market             string           `json:"market"`
	PrincipalAmount    decimal.Decimal  `json:"principal_amount"`
	CollateralAmount   decimal.Decimal  `json:"collateral_amount"`
	LentAmount         decimal.Decimal  `json:"lent_amount"`
	Meta               string           `json:"meta"`
	MetaVersion        uint64           `json:"meta_version"`
	CreatedAt          int64            `json:"created_at"`
	Status             string           `json:"status"`
	Seq                uint64           `json:"seq"`
	PendingInstallment int              `json:"pending_installment"`
	Lenders            []LenderDTO      `json:"lenders"`
	Installments       []InstallmentDTO `json:"installments"`
	Transfers          []TransferDTO    `json:"transfers"`
	Outcomes           []OutcomeDTO     `json:"outcomes"`
}

type DistributionDTO struct {
	Address     common.Address  `json:"address"`
	Installment int             `json:"installment"`
	Payouts     []domain.Payout `json:"payouts"`
}

type EventsDTO struct {
	Address common.Address `json:"address"`
	Events  []event.Event  `json:"events"`
}

func toLoanDTO(l *domain.Loan) *LoanDTO {
	out := &LoanDTO{
		Address:            l.Address,
		Factory:            l.Factory,
		Index:              l.Index,
		ID:                 l.ID,
		Market:             l.Market,
		PrincipalAmount:    l.PrincipalAmount,
		CollateralAmount:   l.CollateralAmount,
		LentAmount:         l.LentAmount(),
		Meta:               l.Meta,
		MetaVersion:        l.MetaVersion,
		CreatedAt:          l.CreatedAt,
		Status:             l.Status.String(),
		Seq:                l.Seq,
		PendingInstallment: l.PendingInstallment,
		Lenders:            make([]LenderDTO, 0, len(l.Lenders)),
		Installments:       make([]InstallmentDTO, 0, len(l.Installments)),
		Transfers:          make([]TransferDTO, 0, len(l.Transfers)),
		Outcomes:           make([]OutcomeDTO, 0, len(l.Outcomes)),
	}
	for _, a := range l.Lenders {
		out.Lenders = append(out.Lenders, LenderDTO(a))
	}
	for _, i := range l.Installments {
		out.Installments = append(out.Installments, InstallmentDTO(i))
	}
	for _, t := range l.Transfers {
		out.Transfers = append(out.Transfers, TransferDTO{
			Index: t.Index, Kind: string(t.Kind), From: t.From, To: t.To,
			Amount: t.Amount, Currency: t.Currency, Reason: t.Reason, TxID: t.TxID,
			Timestamp: t.Timestamp, Hash: t.Hash, Resolved: t.Resolved,
		})
	}
	for _, o := range l.Outcomes {
		out.Outcomes = append(out.Outcomes, OutcomeDTO(o))
	}
	return out
}
