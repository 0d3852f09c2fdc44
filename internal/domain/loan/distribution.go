package loan

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"loanledger/internal/domain/fault"
)

// Payout is one lender's share of an installment.
type Payout struct {
	LenderIndex  int             `json:"lender_index"`
	LenderUserID common.Hash     `json:"lender_user_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// Distribution splits installment i across lenders in proportion to their
// rate weights, falling back to lent amounts when every rate weight is zero.
// Shares are floored; the remainder goes to the last lender so the payouts
// always sum to the installment amount.
func (l *Loan) Distribution(i int) ([]Payout, error) {
	inst, err := l.installment(i)
	if err != nil {
		return nil, err
	}
	if len(l.Lenders) == 0 {
		return nil, fmt.Errorf("%w: loan has no lenders", fault.ErrMalformedInput)
	}

	weights := make([]*big.Int, len(l.Lenders))
	sum := new(big.Int)
	for j, a := range l.Lenders {
		weights[j] = a.RateWeight.BigInt()
		sum.Add(sum, weights[j])
	}
	if sum.Sign() == 0 {
		for j, a := range l.Lenders {
			weights[j] = a.Amount.BigInt()
			sum.Add(sum, weights[j])
		}
	}
	if sum.Sign() == 0 {
		return nil, fmt.Errorf("%w: lenders carry no weight", fault.ErrMalformedInput)
	}

	total := inst.Amount.BigInt()
	paid := new(big.Int)
	out := make([]Payout, len(l.Lenders))
	for j, a := range l.Lenders {
		share := new(big.Int).Mul(total, weights[j])
		share.Quo(share, sum)
		paid.Add(paid, share)
		out[j] = Payout{LenderIndex: a.Index, LenderUserID: a.LenderUserID, Amount: decimal.NewFromBigInt(share, 0)}
	}
	last := len(out) - 1
	rem := new(big.Int).Sub(total, paid)
	out[last].Amount = out[last].Amount.Add(decimal.NewFromBigInt(rem, 0))
	return out, nil
}
