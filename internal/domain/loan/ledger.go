package loan

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/shopspring/decimal"

	"loanledger/internal/domain/access"
	"loanledger/internal/domain/event"
	"loanledger/internal/domain/fault"
)

// AddLenders appends index-aligned lender rows. Only valid before start; the
// total lent may not exceed the principal.
func (l *Loan) AddLenders(caller common.Address, amounts []decimal.Decimal, weights []Weight, refs []LenderRef) error {
	if err := l.guard(caller, access.RoleOwnerOrWorker); err != nil {
		return err
	}
	if l.Status != StatusPending {
		return fmt.Errorf("%w: lenders are fixed once %s", fault.ErrInvalidTransition, l.Status)
	}
	if len(amounts) == 0 || len(amounts) != len(weights) || len(amounts) != len(refs) {
		return fmt.Errorf("%w: %d amounts, %d weights, %d ids", fault.ErrMalformedInput, len(amounts), len(weights), len(refs))
	}
	total := l.LentAmount()
	for i := range amounts {
		if err := CheckAmount("amount", amounts[i]); err != nil {
			return err
		}
		if err := CheckAmount("amountWeight", weights[i].Amount); err != nil {
			return err
		}
		if err := CheckAmount("rateWeight", weights[i].Rate); err != nil {
			return err
		}
		total = total.Add(amounts[i])
	}
	if total.GreaterThan(l.PrincipalAmount) {
		return fmt.Errorf("%w: lender total %s exceeds principal %s", fault.ErrMalformedInput, total, l.PrincipalAmount)
	}

	l.bump()
	first := len(l.Lenders)
	for i := range amounts {
		l.Lenders = append(l.Lenders, LenderAllocation{
			Index:        first + i,
			ID:           refs[i].ID,
			OrderID:      refs[i].OrderID,
			LenderUserID: refs[i].LenderUserID,
			Amount:       amounts[i],
			AmountWeight: weights[i].Amount,
			RateWeight:   weights[i].Rate,
		})
	}
	l.emit(event.TypeLendersAdded, map[string]string{
		"first": strconv.Itoa(first),
		"count": strconv.Itoa(len(amounts)),
		"total": total.String(),
	})
	return nil
}

// LentAmount sums the lender allocations.
func (l *Loan) LentAmount() decimal.Decimal {
	sum := decimal.Zero
	for _, a := range l.Lenders {
		sum = sum.Add(a.Amount)
	}
	return sum
}

// AddInterest appends installments. Payment times must keep increasing
// strictly across the existing schedule and the new rows.
func (l *Loan) AddInterest(caller common.Address, paymentTimes []int64, amounts []decimal.Decimal) error {
	if err := l.guard(caller, access.RoleOwnerOrWorker); err != nil {
		return err
	}
	if l.Status != StatusPending {
		return fmt.Errorf("%w: schedule is fixed once %s", fault.ErrInvalidTransition, l.Status)
	}
	if len(paymentTimes) == 0 || len(paymentTimes) != len(amounts) {
		return fmt.Errorf("%w: %d payment times, %d amounts", fault.ErrMalformedInput, len(paymentTimes), len(amounts))
	}
	last := int64(-1)
	if n := len(l.Installments); n > 0 {
		last = l.Installments[n-1].PaymentTime
	}
	for i, ts := range paymentTimes {
		if err := CheckTimestamp(ts); err != nil {
			return err
		}
		if ts <= last {
			return fmt.Errorf("%w: payment time %d after %d", ErrOutOfOrderSchedule, ts, last)
		}
		if err := CheckAmount("amount", amounts[i]); err != nil {
			return err
		}
		last = ts
	}

	l.bump()
	first := len(l.Installments)
	for i := range paymentTimes {
		l.Installments = append(l.Installments, Installment{
			Index:       first + i,
			PaymentTime: paymentTimes[i],
			Amount:      amounts[i],
		})
	}
	l.emit(event.TypeInterestsAdded, map[string]string{
		"first": strconv.Itoa(first),
		"count": strconv.Itoa(len(paymentTimes)),
	})
	return nil
}

// ChangeInterest overrides installment i. The schedule stays strictly
// increasing and a paid installment cannot be marked unpaid.
func (l *Loan) ChangeInterest(caller common.Address, i int, paymentTime int64, amount decimal.Decimal, paid bool, timestamp int64) error {
	if err := l.guard(caller, access.RoleWorker); err != nil {
		return err
	}
	cur, err := l.installment(i)
	if err != nil {
		return err
	}
	if err := CheckAmount("amount", amount); err != nil {
		return err
	}
	if err := CheckTimestamp(paymentTime); err != nil {
		return err
	}
	if err := CheckTimestamp(timestamp); err != nil {
		return err
	}
	if i > 0 && paymentTime <= l.Installments[i-1].PaymentTime {
		return fmt.Errorf("%w: installment %d before its predecessor", ErrOutOfOrderSchedule, i)
	}
	if i+1 < len(l.Installments) && paymentTime >= l.Installments[i+1].PaymentTime {
		return fmt.Errorf("%w: installment %d after its successor", ErrOutOfOrderSchedule, i)
	}
	if cur.Paid && !paid {
		return fmt.Errorf("%w: installment %d cannot be unpaid", fault.ErrInstallmentAlreadyPaid, i)
	}

	l.bump()
	l.Installments[i] = Installment{Index: i, PaymentTime: paymentTime, Amount: amount, Paid: paid, Confirmed: cur.Confirmed}
	l.emit(event.TypeInterestChanged, installmentAttrs(l.Installments[i], timestamp))
	return nil
}

func installmentAttrs(inst Installment, timestamp int64) map[string]string {
	attrs := map[string]string{
		"interestId":  strconv.Itoa(inst.Index),
		"paymentTime": strconv.FormatInt(inst.PaymentTime, 10),
		"amount":      inst.Amount.String(),
		"paid":        strconv.FormatBool(inst.Paid),
	}
	if timestamp >= 0 {
		attrs["timestamp"] = strconv.FormatInt(timestamp, 10)
	}
	return attrs
}

// ExpectTransfer records a custodial movement the loan anticipates.
func (l *Loan) ExpectTransfer(caller common.Address, in TransferInput) error {
	in.TxID = ""
	return l.appendTransfer(caller, TransferExpected, in)
}

// ObserveTransfer records a movement settled externally under in.TxID.
func (l *Loan) ObserveTransfer(caller common.Address, in TransferInput) error {
	return l.appendTransfer(caller, TransferObserved, in)
}

func (l *Loan) appendTransfer(caller common.Address, kind TransferKind, in TransferInput) error {
	if err := l.guard(caller, access.RoleWorker); err != nil {
		return err
	}
	if err := CheckLabel("from", in.From); err != nil {
		return err
	}
	if err := CheckLabel("to", in.To); err != nil {
		return err
	}
	if err := CheckLabel("currency", in.Currency); err != nil {
		return err
	}
	if err := CheckAmount("amount", in.Amount); err != nil {
		return err
	}
	if err := CheckTimestamp(in.Timestamp); err != nil {
		return err
	}
	if kind == TransferObserved && in.TxID == "" {
		return fmt.Errorf("%w: txid is empty", fault.ErrMalformedInput)
	}

	rec := TransferRecord{
		Index:     len(l.Transfers),
		Kind:      kind,
		From:      in.From,
		To:        in.To,
		Amount:    in.Amount,
		Currency:  in.Currency,
		Reason:    in.Reason,
		TxID:      in.TxID,
		Timestamp: in.Timestamp,
	}
	h, err := transferHash(l.Address, rec)
	if err != nil {
		return err
	}
	rec.Hash = h

	l.bump()
	l.Transfers = append(l.Transfers, rec)
	attrs := map[string]string{
		"from":      rec.From,
		"to":        rec.To,
		"amount":    rec.Amount.String(),
		"currency":  rec.Currency,
		"reason":    rec.Reason,
		"timestamp": strconv.FormatInt(rec.Timestamp, 10),
		"hash":      rec.Hash.Hex(),
	}
	typ := event.TypeTransferExpected
	if kind == TransferObserved {
		attrs["txid"] = rec.TxID
		typ = event.TypeTransferObserved
	}
	l.emit(typ, attrs)
	return nil
}

type transferPreimage struct {
	Loan      common.Address
	Kind      string
	Index     uint64
	From      string
	To        string
	Amount    []byte
	Currency  string
	Reason    string
	TxID      string
	Timestamp uint64
}

// transferHash is keccak256 over the RLP encoding of the record and the loan
// address, so equal transfers on different loans never collide.
func transferHash(loanAddr common.Address, r TransferRecord) (common.Hash, error) {
	enc, err := rlp.EncodeToBytes(transferPreimage{
		Loan:      loanAddr,
		Kind:      string(r.Kind),
		Index:     uint64(r.Index),
		From:      r.From,
		To:        r.To,
		Amount:    r.Amount.BigInt().Bytes(),
		Currency:  r.Currency,
		Reason:    r.Reason,
		TxID:      r.TxID,
		Timestamp: uint64(r.Timestamp),
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("loan: encode transfer: %w", err)
	}
	return crypto.Keccak256Hash(enc), nil
}

// AddTransferOutcomeRecords appends a batch of settlement hashes. A hash equal
// to a transfer record's hash resolves that record.
func (l *Loan) AddTransferOutcomeRecords(caller common.Address, hashes []common.Hash) error {
	if err := l.guard(caller, access.RoleWorker); err != nil {
		return err
	}
	if len(hashes) == 0 {
		return fmt.Errorf("%w: empty outcome batch", fault.ErrMalformedInput)
	}
	for _, h := range hashes {
		if h == (common.Hash{}) {
			return fmt.Errorf("%w: null outcome hash", fault.ErrMalformedInput)
		}
	}

	l.bump()
	byHash := make(map[common.Hash]int, len(l.Transfers))
	for i, t := range l.Transfers {
		if !t.Resolved {
			byHash[t.Hash] = i
		}
	}
	resolved := 0
	for _, h := range hashes {
		l.Outcomes = append(l.Outcomes, OutcomeRecord{Index: len(l.Outcomes), Hash: h, Seq: l.Seq})
		if i, ok := byHash[h]; ok {
			l.Transfers[i].Resolved = true
			delete(byHash, h)
			resolved++
		}
	}
	l.emit(event.TypeTransferOutcomesAdded, map[string]string{
		"count":    strconv.Itoa(len(hashes)),
		"resolved": strconv.Itoa(resolved),
	})
	return nil
}

// OutstandingTransfers lists expected transfers no outcome record resolved yet.
func (l *Loan) OutstandingTransfers() []TransferRecord {
	var out []TransferRecord
	for _, t := range l.Transfers {
		if t.Kind == TransferExpected && !t.Resolved {
			out = append(out, t)
		}
	}
	return out
}
