package loan

import (
	"fmt"

	"github.com/shopspring/decimal"

	"loanledger/internal/domain/fault"
)

// MaxLabelLen is the width of a bytes32 slot.
const MaxLabelLen = 32

// ErrOutOfOrderSchedule reports installment payment times that are not
// strictly increasing.
var ErrOutOfOrderSchedule = fmt.Errorf("%w: out of order schedule", fault.ErrMalformedInput)

// CheckLabel accepts non-empty values that fit a bytes32 slot.
func CheckLabel(field, v string) error {
	if v == "" {
		return fmt.Errorf("%w: %s is empty", fault.ErrMalformedInput, field)
	}
	if len(v) > MaxLabelLen {
		return fmt.Errorf("%w: %s exceeds %d bytes", fault.ErrMalformedInput, field, MaxLabelLen)
	}
	return nil
}

// CheckAmount accepts unsigned integer amounts in base units.
func CheckAmount(field string, d decimal.Decimal) error {
	if d.IsNegative() || !d.IsInteger() {
		return fmt.Errorf("%w: %s must be a non-negative integer, got %s", fault.ErrMalformedInput, field, d.String())
	}
	return nil
}

func CheckTimestamp(ts int64) error {
	if ts < 0 {
		return fmt.Errorf("%w: negative timestamp %d", fault.ErrMalformedInput, ts)
	}
	return nil
}
