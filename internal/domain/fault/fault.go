// Package fault holds the error taxonomy shared by the factory and loan
// aggregates. Every guard violation wraps exactly one of these sentinels.
package fault

import "errors"

var (
	ErrUnauthorized              = errors.New("unauthorized")
	ErrInvalidTransition         = errors.New("invalid transition")
	ErrMalformedInput            = errors.New("malformed input")
	ErrDuplicateID               = errors.New("duplicate id")
	ErrInstallmentAlreadyPaid    = errors.New("installment already paid")
	ErrMissingSettlementEvidence = errors.New("missing settlement evidence")
	ErrUnknownOperation          = errors.New("unknown operation")
	ErrNotFound                  = errors.New("not found")
)

// Reason tags surfaced to callers alongside a failure.
const (
	ReasonUnauthorized              = "unauthorized"
	ReasonInvalidTransition         = "invalid_transition"
	ReasonMalformedInput            = "malformed_input"
	ReasonDuplicateID               = "duplicate_id"
	ReasonInstallmentAlreadyPaid    = "installment_already_paid"
	ReasonMissingSettlementEvidence = "missing_settlement_evidence"
	ReasonUnknownOperation          = "unknown_operation"
	ReasonNotFound                  = "not_found"
	ReasonInternal                  = "internal"
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrUnauthorized, ReasonUnauthorized},
	{ErrInstallmentAlreadyPaid, ReasonInstallmentAlreadyPaid},
	{ErrMissingSettlementEvidence, ReasonMissingSettlementEvidence},
	{ErrDuplicateID, ReasonDuplicateID},
	{ErrInvalidTransition, ReasonInvalidTransition},
	{ErrMalformedInput, ReasonMalformedInput},
	{ErrUnknownOperation, ReasonUnknownOperation},
	{ErrNotFound, ReasonNotFound},
}

// Reason maps err to its reason tag; anything outside the taxonomy is
// reported as internal.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonInternal
}
