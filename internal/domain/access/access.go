// Package access implements the two-role model shared by the factory and the
// loans it mints: an owner transferred in two steps and a worker transferred
// in one.
package access

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"loanledger/internal/domain/fault"
)

type Role int

const (
	RoleOwner Role = iota + 1
	RoleWorker
	RoleOwnerOrWorker
	RolePendingOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleWorker:
		return "worker"
	case RoleOwnerOrWorker:
		return "owner|worker"
	case RolePendingOwner:
		return "pendingOwner"
	default:
		return "unknown"
	}
}

// Labels carried by AccessChanged records.
const (
	LabelOwner        = "owner"
	LabelPendingOwner = "pendingOwner"
	LabelWorker       = "worker"
)

// Roles is the role record. PendingOwner is the zero address except between a
// ChangeOwner proposal and its acceptance.
type Roles struct {
	Owner        common.Address `json:"owner"`
	PendingOwner common.Address `json:"pending_owner"`
	Worker       common.Address `json:"worker"`
}

// Change is one role assignment, reported as an AccessChanged record.
type Change struct {
	Access   string
	Previous common.Address
	Current  common.Address
}

// Authorize reports whether caller holds the required role. The zero address
// never holds a role.
func Authorize(r Roles, caller common.Address, required Role) error {
	if caller == (common.Address{}) {
		return fmt.Errorf("%w: null caller", fault.ErrUnauthorized)
	}
	var ok bool
	switch required {
	case RoleOwner:
		ok = caller == r.Owner
	case RoleWorker:
		ok = caller == r.Worker
	case RoleOwnerOrWorker:
		ok = caller == r.Owner || caller == r.Worker
	case RolePendingOwner:
		ok = caller == r.PendingOwner
	}
	if !ok {
		return fmt.Errorf("%w: %s is not %s", fault.ErrUnauthorized, caller.Hex(), required)
	}
	return nil
}

// ChangeOwner proposes candidate as the next owner.
func (r *Roles) ChangeOwner(caller, candidate common.Address) (Change, error) {
	if err := Authorize(*r, caller, RoleOwner); err != nil {
		return Change{}, err
	}
	if candidate == (common.Address{}) {
		return Change{}, fmt.Errorf("%w: null owner candidate", fault.ErrMalformedInput)
	}
	c := Change{Access: LabelPendingOwner, Previous: r.PendingOwner, Current: candidate}
	r.PendingOwner = candidate
	return c, nil
}

// AcceptOwner promotes the pending owner and clears the proposal. It reports
// the owner change first and the pending owner reset second.
func (r *Roles) AcceptOwner(caller common.Address) ([]Change, error) {
	if err := Authorize(*r, caller, RolePendingOwner); err != nil {
		return nil, err
	}
	changes := []Change{
		{Access: LabelOwner, Previous: r.Owner, Current: caller},
		{Access: LabelPendingOwner, Previous: r.PendingOwner, Current: common.Address{}},
	}
	r.Owner = caller
	r.PendingOwner = common.Address{}
	return changes, nil
}

// ChangeWorker replaces the worker in a single step.
func (r *Roles) ChangeWorker(caller, candidate common.Address) (Change, error) {
	if err := Authorize(*r, caller, RoleOwner); err != nil {
		return Change{}, err
	}
	if candidate == (common.Address{}) {
		return Change{}, fmt.Errorf("%w: null worker", fault.ErrMalformedInput)
	}
	c := Change{Access: LabelWorker, Previous: r.Worker, Current: candidate}
	r.Worker = candidate
	return c, nil
}
