// Package factory implements the LoanFactory aggregate: the role record, the
// per-market lead time table and the append-only loan registry.
package factory

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"loanledger/internal/domain/access"
	"loanledger/internal/domain/event"
	"loanledger/internal/domain/fault"
	"loanledger/internal/domain/loan"
	"loanledger/pkg/id"
)

// LeadTimeKey addresses one lead time: a market and a purpose such as
// "margin".
type LeadTimeKey struct {
	Market string
	Type   string
}

// Entry is one registry row. Index starts at 1 and doubles as the nonce of
// the loan's address.
type Entry struct {
	Index   uint64
	ID      string
	Address common.Address
}

type Factory struct {
	address   common.Address
	roles     access.Roles
	seq       uint64
	leadTimes map[LeadTimeKey]uint64
	registry  []Entry
	byID      map[string]int
	events    event.Log
}

// Deploy is the explicit initialization step: the deployer becomes both owner
// and worker.
func Deploy(addr, deployer common.Address) (*Factory, error) {
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("%w: null factory address", fault.ErrMalformedInput)
	}
	if deployer == (common.Address{}) {
		return nil, fmt.Errorf("%w: null deployer", fault.ErrMalformedInput)
	}
	return Restore(addr, access.Roles{Owner: deployer, Worker: deployer}, 0, nil, nil), nil
}

// Restore rebuilds a factory from persisted state.
func Restore(addr common.Address, roles access.Roles, seq uint64, leadTimes map[LeadTimeKey]uint64, registry []Entry) *Factory {
	f := &Factory{
		address:   addr,
		roles:     roles,
		seq:       seq,
		leadTimes: make(map[LeadTimeKey]uint64, len(leadTimes)),
		registry:  make([]Entry, 0, len(registry)),
		byID:      make(map[string]int, len(registry)),
	}
	for k, v := range leadTimes {
		f.leadTimes[k] = v
	}
	for _, e := range registry {
		f.byID[e.ID] = len(f.registry)
		f.registry = append(f.registry, e)
	}
	return f
}

func (f *Factory) Address() common.Address { return f.address }
func (f *Factory) Roles() access.Roles     { return f.roles }
func (f *Factory) Seq() uint64             { return f.seq }
func (f *Factory) LoanCount() uint64       { return uint64(len(f.registry)) }

// DrainEvents hands out the records of accepted mutations since the last
// drain.
func (f *Factory) DrainEvents() []event.Event { return f.events.Drain() }

func (f *Factory) LeadTime(market, typ string) (uint64, bool) {
	v, ok := f.leadTimes[LeadTimeKey{Market: market, Type: typ}]
	return v, ok
}

func (f *Factory) LeadTimes() map[LeadTimeKey]uint64 {
	out := make(map[LeadTimeKey]uint64, len(f.leadTimes))
	for k, v := range f.leadTimes {
		out[k] = v
	}
	return out
}

// LoanAt returns the index-th loan created, counting from 1.
func (f *Factory) LoanAt(index uint64) (Entry, bool) {
	if index == 0 || index > uint64(len(f.registry)) {
		return Entry{}, false
	}
	return f.registry[index-1], true
}

func (f *Factory) LoanByID(loanID string) (Entry, bool) {
	i, ok := f.byID[loanID]
	if !ok {
		return Entry{}, false
	}
	return f.registry[i], true
}

func (f *Factory) Registry() []Entry {
	out := make([]Entry, len(f.registry))
	copy(out, f.registry)
	return out
}

func (f *Factory) accept() { f.seq++ }

func (f *Factory) emitAccess(c access.Change) {
	f.events.Append(f.address, event.TypeAccessChanged, f.seq, map[string]string{
		"access":   c.Access,
		"previous": c.Previous.Hex(),
		"current":  c.Current.Hex(),
	})
}

// CreateLoan mints a loan bound to this factory and appends it to the
// registry. Ids are unique per factory.
func (f *Factory) CreateLoan(caller common.Address, t loan.Terms) (*loan.Loan, error) {
	if err := access.Authorize(f.roles, caller, access.RoleOwnerOrWorker); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if _, taken := f.byID[t.ID]; taken {
		return nil, fmt.Errorf("%w: %q", fault.ErrDuplicateID, t.ID)
	}

	index := uint64(len(f.registry)) + 1
	addr := id.ContractAddress(f.address, index)
	l, err := loan.New(addr, f.address, index, t)
	if err != nil {
		return nil, err
	}
	if err := l.Bind(f); err != nil {
		return nil, err
	}

	f.accept()
	f.byID[t.ID] = len(f.registry)
	f.registry = append(f.registry, Entry{Index: index, ID: t.ID, Address: addr})
	f.events.Append(f.address, event.TypeLoanCreated, f.seq, map[string]string{
		"contractAddress":  addr.Hex(),
		"id":               t.ID,
		"market":           t.Market,
		"principalAmount":  t.PrincipalAmount.String(),
		"collateralAmount": t.CollateralAmount.String(),
		"loanMeta":         t.Meta,
		"timestamp":        strconv.FormatInt(t.Timestamp, 10),
		"seq":              strconv.FormatUint(f.seq, 10),
		"index":            strconv.FormatUint(index, 10),
	})
	return l, nil
}

// ChangeLeadtime overwrites one lead time. Lead times are advisory durations
// read by external schedulers; they are never deleted. Only the owner may
// change them.
func (f *Factory) ChangeLeadtime(caller common.Address, market, typ string, leadTime uint64, timestamp int64) error {
	if err := access.Authorize(f.roles, caller, access.RoleOwner); err != nil {
		return err
	}
	if err := loan.CheckLabel("market", market); err != nil {
		return err
	}
	if err := loan.CheckLabel("leadTimeType", typ); err != nil {
		return err
	}
	if err := loan.CheckTimestamp(timestamp); err != nil {
		return err
	}
	f.accept()
	f.leadTimes[LeadTimeKey{Market: market, Type: typ}] = leadTime
	f.events.Append(f.address, event.TypeLeadTimeChanged, f.seq, map[string]string{
		"market":       market,
		"leadTimeType": typ,
		"leadTime":     strconv.FormatUint(leadTime, 10),
		"timestamp":    strconv.FormatInt(timestamp, 10),
	})
	return nil
}

func (f *Factory) ChangeOwner(caller, candidate common.Address) error {
	next := f.roles
	c, err := next.ChangeOwner(caller, candidate)
	if err != nil {
		return err
	}
	f.roles = next
	f.accept()
	f.emitAccess(c)
	return nil
}

func (f *Factory) AcceptOwner(caller common.Address) error {
	next := f.roles
	changes, err := next.AcceptOwner(caller)
	if err != nil {
		return err
	}
	f.roles = next
	f.accept()
	for _, c := range changes {
		f.emitAccess(c)
	}
	return nil
}

func (f *Factory) ChangeWorker(caller, candidate common.Address) error {
	next := f.roles
	c, err := next.ChangeWorker(caller, candidate)
	if err != nil {
		return err
	}
	f.roles = next
	f.accept()
	f.emitAccess(c)
	return nil
}
