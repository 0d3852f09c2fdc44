// Package event defines the audit record envelope emitted by the factory and
// loan aggregates.
//
// Records are immutable facts produced by accepted operations. Each carries the
// emitting entity's address and the entity seq after the mutation, so an
// observer can total-order every change to one entity and detect gaps. One
// operation may produce several records; they share the seq and are told apart
// by log index.
package event

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type Type string

const (
	TypeAccessChanged         Type = "AccessChanged"
	TypeLoanCreated           Type = "LoanCreated"
	TypeLeadTimeChanged       Type = "LeadTimeChanged"
	TypeLendersAdded          Type = "LendersAdded"
	TypeInterestsAdded        Type = "InterestsAdded"
	TypeStatusChanged         Type = "StatusChanged"
	TypeTransferExpected      Type = "TransferExpected"
	TypeTransferObserved      Type = "TransferObserved"
	TypeTransferOutcomesAdded Type = "TransferOutcomesAdded"
	TypeInterestChanged       Type = "InterestChanged"
	TypeMetaUpdated           Type = "MetaUpdated"
)

type Event struct {
	Address    common.Address    `json:"address"`
	Type       Type              `json:"type"`
	Seq        uint64            `json:"seq"`
	LogIndex   int               `json:"log_index"`
	Attributes map[string]string `json:"attributes"`
}

// Attr returns the attribute value for key, or "" when absent.
func (e Event) Attr(key string) string {
	if e.Attributes == nil {
		return ""
	}
	return e.Attributes[key]
}

// Log buffers the records produced by an aggregate until they are persisted.
type Log struct {
	pending []Event
}

// Append records one event at seq for addr. Log indexes restart at zero for
// every new seq.
func (l *Log) Append(addr common.Address, typ Type, seq uint64, attrs map[string]string) {
	idx := 0
	if n := len(l.pending); n > 0 && l.pending[n-1].Seq == seq && l.pending[n-1].Address == addr {
		idx = l.pending[n-1].LogIndex + 1
	}
	if attrs == nil {
		attrs = map[string]string{}
	}
	l.pending = append(l.pending, Event{
		Address:    addr,
		Type:       typ,
		Seq:        seq,
		LogIndex:   idx,
		Attributes: attrs,
	})
}

// Drain returns the buffered records and clears the buffer.
func (l *Log) Drain() []Event {
	out := l.pending
	l.pending = nil
	return out
}

// Emitter publishes committed records to downstream consumers.
type Emitter interface {
	Emit(ctx context.Context, events []Event) error
}

// NoopEmitter discards every record.
type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, []Event) error { return nil }

// Repository is the durable audit log. Records are unique per
// (address, seq, log index) and never updated.
type Repository interface {
	Append(ctx context.Context, events []Event) error
	// ListByAddress returns the records of one entity with seq > afterSeq in
	// (seq, log index) order. limit <= 0 means no limit.
	ListByAddress(ctx context.Context, addr common.Address, afterSeq uint64, limit int) ([]Event, error)
}
