package eventmock

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"loanledger/internal/domain/event"
)

var (
	_ event.Repository = (*Repo)(nil)
	_ event.Emitter    = (*Emitter)(nil)
)

// Repo is a function-backed mock of event.Repository. Without AppendFn it
// keeps appended records in memory and ListByAddress reads them back.
type Repo struct {
	AppendFn        func(ctx context.Context, events []event.Event) error
	ListByAddressFn func(ctx context.Context, a common.Address, afterSeq uint64, limit int) ([]event.Event, error)

	mu     sync.Mutex
	stored []event.Event
}

func (m *Repo) Append(ctx context.Context, events []event.Event) error {
	if m.AppendFn != nil {
		return m.AppendFn(ctx, events)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = append(m.stored, events...)
	return nil
}

func (m *Repo) ListByAddress(ctx context.Context, a common.Address, afterSeq uint64, limit int) ([]event.Event, error) {
	if m.ListByAddressFn != nil {
		return m.ListByAddressFn(ctx, a, afterSeq, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []event.Event
	for _, e := range m.stored {
		if e.Address == a && e.Seq > afterSeq {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Stored returns everything appended without AppendFn.
func (m *Repo) Stored() []event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Event, len(m.stored))
	copy(out, m.stored)
	return out
}

// Emitter records emitted batches unless EmitFn is set.
type Emitter struct {
	EmitFn func(ctx context.Context, events []event.Event) error

	mu      sync.Mutex
	batches [][]event.Event
}

func (m *Emitter) Emit(ctx context.Context, events []event.Event) error {
	m.mu.Lock()
	m.batches = append(m.batches, events)
	m.mu.Unlock()
	if m.EmitFn != nil {
		return m.EmitFn(ctx, events)
	}
	return nil
}

func (m *Emitter) Batches() [][]event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]event.Event, len(m.batches))
	copy(out, m.batches)
	return out
}
