package eventmock

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"loanledger/internal/domain/event"
)

func TestRepo_InMemory(t *testing.T) {
	ctx := context.Background()
	a, b := common.HexToAddress("0xa"), common.HexToAddress("0xb")
	m := &Repo{}
	_ = m.Append(ctx, []event.Event{{Address: a, Seq: 1}, {Address: b, Seq: 1}, {Address: a, Seq: 2}, {Address: a, Seq: 3}})

	got, err := m.ListByAddress(ctx, a, 1, 1)
	if err != nil {
		t.Fatalf("ListByAddress: %v", err)
	}
	if len(got) != 1 || got[0].Seq != 2 {
		t.Fatalf("got %+v", got)
	}
	if len(m.Stored()) != 4 {
		t.Fatalf("stored %d", len(m.Stored()))
	}
}

func TestEmitter(t *testing.T) {
	wantErr := errors.New("down")
	m := &Emitter{EmitFn: func(context.Context, []event.Event) error { return wantErr }}
	if err := m.Emit(context.Background(), []event.Event{{Seq: 1}}); !errors.Is(err, wantErr) {
		t.Fatalf("Emit: %v", err)
	}
	if len(m.Batches()) != 1 {
		t.Fatalf("batch not recorded")
	}
}
