// Package runner holds what every ledger usecase does after its transaction:
// metrics, logging and publication of the committed records.
package runner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"loanledger/internal/domain/event"
	"loanledger/internal/domain/fault"
	"loanledger/internal/infrastructure/metrics"
)

type Runner struct {
	Emitter event.Emitter
	Log     *zap.Logger
	Metrics *metrics.LedgerMetrics
}

// New fills in no-op collaborators for the nil ones.
func New(em event.Emitter, lg *zap.Logger, m *metrics.LedgerMetrics) Runner {
	if em == nil {
		em = event.NoopEmitter{}
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return Runner{Emitter: em, Log: lg, Metrics: m}
}

// Finish records the outcome of one operation and, when it committed,
// publishes its records. Publication failures are logged, never returned:
// the records are already durable in the event log.
func (r Runner) Finish(ctx context.Context, entity, op string, start time.Time, err error, events []event.Event) error {
	r.Metrics.ObserveOperation(entity, op, err, time.Since(start))
	if err != nil {
		r.Log.Debug("operation rejected",
			zap.String("entity", entity),
			zap.String("operation", op),
			zap.String("reason", fault.Reason(err)),
			zap.Error(err),
		)
		return err
	}
	if len(events) == 0 {
		return nil
	}
	r.Log.Debug("operation accepted",
		zap.String("entity", entity),
		zap.String("operation", op),
		zap.String("address", events[0].Address.Hex()),
		zap.Uint64("seq", events[0].Seq),
		zap.Int("events", len(events)),
	)
	perr := r.Emitter.Emit(ctx, events)
	r.Metrics.ObservePublish(len(events), perr)
	if perr != nil {
		r.Log.Warn("event publication failed",
			zap.String("entity", entity),
			zap.String("operation", op),
			zap.Int("events", len(events)),
			zap.Error(perr),
		)
	}
	return nil
}
