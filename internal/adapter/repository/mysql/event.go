package mysql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"

	eventDomain "loanledger/internal/domain/event"
	"loanledger/pkg/id"
)

type EventRepository struct{ db *gorm.DB }

func NewEventRepository(db *gorm.DB) *EventRepository { return &EventRepository{db: db} }

func (r *EventRepository) Append(ctx context.Context, events []eventDomain.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]eventModel, len(events))
	for i, e := range events {
		attrs, err := json.Marshal(e.Attributes)
		if err != nil {
			return fmt.Errorf("encode %s attributes: %w", e.Type, err)
		}
		rows[i] = eventModel{
			EventID:    id.NewID32(),
			Address:    e.Address.Hex(),
			Seq:        e.Seq,
			LogIndex:   e.LogIndex,
			Type:       string(e.Type),
			Attributes: string(attrs),
		}
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *EventRepository) ListByAddress(ctx context.Context, a common.Address, afterSeq uint64, limit int) ([]eventDomain.Event, error) {
	q := r.db.WithContext(ctx).
		Where("address = ? AND seq > ?", a.Hex(), afterSeq).
		Order("seq").Order("log_index")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []eventModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]eventDomain.Event, len(rows))
	for i, m := range rows {
		attrs := map[string]string{}
		if err := json.Unmarshal([]byte(m.Attributes), &attrs); err != nil {
			return nil, fmt.Errorf("corrupt event %s attributes: %w", m.EventID, err)
		}
		out[i] = eventDomain.Event{
			Address:    addr(m.Address),
			Type:       eventDomain.Type(m.Type),
			Seq:        m.Seq,
			LogIndex:   m.LogIndex,
			Attributes: attrs,
		}
	}
	return out, nil
}
