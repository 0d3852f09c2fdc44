package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"loanledger/internal/domain/event"
)

// StreamPublisher fans committed records out to a redis stream, one entry per
// record, in the order given.
type StreamPublisher struct {
	rdb    *redis.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(rdb *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{rdb: rdb, stream: stream, maxLen: 100_000}
}

func (p *StreamPublisher) Emit(ctx context.Context, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range events {
			attrs, err := json.Marshal(e.Attributes)
			if err != nil {
				return err
			}
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: p.stream,
				MaxLen: p.maxLen,
				Values: map[string]any{
					"address":    e.Address.Hex(),
					"type":       string(e.Type),
					"seq":        strconv.FormatUint(e.Seq, 10),
					"log_index":  strconv.Itoa(e.LogIndex),
					"attributes": string(attrs),
				},
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish %d events to %s: %w", len(events), p.stream, err)
	}
	return nil
}
