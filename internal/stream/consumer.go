package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ishwaryaobilisetti/sentiment-platform/pkg/logging"
)

// Message is one stream entry as delivered to a consumer: the broker-assigned
// entry ID plus the flat field map. The consumer holds it only while
// processing and must Ack by ID to release it from the pending set.
type Message struct {
	ID     string
	Values map[string]string
}

// ConsumerConfig identifies the stream, group and consumer.
type ConsumerConfig struct {
	Stream   string
	Group    string
	Consumer string
}

// Consumer reads a stream through a consumer group with per-message
// acknowledgment. Delivery is at-least-once; unacked entries stay on the
// group's pending list and can be reclaimed.
type Consumer struct {
	client goredis.UniversalClient
	cfg    ConsumerConfig
	logger logging.Logger
}

// NewConsumer creates a stream consumer.
func NewConsumer(client goredis.UniversalClient, cfg ConsumerConfig, logger logging.Logger) *Consumer {
	return &Consumer{client: client, cfg: cfg, logger: logger}
}

// EnsureGroup creates the consumer group (and the stream if absent).
// Idempotent: an already-existing group is not an error.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s on %s: %w", c.cfg.Group, c.cfg.Stream, err)
	}
	return nil
}

// ReadNext blocks up to block waiting for undelivered entries and returns at
// most count of them. A timeout with no data returns an empty slice, never
// an error, so callers can loop without special-casing idle periods.
func (c *Consumer) ReadNext(ctx context.Context, count int64, block time.Duration) ([]Message, error) {
	res, err := c.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read from %s: %w", c.cfg.Stream, err)
	}

	var messages []Message
	for _, s := range res {
		for _, m := range s.Messages {
			messages = append(messages, Message{ID: m.ID, Values: stringValues(m.Values)})
		}
	}
	return messages, nil
}

// Ack removes the entry from the group's pending list. Acking an unknown or
// already-acked ID is a no-op on the broker side.
func (c *Consumer) Ack(ctx context.Context, messageID string) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, messageID).Err(); err != nil {
		return fmt.Errorf("ack %s: %w", messageID, err)
	}
	return nil
}

// Reclaim transfers ownership of pending entries idle longer than minIdle to
// this consumer and returns them for reprocessing. Safe to repeat: idempotent
// persistence makes double-processing converge to the same state.
func (c *Consumer) Reclaim(ctx context.Context, minIdle time.Duration, count int64) ([]Message, error) {
	claimed, _, err := c.client.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("autoclaim on %s: %w", c.cfg.Stream, err)
	}

	var messages []Message
	for _, m := range claimed {
		messages = append(messages, Message{ID: m.ID, Values: stringValues(m.Values)})
	}
	return messages, nil
}

// PendingCount reports the size of the group's pending-entries list.
func (c *Consumer) PendingCount(ctx context.Context) (int64, error) {
	p, err := c.client.XPending(ctx, c.cfg.Stream, c.cfg.Group).Result()
	if err != nil {
		return 0, fmt.Errorf("pending on %s: %w", c.cfg.Stream, err)
	}
	return p.Count, nil
}

func stringValues(values map[string]interface{}) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
