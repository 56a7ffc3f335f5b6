package queue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is a comment event read from the stream.
type Message struct {
	ID    string
	Event CommentEvent
}

// Consumer reads comment events for one consumer group. Every method is
// scoped to the stream and group the consumer was built for.
type Consumer interface {
	// EnsureGroup creates the group (and the stream) if missing.
	EnsureGroup(ctx context.Context) error

	// Read returns events never delivered to the group, blocking up to block.
	Read(ctx context.Context, consumer string, count int64, block time.Duration) ([]Message, error)

	// ReadOwnPending returns events this consumer received but never acked,
	// e.g. before a restart.
	ReadOwnPending(ctx context.Context, consumer string, count int64) ([]Message, error)

	// Claim takes over events that another consumer left unacked for at
	// least minIdle, e.g. a worker that crashed mid-reconcile.
	Claim(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]Message, error)

	Ack(ctx context.Context, messageIDs ...string) error

	// Pending is the number of delivered but unacked events in the group.
	Pending(ctx context.Context) (int64, error)
}

// RedisConsumer implements Consumer on a Redis stream consumer group.
type RedisConsumer struct {
	client *redis.Client
	stream string
	group  string
}

var _ Consumer = (*RedisConsumer)(nil)

// NewConsumer binds a consumer to stream and group.
func NewConsumer(client *redis.Client, stream, group string) *RedisConsumer {
	return &RedisConsumer{client: client, stream: stream, group: group}
}

// EnsureGroup starts the group at "0" so stale-count events published before
// the first worker came up are still processed.
func (c *RedisConsumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return nil
		}
		log.Printf("[Consumer] EnsureGroup FAILED: stream=%s group=%s err=%v", c.stream, c.group, err)
		return fmt.Errorf("create consumer group: %w", err)
	}
	log.Printf("[Consumer] EnsureGroup OK: stream=%s group=%s (created)", c.stream, c.group)
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context, consumer string, count int64, block time.Duration) ([]Message, error) {
	return c.readGroup(ctx, consumer, ">", count, block)
}

func (c *RedisConsumer) ReadOwnPending(ctx context.Context, consumer string, count int64) ([]Message, error) {
	// A negative block omits BLOCK; pending reads return immediately anyway.
	return c.readGroup(ctx, consumer, "0", count, -1)
}

func (c *RedisConsumer) readGroup(ctx context.Context, consumer, start string, count int64, block time.Duration) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: consumer,
		Streams:  []string{c.stream, start},
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup %s: %w", start, err)
	}

	var raw []redis.XMessage
	for _, s := range streams {
		raw = append(raw, s.Messages...)
	}
	return c.decode(ctx, raw), nil
}

func (c *RedisConsumer) Claim(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]Message, error) {
	raw, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if len(raw) > 0 {
		log.Printf("[Consumer] Claimed %d idle events for %s", len(raw), consumer)
	}
	return c.decode(ctx, raw), nil
}

// decode parses stream entries. Entries that cannot be parsed (including
// ones trimmed from the stream while pending) would otherwise be redelivered
// forever, so they are acked and dropped here.
func (c *RedisConsumer) decode(ctx context.Context, raw []redis.XMessage) []Message {
	messages := make([]Message, 0, len(raw))
	var dropped []string
	for _, msg := range raw {
		event, err := ParseCommentEvent(msg.Values)
		if err != nil {
			log.Printf("[Consumer] Dropping malformed event msgID=%s: %v", msg.ID, err)
			dropped = append(dropped, msg.ID)
			continue
		}
		messages = append(messages, Message{ID: msg.ID, Event: event})
	}
	if len(dropped) > 0 {
		if err := c.Ack(ctx, dropped...); err != nil {
			log.Printf("[Consumer] %v", err)
		}
	}
	return messages
}

func (c *RedisConsumer) Ack(ctx context.Context, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := c.client.XAck(ctx, c.stream, c.group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("xack %v: %w", messageIDs, err)
	}
	return nil
}

func (c *RedisConsumer) Pending(ctx context.Context) (int64, error) {
	info, err := c.client.XPending(ctx, c.stream, c.group).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending: %w", err)
	}
	return info.Count, nil
}
