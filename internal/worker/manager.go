package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"talksphere/internal/queue"
)

const (
	DefaultWorkerCount  = 2
	DefaultBatchSize    = 10
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxAttempts bounds in-process retries of one event.
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = 500 * time.Millisecond

	// DefaultClaimIdle is how long an event may sit unacked with another
	// consumer before a live worker takes it over.
	DefaultClaimIdle = time.Minute
)

// ManagerConfig tunes the comment event workers. Zero values take defaults.
type ManagerConfig struct {
	WorkerCount  int
	BatchSize    int64
	BlockTimeout time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
	ClaimIdle    time.Duration

	// ConsumerPrefix names this process inside the group. It defaults to
	// the hostname so replicas do not share pending lists.
	ConsumerPrefix string
}

// Manager runs the workers that reconcile stale comment counts and fan out
// comment notifications.
type Manager struct {
	consumer queue.Consumer
	handler  EventHandler
	cfg      ManagerConfig

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// EventHandler processes one comment event. *Handler implements it.
type EventHandler interface {
	HandleEvent(ctx context.Context, event queue.CommentEvent) error
}

func NewManager(consumer queue.Consumer, handler EventHandler, cfg ManagerConfig) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.ClaimIdle <= 0 {
		cfg.ClaimIdle = DefaultClaimIdle
	}
	if cfg.ConsumerPrefix == "" {
		cfg.ConsumerPrefix = "talksphere"
		if host, err := os.Hostname(); err == nil && host != "" {
			cfg.ConsumerPrefix = host
		}
	}
	return &Manager{consumer: consumer, handler: handler, cfg: cfg}
}

// Start creates the consumer group and launches the workers.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx); err != nil {
		return err
	}

	for i := 1; i <= m.cfg.WorkerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(i, fmt.Sprintf("%s-%d", m.cfg.ConsumerPrefix, i))
	}
	log.Printf("[Manager] Started %d comment workers (prefix=%s)", m.cfg.WorkerCount, m.cfg.ConsumerPrefix)
	return nil
}

// Stop cancels the workers and waits for them. Events in flight stay
// pending and are picked up again after restart.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
	log.Printf("[Manager] All workers stopped")
}

func (m *Manager) runWorker(workerID int, consumer string) {
	defer m.wg.Done()

	m.drainOwnPending(workerID, consumer)

	var lastClaim time.Time
	for m.ctx.Err() == nil {
		if time.Since(lastClaim) >= m.cfg.ClaimIdle {
			lastClaim = time.Now()
			claimed, err := m.consumer.Claim(m.ctx, consumer, m.cfg.ClaimIdle, m.cfg.BatchSize)
			if err != nil && m.ctx.Err() == nil {
				log.Printf("[Worker-%d] Claim error: %v", workerID, err)
			}
			m.handleBatch(workerID, claimed)
		}

		messages, err := m.consumer.Read(m.ctx, consumer, m.cfg.BatchSize, m.cfg.BlockTimeout)
		if err != nil {
			if m.ctx.Err() != nil {
				break
			}
			log.Printf("[Worker-%d] Read error: %v", workerID, err)
			m.sleep(time.Second)
			continue
		}
		m.handleBatch(workerID, messages)
	}
	log.Printf("[Worker-%d] Shutting down", workerID)
}

// drainOwnPending replays events this consumer name received before a
// restart but never acked.
func (m *Manager) drainOwnPending(workerID int, consumer string) {
	for m.ctx.Err() == nil {
		messages, err := m.consumer.ReadOwnPending(m.ctx, consumer, m.cfg.BatchSize)
		if err != nil {
			log.Printf("[Worker-%d] Pending read error: %v", workerID, err)
			return
		}
		if len(messages) == 0 {
			return
		}
		log.Printf("[Worker-%d] Replaying %d pending events", workerID, len(messages))
		if !m.handleBatch(workerID, messages) {
			return
		}
	}
}

// handleBatch processes and acks a batch. Stale-count events for the same
// post collapse into one recount, since a recount after reading the batch
// covers every event in it. It reports false when shutdown interrupted the
// batch and some events were left pending.
func (m *Manager) handleBatch(workerID int, messages []queue.Message) bool {
	recounted := make(map[string]bool)

	for _, msg := range messages {
		event := msg.Event
		if event.Type == queue.EventCommentCountStale && recounted[event.PostID] {
			log.Printf("[Worker-%d] Coalesced stale count for post=%s msgID=%s", workerID, event.PostID, msg.ID)
			m.ack(workerID, msg.ID)
			continue
		}

		err := m.process(workerID, msg)
		if err != nil && m.ctx.Err() != nil {
			// Leave it pending for the next run.
			return false
		}
		if err != nil {
			m.giveUp(workerID, msg, err)
		}
		if event.Type == queue.EventCommentCountStale {
			recounted[event.PostID] = true
		}
		m.ack(workerID, msg.ID)
	}
	return true
}

// process runs the handler, retrying event types whose handlers are safe to
// repeat.
func (m *Manager) process(workerID int, msg queue.Message) error {
	attempts := 1
	if retryable(msg.Event.Type) {
		attempts = m.cfg.MaxAttempts
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = m.handler.HandleEvent(m.ctx, msg.Event); err == nil {
			return nil
		}
		if attempt < attempts {
			log.Printf("[Worker-%d] %s msgID=%s attempt %d/%d failed: %v",
				workerID, msg.Event.Type, msg.ID, attempt, attempts, err)
			if !m.sleep(m.cfg.RetryBackoff * time.Duration(attempt)) {
				return err
			}
		}
	}
	return err
}

// retryable reports whether an event's handler is idempotent: a recount
// converges to the same value and a failed notification was never stored.
func retryable(eventType string) bool {
	switch eventType {
	case queue.EventCommentCountStale, queue.EventCommentCreated:
		return true
	default:
		return false
	}
}

func (m *Manager) giveUp(workerID int, msg queue.Message, err error) {
	if msg.Event.Type == queue.EventCommentCountStale {
		log.Printf("[Worker-%d] Giving up on stale count for post=%s, run cmd/reconcile -post %s: %v",
			workerID, msg.Event.PostID, msg.Event.PostID, err)
		return
	}
	log.Printf("[Worker-%d] Dropping %s msgID=%s: %v", workerID, msg.Event.Type, msg.ID, err)
}

func (m *Manager) ack(workerID int, id string) {
	if err := m.consumer.Ack(m.ctx, id); err != nil {
		log.Printf("[Worker-%d] Ack error: %v", workerID, err)
	}
}

// sleep waits for d and reports false if the manager stopped meanwhile.
func (m *Manager) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-m.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
