package worker_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"talksphere/internal/queue"
	"talksphere/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockReconciler records which posts were reconciled.
type MockReconciler struct {
	mu     sync.Mutex
	calls  []string
	counts map[string]int
	err    error

	// failures makes the next n calls fail before err applies.
	failures int
}

func NewMockReconciler() *MockReconciler {
	return &MockReconciler{counts: make(map[string]int)}
}

func (m *MockReconciler) ReconcilePost(ctx context.Context, postID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, postID)
	if m.failures > 0 {
		m.failures--
		return 0, errors.New("connection reset")
	}
	if m.err != nil {
		return 0, m.err
	}
	return m.counts[postID], nil
}

func (m *MockReconciler) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockNotifier records notified comment ids.
type MockNotifier struct {
	mu       sync.Mutex
	comments []string
	err      error
}

func (m *MockNotifier) NotifyCommentCreated(ctx context.Context, postID, commentID, actorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments = append(m.comments, commentID)
	return m.err
}

func (m *MockNotifier) Comments() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.comments...)
}

// fakeConsumer serves preset batches and records acks.
type fakeConsumer struct {
	mu        sync.Mutex
	batches   [][]queue.Message
	claimable []queue.Message
	acked     []string
}

func (f *fakeConsumer) EnsureGroup(ctx context.Context) error { return nil }

func (f *fakeConsumer) Read(ctx context.Context, consumer string, count int64, block time.Duration) ([]queue.Message, error) {
	f.mu.Lock()
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return batch, nil
	}
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(block):
		return nil, nil
	}
}

func (f *fakeConsumer) ReadOwnPending(ctx context.Context, consumer string, count int64) ([]queue.Message, error) {
	return nil, nil
}

func (f *fakeConsumer) Claim(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]queue.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claimed := f.claimable
	f.claimable = nil
	return claimed, nil
}

func (f *fakeConsumer) Ack(ctx context.Context, ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, ids...)
	return nil
}

func (f *fakeConsumer) Pending(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeConsumer) Acked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

// =============================================================================
// Test Helpers
// =============================================================================

func startManager(t *testing.T, consumer queue.Consumer, handler worker.EventHandler) *worker.Manager {
	t.Helper()
	manager := worker.NewManager(consumer, handler, worker.ManagerConfig{
		WorkerCount:    1,
		BlockTimeout:   20 * time.Millisecond,
		RetryBackoff:   time.Millisecond,
		ClaimIdle:      10 * time.Millisecond,
		ConsumerPrefix: "test",
	})
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(manager.Stop)
	return manager
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func staleMsg(id, postID string) queue.Message {
	return queue.Message{ID: id, Event: queue.NewCommentCountStaleEvent(postID, "c-"+id, 1)}
}

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}

	// Use DB 1 for testing to avoid conflicts with dev data
	opts.DB = 1

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}

	client.FlushDB(ctx)

	return client
}

func cleanupTestRedis(client *redis.Client) {
	ctx := context.Background()
	client.FlushDB(ctx)
	client.Close()
}

// =============================================================================
// Handler Tests
// =============================================================================

func TestHandleEvent_CountStaleReconciles(t *testing.T) {
	reconciler := NewMockReconciler()
	reconciler.counts["post-1"] = 3
	handler := worker.NewHandler(reconciler, nil)

	event := queue.NewCommentCountStaleEvent("post-1", "comment-9", 2)
	if err := handler.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	calls := reconciler.Calls()
	if len(calls) != 1 || calls[0] != "post-1" {
		t.Errorf("reconcile calls = %v, want [post-1]", calls)
	}
}

func TestHandleEvent_AuditEventsDoNotReconcile(t *testing.T) {
	reconciler := NewMockReconciler()
	handler := worker.NewHandler(reconciler, nil)
	ctx := context.Background()

	events := []queue.CommentEvent{
		queue.NewCommentCreatedEvent("post-1", "c1", "u1"),
		queue.NewCommentDeletedEvent("post-1", "c1", "u1", 4),
		queue.NewPostDeletedEvent("post-1", "admin", 4),
	}
	for _, e := range events {
		if err := handler.HandleEvent(ctx, e); err != nil {
			t.Errorf("HandleEvent(%s) failed: %v", e.Type, err)
		}
	}

	if calls := reconciler.Calls(); len(calls) != 0 {
		t.Errorf("expected no reconcile calls, got %v", calls)
	}
}

func TestHandleEvent_CommentCreatedNotifies(t *testing.T) {
	notifier := &MockNotifier{}
	handler := worker.NewHandler(NewMockReconciler(), notifier)
	ctx := context.Background()

	if err := handler.HandleEvent(ctx, queue.NewCommentCreatedEvent("post-1", "c1", "u1")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if err := handler.HandleEvent(ctx, queue.NewCommentDeletedEvent("post-1", "c1", "u1", 1)); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}

	if got := notifier.Comments(); len(got) != 1 || got[0] != "c1" {
		t.Errorf("notified = %v, want [c1]", got)
	}

	notifier.err = errors.New("db down")
	if err := handler.HandleEvent(ctx, queue.NewCommentCreatedEvent("post-1", "c2", "u1")); err == nil {
		t.Error("expected notifier failure to surface")
	}
}

func TestInlinePublisher_DispatchesToHandler(t *testing.T) {
	reconciler := NewMockReconciler()
	publisher := worker.NewInlinePublisher(worker.NewHandler(reconciler, nil))

	id, err := publisher.Publish(context.Background(), queue.StreamComments,
		queue.NewCommentCountStaleEvent("post-7", "c1", 1))
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if id != "" {
		t.Errorf("message id = %q, want empty", id)
	}
	if calls := reconciler.Calls(); len(calls) != 1 || calls[0] != "post-7" {
		t.Errorf("reconcile calls = %v, want [post-7]", calls)
	}
}

func TestHandleEvent_Errors(t *testing.T) {
	tests := []struct {
		name  string
		event queue.CommentEvent
		err   error
	}{
		{
			name:  "unknown type",
			event: queue.CommentEvent{Type: "post_liked", PostID: "p"},
		},
		{
			name:  "stale without post",
			event: queue.CommentEvent{Type: queue.EventCommentCountStale},
		},
		{
			name:  "reconciler failure",
			event: queue.NewCommentCountStaleEvent("p", "c", 1),
			err:   errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reconciler := NewMockReconciler()
			reconciler.err = tt.err
			handler := worker.NewHandler(reconciler, nil)

			if err := handler.HandleEvent(context.Background(), tt.event); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestCommentEvent_RoundTripThroughStreamValues(t *testing.T) {
	event := queue.NewCommentDeletedEvent("post-1", "c1", "u1", 3)

	values, err := event.ToMap()
	if err != nil {
		t.Fatalf("ToMap failed: %v", err)
	}
	if values["type"] != queue.EventCommentDeleted {
		t.Errorf("type field = %v", values["type"])
	}

	parsed, err := queue.ParseCommentEvent(values)
	if err != nil {
		t.Fatalf("ParseCommentEvent failed: %v", err)
	}
	if parsed != event {
		t.Errorf("parsed = %+v, want %+v", parsed, event)
	}

	if _, err := queue.ParseCommentEvent(map[string]interface{}{"type": "x"}); err == nil {
		t.Error("expected error for missing data field")
	}
}

// =============================================================================
// Manager Tests
// =============================================================================

func TestManager_CoalescesStaleCountsPerPost(t *testing.T) {
	reconciler := NewMockReconciler()
	consumer := &fakeConsumer{batches: [][]queue.Message{{
		staleMsg("1-0", "post-1"),
		staleMsg("2-0", "post-1"),
		staleMsg("3-0", "post-2"),
		staleMsg("4-0", "post-1"),
	}}}
	startManager(t, consumer, worker.NewHandler(reconciler, nil))

	waitFor(t, func() bool { return len(consumer.Acked()) == 4 })

	calls := reconciler.Calls()
	if len(calls) != 2 || calls[0] != "post-1" || calls[1] != "post-2" {
		t.Errorf("reconcile calls = %v, want [post-1 post-2]", calls)
	}
}

func TestManager_RetriesStaleCountUntilItSucceeds(t *testing.T) {
	reconciler := NewMockReconciler()
	reconciler.failures = 2
	consumer := &fakeConsumer{batches: [][]queue.Message{{staleMsg("1-0", "post-1")}}}
	startManager(t, consumer, worker.NewHandler(reconciler, nil))

	waitFor(t, func() bool { return len(consumer.Acked()) == 1 })

	if calls := reconciler.Calls(); len(calls) != 3 {
		t.Errorf("reconcile attempts = %d, want 3", len(calls))
	}
}

func TestManager_GivesUpAfterMaxAttempts(t *testing.T) {
	reconciler := NewMockReconciler()
	reconciler.err = errors.New("db down")
	consumer := &fakeConsumer{batches: [][]queue.Message{{staleMsg("1-0", "post-1")}}}
	startManager(t, consumer, worker.NewHandler(reconciler, nil))

	waitFor(t, func() bool { return len(consumer.Acked()) == 1 })

	if calls := reconciler.Calls(); len(calls) != worker.DefaultMaxAttempts {
		t.Errorf("reconcile attempts = %d, want %d", len(calls), worker.DefaultMaxAttempts)
	}
}

func TestManager_AuditEventsAreNotRetried(t *testing.T) {
	handler := &countingHandler{err: errors.New("boom")}
	consumer := &fakeConsumer{batches: [][]queue.Message{{
		{ID: "1-0", Event: queue.CommentEvent{Type: "post_liked", PostID: "p"}},
	}}}
	startManager(t, consumer, handler)

	waitFor(t, func() bool { return len(consumer.Acked()) == 1 })

	if got := handler.Calls(); got != 1 {
		t.Errorf("handler calls = %d, want 1", got)
	}
}

func TestManager_ProcessesClaimedEvents(t *testing.T) {
	reconciler := NewMockReconciler()
	consumer := &fakeConsumer{claimable: []queue.Message{staleMsg("9-0", "post-9")}}
	startManager(t, consumer, worker.NewHandler(reconciler, nil))

	waitFor(t, func() bool { return len(consumer.Acked()) == 1 })

	if calls := reconciler.Calls(); len(calls) != 1 || calls[0] != "post-9" {
		t.Errorf("reconcile calls = %v, want [post-9]", calls)
	}
}

// countingHandler counts HandleEvent calls and always returns err.
type countingHandler struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (h *countingHandler) HandleEvent(ctx context.Context, event queue.CommentEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return h.err
}

func (h *countingHandler) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

// =============================================================================
// Integration Tests
// =============================================================================

// TestStreamToWorkerIntegration publishes a stale-count event to Redis and
// waits for a running manager to reconcile the post.
func TestStreamToWorkerIntegration(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()
	reconciler := NewMockReconciler()
	reconciler.counts["post-42"] = 7

	publisher := queue.NewPublisher(client)
	consumer := queue.NewConsumer(client, queue.StreamComments, queue.ConsumerGroupComments)
	handler := worker.NewHandler(reconciler, nil)

	manager := worker.NewManager(consumer, handler, worker.ManagerConfig{
		WorkerCount:  2,
		BatchSize:    10,
		BlockTimeout: 200 * time.Millisecond,
	})
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer manager.Stop()

	if _, err := publisher.Publish(ctx, queue.StreamComments, queue.NewCommentCreatedEvent("post-42", "c1", "u1")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if _, err := publisher.Publish(ctx, queue.StreamComments, queue.NewCommentCountStaleEvent("post-42", "c1", 2)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(reconciler.Calls()) > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	calls := reconciler.Calls()
	if len(calls) != 1 || calls[0] != "post-42" {
		t.Fatalf("reconcile calls = %v, want [post-42]", calls)
	}

	// Both messages should eventually be acknowledged.
	deadline = time.Now().Add(2 * time.Second)
	var pending int64 = -1
	for time.Now().Before(deadline) {
		pending, _ = consumer.Pending(ctx)
		if pending == 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if pending != 0 {
		t.Errorf("pending messages = %d, want 0", pending)
	}
}
