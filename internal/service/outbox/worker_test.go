package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
	"github.com/vladislavdragonenkov/foodcart/internal/metrics"
	"github.com/vladislavdragonenkov/foodcart/internal/storage/memory"
)

func cartOrderedMessage(id string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            id,
		AggregateType: domain.AggregateCart,
		AggregateID:   "cart-" + id,
		EventType:     domain.EventCartOrdered,
		Payload:       []byte(`{"cart_id":"cart-` + id + `","total_price_minor":1500}`),
	}
}

func TestWorker_ProcessOnce_MarkSent(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{cartOrderedMessage("msg-1")}}
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMaxAttempts(3))

	if sent := worker.ProcessOnce(context.Background()); sent != 1 {
		t.Fatalf("expected 1 sent event, got %d", sent)
	}
	if got := len(repo.sentIDs); got != 1 || repo.sentIDs[0] != "msg-1" {
		t.Fatalf("expected msg-1 marked sent, got %v", repo.sentIDs)
	}
	if got := len(repo.failedIDs); got != 0 {
		t.Fatalf("expected 0 failed marks, got %d", got)
	}
	if got := publisher.calls(); got != 1 {
		t.Fatalf("expected 1 publish call, got %d", got)
	}
}

func TestWorker_ProcessOnce_MarkFailedAndDLQAfterRetries(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{cartOrderedMessage("msg-2")}}
	publisher := &stubPublisher{err: errors.New("broker unavailable")}
	dlqPublisher := &stubPublisher{}
	failedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	worker := NewWorker(
		repo,
		publisher,
		WithDLQPublisher(dlqPublisher),
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
		WithClock(func() time.Time { return failedAt }),
	)

	if sent := worker.ProcessOnce(context.Background()); sent != 0 {
		t.Fatalf("expected 0 sent events, got %d", sent)
	}
	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if got := len(repo.sentIDs); got != 0 {
		t.Fatalf("expected 0 sent marks, got %d", got)
	}
	if got := len(repo.failedIDs); got != 1 || repo.failedIDs[0] != "msg-2" {
		t.Fatalf("expected msg-2 marked failed, got %v", repo.failedIDs)
	}

	published := dlqPublisher.published()
	if len(published) != 1 {
		t.Fatalf("expected 1 DLQ publish, got %d", len(published))
	}
	var letter DeadLetter
	if err := json.Unmarshal(published[0].Payload, &letter); err != nil {
		t.Fatalf("decode dead letter: %v", err)
	}
	if letter.OutboxID != "msg-2" || letter.EventType != domain.EventCartOrdered || letter.Attempts != 3 {
		t.Fatalf("unexpected dead letter: %+v", letter)
	}
	if !letter.DLQPublishedAt.Equal(failedAt) {
		t.Fatalf("expected dlq timestamp %s, got %s", failedAt, letter.DLQPublishedAt)
	}
	if string(letter.Payload) != `{"cart_id":"cart-msg-2","total_price_minor":1500}` {
		t.Fatalf("original payload must be embedded as JSON, got %s", letter.Payload)
	}
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{cartOrderedMessage("msg-3")}}
	publisher := &stubPublisher{
		sequenceErrors: []error{
			errors.New("attempt 1"),
			errors.New("attempt 2"),
			nil,
		},
	}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMaxAttempts(3))
	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", got)
	}
	if got := len(repo.sentIDs); got != 1 {
		t.Fatalf("expected 1 sent mark, got %d", got)
	}
	if got := len(repo.failedIDs); got != 0 {
		t.Fatalf("expected 0 failed marks, got %d", got)
	}
}

func TestWorker_ProcessOnce_RecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	workerMetrics := metrics.NewWorkerMetricsWithRegisterer(reg)
	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{cartOrderedMessage("msg-4")}}
	publisher := &stubPublisher{sequenceErrors: []error{errors.New("attempt 1"), nil}}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMetrics(workerMetrics))
	worker.ProcessOnce(context.Background())

	expected := `
# HELP foodcart_outbox_publish_attempts_total Total number of outbox publish attempts grouped by event type and result.
# TYPE foodcart_outbox_publish_attempts_total counter
foodcart_outbox_publish_attempts_total{event_type="cart.ordered",result="retry_error"} 1
foodcart_outbox_publish_attempts_total{event_type="cart.ordered",result="sent"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "foodcart_outbox_publish_attempts_total"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestWorker_RetryBackoff(t *testing.T) {
	t.Parallel()

	worker := NewWorker(&stubOutboxRepo{}, &stubPublisher{}, WithRetryBaseDelay(10*time.Millisecond))
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	for i, expected := range want {
		if got := worker.retryBackoff(i + 1); got != expected {
			t.Fatalf("attempt %d: expected %s, got %s", i+1, expected, got)
		}
	}

	noDelay := NewWorker(&stubOutboxRepo{}, &stubPublisher{}, WithRetryBaseDelay(0))
	if got := noDelay.retryBackoff(5); got != 0 {
		t.Fatalf("expected no delay, got %s", got)
	}
}

func TestWorker_DrainsMemoryOutbox(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	err := store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		for _, id := range []string{"a", "b", "c"} {
			if _, err := uow.Outbox().Enqueue(ctx, cartOrderedMessage(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	repo := memory.NewOutboxRepository(store)
	publisher := &stubPublisher{}
	worker := NewWorker(repo, publisher, WithBatchSize(2), WithRetryBaseDelay(0))

	if sent := worker.ProcessOnce(context.Background()); sent != 2 {
		t.Fatalf("expected first batch of 2, got %d", sent)
	}
	if sent := worker.ProcessOnce(context.Background()); sent != 1 {
		t.Fatalf("expected second batch of 1, got %d", sent)
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("expected empty backlog, got %d", stats.PendingCount)
	}

	ids := make([]string, 0, 3)
	for _, msg := range publisher.published() {
		ids = append(ids, msg.ID)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Fatalf("expected events in enqueue order, got %v", ids)
	}
}

type stubOutboxRepo struct {
	pending   []domain.OutboxMessage
	sentIDs   []string
	failedIDs []string
}

func (s *stubOutboxRepo) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 || limit >= len(s.pending) {
		return append([]domain.OutboxMessage(nil), s.pending...), nil
	}
	return append([]domain.OutboxMessage(nil), s.pending[:limit]...), nil
}

func (s *stubOutboxRepo) Stats() (domain.OutboxStats, error) {
	stats := domain.OutboxStats{
		PendingCount: len(s.pending),
	}
	if len(s.pending) > 0 {
		stats.OldestPendingAt = time.Now().UTC().Add(-time.Second)
	}
	return stats, nil
}

func (s *stubOutboxRepo) MarkSent(id string) error {
	s.sentIDs = append(s.sentIDs, id)
	return nil
}

func (s *stubOutboxRepo) MarkFailed(id string) error {
	s.failedIDs = append(s.failedIDs, id)
	return nil
}

type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	callCount      int
	sent           []domain.OutboxMessage
}

func (s *stubPublisher) Publish(msg domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	err := s.err
	if len(s.sequenceErrors) > 0 {
		err = s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
	}
	if err == nil {
		s.sent = append(s.sent, msg)
	}
	return err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

func (s *stubPublisher) published() []domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxMessage(nil), s.sent...)
}

var _ domain.OutboxRepository = (*stubOutboxRepo)(nil)
var _ domain.OutboxPublisher = (*stubPublisher)(nil)

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{}
	publisher := &stubPublisher{}

	worker := NewWorker(
		repo,
		publisher,
		WithPollInterval(5*time.Millisecond),
		WithRetryBaseDelay(0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
