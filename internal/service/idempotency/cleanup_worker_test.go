package idempotency

import (
	"context"
	"errors"
	"fmt"
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

var _ domain.IdempotencyRepository = (*stubCleanupRepo)(nil)

func TestCleanupWorker_DeleteExpired_Batches(t *testing.T) {
	t.Parallel()

	repo := &stubCleanupRepo{
		deleteResults: []int{2, 2, 1},
	}

	worker := NewCleanupWorker(repo, WithBatchSize(2))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}

	if deleted != 5 {
		t.Fatalf("unexpected deleted total: got=%d want=5", deleted)
	}

	if calls := repo.calls(); calls != 3 {
		t.Fatalf("unexpected delete calls: got=%d want=3", calls)
	}
}

func TestCleanupWorker_DeleteExpired_Error(t *testing.T) {
	t.Parallel()

	repo := &stubCleanupRepo{
		deleteErrors: []error{errors.New("boom")},
	}

	worker := NewCleanupWorker(repo, WithBatchSize(10))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err == nil {
		t.Fatal("expected DeleteExpired error")
	}
	if deleted != 0 {
		t.Fatalf("unexpected deleted total: got=%d want=0", deleted)
	}
}

func TestCleanupWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := &stubCleanupRepo{
		deleteResults: []int{0, 0, 0},
	}

	worker := NewCleanupWorker(
		repo,
		WithInterval(5*time.Millisecond),
		WithBatchSize(10),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}

	if calls := repo.calls(); calls == 0 {
		t.Fatal("expected cleanup to be called at least once")
	}
}

func TestCleanupWorker_DeletesExpiredMemoryKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.NewIdempotencyRepository()
	for i, ttl := range []time.Duration{-2 * time.Hour, -time.Hour, -time.Minute, time.Hour} {
		key := fmt.Sprintf("user-1:key-%d", i)
		if _, err := repo.CreateProcessing(ctx, key, "hash", now.Add(ttl)); err != nil {
			t.Fatalf("create %s: %v", key, err)
		}
	}

	reg := prometheus.NewRegistry()
	workerMetrics := metrics.NewWorkerMetricsWithRegisterer(reg)
	worker := NewCleanupWorker(repo, WithBatchSize(2), WithMetrics(workerMetrics), WithClock(func() time.Time { return now }))

	worker.cleanup(ctx)

	if _, err := repo.Get(ctx, "user-1:key-3"); err != nil {
		t.Fatalf("live key must survive cleanup: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := repo.Get(ctx, fmt.Sprintf("user-1:key-%d", i)); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
			t.Fatalf("expected key-%d to be deleted, got %v", i, err)
		}
	}

	expected := `
# HELP foodcart_idempotency_cleanup_deleted_total Total number of deleted expired idempotency records.
# TYPE foodcart_idempotency_cleanup_deleted_total counter
foodcart_idempotency_cleanup_deleted_total 3
# HELP foodcart_idempotency_cleanup_last_deleted Number of deleted records during the last cleanup run.
# TYPE foodcart_idempotency_cleanup_last_deleted gauge
foodcart_idempotency_cleanup_last_deleted 3
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"foodcart_idempotency_cleanup_deleted_total", "foodcart_idempotency_cleanup_last_deleted"); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

type stubCleanupRepo struct {
	mu sync.Mutex

	deleteResults []int
	deleteErrors  []error
	callCount     int
}

func (s *stubCleanupRepo) CreateProcessing(context.Context, string, string, time.Time) (domain.IdempotencyRecord, error) {
	panic("not implemented")
}

func (s *stubCleanupRepo) Get(context.Context, string) (domain.IdempotencyRecord, error) {
	panic("not implemented")
}

func (s *stubCleanupRepo) MarkDone(context.Context, string, []byte, int) error {
	panic("not implemented")
}

func (s *stubCleanupRepo) MarkFailed(context.Context, string, []byte, int) error {
	panic("not implemented")
}

func (s *stubCleanupRepo) Release(context.Context, string) error {
	return nil
}

func (s *stubCleanupRepo) DeleteExpired(_ context.Context, _ time.Time, _ int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++

	if len(s.deleteErrors) > 0 {
		err := s.deleteErrors[0]
		s.deleteErrors = s.deleteErrors[1:]
		if err != nil {
			return 0, err
		}
	}

	if len(s.deleteResults) == 0 {
		return 0, nil
	}
	result := s.deleteResults[0]
	s.deleteResults = s.deleteResults[1:]
	return result, nil
}

func (s *stubCleanupRepo) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}
