package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
	"github.com/vladislavdragonenkov/foodcart/internal/storage/memory"
)

type stubStats struct {
	stats domain.OutboxStats
	err   error
}

func (s stubStats) Stats() (domain.OutboxStats, error) { return s.stats, s.err }

func TestOutboxBacklogChecker(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		stats      stubStats
		maxPending int
		maxAge     time.Duration
		want       Status
		wantMsg    string
	}{
		{name: "empty backlog", stats: stubStats{}, maxPending: 10, maxAge: time.Minute, want: StatusHealthy},
		{name: "within limits", stats: stubStats{stats: domain.OutboxStats{PendingCount: 3, OldestPendingAt: now.Add(-10 * time.Second)}}, maxPending: 10, maxAge: time.Minute, want: StatusHealthy},
		{name: "too many pending", stats: stubStats{stats: domain.OutboxStats{PendingCount: 11}}, maxPending: 10, want: StatusDegraded},
		{name: "too old", stats: stubStats{stats: domain.OutboxStats{PendingCount: 1, OldestPendingAt: now.Add(-2 * time.Minute)}}, maxPending: 10, maxAge: time.Minute, want: StatusDegraded},
		{name: "limits disabled", stats: stubStats{stats: domain.OutboxStats{PendingCount: 1000, OldestPendingAt: now.Add(-time.Hour)}}, want: StatusHealthy},
		{name: "failed events keep healthy", stats: stubStats{stats: domain.OutboxStats{FailedCount: 2}}, maxPending: 10, want: StatusHealthy, wantMsg: "failed=2"},
		{name: "stats error", stats: stubStats{err: errors.New("db down")}, maxPending: 10, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewOutboxBacklogChecker(tt.stats, tt.maxPending, tt.maxAge)
			checker.now = func() time.Time { return now }

			check := checker.Check(context.Background())
			assert.Equal(t, tt.want, check.Status)
			assert.Equal(t, "outbox", check.Name)
			if tt.want != StatusHealthy {
				assert.NotEmpty(t, check.Message)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, check.Message, tt.wantMsg)
			}
		})
	}
}

func TestOutboxBacklogChecker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	check := NewOutboxBacklogChecker(stubStats{}, 1, 0).Check(ctx)
	assert.Equal(t, StatusUnhealthy, check.Status)
}

func TestOutboxBacklogChecker_MemoryOutbox(t *testing.T) {
	store := memory.NewStore()
	err := store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		for i := 0; i < 3; i++ {
			if _, err := uow.Outbox().Enqueue(ctx, domain.OutboxMessage{
				AggregateType: domain.AggregateStore,
				AggregateID:   "store-1",
				EventType:     domain.EventStoreCreated,
				Payload:       []byte(`{}`),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	checker := NewOutboxBacklogChecker(memory.NewOutboxRepository(store), 2, 0)
	assert.Equal(t, StatusDegraded, checker.Check(context.Background()).Status)
}

func TestStorageChecker(t *testing.T) {
	check := NewStorageChecker("storage", memory.NewStore()).Check(context.Background())
	assert.Equal(t, StatusHealthy, check.Status)
	assert.Equal(t, "storage", check.Name)
}
