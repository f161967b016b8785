package memory

import (
	"context"
	"testing"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

func enqueue(t *testing.T, store *Store, msg domain.OutboxMessage) domain.OutboxMessage {
	t.Helper()

	var saved domain.OutboxMessage
	err := store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		var err error
		saved, err = uow.Outbox().Enqueue(ctx, msg)
		return err
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	return saved
}

func TestOutboxRepository_EnqueueAndPull(t *testing.T) {
	store := NewStore()
	repo := NewOutboxRepository(store)

	saved := enqueue(t, store, domain.OutboxMessage{
		AggregateType: domain.AggregateCart,
		AggregateID:   "cart-1",
		EventType:     domain.EventCartOrdered,
		Payload:       []byte(`{"cart_id":"cart-1"}`),
	})
	if saved.ID == "" {
		t.Fatal("expected generated id")
	}
	second := enqueue(t, store, domain.OutboxMessage{AggregateType: domain.AggregateStore, EventType: domain.EventStoreCreated})

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending messages, got %d", len(pending))
	}
	if pending[0].ID != saved.ID || pending[1].ID != second.ID {
		t.Fatalf("expected insertion order, got %s, %s", pending[0].ID, pending[1].ID)
	}

	limited, err := repo.PullPending(1)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != saved.ID {
		t.Fatalf("expected only the oldest message, got %+v", limited)
	}
}

func TestOutboxRepository_MarkSentAndFailed(t *testing.T) {
	store := NewStore()
	repo := NewOutboxRepository(store)

	saved := enqueue(t, store, domain.OutboxMessage{AggregateType: domain.AggregateCart})
	failed := enqueue(t, store, domain.OutboxMessage{AggregateType: domain.AggregateCart})

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 2 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := repo.MarkSent(saved.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	if err := repo.MarkFailed(failed.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := repo.MarkFailed("missing"); err == nil {
		t.Fatal("expected error for missing record")
	}

	if pending := repo.AllPending(); len(pending) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(pending))
	}

	stats, err = repo.Stats()
	if err != nil {
		t.Fatalf("stats after marks failed: %v", err)
	}
	if stats.PendingCount != 0 || stats.FailedCount != 1 || !stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats after marks: %+v", stats)
	}
}
