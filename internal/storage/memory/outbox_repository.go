package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

// outboxWriter пишет события в outbox в рамках транзакции WithinTx.
type outboxWriter struct {
	st *state
}

// Enqueue сохраняет событие со статусом `pending` и возвращает его идентификатор.
func (w outboxWriter) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.st.outbox[msg.ID] = &outboxRecord{
		seq:       w.st.nextSeq(),
		msg:       msg,
		status:    domain.OutboxStatusPending,
		createdAt: now,
		updatedAt: now,
	}
	return msg, nil
}

// outboxRepositoryInMemory: сторона воркера поверх того же Store.
type outboxRepositoryInMemory struct {
	store *Store
}

// NewOutboxRepository создаёт in-memory реализацию outbox для воркера.
func NewOutboxRepository(store *Store) *outboxRepositoryInMemory {
	return &outboxRepositoryInMemory{store: store}
}

// PullPending возвращает до limit сообщений со статусом `pending` в порядке записи.
func (r *outboxRepositoryInMemory) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var pending []*outboxRecord
	r.store.read(func(st *state) {
		for _, rec := range st.outbox {
			if rec.status == domain.OutboxStatusPending {
				copied := *rec
				pending = append(pending, &copied)
			}
		}
	})
	sort.Slice(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })

	if len(pending) > limit {
		pending = pending[:limit]
	}
	result := make([]domain.OutboxMessage, 0, len(pending))
	for _, rec := range pending {
		result = append(result, rec.msg)
	}
	return result, nil
}

// Stats возвращает размер backlog, время самого старого pending-сообщения и число failed.
func (r *outboxRepositoryInMemory) Stats() (domain.OutboxStats, error) {
	var stats domain.OutboxStats
	r.store.read(func(st *state) {
		for _, rec := range st.outbox {
			switch rec.status {
			case domain.OutboxStatusFailed:
				stats.FailedCount++
			case domain.OutboxStatusPending:
				stats.PendingCount++
				if stats.OldestPendingAt.IsZero() || rec.createdAt.Before(stats.OldestPendingAt) {
					stats.OldestPendingAt = rec.createdAt
				}
			}
		}
	})
	return stats, nil
}

// MarkSent обновляет статус события после успешной публикации.
func (r *outboxRepositoryInMemory) MarkSent(id string) error {
	return r.markStatus(id, domain.OutboxStatusSent)
}

// MarkFailed фиксирует ошибку публикации.
func (r *outboxRepositoryInMemory) MarkFailed(id string) error {
	return r.markStatus(id, domain.OutboxStatusFailed)
}

func (r *outboxRepositoryInMemory) markStatus(id string, status domain.OutboxStatus) error {
	return r.store.write(func(st *state) error {
		rec, ok := st.outbox[id]
		if !ok {
			return domain.ErrOutboxPublish
		}
		rec.status = status
		rec.attemptCnt++
		rec.updatedAt = time.Now().UTC()
		return nil
	})
}

// AllPending возвращает копию всех сообщений со статусом `pending` (используется в тестах).
func (r *outboxRepositoryInMemory) AllPending() []domain.OutboxMessage {
	var total int
	r.store.read(func(st *state) { total = len(st.outbox) })
	if total == 0 {
		return nil
	}
	result, _ := r.PullPending(total)
	return result
}

var (
	_ domain.OutboxWriter     = outboxWriter{}
	_ domain.OutboxRepository = (*outboxRepositoryInMemory)(nil)
)
