package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

const defaultOutboxPullLimit = 100

// outboxWriter пишет события в outbox_messages той же транзакцией, что и изменения корзины или магазина.
type outboxWriter struct {
	tx *sql.Tx
}

func (w outboxWriter) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Payload == nil {
		msg.Payload = []byte{}
	}

	const query = `
		INSERT INTO outbox_messages (id, aggregate_type, aggregate_id, event_type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	if _, err := w.tx.ExecContext(ctx, query,
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload,
		domain.OutboxStatusPending, time.Now().UTC(),
	); err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue %s event for %s %s: %w", msg.EventType, msg.AggregateType, msg.AggregateID, err)
	}
	return msg, nil
}

// outboxRepository: сторона outbox-воркера, работает вне транзакций сервисов.
type outboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository создаёт PostgreSQL-реализацию OutboxRepository для воркера.
func NewOutboxRepository(store *Store) domain.OutboxRepository {
	return &outboxRepository{db: store.DB()}
}

func (r *outboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultOutboxPullLimit
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload
		FROM outbox_messages
		WHERE status = $1
		ORDER BY created_at, id
		LIMIT $2`, domain.OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.OutboxMessage
	for rows.Next() {
		var m domain.OutboxMessage
		if err := rows.Scan(&m.ID, &m.AggregateType, &m.AggregateID, &m.EventType, &m.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox messages: %w", err)
	}
	return messages, nil
}

// Stats считает pending и failed одним запросом.
func (r *outboxRepository) Stats() (domain.OutboxStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = $1),
			MIN(created_at) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2)
		FROM outbox_messages
		WHERE status IN ($1, $2)`,
		domain.OutboxStatusPending, domain.OutboxStatusFailed,
	).Scan(&stats.PendingCount, &oldest, &stats.FailedCount)
	if err != nil {
		return domain.OutboxStats{}, fmt.Errorf("query outbox stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time.UTC()
	}
	return stats, nil
}

func (r *outboxRepository) MarkSent(id string) error {
	return r.finish(id, domain.OutboxStatusSent)
}

func (r *outboxRepository) MarkFailed(id string) error {
	return r.finish(id, domain.OutboxStatusFailed)
}

// finish переводит запись в конечный статус. Неизвестный id даёт ErrOutboxPublish.
func (r *outboxRepository) finish(id string, status domain.OutboxStatus) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE outbox_messages
		SET status = $2, attempt_count = attempt_count + 1, updated_at = $3
		WHERE id = $1`, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark outbox message %s as %s: %w", id, status, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected for outbox message %s: %w", id, err)
	} else if n == 0 {
		return fmt.Errorf("%w: outbox message %s not found", domain.ErrOutboxPublish, id)
	}
	return nil
}

var (
	_ domain.OutboxWriter     = outboxWriter{}
	_ domain.OutboxRepository = (*outboxRepository)(nil)
)
