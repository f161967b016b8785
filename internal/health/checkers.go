package health

import (
	"context"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

// Pinger: хранилище, которое умеет проверять соединение.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewStorageChecker проверяет доступность хранилища.
func NewStorageChecker(name string, pinger Pinger) *SimpleChecker {
	return NewSimpleChecker(name, pinger.Ping)
}

// OutboxStatsReader отдаёт состояние backlog transactional outbox.
type OutboxStatsReader interface {
	Stats() (domain.OutboxStats, error)
}

// OutboxBacklogChecker переводит сервис в degraded, когда события копятся
// в outbox быстрее, чем воркер успевает их публиковать.
type OutboxBacklogChecker struct {
	stats      OutboxStatsReader
	maxPending int
	maxAge     time.Duration
	now        func() time.Time
}

// NewOutboxBacklogChecker создаёт проверку backlog. Нулевые пороги отключают
// соответствующее условие.
func NewOutboxBacklogChecker(stats OutboxStatsReader, maxPending int, maxAge time.Duration) *OutboxBacklogChecker {
	return &OutboxBacklogChecker{
		stats:      stats,
		maxPending: maxPending,
		maxAge:     maxAge,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (c *OutboxBacklogChecker) Check(ctx context.Context) Check {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return newCheck("outbox", start, err)
	}

	stats, err := c.stats.Stats()
	if err != nil {
		return newCheck("outbox", start, fmt.Errorf("outbox stats: %w", err))
	}

	check := newCheck("outbox", start, nil)
	if c.maxPending > 0 && stats.PendingCount > c.maxPending {
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("pending=%d exceeds %d", stats.PendingCount, c.maxPending)
		return check
	}
	if c.maxAge > 0 && !stats.OldestPendingAt.IsZero() {
		if age := c.now().Sub(stats.OldestPendingAt); age > c.maxAge {
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("oldest pending event is %s old", age.Truncate(time.Second))
			return check
		}
	}
	if stats.FailedCount > 0 {
		check.Message = fmt.Sprintf("failed=%d events sent to DLQ", stats.FailedCount)
	}
	return check
}
