package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

// idempotencyRepository хранит ключи вне транзакций корзин: запись о запросе
// должна пережить откат бизнес-транзакции.
type idempotencyRepository struct {
	mu   sync.RWMutex
	keys map[string]domain.IdempotencyRecord
	now  func() time.Time
}

// NewIdempotencyRepository создаёт in-memory реализацию IdempotencyRepository.
func NewIdempotencyRepository() domain.IdempotencyRepository {
	return &idempotencyRepository{
		keys: make(map[string]domain.IdempotencyRecord),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateProcessing занимает ключ. Истёкший, но ещё не удалённый ключ занимается заново.
func (r *idempotencyRepository) CreateProcessing(_ context.Context, key, requestHash string, ttlAt time.Time) (domain.IdempotencyRecord, error) {
	now := r.now()
	record, err := domain.NewIdempotencyRecord(key, requestHash, ttlAt, now)
	if err != nil {
		return domain.IdempotencyRecord{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.keys[record.Key]; ok && !existing.Expired(now) {
		return copyRecord(existing), existing.ConflictWith(record.RequestHash)
	}
	r.keys[record.Key] = record
	return copyRecord(record), nil
}

func (r *idempotencyRepository) Get(_ context.Context, key string) (domain.IdempotencyRecord, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.keys[key]
	if !ok {
		return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyNotFound
	}
	return copyRecord(record), nil
}

func (r *idempotencyRepository) MarkDone(_ context.Context, key string, responseBody []byte, statusCode int) error {
	return r.complete(key, domain.IdempotencyStatusDone, responseBody, statusCode)
}

func (r *idempotencyRepository) MarkFailed(_ context.Context, key string, responseBody []byte, statusCode int) error {
	return r.complete(key, domain.IdempotencyStatusFailed, responseBody, statusCode)
}

// Release удаляет ключ, пока он в статусе processing. Завершённые записи не трогает.
func (r *idempotencyRepository) Release(_ context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrIdempotencyKeyRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.keys[key]
	if !ok || record.Status != domain.IdempotencyStatusProcessing {
		return domain.ErrIdempotencyKeyNotFound
	}
	delete(r.keys, key)
	return nil
}

// DeleteExpired удаляет до limit истёкших ключей, начиная с самых старых (limit<=0 = все).
func (r *idempotencyRepository) DeleteExpired(_ context.Context, before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []domain.IdempotencyRecord
	for _, record := range r.keys {
		if record.Expired(before) {
			expired = append(expired, record)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].TTLAt.Before(expired[j].TTLAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	for _, record := range expired {
		delete(r.keys, record.Key)
	}
	return len(expired), nil
}

func (r *idempotencyRepository) complete(key string, status domain.IdempotencyStatus, responseBody []byte, statusCode int) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrIdempotencyKeyRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.keys[key]
	if !ok {
		return domain.ErrIdempotencyKeyNotFound
	}
	record.Status = status
	record.ResponseBody = append([]byte(nil), responseBody...)
	record.StatusCode = statusCode
	record.UpdatedAt = r.now()
	r.keys[key] = record
	return nil
}

func copyRecord(src domain.IdempotencyRecord) domain.IdempotencyRecord {
	dst := src
	dst.ResponseBody = append([]byte(nil), src.ResponseBody...)
	return dst
}

var _ domain.IdempotencyRepository = (*idempotencyRepository)(nil)
