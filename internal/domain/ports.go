package domain

import (
	"context"
	"time"
)

// UserRepository: источник пользователей (lookup-сервис findUser).
type UserRepository interface {
	// Get возвращает пользователя или ErrUserNotFound.
	Get(ctx context.Context, id string) (User, error)
	Create(ctx context.Context, user User) error
}

// ProductRepository: источник товаров (lookup-сервис findProduct).
type ProductRepository interface {
	// Get возвращает товар или ErrProductNotFound.
	Get(ctx context.Context, id string) (Product, error)
	Create(ctx context.Context, product Product) error
}

// StoreRepository описывает требования к хранилищу магазинов.
type StoreRepository interface {
	// Get возвращает магазин или ErrStoreNotFound.
	Get(ctx context.Context, id string) (Store, error)
	// GetByOwner возвращает магазин пользователя или ErrStoreNotFound.
	GetByOwner(ctx context.Context, ownerID string) (Store, error)
	// List возвращает все магазины в порядке создания.
	List(ctx context.Context) ([]Store, error)
	// Create сохраняет магазин. ErrStoreAlreadyExists, если у владельца уже есть магазин.
	Create(ctx context.Context, store Store) error
	// Save применяет изменения с учётом optimistic locking.
	Save(ctx context.Context, store Store) error
	Delete(ctx context.Context, id string) error
	// HasOpenCarts сообщает, есть ли у магазина открытые корзины. Оформленные
	// корзины остаются историей заказов и удалению магазина не мешают.
	HasOpenCarts(ctx context.Context, storeID string) (bool, error)
}

// CartRepository описывает требования к хранилищу корзин.
type CartRepository interface {
	// Get возвращает корзину с позициями или ErrCartNotFound.
	// Внутри транзакции строка корзины блокируется до её завершения.
	Get(ctx context.Context, id string) (Cart, error)
	// FindOpenByUser возвращает открытую корзину пользователя или ErrCartNotFound.
	FindOpenByUser(ctx context.Context, userID string) (Cart, error)
	// ListByUser возвращает все корзины пользователя в порядке создания.
	ListByUser(ctx context.Context, userID string) ([]Cart, error)
	// Create сохраняет новую корзину без позиций.
	Create(ctx context.Context, cart Cart) error
	// Save обновляет поля корзины (не позиции) с проверкой версии.
	Save(ctx context.Context, cart Cart) error
	// Delete удаляет корзину вместе с позициями.
	Delete(ctx context.Context, id string) error
}

// CartProductRepository описывает хранилище позиций корзины.
type CartProductRepository interface {
	// Find возвращает позицию (cart, product) или ErrCartProductNotFound.
	Find(ctx context.Context, cartID, productID string) (CartProduct, error)
	// Create сохраняет позицию. ErrCartProductDuplicate, если пара уже есть.
	Create(ctx context.Context, item CartProduct) error
	Save(ctx context.Context, item CartProduct) error
	Delete(ctx context.Context, id string) error
}

// OutboxWriter пишет события в transactional outbox в рамках текущей транзакции.
type OutboxWriter interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
}

// UnitOfWork: набор репозиториев, привязанных к одной транзакции.
type UnitOfWork interface {
	Users() UserRepository
	Products() ProductRepository
	Stores() StoreRepository
	Carts() CartRepository
	CartProducts() CartProductRepository
	Outbox() OutboxWriter
}

// Transactor выполняет fn атомарно: все изменения фиксируются, если fn вернула nil,
// и откатываются в противном случае.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository: сторона воркера: выборка и отметка отправленных событий.
type OutboxRepository interface {
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, statusCode int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, statusCode int) error
	// Release освобождает ключ в статусе processing, чтобы повтор выполнил запрос заново.
	Release(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStatus: жизненный цикл записи outbox.
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
	// OutboxStatusFailed: попытки исчерпаны, событие ушло в DLQ.
	OutboxStatusFailed OutboxStatus = "failed"
)

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
	FailedCount     int
}

// Типы агрегатов и событий, которые пишутся в outbox.
const (
	AggregateCart  = "cart"
	AggregateStore = "store"

	EventCartOrdered  = "cart.ordered"
	EventStoreCreated = "store.created"
	EventStoreUpdated = "store.updated"
	EventStoreDeleted = "store.deleted"
)
