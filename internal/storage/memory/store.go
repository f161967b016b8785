package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

// record оборачивает сущность порядковым номером вставки, чтобы списки
// возвращались в порядке создания.
type record[T any] struct {
	seq   int64
	value T
}

// outboxRecord хранит сообщение и служебные поля для in-memory реализации.
type outboxRecord struct {
	seq        int64
	msg        domain.OutboxMessage
	status     domain.OutboxStatus
	attemptCnt int
	createdAt  time.Time
	updatedAt  time.Time
}

// state: всё содержимое in-memory хранилища.
type state struct {
	seq      int64
	users    map[string]record[domain.User]
	products map[string]record[domain.Product]
	stores   map[string]record[domain.Store]
	// carts хранит корзины без позиций, позиции лежат в items.
	carts  map[string]record[domain.Cart]
	items  map[string]record[domain.CartProduct]
	outbox map[string]*outboxRecord
}

func newState() *state {
	return &state{
		users:    make(map[string]record[domain.User]),
		products: make(map[string]record[domain.Product]),
		stores:   make(map[string]record[domain.Store]),
		carts:    make(map[string]record[domain.Cart]),
		items:    make(map[string]record[domain.CartProduct]),
		outbox:   make(map[string]*outboxRecord),
	}
}

func (s *state) nextSeq() int64 {
	s.seq++
	return s.seq
}

// clone делает копию состояния для транзакции. Сущности хранятся по значению,
// поэтому достаточно скопировать map; outbox-записи копируются поштучно.
func (s *state) clone() *state {
	dst := &state{
		seq:      s.seq,
		users:    cloneMap(s.users),
		products: cloneMap(s.products),
		stores:   cloneMap(s.stores),
		carts:    cloneMap(s.carts),
		items:    cloneMap(s.items),
		outbox:   make(map[string]*outboxRecord, len(s.outbox)),
	}
	for id, rec := range s.outbox {
		copied := *rec
		dst.outbox[id] = &copied
	}
	return dst
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Store: in-memory хранилище для локальной разработки и тестов.
// Транзакции сериализуются: WithinTx держит мьютекс на всё время выполнения,
// работает с копией состояния и подменяет его только при успехе.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{state: newState()}
}

// WithinTx выполняет fn над копией состояния и фиксирует её, если fn вернула nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, uow domain.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(ctx, &unitOfWork{st: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// read выполняет fn над текущим состоянием под блокировкой.
func (s *Store) read(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// write выполняет fn над текущим состоянием под блокировкой без транзакционной копии.
func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// Ping всегда успешен; нужен для health-check наравне с PostgreSQL.
func (s *Store) Ping(context.Context) error {
	return nil
}

type unitOfWork struct {
	st *state
}

func (u *unitOfWork) Users() domain.UserRepository               { return userRepository{st: u.st} }
func (u *unitOfWork) Products() domain.ProductRepository         { return productRepository{st: u.st} }
func (u *unitOfWork) Stores() domain.StoreRepository             { return storeRepository{st: u.st} }
func (u *unitOfWork) Carts() domain.CartRepository               { return cartRepository{st: u.st} }
func (u *unitOfWork) CartProducts() domain.CartProductRepository { return cartProductRepository{st: u.st} }
func (u *unitOfWork) Outbox() domain.OutboxWriter                { return outboxWriter{st: u.st} }

var _ domain.Transactor = (*Store)(nil)
