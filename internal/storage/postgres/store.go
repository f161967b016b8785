// Package postgres реализует порты domain поверх PostgreSQL (database/sql + pgx).
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout = 5 * time.Second

	// DefaultMaxConns используется, если WithMaxConns не передан.
	DefaultMaxConns = 25
)

var errNotInitialized = errors.New("postgres store is not initialized")

type poolSettings struct {
	maxConns        int
	connMaxLifetime time.Duration
	connMaxIdleTime time.Duration
}

// Option настраивает пул соединений.
type Option func(*poolSettings)

// WithMaxConns ограничивает число открытых соединений; столько же держится в idle.
func WithMaxConns(n int) Option {
	return func(p *poolSettings) {
		if n > 0 {
			p.maxConns = n
		}
	}
}

// WithConnLifetime задаёт максимальный возраст и время простоя соединения.
func WithConnLifetime(maxLifetime, maxIdle time.Duration) Option {
	return func(p *poolSettings) {
		if maxLifetime > 0 {
			p.connMaxLifetime = maxLifetime
		}
		if maxIdle > 0 {
			p.connMaxIdleTime = maxIdle
		}
	}
}

// Store держит пул соединений и выдаёт транзакционные unit of work
// для сервисов корзин и магазинов.
type Store struct {
	db *sql.DB
}

// Open открывает пул и проверяет, что база отвечает.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	settings := poolSettings{
		maxConns:        DefaultMaxConns,
		connMaxLifetime: 30 * time.Minute,
		connMaxIdleTime: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&settings)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	db.SetMaxOpenConns(settings.maxConns)
	db.SetMaxIdleConns(settings.maxConns)
	db.SetConnMaxLifetime(settings.connMaxLifetime)
	db.SetConnMaxIdleTime(settings.connMaxIdleTime)

	store := &Store{db: db}
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return store, nil
}

// DB нужен репозиториям воркеров, которые работают вне WithinTx.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping используется health-check'ом хранилища.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// MaxConns возвращает текущий лимит соединений пула.
func (s *Store) MaxConns() int {
	if s == nil || s.db == nil {
		return 0
	}
	return s.db.Stats().MaxOpenConnections
}

// Close закрывает пул. Повторный вызов и вызов на nil безопасны.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
