package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

const opTimeout = 5 * time.Second

// Коды ошибок PostgreSQL, которые маппятся в доменные ошибки.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// WithinTx выполняет fn в одной транзакции БД. Репозитории из uow привязаны к ней:
// при ошибке или панике все изменения откатываются.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, uow domain.UnitOfWork) error) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, &unitOfWork{tx: tx}); err != nil {
		return mapTxError(err)
	}

	if err := tx.Commit(); err != nil {
		return mapTxError(fmt.Errorf("commit tx: %w", err))
	}
	committed = true

	return nil
}

// mapTxError превращает конфликт транзакций в ErrConcurrentUpdate.
func mapTxError(err error) error {
	code, _ := pgErrorCode(err)
	if code == pgSerializationFailure || code == pgDeadlockDetected {
		return fmt.Errorf("%w: %v", domain.ErrConcurrentUpdate, err)
	}
	return err
}

type unitOfWork struct {
	tx *sql.Tx
}

func (u *unitOfWork) Users() domain.UserRepository               { return userRepository{tx: u.tx} }
func (u *unitOfWork) Products() domain.ProductRepository         { return productRepository{tx: u.tx} }
func (u *unitOfWork) Stores() domain.StoreRepository             { return storeRepository{tx: u.tx} }
func (u *unitOfWork) Carts() domain.CartRepository               { return cartRepository{tx: u.tx} }
func (u *unitOfWork) CartProducts() domain.CartProductRepository { return cartProductRepository{tx: u.tx} }
func (u *unitOfWork) Outbox() domain.OutboxWriter                { return outboxWriter{tx: u.tx} }

// pgErrorCode возвращает SQLSTATE и имя нарушенного ограничения.
func pgErrorCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isUniqueViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgForeignKeyViolation
}

// checkAffected возвращает notFound, если строка отсутствует, и ErrConcurrentUpdate,
// если она есть, но версия не совпала.
func checkAffected(ctx context.Context, tx *sql.Tx, res sql.Result, table, id string, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check %s exists: %w", table, err)
	}
	if !exists {
		return notFound
	}
	return domain.ErrConcurrentUpdate
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

var _ domain.Transactor = (*Store)(nil)
