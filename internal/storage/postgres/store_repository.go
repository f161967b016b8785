package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

const storeColumns = `id, owner_id, name, description, address, version, created_at, updated_at`

type storeRepository struct {
	tx *sql.Tx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStore(row rowScanner) (domain.Store, error) {
	var store domain.Store
	err := row.Scan(
		&store.ID, &store.OwnerID, &store.Name, &store.Description, &store.Address,
		&store.Version, &store.CreatedAt, &store.UpdatedAt,
	)
	return store, err
}

func (r storeRepository) Get(ctx context.Context, id string) (domain.Store, error) {
	store, err := scanStore(r.tx.QueryRowContext(ctx, `
		SELECT `+storeColumns+`
		FROM stores
		WHERE id = $1
		FOR KEY SHARE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Store{}, domain.ErrStoreNotFound
		}
		return domain.Store{}, fmt.Errorf("select store: %w", err)
	}
	return store, nil
}

func (r storeRepository) GetByOwner(ctx context.Context, ownerID string) (domain.Store, error) {
	store, err := scanStore(r.tx.QueryRowContext(ctx, `
		SELECT `+storeColumns+`
		FROM stores
		WHERE owner_id = $1
	`, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Store{}, domain.ErrStoreNotFound
		}
		return domain.Store{}, fmt.Errorf("select store by owner: %w", err)
	}
	return store, nil
}

func (r storeRepository) List(ctx context.Context) ([]domain.Store, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+storeColumns+`
		FROM stores
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	stores := make([]domain.Store, 0)
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan store row: %w", err)
		}
		stores = append(stores, store)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate store rows: %w", err)
	}

	return stores, nil
}

func (r storeRepository) Create(ctx context.Context, store domain.Store) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO stores (`+storeColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		store.ID, store.OwnerID, store.Name, store.Description, store.Address,
		store.Version, store.CreatedAt, store.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrStoreAlreadyExists
		case isForeignKeyViolation(err):
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

func (r storeRepository) Save(ctx context.Context, store domain.Store) error {
	res, err := r.tx.ExecContext(ctx, `
		UPDATE stores
		SET name = $1,
		    description = $2,
		    address = $3,
		    version = version + 1,
		    updated_at = $4
		WHERE id = $5
		  AND version = $6
	`,
		store.Name, store.Description, store.Address, store.UpdatedAt,
		store.ID, store.Version,
	)
	if err != nil {
		return fmt.Errorf("update store: %w", err)
	}
	return checkAffected(ctx, r.tx, res, "stores", store.ID, domain.ErrStoreNotFound)
}

// Delete удаляет магазин; товары удаляются каскадно (ON DELETE CASCADE).
// Строка магазина блокируется до проверки открытых корзин: Get читает её
// под FOR KEY SHARE, и CreateCart не откроет корзину между проверкой и удалением.
func (r storeRepository) Delete(ctx context.Context, id string) error {
	var locked string
	if err := r.tx.QueryRowContext(ctx, `SELECT id FROM stores WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrStoreNotFound
		}
		return fmt.Errorf("lock store: %w", err)
	}
	inUse, err := r.HasOpenCarts(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return domain.ErrStoreInUse
	}

	res, err := r.tx.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrStoreInUse
		}
		return fmt.Errorf("delete store: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

func (r storeRepository) HasOpenCarts(ctx context.Context, storeID string) (bool, error) {
	var exists bool
	if err := r.tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM carts WHERE store_id = $1 AND status = $2)
	`, storeID, domain.CartStatusOpen).Scan(&exists); err != nil {
		return false, fmt.Errorf("check store carts: %w", err)
	}
	return exists, nil
}

var _ domain.StoreRepository = storeRepository{}
