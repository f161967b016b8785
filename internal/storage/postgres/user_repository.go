package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

type userRepository struct {
	tx *sql.Tx
}

func (r userRepository) Get(ctx context.Context, id string) (domain.User, error) {
	var (
		user domain.User
		role string
	)
	err := r.tx.QueryRowContext(ctx, `
		SELECT id, name, role, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Name, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}

	user.Role, err = domain.ParseRole(role)
	if err != nil {
		return domain.User{}, fmt.Errorf("user %s: %w", id, err)
	}
	return user, nil
}

func (r userRepository) Create(ctx context.Context, user domain.User) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO users (id, name, role, created_at)
		VALUES ($1,$2,$3,$4)
	`, user.ID, user.Name, string(user.Role), user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

type productRepository struct {
	tx *sql.Tx
}

func (r productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	var product domain.Product
	err := r.tx.QueryRowContext(ctx, `
		SELECT id, store_id, name, price_minor, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&product.ID, &product.StoreID, &product.Name, &product.PriceMinor, &product.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

func (r productRepository) Create(ctx context.Context, product domain.Product) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO products (id, store_id, name, price_minor, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, product.ID, product.StoreID, product.Name, product.PriceMinor, product.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrStoreNotFound
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

var (
	_ domain.UserRepository    = userRepository{}
	_ domain.ProductRepository = productRepository{}
)
