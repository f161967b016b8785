package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

const (
	cartColumns = `id, user_id, store_id, status, total_price_minor,
		delivery_address, delivery_phone, delivery_comment,
		version, ordered_at, created_at, updated_at`

	// Имена ограничений из миграций: по ним ошибка вставки маппится в доменную.
	constraintOneOpenCart     = "carts_one_open_per_user"
	constraintCartUser        = "carts_user_id_fkey"
	constraintCartProductCart = "cart_products_cart_id_fkey"
	constraintCartProductUniq = "cart_products_cart_product_unique"
)

type cartRepository struct {
	tx *sql.Tx
}

func scanCart(row rowScanner) (domain.Cart, error) {
	var (
		cart      domain.Cart
		status    string
		orderedAt sql.NullTime
	)
	if err := row.Scan(
		&cart.ID, &cart.UserID, &cart.StoreID, &status, &cart.TotalPriceMinor,
		&cart.Delivery.Address, &cart.Delivery.Phone, &cart.Delivery.Comment,
		&cart.Version, &orderedAt, &cart.CreatedAt, &cart.UpdatedAt,
	); err != nil {
		return domain.Cart{}, err
	}

	cart.Status = domain.CartStatus(status)
	if !cart.Status.Valid() {
		return domain.Cart{}, fmt.Errorf("invalid cart status %q for cart %s", status, cart.ID)
	}
	if orderedAt.Valid {
		cart.OrderedAt = orderedAt.Time
	}
	return cart, nil
}

// Get блокирует строку корзины (SELECT ... FOR UPDATE): параллельные изменения
// одной корзины выполняются строго по очереди.
func (r cartRepository) Get(ctx context.Context, id string) (domain.Cart, error) {
	cart, err := scanCart(r.tx.QueryRowContext(ctx, `
		SELECT `+cartColumns+`
		FROM carts
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}
	return r.withItems(ctx, cart)
}

func (r cartRepository) FindOpenByUser(ctx context.Context, userID string) (domain.Cart, error) {
	cart, err := scanCart(r.tx.QueryRowContext(ctx, `
		SELECT `+cartColumns+`
		FROM carts
		WHERE user_id = $1
		  AND status = 'open'
		FOR UPDATE
	`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		return domain.Cart{}, fmt.Errorf("select open cart: %w", err)
	}
	return r.withItems(ctx, cart)
}

func (r cartRepository) ListByUser(ctx context.Context, userID string) ([]domain.Cart, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+cartColumns+`
		FROM carts
		WHERE user_id = $1
		ORDER BY seq
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}

	carts := make([]domain.Cart, 0)
	for rows.Next() {
		cart, err := scanCart(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		carts = append(carts, cart)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate cart rows: %w", err)
	}
	// Соединение транзакции одно: позиции читаем только после закрытия курсора.
	_ = rows.Close()

	for i := range carts {
		if carts[i], err = r.withItems(ctx, carts[i]); err != nil {
			return nil, err
		}
	}
	return carts, nil
}

func (r cartRepository) Create(ctx context.Context, cart domain.Cart) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO carts (`+cartColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		cart.ID, cart.UserID, cart.StoreID, string(cart.Status), cart.TotalPriceMinor,
		cart.Delivery.Address, cart.Delivery.Phone, cart.Delivery.Comment,
		cart.Version, nullTime(cart.OrderedAt), cart.CreatedAt, cart.UpdatedAt,
	)
	if err != nil {
		_, constraint := pgErrorCode(err)
		switch {
		case isUniqueViolation(err) && constraint == constraintOneOpenCart:
			return domain.ErrConcurrentUpdate
		case isForeignKeyViolation(err) && constraint == constraintCartUser:
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (r cartRepository) Save(ctx context.Context, cart domain.Cart) error {
	res, err := r.tx.ExecContext(ctx, `
		UPDATE carts
		SET status = $1,
		    total_price_minor = $2,
		    delivery_address = $3,
		    delivery_phone = $4,
		    delivery_comment = $5,
		    ordered_at = $6,
		    version = version + 1,
		    updated_at = $7
		WHERE id = $8
		  AND version = $9
	`,
		string(cart.Status), cart.TotalPriceMinor,
		cart.Delivery.Address, cart.Delivery.Phone, cart.Delivery.Comment,
		nullTime(cart.OrderedAt), cart.UpdatedAt,
		cart.ID, cart.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConcurrentUpdate
		}
		return fmt.Errorf("update cart: %w", err)
	}
	return checkAffected(ctx, r.tx, res, "carts", cart.ID, domain.ErrCartNotFound)
}

// Delete удаляет корзину; позиции удаляются каскадно.
func (r cartRepository) Delete(ctx context.Context, id string) error {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartNotFound
	}
	return nil
}

func (r cartRepository) withItems(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, cart_id, product_id, quantity, unit_price_minor, created_at, updated_at
		FROM cart_products
		WHERE cart_id = $1
		ORDER BY seq
	`, cart.ID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("load cart products: %w", err)
	}
	defer rows.Close()

	cart.Items = make([]domain.CartProduct, 0)
	for rows.Next() {
		item, err := scanCartProduct(rows)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("scan cart product: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, fmt.Errorf("iterate cart products: %w", err)
	}

	return cart, nil
}

type cartProductRepository struct {
	tx *sql.Tx
}

func scanCartProduct(row rowScanner) (domain.CartProduct, error) {
	var item domain.CartProduct
	err := row.Scan(
		&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
		&item.UnitPriceMinor, &item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

func (r cartProductRepository) Find(ctx context.Context, cartID, productID string) (domain.CartProduct, error) {
	item, err := scanCartProduct(r.tx.QueryRowContext(ctx, `
		SELECT id, cart_id, product_id, quantity, unit_price_minor, created_at, updated_at
		FROM cart_products
		WHERE cart_id = $1
		  AND product_id = $2
	`, cartID, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CartProduct{}, domain.ErrCartProductNotFound
		}
		return domain.CartProduct{}, fmt.Errorf("select cart product: %w", err)
	}
	return item, nil
}

func (r cartProductRepository) Create(ctx context.Context, item domain.CartProduct) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO cart_products (
			id, cart_id, product_id, quantity, unit_price_minor, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		item.ID, item.CartID, item.ProductID, item.Quantity,
		item.UnitPriceMinor, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		_, constraint := pgErrorCode(err)
		switch {
		case isUniqueViolation(err) && constraint == constraintCartProductUniq:
			return domain.ErrCartProductDuplicate
		case isForeignKeyViolation(err) && constraint == constraintCartProductCart:
			return domain.ErrCartNotFound
		}
		return fmt.Errorf("insert cart product: %w", err)
	}
	return nil
}

func (r cartProductRepository) Save(ctx context.Context, item domain.CartProduct) error {
	res, err := r.tx.ExecContext(ctx, `
		UPDATE cart_products
		SET quantity = $1,
		    unit_price_minor = $2,
		    updated_at = $3
		WHERE id = $4
	`, item.Quantity, item.UnitPriceMinor, item.UpdatedAt, item.ID)
	if err != nil {
		return fmt.Errorf("update cart product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartProductNotFound
	}
	return nil
}

func (r cartProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.tx.ExecContext(ctx, `DELETE FROM cart_products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrCartProductNotFound
	}
	return nil
}

var (
	_ domain.CartRepository        = cartRepository{}
	_ domain.CartProductRepository = cartProductRepository{}
)
