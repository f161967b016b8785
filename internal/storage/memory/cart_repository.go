package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

type cartRepository struct {
	st *state
}

// Get возвращает корзину с позициями. Отдельная блокировка строки не нужна:
// транзакции in-memory хранилища и так сериализованы.
func (r cartRepository) Get(_ context.Context, id string) (domain.Cart, error) {
	rec, ok := r.st.carts[id]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return r.withItems(rec.value), nil
}

func (r cartRepository) FindOpenByUser(_ context.Context, userID string) (domain.Cart, error) {
	for _, rec := range r.st.carts {
		if rec.value.UserID == userID && rec.value.Status == domain.CartStatusOpen {
			return r.withItems(rec.value), nil
		}
	}
	return domain.Cart{}, domain.ErrCartNotFound
}

func (r cartRepository) ListByUser(_ context.Context, userID string) ([]domain.Cart, error) {
	recs := make([]record[domain.Cart], 0)
	for _, rec := range r.st.carts {
		if rec.value.UserID == userID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	result := make([]domain.Cart, 0, len(recs))
	for _, rec := range recs {
		result = append(result, r.withItems(rec.value))
	}
	return result, nil
}

// Create сохраняет новую корзину. Вторая открытая корзина пользователя считается конфликтом.
func (r cartRepository) Create(_ context.Context, cart domain.Cart) error {
	if _, exists := r.st.carts[cart.ID]; exists {
		return fmt.Errorf("cart %s already exists", cart.ID)
	}
	if _, ok := r.st.users[cart.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	if _, ok := r.st.stores[cart.StoreID]; !ok {
		return domain.ErrStoreNotFound
	}
	if cart.Status == domain.CartStatusOpen {
		for _, rec := range r.st.carts {
			if rec.value.UserID == cart.UserID && rec.value.Status == domain.CartStatusOpen {
				return domain.ErrConcurrentUpdate
			}
		}
	}

	cart.Items = nil
	r.st.carts[cart.ID] = record[domain.Cart]{seq: r.st.nextSeq(), value: cart}
	return nil
}

// Save перезаписывает поля корзины, проверяя версию (optimistic locking).
func (r cartRepository) Save(_ context.Context, cart domain.Cart) error {
	current, ok := r.st.carts[cart.ID]
	if !ok {
		return domain.ErrCartNotFound
	}
	if current.value.Version != cart.Version {
		return domain.ErrConcurrentUpdate
	}
	// Инкрементируем версию перед сохранением.
	cart.Version++
	cart.Items = nil
	r.st.carts[cart.ID] = record[domain.Cart]{seq: current.seq, value: cart}
	return nil
}

func (r cartRepository) Delete(_ context.Context, id string) error {
	if _, ok := r.st.carts[id]; !ok {
		return domain.ErrCartNotFound
	}
	for itemID, rec := range r.st.items {
		if rec.value.CartID == id {
			delete(r.st.items, itemID)
		}
	}
	delete(r.st.carts, id)
	return nil
}

func (r cartRepository) withItems(cart domain.Cart) domain.Cart {
	recs := make([]record[domain.CartProduct], 0)
	for _, rec := range r.st.items {
		if rec.value.CartID == cart.ID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	cart.Items = make([]domain.CartProduct, 0, len(recs))
	for _, rec := range recs {
		cart.Items = append(cart.Items, rec.value)
	}
	return cart
}

type cartProductRepository struct {
	st *state
}

func (r cartProductRepository) Find(_ context.Context, cartID, productID string) (domain.CartProduct, error) {
	for _, rec := range r.st.items {
		if rec.value.CartID == cartID && rec.value.ProductID == productID {
			return rec.value, nil
		}
	}
	return domain.CartProduct{}, domain.ErrCartProductNotFound
}

// Create сохраняет позицию; пара (cart, product) уникальна.
func (r cartProductRepository) Create(ctx context.Context, item domain.CartProduct) error {
	if _, ok := r.st.carts[item.CartID]; !ok {
		return domain.ErrCartNotFound
	}
	if _, err := r.Find(ctx, item.CartID, item.ProductID); err == nil {
		return domain.ErrCartProductDuplicate
	}
	r.st.items[item.ID] = record[domain.CartProduct]{seq: r.st.nextSeq(), value: item}
	return nil
}

func (r cartProductRepository) Save(_ context.Context, item domain.CartProduct) error {
	current, ok := r.st.items[item.ID]
	if !ok {
		return domain.ErrCartProductNotFound
	}
	r.st.items[item.ID] = record[domain.CartProduct]{seq: current.seq, value: item}
	return nil
}

func (r cartProductRepository) Delete(_ context.Context, id string) error {
	if _, ok := r.st.items[id]; !ok {
		return domain.ErrCartProductNotFound
	}
	delete(r.st.items, id)
	return nil
}

var (
	_ domain.CartRepository        = cartRepository{}
	_ domain.CartProductRepository = cartProductRepository{}
)
