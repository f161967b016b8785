package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

type userRepository struct {
	st *state
}

func (r userRepository) Get(_ context.Context, id string) (domain.User, error) {
	rec, ok := r.st.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return rec.value, nil
}

func (r userRepository) Create(_ context.Context, user domain.User) error {
	if _, exists := r.st.users[user.ID]; exists {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	r.st.users[user.ID] = record[domain.User]{seq: r.st.nextSeq(), value: user}
	return nil
}

type productRepository struct {
	st *state
}

func (r productRepository) Get(_ context.Context, id string) (domain.Product, error) {
	rec, ok := r.st.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return rec.value, nil
}

func (r productRepository) Create(_ context.Context, product domain.Product) error {
	if _, exists := r.st.products[product.ID]; exists {
		return fmt.Errorf("product %s already exists", product.ID)
	}
	if _, ok := r.st.stores[product.StoreID]; !ok {
		return domain.ErrStoreNotFound
	}
	r.st.products[product.ID] = record[domain.Product]{seq: r.st.nextSeq(), value: product}
	return nil
}

type storeRepository struct {
	st *state
}

func (r storeRepository) Get(_ context.Context, id string) (domain.Store, error) {
	rec, ok := r.st.stores[id]
	if !ok {
		return domain.Store{}, domain.ErrStoreNotFound
	}
	return rec.value, nil
}

func (r storeRepository) GetByOwner(_ context.Context, ownerID string) (domain.Store, error) {
	for _, rec := range r.st.stores {
		if rec.value.OwnerID == ownerID {
			return rec.value, nil
		}
	}
	return domain.Store{}, domain.ErrStoreNotFound
}

func (r storeRepository) List(context.Context) ([]domain.Store, error) {
	recs := make([]record[domain.Store], 0, len(r.st.stores))
	for _, rec := range r.st.stores {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	result := make([]domain.Store, 0, len(recs))
	for _, rec := range recs {
		result = append(result, rec.value)
	}
	return result, nil
}

// Create сохраняет магазин; у владельца может быть только один магазин.
func (r storeRepository) Create(_ context.Context, store domain.Store) error {
	if _, exists := r.st.stores[store.ID]; exists {
		return fmt.Errorf("store %s already exists", store.ID)
	}
	if _, ok := r.st.users[store.OwnerID]; !ok {
		return domain.ErrUserNotFound
	}
	for _, rec := range r.st.stores {
		if rec.value.OwnerID == store.OwnerID {
			return domain.ErrStoreAlreadyExists
		}
	}
	r.st.stores[store.ID] = record[domain.Store]{seq: r.st.nextSeq(), value: store}
	return nil
}

// Save перезаписывает магазин, проверяя версию (optimistic locking).
func (r storeRepository) Save(_ context.Context, store domain.Store) error {
	current, ok := r.st.stores[store.ID]
	if !ok {
		return domain.ErrStoreNotFound
	}
	if current.value.Version != store.Version {
		return domain.ErrConcurrentUpdate
	}
	store.Version++
	r.st.stores[store.ID] = record[domain.Store]{seq: current.seq, value: store}
	return nil
}

// Delete удаляет магазин вместе с его товарами. Корзины должны быть удалены заранее.
func (r storeRepository) Delete(ctx context.Context, id string) error {
	if _, ok := r.st.stores[id]; !ok {
		return domain.ErrStoreNotFound
	}
	inUse, err := r.HasOpenCarts(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return domain.ErrStoreInUse
	}
	for productID, rec := range r.st.products {
		if rec.value.StoreID == id {
			delete(r.st.products, productID)
		}
	}
	delete(r.st.stores, id)
	return nil
}

func (r storeRepository) HasOpenCarts(_ context.Context, storeID string) (bool, error) {
	for _, rec := range r.st.carts {
		if rec.value.StoreID == storeID && rec.value.Status == domain.CartStatusOpen {
			return true, nil
		}
	}
	return false, nil
}

var (
	_ domain.UserRepository    = userRepository{}
	_ domain.ProductRepository = productRepository{}
	_ domain.StoreRepository   = storeRepository{}
)
