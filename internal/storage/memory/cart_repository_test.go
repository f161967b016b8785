package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

func TestCartRepository_CreateGetAndItems(t *testing.T) {
	f := newFixture(t)

	err := f.store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		cart := domain.Cart{ID: "cart-1", UserID: f.consumer.ID, StoreID: f.shop.ID, Status: domain.CartStatusOpen, TotalPriceMinor: 1000}
		if err := uow.Carts().Create(ctx, cart); err != nil {
			return err
		}
		if err := uow.CartProducts().Create(ctx, domain.CartProduct{ID: "item-1", CartID: cart.ID, ProductID: f.product.ID, Quantity: 2, UnitPriceMinor: 500}); err != nil {
			return err
		}
		return uow.CartProducts().Create(ctx, domain.CartProduct{ID: "item-2", CartID: cart.ID, ProductID: f.product.ID, Quantity: 1})
	})
	require.ErrorIs(t, err, domain.ErrCartProductDuplicate)

	err = f.store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		cart := domain.Cart{ID: "cart-1", UserID: f.consumer.ID, StoreID: f.shop.ID, Status: domain.CartStatusOpen, TotalPriceMinor: 1000}
		if err := uow.Carts().Create(ctx, cart); err != nil {
			return err
		}
		return uow.CartProducts().Create(ctx, domain.CartProduct{ID: "item-1", CartID: cart.ID, ProductID: f.product.ID, Quantity: 2, UnitPriceMinor: 500})
	})
	require.NoError(t, err)

	err = f.store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		cart, err := uow.Carts().Get(ctx, "cart-1")
		if err != nil {
			return err
		}
		require.Len(t, cart.Items, 1)
		require.Equal(t, int32(2), cart.Items[0].Quantity)
		require.Empty(t, cart.ValidateInvariants())

		open, err := uow.Carts().FindOpenByUser(ctx, f.consumer.ID)
		if err != nil {
			return err
		}
		require.Equal(t, cart.ID, open.ID)

		item, err := uow.CartProducts().Find(ctx, cart.ID, f.product.ID)
		if err != nil {
			return err
		}
		item.Quantity = 3
		return uow.CartProducts().Save(ctx, item)
	})
	require.NoError(t, err)

	err = f.store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		item, err := uow.CartProducts().Find(ctx, "cart-1", f.product.ID)
		if err != nil {
			return err
		}
		require.Equal(t, int32(3), item.Quantity)

		_, err = uow.CartProducts().Find(ctx, "cart-1", "missing")
		require.ErrorIs(t, err, domain.ErrCartProductNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestCartRepository_SingleOpenCartPerUser(t *testing.T) {
	f := newFixture(t)

	err := f.store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		if err := uow.Carts().Create(ctx, domain.Cart{ID: "cart-1", UserID: f.consumer.ID, StoreID: f.shop.ID, Status: domain.CartStatusOpen}); err != nil {
			return err
		}
		return uow.Carts().Create(ctx, domain.Cart{ID: "cart-2", UserID: f.consumer.ID, StoreID: f.shop.ID, Status: domain.CartStatusOpen})
	})
	require.ErrorIs(t, err, domain.ErrConcurrentUpdate)

	err = f.store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		if err := uow.Carts().Create(ctx, domain.Cart{ID: "cart-1", UserID: f.consumer.ID, StoreID: f.shop.ID, Status: domain.CartStatusOrdered}); err != nil {
			return err
		}
		if err := uow.Carts().Create(ctx, domain.Cart{ID: "cart-2", UserID: f.consumer.ID, StoreID: f.shop.ID, Status: domain.CartStatusOpen}); err != nil {
			return err
		}

		carts, err := uow.Carts().ListByUser(ctx, f.consumer.ID)
		if err != nil {
			return err
		}
		require.Len(t, carts, 2)
		require.Equal(t, "cart-1", carts[0].ID)
		require.Equal(t, "cart-2", carts[1].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestCartRepository_UnknownReferences(t *testing.T) {
	f := newFixture(t)

	err := f.store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		return uow.Carts().Create(ctx, domain.Cart{ID: "cart-1", UserID: "ghost", StoreID: f.shop.ID, Status: domain.CartStatusOpen})
	})
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	err = f.store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		return uow.Carts().Create(ctx, domain.Cart{ID: "cart-1", UserID: f.consumer.ID, StoreID: "ghost", Status: domain.CartStatusOpen})
	})
	require.ErrorIs(t, err, domain.ErrStoreNotFound)

	err = f.store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		return uow.CartProducts().Create(ctx, domain.CartProduct{ID: "item-1", CartID: "ghost", ProductID: f.product.ID, Quantity: 1})
	})
	require.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestCartRepository_SaveAndDelete(t *testing.T) {
	f := newFixture(t)

	err := f.store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		if err := uow.Carts().Create(ctx, domain.Cart{ID: "cart-1", UserID: f.consumer.ID, StoreID: f.shop.ID, Status: domain.CartStatusOpen}); err != nil {
			return err
		}
		return uow.CartProducts().Create(ctx, domain.CartProduct{ID: "item-1", CartID: "cart-1", ProductID: f.product.ID, Quantity: 1, UnitPriceMinor: 500})
	})
	require.NoError(t, err)

	err = f.store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		cart, err := uow.Carts().Get(ctx, "cart-1")
		if err != nil {
			return err
		}
		stale := cart
		cart.Status = domain.CartStatusOrdered
		if err := uow.Carts().Save(ctx, cart); err != nil {
			return err
		}
		return uow.Carts().Save(ctx, stale)
	})
	require.ErrorIs(t, err, domain.ErrConcurrentUpdate)

	err = f.store.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		if err := uow.Carts().Delete(ctx, "cart-1"); err != nil {
			return err
		}
		_, err := uow.CartProducts().Find(ctx, "cart-1", f.product.ID)
		require.ErrorIs(t, err, domain.ErrCartProductNotFound)
		return uow.Carts().Delete(ctx, "cart-1")
	})
	require.ErrorIs(t, err, domain.ErrCartNotFound)
}
