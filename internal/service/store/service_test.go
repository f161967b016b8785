package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
	"github.com/vladislavdragonenkov/foodcart/internal/service/store"
	"github.com/vladislavdragonenkov/foodcart/internal/storage/memory"
)

var (
	consumer = domain.Principal{UserID: "consumer-1", Role: domain.RoleConsumer}
	ownerA   = domain.Principal{UserID: "owner-a", Role: domain.RoleStore}
	ownerB   = domain.Principal{UserID: "owner-b", Role: domain.RoleStore}
	admin    = domain.Principal{UserID: "admin-1", Role: domain.RoleAdmin}
)

type fixture struct {
	db      *memory.Store
	outbox  domain.OutboxRepository
	service *store.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	db := memory.NewStore()
	err := db.WithinTx(context.Background(), func(ctx context.Context, uow domain.UnitOfWork) error {
		for _, p := range []domain.Principal{consumer, ownerA, ownerB, admin} {
			if err := uow.Users().Create(ctx, domain.User{ID: p.UserID, Role: p.Role}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	return fixture{
		db:      db,
		outbox:  memory.NewOutboxRepository(db),
		service: store.NewService(db, store.WithClock(func() time.Time { return now })),
	}
}

func (f fixture) createStore(t *testing.T, owner domain.Principal, name string) store.StoreView {
	t.Helper()

	require.NoError(t, f.service.CreateStore(context.Background(), domain.StoreInput{Name: name, Description: "desc", Address: "addr"}, owner))
	view, err := f.service.SelectMyStore(context.Background(), owner)
	require.NoError(t, err)
	return view
}

func TestCreateStore_RequiresStoreRole(t *testing.T) {
	f := newFixture(t)

	for _, caller := range []domain.Principal{consumer, admin} {
		err := f.service.CreateStore(context.Background(), domain.StoreInput{Name: "Nope"}, caller)
		require.ErrorIs(t, err, domain.ErrStoreForbidden)
		require.True(t, domain.IsUnauthorized(err))
	}

	stores, err := f.service.SelectStores(context.Background())
	require.NoError(t, err)
	require.Empty(t, stores)
}

func TestCreateStore_PersistsStoreOwnedByCaller(t *testing.T) {
	f := newFixture(t)

	view := f.createStore(t, ownerA, "  Bagel Monster ")
	assert.Equal(t, ownerA.UserID, view.OwnerID)
	assert.Equal(t, "Bagel Monster", view.Name)
	assert.Equal(t, "desc", view.Description)
	assert.NotEmpty(t, view.ID)

	got, err := f.service.SelectStore(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, view, got)

	pending, err := f.outbox.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.EventStoreCreated, pending[0].EventType)

	var event domain.StoreEvent
	require.NoError(t, json.Unmarshal(pending[0].Payload, &event))
	assert.Equal(t, view.ID, event.StoreID)
	assert.Equal(t, ownerA.UserID, event.ActorID)
}

func TestCreateStore_Rejections(t *testing.T) {
	f := newFixture(t)
	f.createStore(t, ownerA, "First")

	err := f.service.CreateStore(context.Background(), domain.StoreInput{Name: "Second"}, ownerA)
	require.ErrorIs(t, err, domain.ErrStoreAlreadyExists)
	require.True(t, domain.IsConflict(err))

	err = f.service.CreateStore(context.Background(), domain.StoreInput{Name: " "}, ownerB)
	require.ErrorIs(t, err, domain.ErrStoreNameRequired)

	err = f.service.CreateStore(context.Background(), domain.StoreInput{Name: "Ghost"}, domain.Principal{UserID: "ghost", Role: domain.RoleStore})
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	stores, err := f.service.SelectStores(context.Background())
	require.NoError(t, err)
	require.Len(t, stores, 1)
}

func TestSelectStores_CreationOrder(t *testing.T) {
	f := newFixture(t)
	a := f.createStore(t, ownerA, "Zeta")
	b := f.createStore(t, ownerB, "Alpha")

	stores, err := f.service.SelectStores(context.Background())
	require.NoError(t, err)
	require.Len(t, stores, 2)
	assert.Equal(t, a.ID, stores[0].ID)
	assert.Equal(t, b.ID, stores[1].ID)
}

func TestSelectStore_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.SelectStore(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrStoreNotFound)

	_, err = f.service.SelectMyStore(context.Background(), ownerA)
	require.ErrorIs(t, err, domain.ErrStoreNotFound)

	_, err = f.service.SelectMyStore(context.Background(), domain.Principal{UserID: "ghost"})
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestModifyStore_Authorization(t *testing.T) {
	f := newFixture(t)
	shop := f.createStore(t, ownerA, "Bagels")
	f.createStore(t, ownerB, "Sushi")

	tests := []struct {
		name    string
		caller  domain.Principal
		wantErr error
	}{
		{name: "consumer", caller: consumer, wantErr: domain.ErrStoreForbidden},
		{name: "owner of another store", caller: ownerB, wantErr: domain.ErrStoreForbidden},
		{name: "owner", caller: ownerA},
		{name: "admin", caller: admin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := domain.StoreInput{Name: "Renamed by " + tt.name, Address: "new address"}
			err := f.service.ModifyStore(context.Background(), shop.ID, in, tt.caller)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			got, err := f.service.SelectStore(context.Background(), shop.ID)
			require.NoError(t, err)
			assert.Equal(t, in.Name, got.Name)
			assert.Equal(t, "new address", got.Address)
			assert.Empty(t, got.Description, "modify replaces all mutable fields")
			assert.Equal(t, ownerA.UserID, got.OwnerID)
		})
	}

	err := f.service.ModifyStore(context.Background(), "missing", domain.StoreInput{Name: "x"}, admin)
	require.ErrorIs(t, err, domain.ErrStoreNotFound)

	err = f.service.ModifyStore(context.Background(), shop.ID, domain.StoreInput{Name: ""}, ownerA)
	require.ErrorIs(t, err, domain.ErrStoreNameRequired)
}

func TestDeleteStore(t *testing.T) {
	f := newFixture(t)
	shop := f.createStore(t, ownerA, "Bagels")
	ctx := context.Background()

	require.ErrorIs(t, f.service.DeleteStore(ctx, shop.ID, consumer), domain.ErrStoreForbidden)
	require.ErrorIs(t, f.service.DeleteStore(ctx, shop.ID, ownerB), domain.ErrStoreForbidden)
	require.ErrorIs(t, f.service.DeleteStore(ctx, "missing", ownerA), domain.ErrStoreNotFound)

	err := f.db.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		return uow.Carts().Create(ctx, domain.Cart{ID: "cart-1", UserID: consumer.UserID, StoreID: shop.ID, Status: domain.CartStatusOpen})
	})
	require.NoError(t, err)
	require.ErrorIs(t, f.service.DeleteStore(ctx, shop.ID, ownerA), domain.ErrStoreInUse)

	err = f.db.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		cart, err := uow.Carts().Get(ctx, "cart-1")
		if err != nil {
			return err
		}
		cart.Status = domain.CartStatusOrdered
		cart.OrderedAt = time.Now().UTC()
		return uow.Carts().Save(ctx, cart)
	})
	require.NoError(t, err)

	// Оформленная корзина остаётся в истории и удаление не блокирует.
	require.NoError(t, f.service.DeleteStore(ctx, shop.ID, admin))
	_, err = f.service.SelectStore(ctx, shop.ID)
	require.ErrorIs(t, err, domain.ErrStoreNotFound)

	// Владелец может завести новый магазин после удаления.
	f.createStore(t, ownerA, "Bagels again")

	pending, err := f.outbox.PullPending(10)
	require.NoError(t, err)
	types := make([]string, 0, len(pending))
	for _, msg := range pending {
		types = append(types, msg.EventType)
	}
	assert.Equal(t, []string{domain.EventStoreCreated, domain.EventStoreDeleted, domain.EventStoreCreated}, types)
}
