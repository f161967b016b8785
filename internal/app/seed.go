package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

// Демо-данные для локального запуска с in-memory хранилищем.
const (
	DemoConsumerID = "demo-consumer"
	DemoOwnerID    = "demo-owner"
	DemoAdminID    = "demo-admin"
	DemoStoreID    = "demo-store"
)

var demoProducts = []domain.Product{
	{ID: "demo-bagel", Name: "Plain bagel", PriceMinor: 350},
	{ID: "demo-cream-cheese", Name: "Cream cheese bagel", PriceMinor: 520},
	{ID: "demo-coffee", Name: "Americano", PriceMinor: 400},
}

// seedDemoData создаёт пользователей всех ролей, магазин и несколько товаров.
func seedDemoData(ctx context.Context, tx domain.Transactor, logger *log.Entry) error {
	now := time.Now().UTC()
	err := tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		users := []domain.User{
			{ID: DemoConsumerID, Name: "Demo consumer", Role: domain.RoleConsumer, CreatedAt: now},
			{ID: DemoOwnerID, Name: "Demo store owner", Role: domain.RoleStore, CreatedAt: now},
			{ID: DemoAdminID, Name: "Demo admin", Role: domain.RoleAdmin, CreatedAt: now},
		}
		for _, user := range users {
			if err := uow.Users().Create(ctx, user); err != nil {
				return err
			}
		}

		store := domain.Store{ID: DemoStoreID, OwnerID: DemoOwnerID, CreatedAt: now, UpdatedAt: now}
		store.Apply(domain.StoreInput{Name: "Demo bakery", Description: "Bagels and coffee", Address: "1 Demo street"})
		if err := uow.Stores().Create(ctx, store); err != nil {
			return err
		}

		for _, product := range demoProducts {
			product.StoreID = DemoStoreID
			product.CreatedAt = now
			if err := uow.Products().Create(ctx, product); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.WithFields(log.Fields{
		"users":    []string{DemoConsumerID, DemoOwnerID, DemoAdminID},
		"store_id": DemoStoreID,
		"products": len(demoProducts),
	}).Info("demo data seeded")
	return nil
}
