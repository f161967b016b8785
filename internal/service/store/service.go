// Package store реализует управление магазинами: просмотр, создание, изменение и удаление.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
	"github.com/vladislavdragonenkov/foodcart/internal/metrics"
)

const serviceName = "store"

// StoreView: представление магазина для вызывающей стороны.
type StoreView struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Address     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func newStoreView(s domain.Store) StoreView {
	return StoreView{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		Name:        s.Name,
		Description: s.Description,
		Address:     s.Address,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// Service управляет магазинами. Права проверяются по роли пользователя из хранилища,
// а не по роли из токена.
type Service struct {
	tx      domain.Transactor
	logger  *log.Entry
	metrics *metrics.ServiceMetrics
	now     func() time.Time
}

// NewService создаёт сервис магазинов.
func NewService(tx domain.Transactor, opts ...Option) *Service {
	s := &Service{
		tx:     tx,
		logger: log.WithField("component", "store-service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectStores возвращает все магазины в порядке создания.
func (s *Service) SelectStores(ctx context.Context) (views []StoreView, err error) {
	done := s.observe("select_stores", log.Fields{})
	defer func() { done(err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		stores, err := uow.Stores().List(ctx)
		if err != nil {
			return err
		}
		views = make([]StoreView, 0, len(stores))
		for _, st := range stores {
			views = append(views, newStoreView(st))
		}
		return nil
	})
	return views, err
}

// SelectStore возвращает магазин по идентификатору.
func (s *Service) SelectStore(ctx context.Context, storeID string) (view StoreView, err error) {
	done := s.observe("select_store", log.Fields{"store_id": storeID})
	defer func() { done(err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		st, err := uow.Stores().Get(ctx, storeID)
		if err != nil {
			return err
		}
		view = newStoreView(st)
		return nil
	})
	return view, err
}

// SelectMyStore возвращает магазин вызывающего пользователя.
func (s *Service) SelectMyStore(ctx context.Context, principal domain.Principal) (view StoreView, err error) {
	done := s.observe("select_my_store", log.Fields{"user_id": principal.UserID})
	defer func() { done(err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		user, err := uow.Users().Get(ctx, principal.UserID)
		if err != nil {
			return err
		}
		st, err := uow.Stores().GetByOwner(ctx, user.ID)
		if err != nil {
			return err
		}
		view = newStoreView(st)
		return nil
	})
	return view, err
}

// CreateStore создаёт магазин, принадлежащий вызывающему. Нужна роль store;
// у пользователя может быть только один магазин.
func (s *Service) CreateStore(ctx context.Context, in domain.StoreInput, principal domain.Principal) (err error) {
	done := s.observe("create_store", log.Fields{"user_id": principal.UserID})
	defer func() { done(err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		user, err := uow.Users().Get(ctx, principal.UserID)
		if err != nil {
			return err
		}
		if user.Role != domain.RoleStore {
			return domain.ErrStoreForbidden
		}
		if err := in.Validate(); err != nil {
			return err
		}

		now := s.now()
		st := domain.Store{
			ID:        uuid.NewString(),
			OwnerID:   user.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		st.Apply(in)
		if err := uow.Stores().Create(ctx, st); err != nil {
			return err
		}
		return enqueueStoreEvent(ctx, uow, domain.EventStoreCreated, st, user.ID, now)
	})
	if err == nil {
		s.metrics.RecordOutboxEvent(domain.EventStoreCreated)
	}
	return err
}

// ModifyStore полностью заменяет изменяемые поля магазина. Разрешено владельцу
// с ролью store или администратору.
func (s *Service) ModifyStore(ctx context.Context, storeID string, in domain.StoreInput, principal domain.Principal) (err error) {
	done := s.observe("modify_store", log.Fields{"user_id": principal.UserID, "store_id": storeID})
	defer func() { done(err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		user, st, err := loadManagedStore(ctx, uow, storeID, principal)
		if err != nil {
			return err
		}
		if err := in.Validate(); err != nil {
			return err
		}

		now := s.now()
		st.Apply(in)
		st.UpdatedAt = now
		if err := uow.Stores().Save(ctx, st); err != nil {
			return err
		}
		return enqueueStoreEvent(ctx, uow, domain.EventStoreUpdated, st, user.ID, now)
	})
	if err == nil {
		s.metrics.RecordOutboxEvent(domain.EventStoreUpdated)
	}
	return err
}

// DeleteStore удаляет магазин вместе с его товарами. Магазин с открытыми
// корзинами удалить нельзя; оформленные корзины остаются в истории заказов.
func (s *Service) DeleteStore(ctx context.Context, storeID string, principal domain.Principal) (err error) {
	done := s.observe("delete_store", log.Fields{"user_id": principal.UserID, "store_id": storeID})
	defer func() { done(err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		user, st, err := loadManagedStore(ctx, uow, storeID, principal)
		if err != nil {
			return err
		}

		inUse, err := uow.Stores().HasOpenCarts(ctx, st.ID)
		if err != nil {
			return err
		}
		if inUse {
			return domain.ErrStoreInUse
		}

		if err := uow.Stores().Delete(ctx, st.ID); err != nil {
			return err
		}
		return enqueueStoreEvent(ctx, uow, domain.EventStoreDeleted, st, user.ID, s.now())
	})
	if err == nil {
		s.metrics.RecordOutboxEvent(domain.EventStoreDeleted)
	}
	return err
}

// loadManagedStore разрешает пользователя и магазин и проверяет право управления.
func loadManagedStore(ctx context.Context, uow domain.UnitOfWork, storeID string, principal domain.Principal) (domain.User, domain.Store, error) {
	user, err := uow.Users().Get(ctx, principal.UserID)
	if err != nil {
		return domain.User{}, domain.Store{}, err
	}
	if user.Role != domain.RoleStore && user.Role != domain.RoleAdmin {
		return domain.User{}, domain.Store{}, domain.ErrStoreForbidden
	}

	st, err := uow.Stores().Get(ctx, storeID)
	if err != nil {
		return domain.User{}, domain.Store{}, err
	}
	if !st.CanManage(user) {
		return domain.User{}, domain.Store{}, domain.ErrStoreForbidden
	}
	return user, st, nil
}

func enqueueStoreEvent(ctx context.Context, uow domain.UnitOfWork, eventType string, st domain.Store, actorID string, now time.Time) error {
	msg, err := domain.NewStoreMessage(eventType, st, actorID, now)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	_, err = uow.Outbox().Enqueue(ctx, msg)
	return err
}

func (s *Service) observe(operation string, fields log.Fields) func(err error) {
	finish := s.metrics.OperationStarted(serviceName, operation)
	return func(err error) {
		finish(err)

		entry := s.logger.WithFields(fields).WithField("operation", operation)
		switch {
		case err == nil:
			entry.Debug("store operation completed")
		case domain.IsBusinessError(err):
			entry.WithError(err).Debug("store operation rejected")
		default:
			entry.WithError(err).Error("store operation failed")
		}
	}
}
