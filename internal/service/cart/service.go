// Package cart реализует жизненный цикл корзины: сборку, изменение позиций и оформление заказа.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
	"github.com/vladislavdragonenkov/foodcart/internal/metrics"
)

const serviceName = "cart"

// Service управляет корзинами пользователей. Каждая публичная операция
// выполняется ровно в одной транзакции Transactor.
type Service struct {
	tx      domain.Transactor
	logger  *log.Entry
	metrics *metrics.ServiceMetrics
	now     func() time.Time
}

// NewService создаёт сервис корзин.
func NewService(tx domain.Transactor, opts ...Option) *Service {
	s := &Service{
		tx:     tx,
		logger: log.WithField("component", "cart-service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCart добавляет товар в открытую корзину пользователя, создавая её при необходимости.
// В открытой корзине могут лежать товары только одного магазина; повторное добавление
// того же товара отклоняется.
func (s *Service) CreateCart(ctx context.Context, req CreateCartRequest, principal domain.Principal) (err error) {
	done := s.observe("create_cart", log.Fields{
		"user_id":    principal.UserID,
		"store_id":   req.StoreID,
		"product_id": req.ProductID,
	})
	defer func() { done(err) }()

	if err := domain.ValidateQuantity(req.Quantity); err != nil {
		return err
	}

	var created bool
	err = s.tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		created = false

		user, err := uow.Users().Get(ctx, principal.UserID)
		if err != nil {
			return err
		}

		now := s.now()
		cart, err := uow.Carts().FindOpenByUser(ctx, user.ID)
		switch {
		case err == nil:
			if cart.StoreID != req.StoreID {
				return domain.ErrCartStoreMismatch
			}
		case errors.Is(err, domain.ErrCartNotFound):
			store, err := uow.Stores().Get(ctx, req.StoreID)
			if err != nil {
				return err
			}
			cart = domain.Cart{
				ID:        uuid.NewString(),
				UserID:    user.ID,
				StoreID:   store.ID,
				Status:    domain.CartStatusOpen,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := uow.Carts().Create(ctx, cart); err != nil {
				return err
			}
			created = true
		default:
			return err
		}

		product, err := uow.Products().Get(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if product.StoreID != cart.StoreID {
			return domain.ErrProductStoreMismatch
		}
		if cart.FindItem(product.ID) >= 0 {
			return domain.ErrCartProductDuplicate
		}

		item := domain.CartProduct{
			ID:             uuid.NewString(),
			CartID:         cart.ID,
			ProductID:      product.ID,
			Quantity:       req.Quantity,
			UnitPriceMinor: product.PriceMinor,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := uow.CartProducts().Create(ctx, item); err != nil {
			return err
		}

		cart.Items = append(cart.Items, item)
		return s.saveTotals(ctx, uow, cart, now)
	})
	if err == nil && created {
		s.metrics.RecordCartCreated()
	}
	return err
}

// SelectCart возвращает открытую корзину пользователя.
func (s *Service) SelectCart(ctx context.Context, principal domain.Principal) (view CartView, err error) {
	done := s.observe("select_cart", log.Fields{"user_id": principal.UserID})
	defer func() { done(err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		user, err := uow.Users().Get(ctx, principal.UserID)
		if err != nil {
			return err
		}
		cart, err := uow.Carts().FindOpenByUser(ctx, user.ID)
		if err != nil {
			return err
		}
		view = newCartView(cart)
		return nil
	})
	return view, err
}

// SelectCarts возвращает все корзины пользователя в порядке создания.
func (s *Service) SelectCarts(ctx context.Context, principal domain.Principal) (views []CartView, err error) {
	done := s.observe("select_carts", log.Fields{"user_id": principal.UserID})
	defer func() { done(err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		user, err := uow.Users().Get(ctx, principal.UserID)
		if err != nil {
			return err
		}
		carts, err := uow.Carts().ListByUser(ctx, user.ID)
		if err != nil {
			return err
		}
		views = make([]CartView, 0, len(carts))
		for _, cart := range carts {
			views = append(views, newCartView(cart))
		}
		return nil
	})
	return views, err
}

// AddCartProduct увеличивает количество товара в позиции на единицу.
func (s *Service) AddCartProduct(ctx context.Context, cartID, productID string, principal domain.Principal) (view CartProductView, err error) {
	done := s.observe("add_cart_product", log.Fields{
		"user_id":    principal.UserID,
		"cart_id":    cartID,
		"product_id": productID,
	})
	defer func() { done(err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		cart, idx, err := s.loadLineItem(ctx, uow, cartID, productID, principal)
		if err != nil {
			return err
		}

		now := s.now()
		item := cart.Items[idx]
		if item.Quantity >= domain.MaxCartProductQuantity {
			return domain.ErrQuantityTooLarge
		}
		item.Quantity++
		item.UpdatedAt = now
		if err := uow.CartProducts().Save(ctx, item); err != nil {
			return err
		}

		cart.Items[idx] = item
		if err := s.saveTotals(ctx, uow, cart, now); err != nil {
			return err
		}
		view = newCartProductView(item)
		return nil
	})
	return view, err
}

// SubtractCartProduct уменьшает количество товара на единицу. Когда количество
// доходит до нуля, позиция удаляется, а в ответе остаётся Quantity == 0.
func (s *Service) SubtractCartProduct(ctx context.Context, cartID, productID string, principal domain.Principal) (view CartProductView, err error) {
	done := s.observe("subtract_cart_product", log.Fields{
		"user_id":    principal.UserID,
		"cart_id":    cartID,
		"product_id": productID,
	})
	defer func() { done(err) }()

	err = s.tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		cart, idx, err := s.loadLineItem(ctx, uow, cartID, productID, principal)
		if err != nil {
			return err
		}

		now := s.now()
		item := cart.Items[idx]
		item.Quantity--
		item.UpdatedAt = now

		if item.Quantity == 0 {
			if err := uow.CartProducts().Delete(ctx, item.ID); err != nil {
				return err
			}
			cart.Items = removeItem(cart.Items, idx)
		} else {
			if err := uow.CartProducts().Save(ctx, item); err != nil {
				return err
			}
			cart.Items[idx] = item
		}

		if err := s.saveTotals(ctx, uow, cart, now); err != nil {
			return err
		}
		view = newCartProductView(item)
		return nil
	})
	return view, err
}

// DeleteCartProduct удаляет позицию из корзины независимо от количества.
func (s *Service) DeleteCartProduct(ctx context.Context, cartID, productID string, principal domain.Principal) (err error) {
	done := s.observe("delete_cart_product", log.Fields{
		"user_id":    principal.UserID,
		"cart_id":    cartID,
		"product_id": productID,
	})
	defer func() { done(err) }()

	return s.tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		cart, idx, err := s.loadLineItem(ctx, uow, cartID, productID, principal)
		if err != nil {
			return err
		}
		if err := uow.CartProducts().Delete(ctx, cart.Items[idx].ID); err != nil {
			return err
		}
		cart.Items = removeItem(cart.Items, idx)
		return s.saveTotals(ctx, uow, cart, s.now())
	})
}

// DeleteCart удаляет корзину вместе с позициями. Допускается в любом статусе.
func (s *Service) DeleteCart(ctx context.Context, cartID string, principal domain.Principal) (err error) {
	done := s.observe("delete_cart", log.Fields{
		"user_id": principal.UserID,
		"cart_id": cartID,
	})
	defer func() { done(err) }()

	return s.tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		cart, err := loadOwnedCart(ctx, uow, cartID, principal)
		if err != nil {
			return err
		}
		return uow.Carts().Delete(ctx, cart.ID)
	})
}

// OrderCart оформляет корзину: open -> ordered. Переход необратим; событие cart.ordered
// пишется в outbox той же транзакцией.
func (s *Service) OrderCart(ctx context.Context, cartID string, req OrderRequest, principal domain.Principal) (err error) {
	done := s.observe("order_cart", log.Fields{
		"user_id": principal.UserID,
		"cart_id": cartID,
	})
	defer func() { done(err) }()

	var ordered domain.Cart
	err = s.tx.WithinTx(ctx, func(ctx context.Context, uow domain.UnitOfWork) error {
		cart, err := loadOwnedCart(ctx, uow, cartID, principal)
		if err != nil {
			return err
		}
		if cart.IsOrdered() {
			return domain.ErrCartAlreadyOrdered
		}
		if len(cart.Items) == 0 {
			return domain.ErrCartEmpty
		}

		delivery := domain.Delivery{Address: req.Address, Phone: req.Phone, Comment: req.Comment}
		if err := delivery.Validate(); err != nil {
			return err
		}

		now := s.now()
		cart.Status = domain.CartStatusOrdered
		cart.Delivery = delivery
		cart.OrderedAt = now
		cart.UpdatedAt = now
		if err := uow.Carts().Save(ctx, cart); err != nil {
			return err
		}

		msg, err := domain.NewCartOrderedMessage(cart)
		if err != nil {
			return fmt.Errorf("build cart.ordered event: %w", err)
		}
		if _, err := uow.Outbox().Enqueue(ctx, msg); err != nil {
			return err
		}

		ordered = cart
		return nil
	})
	if err == nil {
		s.metrics.RecordCartOrdered(ordered.TotalPriceMinor)
		s.metrics.RecordOutboxEvent(domain.EventCartOrdered)
	}
	return err
}

// loadOwnedCart находит корзину и проверяет, что она принадлежит вызывающему
// (независимо от его роли).
func loadOwnedCart(ctx context.Context, uow domain.UnitOfWork, cartID string, principal domain.Principal) (domain.Cart, error) {
	cart, err := uow.Carts().Get(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	if cart.UserID != principal.UserID {
		return domain.Cart{}, domain.ErrCartForbidden
	}
	return cart, nil
}

// loadLineItem выполняет общую цепочку разрешения для операций над позицией:
// корзина -> владелец -> товар -> позиция. Оформленная корзина не меняется.
func (s *Service) loadLineItem(ctx context.Context, uow domain.UnitOfWork, cartID, productID string, principal domain.Principal) (domain.Cart, int, error) {
	cart, err := loadOwnedCart(ctx, uow, cartID, principal)
	if err != nil {
		return domain.Cart{}, -1, err
	}
	if _, err := uow.Products().Get(ctx, productID); err != nil {
		return domain.Cart{}, -1, err
	}

	idx := cart.FindItem(productID)
	if idx < 0 {
		return domain.Cart{}, -1, domain.ErrCartProductNotFound
	}
	if cart.IsOrdered() {
		return domain.Cart{}, -1, domain.ErrCartAlreadyOrdered
	}
	return cart, idx, nil
}

// saveTotals пересчитывает сумму корзины по позициям и сохраняет корзину.
// Сохранение поднимает версию, поэтому параллельная правка той же корзины
// завершится ErrConcurrentUpdate.
func (s *Service) saveTotals(ctx context.Context, uow domain.UnitOfWork, cart domain.Cart, now time.Time) error {
	if err := cart.RecalculateTotal(); err != nil {
		return err
	}
	cart.UpdatedAt = now
	return uow.Carts().Save(ctx, cart)
}

func removeItem(items []domain.CartProduct, idx int) []domain.CartProduct {
	result := make([]domain.CartProduct, 0, len(items)-1)
	result = append(result, items[:idx]...)
	return append(result, items[idx+1:]...)
}

// observe фиксирует метрики операции и пишет результат в лог:
// отказы бизнес-правил на Debug, сбои на Error.
func (s *Service) observe(operation string, fields log.Fields) func(err error) {
	finish := s.metrics.OperationStarted(serviceName, operation)
	return func(err error) {
		finish(err)

		entry := s.logger.WithFields(fields).WithField("operation", operation)
		switch {
		case err == nil:
			entry.Debug("cart operation completed")
		case domain.IsBusinessError(err):
			entry.WithError(err).Debug("cart operation rejected")
		default:
			entry.WithError(err).Error("cart operation failed")
		}
	}
}
