package domain

import (
	"errors"
	"fmt"
)

// Категории бизнес-ошибок. Конкретные ошибки оборачивают одну из них,
// транспортный слой маппит категорию в код ответа.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
)

var (
	// ErrUserNotFound: пользователь с указанным ID отсутствует.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrStoreNotFound: магазин не найден (или у пользователя нет своего магазина).
	ErrStoreNotFound = fmt.Errorf("store %w", ErrNotFound)
	// ErrProductNotFound: товар не найден.
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	// ErrCartNotFound: корзина не найдена.
	ErrCartNotFound = fmt.Errorf("cart %w", ErrNotFound)
	// ErrCartProductNotFound: в корзине нет позиции с указанным товаром.
	ErrCartProductNotFound = fmt.Errorf("cart product %w", ErrNotFound)

	// ErrCartForbidden: корзина принадлежит другому пользователю.
	ErrCartForbidden = fmt.Errorf("%w: cart belongs to another user", ErrUnauthorized)
	// ErrStoreForbidden: у пользователя нет роли или прав владельца магазина.
	ErrStoreForbidden = fmt.Errorf("%w: store management is not allowed", ErrUnauthorized)

	// ErrCartStoreMismatch: в открытой корзине уже лежат товары другого магазина.
	ErrCartStoreMismatch = fmt.Errorf("%w: cart already contains products of another store", ErrConflict)
	// ErrCartProductDuplicate: товар уже добавлен в корзину, повторное добавление не сливается.
	ErrCartProductDuplicate = fmt.Errorf("%w: product is already in the cart", ErrConflict)
	// ErrCartAlreadyOrdered: корзина уже оформлена как заказ и больше не меняется.
	ErrCartAlreadyOrdered = fmt.Errorf("%w: cart is already ordered", ErrConflict)
	// ErrStoreAlreadyExists: у пользователя уже есть магазин.
	ErrStoreAlreadyExists = fmt.Errorf("%w: user already owns a store", ErrConflict)
	// ErrStoreInUse: на магазин ссылаются корзины, удалить его нельзя.
	ErrStoreInUse = fmt.Errorf("%w: store is referenced by carts", ErrConflict)
	// ErrConcurrentUpdate: запись изменена параллельной транзакцией (optimistic locking).
	ErrConcurrentUpdate = fmt.Errorf("%w: concurrent update", ErrConflict)

	// ErrQuantityInvalid: количество товара должно быть >= 1.
	ErrQuantityInvalid = fmt.Errorf("%w: quantity must be greater than zero", ErrValidation)
	// ErrQuantityTooLarge: количество товара превышает MaxCartProductQuantity.
	ErrQuantityTooLarge = fmt.Errorf("%w: quantity exceeds the per-product limit", ErrValidation)
	// ErrTotalOverflow: сумма корзины не помещается в int64.
	ErrTotalOverflow = fmt.Errorf("%w: cart total is too large", ErrValidation)
	// ErrProductStoreMismatch: товар не принадлежит запрошенному магазину.
	ErrProductStoreMismatch = fmt.Errorf("%w: product does not belong to the store", ErrValidation)
	// ErrCartEmpty: нельзя оформить пустую корзину.
	ErrCartEmpty = fmt.Errorf("%w: cart has no products", ErrValidation)
	// ErrDeliveryAddressRequired: при оформлении нужен адрес доставки.
	ErrDeliveryAddressRequired = fmt.Errorf("%w: delivery address is required", ErrValidation)
	// ErrStoreNameRequired: название магазина обязательно.
	ErrStoreNameRequired = fmt.Errorf("%w: store name is required", ErrValidation)
	// ErrRoleInvalid: роль не входит в перечисление Role.
	ErrRoleInvalid = fmt.Errorf("%w: unknown role", ErrValidation)
	// ErrPriceNegative: цена товара не может быть отрицательной.
	ErrPriceNegative = fmt.Errorf("%w: price must be non-negative", ErrValidation)
	// ErrTotalMismatch: сумма корзины разошлась с суммой позиций.
	ErrTotalMismatch = fmt.Errorf("%w: cart total does not match line items", ErrValidation)

	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsNotFound проверяет, что ошибка относится к категории NotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized проверяет, что у вызывающего нет прав на операцию.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsConflict проверяет, что ошибка является нарушением бизнес-правила (конфликт состояния).
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation проверяет, что входные данные не прошли валидацию.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsBusinessError сообщает, что ошибка является ожидаемым отказом бизнес-правила, а не сбоем.
func IsBusinessError(err error) bool {
	return IsNotFound(err) || IsUnauthorized(err) || IsConflict(err) || IsValidation(err)
}
