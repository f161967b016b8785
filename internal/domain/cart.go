package domain

import (
	"math"
	"strings"
	"time"
)

// MaxCartProductQuantity ограничивает количество одного товара в позиции.
const MaxCartProductQuantity int32 = 999

// ValidateQuantity проверяет количество, с которым товар кладут в корзину.
func ValidateQuantity(quantity int32) error {
	switch {
	case quantity < 1:
		return ErrQuantityInvalid
	case quantity > MaxCartProductQuantity:
		return ErrQuantityTooLarge
	default:
		return nil
	}
}

// CartStatus описывает жизненный цикл корзины: open -> ordered, обратного перехода нет.
type CartStatus string

const (
	// CartStatusOpen: корзина собирается, заказ ещё не оформлен.
	CartStatusOpen CartStatus = "open"
	// CartStatusOrdered: корзина оформлена как заказ (терминальное состояние).
	CartStatusOrdered CartStatus = "ordered"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s CartStatus) Valid() bool {
	switch s {
	case CartStatusOpen, CartStatusOrdered:
		return true
	default:
		return false
	}
}

// CartProduct представляет одну позицию корзины.
type CartProduct struct {
	ID        string
	CartID    string
	ProductID string
	// Quantity >= 1, пока позиция существует.
	Quantity int32
	// UnitPriceMinor: цена товара в минимальных единицах на момент добавления.
	UnitPriceMinor int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LineTotal возвращает стоимость позиции.
func (p CartProduct) LineTotal() int64 {
	return int64(p.Quantity) * p.UnitPriceMinor
}

func (p CartProduct) checkedLineTotal() (int64, bool) {
	qty := int64(p.Quantity)
	if qty < 0 || p.UnitPriceMinor < 0 {
		return 0, false
	}
	if qty == 0 || p.UnitPriceMinor == 0 {
		return 0, true
	}
	if p.UnitPriceMinor > math.MaxInt64/qty {
		return 0, false
	}
	return qty * p.UnitPriceMinor, true
}

// Delivery: данные доставки, которые приходят при оформлении заказа.
type Delivery struct {
	Address string
	Phone   string
	Comment string
}

// Validate проверяет обязательные поля доставки.
func (d Delivery) Validate() error {
	if strings.TrimSpace(d.Address) == "" {
		return ErrDeliveryAddressRequired
	}
	return nil
}

// Cart агрегирует корзину пользователя и её позиции. Все позиции относятся к StoreID.
type Cart struct {
	ID              string
	UserID          string
	StoreID         string
	Status          CartStatus
	TotalPriceMinor int64
	Items           []CartProduct
	Delivery        Delivery
	Version         int64
	OrderedAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsOrdered сообщает, оформлена ли корзина.
func (c *Cart) IsOrdered() bool {
	return c.Status == CartStatusOrdered
}

// FindItem возвращает индекс позиции с товаром productID или -1.
func (c *Cart) FindItem(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// RecalculateTotal пересчитывает сумму корзины как сумму позиций.
// TotalPriceMinor всегда производная от Items; при переполнении int64
// сумма не меняется и возвращается ErrTotalOverflow.
func (c *Cart) RecalculateTotal() error {
	var total int64
	for _, item := range c.Items {
		if item.UnitPriceMinor < 0 {
			return ErrPriceNegative
		}
		line, ok := item.checkedLineTotal()
		if !ok || line > math.MaxInt64-total {
			return ErrTotalOverflow
		}
		total += line
	}
	c.TotalPriceMinor = total
	return nil
}

// ValidateInvariants проверяет базовые инварианты корзины и возвращает список замечаний.
func (c *Cart) ValidateInvariants() []error {
	var errs []error

	seen := make(map[string]struct{}, len(c.Items))
	var calc int64
	for _, item := range c.Items {
		if err := ValidateQuantity(item.Quantity); err != nil {
			errs = append(errs, err)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, ErrPriceNegative)
		}
		if _, dup := seen[item.ProductID]; dup {
			errs = append(errs, ErrCartProductDuplicate)
		}
		seen[item.ProductID] = struct{}{}
		calc += item.LineTotal()
	}
	if calc != c.TotalPriceMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}
