package cart

import (
	"time"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

// CreateCartRequest: запрос на добавление товара в (новую или открытую) корзину.
type CreateCartRequest struct {
	ProductID string
	StoreID   string
	Quantity  int32
}

// OrderRequest: данные, которые приходят при оформлении заказа.
type OrderRequest struct {
	Address string
	Phone   string
	Comment string
}

// CartProductView: представление позиции корзины для вызывающей стороны.
type CartProductView struct {
	ID             string
	CartID         string
	ProductID      string
	Quantity       int32
	UnitPriceMinor int64
	LineTotalMinor int64
}

// CartView: представление корзины.
type CartView struct {
	ID              string
	UserID          string
	StoreID         string
	Status          domain.CartStatus
	TotalPriceMinor int64
	Items           []CartProductView
	Delivery        domain.Delivery
	OrderedAt       time.Time
	CreatedAt       time.Time
}

func newCartProductView(item domain.CartProduct) CartProductView {
	return CartProductView{
		ID:             item.ID,
		CartID:         item.CartID,
		ProductID:      item.ProductID,
		Quantity:       item.Quantity,
		UnitPriceMinor: item.UnitPriceMinor,
		LineTotalMinor: item.LineTotal(),
	}
}

func newCartView(cart domain.Cart) CartView {
	items := make([]CartProductView, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, newCartProductView(item))
	}
	return CartView{
		ID:              cart.ID,
		UserID:          cart.UserID,
		StoreID:         cart.StoreID,
		Status:          cart.Status,
		TotalPriceMinor: cart.TotalPriceMinor,
		Items:           items,
		Delivery:        cart.Delivery,
		OrderedAt:       cart.OrderedAt,
		CreatedAt:       cart.CreatedAt,
	}
}
