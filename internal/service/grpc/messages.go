package grpcsvc

import (
	"time"

	"google.golang.org/protobuf/reflect/protoreflect"

	cartsvc "github.com/vladislavdragonenkov/foodcart/internal/service/cart"
	storesvc "github.com/vladislavdragonenkov/foodcart/internal/service/store"
)

// Empty: ответ операций, которые ничего не возвращают.
type Empty struct{}

// CreateCartRequest добавляет первый товар и при необходимости открывает корзину.
type CreateCartRequest struct {
	StoreID   string
	ProductID string
	Quantity  int32
}

// SelectCartRequest запрашивает открытую корзину вызывающего.
type SelectCartRequest struct{}

// SelectCartsRequest запрашивает все корзины вызывающего.
type SelectCartsRequest struct{}

// CartProductRequest адресует позицию корзины.
type CartProductRequest struct {
	CartID    string
	ProductID string
}

// DeleteCartRequest адресует корзину.
type DeleteCartRequest struct {
	CartID string
}

// OrderCartRequest оформляет корзину как заказ.
type OrderCartRequest struct {
	CartID  string
	Address string
	Phone   string
	Comment string
}

type CartProduct struct {
	ID             string
	CartID         string
	ProductID      string
	Quantity       int32
	UnitPriceMinor int64
	LineTotalMinor int64
}

type Delivery struct {
	Address string
	Phone   string
	Comment string
}

// Cart: Delivery и OrderedAt заполнены только у оформленной корзины.
type Cart struct {
	ID              string
	UserID          string
	StoreID         string
	Status          string
	TotalPriceMinor int64
	Items           []CartProduct
	Delivery        *Delivery
	OrderedAt       *time.Time
	CreatedAt       time.Time
}

type CartResponse struct {
	Cart Cart
}

type SelectCartsResponse struct {
	Carts []Cart
}

type CartProductResponse struct {
	Item CartProduct
}

// SelectStoresRequest запрашивает все магазины.
type SelectStoresRequest struct{}

// SelectStoreRequest адресует магазин.
type SelectStoreRequest struct {
	StoreID string
}

// SelectMyStoreRequest запрашивает магазин вызывающего.
type SelectMyStoreRequest struct{}

// CreateStoreRequest создаёт магазин вызывающего.
type CreateStoreRequest struct {
	Name        string
	Description string
	Address     string
}

// ModifyStoreRequest полностью заменяет изменяемые поля магазина.
type ModifyStoreRequest struct {
	StoreID     string
	Name        string
	Description string
	Address     string
}

// DeleteStoreRequest адресует удаляемый магазин.
type DeleteStoreRequest struct {
	StoreID string
}

type Store struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Address     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type StoreResponse struct {
	Store Store
}

type SelectStoresResponse struct {
	Stores []Store
}

func (*Empty) protoName() protoreflect.Name { return "Empty" }
func (*Empty) fillProto(protoreflect.Message) {}
func (*Empty) readProto(protoreflect.Message) {}

func (*SelectCartRequest) protoName() protoreflect.Name { return "SelectCartRequest" }
func (*SelectCartRequest) fillProto(protoreflect.Message) {}
func (*SelectCartRequest) readProto(protoreflect.Message) {}

func (*SelectCartsRequest) protoName() protoreflect.Name { return "SelectCartsRequest" }
func (*SelectCartsRequest) fillProto(protoreflect.Message) {}
func (*SelectCartsRequest) readProto(protoreflect.Message) {}

func (*SelectStoresRequest) protoName() protoreflect.Name { return "SelectStoresRequest" }
func (*SelectStoresRequest) fillProto(protoreflect.Message) {}
func (*SelectStoresRequest) readProto(protoreflect.Message) {}

func (*SelectMyStoreRequest) protoName() protoreflect.Name { return "SelectMyStoreRequest" }
func (*SelectMyStoreRequest) fillProto(protoreflect.Message) {}
func (*SelectMyStoreRequest) readProto(protoreflect.Message) {}

func (*CreateCartRequest) protoName() protoreflect.Name { return "CreateCartRequest" }

func (r *CreateCartRequest) fillProto(m protoreflect.Message) {
	setString(m, "store_id", r.StoreID)
	setString(m, "product_id", r.ProductID)
	setInt32(m, "quantity", r.Quantity)
}

func (r *CreateCartRequest) readProto(m protoreflect.Message) {
	r.StoreID = getString(m, "store_id")
	r.ProductID = getString(m, "product_id")
	r.Quantity = getInt32(m, "quantity")
}

func (*CartProductRequest) protoName() protoreflect.Name { return "CartProductRequest" }

func (r *CartProductRequest) fillProto(m protoreflect.Message) {
	setString(m, "cart_id", r.CartID)
	setString(m, "product_id", r.ProductID)
}

func (r *CartProductRequest) readProto(m protoreflect.Message) {
	r.CartID = getString(m, "cart_id")
	r.ProductID = getString(m, "product_id")
}

func (*DeleteCartRequest) protoName() protoreflect.Name { return "DeleteCartRequest" }

func (r *DeleteCartRequest) fillProto(m protoreflect.Message) {
	setString(m, "cart_id", r.CartID)
}

func (r *DeleteCartRequest) readProto(m protoreflect.Message) {
	r.CartID = getString(m, "cart_id")
}

func (*OrderCartRequest) protoName() protoreflect.Name { return "OrderCartRequest" }

func (r *OrderCartRequest) fillProto(m protoreflect.Message) {
	setString(m, "cart_id", r.CartID)
	setString(m, "address", r.Address)
	setString(m, "phone", r.Phone)
	setString(m, "comment", r.Comment)
}

func (r *OrderCartRequest) readProto(m protoreflect.Message) {
	r.CartID = getString(m, "cart_id")
	r.Address = getString(m, "address")
	r.Phone = getString(m, "phone")
	r.Comment = getString(m, "comment")
}

func (*CartProduct) protoName() protoreflect.Name { return "CartProduct" }

func (p *CartProduct) fillProto(m protoreflect.Message) {
	setString(m, "id", p.ID)
	setString(m, "cart_id", p.CartID)
	setString(m, "product_id", p.ProductID)
	setInt32(m, "quantity", p.Quantity)
	setInt64(m, "unit_price_minor", p.UnitPriceMinor)
	setInt64(m, "line_total_minor", p.LineTotalMinor)
}

func (p *CartProduct) readProto(m protoreflect.Message) {
	p.ID = getString(m, "id")
	p.CartID = getString(m, "cart_id")
	p.ProductID = getString(m, "product_id")
	p.Quantity = getInt32(m, "quantity")
	p.UnitPriceMinor = getInt64(m, "unit_price_minor")
	p.LineTotalMinor = getInt64(m, "line_total_minor")
}

func (*Delivery) protoName() protoreflect.Name { return "Delivery" }

func (d *Delivery) fillProto(m protoreflect.Message) {
	setString(m, "address", d.Address)
	setString(m, "phone", d.Phone)
	setString(m, "comment", d.Comment)
}

func (d *Delivery) readProto(m protoreflect.Message) {
	d.Address = getString(m, "address")
	d.Phone = getString(m, "phone")
	d.Comment = getString(m, "comment")
}

func (*Cart) protoName() protoreflect.Name { return "Cart" }

func (c *Cart) fillProto(m protoreflect.Message) {
	setString(m, "id", c.ID)
	setString(m, "user_id", c.UserID)
	setString(m, "store_id", c.StoreID)
	setString(m, "status", c.Status)
	setInt64(m, "total_price_minor", c.TotalPriceMinor)
	for i := range c.Items {
		appendMessage(m, "items", &c.Items[i])
	}
	if c.Delivery != nil {
		setMessage(m, "delivery", c.Delivery)
	}
	if c.OrderedAt != nil {
		setTime(m, "ordered_at", *c.OrderedAt)
	}
	setTime(m, "created_at", c.CreatedAt)
}

func (c *Cart) readProto(m protoreflect.Message) {
	c.ID = getString(m, "id")
	c.UserID = getString(m, "user_id")
	c.StoreID = getString(m, "store_id")
	c.Status = getString(m, "status")
	c.TotalPriceMinor = getInt64(m, "total_price_minor")
	c.Items = nil
	rangeMessages(m, "items", func(item protoreflect.Message) {
		var p CartProduct
		p.readProto(item)
		c.Items = append(c.Items, p)
	})
	c.Delivery = nil
	var delivery Delivery
	if getMessage(m, "delivery", &delivery) {
		c.Delivery = &delivery
	}
	c.OrderedAt = nil
	if orderedAt := getTime(m, "ordered_at"); !orderedAt.IsZero() {
		c.OrderedAt = &orderedAt
	}
	c.CreatedAt = getTime(m, "created_at")
}

func (*CartResponse) protoName() protoreflect.Name { return "CartResponse" }

func (r *CartResponse) fillProto(m protoreflect.Message) {
	setMessage(m, "cart", &r.Cart)
}

func (r *CartResponse) readProto(m protoreflect.Message) {
	r.Cart = Cart{}
	getMessage(m, "cart", &r.Cart)
}

func (*SelectCartsResponse) protoName() protoreflect.Name { return "SelectCartsResponse" }

func (r *SelectCartsResponse) fillProto(m protoreflect.Message) {
	for i := range r.Carts {
		appendMessage(m, "carts", &r.Carts[i])
	}
}

func (r *SelectCartsResponse) readProto(m protoreflect.Message) {
	r.Carts = nil
	rangeMessages(m, "carts", func(item protoreflect.Message) {
		var cart Cart
		cart.readProto(item)
		r.Carts = append(r.Carts, cart)
	})
}

func (*CartProductResponse) protoName() protoreflect.Name { return "CartProductResponse" }

func (r *CartProductResponse) fillProto(m protoreflect.Message) {
	setMessage(m, "item", &r.Item)
}

func (r *CartProductResponse) readProto(m protoreflect.Message) {
	r.Item = CartProduct{}
	getMessage(m, "item", &r.Item)
}

func (*SelectStoreRequest) protoName() protoreflect.Name { return "SelectStoreRequest" }

func (r *SelectStoreRequest) fillProto(m protoreflect.Message) {
	setString(m, "store_id", r.StoreID)
}

func (r *SelectStoreRequest) readProto(m protoreflect.Message) {
	r.StoreID = getString(m, "store_id")
}

func (*CreateStoreRequest) protoName() protoreflect.Name { return "CreateStoreRequest" }

func (r *CreateStoreRequest) fillProto(m protoreflect.Message) {
	setString(m, "name", r.Name)
	setString(m, "description", r.Description)
	setString(m, "address", r.Address)
}

func (r *CreateStoreRequest) readProto(m protoreflect.Message) {
	r.Name = getString(m, "name")
	r.Description = getString(m, "description")
	r.Address = getString(m, "address")
}

func (*ModifyStoreRequest) protoName() protoreflect.Name { return "ModifyStoreRequest" }

func (r *ModifyStoreRequest) fillProto(m protoreflect.Message) {
	setString(m, "store_id", r.StoreID)
	setString(m, "name", r.Name)
	setString(m, "description", r.Description)
	setString(m, "address", r.Address)
}

func (r *ModifyStoreRequest) readProto(m protoreflect.Message) {
	r.StoreID = getString(m, "store_id")
	r.Name = getString(m, "name")
	r.Description = getString(m, "description")
	r.Address = getString(m, "address")
}

func (*DeleteStoreRequest) protoName() protoreflect.Name { return "DeleteStoreRequest" }

func (r *DeleteStoreRequest) fillProto(m protoreflect.Message) {
	setString(m, "store_id", r.StoreID)
}

func (r *DeleteStoreRequest) readProto(m protoreflect.Message) {
	r.StoreID = getString(m, "store_id")
}

func (*Store) protoName() protoreflect.Name { return "Store" }

func (s *Store) fillProto(m protoreflect.Message) {
	setString(m, "id", s.ID)
	setString(m, "owner_id", s.OwnerID)
	setString(m, "name", s.Name)
	setString(m, "description", s.Description)
	setString(m, "address", s.Address)
	setTime(m, "created_at", s.CreatedAt)
	setTime(m, "updated_at", s.UpdatedAt)
}

func (s *Store) readProto(m protoreflect.Message) {
	s.ID = getString(m, "id")
	s.OwnerID = getString(m, "owner_id")
	s.Name = getString(m, "name")
	s.Description = getString(m, "description")
	s.Address = getString(m, "address")
	s.CreatedAt = getTime(m, "created_at")
	s.UpdatedAt = getTime(m, "updated_at")
}

func (*StoreResponse) protoName() protoreflect.Name { return "StoreResponse" }

func (r *StoreResponse) fillProto(m protoreflect.Message) {
	setMessage(m, "store", &r.Store)
}

func (r *StoreResponse) readProto(m protoreflect.Message) {
	r.Store = Store{}
	getMessage(m, "store", &r.Store)
}

func (*SelectStoresResponse) protoName() protoreflect.Name { return "SelectStoresResponse" }

func (r *SelectStoresResponse) fillProto(m protoreflect.Message) {
	for i := range r.Stores {
		appendMessage(m, "stores", &r.Stores[i])
	}
}

func (r *SelectStoresResponse) readProto(m protoreflect.Message) {
	r.Stores = nil
	rangeMessages(m, "stores", func(item protoreflect.Message) {
		var store Store
		store.readProto(item)
		r.Stores = append(r.Stores, store)
	})
}

func toWireCartProduct(v cartsvc.CartProductView) CartProduct {
	return CartProduct{
		ID:             v.ID,
		CartID:         v.CartID,
		ProductID:      v.ProductID,
		Quantity:       v.Quantity,
		UnitPriceMinor: v.UnitPriceMinor,
		LineTotalMinor: v.LineTotalMinor,
	}
}

func toWireCart(v cartsvc.CartView) Cart {
	items := make([]CartProduct, 0, len(v.Items))
	for _, item := range v.Items {
		items = append(items, toWireCartProduct(item))
	}

	cart := Cart{
		ID:              v.ID,
		UserID:          v.UserID,
		StoreID:         v.StoreID,
		Status:          string(v.Status),
		TotalPriceMinor: v.TotalPriceMinor,
		Items:           items,
		CreatedAt:       v.CreatedAt,
	}
	if !v.OrderedAt.IsZero() {
		orderedAt := v.OrderedAt
		cart.OrderedAt = &orderedAt
		cart.Delivery = &Delivery{
			Address: v.Delivery.Address,
			Phone:   v.Delivery.Phone,
			Comment: v.Delivery.Comment,
		}
	}
	return cart
}

func toWireStore(v storesvc.StoreView) Store {
	return Store{
		ID:          v.ID,
		OwnerID:     v.OwnerID,
		Name:        v.Name,
		Description: v.Description,
		Address:     v.Address,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}
