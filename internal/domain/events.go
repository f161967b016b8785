package domain

import (
	"encoding/json"
	"time"
)

// CartOrderedEvent: payload события cart.ordered.
type CartOrderedEvent struct {
	CartID          string          `json:"cart_id"`
	UserID          string          `json:"user_id"`
	StoreID         string          `json:"store_id"`
	TotalPriceMinor int64           `json:"total_price_minor"`
	Items           []OrderedItem   `json:"items"`
	Delivery        DeliveryPayload `json:"delivery"`
	OrderedAt       time.Time       `json:"ordered_at"`
}

// OrderedItem: позиция оформленной корзины в событии.
type OrderedItem struct {
	ProductID      string `json:"product_id"`
	Quantity       int32  `json:"quantity"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
}

// DeliveryPayload: данные доставки в событии.
type DeliveryPayload struct {
	Address string `json:"address"`
	Phone   string `json:"phone,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// StoreEvent: payload событий store.created, store.updated и store.deleted.
type StoreEvent struct {
	StoreID    string    `json:"store_id"`
	OwnerID    string    `json:"owner_id"`
	Name       string    `json:"name,omitempty"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewCartOrderedMessage собирает outbox-сообщение об оформлении корзины.
func NewCartOrderedMessage(cart Cart) (OutboxMessage, error) {
	event := CartOrderedEvent{
		CartID:          cart.ID,
		UserID:          cart.UserID,
		StoreID:         cart.StoreID,
		TotalPriceMinor: cart.TotalPriceMinor,
		Items:           make([]OrderedItem, 0, len(cart.Items)),
		Delivery: DeliveryPayload{
			Address: cart.Delivery.Address,
			Phone:   cart.Delivery.Phone,
			Comment: cart.Delivery.Comment,
		},
		OrderedAt: cart.OrderedAt,
	}
	for _, item := range cart.Items {
		event.Items = append(event.Items, OrderedItem{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPriceMinor: item.UnitPriceMinor,
		})
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxMessage{}, err
	}
	return OutboxMessage{
		AggregateType: AggregateCart,
		AggregateID:   cart.ID,
		EventType:     EventCartOrdered,
		Payload:       payload,
	}, nil
}

// NewStoreMessage собирает outbox-сообщение об изменении магазина.
func NewStoreMessage(eventType string, store Store, actorID string, occurredAt time.Time) (OutboxMessage, error) {
	payload, err := json.Marshal(StoreEvent{
		StoreID:    store.ID,
		OwnerID:    store.OwnerID,
		Name:       store.Name,
		ActorID:    actorID,
		OccurredAt: occurredAt,
	})
	if err != nil {
		return OutboxMessage{}, err
	}
	return OutboxMessage{
		AggregateType: AggregateStore,
		AggregateID:   store.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
