package kafka

import (
	"encoding/json"
	"time"
)

// Topics для Kafka.
const (
	// TopicCartEvents: события корзин и магазинов из transactional outbox.
	TopicCartEvents = "foodcart.cart.events"
	// TopicDeadLetterQueue: события, которые не удалось опубликовать.
	TopicDeadLetterQueue = "foodcart.dlq"
)

// Kafka headers, по которым потребители фильтруют события без разбора тела.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
	HeaderOriginalTopic = "x-original-topic"
	HeaderRetryCount    = "x-retry-count"
)

// Envelope: тело сообщения в TopicCartEvents.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}
