package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
// Ключом сообщения служит идентификатор агрегата, поэтому события одной корзины
// попадают в одну партицию и сохраняют порядок.
type OutboxTopicPublisher struct {
	producer      *Producer
	topic         string
	originalTopic string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicCartEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: topic}
}

// NewDLQPublisher создаёт паблишер для dead letter topic. originalTopic
// попадает в заголовок, чтобы переотправка знала, куда вернуть событие.
func NewDLQPublisher(producer *Producer, dlqTopic, originalTopic string) *OutboxTopicPublisher {
	if dlqTopic == "" {
		dlqTopic = TopicDeadLetterQueue
	}
	if originalTopic == "" {
		originalTopic = TopicCartEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: dlqTopic, originalTopic: originalTopic}
}

// Topic возвращает topic назначения.
func (p *OutboxTopicPublisher) Topic() string {
	return p.topic
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	headers := map[string]string{
		HeaderEventType:     event.EventType,
		HeaderAggregateType: event.AggregateType,
		HeaderOutboxID:      event.ID,
	}
	if p.originalTopic != "" {
		headers[HeaderOriginalTopic] = p.originalTopic
	}

	return p.producer.Publish(Message{
		Topic: p.topic,
		Key:   key,
		Value: Envelope{
			ID:            event.ID,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			EventType:     event.EventType,
			Payload:       json.RawMessage(event.Payload),
			PublishedAt:   p.producer.now(),
		},
		Headers: headers,
	})
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
