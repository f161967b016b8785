package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodcart/internal/service/outbox"
)

// ErrInvalidDeadLetter: сообщение в DLQ не похоже на конверт outbox-воркера.
var ErrInvalidDeadLetter = errors.New("invalid dead letter")

// ReplayStats: счётчики переотправки.
type ReplayStats struct {
	Replayed int64
	Skipped  int64
}

// DeadLetterReplayer возвращает события из DLQ в исходный topic.
// Используется как MessageHandler для Consumer.
type DeadLetterReplayer struct {
	producer     *Producer
	defaultTopic string
	dryRun       bool
	logger       *log.Entry

	replayed atomic.Int64
	skipped  atomic.Int64
}

// NewDeadLetterReplayer создаёт replayer. В режиме dryRun сообщения только
// разбираются и логируются, producer может быть nil.
func NewDeadLetterReplayer(producer *Producer, defaultTopic string, dryRun bool) *DeadLetterReplayer {
	if defaultTopic == "" {
		defaultTopic = TopicCartEvents
	}
	return &DeadLetterReplayer{
		producer:     producer,
		defaultTopic: defaultTopic,
		dryRun:       dryRun,
		logger:       log.WithField("component", "dlq-replayer"),
	}
}

// Stats возвращает текущие счётчики.
func (r *DeadLetterReplayer) Stats() ReplayStats {
	return ReplayStats{Replayed: r.replayed.Load(), Skipped: r.skipped.Load()}
}

// Handle разбирает сообщение DLQ и публикует исходное событие заново.
// Нечитаемые сообщения пропускаются, чтобы не блокировать партицию.
func (r *DeadLetterReplayer) Handle(_ context.Context, message *sarama.ConsumerMessage) error {
	letter, err := DecodeDeadLetter(message.Value)
	if err != nil {
		r.skipped.Add(1)
		r.logger.WithError(err).WithFields(log.Fields{
			"partition": message.Partition,
			"offset":    message.Offset,
		}).Warn("skipping dead letter")
		return nil
	}

	topic := r.defaultTopic
	if original, ok := headerValue(message, HeaderOriginalTopic); ok && original != "" {
		topic = original
	}

	fields := log.Fields{
		"outbox_id":    letter.OutboxID,
		"event_type":   letter.EventType,
		"aggregate_id": letter.AggregateID,
		"topic":        topic,
	}
	if r.dryRun {
		r.replayed.Add(1)
		r.logger.WithFields(fields).Info("dry-run: dead letter would be replayed")
		return nil
	}
	if r.producer == nil {
		return fmt.Errorf("dlq replayer producer is not initialized")
	}

	err = r.producer.Publish(Message{
		Topic: topic,
		Key:   letter.AggregateID,
		Value: Envelope{
			ID:            letter.OutboxID,
			AggregateType: letter.AggregateType,
			AggregateID:   letter.AggregateID,
			EventType:     letter.EventType,
			Payload:       letter.Payload,
			PublishedAt:   r.producer.now(),
		},
		Headers: map[string]string{
			HeaderEventType:     letter.EventType,
			HeaderAggregateType: letter.AggregateType,
			HeaderOutboxID:      letter.OutboxID,
			HeaderRetryCount:    strconv.Itoa(letter.Attempts),
		},
	})
	if err != nil {
		return err
	}

	r.replayed.Add(1)
	r.logger.WithFields(fields).Info("dead letter replayed")
	return nil
}

// DecodeDeadLetter извлекает outbox.DeadLetter из сообщения DLQ. Outbox-воркер
// публикует конверт через OutboxTopicPublisher, поэтому DeadLetter лежит
// в поле payload Envelope.
func DecodeDeadLetter(value []byte) (outbox.DeadLetter, error) {
	var envelope Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		return outbox.DeadLetter{}, fmt.Errorf("%w: %v", ErrInvalidDeadLetter, err)
	}

	var letter outbox.DeadLetter
	if err := json.Unmarshal(envelope.Payload, &letter); err != nil {
		return outbox.DeadLetter{}, fmt.Errorf("%w: %v", ErrInvalidDeadLetter, err)
	}
	if letter.OutboxID == "" || letter.EventType == "" || letter.AggregateID == "" || len(letter.Payload) == 0 {
		return outbox.DeadLetter{}, fmt.Errorf("%w: missing required fields", ErrInvalidDeadLetter)
	}
	return letter, nil
}
