// Package kafka публикует события корзин и магазинов в Kafka через sarama.
package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const defaultClientID = "foodcart"

// Producer представляет Kafka producer для публикации событий.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
	now      func() time.Time
}

// NewProducer создает новый идемпотентный Kafka producer.
func NewProducer(brokers []string) (*Producer, error) {
	config := sarama.NewConfig()
	config.ClientID = defaultClientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return newProducer(producer), nil
}

func newProducer(sp sarama.SyncProducer) *Producer {
	return &Producer{
		producer: sp,
		logger:   log.WithField("component", "kafka-producer"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Message: сообщение для публикации.
type Message struct {
	Topic   string
	Key     string
	Value   any
	Headers map[string]string
}

// Publish сериализует Value в JSON и синхронно отправляет сообщение.
func (p *Producer) Publish(msg Message) error {
	data, err := json.Marshal(msg.Value)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	out := &sarama.ProducerMessage{
		Topic:     msg.Topic,
		Key:       sarama.StringEncoder(msg.Key),
		Value:     sarama.ByteEncoder(data),
		Timestamp: p.now(),
	}
	for key, value := range msg.Headers {
		out.Headers = append(out.Headers, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
	}

	partition, offset, err := p.producer.SendMessage(out)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": msg.Topic,
			"key":   msg.Key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     msg.Topic,
		"key":       msg.Key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")
	return nil
}

// Close закрывает producer.
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}
