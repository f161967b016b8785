package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
	"github.com/vladislavdragonenkov/foodcart/internal/messaging/kafka"
)

// kafkaPublishers: паблишеры outbox-воркера: основной topic и DLQ.
type kafkaPublishers struct {
	producer *kafka.Producer
	events   domain.OutboxPublisher
	dlq      domain.OutboxPublisher
}

// initKafkaPublishers создаёт producer, если брокеры заданы.
// Возвращает nil, nil, когда Kafka не настроена.
func initKafkaPublishers(cfg Config, logger *log.Entry) (*kafkaPublishers, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("kafka brokers are not configured, outbox events stay pending")
		return nil, nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		return nil, err
	}

	logger.WithFields(log.Fields{
		"brokers":   cfg.KafkaBrokers,
		"topic":     cfg.KafkaTopic,
		"dlq_topic": cfg.KafkaDLQTopic,
	}).Info("kafka producer initialized")

	return &kafkaPublishers{
		producer: producer,
		events:   kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
		dlq:      kafka.NewDLQPublisher(producer, cfg.KafkaDLQTopic, cfg.KafkaTopic),
	}, nil
}

// closeKafkaProducer закрывает producer, если он был создан.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
