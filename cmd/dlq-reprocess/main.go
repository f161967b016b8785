// Команда dlq-reprocess вычитывает dead-letter топик через consumer group
// и публикует исходные события обратно в топик корзин.
//
// По умолчанию работает в dry-run режиме: сообщения только разбираются и
// логируются. Для реальной переотправки нужен флаг -execute.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodcart/internal/app"
	"github.com/vladislavdragonenkov/foodcart/internal/messaging/kafka"
)

const (
	envKafkaBrokers = "FOODCART_KAFKA_BROKERS"
	defaultGroupID  = "foodcart-dlq-reprocess"
)

type config struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	groupID     string
	execute     bool
	duration    time.Duration
}

// replayConsumer: то, что нужно команде от consumer group.
type replayConsumer interface {
	Start(ctx context.Context) error
	Stop() error
}

func main() {
	cfg, err := readConfig(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		fail("%v", err)
	}

	log.SetFormatter(&log.JSONFormatter{})
	logger := log.WithField("component", "dlq-reprocess")

	var producer *kafka.Producer
	if cfg.execute {
		producer, err = kafka.NewProducer(cfg.brokers)
		if err != nil {
			fail("create kafka producer: %v", err)
		}
		defer func() {
			if err := producer.Close(); err != nil {
				logger.WithError(err).Warn("close kafka producer")
			}
		}()
	}

	replayer := kafka.NewDeadLetterReplayer(producer, cfg.targetTopic, !cfg.execute)
	consumer, err := kafka.NewConsumer(cfg.brokers, cfg.groupID, []string{cfg.sourceTopic}, replayer.Handle)
	if err != nil {
		fail("create kafka consumer: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.duration)
		defer cancel()
	}

	logger.WithFields(log.Fields{
		"source_topic": cfg.sourceTopic,
		"target_topic": cfg.targetTopic,
		"group":        cfg.groupID,
		"dry_run":      !cfg.execute,
	}).Info("dlq reprocess started")

	if err := run(ctx, consumer); err != nil {
		fail("%v", err)
	}

	stats := replayer.Stats()
	logger.WithFields(log.Fields{
		"replayed": stats.Replayed,
		"skipped":  stats.Skipped,
	}).Info("dlq reprocess finished")
}

func readConfig(fs *flag.FlagSet, args []string, getenv func(string) string) (config, error) {
	var (
		cfg     config
		brokers string
	)
	fs.StringVar(&brokers, "brokers", "", "comma separated kafka brokers (fallback: "+envKafkaBrokers+")")
	fs.StringVar(&cfg.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "dead-letter topic to read")
	fs.StringVar(&cfg.targetTopic, "target-topic", kafka.TopicCartEvents, "topic for events without x-original-topic header")
	fs.StringVar(&cfg.groupID, "group", defaultGroupID, "consumer group id")
	fs.BoolVar(&cfg.execute, "execute", false, "republish events (default is dry-run)")
	fs.DurationVar(&cfg.duration, "duration", 0, "stop after this duration (0 = until signal)")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if strings.TrimSpace(brokers) == "" {
		brokers = getenv(envKafkaBrokers)
	}
	cfg.brokers = app.ParseBrokers(brokers)
	cfg.sourceTopic = strings.TrimSpace(cfg.sourceTopic)
	cfg.targetTopic = strings.TrimSpace(cfg.targetTopic)
	cfg.groupID = strings.TrimSpace(cfg.groupID)

	var errs []error
	if len(cfg.brokers) == 0 {
		errs = append(errs, fmt.Errorf("%s (or -brokers) is required", envKafkaBrokers))
	}
	if cfg.sourceTopic == "" {
		errs = append(errs, errors.New("source topic is required"))
	}
	if cfg.targetTopic == "" {
		errs = append(errs, errors.New("target topic is required"))
	}
	if cfg.sourceTopic != "" && cfg.sourceTopic == cfg.targetTopic {
		errs = append(errs, errors.New("source and target topics must differ"))
	}
	if cfg.groupID == "" {
		errs = append(errs, errors.New("consumer group is required"))
	}
	if cfg.duration < 0 {
		errs = append(errs, errors.New("duration must not be negative"))
	}
	return cfg, errors.Join(errs...)
}

// run запускает consumer и останавливает его после отмены ctx.
func run(ctx context.Context, consumer replayConsumer) error {
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	<-ctx.Done()
	if err := consumer.Stop(); err != nil {
		return fmt.Errorf("stop consumer: %w", err)
	}
	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
