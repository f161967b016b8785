package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/foodcart/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/foodcart/internal/storage/postgres"
)

const (
	// StorageDriverMemory хранит данные в памяти процесса.
	StorageDriverMemory = "memory"
	// StorageDriverPostgres хранит данные в PostgreSQL.
	StorageDriverPostgres = "postgres"
)

// Переменные окружения сервиса.
const (
	envGRPCAddr                    = "FOODCART_GRPC_ADDR"
	envMetricsAddr                 = "FOODCART_METRICS_ADDR"
	envLogLevel                    = "FOODCART_LOG_LEVEL"
	envStorageDriver               = "FOODCART_STORAGE_DRIVER"
	envPostgresDSN                 = "FOODCART_POSTGRES_DSN"
	envPostgresAutoMigrate         = "FOODCART_POSTGRES_AUTO_MIGRATE"
	envPostgresMaxConns            = "FOODCART_POSTGRES_MAX_CONNS"
	envKafkaBrokers                = "FOODCART_KAFKA_BROKERS"
	envKafkaTopic                  = "FOODCART_KAFKA_TOPIC"
	envKafkaDLQTopic               = "FOODCART_KAFKA_DLQ_TOPIC"
	envOutboxPollInterval          = "FOODCART_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize             = "FOODCART_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts           = "FOODCART_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay            = "FOODCART_OUTBOX_RETRY_DELAY"
	envOutboxMaxPending            = "FOODCART_OUTBOX_MAX_PENDING"
	envIdempotencyCleanupInterval  = "FOODCART_IDEMPOTENCY_CLEANUP_INTERVAL"
	envIdempotencyCleanupBatchSize = "FOODCART_IDEMPOTENCY_CLEANUP_BATCH_SIZE"
	envJWTSecret                   = "FOODCART_JWT_SECRET"
	envJWTAccessTTL                = "FOODCART_JWT_ACCESS_TTL"
	envSeedDemoData                = "FOODCART_SEED_DEMO"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	GRPCAddr    string
	MetricsAddr string
	LogLevel    log.Level

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	PostgresMaxConns    int

	// Если KafkaBrokers пуст, outbox-воркер не запускается, события копятся в outbox.
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaDLQTopic string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	// OutboxMaxPending: порог backlog, после которого /healthz отдаёт degraded.
	OutboxMaxPending int

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	JWTSecret    string
	JWTAccessTTL time.Duration

	SeedDemoData bool
}

// DefaultConfig возвращает настройки по умолчанию.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:                    ":50051",
		MetricsAddr:                 ":9090",
		LogLevel:                    log.InfoLevel,
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		PostgresMaxConns:            postgres.DefaultMaxConns,
		KafkaTopic:                  kafka.TopicCartEvents,
		KafkaDLQTopic:               kafka.TopicDeadLetterQueue,
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            50 * time.Millisecond,
		OutboxMaxPending:            1000,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,
		JWTAccessTTL:                15 * time.Minute,
	}
}

type envLookup func(key string) (string, bool)

// LoadConfigFromEnv читает конфигурацию из окружения. Некорректные значения
// не прерывают запуск: вместо них берётся значение по умолчанию, а причина
// попадает в warnings.
func LoadConfigFromEnv() (Config, []string) {
	return loadConfig(os.LookupEnv)
}

func loadConfig(lookup envLookup) (Config, []string) {
	cfg := DefaultConfig()
	var warnings []string
	warn := func(key string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s: %v, using default", key, err))
	}

	if v, ok := lookupTrimmed(lookup, envGRPCAddr); ok {
		cfg.GRPCAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := lookupTrimmed(lookup, envLogLevel); ok {
		level, err := log.ParseLevel(v)
		if err != nil {
			warn(envLogLevel, err)
		} else {
			cfg.LogLevel = level
		}
	}
	if v, ok := lookupTrimmed(lookup, envStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}
	if v, ok := lookupTrimmed(lookup, envPostgresDSN); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := lookupTrimmed(lookup, envPostgresAutoMigrate); ok {
		parsed, err := parseBool(v)
		if err != nil {
			warn(envPostgresAutoMigrate, err)
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}
	if v, ok := lookupTrimmed(lookup, envKafkaBrokers); ok {
		cfg.KafkaBrokers = ParseBrokers(v)
	}
	if v, ok := lookupTrimmed(lookup, envKafkaTopic); ok {
		cfg.KafkaTopic = v
	}
	if v, ok := lookupTrimmed(lookup, envKafkaDLQTopic); ok {
		cfg.KafkaDLQTopic = v
	}

	positive := func(v int) bool { return v > 0 }
	nonNegative := func(v int) bool { return v >= 0 }
	positiveDuration := func(v time.Duration) bool { return v > 0 }
	nonNegativeDuration := func(v time.Duration) bool { return v >= 0 }

	setInt(lookup, envPostgresMaxConns, &cfg.PostgresMaxConns, positive, "must be > 0", warn)
	setDuration(lookup, envOutboxPollInterval, &cfg.OutboxPollInterval, positiveDuration, "must be > 0", warn)
	setInt(lookup, envOutboxBatchSize, &cfg.OutboxBatchSize, positive, "must be > 0", warn)
	setInt(lookup, envOutboxMaxAttempts, &cfg.OutboxMaxAttempts, positive, "must be > 0", warn)
	setDuration(lookup, envOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegativeDuration, "must be >= 0", warn)
	setInt(lookup, envOutboxMaxPending, &cfg.OutboxMaxPending, nonNegative, "must be >= 0", warn)
	setDuration(lookup, envIdempotencyCleanupInterval, &cfg.IdempotencyCleanupInterval, positiveDuration, "must be > 0", warn)
	setInt(lookup, envIdempotencyCleanupBatchSize, &cfg.IdempotencyCleanupBatchSize, positive, "must be > 0", warn)

	if v, ok := lookup(envJWTSecret); ok {
		cfg.JWTSecret = v
	}
	setDuration(lookup, envJWTAccessTTL, &cfg.JWTAccessTTL, positiveDuration, "must be > 0", warn)

	if v, ok := lookupTrimmed(lookup, envSeedDemoData); ok {
		parsed, err := parseBool(v)
		if err != nil {
			warn(envSeedDemoData, err)
		} else {
			cfg.SeedDemoData = parsed
		}
	}

	return cfg, warnings
}

// Validate проверяет обязательные настройки, без которых сервис не стартует.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.GRPCAddr) == "" {
		errs = append(errs, errors.New("grpc address is required"))
	}
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, fmt.Errorf("%s is required for postgres storage", envPostgresDSN))
		}
		if c.SeedDemoData {
			errs = append(errs, errors.New("demo data seeding is supported only for memory storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("%s is required", envJWTSecret))
	}
	if c.JWTAccessTTL <= 0 {
		errs = append(errs, errors.New("jwt access ttl must be > 0"))
	}
	if len(c.KafkaBrokers) > 0 && (c.KafkaTopic == "" || c.KafkaDLQTopic == "") {
		errs = append(errs, errors.New("kafka topics are required when brokers are set"))
	}
	return errors.Join(errs...)
}

// ParseBrokers разбирает список брокеров через запятую.
func ParseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func lookupTrimmed(lookup envLookup, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func setInt(lookup envLookup, key string, dst *int, valid func(int) bool, rule string, warn func(string, error)) {
	v, ok := lookupTrimmed(lookup, key)
	if !ok {
		return
	}
	parsed, err := parseInt(v, valid, rule)
	if err != nil {
		warn(key, err)
		return
	}
	*dst = parsed
}

func setDuration(lookup envLookup, key string, dst *time.Duration, valid func(time.Duration) bool, rule string, warn func(string, error)) {
	v, ok := lookupTrimmed(lookup, key)
	if !ok {
		return
	}
	parsed, err := parseDuration(v, valid, rule)
	if err != nil {
		warn(key, err)
		return
	}
	*dst = parsed
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %d %s", value, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %s %s", value, rule)
	}
	return value, nil
}
