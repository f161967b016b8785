// Package app собирает сервис foodcart: хранилище, бизнес-сервисы корзин и
// магазинов, gRPC-сервер, HTTP-эндпоинты метрик и health, фоновые воркеры.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/foodcart/internal/auth"
	healthcheck "github.com/vladislavdragonenkov/foodcart/internal/health"
	"github.com/vladislavdragonenkov/foodcart/internal/metrics"
	cartsvc "github.com/vladislavdragonenkov/foodcart/internal/service/cart"
	grpcsvc "github.com/vladislavdragonenkov/foodcart/internal/service/grpc"
	"github.com/vladislavdragonenkov/foodcart/internal/service/idempotency"
	"github.com/vladislavdragonenkov/foodcart/internal/service/outbox"
	storesvc "github.com/vladislavdragonenkov/foodcart/internal/service/store"
	"github.com/vladislavdragonenkov/foodcart/internal/version"
)

const (
	gracefulStopTimeout = 5 * time.Second
	// outboxMaxPendingAge: возраст самого старого события, после которого
	// /healthz отдаёт degraded.
	outboxMaxPendingAge = 5 * time.Minute
)

// Run запускает сервис и блокируется до отмены ctx или ошибки gRPC-сервера.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	if cfg.SeedDemoData {
		if err := seedDemoData(ctx, deps.transactor, logger); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	serviceMetrics := metrics.NewServiceMetrics()
	workerMetrics := metrics.NewWorkerMetrics()

	carts := cartsvc.NewService(deps.transactor,
		cartsvc.WithLogger(logger.WithField("component", "cart-service")),
		cartsvc.WithMetrics(serviceMetrics),
	)
	stores := storesvc.NewService(deps.transactor,
		storesvc.WithLogger(logger.WithField("component", "store-service")),
		storesvc.WithMetrics(serviceMetrics),
	)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTAccessTTL)

	grpcMetrics := registerGRPCMetrics(logger)
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		grpcMetrics.UnaryServerInterceptor(),
		grpcsvc.UnaryAuthInterceptor(tokens),
	))
	grpcsvc.NewServer(carts, stores,
		grpcsvc.WithLogger(logger.WithField("layer", "grpc")),
		grpcsvc.WithIdempotencyRepository(deps.idempotencyRepo),
	).Register(grpcServer)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	for _, service := range []string{"", grpcsvc.CartServiceName, grpcsvc.StoreServiceName} {
		healthServer.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)
	}
	// Схема foodorder.v1 лежит в protoregistry, grpcurl видит её через reflection.
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxBacklogChecker(deps.outboxRepo, cfg.OutboxMaxPending, outboxMaxPendingAge))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	publishers, err := initKafkaPublishers(cfg, logger)
	if err != nil {
		_ = lis.Close()
		return fmt.Errorf("init kafka: %w", err)
	}
	if publishers != nil {
		defer closeKafkaProducer(publishers.producer, logger)
	}

	workersCtx, stopWorkers := context.WithCancel(context.Background())
	workersDone := startWorkers(workersCtx, cfg, deps, publishers, workerMetrics, logger)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("version", version.String()).Infof("gRPC сервер слушает %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем gRPC сервер")
		for _, service := range []string{"", grpcsvc.CartServiceName, grpcsvc.StoreServiceName} {
			healthServer.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
		}
		stopGRPCServer(grpcServer, logger)
		shutdownHTTP(metricsSrv, logger)
		shutdownWorkers(stopWorkers, workersDone, logger)
		return ctx.Err()

	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		shutdownWorkers(stopWorkers, workersDone, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// registerGRPCMetrics регистрирует серверные метрики gRPC; повторный вызов
// переиспользует уже зарегистрированный коллектор.
func registerGRPCMetrics(logger *log.Entry) *promgrpc.ServerMetrics {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				return existing
			}
		}
		logger.WithError(err).Warn("failed to register grpc metrics")
	}
	return grpcMetrics
}

// startWorkers запускает outbox-воркер (если Kafka настроена) и очистку
// ключей идемпотентности. Возвращаемый канал закрывается после остановки всех воркеров.
func startWorkers(
	ctx context.Context,
	cfg Config,
	deps *runtimeDeps,
	publishers *kafkaPublishers,
	workerMetrics *metrics.WorkerMetrics,
	logger *log.Entry,
) <-chan struct{} {
	var wg sync.WaitGroup

	if publishers != nil {
		worker := outbox.NewWorker(deps.outboxRepo, publishers.events,
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithMetrics(workerMetrics),
			outbox.WithDLQPublisher(publishers.dlq),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}

	cleanup := idempotency.NewCleanupWorker(deps.idempotencyRepo,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
		idempotency.WithMetrics(workerMetrics),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanup.Run(ctx)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// shutdownWorkers отменяет контекст воркеров и ждёт их завершения.
func shutdownWorkers(cancel context.CancelFunc, done <-chan struct{}, logger *log.Entry) {
	if cancel != nil {
		cancel()
	}
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info("background workers stopped")
	case <-time.After(gracefulStopTimeout):
		logger.Warn("background workers did not stop in time")
	}
}

// stopGRPCServer пытается остановиться штатно и обрывает соединения по таймауту.
func stopGRPCServer(srv *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(gracefulStopTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		srv.Stop()
	}
}

// startMetricsServer запускает HTTP-сервер с /metrics и health-пробами.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	healthHandler.Routes(mux)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulStopTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
