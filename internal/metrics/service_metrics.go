package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/foodcart/internal/domain"
)

// Значения метки result.
const (
	ResultOK           = "ok"
	ResultNotFound     = "not_found"
	ResultUnauthorized = "unauthorized"
	ResultConflict     = "conflict"
	ResultValidation   = "validation"
	ResultError        = "error"
)

// ServiceMetrics содержит метрики бизнес-операций корзин и магазинов.
// Nil-значение безопасно: все методы становятся no-op.
type ServiceMetrics struct {
	// Счётчики операций
	operations *prometheus.CounterVec
	inFlight   prometheus.Gauge

	// Гистограммы времени выполнения
	operationDuration *prometheus.HistogramVec

	cartsCreated prometheus.Counter
	cartsOrdered prometheus.Counter
	orderValue   prometheus.Histogram
	outboxEvents *prometheus.CounterVec
}

// NewServiceMetrics создаёт метрики в DefaultRegisterer.
func NewServiceMetrics() *ServiceMetrics {
	return NewServiceMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewServiceMetricsWithRegisterer создаёт метрики в указанном registerer.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewServiceMetricsWithRegisterer(registerer prometheus.Registerer) *ServiceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ServiceMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "foodcart_operations_total",
			Help: "Total number of cart and store operations by result",
		}, []string{"service", "operation", "result"}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "foodcart_operations_in_flight",
			Help: "Number of cart and store operations currently executing",
		}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "foodcart_operation_duration_seconds",
			Help:    "Duration of cart and store operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"service", "operation"}),
		cartsCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "foodcart_carts_created_total",
			Help: "Total number of carts created",
		}),
		cartsOrdered: registerCounter(registerer, prometheus.CounterOpts{
			Name: "foodcart_carts_ordered_total",
			Help: "Total number of carts converted into orders",
		}),
		orderValue: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "foodcart_order_value_minor",
			Help:    "Total price of ordered carts in minor currency units",
			Buckets: prometheus.ExponentialBuckets(100, 2, 12),
		}),
		outboxEvents: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "foodcart_outbox_events_enqueued_total",
			Help: "Total number of events written to the transactional outbox",
		}, []string{"event_type"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// ResultLabel возвращает значение метки result по категории ошибки.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case domain.IsNotFound(err):
		return ResultNotFound
	case domain.IsUnauthorized(err):
		return ResultUnauthorized
	case domain.IsConflict(err):
		return ResultConflict
	case domain.IsValidation(err):
		return ResultValidation
	default:
		return ResultError
	}
}

// OperationStarted увеличивает количество выполняющихся операций
// и возвращает функцию, которая фиксирует результат и длительность.
func (m *ServiceMetrics) OperationStarted(service, operation string) func(err error) {
	if m == nil {
		return func(error) {}
	}

	started := time.Now()
	m.inFlight.Inc()
	return func(err error) {
		m.inFlight.Dec()
		m.operations.WithLabelValues(service, operation, ResultLabel(err)).Inc()
		m.operationDuration.WithLabelValues(service, operation).Observe(time.Since(started).Seconds())
	}
}

// RecordCartCreated увеличивает счётчик созданных корзин.
func (m *ServiceMetrics) RecordCartCreated() {
	if m == nil {
		return
	}
	m.cartsCreated.Inc()
}

// RecordCartOrdered увеличивает счётчик оформленных корзин и записывает сумму заказа.
func (m *ServiceMetrics) RecordCartOrdered(totalPriceMinor int64) {
	if m == nil {
		return
	}
	m.cartsOrdered.Inc()
	m.orderValue.Observe(float64(totalPriceMinor))
}

// RecordOutboxEvent увеличивает счётчик событий, записанных в outbox.
func (m *ServiceMetrics) RecordOutboxEvent(eventType string) {
	if m == nil {
		return
	}
	m.outboxEvents.WithLabelValues(eventType).Inc()
}
