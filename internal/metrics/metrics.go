// Package metrics holds the prometheus collectors recorded by the order and
// catalog engines. A nil *Collector is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	ordersCreated    prometheus.Counter
	orderTransitions *prometheus.CounterVec
	productsSold     prometheus.Counter
	productViews     prometheus.Counter
	productRatings   prometheus.Counter
	stockAdjustments *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
}

// New registers the collectors with prometheus.DefaultRegisterer.
func New() *Collector {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Collector{
		ordersCreated: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retail_orders_created_total",
			Help: "Total number of orders created",
		})),
		orderTransitions: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retail_order_transitions_total",
			Help: "Order status and payment status changes by operation and resulting status",
		}, []string{"operation", "status"})),
		productsSold: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retail_products_sold_total",
			Help: "Units recorded as sold across all products",
		})),
		productViews: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retail_product_views_total",
			Help: "Product views recorded",
		})),
		productRatings: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "retail_product_ratings_total",
			Help: "Ratings folded into product averages",
		})),
		stockAdjustments: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retail_stock_adjustments_total",
			Help: "Stock quantity adjustments by direction",
		}, []string{"direction"})),
		operationLatency: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "retail_engine_operation_duration_seconds",
			Help:    "Duration of engine operations including the store round-trip",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"operation"})),
	}
}

// register returns the already-registered collector when one with the same
// descriptor exists, so engines can be constructed more than once per process.
func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	if err := registerer.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := already.ExistingCollector.(T)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type %T", already.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return collector
}

func (c *Collector) OrderCreated() {
	if c == nil {
		return
	}
	c.ordersCreated.Inc()
}

func (c *Collector) OrderTransition(operation, status string) {
	if c == nil {
		return
	}
	c.orderTransitions.WithLabelValues(operation, status).Inc()
}

func (c *Collector) UnitsSold(quantity int) {
	if c == nil || quantity <= 0 {
		return
	}
	c.productsSold.Add(float64(quantity))
}

func (c *Collector) ProductViewed() {
	if c == nil {
		return
	}
	c.productViews.Inc()
}

func (c *Collector) ProductRated() {
	if c == nil {
		return
	}
	c.productRatings.Inc()
}

func (c *Collector) StockAdjusted(delta int) {
	if c == nil || delta == 0 {
		return
	}
	direction := "increase"
	if delta < 0 {
		direction = "decrease"
	}
	c.stockAdjustments.WithLabelValues(direction).Inc()
}

// ObserveSince records the time elapsed since start under operation.
func (c *Collector) ObserveSince(operation string, start time.Time) {
	if c == nil {
		return
	}
	c.operationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
