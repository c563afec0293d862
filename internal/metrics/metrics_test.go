package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewWithRegisterer(reg)

	c.OrderCreated()
	c.OrderCreated()
	c.OrderTransition("cancel", "CANCELLED")
	c.UnitsSold(3)
	c.UnitsSold(0)
	c.ProductViewed()
	c.ProductRated()
	c.StockAdjusted(-2)
	c.StockAdjusted(5)
	c.StockAdjusted(0)
	c.ObserveSince("ship_order", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ordersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.orderTransitions.WithLabelValues("cancel", "CANCELLED")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.productsSold))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.productViews))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.productRatings))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stockAdjustments.WithLabelValues("decrease")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stockAdjustments.WithLabelValues("increase")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestCollectorReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewWithRegisterer(reg)
	second := NewWithRegisterer(reg)

	first.OrderCreated()
	second.OrderCreated()

	assert.Equal(t, 2.0, testutil.ToFloat64(first.ordersCreated))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.OrderCreated()
		c.OrderTransition("ship", "SHIPPED")
		c.UnitsSold(1)
		c.ProductViewed()
		c.ProductRated()
		c.StockAdjusted(1)
		c.ObserveSince("noop", time.Now())
	})
}
