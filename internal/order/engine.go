// Package order implements the order lifecycle: creation and total
// computation, fulfillment and payment status changes, cancellation, returns
// and refunds, and revenue statistics.
//
// Every mutating operation is a single load, check, compute, save sequence
// against the Repository. The engine holds no state between calls and never
// retries.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/safar/retail-store/internal/errs"
	"github.com/safar/retail-store/internal/logging"
	"github.com/safar/retail-store/internal/metrics"
	"github.com/safar/retail-store/internal/models"
)

var maxPercent = decimal.NewFromInt(100)

type Engine struct {
	repo    Repository
	policy  TransitionPolicy
	logger  *log.Entry
	metrics *metrics.Collector
}

type Option func(*Engine)

func WithTransitionPolicy(p TransitionPolicy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

func WithLogger(logger *log.Entry) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(repo Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:   repo,
		policy: Permissive,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithField("component", "order_engine")
	return e
}

// CreateOrder normalizes absent amounts to zero, prices every line, derives
// the total and persists the order as PENDING / payment PENDING.
func (e *Engine) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	defer e.metrics.ObserveSince("create_order", time.Now())

	if err := models.Validate(req); err != nil {
		return nil, err
	}
	if req.ShippingMethod != "" && !req.ShippingMethod.Valid() {
		return nil, errs.Validationf("unknown shipping method %q", req.ShippingMethod)
	}

	o := &models.Order{
		UserID:            req.UserID,
		Status:            models.OrderStatusPending,
		PaymentStatus:     models.PaymentStatusPending,
		Subtotal:          models.OrZero(req.Subtotal),
		TaxAmount:         models.OrZero(req.TaxAmount),
		ShippingCost:      models.OrZero(req.ShippingCost),
		DiscountAmount:    models.OrZero(req.DiscountAmount),
		ShippingMethod:    req.ShippingMethod,
		EstimatedDelivery: req.EstimatedDelivery,
		Notes:             req.Notes,
	}
	if err := checkAmounts(o); err != nil {
		return nil, err
	}

	o.Items = make([]models.OrderItem, 0, len(req.Items))
	for i, line := range req.Items {
		item, err := newItem(i, line)
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}

	if total := o.RecalculateTotal(); total.IsNegative() {
		return nil, errs.Validationf("total_amount would be negative (%s)", total.StringFixed(models.MoneyPlaces))
	}

	exists, err := e.repo.UserExists(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errs.NotFound("user")
	}

	if err := e.repo.CreateOrder(ctx, o); err != nil {
		e.logger.WithError(err).WithField("user_id", req.UserID).Warn("create order failed")
		return nil, err
	}

	e.metrics.OrderCreated()
	e.logger.WithFields(log.Fields{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"user_id":      o.UserID,
		"total":        o.TotalAmount.StringFixed(models.MoneyPlaces),
		"items":        len(o.Items),
	}).Info("order created")

	return o, nil
}

func newItem(idx int, line models.OrderItemRequest) (models.OrderItem, error) {
	if err := models.CheckMoney(fmt.Sprintf("items[%d].unit_price", idx), line.UnitPrice); err != nil {
		return models.OrderItem{}, err
	}
	pct := line.DiscountPercentage
	if pct.IsNegative() || pct.GreaterThan(maxPercent) {
		return models.OrderItem{}, errs.Validationf("items[%d].discount_percentage must be within [0,100], got %s", idx, pct.String())
	}

	item := models.OrderItem{
		ProductID:          line.ProductID,
		Quantity:           line.Quantity,
		UnitPrice:          line.UnitPrice,
		DiscountPercentage: pct,
	}
	item.RecalculateTotal()
	return item, nil
}

func checkAmounts(o *models.Order) error {
	amounts := []struct {
		name  string
		value decimal.Decimal
	}{
		{"subtotal", o.Subtotal},
		{"tax_amount", o.TaxAmount},
		{"shipping_cost", o.ShippingCost},
		{"discount_amount", o.DiscountAmount},
	}
	for _, a := range amounts {
		if err := models.CheckMoney(a.name, a.value); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return e.repo.GetOrder(ctx, id)
}

func (e *Engine) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	return e.repo.GetOrderByNumber(ctx, number)
}

// mutate loads the order, applies fn and writes the result back. fn errors
// abort before anything is persisted.
func (e *Engine) mutate(ctx context.Context, op string, id int64, fn func(o *models.Order) error) (*models.Order, error) {
	defer e.metrics.ObserveSince(op, time.Now())

	o, err := e.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(o); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{"order_id": id, "operation": op}).Warn("order operation rejected")
		return nil, err
	}

	if err := e.repo.UpdateOrder(ctx, o); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{"order_id": id, "operation": op}).Warn("order save failed")
		return nil, err
	}

	e.logger.WithFields(log.Fields{
		"order_id":       o.ID,
		"operation":      op,
		"status":         o.Status,
		"payment_status": o.PaymentStatus,
	}).Info("order updated")

	return o, nil
}
