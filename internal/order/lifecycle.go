package order

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/retail-store/internal/errs"
	"github.com/safar/retail-store/internal/models"
)

// UpdateOrderStatus overwrites the fulfillment status, subject only to the
// engine's TransitionPolicy.
func (e *Engine) UpdateOrderStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, errs.Validationf("unknown order status %q", status)
	}
	o, err := e.mutate(ctx, "update_status", id, func(o *models.Order) error {
		if !e.policy.AllowStatus(o.Status, status) {
			return errs.InvalidStatef("order status cannot change from %s to %s", o.Status, status)
		}
		o.Status = status
		return nil
	})
	if err == nil {
		e.metrics.OrderTransition("update_status", string(status))
	}
	return o, err
}

func (e *Engine) UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, errs.Validationf("unknown payment status %q", status)
	}
	o, err := e.mutate(ctx, "update_payment_status", id, func(o *models.Order) error {
		if !e.policy.AllowPayment(o.PaymentStatus, status) {
			return errs.InvalidStatef("payment status cannot change from %s to %s", o.PaymentStatus, status)
		}
		o.PaymentStatus = status
		return nil
	})
	if err == nil {
		e.metrics.OrderTransition("update_payment_status", string(status))
	}
	return o, err
}

// CancelOrder moves a PENDING or PROCESSING order to CANCELLED. The reason
// replaces any existing notes.
func (e *Engine) CancelOrder(ctx context.Context, id int64, reason string) (*models.Order, error) {
	o, err := e.mutate(ctx, "cancel_order", id, func(o *models.Order) error {
		if !o.CanBeCancelled() {
			return errs.InvalidStatef("order %s cannot be cancelled in status %s", o.OrderNumber, o.Status)
		}
		o.Status = models.OrderStatusCancelled
		o.Notes = reason
		return nil
	})
	if err == nil {
		e.metrics.OrderTransition("cancel_order", string(models.OrderStatusCancelled))
	}
	return o, err
}

// DeleteOrder is a soft delete: the order becomes CANCELLED whatever its state.
func (e *Engine) DeleteOrder(ctx context.Context, id int64) error {
	_, err := e.mutate(ctx, "delete_order", id, func(o *models.Order) error {
		o.Status = models.OrderStatusCancelled
		return nil
	})
	if err == nil {
		e.metrics.OrderTransition("delete_order", string(models.OrderStatusCancelled))
	}
	return err
}

// ProcessPayment marks the order PAID. The method is required but not stored.
func (e *Engine) ProcessPayment(ctx context.Context, id int64, method string) (*models.Order, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, errs.Validationf("payment method is required")
	}
	o, err := e.mutate(ctx, "process_payment", id, func(o *models.Order) error {
		o.PaymentStatus = models.PaymentStatusPaid
		return nil
	})
	if err == nil {
		e.metrics.OrderTransition("process_payment", string(models.PaymentStatusPaid))
		e.logger.WithField("order_id", id).WithField("payment_method", method).Debug("payment recorded")
	}
	return o, err
}

// ShipOrder sets SHIPPED with the carrier details, whatever the prior status.
func (e *Engine) ShipOrder(ctx context.Context, id int64, tracking string, method models.ShippingMethod) (*models.Order, error) {
	if !method.Valid() {
		return nil, errs.Validationf("unknown shipping method %q", method)
	}
	o, err := e.mutate(ctx, "ship_order", id, func(o *models.Order) error {
		o.Status = models.OrderStatusShipped
		o.TrackingNumber = tracking
		o.ShippingMethod = method
		return nil
	})
	if err == nil {
		e.metrics.OrderTransition("ship_order", string(models.OrderStatusShipped))
	}
	return o, err
}

func (e *Engine) DeliverOrder(ctx context.Context, id int64) (*models.Order, error) {
	o, err := e.mutate(ctx, "deliver_order", id, func(o *models.Order) error {
		o.Status = models.OrderStatusDelivered
		return nil
	})
	if err == nil {
		e.metrics.OrderTransition("deliver_order", string(models.OrderStatusDelivered))
	}
	return o, err
}

// ReturnOrder sets the fulfillment status to REFUNDED and replaces notes.
func (e *Engine) ReturnOrder(ctx context.Context, id int64, reason string) (*models.Order, error) {
	o, err := e.mutate(ctx, "return_order", id, func(o *models.Order) error {
		o.Status = models.OrderStatusRefunded
		o.Notes = reason
		return nil
	})
	if err == nil {
		e.metrics.OrderTransition("return_order", string(models.OrderStatusRefunded))
	}
	return o, err
}

// RefundOrder sets the payment status to REFUNDED and replaces notes. The
// amount is checked for shape only; there is no refund ledger to reconcile
// it against.
func (e *Engine) RefundOrder(ctx context.Context, id int64, amount decimal.Decimal, reason string) (*models.Order, error) {
	if err := models.CheckMoney("refund amount", amount); err != nil {
		return nil, err
	}
	o, err := e.mutate(ctx, "refund_order", id, func(o *models.Order) error {
		o.PaymentStatus = models.PaymentStatusRefunded
		o.Notes = reason
		return nil
	})
	if err == nil {
		e.metrics.OrderTransition("refund_order", string(models.PaymentStatusRefunded))
		e.logger.WithField("order_id", id).WithField("amount", amount.StringFixed(models.MoneyPlaces)).Debug("refund recorded")
	}
	return o, err
}

func (e *Engine) UpdateTrackingNumber(ctx context.Context, id int64, tracking string) (*models.Order, error) {
	return e.mutate(ctx, "update_tracking", id, func(o *models.Order) error {
		o.TrackingNumber = tracking
		return nil
	})
}

func (e *Engine) UpdateEstimatedDelivery(ctx context.Context, id int64, at time.Time) (*models.Order, error) {
	return e.mutate(ctx, "update_estimated_delivery", id, func(o *models.Order) error {
		o.EstimatedDelivery = &at
		return nil
	})
}

// UpdateOrder replaces the mutable header fields and recomputes the total.
// Owner, order number and items are left untouched.
func (e *Engine) UpdateOrder(ctx context.Context, id int64, req models.UpdateOrderRequest) (*models.Order, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, errs.Validationf("unknown order status %q", req.Status)
	}
	if !req.PaymentStatus.Valid() {
		return nil, errs.Validationf("unknown payment status %q", req.PaymentStatus)
	}
	if req.ShippingMethod != "" && !req.ShippingMethod.Valid() {
		return nil, errs.Validationf("unknown shipping method %q", req.ShippingMethod)
	}

	return e.mutate(ctx, "update_order", id, func(o *models.Order) error {
		if !e.policy.AllowStatus(o.Status, req.Status) {
			return errs.InvalidStatef("order status cannot change from %s to %s", o.Status, req.Status)
		}
		if !e.policy.AllowPayment(o.PaymentStatus, req.PaymentStatus) {
			return errs.InvalidStatef("payment status cannot change from %s to %s", o.PaymentStatus, req.PaymentStatus)
		}

		o.Subtotal = models.OrZero(req.Subtotal)
		o.TaxAmount = models.OrZero(req.TaxAmount)
		o.ShippingCost = models.OrZero(req.ShippingCost)
		o.DiscountAmount = models.OrZero(req.DiscountAmount)
		if err := checkAmounts(o); err != nil {
			return err
		}
		if total := o.RecalculateTotal(); total.IsNegative() {
			return errs.Validationf("total_amount would be negative (%s)", total.StringFixed(models.MoneyPlaces))
		}

		o.Status = req.Status
		o.PaymentStatus = req.PaymentStatus
		o.ShippingMethod = req.ShippingMethod
		o.TrackingNumber = req.TrackingNumber
		o.EstimatedDelivery = req.EstimatedDelivery
		o.Notes = req.Notes
		return nil
	})
}

// CalculateOrderTotal recomputes and persists the total. Repeated calls
// produce the same value.
func (e *Engine) CalculateOrderTotal(ctx context.Context, id int64) (decimal.Decimal, error) {
	o, err := e.mutate(ctx, "calculate_total", id, func(o *models.Order) error {
		o.RecalculateTotal()
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return o.TotalAmount, nil
}

func (e *Engine) CanBeCancelled(ctx context.Context, id int64) (bool, error) {
	o, err := e.repo.GetOrder(ctx, id)
	if err != nil {
		return false, err
	}
	return o.CanBeCancelled(), nil
}

func (e *Engine) CanBeReturned(ctx context.Context, id int64) (bool, error) {
	o, err := e.repo.GetOrder(ctx, id)
	if err != nil {
		return false, err
	}
	return o.IsDelivered(), nil
}
