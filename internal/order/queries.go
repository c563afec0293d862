package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/retail-store/internal/errs"
	"github.com/safar/retail-store/internal/models"
)

// GetOrderStatistics aggregates orders created in [start, end].
// TotalItemsSold is always zero.
func (e *Engine) GetOrderStatistics(ctx context.Context, start, end time.Time) (*models.OrderStats, error) {
	defer e.metrics.ObserveSince("order_statistics", time.Now())

	if start.After(end) {
		return nil, errs.Validationf("start %s is after end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	totals, err := e.repo.OrderTotalsBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	stats := &models.OrderStats{
		TotalRevenue:      decimal.Zero,
		AverageOrderValue: decimal.Zero,
	}
	for _, t := range totals {
		stats.TotalOrders += t.Count
		stats.TotalRevenue = stats.TotalRevenue.Add(t.Revenue)
		switch t.Status {
		case models.OrderStatusPending:
			stats.PendingOrders = t.Count
		case models.OrderStatusProcessing:
			stats.ProcessingOrders = t.Count
		case models.OrderStatusShipped:
			stats.ShippedOrders = t.Count
		case models.OrderStatusDelivered:
			stats.DeliveredOrders = t.Count
		case models.OrderStatusCancelled:
			stats.CancelledOrders = t.Count
		case models.OrderStatusRefunded:
			stats.RefundedOrders = t.Count
		}
	}
	stats.AverageOrderValue = average(stats.TotalRevenue, stats.TotalOrders)

	return stats, nil
}

func average(sum decimal.Decimal, n int64) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return sum.DivRound(decimal.NewFromInt(n), models.MoneyPlaces)
}

func (e *Engine) ListOrders(ctx context.Context, filter models.OrderFilter, page models.PageRequest) (*models.Page[models.Order], error) {
	if err := checkFilter(filter); err != nil {
		return nil, err
	}
	return e.repo.ListOrders(ctx, filter, page)
}

func checkFilter(f models.OrderFilter) error {
	if f.MinAmount != nil && f.MaxAmount != nil && f.MinAmount.GreaterThan(*f.MaxAmount) {
		return errs.Validationf("min amount %s exceeds max amount %s", f.MinAmount, f.MaxAmount)
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedFrom.After(*f.CreatedTo) {
		return errs.Validationf("created_from is after created_to")
	}
	if f.Status != nil && !f.Status.Valid() {
		return errs.Validationf("unknown order status %q", *f.Status)
	}
	if f.PaymentStatus != nil && !f.PaymentStatus.Valid() {
		return errs.Validationf("unknown payment status %q", *f.PaymentStatus)
	}
	if f.ShippingMethod != nil && !f.ShippingMethod.Valid() {
		return errs.Validationf("unknown shipping method %q", *f.ShippingMethod)
	}
	return nil
}

func (e *Engine) OrdersNeedingAttention(ctx context.Context, page models.PageRequest) (*models.Page[models.Order], error) {
	return e.repo.ListOrders(ctx, models.OrderFilter{NeedingAttention: true}, page)
}

func (e *Engine) SearchByTrackingNumber(ctx context.Context, fragment string, page models.PageRequest) (*models.Page[models.Order], error) {
	if fragment == "" {
		return nil, errs.Validationf("tracking number fragment is required")
	}
	return e.repo.ListOrders(ctx, models.OrderFilter{TrackingContains: fragment}, page)
}

func (e *Engine) OrdersForUser(ctx context.Context, userID int64, page models.PageRequest) (*models.Page[models.Order], error) {
	return e.repo.ListOrders(ctx, models.OrderFilter{UserID: &userID}, page)
}

// OrderFeed pages through a user's orders newest first using an opaque cursor.
func (e *Engine) OrderFeed(ctx context.Context, userID int64, cursor string, limit int) (*models.CursorPage[models.Order], error) {
	after, err := models.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = models.DefaultPageSize
	}
	limit = min(limit, models.MaxPageSize)

	orders, err := e.repo.ListOrdersAfter(ctx, userID, after, limit+1)
	if err != nil {
		return nil, err
	}

	page := &models.CursorPage[models.Order]{Items: orders, HasMore: len(orders) > limit}
	if page.HasMore {
		page.Items = orders[:limit]
		last := page.Items[len(page.Items)-1]
		page.NextCursor = models.EncodeCursor(models.OrderCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	if page.Items == nil {
		page.Items = []models.Order{}
	}
	return page, nil
}

func (e *Engine) CountByStatus(ctx context.Context, status models.OrderStatus) (int64, error) {
	if !status.Valid() {
		return 0, errs.Validationf("unknown order status %q", status)
	}
	return e.repo.CountOrders(ctx, models.OrderFilter{Status: &status})
}

func (e *Engine) CountByPaymentStatus(ctx context.Context, status models.PaymentStatus) (int64, error) {
	if !status.Valid() {
		return 0, errs.Validationf("unknown payment status %q", status)
	}
	return e.repo.CountOrders(ctx, models.OrderFilter{PaymentStatus: &status})
}

// GetTotalRevenue sums total_amount over orders created in [start, end],
// whatever their status.
func (e *Engine) GetTotalRevenue(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	stats, err := e.GetOrderStatistics(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	return stats.TotalRevenue, nil
}

func (e *Engine) GetAverageOrderValue(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	stats, err := e.GetOrderStatistics(ctx, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	return stats.AverageOrderValue, nil
}
