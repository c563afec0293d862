package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/retail-store/internal/database"
	"github.com/safar/retail-store/internal/models"
)

func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	defer s.lock()()

	if _, ok := s.data.users[o.UserID]; !ok {
		return database.ErrUserNotFound
	}
	for _, item := range o.Items {
		if _, ok := s.data.products[item.ProductID]; !ok {
			return database.ErrProductNotFound
		}
	}

	s.data.nextOrderID++
	now := s.now()
	o.ID = s.data.nextOrderID
	o.OrderNumber = models.NewOrderNumber(now)
	o.CreatedAt = now
	o.UpdatedAt = now
	o.Version = 1
	for i := range o.Items {
		s.data.nextItemID++
		o.Items[i].ID = s.data.nextItemID
		o.Items[i].OrderID = o.ID
		o.Items[i].CreatedAt = now
	}

	s.data.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	defer s.lock()()

	o, ok := s.data.orders[id]
	if !ok {
		return nil, database.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *Store) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	defer s.lock()()

	for _, o := range s.data.orders {
		if o.OrderNumber == number {
			return cloneOrder(o), nil
		}
	}
	return nil, database.ErrOrderNotFound
}

// UpdateOrder writes the header fields. Owner, number, creation time and
// items keep their stored values.
func (s *Store) UpdateOrder(ctx context.Context, o *models.Order) error {
	defer s.lock()()

	stored, ok := s.data.orders[o.ID]
	if !ok {
		return database.ErrOrderNotFound
	}
	if stored.Version != o.Version {
		return database.ErrOptimisticLockFailed
	}

	o.Version++
	o.UpdatedAt = s.now()
	o.UserID = stored.UserID
	o.OrderNumber = stored.OrderNumber
	o.CreatedAt = stored.CreatedAt

	next := cloneOrder(o)
	next.Items = stored.Items
	s.data.orders[o.ID] = next
	return nil
}

func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter, page models.PageRequest) (*models.Page[models.Order], error) {
	if err := page.CheckSort(models.OrderSortFields); err != nil {
		return nil, err
	}

	defer s.lock()()

	orders := s.matchOrders(filter)
	slices.SortFunc(orders, func(a, b models.Order) int {
		c := compareOrderField(page.SortField, a, b)
		if page.SortDesc {
			c = -c
		}
		return cmp.Or(c, cmp.Compare(a.ID, b.ID))
	})
	for i := range orders {
		orders[i] = *cloneOrder(&orders[i])
	}
	return window(orders, page), nil
}

func (s *Store) CountOrders(ctx context.Context, filter models.OrderFilter) (int64, error) {
	defer s.lock()()

	return int64(len(s.matchOrders(filter))), nil
}

func (s *Store) ListOrdersAfter(ctx context.Context, userID int64, after models.OrderCursor, limit int) ([]models.Order, error) {
	defer s.lock()()

	var orders []models.Order
	for _, o := range s.data.orders {
		if o.UserID == userID && after.After(o) {
			orders = append(orders, *cloneOrder(o))
		}
	}
	slices.SortFunc(orders, func(a, b models.Order) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Store) OrderTotalsBetween(ctx context.Context, start, end time.Time) ([]models.StatusTotal, error) {
	defer s.lock()()

	byStatus := make(map[models.OrderStatus]*models.StatusTotal)
	for _, o := range s.data.orders {
		if o.CreatedAt.Before(start) || o.CreatedAt.After(end) {
			continue
		}
		t, ok := byStatus[o.Status]
		if !ok {
			t = &models.StatusTotal{Status: o.Status, Revenue: decimal.Zero}
			byStatus[o.Status] = t
		}
		t.Count++
		t.Revenue = t.Revenue.Add(o.TotalAmount)
	}

	totals := make([]models.StatusTotal, 0, len(byStatus))
	for _, status := range models.OrderStatuses {
		if t, ok := byStatus[status]; ok {
			totals = append(totals, *t)
		}
	}
	return totals, nil
}

func (s *Store) matchOrders(f models.OrderFilter) []models.Order {
	tracking := strings.ToLower(f.TrackingContains)

	var out []models.Order
	for _, o := range s.data.orders {
		switch {
		case f.UserID != nil && o.UserID != *f.UserID,
			f.Status != nil && o.Status != *f.Status,
			f.PaymentStatus != nil && o.PaymentStatus != *f.PaymentStatus,
			f.ShippingMethod != nil && o.ShippingMethod != *f.ShippingMethod,
			f.CreatedFrom != nil && o.CreatedAt.Before(*f.CreatedFrom),
			f.CreatedTo != nil && o.CreatedAt.After(*f.CreatedTo),
			f.MinAmount != nil && o.TotalAmount.LessThan(*f.MinAmount),
			f.MaxAmount != nil && o.TotalAmount.GreaterThan(*f.MaxAmount),
			tracking != "" && !strings.Contains(strings.ToLower(o.TrackingNumber), tracking),
			f.NeedingAttention && !needsAttention(o):
			continue
		}
		out = append(out, *o)
	}
	return out
}

func needsAttention(o *models.Order) bool {
	return o.Status == models.OrderStatusPending ||
		o.Status == models.OrderStatusProcessing ||
		o.PaymentStatus == models.PaymentStatusPending
}

func compareOrderField(field string, a, b models.Order) int {
	switch field {
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "order_number":
		return strings.Compare(a.OrderNumber, b.OrderNumber)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "total_amount":
		return a.TotalAmount.Cmp(b.TotalAmount)
	case "id":
		return cmp.Compare(a.ID, b.ID)
	}
	return 0
}
