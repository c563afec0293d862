package order

import (
	"context"
	"time"

	"github.com/safar/retail-store/internal/models"
)

// Repository is the persistence collaborator for orders. Implementations
// return errors wrapping errs.ErrNotFound for unknown ids and errs.ErrConflict
// when a write loses an optimistic-version race.
type Repository interface {
	UserExists(ctx context.Context, userID int64) (bool, error)

	// CreateOrder assigns ID, OrderNumber, item IDs and timestamps.
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	// UpdateOrder persists the order header; items are immutable after creation.
	UpdateOrder(ctx context.Context, order *models.Order) error

	ListOrders(ctx context.Context, filter models.OrderFilter, page models.PageRequest) (*models.Page[models.Order], error)
	CountOrders(ctx context.Context, filter models.OrderFilter) (int64, error)
	// ListOrdersAfter returns up to limit of the user's orders positioned
	// after the cursor, newest first.
	ListOrdersAfter(ctx context.Context, userID int64, after models.OrderCursor, limit int) ([]models.Order, error)
	// OrderTotalsBetween groups orders created in [start, end] by status.
	OrderTotalsBetween(ctx context.Context, start, end time.Time) ([]models.StatusTotal, error)
}
