package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/safar/retail-store/internal/database"
	"github.com/safar/retail-store/internal/models"
)

const orderColumns = `
	id, user_id, order_number, status, payment_status, subtotal, tax_amount, shipping_cost,
	discount_amount, total_amount, COALESCE(shipping_method, ''), COALESCE(tracking_number, ''),
	estimated_delivery, notes, created_at, updated_at, version`

const itemColumns = `id, order_id, product_id, quantity, unit_price, discount_percentage, total_price, created_at`

func scanOrder(row interface{ Scan(...any) error }, o *models.Order) error {
	var eta sql.NullTime
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.OrderNumber,
		&o.Status,
		&o.PaymentStatus,
		&o.Subtotal,
		&o.TaxAmount,
		&o.ShippingCost,
		&o.DiscountAmount,
		&o.TotalAmount,
		&o.ShippingMethod,
		&o.TrackingNumber,
		&eta,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
		&o.Version,
	)
	if err != nil {
		return err
	}
	o.EstimatedDelivery = nil
	if eta.Valid {
		o.EstimatedDelivery = &eta.Time
	}
	return nil
}

func scanItem(row interface{ Scan(...any) error }, item *models.OrderItem) error {
	return row.Scan(
		&item.ID,
		&item.OrderID,
		&item.ProductID,
		&item.Quantity,
		&item.UnitPrice,
		&item.DiscountPercentage,
		&item.TotalPrice,
		&item.CreatedAt,
	)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// CreateOrder inserts the order header and its items. The caller has already
// priced every line and computed the header amounts.
func CreateOrder(ctx context.Context, tx database.Querier, o *models.Order) error {
	exists, err := UserExists(ctx, tx, o.UserID)
	if err != nil {
		return err
	}
	if !exists {
		return database.ErrUserNotFound
	}

	productIDs := slices.Sorted(maps.Keys(o.ItemQuantities()))
	var found int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE id = ANY($1)`,
		pq.Array(productIDs)).Scan(&found)
	if err != nil {
		return fmt.Errorf("check products exist: %w", err)
	}
	if found != len(productIDs) {
		return database.ErrProductNotFound
	}

	query := `
		INSERT INTO orders (
			user_id, order_number, status, payment_status, subtotal, tax_amount, shipping_cost,
			discount_amount, total_amount, shipping_method, tracking_number, estimated_delivery,
			notes, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12, $13, NOW(), NOW(), 1)
		RETURNING ` + orderColumns

	items := o.Items
	err = scanOrder(tx.QueryRowContext(ctx, query,
		o.UserID, models.NewOrderNumber(time.Now()), o.Status, o.PaymentStatus, o.Subtotal, o.TaxAmount, o.ShippingCost,
		o.DiscountAmount, o.TotalAmount, o.ShippingMethod, o.TrackingNumber, nullTime(o.EstimatedDelivery),
		o.Notes,
	), o)
	if err != nil {
		return fmt.Errorf("create order: %w", database.Translate(err))
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, discount_percentage, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING ` + itemColumns

	o.Items = make([]models.OrderItem, len(items))
	for i, item := range items {
		err := scanItem(tx.QueryRowContext(ctx, itemQuery,
			o.ID, item.ProductID, item.Quantity, item.UnitPrice, item.DiscountPercentage, item.TotalPrice,
		), &o.Items[i])
		if err != nil {
			return fmt.Errorf("create order item: %w", database.Translate(err))
		}
	}

	return nil
}

func getOrderBy(ctx context.Context, q database.Querier, column string, value any, suffix string) (*models.Order, error) {
	o := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + column + ` = $1` + suffix

	if err := scanOrder(q.QueryRowContext(ctx, query, value), o); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order by %s: %w", column, err)
	}

	items, err := loadItems(ctx, q, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

func GetOrder(ctx context.Context, q database.Querier, id int64) (*models.Order, error) {
	return getOrderBy(ctx, q, "id", id, "")
}

func GetOrderByNumber(ctx context.Context, q database.Querier, number string) (*models.Order, error) {
	return getOrderBy(ctx, q, "order_number", number, "")
}

// LockOrder reads an order and holds its row lock until the transaction ends.
func LockOrder(ctx context.Context, tx database.Querier, id int64) (*models.Order, error) {
	return getOrderBy(ctx, tx, "id", id, " FOR UPDATE")
}

// loadItems fetches the items of every listed order in one round trip.
func loadItems(ctx context.Context, q database.Querier, orderIDs []int64) (map[int64][]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id`,
		pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64][]models.OrderItem, len(orderIDs))
	for rows.Next() {
		var item models.OrderItem
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return items, nil
}

// UpdateOrderOptimistic writes the order header when the stored version still
// matches o.Version. Items, owner and order number are never rewritten.
func UpdateOrderOptimistic(ctx context.Context, q database.Querier, o *models.Order) error {
	query := `
		UPDATE orders
		SET status = $1, payment_status = $2, subtotal = $3, tax_amount = $4, shipping_cost = $5,
		    discount_amount = $6, total_amount = $7, shipping_method = NULLIF($8, ''),
		    tracking_number = NULLIF($9, ''), estimated_delivery = $10, notes = $11,
		    version = version + 1, updated_at = NOW()
		WHERE id = $12 AND version = $13
		RETURNING version, updated_at`

	err := q.QueryRowContext(ctx, query,
		o.Status, o.PaymentStatus, o.Subtotal, o.TaxAmount, o.ShippingCost,
		o.DiscountAmount, o.TotalAmount, o.ShippingMethod,
		o.TrackingNumber, nullTime(o.EstimatedDelivery), o.Notes,
		o.ID, o.Version,
	).Scan(&o.Version, &o.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update order: %w", database.Translate(err))
	}

	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return database.ErrOrderNotFound
	}
	return database.ErrOptimisticLockFailed
}

func orderWhere(f models.OrderFilter) *where {
	w := &where{}
	if f.UserID != nil {
		w.add("user_id = $?", *f.UserID)
	}
	if f.Status != nil {
		w.add("status = $?", *f.Status)
	}
	if f.PaymentStatus != nil {
		w.add("payment_status = $?", *f.PaymentStatus)
	}
	if f.ShippingMethod != nil {
		w.add("shipping_method = $?", *f.ShippingMethod)
	}
	if f.CreatedFrom != nil {
		w.add("created_at >= $?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		w.add("created_at <= $?", *f.CreatedTo)
	}
	if f.MinAmount != nil {
		w.add("total_amount >= $?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		w.add("total_amount <= $?", *f.MaxAmount)
	}
	if f.TrackingContains != "" {
		w.add("tracking_number ILIKE $?", contains(f.TrackingContains))
	}
	if f.NeedingAttention {
		w.raw("(status IN ('PENDING', 'PROCESSING') OR payment_status = 'PENDING')")
	}
	return w
}

func ListOrders(ctx context.Context, q database.Querier, filter models.OrderFilter, page models.PageRequest) (*models.Page[models.Order], error) {
	if err := page.CheckSort(models.OrderSortFields); err != nil {
		return nil, err
	}

	total, err := CountOrders(ctx, q, filter)
	if err != nil {
		return nil, err
	}

	w := orderWhere(filter)
	query := `SELECT ` + orderColumns + ` FROM orders` + w.String() + orderBy(page)
	if !page.IsUnpaged() {
		page = page.Normalized()
		query += ` LIMIT ` + w.placeholder(page.Size) + ` OFFSET ` + w.placeholder(page.Offset())
	}

	orders, err := queryOrders(ctx, q, query, w.args...)
	if err != nil {
		return nil, err
	}
	return models.NewPage(orders, total, page), nil
}

// queryOrders runs an order SELECT and attaches the items of every row.
func queryOrders(ctx context.Context, q database.Querier, query string, args ...any) ([]models.Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := loadItems(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func CountOrders(ctx context.Context, q database.Querier, filter models.OrderFilter) (int64, error) {
	w := orderWhere(filter)

	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`+w.String(), w.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return total, nil
}

// ListOrdersAfter is a keyset query over (created_at, id), newest first.
func ListOrdersAfter(ctx context.Context, q database.Querier, userID int64, after models.OrderCursor, limit int) ([]models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	return queryOrders(ctx, q, query, userID, after.CreatedAt, after.ID, limit)
}

func OrderTotalsBetween(ctx context.Context, q database.Querier, start, end time.Time) ([]models.StatusTotal, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE created_at BETWEEN $1 AND $2
		GROUP BY status`, start, end)
	if err != nil {
		return nil, fmt.Errorf("order totals: %w", err)
	}
	defer rows.Close()

	byStatus := make(map[models.OrderStatus]models.StatusTotal)
	for rows.Next() {
		t := models.StatusTotal{Revenue: decimal.Zero}
		if err := rows.Scan(&t.Status, &t.Count, &t.Revenue); err != nil {
			return nil, fmt.Errorf("scan order totals: %w", err)
		}
		byStatus[t.Status] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	totals := make([]models.StatusTotal, 0, len(byStatus))
	for _, status := range models.OrderStatuses {
		if t, ok := byStatus[status]; ok {
			totals = append(totals, t)
		}
	}
	return totals, nil
}

// CreateOrder runs serializable with retries on its own, or joins the
// surrounding unit of work when called inside Do.
func (s *Postgres) CreateOrder(ctx context.Context, o *models.Order) error {
	if s.inTx {
		return CreateOrder(ctx, s.q, o)
	}

	items := slices.Clone(o.Items)
	return database.WithRetry(ctx, s.db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     3,
	}, func(tx *sql.Tx) error {
		o.Items = slices.Clone(items)
		return CreateOrder(ctx, tx, o)
	})
}

func (s *Postgres) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	if s.inTx {
		return LockOrder(ctx, s.q, id)
	}
	return GetOrder(ctx, s.q, id)
}

func (s *Postgres) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	return GetOrderByNumber(ctx, s.q, number)
}

func (s *Postgres) UpdateOrder(ctx context.Context, o *models.Order) error {
	return UpdateOrderOptimistic(ctx, s.q, o)
}

func (s *Postgres) ListOrders(ctx context.Context, filter models.OrderFilter, page models.PageRequest) (*models.Page[models.Order], error) {
	return ListOrders(ctx, s.q, filter, page)
}

func (s *Postgres) CountOrders(ctx context.Context, filter models.OrderFilter) (int64, error) {
	return CountOrders(ctx, s.q, filter)
}

func (s *Postgres) ListOrdersAfter(ctx context.Context, userID int64, after models.OrderCursor, limit int) ([]models.Order, error) {
	return ListOrdersAfter(ctx, s.q, userID, after, limit)
}

func (s *Postgres) OrderTotalsBetween(ctx context.Context, start, end time.Time) ([]models.StatusTotal, error) {
	return OrderTotalsBetween(ctx, s.q, start, end)
}
