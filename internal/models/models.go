package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

type Product struct {
	ID            int64               `json:"id"`
	SKU           string              `json:"sku,omitempty"`
	Barcode       string              `json:"barcode,omitempty"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Price         decimal.Decimal     `json:"price"`
	OriginalPrice decimal.NullDecimal `json:"original_price"`
	StockQuantity int                 `json:"stock_quantity"`
	Status        ProductStatus       `json:"status"`
	Category      ProductCategory     `json:"category"`
	Brand         string              `json:"brand,omitempty"`
	Model         string              `json:"model,omitempty"`
	Manufacturer  string              `json:"manufacturer,omitempty"`
	Featured      bool                `json:"featured"`
	Bestseller    bool                `json:"bestseller"`
	RatingAverage decimal.Decimal     `json:"rating_average"`
	RatingCount   int                 `json:"rating_count"`
	ViewCount     int                 `json:"view_count"`
	SoldCount     int                 `json:"sold_count"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Version       int                 `json:"version"`
}

// InStock is the only authority on availability; Status OUT_OF_STOCK is informational.
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}

func (p *Product) HasDiscount() bool {
	return p.OriginalPrice.Valid && p.OriginalPrice.Decimal.GreaterThan(p.Price)
}

// DiscountPercentage is (original − price) / original as a whole percentage,
// the ratio rounded half-up to two places before scaling.
func (p *Product) DiscountPercentage() decimal.Decimal {
	if !p.HasDiscount() {
		return decimal.Zero
	}
	orig := p.OriginalPrice.Decimal
	return orig.Sub(p.Price).DivRound(orig, MoneyPlaces).Mul(hundred)
}

// MarshalJSON adds the derived discount_percentage to the stored fields.
func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	return json.Marshal(struct {
		product
		DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	}{product(p), p.DiscountPercentage()})
}

type Order struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"user_id"`
	OrderNumber       string          `json:"order_number"`
	Status            OrderStatus     `json:"status"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	TaxAmount         decimal.Decimal `json:"tax_amount"`
	ShippingCost      decimal.Decimal `json:"shipping_cost"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	ShippingMethod    ShippingMethod  `json:"shipping_method,omitempty"`
	TrackingNumber    string          `json:"tracking_number,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
	Items             []OrderItem     `json:"items,omitempty"`
}

// RecalculateTotal applies total = subtotal + tax + shipping − discount.
func (o *Order) RecalculateTotal() decimal.Decimal {
	o.TotalAmount = Round2(o.Subtotal.Add(o.TaxAmount).Add(o.ShippingCost).Sub(o.DiscountAmount))
	return o.TotalAmount
}

// CanBeCancelled holds while the order has not left the warehouse.
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

func (o *Order) IsDelivered() bool {
	return o.Status == OrderStatusDelivered
}

// ItemQuantities sums quantities per product across the order's lines.
func (o *Order) ItemQuantities() map[int64]int {
	qty := make(map[int64]int, len(o.Items))
	for _, item := range o.Items {
		qty[item.ProductID] += item.Quantity
	}
	return qty
}

type OrderItem struct {
	ID                 int64           `json:"id"`
	OrderID            int64           `json:"order_id"`
	ProductID          int64           `json:"product_id"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	CreatedAt          time.Time       `json:"created_at"`
}

// RecalculateTotal sets TotalPrice = unit × qty × (1 − discount/100), rounded half-up.
func (i *OrderItem) RecalculateTotal() decimal.Decimal {
	gross := i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
	i.TotalPrice = PercentOff(gross, i.DiscountPercentage)
	return i.TotalPrice
}

// DiscountAmount is the money taken off the gross line amount.
func (i *OrderItem) DiscountAmount() decimal.Decimal {
	gross := i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
	return Round2(gross).Sub(PercentOff(gross, i.DiscountPercentage))
}

// StatusTotal is one row of an orders-by-status aggregate.
type StatusTotal struct {
	Status  OrderStatus
	Count   int64
	Revenue decimal.Decimal
}

type OrderStats struct {
	TotalOrders       int64           `json:"total_orders"`
	PendingOrders     int64           `json:"pending_orders"`
	ProcessingOrders  int64           `json:"processing_orders"`
	ShippedOrders     int64           `json:"shipped_orders"`
	DeliveredOrders   int64           `json:"delivered_orders"`
	CancelledOrders   int64           `json:"cancelled_orders"`
	RefundedOrders    int64           `json:"refunded_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	TotalItemsSold    int64           `json:"total_items_sold"`
}
