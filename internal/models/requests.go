package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest carries the caller-supplied part of a new order.
// Absent monetary fields are treated as zero.
type CreateOrderRequest struct {
	UserID            int64               `json:"user_id" validate:"required,gt=0"`
	Subtotal          decimal.NullDecimal `json:"subtotal"`
	TaxAmount         decimal.NullDecimal `json:"tax_amount"`
	ShippingCost      decimal.NullDecimal `json:"shipping_cost"`
	DiscountAmount    decimal.NullDecimal `json:"discount_amount"`
	ShippingMethod    ShippingMethod      `json:"shipping_method"`
	EstimatedDelivery *time.Time          `json:"estimated_delivery"`
	Notes             string              `json:"notes" validate:"max=2000"`
	Items             []OrderItemRequest  `json:"items" validate:"dive"`
}

type OrderItemRequest struct {
	ProductID          int64           `json:"product_id" validate:"required,gt=0"`
	Quantity           int             `json:"quantity" validate:"min=1"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

// UpdateOrderRequest replaces the mutable fields of an order. Owner and order
// number are immutable and therefore absent.
type UpdateOrderRequest struct {
	Subtotal          decimal.NullDecimal `json:"subtotal"`
	TaxAmount         decimal.NullDecimal `json:"tax_amount"`
	ShippingCost      decimal.NullDecimal `json:"shipping_cost"`
	DiscountAmount    decimal.NullDecimal `json:"discount_amount"`
	Status            OrderStatus         `json:"status" validate:"required"`
	PaymentStatus     PaymentStatus       `json:"payment_status" validate:"required"`
	ShippingMethod    ShippingMethod      `json:"shipping_method"`
	TrackingNumber    string              `json:"tracking_number" validate:"max=100"`
	EstimatedDelivery *time.Time          `json:"estimated_delivery"`
	Notes             string              `json:"notes" validate:"max=2000"`
}

type CreateProductRequest struct {
	SKU           string              `json:"sku" validate:"omitempty,max=64"`
	Barcode       string              `json:"barcode" validate:"omitempty,max=64"`
	Name          string              `json:"name" validate:"required,max=255"`
	Description   string              `json:"description" validate:"max=5000"`
	Price         decimal.Decimal     `json:"price"`
	OriginalPrice decimal.NullDecimal `json:"original_price"`
	StockQuantity int                 `json:"stock_quantity" validate:"min=0"`
	Status        ProductStatus       `json:"status"`
	Category      ProductCategory     `json:"category" validate:"required"`
	Brand         string              `json:"brand" validate:"max=100"`
	Model         string              `json:"model" validate:"max=100"`
	Manufacturer  string              `json:"manufacturer" validate:"max=100"`
	Featured      bool                `json:"featured"`
	Bestseller    bool                `json:"bestseller"`
}

// UpdateProductRequest replaces scalar attributes. Counters and the rating
// aggregate are only reachable through their dedicated operations.
type UpdateProductRequest struct {
	SKU           string              `json:"sku" validate:"omitempty,max=64"`
	Barcode       string              `json:"barcode" validate:"omitempty,max=64"`
	Name          string              `json:"name" validate:"required,max=255"`
	Description   string              `json:"description" validate:"max=5000"`
	Price         decimal.Decimal     `json:"price"`
	OriginalPrice decimal.NullDecimal `json:"original_price"`
	StockQuantity int                 `json:"stock_quantity"`
	Status        ProductStatus       `json:"status" validate:"required"`
	Category      ProductCategory     `json:"category" validate:"required"`
	Brand         string              `json:"brand" validate:"max=100"`
	Model         string              `json:"model" validate:"max=100"`
	Manufacturer  string              `json:"manufacturer" validate:"max=100"`
	Featured      bool                `json:"featured"`
	Bestseller    bool                `json:"bestseller"`
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"max=255"`
}
