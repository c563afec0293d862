package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/safar/retail-store/internal/errs"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is passed through to the store unchanged; Page is 1-based.
type PageRequest struct {
	Page      int
	Size      int
	SortField string
	SortDesc  bool
}

// Unpaged asks the store for every matching row.
var Unpaged = PageRequest{}

func (p PageRequest) IsUnpaged() bool {
	return p.Page == 0 && p.Size == 0
}

// Normalized clamps Page to at least 1 and Size to [1, MaxPageSize].
func (p PageRequest) Normalized() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Size
}

// CheckSort rejects a sort field outside allowed. An empty field is accepted.
func (p PageRequest) CheckSort(allowed []string) error {
	if p.SortField == "" || slices.Contains(allowed, p.SortField) {
		return nil
	}
	return errs.Validationf("cannot sort by %q", p.SortField)
}

// Sortable columns for orders and products. Stores reject anything else.
var (
	OrderSortFields   = []string{"id", "created_at", "updated_at", "order_number", "status", "total_amount"}
	ProductSortFields = []string{"id", "name", "price", "created_at", "stock_quantity", "rating_average", "view_count", "sold_count"}
)

type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPage wraps one page of items. An unpaged request yields a single page
// holding everything.
func NewPage[T any](items []T, total int64, req PageRequest) *Page[T] {
	if items == nil {
		items = []T{}
	}
	if req.IsUnpaged() {
		pages := 0
		if total > 0 {
			pages = 1
		}
		return &Page[T]{Items: items, Total: total, Page: 1, PageSize: len(items), TotalPages: pages}
	}

	totalPages := int(total) / req.Size
	if int(total)%req.Size > 0 {
		totalPages++
	}
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.Size,
		TotalPages: totalPages,
	}
}

type OrderFilter struct {
	UserID           *int64
	Status           *OrderStatus
	PaymentStatus    *PaymentStatus
	ShippingMethod   *ShippingMethod
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
	MinAmount        *decimal.Decimal
	MaxAmount        *decimal.Decimal
	TrackingContains string
	// NeedingAttention selects orders still PENDING/PROCESSING or awaiting payment.
	NeedingAttention bool
}

// ProductOrder names a fixed ordering used by the ranking queries.
type ProductOrder string

const (
	ProductOrderDefault     ProductOrder = ""
	ProductOrderTopRated    ProductOrder = "top_rated"
	ProductOrderMostViewed  ProductOrder = "most_viewed"
	ProductOrderBestSelling ProductOrder = "best_selling"
)

type ProductFilter struct {
	Category       *ProductCategory
	Status         *ProductStatus
	ActiveOnly     bool
	InStockOnly    bool
	FeaturedOnly   bool
	BestsellerOnly bool
	MinPrice       *decimal.Decimal
	MaxPrice       *decimal.Decimal
	MinRating      *decimal.Decimal
	MaxRating      *decimal.Decimal
	Brand          string
	Manufacturer   string
	// Search is a case-insensitive substring match on name and description.
	Search string
	Order  ProductOrder
}
