package catalog

import (
	"context"

	"github.com/safar/retail-store/internal/models"
)

// Repository is the persistence collaborator for products. SKU and barcode
// are unique when non-empty; violations surface as errs.ErrConflict.
type Repository interface {
	// CreateProduct assigns ID, timestamps and the initial version.
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error)
	// UpdateProduct writes every column and bumps the version. A stale
	// version yields errs.ErrConflict.
	UpdateProduct(ctx context.Context, product *models.Product) error

	ListProducts(ctx context.Context, filter models.ProductFilter, page models.PageRequest) (*models.Page[models.Product], error)
	CountProducts(ctx context.Context, filter models.ProductFilter) (int64, error)
}
