package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/safar/retail-store/internal/errs"
	"github.com/safar/retail-store/internal/models"
)

// Read-only product queries. Stores order results by the filter's
// ProductOrder (or the page's sort field) and break ties by ascending id.

func (e *Engine) ListProducts(ctx context.Context, filter models.ProductFilter, page models.PageRequest) (*models.Page[models.Product], error) {
	if err := checkRanges(filter); err != nil {
		return nil, err
	}
	return e.repo.ListProducts(ctx, filter, page)
}

func checkRanges(f models.ProductFilter) error {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return errs.Validationf("min price %s exceeds max price %s", f.MinPrice, f.MaxPrice)
	}
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return errs.Validationf("min price must be non-negative, got %s", f.MinPrice)
	}
	if f.MinRating != nil && f.MaxRating != nil && f.MinRating.GreaterThan(*f.MaxRating) {
		return errs.Validationf("min rating %s exceeds max rating %s", f.MinRating, f.MaxRating)
	}
	if f.Category != nil && !f.Category.Valid() {
		return errs.Validationf("unknown product category %q", *f.Category)
	}
	if f.Status != nil && !f.Status.Valid() {
		return errs.Validationf("unknown product status %q", *f.Status)
	}
	return nil
}

func (e *Engine) ProductsByCategory(ctx context.Context, category models.ProductCategory, page models.PageRequest) (*models.Page[models.Product], error) {
	return e.ListProducts(ctx, models.ProductFilter{Category: &category}, page)
}

func (e *Engine) ProductsByStatus(ctx context.Context, status models.ProductStatus, page models.PageRequest) (*models.Page[models.Product], error) {
	return e.ListProducts(ctx, models.ProductFilter{Status: &status}, page)
}

func (e *Engine) ActiveProducts(ctx context.Context, page models.PageRequest) (*models.Page[models.Product], error) {
	return e.ListProducts(ctx, models.ProductFilter{ActiveOnly: true}, page)
}

func (e *Engine) FeaturedProducts(ctx context.Context, page models.PageRequest) (*models.Page[models.Product], error) {
	return e.ListProducts(ctx, models.ProductFilter{ActiveOnly: true, FeaturedOnly: true}, page)
}

func (e *Engine) BestsellerProducts(ctx context.Context, page models.PageRequest) (*models.Page[models.Product], error) {
	return e.ListProducts(ctx, models.ProductFilter{ActiveOnly: true, BestsellerOnly: true}, page)
}

func (e *Engine) InStockProducts(ctx context.Context, page models.PageRequest) (*models.Page[models.Product], error) {
	return e.ListProducts(ctx, models.ProductFilter{ActiveOnly: true, InStockOnly: true}, page)
}

func (e *Engine) ProductsByPriceRange(ctx context.Context, lo, hi decimal.Decimal, page models.PageRequest) (*models.Page[models.Product], error) {
	return e.ListProducts(ctx, models.ProductFilter{ActiveOnly: true, MinPrice: &lo, MaxPrice: &hi}, page)
}

func (e *Engine) ProductsByRatingRange(ctx context.Context, lo, hi decimal.Decimal, page models.PageRequest) (*models.Page[models.Product], error) {
	return e.ListProducts(ctx, models.ProductFilter{ActiveOnly: true, MinRating: &lo, MaxRating: &hi}, page)
}

func (e *Engine) ProductsByBrand(ctx context.Context, brand string, page models.PageRequest) (*models.Page[models.Product], error) {
	return e.ListProducts(ctx, models.ProductFilter{Brand: brand}, page)
}

func (e *Engine) ProductsByManufacturer(ctx context.Context, manufacturer string, page models.PageRequest) (*models.Page[models.Product], error) {
	return e.ListProducts(ctx, models.ProductFilter{Manufacturer: manufacturer}, page)
}

func (e *Engine) SearchProducts(ctx context.Context, term string, page models.PageRequest) (*models.Page[models.Product], error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errs.Validationf("search term is required")
	}
	return e.ListProducts(ctx, models.ProductFilter{ActiveOnly: true, Search: term}, page)
}

// TopRatedProducts orders by rating average, then rating count, both descending.
func (e *Engine) TopRatedProducts(ctx context.Context, page models.PageRequest) (*models.Page[models.Product], error) {
	return e.ListProducts(ctx, models.ProductFilter{ActiveOnly: true, Order: models.ProductOrderTopRated}, page)
}

func (e *Engine) MostViewedProducts(ctx context.Context, page models.PageRequest) (*models.Page[models.Product], error) {
	return e.ListProducts(ctx, models.ProductFilter{ActiveOnly: true, Order: models.ProductOrderMostViewed}, page)
}

func (e *Engine) BestSellingProducts(ctx context.Context, page models.PageRequest) (*models.Page[models.Product], error) {
	return e.ListProducts(ctx, models.ProductFilter{ActiveOnly: true, Order: models.ProductOrderBestSelling}, page)
}

func (e *Engine) CountByCategory(ctx context.Context, category models.ProductCategory) (int64, error) {
	if !category.Valid() {
		return 0, errs.Validationf("unknown product category %q", category)
	}
	return e.repo.CountProducts(ctx, models.ProductFilter{Category: &category})
}

func (e *Engine) CountByStatus(ctx context.Context, status models.ProductStatus) (int64, error) {
	if !status.Valid() {
		return 0, errs.Validationf("unknown product status %q", status)
	}
	return e.repo.CountProducts(ctx, models.ProductFilter{Status: &status})
}

func (e *Engine) CountActiveProducts(ctx context.Context) (int64, error) {
	return e.repo.CountProducts(ctx, models.ProductFilter{ActiveOnly: true})
}

func (e *Engine) CountInStockProducts(ctx context.Context) (int64, error) {
	return e.repo.CountProducts(ctx, models.ProductFilter{ActiveOnly: true, InStockOnly: true})
}
