// Package catalog owns product stock, the view and sold counters, and the
// incremental rating average.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/safar/retail-store/internal/errs"
	"github.com/safar/retail-store/internal/logging"
	"github.com/safar/retail-store/internal/metrics"
	"github.com/safar/retail-store/internal/models"
)

type Engine struct {
	repo    Repository
	stock   StockPolicy
	logger  *log.Entry
	metrics *metrics.Collector
}

type Option func(*Engine)

func WithStockPolicy(p StockPolicy) Option {
	return func(e *Engine) { e.stock = p }
}

func WithLogger(logger *log.Entry) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(repo Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:   repo,
		stock:  AllowNegative,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithField("component", "catalog_engine")
	return e
}

// CreateProduct persists a new ACTIVE (unless told otherwise) product with
// every counter and the rating aggregate at zero.
func (e *Engine) CreateProduct(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	defer e.metrics.ObserveSince("create_product", time.Now())

	if err := models.Validate(req); err != nil {
		return nil, err
	}
	if req.Status == "" {
		req.Status = models.ProductStatusActive
	}
	p := &models.Product{
		SKU:           strings.TrimSpace(req.SKU),
		Barcode:       strings.TrimSpace(req.Barcode),
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		StockQuantity: req.StockQuantity,
		Status:        req.Status,
		Category:      req.Category,
		Brand:         req.Brand,
		Model:         req.Model,
		Manufacturer:  req.Manufacturer,
		Featured:      req.Featured,
		Bestseller:    req.Bestseller,
		RatingAverage: decimal.Zero,
	}
	if err := checkProduct(p); err != nil {
		return nil, err
	}

	if err := e.repo.CreateProduct(ctx, p); err != nil {
		e.logger.WithError(err).WithField("sku", p.SKU).Warn("create product failed")
		return nil, err
	}

	e.logger.WithFields(log.Fields{
		"product_id": p.ID,
		"sku":        p.SKU,
		"category":   p.Category,
	}).Info("product created")
	return p, nil
}

// UpdateProduct replaces the scalar attributes of a product. Counters and
// the rating aggregate are left as stored.
func (e *Engine) UpdateProduct(ctx context.Context, id int64, req models.UpdateProductRequest) (*models.Product, error) {
	if err := models.Validate(req); err != nil {
		return nil, err
	}
	return e.mutate(ctx, "update_product", id, func(p *models.Product) error {
		p.SKU = strings.TrimSpace(req.SKU)
		p.Barcode = strings.TrimSpace(req.Barcode)
		p.Name = req.Name
		p.Description = req.Description
		p.Price = req.Price
		p.OriginalPrice = req.OriginalPrice
		p.StockQuantity = req.StockQuantity
		p.Status = req.Status
		p.Category = req.Category
		p.Brand = req.Brand
		p.Model = req.Model
		p.Manufacturer = req.Manufacturer
		p.Featured = req.Featured
		p.Bestseller = req.Bestseller
		return checkProduct(p)
	})
}

func checkProduct(p *models.Product) error {
	if !p.Category.Valid() {
		return errs.Validationf("unknown product category %q", p.Category)
	}
	if !p.Status.Valid() {
		return errs.Validationf("unknown product status %q", p.Status)
	}
	if err := models.CheckMoney("price", p.Price); err != nil {
		return err
	}
	if p.OriginalPrice.Valid {
		if err := models.CheckMoney("original_price", p.OriginalPrice.Decimal); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return e.repo.GetProduct(ctx, id)
}

func (e *Engine) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return e.repo.GetProductBySKU(ctx, sku)
}

func (e *Engine) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	return e.repo.GetProductByBarcode(ctx, barcode)
}

// DeleteProduct marks the product DISCONTINUED; rows are never removed.
func (e *Engine) DeleteProduct(ctx context.Context, id int64) error {
	_, err := e.mutate(ctx, "delete_product", id, func(p *models.Product) error {
		p.Status = models.ProductStatusDiscontinued
		return nil
	})
	return err
}

// UpdateStockQuantity adds a signed delta to the stock level, subject to the
// engine's StockPolicy.
func (e *Engine) UpdateStockQuantity(ctx context.Context, id int64, delta int) (*models.Product, error) {
	p, err := e.mutate(ctx, "update_stock", id, func(p *models.Product) error {
		next, err := e.stock.Apply(p.StockQuantity, delta)
		if err != nil {
			return err
		}
		p.StockQuantity = next
		return nil
	})
	if err == nil {
		e.metrics.StockAdjusted(delta)
	}
	return p, err
}

func (e *Engine) IncrementViewCount(ctx context.Context, id int64) (*models.Product, error) {
	p, err := e.mutate(ctx, "increment_views", id, func(p *models.Product) error {
		p.ViewCount++
		return nil
	})
	if err == nil {
		e.metrics.ProductViewed()
	}
	return p, err
}

// IncrementSoldCount adds quantity to the sold counter. Stock is not touched;
// RecordSale does both.
func (e *Engine) IncrementSoldCount(ctx context.Context, id int64, quantity int) (*models.Product, error) {
	if quantity < 1 {
		return nil, errs.Validationf("sold quantity must be at least 1, got %d", quantity)
	}
	p, err := e.mutate(ctx, "increment_sold", id, func(p *models.Product) error {
		p.SoldCount += quantity
		return nil
	})
	if err == nil {
		e.metrics.UnitsSold(quantity)
	}
	return p, err
}

// RecordSale raises the sold counter and lowers stock by quantity in a single
// write.
func (e *Engine) RecordSale(ctx context.Context, id int64, quantity int) (*models.Product, error) {
	if quantity < 1 {
		return nil, errs.Validationf("sold quantity must be at least 1, got %d", quantity)
	}
	p, err := e.mutate(ctx, "record_sale", id, func(p *models.Product) error {
		next, err := e.stock.Apply(p.StockQuantity, -quantity)
		if err != nil {
			return err
		}
		p.StockQuantity = next
		p.SoldCount += quantity
		return nil
	})
	if err == nil {
		e.metrics.UnitsSold(quantity)
		e.metrics.StockAdjusted(-quantity)
	}
	return p, err
}

// UpdateRating folds one rating into the running mean. The rating is not
// range-checked here.
func (e *Engine) UpdateRating(ctx context.Context, id int64, rating int) (*models.Product, error) {
	p, err := e.mutate(ctx, "update_rating", id, func(p *models.Product) error {
		p.RatingAverage = nextAverage(p.RatingAverage, p.RatingCount, rating)
		p.RatingCount++
		return nil
	})
	if err == nil {
		e.metrics.ProductRated()
	}
	return p, err
}

func nextAverage(avg decimal.Decimal, count, rating int) decimal.Decimal {
	r := decimal.NewFromInt(int64(rating))
	if count == 0 {
		return models.Round2(r)
	}
	n := decimal.NewFromInt(int64(count))
	return avg.Mul(n).Add(r).DivRound(n.Add(decimal.NewFromInt(1)), models.MoneyPlaces)
}

func (e *Engine) SetFeatured(ctx context.Context, id int64, featured bool) (*models.Product, error) {
	return e.mutate(ctx, "set_featured", id, func(p *models.Product) error {
		p.Featured = featured
		return nil
	})
}

func (e *Engine) SetBestseller(ctx context.Context, id int64, bestseller bool) (*models.Product, error) {
	return e.mutate(ctx, "set_bestseller", id, func(p *models.Product) error {
		p.Bestseller = bestseller
		return nil
	})
}

func (e *Engine) IsInStock(ctx context.Context, id int64) (bool, error) {
	p, err := e.repo.GetProduct(ctx, id)
	if err != nil {
		return false, err
	}
	return p.InStock(), nil
}

func (e *Engine) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	return exists(e.repo.GetProductBySKU(ctx, sku))
}

func (e *Engine) ExistsByBarcode(ctx context.Context, barcode string) (bool, error) {
	return exists(e.repo.GetProductByBarcode(ctx, barcode))
}

func exists(_ *models.Product, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errs.ErrNotFound):
		return false, nil
	}
	return false, err
}

func (e *Engine) mutate(ctx context.Context, op string, id int64, fn func(p *models.Product) error) (*models.Product, error) {
	defer e.metrics.ObserveSince(op, time.Now())

	p, err := e.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(p); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{"product_id": id, "operation": op}).Warn("product operation rejected")
		return nil, err
	}

	if err := e.repo.UpdateProduct(ctx, p); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{"product_id": id, "operation": op}).Warn("product save failed")
		return nil, err
	}

	e.logger.WithFields(log.Fields{
		"product_id": p.ID,
		"operation":  op,
		"stock":      p.StockQuantity,
	}).Info("product updated")

	return p, nil
}
