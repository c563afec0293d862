package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/safar/retail-store/internal/database"
	"github.com/safar/retail-store/internal/models"
)

// SKU and barcode are stored as NULL when empty so their unique indexes only
// apply to products that carry one.
const productColumns = `
	id, COALESCE(sku, ''), COALESCE(barcode, ''), name, description, price, original_price,
	stock_quantity, status, category, brand, model, manufacturer, featured, bestseller,
	rating_average, rating_count, view_count, sold_count, created_at, updated_at, version`

func scanProduct(row interface{ Scan(...any) error }, p *models.Product) error {
	return row.Scan(
		&p.ID,
		&p.SKU,
		&p.Barcode,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.OriginalPrice,
		&p.StockQuantity,
		&p.Status,
		&p.Category,
		&p.Brand,
		&p.Model,
		&p.Manufacturer,
		&p.Featured,
		&p.Bestseller,
		&p.RatingAverage,
		&p.RatingCount,
		&p.ViewCount,
		&p.SoldCount,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Version,
	)
}

func CreateProduct(ctx context.Context, q database.Querier, p *models.Product) error {
	query := `
		INSERT INTO products (
			sku, barcode, name, description, price, original_price, stock_quantity,
			status, category, brand, model, manufacturer, featured, bestseller,
			rating_average, rating_count, view_count, sold_count,
			created_at, updated_at, version)
		VALUES (
			NULLIF($1, ''), NULLIF($2, ''), $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18,
			NOW(), NOW(), 1)
		RETURNING ` + productColumns

	err := scanProduct(q.QueryRowContext(ctx, query,
		p.SKU, p.Barcode, p.Name, p.Description, p.Price, p.OriginalPrice, p.StockQuantity,
		p.Status, p.Category, p.Brand, p.Model, p.Manufacturer, p.Featured, p.Bestseller,
		p.RatingAverage, p.RatingCount, p.ViewCount, p.SoldCount,
	), p)
	if err != nil {
		return fmt.Errorf("create product: %w", database.Translate(err))
	}
	return nil
}

func getProductBy(ctx context.Context, q database.Querier, column string, value any, suffix string) (*models.Product, error) {
	p := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE ` + column + ` = $1` + suffix

	if err := scanProduct(q.QueryRowContext(ctx, query, value), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product by %s: %w", column, err)
	}
	return p, nil
}

func GetProduct(ctx context.Context, q database.Querier, id int64) (*models.Product, error) {
	return getProductBy(ctx, q, "id", id, "")
}

func GetProductBySKU(ctx context.Context, q database.Querier, sku string) (*models.Product, error) {
	return getProductBy(ctx, q, "sku", sku, "")
}

func GetProductByBarcode(ctx context.Context, q database.Querier, barcode string) (*models.Product, error) {
	return getProductBy(ctx, q, "barcode", barcode, "")
}

// LockProduct reads a product and row-locks it for the rest of the
// transaction. It fails fast with database.ErrLockTimeout when another
// transaction holds the row.
func LockProduct(ctx context.Context, tx database.Querier, id int64) (*models.Product, error) {
	p, err := getProductBy(ctx, tx, "id", id, " FOR UPDATE NOWAIT")
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "55P03" {
			return nil, database.ErrLockTimeout
		}
		return nil, err
	}
	return p, nil
}

// UpdateProductOptimistic writes every mutable column when the stored version
// still matches p.Version, then advances p.Version and p.UpdatedAt.
func UpdateProductOptimistic(ctx context.Context, q database.Querier, p *models.Product) error {
	query := `
		UPDATE products
		SET sku = NULLIF($1, ''), barcode = NULLIF($2, ''), name = $3, description = $4,
		    price = $5, original_price = $6, stock_quantity = $7, status = $8, category = $9,
		    brand = $10, model = $11, manufacturer = $12, featured = $13, bestseller = $14,
		    rating_average = $15, rating_count = $16, view_count = $17, sold_count = $18,
		    version = version + 1, updated_at = NOW()
		WHERE id = $19 AND version = $20
		RETURNING version, updated_at`

	err := q.QueryRowContext(ctx, query,
		p.SKU, p.Barcode, p.Name, p.Description,
		p.Price, p.OriginalPrice, p.StockQuantity, p.Status, p.Category,
		p.Brand, p.Model, p.Manufacturer, p.Featured, p.Bestseller,
		p.RatingAverage, p.RatingCount, p.ViewCount, p.SoldCount,
		p.ID, p.Version,
	).Scan(&p.Version, &p.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update product: %w", database.Translate(err))
	}

	if _, err := GetProduct(ctx, q, p.ID); err != nil {
		return err
	}
	return database.ErrOptimisticLockFailed
}

func productWhere(f models.ProductFilter) *where {
	w := &where{}
	if f.Category != nil {
		w.add("category = $?", *f.Category)
	}
	if f.Status != nil {
		w.add("status = $?", *f.Status)
	}
	if f.ActiveOnly {
		w.add("status = $?", models.ProductStatusActive)
	}
	if f.InStockOnly {
		w.raw("stock_quantity > 0")
	}
	if f.FeaturedOnly {
		w.raw("featured")
	}
	if f.BestsellerOnly {
		w.raw("bestseller")
	}
	if f.MinPrice != nil {
		w.add("price >= $?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		w.add("price <= $?", *f.MaxPrice)
	}
	if f.MinRating != nil {
		w.add("rating_average >= $?", *f.MinRating)
	}
	if f.MaxRating != nil {
		w.add("rating_average <= $?", *f.MaxRating)
	}
	if f.Brand != "" {
		w.add("LOWER(brand) = LOWER($?)", f.Brand)
	}
	if f.Manufacturer != "" {
		w.add("LOWER(manufacturer) = LOWER($?)", f.Manufacturer)
	}
	if f.Search != "" {
		w.add("(name ILIKE $? OR description ILIKE $?)", contains(f.Search))
	}
	return w
}

func productOrderBy(order models.ProductOrder, page models.PageRequest) string {
	switch order {
	case models.ProductOrderTopRated:
		return " ORDER BY rating_average DESC, rating_count DESC, id"
	case models.ProductOrderMostViewed:
		return " ORDER BY view_count DESC, id"
	case models.ProductOrderBestSelling:
		return " ORDER BY sold_count DESC, id"
	}
	return orderBy(page)
}

// orderBy renders the page's sort field, already checked against a
// whitelist, with id as the final tie-breaker.
func orderBy(page models.PageRequest) string {
	if page.SortField == "" || page.SortField == "id" {
		if page.SortDesc {
			return " ORDER BY id DESC"
		}
		return " ORDER BY id"
	}
	dir := " ASC"
	if page.SortDesc {
		dir = " DESC"
	}
	return " ORDER BY " + page.SortField + dir + ", id"
}

func ListProducts(ctx context.Context, q database.Querier, filter models.ProductFilter, page models.PageRequest) (*models.Page[models.Product], error) {
	if err := page.CheckSort(models.ProductSortFields); err != nil {
		return nil, err
	}

	total, err := CountProducts(ctx, q, filter)
	if err != nil {
		return nil, err
	}

	w := productWhere(filter)
	query := `SELECT ` + productColumns + ` FROM products` + w.String() + productOrderBy(filter.Order, page)
	if !page.IsUnpaged() {
		page = page.Normalized()
		query += ` LIMIT ` + w.placeholder(page.Size) + ` OFFSET ` + w.placeholder(page.Offset())
	}

	rows, err := q.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return models.NewPage(products, total, page), nil
}

func CountProducts(ctx context.Context, q database.Querier, filter models.ProductFilter) (int64, error) {
	w := productWhere(filter)

	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+w.String(), w.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

func (s *Postgres) CreateProduct(ctx context.Context, p *models.Product) error {
	return CreateProduct(ctx, s.q, p)
}

// GetProduct locks the row when called inside Do so the read-modify-write
// that follows cannot interleave with another unit of work.
func (s *Postgres) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if s.inTx {
		return LockProduct(ctx, s.q, id)
	}
	return GetProduct(ctx, s.q, id)
}

func (s *Postgres) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return GetProductBySKU(ctx, s.q, sku)
}

func (s *Postgres) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	return GetProductByBarcode(ctx, s.q, barcode)
}

func (s *Postgres) UpdateProduct(ctx context.Context, p *models.Product) error {
	return UpdateProductOptimistic(ctx, s.q, p)
}

func (s *Postgres) ListProducts(ctx context.Context, filter models.ProductFilter, page models.PageRequest) (*models.Page[models.Product], error) {
	return ListProducts(ctx, s.q, filter, page)
}

func (s *Postgres) CountProducts(ctx context.Context, filter models.ProductFilter) (int64, error) {
	return CountProducts(ctx, s.q, filter)
}
