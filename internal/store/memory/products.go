package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/safar/retail-store/internal/database"
	"github.com/safar/retail-store/internal/errs"
	"github.com/safar/retail-store/internal/models"
)

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	defer s.lock()()

	if err := s.checkIdentifiers(product); err != nil {
		return err
	}

	s.data.nextProductID++
	now := s.now()
	product.ID = s.data.nextProductID
	product.CreatedAt = now
	product.UpdatedAt = now
	product.Version = 1

	s.data.products[product.ID] = cloneProduct(product)
	return nil
}

// checkIdentifiers enforces SKU and barcode uniqueness among products other
// than p itself. Empty identifiers never collide.
func (s *Store) checkIdentifiers(p *models.Product) error {
	for _, other := range s.data.products {
		if other.ID == p.ID {
			continue
		}
		if p.SKU != "" && other.SKU == p.SKU {
			return errs.Conflictf("sku %q already in use", p.SKU)
		}
		if p.Barcode != "" && other.Barcode == p.Barcode {
			return errs.Conflictf("barcode %q already in use", p.Barcode)
		}
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	defer s.lock()()

	p, ok := s.data.products[id]
	if !ok {
		return nil, database.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return s.findProduct(func(p *models.Product) bool { return sku != "" && p.SKU == sku })
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	return s.findProduct(func(p *models.Product) bool { return barcode != "" && p.Barcode == barcode })
}

func (s *Store) findProduct(match func(*models.Product) bool) (*models.Product, error) {
	defer s.lock()()

	for _, p := range s.data.products {
		if match(p) {
			return cloneProduct(p), nil
		}
	}
	return nil, database.ErrProductNotFound
}

func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	defer s.lock()()

	stored, ok := s.data.products[product.ID]
	if !ok {
		return database.ErrProductNotFound
	}
	if stored.Version != product.Version {
		return database.ErrOptimisticLockFailed
	}
	if err := s.checkIdentifiers(product); err != nil {
		return err
	}

	product.Version++
	product.UpdatedAt = s.now()
	product.CreatedAt = stored.CreatedAt
	s.data.products[product.ID] = cloneProduct(product)
	return nil
}

func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter, page models.PageRequest) (*models.Page[models.Product], error) {
	if err := page.CheckSort(models.ProductSortFields); err != nil {
		return nil, err
	}

	defer s.lock()()

	products := s.matchProducts(filter)
	slices.SortFunc(products, productOrdering(filter.Order, page))
	return window(products, page), nil
}

func (s *Store) CountProducts(ctx context.Context, filter models.ProductFilter) (int64, error) {
	defer s.lock()()

	return int64(len(s.matchProducts(filter))), nil
}

func (s *Store) matchProducts(f models.ProductFilter) []models.Product {
	search := strings.ToLower(f.Search)

	var out []models.Product
	for _, p := range s.data.products {
		switch {
		case f.Category != nil && p.Category != *f.Category,
			f.Status != nil && p.Status != *f.Status,
			f.ActiveOnly && p.Status != models.ProductStatusActive,
			f.InStockOnly && !p.InStock(),
			f.FeaturedOnly && !p.Featured,
			f.BestsellerOnly && !p.Bestseller,
			f.MinPrice != nil && p.Price.LessThan(*f.MinPrice),
			f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice),
			f.MinRating != nil && p.RatingAverage.LessThan(*f.MinRating),
			f.MaxRating != nil && p.RatingAverage.GreaterThan(*f.MaxRating),
			f.Brand != "" && !strings.EqualFold(p.Brand, f.Brand),
			f.Manufacturer != "" && !strings.EqualFold(p.Manufacturer, f.Manufacturer),
			search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
				!strings.Contains(strings.ToLower(p.Description), search):
			continue
		}
		out = append(out, *p)
	}
	return out
}

// productOrdering applies a ranking order first, then the page's sort field,
// and always falls back to ascending id.
func productOrdering(order models.ProductOrder, page models.PageRequest) func(a, b models.Product) int {
	return func(a, b models.Product) int {
		var c int
		switch order {
		case models.ProductOrderTopRated:
			c = cmp.Or(b.RatingAverage.Cmp(a.RatingAverage), cmp.Compare(b.RatingCount, a.RatingCount))
		case models.ProductOrderMostViewed:
			c = cmp.Compare(b.ViewCount, a.ViewCount)
		case models.ProductOrderBestSelling:
			c = cmp.Compare(b.SoldCount, a.SoldCount)
		default:
			c = compareProductField(page.SortField, a, b)
			if page.SortDesc {
				c = -c
			}
		}
		return cmp.Or(c, cmp.Compare(a.ID, b.ID))
	}
}

func compareProductField(field string, a, b models.Product) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "price":
		return a.Price.Cmp(b.Price)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "stock_quantity":
		return cmp.Compare(a.StockQuantity, b.StockQuantity)
	case "rating_average":
		return a.RatingAverage.Cmp(b.RatingAverage)
	case "view_count":
		return cmp.Compare(a.ViewCount, b.ViewCount)
	case "sold_count":
		return cmp.Compare(a.SoldCount, b.SoldCount)
	case "id":
		return cmp.Compare(a.ID, b.ID)
	}
	return 0
}
