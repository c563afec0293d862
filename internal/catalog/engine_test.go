package catalog_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/retail-store/internal/catalog"
	"github.com/safar/retail-store/internal/errs"
	"github.com/safar/retail-store/internal/models"
	"github.com/safar/retail-store/internal/store/memory"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newEngine(opts ...catalog.Option) (*catalog.Engine, *memory.Store) {
	s := memory.New()
	return catalog.NewEngine(s, opts...), s
}

func create(t *testing.T, e *catalog.Engine, req models.CreateProductRequest) *models.Product {
	t.Helper()
	if req.Name == "" {
		req.Name = "Widget"
	}
	if req.Category == "" {
		req.Category = models.CategoryElectronics
	}
	p, err := e.CreateProduct(context.Background(), req)
	require.NoError(t, err)
	return p
}

func TestCreateProductDefaults(t *testing.T) {
	e, _ := newEngine()
	p := create(t, e, models.CreateProductRequest{SKU: "ABC1", Price: dec("19.99"), StockQuantity: 5})

	assert.Equal(t, models.ProductStatusActive, p.Status)
	assert.True(t, p.RatingAverage.IsZero())
	assert.Zero(t, p.RatingCount)
	assert.Zero(t, p.ViewCount)
	assert.Zero(t, p.SoldCount)
	assert.NotZero(t, p.ID)
}

func TestCreateProductRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	create(t, e, models.CreateProductRequest{SKU: "DUP"})

	cases := map[string]struct {
		req  models.CreateProductRequest
		kind error
	}{
		"missing name":     {models.CreateProductRequest{Category: models.CategoryBooks}, errs.ErrValidation},
		"unknown category": {models.CreateProductRequest{Name: "x", Category: "WEAPONS"}, errs.ErrValidation},
		"negative price":   {models.CreateProductRequest{Name: "x", Category: models.CategoryBooks, Price: dec("-0.01")}, errs.ErrValidation},
		"negative stock":   {models.CreateProductRequest{Name: "x", Category: models.CategoryBooks, StockQuantity: -1}, errs.ErrValidation},
		"duplicate sku":    {models.CreateProductRequest{Name: "x", Category: models.CategoryBooks, SKU: "DUP"}, errs.ErrConflict},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.CreateProduct(ctx, tc.req)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
}

func TestUpdateRatingIncrementalMean(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	p := create(t, e, models.CreateProductRequest{})

	p, err := e.UpdateRating(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, "4.00", p.RatingAverage.StringFixed(2))
	assert.Equal(t, 1, p.RatingCount)

	p, err = e.UpdateRating(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "3.00", p.RatingAverage.StringFixed(2))
	assert.Equal(t, 2, p.RatingCount)
}

func TestUpdateRatingFromExistingAggregate(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	p := create(t, e, models.CreateProductRequest{})
	for _, r := range []int{5, 3} {
		_, err := e.UpdateRating(ctx, p.ID, r)
		require.NoError(t, err)
	}

	p, err := e.UpdateRating(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "3.00", p.RatingAverage.StringFixed(2))
	assert.Equal(t, 3, p.RatingCount)
}

func TestUpdateRatingRoundsHalfUp(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	p := create(t, e, models.CreateProductRequest{})
	for _, r := range []int{5, 4, 4} {
		_, err := e.UpdateRating(ctx, p.ID, r)
		require.NoError(t, err)
	}
	// 5 -> 4.50 -> (4.50*2+4)/3 = 4.3333 -> 4.33
	got, err := e.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "4.33", got.RatingAverage.StringFixed(2))

	// (4.33*3+5)/4 = 4.4975 -> 4.50
	got, err = e.UpdateRating(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, "4.50", got.RatingAverage.StringFixed(2))
}

func TestUpdateStockQuantity(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	p := create(t, e, models.CreateProductRequest{StockQuantity: 10})

	p, err := e.UpdateStockQuantity(ctx, p.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 7, p.StockQuantity)
	inStock, err := e.IsInStock(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, inStock)

	p, err = e.UpdateStockQuantity(ctx, p.ID, -7)
	require.NoError(t, err)
	assert.Equal(t, 0, p.StockQuantity)
	inStock, err = e.IsInStock(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, inStock)

	p, err = e.UpdateStockQuantity(ctx, p.ID, -2)
	require.NoError(t, err)
	assert.Equal(t, -2, p.StockQuantity)
	assert.Equal(t, models.ProductStatusActive, p.Status)
}

func TestStockPolicies(t *testing.T) {
	ctx := context.Background()

	reject, _ := newEngine(catalog.WithStockPolicy(catalog.RejectNegative))
	p := create(t, reject, models.CreateProductRequest{StockQuantity: 2})
	_, err := reject.UpdateStockQuantity(ctx, p.ID, -3)
	assert.ErrorIs(t, err, errs.ErrInvalidState)
	got, err := reject.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StockQuantity)

	clamp, _ := newEngine(catalog.WithStockPolicy(catalog.ClampAtZero))
	p = create(t, clamp, models.CreateProductRequest{StockQuantity: 2})
	got, err = clamp.UpdateStockQuantity(ctx, p.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)
}

func TestParseStockPolicy(t *testing.T) {
	for name, want := range map[string]catalog.StockPolicy{
		"": catalog.AllowNegative, "allow": catalog.AllowNegative,
		"Reject": catalog.RejectNegative, "clamp": catalog.ClampAtZero,
	} {
		got, err := catalog.ParseStockPolicy(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
	_, err := catalog.ParseStockPolicy("backorder")
	assert.Error(t, err)
	assert.Equal(t, "clamp", catalog.ClampAtZero.String())
}

func TestCounters(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	p := create(t, e, models.CreateProductRequest{StockQuantity: 10})

	for range 3 {
		_, err := e.IncrementViewCount(ctx, p.ID)
		require.NoError(t, err)
	}
	got, err := e.IncrementSoldCount(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ViewCount)
	assert.Equal(t, 4, got.SoldCount)
	assert.Equal(t, 10, got.StockQuantity)

	_, err = e.IncrementSoldCount(ctx, p.ID, 0)
	assert.ErrorIs(t, err, errs.ErrValidation)

	got, err = e.RecordSale(ctx, p.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, 10, got.SoldCount)
	assert.Equal(t, 4, got.StockQuantity)

	_, err = e.IncrementViewCount(ctx, 999)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestFlagsAndDelete(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	p := create(t, e, models.CreateProductRequest{StockQuantity: 1})

	got, err := e.SetFeatured(ctx, p.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Featured)
	assert.False(t, got.Bestseller)

	got, err = e.SetBestseller(ctx, p.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Bestseller)
	assert.True(t, got.Featured)

	require.NoError(t, e.DeleteProduct(ctx, p.ID))
	got, err = e.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusDiscontinued, got.Status)

	featured, err := e.FeaturedProducts(ctx, models.Unpaged)
	require.NoError(t, err)
	assert.Empty(t, featured.Items)
}

func TestUpdateProductLeavesCounters(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	p := create(t, e, models.CreateProductRequest{SKU: "S1"})
	_, err := e.UpdateRating(ctx, p.ID, 5)
	require.NoError(t, err)
	_, err = e.IncrementViewCount(ctx, p.ID)
	require.NoError(t, err)

	got, err := e.UpdateProduct(ctx, p.ID, models.UpdateProductRequest{
		SKU: "S1", Name: "Renamed", Price: dec("9.50"), OriginalPrice: decimal.NewNullDecimal(dec("10.00")),
		Status: models.ProductStatusInactive, Category: models.CategoryHealth, StockQuantity: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 1, got.ViewCount)
	assert.Equal(t, 1, got.RatingCount)
	assert.Equal(t, "5.00", got.RatingAverage.StringFixed(2))
	assert.True(t, got.HasDiscount())
}

func TestRankingQueries(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	a := create(t, e, models.CreateProductRequest{Name: "A", Price: dec("10.00"), StockQuantity: 1})
	b := create(t, e, models.CreateProductRequest{Name: "B", Price: dec("20.00"), Category: models.CategoryBooks})
	c := create(t, e, models.CreateProductRequest{Name: "C", Price: dec("30.00"), StockQuantity: 4})

	for _, step := range []struct {
		id      int64
		ratings []int
		views   int
		sold    int
	}{
		{a.ID, []int{4, 4}, 1, 5},
		{b.ID, []int{5}, 7, 2},
		{c.ID, []int{4, 4, 4}, 7, 5},
	} {
		for _, r := range step.ratings {
			_, err := e.UpdateRating(ctx, step.id, r)
			require.NoError(t, err)
		}
		for range step.views {
			_, err := e.IncrementViewCount(ctx, step.id)
			require.NoError(t, err)
		}
		_, err := e.IncrementSoldCount(ctx, step.id, step.sold)
		require.NoError(t, err)
	}

	top, err := e.TopRatedProducts(ctx, models.Unpaged)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, c.ID, a.ID}, productIDs(top.Items))

	viewed, err := e.MostViewedProducts(ctx, models.Unpaged)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, c.ID, a.ID}, productIDs(viewed.Items))

	selling, err := e.BestSellingProducts(ctx, models.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, c.ID}, productIDs(selling.Items))
	assert.Equal(t, int64(3), selling.Total)

	priced, err := e.ProductsByPriceRange(ctx, dec("15.00"), dec("30.00"), models.Unpaged)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID, c.ID}, productIDs(priced.Items))

	_, err = e.ProductsByPriceRange(ctx, dec("30.00"), dec("15.00"), models.Unpaged)
	assert.ErrorIs(t, err, errs.ErrValidation)

	rated, err := e.ProductsByRatingRange(ctx, dec("4.50"), dec("5.00"), models.Unpaged)
	require.NoError(t, err)
	assert.Equal(t, []int64{b.ID}, productIDs(rated.Items))

	_, err = e.ProductsByRatingRange(ctx, dec("5"), dec("1"), models.Unpaged)
	assert.ErrorIs(t, err, errs.ErrValidation)

	n, err := e.CountByCategory(ctx, models.CategoryBooks)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = e.CountInStockProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = e.CountActiveProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = e.CountByStatus(ctx, "GONE")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestExistsAndLookup(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	create(t, e, models.CreateProductRequest{SKU: "SKU-9", Barcode: "4006381333931"})

	ok, err := e.ExistsBySKU(ctx, "SKU-9")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.ExistsBySKU(ctx, "SKU-10")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.ExistsByBarcode(ctx, "4006381333931")
	require.NoError(t, err)
	assert.True(t, ok)

	p, err := e.GetProductByBarcode(ctx, "4006381333931")
	require.NoError(t, err)
	assert.Equal(t, "SKU-9", p.SKU)
}

func TestSearchProducts(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine()
	create(t, e, models.CreateProductRequest{Name: "Espresso Machine", Brand: "Acme"})
	create(t, e, models.CreateProductRequest{Name: "Grinder", Description: "pairs with any espresso setup", Brand: "acme"})
	create(t, e, models.CreateProductRequest{Name: "Kettle"})

	page, err := e.SearchProducts(ctx, "ESPRESSO", models.Unpaged)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	brand, err := e.ProductsByBrand(ctx, "ACME", models.Unpaged)
	require.NoError(t, err)
	assert.Len(t, brand.Items, 2)

	_, err = e.SearchProducts(ctx, "  ", models.Unpaged)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func productIDs(products []models.Product) []int64 {
	out := make([]int64, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}
