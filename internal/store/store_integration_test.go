//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/safar/retail-store/internal/catalog"
	"github.com/safar/retail-store/internal/database"
	"github.com/safar/retail-store/internal/errs"
	"github.com/safar/retail-store/internal/fulfillment"
	"github.com/safar/retail-store/internal/models"
	"github.com/safar/retail-store/internal/order"
	"github.com/safar/retail-store/internal/store"
	"github.com/safar/retail-store/migrations"
)

const skipIntegrationTests = "RETAIL_SKIP_INTEGRATION_TESTS"

type PostgresSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sql.DB
	store     *store.Postgres
	orders    *order.Engine
	products  *catalog.Engine
}

func (s *PostgresSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.container, err = postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("retail"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(s.T(), err, "start postgres container")

	dsn, err := s.container.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	version, err := database.Migrate(dsn, migrations.FS, database.MigrateUp)
	require.NoError(s.T(), err, "apply migrations")
	require.EqualValues(s.T(), 1, version)

	s.db, err = sql.Open("postgres", dsn)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.db.PingContext(s.ctx))

	s.store = store.NewPostgres(s.db)
	s.orders = order.NewEngine(s.store)
	s.products = catalog.NewEngine(s.store)
}

func (s *PostgresSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		if err := s.container.Terminate(s.ctx); err != nil {
			s.T().Logf("terminate container: %v", err)
		}
	}
}

func (s *PostgresSuite) SetupTest() {
	_, err := s.db.ExecContext(s.ctx, "TRUNCATE TABLE order_items, orders, products, users RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err)
}

func TestPostgresSuite(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("skipping integration tests: " + skipIntegrationTests + " is set")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) user(username string) *models.User {
	u := &models.User{Username: username, Email: username + "@example.com", Name: username}
	s.Require().NoError(s.store.CreateUser(s.ctx, u))
	return u
}

func (s *PostgresSuite) product(sku string, price string, stock int) *models.Product {
	p, err := s.products.CreateProduct(s.ctx, models.CreateProductRequest{
		SKU:           sku,
		Name:          "Product " + sku,
		Description:   "integration fixture",
		Category:      models.CategoryElectronics,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	})
	s.Require().NoError(err)
	return p
}

func (s *PostgresSuite) order(userID int64, lines ...models.OrderItemRequest) *models.Order {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	o, err := s.orders.CreateOrder(s.ctx, models.CreateOrderRequest{
		UserID:       userID,
		Subtotal:     decimal.NewNullDecimal(subtotal),
		TaxAmount:    decimal.NewNullDecimal(decimal.RequireFromString("2.00")),
		ShippingCost: decimal.NewNullDecimal(decimal.RequireFromString("5.00")),
		Items:        lines,
	})
	s.Require().NoError(err)
	return o
}

func line(p *models.Product, qty int) models.OrderItemRequest {
	return models.OrderItemRequest{ProductID: p.ID, Quantity: qty, UnitPrice: p.Price}
}

func (s *PostgresSuite) TestUserUniqueness() {
	s.user("alice")

	dup := &models.User{Username: "ALICE", Email: "other@example.com"}
	s.ErrorIs(s.store.CreateUser(s.ctx, dup), errs.ErrConflict)

	_, err := s.store.GetUser(s.ctx, 999)
	s.ErrorIs(err, errs.ErrNotFound)
}

func (s *PostgresSuite) TestProductRoundTrip() {
	p := s.product("SKU-1", "19.99", 10)
	s.Equal(models.ProductStatusActive, p.Status)
	s.Equal(1, p.Version)

	got, err := s.products.GetProductBySKU(s.ctx, "SKU-1")
	s.Require().NoError(err)
	s.True(got.Price.Equal(decimal.RequireFromString("19.99")))
	s.False(got.OriginalPrice.Valid)
	s.Empty(got.Barcode)

	_, err = s.products.CreateProduct(s.ctx, models.CreateProductRequest{
		SKU: "SKU-1", Name: "dup", Category: models.CategoryBooks, Price: decimal.NewFromInt(1),
	})
	s.ErrorIs(err, errs.ErrConflict)

	// Products without SKU or barcode do not collide on the unique indexes.
	for range 2 {
		_, err := s.products.CreateProduct(s.ctx, models.CreateProductRequest{
			Name: "loose", Category: models.CategoryBooks, Price: decimal.NewFromInt(1),
		})
		s.Require().NoError(err)
	}
}

func (s *PostgresSuite) TestRatingAndStock() {
	p := s.product("SKU-R", "10.00", 10)

	_, err := s.products.UpdateRating(s.ctx, p.ID, 4)
	s.Require().NoError(err)
	rated, err := s.products.UpdateRating(s.ctx, p.ID, 2)
	s.Require().NoError(err)
	s.Equal("3.00", rated.RatingAverage.StringFixed(2))
	s.Equal(2, rated.RatingCount)

	sold, err := s.products.RecordSale(s.ctx, p.ID, 3)
	s.Require().NoError(err)
	s.Equal(7, sold.StockQuantity)
	s.Equal(3, sold.SoldCount)

	neg, err := s.products.UpdateStockQuantity(s.ctx, p.ID, -9)
	s.Require().NoError(err)
	s.Equal(-2, neg.StockQuantity)
}

func (s *PostgresSuite) TestOptimisticLocking() {
	p := s.product("SKU-O", "5.00", 1)

	first, err := s.store.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)
	second, err := s.store.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)

	first.ViewCount++
	s.Require().NoError(s.store.UpdateProduct(s.ctx, first))
	s.Equal(2, first.Version)

	second.ViewCount += 5
	err = s.store.UpdateProduct(s.ctx, second)
	s.ErrorIs(err, database.ErrOptimisticLockFailed)
	s.ErrorIs(err, errs.ErrConflict)

	second.ID = 9999
	s.ErrorIs(s.store.UpdateProduct(s.ctx, second), errs.ErrNotFound)
}

func (s *PostgresSuite) TestRowLockFailsFast() {
	p := s.product("SKU-L", "5.00", 1)

	tx, err := s.db.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	defer tx.Rollback()

	_, err = store.LockProduct(s.ctx, tx, p.ID)
	s.Require().NoError(err)

	err = s.store.Do(s.ctx, func(_ order.Repository, products catalog.Repository) error {
		_, err := products.GetProduct(s.ctx, p.ID)
		return err
	})
	s.ErrorIs(err, database.ErrLockTimeout)
}

func (s *PostgresSuite) TestOrderLifecycle() {
	u := s.user("buyer")
	p := s.product("SKU-O1", "19.99", 10)

	o := s.order(u.ID, line(p, 2))
	s.Regexp(`^ORD-\d{8}-[0-9A-F]{12}$`, o.OrderNumber)
	s.Equal("46.98", o.TotalAmount.StringFixed(2))
	s.Require().Len(o.Items, 1)
	s.Equal(o.ID, o.Items[0].OrderID)
	s.Equal("39.98", o.Items[0].TotalPrice.StringFixed(2))

	byNumber, err := s.orders.GetOrderByNumber(s.ctx, o.OrderNumber)
	s.Require().NoError(err)
	s.Equal(o.ID, byNumber.ID)
	s.Len(byNumber.Items, 1)

	shipped, err := s.orders.ShipOrder(s.ctx, o.ID, "TRK-XYZ-1", models.ShippingMethodExpress)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusShipped, shipped.Status)

	eta := time.Date(2030, 1, 2, 15, 0, 0, 0, time.UTC)
	_, err = s.orders.UpdateEstimatedDelivery(s.ctx, o.ID, eta)
	s.Require().NoError(err)

	got, err := s.orders.GetOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(models.ShippingMethodExpress, got.ShippingMethod)
	s.Equal("TRK-XYZ-1", got.TrackingNumber)
	s.Require().NotNil(got.EstimatedDelivery)
	s.True(eta.Equal(*got.EstimatedDelivery))

	found, err := s.orders.SearchByTrackingNumber(s.ctx, "xyz", models.Unpaged)
	s.Require().NoError(err)
	s.Equal(int64(1), found.Total)

	_, err = s.orders.CancelOrder(s.ctx, o.ID, "too late")
	s.ErrorIs(err, errs.ErrInvalidState)

	_, err = s.orders.CreateOrder(s.ctx, models.CreateOrderRequest{UserID: 777})
	s.ErrorIs(err, errs.ErrNotFound)

	_, err = s.orders.CreateOrder(s.ctx, models.CreateOrderRequest{
		UserID: u.ID,
		Items:  []models.OrderItemRequest{{ProductID: 4242, Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
	})
	s.ErrorIs(err, database.ErrProductNotFound)
}

func (s *PostgresSuite) TestListingAndStatistics() {
	u := s.user("stats")
	p := s.product("SKU-S", "19.99", 100)

	var ids []int64
	for range 3 {
		ids = append(ids, s.order(u.ID, line(p, 2)).ID)
	}
	_, err := s.orders.CancelOrder(s.ctx, ids[0], "changed mind")
	s.Require().NoError(err)

	page, err := s.orders.ListOrders(s.ctx, models.OrderFilter{UserID: &u.ID},
		models.PageRequest{Page: 1, Size: 2, SortField: "created_at", SortDesc: true})
	s.Require().NoError(err)
	s.Equal(int64(3), page.Total)
	s.Equal(2, page.TotalPages)
	s.Len(page.Items, 2)
	s.NotEmpty(page.Items[0].Items)

	_, err = s.orders.ListOrders(s.ctx, models.OrderFilter{}, models.PageRequest{Page: 1, Size: 5, SortField: "notes"})
	s.ErrorIs(err, errs.ErrValidation)

	attention, err := s.orders.OrdersNeedingAttention(s.ctx, models.Unpaged)
	s.Require().NoError(err)
	s.Equal(int64(3), attention.Total)

	stats, err := s.orders.GetOrderStatistics(s.ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(3), stats.TotalOrders)
	s.Equal(int64(2), stats.PendingOrders)
	s.Equal(int64(1), stats.CancelledOrders)
	s.Equal("140.94", stats.TotalRevenue.StringFixed(2))
	s.Equal("46.98", stats.AverageOrderValue.StringFixed(2))
}

func (s *PostgresSuite) TestOrderFeed() {
	u := s.user("feed")
	p := s.product("SKU-F", "1.00", 100)
	for range 15 {
		s.order(u.ID, line(p, 1))
	}

	first, err := s.orders.OrderFeed(s.ctx, u.ID, "", 10)
	s.Require().NoError(err)
	s.True(first.HasMore)
	s.NotEmpty(first.NextCursor)
	s.Len(first.Items, 10)

	second, err := s.orders.OrderFeed(s.ctx, u.ID, first.NextCursor, 10)
	s.Require().NoError(err)
	s.False(second.HasMore)
	s.Len(second.Items, 5)
	s.Greater(first.Items[9].ID, second.Items[0].ID)
}

func (s *PostgresSuite) TestProductQueries() {
	a := s.product("SKU-A", "10.00", 5)
	b := s.product("SKU-B", "30.00", 0)
	_, err := s.products.SetFeatured(s.ctx, a.ID, true)
	s.Require().NoError(err)
	_, err = s.products.IncrementViewCount(s.ctx, b.ID)
	s.Require().NoError(err)

	inStock, err := s.products.CountInStockProducts(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), inStock)

	featured, err := s.products.FeaturedProducts(s.ctx, models.Unpaged)
	s.Require().NoError(err)
	s.Require().Len(featured.Items, 1)
	s.Equal(a.ID, featured.Items[0].ID)

	ranged, err := s.products.ProductsByPriceRange(s.ctx, decimal.NewFromInt(20), decimal.NewFromInt(40), models.Unpaged)
	s.Require().NoError(err)
	s.Require().Len(ranged.Items, 1)
	s.Equal(b.ID, ranged.Items[0].ID)

	viewed, err := s.products.MostViewedProducts(s.ctx, models.PageRequest{Page: 1, Size: 1})
	s.Require().NoError(err)
	s.Equal(b.ID, viewed.Items[0].ID)

	found, err := s.products.SearchProducts(s.ctx, "sku-a", models.Unpaged)
	s.Require().NoError(err)
	s.Equal(int64(1), found.Total)

	s.Require().NoError(s.products.DeleteProduct(s.ctx, a.ID))
	active, err := s.products.CountActiveProducts(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), active)
}

func (s *PostgresSuite) TestShipAndRecordIsAtomic() {
	u := s.user("fulfil")
	plenty := s.product("SKU-P", "5.00", 50)
	scarce := s.product("SKU-Q", "5.00", 1)
	o := s.order(u.ID, line(plenty, 4), line(scarce, 2))

	svc := fulfillment.NewService(s.store,
		fulfillment.WithCatalogOptions(catalog.WithStockPolicy(catalog.RejectNegative)))
	_, err := svc.ShipAndRecord(s.ctx, o.ID, "TRK-1", models.ShippingMethodStandard)
	s.ErrorIs(err, errs.ErrInvalidState)

	stored, err := s.orders.GetOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusPending, stored.Status)

	gotPlenty, err := s.products.GetProduct(s.ctx, plenty.ID)
	s.Require().NoError(err)
	s.Equal(50, gotPlenty.StockQuantity)
	s.Zero(gotPlenty.SoldCount)
}

func (s *PostgresSuite) TestReshipDoesNotRecordSaleTwice() {
	u := s.user("reship")
	p := s.product("SKU-R", "5.00", 10)
	o := s.order(u.ID, line(p, 2))

	svc := fulfillment.NewService(s.store)
	_, err := svc.ShipAndRecord(s.ctx, o.ID, "TRK-1", models.ShippingMethodStandard)
	s.Require().NoError(err)
	again, err := svc.ShipAndRecord(s.ctx, o.ID, "TRK-2", models.ShippingMethodStandard)
	s.Require().NoError(err)
	s.Equal("TRK-2", again.TrackingNumber)

	got, err := s.products.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(8, got.StockQuantity)
	s.Equal(2, got.SoldCount)
}

func (s *PostgresSuite) TestConcurrentShipmentsNeverOversell() {
	u := s.user("rush")
	p := s.product("SKU-C", "5.00", 5)

	const concurrency = 10
	orderIDs := make([]int64, concurrency)
	for i := range orderIDs {
		orderIDs[i] = s.order(u.ID, line(p, 1)).ID
	}

	svc := fulfillment.NewService(s.store,
		fulfillment.WithCatalogOptions(catalog.WithStockPolicy(catalog.RejectNegative)))

	var wg sync.WaitGroup
	results := make(chan error, concurrency)
	for _, id := range orderIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ShipAndRecord(s.ctx, id, "TRK", models.ShippingMethodStandard)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	shipped := 0
	for err := range results {
		switch {
		case err == nil:
			shipped++
		case errors.Is(err, errs.ErrConflict), errors.Is(err, errs.ErrInvalidState):
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}

	got, err := s.products.GetProduct(s.ctx, p.ID)
	s.Require().NoError(err)
	s.GreaterOrEqual(shipped, 1)
	s.LessOrEqual(shipped, 5)
	s.Equal(5-shipped, got.StockQuantity)
	s.Equal(shipped, got.SoldCount)

	count, err := s.orders.CountByStatus(s.ctx, models.OrderStatusShipped)
	s.Require().NoError(err)
	assert.Equal(s.T(), int64(shipped), count)
}
