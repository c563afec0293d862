package fulfillment_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safar/retail-store/internal/catalog"
	"github.com/safar/retail-store/internal/errs"
	"github.com/safar/retail-store/internal/fulfillment"
	"github.com/safar/retail-store/internal/models"
	"github.com/safar/retail-store/internal/order"
	"github.com/safar/retail-store/internal/store/memory"
)

type setup struct {
	store    *memory.Store
	orders   *order.Engine
	products *catalog.Engine
	userID   int64
}

func newSetup(t *testing.T) setup {
	t.Helper()
	s := memory.New()
	u := &models.User{Username: "shopper", Email: "shopper@example.com"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return setup{store: s, orders: order.NewEngine(s), products: catalog.NewEngine(s), userID: u.ID}
}

func (s setup) product(t *testing.T, name string, stock int) *models.Product {
	t.Helper()
	p, err := s.products.CreateProduct(context.Background(), models.CreateProductRequest{
		Name: name, Category: models.CategorySports, Price: decimal.RequireFromString("5.00"), StockQuantity: stock,
	})
	require.NoError(t, err)
	return p
}

func (s setup) order(t *testing.T, lines ...models.OrderItemRequest) *models.Order {
	t.Helper()
	o, err := s.orders.CreateOrder(context.Background(), models.CreateOrderRequest{UserID: s.userID, Items: lines})
	require.NoError(t, err)
	return o
}

func line(productID int64, qty int) models.OrderItemRequest {
	return models.OrderItemRequest{ProductID: productID, Quantity: qty, UnitPrice: decimal.RequireFromString("5.00")}
}

func TestShipAndRecordAppliesBothSides(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t)
	ball := s.product(t, "ball", 10)
	net := s.product(t, "net", 3)
	o := s.order(t, line(ball.ID, 2), line(net.ID, 1), line(ball.ID, 3))

	svc := fulfillment.NewService(s.store)
	shipped, err := svc.ShipAndRecord(ctx, o.ID, "TRK-77", models.ShippingMethodStandard)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, shipped.Status)
	assert.Equal(t, "TRK-77", shipped.TrackingNumber)

	gotBall, err := s.products.GetProduct(ctx, ball.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, gotBall.StockQuantity)
	assert.Equal(t, 5, gotBall.SoldCount)

	gotNet, err := s.products.GetProduct(ctx, net.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gotNet.StockQuantity)
	assert.Equal(t, 1, gotNet.SoldCount)
}

func TestShipAndRecordRollsBackOnStockRejection(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t)
	plenty := s.product(t, "plenty", 50)
	scarce := s.product(t, "scarce", 1)
	o := s.order(t, line(plenty.ID, 4), line(scarce.ID, 2))

	svc := fulfillment.NewService(s.store,
		fulfillment.WithCatalogOptions(catalog.WithStockPolicy(catalog.RejectNegative)))
	_, err := svc.ShipAndRecord(ctx, o.ID, "TRK-1", models.ShippingMethodExpress)
	assert.ErrorIs(t, err, errs.ErrInvalidState)

	stored, err := s.orders.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Empty(t, stored.TrackingNumber)

	gotPlenty, err := s.products.GetProduct(ctx, plenty.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, gotPlenty.StockQuantity)
	assert.Zero(t, gotPlenty.SoldCount)
}

func TestShipAndRecordUnknownOrder(t *testing.T) {
	s := newSetup(t)
	svc := fulfillment.NewService(s.store)
	_, err := svc.ShipAndRecord(context.Background(), 404, "TRK", models.ShippingMethodPickup)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestShipAndRecordCountsSaleOnce(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t)
	ball := s.product(t, "ball", 10)
	o := s.order(t, line(ball.ID, 2))

	svc := fulfillment.NewService(s.store)
	_, err := svc.ShipAndRecord(ctx, o.ID, "TRK-1", models.ShippingMethodStandard)
	require.NoError(t, err)

	reshipped, err := svc.ShipAndRecord(ctx, o.ID, "TRK-2", models.ShippingMethodExpress)
	require.NoError(t, err)
	assert.Equal(t, "TRK-2", reshipped.TrackingNumber)
	assert.Equal(t, models.ShippingMethodExpress, reshipped.ShippingMethod)

	got, err := s.products.GetProduct(ctx, ball.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.StockQuantity)
	assert.Equal(t, 2, got.SoldCount)
}

func TestShipAndRecordRefusesClosedOrders(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t)
	ball := s.product(t, "ball", 10)
	svc := fulfillment.NewService(s.store)

	cancelled := s.order(t, line(ball.ID, 1))
	_, err := s.orders.CancelOrder(ctx, cancelled.ID, "changed mind")
	require.NoError(t, err)

	refunded := s.order(t, line(ball.ID, 3))
	_, err = s.orders.UpdateOrderStatus(ctx, refunded.ID, models.OrderStatusRefunded)
	require.NoError(t, err)

	for _, id := range []int64{cancelled.ID, refunded.ID} {
		_, err := svc.ShipAndRecord(ctx, id, "TRK", models.ShippingMethodStandard)
		assert.ErrorIs(t, err, errs.ErrInvalidState)
	}

	got, err := s.products.GetProduct(ctx, ball.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.StockQuantity)
	assert.Zero(t, got.SoldCount)

	stored, err := s.orders.GetOrder(ctx, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
}
