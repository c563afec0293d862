// Package fulfillment joins the order and catalog engines for the one event
// that crosses them: an order's first shipment records its units as sold and
// takes them out of stock.
package fulfillment

import (
	"context"
	"fmt"
	"maps"
	"slices"

	log "github.com/sirupsen/logrus"

	"github.com/safar/retail-store/internal/catalog"
	"github.com/safar/retail-store/internal/errs"
	"github.com/safar/retail-store/internal/logging"
	"github.com/safar/retail-store/internal/models"
	"github.com/safar/retail-store/internal/order"
)

// UnitOfWork runs fn against repositories bound to one transaction. A non-nil
// error from fn rolls every write back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(orders order.Repository, products catalog.Repository) error) error
}

type Service struct {
	uow         UnitOfWork
	orderOpts   []order.Option
	catalogOpts []catalog.Option
	logger      *log.Entry
}

type Option func(*Service)

// WithOrderOptions configures the order engine built for each unit of work.
func WithOrderOptions(opts ...order.Option) Option {
	return func(s *Service) { s.orderOpts = append(s.orderOpts, opts...) }
}

// WithCatalogOptions configures the catalog engine built for each unit of work.
func WithCatalogOptions(opts ...catalog.Option) Option {
	return func(s *Service) { s.catalogOpts = append(s.catalogOpts, opts...) }
}

func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(uow UnitOfWork, opts ...Option) *Service {
	s := &Service{uow: uow, logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("component", "fulfillment")
	return s
}

// ShipAndRecord ships the order and, the first time it leaves PENDING or
// PROCESSING, raises the sold counter and lowers stock of every product on it
// by the ordered quantity. Shipping an order that is already on its way only
// updates the shipping details. CANCELLED and REFUNDED orders are refused.
// Either everything is written or nothing is.
func (s *Service) ShipAndRecord(ctx context.Context, orderID int64, tracking string, method models.ShippingMethod) (*models.Order, error) {
	var (
		shipped  *models.Order
		recorded bool
	)

	err := s.uow.Do(ctx, func(orders order.Repository, products catalog.Repository) error {
		orderEngine := order.NewEngine(orders, s.orderOpts...)
		catalogEngine := catalog.NewEngine(products, s.catalogOpts...)

		current, err := orderEngine.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		switch current.Status {
		case models.OrderStatusCancelled, models.OrderStatusRefunded:
			return errs.InvalidStatef("order %d is %s and cannot be fulfilled", orderID, current.Status)
		}
		firstShipment := current.Status == models.OrderStatusPending || current.Status == models.OrderStatusProcessing

		o, err := orderEngine.ShipOrder(ctx, orderID, tracking, method)
		if err != nil {
			return err
		}

		if firstShipment {
			qty := o.ItemQuantities()
			// Ascending product id keeps row lock order stable across concurrent shipments.
			for _, productID := range slices.Sorted(maps.Keys(qty)) {
				if _, err := catalogEngine.RecordSale(ctx, productID, qty[productID]); err != nil {
					return fmt.Errorf("record sale of product %d: %w", productID, err)
				}
			}
		}

		shipped, recorded = o, firstShipment
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("fulfillment rolled back")
		return nil, err
	}

	s.logger.WithFields(log.Fields{
		"order_id":      orderID,
		"products":      len(shipped.ItemQuantities()),
		"sale_recorded": recorded,
	}).Info("order shipped")
	return shipped, nil
}
