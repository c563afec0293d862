// Package memory is a process-local implementation of the order and catalog
// repositories. It backs the engine tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/safar/retail-store/internal/catalog"
	"github.com/safar/retail-store/internal/fulfillment"
	"github.com/safar/retail-store/internal/models"
	"github.com/safar/retail-store/internal/order"
)

var (
	_ order.Repository       = (*Store)(nil)
	_ catalog.Repository     = (*Store)(nil)
	_ fulfillment.UnitOfWork = (*Store)(nil)
)

type state struct {
	users    map[int64]*models.User
	products map[int64]*models.Product
	orders   map[int64]*models.Order

	nextUserID    int64
	nextProductID int64
	nextOrderID   int64
	nextItemID    int64
}

func newState() *state {
	return &state{
		users:    make(map[int64]*models.User),
		products: make(map[int64]*models.Product),
		orders:   make(map[int64]*models.Order),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:         make(map[int64]*models.User, len(s.users)),
		products:      make(map[int64]*models.Product, len(s.products)),
		orders:        make(map[int64]*models.Order, len(s.orders)),
		nextUserID:    s.nextUserID,
		nextProductID: s.nextProductID,
		nextOrderID:   s.nextOrderID,
		nextItemID:    s.nextItemID,
	}
	for id, u := range s.users {
		uc := *u
		c.users[id] = &uc
	}
	for id, p := range s.products {
		c.products[id] = cloneProduct(p)
	}
	for id, o := range s.orders {
		c.orders[id] = cloneOrder(o)
	}
	return c
}

// Store keeps every entity in maps guarded by one mutex. Reads and writes
// hand out copies so callers never share memory with the store.
type Store struct {
	mu   *sync.Mutex
	data *state
	now  func() time.Time
	inTx bool
}

type Option func(*Store)

// WithClock overrides the timestamp source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		mu:   &sync.Mutex{},
		data: newState(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lock acquires the store mutex unless the caller already runs inside Do,
// which holds it for the whole unit of work.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Do runs fn with exclusive access to the store. When fn fails every change
// it made is discarded.
func (s *Store) Do(ctx context.Context, fn func(orders order.Repository, products catalog.Repository) error) error {
	if s.inTx {
		return fn(s, s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	tx := &Store{mu: s.mu, data: s.data, now: s.now, inTx: true}
	if err := fn(tx, tx); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func cloneProduct(p *models.Product) *models.Product {
	c := *p
	return &c
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	if o.EstimatedDelivery != nil {
		at := *o.EstimatedDelivery
		c.EstimatedDelivery = &at
	}
	if o.Items != nil {
		c.Items = make([]models.OrderItem, len(o.Items))
		copy(c.Items, o.Items)
	}
	return &c
}

// window slices items to the requested page.
func window[T any](items []T, page models.PageRequest) *models.Page[T] {
	total := int64(len(items))
	if page.IsUnpaged() {
		return models.NewPage(items, total, page)
	}
	page = page.Normalized()
	start := min(page.Offset(), len(items))
	end := min(start+page.Size, len(items))
	return models.NewPage(items[start:end], total, page)
}
