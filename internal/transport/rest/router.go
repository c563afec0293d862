// Package rest exposes the order and catalog engines over HTTP/JSON.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/safar/retail-store/internal/catalog"
	"github.com/safar/retail-store/internal/fulfillment"
	"github.com/safar/retail-store/internal/logging"
	"github.com/safar/retail-store/internal/models"
	"github.com/safar/retail-store/internal/order"
)

// UserStore is the subset of user persistence the API needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, page models.PageRequest) (*models.Page[models.User], error)
}

type Handler struct {
	orders      *order.Engine
	products    *catalog.Engine
	users       UserStore
	fulfillment *fulfillment.Service
	entry       *log.Entry
}

type Option func(*Handler)

func WithLogger(logger *log.Entry) Option {
	return func(h *Handler) {
		if logger != nil {
			h.entry = logger
		}
	}
}

// WithFulfillment makes order shipment also record the sale against the
// catalog in the same unit of work.
func WithFulfillment(svc *fulfillment.Service) Option {
	return func(h *Handler) { h.fulfillment = svc }
}

func NewHandler(orders *order.Engine, products *catalog.Engine, users UserStore, opts ...Option) *Handler {
	h := &Handler{
		orders:   orders,
		products: products,
		users:    users,
		entry:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.entry = h.entry.WithField("component", "rest")
	return h
}

// Routes mounts the API under /api/v1 plus a liveness probe at /healthz.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h.respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", h.userRoutes)
		r.Route("/products", h.productRoutes)
		r.Route("/orders", h.orderRoutes)
	})
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		h.logger(r).WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		}).Info("request handled")
	})
}
