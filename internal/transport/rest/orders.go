package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/safar/retail-store/internal/errs"
	"github.com/safar/retail-store/internal/models"
)

func (h *Handler) orderRoutes(r chi.Router) {
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/attention", h.ordersNeedingAttention)
	r.Get("/tracking", h.searchTracking)
	r.Get("/stats", h.orderStats)
	r.Get("/revenue", h.orderRevenue)
	r.Get("/counts", h.orderCounts)
	r.Get("/number/{number}", h.orderByNumber)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.getOrder)
		r.Put("/", h.updateOrder)
		r.Delete("/", h.deleteOrder)
		r.Get("/total", h.orderTotal)
		r.Get("/eligibility", h.orderEligibility)
		r.Put("/status", h.setOrderStatus)
		r.Put("/payment-status", h.setPaymentStatus)
		r.Put("/tracking", h.setTracking)
		r.Put("/estimated-delivery", h.setEstimatedDelivery)
		r.Post("/cancel", h.cancelOrder)
		r.Post("/pay", h.payOrder)
		r.Post("/ship", h.shipOrder)
		r.Post("/deliver", h.deliverOrder)
		r.Post("/return", h.returnOrder)
		r.Post("/refund", h.refundOrder)
	})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	o, err := h.orders.CreateOrder(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := models.OrderFilter{
		UserID:      q.int64Ptr("user_id"),
		CreatedFrom: q.time("created_from"),
		CreatedTo:   q.time("created_to"),
		MinAmount:   q.decimal("min_amount"),
		MaxAmount:   q.decimal("max_amount"),
	}
	if s := q.str("status"); s != "" {
		status := models.OrderStatus(s)
		filter.Status = &status
	}
	if s := q.str("payment_status"); s != "" {
		status := models.PaymentStatus(s)
		filter.PaymentStatus = &status
	}
	if s := q.str("shipping_method"); s != "" {
		method := models.ShippingMethod(s)
		filter.ShippingMethod = &method
	}
	page := q.page()
	if q.err != nil {
		h.respondError(w, r, q.err)
		return
	}

	orders, err := h.orders.ListOrders(r.Context(), filter, page)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, orders)
}

func (h *Handler) ordersNeedingAttention(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	page := q.page()
	if q.err != nil {
		h.respondError(w, r, q.err)
		return
	}
	orders, err := h.orders.OrdersNeedingAttention(r.Context(), page)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, orders)
}

func (h *Handler) searchTracking(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	page := q.page()
	if q.err != nil {
		h.respondError(w, r, q.err)
		return
	}
	orders, err := h.orders.SearchByTrackingNumber(r.Context(), q.str("q"), page)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, orders)
}

// window reads start and end; both default to the last 30 days.
func (q *query) window() (time.Time, time.Time) {
	now := time.Now()
	start, end := now.AddDate(0, 0, -30), now
	if t := q.time("start"); t != nil {
		start = *t
	}
	if t := q.time("end"); t != nil {
		end = *t
	}
	return start, end
}

func (h *Handler) orderStats(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	start, end := q.window()
	if q.err != nil {
		h.respondError(w, r, q.err)
		return
	}

	stats, err := h.orders.GetOrderStatistics(r.Context(), start, end)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, stats)
}

type revenue struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

func (h *Handler) orderRevenue(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	start, end := q.window()
	if q.err != nil {
		h.respondError(w, r, q.err)
		return
	}

	var (
		resp revenue
		err  error
	)
	if resp.TotalRevenue, err = h.orders.GetTotalRevenue(r.Context(), start, end); err != nil {
		h.respondError(w, r, err)
		return
	}
	if resp.AverageOrderValue, err = h.orders.GetAverageOrderValue(r.Context(), start, end); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, resp)
}

// orderCounts counts orders in one fulfillment or payment status.
func (h *Handler) orderCounts(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)

	var (
		count int64
		err   error
	)
	switch {
	case q.str("status") != "":
		count, err = h.orders.CountByStatus(r.Context(), models.OrderStatus(q.str("status")))
	case q.str("payment_status") != "":
		count, err = h.orders.CountByPaymentStatus(r.Context(), models.PaymentStatus(q.str("payment_status")))
	default:
		err = errs.Validationf("status or payment_status is required")
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]int64{"count": count})
}

func (h *Handler) orderByNumber(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrderByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, o)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, o)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.orders.DeleteOrder(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) orderTotal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	total, err := h.orders.CalculateOrderTotal(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]decimal.Decimal{"total_amount": total})
}

func (h *Handler) orderEligibility(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	cancel, err := h.orders.CanBeCancelled(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	ret, err := h.orders.CanBeReturned(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]bool{"can_cancel": cancel, "can_return": ret})
}

// orderMutation decodes body into req (when non-nil) and applies fn to the
// order named in the path.
func (h *Handler) orderMutation(w http.ResponseWriter, r *http.Request, req any, fn func(id int64) (*models.Order, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if req != nil {
		if err := decode(r, req); err != nil {
			h.respondError(w, r, err)
			return
		}
	}
	o, err := fn(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, o)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateOrderRequest
	h.orderMutation(w, r, &req, func(id int64) (*models.Order, error) {
		return h.orders.UpdateOrder(r.Context(), id, req)
	})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	h.orderMutation(w, r, &req, func(id int64) (*models.Order, error) {
		return h.orders.UpdateOrderStatus(r.Context(), id, models.OrderStatus(req.Status))
	})
}

func (h *Handler) setPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	h.orderMutation(w, r, &req, func(id int64) (*models.Order, error) {
		return h.orders.UpdatePaymentStatus(r.Context(), id, models.PaymentStatus(req.Status))
	})
}

type trackingRequest struct {
	TrackingNumber string `json:"tracking_number"`
}

func (h *Handler) setTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	h.orderMutation(w, r, &req, func(id int64) (*models.Order, error) {
		return h.orders.UpdateTrackingNumber(r.Context(), id, req.TrackingNumber)
	})
}

type deliveryRequest struct {
	EstimatedDelivery time.Time `json:"estimated_delivery"`
}

func (h *Handler) setEstimatedDelivery(w http.ResponseWriter, r *http.Request) {
	var req deliveryRequest
	h.orderMutation(w, r, &req, func(id int64) (*models.Order, error) {
		return h.orders.UpdateEstimatedDelivery(r.Context(), id, req.EstimatedDelivery)
	})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	h.orderMutation(w, r, &req, func(id int64) (*models.Order, error) {
		return h.orders.CancelOrder(r.Context(), id, req.Reason)
	})
}

func (h *Handler) returnOrder(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	h.orderMutation(w, r, &req, func(id int64) (*models.Order, error) {
		return h.orders.ReturnOrder(r.Context(), id, req.Reason)
	})
}

type paymentRequest struct {
	Method string `json:"method"`
}

func (h *Handler) payOrder(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	h.orderMutation(w, r, &req, func(id int64) (*models.Order, error) {
		return h.orders.ProcessPayment(r.Context(), id, req.Method)
	})
}

type shipRequest struct {
	TrackingNumber string                `json:"tracking_number"`
	ShippingMethod models.ShippingMethod `json:"shipping_method"`
}

// shipOrder ships through the fulfillment service when one is configured so
// the catalog sees the sale in the same unit of work.
func (h *Handler) shipOrder(w http.ResponseWriter, r *http.Request) {
	var req shipRequest
	h.orderMutation(w, r, &req, func(id int64) (*models.Order, error) {
		if h.fulfillment != nil {
			return h.fulfillment.ShipAndRecord(r.Context(), id, req.TrackingNumber, req.ShippingMethod)
		}
		return h.orders.ShipOrder(r.Context(), id, req.TrackingNumber, req.ShippingMethod)
	})
}

func (h *Handler) deliverOrder(w http.ResponseWriter, r *http.Request) {
	h.orderMutation(w, r, nil, func(id int64) (*models.Order, error) {
		return h.orders.DeliverOrder(r.Context(), id)
	})
}

type refundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

func (h *Handler) refundOrder(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	h.orderMutation(w, r, &req, func(id int64) (*models.Order, error) {
		return h.orders.RefundOrder(r.Context(), id, req.Amount, req.Reason)
	})
}
