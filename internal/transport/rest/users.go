package rest

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/safar/retail-store/internal/models"
)

func (h *Handler) userRoutes(r chi.Router) {
	r.Post("/", h.createUser)
	r.Get("/", h.listUsers)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.getUser)
		r.Get("/orders", h.userOrders)
		r.Get("/orders/feed", h.userOrderFeed)
	})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := models.Validate(req); err != nil {
		h.respondError(w, r, err)
		return
	}

	user := &models.User{Username: req.Username, Email: req.Email, Name: req.Name}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.logger(r).WithField("user_id", user.ID).Info("user created")
	h.respondJSON(w, r, http.StatusCreated, user)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	page := q.page()
	if q.err != nil {
		h.respondError(w, r, q.err)
		return
	}
	users, err := h.users.ListUsers(r.Context(), page)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, users)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, user)
}

func (h *Handler) userOrders(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	q := newQuery(r)
	page := q.page()
	if q.err != nil {
		h.respondError(w, r, q.err)
		return
	}
	orders, err := h.orders.OrdersForUser(r.Context(), id, page)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, orders)
}

func (h *Handler) userOrderFeed(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	q := newQuery(r)
	limit := q.int("limit", models.DefaultPageSize)
	if q.err != nil {
		h.respondError(w, r, q.err)
		return
	}
	feed, err := h.orders.OrderFeed(r.Context(), id, q.str("cursor"), limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, feed)
}
