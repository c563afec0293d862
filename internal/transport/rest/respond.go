package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/safar/retail-store/internal/errs"
	"github.com/safar/retail-store/internal/models"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (h *Handler) logger(r *http.Request) *log.Entry {
	return h.entry.WithField("request_id", middleware.GetReqID(r.Context()))
}

func (h *Handler) respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		h.logger(r).WithError(err).Error("encode response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// respondError maps the error kind onto an HTTP status. Unclassified errors
// are logged and reported without detail.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	if kind := errs.Kind(err); kind != nil {
		resp.Kind = kind.Error()
	}

	if status == http.StatusInternalServerError {
		h.logger(r).WithError(err).WithField("path", r.URL.Path).Error("request failed")
		resp = errorResponse{Error: "internal server error"}
	} else {
		h.logger(r).WithError(err).WithField("status", status).Debug("request rejected")
	}
	h.respondJSON(w, r, status, resp)
}

func statusFor(err error) int {
	switch errs.Kind(err) {
	case errs.ErrNotFound:
		return http.StatusNotFound
	case errs.ErrValidation, errs.ErrInvalidState:
		return http.StatusBadRequest
	case errs.ErrConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errs.Validationf("invalid request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validationf("invalid %s %q", name, raw)
	}
	return id, nil
}

// query reads optional typed parameters from a URL query, remembering the
// first malformed one.
type query struct {
	r   *http.Request
	err error
}

func newQuery(r *http.Request) *query {
	return &query{r: r}
}

func (q *query) str(key string) string {
	return q.r.URL.Query().Get(key)
}

func (q *query) fail(key, raw string) {
	if q.err == nil {
		q.err = errs.Validationf("invalid query parameter %s=%q", key, raw)
	}
}

func (q *query) int(key string, def int) int {
	raw := q.str(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(key, raw)
	}
	return n
}

func (q *query) int64Ptr(key string) *int64 {
	raw := q.str(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		q.fail(key, raw)
		return nil
	}
	return &n
}

func (q *query) bool(key string) bool {
	raw := q.str(key)
	if raw == "" {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(key, raw)
	}
	return b
}

func (q *query) decimal(key string) *decimal.Decimal {
	raw := q.str(key)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		q.fail(key, raw)
		return nil
	}
	return &d
}

func (q *query) time(key string) *time.Time {
	raw := q.str(key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		q.fail(key, raw)
		return nil
	}
	return &t
}

// page reads page, size and sort. Requests without page or size list every
// match. A leading "-" on sort selects descending order.
func (q *query) page() models.PageRequest {
	req := models.PageRequest{Page: q.int("page", 0), Size: q.int("size", 0)}
	if sort := q.str("sort"); sort != "" {
		if sort[0] == '-' {
			req.SortDesc = true
			sort = sort[1:]
		}
		req.SortField = sort
	}
	if req.Page < 0 || req.Size < 0 {
		q.fail("page", strconv.Itoa(req.Page))
	}
	return req
}
