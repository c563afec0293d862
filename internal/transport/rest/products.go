package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safar/retail-store/internal/errs"
	"github.com/safar/retail-store/internal/models"
)

func (h *Handler) productRoutes(r chi.Router) {
	r.Post("/", h.createProduct)
	r.Get("/", h.listProducts)
	r.Get("/top-rated", h.rankedProducts(models.ProductOrderTopRated))
	r.Get("/most-viewed", h.rankedProducts(models.ProductOrderMostViewed))
	r.Get("/best-selling", h.rankedProducts(models.ProductOrderBestSelling))
	r.Get("/stats", h.productStats)
	r.Get("/sku/{sku}", h.productBySKU)
	r.Get("/barcode/{barcode}", h.productByBarcode)
	r.Get("/exists", h.productExists)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.getProduct)
		r.Put("/", h.updateProduct)
		r.Delete("/", h.deleteProduct)
		r.Post("/views", h.viewProduct)
		r.Post("/stock", h.adjustStock)
		r.Post("/sales", h.recordSale)
		r.Post("/ratings", h.rateProduct)
		r.Put("/featured", h.setFeatured)
		r.Put("/bestseller", h.setBestseller)
		r.Get("/availability", h.productAvailability)
	})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProductRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.products.CreateProduct(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, p)
}

// listProducts filters the catalog. A non-empty q runs the active-only
// keyword search instead.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	filter := models.ProductFilter{
		ActiveOnly:     q.bool("active"),
		InStockOnly:    q.bool("in_stock"),
		FeaturedOnly:   q.bool("featured"),
		BestsellerOnly: q.bool("bestseller"),
		MinPrice:       q.decimal("min_price"),
		MaxPrice:       q.decimal("max_price"),
		MinRating:      q.decimal("min_rating"),
		MaxRating:      q.decimal("max_rating"),
		Brand:          q.str("brand"),
		Manufacturer:   q.str("manufacturer"),
	}
	if c := q.str("category"); c != "" {
		category := models.ProductCategory(c)
		filter.Category = &category
	}
	if s := q.str("status"); s != "" {
		status := models.ProductStatus(s)
		filter.Status = &status
	}
	page := q.page()
	if q.err != nil {
		h.respondError(w, r, q.err)
		return
	}

	var (
		products *models.Page[models.Product]
		err      error
	)
	if term := q.str("q"); term != "" {
		products, err = h.products.SearchProducts(r.Context(), term, page)
	} else {
		products, err = h.products.ListProducts(r.Context(), filter, page)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, products)
}

func (h *Handler) rankedProducts(order models.ProductOrder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		page := q.page()
		if q.err != nil {
			h.respondError(w, r, q.err)
			return
		}

		var (
			products *models.Page[models.Product]
			err      error
		)
		switch order {
		case models.ProductOrderTopRated:
			products, err = h.products.TopRatedProducts(r.Context(), page)
		case models.ProductOrderMostViewed:
			products, err = h.products.MostViewedProducts(r.Context(), page)
		default:
			products, err = h.products.BestSellingProducts(r.Context(), page)
		}
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		h.respondJSON(w, r, http.StatusOK, products)
	}
}

type productStats struct {
	Active     int64                            `json:"active"`
	InStock    int64                            `json:"in_stock"`
	ByCategory map[models.ProductCategory]int64 `json:"by_category"`
	ByStatus   map[models.ProductStatus]int64   `json:"by_status"`
}

func (h *Handler) productStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := productStats{
		ByCategory: make(map[models.ProductCategory]int64, len(models.ProductCategories)),
		ByStatus:   make(map[models.ProductStatus]int64, len(models.ProductStatuses)),
	}

	var err error
	if stats.Active, err = h.products.CountActiveProducts(ctx); err != nil {
		h.respondError(w, r, err)
		return
	}
	if stats.InStock, err = h.products.CountInStockProducts(ctx); err != nil {
		h.respondError(w, r, err)
		return
	}
	for _, c := range models.ProductCategories {
		if stats.ByCategory[c], err = h.products.CountByCategory(ctx, c); err != nil {
			h.respondError(w, r, err)
			return
		}
	}
	for _, s := range models.ProductStatuses {
		if stats.ByStatus[s], err = h.products.CountByStatus(ctx, s); err != nil {
			h.respondError(w, r, err)
			return
		}
	}
	h.respondJSON(w, r, http.StatusOK, stats)
}

func (h *Handler) productBySKU(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetProductBySKU(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, p)
}

func (h *Handler) productByBarcode(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetProductByBarcode(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, p)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.products.GetProduct(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req models.UpdateProductRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.products.UpdateProduct(r.Context(), id, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.products.DeleteProduct(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// productMutation decodes body into req (when non-nil) and applies fn to the
// product named in the path.
func (h *Handler) productMutation(w http.ResponseWriter, r *http.Request, req any, fn func(id int64) (*models.Product, error)) {
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
	p, err := fn(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, p)
}

func (h *Handler) viewProduct(w http.ResponseWriter, r *http.Request) {
	h.productMutation(w, r, nil, func(id int64) (*models.Product, error) {
		return h.products.IncrementViewCount(r.Context(), id)
	})
}

type stockRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	h.productMutation(w, r, &req, func(id int64) (*models.Product, error) {
		return h.products.UpdateStockQuantity(r.Context(), id, req.Delta)
	})
}

type saleRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) recordSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	h.productMutation(w, r, &req, func(id int64) (*models.Product, error) {
		return h.products.RecordSale(r.Context(), id, req.Quantity)
	})
}

type ratingRequest struct {
	Rating int `json:"rating" validate:"min=1,max=5"`
}

func (h *Handler) rateProduct(w http.ResponseWriter, r *http.Request) {
	var req ratingRequest
	h.productMutation(w, r, &req, func(id int64) (*models.Product, error) {
		if err := models.Validate(req); err != nil {
			return nil, err
		}
		return h.products.UpdateRating(r.Context(), id, req.Rating)
	})
}

type flagRequest struct {
	Value bool `json:"value"`
}

func (h *Handler) setFeatured(w http.ResponseWriter, r *http.Request) {
	var req flagRequest
	h.productMutation(w, r, &req, func(id int64) (*models.Product, error) {
		return h.products.SetFeatured(r.Context(), id, req.Value)
	})
}

func (h *Handler) setBestseller(w http.ResponseWriter, r *http.Request) {
	var req flagRequest
	h.productMutation(w, r, &req, func(id int64) (*models.Product, error) {
		return h.products.SetBestseller(r.Context(), id, req.Value)
	})
}

// productExists reports whether a product carries the given sku or barcode.
func (h *Handler) productExists(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)

	var (
		exists bool
		err    error
	)
	switch {
	case q.str("sku") != "":
		exists, err = h.products.ExistsBySKU(r.Context(), q.str("sku"))
	case q.str("barcode") != "":
		exists, err = h.products.ExistsByBarcode(r.Context(), q.str("barcode"))
	default:
		err = errs.Validationf("sku or barcode is required")
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *Handler) productAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	inStock, err := h.products.IsInStock(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]bool{"in_stock": inStock})
}
