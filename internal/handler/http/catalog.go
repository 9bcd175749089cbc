package http

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Vuongsinguyen/VyBrows-Store/internal/catalog"
	apperrors "github.com/Vuongsinguyen/VyBrows-Store/pkg/errors"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/httputil"
	"github.com/Vuongsinguyen/VyBrows-Store/pkg/pagination"
)

// maxRecommendations caps ?limit= on the recommendations endpoint.
const maxRecommendations = 12

// CatalogHandler handles HTTP requests for product and collection endpoints.
type CatalogHandler struct {
	store  *catalog.Store
	logger *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(store *catalog.Store, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		store:  store,
		logger: logger,
	}
}

// ListProducts handles GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, r.URL.Query().Get("tag"))
}

// CollectionProducts handles GET /api/v1/collections/{tag}/products
func (h *CatalogHandler) CollectionProducts(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	known := slices.ContainsFunc(h.store.Collections(r.Context()), func(t string) bool {
		return strings.EqualFold(t, tag)
	})
	if !known {
		httputil.WriteError(w, r, apperrors.NotFound("collection", tag), h.logger)
		return
	}
	h.listProducts(w, r, tag)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request, tag string) {
	q := r.URL.Query()
	params := pagination.FromRequest(r)

	sortBy := q.Get("sort")
	if !catalog.ValidSort(sortBy) {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "sort must be one of: relevance, trending-desc, latest-desc, price-asc, price-desc"},
		})
		return
	}

	result, err := h.store.ListProducts(r.Context(), catalog.Filter{
		Query:   q.Get("q"),
		Tag:     tag,
		Sort:    sortBy,
		Page:    params.Page,
		PerPage: params.PerPage,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// GetProduct handles GET /api/v1/products/{handle}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.store.GetProduct(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, product)
}

// Recommendations handles GET /api/v1/products/{handle}/recommendations
func (h *CatalogHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	n := catalog.DefaultRecommendations
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxRecommendations {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "limit must be a valid integer between 1 and " + strconv.Itoa(maxRecommendations)},
			})
			return
		}
		n = limit
	}

	product, err := h.store.GetProduct(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, h.store.Recommendations(r.Context(), product.ID, n))
}

// ListCollections handles GET /api/v1/collections
func (h *CatalogHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.store.Collections(r.Context()))
}

// Revalidate handles POST /api/v1/revalidate
func (h *CatalogHandler) Revalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reload(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "catalog reload failed", slog.String("error", err.Error()))
		httputil.WriteError(w, r, apperrors.ServiceUnavailable("catalog could not be reloaded"), h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]any{
		"revalidated": true,
		"products":    h.store.Count(),
	})
}
