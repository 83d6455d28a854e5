package search

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pricescout/pricescout/internal/platform/httpx"
	"github.com/pricescout/pricescout/internal/shared"
)

// Handler exposes the public search endpoints. No session is required.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the search routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/search", h.search)
	r.Get("/search/products/{id}", h.productDetail)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := Query{
		Term:         params.Get("q"),
		State:        params.Get("state"),
		City:         params.Get("city"),
		DeliversOnly: params.Get("delivers") == "true",
		UserLat:      parseCoordParam(params.Get("lat")),
		UserLon:      parseCoordParam(params.Get("lon")),
		Sort:         ParseSortModes(params["sort"]),
	}
	listings, err := h.service.Search(r.Context(), q)
	if err != nil {
		h.logger.Error("search failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items": listings,
		"total": len(listings),
	})
}

func (h *Handler) productDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	params := r.URL.Query()
	listing, err := h.service.ProductDetail(r.Context(), id, parseCoordParam(params.Get("lat")), parseCoordParam(params.Get("lon")))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("product detail failed", slog.Int64("product_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listing)
}

func parseCoordParam(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
