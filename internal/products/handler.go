package products

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pricescout/pricescout/internal/merchants"
	"github.com/pricescout/pricescout/internal/platform/httpx"
	"github.com/pricescout/pricescout/internal/shared"
)

// maxImageBytes bounds product image uploads.
const maxImageBytes = 5 << 20

// Handler exposes the merchant panel catalog endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the catalog routes. All of them require an active
// merchant session.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(merchants.RequireMerchant)
		r.Get("/products", h.list)
		r.Post("/products", h.create)
		r.Post("/products/batch-delete", h.batchDelete)
		r.Get("/products/{id}", h.get)
		r.Put("/products/{id}", h.update)
		r.Delete("/products/{id}", h.delete)
		r.Post("/products/{id}/image", h.uploadImage)
	})
}

func (h *Handler) merchantID(r *http.Request) string {
	return shared.SessionFromContext(r.Context()).User()
}

func productID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	perPage, _ := strconv.Atoi(query.Get("per_page"))
	q := ListQuery{
		Search:         query.Get("q"),
		IncompleteOnly: query.Get("incomplete") == "true",
		SortBy:         query.Get("sort"),
		SortDir:        query.Get("dir"),
		Page:           page,
		PerPage:        perPage,
	}
	items, pag, err := h.service.List(r.Context(), h.merchantID(r), q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]ProductJSON, 0, len(items))
	for i := range items {
		out = append(out, h.service.ToJSON(&items[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":       out,
		"page":        pag.Page,
		"per_page":    pag.PerPage,
		"total":       pag.Total,
		"total_pages": pag.TotalPages,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	p, err := h.service.Create(r.Context(), h.merchantID(r), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, h.service.ToJSON(p))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	p, err := h.service.Get(r.Context(), h.merchantID(r), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.ToJSON(p))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	p, err := h.service.Update(r.Context(), h.merchantID(r), id, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.ToJSON(p))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.Delete(r.Context(), h.merchantID(r), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) batchDelete(w http.ResponseWriter, r *http.Request) {
	var req BatchDeleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if len(req.IDs) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "ids is required")
		return
	}
	result, err := h.service.BatchDelete(r.Context(), h.merchantID(r), req.IDs)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	status := http.StatusOK
	if len(result.FailedBatches) > 0 {
		status = http.StatusMultiStatus
	}
	httpx.JSON(w, status, result)
}

func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", err.Error())
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", "image file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", err.Error())
		return
	}
	url, err := h.service.UploadImage(r.Context(), h.merchantID(r), id,
		data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"image_url": url})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationErrs.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, httpx.ErrValidation):
		httpx.RespondError(w, err)
	default:
		h.logger.Error("product request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
