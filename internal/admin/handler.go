package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pricescout/pricescout/internal/platform/httpx"
	"github.com/pricescout/pricescout/internal/products"
	"github.com/pricescout/pricescout/internal/shared"
)

// sessionRoleKey marks a session as an operator session.
const sessionRoleKey = "role"

// Handler exposes the admin endpoints. The product service is held
// directly so moderation responses reuse its JSON projection.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	products *products.Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, prodSvc *products.Service) *Handler {
	return &Handler{logger: logger, service: service, products: prodSvc}
}

// MountRoutes registers the admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/admin/session", h.login)
	r.Group(func(r chi.Router) {
		r.Use(RequireAdmin)
		r.Get("/admin/dashboard", h.dashboard)
		r.Get("/admin/merchants", h.listMerchants)
		r.Get("/admin/merchants/pending", h.listPending)
		r.Get("/admin/merchants/{id}", h.getMerchant)
		r.Post("/admin/merchants/{id}/approve", h.approve)
		r.Post("/admin/merchants/{id}/reject", h.reject)
		r.Post("/admin/merchants/{id}/block", h.block)
		r.Post("/admin/merchants/{id}/unblock", h.unblock)
		r.Delete("/admin/merchants/{id}", h.deleteMerchant)
		r.Get("/admin/products/{id}", h.getProduct)
		r.Put("/admin/products/{id}", h.updateProduct)
		r.Delete("/admin/products/{id}", h.deleteProduct)
		r.Get("/admin/stats", h.stats)
	})
}

// RequireAdmin rejects requests whose session is not an operator session.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.Get(sessionRoleKey) != "admin" {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Token string `json:"token"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Login(req.Token); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	sess.Set(sessionRoleKey, "admin")
	httpx.JSON(w, http.StatusCreated, map[string]string{"status": "authenticated"})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) listMerchants(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Merchants(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.PendingMerchants(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

func (h *Handler) getMerchant(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Merchant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"id": m.ID, "status": string(m.Status)})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reject(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) block(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Block(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unblock(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unblock(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteMerchant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteMerchant(r.Context(), id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.respondError(w, err)
			return
		}
		h.logger.Error("admin merchant delete failed", slog.String("merchant_id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusConflict, "partial delete",
			"some product batches could not be removed; retry the delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	p, err := h.products.GetAny(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.products.ToJSON(p))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	var req products.UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.products.GetAny(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	updated, err := h.products.Update(r.Context(), p.MerchantID, id, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.products.ToJSON(updated))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	if err := h.products.DeleteAny(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	stats, err := h.service.SearchStats(r.Context(), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	h.logger.Error("admin request failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
