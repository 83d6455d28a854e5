package merchants

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pricescout/pricescout/internal/platform/httpx"
	"github.com/pricescout/pricescout/internal/shared"
)

// maxPhotoBytes bounds profile photo uploads.
const maxPhotoBytes = 5 << 20

// Handler exposes the merchant account endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	sessions *shared.SessionManager
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager) *Handler {
	return &Handler{logger: logger, service: service, sessions: sessions}
}

// MountRoutes registers merchant routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/merchants/signup", h.signup)
	r.Post("/session", h.createSession)
	r.Delete("/session", h.destroySession)

	r.Group(func(r chi.Router) {
		r.Use(RequireMerchant)
		r.Get("/merchants/me", h.me)
		r.Put("/merchants/me", h.updateProfile)
		r.Post("/merchants/me/photo", h.uploadPhoto)
		r.Delete("/merchants/me", h.deleteAccount)
	})
}

// RequireMerchant rejects requests without an active merchant session.
func RequireMerchant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	m, err := h.service.Signup(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ToJSON(m, time.Now()))
}

type createSessionRequest struct {
	AuthUserID string `json:"auth_user_id"`
}

// createSession turns a verified external auth identity into an app
// session. Credential verification itself happens upstream.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.AuthUserID == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "auth_user_id is required")
		return
	}
	m, err := h.service.Authenticate(r.Context(), req.AuthUserID, r.RemoteAddr, r.UserAgent())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, errors.New("session unavailable"))
		return
	}
	sess.SetUser(m.ID)
	httpx.JSON(w, http.StatusOK, ToJSON(m, time.Now()))
}

func (h *Handler) destroySession(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessions.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Get(r.Context(), shared.SessionFromContext(r.Context()).User())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToJSON(m, time.Now()))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	m, err := h.service.UpdateProfile(r.Context(), shared.SessionFromContext(r.Context()).User(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToJSON(m, time.Now()))
}

func (h *Handler) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", err.Error())
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", "photo file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", err.Error())
		return
	}
	url, err := h.service.UpdatePhoto(r.Context(), shared.SessionFromContext(r.Context()).User(),
		data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"photo_url": url})
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if err := h.service.Delete(r.Context(), sess.User()); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.sessions.Destroy(sess)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", validationErrs.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, shared.ErrDuplicateEmail):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "email already registered")
	case errors.Is(err, ErrAccountBlocked):
		httpx.RespondError(w, httpx.ErrForbidden)
	default:
		h.logger.Error("merchant request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
