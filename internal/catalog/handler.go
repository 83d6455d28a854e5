package catalog

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pricescout/pricescout/internal/merchants"
	"github.com/pricescout/pricescout/internal/platform/httpx"
	"github.com/pricescout/pricescout/internal/shared"
)

// maxUploadBytes bounds catalog file uploads.
const maxUploadBytes = 20 << 20

// Handler exposes the catalog import endpoint.
type Handler struct {
	logger   *slog.Logger
	importer *Importer
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, importer *Importer) *Handler {
	return &Handler{logger: logger, importer: importer}
}

// MountRoutes registers the import route behind the merchant session.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(merchants.RequireMerchant)
		r.Post("/catalog/import", h.importFile)
	})
}

// importFile accepts a multipart upload, runs the pipeline and answers
// with the report workbook. The temporary copy of the upload is removed
// no matter how processing ends.
func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	merchantID := shared.SessionFromContext(r.Context()).User()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", err.Error())
		return
	}
	mode := Mode(strings.ToLower(r.FormValue("mode")))
	if mode != ModeUpdate {
		mode = ModeImport
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", "file is required")
		return
	}
	defer file.Close()

	tmpPath, err := saveUpload(file, header.Filename)
	if err != nil {
		h.logger.Error("failed to stage upload", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			h.logger.Warn("failed to remove staged upload", slog.String("path", tmpPath), slog.Any("error", err))
		}
	}()

	outcome, err := h.importer.Run(r.Context(), merchantID, tmpPath, header.Filename, mode)
	if err != nil {
		h.logger.Warn("catalog import failed",
			slog.String("merchant_id", merchantID), slog.String("file", header.Filename), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	report, err := BuildReport(outcome)
	if err != nil {
		h.logger.Error("failed to build import report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	filename := fmt.Sprintf("import_report_%s.xlsx", time.Now().Format("20060102_150405"))
	httpx.Attachment(w, filename, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if _, err := report.WriteTo(w); err != nil {
		h.logger.Error("failed to stream import report", slog.Any("error", err))
	}
}

// saveUpload copies the uploaded stream to a temp file keeping the
// original extension so the decoder can dispatch on it.
func saveUpload(file io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	tmp, err := os.CreateTemp("", "catalog-upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("catalog: stage upload: %w", err)
	}
	defer tmp.Close()
	if _, err := io.Copy(tmp, io.LimitReader(file, maxUploadBytes)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("catalog: stage upload: %w", err)
	}
	return tmp.Name(), nil
}
