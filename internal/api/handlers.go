package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/claimstats/internal/config"
	"github.com/gyeh/claimstats/internal/coordinator"
	"github.com/gyeh/claimstats/internal/store"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	config config.Config
	coord  *coordinator.Coordinator
	store  *store.Store
	log    zerolog.Logger
}

// NewHandlers creates new handlers.
func NewHandlers(cfg config.Config, coord *coordinator.Coordinator, st *store.Store, log zerolog.Logger) *Handlers {
	return &Handlers{config: cfg, coord: coord, store: st, log: log}
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "claimstats",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// UploadFile accepts a multipart claims file and queues it for processing.
// The format is taken from the "format" form field when present, otherwise
// from the file extension.
func (h *Handlers) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxFileBytes+4096)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "file exceeds size limit")
			return
		}
		respondError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	format := r.FormValue("format")
	if format == "" {
		format = strings.TrimPrefix(path.Ext(header.Filename), ".")
	}

	id, err := h.coord.Submit(coordinator.FileMeta{
		FileName:       header.Filename,
		DeclaredFormat: format,
	}, data)
	if err != nil {
		respondCoordError(w, err)
		return
	}

	respond(w, http.StatusAccepted, map[string]string{
		"file_id": id.String(),
		"status":  "queued",
	})
}

// ListFiles returns all known file jobs in submission order.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.coord.List())
}

// GetFile returns the status snapshot of one file job.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := fileID(w, r)
	if !ok {
		return
	}
	snap, err := h.coord.Status(id)
	if err != nil {
		respondCoordError(w, err)
		return
	}
	respond(w, http.StatusOK, snap)
}

// RetryFile re-queues a failed file job.
func (h *Handlers) RetryFile(w http.ResponseWriter, r *http.Request) {
	id, ok := fileID(w, r)
	if !ok {
		return
	}
	if err := h.coord.Retry(id); err != nil {
		respondCoordError(w, err)
		return
	}
	respond(w, http.StatusAccepted, map[string]string{
		"file_id": id.String(),
		"status":  "queued",
	})
}

// CancelFile requests cancellation of a queued or running file job.
func (h *Handlers) CancelFile(w http.ResponseWriter, r *http.Request) {
	id, ok := fileID(w, r)
	if !ok {
		return
	}
	if err := h.coord.Cancel(id); err != nil {
		respondCoordError(w, err)
		return
	}
	respond(w, http.StatusAccepted, map[string]string{
		"file_id": id.String(),
		"status":  "cancelling",
	})
}

// ListClaims returns stored claims, filterable by risk_threshold and
// service_code.
func (h *Handlers) ListClaims(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	f := store.Filter{}
	if v := r.URL.Query().Get("risk_threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "risk_threshold must be an integer")
			return
		}
		f.MinRisk = n
	}
	f.ServiceCode = r.URL.Query().Get("service_code")
	if v := r.URL.Query().Get("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		f.Offset, _ = strconv.Atoi(v)
	}

	claims, err := h.store.ListClaims(r.Context(), f)
	if err != nil {
		h.log.Error().Err(err).Msg("list claims query failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"count":  len(claims),
		"claims": claims,
	})
}

// ListAnomalies returns per-service-code stats for high-risk claims.
func (h *Handlers) ListAnomalies(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	minScore := h.config.ReviewBand
	if v := r.URL.Query().Get("min_score"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "min_score must be an integer")
			return
		}
		minScore = n
	}

	stats, err := h.store.AnomalySummary(r.Context(), minScore)
	if err != nil {
		h.log.Error().Err(err).Msg("anomaly summary query failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	respond(w, http.StatusOK, map[string]any{
		"min_score": minScore,
		"services":  stats,
	})
}

// GetSavings returns total and per-date repricing savings.
func (h *Handlers) GetSavings(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "no database configured")
		return
	}

	sum, err := h.store.SavingsSummary(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("savings summary query failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	respond(w, http.StatusOK, sum)
}

func fileID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid file id")
		return uuid.Nil, false
	}
	return id, true
}

func respondCoordError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, coordinator.ErrNotFound):
		respondError(w, http.StatusNotFound, "file not found")
	case errors.Is(err, coordinator.ErrUnsupportedFormat):
		respondError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, coordinator.ErrFileTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, coordinator.ErrRetryLimitExceeded),
		errors.Is(err, coordinator.ErrInvalidState):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, coordinator.ErrQueueFull),
		errors.Is(err, coordinator.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}
