package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/user/linkmark-service/internal/delivery/http/request"
	"github.com/user/linkmark-service/internal/delivery/http/response"
	"github.com/user/linkmark-service/internal/delivery/message"
	"github.com/user/linkmark-service/internal/entity"
	"github.com/user/linkmark-service/internal/session"
	"github.com/user/linkmark-service/internal/usecase"
	"github.com/user/linkmark-service/pkg/utils"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; pages posted with their HTML are the
// largest.
const maxBodyBytes = 8 << 20

// HealthCheck pings one backing service.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	pages    *session.Manager
	ledger   usecase.Ledger
	settings usecase.SettingsService
	checks   map[string]HealthCheck
	logger   *zap.Logger
}

func NewHandler(pages *session.Manager, ledger usecase.Ledger, settings usecase.SettingsService, checks map[string]HealthCheck, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		pages:    pages,
		ledger:   ledger,
		settings: settings,
		checks:   checks,
		logger:   logger,
	}
}

func (h *Handler) HandleOpenPage(w http.ResponseWriter, r *http.Request) {
	var req request.OpenPageRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !utils.IsHTTPURL(req.URL) {
		h.writeJSONError(w, "Invalid URL format", http.StatusBadRequest)
		return
	}

	info, err := h.pages.Open(r.Context(), req.URL, req.HTML)
	if err != nil {
		if errors.Is(err, session.ErrNoSource) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to open page", zap.String("url", req.URL), zap.Error(err))
		h.writeJSONError(w, "Could not load page", http.StatusBadGateway)
		return
	}
	h.writeJSON(w, http.StatusCreated, info)
}

func (h *Handler) HandleGetPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	html, err := h.pages.HTML(r.Context(), id)
	if err != nil {
		h.pageError(w, id, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, html)
}

func (h *Handler) HandleGetPageInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := h.pages.Info(r.Context(), id)
	if err != nil {
		h.pageError(w, id, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) HandleClosePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.pages.Close(id); err != nil {
		h.pageError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePageMessage answers every message with 200 and a {success, error}
// body; only an unknown page is an HTTP error.
func (h *Handler) HandlePageMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	resp, err := h.pages.Message(r.Context(), id, raw)
	if err != nil {
		h.pageError(w, id, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandlePageEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var ev session.Event
	if err := h.decode(w, r, &ev); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	res, err := h.pages.Event(r.Context(), id, ev)
	if err != nil {
		h.pageError(w, id, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// HandleRecordVisit is the history-visit source.
func (h *Handler) HandleRecordVisit(w http.ResponseWriter, r *http.Request) {
	var req request.RecordVisitRequest
	if err := h.decode(w, r, &req); err != nil || req.URL == "" {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	var at time.Time
	if req.Timestamp != nil {
		at = entity.FromMillis(*req.Timestamp)
	}
	ok, err := h.ledger.RecordVisitAt(r.Context(), req.URL, at, usecase.SourceHistory)
	if err != nil {
		h.logger.Error("failed to record visit", zap.String("url", req.URL), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusAccepted, response.RecordVisitResponse{URL: req.URL, Recorded: ok})
}

func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Load(r.Context())
	if err != nil {
		h.logger.Warn("settings unavailable, serving defaults", zap.Error(err))
	}
	h.writeJSON(w, http.StatusOK, s)
}

// HandlePutSettings stores a full settings value. Keys missing from the
// body take their default.
func (h *Handler) HandlePutSettings(w http.ResponseWriter, r *http.Request) {
	s := entity.DefaultSettings()
	if err := h.decode(w, r, &s); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	saved, err := h.settings.Save(r.Context(), s)
	if err != nil {
		if isConfigError(err) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to save settings", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, saved)
}

// HandleExcludeSite adds a domain to the exclusion list and, when a page
// is named, tells that page it was muted.
func (h *Handler) HandleExcludeSite(w http.ResponseWriter, r *http.Request) {
	var req request.ExcludeSiteRequest
	if err := h.decode(w, r, &req); err != nil || req.Domain == "" {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	domain, added, err := h.settings.ExcludeSite(r.Context(), req.Domain)
	if err != nil {
		if isConfigError(err) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to exclude site", zap.String("domain", req.Domain), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.ExcludeSiteResponse{Domain: domain, Added: added}
	if req.PageID != "" {
		ack, err := h.pages.Route(r.Context(), req.PageID, message.Message{Type: message.TypeSiteMuted, Domain: domain})
		if err != nil {
			h.pageError(w, req.PageID, err)
			return
		}
		resp.Page = &ack
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := response.HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Error("health check failed", zap.String("service", name), zap.Error(err))
			resp.Checks[name] = "unhealthy"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "healthy"
	}
	h.writeJSON(w, status, resp)
}

func isConfigError(err error) bool {
	return errors.Is(err, usecase.ErrInvalidSettings) || errors.Is(err, usecase.ErrInvalidDomain)
}

func (h *Handler) pageError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, session.ErrPageNotFound), errors.Is(err, session.ErrPageClosed):
		h.writeJSONError(w, "Page not found", http.StatusNotFound)
	case errors.Is(err, session.ErrUnknownEvent), errors.Is(err, session.ErrNoTarget):
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.writeJSONError(w, "Request cancelled", http.StatusServiceUnavailable)
	default:
		h.logger.Error("page request failed", zap.String("page_id", id), zap.Error(err))
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
