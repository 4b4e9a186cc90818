package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"torrentstream/queueservice/internal/domain"
	"torrentstream/queueservice/internal/queue"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type QueueRegistry interface {
	List() []domain.QueueSummary
	Get(id string) (*queue.Queue, error)
	StoredConfigs(ctx context.Context) ([]domain.QueueConfig, error)
	Upsert(ctx context.Context, cfg domain.QueueConfig) error
	Delete(ctx context.Context, id string) error
}

type SourceDiagnosticsProvider interface {
	SourceDiagnostics() []domain.SourceDiagnostics
}

type Server struct {
	queues      QueueRegistry
	diagnostics SourceDiagnosticsProvider
	logger      *slog.Logger
	rateRPS     float64
	rateBurst   int
}

type filtersRequest struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type sortRequest struct {
	Column json.RawMessage `json:"column"`
	Dir    string          `json:"dir"`
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithSourceDiagnostics(diagnostics SourceDiagnosticsProvider) ServerOption {
	return func(s *Server) {
		s.diagnostics = diagnostics
	}
}

// WithRateLimit sets the global request rate. A non-positive rps disables
// limiting.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateRPS = rps
		s.rateBurst = burst
	}
}

func NewServer(queues QueueRegistry, options ...ServerOption) *Server {
	server := &Server{
		queues:    queues,
		logger:    slog.Default(),
		rateRPS:   50,
		rateBurst: 100,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/queues", s.handleQueues)
	mux.HandleFunc("/queues/sources/health", s.handleSourcesHealth)
	mux.HandleFunc("/queues/settings", s.handleSettings)
	mux.HandleFunc("/queues/", s.handleQueue)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "queue-service",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(s.rateRPS, s.rateBurst, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleQueues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.queues == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "queue registry is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.queues.List(),
	})
}

func (s *Server) handleSourcesHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	items := []domain.SourceDiagnostics{}
	if s.diagnostics != nil {
		items = s.diagnostics.SourceDiagnostics()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checkedAt": time.Now().UTC(),
		"items":     items,
	})
}

// handleQueue serves /queues/{id} and its refresh, filters and sort
// actions.
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	if s.queues == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "queue registry is not configured")
		return
	}
	id, action, ok := queuePath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	target, err := s.queues.Get(id)
	if err != nil {
		s.writeQueueError(w, err)
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if parseOptionalBool(r.URL.Query().Get("refresh")) {
			s.refresh(r.Context(), target)
		}
		writeJSON(w, http.StatusOK, target.View())
	case "refresh":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.refresh(r.Context(), target)
		writeJSON(w, http.StatusOK, target.View())
	case "filters":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var request filtersRequest
		if err := decodeJSONBody(r, &request); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		target.SetFilters(request.Type, request.Status)
		writeJSON(w, http.StatusOK, target.View())
	case "sort":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleSort(w, r, target)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request, target *queue.Queue) {
	var request sortRequest
	if err := decodeJSONBody(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	column, err := parseColumn(request.Column)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if strings.TrimSpace(request.Dir) != "" {
		err = target.SetSort(column, domain.SortDir(request.Dir))
	} else {
		err = target.SelectSort(column)
	}
	if err != nil {
		s.writeQueueError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, target.View())
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if s.queues == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "queue registry is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := s.queues.StoredConfigs(r.Context())
		if err != nil {
			s.writeQueueError(w, err)
			return
		}
		if items == nil {
			items = []domain.QueueConfig{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPut:
		var cfg domain.QueueConfig
		if err := decodeJSONBody(r, &cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if err := s.queues.Upsert(r.Context(), cfg); err != nil {
			s.logger.Warn("queue config update failed",
				slog.String("appId", cfg.AppID),
				slog.String("error", err.Error()),
			)
			s.writeQueueError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": s.queues.List()})
	case http.MethodDelete:
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "id is required")
			return
		}
		if err := s.queues.Delete(r.Context(), id); err != nil {
			s.writeQueueError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": s.queues.List()})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// refresh runs one cycle. Failures leave the previous view in place.
func (s *Server) refresh(ctx context.Context, target *queue.Queue) {
	if _, err := target.Refresh(ctx); err != nil {
		s.logger.Warn("queue refresh failed",
			slog.String("queue", target.ID()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Server) writeQueueError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrUnknownQueue):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, queue.ErrInvalidColumn), errors.Is(err, queue.ErrInvalidQueueConfig):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, queue.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// parseColumn accepts a column index or a column name such as "timeLeft".
func parseColumn(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, errors.New("column is required")
	}
	var index int
	if err := json.Unmarshal(trimmed, &index); err == nil {
		return index, nil
	}
	var name string
	if err := json.Unmarshal(trimmed, &name); err != nil {
		return 0, errors.New("column must be an index or a name")
	}
	if parsed, err := strconv.Atoi(strings.TrimSpace(name)); err == nil {
		return parsed, nil
	}
	index, ok := queue.ColumnIndex(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", queue.ErrInvalidColumn, name)
	}
	return index, nil
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parseOptionalBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
