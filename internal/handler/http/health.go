package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"shortlink/internal/analytics"
	"shortlink/internal/repository"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	storage   repository.Storage
	processor *analytics.Processor
	log       *zap.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(storage repository.Storage, processor *analytics.Processor, log *zap.Logger) *HealthHandler {
	return &HealthHandler{storage: storage, processor: processor, log: log}
}

// HealthResponse is the health probe response body.
type HealthResponse struct {
	Status         string                 `json:"status"`
	Timestamp      time.Time              `json:"timestamp"`
	DatabaseStatus string                 `json:"database_status"`
	ClickQueue     map[string]interface{} `json:"click_queue"`
	Uptime         string                 `json:"uptime,omitempty"`
}

var startTime = time.Now()

// Health reports overall service health including the database.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if _, err := h.storage.CountLinks(ctx); err != nil {
		dbStatus = "unhealthy"
		h.log.Error("database health check failed", zap.Error(err))
	}

	status := "healthy"
	statusCode := http.StatusOK
	if dbStatus == "unhealthy" {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:         status,
		Timestamp:      time.Now(),
		DatabaseStatus: dbStatus,
		ClickQueue:     h.processor.QueueStats(),
		Uptime:         time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("failed to encode health response", zap.Error(err))
	}
}

// Ready reports whether the service can accept traffic.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.storage.CountLinks(ctx); err != nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
