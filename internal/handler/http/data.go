package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"shortlink/internal/transfer"
)

// DataHandler serves snapshot export and import.
type DataHandler struct {
	engine *transfer.Engine
	log    *zap.Logger
}

// NewDataHandler creates a new data transfer handler.
func NewDataHandler(engine *transfer.Engine, log *zap.Logger) *DataHandler {
	return &DataHandler{engine: engine, log: log}
}

// Export streams the full corpus as a JSON snapshot.
func (h *DataHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, err := h.engine.Export(r.Context())
	if err != nil {
		h.log.Error("failed to export data", zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="shortlink-export.json"`)
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.log.Error("failed to encode snapshot", zap.Error(err))
	}
}

// Import restores a snapshot from the request body. Overwrite mode and the
// click batch size come from query parameters.
func (h *DataHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var snapshot transfer.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		writeError(w, "Invalid snapshot format", http.StatusBadRequest)
		return
	}

	opts := transfer.ImportOptions{
		OverwriteExisting: r.URL.Query().Get("overwrite") == "true",
	}
	if batch := r.URL.Query().Get("batchSize"); batch != "" {
		size, err := strconv.Atoi(batch)
		if err != nil || size < 1 {
			writeError(w, "Invalid batchSize", http.StatusBadRequest)
			return
		}
		opts.BatchSize = size
	}

	report, err := h.engine.Import(r.Context(), &snapshot, opts)
	if err != nil {
		if errors.Is(err, transfer.ErrInvalidFormat) {
			writeError(w, "Snapshot missing required fields", http.StatusBadRequest)
			return
		}
		h.log.Error("failed to import data", zap.Error(err))
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
