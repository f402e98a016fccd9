package handlers

import (
	"net/http"
	"runtime"

	"github.com/quantlog/trade-ledger-backend/internal/database"
)

// Version is the API version reported by the version endpoint.
const Version = "1.0.0"

// SystemHandler handles system-level HTTP requests
type SystemHandler struct {
	db *database.SafeDB
}

// NewSystemHandler creates a new SystemHandler with the given database
func NewSystemHandler(db *database.SafeDB) *SystemHandler {
	return &SystemHandler{db: db}
}

// HealthResponse represents the health check payload.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// VersionResponse represents the version payload.
type VersionResponse struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
}

// Health handles GET /api/system/health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Database: "ok"}
	if err := h.db.HealthCheck(); err != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
		resp.Error = err.Error()
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Version handles GET /api/system/version
func (h *SystemHandler) Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, VersionResponse{
		Version:   Version,
		GoVersion: runtime.Version(),
	})
}
