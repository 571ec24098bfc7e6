// Package api exposes HTTP handlers for the user counter service.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"example.com/usercounter/internal/auth"
	"example.com/usercounter/internal/domain"
	"example.com/usercounter/internal/identity"
	"example.com/usercounter/internal/observability"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service       *domain.Service
	cookieSecure  bool
	retentionDays int
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, cookieSecure bool, retentionDays int) *Handler {
	if retentionDays <= 0 {
		retentionDays = domain.DefaultRetentionDays
	}
	return &Handler{service: service, cookieSecure: cookieSecure, retentionDays: retentionDays}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/keepalive", h.health)
	mux.HandleFunc("/stats", h.stats)
	mux.HandleFunc("/cleanup", h.cleanup)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// health resolves the client identity, records the visit, and returns
// current active-user counts. Storage failures degrade the response to
// status and new_client only; the request itself never fails.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	clientID, isNew := identity.Resolve(r)
	if isNew {
		identity.SetCookie(w, clientID, h.cookieSecure)
		observability.RecordIdentityIssued()
	}

	now := time.Now().UTC()
	resp := HealthResponse{Status: "healthy", NewClient: isNew}

	if _, err := h.service.Track(r.Context(), clientID, now); err != nil {
		log.Printf("track failed (client=%s): %v", clientID, err)
		observability.RecordStorageError()
		writeJSON(w, http.StatusOK, resp)
		return
	}

	counts, err := h.service.ActiveCounts(r.Context(), now)
	if err != nil {
		log.Printf("active counts failed: %v", err)
		observability.RecordStorageError()
		writeJSON(w, http.StatusOK, resp)
		return
	}

	resp.DailyActiveUsers = &counts.Daily
	resp.MonthlyActiveUsers = &counts.Monthly
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeStatsRead) {
		writeError(w, http.StatusForbidden, "forbidden", "scope stats:read required")
		return
	}

	report, err := h.service.Stats(r.Context(), time.Now().UTC())
	if err != nil {
		log.Printf("stats failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, StatsResponse{Success: false, Error: "storage unavailable"})
		return
	}

	breakdown := make([]DayCountView, 0, len(report.Breakdown))
	for _, entry := range report.Breakdown {
		breakdown = append(breakdown, DayCountView{
			Date:  entry.Date.Format(time.DateOnly),
			Users: entry.Users,
		})
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Success: true,
		Data: &StatsData{
			DailyActiveUsers:   report.Daily,
			MonthlyActiveUsers: report.Monthly,
			TotalUniqueUsers:   report.TotalUnique,
			DailyBreakdown:     breakdown,
			Timestamp:          report.GeneratedAt.Format(time.RFC3339),
		},
	})
}

func (h *Handler) cleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeMaintenance) {
		writeError(w, http.StatusForbidden, "forbidden", "scope maintenance:run required")
		return
	}

	daysToKeep := h.retentionDays
	if r.Body != nil {
		var req CleanupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.DaysToKeep != nil {
			daysToKeep = *req.DaysToKeep
		}
	}

	deleted, err := h.service.Cleanup(r.Context(), daysToKeep, time.Now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRetention) {
			writeError(w, http.StatusBadRequest, "invalid_retention", err.Error())
			return
		}
		log.Printf("cleanup failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, CleanupResponse{Success: false, Error: "storage unavailable"})
		return
	}

	log.Printf("cleanup removed %d records (days_to_keep=%d)", deleted, daysToKeep)
	writeJSON(w, http.StatusOK, CleanupResponse{
		Success:      true,
		Message:      "cleaned up old activity records",
		DeletedCount: deleted,
	})
}

// HealthResponse is the payload for POST /health and /keepalive. Count
// fields are omitted when the response is degraded by a storage failure.
type HealthResponse struct {
	Status             string `json:"status"`
	NewClient          bool   `json:"new_client"`
	DailyActiveUsers   *int   `json:"daily_active_users,omitempty"`
	MonthlyActiveUsers *int   `json:"monthly_active_users,omitempty"`
}

// DayCountView is one daily breakdown entry.
type DayCountView struct {
	Date  string `json:"date"`
	Users int    `json:"users"`
}

// StatsData carries the aggregate figures served by GET /stats.
type StatsData struct {
	DailyActiveUsers   int            `json:"daily_active_users"`
	MonthlyActiveUsers int            `json:"monthly_active_users"`
	TotalUniqueUsers   int            `json:"total_unique_users"`
	DailyBreakdown     []DayCountView `json:"daily_breakdown"`
	Timestamp          string         `json:"timestamp"`
}

// StatsResponse wraps StatsData in the success envelope.
type StatsResponse struct {
	Success bool       `json:"success"`
	Data    *StatsData `json:"data,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// CleanupRequest is the payload for POST /cleanup.
type CleanupRequest struct {
	DaysToKeep *int `json:"days_to_keep"`
}

// CleanupResponse reports the purge outcome.
type CleanupResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message,omitempty"`
	DeletedCount int64  `json:"deleted_count"`
	Error        string `json:"error,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
