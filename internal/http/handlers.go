package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"bankbot/internal/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports ready once a cycle has completed.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	st := s.status.Status()
	if st.LastCycleAt == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "reason": "no cycle completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "last_cycle_at": st.LastCycleAt.Format(time.RFC3339)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Status())
}

const (
	defaultDeliveryLimit = 20
	maxDeliveryLimit     = 100
)

type deliveryView struct {
	CycleID   string    `json:"cycle_id,omitempty"`
	Channel   string    `json:"channel"`
	Text      string    `json:"text"`
	Delivered bool      `json:"delivered"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// handleDeliveries lists the newest journal entries. ?limit caps the count.
func (s *Server) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := defaultDeliveryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxDeliveryLimit)
	}

	deliveries, err := s.deliveries.RecentDeliveries(r.Context(), limit)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to read journal", log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "journal unavailable"})
		return
	}

	out := make([]deliveryView, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, deliveryView{
			CycleID:   d.CycleID,
			Channel:   d.Channel,
			Text:      d.Text,
			Delivered: d.Delivered,
			Error:     d.Error,
			At:        d.At,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
