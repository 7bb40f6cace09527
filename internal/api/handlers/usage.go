package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yuelin-song/communitykb/internal/usage"
)

type UsageHandler struct {
	svc *usage.Service
}

func NewUsageHandler(svc *usage.Service) *UsageHandler {
	return &UsageHandler{svc: svc}
}

// Summary rolls up a community's model calls over the trailing window.
// The window defaults to 24 hours and is capped at 90 days.
func (h *UsageHandler) Summary(w http.ResponseWriter, r *http.Request) {
	hours, _ := strconv.Atoi(r.URL.Query().Get("hours"))
	if hours <= 0 {
		hours = 24
	}
	if hours > 24*90 {
		hours = 24 * 90
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	sum, err := h.svc.Summarize(r.Context(), chi.URLParam(r, "community"), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"window_hours": hours, "summary": sum})
}
