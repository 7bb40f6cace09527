package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yuelin-song/communitykb/internal/chat"
)

type ChatHandler struct {
	svc *chat.Service
	mem HistoryClearer
}

// HistoryClearer drops one user's conversation memory.
type HistoryClearer interface {
	Clear(community string, userID int64)
}

func NewChatHandler(svc *chat.Service, mem HistoryClearer) *ChatHandler {
	return &ChatHandler{svc: svc, mem: mem}
}

type askRequest struct {
	UserID   int64  `json:"user_id"`
	Question string `json:"question"`
}

// Ask runs one question through retrieval and the model. A community with
// the assistant disabled or no knowledge base gets answered:false rather
// than an error; that is a configuration state, not a failure.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	community := chi.URLParam(r, "community")

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question required")
		return
	}

	result, err := h.svc.Answer(r.Context(), community, req.UserID, req.Question)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if result == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"answered": false,
			"reason":   "assistant disabled or knowledge base empty",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"answered":     true,
		"answer":       result.Content,
		"outcome":      result.Outcome,
		"total_tokens": result.TotalTokens,
		"latency_ms":   result.LatencyMs,
	})
}

// ClearMemory drops a user's short-term history, starting their next
// conversation fresh.
func (h *ChatHandler) ClearMemory(w http.ResponseWriter, r *http.Request) {
	community := chi.URLParam(r, "community")

	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.mem.Clear(community, req.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
