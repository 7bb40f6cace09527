package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yuelin-song/communitykb/internal/aiconfig"
	"github.com/yuelin-song/communitykb/internal/models"
)

type ConfigHandler struct {
	svc *aiconfig.Service
}

func NewConfigHandler(svc *aiconfig.Service) *ConfigHandler {
	return &ConfigHandler{svc: svc}
}

func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.svc.Get(r.Context(), chi.URLParam(r, "community"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type updateConfigRequest struct {
	Enabled      bool    `json:"enabled"`
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

func (h *ConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	community := chi.URLParam(r, "community")

	var req updateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		writeError(w, http.StatusBadRequest, "temperature must be between 0 and 2")
		return
	}
	if req.MaxTokens < 0 {
		writeError(w, http.StatusBadRequest, "max_tokens must be non-negative")
		return
	}

	defaults := models.DefaultAIConfig(community)
	cfg := &models.AIConfig{
		Community:    community,
		Enabled:      req.Enabled,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaults.SystemPrompt
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaults.Temperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}

	if err := h.svc.Upsert(r.Context(), cfg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}
