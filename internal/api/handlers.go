// Package api exposes the bot's reporting and control surface over HTTP:
// rule statistics, the state snapshot, rule pack reload, and pause/resume.
package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mohamedkhairy/trading-bot/internal/bot"
	"github.com/mohamedkhairy/trading-bot/internal/models"
	"github.com/mohamedkhairy/trading-bot/pkg/logger"
)

// ReloadFunc re-fetches and installs the rule pack from its configured
// source; the composition root plugs the closure in
type ReloadFunc func() error

// BotHandler handles bot reporting and control endpoints
type BotHandler struct {
	bot    *bot.Bot
	reload ReloadFunc
}

// NewBotHandler creates a bot handler. reload may be nil when no rule pack
// source is configured.
func NewBotHandler(b *bot.Bot, reload ReloadFunc) *BotHandler {
	return &BotHandler{bot: b, reload: reload}
}

// StateSnapshot is the response body of GET /api/v1/state
type StateSnapshot struct {
	State         string           `json:"state"`
	Position      *models.Position `json:"position,omitempty"`
	Regime        string           `json:"regime"`
	Volatility    string           `json:"volatility"`
	Confidence    float64          `json:"confidence"`
	BarsProcessed int              `json:"bars_processed"`
	RulesVersion  string           `json:"rules_version,omitempty"`
}

// GetState handles GET /api/v1/state
func (h *BotHandler) GetState(w http.ResponseWriter, r *http.Request) {
	rs := h.bot.Regime()
	snapshot := StateSnapshot{
		State:         string(h.bot.State()),
		Position:      h.bot.Position(),
		Regime:        string(rs.Regime),
		Volatility:    string(rs.Volatility),
		Confidence:    rs.Confidence,
		BarsProcessed: h.bot.BarsProcessed(),
	}
	if pack := h.bot.Rules().Active(); pack != nil {
		snapshot.RulesVersion = pack.RulesVersion
	}

	respondWithJSON(w, http.StatusOK, snapshot)
}

// ListRuleStats handles GET /api/v1/rules/stats
func (h *BotHandler) ListRuleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.bot.Rules().AllStats()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"stats": stats,
		"count": len(stats),
	})
}

// GetRuleStats handles GET /api/v1/rules/stats/{id}
func (h *BotHandler) GetRuleStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ruleID := vars["id"]

	stats, ok := h.bot.Rules().Stats(ruleID)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Rule not found")
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// TopRuleStats handles GET /api/v1/rules/stats/top?n=10
func (h *BotHandler) TopRuleStats(w http.ResponseWriter, r *http.Request) {
	n := 10
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		parsed, err := strconv.Atoi(nStr)
		if err != nil || parsed < 1 || parsed > 1000 {
			respondWithError(w, http.StatusBadRequest, "n must be an integer between 1 and 1000")
			return
		}
		n = parsed
	}

	stats := h.bot.Rules().TopTriggered(n)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"stats": stats,
		"count": len(stats),
	})
}

// ReloadRulePack handles POST /api/v1/rulepack/reload
func (h *BotHandler) ReloadRulePack(w http.ResponseWriter, r *http.Request) {
	if h.reload == nil {
		respondWithError(w, http.StatusConflict, "No rule pack source configured")
		return
	}

	if err := h.reload(); err != nil {
		logger.Warn("Rule pack reload failed", logger.ErrorField(err))
		respondWithError(w, http.StatusUnprocessableEntity, "Reload failed: "+err.Error())
		return
	}

	pack := h.bot.Rules().Active()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Rule pack reloaded",
		"rules_version": pack.RulesVersion,
		"rules":         pack.RuleCount(),
	})
}

// PauseBot handles POST /api/v1/bot/pause
func (h *BotHandler) PauseBot(w http.ResponseWriter, r *http.Request) {
	if err := h.bot.Pause(); err != nil {
		respondWithError(w, http.StatusConflict, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"state": string(h.bot.State())})
}

// ResumeBot handles POST /api/v1/bot/resume
func (h *BotHandler) ResumeBot(w http.ResponseWriter, r *http.Request) {
	if err := h.bot.Resume(); err != nil {
		respondWithError(w, http.StatusConflict, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"state": string(h.bot.State())})
}

// ResetBot handles POST /api/v1/bot/reset
func (h *BotHandler) ResetBot(w http.ResponseWriter, r *http.Request) {
	if err := h.bot.Reset(); err != nil {
		respondWithError(w, http.StatusConflict, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"state": string(h.bot.State())})
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
