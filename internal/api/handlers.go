package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"omnix.dev/omnix-bot/internal/core"
	"omnix.dev/omnix-bot/internal/market"
	"omnix.dev/omnix-bot/internal/store"
)

type Answerer interface {
	Resolve(ctx context.Context, q core.Question) core.Answer
}

type PortfolioReader interface {
	Get(ctx context.Context, userID string) *store.Portfolio
}

type PriceOracle interface {
	Price(ctx context.Context, symbol string) market.Quote
	Prices(ctx context.Context) []market.Quote
}

type APIHandler struct {
	botName    string
	answers    Answerer
	portfolios PortfolioReader
	prices     PriceOracle
}

func NewAPIHandler(botName string, answers Answerer, portfolios PortfolioReader, prices PriceOracle) *APIHandler {
	return &APIHandler{
		botName:    botName,
		answers:    answers,
		portfolios: portfolios,
		prices:     prices,
	}
}

var features = []string{"ai", "crypto", "voice"}

func (h *APIHandler) HomeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<h1>🚀 OMNIX Bot - Sistema Activo</h1>
<p><strong>Bot:</strong> @%s</p>
<p><strong>Estado:</strong> ✅ Operativo</p>
<p><strong>Funciones:</strong> IA Híbrida + Crypto + Trading</p>
<p><strong>Usuarios:</strong> Global (Español/Inglés)</p>
`, h.botName)
}

type HealthResponse struct {
	Status   string   `json:"status"`
	Bot      string   `json:"bot"`
	Features []string `json:"features"`
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Bot: h.botName, Features: features})
}

type AskRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Question    string `json:"question"`
}

func (h *APIHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	answer := h.answers.Resolve(r.Context(), core.Question{
		Text:        req.Question,
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		ChatType:    store.ChatTypeAPI,
	})
	writeJSON(w, http.StatusOK, answer)
}

func (h *APIHandler) PortfolioHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	writeJSON(w, http.StatusOK, h.portfolios.Get(r.Context(), userID))
}

func (h *APIHandler) PriceHandler(w http.ResponseWriter, r *http.Request) {
	// Unavailable prices are a normal result, not an HTTP error.
	writeJSON(w, http.StatusOK, h.prices.Price(r.Context(), chi.URLParam(r, "symbol")))
}

func (h *APIHandler) PricesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.prices.Prices(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}
