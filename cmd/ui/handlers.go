package main

import (
	"btc-paper-trader-go/internal/database"
	"btc-paper-trader-go/internal/models"
	"btc-paper-trader-go/internal/trader"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// defaultTradeLimit caps the trades listed when no limit is given.
const defaultTradeLimit = 100

// APIHandler serves the stored paper account read-only.
type APIHandler struct {
	log   *zap.Logger
	store *database.Store
	now   func() time.Time
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, store *database.Store) *APIHandler {
	return &APIHandler{log: log.Named("ui"), store: store, now: time.Now}
}

// Routes returns the routed handler with CORS applied.
func (h *APIHandler) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/state", h.StateHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/trades", h.TradesHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/statistics", h.StatisticsHandler).Methods(http.MethodGet)
	return cors.AllowAll().Handler(r)
}

// StateHandler returns the last saved account, position and orders.
func (h *APIHandler) StateHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.LoadSnapshot()
	if errors.Is(err, database.ErrNoSnapshot) {
		http.Error(w, "No paper account yet", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("Failed to load snapshot", zap.Error(err))
		http.Error(w, "Failed to load state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.log, trader.NewStateView(snap))
}

// TradesHandler returns historical trades, newest first. period=24h restricts
// them to the last day and limit caps how many are returned.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	switch r.URL.Query().Get("period") {
	case "", "all":
	case "24h":
		since = h.now().Add(-24 * time.Hour)
	default:
		http.Error(w, "period must be 24h or all", http.StatusBadRequest)
		return
	}

	limit := defaultTradeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	trades, err := h.store.Trades(since, limit)
	if err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	writeJSON(w, h.log, trades)
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Since24h database.Stats `json:"since_24h"`
	AllTime  database.Stats `json:"all_time"`
}

// StatisticsHandler calculates and returns trading statistics.
func (h *APIHandler) StatisticsHandler(w http.ResponseWriter, r *http.Request) {
	day, err := h.store.Stats(h.now().Add(-24 * time.Hour))
	if err != nil {
		h.log.Error("Failed to calculate statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}
	all, err := h.store.Stats(time.Time{})
	if err != nil {
		h.log.Error("Failed to calculate statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.log, StatisticsResponse{Since24h: day, AllTime: all})
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", zap.Error(err))
	}
}
