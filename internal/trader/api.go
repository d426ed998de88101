package trader

import (
	"btc-paper-trader-go/internal/execution"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// APIServer provides an HTTP interface for the trading engine.
type APIServer struct {
	server *http.Server
	engine *Engine
	logger *zap.Logger
}

// NewAPIServer creates a new APIServer listening on port.
func NewAPIServer(engine *Engine, port int, logger *zap.Logger) *APIServer {
	s := &APIServer{
		engine: engine,
		logger: logger.Named("api-server"),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed handler with CORS applied.
func (s *APIServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/state", s.stateHandler).Methods(http.MethodGet)
	api.HandleFunc("/analysis", s.analysisHandler).Methods(http.MethodGet)
	api.HandleFunc("/notifications", s.notificationsHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders", s.placeOrderHandler).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", s.cancelOrderHandler).Methods(http.MethodDelete)
	api.HandleFunc("/position/close", s.closePositionHandler).Methods(http.MethodPost)
	api.HandleFunc("/trading/enable", s.enableTradingHandler).Methods(http.MethodPost)
	api.HandleFunc("/trading/halt", s.haltTradingHandler).Methods(http.MethodPost)
	api.HandleFunc("/config/auto-trade", s.autoTradeHandler).Methods(http.MethodPut)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	status := struct {
		UUID           string  `json:"uuid"`
		Name           string  `json:"name"`
		Strategy       string  `json:"strategy"`
		StartTime      string  `json:"start_time"`
		Uptime         string  `json:"uptime"`
		Price          float64 `json:"price"`
		TradingEnabled bool    `json:"trading_enabled"`
		InFlight       int     `json:"in_flight"`
	}{
		UUID:           s.engine.UUID,
		Name:           s.engine.Name,
		Strategy:       s.engine.strategy.Name(),
		StartTime:      s.engine.StartTime.Format(time.RFC3339),
		Uptime:         time.Since(s.engine.StartTime).Round(time.Second).String(),
		Price:          s.engine.CurrentPrice(),
		TradingEnabled: snap.Account.TradingEnabled,
		InFlight:       s.engine.exec.InFlight(),
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *APIServer) stateHandler(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, NewStateView(s.engine.Snapshot()))
}

func (s *APIServer) analysisHandler(w http.ResponseWriter, r *http.Request) {
	analysis, market := s.engine.LastAnalysis()
	if analysis == nil {
		s.respondError(w, http.StatusNotFound, "no analysis yet")
		return
	}
	s.respondJSON(w, http.StatusOK, struct {
		Analysis *Analysis  `json:"analysis"`
		Market   MarketData `json:"market"`
	}{analysis, *market})
}

func (s *APIServer) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Notifications())
}

func (s *APIServer) placeOrderHandler(w http.ResponseWriter, r *http.Request) {
	var body OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req, err := body.ToExecution()
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.engine.PlaceOrder(r.Context(), req)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	out := struct {
		Position *PositionView `json:"position,omitempty"`
		Order    *OrderView    `json:"order,omitempty"`
		Cost     float64       `json:"cost,omitempty"`
	}{Cost: res.Cost}
	if res.Position != nil {
		pv := NewPositionView(*res.Position)
		out.Position = &pv
	}
	if res.Order != nil {
		ov := NewOrderView(*res.Order)
		out.Order = &ov
	}
	s.respondJSON(w, http.StatusCreated, out)
}

func (s *APIServer) cancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.engine.CancelOrder(id) {
		s.respondError(w, http.StatusNotFound, "order not found or already filled")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) closePositionHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.ClosePosition(r.Context())
	if err != nil {
		s.respondEngineError(w, err)
		return
	}

	out := struct {
		Closed bool       `json:"closed"`
		Trade  *TradeView `json:"trade,omitempty"`
	}{Closed: res.Closed}
	if res.Trade != nil {
		tv := NewTradeView(*res.Trade)
		out.Trade = &tv
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *APIServer) enableTradingHandler(w http.ResponseWriter, r *http.Request) {
	s.engine.EnableTrading()
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) haltTradingHandler(w http.ResponseWriter, r *http.Request) {
	s.engine.HaltTrading()
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) autoTradeHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Enabled == nil {
		s.respondError(w, http.StatusBadRequest, `body must be {"enabled": true|false}`)
		return
	}
	s.engine.SetAutoTrade(*body.Enabled)
	w.WriteHeader(http.StatusNoContent)
}

// respondEngineError maps execution errors to HTTP statuses: rejections are the
// client's problem, venue failures are retryable.
func (s *APIServer) respondEngineError(w http.ResponseWriter, err error) {
	var verr *execution.ValidationError
	switch {
	case errors.As(err, &verr):
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
	case execution.IsTransient(err):
		w.Header().Set("Retry-After", "1")
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.respondError(w, http.StatusGatewayTimeout, err.Error())
	default:
		s.logger.Error("Request failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *APIServer) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (s *APIServer) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}
