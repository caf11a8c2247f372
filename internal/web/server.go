package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"quant_terminal/internal/ai"
	"quant_terminal/internal/engine"
	"quant_terminal/internal/exchange"
	"quant_terminal/internal/models"
)

// Info describes the wiring reported by /api/health
type Info struct {
	QuoteSource     string `json:"quote_source"`
	AIConfigured    bool   `json:"ai_configured"`
	TelegramEnabled bool   `json:"telegram_enabled"`
}

type Server struct {
	engine *engine.TradingEngine
	hub    *Hub
	info   Info
	port   string
	srv    *http.Server
}

func NewServer(engine *engine.TradingEngine, hub *Hub, port string, info Info) *Server {
	return &Server{
		engine: engine,
		hub:    hub,
		info:   info,
		port:   port,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handleIndex)
	r.Get("/ws", s.hub.ServeWS(func() Event { return Event{Type: "state", Data: s.engine.State()} }))

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/chart", s.handleChart)
		r.Get("/trades", s.handleTrades)
		r.Get("/health", s.handleHealth)

		r.Post("/symbol", s.handleSymbol)
		r.Post("/horizon", s.handleHorizon)
		r.Post("/insight", s.handleInsight)
		r.Post("/sync", s.handleSync)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/trade", s.handleTrade)
		r.Post("/risk", s.handleRisk)
		r.Post("/chat", s.handleChat)
	})
	return r
}

func (s *Server) Start() {
	s.srv = &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🌐 Web server starting on http://localhost:%s", s.port)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("❌ Web server error: %v", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if strings.HasPrefix(r.URL.Path, "/api/") && r.Method != http.MethodGet {
			log.Printf("🌐 %s %s %d %dms", r.Method, r.URL.Path, ww.Status(), time.Since(start).Milliseconds())
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, engine.ErrBusy), errors.Is(err, engine.ErrNoHistory), errors.Is(err, engine.ErrStaleResult):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrUnknownSymbol), errors.Is(err, engine.ErrInvalidQuantity),
		errors.Is(err, engine.ErrInvalidHorizon), errors.Is(err, engine.ErrEmptyMessage),
		errors.Is(err, exchange.ErrInvalidOrder):
		status = http.StatusBadRequest
	case errors.Is(err, exchange.ErrInsufficientBalance):
		status = http.StatusUnprocessableEntity
	case ai.KindOf(err) == ai.KindRateLimited:
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.State())
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Chart())
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Trades())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.engine.State()
	writeJSON(w, http.StatusOK, map[string]any{
		"running":    s.engine.IsRunning(),
		"api_status": st.APIStatus,
		"services":   s.info,
		"ws_clients": s.hub.Clients(),
		"timestamp":  time.Now().Unix(),
	})
}

func (s *Server) handleSymbol(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Symbol string `json:"symbol"`
	}
	if !decode(w, r, &data) {
		return
	}
	if err := s.engine.SelectSymbol(r.Context(), data.Symbol); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.State())
}

func (s *Server) handleHorizon(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Horizon string `json:"horizon"`
	}
	if !decode(w, r, &data) {
		return
	}
	if err := s.engine.SetHorizon(data.Horizon); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Insight string `json:"insight"`
	}
	if !decode(w, r, &data) {
		return
	}
	s.engine.SetInsight(data.Insight)
	writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	prices, err := s.engine.SyncNow(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prices": prices})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Analyze(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Side     string          `json:"side"`
		Quantity decimal.Decimal `json:"quantity"`
	}
	if !decode(w, r, &data) {
		return
	}
	trade, err := s.engine.ExecuteTrade(models.Side(strings.ToUpper(data.Side)), data.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trade":   trade,
		"balance": s.engine.State().Balance,
	})
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	var data struct {
		StopLoss decimal.Decimal `json:"stop_loss"`
		Quantity decimal.Decimal `json:"quantity"`
	}
	if !decode(w, r, &data) {
		return
	}
	risk, err := s.engine.EstimateRisk(data.StopLoss, data.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"risk": risk})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Message string `json:"message"`
	}
	if !decode(w, r, &data) {
		return
	}
	reply, err := s.engine.Chat(r.Context(), data.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// Publish forwards an engine update to the dashboard tabs
func (s *Server) Publish(kind string) {
	s.hub.Broadcast(Event{Type: kind, Data: s.engine.State()})
}

func (s *Server) PublishTrade(t *models.Trade) {
	s.hub.Broadcast(Event{Type: "trade", Data: t})
}

func (s *Server) PublishAnalysis(a *models.AnalysisResult) {
	s.hub.Broadcast(Event{Type: "analysis", Data: a})
}
