package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"crypto-signal-bot/internal/events"
	"crypto-signal-bot/internal/logging"
	"crypto-signal-bot/internal/signal"
	"crypto-signal-bot/internal/store"
)

// EngineAPI is the read-only view of the engine the server exposes
type EngineAPI interface {
	Status() map[string]interface{}
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Server hosts the read-only status API and the WebSocket event feed. It
// never mutates engine state.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	engine     EngineAPI
	trades     *store.ActiveTradeStore
	history    *store.StrategyHistory
	eventBus   *events.EventBus
	wsHub      *WSHub
	logger     *logging.Logger
	config     ServerConfig
}

// NewServer creates the API server and wires the WebSocket hub into the
// event bus.
func NewServer(config ServerConfig, engine EngineAPI, trades *store.ActiveTradeStore, history *store.StrategyHistory, eventBus *events.EventBus, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.WithComponent("api")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		router:   router,
		engine:   engine,
		trades:   trades,
		history:  history,
		eventBus: eventBus,
		wsHub:    NewWSHub(logger),
		logger:   logger,
		config:   config,
	}

	eventBus.SubscribeAll(s.wsHub.BroadcastEvent)
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/trades", s.handleTrades)
		api.GET("/performance", s.handlePerformance)
	}
	s.router.GET("/ws", s.handleWebSocket)
}

// Start runs the WebSocket hub and the HTTP listener. Blocks until the
// server stops.
func (s *Server) Start() error {
	go s.wsHub.Run()

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	s.logger.Info("API server listening", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(c *gin.Context) {
	status := s.engine.Status()
	status["open_trades"] = s.trades.Count()
	status["ws_clients"] = s.wsHub.GetClientCount()
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleTrades(c *gin.Context) {
	trades := s.trades.Trades()
	if trades == nil {
		trades = []signal.Signal{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(trades),
		"trades": trades,
	})
}

// handlePerformance reports per-strategy winrate and outcome counts
func (s *Server) handlePerformance(c *gin.Context) {
	perf := make([]gin.H, 0)
	for _, name := range s.history.Strategies() {
		records := s.history.Records(name)
		wins := 0
		profit := 0.0
		for _, r := range records {
			if r.Win() {
				wins++
			}
			profit += r.Profit
		}
		perf = append(perf, gin.H{
			"strategy":     name,
			"trades":       len(records),
			"wins":         wins,
			"winrate":      s.history.Winrate(name),
			"total_profit": profit,
		})
	}
	c.JSON(http.StatusOK, gin.H{"performance": perf})
}
