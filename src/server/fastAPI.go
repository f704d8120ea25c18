package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"stock-forecast/src/cache"
	"stock-forecast/src/helpers"
	"stock-forecast/src/interfaces"
	"stock-forecast/src/logger"
	"stock-forecast/src/models"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config    *models.MConfig
	Logger    *logger.Logger
	Source    interfaces.IHistoricalSource
	Cache     interfaces.IHistoryCache // nil disables caching
	Predictor interfaces.IPredictor
	Store     interfaces.IForecastStore
	Errors    *helpers.ErrorHandler

	engine     *gin.Engine
	httpServer *http.Server
	ctx        context.Context
	cancel     context.CancelFunc
	startedAt  time.Time

	// WebSocket clients, owned by the hub goroutine
	clients    map[*Client]struct{}
	clientsMu  sync.RWMutex
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	hubOnce    sync.Once
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(
	cfg *models.MConfig,
	log *logger.Logger,
	source interfaces.IHistoricalSource,
	historyCache interfaces.IHistoryCache,
	predictor interfaces.IPredictor,
	store interfaces.IForecastStore,
) *FastAPIServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &FastAPIServer{
		Config:     cfg,
		Logger:     log,
		Source:     source,
		Cache:      historyCache,
		Predictor:  predictor,
		Store:      store,
		Errors:     helpers.NewErrorHandler(log.Named("ErrorHandler")),
		engine:     gin.New(),
		ctx:        ctx,
		cancel:     cancel,
		startedAt:  time.Now(),
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
	}

	s.engine.Use(gin.Recovery(), s.requestLogger())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	s.engine.GET("/api/stocks", s.getStocks)
	s.engine.GET("/api/forecasts/latest", s.getLatestForecast)
	s.engine.GET("/api/health", s.getHealth)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// Handler exposes the router, mainly for httptest.
func (s *FastAPIServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the hub and blocks serving HTTP until Stop is called.
func (s *FastAPIServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	s.StartHub()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// StartHub launches the websocket hub loop once.
func (s *FastAPIServer) StartHub() {
	s.hubOnce.Do(func() { go s.handleWebsockets() })
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) Stop(ctx context.Context) error {
	s.cancel()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getStocks(c *gin.Context) {
	sel, err := s.selectionFromQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}

	points, err := s.history(c.Request.Context(), sel, false)
	if err != nil {
		s.Logger.Warning("GET /api/stocks %s: %v", sel, err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, points)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getLatestForecast(c *gin.Context) {
	sel, err := s.selectionFromQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}

	rec, err := s.Store.LatestForecast(c.Request.Context(), sel)
	if err != nil {
		writeError(c, err)
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no forecast recorded for " + sel.String()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	resp := gin.H{
		"status":         "ok",
		"connections":    s.ConnectionCount(),
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"resources":      helpers.CollectResourceStats(c.Request.Context()),
		"error_count":    s.Errors.ErrorCount(),
	}
	if statser, ok := s.Cache.(interface{ Stats() cache.CacheStats }); ok {
		resp["cache"] = statser.Stats()
	}

	c.JSON(http.StatusOK, resp)
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
