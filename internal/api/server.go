// Package api exposes the decision pipeline over HTTP, adapted from the
// reference internal/api.Server: the same gin.New()+Logger()+Recovery()+
// cors.New() construction and RateLimiter shape, narrowed to the handful of
// endpoints this module needs and trimmed of the prior auth/billing/
// vault-backed fields, which have no counterpart here.
package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"fusionquant/internal/adapters"
	"fusionquant/internal/cache"
	"fusionquant/internal/config"
	"fusionquant/internal/logging"
	"fusionquant/internal/pipeline"
	"fusionquant/internal/store"
)

// RateLimiter is a simple in-memory sliding-window limiter, one bucket per
// client key, mirroring the prior rateLimitMiddleware.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

// NewRateLimiter builds a limiter allowing limit requests per window, per key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{requests: make(map[string][]time.Time), limit: limit, window: window}
}

// Allow records one attempt for key and reports whether it is within limit.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)
	kept := r.requests[key][:0]
	for _, t := range r.requests[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= r.limit {
		r.requests[key] = kept
		return false
	}
	r.requests[key] = append(kept, now)
	return true
}

// Server wraps the gin engine together with the collaborators every
// handler needs: a bundle factory (so /api/analyze can build a fresh,
// cache-wrapped adapter Bundle per symbol), the pipeline/backtest config,
// optional persistence, and the decision-stream websocket hub.
type Server struct {
	router *gin.Engine
	http   *http.Server

	cfg           config.ServerConfig
	pipelineCfg   pipeline.Config
	cache         *cache.Cache
	store         *store.Store
	limiter       *RateLimiter
	hub           *Hub
	bundleFactory func(symbol string) adapters.Bundle
}

// NewServer builds the engine and registers every route. bundleFactory lets
// callers override adapter construction in tests; production code passes
// adapters.BuildBundle wrapped with cache.Wrap.
func NewServer(cfg config.ServerConfig, pipelineCfg pipeline.Config, c *cache.Cache, st *store.Store, bundleFactory func(symbol string) adapters.Bundle) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(accessLogMiddleware())

	corsCfg := cors.DefaultConfig()
	if cfg.AllowedOrigins != "" {
		corsCfg.AllowOrigins = []string{cfg.AllowedOrigins}
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	router.Use(cors.New(corsCfg))

	s := &Server{
		router:        router,
		cfg:           cfg,
		pipelineCfg:   pipelineCfg,
		cache:         c,
		store:         st,
		limiter:       NewRateLimiter(60, time.Minute),
		hub:           NewHub(),
		bundleFactory: bundleFactory,
	}
	go s.hub.Run()
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/api/health", s.handleHealth)

	protected := s.router.Group("/api")
	protected.Use(s.rateLimitMiddleware())
	{
		protected.POST("/analyze", s.handleAnalyze)
		protected.POST("/backtest", s.handleBacktest)
		protected.GET("/summary/:symbol", s.handleSummary)
	}

	s.router.GET("/api/ws", s.handleWebSocket)
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !s.limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"cache":       s.cache != nil,
		"persistence": s.store != nil,
		"ws_clients":  s.hub.ClientCount(),
	})
}

// Run starts the HTTP server and blocks until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Port
	if port == 0 {
		port = 8080
	}
	addr := s.cfg.Host + ":" + strconv.Itoa(port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log := logging.Default().Named("api")
		log.WithField("addr", addr).Info("api server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
