package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketpulse/internal/engine"
	"marketpulse/internal/logger"
	"marketpulse/internal/market"
)

// Server exposes the operator API: signal inspection, engine control and
// the sentiment ingest endpoint.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the HTTP server's collaborators.
type ServerConfig struct {
	Addr     string
	Engine   *engine.Engine
	Analysis *market.AnalysisService
	Book     *market.SentimentBook
	Scope    string
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil || cfg.Analysis == nil || cfg.Book == nil {
		return nil, errors.New("http server requires engine, analysis and sentiment book")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{
		engine:   cfg.Engine,
		analysis: cfg.Analysis,
		book:     cfg.Book,
		scope:    cfg.Scope,
	}
	api := router.Group("/api")
	{
		api.GET("/signal", h.getSignal)
		api.GET("/state", h.getState)
		api.GET("/trades", h.getTrades)
		api.POST("/sentiment", h.postSentiment)

		eng := api.Group("/engine")
		eng.POST("/start", h.startEngine)
		eng.POST("/stop", h.stopEngine)
		eng.POST("/emergency-stop", h.emergencyStop)
		eng.POST("/acknowledge", h.acknowledgeHalt)
	}

	return &Server{addr: cfg.Addr, router: router}, nil
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}
