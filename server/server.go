package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	sessionx "github.com/tanpawarit/fantrax-coach/agent/session"
)

type Config struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	CORSOrigin      string        `envconfig:"CORS_ORIGIN" split_words:"true" default:"*"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"180s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

// Server exposes a session Manager over HTTP.
type Server struct {
	cfg    Config
	engine *gin.Engine
}

func New(cfg Config, manager *sessionx.Manager) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(corsConfig(cfg.CORSOrigin)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": manager.Len()})
	})

	h := &SessionHandler{manager: manager}
	v1 := r.Group("/v1")
	{
		v1.POST("/sessions", h.Create)
		v1.DELETE("/sessions/:id", h.Delete)

		v1.GET("/sessions/:id/teams", h.Teams)
		v1.GET("/sessions/:id/standings", h.Standings)
		v1.GET("/sessions/:id/roster", h.Roster)
		v1.GET("/sessions/:id/free-agents", h.FreeAgents)

		v1.POST("/sessions/:id/chat", h.Chat)
		v1.GET("/sessions/:id/transcript", h.Transcript)
		v1.DELETE("/sessions/:id/transcript", h.ClearTranscript)
		v1.POST("/sessions/:id/recommendations", h.Recommend)
	}

	return &Server{cfg: cfg, engine: r}
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is done, then drains in-flight requests for at most
// ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	log.Info().Msg("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func corsConfig(origin string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "*" {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = strings.Split(origin, ",")
	for i := range cfg.AllowOrigins {
		cfg.AllowOrigins[i] = strings.TrimSpace(cfg.AllowOrigins[i])
	}
	cfg.AllowCredentials = true
	return cfg
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}
