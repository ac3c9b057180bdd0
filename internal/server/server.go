// Package server receives webhook updates and exposes health and metrics endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lavrd/wattle-files-tg/internal/config"
	"github.com/lavrd/wattle-files-tg/internal/task"
	"github.com/lavrd/wattle-files-tg/internal/telegram"
	"github.com/lavrd/wattle-files-tg/internal/types"
)

const (
	readHeaderTimeout = 5 * time.Second
	readinessTimeout  = 2 * time.Second
)

type Handler interface {
	Handle(ctx context.Context, event types.Event)
}

type Submitter interface {
	Submit(ctx context.Context, task task.Task) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	bot  Handler
	pool Submitter
	db   Pinger

	// How long the webhook request waits for a free worker.
	submitTimeout time.Duration

	http *http.Server
}

func New(cfg *config.Config, bot Handler, pool Submitter, db Pinger, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		bot:           bot,
		pool:          pool,
		db:            db,
		submitTimeout: cfg.RequestTimeout,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware())

	router.POST(cfg.WebHookPath(), s.webhook)
	router.GET("/healthz", s.liveness)
	router.GET("/ready", s.readiness)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	log.Info().Str("addr", s.http.Addr).Msg("webhook server has started")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to listen and serve: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

func (s *Server) webhook(c *gin.Context) {
	update := tgbotapi.Update{}
	if err := c.ShouldBindJSON(&update); err != nil {
		log.Warn().Err(err).Msg("failed to decode update")
		c.Status(http.StatusBadRequest)
		return
	}
	logger := log.With().Int("update_id", update.UpdateID).Logger()

	event, ok := telegram.Classify(update)
	if !ok {
		logger.Debug().Msg("update is skipped")
		c.Status(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.submitTimeout)
	defer cancel()
	err := s.pool.Submit(ctx, task.Func(func(ctx context.Context) error {
		s.bot.Handle(ctx, event)
		return nil
	}))
	if err != nil {
		// Platform delivers the update again later.
		logger.Warn().Err(err).Msg("all workers are busy")
		c.Status(http.StatusServiceUnavailable)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := zerolog.DebugLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = zerolog.ErrorLevel
		case status >= http.StatusBadRequest && status != http.StatusNotFound:
			level = zerolog.WarnLevel
		}
		log.WithLevel(level).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}
