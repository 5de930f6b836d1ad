// Package server exposes playback, listings and signup over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vibealong/vibealong/internal/auth"
	"github.com/vibealong/vibealong/internal/catalog"
	"github.com/vibealong/vibealong/internal/db"
	"github.com/vibealong/vibealong/internal/events"
	"github.com/vibealong/vibealong/internal/logging"
	"github.com/vibealong/vibealong/internal/playback"
	"github.com/vibealong/vibealong/internal/wizard"
)

// EventLog is the part of the event repository the server reads and writes.
type EventLog interface {
	events.Repository
	Query(ctx context.Context, q db.EventQuery) (*db.EventPage, error)
}

// Deps are the collaborators behind the routes. Nil Events disables event
// endpoints; nil Verifier makes the dashboard reject every caller.
type Deps struct {
	Playback *playback.Service
	Listings catalog.Source
	Signups  wizard.Persister
	Events   EventLog
	Verifier *auth.Verifier
}

// Options tune the HTTP surface.
type Options struct {
	CORSOrigins []string
	RateLimiter *RateLimiter
	Version     string
}

// Server holds the gin engine and its dependencies.
type Server struct {
	deps    Deps
	opts    Options
	engine  *gin.Engine
	logger  zerolog.Logger
	started time.Time
}

// New builds the router.
func New(deps Deps, opts Options) (*Server, error) {
	if deps.Playback == nil {
		return nil, errors.New("playback service is required")
	}
	if deps.Listings == nil {
		return nil, errors.New("listing source is required")
	}
	if deps.Signups == nil {
		return nil, errors.New("signup persister is required")
	}
	if opts.RateLimiter == nil {
		opts.RateLimiter = NewRateLimiter()
	}

	s := &Server{
		deps:    deps,
		opts:    opts,
		logger:  logging.Component("http"),
		started: time.Now(),
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	corsCfg := cors.DefaultConfig()
	if len(s.opts.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = s.opts.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))
	r.Use(s.opts.RateLimiter.Middleware())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/scripts", s.handleListScripts)
	api.GET("/scripts/:name", s.handleGetScript)

	api.GET("/sessions", s.handleListSessions)
	api.POST("/sessions", s.handleStartSession)
	api.GET("/sessions/:id", s.handleGetSession)
	api.POST("/sessions/:id/advance", s.handleAdvance)
	api.POST("/sessions/:id/reset", s.handleReset)
	api.POST("/sessions/:id/switch", s.handleSwitch)
	api.DELETE("/sessions/:id", s.handleCloseSession)
	api.GET("/sessions/:id/stream", s.handleStream)

	api.GET("/listings/:kind", s.handleListings)

	api.POST("/signup/validate", s.handleValidateSignup)
	api.POST("/signup", s.handleSubmitSignup)

	dashboard := api.Group("/dashboard", s.requireAuth())
	dashboard.GET("", s.handleDashboard)
	dashboard.GET("/events", s.handleDashboardEvents)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(code)).Inc()

		event := s.logger.Debug()
		if code >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", code).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"version":  s.opts.Version,
		"sessions": len(s.deps.Playback.List()),
		"uptime":   time.Since(s.started).Round(time.Second).String(),
	})
}

func abortError(c *gin.Context, code int, err error) {
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}
