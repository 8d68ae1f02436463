// Package server exposes the garden design conversation over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"gardenDesignAi/internal/auth"
	"gardenDesignAi/internal/conversation"
	"gardenDesignAi/internal/events"
	"gardenDesignAi/internal/metrics"
)

// Options wires the server to the conversation engine.
type Options struct {
	Port         string
	WriteTimeout time.Duration
	Store        *conversation.Store
	Engine       *conversation.Engine
	Events       *events.Broker
	Gate         auth.Gate
	Metrics      *metrics.Recorder
	Logger       *zap.Logger
	// Static serves the web client when set.
	Static http.Handler
}

// New constructs the HTTP server with routes and middleware.
func New(opts Options) *http.Server {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Minute
	}
	srv := &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      NewRouter(opts),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return srv
}

// NewRouter builds the chi router.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{
		store:   opts.Store,
		engine:  opts.Engine,
		events:  opts.Events,
		metrics: opts.Metrics,
		logger:  logger,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", opts.Metrics.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", opts.Gate.Login)
		r.Post("/auth/logout", opts.Gate.Logout)

		r.Group(func(r chi.Router) {
			r.Use(opts.Gate.RequireAuth)
			r.Get("/starters", h.starters)
			r.Get("/events", h.streamEvents)
			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", h.createSession)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.getSession)
					r.Delete("/", h.deleteSession)
					r.Post("/messages", h.postMessage)
					r.Get("/images/{kind}", h.getImage)
					r.Get("/ws", h.chatSocket)
				})
			})
		})
	})

	if opts.Static != nil {
		router.Handle("/*", opts.Static)
	}
	return router
}
