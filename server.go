package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/LexiconIndonesia/frontier-http-service/common/config"
	"github.com/LexiconIndonesia/frontier-http-service/common/frontier"
	"github.com/LexiconIndonesia/frontier-http-service/common/store"
	"github.com/LexiconIndonesia/frontier-http-service/common/utils"
	"github.com/LexiconIndonesia/frontier-http-service/handler"
)

type AppHttpServer struct {
	router   *chi.Mux
	cfg      config.Config
	server   *http.Server
	store    store.Store
	notifier frontier.Notifier
}

func NewAppHttpServer(cfg config.Config) (*AppHttpServer, error) {
	r := chi.NewRouter()

	// Basic CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-KEY"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	r.Use(middleware.Timeout(2 * time.Minute))

	server := &AppHttpServer{
		router: r,
		cfg:    cfg,
	}
	return server, nil
}

// SetStore sets the backing-store dependency
func (s *AppHttpServer) SetStore(st store.Store) {
	s.store = st
}

// SetNotifier sets the optional frontier event notifier
func (s *AppHttpServer) SetNotifier(n frontier.Notifier) {
	s.notifier = n
}

func (s *AppHttpServer) setupRoute() {
	r := s.router

	if s.store == nil {
		log.Fatal().Msg("Store dependency not set")
	}

	// Public health endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"frontier-http-service"}`))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(apiKey(s.cfg.Security.BackendApiKey))

		frontierHandler := handler.NewFrontierHandler(s.store, s.cfg, s.notifier)
		healthHandler := handler.NewHealthHandler(s.store)

		r.Mount("/frontiers", frontierHandler.Router())
		r.Mount("/health", healthHandler.Router())
	})
}

// apiKey rejects requests without the configured X-API-KEY header. An empty
// configured key disables the check.
func apiKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" && r.Header.Get("X-API-KEY") != key {
				utils.WriteError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *AppHttpServer) start() error {
	r := s.router
	cfg := s.cfg
	log.Info().Msg("Starting up server...")

	s.server = &http.Server{
		Addr:         cfg.Listen.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// stop gracefully shuts down the server
func (s *AppHttpServer) stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
