// Package api provides the HTTP REST API for the trade journal.
//
// It exposes trade CRUD for the journal table, symbol validation, and
// the strike/option matching endpoints the trade form drives on every
// relevant field change.
package api

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"option-journal/internal/marketdata"
	"option-journal/internal/store"
)

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	store  store.DataStore
	market *marketdata.Service
	logger zerolog.Logger
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(dataStore store.DataStore, market *marketdata.Service, logger zerolog.Logger) *Server {
	s := &Server{
		store:  dataStore,
		market: market,
		logger: logger,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router, exposed for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/trades", func(r chi.Router) {
			r.Get("/", s.handleListTrades)
			r.Post("/", s.handleCreateTrade)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetTrade)
				r.Put("/", s.handleUpdateTrade)
				r.Delete("/", s.handleDeleteTrade)
				r.Post("/close", s.handleCloseTrade)
			})
		})
		r.Route("/symbols/{symbol}", func(r chi.Router) {
			r.Get("/", s.handleValidateSymbol)
			r.Get("/strikes", s.handleListStrikes)
			r.Get("/match", s.handleMatchOption)
		})
		r.Get("/quotes", s.handleBatchQuotes)
	})

	return r
}

// requestLogger logs each request with its chi request ID.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// ListenAndServe starts the HTTP server and blocks until shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-done:
		s.logger.Info().Msg("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(ctx)
	}
}
