// Package server exposes the scrape and chat operations over HTTP and a
// websocket channel.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xhad/pagechat/internal/types"
	"github.com/xhad/pagechat/pkg/llm"
)

type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	HistoryLimit    int
}

// Server owns the content slot for its lifetime; every handler reads and
// writes the same slot.
type Server struct {
	config    Config
	fetcher   types.Fetcher
	slot      types.ContentSlot
	forwarder *llm.Forwarder
	history   types.HistoryStore
	logger    *zap.Logger
	router    chi.Router
}

// NewServer wires the handlers. history may be nil, which disables
// /scrape/history.
func NewServer(config Config, fetcher types.Fetcher, slot types.ContentSlot, completer types.Completer, history types.HistoryStore) *Server {
	if config.Port == 0 {
		config.Port = 8000
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 30 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 120 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 20
	}
	config.HistoryLimit = min(config.HistoryLimit, MaxHistoryLimit)

	s := &Server{
		config:    config,
		fetcher:   fetcher,
		slot:      slot,
		forwarder: llm.NewForwarder(completer, slot),
		history:   history,
		logger:    zap.L().Named("server"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(RequestLogging(s.logger))

	r.Get("/", s.handleRoot)
	r.Post("/scrape", s.handleScrape)
	r.Get("/scrape/status", s.handleStatus)
	r.Post("/scrape/clear", s.handleClear)
	r.Get("/scrape/history", s.handleHistory)
	r.Post("/chat", s.handleChat)
	r.Get("/ws", s.handleWebSocket)

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.Int("port", s.config.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server: listen")
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}
