package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xhad/newsbrief/internal/types"
)

type Config struct {
	Addr     string
	RelatedK int
	Logger   *slog.Logger
}

// Server exposes stored articles, the digest and related-article lookups
// over HTTP and a websocket.
type Server struct {
	config Config
	store  types.QueryStore
	logger *slog.Logger
	router chi.Router
}

func New(store types.QueryStore, config Config) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.RelatedK <= 0 {
		config.RelatedK = 5
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	s := &Server{
		config: config,
		store:  store,
		logger: config.Logger.With("component", "server"),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		recoverer(),
		requestID(),
		requestLogger(s.logger),
	)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/articles", func(r chi.Router) {
		r.Get("/", s.listArticles)
		r.Post("/", s.createArticle)
		r.Get("/{id}", s.getArticle)
		r.Put("/{id}", s.updateArticle)
		r.Delete("/{id}", s.deleteArticle)
		r.Get("/{id}/related", s.relatedArticles)
	})
	r.Get("/digest", s.getDigest)
	r.Get("/ws", s.handleWebSocket)

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
