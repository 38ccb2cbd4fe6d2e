package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

// NewRouter wires the game handlers into a chi router.
func NewRouter(logger *slog.Logger, uGame usecase.GameUseCase) http.Handler {
	h := newHandlers(logger, uGame)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ping", h.ping)

	r.Route("/api/game", func(r chi.Router) {
		r.Get("/", h.listGames)
		r.Post("/new", h.createGame)
		r.Get("/{id}", h.getGame)
		r.Post("/{id}/move", h.makeMove)
	})

	return r
}

// Start - serves the REST API until ctx is done.
func Start(ctx context.Context, logger *slog.Logger, port string, handler http.Handler) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown rest server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
