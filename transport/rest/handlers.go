package rest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/usecase"
)

// MoveRequest is the body of POST /api/game/{id}/move.
type MoveRequest struct {
	Position  *int    `json:"position"`
	Player    *string `json:"player"`
	RequestID string  `json:"request_id"`
}

type handlers struct {
	logger *slog.Logger
	uGame  usecase.GameUseCase
}

func newHandlers(logger *slog.Logger, uGame usecase.GameUseCase) *handlers {
	return &handlers{
		logger: logger.With("component", "rest"),
		uGame:  uGame,
	}
}

func (that *handlers) ping(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func (that *handlers) listGames(w http.ResponseWriter, r *http.Request) {
	games, err := that.uGame.ListGames(r.Context())
	if err != nil {
		that.writeError(w, "listGames", err)
		return
	}

	that.writeJSON(w, http.StatusOK, games)
}

func (that *handlers) createGame(w http.ResponseWriter, r *http.Request) {
	game, err := that.uGame.CreateGame(r.Context())
	if err != nil {
		that.writeError(w, "createGame", err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *handlers) getGame(w http.ResponseWriter, r *http.Request) {
	game, err := that.uGame.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		that.writeError(w, "getGame", err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *handlers) makeMove(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		that.writeError(w, "makeMove", fmt.Errorf("%w: %v", apperror.ErrInvalidRequest, err))
		return
	}

	if req.Position == nil {
		that.writeError(w, "makeMove", fmt.Errorf("%w: position is required", apperror.ErrInvalidRequest))
		return
	}

	if err := tictactoe.CheckPosition(*req.Position); err != nil {
		that.writeError(w, "makeMove", err)
		return
	}

	var player entity.Player
	if req.Player != nil {
		parsed, err := entity.ParsePlayer(*req.Player)
		if err != nil {
			that.writeError(w, "makeMove", fmt.Errorf("%w: %v", apperror.ErrInvalidRequest, err))
			return
		}
		player = parsed
	}

	game, err := that.uGame.MakeMove(r.Context(), chi.URLParam(r, "id"), *req.Position, player, req.RequestID)
	if err != nil {
		that.writeError(w, "makeMove", err)
		return
	}

	that.writeJSON(w, http.StatusOK, game)
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}

func (that *handlers) writeError(w http.ResponseWriter, method string, err error) {
	response := apperror.NewErrorResponse(err)

	log := that.logger.With("method", method)
	if response.Status >= http.StatusInternalServerError {
		log.Error("request failed", "error", err)
	} else {
		log.Info("request rejected", "error", err)
	}

	that.writeJSON(w, response.Status, response)
}
