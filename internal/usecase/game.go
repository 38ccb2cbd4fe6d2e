package usecase

import (
	"context"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
)

// GameUseCase is the game core as the REST and WebSocket transports see it.
type GameUseCase interface {
	CreateGame(ctx context.Context) (*entity.Game, error)
	GetGame(ctx context.Context, id string) (*entity.Game, error)
	ListGames(ctx context.Context) ([]*entity.Game, error)

	MakeMove(ctx context.Context, gameID string, position int, player entity.Player, requestID string) (*entity.Game, error)
}

var _ GameUseCase = (*GameManager)(nil)
