// Package memory keeps games and the request ledger in process memory.
// It backs tests and single-instance deployments that do not need persistence.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/repository"
)

type GameStore struct {
	mu    sync.RWMutex
	games map[string]*entity.Game
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string]*entity.Game),
	}
}

func (that *GameStore) Create(_ context.Context, game *entity.Game) (*entity.Game, error) {
	created := game.Clone()
	if created.ID == "" {
		created.ID = pkg.GenerateGameID()
	}
	created.Version = 0

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.games[created.ID]; ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrGameAlreadyExists, created.ID)
	}

	that.games[created.ID] = created

	return created.Clone(), nil
}

func (that *GameStore) GetByID(_ context.Context, id string) (*entity.Game, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	game, ok := that.games[id]
	if !ok {
		return nil, apperror.ErrGameNotFound
	}

	return game.Clone(), nil
}

func (that *GameStore) CompareAndSwap(_ context.Context, game *entity.Game) (int64, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	stored, ok := that.games[game.ID]
	if !ok {
		return 0, fmt.Errorf("%w: game %s", apperror.ErrGameNotFound, game.ID)
	}

	if stored.Version != game.Version {
		return 0, fmt.Errorf("%w: game %s", apperror.ErrVersionConflict, game.ID)
	}

	next := game.Clone()
	next.Version = game.Version + 1
	that.games[game.ID] = next

	return next.Version, nil
}

func (that *GameStore) List(_ context.Context) ([]*entity.Game, error) {
	that.mu.RLock()
	games := make([]*entity.Game, 0, len(that.games))
	for _, game := range that.games {
		games = append(games, game.Clone())
	}
	that.mu.RUnlock()

	repository.SortGames(games)

	return games, nil
}
