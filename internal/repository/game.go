package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/pkg"
)

const (
	gameKeyPrefix = "game:"
	gamesSetKey   = "games"
)

// createGameScript stores the game only if its key is free and indexes it in the same step.
var createGameScript = redis.NewScript(`
if not redis.call("SET", KEYS[1], ARGV[1], "NX") then
	return 0
end
redis.call("SADD", KEYS[2], ARGV[2])
return 1
`)

// GameRepository is the versioned game store. Games are never updated blindly:
// every write goes through CompareAndSwap.
type GameRepository interface {
	// Create stores a new game with version 0. An empty ID is generated.
	Create(ctx context.Context, game *entity.Game) (*entity.Game, error)
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	// CompareAndSwap persists game only if the stored version still equals game.Version
	// and returns the new version. The argument is not modified.
	CompareAndSwap(ctx context.Context, game *entity.Game) (int64, error)
	List(ctx context.Context) ([]*entity.Game, error)
}

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

func gameKey(id string) string {
	return gameKeyPrefix + id
}

func (that *dbGame) Create(ctx context.Context, game *entity.Game) (*entity.Game, error) {
	created := game.Clone()
	if created.ID == "" {
		created.ID = pkg.GenerateGameID()
	}
	created.Version = 0

	gameJSON, err := json.Marshal(created)
	if err != nil {
		return nil, fmt.Errorf("could not marshal game: %w", err)
	}

	stored, err := createGameScript.Run(ctx, that.client,
		[]string{gameKey(created.ID), gamesSetKey}, gameJSON, created.ID).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to set game: %w", err)
	}

	if stored == 0 {
		return nil, fmt.Errorf("%w: %s", apperror.ErrGameAlreadyExists, created.ID)
	}

	return created, nil
}

func (that *dbGame) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	response, err := that.client.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	return decodeGame(response)
}

func (that *dbGame) CompareAndSwap(ctx context.Context, game *entity.Game) (int64, error) {
	key := gameKey(game.ID)

	next := game.Clone()
	next.Version = game.Version + 1

	gameJSON, err := json.Marshal(next)
	if err != nil {
		return 0, fmt.Errorf("could not marshal game: %w", err)
	}

	// WATCH makes EXEC fail if another client touched the key after our read.
	err = that.client.Watch(ctx, func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrGameNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to get game: %w", err)
		}

		stored, err := decodeGame(response)
		if err != nil {
			return err
		}

		if stored.Version != game.Version {
			return apperror.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, gameJSON, 0)
			return nil
		})

		return err
	}, key)

	switch {
	case err == nil:
		return next.Version, nil
	case errors.Is(err, redis.TxFailedErr):
		return 0, fmt.Errorf("%w: game %s", apperror.ErrVersionConflict, game.ID)
	case errors.Is(err, apperror.ErrVersionConflict), errors.Is(err, apperror.ErrGameNotFound):
		return 0, fmt.Errorf("%w: game %s", err, game.ID)
	default:
		return 0, fmt.Errorf("failed to swap game: %w", err)
	}
}

func (that *dbGame) List(ctx context.Context) ([]*entity.Game, error) {
	ids, err := that.client.SMembers(ctx, gamesSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list game ids: %w", err)
	}

	if len(ids) == 0 {
		return []*entity.Game{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, gameKey(id))
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get games: %w", err)
	}

	games := make([]*entity.Game, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		game, err := decodeGame([]byte(raw))
		if err != nil {
			return nil, err
		}

		games = append(games, game)
	}

	SortGames(games)

	return games, nil
}

// SortGames orders games oldest first, ties broken by id.
func SortGames(games []*entity.Game) {
	sort.Slice(games, func(i, j int) bool {
		if !games[i].CreatedAt.Equal(games[j].CreatedAt) {
			return games[i].CreatedAt.Before(games[j].CreatedAt)
		}
		return games[i].ID < games[j].ID
	})
}

func decodeGame(data []byte) (*entity.Game, error) {
	var game entity.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	if err := game.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stored game %s: %w", game.ID, err)
	}

	return &game, nil
}
