package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/tictactoe"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 100 * time.Millisecond
)

type gameRepo interface {
	Create(ctx context.Context, game *entity.Game) (*entity.Game, error)
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	CompareAndSwap(ctx context.Context, game *entity.Game) (int64, error)
	List(ctx context.Context) ([]*entity.Game, error)
}

type requestRepo interface {
	Exists(ctx context.Context, requestID string) (bool, error)
	GetByID(ctx context.Context, requestID string) (*entity.ProcessedRequest, error)
	Create(ctx context.Context, request *entity.ProcessedRequest) error
}

type notifier interface {
	Notify(ctx context.Context, message entity.GameMessage) error
}

// RetryPolicy bounds the reload-and-retry loop run on a version conflict.
type RetryPolicy struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// GameManager runs every move through the ledger, the board rules and the versioned store.
type GameManager struct {
	logger *slog.Logger

	gameRepo    gameRepo
	requestRepo requestRepo
	notifier    notifier

	maxAttempts int
	retryDelay  time.Duration

	inflight singleflight.Group
}

func NewGameManager(
	logger *slog.Logger,
	gameRepo gameRepo,
	requestRepo requestRepo,
	notifier notifier,
	policy RetryPolicy,
) *GameManager {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = defaultMaxAttempts
	}

	if policy.RetryDelay < 0 {
		policy.RetryDelay = defaultRetryDelay
	}

	return &GameManager{
		logger: logger.With("component", "GameManager"),

		gameRepo:    gameRepo,
		requestRepo: requestRepo,
		notifier:    notifier,

		maxAttempts: policy.MaxAttempts,
		retryDelay:  policy.RetryDelay,
	}
}

func (that *GameManager) CreateGame(ctx context.Context) (*entity.Game, error) {
	log := that.logger.With("method", "CreateGame")

	game, err := that.gameRepo.Create(ctx, entity.NewGame())
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	log.Info("game created", "gameID", game.ID)
	that.notify(ctx, log, game)

	return game, nil
}

func (that *GameManager) GetGame(ctx context.Context, id string) (*entity.Game, error) {
	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

func (that *GameManager) ListGames(ctx context.Context) ([]*entity.Game, error) {
	games, err := that.gameRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	return games, nil
}

// MakeMove plays position for player (empty means whoever is next) in the game.
// A non-empty requestID makes the call idempotent: once a move for it has been recorded,
// every later call returns that recorded game, whatever the current state or arguments.
func (that *GameManager) MakeMove(
	ctx context.Context,
	gameID string,
	position int,
	player entity.Player,
	requestID string,
) (*entity.Game, error) {
	if requestID == "" {
		return that.makeMove(ctx, gameID, position, player, "")
	}

	// concurrent calls with the same request id share a single execution.
	result, err, _ := that.inflight.Do(requestID, func() (any, error) {
		return that.makeMove(ctx, gameID, position, player, requestID)
	})
	if err != nil {
		return nil, err
	}

	game, ok := result.(*entity.Game)
	if !ok {
		return nil, fmt.Errorf("unexpected move result %T", result)
	}

	return game.Clone(), nil
}

func (that *GameManager) makeMove(
	ctx context.Context,
	gameID string,
	position int,
	player entity.Player,
	requestID string,
) (*entity.Game, error) {
	log := that.logger.With("method", "MakeMove", "gameID", gameID, "requestID", requestID)

	if requestID != "" {
		recorded, err := that.replay(ctx, requestID)
		if err != nil {
			return nil, err
		}

		if recorded != nil {
			log.Info("request already processed, replaying response")
			return recorded, nil
		}
	}

	updated, err := that.applyMove(ctx, log, gameID, position, player)
	if err != nil {
		// another instance may have committed this request while we were validating.
		if requestID != "" && apperror.IsValidation(err) {
			if recorded, replayErr := that.replay(ctx, requestID); replayErr == nil && recorded != nil {
				log.Info("request processed concurrently, replaying response")
				return recorded, nil
			}
		}

		return nil, fmt.Errorf("failed to make move: %w", err)
	}

	log.Info("move accepted", "position", position, "status", updated.Status, "version", updated.Version)

	result := updated
	if requestID != "" {
		result = that.record(ctx, log, requestID, updated)
	}

	that.notify(ctx, log, updated)

	return result, nil
}

// applyMove is the optimistic loop: load, validate, compute, compare-and-swap.
func (that *GameManager) applyMove(
	ctx context.Context,
	log *slog.Logger,
	gameID string,
	position int,
	player entity.Player,
) (*entity.Game, error) {
	for attempt := 1; ; attempt++ {
		game, err := that.gameRepo.GetByID(ctx, gameID)
		if err != nil {
			return nil, fmt.Errorf("failed to get game: %w", err)
		}

		next, err := tictactoe.MakeTurn(game, player, position)
		if err != nil {
			return nil, err
		}

		version, err := that.gameRepo.CompareAndSwap(ctx, next)
		if err == nil {
			next.Version = version
			return next, nil
		}

		if !apperror.IsRetryable(err) {
			return nil, fmt.Errorf("failed to save game: %w", err)
		}

		if attempt >= that.maxAttempts {
			log.Warn("giving up after version conflicts", "attempts", attempt)
			return nil, fmt.Errorf("move abandoned after %d attempts: %w", attempt, err)
		}

		log.Warn("version conflict, retrying", "attempt", attempt)

		if err = that.wait(ctx); err != nil {
			return nil, err
		}
	}
}

func (that *GameManager) wait(ctx context.Context) error {
	if that.retryDelay == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(that.retryDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("move cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// replay returns the recorded game for requestID, or nil when there is none.
func (that *GameManager) replay(ctx context.Context, requestID string) (*entity.Game, error) {
	exists, err := that.requestRepo.Exists(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to check processed request: %w", err)
	}

	if !exists {
		return nil, nil
	}

	request, err := that.requestRepo.GetByID(ctx, requestID)
	if errors.Is(err, apperror.ErrRequestNotFound) {
		// swept between the two reads
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get processed request: %w", err)
	}

	game, err := request.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to read processed request: %w", err)
	}

	return game, nil
}

// record writes the ledger entry for a committed move. Failures are logged only: the move stands.
// When another writer recorded the id first, its response wins.
func (that *GameManager) record(ctx context.Context, log *slog.Logger, requestID string, game *entity.Game) *entity.Game {
	request, err := entity.NewProcessedRequest(requestID, game)
	if err != nil {
		log.Error("failed to build processed request", "error", err)
		return game
	}

	err = that.requestRepo.Create(ctx, request)
	if err == nil {
		return game
	}

	if !errors.Is(err, apperror.ErrDuplicateRequest) {
		log.Error("failed to record processed request", "error", err)
		return game
	}

	winner, err := that.replay(ctx, requestID)
	if err != nil || winner == nil {
		log.Error("failed to read concurrently recorded request", "error", err)
		return game
	}

	return winner
}

func (that *GameManager) notify(ctx context.Context, log *slog.Logger, game *entity.Game) {
	if err := that.notifier.Notify(ctx, entity.NewGameMessage(game)); err != nil {
		log.Error("failed to notify observers", "gameID", game.ID, "error", err)
	}
}
