// Package sqlite implements the game store and request ledger on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/pkg"
)

type GameStore struct {
	db *sql.DB
}

func NewGameStore(db *sql.DB) *GameStore {
	return &GameStore{db: db}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func (that *GameStore) Create(ctx context.Context, game *entity.Game) (*entity.Game, error) {
	created := game.Clone()
	if created.ID == "" {
		created.ID = pkg.GenerateGameID()
	}
	created.Version = 0

	result, err := that.db.ExecContext(ctx,
		`INSERT INTO games (id, board, current_player, status, version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		created.ID,
		created.Board.String(),
		string(created.CurrentPlayer),
		string(created.Status),
		created.Version,
		toMillis(created.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert game: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to insert game: %w", err)
	}

	if affected == 0 {
		return nil, fmt.Errorf("%w: %s", apperror.ErrGameAlreadyExists, created.ID)
	}

	return created, nil
}

func (that *GameStore) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	row := that.db.QueryRowContext(ctx,
		`SELECT id, board, current_player, status, version, created_at FROM games WHERE id = ?`, id)

	game, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	return game, nil
}

func (that *GameStore) CompareAndSwap(ctx context.Context, game *entity.Game) (int64, error) {
	result, err := that.db.ExecContext(ctx,
		`UPDATE games
		 SET board = ?, current_player = ?, status = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		game.Board.String(),
		string(game.CurrentPlayer),
		string(game.Status),
		game.ID,
		game.Version,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update game: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to update game: %w", err)
	}

	if affected == 1 {
		return game.Version + 1, nil
	}

	// nothing matched: either the game is gone or the version moved on.
	var exists int
	err = that.db.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id = ?`, game.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: game %s", apperror.ErrGameNotFound, game.ID)
	}

	if err != nil {
		return 0, fmt.Errorf("failed to check game: %w", err)
	}

	return 0, fmt.Errorf("%w: game %s", apperror.ErrVersionConflict, game.ID)
}

func (that *GameStore) List(ctx context.Context) ([]*entity.Game, error) {
	rows, err := that.db.QueryContext(ctx,
		`SELECT id, board, current_player, status, version, created_at FROM games ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	games := make([]*entity.Game, 0)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}

		games = append(games, game)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	return games, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*entity.Game, error) {
	var (
		game                         entity.Game
		board, currentPlayer, status string
		createdAt                    int64
	)

	if err := row.Scan(&game.ID, &board, &currentPlayer, &status, &game.Version, &createdAt); err != nil {
		return nil, err
	}

	parsedBoard, err := entity.ParseBoard(board)
	if err != nil {
		return nil, err
	}

	game.Board = parsedBoard
	game.CurrentPlayer = entity.Player(currentPlayer)
	game.Status = entity.Status(status)
	game.CreatedAt = fromMillis(createdAt)

	if err = game.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stored game %s: %w", game.ID, err)
	}

	return &game, nil
}
