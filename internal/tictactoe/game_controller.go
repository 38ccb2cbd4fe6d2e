package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
)

// ValidateMove checks a proposed move against the game state. An empty player means
// "whoever the game says is next".
func ValidateMove(gameInstance *entity.Game, cell int, player entity.Player) error {
	if !gameInstance.IsInProgress() {
		return apperror.ErrGameFinished
	}

	if err := CheckPosition(cell); err != nil {
		return err
	}

	if player != "" && player != gameInstance.CurrentPlayer {
		return apperror.ErrNotYourTurn
	}

	if !gameInstance.Board.IsEmpty(cell) {
		return apperror.ErrCellOccupied
	}

	return nil
}

// CheckPosition is the bounds check transports run before a move reaches the game.
func CheckPosition(cell int) error {
	if cell < 0 || cell >= entity.BoardSize {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidPosition, cell)
	}

	return nil
}

// ApplyMove returns the state after the current player marks cell. The input is not modified.
// The move must have passed ValidateMove.
func ApplyMove(gameInstance *entity.Game, cell int) *entity.Game {
	next := gameInstance.Clone()
	next.Board[cell] = next.CurrentPlayer.Mark()
	updateGameStatus(next)

	return next
}

// MakeTurn validates and applies the move in one step.
func MakeTurn(gameInstance *entity.Game, player entity.Player, cell int) (*entity.Game, error) {
	if err := ValidateMove(gameInstance, cell, player); err != nil {
		return nil, fmt.Errorf("invalid turn: %w", err)
	}

	return ApplyMove(gameInstance, cell), nil
}

// updateGameStatus - win is checked before fullness, so a winning last move is a win.
func updateGameStatus(gameInstance *entity.Game) {
	switch {
	case hasWinner(gameInstance.Board):
		gameInstance.Status = gameInstance.CurrentPlayer.WinStatus()
	case gameInstance.Board.IsFull():
		gameInstance.Status = entity.StatusDraw
	default:
		gameInstance.CurrentPlayer = gameInstance.CurrentPlayer.Opponent()
	}
}

func hasWinner(board entity.Board) bool {
	for _, combo := range entity.WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return true
		}
	}

	return false
}
