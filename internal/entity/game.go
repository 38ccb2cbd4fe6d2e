package entity

import (
	"errors"
	"fmt"
	"time"
)

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusXWon       Status = "X_WON"
	StatusOWon       Status = "O_WON"
	StatusDraw       Status = "DRAW"

	PlayerX Player = "X"
	PlayerO Player = "O"

	EmptyCell byte = ' '

	BoardSize = 9
)

var (
	ErrInvalidBoard  = errors.New("invalid board encoding")
	ErrInvalidPlayer = errors.New("invalid player")
	ErrInvalidStatus = errors.New("invalid game status")

	WinCombos = [][3]int{
		{0, 1, 2},
		{3, 4, 5},
		{6, 7, 8},
		{0, 3, 6},
		{1, 4, 7},
		{2, 5, 8},
		{0, 4, 8},
		{2, 4, 6},
	}
)

// Status is the lifecycle state of a game. Every status except StatusInProgress is terminal.
type Status string

func (that Status) IsTerminal() bool {
	return that != StatusInProgress
}

func (that Status) Validate() error {
	switch that {
	case StatusInProgress, StatusXWon, StatusOWon, StatusDraw:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(that))
	}
}

// Player is one of the two sides, identified by the mark it puts on the board.
type Player string

func ParsePlayer(value string) (Player, error) {
	player := Player(value)
	if err := player.Validate(); err != nil {
		return "", err
	}

	return player, nil
}

func (that Player) Validate() error {
	switch that {
	case PlayerX, PlayerO:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPlayer, string(that))
	}
}

func (that Player) Mark() byte {
	return that[0]
}

func (that Player) Opponent() Player {
	if that == PlayerX {
		return PlayerO
	}
	return PlayerX
}

func (that Player) WinStatus() Status {
	if that == PlayerX {
		return StatusXWon
	}
	return StatusOWon
}

// Board holds the 9 cells in row-major order. It encodes as a 9 character string,
// a blank for an empty cell and the player's mark otherwise.
type Board [BoardSize]byte

func EmptyBoard() Board {
	var board Board
	for i := range board {
		board[i] = EmptyCell
	}
	return board
}

func ParseBoard(value string) (Board, error) {
	var board Board
	if len(value) != BoardSize {
		return board, fmt.Errorf("%w: length %d", ErrInvalidBoard, len(value))
	}

	for i := 0; i < BoardSize; i++ {
		switch value[i] {
		case EmptyCell, PlayerX.Mark(), PlayerO.Mark():
			board[i] = value[i]
		default:
			return board, fmt.Errorf("%w: cell %d holds %q", ErrInvalidBoard, i, value[i])
		}
	}

	return board, nil
}

func (that Board) String() string {
	return string(that[:])
}

func (that Board) IsEmpty(cell int) bool {
	return that[cell] == EmptyCell
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}
	return true
}

func (that Board) MarshalText() ([]byte, error) {
	return []byte(that.String()), nil
}

func (that *Board) UnmarshalText(text []byte) error {
	board, err := ParseBoard(string(text))
	if err != nil {
		return err
	}

	*that = board
	return nil
}

type Game struct {
	ID            string    `json:"id"`
	Board         Board     `json:"board"`
	CurrentPlayer Player    `json:"current_player"`
	Status        Status    `json:"status"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewGame returns the initial state of a game: empty board, X to move.
// The id and version are assigned by the store on creation.
func NewGame() *Game {
	return &Game{
		Board:         EmptyBoard(),
		CurrentPlayer: PlayerX,
		Status:        StatusInProgress,
		CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
	}
}

func (that *Game) IsInProgress() bool {
	return !that.Status.IsTerminal()
}

// Validate rejects a decoded record whose turn or status is not one the rules know.
func (that *Game) Validate() error {
	if err := that.CurrentPlayer.Validate(); err != nil {
		return err
	}

	return that.Status.Validate()
}

// Clone returns an independent copy; Board is an array so a plain copy is enough.
func (that *Game) Clone() *Game {
	clone := *that
	return &clone
}

// GameMessage is the change event sent to observers after a game changes.
type GameMessage struct {
	ID            string `json:"id"`
	Board         Board  `json:"board"`
	CurrentPlayer Player `json:"current_player"`
	Status        Status `json:"status"`
}

func NewGameMessage(game *Game) GameMessage {
	return GameMessage{
		ID:            game.ID,
		Board:         game.Board,
		CurrentPlayer: game.CurrentPlayer,
		Status:        game.Status,
	}
}
