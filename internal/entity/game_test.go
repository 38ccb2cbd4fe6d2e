package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMethods(t *testing.T) {
	t.Run("IsTerminal returns false only for in-progress", func(t *testing.T) {
		// Given: every known status
		// When: checking whether it is terminal
		// Then: only IN_PROGRESS is not terminal
		assert.False(t, StatusInProgress.IsTerminal())
		assert.True(t, StatusXWon.IsTerminal())
		assert.True(t, StatusOWon.IsTerminal())
		assert.True(t, StatusDraw.IsTerminal())
	})

	t.Run("Validate rejects unknown status", func(t *testing.T) {
		// Given: a status that is not part of the lifecycle
		status := Status("paused")

		// When: validating it
		err := status.Validate()

		// Then: ErrInvalidStatus should be returned
		require.ErrorIs(t, err, ErrInvalidStatus)
	})
}

func TestPlayer(t *testing.T) {
	t.Run("Opponent and WinStatus", func(t *testing.T) {
		assert.Equal(t, PlayerO, PlayerX.Opponent())
		assert.Equal(t, PlayerX, PlayerO.Opponent())
		assert.Equal(t, StatusXWon, PlayerX.WinStatus())
		assert.Equal(t, StatusOWon, PlayerO.WinStatus())
	})

	t.Run("ParsePlayer rejects unknown symbol", func(t *testing.T) {
		// When: parsing a symbol that is neither X nor O
		_, err := ParsePlayer("Z")

		// Then: ErrInvalidPlayer should be returned
		require.ErrorIs(t, err, ErrInvalidPlayer)
	})
}

func TestBoard_Encoding(t *testing.T) {
	t.Run("Empty board encodes as nine blanks", func(t *testing.T) {
		// Given: an empty board
		board := EmptyBoard()

		// Then: its string form is nine spaces
		assert.Equal(t, "         ", board.String())
		assert.False(t, board.IsFull())
	})

	t.Run("JSON round trip is exact", func(t *testing.T) {
		// Given: a board with both marks on it
		board, err := ParseBoard("XO X  O X")
		require.NoError(t, err)

		// When: encoding and decoding it
		data, err := json.Marshal(board)
		require.NoError(t, err)

		var decoded Board
		require.NoError(t, json.Unmarshal(data, &decoded))

		// Then: the encoding is the raw string and the decoded board is identical
		assert.JSONEq(t, `"XO X  O X"`, string(data))
		assert.Equal(t, board, decoded)
	})

	t.Run("Rejects wrong length", func(t *testing.T) {
		_, err := ParseBoard("XO")
		require.ErrorIs(t, err, ErrInvalidBoard)
	})

	t.Run("Rejects unknown mark", func(t *testing.T) {
		_, err := ParseBoard("XO?      ")
		require.ErrorIs(t, err, ErrInvalidBoard)
	})
}

func TestNewGame(t *testing.T) {
	// When: creating a new game
	game := NewGame()

	// Then: it starts in progress with X to move on an empty board
	assert.Equal(t, EmptyBoard(), game.Board)
	assert.Equal(t, PlayerX, game.CurrentPlayer)
	assert.Equal(t, StatusInProgress, game.Status)
	assert.Equal(t, int64(0), game.Version)
	assert.False(t, game.CreatedAt.IsZero())
	assert.True(t, game.IsInProgress())
}

func TestGame_Validate(t *testing.T) {
	t.Run("New game is valid", func(t *testing.T) {
		require.NoError(t, NewGame().Validate())
	})

	t.Run("Missing current player", func(t *testing.T) {
		// Given: a record that lost its turn marker
		game := NewGame()
		game.CurrentPlayer = ""

		// When: validating it
		err := game.Validate()

		// Then: ErrInvalidPlayer should be returned
		require.ErrorIs(t, err, ErrInvalidPlayer)
	})

	t.Run("Unknown status", func(t *testing.T) {
		game := NewGame()
		game.Status = "PAUSED"

		require.ErrorIs(t, game.Validate(), ErrInvalidStatus)
	})
}

func TestProcessedRequest_CorruptSnapshot(t *testing.T) {
	// Given: a ledger entry whose frozen game has no current player
	request := &ProcessedRequest{
		RequestID: "req-1",
		Response:  `{"id":"g1","board":"         ","current_player":"","status":"IN_PROGRESS","version":1}`,
	}

	// When: decoding it
	game, err := request.Snapshot()

	// Then: the snapshot is rejected instead of handed to the move rules
	require.ErrorIs(t, err, ErrInvalidPlayer)
	assert.Nil(t, game)
}

func TestGame_Clone(t *testing.T) {
	// Given: a game
	game := NewGame()
	game.ID = "123"

	// When: the clone is mutated
	clone := game.Clone()
	clone.Board[4] = PlayerX.Mark()
	clone.Version = 7

	// Then: the original is untouched
	assert.True(t, game.Board.IsEmpty(4))
	assert.Equal(t, int64(0), game.Version)
}

func TestProcessedRequest_Snapshot(t *testing.T) {
	// Given: a game snapshot frozen into a ledger entry
	game := NewGame()
	game.ID = "g1"
	game.Board[0] = PlayerX.Mark()
	game.CurrentPlayer = PlayerO
	game.Version = 1

	request, err := NewProcessedRequest("req-1", game)
	require.NoError(t, err)

	// When: decoding the snapshot back
	decoded, err := request.Snapshot()
	require.NoError(t, err)

	// Then: the decoded game equals the original and re-encodes to the same bytes
	assert.Equal(t, game, decoded)

	again, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, request.Response, string(again))
}
