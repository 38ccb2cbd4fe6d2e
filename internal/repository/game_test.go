package repository

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arbiter/testing/suite"
)

func TestGameRepository_Create(t *testing.T) {
	ctx, st := suite.New(t)

	gameRepo := NewGameRepository(st.Storage)

	// Given: a fresh game without an id
	game := entity.NewGame()

	// When: Create is called
	created, err := gameRepo.Create(ctx, game)

	// Then: an id is assigned and the game starts at version 0
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(0), created.Version)
	assert.Empty(t, game.ID)

	// Then: the game is indexed for listing together with its record
	indexed, err := st.Storage.SIsMember(ctx, gamesSetKey, created.ID).Result()
	require.NoError(t, err)
	assert.True(t, indexed)

	// Then: creating the same id again fails
	_, err = gameRepo.Create(ctx, created)
	require.ErrorIs(t, err, apperror.ErrGameAlreadyExists)

	count, err := st.Storage.SCard(ctx, gamesSetKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGameRepository_GetByID(t *testing.T) {
	t.Run("GetByID_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: a stored game
		created, err := gameRepo.Create(ctx, entity.NewGame())
		require.NoError(t, err)

		// When: GetByID is called with existing ID
		retrievedGame, err := gameRepo.GetByID(ctx, created.ID)

		// Then: the retrieved game should match the saved game
		require.NoError(t, err)
		assert.Equal(t, created, retrievedGame)
	})

	t.Run("GetByID_CorruptRecord", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: a stored record without a current player
		record := `{"id":"broken","board":"         ","current_player":"","status":"IN_PROGRESS","version":0}`
		require.NoError(t, st.Storage.Set(ctx, gameKey("broken"), record, 0).Err())

		// When: GetByID is called
		game, err := gameRepo.GetByID(ctx, "broken")

		// Then: the record is rejected instead of reaching the move rules
		require.ErrorIs(t, err, entity.ErrInvalidPlayer)
		assert.Nil(t, game)
	})

	t.Run("GetByID_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// When: GetByID is called with non-existent ID
		retrievedGame, err := gameRepo.GetByID(ctx, "9999999")

		// Then: an ErrGameNotFound error should be returned
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
		assert.Nil(t, retrievedGame)
	})
}

func TestGameRepository_CompareAndSwap(t *testing.T) {
	t.Run("Swaps when the version matches", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: a stored game and a modified copy of it
		created, err := gameRepo.Create(ctx, entity.NewGame())
		require.NoError(t, err)

		next := created.Clone()
		next.Board[4] = entity.PlayerX.Mark()
		next.CurrentPlayer = entity.PlayerO

		// When: CompareAndSwap is called with the version that was read
		version, err := gameRepo.CompareAndSwap(ctx, next)

		// Then: the write lands and the version increments
		require.NoError(t, err)
		assert.Equal(t, int64(1), version)
		assert.Equal(t, int64(0), next.Version)

		stored, err := gameRepo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "    X    ", stored.Board.String())
		assert.Equal(t, int64(1), stored.Version)
	})

	t.Run("Rejects a stale version", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: two copies read at version 0, one already written
		created, err := gameRepo.Create(ctx, entity.NewGame())
		require.NoError(t, err)

		first := created.Clone()
		first.Board[0] = entity.PlayerX.Mark()
		_, err = gameRepo.CompareAndSwap(ctx, first)
		require.NoError(t, err)

		second := created.Clone()
		second.Board[8] = entity.PlayerX.Mark()

		// When: the second copy is written
		_, err = gameRepo.CompareAndSwap(ctx, second)

		// Then: ErrVersionConflict is returned and the first write survives
		require.ErrorIs(t, err, apperror.ErrVersionConflict)

		stored, err := gameRepo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "X        ", stored.Board.String())
	})

	t.Run("Missing game", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		game := entity.NewGame()
		game.ID = "missing"

		_, err := gameRepo.CompareAndSwap(ctx, game)
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("Only one of many concurrent writers wins", func(t *testing.T) {
		ctx, st := suite.New(t)

		gameRepo := NewGameRepository(st.Storage)

		// Given: one stored game
		created, err := gameRepo.Create(ctx, entity.NewGame())
		require.NoError(t, err)

		// When: every cell is written concurrently from the same version
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)

		for cell := 0; cell < entity.BoardSize; cell++ {
			wg.Add(1)
			go func(cell int) {
				defer wg.Done()

				next := created.Clone()
				next.Board[cell] = entity.PlayerX.Mark()

				if _, err := gameRepo.CompareAndSwap(ctx, next); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, apperror.ErrVersionConflict)
				}
			}(cell)
		}
		wg.Wait()

		// Then: exactly one write landed
		assert.Equal(t, 1, successes)

		stored, err := gameRepo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stored.Version)
	})
}

func TestGameRepository_List(t *testing.T) {
	ctx, st := suite.New(t)

	gameRepo := NewGameRepository(st.Storage)

	// Given: an empty store
	games, err := gameRepo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, games)

	// Given: two stored games
	first, err := gameRepo.Create(ctx, entity.NewGame())
	require.NoError(t, err)
	second, err := gameRepo.Create(ctx, entity.NewGame())
	require.NoError(t, err)

	// When: listing
	games, err = gameRepo.List(ctx)

	// Then: both are returned
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{games[0].ID, games[1].ID})
}
