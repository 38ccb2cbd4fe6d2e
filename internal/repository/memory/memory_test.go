package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arbiter/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arbiter/internal/repository"
)

var (
	_ repository.GameRepository    = (*GameStore)(nil)
	_ repository.RequestRepository = (*RequestStore)(nil)
)

func TestGameStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Create and read back a copy", func(t *testing.T) {
		store := NewGameStore()

		// Given: a stored game
		created, err := store.Create(ctx, entity.NewGame())
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)

		// When: the returned value is mutated
		created.Board[0] = entity.PlayerX.Mark()

		// Then: the stored game is unaffected
		stored, err := store.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, stored.Board.IsEmpty(0))
	})

	t.Run("Unknown game", func(t *testing.T) {
		store := NewGameStore()

		_, err := store.GetByID(ctx, "nope")
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("CompareAndSwap bumps the version and rejects stale writes", func(t *testing.T) {
		store := NewGameStore()

		// Given: a stored game read at version 0
		created, err := store.Create(ctx, entity.NewGame())
		require.NoError(t, err)

		// When: writing it twice from the same read
		version, err := store.CompareAndSwap(ctx, created)
		require.NoError(t, err)

		_, err = store.CompareAndSwap(ctx, created)

		// Then: the first write wins and the second conflicts
		assert.Equal(t, int64(1), version)
		require.ErrorIs(t, err, apperror.ErrVersionConflict)
	})

	t.Run("Concurrent writers from the same version", func(t *testing.T) {
		store := NewGameStore()

		created, err := store.Create(ctx, entity.NewGame())
		require.NoError(t, err)

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
				if _, err := store.CompareAndSwap(ctx, next); err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
				}
			}(cell)
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
	})

	t.Run("List", func(t *testing.T) {
		store := NewGameStore()

		first := entity.NewGame()
		first.ID = "b"
		second := entity.NewGame()
		second.ID = "a"
		second.CreatedAt = first.CreatedAt

		_, err := store.Create(ctx, first)
		require.NoError(t, err)
		_, err = store.Create(ctx, second)
		require.NoError(t, err)

		games, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, games, 2)
		assert.Equal(t, "a", games[0].ID)
		assert.Equal(t, "b", games[1].ID)
	})
}

func TestRequestStore(t *testing.T) {
	ctx := context.Background()

	game := entity.NewGame()
	game.ID = "g1"

	t.Run("Insert only", func(t *testing.T) {
		store := NewRequestStore()

		// Given: a recorded request
		request, err := entity.NewProcessedRequest("req-1", game)
		require.NoError(t, err)
		require.NoError(t, store.Create(ctx, request))

		// When: the same id is recorded again
		err = store.Create(ctx, &entity.ProcessedRequest{RequestID: "req-1", Response: "{}"})

		// Then: it is rejected and the original survives
		require.ErrorIs(t, err, apperror.ErrDuplicateRequest)

		stored, err := store.GetByID(ctx, "req-1")
		require.NoError(t, err)
		assert.Equal(t, request.Response, stored.Response)

		exists, err := store.Exists(ctx, "req-1")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Unknown request", func(t *testing.T) {
		store := NewRequestStore()

		_, err := store.GetByID(ctx, "req-1")
		require.ErrorIs(t, err, apperror.ErrRequestNotFound)
	})

	t.Run("DeleteCreatedBefore", func(t *testing.T) {
		store := NewRequestStore()
		now := time.Now().UTC()

		old, err := entity.NewProcessedRequest("old", game)
		require.NoError(t, err)
		old.CreatedAt = now.Add(-25 * time.Hour)

		fresh, err := entity.NewProcessedRequest("fresh", game)
		require.NoError(t, err)

		require.NoError(t, store.Create(ctx, old))
		require.NoError(t, store.Create(ctx, fresh))

		deleted, err := store.DeleteCreatedBefore(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		exists, err := store.Exists(ctx, "old")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}
