// Package progresstest holds behaviour checks shared by every progress.Repo
// implementation.
package progresstest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/ecoloop/internal/progress"
)

// RunRepoTests exercises a Repo produced by newRepo. Each subtest gets a
// fresh repository.
func RunRepoTests(t *testing.T, newRepo func(t *testing.T) progress.Repo) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing record is nil", func(t *testing.T) {
		repo := newRepo(t)
		p, err := repo.LoadProgress(ctx, "u1", 1)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("commit then load", func(t *testing.T) {
		repo := newRepo(t)
		done := time.Date(2026, time.March, 4, 10, 30, 0, 0, time.UTC)
		in := progress.LevelProgress{
			LevelID:        2,
			State:          progress.StateCompleted,
			BestScore:      85,
			CompletedAt:    &done,
			WatchPercent:   100,
			AttemptID:      "attempt-1",
			LessonRewarded: true,
			UpdatedAt:      done,
		}
		_, err := repo.Commit(ctx, "u1", &in, progress.Reward{})
		require.NoError(t, err)

		got, err := repo.LoadProgress(ctx, "u1", 2)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, progress.StateCompleted, got.State)
		assert.Equal(t, 85, got.BestScore)
		require.NotNil(t, got.CompletedAt)
		assert.True(t, done.Equal(*got.CompletedAt))
		assert.Equal(t, 100, got.WatchPercent)
		assert.Equal(t, "attempt-1", got.AttemptID)
		assert.True(t, got.LessonRewarded)
	})

	t.Run("commit overwrites", func(t *testing.T) {
		repo := newRepo(t)
		first := progress.LevelProgress{LevelID: 1, State: progress.StateVideoInProgress, WatchPercent: 10}
		_, err := repo.Commit(ctx, "u1", &first, progress.Reward{})
		require.NoError(t, err)

		second := progress.LevelProgress{LevelID: 1, State: progress.StateQuizUnlocked, WatchPercent: 100}
		_, err = repo.Commit(ctx, "u1", &second, progress.Reward{})
		require.NoError(t, err)

		got, err := repo.LoadProgress(ctx, "u1", 1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, progress.StateQuizUnlocked, got.State)
		assert.Equal(t, 100, got.WatchPercent)
	})

	t.Run("users are isolated", func(t *testing.T) {
		repo := newRepo(t)
		p := progress.LevelProgress{LevelID: 1, State: progress.StateQuizUnlocked}
		_, err := repo.Commit(ctx, "alice", &p, progress.Reward{Coins: 5})
		require.NoError(t, err)

		got, err := repo.LoadProgress(ctx, "bob", 1)
		require.NoError(t, err)
		assert.Nil(t, got)

		w, err := repo.LoadWallet(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, progress.Wallet{}, w)
	})

	t.Run("completed levels", func(t *testing.T) {
		repo := newRepo(t)
		done := time.Now().UTC()
		for _, p := range []progress.LevelProgress{
			{LevelID: 1, State: progress.StateCompleted, CompletedAt: &done},
			{LevelID: 2, State: progress.StateVideoInProgress, CompletedAt: &done}, // replaying
			{LevelID: 3, State: progress.StateQuizUnlocked},
		} {
			_, err := repo.Commit(ctx, "u1", &p, progress.Reward{})
			require.NoError(t, err)
		}

		got, err := repo.CompletedLevels(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, map[int]bool{1: true, 2: true}, got)
	})

	t.Run("wallet accumulates", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Commit(ctx, "u1", nil, progress.Reward{Coins: 10, XP: 50})
		require.NoError(t, err)
		w, err := repo.Commit(ctx, "u1", nil, progress.Reward{Coins: 5, XP: 0})
		require.NoError(t, err)
		assert.Equal(t, progress.Wallet{Coins: 15, XP: 50}, w)

		loaded, err := repo.LoadWallet(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, w, loaded)
	})

	t.Run("concurrent commits do not lose updates", func(t *testing.T) {
		repo := newRepo(t)
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Commit(ctx, "u1", nil, progress.Reward{Coins: 1, XP: 2})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		w, err := repo.LoadWallet(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, progress.Wallet{Coins: 20, XP: 40}, w)
	})
}
