package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/ecoloop/internal/events"
	"github.com/abhisek/ecoloop/internal/levelgraph"
	"github.com/abhisek/ecoloop/internal/progress"
	"github.com/abhisek/ecoloop/internal/rewards"
)

const user = "u1"

type fixture struct {
	engine   *Engine
	tracker  *progress.Tracker
	recorder *events.Recorder
}

// newFixture builds 1 -> 2 -> 3 where level 3 has no lesson video and a
// pass threshold of 80.
func newFixture(t *testing.T) fixture {
	t.Helper()
	g, err := levelgraph.New([]levelgraph.Level{
		{ID: 1, Order: 1, Name: "Green Forest", VideoID: "v1"},
		{ID: 2, Order: 2, Name: "Clean River", VideoID: "v2", Prerequisites: []int{1}},
		{ID: 3, Order: 3, Name: "Eco City", PassThreshold: 80, Prerequisites: []int{2}},
	})
	require.NoError(t, err)

	tr := progress.NewTracker(g, progress.NewMemoryRepo())
	rec := &events.Recorder{}
	e, err := New(tr, rewards.DefaultConfig(), rec, nil)
	require.NoError(t, err)

	n := 0
	e.newAttemptID = func() string {
		n++
		return fmt.Sprintf("attempt-%d", n)
	}
	return fixture{engine: e, tracker: tr, recorder: rec}
}

func (f fixture) state(t *testing.T, levelID int) progress.State {
	t.Helper()
	p, err := f.tracker.Get(context.Background(), user, levelID)
	require.NoError(t, err)
	return p.State
}

func (f fixture) wallet(t *testing.T) progress.Wallet {
	t.Helper()
	w, err := f.tracker.Wallet(context.Background(), user)
	require.NoError(t, err)
	return w
}

// pass drives a level from its current state to COMPLETED.
func (f fixture) pass(t *testing.T, levelID, score int) QuizResult {
	t.Helper()
	ctx := context.Background()
	p, err := f.engine.StartLesson(ctx, user, levelID)
	require.NoError(t, err)
	if p.State == progress.StateVideoInProgress {
		_, err = f.engine.ReportWatchProgress(ctx, user, levelID, 100)
		require.NoError(t, err)
	}
	res, err := f.engine.SubmitQuiz(ctx, user, levelID, score)
	require.NoError(t, err)
	require.True(t, res.Passed)
	return res
}

func TestStartLesson_RootForNewUser(t *testing.T) {
	f := newFixture(t)
	p, err := f.engine.StartLesson(context.Background(), user, 1)
	require.NoError(t, err)

	assert.Equal(t, progress.StateVideoInProgress, p.State)
	assert.Equal(t, "attempt-1", p.AttemptID)
	assert.Zero(t, p.WatchPercent)
	assert.False(t, p.LessonRewarded)
	assert.True(t, p.Persisted)
}

func TestStartLesson_LockedLevel(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.StartLesson(context.Background(), user, 2)

	var locked *progress.LevelLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, 2, locked.LevelID)
	assert.Equal(t, []int{1}, locked.Missing)
	assert.ErrorIs(t, err, progress.ErrLevelLocked)

	p, err := f.tracker.Get(context.Background(), user, 2)
	require.NoError(t, err)
	assert.False(t, p.Persisted)
}

func TestStartLesson_ResumesAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.engine.StartLesson(ctx, user, 1)
	require.NoError(t, err)
	_, err = f.engine.ReportWatchProgress(ctx, user, 1, 30)
	require.NoError(t, err)

	again, err := f.engine.StartLesson(ctx, user, 1)
	require.NoError(t, err)
	assert.Equal(t, first.AttemptID, again.AttemptID)
	assert.Equal(t, 30, again.WatchPercent)
}

func TestStartLesson_NoVideoGoesToQuiz(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 1, 100)
	f.pass(t, 2, 100)

	p, err := f.engine.StartLesson(context.Background(), user, 3)
	require.NoError(t, err)
	assert.Equal(t, progress.StateQuizUnlocked, p.State)
}

func TestStartLesson_UnknownLevel(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.StartLesson(context.Background(), user, 99)
	assert.ErrorIs(t, err, progress.ErrUnknownLevel)
}

func TestReportWatchProgress_IgnoresRegressions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.StartLesson(ctx, user, 1)
	require.NoError(t, err)

	_, err = f.engine.ReportWatchProgress(ctx, user, 1, 60)
	require.NoError(t, err)
	res, err := f.engine.ReportWatchProgress(ctx, user, 1, 20)
	require.NoError(t, err)

	assert.Equal(t, 60, res.Progress.WatchPercent)
	assert.Equal(t, progress.StateVideoInProgress, res.Progress.State)
	assert.True(t, res.Reward.IsZero())
	assert.Zero(t, f.wallet(t).XP)
}

func TestReportWatchProgress_LessonRewardOncePerLevel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.StartLesson(ctx, user, 1)
	require.NoError(t, err)

	res, err := f.engine.ReportWatchProgress(ctx, user, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, progress.StateQuizUnlocked, res.Progress.State)
	assert.Equal(t, progress.Reward{XP: 50}, res.Reward)
	assert.Equal(t, progress.Wallet{XP: 50}, res.Wallet)

	for range 3 {
		res, err = f.engine.ReportWatchProgress(ctx, user, 1, 100)
		require.NoError(t, err)
		assert.True(t, res.Reward.IsZero())
	}

	assert.Equal(t, progress.Wallet{XP: 50}, f.wallet(t))
	granted := f.recorder.OfType(events.TypeLessonRewardGranted)
	require.Len(t, granted, 1)
	assert.Equal(t, events.LessonRewardGranted{UserID: user, LevelID: 1, AttemptID: "attempt-1", XP: 50}, granted[0])
}

func TestReportWatchProgress_ConcurrentCompletionRewardsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.StartLesson(ctx, user, 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.engine.ReportWatchProgress(ctx, user, 1, 100)
		}()
	}
	wg.Wait()

	assert.Equal(t, progress.Wallet{XP: 50}, f.wallet(t))
	assert.Len(t, f.recorder.OfType(events.TypeLessonRewardGranted), 1)
}

func TestReportWatchProgress_InvalidPercent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.StartLesson(ctx, user, 1)
	require.NoError(t, err)

	for _, pct := range []int{-1, 101} {
		_, err := f.engine.ReportWatchProgress(ctx, user, 1, pct)
		assert.ErrorIs(t, err, ErrInvalidPercent, "percent %d", pct)
	}
	assert.Equal(t, progress.StateVideoInProgress, f.state(t, 1))
}

func TestReportWatchProgress_BeforeStart(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.ReportWatchProgress(context.Background(), user, 1, 50)

	var inv *progress.InvalidTransitionError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, progress.StateUnlocked, inv.From)
	assert.Equal(t, progress.StateUnlocked, f.state(t, 1))
}

func TestReportWatchProgress_AfterCompletionIsNoop(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 1, 80)
	before := f.wallet(t)

	res, err := f.engine.ReportWatchProgress(context.Background(), user, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, progress.StateCompleted, res.Progress.State)
	assert.Equal(t, before, f.wallet(t))
}

func TestSubmitQuiz_BelowThresholdFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.StartLesson(ctx, user, 1)
	require.NoError(t, err)
	_, err = f.engine.ReportWatchProgress(ctx, user, 1, 100)
	require.NoError(t, err)

	res, err := f.engine.SubmitQuiz(ctx, user, 1, 59)
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, 60, res.Required)
	assert.Equal(t, progress.StateQuizUnlocked, res.Progress.State)
	assert.Equal(t, progress.Wallet{XP: 50}, res.Wallet)

	failed := f.recorder.OfType(events.TypeQuizFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, events.QuizFailed{UserID: user, LevelID: 1, AttemptID: "attempt-1", Score: 59, Required: 60}, failed[0])

	res, err = f.engine.SubmitQuiz(ctx, user, 1, 60)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Equal(t, progress.StateCompleted, res.Progress.State)
}

func TestSubmitQuiz_CompletesAndUnlocksNext(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, progress.StateLocked, f.state(t, 2))

	res := f.pass(t, 1, 80)
	assert.False(t, res.Replay)
	assert.Equal(t, progress.Reward{Coins: 44, XP: 180}, res.Reward)
	assert.Equal(t, progress.Wallet{Coins: 44, XP: 230}, res.Wallet)
	assert.Equal(t, 80, res.Progress.BestScore)
	require.NotNil(t, res.Progress.CompletedAt)

	assert.Equal(t, progress.StateUnlocked, f.state(t, 2))
	assert.Equal(t, progress.StateLocked, f.state(t, 3))

	completed := f.recorder.OfType(events.TypeLevelCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, events.LevelCompleted{
		UserID: user, LevelID: 1, AttemptID: "attempt-1",
		Score: 80, Coins: 44, XP: 180,
	}, completed[0])
}

func TestSubmitQuiz_LockedLevel(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.SubmitQuiz(context.Background(), user, 3, 90)

	var locked *progress.LevelLockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, []int{2}, locked.Missing)

	p, err := f.tracker.Get(context.Background(), user, 3)
	require.NoError(t, err)
	assert.False(t, p.Persisted)
	assert.Equal(t, progress.Wallet{}, f.wallet(t))
	assert.Empty(t, f.recorder.Events())
}

func TestSubmitQuiz_WrongState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.SubmitQuiz(ctx, user, 1, 90)
	assert.ErrorIs(t, err, progress.ErrInvalidTransition)

	_, err = f.engine.StartLesson(ctx, user, 1)
	require.NoError(t, err)
	_, err = f.engine.SubmitQuiz(ctx, user, 1, 90)
	assert.ErrorIs(t, err, progress.ErrInvalidTransition)
	assert.Equal(t, progress.StateVideoInProgress, f.state(t, 1))

	_, err = f.engine.ReportWatchProgress(ctx, user, 1, 100)
	require.NoError(t, err)
	_, err = f.engine.SubmitQuiz(ctx, user, 1, 90)
	require.NoError(t, err)

	_, err = f.engine.SubmitQuiz(ctx, user, 1, 90)
	assert.ErrorIs(t, err, progress.ErrInvalidTransition)
	assert.Len(t, f.recorder.OfType(events.TypeLevelCompleted), 1)
}

func TestSubmitQuiz_InvalidScore(t *testing.T) {
	f := newFixture(t)
	for _, score := range []int{-5, 101} {
		_, err := f.engine.SubmitQuiz(context.Background(), user, 1, score)
		assert.ErrorIs(t, err, ErrInvalidScore, "score %d", score)
	}
}

func TestSubmitQuiz_LevelThresholdOverridesDefault(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 1, 100)
	f.pass(t, 2, 100)
	ctx := context.Background()
	_, err := f.engine.StartLesson(ctx, user, 3)
	require.NoError(t, err)

	res, err := f.engine.SubmitQuiz(ctx, user, 3, 79)
	require.NoError(t, err)
	assert.False(t, res.Passed)
	assert.Equal(t, 80, res.Required)
}

func TestReplay_ReducedRewardKeepsHistory(t *testing.T) {
	f := newFixture(t)
	first := f.pass(t, 1, 80)
	firstAt := *first.Progress.CompletedAt

	p, err := f.engine.StartLesson(context.Background(), user, 1)
	require.NoError(t, err)
	assert.Equal(t, progress.StateVideoInProgress, p.State)
	assert.Equal(t, "attempt-2", p.AttemptID)
	assert.True(t, p.Replaying())
	assert.Equal(t, progress.StateUnlocked, f.state(t, 2), "dependents stay unlocked during replay")

	_, err = f.engine.ReportWatchProgress(context.Background(), user, 1, 100)
	require.NoError(t, err)
	res, err := f.engine.SubmitQuiz(context.Background(), user, 1, 60)
	require.NoError(t, err)

	assert.True(t, res.Replay)
	assert.Equal(t, rewards.DefaultConfig().Completion(60, true), res.Reward)
	assert.Equal(t, 80, res.Progress.BestScore)
	assert.True(t, firstAt.Equal(*res.Progress.CompletedAt))
}

func TestAbandon_RestoresUnlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.engine.StartLesson(ctx, user, 1)
	require.NoError(t, err)
	_, err = f.engine.ReportWatchProgress(ctx, user, 1, 100)
	require.NoError(t, err)
	before := f.wallet(t)

	p, err := f.engine.Abandon(ctx, user, 1)
	require.NoError(t, err)
	assert.Equal(t, progress.StateUnlocked, p.State)
	assert.Empty(t, p.AttemptID)
	assert.Equal(t, before, f.wallet(t))

	p, err = f.engine.StartLesson(ctx, user, 1)
	require.NoError(t, err)
	assert.Equal(t, "attempt-2", p.AttemptID)
	assert.Zero(t, p.WatchPercent)
}

func TestAbandon_ReplayRestoresCompleted(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 1, 90)
	ctx := context.Background()
	_, err := f.engine.StartLesson(ctx, user, 1)
	require.NoError(t, err)

	p, err := f.engine.Abandon(ctx, user, 1)
	require.NoError(t, err)
	assert.Equal(t, progress.StateCompleted, p.State)
	assert.Equal(t, 90, p.BestScore)
	assert.Equal(t, progress.StateUnlocked, f.state(t, 2))
}

func TestAbandon_NoAttemptIsNoop(t *testing.T) {
	f := newFixture(t)
	p, err := f.engine.Abandon(context.Background(), user, 1)
	require.NoError(t, err)
	assert.Equal(t, progress.StateUnlocked, p.State)
	assert.False(t, p.Persisted)

	_, err = f.engine.Abandon(context.Background(), user, 2)
	assert.ErrorIs(t, err, progress.ErrLevelLocked)
}

func TestUnlockIsMonotonic(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 1, 70)
	f.pass(t, 2, 70)
	require.Equal(t, progress.StateUnlocked, f.state(t, 3))

	// Replaying and abandoning a prerequisite never re-locks its dependents.
	ctx := context.Background()
	_, err := f.engine.StartLesson(ctx, user, 2)
	require.NoError(t, err)
	assert.Equal(t, progress.StateUnlocked, f.state(t, 3))
	_, err = f.engine.Abandon(ctx, user, 2)
	require.NoError(t, err)
	assert.Equal(t, progress.StateUnlocked, f.state(t, 3))
}

func TestSinkFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t)
	f.engine.sink = events.SinkFunc(func(context.Context, events.Event) error {
		return errors.New("broker down")
	})

	res := f.pass(t, 1, 80)
	assert.Equal(t, progress.StateCompleted, res.Progress.State)
	assert.Equal(t, progress.Wallet{Coins: 44, XP: 230}, f.wallet(t))
}

func TestUsersAreIsolated(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 1, 80)

	p, err := f.tracker.Get(context.Background(), "someone-else", 2)
	require.NoError(t, err)
	assert.Equal(t, progress.StateLocked, p.State)
}

func TestLessonReward_NotRepaidAfterRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := range 5 {
		p, err := f.engine.StartLesson(ctx, user, 1)
		require.NoError(t, err)
		assert.Equal(t, progress.StateVideoInProgress, p.State)
		assert.Equal(t, i > 0, p.LessonRewarded, "cycle %d", i)

		res, err := f.engine.ReportWatchProgress(ctx, user, 1, 100)
		require.NoError(t, err)
		assert.Equal(t, progress.StateQuizUnlocked, res.Progress.State)
		if i > 0 {
			assert.True(t, res.Reward.IsZero(), "cycle %d", i)
		}

		_, err = f.engine.Abandon(ctx, user, 1)
		require.NoError(t, err)
	}

	assert.Equal(t, progress.Wallet{XP: 50}, f.wallet(t))
	assert.Len(t, f.recorder.OfType(events.TypeLessonRewardGranted), 1)
}

func TestLessonReward_NotRepaidOnReplay(t *testing.T) {
	f := newFixture(t)
	f.pass(t, 1, 80)
	require.Equal(t, progress.Wallet{Coins: 44, XP: 230}, f.wallet(t))

	ctx := context.Background()
	for range 3 {
		_, err := f.engine.StartLesson(ctx, user, 1)
		require.NoError(t, err)
		res, err := f.engine.ReportWatchProgress(ctx, user, 1, 100)
		require.NoError(t, err)
		assert.True(t, res.Reward.IsZero())
		_, err = f.engine.Abandon(ctx, user, 1)
		require.NoError(t, err)
	}

	assert.Equal(t, progress.Wallet{Coins: 44, XP: 230}, f.wallet(t))
}

func TestNew_RejectsInvalidRewards(t *testing.T) {
	tr := progress.NewTracker(levelgraph.Default(), progress.NewMemoryRepo())

	_, err := New(tr, rewards.Config{}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass threshold")

	cfg := rewards.DefaultConfig()
	cfg.ReplayPercent = 150
	_, err = New(tr, cfg, nil, nil)
	assert.Error(t, err)
}
