// Package engine drives a user's attempt at a level: lesson video, quiz,
// completion and rewards. All state lives in the progress tracker; the
// engine holds no per-attempt memory of its own.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/abhisek/ecoloop/internal/events"
	"github.com/abhisek/ecoloop/internal/levelgraph"
	"github.com/abhisek/ecoloop/internal/progress"
	"github.com/abhisek/ecoloop/internal/rewards"
)

// Engine applies attempt transitions on top of a progress.Tracker.
type Engine struct {
	tracker *progress.Tracker
	rewards rewards.Config
	sink    events.Sink
	logger  *slog.Logger

	newAttemptID func() string
}

// New creates an Engine. A nil sink discards events and a nil logger uses
// slog.Default(). The reward curve must pass rewards.Config.Validate.
func New(tracker *progress.Tracker, cfg rewards.Config, sink events.Sink, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if sink == nil {
		sink = events.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tracker:      tracker,
		rewards:      cfg,
		sink:         sink,
		logger:       logger,
		newAttemptID: uuid.NewString,
	}, nil
}

// Tracker returns the progress tracker the engine writes through.
func (e *Engine) Tracker() *progress.Tracker {
	return e.tracker
}

// Rewards returns the reward curve in effect.
func (e *Engine) Rewards() rewards.Config {
	return e.rewards
}

// WatchResult is returned by ReportWatchProgress.
type WatchResult struct {
	Progress progress.LevelProgress
	Wallet   progress.Wallet
	Reward   progress.Reward // zero unless this report granted the lesson reward
}

// QuizResult is returned by SubmitQuiz. A score below the threshold is a
// value with Passed false, not an error.
type QuizResult struct {
	Progress progress.LevelProgress
	Wallet   progress.Wallet
	Passed   bool
	Score    int
	Required int
	Replay   bool
	Reward   progress.Reward
}

// StartLesson begins an attempt, or resumes the one already underway.
// Levels without a lesson video go straight to the quiz.
func (e *Engine) StartLesson(ctx context.Context, userID string, levelID int) (progress.LevelProgress, error) {
	lvl, err := e.level(levelID)
	if err != nil {
		return progress.LevelProgress{}, err
	}

	started := false
	p, _, err := e.tracker.Update(ctx, userID, levelID, func(cur progress.LevelProgress) (progress.LevelProgress, progress.Reward, error) {
		switch cur.State {
		case progress.StateLocked:
			return cur, progress.Reward{}, e.lockedError(ctx, userID, levelID)
		case progress.StateVideoInProgress, progress.StateQuizUnlocked:
			return cur, progress.Reward{}, progress.ErrSkip
		}

		next := cur
		next.AttemptID = e.newAttemptID()
		next.WatchPercent = 0
		next.State = progress.StateVideoInProgress
		if !lvl.HasLesson() {
			next.State = progress.StateQuizUnlocked
		}
		started = true
		return next, progress.Reward{}, nil
	})
	if err != nil {
		return p, err
	}

	if started {
		e.logger.InfoContext(ctx, "attempt started",
			"user_id", userID, "level_id", levelID,
			"attempt_id", p.AttemptID, "state", string(p.State), "replay", p.Replaying())
	}
	return p, nil
}

// ReportWatchProgress records how much of the lesson video has been
// watched. Reports are untrusted: regressions and duplicates are ignored.
// Reaching 100 unlocks the quiz. The lesson reward is granted the first
// time a user finishes a level's video; restarts and replays earn nothing
// more.
func (e *Engine) ReportWatchProgress(ctx context.Context, userID string, levelID, percent int) (WatchResult, error) {
	if percent < 0 || percent > 100 {
		return WatchResult{}, fmt.Errorf("%w: got %d", ErrInvalidPercent, percent)
	}
	if _, err := e.level(levelID); err != nil {
		return WatchResult{}, err
	}

	var granted progress.Reward
	p, w, err := e.tracker.Update(ctx, userID, levelID, func(cur progress.LevelProgress) (progress.LevelProgress, progress.Reward, error) {
		switch cur.State {
		case progress.StateLocked:
			return cur, progress.Reward{}, e.lockedError(ctx, userID, levelID)
		case progress.StateUnlocked:
			return cur, progress.Reward{}, &progress.InvalidTransitionError{
				LevelID: levelID, Action: "report watch progress for",
				From: cur.State, To: progress.StateVideoInProgress,
			}
		case progress.StateQuizUnlocked, progress.StateCompleted:
			return cur, progress.Reward{}, progress.ErrSkip
		}

		if percent <= cur.WatchPercent {
			return cur, progress.Reward{}, progress.ErrSkip
		}

		next := cur
		next.WatchPercent = percent
		if percent < 100 {
			return next, progress.Reward{}, nil
		}

		next.State = progress.StateQuizUnlocked
		if !cur.LessonRewarded {
			next.LessonRewarded = true
			granted = e.rewards.Lesson()
		}
		return next, granted, nil
	})
	if err != nil {
		return WatchResult{Progress: p}, err
	}

	if !granted.IsZero() {
		e.publish(ctx, events.LessonRewardGranted{
			UserID:    userID,
			LevelID:   levelID,
			AttemptID: p.AttemptID,
			XP:        granted.XP,
		})
	}
	return WatchResult{Progress: p, Wallet: w, Reward: granted}, nil
}

// SubmitQuiz scores the quiz of the current attempt. Passing completes the
// level and grants the completion reward; replays of a completed level earn
// the reduced replay reward.
func (e *Engine) SubmitQuiz(ctx context.Context, userID string, levelID, score int) (QuizResult, error) {
	if score < 0 || score > 100 {
		return QuizResult{}, fmt.Errorf("%w: got %d", ErrInvalidScore, score)
	}
	lvl, err := e.level(levelID)
	if err != nil {
		return QuizResult{}, err
	}

	res := QuizResult{Score: score, Required: lvl.Threshold(e.rewards.PassThreshold)}
	p, w, err := e.tracker.Update(ctx, userID, levelID, func(cur progress.LevelProgress) (progress.LevelProgress, progress.Reward, error) {
		switch cur.State {
		case progress.StateLocked:
			return cur, progress.Reward{}, e.lockedError(ctx, userID, levelID)
		case progress.StateQuizUnlocked:
		default:
			return cur, progress.Reward{}, &progress.InvalidTransitionError{
				LevelID: levelID, Action: "submit quiz for",
				From: cur.State, To: progress.StateCompleted,
			}
		}

		res.Replay = cur.IsCompleted()
		if score < res.Required {
			return cur, progress.Reward{}, progress.ErrSkip
		}

		res.Passed = true
		res.Reward = e.rewards.Completion(score, res.Replay)
		next := cur
		next.State = progress.StateCompleted
		next.BestScore = score
		return next, res.Reward, nil
	})
	if err != nil {
		return QuizResult{Progress: p}, err
	}
	res.Progress = p
	res.Wallet = w

	if !res.Passed {
		e.publish(ctx, events.QuizFailed{
			UserID:    userID,
			LevelID:   levelID,
			AttemptID: p.AttemptID,
			Score:     score,
			Required:  res.Required,
		})
		return res, nil
	}

	e.logger.InfoContext(ctx, "level completed",
		"user_id", userID, "level_id", levelID, "score", score,
		"coins", res.Reward.Coins, "xp", res.Reward.XP, "replay", res.Replay)
	e.publish(ctx, events.LevelCompleted{
		UserID:    userID,
		LevelID:   levelID,
		AttemptID: p.AttemptID,
		Score:     score,
		Coins:     res.Reward.Coins,
		XP:        res.Reward.XP,
		Replay:    res.Replay,
	})
	return res, nil
}

// Abandon drops the current attempt and restores the pre-attempt state:
// UNLOCKED, or COMPLETED when the attempt was a replay. Rewards already
// granted are kept, and so is the record that they were granted.
// Abandoning an unlocked or completed level with no attempt underway is a
// no-op; a locked level fails with *progress.LevelLockedError like every
// other attempt operation.
func (e *Engine) Abandon(ctx context.Context, userID string, levelID int) (progress.LevelProgress, error) {
	if _, err := e.level(levelID); err != nil {
		return progress.LevelProgress{}, err
	}

	var attemptID string
	p, _, err := e.tracker.Update(ctx, userID, levelID, func(cur progress.LevelProgress) (progress.LevelProgress, progress.Reward, error) {
		switch cur.State {
		case progress.StateLocked:
			return cur, progress.Reward{}, e.lockedError(ctx, userID, levelID)
		case progress.StateUnlocked, progress.StateCompleted:
			return cur, progress.Reward{}, progress.ErrSkip
		}

		attemptID = cur.AttemptID
		next := cur
		next.State = progress.StateUnlocked
		if cur.IsCompleted() {
			next.State = progress.StateCompleted
		}
		next.AttemptID = ""
		next.WatchPercent = 0
		return next, progress.Reward{}, nil
	})
	if err != nil {
		return p, err
	}

	if attemptID != "" {
		e.logger.InfoContext(ctx, "attempt abandoned",
			"user_id", userID, "level_id", levelID,
			"attempt_id", attemptID, "state", string(p.State))
	}
	return p, nil
}

func (e *Engine) level(levelID int) (levelgraph.Level, error) {
	lvl, ok := e.tracker.Graph().Level(levelID)
	if !ok {
		return levelgraph.Level{}, fmt.Errorf("level %d: %w", levelID, progress.ErrUnknownLevel)
	}
	return lvl, nil
}

// lockedError runs under the tracker's user lock, so Missing reflects the
// same snapshot the LOCKED state was derived from.
func (e *Engine) lockedError(ctx context.Context, userID string, levelID int) error {
	missing, err := e.tracker.MissingPrerequisites(ctx, userID, levelID)
	if err != nil {
		return err
	}
	return &progress.LevelLockedError{UserID: userID, LevelID: levelID, Missing: missing}
}

// publish delivers an event after its transition has committed. Delivery
// failures are logged and never undo the transition.
func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if err := e.sink.Publish(ctx, ev); err != nil {
		e.logger.WarnContext(ctx, "event delivery failed",
			"type", string(ev.Type()), "user_id", ev.User(), "level_id", ev.Level(), "error", err)
	}
}
