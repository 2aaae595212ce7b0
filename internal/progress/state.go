package progress

import "time"

// State is a level's position in the attempt lifecycle.
type State string

const (
	StateLocked          State = "LOCKED"
	StateUnlocked        State = "UNLOCKED"
	StateVideoInProgress State = "VIDEO_IN_PROGRESS"
	StateQuizUnlocked    State = "QUIZ_UNLOCKED"
	StateCompleted       State = "COMPLETED"
)

// AllStates returns every state in forward order.
func AllStates() []State {
	return []State{StateLocked, StateUnlocked, StateVideoInProgress, StateQuizUnlocked, StateCompleted}
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateLocked, StateUnlocked, StateVideoInProgress, StateQuizUnlocked, StateCompleted:
		return true
	}
	return false
}

// InAttempt reports whether an attempt is underway in this state.
func (s State) InAttempt() bool {
	return s == StateVideoInProgress || s == StateQuizUnlocked
}

// LevelProgress is one user's record for one level.
type LevelProgress struct {
	LevelID     int
	State       State
	BestScore   int
	CompletedAt *time.Time // first completion; never overwritten

	// Attempt bookkeeping. WatchPercent and AttemptID reset with each
	// attempt; LessonRewarded survives restarts, abandons and replays so the
	// lesson-watch reward is credited at most once per level.
	WatchPercent   int
	AttemptID      string
	LessonRewarded bool

	UpdatedAt time.Time

	// Persisted is false for records synthesized on read.
	Persisted bool
}

// IsCompleted reports whether the level has ever been completed. Unlocking
// of dependent levels keys off this, so it never reverts.
func (p LevelProgress) IsCompleted() bool {
	return p.CompletedAt != nil
}

// Replaying reports whether an attempt is underway on an already completed level.
func (p LevelProgress) Replaying() bool {
	return p.IsCompleted() && p.State.InAttempt()
}

func (p LevelProgress) clone() LevelProgress {
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		p.CompletedAt = &t
	}
	return p
}

// Wallet holds a user's accumulated currency and experience.
type Wallet struct {
	Coins int
	XP    int
}

// Reward is an increment applied to a Wallet.
type Reward struct {
	Coins int
	XP    int
}

// IsZero reports whether the reward adds nothing.
func (r Reward) IsZero() bool {
	return r.Coins == 0 && r.XP == 0
}

// CanTransition reports whether a record in the from state may move to the
// target state. Abandoning an attempt on a completed level restores
// COMPLETED instead of UNLOCKED.
func CanTransition(from LevelProgress, to State) bool {
	switch from.State {
	case StateUnlocked:
		return to == StateVideoInProgress || to == StateQuizUnlocked || to == StateUnlocked
	case StateVideoInProgress:
		switch to {
		case StateVideoInProgress, StateQuizUnlocked:
			return true
		case StateCompleted:
			return from.IsCompleted()
		case StateUnlocked:
			return !from.IsCompleted()
		}
	case StateQuizUnlocked:
		switch to {
		case StateQuizUnlocked, StateCompleted:
			return true
		case StateUnlocked:
			return !from.IsCompleted()
		}
	case StateCompleted:
		return to == StateCompleted || to == StateVideoInProgress || to == StateQuizUnlocked
	}
	return false
}
