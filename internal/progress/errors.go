package progress

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownLevel is returned for level IDs missing from the catalog.
	ErrUnknownLevel = errors.New("unknown level")

	// ErrNegativeReward is returned when a reward delta is below zero.
	ErrNegativeReward = errors.New("reward deltas must be non-negative")

	// ErrLevelLocked matches any *LevelLockedError via errors.Is.
	ErrLevelLocked = errors.New("level locked")

	// ErrInvalidTransition matches any *InvalidTransitionError via errors.Is.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrSkip is returned by an UpdateFunc to leave the record untouched.
	ErrSkip = errors.New("skip update")
)

// LevelLockedError indicates an attempt on a level whose prerequisites are
// not all completed.
type LevelLockedError struct {
	UserID  string
	LevelID int
	Missing []int // incomplete prerequisites
}

func (e *LevelLockedError) Error() string {
	return fmt.Sprintf("level %d is locked for user %q (incomplete prerequisites: %v)", e.LevelID, e.UserID, e.Missing)
}

func (e *LevelLockedError) Is(target error) bool { return target == ErrLevelLocked }

// InvalidTransitionError indicates an action that the current state does not
// allow. The stored record is left unchanged.
type InvalidTransitionError struct {
	LevelID int
	Action  string // empty for direct puts
	From    State
	To      State
}

func (e *InvalidTransitionError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("cannot %s level %d in state %s", e.Action, e.LevelID, e.From)
	}
	return fmt.Sprintf("level %d cannot move from %s to %s", e.LevelID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }
