// Package events defines the outbound notifications emitted by the
// progression engine and the sinks that deliver them.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type names an event kind on the wire.
type Type string

const (
	TypeLessonRewardGranted Type = "lesson_reward_granted"
	TypeLevelCompleted      Type = "level_completed"
	TypeQuizFailed          Type = "quiz_failed"
)

// Event is implemented by every outbound notification.
type Event interface {
	Type() Type
	User() string
	Level() int
}

// LessonRewardGranted is emitted once per attempt when the lesson video has
// been fully watched.
type LessonRewardGranted struct {
	UserID    string `json:"user_id"`
	LevelID   int    `json:"level_id"`
	AttemptID string `json:"attempt_id"`
	XP        int    `json:"xp"`
}

// LevelCompleted is emitted when a quiz is passed.
type LevelCompleted struct {
	UserID    string `json:"user_id"`
	LevelID   int    `json:"level_id"`
	AttemptID string `json:"attempt_id"`
	Score     int    `json:"score"`
	Coins     int    `json:"coins"`
	XP        int    `json:"xp"`
	Replay    bool   `json:"replay"`
}

// QuizFailed is emitted when a quiz score is below the level's threshold.
// It is an outcome, not an error.
type QuizFailed struct {
	UserID    string `json:"user_id"`
	LevelID   int    `json:"level_id"`
	AttemptID string `json:"attempt_id"`
	Score     int    `json:"score"`
	Required  int    `json:"required"`
}

func (e LessonRewardGranted) Type() Type   { return TypeLessonRewardGranted }
func (e LessonRewardGranted) User() string { return e.UserID }
func (e LessonRewardGranted) Level() int   { return e.LevelID }

func (e LevelCompleted) Type() Type   { return TypeLevelCompleted }
func (e LevelCompleted) User() string { return e.UserID }
func (e LevelCompleted) Level() int   { return e.LevelID }

func (e QuizFailed) Type() Type   { return TypeQuizFailed }
func (e QuizFailed) User() string { return e.UserID }
func (e QuizFailed) Level() int   { return e.LevelID }

// Envelope is the serialized form shared by the redis and sqlite sinks.
type Envelope struct {
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Encode wraps an event in an Envelope.
func Encode(e Event, at time.Time) (Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s: %w", e.Type(), err)
	}
	return Envelope{Type: e.Type(), OccurredAt: at.UTC(), Payload: payload}, nil
}

// Decode restores the concrete event carried by an Envelope.
func Decode(env Envelope) (Event, error) {
	var (
		e   Event
		err error
	)
	switch env.Type {
	case TypeLessonRewardGranted:
		var v LessonRewardGranted
		err = json.Unmarshal(env.Payload, &v)
		e = v
	case TypeLevelCompleted:
		var v LevelCompleted
		err = json.Unmarshal(env.Payload, &v)
		e = v
	case TypeQuizFailed:
		var v QuizFailed
		err = json.Unmarshal(env.Payload, &v)
		e = v
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return e, nil
}
