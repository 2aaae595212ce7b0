// Package rewards computes the coins and experience granted for lessons and
// quiz completions.
package rewards

import (
	"fmt"

	"github.com/abhisek/ecoloop/internal/progress"
)

// DefaultPassThreshold is the quiz score needed when a level sets none.
const DefaultPassThreshold = 60

// Config holds the reward curve. Scores are on a 0-100 scale.
type Config struct {
	// LessonWatchXP is granted once per attempt when the lesson video is
	// fully watched.
	LessonWatchXP int

	// Completion reward: Base + Score*score/100.
	BaseCoins  int
	ScoreCoins int
	BaseXP     int
	ScoreXP    int

	// ReplayPercent scales the completion reward for already completed levels.
	ReplayPercent int

	// PassThreshold applies to levels without their own threshold.
	PassThreshold int
}

// DefaultConfig returns the standard reward curve.
func DefaultConfig() Config {
	return Config{
		LessonWatchXP: 50,
		BaseCoins:     20,
		ScoreCoins:    30,
		BaseXP:        100,
		ScoreXP:       100,
		ReplayPercent: 25,
		PassThreshold: DefaultPassThreshold,
	}
}

// Validate checks that every knob is in range.
func (c Config) Validate() error {
	for name, v := range map[string]int{
		"lesson watch xp": c.LessonWatchXP,
		"base coins":      c.BaseCoins,
		"score coins":     c.ScoreCoins,
		"base xp":         c.BaseXP,
		"score xp":        c.ScoreXP,
	} {
		if v < 0 {
			return fmt.Errorf("rewards: %s must be >= 0, got %d", name, v)
		}
	}
	if c.ReplayPercent < 0 || c.ReplayPercent > 100 {
		return fmt.Errorf("rewards: replay percent must be in [0, 100], got %d", c.ReplayPercent)
	}
	if c.PassThreshold < 1 || c.PassThreshold > 100 {
		return fmt.Errorf("rewards: pass threshold must be in [1, 100], got %d", c.PassThreshold)
	}
	return nil
}

// Lesson returns the reward for fully watching a lesson video.
func (c Config) Lesson() progress.Reward {
	return progress.Reward{XP: c.LessonWatchXP}
}

// Completion returns the reward for passing a quiz with the given score.
// Replays earn ReplayPercent of the first-completion reward.
func (c Config) Completion(score int, replay bool) progress.Reward {
	score = min(max(score, 0), 100)
	r := progress.Reward{
		Coins: c.BaseCoins + c.ScoreCoins*score/100,
		XP:    c.BaseXP + c.ScoreXP*score/100,
	}
	if replay {
		r.Coins = r.Coins * c.ReplayPercent / 100
		r.XP = r.XP * c.ReplayPercent / 100
	}
	return r
}
