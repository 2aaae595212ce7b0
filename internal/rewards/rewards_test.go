package rewards

import (
	"testing"

	"github.com/abhisek/ecoloop/internal/progress"
)

func TestCompletion(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name   string
		score  int
		replay bool
		want   progress.Reward
	}{
		{"pass mark", 60, false, progress.Reward{Coins: 38, XP: 160}},
		{"good score", 80, false, progress.Reward{Coins: 44, XP: 180}},
		{"perfect", 100, false, progress.Reward{Coins: 50, XP: 200}},
		{"replay perfect", 100, true, progress.Reward{Coins: 12, XP: 50}},
		{"replay good", 80, true, progress.Reward{Coins: 11, XP: 45}},
		{"clamped high", 250, false, progress.Reward{Coins: 50, XP: 200}},
		{"clamped low", -5, false, progress.Reward{Coins: 20, XP: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.Completion(tt.score, tt.replay); got != tt.want {
				t.Errorf("Completion(%d, %v) = %+v, want %+v", tt.score, tt.replay, got, tt.want)
			}
		})
	}
}

func TestCompletion_HigherScoreNeverEarnsLess(t *testing.T) {
	cfg := DefaultConfig()
	prev := cfg.Completion(0, false)
	for score := 1; score <= 100; score++ {
		r := cfg.Completion(score, false)
		if r.Coins < prev.Coins || r.XP < prev.XP {
			t.Fatalf("score %d earned %+v, less than %+v", score, r, prev)
		}
		prev = r
	}
}

func TestLesson(t *testing.T) {
	if got := DefaultConfig().Lesson(); got != (progress.Reward{XP: 50}) {
		t.Errorf("Lesson() = %+v, want 50 xp", got)
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := []func(*Config){
		func(c *Config) { c.LessonWatchXP = -1 },
		func(c *Config) { c.ScoreCoins = -3 },
		func(c *Config) { c.ReplayPercent = 150 },
		func(c *Config) { c.PassThreshold = 0 },
		func(c *Config) { c.PassThreshold = 101 },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
