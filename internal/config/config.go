// Package config loads runtime settings from ECOLOOP_* environment
// variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/abhisek/ecoloop/internal/rewards"
)

// Config is the process configuration.
type Config struct {
	DB         string `env:"ECOLOOP_DB"`          // empty = XDG data dir
	LevelsFile string `env:"ECOLOOP_LEVELS_FILE"` // empty = built-in map
	HTTPAddr   string `env:"ECOLOOP_HTTP_ADDR" envDefault:":8080"`

	LogLevel  string `env:"ECOLOOP_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"ECOLOOP_LOG_FORMAT" envDefault:"text"`

	RedisAddr     string `env:"ECOLOOP_REDIS_ADDR"` // empty disables redis publishing
	RedisPassword string `env:"ECOLOOP_REDIS_PASSWORD"`
	RedisDB       int    `env:"ECOLOOP_REDIS_DB" envDefault:"0"`
	RedisChannel  string `env:"ECOLOOP_REDIS_CHANNEL" envDefault:"ecoloop.events"`

	PassThreshold int `env:"ECOLOOP_PASS_THRESHOLD" envDefault:"60"`
	LessonXP      int `env:"ECOLOOP_LESSON_XP"      envDefault:"50"`
	BaseCoins     int `env:"ECOLOOP_BASE_COINS"     envDefault:"20"`
	ScoreCoins    int `env:"ECOLOOP_SCORE_COINS"    envDefault:"30"`
	BaseXP        int `env:"ECOLOOP_BASE_XP"        envDefault:"100"`
	ScoreXP       int `env:"ECOLOOP_SCORE_XP"       envDefault:"100"`
	ReplayPercent int `env:"ECOLOOP_REPLAY_PERCENT" envDefault:"25"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: log format must be text or json, got %q", c.LogFormat)
	}
	return c.Rewards().Validate()
}

// Rewards returns the reward curve described by the config.
func (c Config) Rewards() rewards.Config {
	return rewards.Config{
		LessonWatchXP: c.LessonXP,
		BaseCoins:     c.BaseCoins,
		ScoreCoins:    c.ScoreCoins,
		BaseXP:        c.BaseXP,
		ScoreXP:       c.ScoreXP,
		ReplayPercent: c.ReplayPercent,
		PassThreshold: c.PassThreshold,
	}
}

// NewLogger builds the slog logger described by LogLevel and LogFormat.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q", s)
	}
	return level, nil
}
