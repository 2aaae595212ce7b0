// Package app assembles the progression core from configuration: storage,
// level catalog, event sinks and engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/abhisek/ecoloop/internal/config"
	"github.com/abhisek/ecoloop/internal/engine"
	"github.com/abhisek/ecoloop/internal/events"
	"github.com/abhisek/ecoloop/internal/levelgraph"
	"github.com/abhisek/ecoloop/internal/progress"
	"github.com/abhisek/ecoloop/internal/store"
)

// Options holds the inputs needed to build an App.
type Options struct {
	Config config.Config
	DBPath string
	Logger *slog.Logger
}

// App holds every wired component. Close releases them.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Store   *store.Store
	Graph   *levelgraph.Graph
	Tracker *progress.Tracker
	Engine  *engine.Engine
	Events  *store.EventRepo

	redis *redis.Client
}

// Open builds an App. The level catalog comes from Config.LevelsFile when
// set, otherwise the built-in map is used.
func Open(ctx context.Context, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	graph, err := LoadGraph(opts.Config.LevelsFile)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &App{
		Config: opts.Config,
		Logger: logger,
		Store:  st,
		Graph:  graph,
		Events: st.EventRepo(),
	}

	sinks := events.Fanout{events.LogSink{Logger: logger}, a.Events}
	if addr := opts.Config.RedisAddr; addr != "" {
		client, err := events.DialRedis(ctx, addr, opts.Config.RedisPassword, opts.Config.RedisDB)
		if err != nil {
			st.Close()
			return nil, err
		}
		a.redis = client
		sinks = append(sinks, events.NewRedisPublisher(client, opts.Config.RedisChannel))
		logger.Info("publishing events to redis", "addr", addr, "channel", opts.Config.RedisChannel)
	}

	a.Tracker = progress.NewTracker(graph, st.ProgressRepo())
	a.Engine, err = engine.New(a.Tracker, opts.Config.Rewards(), sinks, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the store and any redis connection.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}

// LoadGraph loads the catalog at path, or the built-in map when path is empty.
func LoadGraph(path string) (*levelgraph.Graph, error) {
	if path == "" {
		return levelgraph.Default(), nil
	}
	g, err := levelgraph.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load levels: %w", err)
	}
	return g, nil
}
