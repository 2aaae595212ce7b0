// Package status collapses fine-grained progress into the four statuses a
// map renders.
package status

import (
	"context"

	"github.com/abhisek/ecoloop/internal/levelgraph"
	"github.com/abhisek/ecoloop/internal/progress"
)

// Status is the display status of a level.
type Status string

const (
	Locked     Status = "LOCKED"
	Unlocked   Status = "UNLOCKED"
	InProgress Status = "IN_PROGRESS"
	Completed  Status = "COMPLETED"
)

// FromState maps a progress state to its display status.
func FromState(s progress.State) Status {
	switch s {
	case progress.StateUnlocked:
		return Unlocked
	case progress.StateVideoInProgress, progress.StateQuizUnlocked:
		return InProgress
	case progress.StateCompleted:
		return Completed
	default:
		return Locked
	}
}

// Node is one level on the map together with the user's status on it.
type Node struct {
	Level     levelgraph.Level
	Status    Status
	BestScore int
	Completed bool // ever completed, including while a replay is underway
}

// Resolver reads statuses straight from the tracker. There is no cache, so
// results always reflect the latest committed progress.
type Resolver struct {
	tracker *progress.Tracker
}

// NewResolver creates a Resolver over tracker.
func NewResolver(tracker *progress.Tracker) *Resolver {
	return &Resolver{tracker: tracker}
}

// Resolve returns the display status of one level for a user.
func (r *Resolver) Resolve(ctx context.Context, userID string, levelID int) (Status, error) {
	p, err := r.tracker.Get(ctx, userID, levelID)
	if err != nil {
		return "", err
	}
	return FromState(p.State), nil
}

// ResolveMap resolves every level in map order.
func (r *Resolver) ResolveMap(ctx context.Context, userID string) ([]Node, error) {
	levels := r.tracker.Graph().Levels()
	nodes := make([]Node, 0, len(levels))
	for _, lvl := range levels {
		p, err := r.tracker.Get(ctx, userID, lvl.ID)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, Node{
			Level:     lvl,
			Status:    FromState(p.State),
			BestScore: p.BestScore,
			Completed: p.IsCompleted(),
		})
	}
	return nodes, nil
}
