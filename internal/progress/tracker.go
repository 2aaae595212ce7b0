package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/ecoloop/internal/levelgraph"
)

// Tracker is the single source of truth for user progress. It synthesizes
// unlock state from the level graph and serializes all mutations per user.
type Tracker struct {
	graph *levelgraph.Graph
	repo  Repo
	locks userLocks

	// Now is the clock used for timestamps. Defaults to time.Now.
	Now func() time.Time
}

// NewTracker creates a Tracker over the given graph and backend.
func NewTracker(graph *levelgraph.Graph, repo Repo) *Tracker {
	return &Tracker{graph: graph, repo: repo, Now: time.Now}
}

// Graph returns the level catalog the tracker resolves against.
func (t *Tracker) Graph() *levelgraph.Graph {
	return t.graph
}

// Get returns the stored record for (user, level), or a transient LOCKED or
// UNLOCKED record when none is stored. Transient records are never saved.
func (t *Tracker) Get(ctx context.Context, userID string, levelID int) (LevelProgress, error) {
	return t.get(ctx, userID, levelID)
}

func (t *Tracker) get(ctx context.Context, userID string, levelID int) (LevelProgress, error) {
	if !t.graph.Has(levelID) {
		return LevelProgress{}, fmt.Errorf("level %d: %w", levelID, ErrUnknownLevel)
	}

	stored, err := t.repo.LoadProgress(ctx, userID, levelID)
	if err != nil {
		return LevelProgress{}, fmt.Errorf("load progress: %w", err)
	}
	if stored != nil {
		stored.Persisted = true
		return *stored, nil
	}

	p := LevelProgress{LevelID: levelID, State: StateLocked}
	if t.graph.IsRoot(levelID) {
		p.State = StateUnlocked
		return p, nil
	}

	completed, err := t.repo.CompletedLevels(ctx, userID)
	if err != nil {
		return LevelProgress{}, fmt.Errorf("load completed levels: %w", err)
	}
	if t.graph.IsUnlocked(levelID, completed) {
		p.State = StateUnlocked
	}
	return p, nil
}

// MissingPrerequisites returns the prerequisites of levelID the user has not
// completed yet, in catalog order.
func (t *Tracker) MissingPrerequisites(ctx context.Context, userID string, levelID int) ([]int, error) {
	prereqs := t.graph.PrerequisitesOf(levelID)
	if len(prereqs) == 0 {
		return nil, nil
	}
	completed, err := t.repo.CompletedLevels(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load completed levels: %w", err)
	}
	var missing []int
	for _, id := range prereqs {
		if !completed[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Put upserts a record. It fails with *InvalidTransitionError when the new
// state is not reachable from the current one.
func (t *Tracker) Put(ctx context.Context, userID string, p LevelProgress) error {
	_, _, err := t.Update(ctx, userID, p.LevelID, func(LevelProgress) (LevelProgress, Reward, error) {
		return p, Reward{}, nil
	})
	return err
}

// ApplyReward atomically adds the deltas to the user's wallet.
func (t *Tracker) ApplyReward(ctx context.Context, userID string, coins, xp int) (Wallet, error) {
	if coins < 0 || xp < 0 {
		return Wallet{}, ErrNegativeReward
	}
	unlock := t.locks.lock(userID)
	defer unlock()

	w, err := t.repo.Commit(ctx, userID, nil, Reward{Coins: coins, XP: xp})
	if err != nil {
		return Wallet{}, fmt.Errorf("apply reward: %w", err)
	}
	return w, nil
}

// Wallet returns the user's current wallet.
func (t *Tracker) Wallet(ctx context.Context, userID string) (Wallet, error) {
	w, err := t.repo.LoadWallet(ctx, userID)
	if err != nil {
		return Wallet{}, fmt.Errorf("load wallet: %w", err)
	}
	return w, nil
}

// UpdateFunc computes the next record and the reward to grant from the
// current record. Returning ErrSkip leaves everything untouched; any other
// error aborts the update.
type UpdateFunc func(cur LevelProgress) (LevelProgress, Reward, error)

// Update runs a read-modify-write of one record under the user's lock.
// The new record is checked against the transition table and merged with
// history (best score kept, first completion time kept) before it is saved
// together with the reward.
func (t *Tracker) Update(ctx context.Context, userID string, levelID int, fn UpdateFunc) (LevelProgress, Wallet, error) {
	unlock := t.locks.lock(userID)
	defer unlock()

	cur, err := t.get(ctx, userID, levelID)
	if err != nil {
		return LevelProgress{}, Wallet{}, err
	}

	next, reward, err := fn(cur)
	if errors.Is(err, ErrSkip) {
		w, werr := t.Wallet(ctx, userID)
		return cur, w, werr
	}
	if err != nil {
		return cur, Wallet{}, err
	}
	if reward.Coins < 0 || reward.XP < 0 {
		return cur, Wallet{}, ErrNegativeReward
	}
	if next.LevelID != levelID {
		return cur, Wallet{}, fmt.Errorf("record for level %d written to level %d", next.LevelID, levelID)
	}
	if !next.State.Valid() || !CanTransition(cur, next.State) {
		return cur, Wallet{}, &InvalidTransitionError{LevelID: levelID, From: cur.State, To: next.State}
	}

	now := t.Now().UTC()
	next = merge(cur, next, now)

	w, err := t.repo.Commit(ctx, userID, &next, reward)
	if err != nil {
		return cur, Wallet{}, fmt.Errorf("commit progress: %w", err)
	}
	next.Persisted = true
	return next, w, nil
}

// merge applies the append-only history rules to an outgoing record.
func merge(cur, next LevelProgress, now time.Time) LevelProgress {
	next = next.clone()
	next.BestScore = max(cur.BestScore, next.BestScore, 0)
	next.WatchPercent = min(max(next.WatchPercent, 0), 100)

	switch {
	case cur.CompletedAt != nil:
		t := *cur.CompletedAt
		next.CompletedAt = &t
	case next.State == StateCompleted:
		if next.CompletedAt == nil {
			next.CompletedAt = &now
		}
	default:
		next.CompletedAt = nil
	}

	next.UpdatedAt = now
	return next
}
