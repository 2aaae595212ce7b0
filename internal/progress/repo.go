package progress

import (
	"context"
	"sync"
)

// Repo is the persistence backend behind a Tracker. Each method must be
// atomic on its own; the Tracker serializes calls per user.
type Repo interface {
	// LoadProgress returns the stored record, or nil if none exists.
	LoadProgress(ctx context.Context, userID string, levelID int) (*LevelProgress, error)

	// CompletedLevels returns the IDs of levels the user has ever completed.
	CompletedLevels(ctx context.Context, userID string) (map[int]bool, error)

	// LoadWallet returns the user's wallet (zero if never rewarded).
	LoadWallet(ctx context.Context, userID string) (Wallet, error)

	// Commit saves p (when non-nil) and adds reward to the wallet as a single
	// unit, returning the new wallet.
	Commit(ctx context.Context, userID string, p *LevelProgress, reward Reward) (Wallet, error)
}

// MemoryRepo is an in-process Repo.
type MemoryRepo struct {
	mu       sync.RWMutex
	progress map[string]map[int]LevelProgress
	wallets  map[string]Wallet
}

// NewMemoryRepo creates an empty in-memory repository.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		progress: make(map[string]map[int]LevelProgress),
		wallets:  make(map[string]Wallet),
	}
}

func (m *MemoryRepo) LoadProgress(_ context.Context, userID string, levelID int) (*LevelProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.progress[userID][levelID]
	if !ok {
		return nil, nil
	}
	p = p.clone()
	return &p, nil
}

func (m *MemoryRepo) CompletedLevels(_ context.Context, userID string) (map[int]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	done := make(map[int]bool)
	for id, p := range m.progress[userID] {
		if p.IsCompleted() {
			done[id] = true
		}
	}
	return done, nil
}

func (m *MemoryRepo) LoadWallet(_ context.Context, userID string) (Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wallets[userID], nil
}

func (m *MemoryRepo) Commit(_ context.Context, userID string, p *LevelProgress, reward Reward) (Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p != nil {
		levels, ok := m.progress[userID]
		if !ok {
			levels = make(map[int]LevelProgress)
			m.progress[userID] = levels
		}
		saved := p.clone()
		saved.Persisted = true
		levels[p.LevelID] = saved
	}

	w := m.wallets[userID]
	w.Coins += reward.Coins
	w.XP += reward.XP
	m.wallets[userID] = w
	return w, nil
}
