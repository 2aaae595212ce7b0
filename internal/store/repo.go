package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/ecoloop/internal/progress"
)

const timeLayout = time.RFC3339Nano

// progressRepo implements progress.Repo on SQLite. Records are upserted and
// never deleted.
type progressRepo struct {
	db *sql.DB
}

func (r *progressRepo) LoadProgress(ctx context.Context, userID string, levelID int) (*progress.LevelProgress, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT state, best_score, completed_at, watch_percent, attempt_id, lesson_rewarded, updated_at
		FROM level_progress WHERE user_id = ? AND level_id = ?`, userID, levelID)

	var (
		p           = progress.LevelProgress{LevelID: levelID}
		state       string
		completedAt sql.NullString
		rewarded    int
		updatedAt   string
	)
	err := row.Scan(&state, &p.BestScore, &completedAt, &p.WatchPercent, &p.AttemptID, &rewarded, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query level progress: %w", err)
	}

	p.State = progress.State(state)
	p.LessonRewarded = rewarded != 0
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		p.CompletedAt = &t
	}
	if p.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &p, nil
}

func (r *progressRepo) CompletedLevels(ctx context.Context, userID string) (map[int]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT level_id FROM level_progress WHERE user_id = ? AND completed_at IS NOT NULL`, userID)
	if err != nil {
		return nil, fmt.Errorf("query completed levels: %w", err)
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completed level: %w", err)
		}
		done[id] = true
	}
	return done, rows.Err()
}

func (r *progressRepo) LoadWallet(ctx context.Context, userID string) (progress.Wallet, error) {
	return loadWallet(ctx, r.db, userID)
}

// Commit writes the record and the wallet increment in one transaction.
func (r *progressRepo) Commit(ctx context.Context, userID string, p *progress.LevelProgress, reward progress.Reward) (progress.Wallet, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return progress.Wallet{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if p != nil {
		var completedAt any
		if p.CompletedAt != nil {
			completedAt = p.CompletedAt.UTC().Format(timeLayout)
		}
		rewarded := 0
		if p.LessonRewarded {
			rewarded = 1
		}
		updatedAt := p.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO level_progress(user_id, level_id, state, best_score, completed_at, watch_percent, attempt_id, lesson_rewarded, updated_at)
			VALUES(?,?,?,?,?,?,?,?,?)
			ON CONFLICT(user_id, level_id) DO UPDATE SET
				state = excluded.state,
				best_score = excluded.best_score,
				completed_at = excluded.completed_at,
				watch_percent = excluded.watch_percent,
				attempt_id = excluded.attempt_id,
				lesson_rewarded = excluded.lesson_rewarded,
				updated_at = excluded.updated_at
		`,
			userID, p.LevelID, string(p.State), p.BestScore, completedAt,
			p.WatchPercent, p.AttemptID, rewarded, updatedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return progress.Wallet{}, fmt.Errorf("upsert level progress: %w", err)
		}
	}

	if !reward.IsZero() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO wallets(user_id, coins, xp, updated_at) VALUES(?,?,?,?)
			ON CONFLICT(user_id) DO UPDATE SET
				coins = coins + excluded.coins,
				xp = xp + excluded.xp,
				updated_at = excluded.updated_at
		`, userID, reward.Coins, reward.XP, time.Now().UTC().Format(timeLayout))
		if err != nil {
			return progress.Wallet{}, fmt.Errorf("update wallet: %w", err)
		}
	}

	w, err := loadWallet(ctx, tx, userID)
	if err != nil {
		return progress.Wallet{}, err
	}
	if err := tx.Commit(); err != nil {
		return progress.Wallet{}, fmt.Errorf("commit: %w", err)
	}
	return w, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadWallet(ctx context.Context, q queryRower, userID string) (progress.Wallet, error) {
	var w progress.Wallet
	err := q.QueryRowContext(ctx, `SELECT coins, xp FROM wallets WHERE user_id = ?`, userID).Scan(&w.Coins, &w.XP)
	if errors.Is(err, sql.ErrNoRows) {
		return progress.Wallet{}, nil
	}
	if err != nil {
		return progress.Wallet{}, fmt.Errorf("query wallet: %w", err)
	}
	return w, nil
}
