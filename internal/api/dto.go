package api

import (
	"time"

	"github.com/abhisek/ecoloop/internal/engine"
	"github.com/abhisek/ecoloop/internal/levelgraph"
	"github.com/abhisek/ecoloop/internal/progress"
	"github.com/abhisek/ecoloop/internal/status"
)

type levelDTO struct {
	ID            int    `json:"id"`
	Order         int    `json:"order"`
	Name          string `json:"name"`
	Theme         string `json:"theme,omitempty"`
	VideoID       string `json:"video_id,omitempty"`
	PassThreshold int    `json:"pass_threshold"`
	Prerequisites []int  `json:"prerequisites"`
}

type nodeDTO struct {
	Level     levelDTO      `json:"level"`
	Status    status.Status `json:"status"`
	BestScore int           `json:"best_score"`
	Completed bool          `json:"completed"`
}

type progressDTO struct {
	LevelID        int            `json:"level_id"`
	State          progress.State `json:"state"`
	Status         status.Status  `json:"status"`
	BestScore      int            `json:"best_score"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	WatchPercent   int            `json:"watch_percent"`
	AttemptID      string         `json:"attempt_id,omitempty"`
	LessonRewarded bool           `json:"lesson_rewarded"`
}

type walletDTO struct {
	Coins int `json:"coins"`
	XP    int `json:"xp"`
}

type rewardDTO struct {
	Coins int `json:"coins"`
	XP    int `json:"xp"`
}

type watchResponse struct {
	Progress progressDTO `json:"progress"`
	Wallet   walletDTO   `json:"wallet"`
	Reward   rewardDTO   `json:"reward"`
}

type quizResponse struct {
	Passed   bool        `json:"passed"`
	Score    int         `json:"score"`
	Required int         `json:"required"`
	Replay   bool        `json:"replay"`
	Reward   rewardDTO   `json:"reward"`
	Progress progressDTO `json:"progress"`
	Wallet   walletDTO   `json:"wallet"`
}

type watchRequest struct {
	Percent *int `json:"percent"`
}

type quizRequest struct {
	Score *int `json:"score"`
}

func toLevelDTO(l levelgraph.Level, defaultThreshold int) levelDTO {
	prereqs := l.Prerequisites
	if prereqs == nil {
		prereqs = []int{}
	}
	return levelDTO{
		ID:            l.ID,
		Order:         l.Order,
		Name:          l.Name,
		Theme:         l.Theme,
		VideoID:       l.VideoID,
		PassThreshold: l.Threshold(defaultThreshold),
		Prerequisites: prereqs,
	}
}

func toProgressDTO(p progress.LevelProgress) progressDTO {
	return progressDTO{
		LevelID:        p.LevelID,
		State:          p.State,
		Status:         status.FromState(p.State),
		BestScore:      p.BestScore,
		CompletedAt:    p.CompletedAt,
		WatchPercent:   p.WatchPercent,
		AttemptID:      p.AttemptID,
		LessonRewarded: p.LessonRewarded,
	}
}

func toWalletDTO(w progress.Wallet) walletDTO {
	return walletDTO{Coins: w.Coins, XP: w.XP}
}

func toRewardDTO(r progress.Reward) rewardDTO {
	return rewardDTO{Coins: r.Coins, XP: r.XP}
}

func toQuizResponse(res engine.QuizResult) quizResponse {
	return quizResponse{
		Passed:   res.Passed,
		Score:    res.Score,
		Required: res.Required,
		Replay:   res.Replay,
		Reward:   toRewardDTO(res.Reward),
		Progress: toProgressDTO(res.Progress),
		Wallet:   toWalletDTO(res.Wallet),
	}
}
