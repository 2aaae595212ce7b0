package progress_test

import (
	"testing"

	"github.com/abhisek/ecoloop/internal/progress"
	"github.com/abhisek/ecoloop/internal/progress/progresstest"
)

func TestMemoryRepo(t *testing.T) {
	progresstest.RunRepoTests(t, func(t *testing.T) progress.Repo {
		return progress.NewMemoryRepo()
	})
}
