package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), buf.String())
	return buf.String()
}

func TestLevelsCommand(t *testing.T) {
	out := run(t, "levels")
	assert.Contains(t, out, "Green Forest")
	assert.Contains(t, out, "Space Station")
	assert.Contains(t, out, "5 levels")
}

func TestAttemptFlowThroughCLI(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")

	out := run(t, "--db", db, "attempt", "start", "--user", "kid", "--level", "1")
	assert.Contains(t, out, "VIDEO_IN_PROGRESS")

	out = run(t, "--db", db, "attempt", "watch", "100", "--user", "kid", "--level", "1")
	assert.Contains(t, out, "+50 XP for watching")

	out = run(t, "--db", db, "attempt", "quiz", "80", "--user", "kid", "--level", "1")
	assert.Contains(t, out, "passed!")

	out = run(t, "--db", db, "status", "--user", "kid")
	lines := strings.Split(out, "\n")
	var forest, river string
	for _, l := range lines {
		switch {
		case strings.Contains(l, "Green Forest"):
			forest = l
		case strings.Contains(l, "Clean River"):
			river = l
		}
	}
	assert.Contains(t, forest, "COMPLETED")
	assert.Contains(t, river, "UNLOCKED")
	assert.Contains(t, out, "Coins: 44  XP: 230")

	out = run(t, "--db", db, "events", "--user", "kid")
	assert.Contains(t, out, "level_completed")
}

func TestVersionCommand(t *testing.T) {
	assert.Contains(t, run(t, "version"), "ecoloop")
}
