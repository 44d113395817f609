package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func sweepEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "sweep.db"))
	t.Setenv("DOWNLOAD_DIR", filepath.Join(dir, "downloads"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SCRAPER_TIMEOUT", "60")
	t.Setenv("PENDING_SWEEP_AFTER", "0")
}

func TestSweepRejectsAgeWithinScraperTimeout(t *testing.T) {
	sweepEnv(t)

	_, err := runRoot(t, "sweep", "--older-than", "30s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--older-than")

	_, err = runRoot(t, "sweep", "--older-than", "60s")
	assert.Error(t, err)
}

func TestSweepRuns(t *testing.T) {
	sweepEnv(t)

	out, err := runRoot(t, "sweep", "--older-than", "2m")
	require.NoError(t, err)
	assert.Contains(t, out, "0 pending queries marked failed")
}
