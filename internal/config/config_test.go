package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"carddraw/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, LedgerModeLocal, cfg.LedgerMode)
	assert.Equal(t, 2500*time.Millisecond, cfg.SpinDelay)
	assert.Equal(t, "codeArena_participated_", cfg.StorageKeyPrefix)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Minute, cfg.CleanupInterval)
	assert.Zero(t, cfg.HTTPTimeout)
}

func TestLoadRemote(t *testing.T) {
	t.Setenv("CARDDRAW_LEDGER_MODE", "remote")
	t.Setenv("CARDDRAW_WILDCARD_LEDGER_URL", "https://ledger.example/wildcard")
	t.Setenv("CARDDRAW_PENALTY_LEDGER_URL", "https://ledger.example/penalty")
	t.Setenv("CARDDRAW_SPIN_DELAY", "1s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.SpinDelay)
	assert.Equal(t, "https://ledger.example/penalty", cfg.LedgerEndpoints()[models.CategoryPenalty])
}

func TestLoadErrors(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("CARDDRAW_SPIN_DELAY", "soon")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})

	t.Run("remote without urls", func(t *testing.T) {
		t.Setenv("CARDDRAW_LEDGER_MODE", "remote")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("unknown mode", func(t *testing.T) {
		t.Setenv("CARDDRAW_LEDGER_MODE", "sheets")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("negative delay", func(t *testing.T) {
		t.Setenv("CARDDRAW_SPIN_DELAY", "-1s")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestValidateRequiresDBPathInEveryMode(t *testing.T) {
	for _, mode := range []string{LedgerModeLocal, LedgerModeDemo} {
		cfg := Config{LedgerMode: mode, CleanupInterval: time.Minute}
		assert.Error(t, cfg.Validate(), "mode=%s", mode)

		cfg.DBPath = "carddraw.db"
		assert.NoError(t, cfg.Validate(), "mode=%s", mode)
	}
}

func TestOpenLogOutput(t *testing.T) {
	t.Run("defaults to stderr", func(t *testing.T) {
		out, err := Config{}.OpenLogOutput()
		require.NoError(t, err)
		defer out.Close()

		nc, ok := out.(nopCloser)
		require.True(t, ok)
		assert.Same(t, os.Stderr, nc.Writer)
	})

	t.Run("appends to log file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "carddraw.log")
		require.NoError(t, os.WriteFile(path, []byte("earlier\n"), 0o644))

		out, err := Config{LogFile: path}.OpenLogOutput()
		require.NoError(t, err)
		_, err = out.Write([]byte("later\n"))
		require.NoError(t, err)
		require.NoError(t, out.Close())

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "earlier\nlater\n", string(got))
	})

	t.Run("unwritable path", func(t *testing.T) {
		_, err := Config{LogFile: filepath.Join(t.TempDir(), "missing", "x.log")}.OpenLogOutput()
		assert.Error(t, err)
	})
}
