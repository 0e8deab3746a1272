package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesToConfiguredFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wyrm.log")
	logger, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("hello")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "hello")
}

func TestNewUnknownLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wyrm.log")
	logger, err := New(Options{Level: "not-a-level", File: path})
	require.NoError(t, err)

	logger.Debug("should be filtered")
	logger.Info("should appear")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "should be filtered")
	require.Contains(t, string(data), "should appear")
}

func TestNopDiscardsWithoutPanicking(t *testing.T) {
	logger := Nop()
	require.NotPanics(t, func() {
		logger.Info("discarded")
	})
}
