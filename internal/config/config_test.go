package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"wyrm/internal/fixed"
)

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadEmptyPathFallsBackToDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysSectionOntoDefaults(t *testing.T) {
	path := writeINI(t, `
[server]
max_players = 8
port = 12345
banned_ips = 10.0.0.1,10.0.0.2
proximity_radius = 2.5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 8, cfg.MaxPlayers)
	require.Equal(t, 12345, cfg.Port)
	require.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.BannedIPs)
	require.Equal(t, fixed.MakeQWFraction(2.5), cfg.ProximityRadius)

	// Untouched keys keep their defaults.
	require.Equal(t, Default().MaxUsernameLen, cfg.MaxUsernameLen)
	require.Equal(t, Default().SimTickRate, cfg.SimTickRate)
}

func TestLoadMissingSectionFallsBackToDefault(t *testing.T) {
	path := writeINI(t, `
[other]
foo = bar
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadRejectsMalformedInt(t *testing.T) {
	path := writeINI(t, `
[server]
max_players = not-a-number
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestReloadPicksUpChangedFile(t *testing.T) {
	path := writeINI(t, "[server]\nport = 1\n")
	first, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, first.Port)

	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 2\n"), 0o644))
	second, err := Reload(path)
	require.NoError(t, err)
	require.Equal(t, 2, second.Port)
}

func writeINI(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.ini")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}
