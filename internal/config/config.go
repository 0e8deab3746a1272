// Package config loads the server's INI configuration, mirroring the
// load-or-default shape cppla-moto's JSON config package uses, adapted
// to gopkg.in/ini.v1.
package config

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"

	"wyrm/internal/fixed"
)

// ServerConfig holds the tunables read from the "[server]" INI section.
// Every field has a default applied by Default(), so a missing file or a
// missing key never leaves a zero value that would misbehave.
type ServerConfig struct {
	MaxPlayers      int
	MaxUsernameLen  int
	SimTickRate     int
	NetTickRate     int
	Port            int
	BannedIPs       []string
	ProximityRadius fixed.QW
}

// Default returns the built-in configuration used when no file is given
// or a file is missing.
func Default() ServerConfig {
	return ServerConfig{
		MaxPlayers:      64,
		MaxUsernameLen:  16,
		SimTickRate:     60,
		NetTickRate:     20,
		Port:            9999,
		ProximityRadius: fixed.MakeQW(1),
	}
}

// Load reads path as INI and overlays its "[server]" section onto
// Default(). A missing file is not an error: it falls back to defaults,
// logging nothing itself (the caller decides whether that's worth a
// warning). Unknown keys in the section are ignored.
func Load(path string) (ServerConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	f, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("config: load %s: %w", path, err)
	}
	return applySection(cfg, f)
}

// Reload re-reads path and returns a fresh ServerConfig, independent of
// any previously loaded value (the caller swaps it in atomically).
func Reload(path string) (ServerConfig, error) {
	return Load(path)
}

func applySection(cfg ServerConfig, f *ini.File) (ServerConfig, error) {
	if !f.HasSection("server") {
		return cfg, nil
	}
	sec := f.Section("server")

	if k := sec.Key("max_players"); k.String() != "" {
		v, err := k.Int()
		if err != nil {
			return cfg, fmt.Errorf("config: max_players: %w", err)
		}
		cfg.MaxPlayers = v
	}
	if k := sec.Key("max_username_len"); k.String() != "" {
		v, err := k.Int()
		if err != nil {
			return cfg, fmt.Errorf("config: max_username_len: %w", err)
		}
		cfg.MaxUsernameLen = v
	}
	if k := sec.Key("sim_tick_rate"); k.String() != "" {
		v, err := k.Int()
		if err != nil {
			return cfg, fmt.Errorf("config: sim_tick_rate: %w", err)
		}
		cfg.SimTickRate = v
	}
	if k := sec.Key("net_tick_rate"); k.String() != "" {
		v, err := k.Int()
		if err != nil {
			return cfg, fmt.Errorf("config: net_tick_rate: %w", err)
		}
		cfg.NetTickRate = v
	}
	if k := sec.Key("port"); k.String() != "" {
		v, err := k.Int()
		if err != nil {
			return cfg, fmt.Errorf("config: port: %w", err)
		}
		cfg.Port = v
	}
	if sec.HasKey("banned_ips") {
		cfg.BannedIPs = sec.Key("banned_ips").Strings(",")
	}
	if k := sec.Key("proximity_radius"); k.String() != "" {
		v, err := k.Float64()
		if err != nil {
			return cfg, fmt.Errorf("config: proximity_radius: %w", err)
		}
		cfg.ProximityRadius = fixed.MakeQWFraction(v)
	}

	return cfg, nil
}
