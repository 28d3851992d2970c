// Package config parses daisyway.toml and wires the concrete adapters it
// names into a runnable Daisyway value.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/aparcar/daisyway/infrastructure/etsi014"
)

// Config is the root of daisyway.toml.
type Config struct {
	Etsi014   etsi014.Config  `toml:"etsi014"`
	WireGuard WireGuardConfig `toml:"wireguard"`
	Outfile   *OutfileConfig  `toml:"outfile"`
	Peer      PeerConfig      `toml:"peer"`
}

// WireGuardConfig names the peers this process negotiates a PSK for, and
// optionally the local interface to inject it into.
type WireGuardConfig struct {
	LocalPeerID  string  `toml:"self_public_key"`
	RemotePeerID string  `toml:"peer_public_key"`
	Interface    *string `toml:"interface"`
}

// OutfileConfig selects the plain-file sink.
type OutfileConfig struct {
	Path string `toml:"path"`
}

// PeerConfig picks the TCP role (exactly one of Endpoint/Listen) and an
// optional pre-shared key file.
type PeerConfig struct {
	Endpoint *string `toml:"endpoint"`
	Listen   *string `toml:"listen"`
	PskFile  *string `toml:"psk_file"`
}

// Load reads and parses a TOML configuration file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(raw), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
