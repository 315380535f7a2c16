// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Engine rules: fee schedule, gateway prefix, sink address. These shape
//     every charge and locator the service produces.
//   - Node settings: listen addresses, data directory, logging. These can
//     vary per deployment.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds service runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// RPC server
	RPC RPCConfig

	// Fee schedule and payout routing
	Fees FeeConfig

	// Locator building
	Gateway string `conf:"gateway"`

	// Sink receives assets consumed by sink-transfer destruction.
	Sink string `conf:"sink"`

	// Logging
	Log LogConfig
}

// RPCConfig holds RPC server settings.
type RPCConfig struct {
	Enabled     bool     `conf:"rpc.enabled"`
	Addr        string   `conf:"rpc.addr"`
	Port        int      `conf:"rpc.port"`
	AllowedIPs  []string `conf:"rpc.allowed"`
	CORSOrigins []string `conf:"rpc.cors"` // Allowed CORS origins ("*" = all).
}

// FeeConfig holds the platform fee schedule. The allow-list tier applies to
// proof-gated reservations and is expected to exceed the base tier.
type FeeConfig struct {
	MintFee       uint64 `conf:"fees.mint"`
	MintFeeMerkle uint64 `conf:"fees.mint_merkle"`
	Recipient     string `conf:"fees.recipient"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-claims
//	macOS:   ~/Library/Application Support/KlingnetClaims
//	Windows: %APPDATA%\KlingnetClaims
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-claims"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingnetClaims")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KlingnetClaims")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingnetClaims")
	default:
		return filepath.Join(home, ".klingnet-claims")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// StateDir returns the key-value state database directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.NetworkDataDir(), "state")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "claims.conf")
}
