// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers .env, an optional YAML file and FLEETPOWER_* variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Provider names accepted by the provider key.
const (
	ProviderMock = "mock"
	ProviderTest = "test"
	ProviderLive = "live"
)

// Image sources accepted by the image_source key.
const (
	ImageSourceChain  = "chain"
	ImageSourceLegacy = "legacy"
)

// Default BSC deployment of the fleet game contracts.
const (
	DefaultRPCURL       = "https://bsc-dataseed1.binance.org"
	DefaultShipContract = "0xe80312d9F235ac2f816D5f63C4f06941F2c0d687"
	DefaultGameContract = "0xC7616b62aFb1E9Edbd1aA4F932342db829E4e1Fc"
	DefaultGemContract  = "0x152De2380eBb164173E855D2feFe09d98dC965dc"
	DefaultFuelContract = "0x41aA73453681fa67D42F35162C20998C60e4459F"
	DefaultTestAddress  = "0xfA7029fd4de9Aa319b24F4E4136946AAffA8F9e1"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Provider selects the snapshot backend: mock, test or live.
	Provider string `koanf:"provider"`

	RPCURL       string `koanf:"rpc_url"`
	ShipContract string `koanf:"ship_contract"`
	GameContract string `koanf:"game_contract"`
	GemContract  string `koanf:"gem_contract"`
	FuelDecimals int32  `koanf:"fuel_decimals"`

	// TestAddress is the single account served by the test provider.
	TestAddress string `koanf:"test_address"`

	// ScanLimit caps how many token ids the live holder scan reads.
	ScanLimit int `koanf:"scan_limit"`
	// BatchSize is the number of concurrent ownerOf calls per batch.
	BatchSize int `koanf:"batch_size"`
	// RPCRatePerSec paces contract calls; 0 disables pacing.
	RPCRatePerSec float64 `koanf:"rpc_rate_per_sec"`
	// ImageSource picks chain (getTokenImageId/levelOf) or legacy (token id arithmetic).
	ImageSource string `koanf:"image_source"`
	// IncludeGems toggles ERC-1155 gem balance reads.
	IncludeGems bool `koanf:"include_gems"`

	RefreshIntervalSec int `koanf:"refresh_interval_sec"`

	WorkerCount int `koanf:"worker_count"`
	// QueueSize bounds the in-memory rescore queue.
	QueueSize int `koanf:"queue_size"`
	// DedupeSize bounds the pending-address set.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
	SnapshotIntervalMS  int `koanf:"snapshot_interval_ms"`

	CacheEnabled  bool   `koanf:"cache_enabled"`
	CacheTTLSec   int    `koanf:"cache_ttl_sec"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	HistoryEnabled bool   `koanf:"history_enabled"`
	MongoURI       string `koanf:"mongo_uri"`
	MongoDatabase  string `koanf:"mongo_database"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		Provider:            ProviderMock,
		RPCURL:              DefaultRPCURL,
		ShipContract:        DefaultShipContract,
		GameContract:        DefaultGameContract,
		GemContract:         DefaultGemContract,
		FuelDecimals:        18,
		TestAddress:         DefaultTestAddress,
		ScanLimit:           100,
		BatchSize:           50,
		RPCRatePerSec:       20,
		ImageSource:         ImageSourceChain,
		IncludeGems:         true,
		RefreshIntervalSec:  300,
		WorkerCount:         runtime.NumCPU() * 2,
		QueueSize:           10_000,
		DedupeSize:          50_000,
		MaxLeaderboardLimit: 100,
		SnapshotIntervalMS:  500,
		CacheEnabled:        true,
		CacheTTLSec:         60,
		RedisAddr:           "",
		RedisDB:             0,
		HistoryEnabled:      false,
		MongoURI:            "mongodb://localhost:27017",
		MongoDatabase:       "fleetpower",
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.Provider {
	case ProviderMock:
	case ProviderTest:
		if c.TestAddress == "" {
			return fmt.Errorf("%w: test provider requires test_address", ErrInvalidConfig)
		}
		if err := c.requireChain(); err != nil {
			return err
		}
	case ProviderLive:
		if err := c.requireChain(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	switch c.ImageSource {
	case ImageSourceChain, ImageSourceLegacy:
	default:
		return fmt.Errorf("%w: unknown image_source %q", ErrInvalidConfig, c.ImageSource)
	}
	for name, v := range map[string]int{
		"worker_count":          c.WorkerCount,
		"queue_size":            c.QueueSize,
		"dedupe_size":           c.DedupeSize,
		"max_leaderboard_limit": c.MaxLeaderboardLimit,
		"scan_limit":            c.ScanLimit,
		"batch_size":            c.BatchSize,
	} {
		if v <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, name)
		}
	}
	if c.RPCRatePerSec < 0 {
		return fmt.Errorf("%w: rpc_rate_per_sec must not be negative", ErrInvalidConfig)
	}
	if c.HistoryEnabled && c.MongoURI == "" {
		return fmt.Errorf("%w: history_enabled requires mongo_uri", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) requireChain() error {
	if strings.TrimSpace(c.RPCURL) == "" {
		return fmt.Errorf("%w: rpc_url must not be empty", ErrInvalidConfig)
	}
	if c.ShipContract == "" || c.GameContract == "" {
		return fmt.Errorf("%w: ship_contract and game_contract are required", ErrInvalidConfig)
	}
	if c.IncludeGems && c.GemContract == "" {
		return fmt.Errorf("%w: include_gems requires gem_contract", ErrInvalidConfig)
	}
	return nil
}

// RefreshInterval returns the full-rebuild period; zero disables periodic rebuilds.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

// SnapshotInterval returns the ranked snapshot publish period.
func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalMS) * time.Millisecond
}

// CacheTTL returns how long fetched snapshots stay cached.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}
