package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration.
type Config struct {
	Server    ServerConfig
	Sampling  SamplingConfig
	Cleanup   CleanupConfig
	Pool      PoolConfig
	Pressure  PressureConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8700"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// SamplingConfig holds leak-detector sampling configuration.
type SamplingConfig struct {
	Interval       time.Duration `envconfig:"SAMPLE_INTERVAL" default:"30s"`
	WindowSize     int           `envconfig:"SAMPLE_WINDOW" default:"5"`
	ResourceGrowth float64       `envconfig:"LEAK_RESOURCE_GROWTH" default:"0.5"`
	MemoryGrowth   float64       `envconfig:"LEAK_MEMORY_GROWTH" default:"0.3"`
}

// CleanupConfig holds orchestrator scheduling configuration.
type CleanupConfig struct {
	AutoInterval     time.Duration `envconfig:"CLEANUP_AUTO_INTERVAL" default:"5m"`
	AutoTier         string        `envconfig:"CLEANUP_AUTO_TIER" default:"conservative"`
	LightInterval    time.Duration `envconfig:"CLEANUP_LIGHT_INTERVAL" default:"2m"`
	MediumInterval   time.Duration `envconfig:"CLEANUP_MEDIUM_INTERVAL" default:"10m"`
	HeavyInterval    time.Duration `envconfig:"CLEANUP_HEAVY_INTERVAL" default:"30m"`
	Cooldown         time.Duration `envconfig:"CLEANUP_COOLDOWN" default:"30s"`
	MaxReclaimRatio  float64       `envconfig:"CLEANUP_MAX_RECLAIM_RATIO" default:"0.5"`
	InactivityWindow time.Duration `envconfig:"CLEANUP_INACTIVITY_WINDOW" default:"15m"`
	ResourceCeiling  int           `envconfig:"CLEANUP_RESOURCE_CEILING" default:"500"`
	StructureCeiling int           `envconfig:"CLEANUP_STRUCTURE_CEILING" default:"5000"`
}

// PoolConfig holds object-pool maintenance configuration.
type PoolConfig struct {
	TrimInterval time.Duration `envconfig:"POOL_TRIM_INTERVAL" default:"1m"`
}

// PressureConfig holds memory-pressure monitor configuration.
type PressureConfig struct {
	WarnRatio       float64       `envconfig:"PRESSURE_WARN_RATIO" default:"0.70"`
	AggressiveRatio float64       `envconfig:"PRESSURE_AGGRESSIVE_RATIO" default:"0.85"`
	EmergencyRatio  float64       `envconfig:"PRESSURE_EMERGENCY_RATIO" default:"0.95"`
	LimitBytes      uint64        `envconfig:"PRESSURE_LIMIT_BYTES" default:"0"`
	ReclaimAttempts int           `envconfig:"PRESSURE_RECLAIM_ATTEMPTS" default:"3"`
	ReclaimDelay    time.Duration `envconfig:"PRESSURE_RECLAIM_DELAY" default:"250ms"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8700",
			Host: "0.0.0.0",
		},
		Sampling: SamplingConfig{
			Interval:       30 * time.Second,
			WindowSize:     5,
			ResourceGrowth: 0.5,
			MemoryGrowth:   0.3,
		},
		Cleanup: CleanupConfig{
			AutoInterval:     5 * time.Minute,
			AutoTier:         "conservative",
			LightInterval:    2 * time.Minute,
			MediumInterval:   10 * time.Minute,
			HeavyInterval:    30 * time.Minute,
			Cooldown:         30 * time.Second,
			MaxReclaimRatio:  0.5,
			InactivityWindow: 15 * time.Minute,
			ResourceCeiling:  500,
			StructureCeiling: 5000,
		},
		Pool: PoolConfig{
			TrimInterval: time.Minute,
		},
		Pressure: PressureConfig{
			WarnRatio:       0.70,
			AggressiveRatio: 0.85,
			EmergencyRatio:  0.95,
			ReclaimAttempts: 3,
			ReclaimDelay:    250 * time.Millisecond,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
