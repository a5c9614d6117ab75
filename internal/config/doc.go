// Package config provides 12-factor configuration management for the warden
// runtime.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Sampling: leak-detector sampling cadence and growth thresholds
//   - Cleanup: orchestrator schedules, cooldown and safety bounds
//   - Pool: object-pool maintenance cadence
//   - Pressure: memory-pressure tier ratios and reclamation retries
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
package config
