// Package main is the entry point for the warden server.
//
// The server hosts the resource-lifecycle and reclamation runtime and
// exposes it over a small HTTP surface:
//
//   - REST API for stats, pass history, and manual cleanup passes
//   - WebSocket stream of runtime notifications
//   - Prometheus metrics
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8700
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: final emergency cleanup pass, then graceful shutdown
package main
