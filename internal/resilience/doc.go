// Package resilience provides a circuit breaker for collaborator calls.
package resilience
