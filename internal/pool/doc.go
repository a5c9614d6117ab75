// Package pool provides per-type bounded pools of reusable instances.
//
// Each registered type carries a factory, a reset callback, and min/max
// bounds. Acquire prefers pooled instances and allocates past maxSize under
// load; overflow instances are handed out normally but discarded on release.
// Reuse efficiency (reused / (created + reused)) converges toward 1 under
// steady-state cycles that stay within maxSize.
package pool
