// Package resource implements the typed resource registry.
//
// The registry owns every tracked handle from registration until release:
// timers, event subscriptions, observers, element references, pending
// operations, and binary buffers. Each kind has its own id namespace and a
// kind-specific teardown invoked exactly once on release. Releasing an
// already-released id is an expected race and reports false instead of
// failing.
//
// A side table carries auxiliary metadata keyed by resource identity. It is
// excluded from ownership and pruned by the same release path, so it never
// keeps a resource alive and never outlives one.
package resource
