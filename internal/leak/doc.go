// Package leak detects abnormal growth in resource counts and memory usage.
//
// Samples accumulate in a bounded ring; analysis over a trailing window runs
// three independent tests: aggregate growth rate, individually old
// resources, and absolute per-kind count ceilings. Findings are debounced
// through the alert tracker so transient spikes do not storm notifications.
package leak
