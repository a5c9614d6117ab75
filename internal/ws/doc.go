// Package ws streams runtime notifications to WebSocket clients.
//
// Every event emitted on the notification bus (pass completions, leak
// findings, pressure tier transitions, alerts) is forwarded as a JSON frame:
//
//	{"event": "pass-completed", "payload": {...}}
//
// Delivery is best-effort: a client that cannot keep up loses frames rather
// than backpressuring the bus.
package ws
