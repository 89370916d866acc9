// Package connection runs the protocol engine for one robot link.
//
// Concurrency model: exactly one goroutine (the run loop) mutates the
// node registry, the refresh scheduler and the waiter tables. Work
// reaches it through a single hand-off channel of task closures, fed by
// the receiver goroutine (inbound frames) and by API calls. A third
// goroutine dispatches user callbacks so they can never block the loop.
//
// API calls that wait (Get, WaitForNode) park a one-shot completion
// channel with the run loop and block the caller, never the loop.
package connection
