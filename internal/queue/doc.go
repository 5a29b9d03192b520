// Package queue serializes conversion jobs.
//
// Arrival order is the only admitted ordering. A single drain goroutine
// dispatches at most one job at a time, resolves each caller exactly once,
// and inserts a fixed cooldown between dispatches.
package queue
