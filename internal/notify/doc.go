// Package notify delivers conversion outcomes and operator events.
//
// Webhook posts each asynchronous job's terminal outcome to its callback
// address exactly once, best effort, without retry. The ntfy-backed Service
// publishes daemon-level events for operators and degrades to a no-op when
// no topic is configured.
package notify
