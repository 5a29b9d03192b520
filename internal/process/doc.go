// Package process supervises external converter processes.
//
// A Supervisor spawns one child per Run call with arguments passed as a
// vector, captures bounded stdout/stderr for diagnostics, and enforces a
// wall-clock deadline with a two-stage kill: SIGTERM on expiry, SIGKILL
// after a fixed grace period. Escalation is a tagged state machine so the
// racing exit and timeout paths resolve exactly once.
package process
