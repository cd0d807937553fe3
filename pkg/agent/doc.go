// Package agent defines the update agent surface the orchestrator
// consumes, and provides two implementations.
//
// The Agent interface and Callbacks struct form the boundary: an agent
// runs on goroutines the application does not control, and reports
// check/download progress through fire-and-forget callbacks. Only the
// CanShutdown query is answered synchronously on the agent's goroutine.
//
// # Implementations
//
// Appcast is the embedded reference agent: it polls a JSON feed,
// compares semantic versions, downloads newer packages into a staging
// directory with progress reporting, verifies ed25519 signatures, and
// persists its bookkeeping atomically.
//
// Spool adapts an out-of-process updater: a helper process drops JSON
// event files into a spool directory, and the Spool translates them
// into the same callback surface.
package agent
