// Package status defines the update pipeline status model.
//
// This package holds the State enumeration and the Status value struct
// shared between the orchestrator, its observers, and host UI surfaces.
// Status values are produced only by the orchestrator's run loop; holders
// of a Status treat it as an immutable snapshot.
//
// # State Machine
//
// States are driven by agent callbacks, in arrival order:
//   - Idle -> Checking (manual check, or agent check-started)
//   - Checking -> UpdateAvailable, UpToDate, Error, Idle (cancelled)
//   - UpdateAvailable -> Downloading, Error, Idle (cancelled)
//   - Downloading -> Downloading (progress), ReadyToInstall, Error
//   - UpToDate / Error -> Checking (next check)
//
// Installing is reserved and never produced by a callback.
package status
