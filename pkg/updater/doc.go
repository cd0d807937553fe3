// Package updater orchestrates auto-update checking for a desktop
// host application.
//
// The update agent runs on goroutines the application does not
// control and reports through callbacks. The Orchestrator translates
// those callbacks into a well-defined status state machine, serializes
// every observable transition onto the host's run loop, exposes the
// shutdown negotiation the agent needs before installing, and degrades
// to an observable Error status when the agent is unavailable.
//
// # Usage
//
//	loop := runloop.New()
//	orch := updater.New(loop, updater.Config{CurrentVersion: version},
//	    updater.WithLogger(logger),
//	    updater.WithHost(myHost),
//	)
//
//	loop.Post(orch.Initialize)
//	go loop.Run(ctx)
//
// Observers register capability-style hooks and are always notified on
// the run loop:
//
//	handle := orch.AddObserver(updater.Hooks{
//	    StatusChanged: func(s status.Status) { ... },
//	    Progress:      func(percent int) { ... },
//	})
package updater
