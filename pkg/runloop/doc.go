// Package runloop provides a serial task loop with UI-thread affinity
// semantics.
//
// The update agent invokes its callbacks on goroutines the application
// does not control. Every externally observable effect of those
// callbacks must happen on the goroutine that owns orchestrator state,
// in callback arrival order. Loop provides that guarantee: Post is safe
// from any goroutine, never blocks the poster, and preserves FIFO order;
// Run executes tasks one at a time on a single goroutine.
//
// # Usage
//
//	loop := runloop.New()
//	go loop.Run(ctx)
//
//	loop.Post(func() {
//	    // runs on the loop goroutine
//	})
//
// Embedders that already own an event loop can pump tasks themselves
// with RunUntilIdle instead of dedicating a goroutine to Run.
package runloop
