// Package host defines the contract updatekit consumes from the
// embedding application: the closeability predicate and termination
// primitive used in the shutdown handshake, and the update-ready
// indicator activated once a verified update is staged.
package host
