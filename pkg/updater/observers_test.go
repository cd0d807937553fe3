package updater

import (
	"testing"

	"github.com/quartzbrowser/updatekit/pkg/status"
)

func TestObserverList_AddRemove(t *testing.T) {
	var l observerList

	if got := l.len(); got != 0 {
		t.Errorf("len() = %d, want 0", got)
	}

	h1 := l.add(Hooks{})
	h2 := l.add(Hooks{})
	if h1 == h2 {
		t.Error("add() returned duplicate handles")
	}
	if got := l.len(); got != 2 {
		t.Errorf("len() = %d, want 2", got)
	}

	l.remove(h1)
	if got := l.len(); got != 1 {
		t.Errorf("len() after remove = %d, want 1", got)
	}

	// Removing an unknown or already removed handle is a no-op.
	l.remove(h1)
	l.remove(Handle(999))
	if got := l.len(); got != 1 {
		t.Errorf("len() after duplicate remove = %d, want 1", got)
	}
}

func TestObserverList_EachInRegistrationOrder(t *testing.T) {
	var l observerList
	var seen []int

	for i := 0; i < 3; i++ {
		i := i
		l.add(Hooks{StatusChanged: func(status.Status) { seen = append(seen, i) }})
	}

	l.each(func(h Hooks) { h.StatusChanged(status.Status{}) })

	if len(seen) != 3 || seen[0] != 0 || seen[1] != 1 || seen[2] != 2 {
		t.Errorf("notification order = %v, want [0 1 2]", seen)
	}
}

func TestObserverList_RemovePeerMidRound(t *testing.T) {
	var l observerList
	var lastSeen int

	var last Handle
	l.add(Hooks{StatusChanged: func(status.Status) { l.remove(last) }})
	last = l.add(Hooks{StatusChanged: func(status.Status) { lastSeen++ }})

	l.each(func(h Hooks) { h.StatusChanged(status.Status{}) })

	if lastSeen != 0 {
		t.Errorf("observer removed mid-round was still notified %d times", lastSeen)
	}
	if got := l.len(); got != 1 {
		t.Errorf("len() = %d, want 1", got)
	}
}
