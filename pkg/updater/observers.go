package updater

import "github.com/quartzbrowser/updatekit/pkg/status"

// Hooks is a capability-style observer: listeners fill in only the
// slots they care about. All hooks are invoked on the run loop.
type Hooks struct {
	// StatusChanged fires on every status transition.
	StatusChanged func(s status.Status)

	// Progress fires once per whole percent while downloading, in
	// addition to StatusChanged.
	Progress func(percent int)

	// Error fires with the failure message when the pipeline enters
	// the error state, in addition to StatusChanged.
	Error func(message string)
}

// Handle identifies a registered observer.
type Handle uint64

// observerList keeps observers in registration order. Mutation and
// notification both happen on the run loop, so no locking is needed;
// notification iterates a snapshot and re-checks liveness per handle,
// so an observer removing itself (or a peer) mid-round neither corrupts
// iteration nor causes skipped or doubled deliveries.
type observerList struct {
	next  Handle
	order []Handle
	hooks map[Handle]Hooks
}

func (l *observerList) add(h Hooks) Handle {
	if l.hooks == nil {
		l.hooks = make(map[Handle]Hooks)
	}
	l.next++
	id := l.next
	l.hooks[id] = h
	l.order = append(l.order, id)
	return id
}

func (l *observerList) remove(id Handle) {
	if _, ok := l.hooks[id]; !ok {
		return
	}
	delete(l.hooks, id)
	for i, h := range l.order {
		if h == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// each invokes fn for every observer live at the time of its own turn.
func (l *observerList) each(fn func(Hooks)) {
	snapshot := make([]Handle, len(l.order))
	copy(snapshot, l.order)

	for _, id := range snapshot {
		h, ok := l.hooks[id]
		if !ok {
			// Removed during this round.
			continue
		}
		fn(h)
	}
}

func (l *observerList) len() int {
	return len(l.hooks)
}
