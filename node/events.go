package node

import (
	"sync"
	"sync/atomic"
)

// Event is the tagged union of everything a Node emits (spec.md §6
// "Events emitted by a node"). Modeled on the teacher repo's
// event.Deriver/event.DeriverFunc pattern (cp-node/rollup/driver/driver.go,
// cp-node/node/node.go's event.System) rather than one method per event:
// a single Listener method keeps registration cheap and lets callers
// switch on concrete types only for the events they care about.
type Event interface{ isNodeEvent() }

type (
	EventInitialized   struct{}
	EventInfoChanged   struct{ Info Info }
	EventStateRequest  struct{ Target State }
	EventStateChanged  struct {
		Old, New State
		Err      error
	}
	EventActiveChanged  struct{ Active bool }
	EventEnabledChanged struct{ Enabled bool }
	EventAsyncComplete  struct {
		Seq uint32
		Res int
	}
	// EventGeneric forwards an opaque implementation event (spec.md §6
	// "event(e)"); the payload's shape belongs to the implementation.
	EventGeneric       struct{ Payload any }
	EventProcess       struct{}
	EventDriverChanged struct{ NewDriver *Node }
	EventFinish        struct{}
	EventDestroy       struct{}
	EventFree          struct{}
)

func (EventInitialized) isNodeEvent()   {}
func (EventInfoChanged) isNodeEvent()   {}
func (EventStateRequest) isNodeEvent()  {}
func (EventStateChanged) isNodeEvent()  {}
func (EventActiveChanged) isNodeEvent()  {}
func (EventEnabledChanged) isNodeEvent() {}
func (EventAsyncComplete) isNodeEvent() {}
func (EventGeneric) isNodeEvent()       {}
func (EventProcess) isNodeEvent()       {}
func (EventDriverChanged) isNodeEvent() {}
func (EventFinish) isNodeEvent()        {}
func (EventDestroy) isNodeEvent()       {}
func (EventFree) isNodeEvent()          {}

// Listener receives every event a Node emits.
type Listener interface {
	OnNodeEvent(n *Node, evt Event)
}

// ListenerFunc adapts a plain function to a Listener, the way the teacher
// repo's event.DeriverFunc adapts a method to event.Deriver.
type ListenerFunc func(n *Node, evt Event)

func (f ListenerFunc) OnNodeEvent(n *Node, evt Event) { f(n, evt) }

// ListenerHandle lets a caller remove its own listener, including from
// inside the listener's own callback (spec.md §5 "Ordering": re-entrant
// mutation from within a listener is permitted but must not invalidate the
// currently-iterated list).
type ListenerHandle struct {
	entry *listenerEntry
}

func (h *ListenerHandle) Remove() {
	if h == nil || h.entry == nil {
		return
	}
	h.entry.removed.Store(true)
}

type listenerEntry struct {
	l       Listener
	removed atomic.Bool
}

// listenerList is a tombstone-safe list: iteration copies the entry slice
// under the lock (safe against concurrent append) and skips removed
// entries, so a listener may remove itself (or another) mid-iteration
// without corrupting the walk (spec.md §9 "Callback registration").
type listenerList struct {
	mu      sync.Mutex
	entries []*listenerEntry
}

func (ll *listenerList) add(l Listener) *ListenerHandle {
	e := &listenerEntry{l: l}
	ll.mu.Lock()
	ll.entries = append(ll.entries, e)
	ll.mu.Unlock()
	return &ListenerHandle{entry: e}
}

func (ll *listenerList) emit(n *Node, evt Event) {
	ll.mu.Lock()
	snapshot := make([]*listenerEntry, len(ll.entries))
	copy(snapshot, ll.entries)
	ll.mu.Unlock()

	for _, e := range snapshot {
		if e.removed.Load() {
			continue
		}
		e.l.OnNodeEvent(n, evt)
	}

	ll.compact()
}

// compact drops removed entries after every emit so the slice does not
// grow unbounded across a long-lived node's lifetime.
func (ll *listenerList) compact() {
	ll.mu.Lock()
	defer ll.mu.Unlock()
	live := ll.entries[:0]
	for _, e := range ll.entries {
		if !e.removed.Load() {
			live = append(live, e)
		}
	}
	ll.entries = live
}

// ResourceBinding is the thin client/resource surface a node pushes info
// snapshots to (spec.md §6 "Node-to-client"). The binding's own wire
// protocol and parameter encoding are out of scope (spec.md §1 Non-goals).
type ResourceBinding interface {
	PushInfo(info Info)
}
