// Package rtimpl provides a minimal production-grade data-loop, work
// queue, and driver-graph for wiring a node.Node outside of tests. The
// real-time primitives are contract-only in package rt (spec.md §1 scopes
// them as external collaborators); this package is the thin, single-
// process implementation cmd/medianoded links against, grounded on the
// channel-driven event loop shape of the teacher's rollup driver
// (cp-node/rollup/driver/state.go's eventLoop/stateReq pattern), adapted
// from a domain-specific derivation loop to a generic closure queue.
package rtimpl

// DataLoop serializes arbitrary closures onto a single dedicated
// goroutine. Unlike a thread-affinity-aware implementation, Invoke always
// hands fn to the worker rather than special-casing same-thread calls;
// that's a valid, if more conservative, implementation of rt.DataLoop as
// long as nothing enqueues reentrantly from inside a running closure,
// which node.Node never does.
type DataLoop struct {
	work chan func()
	done chan struct{}
}

// NewDataLoop starts the worker goroutine and returns a ready DataLoop.
// Callers must call Close when finished to stop the worker.
func NewDataLoop() *DataLoop {
	l := &DataLoop{
		work: make(chan func(), 64),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *DataLoop) run() {
	for {
		select {
		case fn := <-l.work:
			fn()
		case <-l.done:
			return
		}
	}
}

// Invoke enqueues fn to run on the worker goroutine. It does not block
// waiting for fn to complete; callers needing that block on a channel fn
// closes itself, matching node.Node's own usage.
func (l *DataLoop) Invoke(fn func()) {
	select {
	case l.work <- fn:
	case <-l.done:
	}
}

// OnDataLoop always reports false: this implementation never runs fn
// inline, so no caller is ever "already on the loop".
func (l *DataLoop) OnDataLoop() bool { return false }

// Close stops the worker goroutine. Closures still queued when Close is
// called may or may not run before the worker exits; the rest are dropped.
func (l *DataLoop) Close() {
	close(l.done)
}
