// Package rt defines the contracts of the real-time primitives a Node is
// coordinated through: the data-loop, the work queue, and the graph that a
// driver node schedules. None of these are implemented here — spec.md §1
// scopes them as external collaborators ("contract only"); this package
// exists so node.Node has something concrete to depend on and so tests can
// supply fakes that satisfy the same interfaces the real executor would.
package rt

import "sync/atomic"

// DataLoop is a thread-confined single-threaded executor. Invoke either
// runs fn inline, if the caller is already running on the loop's thread, or
// enqueues it to run later on that thread. Invocations from a single caller
// thread are guaranteed to execute in submission order.
type DataLoop interface {
	Invoke(fn func())
	OnDataLoop() bool
}

// WorkQueue defers completion of asynchronous node operations, keyed by a
// sequence number the implementation echoes back in its done callback.
// Entries for a destroyed node are dropped by Close, never delivered late.
type WorkQueue interface {
	// Enqueue registers onComplete to run when Complete(seq, ...) is called.
	Enqueue(seq uint32, onComplete func(res int))
	// Complete delivers a pending completion. It reports false if seq was
	// never enqueued or was already completed/cancelled.
	Complete(seq uint32, res int) bool
	// Cancel drops a pending entry without invoking it.
	Cancel(seq uint32)
	// Close drops every pending entry, undelivered.
	Close()
}

// GraphNode is the minimal identity a node's real-time root presents to a
// Graph. The concrete per-sample DSP traversal lives in the graph executor,
// out of scope here (spec.md §1).
type GraphNode interface {
	GraphNodeID() uint32
}

// Graph is a directed set of graph-nodes with ports; a driver-graph is one
// Graph instance per driver, shared by every node that driver schedules.
type Graph interface {
	AddNode(n GraphNode)
	RemoveNode(n GraphNode)
	Trigger(n GraphNode)
	Run()
	Nodes() []GraphNode
}

// Clock is an optional external clock a driver node may have attached. When
// nil, the driver cycle falls back to a monotonic read (spec.md §4.4).
type Clock interface {
	Now() (nsec uint64, rate uint32, position uint64, delay int64)
}

// Activation is the status word / pending counter shared with the graph
// executor. The executor writes Status; the driver process callback reads
// it. Pending is decremented by the executor as peers finish their cycle.
type Activation struct {
	Status  int32
	Pending int32
}

func (a *Activation) LoadStatus() int32   { return atomic.LoadInt32(&a.Status) }
func (a *Activation) StorePending(v int32) { atomic.StoreInt32(&a.Pending, v) }
func (a *Activation) LoadPending() int32   { return atomic.LoadInt32(&a.Pending) }

// Quantum carries a driver cycle's clock snapshot. It is written only by
// the driver node's process callback and read by scheduled peers.
type Quantum struct {
	NSec     uint64
	Rate     uint32
	Position uint64
	Delay    int64
	Size     uint64
}

// View is the real-time-only projection of a node's state (spec.md §3
// "rt"). Every field here is mutated exclusively on the data-loop; no
// other thread may write through this struct.
type View struct {
	Root       GraphNode
	Node       GraphNode
	Driver     Graph
	Activation *Activation
	Quantum    Quantum
	Clock      Clock
}
