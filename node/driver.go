package node

import (
	"context"
	"time"

	"github.com/cpchain-network/media-node/node/rt"
)

// SetDriver reassigns n to newDriver's driver group (spec.md §4.3).
// newDriver == nil means "own driver". The non-real-time bookkeeping
// (driverList / driverNode) is updated synchronously; the real-time graph
// mutation is deferred onto the data-loop so it never races the process
// callback.
func (n *Node) SetDriver(ctx context.Context, newDriver *Node) error {
	if newDriver == nil {
		newDriver = n
	}

	n.mu.Lock()
	if newDriver == n.driverNode {
		n.mu.Unlock()
		return nil
	}
	oldDriver := n.driverNode
	n.mu.Unlock()

	// Move n itself from oldDriver's list to newDriver's list; the group n
	// currently drives follows below.
	oldDriver.removeFromDriverList(n)
	newDriver.addToDriverList(n)
	n.mu.Lock()
	n.driverNode = newDriver
	group := make([]*Node, len(n.driverList))
	copy(group, n.driverList)
	n.mu.Unlock()

	movedChanged := []*Node{n}
	for _, d := range group {
		if d == n {
			continue
		}
		// d's current driver is n itself (it was a member of the group n
		// heads), not oldDriver, so it leaves n's list and joins newDriver's.
		n.removeFromDriverList(d)
		newDriver.addToDriverList(d)
		d.mu.Lock()
		d.driverNode = newDriver
		d.mu.Unlock()
		movedChanged = append(movedChanged, d)
	}

	n.rewireRealTime(oldDriver, newDriver, group)

	for _, d := range movedChanged {
		d.listeners.emit(d, EventDriverChanged{NewDriver: newDriver})
	}
	return nil
}

func (n *Node) addToDriverList(member *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, d := range n.driverList {
		if d == member {
			return
		}
	}
	n.driverList = append(n.driverList, member)
}

func (n *Node) removeFromDriverList(member *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, d := range n.driverList {
		if d == member {
			n.driverList = append(n.driverList[:i], n.driverList[i+1:]...)
			return
		}
	}
}

// DriverList returns a snapshot of the nodes this node currently drives.
func (n *Node) DriverList() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Node, len(n.driverList))
	copy(out, n.driverList)
	return out
}

// rewireRealTime posts the deferred real-time rewire described in
// spec.md §4.3 step 4: detach n's rt.root from its current driver-graph
// and attach it (and the rest of the moved group) to newDriver's
// driver-graph. This runs entirely on the data-loop.
func (n *Node) rewireRealTime(oldDriver, newDriver *Node, group []*Node) {
	done := make(chan struct{})
	n.dataLoop.Invoke(func() {
		defer close(done)

		srcGraph := n.rtView.Driver
		dstGraph := newDriver.rtView.Driver

		if srcGraph != nil && n.rtView.Root != nil {
			srcGraph.RemoveNode(n.rtView.Root)
		}
		if dstGraph != nil && n.rtView.Root != nil {
			dstGraph.AddNode(n.rtView.Root)
		}
		n.rtView.Driver = dstGraph

		for _, d := range group {
			if d == n {
				continue
			}
			if srcGraph != nil && d.rtView.Root != nil {
				srcGraph.RemoveNode(d.rtView.Root)
			}
			if dstGraph != nil && d.rtView.Root != nil {
				dstGraph.AddNode(d.rtView.Root)
			}
			d.rtView.Driver = dstGraph
		}
	})
	<-done
}

// AttachDriverGraph is called once, when newDriver first heads its own
// group, to give it the driver-graph its schedulees graft into. Out of
// scope in spec.md (the graph executor owns graph construction); provided
// here so tests and a real wiring layer have somewhere to plug a rt.Graph
// in.
func (n *Node) AttachDriverGraph(g rt.Graph) {
	done := make(chan struct{})
	n.dataLoop.Invoke(func() {
		n.rtView.Driver = g
		if n.rtView.Root != nil {
			g.AddNode(n.rtView.Root)
		}
		close(done)
	})
	<-done
}

// AttachClock attaches an external clock this driver stamps the quantum
// from (spec.md §4.4).
func (n *Node) AttachClock(c rt.Clock) {
	done := make(chan struct{})
	n.dataLoop.Invoke(func() {
		n.rtView.Clock = c
		close(done)
	})
	<-done
}

// SetQuantumSize sets the per-cycle sample count the driver advances
// next_position by.
func (n *Node) SetQuantumSize(size uint64) {
	done := make(chan struct{})
	n.dataLoop.Invoke(func() {
		n.rtView.Quantum.Size = size
		close(done)
	})
	<-done
}

// Process is the process callback, triggered by the implementation on the
// real-time thread (spec.md §4.4). It must not allocate beyond what's
// already here, must not block, and must not call arbitrary listeners —
// only rt.Graph.Trigger/Run.
func (n *Node) Process(status int32) {
	n.dataLoop.Invoke(func() {
		if n.metrics != nil {
			n.metrics.DriverCycles.WithLabelValues(n.name).Inc()
		}
		if n.isDriver {
			pending := n.rtView.Activation.LoadPending()
			if pending == 0 || !n.remote {
				n.stampQuantum()
				if n.rtView.Driver != nil {
					n.rtView.Driver.Run()
				}
			} else if n.rtView.Driver != nil {
				n.rtView.Driver.Trigger(n.rtView.Node)
			}
		} else if n.rtView.Driver != nil {
			n.rtView.Driver.Trigger(n.rtView.Node)
		}
	})
}

func (n *Node) stampQuantum() {
	q := &n.rtView.Quantum
	if n.rtView.Clock != nil {
		nsec, rate, position, delay := n.rtView.Clock.Now()
		q.NSec, q.Rate, q.Position, q.Delay = nsec, rate, position, delay
	} else {
		q.NSec = uint64(time.Now().UnixNano())
		q.Position = n.nextPosition
		q.Delay = 0
	}
	n.nextPosition += q.Size
}

// ReuseBuffer forwards a buffer recycle request from an input port to the
// peer that owns it, addressed by the peer's own port id rather than n's
// local port id (spec.md §4.4).
func (n *Node) ReuseBuffer(portID uint32, bufferID uint32) {
	n.dataLoop.Invoke(func() {
		n.mu.Lock()
		p, ok := n.inputPorts.get(portID)
		n.mu.Unlock()
		if !ok {
			return
		}
		for _, l := range p.Links {
			if err := l.ReuseBuffer(l.PeerPortID(), bufferID); err != nil {
				n.log.Warn("reuse_buffer forward failed", "node", n.name, "port", portID, "err", err)
			}
		}
	})
}

// Event is part of the Callbacks interface: forwards an opaque
// implementation event to listeners (spec.md §6 "event(e)").
func (n *Node) Event(evt any) {
	n.listeners.emit(n, EventGeneric{Payload: evt})
}

// Finish emits the per-driver-cycle finish event (spec.md §6).
func (n *Node) Finish() {
	n.listeners.emit(n, EventFinish{})
}
