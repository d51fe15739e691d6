package node

import "sort"

// Direction identifies which side of a node a Port belongs to.
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
)

func (d Direction) String() string {
	if d == DirectionOutput {
		return "output"
	}
	return "input"
}

// MixFlags are capability bits on a Port.
type MixFlags uint32

const (
	// MixFlagMulti marks a port that may be reused by multiple links.
	MixFlagMulti MixFlags = 1 << iota
)

// PortState is the lifecycle of a single port, independent of the owning
// node's state machine.
type PortState int

const (
	PortStateConfigure PortState = iota
	PortStateReady
	PortStatePaused
	PortStateStreaming
)

func (s PortState) String() string {
	switch s {
	case PortStateConfigure:
		return "configure"
	case PortStateReady:
		return "ready"
	case PortStatePaused:
		return "paused"
	case PortStateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Link is the runtime's view of a port-to-port connection. The concrete
// implementation belongs to the graph executor; a Node only ever needs to
// activate/deactivate links and track port occupancy through it.
type Link interface {
	Activate() error
	Deactivate() error
	SetPortState(PortState)

	// PeerPortID returns the port id the peer node (the node on the other
	// end of this link, not n) knows this link by. reuse_buffer must be
	// forwarded using the peer's own port id, not the local port's id
	// (spec.md §4.4).
	PeerPortID() uint32

	// ReuseBuffer forwards a buffer recycle request to the peer node that
	// owns the other end of this link, addressed by the peer's own port id.
	ReuseBuffer(peerPortID, bufferID uint32) error
}

// Port is a typed input or output of a node, identified by direction plus a
// small dense integer id. Port is referenced by spec.md §3 but not fully
// specified; this is the minimal surface the node core needs to own a port
// table and reconcile it against an implementation's reported id set.
type Port struct {
	Direction Direction
	ID        uint32
	MixFlags  MixFlags
	State     PortState
	Links     []Link
	Format    []byte
}

func newPort(dir Direction, id uint32) *Port {
	return &Port{Direction: dir, ID: id, State: PortStateConfigure}
}

// clearFormat drops the negotiated format and forces the port back to
// CONFIGURE, as required by the Suspend command (spec.md §4.2, §6).
func (p *Port) clearFormat() {
	p.Format = nil
	p.State = PortStateConfigure
}

func (p *Port) activateLinks() error {
	var firstErr error
	for _, l := range p.Links {
		if err := l.Activate(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (p *Port) deactivateLinks() error {
	var firstErr error
	for _, l := range p.Links {
		if err := l.Deactivate(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// portTable is the per-direction port map plus an ordered list for
// traversal (spec.md §2, "Port table" component).
type portTable struct {
	dir   Direction
	ports []*Port          // ordered for traversal
	byID  map[uint32]*Port // port_id -> port
}

func newPortTable(dir Direction) *portTable {
	return &portTable{dir: dir, byID: make(map[uint32]*Port)}
}

func (t *portTable) add(p *Port) {
	t.ports = append(t.ports, p)
	t.byID[p.ID] = p
}

func (t *portTable) removeID(id uint32) *Port {
	p, ok := t.byID[id]
	if !ok {
		return nil
	}
	delete(t.byID, id)
	for i, existing := range t.ports {
		if existing.ID == id {
			t.ports = append(t.ports[:i], t.ports[i+1:]...)
			break
		}
	}
	return p
}

func (t *portTable) get(id uint32) (*Port, bool) {
	p, ok := t.byID[id]
	return p, ok
}

func (t *portTable) len() int { return len(t.ports) }

// PortFactory constructs a new Port for the given direction/id. Creation
// may fail (e.g. the implementation rejects the id); on failure the
// reconciliation continues with the next id (spec.md §4.1).
type PortFactory func(dir Direction, id uint32) (*Port, error)

func defaultPortFactory(dir Direction, id uint32) (*Port, error) {
	return newPort(dir, id), nil
}

// reconcilePorts implements spec.md §4.1's two-pointer merge: given the
// implementation's current sorted, duplicate-free list of reported ids for
// a direction, bring table in line with it without destroying ports whose
// id is still present. Reports which ids were created and destroyed, for
// change_mask / metrics purposes.
func reconcilePorts(table *portTable, reportedIDs []uint32, factory PortFactory, onCreateFail func(id uint32, err error), onSkip func(id uint32)) (created, destroyed []uint32) {
	if factory == nil {
		factory = defaultPortFactory
	}

	// Reject a non-ascending reported list defensively (see SPEC_FULL.md,
	// "Port reconciliation edge case"): skip ids that are not strictly
	// increasing instead of risking map corruption.
	ids := make([]uint32, 0, len(reportedIDs))
	var last uint32
	for i, id := range reportedIDs {
		if i > 0 && id <= last {
			if onSkip != nil {
				onSkip(id)
			}
			continue
		}
		ids = append(ids, id)
		last = id
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	// os is the current size of the id-space we know about: the highest
	// id any live port occupies, plus one. We walk o across [0, os) and
	// compare against ids[n].
	os := uint32(0)
	for _, p := range table.ports {
		if p.ID+1 > os {
			os = p.ID + 1
		}
	}

	var o uint32
	n := 0
	for o < os || n < len(ids) {
		switch {
		case n < len(ids) && ids[n] == o:
			// Reported id lines up with the current slot. Per the open
			// question in SPEC_FULL.md, a positional match does not
			// guarantee a live port actually occupies this slot (e.g. a
			// previously destroyed id leaves a gap); only treat it as
			// unchanged if a port is actually present, otherwise create it.
			if _, ok := table.get(o); !ok {
				p, err := factory(table.dir, o)
				if err != nil {
					if onCreateFail != nil {
						onCreateFail(o, err)
					}
				} else {
					table.add(p)
					created = append(created, o)
				}
			}
			o++
			n++

		case n < len(ids) && ids[n] < o:
			// Already accounted for by a prior create that skipped o
			// past it; nothing further to do for this id.
			n++

		case o < os:
			// o is not (or no longer) in ids: destroy it, if present.
			if _, ok := table.get(o); ok {
				table.removeID(o)
				destroyed = append(destroyed, o)
			}
			o++

		default:
			// o >= os: ids[n] names a port beyond the current space.
			id := ids[n]
			if _, ok := table.get(id); !ok {
				p, err := factory(table.dir, id)
				if err != nil {
					if onCreateFail != nil {
						onCreateFail(id, err)
					}
				} else {
					table.add(p)
					created = append(created, id)
				}
			}
			os = id + 1
			o = id + 1
			n++
		}
	}

	return created, destroyed
}
