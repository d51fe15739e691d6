package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpchain-network/media-node/internal/testhelpers"
)

func newDriverTestNode(t *testing.T, name string) *Node {
	t.Helper()
	n, err := New(Config{
		Name:      name,
		Impl:      testhelpers.NewFakeImplementation(),
		DataLoop:  &testhelpers.SyncDataLoop{},
		WorkQueue: testhelpers.NewFakeWorkQueue(),
	})
	require.NoError(t, err)
	return n
}

// TestSetDriver_AttachAndReturn reproduces spec.md §8 scenario 2: B starts
// self-driving, is attached under A, then returned to self-driving.
func TestSetDriver_AttachAndReturn(t *testing.T) {
	a := newDriverTestNode(t, "A")
	b := newDriverTestNode(t, "B")

	require.Equal(t, b, b.DriverNode())
	require.Equal(t, []*Node{b}, b.DriverList())

	require.NoError(t, b.SetDriver(context.Background(), a))
	require.Equal(t, a, b.DriverNode())
	require.Equal(t, []*Node{a, b}, a.DriverList())
	require.Empty(t, b.DriverList())

	require.NoError(t, b.SetDriver(context.Background(), nil))
	require.Equal(t, b, b.DriverNode())
	require.Equal(t, []*Node{b}, b.DriverList())
	require.Equal(t, []*Node{a}, a.DriverList())
}

// TestSetDriver_MovesWholeGroup verifies that when a node heading its own
// group is reassigned, every node it drives migrates to the new driver
// too, leaving the old group head with an empty driver list.
func TestSetDriver_MovesWholeGroup(t *testing.T) {
	b := newDriverTestNode(t, "B") // will head a group of its own
	c := newDriverTestNode(t, "C")
	target := newDriverTestNode(t, "target")

	require.NoError(t, c.SetDriver(context.Background(), b))
	require.ElementsMatch(t, []*Node{b, c}, b.DriverList())

	var changed []string
	for _, n := range []*Node{b, c} {
		n := n
		n.AddListener(ListenerFunc(func(n *Node, evt Event) {
			if _, ok := evt.(EventDriverChanged); ok {
				changed = append(changed, n.Name())
			}
		}))
	}

	require.NoError(t, b.SetDriver(context.Background(), target))

	require.Equal(t, target, b.DriverNode())
	require.Equal(t, target, c.DriverNode())
	require.ElementsMatch(t, []*Node{target, b, c}, target.DriverList())
	require.Empty(t, b.DriverList())
	require.ElementsMatch(t, []string{"B", "C"}, changed)
}

func TestSetDriver_SameDriverIsNoOp(t *testing.T) {
	a := newDriverTestNode(t, "A")
	b := newDriverTestNode(t, "B")
	require.NoError(t, b.SetDriver(context.Background(), a))

	var changed int
	b.AddListener(ListenerFunc(func(n *Node, evt Event) {
		if _, ok := evt.(EventDriverChanged); ok {
			changed++
		}
	}))

	require.NoError(t, b.SetDriver(context.Background(), a))
	require.Equal(t, 0, changed)
}

func TestAttachDriverGraph_AddsRootToGraph(t *testing.T) {
	n := newDriverTestNode(t, "root")
	g := testhelpers.NewFakeGraph()

	n.AttachDriverGraph(g)

	require.True(t, g.Has(n.ID()))
}

// TestReuseBuffer_ForwardsPeerPortIDNotLocalPortID verifies reuse_buffer is
// forwarded using the peer's own port id, not n's local input port id
// (spec.md §4.4).
func TestReuseBuffer_ForwardsPeerPortIDNotLocalPortID(t *testing.T) {
	n := newDriverTestNode(t, "sink")
	p := newPort(DirectionInput, 7)
	link := &testhelpers.FakeLink{Peer: 42}
	p.Links = []Link{link}
	n.mu.Lock()
	n.inputPorts.add(p)
	n.mu.Unlock()

	n.ReuseBuffer(7, 99)

	require.Len(t, link.ReuseBufferCalls, 1)
	require.Equal(t, uint32(42), link.ReuseBufferCalls[0].PeerPortID)
	require.Equal(t, uint32(99), link.ReuseBufferCalls[0].BufferID)
}

func TestProcess_DriverRunsGraphWhenNoPendingActivation(t *testing.T) {
	n := newDriverTestNode(t, "driver")
	n.isDriver = true
	g := testhelpers.NewFakeGraph()
	n.AttachDriverGraph(g)

	n.Process(0)

	require.Equal(t, 1, g.Runs)
}
