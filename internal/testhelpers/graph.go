package testhelpers

import (
	"sort"
	"sync"

	"github.com/cpchain-network/media-node/node/rt"
)

// FakeGraph is a minimal rt.Graph: an ordered set of node ids, with Run
// recording how many times it was invoked.
type FakeGraph struct {
	mu    sync.Mutex
	nodes map[uint32]rt.GraphNode
	Runs  int
}

func NewFakeGraph() *FakeGraph {
	return &FakeGraph{nodes: make(map[uint32]rt.GraphNode)}
}

func (g *FakeGraph) AddNode(n rt.GraphNode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[n.GraphNodeID()] = n
}

func (g *FakeGraph) RemoveNode(n rt.GraphNode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.nodes, n.GraphNodeID())
}

func (g *FakeGraph) Trigger(n rt.GraphNode) {}

func (g *FakeGraph) Run() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Runs++
}

func (g *FakeGraph) Nodes() []rt.GraphNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]rt.GraphNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GraphNodeID() < out[j].GraphNodeID() })
	return out
}

// Has reports whether id is currently a member of the graph.
func (g *FakeGraph) Has(id uint32) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.nodes[id]
	return ok
}
