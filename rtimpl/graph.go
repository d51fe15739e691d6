package rtimpl

import "github.com/cpchain-network/media-node/node/rt"

// Graph is the production rt.Graph: it tracks driver-graph membership for
// metrics/inspection purposes. The per-sample DSP traversal a real graph
// executor performs is out of scope (spec.md §1); Run and Trigger are
// hooks a concrete executor overrides by embedding Graph and shadowing
// them, or by supplying its own rt.Graph entirely.
type Graph struct {
	nodes map[uint32]rt.GraphNode
}

func NewGraph() *Graph {
	return &Graph{nodes: make(map[uint32]rt.GraphNode)}
}

func (g *Graph) AddNode(n rt.GraphNode)    { g.nodes[n.GraphNodeID()] = n }
func (g *Graph) RemoveNode(n rt.GraphNode) { delete(g.nodes, n.GraphNodeID()) }
func (g *Graph) Trigger(n rt.GraphNode)    {}
func (g *Graph) Run()                      {}

func (g *Graph) Nodes() []rt.GraphNode {
	out := make([]rt.GraphNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}
