package testhelpers

import (
	"sync"

	"github.com/cpchain-network/media-node/node"
)

// FakeLink is a minimal node.Link: it records activate/deactivate/state
// calls so tests can assert on link lifecycle without a real graph.
type FakeLink struct {
	mu sync.Mutex

	Activations   int
	Deactivations int
	States        []node.PortState

	ActivateErr   error
	DeactivateErr error

	// Peer is the port id this link reports as the peer's own port id,
	// distinct from the local port id it's attached under.
	Peer uint32

	ReuseBufferCalls []ReuseBufferCall
	ReuseBufferErr   error
}

// ReuseBufferCall records a single forwarded reuse_buffer request.
type ReuseBufferCall struct {
	PeerPortID uint32
	BufferID   uint32
}

func (l *FakeLink) Activate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Activations++
	return l.ActivateErr
}

func (l *FakeLink) Deactivate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Deactivations++
	return l.DeactivateErr
}

func (l *FakeLink) SetPortState(s node.PortState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.States = append(l.States, s)
}

func (l *FakeLink) PeerPortID() uint32 { return l.Peer }

func (l *FakeLink) ReuseBuffer(peerPortID, bufferID uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ReuseBufferCalls = append(l.ReuseBufferCalls, ReuseBufferCall{PeerPortID: peerPortID, BufferID: bufferID})
	return l.ReuseBufferErr
}
