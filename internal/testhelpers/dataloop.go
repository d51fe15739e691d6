// Package testhelpers provides fakes satisfying the contracts node and
// registry depend on, in the style of cp-service/testutils's RPCErrFaker:
// a thin wrapper that lets tests control completion/failure deterministically.
package testhelpers

import "sync"

// SyncDataLoop runs every invocation inline, synchronously, on the calling
// goroutine. It satisfies rt.DataLoop for tests that don't need to
// exercise real thread-hop behavior.
type SyncDataLoop struct {
	mu sync.Mutex
}

func (d *SyncDataLoop) Invoke(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

func (d *SyncDataLoop) OnDataLoop() bool { return true }
