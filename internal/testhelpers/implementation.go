package testhelpers

import (
	"sync"
	"sync/atomic"

	"github.com/cpchain-network/media-node/node"
)

// FakeImplementation is a controllable stand-in for node.Implementation,
// in the spirit of cp-service/testutils.RPCErrFaker: every command is
// recorded and a test can script per-call results before asserting on
// node-level behavior.
type FakeImplementation struct {
	mu sync.Mutex

	seq uint32

	Commands []CommandCall

	NIn, MaxIn, NOut, MaxOut uint32
	InIDs, OutIDs            []uint32

	Props node.Properties

	// CommandResult, if set, determines the (seq, err) SendCommand
	// returns for every call while it is set; otherwise SendCommand
	// returns an incrementing seq and no error.
	CommandResult func(cmd node.Command) (seq uint32, err error)

	EnumFn func(paramID, index uint32, filter node.ParamFilter, buf []byte) (n int, next uint32, ok bool, err error)
}

type CommandCall struct {
	Cmd node.Command
	Seq uint32
}

func NewFakeImplementation() *FakeImplementation {
	return &FakeImplementation{Props: node.Properties{}}
}

func (f *FakeImplementation) SendCommand(cmd node.Command) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CommandResult != nil {
		seq, err := f.CommandResult(cmd)
		f.Commands = append(f.Commands, CommandCall{Cmd: cmd, Seq: seq})
		return seq, err
	}

	seq := atomic.AddUint32(&f.seq, 1)
	f.Commands = append(f.Commands, CommandCall{Cmd: cmd, Seq: seq})
	return seq, nil
}

func (f *FakeImplementation) PortCounts() (nIn, maxIn, nOut, maxOut uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.NIn, f.MaxIn, f.NOut, f.MaxOut
}

func (f *FakeImplementation) PortIDs() (inIDs, outIDs []uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint32(nil), f.InIDs...), append([]uint32(nil), f.OutIDs...)
}

func (f *FakeImplementation) EnumParam(paramID uint32, index uint32, filter node.ParamFilter, buf []byte) (int, uint32, bool, error) {
	if f.EnumFn == nil {
		return 0, index, false, nil
	}
	return f.EnumFn(paramID, index, filter, buf)
}

func (f *FakeImplementation) InitialProperties() node.Properties {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(node.Properties, len(f.Props))
	for k, v := range f.Props {
		out[k] = v
	}
	return out
}

// SetPortIDs updates the reported port id lists for the next
// ReconcilePorts call.
func (f *FakeImplementation) SetPortIDs(in, out []uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InIDs = in
	f.OutIDs = out
}

// CommandCount returns how many times cmd has been sent.
func (f *FakeImplementation) CommandCount(cmd node.Command) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Commands {
		if c.Cmd == cmd {
			n++
		}
	}
	return n
}
