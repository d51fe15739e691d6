package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpchain-network/media-node/internal/testhelpers"
)

func newTestNode(t *testing.T, impl *testhelpers.FakeImplementation) (*Node, *testhelpers.FakeWorkQueue) {
	t.Helper()
	wq := testhelpers.NewFakeWorkQueue()
	n, err := New(Config{
		Name:      "test-node",
		Impl:      impl,
		DataLoop:  &testhelpers.SyncDataLoop{},
		WorkQueue: wq,
	})
	require.NoError(t, err)
	return n, wq
}

func TestSetState_SuspendedClearsPortsImmediately(t *testing.T) {
	impl := testhelpers.NewFakeImplementation()
	n, _ := newTestNode(t, impl)
	p := newPort(DirectionInput, 0)
	p.Format = []byte{1}
	n.inputPorts.add(p)

	require.NoError(t, n.SetState(context.Background(), StateSuspended))

	require.Equal(t, StateSuspended, n.State())
	require.Nil(t, p.Format)
	require.Equal(t, PortStateConfigure, p.State)
}

func TestSetState_IdleWhenActiveTransitionsImmediately(t *testing.T) {
	// "target == IDLE -> if !active, pause" (spec.md §4.2): an already
	// active node's set_state(IDLE) takes the direct update_state path,
	// no work-queue round trip.
	impl := testhelpers.NewFakeImplementation()
	n, _ := newTestNode(t, impl)
	n.active = true

	require.NoError(t, n.SetState(context.Background(), StateIdle))

	require.Equal(t, StateIdle, n.State())
	require.Equal(t, 1, impl.CommandCount(CommandPause))
}

func TestSetState_IdleWhenInactiveDispatchesPauseThroughWorkQueue(t *testing.T) {
	impl := testhelpers.NewFakeImplementation()
	n, wq := newTestNode(t, impl)

	require.NoError(t, n.SetState(context.Background(), StateIdle))
	require.Equal(t, 1, impl.CommandCount(CommandPause))
	require.NotEqual(t, StateIdle, n.State())

	require.True(t, wq.Complete(1, 0))
	require.Equal(t, StateIdle, n.State())
	// update_state's own pause-on-idle rule fires a second, independent
	// Pause alongside the one that drove the transition.
	require.Equal(t, 2, impl.CommandCount(CommandPause))
}

func TestUpdateState_PauseOnIdle(t *testing.T) {
	// Scenario 4: update_state(IDLE) from RUNNING, pause_on_idle true ->
	// Pause issued unconditionally and links deactivated; pause_on_idle
	// false -> no Pause, deactivation still performed.
	run := func(t *testing.T, pauseOnIdle bool, wantPause int) {
		impl := testhelpers.NewFakeImplementation()
		wq := testhelpers.NewFakeWorkQueue()
		props := Properties{}
		if !pauseOnIdle {
			props[PropPauseOnIdle] = "false"
		}
		n, err := New(Config{
			Name: "test-node", Properties: props, Impl: impl,
			DataLoop: &testhelpers.SyncDataLoop{}, WorkQueue: wq,
		})
		require.NoError(t, err)
		n.info.State = StateRunning

		link := &testhelpers.FakeLink{}
		port := newPort(DirectionOutput, 0)
		port.Links = []Link{link}
		n.outputPorts.add(port)

		n.updateState(StateIdle, nil)

		require.Equal(t, wantPause, impl.CommandCount(CommandPause))
		require.Equal(t, 1, link.Deactivations)
		require.Equal(t, StateIdle, n.State())
	}

	t.Run("pause_on_idle true", func(t *testing.T) { run(t, true, 1) })
	t.Run("pause_on_idle false", func(t *testing.T) { run(t, false, 0) })
}

func TestSetState_AsyncFailureEntersErrorWithExactMessage(t *testing.T) {
	// Scenario 3: a negative async result must produce the literal
	// message "error changing node state: -5".
	impl := testhelpers.NewFakeImplementation()
	n, wq := newTestNode(t, impl)
	n.info.State = StateIdle
	n.active = true

	require.NoError(t, n.SetState(context.Background(), StateRunning))
	require.True(t, wq.Complete(1, -5))

	require.Equal(t, StateError, n.State())
	info := n.Info()
	require.Error(t, info.Error)
	require.Equal(t, "error changing node state: -5", info.Error.Error())
}

func TestSetState_RunningActivatesLinksAndDispatchesStart(t *testing.T) {
	impl := testhelpers.NewFakeImplementation()
	n, wq := newTestNode(t, impl)
	n.active = true

	link := &testhelpers.FakeLink{}
	port := newPort(DirectionOutput, 0)
	port.Links = []Link{link}
	n.outputPorts.add(port)

	require.NoError(t, n.SetState(context.Background(), StateRunning))
	require.Equal(t, 1, link.Activations)
	require.Equal(t, 1, impl.CommandCount(CommandStart))

	require.True(t, wq.Complete(1, 0))
	require.Equal(t, StateRunning, n.State())
}

func TestSetActive_DeactivatingDrivesNodeToIdle(t *testing.T) {
	impl := testhelpers.NewFakeImplementation()
	n, wq := newTestNode(t, impl)
	n.enabled = true
	n.active = true

	n.SetActive(false)

	require.False(t, n.Active())
	// An inactive node reaches IDLE through the Pause command's completion.
	require.True(t, wq.Complete(1, 0))
	require.Equal(t, StateIdle, n.State())
}

func TestSetEnabled_DisablingForcesSuspended(t *testing.T) {
	impl := testhelpers.NewFakeImplementation()
	n, _ := newTestNode(t, impl)
	n.enabled = true

	n.SetEnabled(false)

	require.False(t, n.Enabled())
	require.Equal(t, StateSuspended, n.State())
}

func TestUpdateState_NoOpWhenStateUnchanged(t *testing.T) {
	impl := testhelpers.NewFakeImplementation()
	n, _ := newTestNode(t, impl)

	var events int
	n.AddListener(ListenerFunc(func(n *Node, evt Event) {
		if _, ok := evt.(EventStateChanged); ok {
			events++
		}
	}))

	n.updateState(StateCreating, nil)
	require.Equal(t, 0, events)
}
