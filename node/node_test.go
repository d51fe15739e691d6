package node

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpchain-network/media-node/internal/testhelpers"
)

func newRegisterableNode(t *testing.T, name string) (*Node, *testhelpers.FakeImplementation) {
	t.Helper()
	impl := testhelpers.NewFakeImplementation()
	n, err := New(Config{
		Name:      name,
		Impl:      impl,
		DataLoop:  &testhelpers.SyncDataLoop{},
		WorkQueue: testhelpers.NewFakeWorkQueue(),
	})
	require.NoError(t, err)
	return n, impl
}

func TestNew_RequiresImplementationAndLoop(t *testing.T) {
	_, err := New(Config{Name: "x"})
	require.Error(t, err)

	_, err = New(Config{Name: "", Impl: testhelpers.NewFakeImplementation(), DataLoop: &testhelpers.SyncDataLoop{}, WorkQueue: testhelpers.NewFakeWorkQueue()})
	require.Error(t, err)
}

func TestNew_DefaultsToSelfDrivingWithGeneratedSession(t *testing.T) {
	n, _ := newRegisterableNode(t, "n1")

	require.Equal(t, n, n.DriverNode())
	require.NotEmpty(t, n.properties[PropSession])
	require.Equal(t, StateCreating, n.State())
}

func TestRegistry_RegisterAssignsIDAndMovesToSuspended(t *testing.T) {
	r := NewRegistry()
	n, _ := newRegisterableNode(t, "n1")

	require.NoError(t, r.Register(n))
	require.NotZero(t, n.ID())
	require.Equal(t, StateSuspended, n.State())

	found, ok := r.Lookup(n.ID())
	require.True(t, ok)
	require.Equal(t, n, found)
}

func TestRegistry_RegisterPublishesPortsAndMirrorsNameID(t *testing.T) {
	r := NewRegistry()
	n, impl := newRegisterableNode(t, "n1")
	impl.SetPortIDs([]uint32{0, 1}, []uint32{0})

	require.NoError(t, r.Register(n))

	info := n.Info()
	require.Equal(t, uint32(2), info.NInputPorts)
	require.Equal(t, uint32(1), info.NOutputPorts)
	require.Equal(t, "n1", info.Props[PropName])
	require.Equal(t, fmt.Sprint(n.ID()), info.Props[PropID])
}

func TestRegistry_DoubleRegisterFails(t *testing.T) {
	r := NewRegistry()
	n, _ := newRegisterableNode(t, "n1")
	require.NoError(t, r.Register(n))

	err := r.Register(n)
	require.Error(t, err)
	var nodeErr *Error
	require.ErrorAs(t, err, &nodeErr)
	require.Equal(t, ErrKindAlreadyExists, nodeErr.Kind)
}

func TestRegistry_AssignsDistinctIDs(t *testing.T) {
	r := NewRegistry()
	n1, _ := newRegisterableNode(t, "n1")
	n2, _ := newRegisterableNode(t, "n2")

	require.NoError(t, r.Register(n1))
	require.NoError(t, r.Register(n2))
	require.NotEqual(t, n1.ID(), n2.ID())
}

func TestNode_DestroyUnregisters(t *testing.T) {
	r := NewRegistry()
	n, _ := newRegisterableNode(t, "n1")
	require.NoError(t, r.Register(n))
	id := n.ID()

	require.NoError(t, n.Destroy(context.Background()))

	_, ok := r.Lookup(id)
	require.False(t, ok)
}

func TestNode_DestroyEjectsDrivenNodesToThemselves(t *testing.T) {
	a, _ := newRegisterableNode(t, "driver")
	b, _ := newRegisterableNode(t, "driven")
	require.NoError(t, b.SetDriver(context.Background(), a))
	require.Equal(t, a, b.DriverNode())

	require.NoError(t, a.Destroy(context.Background()))

	require.Equal(t, b, b.DriverNode())
}

type fakeResource struct {
	pushes []Info
}

func (f *fakeResource) PushInfo(info Info) { f.pushes = append(f.pushes, info) }

func TestBindResource_PushesCurrentInfoImmediately(t *testing.T) {
	n, _ := newRegisterableNode(t, "n1")
	res := &fakeResource{}

	n.BindResource(res)

	require.Len(t, res.pushes, 1)
	require.Equal(t, n.Name(), res.pushes[0].Name)
}

func TestUnbindResource_StopsFurtherPushes(t *testing.T) {
	n, _ := newRegisterableNode(t, "n1")
	res := &fakeResource{}
	n.BindResource(res)
	n.UnbindResource(res)

	n.UpdateProperties(Properties{PropMediaClass: "Audio/Sink"})

	require.Len(t, res.pushes, 1) // only the initial bind push
}

func TestUpdateProperties_MirrorsKeysAndFlipsDerivedFields(t *testing.T) {
	n, _ := newRegisterableNode(t, "n1")

	n.UpdateProperties(Properties{
		PropPauseOnIdle: "false",
		PropDriver:      "true",
		PropMediaClass:  "Stream/Input/Audio",
	})

	require.False(t, n.pauseOnIdle)
	require.True(t, n.IsDriver())
	require.Equal(t, "Stream/Input/Audio", n.Info().Props[PropMediaClass])
}

func TestListenerHandle_RemoveStopsFurtherDelivery(t *testing.T) {
	n, _ := newRegisterableNode(t, "n1")
	var count int
	var handle *ListenerHandle
	handle = n.AddListener(ListenerFunc(func(n *Node, evt Event) {
		count++
		handle.Remove()
	}))

	n.listeners.emit(n, EventGeneric{})
	n.listeners.emit(n, EventGeneric{})

	require.Equal(t, 1, count)
}

func TestForEachParam_StopsWhenImplementationReportsDone(t *testing.T) {
	n, impl := newRegisterableNode(t, "n1")
	calls := 0
	impl.EnumFn = func(paramID, index uint32, filter ParamFilter, buf []byte) (int, uint32, bool, error) {
		if index >= 2 {
			return 0, index, false, nil
		}
		buf[0] = byte(index)
		return 1, index + 1, true, nil
	}

	var seen []byte
	err := n.ForEachParam(0, 0, 0, nil, func(buf []byte) int {
		calls++
		seen = append(seen, buf...)
		return 0
	})

	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, []byte{0, 1}, seen)
}

func TestReconcilePorts_UpdatesInfoCounts(t *testing.T) {
	n, impl := newRegisterableNode(t, "n1")
	impl.SetPortIDs([]uint32{0, 1}, []uint32{0})

	n.ReconcilePorts()

	info := n.Info()
	require.Equal(t, uint32(2), info.NInputPorts)
	require.Equal(t, uint32(1), info.NOutputPorts)
	require.Len(t, n.Ports(DirectionInput), 2)
	require.Len(t, n.Ports(DirectionOutput), 1)
}

func TestReconcilePorts_MaxPortsTracksDecreaseAsWellAsIncrease(t *testing.T) {
	n, impl := newRegisterableNode(t, "n1")
	impl.MaxIn, impl.MaxOut = 4, 4
	n.ReconcilePorts()
	require.Equal(t, uint32(4), n.Info().MaxInputPorts)
	require.Equal(t, uint32(4), n.Info().MaxOutputPorts)

	impl.MaxIn, impl.MaxOut = 2, 1
	n.ReconcilePorts()

	info := n.Info()
	require.Equal(t, uint32(2), info.MaxInputPorts)
	require.Equal(t, uint32(1), info.MaxOutputPorts)
}
