// Package node implements the media-processing node runtime: the
// lifecycle state machine, port-map reconciliation, and driver linkage
// that drives a processing implementation (decoder, mixer, device sink,
// codec, filter, ...) in lockstep with the sibling nodes a driver node
// schedules. See SPEC_FULL.md for the full specification this package
// implements.
package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/cpchain-network/media-node/metrics"
	"github.com/cpchain-network/media-node/node/rt"
)

// Node is the runtime entity described by spec.md §3. Every exported
// method not documented otherwise is main-domain only (spec.md §5); rt.*
// mutation happens exclusively through dataLoop.Invoke.
type Node struct {
	mu sync.Mutex

	log log.Logger

	id         uint32
	name       string
	properties Properties
	info       Info

	enabled    bool
	active     bool
	registered bool
	isDriver   bool
	remote     bool
	exported   bool

	pauseOnIdle bool

	driverNode *Node
	driverList []*Node

	inputPorts  *portTable
	outputPorts *portTable
	portFactory PortFactory

	impl      Implementation
	dataLoop  rt.DataLoop
	workQueue rt.WorkQueue

	rtView       rt.View
	nextPosition uint64

	listeners listenerList

	resMu     sync.Mutex
	resources []ResourceBinding

	metrics  *metrics.Metrics
	registry *Registry
}

// Config supplies the collaborators a Node needs at construction. Name,
// Impl, DataLoop and WorkQueue are required; Log defaults to log.Root().
type Config struct {
	Name        string
	Properties  Properties
	Impl        Implementation
	DataLoop    rt.DataLoop
	WorkQueue   rt.WorkQueue
	PortFactory PortFactory
	Log         log.Logger
	Metrics     *metrics.Metrics
}

func (c *Config) check() error {
	if c.Name == "" {
		return newError(ErrKindInvalidState, "node name must not be empty", nil)
	}
	if c.Impl == nil {
		return newError(ErrKindInvalidState, "node requires an Implementation", nil)
	}
	if c.DataLoop == nil {
		return newError(ErrKindInvalidState, "node requires a DataLoop", nil)
	}
	if c.WorkQueue == nil {
		return newError(ErrKindInvalidState, "node requires a WorkQueue", nil)
	}
	return nil
}

// New creates a node in the CREATING state (spec.md §3 "Lifecycle"). The
// node self-drives (driverNode == self) until SetDriver says otherwise, per
// the invariant that driver_node is never nil.
func New(cfg Config) (*Node, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}

	lg := cfg.Log
	if lg == nil {
		lg = log.Root()
	}

	props := cfg.Properties.clone()
	if implProps := cfg.Impl.InitialProperties(); implProps != nil {
		for k, v := range implProps {
			props[k] = v
		}
	}
	if _, ok := props[PropSession]; !ok {
		props[PropSession] = uuid.NewString()
	}

	n := &Node{
		log:         lg,
		name:        cfg.Name,
		properties:  props,
		impl:        cfg.Impl,
		dataLoop:    cfg.DataLoop,
		workQueue:   cfg.WorkQueue,
		portFactory: cfg.PortFactory,
		inputPorts:  newPortTable(DirectionInput),
		outputPorts: newPortTable(DirectionOutput),
		pauseOnIdle: props.boolOr(PropPauseOnIdle, true),
		isDriver:    props.boolOr(PropDriver, false),
		metrics:     cfg.Metrics,
	}
	n.info = Info{State: StateCreating, Name: cfg.Name, Props: props.clone()}
	n.driverNode = n // invariant: driver_node != nil, self iff heads own group
	n.driverList = []*Node{n}

	n.rtView = rt.View{
		Node:       n,
		Root:       n,
		Activation: &rt.Activation{},
	}

	return n, nil
}

// GraphNodeID satisfies rt.GraphNode so a Node can stand in for its own
// real-time root and for the graph-nodes a driver schedules.
func (n *Node) GraphNodeID() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.id
}

// Registry assigns process-unique ids at registration and exposes
// registered nodes globally (spec.md §2 "the registration exposes the
// node globally and publishes ports").
type Registry struct {
	mu     sync.Mutex
	nextID uint32
	byID   map[uint32]*Node
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[uint32]*Node)}
}

// Register publishes n globally, assigns its id, and transitions it to
// SUSPENDED (spec.md §3 "Lifecycle"). A node cannot be registered twice.
func (r *Registry) Register(n *Node) error {
	n.mu.Lock()
	if n.registered {
		name := n.name
		n.mu.Unlock()
		return errAlreadyExists(name)
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.byID[id] = n
	r.mu.Unlock()

	n.id = id
	n.registered = true
	n.registry = r
	n.info.ID = id
	n.properties[PropName] = n.name
	n.properties[PropID] = fmt.Sprint(id)
	for _, k := range mirroredKeys {
		if v, ok := n.properties[k]; ok {
			n.info.Props[k] = v
		}
	}
	n.mu.Unlock()

	// Registration exposes the node globally and publishes its ports
	// (spec.md §2), mirroring pw_node_register's unconditional
	// pw_node_update_ports call before the node is usable by subscribers.
	n.ReconcilePorts()

	n.listeners.emit(n, EventInitialized{})
	// register() moves CREATING -> SUSPENDED (spec.md §4.2).
	_ = n.SetState(context.Background(), StateSuspended)
	return nil
}

func (r *Registry) Lookup(id uint32) (*Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	return n, ok
}

func (r *Registry) unregister(id uint32) {
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
}

// AddListener registers l for every event this node emits.
func (n *Node) AddListener(l Listener) *ListenerHandle {
	return n.listeners.add(l)
}

// BindResource attaches a client/resource binding; it immediately receives
// the current info snapshot (spec.md §6 "emits info on binding").
func (n *Node) BindResource(b ResourceBinding) {
	n.resMu.Lock()
	n.resources = append(n.resources, b)
	n.resMu.Unlock()
	b.PushInfo(n.Info())
}

// UnbindResource removes a resource binding without affecting the node
// (spec.md §6).
func (n *Node) UnbindResource(b ResourceBinding) {
	n.resMu.Lock()
	defer n.resMu.Unlock()
	for i, r := range n.resources {
		if r == b {
			n.resources = append(n.resources[:i], n.resources[i+1:]...)
			return
		}
	}
}

func (n *Node) pushInfoToResources(info Info) {
	n.resMu.Lock()
	snapshot := make([]ResourceBinding, len(n.resources))
	copy(snapshot, n.resources)
	n.resMu.Unlock()
	for _, r := range snapshot {
		r.PushInfo(info)
	}
}

// ID returns the node's process-unique id, 0 before registration.
func (n *Node) ID() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.id
}

func (n *Node) Name() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.name
}

// Info returns a snapshot of the node's public info.
func (n *Node) Info() Info {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.info.clone()
}

func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.info.State
}

func (n *Node) Enabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

func (n *Node) Active() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

func (n *Node) DriverNode() *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.driverNode
}

func (n *Node) IsDriver() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.isDriver
}

// UpdateProperties merges updates into the node's property bag. Changes to
// node.pause-on-idle and node.driver take effect immediately; changes to
// mirrored keys are reflected into info.Props and change_mask is marked.
func (n *Node) UpdateProperties(updates Properties) {
	n.mu.Lock()
	for k, v := range updates {
		n.properties[k] = v
	}
	n.pauseOnIdle = n.properties.boolOr(PropPauseOnIdle, true)
	n.isDriver = n.properties.boolOr(PropDriver, false)
	for _, k := range mirroredKeys {
		if v, ok := n.properties[k]; ok {
			n.info.Props[k] = v
		}
	}
	n.info.ChangeMask |= ChangeMaskProps
	info := n.info.clone()
	n.info.ChangeMask = 0
	n.mu.Unlock()

	n.listeners.emit(n, EventInfoChanged{Info: info})
	n.pushInfoToResources(info)
}

// Destroy tears the node down in the order spec.md §3 prescribes:
// EventDestroy fires first, before anything else runs; then pause (a Pause
// command, sent only when the node is above IDLE), eject
// driven nodes to their own drivers, remove from the driver list via the
// data-loop, unlink/destroy ports; then EventFree fires once ports and
// resources are torn down but before the work queue and registry entry are
// released. Failures in independent steps are aggregated, not
// short-circuited, mirroring the teacher repo's New()/Stop() rollback with
// multierror.Append (cp-node/node/node.go).
func (n *Node) Destroy(ctx context.Context) error {
	n.listeners.emit(n, EventDestroy{})

	var errs *multierror.Error

	if n.State().rank() > StateIdle.rank() {
		if _, err := n.impl.SendCommand(CommandPause); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("pause on destroy: %w", err))
		}
	}

	n.mu.Lock()
	driven := make([]*Node, 0, len(n.driverList))
	for _, d := range n.driverList {
		if d != n {
			driven = append(driven, d)
		}
	}
	n.mu.Unlock()

	for _, d := range driven {
		if err := d.SetDriver(ctx, nil); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("eject driven node %d: %w", d.ID(), err))
		}
	}

	if n.DriverNode() != n {
		if err := n.SetDriver(ctx, nil); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("detach from driver: %w", err))
		}
	}

	done := make(chan struct{})
	n.dataLoop.Invoke(func() {
		if n.rtView.Driver != nil {
			n.rtView.Driver.RemoveNode(n.rtView.Root)
		}
		close(done)
	})
	<-done

	n.mu.Lock()
	for _, p := range n.inputPorts.ports {
		p.Links = nil
	}
	for _, p := range n.outputPorts.ports {
		p.Links = nil
	}
	n.inputPorts = newPortTable(DirectionInput)
	n.outputPorts = newPortTable(DirectionOutput)
	n.mu.Unlock()

	n.resMu.Lock()
	n.resources = nil
	n.resMu.Unlock()

	n.listeners.emit(n, EventFree{})

	n.workQueue.Close()

	if n.registry != nil {
		n.registry.unregister(n.id)
	}

	if errs.ErrorOrNil() != nil {
		return errs
	}
	return nil
}
