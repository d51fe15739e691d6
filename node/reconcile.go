package node

// ReconcilePorts asks the implementation for its current port counts and id
// sets and reconciles the runtime's port tables against them (spec.md
// §4.1). It is best-effort per port: a failed creation is logged and
// reconciliation continues. info.max_*_ports is updated whenever the
// implementation reports a different maximum, in either direction, and the
// corresponding change_mask bits are set so subscribers learn of the
// change.
func (n *Node) ReconcilePorts() {
	nIn, maxIn, nOut, maxOut := n.impl.PortCounts()
	inIDs, outIDs := n.impl.PortIDs()
	_ = nIn
	_ = nOut

	n.mu.Lock()
	createdIn, destroyedIn := reconcilePorts(n.inputPorts, inIDs, n.portFactory,
		func(id uint32, err error) {
			n.log.Warn("failed to create input port", "node", n.name, "port", id, "err", err)
		},
		func(id uint32) {
			n.log.Warn("out-of-order reported input port id skipped", "node", n.name, "port", id)
		})
	createdOut, destroyedOut := reconcilePorts(n.outputPorts, outIDs, n.portFactory,
		func(id uint32, err error) {
			n.log.Warn("failed to create output port", "node", n.name, "port", id, "err", err)
		},
		func(id uint32) {
			n.log.Warn("out-of-order reported output port id skipped", "node", n.name, "port", id)
		})

	var mask ChangeMask
	if len(createdIn) > 0 || len(destroyedIn) > 0 {
		mask |= ChangeMaskInputPorts
	}
	if len(createdOut) > 0 || len(destroyedOut) > 0 {
		mask |= ChangeMaskOutputPorts
	}

	if n.metrics != nil {
		n.metrics.PortsReconciled.WithLabelValues(n.name, "input", "created").Add(float64(len(createdIn)))
		n.metrics.PortsReconciled.WithLabelValues(n.name, "input", "destroyed").Add(float64(len(destroyedIn)))
		n.metrics.PortsReconciled.WithLabelValues(n.name, "output", "created").Add(float64(len(createdOut)))
		n.metrics.PortsReconciled.WithLabelValues(n.name, "output", "destroyed").Add(float64(len(destroyedOut)))
	}

	n.info.NInputPorts = uint32(n.inputPorts.len())
	n.info.NOutputPorts = uint32(n.outputPorts.len())
	if maxIn != n.info.MaxInputPorts {
		n.info.MaxInputPorts = maxIn
		mask |= ChangeMaskInputPorts
	}
	if maxOut != n.info.MaxOutputPorts {
		n.info.MaxOutputPorts = maxOut
		mask |= ChangeMaskOutputPorts
	}
	n.info.ChangeMask |= mask
	info := n.info.clone()
	n.info.ChangeMask = 0
	n.mu.Unlock()

	if mask != 0 {
		n.listeners.emit(n, EventInfoChanged{Info: info})
		n.pushInfoToResources(info)
	}
}

// Ports returns a snapshot of the node's current ports for a direction, in
// traversal order.
func (n *Node) Ports(dir Direction) []*Port {
	n.mu.Lock()
	defer n.mu.Unlock()
	table := n.inputPorts
	if dir == DirectionOutput {
		table = n.outputPorts
	}
	out := make([]*Port, len(table.ports))
	copy(out, table.ports)
	return out
}

// Port looks a single port up by direction and id.
func (n *Node) Port(dir Direction, id uint32) (*Port, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	table := n.inputPorts
	if dir == DirectionOutput {
		table = n.outputPorts
	}
	return table.get(id)
}
