package node

import "context"

// SetState drives the node towards target (spec.md §4.2). Synchronous
// command failures are returned to the caller but do not by themselves
// transition the node to ERROR — only update_state does that, typically
// from the deferred completion this function enqueues (spec.md §7
// "Propagation policy").
func (n *Node) SetState(ctx context.Context, target State) error {
	if target == StateCreating {
		return errInvalidState(target)
	}

	n.listeners.emit(n, EventStateRequest{Target: target})

	switch target {
	case StateSuspended:
		n.suspend()
		n.updateState(StateSuspended, nil)
		return nil

	case StateIdle:
		if n.Active() {
			n.updateState(StateIdle, nil)
			return nil
		}
		return n.dispatchCommand(CommandPause, StateIdle)

	case StateRunning:
		if !n.Active() {
			n.updateState(StateRunning, nil)
			return nil
		}
		n.activateAllLinks()
		return n.dispatchCommand(CommandStart, StateRunning)

	case StateError:
		// ERROR is entered only via update_state, never requested directly.
		return errInvalidState(target)

	default:
		return errInvalidState(target)
	}
}

// dispatchCommand sends cmd to the implementation and chains the
// completion through the work queue, per spec.md §4.2's "Every command may
// complete asynchronously" contract.
func (n *Node) dispatchCommand(cmd Command, target State) error {
	seq, err := n.impl.SendCommand(cmd)
	if err != nil {
		return newError(ErrKindAsync, "command dispatch failed", err)
	}

	n.workQueue.Enqueue(seq, func(res int) {
		n.onStateComplete(target, res)
	})
	return nil
}

// Done is part of the Callbacks interface: the implementation reports an
// async command's completion by sequence number.
func (n *Node) Done(seq uint32, res int) {
	n.workQueue.Complete(seq, res)
	n.listeners.emit(n, EventAsyncComplete{Seq: seq, Res: res})
}

func (n *Node) onStateComplete(target State, res int) {
	if res < 0 {
		n.updateState(StateError, stateChangeErr(res))
		return
	}
	n.updateState(target, nil)
}

// suspend clears every port's format and forces CONFIGURE (the Suspend
// command, spec.md §4.2/§6). Port-level failures are logged and ignored —
// reconciliation of remaining ports continues (spec.md §7).
func (n *Node) suspend() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range n.inputPorts.ports {
		p.clearFormat()
	}
	for _, p := range n.outputPorts.ports {
		p.clearFormat()
	}
}

func (n *Node) activateAllLinks() {
	n.mu.Lock()
	ports := make([]*Port, 0, n.inputPorts.len()+n.outputPorts.len())
	ports = append(ports, n.inputPorts.ports...)
	ports = append(ports, n.outputPorts.ports...)
	n.mu.Unlock()

	for _, p := range ports {
		if err := p.activateLinks(); err != nil {
			n.log.Warn("link activation failed", "node", n.name, "port", p.ID, "err", err)
		}
	}
}

func (n *Node) deactivateAllLinks() {
	n.mu.Lock()
	ports := make([]*Port, 0, n.inputPorts.len()+n.outputPorts.len())
	ports = append(ports, n.inputPorts.ports...)
	ports = append(ports, n.outputPorts.ports...)
	n.mu.Unlock()

	for _, p := range ports {
		if err := p.deactivateLinks(); err != nil {
			n.log.Warn("link deactivation failed", "node", n.name, "port", p.ID, "err", err)
		}
	}
}

// updateState is the internal transition, callable from implementation
// callbacks (spec.md §4.2 "update_state"). It is a no-op if new == current.
func (n *Node) updateState(newState State, errVal error) {
	n.mu.Lock()
	old := n.info.State
	if old == newState {
		n.mu.Unlock()
		return
	}

	n.info.Error = errVal
	n.info.State = newState
	pauseOnIdle := n.pauseOnIdle
	n.mu.Unlock()

	// Entering IDLE always deactivates links; node.pause-on-idle only
	// gates whether an unconditional Pause command is also dispatched
	// (spec.md §8 scenario 4 is authoritative over the more ambiguous
	// prose in §4.2: deactivation happens either way).
	if newState == StateIdle {
		if pauseOnIdle {
			if _, err := n.impl.SendCommand(CommandPause); err != nil {
				n.log.Warn("pause-on-idle command failed", "node", n.name, "err", err)
			}
		}
		n.deactivateAllLinks()
	}

	// state_changed fires before info_changed, so subscribers always
	// observe the state before the info snapshot consistent with it
	// (spec.md §5 "Ordering").
	n.listeners.emit(n, EventStateChanged{Old: old, New: newState, Err: errVal})

	n.mu.Lock()
	n.info.ChangeMask |= ChangeMaskState
	info := n.info.clone()
	n.info.ChangeMask = 0
	n.mu.Unlock()

	n.listeners.emit(n, EventInfoChanged{Info: info})
	n.pushInfoToResources(info)

	if n.metrics != nil {
		n.metrics.NodeState.WithLabelValues(n.name).Set(float64(newState))
	}
}

// SetActive sets the active flag. Idempotent; activating a node that is
// both active and enabled activates all its port links (spec.md §4.2).
func (n *Node) SetActive(v bool) {
	n.mu.Lock()
	if n.active == v {
		n.mu.Unlock()
		return
	}
	n.active = v
	enabled := n.enabled
	n.mu.Unlock()

	n.listeners.emit(n, EventActiveChanged{Active: v})

	if v && enabled {
		n.activateAllLinks()
	} else if !v {
		_ = n.SetState(context.Background(), StateIdle)
	}
}

// SetEnabled sets the enabled flag. Idempotent; disabling forces state to
// SUSPENDED (spec.md §4.2).
func (n *Node) SetEnabled(v bool) {
	n.mu.Lock()
	if n.enabled == v {
		n.mu.Unlock()
		return
	}
	n.enabled = v
	active := n.active
	n.mu.Unlock()

	n.listeners.emit(n, EventEnabledChanged{Enabled: v})

	if v && active {
		n.activateAllLinks()
	} else if !v {
		_ = n.SetState(context.Background(), StateSuspended)
	}
}
