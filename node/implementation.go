package node

// Implementation is the node-to-implementation contract (spec.md §6): the
// concrete processing back-end behind a node (decoder, mixer, device sink,
// codec, filter, ...). Out of scope per spec.md §1 ("the concrete
// processing implementations behind each node") — this is only the surface
// the node core drives and is driven by.
type Implementation interface {
	// SendCommand dispatches Pause/Start/Suspend. It returns a sequence
	// number the implementation will echo back through Callbacks.Done,
	// or a non-nil error synchronously if the command could not even be
	// queued.
	SendCommand(cmd Command) (seq uint32, err error)

	// PortCounts reports current/maximum port counts for both directions.
	PortCounts() (nIn, maxIn, nOut, maxOut uint32)

	// PortIDs reports the current sorted, duplicate-free id lists for
	// both directions (spec.md §4.1 reconciliation input).
	PortIDs() (inIDs, outIDs []uint32)

	// EnumParam enumerates one parameter value into buf starting at
	// index, returning the number of bytes written and the next index to
	// resume from. ok is false once there are no more values.
	EnumParam(paramID uint32, index uint32, filter ParamFilter, buf []byte) (n int, next uint32, ok bool, err error)

	// InitialProperties returns a properties dict applied to the node on
	// attach (spec.md §6 "Info: the implementation may carry a properties
	// dict applied to the node on attach").
	InitialProperties() Properties
}

// Node satisfies Callbacks: an Implementation is handed the owning Node at
// attach time and calls back into it directly.
var _ Callbacks = (*Node)(nil)

// Callbacks is the set of calls an Implementation makes back into the node
// that owns it (spec.md §6 "Callbacks from implementation"). A Node
// implements this interface itself and is handed to the Implementation at
// attach time.
type Callbacks interface {
	Done(seq uint32, res int)
	Event(evt any)
	Process(status int32)
	ReuseBuffer(portID uint32, bufferID uint32)
}
