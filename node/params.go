package node

// ForEachParam iterates up to max values of paramID starting at index
// (spec.md §4.5). max == 0 means unbounded. The scratch buffer handed to cb
// is reused across iterations; cb must finish consuming it before
// returning. Iteration stops when the implementation reports no more
// values or cb returns non-zero.
func (n *Node) ForEachParam(paramID uint32, index uint32, max uint32, filter ParamFilter, cb func(buf []byte) int) error {
	scratch := make([]byte, paramScratchCap)

	for count := uint32(0); max == 0 || count < max; count++ {
		written, next, ok, err := n.impl.EnumParam(paramID, index, filter, scratch)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if cb(scratch[:written]) != 0 {
			break
		}
		index = next
	}
	return nil
}
