// Package registry implements the plugin/codec registry pattern (spec.md
// §4.6): a representative loader that pulls codec descriptors from named
// plugin factories, deduplicates them, sorts them by a fixed priority
// table, and guarantees a mandatory baseline codec is present. Grounded on
// the aistore xaction registry's renew/dedup/sort shape
// (rockstar-0000-aistore xact/xreg/xreg.go) adapted to this spec's
// load-once, priority-ordered semantics.
package registry

// CodecID identifies a codec algorithm. Only SBC is given meaning by this
// package (the mandatory baseline); the others are just priority-table
// entries — spec.md §1 explicitly excludes enumerating codec algorithms.
type CodecID string

const (
	CodecLDAC              CodecID = "LDAC"
	CodecAptxHD             CodecID = "APTX_HD"
	CodecAptx               CodecID = "APTX"
	CodecAAC                CodecID = "AAC"
	CodecMPEG               CodecID = "MPEG"
	CodecSBC                CodecID = "SBC"
	CodecSBCXQ              CodecID = "SBC_XQ"
	CodecFastStream         CodecID = "FASTSTREAM"
	CodecFastStreamDuplex   CodecID = "FASTSTREAM_DUPLEX"
	CodecAptxLL             CodecID = "APTX_LL"
	CodecAptxLLDuplex       CodecID = "APTX_LL_DUPLEX"
)

// MaxCodecs is the AVDTP endpoint ceiling (spec.md §4.6 step 3).
const MaxCodecs = 0x3E

// priorityOrder is the stable sort key table (spec.md §4.6 step 6). Lower
// index sorts first. Anything not listed shares the "unknown" priority
// (len(priorityOrder)) and is ordered by insertion among its peers.
var priorityOrder = []CodecID{
	CodecLDAC,
	CodecAptxHD,
	CodecAptx,
	CodecAAC,
	CodecMPEG,
	CodecSBC,
	CodecSBCXQ,
	CodecFastStream,
	CodecFastStreamDuplex,
	CodecAptxLL,
	CodecAptxLLDuplex,
}

var priorityIndex = func() map[CodecID]int {
	m := make(map[CodecID]int, len(priorityOrder))
	for i, id := range priorityOrder {
		m[id] = i
	}
	return m
}()

func priorityOf(id CodecID) int {
	if p, ok := priorityIndex[id]; ok {
		return p
	}
	return len(priorityOrder)
}

// Descriptor is an opaque record published by a plug-in factory. Identity
// for deduplication is EndpointName if non-empty, else Name (spec.md §3).
type Descriptor struct {
	ID           CodecID
	Name         string
	EndpointName string

	// insertionIndex breaks priority ties deterministically by the order
	// a descriptor was first accepted into the registry, resolving the
	// pointer-comparison non-determinism spec.md §9 flags (SPEC_FULL.md
	// §E).
	insertionIndex int
}

func (d *Descriptor) identity() string {
	if d.EndpointName != "" {
		return d.EndpointName
	}
	return d.Name
}
