package registry

import (
	"sort"

	"github.com/ethereum/go-ethereum/log"

	"github.com/cpchain-network/media-node/metrics"
)

// Registry is a deduplicated, priority-sorted list of codec descriptors,
// plus the factory handles that own their lifetime (spec.md §4.6).
type Registry struct {
	descriptors []*Descriptor
	factories   []Factory
}

// Config lets a caller override which factories Load walks and the log
// sink it reports absence/ABI-mismatch/cap warnings to.
type Config struct {
	FactoryNames []string
	Log          log.Logger
	Metrics      *metrics.Metrics
}

// Load implements spec.md §4.6's contract end to end.
func Load(loader Loader, cfg Config) (*Registry, error) {
	names := cfg.FactoryNames
	if names == nil {
		names = DefaultFactoryNames
	}
	lg := cfg.Log
	if lg == nil {
		lg = log.Root()
	}

	r := &Registry{}
	seen := make(map[string]*Descriptor)

	for _, name := range names {
		factory, err := loader.Load(name)
		if err != nil {
			lg.Warn("plugin factory not available", "factory", name, "err", err)
			continue
		}

		if factory.ABIVersion() != ExpectedABIVersion {
			lg.Warn("plugin factory ABI mismatch, rejecting", "factory", name,
				"want", ExpectedABIVersion, "got", factory.ABIVersion())
			_ = factory.Unload()
			continue
		}

		accepted := 0
		for _, d := range factory.Codecs() {
			if len(r.descriptors) >= MaxCodecs {
				lg.Warn("codec cap reached, skipping remaining codecs", "factory", name,
					"cap", MaxCodecs)
				if cfg.Metrics != nil {
					cfg.Metrics.CodecLoadFailure.WithLabelValues(ErrKindFull.String()).Inc()
				}
				break
			}

			id := d.identity()
			if _, dup := seen[id]; dup {
				continue
			}

			d.insertionIndex = len(r.descriptors)
			r.descriptors = append(r.descriptors, d)
			seen[id] = d
			accepted++
		}

		if accepted > 0 {
			r.factories = append(r.factories, factory)
		} else {
			_ = factory.Unload()
		}
	}

	hasBaseline := false
	for _, d := range r.descriptors {
		if d.ID == CodecSBC {
			hasBaseline = true
			break
		}
	}
	if !hasBaseline {
		r.Free()
		if cfg.Metrics != nil {
			cfg.Metrics.CodecLoadFailure.WithLabelValues(ErrKindNotFound.String()).Inc()
		}
		return nil, errNotFound("mandatory baseline codec SBC not present after load")
	}

	sort.SliceStable(r.descriptors, func(i, j int) bool {
		pi, pj := priorityOf(r.descriptors[i].ID), priorityOf(r.descriptors[j].ID)
		if pi != pj {
			return pi < pj
		}
		return r.descriptors[i].insertionIndex < r.descriptors[j].insertionIndex
	})

	if cfg.Metrics != nil {
		cfg.Metrics.CodecsLoaded.Set(float64(len(r.descriptors)))
	}

	return r, nil
}

// Descriptors returns the sorted, deduplicated codec list.
func (r *Registry) Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Free unloads every retained factory handle and drops the registry's
// descriptor list.
func (r *Registry) Free() {
	for _, f := range r.factories {
		_ = f.Unload()
	}
	r.factories = nil
	r.descriptors = nil
}
