package registry

// Factory is a loaded plug-in handle that publishes an array of codec
// descriptors (spec.md §4.6).
type Factory interface {
	// ABIVersion reports the codec-interface ABI version this factory
	// implements. Load rejects factories whose version doesn't match
	// ExpectedABIVersion.
	ABIVersion() uint32
	// Codecs returns the factory's published codec descriptors.
	Codecs() []*Descriptor
	// Unload releases the factory handle.
	Unload() error
}

// Loader loads a named plug-in factory. Absence of a factory (Loader
// returning any error) is a warning-level event,
// not a load failure (spec.md §4.6 step 1).
type Loader interface {
	Load(name string) (Factory, error)
}

// ExpectedABIVersion is the codec-interface ABI version Load requires
// (spec.md §4.6 step 2).
const ExpectedABIVersion = 1

// DefaultFactoryNames is the fixed list of plug-in factory names Load
// walks by default, preserved from the original Bluetooth codec-loader
// (SPEC_FULL.md §D.5). Callers needing a different back-end search this
// genericized loader against may supply their own list via
// Config.FactoryNames, e.g. read from a file with LoadConfigFile.
var DefaultFactoryNames = []string{
	"bluez5-codec-sbc",
	"bluez5-codec-aac",
	"bluez5-codec-aptx",
	"bluez5-codec-ldac",
	"bluez5-codec-faststream",
}
