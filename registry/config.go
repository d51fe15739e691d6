package registry

import (
	"os"

	"github.com/BurntSushi/toml"
)

// fileConfig is the on-disk descriptor of which plug-in factories Load
// should walk, e.g.:
//
//	factory_names = ["bluez5-codec-sbc", "bluez5-codec-aac"]
type fileConfig struct {
	FactoryNames []string `toml:"factory_names"`
}

// LoadConfigFile reads a TOML factory-list descriptor from path and
// returns a Config ready to pass to Load. This is new relative to the
// original codec-loader, which hardcodes its factory array; it is the
// minimal generalization SPEC_FULL.md §D.5 calls for so the loader is
// reusable outside the Bluetooth/SBC context spec.md genericizes it for.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return Config{}, err
	}

	return Config{FactoryNames: fc.FactoryNames}, nil
}
