package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// OverridesFilename is the optional flat-defaults file consulted beneath CLI
// flags: `.relay-dedup.toml` in the scan root.
const OverridesFilename = ".relay-dedup.toml"

// Overrides is the shape of OverridesFilename. Every field is optional; zero
// values mean "not set" and the flag default (or CLI-supplied value) wins.
type Overrides struct {
	Output           string   `toml:"output"`
	MinOccurrences   int      `toml:"min_occurrences"`
	OrderInsensitive []string `toml:"order_insensitive"`
	MaxPasses        int      `toml:"max_passes"`
}

// LoadOverrides reads OverridesFilename from dir. A missing file is not an
// error: it returns a zero-value Overrides.
func LoadOverrides(dir string) (*Overrides, error) {
	path := filepath.Join(dir, OverridesFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Overrides{}, nil
		}
		return nil, err
	}

	var o Overrides
	if err := toml.Unmarshal(data, &o); err != nil {
		return nil, ValidationError{Field: OverridesFilename, Message: err.Error()}
	}
	return &o, nil
}

// ApplyOverrides layers o beneath fv: any FlagValues field still at its CLI
// default is replaced by the override file's value. changed reports whether
// the corresponding flag was explicitly set on the command line; explicit
// flags always win over the override file.
func ApplyOverrides(fv *FlagValues, o *Overrides, changed func(name string) bool) {
	if o.Output != "" && !changed("output") {
		fv.Output = o.Output
	}
	if o.MinOccurrences != 0 && !changed("min-occurrences") {
		fv.MinOccurrences = o.MinOccurrences
	}
	if len(o.OrderInsensitive) > 0 && !changed("order-insensitive") {
		fv.OrderInsensitive = o.OrderInsensitive
	}
	if o.MaxPasses != 0 && !changed("max-passes") {
		fv.MaxPasses = o.MaxPasses
	}
}
