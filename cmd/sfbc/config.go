package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ezrec/sfbc/dump"
)

// Config holds the settings of a run. A TOML file may provide them; flags
// override the file.
type Config struct {
	StackSize uint32            `toml:"stack_size"`
	Format    dump.Format       `toml:"format"`
	Listing   bool              `toml:"listing"`
	Verbose   bool              `toml:"verbose"`
	Equates   map[string]string `toml:"equates"`
}

// LoadConfig parses a TOML configuration file. Unknown keys are an error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	undecoded := md.Undecoded()
	if len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for n, key := range undecoded {
			keys[n] = key.String()
		}
		return nil, fmt.Errorf("%s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	return &cfg, nil
}

// equateFlag collects NAME=VALUE equates.
type equateFlag map[string]string

func (eq equateFlag) String() string {
	var defs []string
	for name, value := range eq {
		defs = append(defs, name+"="+value)
	}
	return strings.Join(defs, ",")
}

func (eq equateFlag) Set(def string) error {
	name, value, ok := strings.Cut(def, "=")
	if !ok || len(name) == 0 {
		return fmt.Errorf("equate %q is not NAME=VALUE", def)
	}
	eq[name] = value
	return nil
}
