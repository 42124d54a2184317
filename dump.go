package keel

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// DumpOption configures dump behavior using the functional options pattern.
type DumpOption func(*dumpConfig)

type dumpConfig struct {
	withOrigins bool   // include source attribution for each key
	asJSON      bool   // output as JSON instead of text format
	indent      string // indentation for JSON output (default: "  ")
	raw         bool   // skip interpolation
}

// WithOrigins includes source attribution for each key in the output.
func WithOrigins() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.withOrigins = true
	}
}

// AsJSON outputs the configuration as JSON instead of text format.
func AsJSON() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.asJSON = true
	}
}

// WithIndent sets the indentation for JSON output.
// Default is two spaces ("  ").
func WithIndent(indent string) DumpOption {
	return func(cfg *dumpConfig) {
		cfg.indent = indent
	}
}

// Raw dumps stored values without interpolating them.
func Raw() DumpOption {
	return func(cfg *dumpConfig) {
		cfg.raw = true
	}
}

// Dump writes a human-readable listing of the effective configuration:
// one "key = value" line per key, sorted, values interpolated unless Raw
// is given. Returns an error if interpolation fails or the writer fails.
func Dump(w io.Writer, cfg *Configuration, opts ...DumpOption) error {
	if cfg == nil {
		return fmt.Errorf("keel: config is nil")
	}

	config := dumpConfig{
		indent: "  ",
	}
	for _, opt := range opts {
		opt(&config)
	}

	keys := cfg.Keys()
	sort.Strings(keys)

	origins, hasOrigins := GetOrigins(cfg)

	values := make(map[string]any, len(keys))
	for _, key := range keys {
		v, ok := cfg.Property(key)
		if !ok {
			continue
		}
		if _, isString := v.(string); isString && !config.raw {
			resolved, err := cfg.String(key)
			if err != nil {
				return err
			}
			values[key] = resolved
			continue
		}
		values[key] = v
	}

	if config.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", config.indent)
		return enc.Encode(values)
	}

	for _, key := range keys {
		v, ok := values[key]
		if !ok {
			continue
		}
		if config.withOrigins && hasOrigins {
			if src, ok := origins.Source(key); ok {
				if _, err := fmt.Fprintf(w, "%s = %v  (from %s)\n", key, v, src); err != nil {
					return err
				}
				continue
			}
		}
		if _, err := fmt.Fprintf(w, "%s = %v\n", key, v); err != nil {
			return err
		}
	}
	return nil
}
