// Package sourcefile loads configuration trees from YAML, JSON, and TOML
// files.
//
// Nested maps become nested nodes; arrays become repeated nodes with the
// same name, addressable with "(n)" path indices.
//
// Example:
//
//	source := sourcefile.New("config.yaml", sourcefile.Options{})
//	cfg, err := keel.NewLoader().WithSource(source).Load(ctx)
package sourcefile
