// Package sourceenv loads configuration trees from environment variables.
//
// Key normalization: FOO__BAR → foo.bar, FOO_BAR → foo_bar
//
// Example:
//
//	source := sourceenv.New(sourceenv.Options{Prefix: "APP_"})
//	cfg, err := keel.NewLoader().WithSource(source).Load(ctx)
package sourceenv
