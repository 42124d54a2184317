// Package keel provides hierarchical configuration access with variable
// interpolation, path expressions over an immutable node tree, and
// delimiter-aware list values.
//
// Quick Start:
//
//	cfg := keel.New()
//	cfg.Set("database.host", "db.internal")
//	cfg.Set("database.url", "postgres://${database.host}:5432")
//
//	url, err := cfg.String("database.url") // "postgres://db.internal:5432"
//
// Values may reference other keys and external data with
// "${[prefix:]name}" variables; "$${...}" escapes a marker. Built-in
// prefixes: env (environment), sys (runtime properties), localhost
// (host info). The const prefix ships in the lookupconst subpackage and
// must be registered explicitly.
//
// Paths are dot-separated, with "(n)" selecting the n-th occurrence of a
// repeated element and "[@attr]" selecting an attribute:
//
//	tables.table(1).name
//	server.listener[@port]
//
// Trees can be loaded from files and the environment via the sourcefile
// and sourceenv subpackages, combined with Loader.
//
// See the Example functions for detailed usage.
package keel
