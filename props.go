package keel

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// The runtime property table backs the "sys" lookup prefix: a
// process-wide mutable map of string properties, seeded with a few
// values describing the running process. Hosts may overwrite or extend
// it at any time; reads and writes are serialized by an RWMutex so the
// table is never mutated while a lookup is reading it.

var (
	propsMu sync.RWMutex
	props   map[string]string
)

func init() {
	props = map[string]string{
		"os.name":        runtime.GOOS,
		"os.arch":        runtime.GOARCH,
		"path.separator": string(filepath.Separator),
	}
	if home, err := os.UserHomeDir(); err == nil {
		props["user.home"] = home
	}
	if dir, err := os.Getwd(); err == nil {
		props["user.dir"] = dir
	}
}

// SetSystemProperty sets a runtime property visible to the "sys" lookup.
func SetSystemProperty(name, value string) {
	propsMu.Lock()
	defer propsMu.Unlock()
	props[name] = value
}

// ClearSystemProperty removes a runtime property.
func ClearSystemProperty(name string) {
	propsMu.Lock()
	defer propsMu.Unlock()
	delete(props, name)
}

// SystemProperty returns a runtime property and whether it is set.
func SystemProperty(name string) (string, bool) {
	propsMu.RLock()
	defer propsMu.RUnlock()
	v, ok := props[name]
	return v, ok
}

// SysLookup resolves names from the runtime property table. Registered
// under the "sys" prefix by default.
type SysLookup struct{}

func (SysLookup) Lookup(name string) (string, bool) {
	return SystemProperty(name)
}
