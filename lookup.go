package keel

import (
	"net"
	"os"
)

// Lookup resolves a variable name to a replacement string. Implementations
// are registered under a prefix with an Interpolator; "${prefix:name}" in a
// property value dispatches to the Lookup registered for prefix.
//
// Lookups must be safe for repeated calls: interpolation re-resolves
// variables on every access, never caching results, because backing data
// (environment, runtime properties) may change between reads.
type Lookup interface {
	// Lookup returns the replacement for name and whether it was found.
	// Not-found is not an error; the placeholder stays in place verbatim.
	Lookup(name string) (string, bool)
}

// LookupFunc is a function adapter for the Lookup interface.
type LookupFunc func(name string) (string, bool)

func (f LookupFunc) Lookup(name string) (string, bool) {
	return f(name)
}

// EnvLookup resolves names from environment variables. Registered under
// the "env" prefix by default.
type EnvLookup struct{}

func (EnvLookup) Lookup(name string) (string, bool) {
	return os.LookupEnv(name)
}

// LocalhostLookup resolves information about the local machine.
// Registered under the "localhost" prefix by default. Supported names:
//
//	name            the host name
//	canonical-name  the fully qualified host name
//	address         the host's first resolved IP address
type LocalhostLookup struct{}

func (LocalhostLookup) Lookup(name string) (string, bool) {
	host, err := os.Hostname()
	if err != nil {
		return "", false
	}
	switch name {
	case "name":
		return host, true
	case "canonical-name":
		addrs, err := net.LookupHost(host)
		if err != nil || len(addrs) == 0 {
			return host, true
		}
		names, err := net.LookupAddr(addrs[0])
		if err != nil || len(names) == 0 {
			return host, true
		}
		// Reverse lookups conventionally end with a trailing dot.
		canonical := names[0]
		if n := len(canonical); n > 0 && canonical[n-1] == '.' {
			canonical = canonical[:n-1]
		}
		return canonical, true
	case "address":
		addrs, err := net.LookupHost(host)
		if err != nil || len(addrs) == 0 {
			return "", false
		}
		return addrs[0], true
	}
	return "", false
}

// DefaultPrefixLookups returns the lookups registered on every new
// Configuration's interpolator: env, sys, and localhost. The const lookup
// ships separately in the lookupconst package and must be registered
// explicitly because it performs reflective symbol resolution.
func DefaultPrefixLookups() map[string]Lookup {
	return map[string]Lookup{
		"env":       EnvLookup{},
		"sys":       SysLookup{},
		"localhost": LocalhostLookup{},
	}
}
