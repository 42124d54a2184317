package keel

import (
	"sort"
	"sync"
)

// Origins records which source contributed each configuration key in a
// combined Configuration.
type Origins struct {
	Keys []KeyOrigin
}

// KeyOrigin describes where one key's value came from.
type KeyOrigin struct {
	Key        string // canonical key path (e.g., "database.host")
	SourceName string // source identifier (e.g., "file:config.yaml")
}

// Source returns the source name that contributed key.
func (o *Origins) Source(key string) (string, bool) {
	for _, ko := range o.Keys {
		if ko.Key == key {
			return ko.SourceName, true
		}
	}
	return "", false
}

func newOrigins(m map[string]string) *Origins {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	o := &Origins{Keys: make([]KeyOrigin, 0, len(m))}
	for _, k := range keys {
		o.Keys = append(o.Keys, KeyOrigin{Key: k, SourceName: m[k]})
	}
	return o
}

var originStore sync.Map

// GetOrigins returns origin metadata for a loaded Configuration.
// Thread-safe.
func GetOrigins(cfg *Configuration) (*Origins, bool) {
	if cfg == nil {
		return nil, false
	}

	value, ok := originStore.Load(cfg)
	if !ok {
		return nil, false
	}

	origins, ok := value.(*Origins)
	return origins, ok
}

func storeOrigins(cfg *Configuration, origins *Origins) {
	if cfg != nil && origins != nil {
		originStore.Store(cfg, origins)
	}
}

func deleteOrigins(cfg *Configuration) {
	if cfg != nil {
		originStore.Delete(cfg)
	}
}
