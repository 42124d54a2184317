package lookupconst

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Lookup resolves "fully.qualified.Name.FIELD" references against an
// explicitly registered table of values. Go has no runtime access to
// arbitrary package-level constants, so hosts register the symbols (or
// whole structs) they want resolvable; reflection then descends into
// exported struct fields of registered values.
//
// Resolved strings are cached: registered constants are expected to be
// constant for the process lifetime. Register invalidates the cache.
type Lookup struct {
	mu    sync.RWMutex
	vals  map[string]any
	cache map[string]string
}

// New creates an empty constant lookup.
func New() *Lookup {
	return &Lookup{
		vals:  make(map[string]any),
		cache: make(map[string]string),
	}
}

// Register binds a qualified name to a value. A struct value makes its
// exported fields resolvable as "name.Field" (recursively).
func (l *Lookup) Register(name string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.vals[name] = value
	l.cache = make(map[string]string)
}

// Lookup resolves a qualified name. The longest registered prefix on a
// dot boundary wins; remaining segments are resolved as exported struct
// fields.
func (l *Lookup) Lookup(name string) (string, bool) {
	l.mu.RLock()
	if cached, ok := l.cache[name]; ok {
		l.mu.RUnlock()
		return cached, true
	}
	l.mu.RUnlock()

	value, rest, ok := l.match(name)
	if !ok {
		return "", false
	}
	resolved, ok := descend(value, rest)
	if !ok {
		return "", false
	}
	s := fmt.Sprintf("%v", resolved)

	l.mu.Lock()
	l.cache[name] = s
	l.mu.Unlock()
	return s, true
}

// match finds the longest registered prefix of name and returns its
// value with the unmatched trailing segments.
func (l *Lookup) match(name string) (any, []string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if v, ok := l.vals[name]; ok {
		return v, nil, true
	}
	probe := name
	var rest []string
	for {
		i := strings.LastIndexByte(probe, '.')
		if i < 0 {
			return nil, nil, false
		}
		rest = append([]string{probe[i+1:]}, rest...)
		probe = probe[:i]
		if v, ok := l.vals[probe]; ok {
			return v, rest, true
		}
	}
}

// descend resolves the remaining segments as exported struct fields.
func descend(value any, segments []string) (any, bool) {
	for _, seg := range segments {
		v := reflect.ValueOf(value)
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil, false
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return nil, false
		}
		field := v.FieldByName(seg)
		if !field.IsValid() || !field.CanInterface() {
			return nil, false
		}
		value = field.Interface()
	}
	return value, true
}
