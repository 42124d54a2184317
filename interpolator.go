package keel

import (
	"strings"
	"sync"
)

// Variable marker syntax recognized by the Interpolator.
const (
	varStart = "${"
	varEnd   = "}"
	// An escaped marker "$${...}" is copied through with the first '$'
	// removed and is not treated as a variable.
	escapePrefix = '$'
)

// Interpolator expands "${[prefix:]name}" variables embedded in property
// values. Prefixes dispatch to registered Lookups; content without a
// registered prefix goes to the default Lookup. Resolved replacement text
// is itself re-interpolated, so variables may chain. A set of variables
// currently being resolved is carried through the recursion: a name that
// re-enters the set fails the whole call with a *CycleError.
//
// The prefix table and default lookup may be swapped at any time; table
// access is serialized so a registration never races an in-flight
// Interpolate call.
type Interpolator struct {
	mu      sync.RWMutex
	lookups map[string]Lookup
	def     Lookup
	parent  *Interpolator
}

// NewInterpolator creates an Interpolator with the built-in prefix
// lookups (env, sys, localhost) registered and no default lookup.
func NewInterpolator() *Interpolator {
	return &Interpolator{lookups: DefaultPrefixLookups()}
}

// Register binds a Lookup to a prefix, replacing any previous binding.
// Prefixes are case-sensitive.
func (ip *Interpolator) Register(prefix string, lookup Lookup) {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	if ip.lookups == nil {
		ip.lookups = make(map[string]Lookup)
	}
	ip.lookups[prefix] = lookup
}

// Deregister removes the Lookup bound to prefix and reports whether one
// was bound.
func (ip *Interpolator) Deregister(prefix string) bool {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	_, ok := ip.lookups[prefix]
	delete(ip.lookups, prefix)
	return ok
}

// SetDefault installs the Lookup consulted for content without a
// registered prefix. Typically this resolves keys against the owning
// configuration's own property store.
func (ip *Interpolator) SetDefault(lookup Lookup) {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	ip.def = lookup
}

// SetParent chains another Interpolator, consulted when a prefix (or the
// default) misses locally. The parent is referenced, never owned.
func (ip *Interpolator) SetParent(parent *Interpolator) {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	ip.parent = parent
}

// lookupFor resolves a prefix against the local table, then the parent
// chain.
func (ip *Interpolator) lookupFor(prefix string) (Lookup, bool) {
	ip.mu.RLock()
	l, ok := ip.lookups[prefix]
	parent := ip.parent
	ip.mu.RUnlock()
	if ok {
		return l, true
	}
	if parent != nil {
		return parent.lookupFor(prefix)
	}
	return nil, false
}

// lookupDefault resolves name against the default lookup chain: the
// local default first, then each parent's. A default that reports
// not-found does not stop the chain; the first hit wins.
func (ip *Interpolator) lookupDefault(name string) (string, bool) {
	ip.mu.RLock()
	def := ip.def
	parent := ip.parent
	ip.mu.RUnlock()
	if def != nil {
		if v, ok := def.Lookup(name); ok {
			return v, true
		}
	}
	if parent != nil {
		return parent.lookupDefault(name)
	}
	return "", false
}

// Interpolate expands every unescaped "${...}" in raw. Unresolvable
// variables are left in place verbatim; a reference cycle fails the whole
// call with a *CycleError and no partial result.
func (ip *Interpolator) Interpolate(raw string) (string, error) {
	if !strings.Contains(raw, varStart) {
		return raw, nil
	}
	return ip.expand(raw, make(map[string]bool), nil)
}

// expand scans s left to right. The active set and chain track variables
// being resolved on the current call stack; both are scoped to one
// top-level Interpolate call.
func (ip *Interpolator) expand(s string, active map[string]bool, chain []string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(s) {
		j := strings.Index(s[i:], varStart)
		if j < 0 {
			b.WriteString(s[i:])
			break
		}
		j += i

		// "$${" un-escapes to a literal "${"; scanning resumes after the
		// marker so variables inside the braces still resolve.
		if j > i && s[j-1] == escapePrefix {
			b.WriteString(s[i : j-1])
			b.WriteString(varStart)
			i = j + len(varStart)
			continue
		}

		end, ok := matchEnd(s, j)
		if !ok {
			// Unterminated marker: not a variable, copy through.
			b.WriteString(s[i:])
			break
		}

		content := s[j+len(varStart) : end-1]
		replacement, resolved, err := ip.resolve(content, active, chain)
		if err != nil {
			return "", err
		}
		b.WriteString(s[i:j])
		if resolved {
			b.WriteString(replacement)
		} else {
			b.WriteString(s[j:end])
		}
		i = end
	}
	return b.String(), nil
}

// matchEnd finds the end of the variable marker opening at start,
// tracking nested "${" so braces inside the content do not terminate the
// marker early. Returns the index just past the closing brace.
func matchEnd(s string, start int) (int, bool) {
	depth := 1
	i := start + len(varStart)
	for i < len(s) {
		if strings.HasPrefix(s[i:], varStart) {
			depth++
			i += len(varStart)
			continue
		}
		if s[i] == varEnd[0] {
			depth--
			i++
			if depth == 0 {
				return i, true
			}
			continue
		}
		i++
	}
	return 0, false
}

// resolve parses content as [prefix:]name and dispatches to the matching
// Lookup. A successful resolution is recursively re-interpolated before
// substitution. Lookup misses report resolved=false, which is not an
// error.
func (ip *Interpolator) resolve(content string, active map[string]bool, chain []string) (string, bool, error) {
	if active[content] {
		return "", false, &CycleError{Variable: content, Chain: append([]string(nil), chain...)}
	}

	var value string
	found := false
	if idx := strings.Index(content, ":"); idx > 0 {
		if l, ok := ip.lookupFor(content[:idx]); ok {
			value, found = l.Lookup(content[idx+1:])
		}
	}
	if !found {
		// Unknown prefixes fall through to the default lookup chain,
		// which resolves the whole content as a key.
		value, found = ip.lookupDefault(content)
	}
	if !found {
		return "", false, nil
	}

	active[content] = true
	expanded, err := ip.expand(value, active, append(chain, content))
	delete(active, content)
	if err != nil {
		return "", false, err
	}
	return expanded, true, nil
}
