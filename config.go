package keel

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Configuration is a hierarchical key/value store backed by an immutable
// Node tree. It owns exactly one root reference at a time; every
// structural change builds a new tree and installs its root atomically,
// so readers that already hold a snapshot are never affected by a
// concurrent edit.
//
// Values are interpolated lazily: variables are expanded on every read,
// never at load time and never cached, because lookups such as env and
// sys are time-varying.
type Configuration struct {
	mu     sync.RWMutex
	root   *Node
	interp *Interpolator
	delim  ListDelimiterHandler
}

// New creates an empty Configuration with the built-in prefix lookups
// registered and the process default list delimiter (comma, backslash
// escaped).
func New() *Configuration {
	return NewWithRoot(NewNode(""))
}

// NewWithRoot creates a Configuration over an existing tree, typically
// produced by a Source.
func NewWithRoot(root *Node) *Configuration {
	c := &Configuration{
		root:   root,
		interp: NewInterpolator(),
		delim:  DefaultHandler{},
	}
	c.interp.SetDefault(configLookup{c})
	return c
}

// Root returns the current tree snapshot. The returned Node is immutable
// and remains valid after subsequent edits to the Configuration.
func (c *Configuration) Root() *Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.root
}

// setRoot installs a new tree root.
func (c *Configuration) setRoot(root *Node) {
	c.mu.Lock()
	c.root = root
	c.mu.Unlock()
}

// Interpolator returns the Configuration's interpolator for registering
// additional prefix lookups.
func (c *Configuration) Interpolator() *Interpolator {
	return c.interp
}

// SetDelimiterHandler overrides the list delimiter handler for this
// Configuration.
func (c *Configuration) SetDelimiterHandler(h ListDelimiterHandler) {
	c.mu.Lock()
	c.delim = h
	c.mu.Unlock()
}

// DelimiterHandler returns the active list delimiter handler.
func (c *Configuration) DelimiterHandler() ListDelimiterHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.delim
}

// Property returns the raw, uninterpolated value at key and whether the
// key matched. For repeated elements the first occurrence wins.
func (c *Configuration) Property(key string) (any, bool) {
	values, err := c.rawValues(key)
	if err != nil || len(values) == 0 {
		return nil, false
	}
	return values[0], true
}

// Contains reports whether key matches at least one value-bearing node
// or attribute.
func (c *Configuration) Contains(key string) bool {
	_, ok := c.Property(key)
	return ok
}

// rawValues collects the raw values of every node (or attribute) matched
// by key, in document order. Nodes without a value are skipped.
func (c *Configuration) rawValues(key string) ([]any, error) {
	expr, err := ParseExpr(key)
	if err != nil {
		return nil, err
	}
	var values []any
	for _, m := range expr.Query(c.Root()) {
		if v := m.Value(); v != nil {
			values = append(values, v)
		}
	}
	return values, nil
}

// scalar resolves key to a single interpolated scalar: the first element
// of the first matched value, expanded through the interpolator if it is
// a string.
func (c *Configuration) scalar(key string) (any, error) {
	values, err := c.rawValues(key)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	s, ok := values[0].(string)
	if !ok {
		return values[0], nil
	}
	first := c.DelimiterHandler().Split(s)[0]
	return c.interp.Interpolate(first)
}

// String returns the interpolated string value at key. A list-valued
// property yields its first element only.
func (c *Configuration) String(key string) (string, error) {
	v, err := c.scalar(key)
	if err != nil {
		return "", err
	}
	return toString(v), nil
}

// StringList returns every element at key, each independently
// interpolated. Repeated nodes contribute in order; scalar string values
// are split by the delimiter handler.
func (c *Configuration) StringList(key string) ([]string, error) {
	values, err := c.rawValues(key)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	delim := c.DelimiterHandler()
	var out []string
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			out = append(out, toString(v))
			continue
		}
		for _, elem := range delim.Split(s) {
			expanded, err := c.interp.Interpolate(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded)
		}
	}
	return out, nil
}

// Int returns the value at key converted to int.
func (c *Configuration) Int(key string) (int, error) {
	n, err := c.Int64(key)
	return int(n), err
}

// Int64 returns the value at key converted to int64.
func (c *Configuration) Int64(key string) (int64, error) {
	v, err := c.scalar(key)
	if err != nil {
		return 0, err
	}
	return toInt64(key, v)
}

// Float returns the value at key converted to float64.
func (c *Configuration) Float(key string) (float64, error) {
	v, err := c.scalar(key)
	if err != nil {
		return 0, err
	}
	return toFloat64(key, v)
}

// Bool returns the value at key converted to bool. Accepts true/false,
// yes/no, on/off, and 1/0, case-insensitively.
func (c *Configuration) Bool(key string) (bool, error) {
	v, err := c.scalar(key)
	if err != nil {
		return false, err
	}
	return toBool(key, v)
}

// Duration returns the value at key parsed as a time.Duration.
func (c *Configuration) Duration(key string) (time.Duration, error) {
	v, err := c.scalar(key)
	if err != nil {
		return 0, err
	}
	return toDuration(key, v)
}

// Keys returns the canonical key of every value-bearing node and every
// attribute, in document order, without duplicates.
func (c *Configuration) Keys() []string {
	var keys []string
	seen := make(map[string]bool)
	var walk func(n *Node, parentKey string)
	walk = func(n *Node, parentKey string) {
		key := NodeKey(n, parentKey)
		if n.Value() != nil && !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		for _, attr := range sortedAttrNames(n) {
			ak := AttributeKey(key, attr)
			if !seen[ak] {
				seen[ak] = true
				keys = append(keys, ak)
			}
		}
		for _, child := range n.Children() {
			walk(child, key)
		}
	}
	walk(c.Root(), "")
	return keys
}

// Set replaces the value at key, synthesizing missing path nodes. A
// string value is split by the delimiter handler; multiple elements
// replace the key with repeated sibling nodes.
func (c *Configuration) Set(key string, value any) error {
	expr, err := ParseExpr(key)
	if err != nil {
		return err
	}
	elems, isList := c.splitValue(value)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !isList || len(elems) == 1 {
		// A scalar replacing a multi-valued key collapses it to one node.
		if len(expr.Query(c.root)) > 1 {
			root, _ := expr.Remove(c.root)
			c.root = expr.AddValue(root, value)
			return nil
		}
		c.root = expr.SetValue(c.root, value)
		return nil
	}
	// Multiple elements become sibling nodes. Each is stored re-escaped
	// so the read-side split reproduces it exactly.
	h := c.delim
	root, _ := expr.Remove(c.root)
	for _, elem := range elems {
		root = expr.AddValue(root, h.Escape(elem))
	}
	c.root = root
	return nil
}

// Add appends a value at key, creating a new sibling node even when the
// key already matches. String values are split by the delimiter handler
// into one node per element.
func (c *Configuration) Add(key string, value any) error {
	expr, err := ParseExpr(key)
	if err != nil {
		return err
	}
	elems, isList := c.splitValue(value)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !isList || len(elems) == 1 {
		c.root = expr.AddValue(c.root, value)
		return nil
	}
	h := c.delim
	root := c.root
	for _, elem := range elems {
		root = expr.AddValue(root, h.Escape(elem))
	}
	c.root = root
	return nil
}

// Clear removes every node (or attribute) matched by key and reports
// whether anything was removed.
func (c *Configuration) Clear(key string) (bool, error) {
	expr, err := ParseExpr(key)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	root, removed := expr.Remove(c.root)
	c.root = root
	return removed, nil
}

// splitValue applies the delimiter handler to string values.
func (c *Configuration) splitValue(value any) ([]string, bool) {
	s, ok := value.(string)
	if !ok {
		return nil, false
	}
	return c.DelimiterHandler().Split(s), true
}

// Subset returns a view over the subtrees matched by prefix. Keys in the
// subset are the original keys minus the prefix. The subset has its own
// root (built from the matched nodes, sharing their subtrees) and its own
// interpolator whose default lookup is the subset's store and whose
// parent is this Configuration's interpolator, so prefix lookups
// registered on the parent keep working.
func (c *Configuration) Subset(prefix string) (*Configuration, error) {
	expr, err := ParseExpr(prefix)
	if err != nil {
		return nil, err
	}
	root := NewNode("")
	for _, m := range expr.Query(c.Root()) {
		if m.Attr != "" {
			continue
		}
		if root.Value() == nil && m.Node.Value() != nil {
			root = root.WithValue(m.Node.Value())
		}
		for name, v := range m.Node.Attributes() {
			root = root.WithAttribute(name, v)
		}
		for _, child := range m.Node.Children() {
			root = root.WithChild(child)
		}
	}
	sub := NewWithRoot(root)
	sub.SetDelimiterHandler(c.DelimiterHandler())
	sub.interp.SetParent(c.interp)
	return sub, nil
}

// sortedAttrNames returns the node's attribute names in sorted order so
// Keys output is deterministic.
func sortedAttrNames(n *Node) []string {
	attrs := n.Attributes()
	if len(attrs) == 0 {
		return nil
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// configLookup is the default (no-prefix) lookup of a Configuration: a
// variable name is resolved as a key in the Configuration's own store.
// It returns the raw stored string; recursive expansion is the
// interpolator's job.
type configLookup struct {
	c *Configuration
}

func (l configLookup) Lookup(name string) (string, bool) {
	values, err := l.c.rawValues(name)
	if err != nil || len(values) == 0 {
		return "", false
	}
	s, ok := values[0].(string)
	if !ok {
		return toString(values[0]), true
	}
	// A list-valued property substitutes its first element.
	return l.c.DelimiterHandler().Split(s)[0], true
}
