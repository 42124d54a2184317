package keel

import "reflect"

// Node is an immutable element of a configuration tree: a name, an
// optional scalar value, a set of attributes, and an ordered sequence of
// children. Repeated child names are allowed and represent list-like
// structure; insertion order is preserved and determines default indexing
// for path expressions.
//
// A Node never changes after construction. Every With/Without method
// returns a new Node; subtrees not touched by an edit are shared by
// reference between the old and new tree. A reader holding a Node
// therefore sees a stable snapshot even while a Configuration installs a
// new root concurrently.
type Node struct {
	name     string
	value    any
	attrs    map[string]any
	children []*Node
}

// NewNode creates a leaf node with the given name and no value.
func NewNode(name string) *Node {
	return &Node{name: name}
}

// NewValueNode creates a leaf node carrying a scalar value.
func NewValueNode(name string, value any) *Node {
	return &Node{name: name, value: value}
}

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// Value returns the node's scalar value, or nil if it has none.
func (n *Node) Value() any { return n.value }

// Attribute returns the named attribute value and whether it is set.
func (n *Node) Attribute(name string) (any, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// Attributes returns a copy of the node's attribute map.
func (n *Node) Attributes() map[string]any {
	if len(n.attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(n.attrs))
	for k, v := range n.attrs {
		out[k] = v
	}
	return out
}

// Children returns a copy of the ordered child sequence.
func (n *Node) Children() []*Node {
	if len(n.children) == 0 {
		return nil
	}
	return append([]*Node(nil), n.children...)
}

// ChildrenNamed returns all children with the given name, in order.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the index-th child with the given name (0-based).
func (n *Node) Child(name string, index int) (*Node, bool) {
	if index < 0 {
		return nil, false
	}
	seen := 0
	for _, c := range n.children {
		if c.name != name {
			continue
		}
		if seen == index {
			return c, true
		}
		seen++
	}
	return nil, false
}

// ChildCount returns the number of children, or the number of children
// with the given name if name is non-empty.
func (n *Node) ChildCount(name string) int {
	if name == "" {
		return len(n.children)
	}
	count := 0
	for _, c := range n.children {
		if c.name == name {
			count++
		}
	}
	return count
}

// WithValue returns a copy of the node carrying the given value.
func (n *Node) WithValue(value any) *Node {
	out := n.clone()
	out.value = value
	return out
}

// WithAttribute returns a copy of the node with the attribute set.
func (n *Node) WithAttribute(name string, value any) *Node {
	out := n.clone()
	attrs := make(map[string]any, len(n.attrs)+1)
	for k, v := range n.attrs {
		attrs[k] = v
	}
	attrs[name] = value
	out.attrs = attrs
	return out
}

// WithoutAttribute returns a copy of the node with the attribute removed.
// Returns the receiver unchanged if the attribute is not set.
func (n *Node) WithoutAttribute(name string) *Node {
	if _, ok := n.attrs[name]; !ok {
		return n
	}
	out := n.clone()
	attrs := make(map[string]any, len(n.attrs)-1)
	for k, v := range n.attrs {
		if k != name {
			attrs[k] = v
		}
	}
	out.attrs = attrs
	return out
}

// WithChild returns a copy of the node with child appended to the ordered
// child sequence.
func (n *Node) WithChild(child *Node) *Node {
	out := n.clone()
	out.children = append(append([]*Node(nil), n.children...), child)
	return out
}

// ReplaceChild returns a copy of the node with the child identified by
// reference replaced. Returns the receiver unchanged if old is not a
// direct child.
func (n *Node) ReplaceChild(old, replacement *Node) *Node {
	for i, c := range n.children {
		if c == old {
			out := n.clone()
			children := append([]*Node(nil), n.children...)
			children[i] = replacement
			out.children = children
			return out
		}
	}
	return n
}

// WithoutChild returns a copy of the node with exactly one child removed.
// The child is identified by reference first, falling back to the first
// structurally equal child. Returns the receiver unchanged if no child
// matches.
func (n *Node) WithoutChild(child *Node) *Node {
	idx := -1
	for i, c := range n.children {
		if c == child {
			idx = i
			break
		}
	}
	if idx < 0 {
		for i, c := range n.children {
			if c.Equal(child) {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return n
	}
	out := n.clone()
	children := make([]*Node, 0, len(n.children)-1)
	children = append(children, n.children[:idx]...)
	children = append(children, n.children[idx+1:]...)
	out.children = children
	return out
}

// WithoutChildren returns a copy of the node with every child of the given
// name removed. Returns the receiver unchanged if no child matches.
func (n *Node) WithoutChildren(name string) *Node {
	var children []*Node
	removed := false
	for _, c := range n.children {
		if c.name == name {
			removed = true
			continue
		}
		children = append(children, c)
	}
	if !removed {
		return n
	}
	out := n.clone()
	out.children = children
	return out
}

// Equal reports structural equality: same name, value, attributes, and
// children (recursively, in order). Reference identity is not required;
// two independently built trees with the same shape are equal.
func (n *Node) Equal(other *Node) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	if n.name != other.name || !equalValue(n.value, other.value) {
		return false
	}
	if len(n.attrs) != len(other.attrs) || len(n.children) != len(other.children) {
		return false
	}
	for k, v := range n.attrs {
		ov, ok := other.attrs[k]
		if !ok || !equalValue(v, ov) {
			return false
		}
	}
	for i, c := range n.children {
		if !c.Equal(other.children[i]) {
			return false
		}
	}
	return true
}

// equalValue compares two scalar values without panicking on
// uncomparable types such as slices.
func equalValue(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// clone copies the node itself; attribute map and child slice are shared
// until a With/Without method replaces them.
func (n *Node) clone() *Node {
	out := *n
	return &out
}
