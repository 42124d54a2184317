package keel

import (
	"strconv"
	"strings"
)

// Expression is a parsed path: a sequence of segments, each naming a
// child, an optional 0-based occurrence index, and an optional attribute
// selector on the final segment. Expressions are stateless once built and
// may be reused across trees and goroutines.
//
// Path syntax: dot-separated segments, "(n)" selects the n-th occurrence
// of a repeated child name, "[@attr]" selects an attribute instead of
// descending further.
//
//	database.tables.table(1).name
//	server.listener[@port]
type Expression struct {
	raw      string
	segments []segment
}

type segment struct {
	name     string
	index    int
	hasIndex bool
	attr     string // set only on the final segment
}

// Match is a single query result: a node, or an attribute of a node when
// the expression ends in an attribute selector.
type Match struct {
	Node *Node
	Attr string // empty for node matches
}

// Value returns the matched value: the attribute value for attribute
// matches, the node's scalar value otherwise.
func (m Match) Value() any {
	if m.Attr != "" {
		v, _ := m.Node.Attribute(m.Attr)
		return v
	}
	return m.Node.Value()
}

// ParseExpr parses a path string into an Expression. Malformed input is
// rejected here, before any tree traversal, with a *PathSyntaxError.
// The empty path is valid and addresses the root node itself.
func ParseExpr(path string) (*Expression, error) {
	expr := &Expression{raw: path}
	if path == "" {
		return expr, nil
	}

	pos := 0
	for _, part := range strings.Split(path, ".") {
		if len(expr.segments) > 0 && expr.segments[len(expr.segments)-1].attr != "" {
			return nil, &PathSyntaxError{Path: path, Offset: pos, Reason: "attribute selector must terminate the path"}
		}
		seg, err := parseSegment(path, part, pos)
		if err != nil {
			return nil, err
		}
		expr.segments = append(expr.segments, seg)
		pos += len(part) + 1
	}
	return expr, nil
}

// MustParseExpr is like ParseExpr but panics on malformed input. For use
// with constant paths known to be valid.
func MustParseExpr(path string) *Expression {
	expr, err := ParseExpr(path)
	if err != nil {
		panic(err)
	}
	return expr
}

// parseSegment parses one dot-separated part: name[(index)][[@attr]].
func parseSegment(path, part string, pos int) (segment, error) {
	var seg segment
	rest := part

	// Attribute selector, if present, is the trailing token.
	if i := strings.Index(rest, "[@"); i >= 0 {
		if !strings.HasSuffix(rest, "]") {
			return seg, &PathSyntaxError{Path: path, Offset: pos + i, Reason: "unterminated attribute selector"}
		}
		attr := rest[i+2 : len(rest)-1]
		if attr == "" {
			return seg, &PathSyntaxError{Path: path, Offset: pos + i, Reason: "empty attribute name"}
		}
		if strings.ContainsAny(attr, "[]()") {
			return seg, &PathSyntaxError{Path: path, Offset: pos + i, Reason: "invalid attribute name"}
		}
		seg.attr = attr
		rest = rest[:i]
	}

	// Occurrence index.
	if i := strings.IndexByte(rest, '('); i >= 0 {
		if !strings.HasSuffix(rest, ")") {
			return seg, &PathSyntaxError{Path: path, Offset: pos + i, Reason: "unterminated index"}
		}
		idx, err := strconv.Atoi(rest[i+1 : len(rest)-1])
		if err != nil || idx < 0 {
			return seg, &PathSyntaxError{Path: path, Offset: pos + i, Reason: "index must be a non-negative integer"}
		}
		seg.index = idx
		seg.hasIndex = true
		rest = rest[:i]
	}

	if rest == "" && seg.attr == "" {
		return seg, &PathSyntaxError{Path: path, Offset: pos, Reason: "empty path segment"}
	}
	if seg.hasIndex && rest == "" {
		return seg, &PathSyntaxError{Path: path, Offset: pos, Reason: "index requires a segment name"}
	}
	if strings.ContainsAny(rest, "[]()") {
		return seg, &PathSyntaxError{Path: path, Offset: pos, Reason: "unexpected bracket in segment name"}
	}
	seg.name = rest
	return seg, nil
}

// String returns the original path string.
func (e *Expression) String() string { return e.raw }

// Query evaluates the expression against a tree, top-down. Each segment
// narrows the candidate set to matching children; a segment that matches
// nothing yields an empty result, never an error. A repeated child name
// without an explicit index matches all occurrences.
func (e *Expression) Query(root *Node) []Match {
	if root == nil {
		return nil
	}
	candidates := []*Node{root}
	for i, seg := range e.segments {
		last := i == len(e.segments)-1
		if last && seg.attr != "" {
			return matchAttributes(candidates, seg)
		}
		candidates = narrow(candidates, seg)
		if len(candidates) == 0 {
			return nil
		}
	}
	out := make([]Match, len(candidates))
	for i, n := range candidates {
		out[i] = Match{Node: n}
	}
	return out
}

// narrow filters children of the candidate set by name and optional index.
func narrow(candidates []*Node, seg segment) []*Node {
	var next []*Node
	for _, n := range candidates {
		if seg.hasIndex {
			if c, ok := n.Child(seg.name, seg.index); ok {
				next = append(next, c)
			}
			continue
		}
		next = append(next, n.ChildrenNamed(seg.name)...)
	}
	return next
}

// matchAttributes resolves the final attribute selector. A segment name,
// if present, first narrows to the named children; the attribute is then
// read off each surviving node. Nodes without the attribute do not match.
func matchAttributes(candidates []*Node, seg segment) []Match {
	if seg.name != "" {
		candidates = narrow(candidates, seg)
	}
	var out []Match
	for _, n := range candidates {
		if _, ok := n.Attribute(seg.attr); ok {
			out = append(out, Match{Node: n, Attr: seg.attr})
		}
	}
	return out
}

// NodeKey produces the canonical path for a node under the given parent
// key. Used to report and key matched results; the inverse of parsing for
// index-free paths.
func NodeKey(node *Node, parentKey string) string {
	if node.Name() == "" {
		return parentKey
	}
	if parentKey == "" {
		return node.Name()
	}
	return parentKey + "." + node.Name()
}

// AttributeKey produces the canonical path for an attribute of the node
// identified by parentKey.
func AttributeKey(parentKey, attr string) string {
	return parentKey + "[@" + attr + "]"
}

// SetValue returns a new root in which every node matched by the
// expression carries the given value (or attribute value, for attribute
// selectors). If nothing matches, the path is synthesized: missing
// intermediate nodes are created empty down to the leaf and the new leaf
// is added. The receiver tree is never modified.
func (e *Expression) SetValue(root *Node, value any) *Node {
	if len(e.segments) == 0 {
		return root.WithValue(value)
	}
	return setRec(root, e.segments, value)
}

func setRec(node *Node, segs []segment, value any) *Node {
	seg := segs[0]
	last := len(segs) == 1

	if last && seg.attr != "" {
		if seg.name == "" {
			return node.WithAttribute(seg.attr, value)
		}
		targets := narrow([]*Node{node}, seg)
		if len(targets) == 0 {
			return node.WithChild(NewNode(seg.name).WithAttribute(seg.attr, value))
		}
		out := node
		for _, t := range targets {
			out = out.ReplaceChild(t, t.WithAttribute(seg.attr, value))
		}
		return out
	}

	targets := narrow([]*Node{node}, seg)
	if len(targets) == 0 {
		return node.WithChild(synthesize(segs, value))
	}
	out := node
	for _, t := range targets {
		if last {
			out = out.ReplaceChild(t, t.WithValue(value))
		} else {
			out = out.ReplaceChild(t, setRec(t, segs[1:], value))
		}
	}
	return out
}

// synthesize builds a fresh path of nodes for the remaining segments,
// ending in a leaf carrying the value.
func synthesize(segs []segment, value any) *Node {
	seg := segs[0]
	if len(segs) == 1 {
		if seg.attr != "" {
			return NewNode(seg.name).WithAttribute(seg.attr, value)
		}
		return NewValueNode(seg.name, value)
	}
	return NewNode(seg.name).WithChild(synthesize(segs[1:], value))
}

// AddValue returns a new root with a fresh leaf appended at the path,
// regardless of existing matches. Intermediate segments descend into the
// last existing matching child, creating missing ones; the final segment
// always produces a new sibling node. This is how repeated-name list
// structure is built up.
func (e *Expression) AddValue(root *Node, value any) *Node {
	if len(e.segments) == 0 {
		return root.WithValue(value)
	}
	return addRec(root, e.segments, value)
}

func addRec(node *Node, segs []segment, value any) *Node {
	seg := segs[0]

	if len(segs) == 1 {
		if seg.attr != "" {
			if seg.name == "" {
				return node.WithAttribute(seg.attr, value)
			}
			if c, ok := lastMatch(node, seg); ok {
				return node.ReplaceChild(c, c.WithAttribute(seg.attr, value))
			}
			return node.WithChild(NewNode(seg.name).WithAttribute(seg.attr, value))
		}
		return node.WithChild(NewValueNode(seg.name, value))
	}

	if c, ok := lastMatch(node, seg); ok {
		return node.ReplaceChild(c, addRec(c, segs[1:], value))
	}
	return node.WithChild(synthesize(segs, value))
}

// lastMatch returns the last child matching the segment, honoring an
// explicit index.
func lastMatch(node *Node, seg segment) (*Node, bool) {
	if seg.hasIndex {
		return node.Child(seg.name, seg.index)
	}
	named := node.ChildrenNamed(seg.name)
	if len(named) == 0 {
		return nil, false
	}
	return named[len(named)-1], true
}

// Remove returns a new root with every matched node (or attribute)
// removed, and reports whether anything was removed. Removing a node
// removes its whole subtree; intermediate nodes left childless are kept.
func (e *Expression) Remove(root *Node) (*Node, bool) {
	if len(e.segments) == 0 {
		return root, false
	}
	return removeRec(root, e.segments)
}

func removeRec(node *Node, segs []segment) (*Node, bool) {
	seg := segs[0]
	last := len(segs) == 1

	if last && seg.attr != "" {
		targets := []*Node{node}
		if seg.name != "" {
			targets = narrow([]*Node{node}, seg)
		}
		out := node
		removed := false
		for _, t := range targets {
			if _, ok := t.Attribute(seg.attr); !ok {
				continue
			}
			removed = true
			if t == node {
				out = out.WithoutAttribute(seg.attr)
			} else {
				out = out.ReplaceChild(t, t.WithoutAttribute(seg.attr))
			}
		}
		return out, removed
	}

	targets := narrow([]*Node{node}, seg)
	if len(targets) == 0 {
		return node, false
	}
	out := node
	removed := false
	if last {
		for _, t := range targets {
			out = out.WithoutChild(t)
			removed = true
		}
		return out, removed
	}
	for _, t := range targets {
		if sub, ok := removeRec(t, segs[1:]); ok {
			out = out.ReplaceChild(t, sub)
			removed = true
		}
	}
	return out, removed
}
