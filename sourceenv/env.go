package sourceenv

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/keelconf/keel"
	"github.com/keelconf/keel/internal/normalize"
)

// Options configures environment variable source behavior.
type Options struct {
	// Prefix filters vars starting with prefix (stripped before normalization).
	// Empty = load all vars.
	// Prefix matching behavior is controlled by CaseSensitive.
	Prefix string

	// CaseSensitive controls prefix matching (default: false).
	// When false, prefix matching is case-insensitive (APP_ matches app_, App_, etc.).
	// When true, prefix must match exactly.
	// Keys are always normalized to lowercase after prefix stripping.
	CaseSensitive bool
}

type envSource struct {
	opts Options
}

// New creates an environment variable source producing a node tree:
// FOO__BAR=x becomes a "bar" node with value "x" under a "foo" node.
func New(opts Options) keel.Source {
	return &envSource{opts: opts}
}

// Name identifies the source for origin tracking.
func (e *envSource) Name() string {
	if e.opts.Prefix != "" {
		return "env:" + e.opts.Prefix + "*"
	}
	return "env"
}

// Load scans environment variables, filters by prefix, normalizes keys,
// and assembles them into a tree.
func (e *envSource) Load(ctx context.Context) (*keel.Node, error) {
	entries := make(map[string]string)
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := parts[0]
		value := parts[1]

		if e.opts.Prefix != "" {
			var hasPrefix bool
			if e.opts.CaseSensitive {
				hasPrefix = strings.HasPrefix(key, e.opts.Prefix)
			} else {
				hasPrefix = strings.HasPrefix(strings.ToUpper(key), strings.ToUpper(e.opts.Prefix))
			}

			if !hasPrefix {
				continue
			}
			key = key[len(e.opts.Prefix):]
		}

		if key == "" {
			continue
		}

		// Normalize: FOO__BAR → foo.bar
		entries[normalize.ToDotPath(key)] = value
	}

	// Sorted insertion keeps the tree shape deterministic across runs.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := keel.NewNode("")
	for _, key := range keys {
		segments := normalize.SplitPath(key)
		if len(segments) == 0 {
			continue
		}
		root = insert(root, segments, entries[key])
	}
	return root, nil
}

// insert descends into the single child matching each segment, creating
// missing ones, and sets the value on the leaf.
func insert(node *keel.Node, segments []string, value string) *keel.Node {
	name := segments[0]
	if child, ok := node.Child(name, 0); ok {
		if len(segments) == 1 {
			return node.ReplaceChild(child, child.WithValue(value))
		}
		return node.ReplaceChild(child, insert(child, segments[1:], value))
	}
	if len(segments) == 1 {
		return node.WithChild(keel.NewValueNode(name, value))
	}
	return node.WithChild(insert(keel.NewNode(name), segments[1:], value))
}

// Watch returns ErrWatchNotSupported (env vars don't change at runtime).
func (e *envSource) Watch(ctx context.Context) (<-chan keel.ChangeEvent, error) {
	return nil, keel.ErrWatchNotSupported
}
