package sourcefile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/keelconf/keel"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Options configures file source behavior.
type Options struct {
	// Format: "yaml", "json", or "toml". Auto-detected from extension if empty.
	Format string

	// Required: if true, missing files cause an error. Default: false
	// (returns an empty tree).
	Required bool
}

type fileSource struct {
	path string
	opts Options
}

// New creates a file-based configuration source. The file's nested
// structure becomes the node tree: maps become child nodes, arrays become
// repeated nodes with the same name.
func New(path string, opts Options) keel.Source {
	return &fileSource{
		path: path,
		opts: opts,
	}
}

// Name identifies the source for origin tracking.
func (f *fileSource) Name() string {
	return "file:" + filepath.Base(f.path)
}

// Load reads and parses the file into a node tree.
func (f *fileSource) Load(ctx context.Context) (*keel.Node, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			if f.opts.Required {
				return nil, fmt.Errorf("required config file not found: %s: %w", f.path, err)
			}
			return keel.NewNode(""), nil
		}
		return nil, fmt.Errorf("read config file %s: %w", f.path, err)
	}

	format := f.opts.Format
	if format == "" {
		format = inferFormat(f.path)
	}

	var raw map[string]any
	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse YAML file %s: %w", f.path, err)
		}
	case "json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse JSON file %s: %w", f.path, err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse TOML file %s: %w", f.path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: yaml, json, toml)", format)
	}

	root := keel.NewNode("")
	for _, child := range buildNodes("", raw) {
		root = root.WithChild(child)
	}
	return root, nil
}

// Watch returns ErrWatchNotSupported; pair with an external file watcher
// if live reload is needed.
func (f *fileSource) Watch(ctx context.Context) (<-chan keel.ChangeEvent, error) {
	return nil, keel.ErrWatchNotSupported
}

// buildNodes converts one parsed value into nodes. A map contributes its
// entries as children of a single node; an array contributes one node per
// element, all sharing the name, preserving element order.
func buildNodes(name string, v any) []*keel.Node {
	switch x := v.(type) {
	case map[string]any:
		node := keel.NewNode(name)
		for _, key := range sortedKeys(x) {
			for _, child := range buildNodes(key, x[key]) {
				node = node.WithChild(child)
			}
		}
		return []*keel.Node{node}
	case map[any]any:
		// yaml.v3 produces this for non-scalar keys; keep string keys only.
		node := keel.NewNode(name)
		strKeys := make(map[string]any, len(x))
		for k, v := range x {
			if s, ok := k.(string); ok {
				strKeys[s] = v
			}
		}
		for _, key := range sortedKeys(strKeys) {
			for _, child := range buildNodes(key, strKeys[key]) {
				node = node.WithChild(child)
			}
		}
		return []*keel.Node{node}
	case []any:
		var nodes []*keel.Node
		for _, elem := range x {
			nodes = append(nodes, buildNodes(name, elem)...)
		}
		return nodes
	case []map[string]any:
		// go-toml may produce this for arrays of tables.
		var nodes []*keel.Node
		for _, elem := range x {
			nodes = append(nodes, buildNodes(name, elem)...)
		}
		return nodes
	default:
		return []*keel.Node{keel.NewValueNode(name, normalizeScalar(v))}
	}
}

// normalizeScalar widens parser-specific numeric types so the same file
// content yields the same tree regardless of format: every integer kind
// becomes int64 (yaml.v3 decodes int where go-toml decodes int64) and
// float32 becomes float64.
func normalizeScalar(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// inferFormat guesses the format from the file extension.
func inferFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	default:
		return ""
	}
}
