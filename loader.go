package keel

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"
)

// Loader assembles a Configuration from multiple tree sources. Sources
// are processed in order: a scalar present in a later source overrides
// the same key from an earlier one, while repeated elements union.
// Thread-safe for reads of the produced Configuration, not for
// concurrent Loader mutation.
type Loader struct {
	sources []Source
	delim   ListDelimiterHandler
}

// NewLoader creates a Loader with no sources and the default list
// delimiter handler.
func NewLoader() *Loader {
	return &Loader{
		sources: make([]Source, 0),
		delim:   DefaultHandler{},
	}
}

// WithSource adds a source. Sources are processed in order (later
// override earlier).
func (l *Loader) WithSource(src Source) *Loader {
	l.sources = append(l.sources, src)
	return l
}

// WithDelimiterHandler sets the delimiter handler installed on loaded
// Configurations.
func (l *Loader) WithDelimiterHandler(h ListDelimiterHandler) *Loader {
	l.delim = h
	return l
}

// Load reads all sources, combines their trees, and returns a
// Configuration over the combined tree. Per-key origins are recorded and
// retrievable via GetOrigins.
func (l *Loader) Load(ctx context.Context) (*Configuration, error) {
	// Step 1: load each source and combine trees in order.
	combined := NewNode("")
	origins := make(map[string]string)

	for _, source := range l.sources {
		tree, err := source.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load source %s: %w", source.Name(), err)
		}
		if tree == nil {
			continue
		}
		combined = combineNodes(combined, tree)

		// Step 2: record origins for every key the source contributed.
		// Later sources override earlier ones, matching value semantics.
		for _, key := range treeKeys(tree) {
			origins[key] = source.Name()
		}
	}

	// Step 3: build the Configuration and attach origin metadata.
	cfg := NewWithRoot(combined)
	cfg.SetDelimiterHandler(l.delim)
	storeOrigins(cfg, newOrigins(origins))
	return cfg, nil
}

// Watch monitors sources for changes and reloads the configuration.
// Returns: snapshots channel, errors channel, initial load error.
// Changes are debounced (100ms). Sources that do not support watching
// are skipped.
func (l *Loader) Watch(ctx context.Context) (<-chan Snapshot, <-chan error, error) {
	initialCfg, err := l.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("initial load failed: %w", err)
	}

	snapshotCh := make(chan Snapshot)
	errorCh := make(chan error)

	go l.watchLoop(ctx, initialCfg, snapshotCh, errorCh)

	return snapshotCh, errorCh, nil
}

// combineNodes merges two trees; values and attributes from b override
// a. A child name occurring exactly once in both trees is combined
// recursively; repeated names keep all occurrences from both, a's first.
func combineNodes(a, b *Node) *Node {
	out := NewNode(a.Name())
	if b.Value() != nil {
		out = out.WithValue(b.Value())
	} else if a.Value() != nil {
		out = out.WithValue(a.Value())
	}
	for name, v := range a.Attributes() {
		out = out.WithAttribute(name, v)
	}
	for name, v := range b.Attributes() {
		out = out.WithAttribute(name, v)
	}

	combinedFromB := make(map[*Node]bool)
	for _, ca := range a.Children() {
		bNamed := b.ChildrenNamed(ca.Name())
		if len(bNamed) == 1 && a.ChildCount(ca.Name()) == 1 {
			out = out.WithChild(combineNodes(ca, bNamed[0]))
			combinedFromB[bNamed[0]] = true
			continue
		}
		out = out.WithChild(ca)
	}
	for _, cb := range b.Children() {
		if !combinedFromB[cb] {
			out = out.WithChild(cb)
		}
	}
	return out
}

// treeKeys returns the canonical key of every value-bearing node and
// attribute in the tree.
func treeKeys(root *Node) []string {
	var keys []string
	var walk func(n *Node, parentKey string)
	walk = func(n *Node, parentKey string) {
		key := NodeKey(n, parentKey)
		if n.Value() != nil {
			keys = append(keys, key)
		}
		for _, attr := range sortedAttrNames(n) {
			keys = append(keys, AttributeKey(key, attr))
		}
		for _, child := range n.Children() {
			walk(child, key)
		}
	}
	walk(root, "")
	return keys
}

// watchLoop monitors sources for changes and reloads the configuration,
// handling debouncing, snapshot emission, and cleanup.
func (l *Loader) watchLoop(ctx context.Context, initialCfg *Configuration, snapshotCh chan<- Snapshot, errorCh chan<- error) {
	defer close(snapshotCh)
	defer close(errorCh)

	// Emit initial snapshot
	currentVersion := int64(1)
	snapshotCh <- Snapshot{
		Config:   initialCfg,
		Version:  currentVersion,
		LoadedAt: time.Now(),
		Source:   "initial",
	}

	// Start watching all sources
	changeChannels := make([]<-chan ChangeEvent, 0, len(l.sources))
	cancelFuncs := make([]context.CancelFunc, 0, len(l.sources))

	for _, source := range l.sources {
		sourceCtx, cancel := context.WithCancel(ctx)
		cancelFuncs = append(cancelFuncs, cancel)

		changeCh, err := source.Watch(sourceCtx)
		if err != nil {
			if errors.Is(err, ErrWatchNotSupported) {
				cancel()
				continue
			}
			select {
			case errorCh <- fmt.Errorf("watch source %s: %w", source.Name(), err):
			case <-ctx.Done():
				cancel()
				return
			}
			cancel()
			continue
		}

		changeChannels = append(changeChannels, changeCh)
	}

	// If no sources support watching, we're done
	if len(changeChannels) == 0 {
		return
	}

	var debounceTimer *time.Timer
	const debounceDelay = 100 * time.Millisecond

	// Merge all change channels into one
	mergedChanges := make(chan ChangeEvent)
	go func() {
		defer close(mergedChanges)
		for {
			// Use reflection to select from multiple channels
			cases := make([]reflect.SelectCase, len(changeChannels)+1)

			cases[0] = reflect.SelectCase{
				Dir:  reflect.SelectRecv,
				Chan: reflect.ValueOf(ctx.Done()),
			}

			for i, ch := range changeChannels {
				cases[i+1] = reflect.SelectCase{
					Dir:  reflect.SelectRecv,
					Chan: reflect.ValueOf(ch),
				}
			}

			chosen, value, ok := reflect.Select(cases)

			if chosen == 0 {
				return
			}

			if !ok {
				// Remove this channel from the list
				changeChannels = append(changeChannels[:chosen-1], changeChannels[chosen:]...)
				if len(changeChannels) == 0 {
					return
				}
				continue
			}

			event, ok := value.Interface().(ChangeEvent)
			if !ok {
				continue
			}

			select {
			case mergedChanges <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Main watch loop
	for {
		select {
		case <-ctx.Done():
			for _, cancel := range cancelFuncs {
				cancel()
			}
			return

		case event, ok := <-mergedChanges:
			if !ok {
				return
			}

			// Capture the cause to avoid closure issues with loop variable
			cause := event.Cause

			// Debounce: reset timer on each event
			if debounceTimer != nil {
				debounceTimer.Stop()
			}

			debounceTimer = time.AfterFunc(debounceDelay, func() {
				newCfg, err := l.Load(ctx)
				if err != nil {
					// Send error, keep previous config
					select {
					case errorCh <- fmt.Errorf("reload failed: %w", err):
					case <-ctx.Done():
					}
					return
				}

				currentVersion++
				snapshot := Snapshot{
					Config:   newCfg,
					Version:  currentVersion,
					LoadedAt: time.Now(),
					Source:   cause,
				}

				select {
				case snapshotCh <- snapshot:
				case <-ctx.Done():
				}
			})
		}
	}
}
