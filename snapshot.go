package keel

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MaxSnapshotSize is the maximum allowed snapshot size (100MB).
const MaxSnapshotSize = 100 * 1024 * 1024

// SnapshotFormatVersion is the current snapshot format version.
const SnapshotFormatVersion = "1.0"

// Snapshot errors.
var (
	// ErrSnapshotTooLarge is returned when a snapshot exceeds MaxSnapshotSize.
	ErrSnapshotTooLarge = errors.New("keel: snapshot exceeds 100MB size limit")

	// ErrNilConfig is returned when CreateSnapshot receives a nil config.
	ErrNilConfig = errors.New("keel: config is nil")
)

// ConfigSnapshot is a point-in-time capture of a Configuration: every
// key fully interpolated, plus origin metadata for combined
// configurations. Unlike live reads, snapshot values are resolved once,
// at capture time.
type ConfigSnapshot struct {
	// Version is the snapshot format version (currently "1.0")
	Version string `json:"version"`

	// Timestamp is when the snapshot was created
	Timestamp time.Time `json:"timestamp"`

	// Config contains resolved configuration values keyed by canonical
	// path (e.g., "database.host").
	Config map[string]any `json:"config"`

	// Origins tracks the source of each key, when known.
	Origins []KeyOrigin `json:"origins,omitempty"`
}

// SnapshotOption configures snapshot creation behavior.
type SnapshotOption func(*snapshotConfig)

type snapshotConfig struct {
	excludeKeys []string
}

// WithExcludeKeys excludes the given key paths from the snapshot.
func WithExcludeKeys(keys ...string) SnapshotOption {
	return func(cfg *snapshotConfig) {
		cfg.excludeKeys = append(cfg.excludeKeys, keys...)
	}
}

// CreateSnapshot captures the current state of a Configuration. Every
// key is read through the normal accessor path, so values are
// interpolated; an interpolation cycle fails the capture.
func CreateSnapshot(cfg *Configuration, opts ...SnapshotOption) (*ConfigSnapshot, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	snapCfg := &snapshotConfig{}
	for _, opt := range opts {
		opt(snapCfg)
	}

	excluded := make(map[string]bool, len(snapCfg.excludeKeys))
	for _, k := range snapCfg.excludeKeys {
		excluded[strings.ToLower(k)] = true
	}

	flat := make(map[string]any)
	for _, key := range cfg.Keys() {
		if excluded[strings.ToLower(key)] {
			continue
		}
		raw, ok := cfg.Property(key)
		if !ok {
			continue
		}
		if _, isString := raw.(string); !isString {
			flat[key] = raw
			continue
		}
		resolved, err := cfg.String(key)
		if err != nil {
			return nil, err
		}
		flat[key] = resolved
	}

	snapshot := &ConfigSnapshot{
		Version:   SnapshotFormatVersion,
		Timestamp: time.Now().UTC(),
		Config:    flat,
	}
	if origins, ok := GetOrigins(cfg); ok {
		snapshot.Origins = origins.Keys
	}
	return snapshot, nil
}

// ExpandPath expands template variables using current time.
// For consistency with snapshot metadata, prefer WriteSnapshot which
// uses the snapshot's internal timestamp for expansion.
func ExpandPath(template string) string {
	return ExpandPathWithTime(template, time.Now())
}

// ExpandPathWithTime expands template variables using the provided timestamp.
// Replaces all {{timestamp}} occurrences with the time formatted as
// 20060102-150405. Returns the path unchanged if no template variables
// are present.
func ExpandPathWithTime(template string, t time.Time) string {
	timestamp := t.UTC().Format("20060102-150405")
	return strings.ReplaceAll(template, "{{timestamp}}", timestamp)
}

// WriteSnapshot persists a snapshot to disk with atomic write semantics.
// Supports the {{timestamp}} template variable in the path, expanded
// from snapshot.Timestamp (not current time) so the filename matches the
// internal metadata. Returns ErrSnapshotTooLarge if the serialized size
// exceeds 100MB.
func WriteSnapshot(snapshot *ConfigSnapshot, pathTemplate string) error {
	if snapshot == nil {
		return ErrNilConfig
	}

	targetPath := ExpandPathWithTime(pathTemplate, snapshot.Timestamp)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	if len(data) > MaxSnapshotSize {
		return ErrSnapshotTooLarge
	}

	// Create parent directories with 0700 permissions
	dir := filepath.Dir(targetPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0700); mkdirErr != nil {
			return mkdirErr
		}
	}

	// Temp file in the same directory so the rename is atomic
	tempPath, err := generateTempFileName(targetPath)
	if err != nil {
		return err
	}

	var tempFileCreated bool
	defer func() {
		if tempFileCreated {
			_ = os.Remove(tempPath)
		}
	}()

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return err
	}
	tempFileCreated = true

	if err := os.Rename(tempPath, targetPath); err != nil {
		return err
	}

	// Rename succeeded, the temp file is now the target
	tempFileCreated = false

	return nil
}

// generateTempFileName produces a unique sibling path for atomic writes.
// Format: targetPath + ".tmp." + randomHex
func generateTempFileName(targetPath string) (string, error) {
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	suffix := hex.EncodeToString(randomBytes)
	return targetPath + ".tmp." + suffix, nil
}
