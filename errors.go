package keel

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned (wrapped with the key) by typed accessors
// when no node matches the requested key.
var ErrNotFound = errors.New("keel: key not found")

// ErrJoinUnsupported is returned by delimiter handlers that cannot
// join a list back into a single scalar.
var ErrJoinUnsupported = errors.New("keel: delimiter handler does not support joining")

// CycleError reports a variable reference cycle detected during
// interpolation. A cycle is fatal for the Interpolate call that
// discovered it; no partial result is produced and the call is not
// retried.
type CycleError struct {
	// Variable is the name whose resolution re-entered the set of
	// variables already being resolved on the call stack.
	Variable string

	// Chain lists the variables on the resolution stack, outermost first.
	Chain []string
}

// Error formats the cycle as "a -> b -> a" for diagnosis.
func (e *CycleError) Error() string {
	chain := append(append([]string(nil), e.Chain...), e.Variable)
	return fmt.Sprintf("keel: interpolation cycle: %s", strings.Join(chain, " -> "))
}

// PathSyntaxError reports a malformed path expression. It is produced
// at parse time, before any tree traversal happens.
type PathSyntaxError struct {
	Path   string // the full input path
	Offset int    // byte offset of the offending token
	Reason string // human-readable description
}

func (e *PathSyntaxError) Error() string {
	return fmt.Sprintf("keel: invalid path %q at offset %d: %s", e.Path, e.Offset, e.Reason)
}

// ConversionError reports a failed type conversion in a typed
// accessor. It carries the key, the requested target type, and the
// raw value so callers can diagnose bad configuration data.
type ConversionError struct {
	Key    string
	Target string // requested type, e.g. "int", "bool", "time.Duration"
	Value  any    // the raw value that failed to convert
	Err    error  // underlying parse error, may be nil
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("keel: cannot convert key %q value %v to %s", e.Key, e.Value, e.Target)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
