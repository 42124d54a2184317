package keel

import "strings"

// ListDelimiterHandler splits raw scalar strings into multi-valued lists
// and performs the inverse join. It is consulted both when storing new
// string values and when a multi-valued property must be rendered as a
// single scalar.
type ListDelimiterHandler interface {
	// Split tokenizes s on the delimiter. Escaped delimiter occurrences
	// are treated as literal and un-escaped. Empty segments between
	// consecutive delimiters produce empty-string elements.
	Split(s string) []string

	// Escape prepares a single element for storage so that re-splitting
	// the stored form reproduces the element exactly.
	Escape(s string) string

	// Join is the inverse of Split. Handlers without join support return
	// ErrJoinUnsupported.
	Join(elems []string) (string, error)
}

// escapeChar is the escape convention shared by all built-in handlers.
const escapeChar = '\\'

// DefaultHandler splits on a configurable delimiter string with
// backslash escaping. The process-wide default is a comma.
type DefaultHandler struct {
	// Delim is the delimiter. Empty means comma.
	Delim string
}

// NewDefaultHandler creates a handler for the given delimiter.
func NewDefaultHandler(delim string) DefaultHandler {
	return DefaultHandler{Delim: delim}
}

func (h DefaultHandler) delim() string {
	if h.Delim == "" {
		return ","
	}
	return h.Delim
}

// Split tokenizes s on the delimiter, honoring backslash escapes. An
// escaped delimiter or escaped backslash is emitted literally; a
// backslash before any other character is kept as-is.
func (h DefaultHandler) Split(s string) []string {
	delim := h.delim()
	var elems []string
	var cur strings.Builder
	for i := 0; i < len(s); {
		if s[i] == escapeChar && i+1 < len(s) {
			if strings.HasPrefix(s[i+1:], delim) {
				cur.WriteString(delim)
				i += 1 + len(delim)
				continue
			}
			if s[i+1] == escapeChar {
				cur.WriteByte(escapeChar)
				i += 2
				continue
			}
			cur.WriteByte(s[i])
			i++
			continue
		}
		if strings.HasPrefix(s[i:], delim) {
			elems = append(elems, cur.String())
			cur.Reset()
			i += len(delim)
			continue
		}
		cur.WriteByte(s[i])
		i++
	}
	elems = append(elems, cur.String())
	return elems
}

// Escape escapes backslashes and delimiter occurrences in a single
// element. Split(Escape(s)) == [s] for every s.
func (h DefaultHandler) Escape(s string) string {
	delim := h.delim()
	s = strings.ReplaceAll(s, string(escapeChar), string(escapeChar)+string(escapeChar))
	return strings.ReplaceAll(s, delim, string(escapeChar)+delim)
}

// Join escapes each element and concatenates with the delimiter; the
// exact inverse of Split.
func (h DefaultHandler) Join(elems []string) (string, error) {
	escaped := make([]string, len(elems))
	for i, e := range elems {
		escaped[i] = h.Escape(e)
	}
	return strings.Join(escaped, h.delim()), nil
}

// DisabledHandler performs no splitting: every raw string is a single
// element. Escape is the identity and Join is unsupported.
type DisabledHandler struct{}

func (DisabledHandler) Split(s string) []string { return []string{s} }

func (DisabledHandler) Escape(s string) string { return s }

func (DisabledHandler) Join([]string) (string, error) { return "", ErrJoinUnsupported }
