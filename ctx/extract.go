// Package ctx extracts the material an edit request is built from: the
// user's current selection and a bounded window of surrounding prose.
package ctx

import (
	"unicode/utf8"

	"lorediff/text"
)

// DefaultWindow is the surrounding-context budget, in characters, on
// each side of the selection. Roughly a paragraph or two of prose;
// callers wanting more pass their own budget through SetWindow.
const DefaultWindow = 500

// Selection is a snapshot of the user's highlighted text.
type Selection struct {
	Range text.Span
	Text  string
}

// Surround is the prose immediately before and after a span.
type Surround struct {
	Before string
	After  string
}

// Extractor reads selections and surrounding context from a buffer.
type Extractor struct {
	buf    text.Buffer
	sel    text.SelectionReader
	window int // characters per side
}

// NewExtractor creates an Extractor with the default context window.
// sel may be the buffer itself when it implements SelectionReader.
func NewExtractor(buf text.Buffer, sel text.SelectionReader) *Extractor {
	return &Extractor{buf: buf, sel: sel, window: DefaultWindow}
}

// SetWindow overrides the per-side context budget. Non-positive values
// disable surrounding context entirely.
func (e *Extractor) SetWindow(chars int) {
	e.window = chars
}

// Selection returns the current selection, or nil when there is none
// or it is collapsed (a bare cursor). A collapsed selection is not an
// error; the caller decides whether a cursor position alone is enough
// to proceed (it is for continue-style requests, not for rewrites).
func (e *Extractor) Selection() (*Selection, error) {
	span, ok := e.sel.Selection()
	if !ok || span.Empty() {
		return nil, nil
	}
	span = span.Clamp(e.buf.Len())
	if span.Empty() {
		return nil, nil
	}
	content, err := e.buf.Text(span)
	if err != nil {
		return nil, err
	}
	return &Selection{Range: span, Text: content}, nil
}

// Context returns up to window characters of prose on each side of
// span, clipped at the buffer boundaries. The window counts characters,
// not bytes, so multibyte text gets the same amount of visible context
// and the cut never lands mid-rune.
func (e *Extractor) Context(span text.Span) (*Surround, error) {
	if e.window <= 0 {
		return &Surround{}, nil
	}
	span = span.Clamp(e.buf.Len())

	before, err := e.buf.Text(text.Span{Start: 0, End: span.Start})
	if err != nil {
		return nil, err
	}
	after, err := e.buf.Text(text.Span{Start: span.End, End: e.buf.Len()})
	if err != nil {
		return nil, err
	}

	return &Surround{
		Before: lastRunes(before, e.window),
		After:  firstRunes(after, e.window),
	}, nil
}

// lastRunes returns the trailing n runes of s.
func lastRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := len(s)
	for ; n > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}

// firstRunes returns the leading n runes of s.
func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for ; n > 0; n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i]
}
