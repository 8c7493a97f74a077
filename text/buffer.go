package text

import "errors"

// StyleKey selects the visual class a tag is rendered with.
type StyleKey string

const (
	// StyleInsertion marks a point where text would be added.
	StyleInsertion StyleKey = "lorediff-insertion"
	// StyleRevision marks text that would be deleted or replaced.
	StyleRevision StyleKey = "lorediff-revision"
)

// TagHandle identifies one live tag in a buffer.
type TagHandle int64

// ErrOutOfRange is returned by buffer operations whose positions fall
// outside the buffer's current content.
var ErrOutOfRange = errors.New("position out of range")

// ErrUnknownTag is returned when a tag handle does not resolve.
var ErrUnknownTag = errors.New("unknown tag")

// Buffer is the mutable, position-addressable document the diff engine
// operates on. The engine never owns the buffer; it mutates it only
// through this contract. Implementations must keep tagged ranges
// positioned through arbitrary mutations (their own position tracking,
// not caller-side offset arithmetic) and must fold the mutations of one
// Group call into a single undo unit.
type Buffer interface {
	// Text returns the content of span, which must lie within the buffer.
	Text(span Span) (string, error)
	// Len returns the buffer's content length in bytes.
	Len() int
	// Insert places s at pos.
	Insert(pos int, s string) error
	// Delete removes span's content.
	Delete(span Span) error
	// Tag attaches a live marker over span with the given style.
	Tag(span Span, style StyleKey) (TagHandle, error)
	// Untag removes one tag wherever it currently lives.
	Untag(h TagHandle) error
	// UntagAll removes every tag regardless of who created it.
	UntagAll()
	// RangeOf reports a tag's current span. The second result is false
	// if the handle is unknown.
	RangeOf(h TagHandle) (Span, bool)
	// Group runs fn so that all mutations made inside it form one
	// atomic unit of change: either all commit, or on error none do.
	Group(fn func() error) error
}

// SelectionReader is implemented by buffers that carry a cursor or
// selection. A collapsed cursor reports ok == false.
type SelectionReader interface {
	Selection() (Span, bool)
}
