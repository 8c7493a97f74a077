package text

import (
	"fmt"

	"lorediff/types"
)

// StyleForKind maps an edit kind to its visual class. Insertions get
// their own style; deletions and replacements share one, since both
// highlight text that would go away.
func StyleForKind(kind types.EditKind) StyleKey {
	if kind == types.KindInsert {
		return StyleInsertion
	}
	return StyleRevision
}

// Annotator is the diff annotation layer: it keeps one live buffer tag
// per pending proposal, keyed by proposal id. Tags ride the buffer's
// own position tracking, so they stay correctly placed as the buffer
// mutates for any reason, including ordinary typing.
type Annotator struct {
	buf  Buffer
	tags map[string]TagHandle
}

// NewAnnotator creates an Annotator over buf.
func NewAnnotator(buf Buffer) *Annotator {
	return &Annotator{
		buf:  buf,
		tags: make(map[string]TagHandle),
	}
}

// Mark tags span with the style for kind, keyed by proposal id.
// Marking never changes buffer content.
func (a *Annotator) Mark(id string, kind types.EditKind, span Span) error {
	if _, exists := a.tags[id]; exists {
		return fmt.Errorf("proposal %s is already marked", id)
	}
	h, err := a.buf.Tag(span, StyleForKind(kind))
	if err != nil {
		return fmt.Errorf("mark %s: %w", id, err)
	}
	a.tags[id] = h
	return nil
}

// Unmark removes the tag for one proposal, wherever it currently lives.
func (a *Annotator) Unmark(id string) error {
	h, ok := a.tags[id]
	if !ok {
		return fmt.Errorf("proposal %s is not marked", id)
	}
	delete(a.tags, id)
	if err := a.buf.Untag(h); err != nil {
		return fmt.Errorf("unmark %s: %w", id, err)
	}
	return nil
}

// UnmarkAll removes every diff tag in the buffer, including tags left
// behind by other sessions.
func (a *Annotator) UnmarkAll() {
	a.buf.UntagAll()
	a.tags = make(map[string]TagHandle)
}

// LiveRange reports the proposal's current span as tracked by the
// buffer. This is the position truth; stored proposal ranges go stale
// as soon as anything mutates the buffer.
func (a *Annotator) LiveRange(id string) (Span, bool) {
	h, ok := a.tags[id]
	if !ok {
		return Span{}, false
	}
	return a.buf.RangeOf(h)
}

// Marked reports whether the proposal currently has a tag.
func (a *Annotator) Marked(id string) bool {
	_, ok := a.tags[id]
	return ok
}
