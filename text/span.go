package text

import "fmt"

// Span is a half-open byte interval [Start, End) into a buffer's
// current content. Start <= End always holds for spans produced by
// this package.
type Span struct {
	Start int
	End   int
}

// NewSpan returns a normalized span; reversed bounds are swapped.
func NewSpan(start, end int) Span {
	if start > end {
		start, end = end, start
	}
	return Span{Start: start, End: end}
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int {
	return s.End - s.Start
}

// Empty reports whether the span covers no bytes.
func (s Span) Empty() bool {
	return s.Start >= s.End
}

// Contains reports whether pos lies inside the span.
func (s Span) Contains(pos int) bool {
	return pos >= s.Start && pos < s.End
}

// Overlaps reports whether the two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Clamp restricts the span to [0, limit].
func (s Span) Clamp(limit int) Span {
	if s.Start < 0 {
		s.Start = 0
	}
	if s.End > limit {
		s.End = limit
	}
	if s.Start > s.End {
		s.Start = s.End
	}
	return s
}

// shiftForInsert remaps the span for an insertion of length n at pos.
// Text inserted exactly at Start lands before the span; text inserted
// exactly at End lands after it. This mirrors how editor marks with
// default gravity behave.
func (s Span) shiftForInsert(pos, n int) Span {
	if pos <= s.Start {
		s.Start += n
		s.End += n
	} else if pos < s.End {
		s.End += n
	}
	return s
}

// shiftForDelete remaps the span for a deletion of the interval del.
// Positions inside the deleted interval collapse onto its start, so a
// span fully covered by the deletion becomes empty (and detectably
// stale) rather than vanishing.
func (s Span) shiftForDelete(del Span) Span {
	s.Start = remapForDelete(s.Start, del)
	s.End = remapForDelete(s.End, del)
	return s
}

func remapForDelete(pos int, del Span) int {
	switch {
	case pos <= del.Start:
		return pos
	case pos >= del.End:
		return pos - del.Len()
	default:
		return del.Start
	}
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}
