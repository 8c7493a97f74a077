package text

import (
	"fmt"
	"testing"

	"lorediff/assert"
)

func TestNewSpanNormalizesReversedBounds(t *testing.T) {
	s := NewSpan(10, 4)
	assert.Equal(t, 4, s.Start, "start")
	assert.Equal(t, 10, s.End, "end")
}

func TestSpanLenAndEmpty(t *testing.T) {
	assert.Equal(t, 5, Span{Start: 3, End: 8}.Len(), "len")
	assert.True(t, Span{Start: 3, End: 3}.Empty(), "point span is empty")
	assert.False(t, Span{Start: 3, End: 4}.Empty(), "one byte span is not empty")
}

func TestSpanContains(t *testing.T) {
	s := Span{Start: 2, End: 5}
	assert.True(t, s.Contains(2), "start is inside")
	assert.True(t, s.Contains(4), "interior is inside")
	assert.False(t, s.Contains(5), "end is outside (half-open)")
	assert.False(t, s.Contains(1), "before start is outside")
}

func TestSpanOverlaps(t *testing.T) {
	tests := []struct {
		a, b     Span
		expected bool
	}{
		{Span{0, 5}, Span{5, 10}, false},  // adjacent
		{Span{0, 5}, Span{4, 10}, true},   // one byte shared
		{Span{0, 10}, Span{3, 4}, true},   // contained
		{Span{0, 2}, Span{8, 10}, false},  // disjoint
		{Span{3, 3}, Span{0, 10}, false},  // empty span overlaps nothing
	}
	for _, tt := range tests {
		result := tt.a.Overlaps(tt.b)
		assert.Equal(t, tt.expected, result, fmt.Sprintf("%s overlaps %s", tt.a, tt.b))
	}
}

func TestSpanClamp(t *testing.T) {
	assert.Equal(t, Span{Start: 0, End: 5}, Span{Start: -3, End: 5}.Clamp(10), "negative start")
	assert.Equal(t, Span{Start: 2, End: 10}, Span{Start: 2, End: 50}.Clamp(10), "end past limit")
	assert.Equal(t, Span{Start: 10, End: 10}, Span{Start: 20, End: 30}.Clamp(10), "entirely past limit")
}

func TestShiftForInsert(t *testing.T) {
	base := Span{Start: 10, End: 15}

	tests := []struct {
		name     string
		pos, n   int
		expected Span
	}{
		{"before span", 0, 3, Span{13, 18}},
		{"at start shifts whole span", 10, 3, Span{13, 18}},
		{"inside extends", 12, 3, Span{10, 18}},
		{"at end does not extend", 15, 3, Span{10, 15}},
		{"after span", 20, 3, Span{10, 15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, base.shiftForInsert(tt.pos, tt.n), "remapped span")
		})
	}
}

func TestShiftForDelete(t *testing.T) {
	base := Span{Start: 10, End: 15}

	tests := []struct {
		name     string
		del      Span
		expected Span
	}{
		{"before span", Span{0, 4}, Span{6, 11}},
		{"after span", Span{20, 25}, Span{10, 15}},
		{"overlapping start", Span{8, 12}, Span{8, 11}},
		{"overlapping end", Span{13, 20}, Span{10, 13}},
		{"inside span", Span{11, 13}, Span{10, 13}},
		{"covering span collapses to empty", Span{5, 20}, Span{5, 5}},
		{"exactly the span collapses to empty", Span{10, 15}, Span{10, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := base.shiftForDelete(tt.del)
			assert.Equal(t, tt.expected, result, "remapped span")
		})
	}
}
