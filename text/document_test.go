package text

import (
	"errors"
	"testing"

	"lorediff/assert"
)

func TestDocumentInsertAndDelete(t *testing.T) {
	d := NewDocument("hello world")

	err := d.Insert(5, ",")
	assert.NoError(t, err, "insert")
	assert.Equal(t, "hello, world", d.String(), "content after insert")

	err = d.Delete(Span{Start: 5, End: 6})
	assert.NoError(t, err, "delete")
	assert.Equal(t, "hello world", d.String(), "content after delete")
}

func TestDocumentBoundsChecks(t *testing.T) {
	d := NewDocument("short")

	err := d.Insert(10, "x")
	assert.True(t, errors.Is(err, ErrOutOfRange), "insert past end")

	err = d.Delete(Span{Start: 2, End: 50})
	assert.True(t, errors.Is(err, ErrOutOfRange), "delete past end")

	_, err = d.Text(Span{Start: -1, End: 3})
	assert.True(t, errors.Is(err, ErrOutOfRange), "negative read")
}

func TestDocumentTaggingDoesNotMutate(t *testing.T) {
	d := NewDocument("The knight walked into the castle.")

	h, err := d.Tag(Span{Start: 4, End: 17}, StyleRevision)
	assert.NoError(t, err, "tag")
	assert.Equal(t, "The knight walked into the castle.", d.String(), "content unchanged by tagging")

	span, ok := d.RangeOf(h)
	assert.True(t, ok, "tag exists")
	assert.Equal(t, Span{Start: 4, End: 17}, span, "tag span")

	style, ok := d.StyleOf(h)
	assert.True(t, ok, "style exists")
	assert.Equal(t, StyleRevision, style, "tag style")
}

func TestDocumentMarkRemapOnInsert(t *testing.T) {
	d := NewDocument("aaaaabbbbbcccccddddd")

	early, _ := d.Tag(Span{Start: 0, End: 5}, StyleInsertion)
	late, _ := d.Tag(Span{Start: 10, End: 15}, StyleRevision)

	// Insert 3 bytes between the two marks.
	err := d.Insert(7, "XYZ")
	assert.NoError(t, err, "insert")

	earlySpan, _ := d.RangeOf(early)
	assert.Equal(t, Span{Start: 0, End: 5}, earlySpan, "mark before insert point unchanged")

	lateSpan, _ := d.RangeOf(late)
	assert.Equal(t, Span{Start: 13, End: 18}, lateSpan, "mark after insert point shifted")
}

func TestDocumentMarkRemapOnDelete(t *testing.T) {
	d := NewDocument("aaaaabbbbbcccccddddd")

	late, _ := d.Tag(Span{Start: 10, End: 15}, StyleRevision)
	covered, _ := d.Tag(Span{Start: 2, End: 4}, StyleRevision)

	// Delete the first five bytes, fully covering one mark.
	err := d.Delete(Span{Start: 0, End: 5})
	assert.NoError(t, err, "delete")

	lateSpan, _ := d.RangeOf(late)
	assert.Equal(t, Span{Start: 5, End: 10}, lateSpan, "later mark shifted left")

	coveredSpan, ok := d.RangeOf(covered)
	assert.True(t, ok, "covered mark still exists")
	assert.True(t, coveredSpan.Empty(), "covered mark collapsed to empty")
}

func TestDocumentGroupRollsBackOnError(t *testing.T) {
	d := NewDocument("abcdef")
	boom := errors.New("boom")

	err := d.Group(func() error {
		if err := d.Delete(Span{Start: 0, End: 3}); err != nil {
			return err
		}
		if err := d.Insert(0, "XYZW"); err != nil {
			return err
		}
		return boom
	})

	assert.True(t, errors.Is(err, boom), "group returns the inner error")
	assert.Equal(t, "abcdef", d.String(), "content rolled back")
}

func TestDocumentGroupIsOneUndoUnit(t *testing.T) {
	d := NewDocument("abcdef")

	err := d.Group(func() error {
		if err := d.Delete(Span{Start: 0, End: 3}); err != nil {
			return err
		}
		return d.Insert(0, "XY")
	})
	assert.NoError(t, err, "group")
	assert.Equal(t, "XYdef", d.String(), "content after group")

	assert.True(t, d.Undo(), "undo available")
	assert.Equal(t, "abcdef", d.String(), "one undo reverses the whole group")
	assert.False(t, d.Undo(), "nothing left to undo")
}

func TestDocumentSelectionRemaps(t *testing.T) {
	d := NewDocument("aaaaabbbbbccccc")
	d.SetSelection(Span{Start: 5, End: 10})

	err := d.Insert(0, "XX")
	assert.NoError(t, err, "insert")

	sel, ok := d.Selection()
	assert.True(t, ok, "selection survives")
	assert.Equal(t, Span{Start: 7, End: 12}, sel, "selection shifted")

	err = d.Delete(Span{Start: 7, End: 12})
	assert.NoError(t, err, "delete selection content")

	_, ok = d.Selection()
	assert.False(t, ok, "collapsed selection reports none")
}

func TestDocumentUntag(t *testing.T) {
	d := NewDocument("content")
	h, _ := d.Tag(Span{Start: 0, End: 3}, StyleInsertion)

	assert.NoError(t, d.Untag(h), "untag")
	_, ok := d.RangeOf(h)
	assert.False(t, ok, "tag gone")
	assert.True(t, errors.Is(d.Untag(h), ErrUnknownTag), "double untag")
}
