package ctx

import (
	"strings"
	"testing"

	"lorediff/assert"
	"lorediff/text"
)

func TestSelectionReturnsHighlightedText(t *testing.T) {
	d := text.NewDocument("The knight walked into the castle.")
	d.SetSelection(text.Span{Start: 4, End: 17})

	e := NewExtractor(d, d)
	sel, err := e.Selection()
	assert.NoError(t, err, "selection")
	assert.NotNil(t, sel, "selection present")
	assert.Equal(t, "knight walked", sel.Text, "selected text")
	assert.Equal(t, text.Span{Start: 4, End: 17}, sel.Range, "selected range")
}

func TestSelectionNilWhenCollapsed(t *testing.T) {
	d := text.NewDocument("some prose")
	e := NewExtractor(d, d)

	sel, err := e.Selection()
	assert.NoError(t, err, "no selection is not an error")
	assert.Nil(t, sel, "no selection set")

	d.SetSelection(text.Span{Start: 3, End: 3})
	sel, err = e.Selection()
	assert.NoError(t, err, "collapsed selection is not an error")
	assert.Nil(t, sel, "collapsed selection")
}

func TestContextWindowClipsAtBounds(t *testing.T) {
	d := text.NewDocument("short before MIDDLE short after")
	e := NewExtractor(d, d)
	e.SetWindow(1000)

	surround, err := e.Context(text.Span{Start: 13, End: 19})
	assert.NoError(t, err, "context")
	assert.Equal(t, "short before ", surround.Before, "everything before")
	assert.Equal(t, " short after", surround.After, "everything after")
}

func TestContextDefaultWindowIsFiveHundred(t *testing.T) {
	before := strings.Repeat("b", 600)
	after := strings.Repeat("a", 600)
	d := text.NewDocument(before + "XX" + after)

	e := NewExtractor(d, d)

	surround, err := e.Context(text.Span{Start: 600, End: 602})
	assert.NoError(t, err, "context")
	assert.Equal(t, strings.Repeat("b", 500), surround.Before, "default window before")
	assert.Equal(t, strings.Repeat("a", 500), surround.After, "default window after")
}

func TestContextWindowLimitsCharacters(t *testing.T) {
	before := strings.Repeat("b", 50)
	after := strings.Repeat("a", 50)
	d := text.NewDocument(before + "XX" + after)

	e := NewExtractor(d, d)
	e.SetWindow(10)

	surround, err := e.Context(text.Span{Start: 50, End: 52})
	assert.NoError(t, err, "context")
	assert.Equal(t, strings.Repeat("b", 10), surround.Before, "trailing 10 chars before")
	assert.Equal(t, strings.Repeat("a", 10), surround.After, "leading 10 chars after")
}

func TestContextWindowCountsRunesNotBytes(t *testing.T) {
	// Multibyte prose on both sides of the selection.
	before := strings.Repeat("é", 20)
	after := strings.Repeat("日", 20)
	d := text.NewDocument(before + "XX" + after)

	e := NewExtractor(d, d)
	e.SetWindow(5)

	surround, err := e.Context(text.Span{Start: len(before), End: len(before) + 2})
	assert.NoError(t, err, "context")
	assert.Equal(t, strings.Repeat("é", 5), surround.Before, "5 runes before")
	assert.Equal(t, strings.Repeat("日", 5), surround.After, "5 runes after")
}

func TestContextDisabledWindow(t *testing.T) {
	d := text.NewDocument("before MID after")
	e := NewExtractor(d, d)
	e.SetWindow(0)

	surround, err := e.Context(text.Span{Start: 7, End: 10})
	assert.NoError(t, err, "context")
	assert.Equal(t, "", surround.Before, "no before context")
	assert.Equal(t, "", surround.After, "no after context")
}
