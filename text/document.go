package text

import "fmt"

// Document is an in-memory Buffer used by headless sessions and tests.
// Marks are remapped on every insert/delete, so a tag's reported range
// stays accurate no matter who mutated the content. Mutations are
// recorded in an undo log; Group folds several into one undo step and
// rolls them back if the grouped function fails.
type Document struct {
	content    string
	marks      map[TagHandle]*mark
	nextHandle TagHandle

	selection    Span
	hasSelection bool

	undo    []undoGroup
	current *undoGroup // non-nil while inside Group
}

type mark struct {
	span  Span
	style StyleKey
}

// editOp is one reversible primitive mutation.
type editOp struct {
	insert bool
	pos    int    // insert position, or deletion start
	text   string // inserted or removed content
}

type undoGroup struct {
	ops []editOp
}

// NewDocument creates a Document with the given initial content.
func NewDocument(content string) *Document {
	return &Document{
		content: content,
		marks:   make(map[TagHandle]*mark),
	}
}

// Text returns the content of span.
func (d *Document) Text(span Span) (string, error) {
	if span.Start < 0 || span.End > len(d.content) || span.Start > span.End {
		return "", fmt.Errorf("%w: %s in buffer of %d bytes", ErrOutOfRange, span, len(d.content))
	}
	return d.content[span.Start:span.End], nil
}

// String returns the whole buffer content.
func (d *Document) String() string {
	return d.content
}

// Len returns the content length in bytes.
func (d *Document) Len() int {
	return len(d.content)
}

// Insert places s at pos, shifting marks and the selection.
func (d *Document) Insert(pos int, s string) error {
	if pos < 0 || pos > len(d.content) {
		return fmt.Errorf("%w: insert at %d in buffer of %d bytes", ErrOutOfRange, pos, len(d.content))
	}
	if s == "" {
		return nil
	}
	d.applyInsert(pos, s)
	d.record(editOp{insert: true, pos: pos, text: s})
	return nil
}

// Delete removes span's content, shifting marks and the selection.
func (d *Document) Delete(span Span) error {
	if span.Start < 0 || span.End > len(d.content) || span.Start > span.End {
		return fmt.Errorf("%w: delete %s in buffer of %d bytes", ErrOutOfRange, span, len(d.content))
	}
	if span.Empty() {
		return nil
	}
	removed := d.content[span.Start:span.End]
	d.applyDelete(span)
	d.record(editOp{insert: false, pos: span.Start, text: removed})
	return nil
}

// Tag attaches a live marker over span.
func (d *Document) Tag(span Span, style StyleKey) (TagHandle, error) {
	if span.Start < 0 || span.End > len(d.content) || span.Start > span.End {
		return 0, fmt.Errorf("%w: tag %s in buffer of %d bytes", ErrOutOfRange, span, len(d.content))
	}
	d.nextHandle++
	h := d.nextHandle
	d.marks[h] = &mark{span: span, style: style}
	return h, nil
}

// Untag removes one tag.
func (d *Document) Untag(h TagHandle) error {
	if _, ok := d.marks[h]; !ok {
		return ErrUnknownTag
	}
	delete(d.marks, h)
	return nil
}

// UntagAll removes every tag.
func (d *Document) UntagAll() {
	d.marks = make(map[TagHandle]*mark)
}

// RangeOf reports a tag's current span.
func (d *Document) RangeOf(h TagHandle) (Span, bool) {
	m, ok := d.marks[h]
	if !ok {
		return Span{}, false
	}
	return m.span, true
}

// StyleOf reports a tag's style. Used by rendering glue and tests.
func (d *Document) StyleOf(h TagHandle) (StyleKey, bool) {
	m, ok := d.marks[h]
	if !ok {
		return "", false
	}
	return m.style, true
}

// TagCount returns the number of live tags.
func (d *Document) TagCount() int {
	return len(d.marks)
}

// Group runs fn as one atomic unit of change. If fn returns an error,
// every mutation it made is rolled back and the error is returned.
// Nested groups join the outermost one.
func (d *Document) Group(fn func() error) error {
	if d.current != nil {
		return fn()
	}
	g := &undoGroup{}
	d.current = g
	err := fn()
	d.current = nil
	if err != nil {
		d.rollback(g)
		return err
	}
	if len(g.ops) > 0 {
		d.undo = append(d.undo, *g)
	}
	return nil
}

// Undo reverses the most recent unit of change. Returns false when
// there is nothing to undo.
func (d *Document) Undo() bool {
	if len(d.undo) == 0 {
		return false
	}
	g := d.undo[len(d.undo)-1]
	d.undo = d.undo[:len(d.undo)-1]
	d.rollback(&g)
	return true
}

// SetSelection sets the current selection. A collapsed span clears it.
func (d *Document) SetSelection(span Span) {
	d.selection = span.Clamp(len(d.content))
	d.hasSelection = !d.selection.Empty()
}

// ClearSelection collapses the selection.
func (d *Document) ClearSelection() {
	d.hasSelection = false
	d.selection = Span{}
}

// Selection implements SelectionReader.
func (d *Document) Selection() (Span, bool) {
	if !d.hasSelection || d.selection.Empty() {
		return Span{}, false
	}
	return d.selection, true
}

// applyInsert mutates content and remaps marks and selection.
func (d *Document) applyInsert(pos int, s string) {
	d.content = d.content[:pos] + s + d.content[pos:]
	for _, m := range d.marks {
		m.span = m.span.shiftForInsert(pos, len(s))
	}
	if d.hasSelection {
		d.selection = d.selection.shiftForInsert(pos, len(s))
	}
}

// applyDelete mutates content and remaps marks and selection.
func (d *Document) applyDelete(span Span) {
	d.content = d.content[:span.Start] + d.content[span.End:]
	for _, m := range d.marks {
		m.span = m.span.shiftForDelete(span)
	}
	if d.hasSelection {
		d.selection = d.selection.shiftForDelete(span)
		if d.selection.Empty() {
			d.hasSelection = false
		}
	}
}

// record appends op to the open group, or to a fresh single-op undo
// entry when no group is open.
func (d *Document) record(op editOp) {
	if d.current != nil {
		d.current.ops = append(d.current.ops, op)
		return
	}
	d.undo = append(d.undo, undoGroup{ops: []editOp{op}})
}

// rollback reverses a group's ops newest-first through the same
// mutation path, so marks remap consistently.
func (d *Document) rollback(g *undoGroup) {
	for i := len(g.ops) - 1; i >= 0; i-- {
		op := g.ops[i]
		if op.insert {
			d.applyDelete(Span{Start: op.pos, End: op.pos + len(op.text)})
		} else {
			d.applyInsert(op.pos, op.text)
		}
	}
}
