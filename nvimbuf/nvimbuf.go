// Package nvimbuf adapts a live Neovim buffer to the text.Buffer
// contract. Diff tags are backed by extmarks, so Neovim's own gravity
// rules keep them placed as the buffer mutates, including ordinary
// typing between review actions.
package nvimbuf

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/neovim/go-client/nvim"

	"lorediff/logger"
	"lorediff/text"
)

// NamespaceName is the extmark namespace all diff tags live in.
const NamespaceName = "lorediff"

// Highlight groups for the two visual classes. The Lua side defines
// their colors.
const (
	HLInsertion = "LorediffInsertion"
	HLRevision  = "LorediffRevision"
)

// tagMarks is the extmark triple backing one tag: two point marks for
// position tracking and one ranged mark for the highlight. Positions
// are read from the point marks because nvim_buf_get_extmark_by_id
// only returns (row, col) for the mark itself.
type tagMarks struct {
	startID int
	endID   int
	hlID    int
}

type NvimBuffer struct {
	client *nvim.Nvim
	id     nvim.Buffer
	nsID   int

	tags       map[text.TagHandle]tagMarks
	nextHandle text.TagHandle
}

// Compile-time checks against the buffer contracts.
var (
	_ text.Buffer          = (*NvimBuffer)(nil)
	_ text.SelectionReader = (*NvimBuffer)(nil)
)

// New creates an NvimBuffer over the editor's current buffer.
func New(client *nvim.Nvim) (*NvimBuffer, error) {
	nsID, err := client.CreateNamespace(NamespaceName)
	if err != nil {
		return nil, fmt.Errorf("failed to create namespace: %w", err)
	}

	buf, err := client.CurrentBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to get current buffer: %w", err)
	}

	return &NvimBuffer{
		client: client,
		id:     buf,
		nsID:   nsID,
		tags:   make(map[text.TagHandle]tagMarks),
	}, nil
}

// Text returns the content of span.
func (b *NvimBuffer) Text(span text.Span) (string, error) {
	content, err := b.fetchText()
	if err != nil {
		return "", err
	}
	if span.Start < 0 || span.End > len(content) || span.Start > span.End {
		return "", fmt.Errorf("span %s: %w", span, text.ErrOutOfRange)
	}
	return content[span.Start:span.End], nil
}

// Len returns the buffer length in bytes.
func (b *NvimBuffer) Len() int {
	content, err := b.fetchText()
	if err != nil {
		logger.Error("nvimbuf: len: %v", err)
		return 0
	}
	return len(content)
}

// Insert places s at byte offset pos.
func (b *NvimBuffer) Insert(pos int, s string) error {
	content, err := b.fetchText()
	if err != nil {
		return err
	}
	if pos < 0 || pos > len(content) {
		return fmt.Errorf("insert at %d: %w", pos, text.ErrOutOfRange)
	}

	row, col := offsetToPos(content, pos)
	return b.client.SetBufferText(b.id, row, col, row, col, splitBytes(s))
}

// Delete removes the content of span.
func (b *NvimBuffer) Delete(span text.Span) error {
	content, err := b.fetchText()
	if err != nil {
		return err
	}
	if span.Start < 0 || span.End > len(content) || span.Start > span.End {
		return fmt.Errorf("delete %s: %w", span, text.ErrOutOfRange)
	}

	startRow, startCol := offsetToPos(content, span.Start)
	endRow, endCol := offsetToPos(content, span.End)
	return b.client.SetBufferText(b.id, startRow, startCol, endRow, endCol, [][]byte{{}})
}

// Tag marks span with style. The start mark carries right gravity and
// the end mark left gravity, which yields the span semantics the
// session depends on: an insert at the start shifts the whole span, an
// insert strictly inside extends it, an insert at the end leaves it
// alone.
func (b *NvimBuffer) Tag(span text.Span, style text.StyleKey) (text.TagHandle, error) {
	content, err := b.fetchText()
	if err != nil {
		return 0, err
	}
	if span.Start < 0 || span.End > len(content) || span.Start > span.End {
		return 0, fmt.Errorf("tag %s: %w", span, text.ErrOutOfRange)
	}

	startRow, startCol := offsetToPos(content, span.Start)
	endRow, endCol := offsetToPos(content, span.End)

	startID, err := b.client.SetBufferExtmark(b.id, b.nsID, startRow, startCol, map[string]interface{}{
		"right_gravity": true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to set start mark: %w", err)
	}
	endID, err := b.client.SetBufferExtmark(b.id, b.nsID, endRow, endCol, map[string]interface{}{
		"right_gravity": false,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to set end mark: %w", err)
	}
	hlID, err := b.client.SetBufferExtmark(b.id, b.nsID, startRow, startCol, map[string]interface{}{
		"end_row":  endRow,
		"end_col":  endCol,
		"hl_group": hlGroupFor(style),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to set highlight mark: %w", err)
	}

	b.nextHandle++
	h := b.nextHandle
	b.tags[h] = tagMarks{startID: startID, endID: endID, hlID: hlID}
	return h, nil
}

// Untag removes one tag's extmarks.
func (b *NvimBuffer) Untag(h text.TagHandle) error {
	marks, ok := b.tags[h]
	if !ok {
		return text.ErrUnknownTag
	}
	delete(b.tags, h)

	batch := b.client.NewBatch()
	var ok1, ok2, ok3 bool
	batch.DeleteBufferExtmark(b.id, b.nsID, marks.startID, &ok1)
	batch.DeleteBufferExtmark(b.id, b.nsID, marks.endID, &ok2)
	batch.DeleteBufferExtmark(b.id, b.nsID, marks.hlID, &ok3)
	return batch.Execute()
}

// UntagAll wipes the whole namespace, including marks left behind by a
// previous session in the same buffer.
func (b *NvimBuffer) UntagAll() {
	if err := b.client.ClearBufferNamespace(b.id, b.nsID, 0, -1); err != nil {
		logger.Error("nvimbuf: clear namespace: %v", err)
	}
	b.tags = make(map[text.TagHandle]tagMarks)
}

// RangeOf reads the tag's current span from its extmarks.
func (b *NvimBuffer) RangeOf(h text.TagHandle) (text.Span, bool) {
	marks, ok := b.tags[h]
	if !ok {
		return text.Span{}, false
	}

	content, err := b.fetchText()
	if err != nil {
		logger.Error("nvimbuf: range of tag %d: %v", h, err)
		return text.Span{}, false
	}

	batch := b.client.NewBatch()
	var startPos, endPos []int
	batch.BufferExtmarkByID(b.id, b.nsID, marks.startID, map[string]interface{}{}, &startPos)
	batch.BufferExtmarkByID(b.id, b.nsID, marks.endID, map[string]interface{}{}, &endPos)
	if err := batch.Execute(); err != nil {
		logger.Error("nvimbuf: range of tag %d: %v", h, err)
		return text.Span{}, false
	}
	if len(startPos) < 2 || len(endPos) < 2 {
		return text.Span{}, false
	}

	start := posToOffset(content, startPos[0], startPos[1])
	end := posToOffset(content, endPos[0], endPos[1])
	if end < start {
		end = start
	}
	return text.Span{Start: start, End: end}, true
}

// Group runs fn as one atomic mutation: on error the buffer content is
// restored to its pre-fn state. The restore replaces the whole buffer,
// so tags other than the one being applied may be disturbed; callers
// treat a failed apply as a force-reject, which tolerates that.
func (b *NvimBuffer) Group(fn func() error) error {
	snapshot, err := b.client.BufferLines(b.id, 0, -1, false)
	if err != nil {
		return fmt.Errorf("failed to snapshot buffer: %w", err)
	}

	if err := fn(); err != nil {
		if restoreErr := b.client.SetBufferLines(b.id, 0, -1, false, snapshot); restoreErr != nil {
			logger.Error("nvimbuf: rollback failed: %v", restoreErr)
		}
		return err
	}
	return nil
}

// Selection reads the last visual selection as a byte span. Reports
// false when no visual marks are set.
func (b *NvimBuffer) Selection() (text.Span, bool) {
	var pos [4]int
	err := b.client.ExecLua(`
		local s = vim.fn.getpos("'<")
		local e = vim.fn.getpos("'>")
		return {s[2], s[3], e[2], e[3]}
	`, &pos)
	if err != nil {
		logger.Error("nvimbuf: selection: %v", err)
		return text.Span{}, false
	}
	if pos[0] == 0 || pos[2] == 0 {
		return text.Span{}, false
	}

	content, err := b.fetchText()
	if err != nil {
		logger.Error("nvimbuf: selection: %v", err)
		return text.Span{}, false
	}

	// getpos rows and cols are 1-indexed; the end col is inclusive.
	start := posToOffset(content, pos[0]-1, pos[1]-1)
	end := selectionEnd(content, pos[2], pos[3])
	span := text.Span{Start: start, End: end}.Clamp(len(content))
	return span, true
}

// selectionEnd converts getpos("'>")'s 1-indexed, inclusive end
// position to an exclusive byte offset. The end column names the first
// byte of the last selected character, so the offset advances by that
// character's full UTF-8 width; adding a fixed 1 would split multibyte
// prose (curly quotes, em dashes, accents) mid-rune.
func selectionEnd(content string, row, col int) int {
	last := posToOffset(content, row-1, col-1)
	if last >= len(content) || content[last] == '\n' {
		// Linewise selections report a past-the-line column; the span
		// ends at the line break without swallowing it.
		return last
	}
	_, size := utf8.DecodeRuneInString(content[last:])
	return last + size
}

// fetchText reads the whole buffer as a string. Diff review operates on
// a selection plus a context window, so novel-length buffers are still
// one cheap RPC round-trip.
func (b *NvimBuffer) fetchText() (string, error) {
	lines, err := b.client.BufferLines(b.id, 0, -1, false)
	if err != nil {
		return "", fmt.Errorf("failed to read buffer lines: %w", err)
	}
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = string(line)
	}
	return strings.Join(parts, "\n"), nil
}

func hlGroupFor(style text.StyleKey) string {
	if style == text.StyleInsertion {
		return HLInsertion
	}
	return HLRevision
}

// offsetToPos converts a byte offset to a 0-indexed (row, col) pair.
func offsetToPos(content string, offset int) (row, col int) {
	for i := 0; i < offset && i < len(content); i++ {
		if content[i] == '\n' {
			row++
			col = 0
		} else {
			col++
		}
	}
	return row, col
}

// posToOffset converts a 0-indexed (row, col) pair to a byte offset,
// clamping col to the line length.
func posToOffset(content string, row, col int) int {
	offset := 0
	line := 0
	for line < row {
		idx := strings.IndexByte(content[offset:], '\n')
		if idx < 0 {
			return len(content)
		}
		offset += idx + 1
		line++
	}
	lineLen := len(content) - offset
	if idx := strings.IndexByte(content[offset:], '\n'); idx >= 0 {
		lineLen = idx
	}
	return offset + min(col, lineLen)
}

// splitBytes splits s into the line slices nvim_buf_set_text expects.
func splitBytes(s string) [][]byte {
	parts := strings.Split(s, "\n")
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}
