package text

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"lorediff/types"
)

// ExtractEdits diffs oldText against newText and returns the changes as
// discrete raw edits with byte offsets into oldText. Adjacent
// delete+insert pairs collapse into a single replace, which is what a
// reviewer wants to see for a reworded phrase. Semantic cleanup keeps
// the edits aligned to word boundaries rather than the shortest
// character diff.
func ExtractEdits(oldText, newText string) []types.RawEdit {
	if oldText == newText {
		return nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var edits []types.RawEdit
	oldPos := 0

	for i := 0; i < len(diffs); i++ {
		diff := diffs[i]
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			oldPos += len(diff.Text)

		case diffmatchpatch.DiffDelete:
			start := oldPos
			end := oldPos + len(diff.Text)
			oldPos = end

			// Delete followed by insert is a replace.
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				edits = append(edits, types.RawEdit{
					Kind:    types.KindReplace,
					Start:   start,
					End:     end,
					OldText: diff.Text,
					NewText: diffs[i+1].Text,
				})
				i++
				continue
			}

			edits = append(edits, types.RawEdit{
				Kind:    types.KindDelete,
				Start:   start,
				End:     end,
				OldText: diff.Text,
			})

		case diffmatchpatch.DiffInsert:
			edits = append(edits, types.RawEdit{
				Kind:    types.KindInsert,
				Start:   oldPos,
				End:     oldPos,
				NewText: diff.Text,
			})
		}
	}

	return edits
}
