// Package provider defines the AI edit source abstraction.
package provider

import (
	"context"

	"lorediff/types"
)

// EditRequest is everything a provider gets to work with: the selected
// prose, where it sits in the buffer, the surrounding context, and the
// user's instruction mode.
type EditRequest struct {
	SelectedText   string
	SelectionStart int // byte offset of the selection in the buffer
	ContextBefore  string
	ContextAfter   string
	Mode           types.EditMode
	References     []types.Reference
}

// Provider produces edit suggestions for a request. Implementations
// return edits with byte offsets into the full buffer, validated well
// enough to load; the session does its own boundary checks on top.
type Provider interface {
	RequestEdits(ctx context.Context, req *EditRequest) ([]types.RawEdit, error)
}
