// Package lorewise implements the Lorewise hosted API provider.
package lorewise

import (
	"context"
	"fmt"

	"lorediff/client/lorewise"
	"lorediff/logger"
	"lorediff/provider"
	"lorediff/text"
	"lorediff/types"
)

// Compile-time check that Provider implements provider.Provider
var _ provider.Provider = (*Provider)(nil)

// Client interface for API calls (enables mocking in tests)
type Client interface {
	DoSuggest(ctx context.Context, req *lorewise.SuggestRequest) (*lorewise.SuggestResponse, error)
}

// Provider turns Lorewise API responses into raw edits addressed
// against the full buffer.
type Provider struct {
	config *types.ProviderConfig
	client Client
}

// NewProvider creates a new Lorewise API provider.
func NewProvider(config *types.ProviderConfig) *Provider {
	return &Provider{
		config: config,
		client: lorewise.NewClient(config.ProviderURL, config.APIKey, config.RequestTimeout),
	}
}

// RequestEdits implements provider.Provider.
func (p *Provider) RequestEdits(ctx context.Context, req *provider.EditRequest) ([]types.RawEdit, error) {
	defer logger.Trace("lorewise.RequestEdits")()

	apiReq := &lorewise.SuggestRequest{
		SelectedText:       req.SelectedText,
		ContextBefore:      req.ContextBefore,
		ContextAfter:       req.ContextAfter,
		Mode:               string(req.Mode),
		References:         formatReferences(req.References),
		PrivacyModeEnabled: p.config.PrivacyMode,
	}

	apiResp, err := p.client.DoSuggest(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	// Continue-style modes return a full revised text; diff it locally
	// into discrete edits. Discrete edits win otherwise.
	var edits []types.RawEdit
	if apiResp.RevisedText != "" {
		edits = text.ExtractEdits(req.SelectedText, apiResp.RevisedText)
		logger.Debug("lorewise: revised text (%d bytes) -> %d edits",
			len(apiResp.RevisedText), len(edits))
	} else {
		edits = convertWireEdits(apiResp.Edits, len(req.SelectedText))
	}

	// Shift selection-relative offsets to buffer offsets.
	for i := range edits {
		edits[i].Start += req.SelectionStart
		edits[i].End += req.SelectionStart
	}

	logger.Debug("lorewise: suggestion %s -> %d edits", apiResp.SuggestionID, len(edits))
	return edits, nil
}

// convertWireEdits maps wire edits to raw edits, dropping anything the
// API returned malformed: an unknown kind, inverted offsets, or a range
// beyond the selected text. Dropping here keeps garbage out of the
// session entirely rather than surfacing it as a stale proposal.
func convertWireEdits(wire []lorewise.WireEdit, selectionLen int) []types.RawEdit {
	edits := make([]types.RawEdit, 0, len(wire))
	for _, w := range wire {
		kind, ok := types.KindFromString(w.Kind)
		if !ok {
			logger.Warn("lorewise: dropping edit with unknown kind %q", w.Kind)
			continue
		}
		if w.StartIndex < 0 || w.StartIndex > w.EndIndex || w.EndIndex > selectionLen {
			logger.Warn("lorewise: dropping %s edit with bad range [%d, %d) (selection is %d bytes)",
				w.Kind, w.StartIndex, w.EndIndex, selectionLen)
			continue
		}
		edits = append(edits, types.RawEdit{
			Kind:      kind,
			Start:     w.StartIndex,
			End:       w.EndIndex,
			OldText:   w.OldText,
			NewText:   w.NewText,
			Rationale: w.Rationale,
		})
	}
	return edits
}

func formatReferences(refs []types.Reference) []lorewise.Reference {
	out := make([]lorewise.Reference, 0, len(refs))
	for _, r := range refs {
		if r.Content == "" {
			continue
		}
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("reference-%d", len(out)+1)
		}
		out = append(out, lorewise.Reference{Name: name, Content: r.Content})
	}
	return out
}
