// Package review wires the pieces of a diff review together: it
// receives RPC notifications from the editor, asks the provider for
// edits, and drives the session's accept/reject protocol.
package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neovim/go-client/nvim"

	"lorediff/ctx"
	"lorediff/logger"
	"lorediff/metrics"
	"lorediff/nvimbuf"
	"lorediff/provider"
	"lorediff/session"
	"lorediff/types"
)

type Config struct {
	RequestTimeout time.Duration // suggestion request timeout
	ContextWindow  int           // characters of surrounding prose per side
}

// Controller serializes review operations for one editor connection.
// Neovim delivers notifications one at a time per channel, but the
// suggest request runs on its own goroutine, so the mutex is load
// bearing.
type Controller struct {
	config   Config
	provider provider.Provider
	tracker  *metrics.Tracker

	mu        sync.Mutex
	n         *nvim.Nvim
	buf       *nvimbuf.NvimBuffer
	session   *session.Session
	extractor *ctx.Extractor

	mainCtx    context.Context
	mainCancel context.CancelFunc
	stopOnce   sync.Once
}

func NewController(p provider.Provider, tracker *metrics.Tracker, config Config) *Controller {
	return &Controller{
		config:   config,
		provider: p,
		tracker:  tracker,
	}
}

func (c *Controller) Start(parent context.Context) {
	c.mainCtx, c.mainCancel = context.WithCancel(parent)
}

func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		if c.mainCancel != nil {
			c.mainCancel()
		}
	})
}

// SetNvim binds the controller to a new editor connection. Any review
// in progress on a previous connection is abandoned.
func (c *Controller) SetNvim(n *nvim.Nvim) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.session.Clear()
	}

	buf, err := nvimbuf.New(n)
	if err != nil {
		return fmt.Errorf("failed to attach buffer: %w", err)
	}

	c.n = n
	c.buf = buf
	c.session = session.New(buf)
	c.session.SetTracker(c.tracker)
	c.extractor = ctx.NewExtractor(buf, buf)
	if c.config.ContextWindow > 0 {
		c.extractor.SetWindow(c.config.ContextWindow)
	}

	return c.registerHandlers(n)
}

// suggestReference mirrors the reference tables the Lua side sends on
// the lorediff_suggest notification: one per lore entry (character
// sheet, place description) the user attached to the request.
type suggestReference struct {
	Name    string `msgpack:"name"`
	Content string `msgpack:"content"`
}

func (c *Controller) registerHandlers(n *nvim.Nvim) error {
	if err := n.RegisterHandler("lorediff_suggest", func(_ *nvim.Nvim, mode string, refs []suggestReference) {
		go c.handleSuggest(mode, refs)
	}); err != nil {
		return fmt.Errorf("failed to register lorediff_suggest: %w", err)
	}

	handlers := map[string]func(*nvim.Nvim, string){
		"lorediff_accept": func(_ *nvim.Nvim, id string) {
			c.handleResolve(id, true)
		},
		"lorediff_reject": func(_ *nvim.Nvim, id string) {
			c.handleResolve(id, false)
		},
	}
	for name, fn := range handlers {
		if err := n.RegisterHandler(name, fn); err != nil {
			return fmt.Errorf("failed to register %s: %w", name, err)
		}
	}

	bare := map[string]func(*nvim.Nvim){
		"lorediff_accept_next": func(_ *nvim.Nvim) { c.handleStep(true) },
		"lorediff_reject_next": func(_ *nvim.Nvim) { c.handleStep(false) },
		"lorediff_accept_all":  func(_ *nvim.Nvim) { c.handleAcceptAll() },
		"lorediff_reject_all":  func(_ *nvim.Nvim) { c.handleRejectAll() },
		"lorediff_clear":       func(_ *nvim.Nvim) { c.handleClear() },
	}
	for name, fn := range bare {
		if err := n.RegisterHandler(name, fn); err != nil {
			return fmt.Errorf("failed to register %s: %w", name, err)
		}
	}
	return nil
}

// handleSuggest extracts the selection, requests edits, and loads the
// result as pending proposals. Runs on its own goroutine; the mutex is
// held only around buffer access, not the network round-trip.
func (c *Controller) handleSuggest(rawMode string, refs []suggestReference) {
	defer logger.Trace("review.handleSuggest")()

	mode, known := types.ParseEditMode(rawMode)
	if !known && rawMode != "" {
		logger.Warn("suggest: unknown mode %q, using %s", rawMode, mode)
	}

	req, sess, err := c.buildRequest(mode, toReferences(refs))
	if err != nil {
		c.notifyError(err)
		return
	}
	if req == nil {
		logger.Info("suggest: nothing selected, ignoring")
		return
	}

	reqCtx := c.mainCtx
	if c.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(reqCtx, c.config.RequestTimeout)
		defer cancel()
	}

	edits, err := c.provider.RequestEdits(reqCtx, req)
	if err != nil {
		logger.Error("suggest: %v", err)
		c.notifyError(err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != sess {
		// The editor reconnected while the request was in flight; the
		// offsets were computed against the old buffer.
		logger.Info("suggest: connection changed mid-request, discarding %d edits", len(edits))
		return
	}
	loaded := c.session.LoadProposals(edits)
	c.notifyProposals()
	logger.Info("suggest: %d proposals loaded (mode=%s)", loaded, mode)
}

// buildRequest snapshots the selection and context under the lock and
// returns the session the request was built against, so the caller can
// detect a rebind that happened during the provider round-trip.
func (c *Controller) buildRequest(mode types.EditMode, refs []types.Reference) (*provider.EditRequest, *session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sel, err := c.extractor.Selection()
	if err != nil {
		return nil, nil, err
	}
	if sel == nil {
		return nil, nil, nil
	}

	surround, err := c.extractor.Context(sel.Range)
	if err != nil {
		return nil, nil, err
	}

	return &provider.EditRequest{
		SelectedText:   sel.Text,
		SelectionStart: sel.Range.Start,
		ContextBefore:  surround.Before,
		ContextAfter:   surround.After,
		Mode:           mode,
		References:     refs,
	}, c.session, nil
}

func toReferences(refs []suggestReference) []types.Reference {
	if len(refs) == 0 {
		return nil
	}
	out := make([]types.Reference, len(refs))
	for i, r := range refs {
		out[i] = types.Reference{Name: r.Name, Content: r.Content}
	}
	return out
}

func (c *Controller) handleResolve(id string, accept bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if accept {
		err = c.session.Accept(id)
	} else {
		err = c.session.Reject(id)
	}
	if err != nil {
		logger.Info("resolve %s: %v", id, err)
	}
	c.notifyProposals()
}

func (c *Controller) handleStep(accept bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var id string
	var err error
	if accept {
		id, err = c.session.AcceptNext()
	} else {
		id, err = c.session.RejectNext()
	}
	if id == "" {
		logger.Debug("step: no pending proposals")
		return
	}
	if err != nil {
		logger.Info("step %s: %v", id, err)
	}
	c.notifyProposals()
}

func (c *Controller) handleAcceptAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := c.session.AcceptAll()
	for _, f := range report.Failures {
		logger.Warn("accept all: %s: %v", f.ID, f.Err)
	}
	c.notifyProposals()
}

func (c *Controller) handleRejectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.RejectAll()
	c.notifyProposals()
}

func (c *Controller) handleClear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.Clear()
	c.notifyProposals()
}

// notifyProposals pushes the current review list to the Lua side for
// rendering. Called with the mutex held.
func (c *Controller) notifyProposals() {
	if c.n == nil {
		return
	}

	views := c.session.Proposals()
	items := make([]map[string]any, 0, len(views))
	for _, v := range views {
		items = append(items, map[string]any{
			"id":        v.ID,
			"kind":      v.Kind.String(),
			"start":     v.Range.Start,
			"end":       v.Range.End,
			"rationale": v.Rationale,
			"status":    v.Status.String(),
		})
	}

	if err := c.n.ExecLua("require('lorediff').on_proposals(...)", nil, items, c.session.Pending()); err != nil {
		logger.Error("error notifying proposals: %v", err)
	}
}

func (c *Controller) notifyError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == nil {
		return
	}
	if luaErr := c.n.ExecLua("require('lorediff').on_error(...)", nil, err.Error()); luaErr != nil {
		logger.Error("error notifying error: %v", luaErr)
	}
}
