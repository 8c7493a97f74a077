// Package session owns the diff-review lifecycle for one open buffer:
// the set of pending edit proposals, their visual annotations, and the
// accept/reject protocol that applies or discards them.
package session

import (
	"fmt"
	"time"

	"lorediff/logger"
	"lorediff/metrics"
	"lorediff/text"
	"lorediff/types"
)

// Proposal is one suggested, not-yet-applied change to the buffer.
//
// State machine per proposal:
//
//	Pending --accept--> Accepted   (terminal)
//	Pending --reject--> Rejected   (terminal)
//
// Per session:
//
//	Empty --load--> HasPending --all resolved / clear--> Empty
type Proposal struct {
	ID              string
	Kind            types.EditKind
	Range           text.Span // advisory once anything has mutated the buffer
	ExpectedText    string    // what the AI believed occupied Range; integrity check only
	ReplacementText string    // empty for deletes
	Rationale       string    // display-only
	Status          types.Status

	shownAt   time.Time
	deletions int // removed range length at creation, for metrics
}

// ProposalView is the read-only projection exposed for rendering a
// review list.
type ProposalView struct {
	ID        string
	Kind      types.EditKind
	Range     text.Span
	Rationale string
	Status    types.Status
}

// Session holds the pending proposals for one buffer. It does not own
// the buffer; all mutations go through the buffer's own contract, and
// all position truth comes from the annotation layer's live tags.
//
// Operations are synchronous and must not be called concurrently; the
// surrounding application serializes them (they run in direct response
// to a user action or a resolved suggestion request).
type Session struct {
	buf       text.Buffer
	ann       *text.Annotator
	proposals []*Proposal // insertion order == order received from the AI
	byID      map[string]*Proposal
	nextSeq   int
	tracker   *metrics.Tracker
}

// New creates an empty session over buf.
func New(buf text.Buffer) *Session {
	return &Session{
		buf:  buf,
		ann:  text.NewAnnotator(buf),
		byID: make(map[string]*Proposal),
	}
}

// SetTracker attaches an optional metrics tracker.
func (s *Session) SetTracker(t *metrics.Tracker) {
	s.tracker = t
}

// LoadProposals converts raw edits from the AI edit source into pending
// proposals and marks each one in the buffer. Buffer content is not
// touched. Malformed edits (zero-length range for a non-insert kind, or
// a range outside the buffer) are dropped with a warning and never
// become proposals. Returns the number of proposals created.
func (s *Session) LoadProposals(rawEdits []types.RawEdit) int {
	loaded := 0
	for _, raw := range rawEdits {
		span := text.Span{Start: raw.Start, End: raw.End}

		if span.Empty() && raw.Kind != types.KindInsert {
			logger.Warn("dropping malformed %s edit with empty range %s", raw.Kind, span)
			continue
		}
		if span.Start < 0 || span.Start > span.End || span.End > s.buf.Len() {
			logger.Warn("dropping %s edit with out-of-range span %s (buffer is %d bytes)",
				raw.Kind, span, s.buf.Len())
			continue
		}

		s.nextSeq++
		p := &Proposal{
			ID:              fmt.Sprintf("edit-%d", s.nextSeq),
			Kind:            raw.Kind,
			Range:           span,
			ExpectedText:    raw.OldText,
			ReplacementText: raw.NewText,
			Rationale:       raw.Rationale,
			Status:          types.StatusPending,
			shownAt:         time.Now(),
			deletions:       span.Len(),
		}

		if err := s.ann.Mark(p.ID, p.Kind, span); err != nil {
			logger.Warn("dropping edit %s: %v", p.ID, err)
			continue
		}

		s.proposals = append(s.proposals, p)
		s.byID[p.ID] = p
		loaded++

		s.tracker.TrackShown(s.metricsFor(p))
	}

	logger.Debug("loaded %d proposals (%d raw edits)", loaded, len(rawEdits))
	return loaded
}

// Accept applies one pending proposal to the buffer and removes its
// annotation. The proposal's current range is read from the live tag,
// never from the stored integers, which go stale as soon as an earlier
// accept (or any ordinary edit) mutates the buffer.
//
// If the live range has collapsed (its target text was deleted by an
// intervening edit), the proposal is force-rejected and ErrStaleRange
// returned: applying to the wrong text is never an option. The buffer
// mutation is atomic; a replace either fully commits or not at all.
func (s *Session) Accept(id string) error {
	p, ok := s.byID[id]
	if !ok || p.Status != types.StatusPending {
		return fmt.Errorf("accept %s: %w", id, ErrNotPending)
	}

	live, ok := s.ann.LiveRange(id)
	if !ok {
		s.forceReject(p)
		return fmt.Errorf("accept %s: tag lost: %w", id, ErrStaleRange)
	}
	if p.Kind != types.KindInsert && live.Empty() {
		s.forceReject(p)
		return fmt.Errorf("accept %s: %w", id, ErrStaleRange)
	}

	s.checkIntegrity(p, live)

	err := s.buf.Group(func() error {
		switch p.Kind {
		case types.KindInsert:
			return s.buf.Insert(live.Start, p.ReplacementText)
		case types.KindDelete:
			return s.buf.Delete(live)
		case types.KindReplace:
			if err := s.buf.Delete(live); err != nil {
				return err
			}
			return s.buf.Insert(live.Start, p.ReplacementText)
		default:
			return fmt.Errorf("unknown edit kind %d", p.Kind)
		}
	})
	if err != nil {
		s.forceReject(p)
		return fmt.Errorf("accept %s: %w", id, err)
	}

	if err := s.ann.Unmark(id); err != nil {
		logger.Warn("accept %s: %v", id, err)
	}
	p.Status = types.StatusAccepted
	p.Range = text.Span{Start: live.Start, End: live.Start + len(p.ReplacementText)}

	s.tracker.TrackAccepted(s.metricsFor(p))
	logger.Debug("accepted %s (%s at %s)", id, p.Kind, live)
	return nil
}

// Reject removes one pending proposal's annotation and resolves it.
// Buffer content is unchanged.
func (s *Session) Reject(id string) error {
	p, ok := s.byID[id]
	if !ok || p.Status != types.StatusPending {
		return fmt.Errorf("reject %s: %w", id, ErrNotPending)
	}

	if err := s.ann.Unmark(id); err != nil {
		logger.Warn("reject %s: %v", id, err)
	}
	p.Status = types.StatusRejected

	s.tracker.TrackRejected(s.metricsFor(p))
	logger.Debug("rejected %s", id)
	return nil
}

// AcceptNext accepts the first pending proposal in insertion order.
// Insertion order, not buffer-position order: positions are a moving
// target as accepts apply, and the AI returns edits in the order it
// reasoned about them, which gives deterministic keyboard review.
// No-op (empty id, nil error) when nothing is pending.
func (s *Session) AcceptNext() (string, error) {
	p := s.firstPending()
	if p == nil {
		return "", nil
	}
	return p.ID, s.Accept(p.ID)
}

// RejectNext rejects the first pending proposal in insertion order.
// No-op (empty id, nil error) when nothing is pending.
func (s *Session) RejectNext() (string, error) {
	p := s.firstPending()
	if p == nil {
		return "", nil
	}
	return p.ID, s.Reject(p.ID)
}

// AcceptAll accepts every pending proposal in insertion order, reading
// each one's live range immediately before applying (earlier accepts in
// the batch shift later ones; the live tags absorb that). An individual
// StaleRange failure does not halt the batch: it is recorded in the
// report and the loop continues, so one de-synced suggestion cannot
// block unrelated edits.
func (s *Session) AcceptAll() *AcceptAllReport {
	report := &AcceptAllReport{}
	for _, p := range s.snapshot() {
		if p.Status != types.StatusPending {
			continue
		}
		if err := s.Accept(p.ID); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, Failure{ID: p.ID, Err: err})
			continue
		}
		report.Applied++
	}
	logger.Debug("accept all: %d applied, %d failed", report.Applied, report.Failed)
	return report
}

// RejectAll rejects every pending proposal. Cannot fail; no buffer
// mutation occurs.
func (s *Session) RejectAll() {
	for _, p := range s.snapshot() {
		if p.Status != types.StatusPending {
			continue
		}
		if err := s.Reject(p.ID); err != nil {
			logger.Warn("reject all: %v", err)
		}
	}
}

// Clear abandons the whole review: every diff tag is removed and all
// proposals are discarded regardless of status. The buffer keeps
// whatever already-accepted proposals changed; nothing is rolled back.
// Used when the review closes or the user switches documents.
func (s *Session) Clear() {
	s.ann.UnmarkAll()
	s.proposals = nil
	s.byID = make(map[string]*Proposal)
}

// Pending returns the number of unresolved proposals.
func (s *Session) Pending() int {
	n := 0
	for _, p := range s.proposals {
		if p.Status == types.StatusPending {
			n++
		}
	}
	return n
}

// Proposals returns a read-only view of all proposals in insertion
// order. Pending proposals report their live range; resolved ones
// report the range they resolved at.
func (s *Session) Proposals() []ProposalView {
	views := make([]ProposalView, 0, len(s.proposals))
	for _, p := range s.proposals {
		span := p.Range
		if p.Status == types.StatusPending {
			if live, ok := s.ann.LiveRange(p.ID); ok {
				span = live
			}
		}
		views = append(views, ProposalView{
			ID:        p.ID,
			Kind:      p.Kind,
			Range:     span,
			Rationale: p.Rationale,
			Status:    p.Status,
		})
	}
	return views
}

// forceReject resolves a proposal that cannot be applied safely.
func (s *Session) forceReject(p *Proposal) {
	if s.ann.Marked(p.ID) {
		if err := s.ann.Unmark(p.ID); err != nil {
			logger.Warn("force reject %s: %v", p.ID, err)
		}
	}
	p.Status = types.StatusRejected
	s.tracker.TrackRejected(s.metricsFor(p))
}

// checkIntegrity compares the live text against what the AI believed
// was there. Log-only: a mismatch never blocks the apply.
func (s *Session) checkIntegrity(p *Proposal, live text.Span) {
	if p.ExpectedText == "" || p.Kind == types.KindInsert {
		return
	}
	current, err := s.buf.Text(live)
	if err != nil || current == p.ExpectedText {
		return
	}
	score := text.Similarity(p.ExpectedText, current)
	if score < 0.5 {
		logger.Warn("accept %s: target text drifted (similarity %.2f)", p.ID, score)
	} else {
		logger.Debug("accept %s: target text drifted (similarity %.2f)", p.ID, score)
	}
}

func (s *Session) firstPending() *Proposal {
	for _, p := range s.proposals {
		if p.Status == types.StatusPending {
			return p
		}
	}
	return nil
}

// snapshot copies the proposal list so batch loops are immune to
// mutation of the underlying slice.
func (s *Session) snapshot() []*Proposal {
	out := make([]*Proposal, len(s.proposals))
	copy(out, s.proposals)
	return out
}

func (s *Session) metricsFor(p *Proposal) *metrics.SuggestionMetrics {
	return &metrics.SuggestionMetrics{
		ID:        p.ID,
		Kind:      p.Kind.String(),
		Additions: len(p.ReplacementText),
		Deletions: p.deletions,
		ShownAt:   p.shownAt,
	}
}
