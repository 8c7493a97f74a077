package session

import (
	"errors"
	"testing"

	"lorediff/assert"
	"lorediff/text"
	"lorediff/types"
)

func newTestSession(content string) (*Session, *text.Document) {
	d := text.NewDocument(content)
	return New(d), d
}

func TestLoadProposalsMarksWithoutMutating(t *testing.T) {
	s, d := newTestSession("The knight walked into the castle.")

	loaded := s.LoadProposals([]types.RawEdit{
		{Kind: types.KindReplace, Start: 4, End: 17, OldText: "knight walked", NewText: "knight strode confidently"},
	})

	assert.Equal(t, 1, loaded, "one proposal loaded")
	assert.Equal(t, 1, s.Pending(), "one pending")
	assert.Equal(t, "The knight walked into the castle.", d.String(), "buffer untouched by load")
	assert.Equal(t, 1, d.TagCount(), "one tag placed")
}

func TestLoadProposalsDropsMalformed(t *testing.T) {
	s, d := newTestSession("short text")

	loaded := s.LoadProposals([]types.RawEdit{
		{Kind: types.KindDelete, Start: 3, End: 3},              // empty range, non-insert
		{Kind: types.KindReplace, Start: 5, End: 2},             // inverted
		{Kind: types.KindReplace, Start: 0, End: 500},           // past end
		{Kind: types.KindInsert, Start: -1, End: -1},            // negative
		{Kind: types.KindDelete, Start: 0, End: 5, OldText: "short"}, // fine
	})

	assert.Equal(t, 1, loaded, "only the well-formed edit survives")
	assert.Equal(t, 1, s.Pending(), "one pending")
	assert.Equal(t, 1, d.TagCount(), "one tag placed")
}

func TestAcceptReplaceMutatesExactRange(t *testing.T) {
	s, d := newTestSession("The knight walked into the castle.")

	s.LoadProposals([]types.RawEdit{
		{Kind: types.KindReplace, Start: 4, End: 17, OldText: "knight walked", NewText: "knight strode confidently"},
	})

	views := s.Proposals()
	assert.Len(t, 1, views, "one proposal")

	err := s.Accept(views[0].ID)
	assert.NoError(t, err, "accept")
	assert.Equal(t, "The knight strode confidently into the castle.", d.String(), "buffer after accept")
	assert.Equal(t, 0, s.Pending(), "nothing pending")
	assert.Equal(t, 0, d.TagCount(), "tag removed")

	views = s.Proposals()
	assert.Equal(t, types.StatusAccepted, views[0].Status, "status accepted")
}

func TestAcceptInsert(t *testing.T) {
	s, d := newTestSession("He opened the door.")

	s.LoadProposals([]types.RawEdit{
		{Kind: types.KindInsert, Start: 3, End: 3, NewText: "slowly "},
	})

	id := s.Proposals()[0].ID
	assert.NoError(t, s.Accept(id), "accept insert")
	assert.Equal(t, "He slowly opened the door.", d.String(), "buffer after insert")
}

func TestAcceptDelete(t *testing.T) {
	s, d := newTestSession("She very quickly ran home.")

	s.LoadProposals([]types.RawEdit{
		{Kind: types.KindDelete, Start: 4, End: 17, OldText: "very quickly "},
	})

	id := s.Proposals()[0].ID
	assert.NoError(t, s.Accept(id), "accept delete")
	assert.Equal(t, "She ran home.", d.String(), "buffer after delete")
}

func TestRejectLeavesBufferUntouched(t *testing.T) {
	s, d := newTestSession("Original prose stays put.")

	s.LoadProposals([]types.RawEdit{
		{Kind: types.KindReplace, Start: 0, End: 8, OldText: "Original", NewText: "Rewritten"},
	})

	id := s.Proposals()[0].ID
	assert.NoError(t, s.Reject(id), "reject")
	assert.Equal(t, "Original prose stays put.", d.String(), "buffer unchanged")
	assert.Equal(t, 0, d.TagCount(), "tag removed")

	// A second reject (or a late accept) on the same id is benign.
	assert.True(t, errors.Is(s.Reject(id), ErrNotPending), "re-reject is not pending")
	assert.True(t, errors.Is(s.Accept(id), ErrNotPending), "late accept is not pending")
	assert.Equal(t, "Original prose stays put.", d.String(), "buffer still unchanged")
}

func TestUnknownIDIsNotPending(t *testing.T) {
	s, _ := newTestSession("whatever")
	assert.True(t, errors.Is(s.Accept("edit-999"), ErrNotPending), "unknown accept")
	assert.True(t, errors.Is(s.Reject("edit-999"), ErrNotPending), "unknown reject")
}

func TestSiblingProposalRemapping(t *testing.T) {
	s, d := newTestSession("aaaaabbbbbcccccddddd")

	s.LoadProposals([]types.RawEdit{
		{Kind: types.KindReplace, Start: 0, End: 5, OldText: "aaaaa", NewText: "AAAAAAAA"},
		{Kind: types.KindReplace, Start: 10, End: 15, OldText: "ccccc", NewText: "CCCCC"},
	})

	views := s.Proposals()
	first, second := views[0].ID, views[1].ID

	// Accepting the first proposal grows the buffer by 3 bytes.
	assert.NoError(t, s.Accept(first), "accept first")
	assert.Equal(t, "AAAAAAAAbbbbbcccccddddd", d.String(), "buffer after first accept")

	// The second proposal's live range followed the shift.
	views = s.Proposals()
	assert.Equal(t, text.Span{Start: 13, End: 18}, views[1].Range, "second proposal remapped")

	assert.NoError(t, s.Accept(second), "accept second")
	assert.Equal(t, "AAAAAAAAbbbbbCCCCCddddd", d.String(), "buffer after second accept")
}

func TestAcceptStaleRangeForceRejects(t *testing.T) {
	s, d := newTestSession("aaaaabbbbbccccc")

	s.LoadProposals([]types.RawEdit{
		{Kind: types.KindReplace, Start: 5, End: 10, OldText: "bbbbb", NewText: "BBBBB"},
	})
	id := s.Proposals()[0].ID

	// The user deletes the proposal's whole target before reviewing it.
	assert.NoError(t, d.Delete(text.Span{Start: 3, End: 12}), "user delete")

	err := s.Accept(id)
	assert.True(t, errors.Is(err, ErrStaleRange), "stale range error")
	assert.Equal(t, "aaaccc", d.String(), "buffer not touched by failed accept")
	assert.Equal(t, types.StatusRejected, s.Proposals()[0].Status, "force rejected")
	assert.Equal(t, 0, s.Pending(), "nothing pending")

	// Resolved now, so a retry is not pending rather than stale again.
	assert.True(t, errors.Is(s.Accept(id), ErrNotPending), "retry after force reject")
}

func TestNextOperationsFollowInsertionOrder(t *testing.T) {
	s, d := newTestSession("aaaaabbbbbcccccddddd")

	// Deliberately out of buffer-position order.
	s.LoadProposals([]types.RawEdit{
		{Kind: types.KindReplace, Start: 10, End: 15, OldText: "ccccc", NewText: "CCCCC"},
		{Kind: types.KindReplace, Start: 0, End: 5, OldText: "aaaaa", NewText: "AAAAA"},
	})

	views := s.Proposals()
	firstLoaded := views[0].ID

	id, err := s.AcceptNext()
	assert.NoError(t, err, "accept next")
	assert.Equal(t, firstLoaded, id, "insertion order wins over position order")
	assert.Equal(t, "aaaaabbbbbCCCCCddddd", d.String(), "first-loaded proposal applied")

	id, err = s.RejectNext()
	assert.NoError(t, err, "reject next")
	assert.Equal(t, views[1].ID, id, "second in insertion order")
	assert.Equal(t, "aaaaabbbbbCCCCCddddd", d.String(), "reject left buffer alone")

	// Nothing pending: both step operations are no-ops.
	id, err = s.AcceptNext()
	assert.NoError(t, err, "accept next on empty")
	assert.Equal(t, "", id, "no id when nothing pending")

	id, err = s.RejectNext()
	assert.NoError(t, err, "reject next on empty")
	assert.Equal(t, "", id, "no id when nothing pending")
}

func TestAcceptAllContinuesPastFailures(t *testing.T) {
	s, d := newTestSession("aaaaabbbbbcccccddddd")

	// The second proposal sits entirely inside the first one's delete
	// range, so it goes stale the moment the first applies.
	s.LoadProposals([]types.RawEdit{
		{Kind: types.KindDelete, Start: 0, End: 10, OldText: "aaaaabbbbb"},
		{Kind: types.KindReplace, Start: 2, End: 8, OldText: "aaabbb", NewText: "X"},
		{Kind: types.KindReplace, Start: 15, End: 20, OldText: "ddddd", NewText: "DDDDD"},
	})

	views := s.Proposals()
	staleID := views[1].ID

	report := s.AcceptAll()
	assert.Equal(t, 2, report.Applied, "two applied")
	assert.Equal(t, 1, report.Failed, "one failed")
	assert.Len(t, 1, report.Failures, "one failure recorded")
	assert.Equal(t, staleID, report.Failures[0].ID, "the overlapped proposal failed")
	assert.True(t, errors.Is(report.Failures[0].Err, ErrStaleRange), "failure is stale range")

	assert.Equal(t, "cccccDDDDD", d.String(), "independent proposals applied around the failure")
	assert.Equal(t, 0, s.Pending(), "everything resolved")
	assert.Equal(t, 0, d.TagCount(), "no tags left")
}

func TestRejectAll(t *testing.T) {
	s, d := newTestSession("aaaaabbbbbccccc")

	s.LoadProposals([]types.RawEdit{
		{Kind: types.KindDelete, Start: 0, End: 5, OldText: "aaaaa"},
		{Kind: types.KindReplace, Start: 5, End: 10, OldText: "bbbbb", NewText: "BBBBB"},
	})

	s.RejectAll()
	assert.Equal(t, "aaaaabbbbbccccc", d.String(), "buffer unchanged")
	assert.Equal(t, 0, s.Pending(), "nothing pending")
	assert.Equal(t, 0, d.TagCount(), "no tags left")

	for _, v := range s.Proposals() {
		assert.Equal(t, types.StatusRejected, v.Status, "all rejected")
	}
}

func TestClearAbandonsReview(t *testing.T) {
	s, d := newTestSession("aaaaabbbbbccccc")

	s.LoadProposals([]types.RawEdit{
		{Kind: types.KindReplace, Start: 0, End: 5, OldText: "aaaaa", NewText: "AAAAA"},
		{Kind: types.KindReplace, Start: 5, End: 10, OldText: "bbbbb", NewText: "BBBBB"},
	})
	assert.NoError(t, s.Accept(s.Proposals()[0].ID), "accept one first")

	s.Clear()
	assert.Equal(t, "AAAAAbbbbbccccc", d.String(), "accepted change survives clear")
	assert.Equal(t, 0, d.TagCount(), "tags wiped")
	assert.Len(t, 0, s.Proposals(), "proposal list emptied")
	assert.Equal(t, 0, s.Pending(), "nothing pending")

	// The session is reusable after a clear.
	loaded := s.LoadProposals([]types.RawEdit{
		{Kind: types.KindDelete, Start: 0, End: 5, OldText: "AAAAA"},
	})
	assert.Equal(t, 1, loaded, "fresh load after clear")
}

func TestProposalViewsReportLiveRanges(t *testing.T) {
	s, d := newTestSession("aaaaabbbbbccccc")

	s.LoadProposals([]types.RawEdit{
		{Kind: types.KindReplace, Start: 10, End: 15, OldText: "ccccc", NewText: "CCCCC"},
	})

	// Ordinary typing before the proposal shifts its live range.
	assert.NoError(t, d.Insert(0, "XX"), "user insert")

	v := s.Proposals()[0]
	assert.Equal(t, text.Span{Start: 12, End: 17}, v.Range, "view shows the live range")
	assert.Equal(t, types.StatusPending, v.Status, "still pending")
}

func TestAcceptAfterUserTypingTargetsLiveRange(t *testing.T) {
	s, d := newTestSession("The end was near.")

	s.LoadProposals([]types.RawEdit{
		{Kind: types.KindReplace, Start: 4, End: 7, OldText: "end", NewText: "finale"},
	})
	id := s.Proposals()[0].ID

	// The user types at the front of the buffer before reviewing.
	assert.NoError(t, d.Insert(0, "Indeed, "), "user typing")

	assert.NoError(t, s.Accept(id), "accept after typing")
	assert.Equal(t, "Indeed, The finale was near.", d.String(), "accept followed the moved text")
}
