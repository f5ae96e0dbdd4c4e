package review

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return NewStore("/tmp/plan.md", "Test Plan")
}

func TestNewStoreStartsPendingAtRoundOne(t *testing.T) {
	rev := newTestStore().Review()

	assert.NotEmpty(t, rev.ID)
	assert.Equal(t, StatusPending, rev.Status)
	assert.Equal(t, 1, rev.CurrentRound)
	assert.Equal(t, "/tmp/plan.md", rev.DocumentPath)
	assert.Equal(t, "Test Plan", rev.Title)
}

func TestCreateThreadValidRange(t *testing.T) {
	s := newTestStore()

	thread, err := s.CreateThread(3, 5, "needs clarification", AuthorHuman)
	require.NoError(t, err)

	assert.NotEmpty(t, thread.ID)
	assert.Equal(t, 3, thread.LineStart)
	assert.Equal(t, 5, thread.LineEnd)
	assert.Equal(t, AuthorHuman, thread.Author)
	assert.False(t, thread.Resolved)
	assert.False(t, thread.CreatedAt.IsZero())
	assert.Empty(t, thread.Replies)
}

func TestCreateThreadSingleLine(t *testing.T) {
	s := newTestStore()

	thread, err := s.CreateThread(7, 7, "typo", AuthorAgent)
	require.NoError(t, err)
	assert.Equal(t, 7, thread.LineStart)
	assert.Equal(t, 7, thread.LineEnd)
	assert.Equal(t, AuthorAgent, thread.Author)
}

func TestCreateThreadInvalidInput(t *testing.T) {
	cases := []struct {
		name       string
		start, end int
		body       string
	}{
		{"inverted range", 5, 3, "body"},
		{"zero start", 0, 3, "body"},
		{"negative start", -1, 3, "body"},
		{"zero end", 1, 0, "body"},
		{"empty body", 1, 2, ""},
		{"whitespace body", 1, 2, "   \n\t"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore()

			_, err := s.CreateThread(tc.start, tc.end, tc.body, AuthorHuman)
			require.Error(t, err)
			assert.True(t, IsValidation(err), "expected validation error, got %v", err)

			// Failed creates must not leave anything behind.
			assert.Empty(t, s.ListThreads(FilterAll))
		})
	}
}

func TestCreateThreadTrimsBody(t *testing.T) {
	s := newTestStore()

	thread, err := s.CreateThread(1, 1, "  padded  ", AuthorHuman)
	require.NoError(t, err)
	assert.Equal(t, "padded", thread.Body)
}

func TestAddReplyPreservesInsertionOrder(t *testing.T) {
	s := newTestStore()
	thread, err := s.CreateThread(1, 2, "root", AuthorHuman)
	require.NoError(t, err)

	bodies := []string{"first", "second", "third"}
	for _, body := range bodies {
		_, err := s.AddReply(thread.ID, body, AuthorAgent)
		require.NoError(t, err)
	}

	got := s.ListThreads(FilterAll)[0].Replies
	require.Len(t, got, 3)
	for i, body := range bodies {
		assert.Equal(t, body, got[i].Body)
	}
}

func TestAddReplyUnknownThread(t *testing.T) {
	s := newTestStore()

	_, err := s.AddReply("missing-id", "hello", AuthorHuman)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddReplyEmptyBody(t *testing.T) {
	s := newTestStore()
	thread, err := s.CreateThread(1, 1, "root", AuthorHuman)
	require.NoError(t, err)

	_, err = s.AddReply(thread.ID, "   ", AuthorHuman)
	assert.True(t, IsValidation(err))
}

func TestSetResolvedStampsAndClears(t *testing.T) {
	s := newTestStore()
	thread, err := s.CreateThread(2, 4, "check this", AuthorHuman)
	require.NoError(t, err)

	resolved, err := s.SetResolved(thread.ID, true, AuthorHuman)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, AuthorHuman, resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)

	// Unresolving is indistinguishable from never-resolved.
	unresolved, err := s.SetResolved(thread.ID, false, AuthorHuman)
	require.NoError(t, err)
	assert.False(t, unresolved.Resolved)
	assert.Empty(t, unresolved.ResolvedBy)
	assert.Nil(t, unresolved.ResolvedAt)
}

func TestSetResolvedIdempotent(t *testing.T) {
	s := newTestStore()
	thread, err := s.CreateThread(1, 1, "note", AuthorHuman)
	require.NoError(t, err)

	first, err := s.SetResolved(thread.ID, true, AuthorAgent)
	require.NoError(t, err)

	second, err := s.SetResolved(thread.ID, true, AuthorHuman)
	require.NoError(t, err)

	// Repeat resolve is a no-op: original stamp survives.
	assert.Equal(t, first.ResolvedBy, second.ResolvedBy)
	assert.Equal(t, first.ResolvedAt, second.ResolvedAt)
}

func TestSetResolvedUnknownThread(t *testing.T) {
	s := newTestStore()

	_, err := s.SetResolved("missing-id", true, AuthorHuman)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListThreadsSortedByLineStart(t *testing.T) {
	s := newTestStore()

	_, err := s.CreateThread(9, 9, "last", AuthorHuman)
	require.NoError(t, err)
	_, err = s.CreateThread(2, 3, "first", AuthorHuman)
	require.NoError(t, err)
	_, err = s.CreateThread(5, 6, "middle", AuthorHuman)
	require.NoError(t, err)

	threads := s.ListThreads(FilterAll)
	require.Len(t, threads, 3)
	assert.Equal(t, []string{"first", "middle", "last"}, []string{
		threads[0].Body, threads[1].Body, threads[2].Body,
	})
}

func TestListThreadsTieBreakIsCreationOrder(t *testing.T) {
	s := newTestStore()

	a, err := s.CreateThread(4, 4, "created first", AuthorHuman)
	require.NoError(t, err)
	b, err := s.CreateThread(4, 8, "created second", AuthorHuman)
	require.NoError(t, err)

	threads := s.ListThreads(FilterAll)
	require.Len(t, threads, 2)
	assert.Equal(t, a.ID, threads[0].ID)
	assert.Equal(t, b.ID, threads[1].ID)
}

func TestListThreadsFilterPartition(t *testing.T) {
	s := newTestStore()

	for i := 1; i <= 6; i++ {
		thread, err := s.CreateThread(i, i, "thread", AuthorHuman)
		require.NoError(t, err)
		if i%2 == 0 {
			_, err := s.SetResolved(thread.ID, true, AuthorHuman)
			require.NoError(t, err)
		}
	}

	all := s.ListThreads(FilterAll)
	pending := s.ListThreads(FilterPending)
	resolved := s.ListThreads(FilterResolved)

	assert.Len(t, all, 6)
	assert.Len(t, pending, 3)
	assert.Len(t, resolved, 3)

	// pending and resolved partition all: no overlap, union equals all.
	seen := map[string]bool{}
	for _, t2 := range append(append([]Thread{}, pending...), resolved...) {
		assert.False(t, seen[t2.ID], "thread %s returned by both filters", t2.ID)
		seen[t2.ID] = true
	}
	for _, t2 := range all {
		assert.True(t, seen[t2.ID], "thread %s missing from filtered union", t2.ID)
	}
}

func TestListThreadsReturnsCopies(t *testing.T) {
	s := newTestStore()
	thread, err := s.CreateThread(1, 1, "immutable", AuthorHuman)
	require.NoError(t, err)
	_, err = s.AddReply(thread.ID, "reply", AuthorHuman)
	require.NoError(t, err)

	first := s.ListThreads(FilterAll)
	first[0].Body = "tampered"
	first[0].Replies[0].Body = "tampered"

	second := s.ListThreads(FilterAll)
	if diff := cmp.Diff("immutable", second[0].Body); diff != "" {
		t.Errorf("thread body changed (-want +got):\n%s", diff)
	}
	assert.Equal(t, "reply", second[0].Replies[0].Body)
}

func TestSubmitReviewTransitions(t *testing.T) {
	s := newTestStore()

	rev, err := s.SubmitReview(DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, rev.Status)

	// Re-submitting from a terminal state overwrites the status.
	rev, err = s.SubmitReview(DecisionRequestChanges)
	require.NoError(t, err)
	assert.Equal(t, StatusChangesRequested, rev.Status)
}

func TestSubmitReviewUnknownDecision(t *testing.T) {
	s := newTestStore()

	_, err := s.SubmitReview("maybe")
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	// Status must be untouched.
	assert.Equal(t, StatusPending, s.Review().Status)
}

func TestAdvanceRoundResetsStatus(t *testing.T) {
	s := newTestStore()

	_, err := s.SubmitReview(DecisionRequestChanges)
	require.NoError(t, err)

	rev := s.AdvanceRound()
	assert.Equal(t, 2, rev.CurrentRound)
	assert.Equal(t, StatusPending, rev.Status)
}

func TestSubmitDoesNotAdvanceRound(t *testing.T) {
	s := newTestStore()

	rev, err := s.SubmitReview(DecisionRequestChanges)
	require.NoError(t, err)
	assert.Equal(t, 1, rev.CurrentRound)
}
