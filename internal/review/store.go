package review

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the in-memory registry for one review and its threads.
// A single mutex serializes mutations so concurrent HTTP requests
// (two browser tabs, an agent and a human) cannot lose updates.
// All read paths return copies; callers never alias internal state.
type Store struct {
	mu      sync.Mutex
	review  Review
	threads []*Thread
}

// NewStore creates a review in pending state at round 1.
func NewStore(documentPath, title string) *Store {
	return &Store{
		review: Review{
			ID:           uuid.NewString(),
			DocumentPath: documentPath,
			Title:        title,
			Status:       StatusPending,
			CurrentRound: 1,
		},
	}
}

// Review returns a copy of the current review record.
func (s *Store) Review() Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.review
}

// CreateThread validates the range and body, assigns an id and appends
// the thread. On validation failure nothing is stored.
func (s *Store) CreateThread(lineStart, lineEnd int, body string, author Author) (Thread, error) {
	if lineStart < 1 || lineEnd < 1 {
		return Thread{}, newValidationError("line numbers must be positive, got %d-%d", lineStart, lineEnd)
	}
	if lineStart > lineEnd {
		return Thread{}, newValidationError("lineStart %d is after lineEnd %d", lineStart, lineEnd)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return Thread{}, newValidationError("comment body must not be empty")
	}
	if author == "" {
		author = AuthorHuman
	}

	thread := &Thread{
		ID:        uuid.NewString(),
		LineStart: lineStart,
		LineEnd:   lineEnd,
		Author:    author,
		Body:      body,
		CreatedAt: time.Now().UTC(),
		Replies:   []Reply{},
	}

	s.mu.Lock()
	s.threads = append(s.threads, thread)
	s.mu.Unlock()

	return copyThread(thread), nil
}

// AddReply appends a reply to a thread. Replies keep insertion order.
func (s *Store) AddReply(threadID, body string, author Author) (Reply, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Reply{}, newValidationError("reply body must not be empty")
	}
	if author == "" {
		author = AuthorHuman
	}

	reply := Reply{
		Author:    author,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	thread := s.findLocked(threadID)
	if thread == nil {
		return Reply{}, ErrNotFound
	}
	thread.Replies = append(thread.Replies, reply)

	return reply, nil
}

// SetResolved toggles a thread's resolution state. Resolving stamps
// ResolvedBy/ResolvedAt; unresolving clears both. Setting the same
// value again is a no-op that still succeeds.
func (s *Store) SetResolved(threadID string, resolved bool, resolvedBy Author) (Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread := s.findLocked(threadID)
	if thread == nil {
		return Thread{}, ErrNotFound
	}

	if thread.Resolved != resolved {
		thread.Resolved = resolved
		if resolved {
			now := time.Now().UTC()
			thread.ResolvedBy = resolvedBy
			thread.ResolvedAt = &now
		} else {
			thread.ResolvedBy = ""
			thread.ResolvedAt = nil
		}
	}

	return copyThread(thread), nil
}

// ListThreads returns threads matching the filter, ordered ascending
// by LineStart. Ties keep creation order, so the result is stable and
// deterministic. The backing list stays in insertion order; sorting
// happens at read time.
func (s *Store) ListThreads(filter Filter) []Thread {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Thread, 0, len(s.threads))
	for _, t := range s.threads {
		switch filter {
		case FilterPending:
			if t.Resolved {
				continue
			}
		case FilterResolved:
			if !t.Resolved {
				continue
			}
		}
		out = append(out, copyThread(t))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LineStart < out[j].LineStart
	})

	return out
}

// SubmitReview records the reviewer's decision. Re-submitting from a
// terminal state is allowed and simply overwrites the status, since a
// reviewer may change their mind after further edits. An unknown
// decision leaves the status untouched.
func (s *Store) SubmitReview(decision string) (Review, error) {
	var next Status
	switch decision {
	case DecisionApprove:
		next = StatusApproved
	case DecisionRequestChanges:
		next = StatusChangesRequested
	default:
		return Review{}, newValidationError("unknown decision %q", decision)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.review.Status = next
	return s.review, nil
}

// AdvanceRound increments the round counter and resets the status to
// pending. Round advancement is caller-driven: the caller that reloads
// a new document revision owns it, submit never auto-increments.
func (s *Store) AdvanceRound() Review {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.review.CurrentRound++
	s.review.Status = StatusPending
	return s.review
}

func (s *Store) findLocked(threadID string) *Thread {
	for _, t := range s.threads {
		if t.ID == threadID {
			return t
		}
	}
	return nil
}

func copyThread(t *Thread) Thread {
	out := *t
	out.Replies = make([]Reply, len(t.Replies))
	copy(out.Replies, t.Replies)
	return out
}
