package review

import "time"

// Author identifies who wrote a comment or reply.
type Author string

const (
	AuthorHuman Author = "human"
	AuthorAgent Author = "agent"
)

// Status is the review decision state.
type Status string

const (
	StatusPending          Status = "pending_review"
	StatusApproved         Status = "approved"
	StatusChangesRequested Status = "changes_requested"
)

// Decision values accepted by SubmitReview.
const (
	DecisionApprove        = "approve"
	DecisionRequestChanges = "request_changes"
)

// Review wraps one document revision, its approval status and its
// round counter. It is process-scoped and never deleted.
type Review struct {
	ID           string `json:"id"`
	DocumentPath string `json:"documentPath"`
	Title        string `json:"title"`
	Status       Status `json:"status"`
	CurrentRound int    `json:"currentRound"`
}

// Thread is a line-anchored comment conversation. LineStart and
// LineEnd are a 1-indexed inclusive range into the document's lines.
type Thread struct {
	ID         string     `json:"id"`
	LineStart  int        `json:"lineStart"`
	LineEnd    int        `json:"lineEnd"`
	Author     Author     `json:"author"`
	Body       string     `json:"body"`
	CreatedAt  time.Time  `json:"createdAt"`
	Resolved   bool       `json:"resolved"`
	ResolvedBy Author     `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	Replies    []Reply    `json:"replies"`
}

// Reply is appended to a thread and never removed or edited.
type Reply struct {
	Author    Author    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Filter selects which threads ListThreads returns.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterPending  Filter = "pending"
	FilterResolved Filter = "resolved"
)
