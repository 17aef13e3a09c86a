package webhook

import "strings"

// EventStatus is the lifecycle state of a stored delivery.
type EventStatus string

const (
	StatusPending   EventStatus = "pending"
	StatusProcessed EventStatus = "processed"
	StatusFailed    EventStatus = "failed"
	StatusIgnored   EventStatus = "ignored"
)

var eventStatuses = []EventStatus{StatusPending, StatusProcessed, StatusFailed, StatusIgnored}

// EventStatuses lists every status in lifecycle order.
func EventStatuses() []EventStatus {
	out := make([]EventStatus, len(eventStatuses))
	copy(out, eventStatuses)
	return out
}

func (s EventStatus) Valid() bool {
	for _, known := range eventStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether an ingestion attempt can end in s.
func (s EventStatus) Terminal() bool {
	return s == StatusProcessed || s == StatusFailed || s == StatusIgnored
}

func ParseEventStatus(raw string) (EventStatus, bool) {
	s := EventStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

type ReviewState string

const (
	ReviewApprove        ReviewState = "APPROVE"
	ReviewRequestChanges ReviewState = "REQUEST_CHANGES"
	ReviewComment        ReviewState = "COMMENT"
)

// CommentSide is LEFT, RIGHT or unset ("").
type CommentSide string

const (
	SideUnset CommentSide = ""
	SideLeft  CommentSide = "LEFT"
	SideRight CommentSide = "RIGHT"
)

// Event kinds carried in the X-GitHub-Event header.
const (
	KindPing                     = "ping"
	KindPullRequest              = "pull_request"
	KindPullRequestReview        = "pull_request_review"
	KindPullRequestReviewComment = "pull_request_review_comment"
	KindIssueComment             = "issue_comment"
)

const (
	ActionSubmitted = "submitted"
	ActionEdited    = "edited"
	ActionDismissed = "dismissed"
	ActionCreated   = "created"
	ActionDeleted   = "deleted"
)
