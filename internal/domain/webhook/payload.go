package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Int is a payload integer that tolerates numeric strings. Decoding never
// fails; unparseable input leaves Valid false.
type Int struct {
	Value int64
	Valid bool
}

func (i *Int) UnmarshalJSON(data []byte) error {
	*i = Int{}
	raw, ok := decodeLoose(data)
	if !ok {
		return nil
	}
	i.Value, i.Valid = ToInt64(raw)
	return nil
}

func (i Int) Ptr() *int64 {
	if !i.Valid {
		return nil
	}
	v := i.Value
	return &v
}

func (i Int) Or(fallback int64) int64 {
	if !i.Valid {
		return fallback
	}
	return i.Value
}

// Time is a payload timestamp. Decoding never fails; unparseable input
// leaves Valid false.
type Time struct {
	Value time.Time
	Valid bool
}

func (t *Time) UnmarshalJSON(data []byte) error {
	*t = Time{}
	raw, ok := decodeLoose(data)
	if !ok {
		return nil
	}
	t.Value, t.Valid = ToTime(raw)
	return nil
}

func (t Time) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Value
	return &v
}

func (t Time) Or(fallback time.Time) time.Time {
	if !t.Valid {
		return fallback
	}
	return t.Value
}

func decodeLoose(data []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, false
	}
	return raw, raw != nil
}

type User struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

type RepositoryPayload struct {
	ID            Int     `json:"id"`
	Name          string  `json:"name"`
	FullName      string  `json:"full_name"`
	Owner         *User   `json:"owner"`
	Description   *string `json:"description"`
	DefaultBranch string  `json:"default_branch"`
	Private       bool    `json:"private"`
}

type BranchRef struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

type PullRequestPayload struct {
	ID        Int             `json:"id"`
	Number    Int             `json:"number"`
	Title     *string         `json:"title"`
	Body      *string         `json:"body"`
	State     *string         `json:"state"`
	User      *User           `json:"user"`
	Base      *BranchRef      `json:"base"`
	Head      *BranchRef      `json:"head"`
	Mergeable *bool           `json:"mergeable"`
	Merged    *bool           `json:"merged"`
	MergedBy  json.RawMessage `json:"merged_by"`
	Draft     *bool           `json:"draft"`
	CreatedAt Time            `json:"created_at"`
	UpdatedAt Time            `json:"updated_at"`
	ClosedAt  Time            `json:"closed_at"`
	MergedAt  Time            `json:"merged_at"`
}

// IsMerged treats any of merged_at, merged or merged_by as evidence.
func (p PullRequestPayload) IsMerged() bool {
	if p.MergedAt.Valid {
		return true
	}
	if p.Merged != nil && *p.Merged {
		return true
	}
	return present(p.MergedBy)
}

type ReviewPayload struct {
	ID          Int     `json:"id"`
	State       any     `json:"state"`
	Body        *string `json:"body"`
	User        *User   `json:"user"`
	SubmittedAt Time    `json:"submitted_at"`
}

type CommentPayload struct {
	ID               Int     `json:"id"`
	Body             *string `json:"body"`
	Position         Int     `json:"position"`
	OriginalPosition Int     `json:"original_position"`
	Line             Int     `json:"line"`
	Side             any     `json:"side"`
	Path             *string `json:"path"`
	CommitID         *string `json:"commit_id"`
	OriginalCommitID *string `json:"original_commit_id"`
	User             *User   `json:"user"`
	CreatedAt        Time    `json:"created_at"`
	UpdatedAt        Time    `json:"updated_at"`
}

// LinePosition prefers position, then original_position, then line.
func (c CommentPayload) LinePosition() Int {
	for _, candidate := range []Int{c.Position, c.OriginalPosition, c.Line} {
		if candidate.Valid {
			return candidate
		}
	}
	return Int{}
}

func (c CommentPayload) Commit() *string {
	if c.CommitID != nil {
		return c.CommitID
	}
	return c.OriginalCommitID
}

type IssuePayload struct {
	Number      Int             `json:"number"`
	PullRequest json.RawMessage `json:"pull_request"`
}

// IsPullRequest reports whether the issue carries GitHub's pull_request marker.
func (i IssuePayload) IsPullRequest() bool {
	return present(i.PullRequest)
}

func present(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	switch trimmed {
	case "", "null", "false", `""`, "0":
		return false
	}
	return true
}

// Refs are the external identifiers a delivery carries for lookups and for
// the ledger columns.
type Refs struct {
	RepositoryID  Int
	PullRequestID Int
	IssueNumber   Int
}

// Event is the parsed form of one delivery.
type Event interface {
	Kind() string
	EventAction() string
	Refs() Refs
}

type PullRequestEvent struct {
	Action      string
	Repository  *RepositoryPayload
	PullRequest *PullRequestPayload
}

type ReviewEvent struct {
	Action      string
	Repository  *RepositoryPayload
	PullRequest *PullRequestPayload
	Review      *ReviewPayload
}

type ReviewCommentEvent struct {
	Action      string
	Repository  *RepositoryPayload
	PullRequest *PullRequestPayload
	Comment     *CommentPayload
}

type IssueCommentEvent struct {
	Action     string
	Repository *RepositoryPayload
	Issue      *IssuePayload
	Comment    *CommentPayload
}

// UnsupportedEvent covers every kind the mirror does not track.
type UnsupportedEvent struct {
	Name   string
	Action string
	refs   Refs
}

func (e PullRequestEvent) Kind() string   { return KindPullRequest }
func (e ReviewEvent) Kind() string        { return KindPullRequestReview }
func (e ReviewCommentEvent) Kind() string { return KindPullRequestReviewComment }
func (e IssueCommentEvent) Kind() string  { return KindIssueComment }
func (e UnsupportedEvent) Kind() string   { return e.Name }

func (e PullRequestEvent) EventAction() string   { return e.Action }
func (e ReviewEvent) EventAction() string        { return e.Action }
func (e ReviewCommentEvent) EventAction() string { return e.Action }
func (e IssueCommentEvent) EventAction() string  { return e.Action }
func (e UnsupportedEvent) EventAction() string   { return e.Action }

func (e PullRequestEvent) Refs() Refs {
	return buildRefs(e.Repository, e.PullRequest, nil)
}

func (e ReviewEvent) Refs() Refs {
	return buildRefs(e.Repository, e.PullRequest, nil)
}

func (e ReviewCommentEvent) Refs() Refs {
	return buildRefs(e.Repository, e.PullRequest, nil)
}

func (e IssueCommentEvent) Refs() Refs {
	return buildRefs(e.Repository, nil, e.Issue)
}

func (e UnsupportedEvent) Refs() Refs {
	return e.refs
}

func buildRefs(repo *RepositoryPayload, pr *PullRequestPayload, issue *IssuePayload) Refs {
	var refs Refs
	if repo != nil {
		refs.RepositoryID = repo.ID
	}
	if pr != nil {
		refs.PullRequestID = pr.ID
	}
	if issue != nil {
		refs.IssueNumber = issue.Number
	}
	return refs
}

type envelope struct {
	Action      *string             `json:"action"`
	Repository  *RepositoryPayload  `json:"repository"`
	PullRequest *PullRequestPayload `json:"pull_request"`
	Review      *ReviewPayload      `json:"review"`
	Comment     *CommentPayload     `json:"comment"`
	Issue       *IssuePayload       `json:"issue"`
}

// ParseEvent decodes payload into the variant for kind. An empty action
// falls back to the payload's own action field. Only a payload that is not
// a JSON object is an error. A mistyped object field such as
// "repository":"oops" decodes to an empty object whose ids are invalid.
func ParseEvent(kind string, action string, payload []byte) (Event, error) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	if action == "" && env.Action != nil {
		action = *env.Action
	}

	switch kind {
	case KindPullRequest:
		return PullRequestEvent{Action: action, Repository: env.Repository, PullRequest: env.PullRequest}, nil
	case KindPullRequestReview:
		return ReviewEvent{Action: action, Repository: env.Repository, PullRequest: env.PullRequest, Review: env.Review}, nil
	case KindPullRequestReviewComment:
		return ReviewCommentEvent{Action: action, Repository: env.Repository, PullRequest: env.PullRequest, Comment: env.Comment}, nil
	case KindIssueComment:
		return IssueCommentEvent{Action: action, Repository: env.Repository, Issue: env.Issue, Comment: env.Comment}, nil
	default:
		return UnsupportedEvent{Name: kind, Action: action, refs: buildRefs(env.Repository, env.PullRequest, env.Issue)}, nil
	}
}

// ExtractRefs pulls repository.id and pull_request.id for the ledger. It
// never fails; a malformed payload yields empty refs.
func ExtractRefs(payload []byte) Refs {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return Refs{}
	}
	return buildRefs(env.Repository, env.PullRequest, env.Issue)
}

// ExtractAction returns the payload's top-level action, if any.
func ExtractAction(payload []byte) string {
	env, err := decodeEnvelope(payload)
	if err != nil || env.Action == nil {
		return ""
	}
	return *env.Action
}

// IsJSONObject reports whether body is a single JSON object.
func IsJSONObject(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	return json.Valid(trimmed)
}

func decodeEnvelope(payload []byte) (envelope, error) {
	var env envelope
	if !IsJSONObject(payload) {
		return env, ErrInvalidPayload
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return envelope{}, errors.Join(ErrInvalidPayload, err)
		}
	}
	return env, nil
}
