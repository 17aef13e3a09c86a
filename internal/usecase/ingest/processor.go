package ingest

import (
	"context"
	"errors"
	"strings"
	"time"

	"prmirror/internal/domain/webhook"
	"prmirror/internal/ports"
)

const unknownValue = "unknown"

type processor struct {
	mirror ports.MirrorRepository
	now    func() time.Time
}

func newProcessor(mirror ports.MirrorRepository, now func() time.Time) *processor {
	return &processor{mirror: mirror, now: now}
}

// Process applies one delivery to the mirror and returns its terminal status.
// It must run inside the caller's transaction.
func (p *processor) Process(ctx context.Context, kind string, action string, payload []byte) (webhook.EventStatus, error) {
	event, err := webhook.ParseEvent(kind, action, payload)
	if err != nil {
		return "", err
	}

	switch ev := event.(type) {
	case webhook.PullRequestEvent:
		return p.pullRequest(ctx, ev)
	case webhook.ReviewEvent:
		return p.review(ctx, ev)
	case webhook.ReviewCommentEvent:
		return p.reviewComment(ctx, ev)
	case webhook.IssueCommentEvent:
		return p.issueComment(ctx, ev)
	default:
		return webhook.StatusIgnored, nil
	}
}

func (p *processor) pullRequest(ctx context.Context, ev webhook.PullRequestEvent) (webhook.EventStatus, error) {
	if ev.PullRequest == nil || ev.Repository == nil {
		return webhook.StatusIgnored, nil
	}
	if !ev.Repository.ID.Valid {
		return "", webhook.MissingRepositoryID()
	}

	repo, err := p.mirror.FindRepositoryByGitHubID(ctx, ev.Repository.ID.Value)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return "", webhook.RepositoryNotSynced(ev.Repository.ID.Value)
		}
		return "", err
	}

	pr := ev.PullRequest
	if !pr.ID.Valid {
		return "", webhook.MissingPullRequestID()
	}

	now := p.now()
	login, avatar := author(pr.User)
	input := ports.PullRequestUpsert{
		GitHubID:     pr.ID.Value,
		Number:       pr.Number.Or(0),
		Title:        stringOr(pr.Title, ""),
		Body:         pr.Body,
		State:        stringOr(pr.State, "open"),
		Author:       login,
		AuthorAvatar: avatar,
		BaseBranch:   unknownValue,
		HeadBranch:   unknownValue,
		Mergeable:    pr.Mergeable,
		Merged:       pr.IsMerged(),
		Draft:        pr.Draft != nil && *pr.Draft,
		CreatedAt:    pr.CreatedAt.Or(now),
		UpdatedAt:    pr.UpdatedAt.Or(now),
		ClosedAt:     pr.ClosedAt.Ptr(),
		MergedAt:     pr.MergedAt.Ptr(),
		RepositoryID: repo.ID,
	}
	if pr.Base != nil && pr.Base.Ref != "" {
		input.BaseBranch = pr.Base.Ref
	}
	if pr.Head != nil {
		if pr.Head.Ref != "" {
			input.HeadBranch = pr.Head.Ref
		}
		input.HeadSHA = nonEmpty(pr.Head.SHA)
	}

	if _, err := p.mirror.UpsertPullRequest(ctx, input); err != nil {
		return "", err
	}
	return webhook.StatusProcessed, nil
}

func (p *processor) review(ctx context.Context, ev webhook.ReviewEvent) (webhook.EventStatus, error) {
	switch ev.Action {
	case webhook.ActionSubmitted, webhook.ActionEdited:
		if ev.Review == nil || ev.PullRequest == nil {
			return webhook.StatusIgnored, nil
		}

		pr, found, err := findPullRequest(ctx, p.mirror, ev.Refs())
		if err != nil {
			return "", err
		}
		if !found {
			return "", webhook.PullRequestNotSyncedForReview()
		}

		review := ev.Review
		if !review.ID.Valid {
			return "", webhook.MissingReviewID()
		}

		login, avatar := author(review.User)
		if err := p.mirror.UpsertReview(ctx, ports.ReviewUpsert{
			GitHubID:       review.ID.Value,
			State:          webhook.NormalizeReviewState(review.State),
			Body:           review.Body,
			Author:         login,
			AuthorAvatar:   avatar,
			SyncedToGitHub: true,
			SubmittedAt:    review.SubmittedAt.Or(p.now()),
			PullRequestID:  pr.ID,
		}); err != nil {
			return "", err
		}
		return webhook.StatusProcessed, nil
	case webhook.ActionDismissed:
		if ev.Review == nil || !ev.Review.ID.Valid {
			return webhook.StatusIgnored, nil
		}
		if _, err := p.mirror.DeleteReviewByGitHubID(ctx, ev.Review.ID.Value); err != nil {
			return "", err
		}
		return webhook.StatusProcessed, nil
	default:
		return webhook.StatusIgnored, nil
	}
}

func (p *processor) reviewComment(ctx context.Context, ev webhook.ReviewCommentEvent) (webhook.EventStatus, error) {
	switch ev.Action {
	case webhook.ActionDeleted:
		return p.deleteComment(ctx, ev.Comment)
	case webhook.ActionCreated, webhook.ActionEdited:
		if ev.Comment == nil {
			return webhook.StatusIgnored, nil
		}
		return p.upsertComment(ctx, ev.Refs(), ev.Comment)
	default:
		return webhook.StatusIgnored, nil
	}
}

func (p *processor) issueComment(ctx context.Context, ev webhook.IssueCommentEvent) (webhook.EventStatus, error) {
	if ev.Issue == nil || !ev.Issue.IsPullRequest() {
		return webhook.StatusIgnored, nil
	}
	if ev.Action == webhook.ActionDeleted {
		return p.deleteComment(ctx, ev.Comment)
	}
	if ev.Comment == nil {
		return webhook.StatusIgnored, nil
	}
	return p.upsertComment(ctx, ev.Refs(), ev.Comment)
}

func (p *processor) upsertComment(ctx context.Context, refs webhook.Refs, comment *webhook.CommentPayload) (webhook.EventStatus, error) {
	pr, found, err := findPullRequest(ctx, p.mirror, refs)
	if err != nil {
		return "", err
	}
	if !found {
		return "", webhook.PullRequestNotSyncedForComment()
	}
	if !comment.ID.Valid {
		return "", webhook.MissingCommentID()
	}

	createdAt := comment.CreatedAt.Or(p.now())
	login, avatar := author(comment.User)
	if err := p.mirror.UpsertComment(ctx, ports.CommentUpsert{
		GitHubID:       comment.ID.Value,
		Body:           stringOr(comment.Body, ""),
		Line:           comment.LinePosition().Ptr(),
		Side:           webhook.NormalizeCommentSide(comment.Side),
		Path:           comment.Path,
		CommitID:       comment.Commit(),
		Author:         login,
		AuthorAvatar:   avatar,
		SyncedToGitHub: true,
		CreatedAt:      createdAt,
		UpdatedAt:      comment.UpdatedAt.Or(createdAt),
		PullRequestID:  pr.ID,
	}); err != nil {
		return "", err
	}
	return webhook.StatusProcessed, nil
}

func (p *processor) deleteComment(ctx context.Context, comment *webhook.CommentPayload) (webhook.EventStatus, error) {
	if comment == nil || !comment.ID.Valid {
		return webhook.StatusIgnored, nil
	}
	deleted, err := p.mirror.DeleteCommentByGitHubID(ctx, comment.ID.Value)
	if err != nil {
		return "", err
	}
	if !deleted {
		return webhook.StatusIgnored, nil
	}
	return webhook.StatusProcessed, nil
}

func author(user *webhook.User) (string, *string) {
	if user == nil {
		return unknownValue, nil
	}
	login := strings.TrimSpace(user.Login)
	if login == "" {
		login = unknownValue
	}
	return login, nonEmpty(user.AvatarURL)
}

func stringOr(value *string, fallback string) string {
	if value == nil {
		return fallback
	}
	return *value
}

func nonEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
