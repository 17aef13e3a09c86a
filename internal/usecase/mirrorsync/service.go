package mirrorsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"prmirror/internal/bootstrap/logging"
	"prmirror/internal/domain/webhook"
	"prmirror/internal/errs"
	"prmirror/internal/ports"
)

const (
	repositoriesSyncKey     = "sync:repositories:last"
	pullRequestsSyncKeyTmpl = "sync:pull_requests:%d:last"
)

// Service seeds the mirror from the GitHub REST API with the same upserts the
// webhook path uses.
type Service struct {
	source ports.GitHubSource
	mirror ports.MirrorRepository
	uow    ports.UnitOfWork
	cache  ports.Cache
	now    func() time.Time
}

func NewService(source ports.GitHubSource, mirror ports.MirrorRepository, uow ports.UnitOfWork, cache ports.Cache) *Service {
	return &Service{
		source: source,
		mirror: mirror,
		uow:    uow,
		cache:  cache,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type RepositoriesResult struct {
	Synced int
}

type PullRequestsResult struct {
	Repository   string
	PullRequests int
	Reviews      int
	Comments     int
}

type Status struct {
	Counts           ports.MirrorCounts
	RepositoriesAt   *time.Time
	PullRequestsSync map[string]*time.Time
}

// SyncRepositories upserts every repository visible to the token, owned by
// the given local user.
func (s *Service) SyncRepositories(ctx context.Context, userID int64) (RepositoriesResult, error) {
	if err := s.check(ctx); err != nil {
		return RepositoriesResult{}, err
	}
	logCtx := logging.WithAttrs(ctx, slog.String("component", "usecase.mirrorsync"))

	remote, err := s.source.ListRepositories(ctx)
	if err != nil {
		return RepositoriesResult{}, err
	}

	at := s.now()
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		for _, repo := range remote {
			if _, err := s.mirror.UpsertRepository(txCtx, ports.RepositoryUpsert{
				GitHubID:      repo.GitHubID,
				Owner:         repo.Owner,
				Name:          repo.Name,
				FullName:      repo.FullName,
				Description:   repo.Description,
				DefaultBranch: firstNonEmpty(repo.DefaultBranch, "main"),
				Private:       repo.Private,
				UserID:        userID,
				At:            at,
			}); err != nil {
				return errs.Wrapf(err, "upsert repository %s", repo.FullName)
			}
		}
		return nil
	}); err != nil {
		return RepositoriesResult{}, err
	}

	s.mark(logCtx, repositoriesSyncKey, at)
	logging.Info(logCtx, "repositories synced", slog.Int("count", len(remote)))
	return RepositoriesResult{Synced: len(remote)}, nil
}

// SyncPullRequests mirrors the pull requests of one already mirrored
// repository together with their reviews and review comments.
func (s *Service) SyncPullRequests(ctx context.Context, repositoryGitHubID int64, state string) (PullRequestsResult, error) {
	if err := s.check(ctx); err != nil {
		return PullRequestsResult{}, err
	}

	repo, err := s.mirror.FindRepositoryByGitHubID(ctx, repositoryGitHubID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return PullRequestsResult{}, webhook.RepositoryNotSynced(repositoryGitHubID)
		}
		return PullRequestsResult{}, err
	}
	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "usecase.mirrorsync"),
		slog.String("repository", repo.FullName),
	)

	remotePRs, err := s.source.ListPullRequests(ctx, repo.Owner, repo.Name, state)
	if err != nil {
		return PullRequestsResult{}, err
	}

	result := PullRequestsResult{Repository: repo.FullName}
	at := s.now()
	for _, remotePR := range remotePRs {
		reviews, err := s.source.ListReviews(ctx, repo.Owner, repo.Name, remotePR.Number)
		if err != nil {
			return result, err
		}
		comments, err := s.source.ListReviewComments(ctx, repo.Owner, repo.Name, remotePR.Number)
		if err != nil {
			return result, err
		}

		if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
			pr, err := s.mirror.UpsertPullRequest(txCtx, pullRequestUpsert(remotePR, repo.ID, at))
			if err != nil {
				return errs.Wrapf(err, "upsert pull request #%d", remotePR.Number)
			}
			for _, review := range reviews {
				if err := s.mirror.UpsertReview(txCtx, reviewUpsert(review, pr.ID, at)); err != nil {
					return errs.Wrapf(err, "upsert review %d", review.GitHubID)
				}
			}
			for _, comment := range comments {
				if err := s.mirror.UpsertComment(txCtx, commentUpsert(comment, pr.ID, at)); err != nil {
					return errs.Wrapf(err, "upsert comment %d", comment.GitHubID)
				}
			}
			return nil
		}); err != nil {
			return result, err
		}

		result.PullRequests++
		result.Reviews += len(reviews)
		result.Comments += len(comments)
	}

	s.mark(logCtx, fmt.Sprintf(pullRequestsSyncKeyTmpl, repositoryGitHubID), at)
	logging.Info(logCtx, "pull requests synced",
		slog.Int("pull_requests", result.PullRequests),
		slog.Int("reviews", result.Reviews),
		slog.Int("comments", result.Comments),
	)
	return result, nil
}

// Status reports mirror row counts and the recorded sync times.
func (s *Service) Status(ctx context.Context) (Status, error) {
	if err := s.check(ctx); err != nil {
		return Status{}, err
	}

	counts, err := s.mirror.CountMirror(ctx)
	if err != nil {
		return Status{}, err
	}
	out := Status{Counts: counts, PullRequestsSync: map[string]*time.Time{}}
	out.RepositoriesAt = s.lastSync(ctx, repositoriesSyncKey)

	repos, err := s.mirror.ListRepositories(ctx)
	if err != nil {
		return Status{}, err
	}
	for _, repo := range repos {
		out.PullRequestsSync[repo.FullName] = s.lastSync(ctx, fmt.Sprintf(pullRequestsSyncKeyTmpl, repo.GitHubID))
	}
	return out, nil
}

func (s *Service) mark(ctx context.Context, key string, at time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, strconv.FormatInt(at.Unix(), 10), 0); err != nil {
		logging.Warn(ctx, "record sync time failed", slog.String("key", key), slog.Any("err", errs.Loggable(err)))
	}
}

func (s *Service) lastSync(ctx context.Context, key string) *time.Time {
	if s.cache == nil {
		return nil
	}
	raw, found, err := s.cache.Get(ctx, key)
	if err != nil || !found {
		return nil
	}
	seconds, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(seconds, 0).UTC()
	return &t
}

func (s *Service) check(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if s.source == nil {
		return errors.New("github source is required")
	}
	if s.mirror == nil {
		return errors.New("mirror repository is required")
	}
	if s.uow == nil {
		return errors.New("unit of work is required")
	}
	return nil
}

func pullRequestUpsert(pr ports.RemotePullRequest, repositoryID uint64, at time.Time) ports.PullRequestUpsert {
	return ports.PullRequestUpsert{
		GitHubID:     pr.GitHubID,
		Number:       pr.Number,
		Title:        pr.Title,
		Body:         pr.Body,
		State:        firstNonEmpty(pr.State, "open"),
		Author:       firstNonEmpty(pr.Author, "unknown"),
		AuthorAvatar: pr.AuthorAvatar,
		BaseBranch:   firstNonEmpty(pr.BaseBranch, "unknown"),
		HeadBranch:   firstNonEmpty(pr.HeadBranch, "unknown"),
		HeadSHA:      pr.HeadSHA,
		Mergeable:    pr.Mergeable,
		Merged:       pr.Merged,
		Draft:        pr.Draft,
		CreatedAt:    timeOr(pr.CreatedAt, at),
		UpdatedAt:    timeOr(pr.UpdatedAt, at),
		ClosedAt:     pr.ClosedAt,
		MergedAt:     pr.MergedAt,
		RepositoryID: repositoryID,
	}
}

func reviewUpsert(review ports.RemoteReview, pullRequestID uint64, at time.Time) ports.ReviewUpsert {
	return ports.ReviewUpsert{
		GitHubID:       review.GitHubID,
		State:          webhook.NormalizeReviewState(review.State),
		Body:           review.Body,
		Author:         firstNonEmpty(review.Author, "unknown"),
		AuthorAvatar:   review.AuthorAvatar,
		SyncedToGitHub: true,
		SubmittedAt:    timeOr(review.SubmittedAt, at),
		PullRequestID:  pullRequestID,
	}
}

func commentUpsert(comment ports.RemoteComment, pullRequestID uint64, at time.Time) ports.CommentUpsert {
	createdAt := timeOr(comment.CreatedAt, at)
	line := comment.Position
	if line == nil {
		line = comment.OriginalPosition
	}
	if line == nil {
		line = comment.Line
	}
	return ports.CommentUpsert{
		GitHubID:       comment.GitHubID,
		Body:           comment.Body,
		Line:           line,
		Side:           webhook.NormalizeCommentSide(comment.Side),
		Path:           comment.Path,
		CommitID:       comment.CommitID,
		Author:         firstNonEmpty(comment.Author, "unknown"),
		AuthorAvatar:   comment.AuthorAvatar,
		SyncedToGitHub: true,
		CreatedAt:      createdAt,
		UpdatedAt:      timeOr(comment.UpdatedAt, createdAt),
		PullRequestID:  pullRequestID,
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func timeOr(value *time.Time, fallback time.Time) time.Time {
	if value == nil || value.IsZero() {
		return fallback
	}
	return *value
}
