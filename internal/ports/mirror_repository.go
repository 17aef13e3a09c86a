package ports

import (
	"context"
	"errors"
	"time"

	"prmirror/internal/domain/webhook"
)

var ErrNotFound = errors.New("record not found")

type Repository struct {
	ID            uint64
	GitHubID      int64
	Owner         string
	Name          string
	FullName      string
	Description   *string
	DefaultBranch string
	Private       bool
	UserID        int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type RepositoryUpsert struct {
	GitHubID      int64
	Owner         string
	Name          string
	FullName      string
	Description   *string
	DefaultBranch string
	Private       bool
	UserID        int64
	At            time.Time
}

// PullRequestRef is the minimal identity used for linkage.
type PullRequestRef struct {
	ID           uint64
	GitHubID     int64
	RepositoryID uint64
	Number       int64
}

type PullRequest struct {
	ID           uint64
	GitHubID     int64
	Number       int64
	Title        string
	Body         *string
	State        string
	Author       string
	AuthorAvatar *string
	BaseBranch   string
	HeadBranch   string
	HeadSHA      *string
	Mergeable    *bool
	Merged       bool
	Draft        bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time
	MergedAt     *time.Time
	RepositoryID uint64
}

type PullRequestUpsert struct {
	GitHubID     int64
	Number       int64
	Title        string
	Body         *string
	State        string
	Author       string
	AuthorAvatar *string
	BaseBranch   string
	HeadBranch   string
	HeadSHA      *string
	Mergeable    *bool
	Merged       bool
	Draft        bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time
	MergedAt     *time.Time
	RepositoryID uint64
}

type Review struct {
	ID             uint64
	GitHubID       *int64
	State          webhook.ReviewState
	Body           *string
	Author         string
	AuthorAvatar   *string
	SyncedToGitHub bool
	SubmittedAt    time.Time
	CreatedAt      time.Time
	PullRequestID  uint64
	UserID         *int64
}

type ReviewUpsert struct {
	GitHubID       int64
	State          webhook.ReviewState
	Body           *string
	Author         string
	AuthorAvatar   *string
	SyncedToGitHub bool
	SubmittedAt    time.Time
	PullRequestID  uint64
	UserID         *int64
}

type Comment struct {
	ID             uint64
	GitHubID       *int64
	Body           string
	Line           *int64
	Side           webhook.CommentSide
	Path           *string
	CommitID       *string
	Author         string
	AuthorAvatar   *string
	SyncedToGitHub bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PullRequestID  uint64
	UserID         *int64
}

type CommentUpsert struct {
	GitHubID       int64
	Body           string
	Line           *int64
	Side           webhook.CommentSide
	Path           *string
	CommitID       *string
	Author         string
	AuthorAvatar   *string
	SyncedToGitHub bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PullRequestID  uint64
	UserID         *int64
}

type MirrorCounts struct {
	Repositories int64
	PullRequests int64
	Reviews      int64
	Comments     int64
}

// MirrorReadRepository serves lookups by external id and operator listings.
type MirrorReadRepository interface {
	FindRepositoryByGitHubID(ctx context.Context, githubID int64) (Repository, error)
	FindPullRequestByGitHubID(ctx context.Context, githubID int64) (PullRequestRef, error)
	FindPullRequestByNumber(ctx context.Context, repositoryID uint64, number int64) (PullRequestRef, error)
	GetPullRequest(ctx context.Context, githubID int64) (PullRequest, error)
	ListRepositories(ctx context.Context) ([]Repository, error)
	ListReviews(ctx context.Context, pullRequestID uint64) ([]Review, error)
	ListComments(ctx context.Context, pullRequestID uint64) ([]Comment, error)
	CountMirror(ctx context.Context) (MirrorCounts, error)
}

// MirrorRepository writes mirror rows keyed by GitHub id. Update paths never
// touch identity or linkage columns.
type MirrorRepository interface {
	MirrorReadRepository
	UpsertRepository(ctx context.Context, input RepositoryUpsert) (Repository, error)
	UpsertPullRequest(ctx context.Context, input PullRequestUpsert) (PullRequestRef, error)
	UpsertReview(ctx context.Context, input ReviewUpsert) error
	UpsertComment(ctx context.Context, input CommentUpsert) error
	DeleteReviewByGitHubID(ctx context.Context, githubID int64) (bool, error)
	DeleteCommentByGitHubID(ctx context.Context, githubID int64) (bool, error)
}
