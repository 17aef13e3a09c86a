package ports

import (
	"context"
	"time"
)

type RemoteRepository struct {
	GitHubID      int64
	Owner         string
	Name          string
	FullName      string
	Description   *string
	DefaultBranch string
	Private       bool
}

type RemotePullRequest struct {
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
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
	ClosedAt     *time.Time
	MergedAt     *time.Time
}

type RemoteReview struct {
	GitHubID     int64
	State        string
	Body         *string
	Author       string
	AuthorAvatar *string
	SubmittedAt  *time.Time
}

type RemoteComment struct {
	GitHubID         int64
	Body             string
	Position         *int64
	OriginalPosition *int64
	Line             *int64
	Side             string
	Path             *string
	CommitID         *string
	Author           string
	AuthorAvatar     *string
	CreatedAt        *time.Time
	UpdatedAt        *time.Time
}

// GitHubSource reads mirror entities from the GitHub REST API.
type GitHubSource interface {
	ListRepositories(ctx context.Context) ([]RemoteRepository, error)
	ListPullRequests(ctx context.Context, owner string, repo string, state string) ([]RemotePullRequest, error)
	ListReviews(ctx context.Context, owner string, repo string, number int64) ([]RemoteReview, error)
	ListReviewComments(ctx context.Context, owner string, repo string, number int64) ([]RemoteComment, error)
}
