package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"prmirror/internal/errs"
	"prmirror/internal/ports"
)

const pageSize = 100

// Client reads mirror entities through the GitHub REST API.
type Client struct {
	gh           *gogithub.Client
	installation bool
}

var _ ports.GitHubSource = (*Client)(nil)

// Options selects the credentials. A GitHub App installation is used when
// AppID, InstallationID and PrivateKeyPath are all set; otherwise Token is
// sent as a static bearer token. BaseURL targets GitHub Enterprise (for
// example https://ghe.example.com/api/v3/); empty means api.github.com.
type Options struct {
	Token          string
	BaseURL        string
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
}

func (o Options) appAuth() bool {
	return o.AppID > 0 && o.InstallationID > 0 && strings.TrimSpace(o.PrivateKeyPath) != ""
}

func NewClient(ctx context.Context, opts Options) (*Client, error) {
	baseURL := strings.TrimSpace(opts.BaseURL)

	var httpClient *http.Client
	switch {
	case opts.appAuth():
		transport, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, opts.AppID, opts.InstallationID, strings.TrimSpace(opts.PrivateKeyPath))
		if err != nil {
			return nil, errs.Wrap(err, "load github app key")
		}
		if baseURL != "" {
			transport.BaseURL = strings.TrimSuffix(baseURL, "/")
		}
		httpClient = &http.Client{Transport: transport}
	case strings.TrimSpace(opts.Token) != "":
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: strings.TrimSpace(opts.Token)}))
	}

	gh := gogithub.NewClient(httpClient)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return nil, errs.Wrap(err, "parse github base url")
		}
		gh.BaseURL = parsed
	}
	return &Client{gh: gh, installation: opts.appAuth()}, nil
}

// ListRepositories lists the repositories of the authenticated user, or of
// the installation when authenticated as a GitHub App.
func (c *Client) ListRepositories(ctx context.Context) ([]ports.RemoteRepository, error) {
	if c.installation {
		return c.listInstallationRepositories(ctx)
	}

	opts := &gogithub.RepositoryListByAuthenticatedUserOptions{
		Sort:        "updated",
		ListOptions: gogithub.ListOptions{PerPage: pageSize},
	}

	var out []ports.RemoteRepository
	for {
		repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		if err != nil {
			return nil, errs.Wrap(err, "list repositories")
		}
		for _, repo := range repos {
			out = append(out, remoteRepository(repo))
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) listInstallationRepositories(ctx context.Context) ([]ports.RemoteRepository, error) {
	opts := &gogithub.ListOptions{PerPage: pageSize}

	var out []ports.RemoteRepository
	for {
		list, resp, err := c.gh.Apps.ListRepos(ctx, opts)
		if err != nil {
			return nil, errs.Wrap(err, "list installation repositories")
		}
		for _, repo := range list.Repositories {
			out = append(out, remoteRepository(repo))
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func remoteRepository(repo *gogithub.Repository) ports.RemoteRepository {
	return ports.RemoteRepository{
		GitHubID:      repo.GetID(),
		Owner:         repo.GetOwner().GetLogin(),
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		Description:   repo.Description,
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
	}
}

func (c *Client) ListPullRequests(ctx context.Context, owner string, repo string, state string) ([]ports.RemotePullRequest, error) {
	if state == "" {
		state = "open"
	}
	opts := &gogithub.PullRequestListOptions{
		State:       state,
		ListOptions: gogithub.ListOptions{PerPage: pageSize},
	}

	var out []ports.RemotePullRequest
	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, errs.Wrapf(err, "list pull requests for %s/%s", owner, repo)
		}
		for _, pr := range prs {
			out = append(out, ports.RemotePullRequest{
				GitHubID:     pr.GetID(),
				Number:       int64(pr.GetNumber()),
				Title:        pr.GetTitle(),
				Body:         pr.Body,
				State:        pr.GetState(),
				Author:       pr.GetUser().GetLogin(),
				AuthorAvatar: nonEmpty(pr.GetUser().GetAvatarURL()),
				BaseBranch:   pr.GetBase().GetRef(),
				HeadBranch:   pr.GetHead().GetRef(),
				HeadSHA:      nonEmpty(pr.GetHead().GetSHA()),
				Mergeable:    pr.Mergeable,
				Merged:       pr.GetMerged() || pr.MergedAt != nil,
				Draft:        pr.GetDraft(),
				CreatedAt:    timestamp(pr.CreatedAt),
				UpdatedAt:    timestamp(pr.UpdatedAt),
				ClosedAt:     timestamp(pr.ClosedAt),
				MergedAt:     timestamp(pr.MergedAt),
			})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) ListReviews(ctx context.Context, owner string, repo string, number int64) ([]ports.RemoteReview, error) {
	prNumber, err := toInt(number)
	if err != nil {
		return nil, err
	}
	opts := &gogithub.ListOptions{PerPage: pageSize}

	var out []ports.RemoteReview
	for {
		reviews, resp, err := c.gh.PullRequests.ListReviews(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, errs.Wrapf(err, "list reviews for %s/%s#%d", owner, repo, number)
		}
		for _, review := range reviews {
			out = append(out, ports.RemoteReview{
				GitHubID:     review.GetID(),
				State:        review.GetState(),
				Body:         review.Body,
				Author:       review.GetUser().GetLogin(),
				AuthorAvatar: nonEmpty(review.GetUser().GetAvatarURL()),
				SubmittedAt:  timestamp(review.SubmittedAt),
			})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) ListReviewComments(ctx context.Context, owner string, repo string, number int64) ([]ports.RemoteComment, error) {
	prNumber, err := toInt(number)
	if err != nil {
		return nil, err
	}
	opts := &gogithub.PullRequestListCommentsOptions{
		ListOptions: gogithub.ListOptions{PerPage: pageSize},
	}

	var out []ports.RemoteComment
	for {
		comments, resp, err := c.gh.PullRequests.ListComments(ctx, owner, repo, prNumber, opts)
		if err != nil {
			return nil, errs.Wrapf(err, "list review comments for %s/%s#%d", owner, repo, number)
		}
		for _, comment := range comments {
			out = append(out, ports.RemoteComment{
				GitHubID:         comment.GetID(),
				Body:             comment.GetBody(),
				Position:         intPtr(comment.Position),
				OriginalPosition: intPtr(comment.OriginalPosition),
				Line:             intPtr(comment.Line),
				Side:             comment.GetSide(),
				Path:             comment.Path,
				CommitID:         firstString(comment.CommitID, comment.OriginalCommitID),
				Author:           comment.GetUser().GetLogin(),
				AuthorAvatar:     nonEmpty(comment.GetUser().GetAvatarURL()),
				CreatedAt:        timestamp(comment.CreatedAt),
				UpdatedAt:        timestamp(comment.UpdatedAt),
			})
		}
		if resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

func toInt(number int64) (int, error) {
	if number <= 0 || int64(int(number)) != number {
		return 0, errors.New("pull request number out of range")
	}
	return int(number), nil
}

func timestamp(ts *gogithub.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.UTC()
	return &t
}

func intPtr(value *int) *int64 {
	if value == nil {
		return nil
	}
	v := int64(*value)
	return &v
}

func nonEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func firstString(values ...*string) *string {
	for _, value := range values {
		if value != nil && *value != "" {
			return value
		}
	}
	return nil
}
