package ingest

import (
	"context"
	"errors"

	"prmirror/internal/domain/webhook"
	"prmirror/internal/ports"
)

// findPullRequest maps the external ids of a delivery onto a mirrored pull
// request. An embedded pull_request.id wins; otherwise repository.id plus
// issue.number is used, which is the only shape issue_comment carries.
// found is false when nothing matches; err is reserved for storage failures.
func findPullRequest(ctx context.Context, mirror ports.MirrorReadRepository, refs webhook.Refs) (ports.PullRequestRef, bool, error) {
	if refs.PullRequestID.Valid {
		pr, err := mirror.FindPullRequestByGitHubID(ctx, refs.PullRequestID.Value)
		switch {
		case err == nil:
			return pr, true, nil
		case !errors.Is(err, ports.ErrNotFound):
			return ports.PullRequestRef{}, false, err
		}
	}

	if !refs.RepositoryID.Valid || !refs.IssueNumber.Valid {
		return ports.PullRequestRef{}, false, nil
	}

	repo, err := mirror.FindRepositoryByGitHubID(ctx, refs.RepositoryID.Value)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ports.PullRequestRef{}, false, nil
		}
		return ports.PullRequestRef{}, false, err
	}

	pr, err := mirror.FindPullRequestByNumber(ctx, repo.ID, refs.IssueNumber.Value)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ports.PullRequestRef{}, false, nil
		}
		return ports.PullRequestRef{}, false, err
	}
	return pr, true, nil
}
