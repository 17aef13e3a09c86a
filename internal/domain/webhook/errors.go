package webhook

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload marks a stored payload that is not a JSON object.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// MissingEntityError reports linkage the local mirror cannot satisfy, such
// as a review for a pull request that was never synced.
type MissingEntityError struct {
	Message string
}

func (e *MissingEntityError) Error() string {
	return e.Message
}

func missingEntity(format string, args ...any) error {
	return &MissingEntityError{Message: fmt.Sprintf(format, args...)}
}

// IsMissingEntity reports whether err carries a MissingEntityError.
func IsMissingEntity(err error) bool {
	var target *MissingEntityError
	return errors.As(err, &target)
}

func MissingRepositoryID() error {
	return missingEntity("Missing repository GitHub ID in payload")
}

func MissingPullRequestID() error {
	return missingEntity("Missing pull request GitHub ID in payload")
}

func MissingReviewID() error {
	return missingEntity("Missing review GitHub ID in payload")
}

func MissingCommentID() error {
	return missingEntity("Missing comment GitHub ID in payload")
}

func RepositoryNotSynced(githubID int64) error {
	return missingEntity("Repository %d not synced locally", githubID)
}

func PullRequestNotSyncedForReview() error {
	return missingEntity("Pull request not synced locally for review event")
}

func PullRequestNotSyncedForComment() error {
	return missingEntity("Pull request not synced locally for comment event")
}
