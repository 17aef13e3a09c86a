package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"prmirror/internal/domain/webhook"
	"prmirror/internal/errs"
	"prmirror/internal/infrastructure/persistence/model"
	"prmirror/internal/infrastructure/persistence/repository"
	"prmirror/internal/infrastructure/persistence/uow"
	"prmirror/internal/ports"
)

const (
	testRepoGitHubID = int64(100)
	testPRGitHubID   = int64(500)
	testPRNumber     = int64(7)
)

type fixture struct {
	db      *gorm.DB
	events  *repository.EventRepository
	mirror  *repository.MirrorRepository
	service *Service
	now     time.Time
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "ingest.sqlite")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	f := &fixture{
		db:     db,
		events: repository.NewEventRepository(db),
		mirror: repository.NewMirrorRepository(db),
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewService(f.events, f.mirror, uow.NewUnitOfWork(db), nil)
	f.service.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) seedRepository(t *testing.T) ports.Repository {
	t.Helper()

	repo, err := f.mirror.UpsertRepository(context.Background(), ports.RepositoryUpsert{
		GitHubID:      testRepoGitHubID,
		Owner:         "acme",
		Name:          "api",
		FullName:      "acme/api",
		DefaultBranch: "main",
		UserID:        1,
	})
	if err != nil {
		t.Fatalf("seed repository: %v", err)
	}
	return repo
}

func (f *fixture) seedPullRequest(t *testing.T) ports.PullRequestRef {
	t.Helper()

	repo := f.seedRepository(t)
	pr, err := f.mirror.UpsertPullRequest(context.Background(), ports.PullRequestUpsert{
		GitHubID:     testPRGitHubID,
		Number:       testPRNumber,
		Title:        "Seeded",
		State:        "open",
		Author:       "octo",
		BaseBranch:   "main",
		HeadBranch:   "feature",
		RepositoryID: repo.ID,
	})
	if err != nil {
		t.Fatalf("seed pull request: %v", err)
	}
	return pr
}

func (f *fixture) seedComment(t *testing.T, pr ports.PullRequestRef, githubID int64) {
	t.Helper()

	if err := f.mirror.UpsertComment(context.Background(), ports.CommentUpsert{GitHubID: githubID, Body: "old", Author: "octo", PullRequestID: pr.ID}); err != nil {
		t.Fatalf("seed comment: %v", err)
	}
}

func (f *fixture) seedReview(t *testing.T, pr ports.PullRequestRef, githubID int64) {
	t.Helper()

	if err := f.mirror.UpsertReview(context.Background(), ports.ReviewUpsert{GitHubID: githubID, State: webhook.ReviewComment, Author: "octo", PullRequestID: pr.ID}); err != nil {
		t.Fatalf("seed review: %v", err)
	}
}

func (f *fixture) count(t *testing.T, value any) int64 {
	t.Helper()

	var n int64
	if err := f.db.Model(value).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", value, err)
	}
	return n
}

func (f *fixture) eventByDelivery(t *testing.T, deliveryID string) model.PREvent {
	t.Helper()

	var row model.PREvent
	if err := f.db.Where("delivery_id = ?", deliveryID).Take(&row).Error; err != nil {
		t.Fatalf("load event %s: %v", deliveryID, err)
	}
	return row
}

func pullRequestPayload(action string) string {
	return fmt.Sprintf(`{
		"action": %q,
		"repository": {"id": %d},
		"pull_request": {
			"id": %d,
			"number": %d,
			"title": "Add webhook mirror",
			"body": "details",
			"state": "open",
			"user": {"login": "octo", "avatar_url": "https://avatars/octo"},
			"base": {"ref": "main"},
			"head": {"ref": "feature/mirror", "sha": "deadbeef"},
			"mergeable": true,
			"draft": false,
			"created_at": "2026-02-01T09:00:00Z",
			"updated_at": "2026-02-02T09:30:00Z"
		}
	}`, action, testRepoGitHubID, testPRGitHubID, testPRNumber)
}

func reviewPayload(action string, state string) string {
	return fmt.Sprintf(`{
		"action": %q,
		"repository": {"id": %d},
		"pull_request": {"id": %d, "number": %d},
		"review": {"id": 900, "state": %q, "body": "lgtm", "user": {"login": "rev"}, "submitted_at": "2026-02-03T10:00:00Z"}
	}`, action, testRepoGitHubID, testPRGitHubID, testPRNumber, state)
}

func reviewCommentPayload(action string) string {
	return fmt.Sprintf(`{
		"action": %q,
		"repository": {"id": %d},
		"pull_request": {"id": %d, "number": %d},
		"comment": {
			"id": 800,
			"body": "nit",
			"position": null,
			"original_position": 14,
			"line": 20,
			"side": "right",
			"path": "main.go",
			"original_commit_id": "cafe",
			"user": {"login": "rev"},
			"created_at": "2026-02-03T11:00:00Z"
		}
	}`, action, testRepoGitHubID, testPRGitHubID, testPRNumber)
}

func issueCommentPayload(action string, marker bool) string {
	markerJSON := ""
	if marker {
		markerJSON = `, "pull_request": {"url": "https://api.github.com/repos/acme/api/pulls/7"}`
	}
	return fmt.Sprintf(`{
		"action": %q,
		"repository": {"id": %d},
		"issue": {"number": %d%s},
		"comment": {"id": 801, "body": "general note", "user": {"login": "rev"}, "created_at": "2026-02-03T12:00:00Z"}
	}`, action, testRepoGitHubID, testPRNumber, markerJSON)
}

func TestIngestPullRequestOpenedScenario(t *testing.T) {
	f := setupFixture(t)
	f.seedRepository(t)
	ctx := context.Background()

	input := IngestInput{
		DeliveryID: "delivery-opened",
		Event:      webhook.KindPullRequest,
		Action:     "opened",
		Payload:    []byte(pullRequestPayload("opened")),
	}

	result, err := f.service.Ingest(ctx, input)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.AlreadyProcessed || result.Status != webhook.StatusProcessed {
		t.Fatalf("Ingest() = %+v, want processed", result)
	}

	pr, err := f.mirror.GetPullRequest(ctx, testPRGitHubID)
	if err != nil {
		t.Fatalf("GetPullRequest() error = %v", err)
	}
	if pr.Number != testPRNumber || pr.BaseBranch != "main" || pr.HeadBranch != "feature/mirror" {
		t.Fatalf("GetPullRequest() = %+v, want number/branches from payload", pr)
	}
	if pr.HeadSHA == nil || *pr.HeadSHA != "deadbeef" || pr.Author != "octo" || pr.Mergeable == nil || !*pr.Mergeable {
		t.Fatalf("GetPullRequest() = %+v, want head sha, author and mergeable", pr)
	}
	if want := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC); !pr.CreatedAt.Equal(want) {
		t.Fatalf("CreatedAt = %v, want %v", pr.CreatedAt, want)
	}
	if want := time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC); !pr.UpdatedAt.Equal(want) {
		t.Fatalf("UpdatedAt = %v, want %v", pr.UpdatedAt, want)
	}

	event := f.eventByDelivery(t, "delivery-opened")
	if event.Status != string(webhook.StatusProcessed) || event.ProcessedAt == nil || event.ErrorMessage != nil {
		t.Fatalf("event row = %+v, want processed", event)
	}
	if event.RepositoryGitHubID == nil || *event.RepositoryGitHubID != testRepoGitHubID || event.PullRequestGitHubID == nil || *event.PullRequestGitHubID != testPRGitHubID {
		t.Fatalf("event refs = (%v, %v), want extracted ids", event.RepositoryGitHubID, event.PullRequestGitHubID)
	}

	again, err := f.service.Ingest(ctx, input)
	if err != nil {
		t.Fatalf("Ingest(duplicate) error = %v", err)
	}
	if !again.AlreadyProcessed || again.Status != webhook.StatusProcessed {
		t.Fatalf("Ingest(duplicate) = %+v, want already processed", again)
	}
	if n := f.count(t, &model.PullRequest{}); n != 1 {
		t.Fatalf("pull request rows = %d, want 1", n)
	}
	if n := f.count(t, &model.PREvent{}); n != 1 {
		t.Fatalf("event rows = %d, want 1", n)
	}
}

func TestIngestDispatchTable(t *testing.T) {
	type seedFunc func(t *testing.T, f *fixture)

	seedPR := func(t *testing.T, f *fixture) { f.seedPullRequest(t) }
	seedPRWithComment := func(id int64) seedFunc {
		return func(t *testing.T, f *fixture) { f.seedComment(t, f.seedPullRequest(t), id) }
	}
	seedPRWithReview := func(t *testing.T, f *fixture) { f.seedReview(t, f.seedPullRequest(t), 900) }

	testCases := []struct {
		name     string
		kind     string
		action   string
		payload  string
		seed     seedFunc
		want     webhook.EventStatus
		reviews  int64
		comments int64
	}{
		{name: "pull_request edited", kind: webhook.KindPullRequest, action: "edited", payload: pullRequestPayload("edited"), seed: seedPR, want: webhook.StatusProcessed},
		{name: "review submitted", kind: webhook.KindPullRequestReview, action: "submitted", payload: reviewPayload("submitted", "APPROVED"), seed: seedPR, want: webhook.StatusProcessed, reviews: 1},
		{name: "review edited", kind: webhook.KindPullRequestReview, action: "edited", payload: reviewPayload("edited", "commented"), seed: seedPRWithReview, want: webhook.StatusProcessed, reviews: 1},
		{name: "review dismissed", kind: webhook.KindPullRequestReview, action: "dismissed", payload: reviewPayload("dismissed", "DISMISSED"), seed: seedPRWithReview, want: webhook.StatusProcessed, reviews: 0},
		{name: "review dismissed without id", kind: webhook.KindPullRequestReview, action: "dismissed", payload: `{"action":"dismissed","review":{"state":"x"}}`, seed: seedPRWithReview, want: webhook.StatusIgnored, reviews: 1},
		{name: "review other action", kind: webhook.KindPullRequestReview, action: "requested", payload: reviewPayload("requested", "APPROVED"), seed: seedPR, want: webhook.StatusIgnored},
		{name: "review comment created", kind: webhook.KindPullRequestReviewComment, action: "created", payload: reviewCommentPayload("created"), seed: seedPR, want: webhook.StatusProcessed, comments: 1},
		{name: "review comment edited", kind: webhook.KindPullRequestReviewComment, action: "edited", payload: reviewCommentPayload("edited"), seed: seedPRWithComment(800), want: webhook.StatusProcessed, comments: 1},
		{name: "review comment deleted existing", kind: webhook.KindPullRequestReviewComment, action: "deleted", payload: reviewCommentPayload("deleted"), seed: seedPRWithComment(800), want: webhook.StatusProcessed, comments: 0},
		{name: "review comment deleted missing", kind: webhook.KindPullRequestReviewComment, action: "deleted", payload: reviewCommentPayload("deleted"), seed: seedPR, want: webhook.StatusIgnored, comments: 0},
		{name: "review comment other action", kind: webhook.KindPullRequestReviewComment, action: "resolved", payload: reviewCommentPayload("resolved"), seed: seedPR, want: webhook.StatusIgnored},
		{name: "issue comment on pr", kind: webhook.KindIssueComment, action: "created", payload: issueCommentPayload("created", true), seed: seedPR, want: webhook.StatusProcessed, comments: 1},
		{name: "issue comment edited on pr", kind: webhook.KindIssueComment, action: "edited", payload: issueCommentPayload("edited", true), seed: seedPRWithComment(801), want: webhook.StatusProcessed, comments: 1},
		{name: "issue comment deleted on pr", kind: webhook.KindIssueComment, action: "deleted", payload: issueCommentPayload("deleted", true), seed: seedPRWithComment(801), want: webhook.StatusProcessed, comments: 0},
		{name: "issue comment without marker", kind: webhook.KindIssueComment, action: "created", payload: issueCommentPayload("created", false), seed: seedPR, want: webhook.StatusIgnored},
		{name: "unknown kind", kind: "push", action: "", payload: `{"ref":"refs/heads/main","repository":{"id":100}}`, seed: seedPR, want: webhook.StatusIgnored},
		{name: "pull_request without object", kind: webhook.KindPullRequest, action: "opened", payload: `{"action":"opened","repository":{"id":100}}`, seed: seedPR, want: webhook.StatusIgnored},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := setupFixture(t)
			tc.seed(t, f)

			result, err := f.service.Ingest(context.Background(), IngestInput{
				DeliveryID: "delivery-" + tc.name,
				Event:      tc.kind,
				Action:     tc.action,
				Payload:    []byte(tc.payload),
			})
			if err != nil {
				t.Fatalf("Ingest() error = %v", err)
			}
			if result.Status != tc.want || result.AlreadyProcessed {
				t.Fatalf("Ingest() = %+v, want status %s", result, tc.want)
			}
			if got := f.eventByDelivery(t, "delivery-"+tc.name).Status; got != string(tc.want) {
				t.Fatalf("stored status = %s, want %s", got, tc.want)
			}
			if n := f.count(t, &model.Review{}); n != tc.reviews {
				t.Fatalf("review rows = %d, want %d", n, tc.reviews)
			}
			if n := f.count(t, &model.Comment{}); n != tc.comments {
				t.Fatalf("comment rows = %d, want %d", n, tc.comments)
			}
		})
	}
}

func TestIngestNormalizesReviewAndCommentFields(t *testing.T) {
	f := setupFixture(t)
	pr := f.seedPullRequest(t)
	ctx := context.Background()

	if _, err := f.service.Ingest(ctx, IngestInput{DeliveryID: "r1", Event: webhook.KindPullRequestReview, Action: "submitted", Payload: []byte(reviewPayload("submitted", "CHANGES_REQUESTED"))}); err != nil {
		t.Fatalf("Ingest(review) error = %v", err)
	}
	if _, err := f.service.Ingest(ctx, IngestInput{DeliveryID: "c1", Event: webhook.KindPullRequestReviewComment, Action: "created", Payload: []byte(reviewCommentPayload("created"))}); err != nil {
		t.Fatalf("Ingest(comment) error = %v", err)
	}

	reviews, err := f.mirror.ListReviews(ctx, pr.ID)
	if err != nil {
		t.Fatalf("ListReviews() error = %v", err)
	}
	if len(reviews) != 1 || reviews[0].State != webhook.ReviewRequestChanges || !reviews[0].SyncedToGitHub || reviews[0].UserID != nil {
		t.Fatalf("ListReviews() = %+v, want one REQUEST_CHANGES review", reviews)
	}

	comments, err := f.mirror.ListComments(ctx, pr.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("ListComments() len = %d, want 1", len(comments))
	}
	c := comments[0]
	if c.Line == nil || *c.Line != 14 {
		t.Fatalf("Line = %v, want original_position 14", c.Line)
	}
	if c.Side != webhook.SideRight || c.CommitID == nil || *c.CommitID != "cafe" || c.Path == nil || *c.Path != "main.go" {
		t.Fatalf("comment = %+v, want side RIGHT, commit cafe, path main.go", c)
	}
	if !c.UpdatedAt.Equal(c.CreatedAt) {
		t.Fatalf("UpdatedAt = %v, want created_at %v", c.UpdatedAt, c.CreatedAt)
	}
}

func TestIngestFailureIsRecordedAndReplaySucceeds(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	input := IngestInput{
		DeliveryID: "delivery-review",
		Event:      webhook.KindPullRequestReview,
		Action:     "submitted",
		Payload:    []byte(reviewPayload("submitted", "APPROVED")),
	}

	result, err := f.service.Ingest(ctx, input)
	if !webhook.IsMissingEntity(err) {
		t.Fatalf("Ingest() error = %v, want missing entity", err)
	}
	if result.Status != webhook.StatusFailed {
		t.Fatalf("Ingest() status = %s, want failed", result.Status)
	}

	event := f.eventByDelivery(t, "delivery-review")
	if event.Status != string(webhook.StatusFailed) || event.RetryCount != 1 {
		t.Fatalf("event row = %+v, want failed with retry 1", event)
	}
	if event.ErrorMessage == nil || *event.ErrorMessage != "Pull request not synced locally for review event" {
		t.Fatalf("ErrorMessage = %v, want resolution message", event.ErrorMessage)
	}

	dup, err := f.service.Ingest(ctx, input)
	if err != nil {
		t.Fatalf("Ingest(duplicate) error = %v", err)
	}
	if !dup.AlreadyProcessed || dup.Status != webhook.StatusIgnored {
		t.Fatalf("Ingest(duplicate) = %+v, want already processed reported as ignored", dup)
	}
	if n := f.count(t, &model.Review{}); n != 0 {
		t.Fatalf("review rows = %d, want 0 after failed delivery", n)
	}

	if _, err := f.service.Replay(ctx, event.ID); err == nil {
		t.Fatalf("Replay() before sync error = nil, want failure")
	} else if err.Error() != "Pull request not synced locally for review event" {
		t.Fatalf("Replay() error = %q, want recorded text", err.Error())
	}
	if got := f.eventByDelivery(t, "delivery-review"); got.RetryCount != 2 {
		t.Fatalf("retry count = %d, want 2 after failed replay", got.RetryCount)
	}

	f.seedPullRequest(t)

	status, err := f.service.Replay(ctx, event.ID)
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if status != webhook.StatusProcessed {
		t.Fatalf("Replay() = %s, want processed", status)
	}

	replayed := f.eventByDelivery(t, "delivery-review")
	if replayed.Status != string(webhook.StatusProcessed) || replayed.ErrorMessage != nil || replayed.ProcessedAt == nil || replayed.RetryCount != 2 {
		t.Fatalf("event row after replay = %+v", replayed)
	}
	if n := f.count(t, &model.Review{}); n != 1 {
		t.Fatalf("review rows = %d, want 1 after replay", n)
	}
}

func TestIngestPullRequestForUnknownRepositoryFails(t *testing.T) {
	f := setupFixture(t)

	_, err := f.service.Ingest(context.Background(), IngestInput{
		DeliveryID: "d-norepo",
		Event:      webhook.KindPullRequest,
		Action:     "opened",
		Payload:    []byte(pullRequestPayload("opened")),
	})
	if err == nil || err.Error() != "Repository 100 not synced locally" {
		t.Fatalf("Ingest() error = %v, want repository not synced", err)
	}
}

func TestIngestPullRequestWithMistypedRepositoryFails(t *testing.T) {
	f := setupFixture(t)
	f.seedRepository(t)

	_, err := f.service.Ingest(context.Background(), IngestInput{
		DeliveryID: "d-mistyped-repo",
		Event:      webhook.KindPullRequest,
		Action:     "opened",
		Payload:    []byte(`{"action":"opened","repository":"oops","pull_request":{"id":5,"number":1,"title":"t"}}`),
	})
	if err == nil || err.Error() != "Missing repository GitHub ID in payload" {
		t.Fatalf("Ingest() error = %v, want missing repository id", err)
	}

	row := f.eventByDelivery(t, "d-mistyped-repo")
	if row.Status != string(webhook.StatusFailed) {
		t.Fatalf("stored status = %s, want failed", row.Status)
	}
	if row.ErrorMessage == nil || *row.ErrorMessage != "Missing repository GitHub ID in payload" {
		t.Fatalf("stored error = %v, want missing repository id", row.ErrorMessage)
	}
}

func TestReplayUnknownEvent(t *testing.T) {
	f := setupFixture(t)

	_, err := f.service.Replay(context.Background(), 42)
	if !errors.Is(err, ports.ErrEventNotFound) {
		t.Fatalf("Replay() error = %v, want ErrEventNotFound", err)
	}
	if got := errs.Message(err); got != "PR event 42 not found" {
		t.Fatalf("errs.Message(Replay()) = %q, want %q", got, "PR event 42 not found")
	}
}

type failingFinishStore struct {
	*repository.EventRepository
}

func (s failingFinishStore) MarkFinished(context.Context, uint64, webhook.EventStatus, time.Time) error {
	return errors.New("disk full")
}

func TestFailureRollsBackEntityWritesButKeepsEventRow(t *testing.T) {
	f := setupFixture(t)
	f.seedRepository(t)

	service := NewService(failingFinishStore{f.events}, f.mirror, uow.NewUnitOfWork(f.db), nil)
	_, err := service.Ingest(context.Background(), IngestInput{
		DeliveryID: "d-rollback",
		Event:      webhook.KindPullRequest,
		Action:     "opened",
		Payload:    []byte(pullRequestPayload("opened")),
	})
	if err == nil {
		t.Fatalf("Ingest() error = nil, want finish failure")
	}

	if n := f.count(t, &model.PullRequest{}); n != 0 {
		t.Fatalf("pull request rows = %d, want 0 after rollback", n)
	}
	event := f.eventByDelivery(t, "d-rollback")
	if event.Status != string(webhook.StatusFailed) || event.ErrorMessage == nil || *event.ErrorMessage != "disk full" {
		t.Fatalf("event row = %+v, want failed with message", event)
	}
}

func TestIngestConcurrentSameDelivery(t *testing.T) {
	f := setupFixture(t)
	f.seedRepository(t)

	const workers = 8
	results := make([]IngestResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.service.Ingest(context.Background(), IngestInput{
				DeliveryID: "d-race",
				Event:      webhook.KindPullRequest,
				Action:     "opened",
				Payload:    []byte(pullRequestPayload("opened")),
			})
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("Ingest() worker %d error = %v", i, errs[i])
		}
		if !results[i].AlreadyProcessed {
			fresh++
		}
	}
	if fresh != 1 {
		t.Fatalf("fresh ingestions = %d, want 1", fresh)
	}
	if n := f.count(t, &model.PREvent{}); n != 1 {
		t.Fatalf("event rows = %d, want 1", n)
	}
}

func TestFindPullRequestTwoPaths(t *testing.T) {
	f := setupFixture(t)
	pr := f.seedPullRequest(t)
	ctx := context.Background()

	viaID, found, err := findPullRequest(ctx, f.mirror, webhook.Refs{PullRequestID: webhook.Int{Value: testPRGitHubID, Valid: true}})
	if err != nil || !found || viaID.ID != pr.ID {
		t.Fatalf("findPullRequest(path 1) = (%+v, %v, %v), want %d", viaID, found, err, pr.ID)
	}

	viaIssue, found, err := findPullRequest(ctx, f.mirror, webhook.Refs{
		RepositoryID: webhook.Int{Value: testRepoGitHubID, Valid: true},
		IssueNumber:  webhook.Int{Value: testPRNumber, Valid: true},
	})
	if err != nil || !found || viaIssue.ID != pr.ID {
		t.Fatalf("findPullRequest(path 2) = (%+v, %v, %v), want %d", viaIssue, found, err, pr.ID)
	}

	fallback, found, err := findPullRequest(ctx, f.mirror, webhook.Refs{
		PullRequestID: webhook.Int{Value: 12345, Valid: true},
		RepositoryID:  webhook.Int{Value: testRepoGitHubID, Valid: true},
		IssueNumber:   webhook.Int{Value: testPRNumber, Valid: true},
	})
	if err != nil || !found || fallback.ID != pr.ID {
		t.Fatalf("findPullRequest(unknown id, fallback) = (%+v, %v, %v), want %d", fallback, found, err, pr.ID)
	}

	_, found, err = findPullRequest(ctx, f.mirror, webhook.Refs{RepositoryID: webhook.Int{Value: testRepoGitHubID, Valid: true}})
	if err != nil || found {
		t.Fatalf("findPullRequest(no issue) = (found=%v, err=%v), want not found", found, err)
	}
}

func TestListEventsRejectsUnknownStatus(t *testing.T) {
	f := setupFixture(t)
	if _, err := f.service.ListEvents(context.Background(), ports.EventFilter{Status: "done"}); err == nil {
		t.Fatalf("ListEvents() error = nil, want unknown status")
	}
}
