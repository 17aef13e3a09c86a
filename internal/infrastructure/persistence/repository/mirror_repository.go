package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"prmirror/internal/domain/webhook"
	"prmirror/internal/errs"
	"prmirror/internal/infrastructure/persistence/model"
	"prmirror/internal/ports"
)

// Columns an upsert may overwrite. Identity and linkage columns are absent.
var (
	repositoryUpdateColumns = []string{
		"owner", "name", "full_name", "description", "default_branch", "private", "updated_at",
	}
	pullRequestUpdateColumns = []string{
		"title", "body", "state", "author", "author_avatar", "base_branch", "head_branch",
		"head_sha", "mergeable", "merged", "draft", "updated_at", "closed_at", "merged_at",
	}
	reviewUpdateColumns = []string{
		"state", "body", "author", "author_avatar", "synced_to_github", "submitted_at",
	}
	commentUpdateColumns = []string{
		"body", "line", "side", "path", "commit_id", "author", "author_avatar",
		"synced_to_github", "updated_at",
	}
)

type MirrorRepository struct {
	db *gorm.DB
}

var _ ports.MirrorRepository = (*MirrorRepository)(nil)

func NewMirrorRepository(db *gorm.DB) *MirrorRepository {
	return &MirrorRepository{db: db}
}

func (r *MirrorRepository) FindRepositoryByGitHubID(ctx context.Context, githubID int64) (ports.Repository, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.Repository{}, err
	}

	var row model.Repository
	if err := db.Where("github_id = ?", githubID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Repository{}, ports.ErrNotFound
		}
		return ports.Repository{}, errs.Wrap(err, "query repository by github id")
	}
	return mapRepository(row), nil
}

func (r *MirrorRepository) FindPullRequestByGitHubID(ctx context.Context, githubID int64) (ports.PullRequestRef, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.PullRequestRef{}, err
	}

	var row model.PullRequest
	if err := db.Select("id", "github_id", "repository_id", "number").
		Where("github_id = ?", githubID).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.PullRequestRef{}, ports.ErrNotFound
		}
		return ports.PullRequestRef{}, errs.Wrap(err, "query pull request by github id")
	}
	return mapPullRequestRef(row), nil
}

func (r *MirrorRepository) FindPullRequestByNumber(ctx context.Context, repositoryID uint64, number int64) (ports.PullRequestRef, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.PullRequestRef{}, err
	}

	var row model.PullRequest
	if err := db.Select("id", "github_id", "repository_id", "number").
		Where("repository_id = ? AND number = ?", repositoryID, number).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.PullRequestRef{}, ports.ErrNotFound
		}
		return ports.PullRequestRef{}, errs.Wrap(err, "query pull request by number")
	}
	return mapPullRequestRef(row), nil
}

func (r *MirrorRepository) GetPullRequest(ctx context.Context, githubID int64) (ports.PullRequest, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.PullRequest{}, err
	}

	var row model.PullRequest
	if err := db.Where("github_id = ?", githubID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.PullRequest{}, ports.ErrNotFound
		}
		return ports.PullRequest{}, errs.Wrap(err, "query pull request")
	}
	return mapPullRequest(row), nil
}

func (r *MirrorRepository) ListRepositories(ctx context.Context) ([]ports.Repository, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Repository
	if err := db.Order("full_name asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query repositories")
	}

	items := make([]ports.Repository, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapRepository(row))
	}
	return items, nil
}

func (r *MirrorRepository) ListReviews(ctx context.Context, pullRequestID uint64) ([]ports.Review, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Review
	if err := db.Where("pull_request_id = ?", pullRequestID).Order("submitted_at asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query reviews")
	}

	items := make([]ports.Review, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.Review{
			ID:             row.ID,
			GitHubID:       row.GitHubID,
			State:          webhook.ReviewState(row.State),
			Body:           row.Body,
			Author:         row.Author,
			AuthorAvatar:   row.AuthorAvatar,
			SyncedToGitHub: row.SyncedToGitHub,
			SubmittedAt:    row.SubmittedAt,
			CreatedAt:      row.CreatedAt,
			PullRequestID:  row.PullRequestID,
			UserID:         row.UserID,
		})
	}
	return items, nil
}

func (r *MirrorRepository) ListComments(ctx context.Context, pullRequestID uint64) ([]ports.Comment, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Comment
	if err := db.Where("pull_request_id = ?", pullRequestID).Order("created_at asc").Order("id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "query comments")
	}

	items := make([]ports.Comment, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.Comment{
			ID:             row.ID,
			GitHubID:       row.GitHubID,
			Body:           row.Body,
			Line:           row.Line,
			Side:           webhook.CommentSide(derefString(row.Side)),
			Path:           row.Path,
			CommitID:       row.CommitID,
			Author:         row.Author,
			AuthorAvatar:   row.AuthorAvatar,
			SyncedToGitHub: row.SyncedToGitHub,
			CreatedAt:      row.CreatedAt,
			UpdatedAt:      row.UpdatedAt,
			PullRequestID:  row.PullRequestID,
			UserID:         row.UserID,
		})
	}
	return items, nil
}

func (r *MirrorRepository) CountMirror(ctx context.Context) (ports.MirrorCounts, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.MirrorCounts{}, err
	}

	var counts ports.MirrorCounts
	targets := []struct {
		model any
		dest  *int64
		label string
	}{
		{model: &model.Repository{}, dest: &counts.Repositories, label: "repositories"},
		{model: &model.PullRequest{}, dest: &counts.PullRequests, label: "pull requests"},
		{model: &model.Review{}, dest: &counts.Reviews, label: "reviews"},
		{model: &model.Comment{}, dest: &counts.Comments, label: "comments"},
	}
	for _, target := range targets {
		if err := db.Model(target.model).Count(target.dest).Error; err != nil {
			return ports.MirrorCounts{}, errs.Wrapf(err, "count %s", target.label)
		}
	}
	return counts, nil
}

func (r *MirrorRepository) UpsertRepository(ctx context.Context, input ports.RepositoryUpsert) (ports.Repository, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.Repository{}, err
	}

	at := nowOr(input.At)
	row := model.Repository{
		GitHubID:      input.GitHubID,
		Owner:         input.Owner,
		Name:          input.Name,
		FullName:      input.FullName,
		Description:   input.Description,
		DefaultBranch: input.DefaultBranch,
		Private:       input.Private,
		UserID:        input.UserID,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "github_id"}},
		DoUpdates: clause.AssignmentColumns(repositoryUpdateColumns),
	}).Create(&row).Error; err != nil {
		return ports.Repository{}, errs.Wrap(err, "upsert repository")
	}

	var stored model.Repository
	if err := db.Where("github_id = ?", input.GitHubID).Take(&stored).Error; err != nil {
		return ports.Repository{}, errs.Wrap(err, "reload repository")
	}
	return mapRepository(stored), nil
}

func (r *MirrorRepository) UpsertPullRequest(ctx context.Context, input ports.PullRequestUpsert) (ports.PullRequestRef, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.PullRequestRef{}, err
	}

	row := model.PullRequest{
		GitHubID:     input.GitHubID,
		Number:       input.Number,
		Title:        input.Title,
		Body:         input.Body,
		State:        input.State,
		Author:       input.Author,
		AuthorAvatar: input.AuthorAvatar,
		BaseBranch:   input.BaseBranch,
		HeadBranch:   input.HeadBranch,
		HeadSHA:      input.HeadSHA,
		Mergeable:    input.Mergeable,
		Merged:       input.Merged,
		Draft:        input.Draft,
		CreatedAt:    nowOr(input.CreatedAt),
		UpdatedAt:    nowOr(input.UpdatedAt),
		ClosedAt:     input.ClosedAt,
		MergedAt:     input.MergedAt,
		RepositoryID: input.RepositoryID,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "github_id"}},
		DoUpdates: clause.AssignmentColumns(pullRequestUpdateColumns),
	}).Create(&row).Error; err != nil {
		return ports.PullRequestRef{}, errs.Wrap(err, "upsert pull request")
	}

	var stored model.PullRequest
	if err := db.Select("id", "github_id", "repository_id", "number").
		Where("github_id = ?", input.GitHubID).
		Take(&stored).Error; err != nil {
		return ports.PullRequestRef{}, errs.Wrap(err, "reload pull request")
	}
	return mapPullRequestRef(stored), nil
}

func (r *MirrorRepository) UpsertReview(ctx context.Context, input ports.ReviewUpsert) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	githubID := input.GitHubID
	submittedAt := nowOr(input.SubmittedAt)
	row := model.Review{
		GitHubID:       &githubID,
		State:          string(input.State),
		Body:           input.Body,
		Author:         input.Author,
		AuthorAvatar:   input.AuthorAvatar,
		SyncedToGitHub: input.SyncedToGitHub,
		SubmittedAt:    submittedAt,
		CreatedAt:      time.Now().UTC(),
		PullRequestID:  input.PullRequestID,
		UserID:         input.UserID,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "github_id"}},
		DoUpdates: clause.AssignmentColumns(reviewUpdateColumns),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert review")
	}
	return nil
}

func (r *MirrorRepository) UpsertComment(ctx context.Context, input ports.CommentUpsert) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	githubID := input.GitHubID
	createdAt := nowOr(input.CreatedAt)
	updatedAt := input.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	row := model.Comment{
		GitHubID:       &githubID,
		Body:           input.Body,
		Line:           input.Line,
		Side:           sidePtr(string(input.Side)),
		Path:           input.Path,
		CommitID:       input.CommitID,
		Author:         input.Author,
		AuthorAvatar:   input.AuthorAvatar,
		SyncedToGitHub: input.SyncedToGitHub,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
		PullRequestID:  input.PullRequestID,
		UserID:         input.UserID,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "github_id"}},
		DoUpdates: clause.AssignmentColumns(commentUpdateColumns),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert comment")
	}
	return nil
}

func (r *MirrorRepository) DeleteReviewByGitHubID(ctx context.Context, githubID int64) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	result := db.Where("github_id = ?", githubID).Delete(&model.Review{})
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "delete review")
	}
	return result.RowsAffected > 0, nil
}

func (r *MirrorRepository) DeleteCommentByGitHubID(ctx context.Context, githubID int64) (bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return false, err
	}

	result := db.Where("github_id = ?", githubID).Delete(&model.Comment{})
	if result.Error != nil {
		return false, errs.Wrap(result.Error, "delete comment")
	}
	return result.RowsAffected > 0, nil
}

func nowOr(value time.Time) time.Time {
	if value.IsZero() {
		return time.Now().UTC()
	}
	return value
}

func mapRepository(row model.Repository) ports.Repository {
	return ports.Repository{
		ID:            row.ID,
		GitHubID:      row.GitHubID,
		Owner:         row.Owner,
		Name:          row.Name,
		FullName:      row.FullName,
		Description:   row.Description,
		DefaultBranch: row.DefaultBranch,
		Private:       row.Private,
		UserID:        row.UserID,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func mapPullRequestRef(row model.PullRequest) ports.PullRequestRef {
	return ports.PullRequestRef{
		ID:           row.ID,
		GitHubID:     row.GitHubID,
		RepositoryID: row.RepositoryID,
		Number:       row.Number,
	}
}

func mapPullRequest(row model.PullRequest) ports.PullRequest {
	return ports.PullRequest{
		ID:           row.ID,
		GitHubID:     row.GitHubID,
		Number:       row.Number,
		Title:        row.Title,
		Body:         row.Body,
		State:        row.State,
		Author:       row.Author,
		AuthorAvatar: row.AuthorAvatar,
		BaseBranch:   row.BaseBranch,
		HeadBranch:   row.HeadBranch,
		HeadSHA:      row.HeadSHA,
		Mergeable:    row.Mergeable,
		Merged:       row.Merged,
		Draft:        row.Draft,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		ClosedAt:     row.ClosedAt,
		MergedAt:     row.MergedAt,
		RepositoryID: row.RepositoryID,
	}
}
