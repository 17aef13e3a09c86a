package model

import "time"

type Comment struct {
	ID             uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	GitHubID       *int64    `gorm:"column:github_id;uniqueIndex"`
	Body           string    `gorm:"column:body;type:text;not null"`
	Line           *int64    `gorm:"column:line"`
	Side           *string   `gorm:"column:side;type:varchar(8)"`
	Path           *string   `gorm:"column:path;type:text"`
	CommitID       *string   `gorm:"column:commit_id;type:varchar(64)"`
	Author         string    `gorm:"column:author;type:varchar(255);not null"`
	AuthorAvatar   *string   `gorm:"column:author_avatar;type:text"`
	SyncedToGitHub bool      `gorm:"column:synced_to_github;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
	UpdatedAt      time.Time `gorm:"column:updated_at;not null"`
	PullRequestID  uint64    `gorm:"column:pull_request_id;not null;index"`
	UserID         *int64    `gorm:"column:user_id;index"`
}

func (Comment) TableName() string {
	return "comments"
}
