package model

import "time"

type Review struct {
	ID             uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	GitHubID       *int64    `gorm:"column:github_id;uniqueIndex"`
	State          string    `gorm:"column:state;type:varchar(32);not null"`
	Body           *string   `gorm:"column:body;type:text"`
	Author         string    `gorm:"column:author;type:varchar(255);not null"`
	AuthorAvatar   *string   `gorm:"column:author_avatar;type:text"`
	SyncedToGitHub bool      `gorm:"column:synced_to_github;not null;default:false"`
	SubmittedAt    time.Time `gorm:"column:submitted_at;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`
	PullRequestID  uint64    `gorm:"column:pull_request_id;not null;index"`
	UserID         *int64    `gorm:"column:user_id;index"`
}

func (Review) TableName() string {
	return "reviews"
}
