package model

import "time"

type PullRequest struct {
	ID           uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	GitHubID     int64      `gorm:"column:github_id;not null;uniqueIndex"`
	Number       int64      `gorm:"column:number;not null;index:idx_pull_requests_repo_number"`
	Title        string     `gorm:"column:title;type:text;not null"`
	Body         *string    `gorm:"column:body;type:text"`
	State        string     `gorm:"column:state;type:varchar(32);not null"`
	Author       string     `gorm:"column:author;type:varchar(255);not null"`
	AuthorAvatar *string    `gorm:"column:author_avatar;type:text"`
	BaseBranch   string     `gorm:"column:base_branch;type:varchar(255);not null"`
	HeadBranch   string     `gorm:"column:head_branch;type:varchar(255);not null"`
	HeadSHA      *string    `gorm:"column:head_sha;type:varchar(64)"`
	Mergeable    *bool      `gorm:"column:mergeable"`
	Merged       bool       `gorm:"column:merged;not null;default:false"`
	Draft        bool       `gorm:"column:draft;not null;default:false"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;not null"`
	ClosedAt     *time.Time `gorm:"column:closed_at"`
	MergedAt     *time.Time `gorm:"column:merged_at"`
	RepositoryID uint64     `gorm:"column:repository_id;not null;index:idx_pull_requests_repo_number"`
}

func (PullRequest) TableName() string {
	return "pull_requests"
}
