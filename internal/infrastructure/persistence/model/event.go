package model

import (
	"time"

	"gorm.io/datatypes"
)

// PREvent is the delivery ledger. delivery_id is the dedupe key.
type PREvent struct {
	ID                  uint64         `gorm:"column:id;primaryKey;autoIncrement"`
	DeliveryID          string         `gorm:"column:delivery_id;type:varchar(128);not null;uniqueIndex"`
	GitHubEvent         string         `gorm:"column:github_event;type:varchar(64);not null;index"`
	Action              *string        `gorm:"column:action;type:varchar(64)"`
	RepositoryGitHubID  *int64         `gorm:"column:repository_github_id;index"`
	PullRequestGitHubID *int64         `gorm:"column:pull_request_github_id;index"`
	Status              string         `gorm:"column:status;type:varchar(16);not null;default:'pending';index"`
	RetryCount          int            `gorm:"column:retry_count;not null;default:0"`
	ErrorMessage        *string        `gorm:"column:error_message;type:text"`
	Payload             datatypes.JSON `gorm:"column:payload;not null"`
	ProcessedAt         *time.Time     `gorm:"column:processed_at"`
	CreatedAt           time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;not null"`
}

func (PREvent) TableName() string {
	return "pr_events"
}
