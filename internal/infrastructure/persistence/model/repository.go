package model

import "time"

type Repository struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	GitHubID      int64     `gorm:"column:github_id;not null;uniqueIndex"`
	Owner         string    `gorm:"column:owner;type:varchar(255);not null"`
	Name          string    `gorm:"column:name;type:varchar(255);not null"`
	FullName      string    `gorm:"column:full_name;type:varchar(512);not null"`
	Description   *string   `gorm:"column:description;type:text"`
	DefaultBranch string    `gorm:"column:default_branch;type:varchar(255);not null"`
	Private       bool      `gorm:"column:private;not null;default:false"`
	UserID        int64     `gorm:"column:user_id;not null;index"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

func (Repository) TableName() string {
	return "repositories"
}
