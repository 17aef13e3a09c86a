package model

import "time"

type KV struct {
	Key       string     `gorm:"column:key;type:varchar(255);primaryKey"`
	Value     string     `gorm:"column:value;type:text;not null"`
	ExpiresAt *time.Time `gorm:"column:expires_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null"`
}

func (KV) TableName() string {
	return "kv_store"
}

// All lists every table in migration order.
func All() []any {
	return []any{
		&Repository{},
		&PullRequest{},
		&Review{},
		&Comment{},
		&PREvent{},
		&KV{},
	}
}
