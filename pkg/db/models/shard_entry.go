package models

import "time"

// ShardEntry is one key of one storage namespace. An account shard and the
// directory each own a namespace; rows never span namespaces.
type ShardEntry struct {
	Namespace string    `gorm:"column:namespace;primaryKey;type:varchar(191)"`
	EntryKey  string    `gorm:"column:entry_key;primaryKey;type:varchar(191)"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (ShardEntry) TableName() string {
	return "shard_entries"
}
