package storage

import (
	"context"
	"errors"

	"github.com/openbiocard/openbiocard-backend/pkg/db"
	"github.com/openbiocard/openbiocard-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL stores shard entries as rows of shard_entries through GORM.
type SQL struct {
	client *db.Client
}

func NewSQL(client *db.Client) *SQL {
	return &SQL{client: client}
}

func (s *SQL) Shard(namespace string) Shard {
	return &sqlShard{conn: s.client.DB(), namespace: namespace}
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *SQL) Close() error {
	return s.client.Close()
}

type sqlShard struct {
	conn      *gorm.DB
	namespace string
}

func (s *sqlShard) Get(ctx context.Context, key string, dest any) (bool, error) {
	var entry models.ShardEntry
	err := s.conn.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", s.namespace, key).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(err, "sql get")
	}
	if err := decode([]byte(entry.Value), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqlShard) Put(ctx context.Context, key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}
	entry := models.ShardEntry{
		Namespace: s.namespace,
		EntryKey:  key,
		Value:     string(raw),
	}
	err = s.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return unavailable(err, "sql put")
	}
	return nil
}

func (s *sqlShard) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	err := s.conn.WithContext(ctx).
		Where("namespace = ? AND entry_key IN ?", s.namespace, keys).
		Delete(&models.ShardEntry{}).Error
	if err != nil {
		return unavailable(err, "sql delete")
	}
	return nil
}
