package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// suggestionRecord 是结果缓存的数据库行。
// 指纹唯一，重复写入按 upsert 处理。
type suggestionRecord struct {
	ID          uint   `gorm:"primaryKey"`
	Fingerprint string `gorm:"uniqueIndex;size:64;not null"`
	Owner       string `gorm:"index;size:128"`
	Kind        string `gorm:"size:32"`
	ItemIDs     string `gorm:"type:text"` // JSON array
	Context     string `gorm:"type:text"`
	Result      string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (suggestionRecord) TableName() string { return "outfit_suggestions" }

// GormStore 基于关系库（Postgres）的结果缓存。
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormStore 创建数据库缓存并确保表结构存在。
func NewGormStore(db *gorm.DB, logger *zap.Logger) (*GormStore, error) {
	if err := db.AutoMigrate(&suggestionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate suggestion cache table: %w", err)
	}
	return &GormStore{
		db:     db,
		logger: logger.With(zap.String("component", "result_cache")),
	}, nil
}

func (s *GormStore) Put(ctx context.Context, entry Entry) error {
	itemIDs, err := json.Marshal(entry.ItemIDs)
	if err != nil {
		return fmt.Errorf("marshal item ids: %w", err)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	rec := suggestionRecord{
		Fingerprint: entry.Fingerprint,
		Owner:       entry.Owner,
		Kind:        entry.Kind,
		ItemIDs:     string(itemIDs),
		Context:     entry.Context,
		Result:      entry.Result,
		CreatedAt:   entry.CreatedAt,
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoUpdates: clause.AssignmentColumns([]string{"result", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert suggestion cache: %w", err)
	}

	s.logger.Debug("result cached",
		zap.String("fingerprint", entry.Fingerprint),
		zap.String("kind", entry.Kind),
	)
	return nil
}

func (s *GormStore) Get(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	var rec suggestionRecord
	err := s.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query suggestion cache: %w", err)
	}

	entry := Entry{
		Fingerprint: rec.Fingerprint,
		Owner:       rec.Owner,
		Kind:        rec.Kind,
		Context:     rec.Context,
		Result:      rec.Result,
		CreatedAt:   rec.CreatedAt,
	}
	if rec.ItemIDs != "" {
		if err := json.Unmarshal([]byte(rec.ItemIDs), &entry.ItemIDs); err != nil {
			return nil, false, fmt.Errorf("unmarshal item ids: %w", err)
		}
	}
	return &entry, true, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
