package infrastructure

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/yourusername/yt-download-go/internal/domain"
)

// SQLiteResolutionCache implements ResolutionCache using SQLite
type SQLiteResolutionCache struct {
	db *gorm.DB
}

// NewSQLiteResolutionCache opens (or creates) the cache database
func NewSQLiteResolutionCache(dbPath string) (*SQLiteResolutionCache, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.CachedResolutions{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteResolutionCache{db: db}, nil
}

// Get returns cached descriptors for url if the entry is younger than maxAge
func (c *SQLiteResolutionCache) Get(url string, maxAge time.Duration) ([]domain.ResolutionDescriptor, bool, error) {
	var entry domain.CachedResolutions
	err := c.db.Where("url = ? AND fetched_at > ?", url, time.Now().Add(-maxAge)).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var descriptors []domain.ResolutionDescriptor
	if err := json.Unmarshal([]byte(entry.Payload), &descriptors); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry for %s: %w", url, err)
	}
	return descriptors, true, nil
}

// Put stores descriptors for url, replacing any previous entry
func (c *SQLiteResolutionCache) Put(url string, descriptors []domain.ResolutionDescriptor) error {
	payload, err := json.Marshal(descriptors)
	if err != nil {
		return err
	}

	entry := domain.CachedResolutions{
		URL:       url,
		Payload:   string(payload),
		FetchedAt: time.Now(),
	}
	return c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "fetched_at"}),
	}).Create(&entry).Error
}

// Purge removes entries older than maxAge
func (c *SQLiteResolutionCache) Purge(maxAge time.Duration) (int64, error) {
	result := c.db.Where("fetched_at <= ?", time.Now().Add(-maxAge)).Delete(&domain.CachedResolutions{})
	return result.RowsAffected, result.Error
}

// Close closes the database connection
func (c *SQLiteResolutionCache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
