package domain

import (
	"encoding/json"
	"time"
)

// ResolutionDescriptor is one available encoding as reported by the worker.
// Its fields are passed through without interpretation.
type ResolutionDescriptor = json.RawMessage

// CachedResolutions is a stored list-mode result for one resource URL
type CachedResolutions struct {
	URL       string    `gorm:"primaryKey"`
	Payload   string    `gorm:"type:text;not null"`
	FetchedAt time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for GORM
func (CachedResolutions) TableName() string {
	return "resolution_cache"
}

// ResolutionCache stores list-mode results keyed by resource URL
type ResolutionCache interface {
	// Get returns the cached descriptors for url if they are younger than maxAge.
	// The boolean is false on a miss.
	Get(url string, maxAge time.Duration) ([]ResolutionDescriptor, bool, error)

	// Put stores descriptors for url, replacing any previous entry
	Put(url string, descriptors []ResolutionDescriptor) error

	// Purge removes entries older than maxAge and returns how many were removed
	Purge(maxAge time.Duration) (int64, error)
}
