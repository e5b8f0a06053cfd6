package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DownloadStatus represents the current status of a download session
type DownloadStatus string

const (
	DownloadRunning   DownloadStatus = "running"
	DownloadSucceeded DownloadStatus = "succeeded"
	DownloadFailed    DownloadStatus = "failed"
)

// Download is the state of one download session, exposed to status callers
type Download struct {
	ID           string          `json:"session_id"`
	URL          string          `json:"url"`
	Resolution   int             `json:"resolution"`
	Status       DownloadStatus  `json:"status"`
	LastRecord   *ProgressRecord `json:"last_record,omitempty"`
	FilePath     string          `json:"file_path,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	ExitCode     *int            `json:"exit_code,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// NewDownload creates a running download session with a fresh id
func NewDownload(url string, resolution int) *Download {
	return &Download{
		ID:         uuid.New().String(),
		URL:        url,
		Resolution: resolution,
		Status:     DownloadRunning,
		CreatedAt:  time.Now(),
	}
}

// RecordProgress remembers the latest record seen for the session
func (d *Download) RecordProgress(record ProgressRecord) {
	r := record
	d.LastRecord = &r
	if record.Filename != "" {
		d.FilePath = record.Filename
	}
}

// MarkSucceeded marks the download as succeeded
func (d *Download) MarkSucceeded() {
	d.Status = DownloadSucceeded
	code := 0
	d.ExitCode = &code
	now := time.Now()
	d.CompletedAt = &now
}

// MarkFailed marks the download as failed
func (d *Download) MarkFailed(err error) {
	d.Status = DownloadFailed
	d.ErrorKind = ErrorKind(err)
	d.ErrorMessage = err.Error()
	var workerErr *WorkerError
	if errors.As(err, &workerErr) {
		code := workerErr.ExitCode
		d.ExitCode = &code
	}
	now := time.Now()
	d.CompletedAt = &now
}

// IsTerminal checks if the download has resolved
func (d *Download) IsTerminal() bool {
	return d.Status == DownloadSucceeded || d.Status == DownloadFailed
}

// DownloadOutcome is returned to the caller that started a download
type DownloadOutcome struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	FilePath  string `json:"file_path,omitempty"`
}
