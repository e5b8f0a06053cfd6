package domain

// Worker-reported status values that mark a download as successfully finished
const (
	StatusCompleted = "completed"
	StatusFinished  = "finished"
)

// FailureProgress is the progress value carried by failure-terminal records
const FailureProgress = -1

// ProgressRecord is one structured update emitted by the worker in download
// mode and broadcast to stream subscribers as JSON.
type ProgressRecord struct {
	Progress *float64 `json:"progress,omitempty"`
	Status   string   `json:"status,omitempty"`
	Filename string   `json:"filename,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// RecordKind is the tag produced when a worker line is classified
type RecordKind string

const (
	KindProgress     RecordKind = "progress"
	KindSuccess      RecordKind = "success"
	KindFailure      RecordKind = "failure"
	KindUnrecognized RecordKind = "unrecognized"
)

// NewProgressRecord creates an in-flight update
func NewProgressRecord(percent float64) ProgressRecord {
	return ProgressRecord{Progress: &percent}
}

// NewCompletedRecord creates the success-terminal record injected when the
// worker exits cleanly without reporting completion itself.
func NewCompletedRecord() ProgressRecord {
	p := float64(100)
	return ProgressRecord{Progress: &p, Status: StatusCompleted}
}

// NewFailureRecord creates a failure-terminal record
func NewFailureRecord(message string) ProgressRecord {
	p := float64(FailureProgress)
	return ProgressRecord{Progress: &p, Error: message}
}

// IsSuccess reports whether the record is a success-terminal marker
func (r ProgressRecord) IsSuccess() bool {
	return r.Error == "" && (r.Status == StatusCompleted || r.Status == StatusFinished)
}

// IsFailure reports whether the record is a failure-terminal marker
func (r ProgressRecord) IsFailure() bool {
	return r.Error != "" && r.Progress != nil && *r.Progress == FailureProgress
}

// Percent returns the progress value, or 0 when absent
func (r ProgressRecord) Percent() float64 {
	if r.Progress == nil {
		return 0
	}
	return *r.Progress
}
