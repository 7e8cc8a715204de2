package domain

import (
	"fmt"
	"time"
)

// LogEntry is the canonical record every raw line is normalized into,
// regardless of source format. Entries are immutable once created; the store
// highlights an entry by replacing it with a copy, never by writing to a
// shared one.
type LogEntry struct {
	ID               int64     `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Level            Level     `json:"level"`
	Source           string    `json:"source"`
	Message          string    `json:"message"`
	ExceptionType    string    `json:"exception_type,omitempty"`
	ExceptionMessage string    `json:"exception_message,omitempty"`
	StackTrace       string    `json:"stack_trace,omitempty"`
	ThreadID         string    `json:"thread_id,omitempty"`
	ProcessID        string    `json:"process_id,omitempty"`
	Machine          string    `json:"machine,omitempty"`
	User             string    `json:"user,omitempty"`
	FilePath         string    `json:"file_path,omitempty"`
	LineNumber       int       `json:"line_number,omitempty"`
	Raw              string    `json:"raw,omitempty"`
	Highlighted      bool      `json:"highlighted"`
}

// Signature is the dedup key for an entry: two lines producing the same
// signature are considered the same event. Millisecond timestamp precision
// means two distinct identical lines in the same millisecond collapse; that
// is accepted.
func (e *LogEntry) Signature() string {
	return fmt.Sprintf("%d|%d|%s|%s", e.Timestamp.UnixMilli(), e.Level, e.Source, e.Message)
}

// HasException reports whether the entry carries exception details.
func (e *LogEntry) HasException() bool {
	return e.ExceptionType != "" || e.ExceptionMessage != ""
}
