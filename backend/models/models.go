package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Task represents one document conversion request and its tracked lifecycle.
type Task struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"` // processing, completed, failed
	OriginalFilename string     `json:"original_filename"`
	TargetFormat     string     `json:"target_format"`
	InputPath        string     `json:"input_path,omitempty"`
	OutputPath       string     `json:"output_path,omitempty"`
	RemoteBucket     string     `json:"remote_bucket,omitempty"`
	RemoteObjectKey  string     `json:"remote_object_key,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	KeepLocal        bool       `json:"keep_local"`
	LocalReclaimed   bool       `json:"local_reclaimed"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// TaskStatus constants
const (
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// targetFormats maps accepted upload extensions to conversion targets.
var targetFormats = map[string]string{
	".doc": "docx",
	".xls": "xlsx",
	".ppt": "pptx",
}

// TargetFormat returns the conversion target for an upload extension.
// The extension must include the dot; matching is case-insensitive.
func TargetFormat(ext string) (string, bool) {
	format, ok := targetFormats[strings.ToLower(ext)]
	return format, ok
}

// SupportedExtensions lists the accepted upload extensions, for error messages.
func SupportedExtensions() []string {
	return []string{".doc", ".xls", ".ppt"}
}

// DownloadName derives the user-facing filename for the converted artifact:
// the original filename's stem with the target format's extension.
func (t *Task) DownloadName() string {
	stem := strings.TrimSuffix(t.OriginalFilename, filepath.Ext(t.OriginalFilename))
	return stem + "." + t.TargetFormat
}

// IsTerminal reports whether the task has reached a final status.
func (t *Task) IsTerminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}
