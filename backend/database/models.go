package database

import "time"

// ConversionRecord is one row of the append-only conversion history. It is
// an audit record of terminal outcomes; live task state lives only in the
// in-memory registry.
type ConversionRecord struct {
	ID               uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	TaskID           string    `json:"task_id" gorm:"size:36;index"`
	OriginalFilename string    `json:"original_filename" gorm:"size:1024"`
	TargetFormat     string    `json:"target_format" gorm:"size:10"`
	Status           string    `json:"status" gorm:"size:20;index"`
	ErrorMessage     string    `json:"error_message,omitempty" gorm:"type:text"`
	RemoteBucket     string    `json:"remote_bucket,omitempty" gorm:"size:255"`
	RemoteObjectKey  string    `json:"remote_object_key,omitempty" gorm:"size:1024"`
	DurationMs       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at" gorm:"index"`
}
