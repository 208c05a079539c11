package models

import "time"

// File statuses. Active is the only state in which a file's size
// counts toward its owner's storage_used. Failed is declared but never
// assigned by the confirmation path; failed confirmations leave the
// file pending and retryable.
const (
	FileStatusPending = "pending"
	FileStatusActive  = "active"
	FileStatusFailed  = "failed"
)

// Preview statuses, driven by the asynchronous preview worker.
const (
	PreviewStatusNone       = "none"
	PreviewStatusProcessing = "processing"
	PreviewStatusReady      = "ready"
	PreviewStatusFailed     = "failed"
)

// Scan statuses, driven by the asynchronous virus scanner.
const (
	ScanStatusPending  = "pending"
	ScanStatusClean    = "clean"
	ScanStatusInfected = "infected"
)

// MaxTags caps the number of tags on a file.
const MaxTags = 10

type File struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	ParentFolderID string     `json:"parent_folder_id"`
	Name           string     `json:"name"`
	Size           int64      `json:"size"`
	MimeType       string     `json:"mime_type"`
	Status         string     `json:"status"`
	Tags           []string   `json:"tags"`
	Description    string     `json:"description"`
	S3Key          string     `json:"s3_key"`
	HasPreview     bool       `json:"has_preview"`
	PreviewKey     *string    `json:"preview_key,omitempty"`
	PreviewStatus  string     `json:"preview_status"`
	ScanStatus     string     `json:"scan_status"`
	IsDeleted      bool       `json:"is_deleted"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// UserFileStats aggregates a user's active files by coarse type.
type UserFileStats struct {
	TotalFiles  int64            `json:"total_files"`
	TotalSize   int64            `json:"total_size"`
	CountByType map[string]int64 `json:"count_by_type"`
}
