package models

import "time"

// Folder is one node of a user's folder tree. Path is the
// materialized path ("/" for the root), Depth its non-empty segment
// count. FolderCount tracks live direct child folders incrementally.
type Folder struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	Name           string     `json:"name"`
	ParentFolderID *string    `json:"parent_folder_id,omitempty"`
	Path           string     `json:"path"`
	Depth          int        `json:"depth"`
	FolderCount    int        `json:"folder_count"`
	IsDeleted      bool       `json:"is_deleted"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IsRoot reports whether f is the owner's root folder.
func (f *Folder) IsRoot() bool {
	return f.ParentFolderID == nil
}

// FolderStats aggregates the direct contents of one folder.
type FolderStats struct {
	FolderID    string `json:"folder_id"`
	FolderCount int64  `json:"folder_count"`
	FileCount   int64  `json:"file_count"`
	TotalSize   int64  `json:"total_size"`
}
