// Package storage defines the store contracts the services are built
// against and their PostgreSQL implementations. Lookups return nil
// (not an error) when no row matches; services decide what a miss
// means for the caller.
package storage

import (
	"context"
	"time"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/models"
)

// FolderStore persists the folder hierarchy. "Live" means not
// soft-deleted. Prefix operations treat the given materialized path
// as the subtree root and include the folder itself.
type FolderStore interface {
	Create(ctx context.Context, f *models.Folder) error
	GetByID(ctx context.Context, ownerID, folderID string) (*models.Folder, error)
	GetRoot(ctx context.Context, ownerID string) (*models.Folder, error)
	GetLiveByPath(ctx context.Context, ownerID, path string) (*models.Folder, error)
	FindLiveChildByName(ctx context.Context, ownerID, parentID, name string) (*models.Folder, error)
	ListLiveChildren(ctx context.Context, ownerID, parentID string) ([]*models.Folder, error)
	SearchLive(ctx context.Context, ownerID, query string) ([]*models.Folder, error)
	CountLiveChildren(ctx context.Context, ownerID, folderID string) (int64, error)
	MaxLiveDepthUnder(ctx context.Context, ownerID, path string) (int, error)
	AdjustFolderCount(ctx context.Context, ownerID, folderID string, delta int) error

	// RenameSubtree updates the folder's name and path and rewrites the
	// old path prefix on every descendant, in one transaction.
	RenameSubtree(ctx context.Context, ownerID, folderID, newName, oldPath, newPath string) error
	// MoveSubtree reparents the folder, rewrites descendant paths and
	// depths, and adjusts both parents' folder counts, in one
	// transaction.
	MoveSubtree(ctx context.Context, ownerID, folderID, oldParentID, newParentID, oldPath, newPath string, depthDelta int) error

	SoftDeleteSubtree(ctx context.Context, ownerID, path string, at time.Time) (int64, error)
	SoftDelete(ctx context.Context, ownerID, folderID string, at time.Time) (bool, error)
	Restore(ctx context.Context, ownerID, folderID string) error
}

// FileStore persists file metadata rows. Object bytes never pass
// through here; only the blob store touches them.
type FileStore interface {
	Create(ctx context.Context, f *models.File) error
	GetByID(ctx context.Context, ownerID, fileID string) (*models.File, error)
	ListLiveByIDs(ctx context.Context, ownerID string, ids []string) ([]*models.File, error)
	ListLiveByFolder(ctx context.Context, ownerID, folderID string, limit, offset int) ([]*models.File, error)
	CountLiveByFolder(ctx context.Context, ownerID, folderID string) (int64, error)
	SumActiveByFolder(ctx context.Context, ownerID, folderID string) (int64, error)

	// Prefix variants cover a folder subtree located by materialized
	// path, including the subtree root itself.
	CountLiveUnderPrefix(ctx context.Context, ownerID, path string) (int64, error)
	SumActiveUnderPrefix(ctx context.Context, ownerID, path string) (int64, error)
	SoftDeleteUnderPrefix(ctx context.Context, ownerID, path string, at time.Time) (int64, error)

	SoftDelete(ctx context.Context, ownerID, fileID string, at time.Time) (bool, error)
	// ConfirmActive flips a pending file to active with the verified
	// size and MIME type. Returns false when the row was not pending.
	ConfirmActive(ctx context.Context, ownerID, fileID string, size int64, mimeType string) (bool, error)

	UpdateParentFolder(ctx context.Context, ownerID, fileID, folderID string) error
	UpdateName(ctx context.Context, ownerID, fileID, name string) error
	UpdateTags(ctx context.Context, ownerID, fileID string, tags []string) error
	UpdateDescription(ctx context.Context, ownerID, fileID, description string) error

	SearchLive(ctx context.Context, ownerID, query string) ([]*models.File, error)
	ListLiveByTags(ctx context.Context, ownerID string, tags []string) ([]*models.File, error)
	StatsForOwner(ctx context.Context, ownerID string) (*models.UserFileStats, error)

	// Preview and scan mutations arrive from async workers keyed by
	// file id only; last write wins.
	UpdatePreview(ctx context.Context, fileID, previewKey, status string, hasPreview bool) error
	UpdateScanStatus(ctx context.Context, fileID, status string, at time.Time) error

	SoftDeleteAllForOwner(ctx context.Context, ownerID string, at time.Time) (int64, error)
}

// AccountStore reads and mutates the per-user storage counters. The
// two mutations are single conditional updates at the store level;
// read-modify-write would reopen the race the guard closes.
type AccountStore interface {
	Get(ctx context.Context, ownerID string) (*models.User, error)
	Create(ctx context.Context, ownerID string, storageLimit int64) error
	IncrementUsage(ctx context.Context, ownerID string, amount int64) error
	// DecrementUsageGuarded applies only if storage_used >= amount at
	// the moment of the update. Returns false when the guard fails.
	DecrementUsageGuarded(ctx context.Context, ownerID string, amount int64) (bool, error)
}
