package services

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/apperr"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/paths"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/storage"
	"github.com/google/uuid"
)

// FolderTree manages a user's folder hierarchy. Every operation is
// owner-scoped; a folder belonging to someone else looks exactly like
// a missing one.
type FolderTree struct {
	folders storage.FolderStore
	files   storage.FileStore
	ledger  *QuotaLedger
}

func NewFolderTree(folders storage.FolderStore, files storage.FileStore, ledger *QuotaLedger) *FolderTree {
	return &FolderTree{folders: folders, files: files, ledger: ledger}
}

// DeleteFolderOptions control deleteFolder. Cascade soft-deletes the
// whole subtree including files; Force skips the live-content check.
type DeleteFolderOptions struct {
	Cascade bool
	Force   bool
}

// DeleteFolderResult reports what a delete touched.
type DeleteFolderResult struct {
	DeletedFolders   int64 `json:"deleted_folders"`
	StorageReclaimed int64 `json:"storage_reclaimed"`
}

// EnsureRoot returns the owner's root folder, creating it on first
// use. Safe under concurrent first calls: the partial unique index on
// the root row turns the losing insert into a re-read.
func (t *FolderTree) EnsureRoot(ctx context.Context, ownerID string) (*models.Folder, error) {
	root, err := t.folders.GetRoot(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if root != nil {
		return root, nil
	}

	root = &models.Folder{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Name:    "",
		Path:    "/",
		Depth:   0,
	}
	if err := t.folders.Create(ctx, root); err != nil {
		if storage.IsUniqueViolation(err) {
			return t.folders.GetRoot(ctx, ownerID)
		}
		return nil, err
	}
	return root, nil
}

// RequireFolder loads a live, owned folder or fails NotFound. Deleted
// and foreign folders are indistinguishable from absent ones.
func (t *FolderTree) RequireFolder(ctx context.Context, ownerID, folderID string) (*models.Folder, error) {
	f, err := t.folders.GetByID(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}
	if f == nil || f.IsDeleted {
		return nil, apperr.New(apperr.KindNotFound, "folder not found")
	}
	return f, nil
}

// CreateFolder creates a child under parentID. An empty parentID
// targets the root.
func (t *FolderTree) CreateFolder(ctx context.Context, ownerID, parentID, rawName string) (*models.Folder, error) {
	name, err := paths.ValidateName(rawName)
	if err != nil {
		return nil, err
	}

	var parent *models.Folder
	if parentID == "" {
		parent, err = t.EnsureRoot(ctx, ownerID)
	} else {
		parent, err = t.RequireFolder(ctx, ownerID, parentID)
	}
	if err != nil {
		return nil, err
	}

	if parent.Depth >= paths.MaxDepth {
		return nil, apperr.New(apperr.KindDepthExceeded, "folder depth limit of %d reached", paths.MaxDepth)
	}

	path, err := paths.ChildPath(parent.Path, name)
	if err != nil {
		return nil, err
	}

	sibling, err := t.folders.FindLiveChildByName(ctx, ownerID, parent.ID, name)
	if err != nil {
		return nil, err
	}
	if sibling != nil {
		return nil, apperr.New(apperr.KindDuplicate, "a folder named %q already exists here", name)
	}

	parentIDCopy := parent.ID
	folder := &models.Folder{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		Name:           name,
		ParentFolderID: &parentIDCopy,
		Path:           path,
		Depth:          parent.Depth + 1,
	}
	if err := t.folders.Create(ctx, folder); err != nil {
		return nil, err
	}
	if err := t.folders.AdjustFolderCount(ctx, ownerID, parent.ID, 1); err != nil {
		log.Printf("[FOLDERS] failed to bump folder_count on %s: %v", parent.ID, err)
	}
	return folder, nil
}

// RenameFolder renames a folder and rewrites the path prefix on every
// descendant. Depth never changes on rename.
func (t *FolderTree) RenameFolder(ctx context.Context, ownerID, folderID, rawName string) (*models.Folder, error) {
	f, err := t.RequireFolder(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}
	if f.IsRoot() {
		return nil, apperr.New(apperr.KindForbidden, "the root folder cannot be renamed")
	}

	name, err := paths.ValidateName(rawName)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(name, f.Name) {
		return f, nil
	}

	sibling, err := t.folders.FindLiveChildByName(ctx, ownerID, *f.ParentFolderID, name)
	if err != nil {
		return nil, err
	}
	if sibling != nil && sibling.ID != f.ID {
		return nil, apperr.New(apperr.KindDuplicate, "a folder named %q already exists here", name)
	}

	newPath, err := paths.ChildPath(paths.ParentPath(f.Path), name)
	if err != nil {
		return nil, err
	}

	if err := t.folders.RenameSubtree(ctx, ownerID, f.ID, name, f.Path, newPath); err != nil {
		return nil, err
	}
	f.Name = name
	f.Path = newPath
	return f, nil
}

// MoveFolder reparents a folder, rejecting moves into the folder's own
// subtree and moves that would push any live descendant past the depth
// ceiling.
func (t *FolderTree) MoveFolder(ctx context.Context, ownerID, folderID, newParentID string) (*models.Folder, error) {
	f, err := t.RequireFolder(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}
	if f.IsRoot() {
		return nil, apperr.New(apperr.KindForbidden, "the root folder cannot be moved")
	}

	newParent, err := t.RequireFolder(ctx, ownerID, newParentID)
	if err != nil {
		return nil, err
	}
	if newParent.ID == *f.ParentFolderID {
		return f, nil
	}
	if paths.IsSelfOrDescendant(newParent.Path, f.Path) {
		return nil, apperr.New(apperr.KindInvalidDest, "cannot move a folder into itself or its own subtree")
	}

	depthDelta := (newParent.Depth + 1) - f.Depth
	maxDepth, err := t.folders.MaxLiveDepthUnder(ctx, ownerID, f.Path)
	if err != nil {
		return nil, err
	}
	if maxDepth+depthDelta > paths.MaxDepth {
		return nil, apperr.New(apperr.KindDepthExceeded,
			"move would exceed the folder depth limit of %d", paths.MaxDepth)
	}

	sibling, err := t.folders.FindLiveChildByName(ctx, ownerID, newParent.ID, f.Name)
	if err != nil {
		return nil, err
	}
	if sibling != nil {
		return nil, apperr.New(apperr.KindDuplicate, "a folder named %q already exists in the destination", f.Name)
	}

	newPath, err := paths.ChildPath(newParent.Path, f.Name)
	if err != nil {
		return nil, err
	}

	oldParentID := *f.ParentFolderID
	if err := t.folders.MoveSubtree(ctx, ownerID, f.ID, oldParentID, newParent.ID, f.Path, newPath, depthDelta); err != nil {
		return nil, err
	}

	newParentIDCopy := newParent.ID
	f.ParentFolderID = &newParentIDCopy
	f.Path = newPath
	f.Depth += depthDelta
	return f, nil
}

// DeleteFolder soft-deletes a folder. Without Cascade only the folder
// row is marked; its subtree stays addressable but drops out of live
// traversal. With Cascade the whole subtree and the files in it are
// marked, and the active files' sizes are reclaimed through one
// guarded decrement before anything is touched.
func (t *FolderTree) DeleteFolder(ctx context.Context, ownerID, folderID string, opts DeleteFolderOptions) (*DeleteFolderResult, error) {
	f, err := t.RequireFolder(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}
	if f.IsRoot() {
		return nil, apperr.New(apperr.KindForbidden, "the root folder cannot be deleted")
	}

	if !opts.Force {
		liveFiles, err := t.files.CountLiveUnderPrefix(ctx, ownerID, f.Path)
		if err != nil {
			return nil, err
		}
		if liveFiles > 0 {
			return nil, apperr.New(apperr.KindNotEmpty,
				"folder contains %d files; pass force to delete anyway", liveFiles)
		}
	}

	now := time.Now().UTC()
	result := &DeleteFolderResult{}

	if opts.Cascade {
		reclaim, err := t.files.SumActiveUnderPrefix(ctx, ownerID, f.Path)
		if err != nil {
			return nil, err
		}
		if reclaim > 0 {
			if err := t.ledger.GuardedDecrement(ctx, ownerID, reclaim); err != nil {
				return nil, err
			}
		}
		deletedFolders, err := t.folders.SoftDeleteSubtree(ctx, ownerID, f.Path, now)
		if err != nil {
			return nil, err
		}
		if _, err := t.files.SoftDeleteUnderPrefix(ctx, ownerID, f.Path, now); err != nil {
			return nil, err
		}
		result.DeletedFolders = deletedFolders
		result.StorageReclaimed = reclaim
	} else {
		ok, err := t.folders.SoftDelete(ctx, ownerID, f.ID, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.New(apperr.KindNotFound, "folder not found")
		}
		result.DeletedFolders = 1
	}

	if err := t.folders.AdjustFolderCount(ctx, ownerID, *f.ParentFolderID, -1); err != nil {
		log.Printf("[FOLDERS] failed to drop folder_count on %s: %v", *f.ParentFolderID, err)
	}
	return result, nil
}

// RestoreFolder resurrects a soft-deleted folder, provided its parent
// is still alive and no live sibling has taken its name.
func (t *FolderTree) RestoreFolder(ctx context.Context, ownerID, folderID string) (*models.Folder, error) {
	f, err := t.folders.GetByID(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}
	if f == nil || !f.IsDeleted {
		return nil, apperr.New(apperr.KindNotFound, "no deleted folder to restore")
	}
	if f.IsRoot() {
		return nil, apperr.New(apperr.KindForbidden, "the root folder cannot be restored")
	}

	parent, err := t.folders.GetByID(ctx, ownerID, *f.ParentFolderID)
	if err != nil {
		return nil, err
	}
	if parent == nil || parent.IsDeleted {
		return nil, apperr.New(apperr.KindParentGone, "parent folder is missing or deleted")
	}

	sibling, err := t.folders.FindLiveChildByName(ctx, ownerID, parent.ID, f.Name)
	if err != nil {
		return nil, err
	}
	if sibling != nil {
		return nil, apperr.New(apperr.KindDuplicate, "a live folder named %q now occupies this name", f.Name)
	}

	if err := t.folders.Restore(ctx, ownerID, f.ID); err != nil {
		return nil, err
	}
	if err := t.folders.AdjustFolderCount(ctx, ownerID, parent.ID, 1); err != nil {
		log.Printf("[FOLDERS] failed to bump folder_count on %s: %v", parent.ID, err)
	}
	f.IsDeleted = false
	f.DeletedAt = nil
	return f, nil
}

// ListFolders lists the live children of a folder; empty parentID
// lists the root.
func (t *FolderTree) ListFolders(ctx context.Context, ownerID, parentID string) ([]*models.Folder, error) {
	var parent *models.Folder
	var err error
	if parentID == "" {
		parent, err = t.EnsureRoot(ctx, ownerID)
	} else {
		parent, err = t.RequireFolder(ctx, ownerID, parentID)
	}
	if err != nil {
		return nil, err
	}
	return t.folders.ListLiveChildren(ctx, ownerID, parent.ID)
}

// GetFolderPath returns the ancestor chain from the root down to the
// folder itself, resolved by decomposing the materialized path.
func (t *FolderTree) GetFolderPath(ctx context.Context, ownerID, folderID string) ([]*models.Folder, error) {
	f, err := t.RequireFolder(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	chain := make([]*models.Folder, 0, f.Depth+1)
	for _, prefix := range paths.Ancestry(f.Path) {
		ancestor, err := t.folders.GetLiveByPath(ctx, ownerID, prefix)
		if err != nil {
			return nil, err
		}
		if ancestor == nil {
			// Stale path segment, e.g. after a crash mid-cascade.
			return nil, apperr.New(apperr.KindNotFound, "ancestor at %q not found", prefix)
		}
		chain = append(chain, ancestor)
	}
	return chain, nil
}

// SearchFolders matches live folders by case-insensitive substring.
func (t *FolderTree) SearchFolders(ctx context.Context, ownerID, query string) ([]*models.Folder, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "search query is empty")
	}
	return t.folders.SearchLive(ctx, ownerID, query)
}

// GetFolderStats reports direct child counts and the active bytes
// directly inside the folder.
func (t *FolderTree) GetFolderStats(ctx context.Context, ownerID, folderID string) (*models.FolderStats, error) {
	f, err := t.RequireFolder(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	folderCount, err := t.folders.CountLiveChildren(ctx, ownerID, f.ID)
	if err != nil {
		return nil, err
	}
	fileCount, err := t.files.CountLiveByFolder(ctx, ownerID, f.ID)
	if err != nil {
		return nil, err
	}
	totalSize, err := t.files.SumActiveByFolder(ctx, ownerID, f.ID)
	if err != nil {
		return nil, err
	}

	return &models.FolderStats{
		FolderID:    f.ID,
		FolderCount: folderCount,
		FileCount:   fileCount,
		TotalSize:   totalSize,
	}, nil
}
