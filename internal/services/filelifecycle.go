package services

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/apperr"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/blob"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/events"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/paths"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/storage"
	"github.com/google/uuid"
)

const (
	// MaxUploadSize is the hard per-object ceiling enforced at
	// confirmation time against the blob store's reported size.
	MaxUploadSize = 50 << 20

	// UploadURLTTL bounds how long a presigned PUT stays valid. URLs
	// are not renewable; an expired one means a fresh intent.
	UploadURLTTL = 5 * time.Minute

	// DownloadURLTTL bounds presigned GETs attached to reads.
	DownloadURLTTL = 15 * time.Minute
)

// Object metadata keys embedded into presigned uploads and verified
// on confirm.
const (
	metaFileID  = "file-id"
	metaOwnerID = "owner-id"
)

// FileLifecycle drives a file from upload intent through confirmation
// to deletion, keeping the quota ledger in step at every transition.
type FileLifecycle struct {
	files  storage.FileStore
	tree   *FolderTree
	ledger *QuotaLedger
	blobs  blob.Store
	events events.Publisher
}

func NewFileLifecycle(files storage.FileStore, tree *FolderTree, ledger *QuotaLedger, blobs blob.Store, pub events.Publisher) *FileLifecycle {
	return &FileLifecycle{files: files, tree: tree, ledger: ledger, blobs: blobs, events: pub}
}

// UploadIntentRequest carries the client's declared upload.
type UploadIntentRequest struct {
	Filename       string   `json:"filename"`
	MimeType       string   `json:"mime_type"`
	Size           int64    `json:"size"`
	ParentFolderID string   `json:"parent_folder_id"`
	Tags           []string `json:"tags,omitempty"`
	Description    string   `json:"description,omitempty"`
}

// UploadIntent is what the caller gets back: where to PUT the bytes
// and the id to confirm with.
type UploadIntent struct {
	FileID    string    `json:"file_id"`
	UploadURL string    `json:"upload_url"`
	S3Key     string    `json:"s3_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DeleteFileResult reports a single deletion.
type DeleteFileResult struct {
	StorageReclaimed int64 `json:"storage_reclaimed"`
}

// BatchDeleteResult reports a best-effort batch deletion.
type BatchDeleteResult struct {
	Deleted            int   `json:"deleted"`
	Failed             int   `json:"failed"`
	TotalSizeReclaimed int64 `json:"total_size_reclaimed"`
}

// FileWithURL decorates a file with a presigned download URL.
type FileWithURL struct {
	*models.File
	DownloadURL string `json:"download_url,omitempty"`
}

// FilePage is one page of a folder listing.
type FilePage struct {
	Files      []*FileWithURL `json:"files"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"totalPages"`
}

// normalizeTags trims and lower-cases tags, preserving order and
// duplicates, dropping empties. More than MaxTags after cleanup is an
// error.
func normalizeTags(tags []string) ([]string, error) {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		cleaned = append(cleaned, t)
	}
	if len(cleaned) > models.MaxTags {
		return nil, apperr.New(apperr.KindInvalidArgument, "at most %d tags are allowed", models.MaxTags)
	}
	return cleaned, nil
}

// CreateUploadIntent validates the declared upload, runs the
// optimistic quota check, persists a pending row and hands back a
// presigned PUT. The row stays behind even if the caller never
// uploads; nothing here reaps abandoned intents.
func (s *FileLifecycle) CreateUploadIntent(ctx context.Context, ownerID string, req UploadIntentRequest) (*UploadIntent, error) {
	name, err := paths.ValidateName(req.Filename)
	if err != nil {
		return nil, err
	}
	if req.Size <= 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "size must be positive")
	}
	if strings.TrimSpace(req.MimeType) == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "mime_type is required")
	}
	if req.ParentFolderID == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "parent_folder_id is required")
	}
	tags, err := normalizeTags(req.Tags)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.CheckAdmission(ctx, ownerID, req.Size); err != nil {
		return nil, err
	}

	folder, err := s.tree.RequireFolder(ctx, ownerID, req.ParentFolderID)
	if err != nil {
		return nil, err
	}

	fileID := uuid.New().String()
	key := fmt.Sprintf("%s/%s%s", ownerID, fileID, strings.ToLower(filepath.Ext(name)))

	file := &models.File{
		ID:             fileID,
		OwnerID:        ownerID,
		ParentFolderID: folder.ID,
		Name:           name,
		Size:           req.Size,
		MimeType:       req.MimeType,
		Status:         models.FileStatusPending,
		Tags:           tags,
		Description:    req.Description,
		S3Key:          key,
		PreviewStatus:  models.PreviewStatusNone,
		ScanStatus:     models.ScanStatusPending,
	}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}

	url, err := s.blobs.UploadURL(ctx, key, req.MimeType, map[string]string{
		metaFileID:  fileID,
		metaOwnerID: ownerID,
	}, UploadURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &UploadIntent{
		FileID:    fileID,
		UploadURL: url,
		S3Key:     key,
		ExpiresAt: time.Now().UTC().Add(UploadURLTTL),
	}, nil
}

// ConfirmUpload verifies the uploaded object against the intent and
// activates the file. Every rejection leaves the row pending and the
// quota untouched, so a failed confirm is always retryable. The quota
// increment uses the blob store's reported size, never the declared
// one.
func (s *FileLifecycle) ConfirmUpload(ctx context.Context, ownerID, fileID string) (*models.File, error) {
	f, err := s.files.GetByID(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	if f == nil || f.IsDeleted || f.Status != models.FileStatusPending {
		return nil, apperr.New(apperr.KindInvalidOrAlreadyConfirmed, "no pending upload to confirm")
	}

	info, err := s.blobs.Head(ctx, f.S3Key)
	if err != nil {
		return nil, fmt.Errorf("failed to probe object: %w", err)
	}
	if info == nil {
		return nil, apperr.New(apperr.KindNotFoundInStorage, "object not found in storage")
	}
	// The presigned PUT signs the owner metadata header, so an object
	// without it did not come through the issued URL.
	if info.Metadata[metaOwnerID] != ownerID {
		return nil, apperr.New(apperr.KindOwnershipMismatch, "object owner metadata does not match caller")
	}
	if info.Size == 0 {
		return nil, apperr.New(apperr.KindEmptyUpload, "uploaded object is empty")
	}
	if info.Size > MaxUploadSize {
		return nil, apperr.New(apperr.KindTooLarge, "object size %d exceeds the %d byte limit", info.Size, MaxUploadSize)
	}
	if info.ContentType != "" && !strings.EqualFold(info.ContentType, f.MimeType) {
		return nil, apperr.New(apperr.KindMimeMismatch,
			"declared type %q but object is %q", f.MimeType, info.ContentType)
	}

	ok, err := s.files.ConfirmActive(ctx, ownerID, fileID, info.Size, info.ContentType)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race against another confirm or a delete.
		return nil, apperr.New(apperr.KindInvalidOrAlreadyConfirmed, "no pending upload to confirm")
	}

	if err := s.ledger.Increment(ctx, ownerID, info.Size); err != nil {
		return nil, fmt.Errorf("failed to record storage usage: %w", err)
	}

	f.Status = models.FileStatusActive
	f.Size = info.Size
	if info.ContentType != "" {
		f.MimeType = info.ContentType
	}

	if s.events != nil {
		if err := s.events.Publish(events.SubjectFileConfirmed, events.FileConfirmedEvent{
			FileID:   f.ID,
			OwnerID:  f.OwnerID,
			S3Key:    f.S3Key,
			MimeType: f.MimeType,
			Size:     f.Size,
		}); err != nil {
			log.Printf("[FILES] failed to publish %s: %v", events.SubjectFileConfirmed, err)
		}
	}
	return f, nil
}

// DeleteFile soft-deletes a file. For an active file the quota is
// reclaimed first; if the guarded decrement fails the file is left
// untouched, keeping the counter non-negative over completing the
// delete.
func (s *FileLifecycle) DeleteFile(ctx context.Context, ownerID, fileID string) (*DeleteFileResult, error) {
	f, err := s.files.GetByID(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	if f == nil || f.IsDeleted {
		return nil, apperr.New(apperr.KindNotFound, "file not found")
	}

	var reclaim int64
	if f.Status == models.FileStatusActive {
		reclaim = f.Size
	}
	if reclaim > 0 {
		if err := s.ledger.GuardedDecrement(ctx, ownerID, reclaim); err != nil {
			return nil, err
		}
	}

	ok, err := s.files.SoftDelete(ctx, ownerID, fileID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent delete won; give back what we just reclaimed.
		if reclaim > 0 {
			if incErr := s.ledger.Increment(ctx, ownerID, reclaim); incErr != nil {
				log.Printf("[FILES] failed to compensate quota for %s: %v", fileID, incErr)
			}
		}
		return nil, apperr.New(apperr.KindNotFound, "file not found")
	}

	if s.events != nil {
		if err := s.events.Publish(events.SubjectFileDeleted, events.FileDeletedEvent{
			FileID:  f.ID,
			OwnerID: f.OwnerID,
			S3Key:   f.S3Key,
		}); err != nil {
			log.Printf("[FILES] failed to publish %s: %v", events.SubjectFileDeleted, err)
		}
	}
	return &DeleteFileResult{StorageReclaimed: reclaim}, nil
}

// BatchDeleteFiles deletes the owned, live files among ids. The
// reclaimable total is decremented once up front; each file is then
// deleted independently, and any file whose delete fails gets its
// already-reclaimed share re-incremented. Two-phase and best-effort,
// not a transaction.
func (s *FileLifecycle) BatchDeleteFiles(ctx context.Context, ownerID string, fileIDs []string) (*BatchDeleteResult, error) {
	if len(fileIDs) == 0 {
		return nil, apperr.New(apperr.KindNoValidFiles, "no file ids given")
	}

	candidates, err := s.files.ListLiveByIDs(ctx, ownerID, fileIDs)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, apperr.New(apperr.KindNoValidFiles, "none of the given files exist")
	}

	var total int64
	for _, f := range candidates {
		if f.Status == models.FileStatusActive {
			total += f.Size
		}
	}
	if total > 0 {
		if err := s.ledger.GuardedDecrement(ctx, ownerID, total); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	result := &BatchDeleteResult{}
	var compensate int64
	for _, f := range candidates {
		ok, err := s.files.SoftDelete(ctx, ownerID, f.ID, now)
		if err != nil || !ok {
			if err != nil {
				log.Printf("[FILES] batch delete of %s failed: %v", f.ID, err)
			}
			result.Failed++
			if f.Status == models.FileStatusActive {
				compensate += f.Size
			}
			continue
		}
		result.Deleted++
	}

	if compensate > 0 {
		if err := s.ledger.Increment(ctx, ownerID, compensate); err != nil {
			log.Printf("[FILES] failed to compensate quota by %d: %v", compensate, err)
		}
	}
	result.TotalSizeReclaimed = total - compensate
	return result, nil
}

// requireLiveFile loads an owned, non-deleted file or fails NotFound.
func (s *FileLifecycle) requireLiveFile(ctx context.Context, ownerID, fileID string) (*models.File, error) {
	f, err := s.files.GetByID(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	if f == nil || f.IsDeleted {
		return nil, apperr.New(apperr.KindNotFound, "file not found")
	}
	return f, nil
}

// GetFile returns a live file with a presigned download URL attached.
func (s *FileLifecycle) GetFile(ctx context.Context, ownerID, fileID string) (*FileWithURL, error) {
	f, err := s.requireLiveFile(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	out := &FileWithURL{File: f}
	if f.Status == models.FileStatusActive {
		url, err := s.blobs.DownloadURL(ctx, f.S3Key, f.Name, DownloadURLTTL)
		if err != nil {
			log.Printf("[FILES] failed to presign download for %s: %v", f.ID, err)
		} else {
			out.DownloadURL = url
		}
	}
	return out, nil
}

// DownloadURL returns a presigned GET for an active file.
func (s *FileLifecycle) DownloadURL(ctx context.Context, ownerID, fileID string) (string, error) {
	f, err := s.requireLiveFile(ctx, ownerID, fileID)
	if err != nil {
		return "", err
	}
	if f.Status != models.FileStatusActive {
		return "", apperr.New(apperr.KindNotFound, "file has no confirmed content")
	}
	return s.blobs.DownloadURL(ctx, f.S3Key, f.Name, DownloadURLTTL)
}

// ListFiles returns one page of a folder's live files with download
// URLs. URL generation fans out concurrently and is awaited before
// the page is assembled; a failed presign leaves that entry's URL
// empty rather than failing the page.
func (s *FileLifecycle) ListFiles(ctx context.Context, ownerID, folderID string, page, pageSize int) (*FilePage, error) {
	folder, err := s.tree.RequireFolder(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 500 {
		pageSize = 500
	}
	offset := (page - 1) * pageSize

	files, err := s.files.ListLiveByFolder(ctx, ownerID, folder.ID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.files.CountLiveByFolder(ctx, ownerID, folder.ID)
	if err != nil {
		return nil, err
	}

	out := make([]*FileWithURL, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		out[i] = &FileWithURL{File: f}
		if f.Status != models.FileStatusActive {
			continue
		}
		wg.Add(1)
		go func(i int, f *models.File) {
			defer wg.Done()
			url, err := s.blobs.DownloadURL(ctx, f.S3Key, f.Name, DownloadURLTTL)
			if err != nil {
				log.Printf("[FILES] failed to presign download for %s: %v", f.ID, err)
				return
			}
			out[i].DownloadURL = url
		}(i, f)
	}
	wg.Wait()

	totalPages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		totalPages++
	}

	return &FilePage{
		Files:      out,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// GetBatchPreviews returns presigned preview URLs for the given files
// that have one, keyed by file id.
func (s *FileLifecycle) GetBatchPreviews(ctx context.Context, ownerID string, fileIDs []string) (map[string]string, error) {
	if len(fileIDs) == 0 {
		return map[string]string{}, nil
	}
	files, err := s.files.ListLiveByIDs(ctx, ownerID, fileIDs)
	if err != nil {
		return nil, err
	}

	previews := make(map[string]string)
	for _, f := range files {
		if !f.HasPreview || f.PreviewKey == nil {
			continue
		}
		url, err := s.blobs.DownloadURL(ctx, *f.PreviewKey, "", DownloadURLTTL)
		if err != nil {
			log.Printf("[FILES] failed to presign preview for %s: %v", f.ID, err)
			continue
		}
		previews[f.ID] = url
	}
	return previews, nil
}

// MoveFile relocates a file to another live folder.
func (s *FileLifecycle) MoveFile(ctx context.Context, ownerID, fileID, destFolderID string) (*models.File, error) {
	f, err := s.requireLiveFile(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	dest, err := s.tree.RequireFolder(ctx, ownerID, destFolderID)
	if err != nil {
		return nil, err
	}
	if err := s.files.UpdateParentFolder(ctx, ownerID, f.ID, dest.ID); err != nil {
		return nil, err
	}
	f.ParentFolderID = dest.ID
	return f, nil
}

// RenameFile renames a file.
func (s *FileLifecycle) RenameFile(ctx context.Context, ownerID, fileID, rawName string) (*models.File, error) {
	f, err := s.requireLiveFile(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	name, err := paths.ValidateName(rawName)
	if err != nil {
		return nil, err
	}
	if err := s.files.UpdateName(ctx, ownerID, f.ID, name); err != nil {
		return nil, err
	}
	f.Name = name
	return f, nil
}

// UpdateTags replaces a file's tags.
func (s *FileLifecycle) UpdateTags(ctx context.Context, ownerID, fileID string, tags []string) (*models.File, error) {
	f, err := s.requireLiveFile(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	cleaned, err := normalizeTags(tags)
	if err != nil {
		return nil, err
	}
	if err := s.files.UpdateTags(ctx, ownerID, f.ID, cleaned); err != nil {
		return nil, err
	}
	f.Tags = cleaned
	return f, nil
}

// UpdateDescription replaces a file's description.
func (s *FileLifecycle) UpdateDescription(ctx context.Context, ownerID, fileID, description string) (*models.File, error) {
	f, err := s.requireLiveFile(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	if err := s.files.UpdateDescription(ctx, ownerID, f.ID, description); err != nil {
		return nil, err
	}
	f.Description = description
	return f, nil
}

// SearchFiles matches live files by case-insensitive substring.
func (s *FileLifecycle) SearchFiles(ctx context.Context, ownerID, query string) ([]*models.File, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(apperr.KindInvalidArgument, "search query is empty")
	}
	return s.files.SearchLive(ctx, ownerID, query)
}

// GetFilesByTags returns live files carrying all of the given tags.
func (s *FileLifecycle) GetFilesByTags(ctx context.Context, ownerID string, tags []string) ([]*models.File, error) {
	cleaned, err := normalizeTags(tags)
	if err != nil {
		return nil, err
	}
	if len(cleaned) == 0 {
		return nil, apperr.New(apperr.KindInvalidArgument, "at least one tag is required")
	}
	return s.files.ListLiveByTags(ctx, ownerID, cleaned)
}

// GetFileStats aggregates the owner's active files by coarse type.
func (s *FileLifecycle) GetFileStats(ctx context.Context, ownerID string) (*models.UserFileStats, error) {
	return s.files.StatsForOwner(ctx, ownerID)
}

// UpdatePreview records a finished preview. The channel carries no
// ordering guarantee; this is a last-write-wins mutation keyed by
// file id.
func (s *FileLifecycle) UpdatePreview(ctx context.Context, fileID, previewKey, status string) error {
	ready := status == models.PreviewStatusReady
	if ready && previewKey == "" {
		return apperr.New(apperr.KindInvalidArgument, "preview_key is required for a ready preview")
	}
	return s.files.UpdatePreview(ctx, fileID, previewKey, status, ready)
}

// MarkPreviewFailed records a failed preview attempt.
func (s *FileLifecycle) MarkPreviewFailed(ctx context.Context, fileID, reason string) error {
	log.Printf("[PREVIEW] generation failed for %s: %s", fileID, reason)
	return s.files.UpdatePreview(ctx, fileID, "", models.PreviewStatusFailed, false)
}

// PurgeOwner soft-deletes every file of an owner and removes their
// object prefix from the blob store. Driven by users.deleted.
func (s *FileLifecycle) PurgeOwner(ctx context.Context, ownerID string) (int64, error) {
	deleted, err := s.files.SoftDeleteAllForOwner(ctx, ownerID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if err := s.blobs.RemovePrefix(ctx, ownerID+"/"); err != nil {
		return deleted, fmt.Errorf("failed to purge objects for %s: %w", ownerID, err)
	}
	return deleted, nil
}
