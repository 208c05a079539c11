package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/blob"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Drive-Service/internal/paths"
)

// In-memory stores mirroring the PostgreSQL semantics closely enough
// for the service layer: nil on miss, owner scoping everywhere, prefix
// operations joining through folder paths without a deleted filter.

type fakeFolderStore struct {
	mu      sync.Mutex
	folders map[string]*models.Folder
}

func newFakeFolderStore() *fakeFolderStore {
	return &fakeFolderStore{folders: map[string]*models.Folder{}}
}

func (s *fakeFolderStore) Create(_ context.Context, f *models.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.IsRoot() {
		for _, other := range s.folders {
			if other.OwnerID == f.OwnerID && other.IsRoot() && !other.IsDeleted {
				return fmt.Errorf("duplicate root for %s", f.OwnerID)
			}
		}
	}
	cp := *f
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	s.folders[f.ID] = &cp
	return nil
}

func (s *fakeFolderStore) get(ownerID, folderID string) *models.Folder {
	f, ok := s.folders[folderID]
	if !ok || f.OwnerID != ownerID {
		return nil
	}
	return f
}

func (s *fakeFolderStore) GetByID(_ context.Context, ownerID, folderID string) (*models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.get(ownerID, folderID)
	if f == nil {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (s *fakeFolderStore) GetRoot(_ context.Context, ownerID string) (*models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.folders {
		if f.OwnerID == ownerID && f.IsRoot() && !f.IsDeleted {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeFolderStore) GetLiveByPath(_ context.Context, ownerID, path string) (*models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.folders {
		if f.OwnerID == ownerID && f.Path == path && !f.IsDeleted {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeFolderStore) FindLiveChildByName(_ context.Context, ownerID, parentID, name string) (*models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.folders {
		if f.OwnerID == ownerID && !f.IsDeleted && f.ParentFolderID != nil &&
			*f.ParentFolderID == parentID && strings.EqualFold(f.Name, name) {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeFolderStore) ListLiveChildren(_ context.Context, ownerID, parentID string) ([]*models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Folder
	for _, f := range s.folders {
		if f.OwnerID == ownerID && !f.IsDeleted && f.ParentFolderID != nil && *f.ParentFolderID == parentID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeFolderStore) SearchLive(_ context.Context, ownerID, query string) ([]*models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Folder
	for _, f := range s.folders {
		if f.OwnerID == ownerID && !f.IsDeleted &&
			strings.Contains(strings.ToLower(f.Name), strings.ToLower(query)) {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeFolderStore) CountLiveChildren(_ context.Context, ownerID, folderID string) (int64, error) {
	children, _ := s.ListLiveChildren(context.Background(), ownerID, folderID)
	return int64(len(children)), nil
}

func (s *fakeFolderStore) MaxLiveDepthUnder(_ context.Context, ownerID, path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for _, f := range s.folders {
		if f.OwnerID == ownerID && !f.IsDeleted && paths.IsSelfOrDescendant(f.Path, path) && f.Depth > max {
			max = f.Depth
		}
	}
	return max, nil
}

func (s *fakeFolderStore) AdjustFolderCount(_ context.Context, ownerID, folderID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.get(ownerID, folderID); f != nil {
		f.FolderCount += delta
	}
	return nil
}

func (s *fakeFolderStore) RenameSubtree(_ context.Context, ownerID, folderID, newName, oldPath, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.get(ownerID, folderID)
	if f == nil {
		return fmt.Errorf("folder %s not found", folderID)
	}
	f.Name = newName
	for _, other := range s.folders {
		if other.OwnerID == ownerID && paths.IsSelfOrDescendant(other.Path, oldPath) {
			other.Path = paths.ReplacePrefix(other.Path, oldPath, newPath)
		}
	}
	return nil
}

func (s *fakeFolderStore) MoveSubtree(_ context.Context, ownerID, folderID, oldParentID, newParentID, oldPath, newPath string, depthDelta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.get(ownerID, folderID)
	if f == nil {
		return fmt.Errorf("folder %s not found", folderID)
	}
	pid := newParentID
	f.ParentFolderID = &pid
	for _, other := range s.folders {
		if other.OwnerID == ownerID && paths.IsSelfOrDescendant(other.Path, oldPath) {
			other.Path = paths.ReplacePrefix(other.Path, oldPath, newPath)
			other.Depth += depthDelta
		}
	}
	if p := s.get(ownerID, oldParentID); p != nil {
		p.FolderCount--
	}
	if p := s.get(ownerID, newParentID); p != nil {
		p.FolderCount++
	}
	return nil
}

func (s *fakeFolderStore) SoftDeleteSubtree(_ context.Context, ownerID, path string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, f := range s.folders {
		if f.OwnerID == ownerID && !f.IsDeleted && paths.IsSelfOrDescendant(f.Path, path) {
			f.IsDeleted = true
			t := at
			f.DeletedAt = &t
			n++
		}
	}
	return n, nil
}

func (s *fakeFolderStore) SoftDelete(_ context.Context, ownerID, folderID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.get(ownerID, folderID)
	if f == nil || f.IsDeleted {
		return false, nil
	}
	f.IsDeleted = true
	t := at
	f.DeletedAt = &t
	return true, nil
}

func (s *fakeFolderStore) Restore(_ context.Context, ownerID, folderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.get(ownerID, folderID); f != nil {
		f.IsDeleted = false
		f.DeletedAt = nil
	}
	return nil
}

type fakeFileStore struct {
	mu    sync.Mutex
	files map[string]*models.File
	// folders resolves prefix queries, the same join the SQL store does.
	folders *fakeFolderStore

	failSoftDelete map[string]bool
}

func newFakeFileStore(folders *fakeFolderStore) *fakeFileStore {
	return &fakeFileStore{
		files:          map[string]*models.File{},
		folders:        folders,
		failSoftDelete: map[string]bool{},
	}
}

func (s *fakeFileStore) Create(_ context.Context, f *models.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	s.files[f.ID] = &cp
	return nil
}

func (s *fakeFileStore) get(ownerID, fileID string) *models.File {
	f, ok := s.files[fileID]
	if !ok || f.OwnerID != ownerID {
		return nil
	}
	return f
}

func (s *fakeFileStore) GetByID(_ context.Context, ownerID, fileID string) (*models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.get(ownerID, fileID)
	if f == nil {
		return nil, nil
	}
	cp := *f
	return &cp, nil
}

func (s *fakeFileStore) ListLiveByIDs(_ context.Context, ownerID string, ids []string) ([]*models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.File
	for _, id := range ids {
		if f := s.get(ownerID, id); f != nil && !f.IsDeleted {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeFileStore) ListLiveByFolder(_ context.Context, ownerID, folderID string, limit, offset int) ([]*models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*models.File
	for _, f := range s.files {
		if f.OwnerID == ownerID && f.ParentFolderID == folderID && !f.IsDeleted {
			cp := *f
			all = append(all, &cp)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *fakeFileStore) CountLiveByFolder(_ context.Context, ownerID, folderID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, f := range s.files {
		if f.OwnerID == ownerID && f.ParentFolderID == folderID && !f.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (s *fakeFileStore) SumActiveByFolder(_ context.Context, ownerID, folderID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, f := range s.files {
		if f.OwnerID == ownerID && f.ParentFolderID == folderID && !f.IsDeleted && f.Status == models.FileStatusActive {
			sum += f.Size
		}
	}
	return sum, nil
}

// folderIDsUnder matches folders by path prefix without a deleted
// filter, like the SQL subquery.
func (s *fakeFileStore) folderIDsUnder(ownerID, path string) map[string]bool {
	s.folders.mu.Lock()
	defer s.folders.mu.Unlock()
	ids := map[string]bool{}
	for _, f := range s.folders.folders {
		if f.OwnerID == ownerID && paths.IsSelfOrDescendant(f.Path, path) {
			ids[f.ID] = true
		}
	}
	return ids
}

func (s *fakeFileStore) CountLiveUnderPrefix(_ context.Context, ownerID, path string) (int64, error) {
	ids := s.folderIDsUnder(ownerID, path)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, f := range s.files {
		if f.OwnerID == ownerID && !f.IsDeleted && ids[f.ParentFolderID] {
			n++
		}
	}
	return n, nil
}

func (s *fakeFileStore) SumActiveUnderPrefix(_ context.Context, ownerID, path string) (int64, error) {
	ids := s.folderIDsUnder(ownerID, path)
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, f := range s.files {
		if f.OwnerID == ownerID && !f.IsDeleted && f.Status == models.FileStatusActive && ids[f.ParentFolderID] {
			sum += f.Size
		}
	}
	return sum, nil
}

func (s *fakeFileStore) SoftDeleteUnderPrefix(_ context.Context, ownerID, path string, at time.Time) (int64, error) {
	ids := s.folderIDsUnder(ownerID, path)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, f := range s.files {
		if f.OwnerID == ownerID && !f.IsDeleted && ids[f.ParentFolderID] {
			f.IsDeleted = true
			t := at
			f.DeletedAt = &t
			n++
		}
	}
	return n, nil
}

func (s *fakeFileStore) SoftDelete(_ context.Context, ownerID, fileID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSoftDelete[fileID] {
		return false, fmt.Errorf("injected failure for %s", fileID)
	}
	f := s.get(ownerID, fileID)
	if f == nil || f.IsDeleted {
		return false, nil
	}
	f.IsDeleted = true
	t := at
	f.DeletedAt = &t
	return true, nil
}

func (s *fakeFileStore) ConfirmActive(_ context.Context, ownerID, fileID string, size int64, mimeType string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.get(ownerID, fileID)
	if f == nil || f.IsDeleted || f.Status != models.FileStatusPending {
		return false, nil
	}
	f.Status = models.FileStatusActive
	f.Size = size
	if mimeType != "" {
		f.MimeType = mimeType
	}
	return true, nil
}

func (s *fakeFileStore) UpdateParentFolder(_ context.Context, ownerID, fileID, folderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.get(ownerID, fileID); f != nil && !f.IsDeleted {
		f.ParentFolderID = folderID
	}
	return nil
}

func (s *fakeFileStore) UpdateName(_ context.Context, ownerID, fileID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.get(ownerID, fileID); f != nil && !f.IsDeleted {
		f.Name = name
	}
	return nil
}

func (s *fakeFileStore) UpdateTags(_ context.Context, ownerID, fileID string, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.get(ownerID, fileID); f != nil && !f.IsDeleted {
		f.Tags = tags
	}
	return nil
}

func (s *fakeFileStore) UpdateDescription(_ context.Context, ownerID, fileID, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f := s.get(ownerID, fileID); f != nil && !f.IsDeleted {
		f.Description = description
	}
	return nil
}

func (s *fakeFileStore) SearchLive(_ context.Context, ownerID, query string) ([]*models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.File
	for _, f := range s.files {
		if f.OwnerID == ownerID && !f.IsDeleted &&
			strings.Contains(strings.ToLower(f.Name), strings.ToLower(query)) {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeFileStore) ListLiveByTags(_ context.Context, ownerID string, tags []string) ([]*models.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.File
	for _, f := range s.files {
		if f.OwnerID != ownerID || f.IsDeleted {
			continue
		}
		have := map[string]bool{}
		for _, t := range f.Tags {
			have[t] = true
		}
		all := true
		for _, t := range tags {
			if !have[t] {
				all = false
				break
			}
		}
		if all {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeFileStore) StatsForOwner(_ context.Context, ownerID string) (*models.UserFileStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &models.UserFileStats{CountByType: map[string]int64{}}
	for _, f := range s.files {
		if f.OwnerID != ownerID || f.IsDeleted || f.Status != models.FileStatusActive {
			continue
		}
		bucket := "other"
		switch {
		case strings.HasPrefix(f.MimeType, "image/"):
			bucket = "image"
		case strings.HasPrefix(f.MimeType, "video/"):
			bucket = "video"
		case strings.HasPrefix(f.MimeType, "audio/"):
			bucket = "audio"
		case f.MimeType == "application/pdf" || f.MimeType == "text/plain":
			bucket = "document"
		}
		stats.CountByType[bucket]++
		stats.TotalFiles++
		stats.TotalSize += f.Size
	}
	return stats, nil
}

func (s *fakeFileStore) UpdatePreview(_ context.Context, fileID, previewKey, status string, hasPreview bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok {
		return nil
	}
	if previewKey == "" {
		f.PreviewKey = nil
	} else {
		k := previewKey
		f.PreviewKey = &k
	}
	f.PreviewStatus = status
	f.HasPreview = hasPreview
	return nil
}

func (s *fakeFileStore) UpdateScanStatus(_ context.Context, fileID, status string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.files[fileID]; ok {
		f.ScanStatus = status
	}
	return nil
}

func (s *fakeFileStore) SoftDeleteAllForOwner(_ context.Context, ownerID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, f := range s.files {
		if f.OwnerID == ownerID && !f.IsDeleted {
			f.IsDeleted = true
			t := at
			f.DeletedAt = &t
			n++
		}
	}
	return n, nil
}

type fakeAccountStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{users: map[string]*models.User{}}
}

func (s *fakeAccountStore) seed(ownerID string, used, limit int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[ownerID] = &models.User{ID: ownerID, StorageUsed: used, StorageLimit: limit}
}

func (s *fakeAccountStore) Get(_ context.Context, ownerID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[ownerID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *fakeAccountStore) Create(_ context.Context, ownerID string, storageLimit int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[ownerID]; ok {
		return nil
	}
	s.users[ownerID] = &models.User{ID: ownerID, StorageLimit: storageLimit}
	return nil
}

func (s *fakeAccountStore) IncrementUsage(_ context.Context, ownerID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[ownerID]
	if !ok {
		return fmt.Errorf("account %s not found", ownerID)
	}
	u.StorageUsed += amount
	return nil
}

func (s *fakeAccountStore) DecrementUsageGuarded(_ context.Context, ownerID string, amount int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[ownerID]
	if !ok || u.StorageUsed < amount {
		return false, nil
	}
	u.StorageUsed -= amount
	return true, nil
}

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string]*blob.ObjectInfo
	removed []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string]*blob.ObjectInfo{}}
}

func (s *fakeBlobStore) put(key string, size int64, contentType string, metadata map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = &blob.ObjectInfo{Key: key, Size: size, ContentType: contentType, Metadata: metadata}
}

func (s *fakeBlobStore) UploadURL(_ context.Context, key, _ string, _ map[string]string, _ time.Duration) (string, error) {
	return "https://blob.test/upload/" + key, nil
}

func (s *fakeBlobStore) Head(_ context.Context, key string) (*blob.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.objects[key]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

func (s *fakeBlobStore) DownloadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://blob.test/download/" + key, nil
}

func (s *fakeBlobStore) Download(_ context.Context, _, _ string) error { return nil }

func (s *fakeBlobStore) Upload(_ context.Context, key string, _ io.Reader, size int64, contentType string) error {
	s.put(key, size, contentType, nil)
	return nil
}

func (s *fakeBlobStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.removed = append(s.removed, key)
	return nil
}

func (s *fakeBlobStore) RemovePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
			s.removed = append(s.removed, key)
		}
	}
	return nil
}

type publishedEvent struct {
	Subject string
	Payload interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(subject string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Subject: subject, Payload: payload})
	return nil
}

func (p *fakePublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Subject
	}
	return out
}
