package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/models"
	"github.com/lib/pq"
)

// PostgresFileStore implements FileStore over a *sql.DB.
type PostgresFileStore struct {
	db *sql.DB
}

func NewPostgresFileStore(db *sql.DB) *PostgresFileStore {
	return &PostgresFileStore{db: db}
}

const fileColumns = `id, owner_id, parent_folder_id, name, size, mime_type, status, tags, description, s3_key, has_preview, preview_key, preview_status, scan_status, is_deleted, deleted_at, created_at, updated_at`

// filesUnderPrefix selects file rows whose parent folder lies in the
// subtree rooted at a materialized path, including the subtree root.
const filesUnderPrefix = `parent_folder_id IN (
	SELECT id FROM folders WHERE owner_id = $1 AND (path = $2 OR path LIKE $3)
)`

func scanFile(row interface{ Scan(...interface{}) error }) (*models.File, error) {
	var f models.File
	var previewKey sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(
		&f.ID,
		&f.OwnerID,
		&f.ParentFolderID,
		&f.Name,
		&f.Size,
		&f.MimeType,
		&f.Status,
		pq.Array(&f.Tags),
		&f.Description,
		&f.S3Key,
		&f.HasPreview,
		&previewKey,
		&f.PreviewStatus,
		&f.ScanStatus,
		&f.IsDeleted,
		&deletedAt,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if previewKey.Valid {
		f.PreviewKey = &previewKey.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		f.DeletedAt = &t
	}
	return &f, nil
}

func (s *PostgresFileStore) queryOne(ctx context.Context, query string, args ...interface{}) (*models.File, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return f, nil
}

func (s *PostgresFileStore) queryMany(ctx context.Context, query string, args ...interface{}) ([]*models.File, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *PostgresFileStore) Create(ctx context.Context, f *models.File) error {
	query := `
	INSERT INTO files (id, owner_id, parent_folder_id, name, size, mime_type, status, tags, description, s3_key, preview_status, scan_status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`
	_, err := s.db.ExecContext(ctx, query,
		f.ID, f.OwnerID, f.ParentFolderID, f.Name, f.Size, f.MimeType, f.Status,
		pq.Array(f.Tags), f.Description, f.S3Key, models.PreviewStatusNone, models.ScanStatusPending,
	)
	return err
}

func (s *PostgresFileStore) GetByID(ctx context.Context, ownerID, fileID string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 AND id = $2`
	return s.queryOne(ctx, query, ownerID, fileID)
}

func (s *PostgresFileStore) ListLiveByIDs(ctx context.Context, ownerID string, ids []string) ([]*models.File, error) {
	query := `
	SELECT ` + fileColumns + ` FROM files
	WHERE owner_id = $1 AND id = ANY($2) AND is_deleted = false
	`
	return s.queryMany(ctx, query, ownerID, pq.Array(ids))
}

func (s *PostgresFileStore) ListLiveByFolder(ctx context.Context, ownerID, folderID string, limit, offset int) ([]*models.File, error) {
	query := `
	SELECT ` + fileColumns + ` FROM files
	WHERE owner_id = $1 AND parent_folder_id = $2 AND is_deleted = false
	ORDER BY created_at DESC LIMIT $3 OFFSET $4
	`
	return s.queryMany(ctx, query, ownerID, folderID, limit, offset)
}

func (s *PostgresFileStore) CountLiveByFolder(ctx context.Context, ownerID, folderID string) (int64, error) {
	query := `SELECT COUNT(*) FROM files WHERE owner_id = $1 AND parent_folder_id = $2 AND is_deleted = false`
	var n int64
	err := s.db.QueryRowContext(ctx, query, ownerID, folderID).Scan(&n)
	return n, err
}

func (s *PostgresFileStore) SumActiveByFolder(ctx context.Context, ownerID, folderID string) (int64, error) {
	query := `
	SELECT COALESCE(SUM(size), 0) FROM files
	WHERE owner_id = $1 AND parent_folder_id = $2 AND status = 'active' AND is_deleted = false
	`
	var sum int64
	err := s.db.QueryRowContext(ctx, query, ownerID, folderID).Scan(&sum)
	return sum, err
}

func (s *PostgresFileStore) CountLiveUnderPrefix(ctx context.Context, ownerID, path string) (int64, error) {
	query := `SELECT COUNT(*) FROM files WHERE owner_id = $1 AND is_deleted = false AND ` + filesUnderPrefix
	var n int64
	err := s.db.QueryRowContext(ctx, query, ownerID, path, likePrefix(path)).Scan(&n)
	return n, err
}

func (s *PostgresFileStore) SumActiveUnderPrefix(ctx context.Context, ownerID, path string) (int64, error) {
	query := `
	SELECT COALESCE(SUM(size), 0) FROM files
	WHERE owner_id = $1 AND status = 'active' AND is_deleted = false AND ` + filesUnderPrefix
	var sum int64
	err := s.db.QueryRowContext(ctx, query, ownerID, path, likePrefix(path)).Scan(&sum)
	return sum, err
}

func (s *PostgresFileStore) SoftDeleteUnderPrefix(ctx context.Context, ownerID, path string, at time.Time) (int64, error) {
	query := `
	UPDATE files SET is_deleted = true, deleted_at = $4, updated_at = NOW()
	WHERE owner_id = $1 AND is_deleted = false AND ` + filesUnderPrefix
	res, err := s.db.ExecContext(ctx, query, ownerID, path, likePrefix(path), at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresFileStore) SoftDelete(ctx context.Context, ownerID, fileID string, at time.Time) (bool, error) {
	query := `
	UPDATE files SET is_deleted = true, deleted_at = $3, updated_at = NOW()
	WHERE owner_id = $1 AND id = $2 AND is_deleted = false
	`
	res, err := s.db.ExecContext(ctx, query, ownerID, fileID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *PostgresFileStore) ConfirmActive(ctx context.Context, ownerID, fileID string, size int64, mimeType string) (bool, error) {
	query := `
	UPDATE files SET status = 'active', size = $3, mime_type = $4, updated_at = NOW()
	WHERE owner_id = $1 AND id = $2 AND status = 'pending' AND is_deleted = false
	`
	res, err := s.db.ExecContext(ctx, query, ownerID, fileID, size, mimeType)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *PostgresFileStore) UpdateParentFolder(ctx context.Context, ownerID, fileID, folderID string) error {
	query := `UPDATE files SET parent_folder_id = $3, updated_at = NOW() WHERE owner_id = $1 AND id = $2 AND is_deleted = false`
	_, err := s.db.ExecContext(ctx, query, ownerID, fileID, folderID)
	return err
}

func (s *PostgresFileStore) UpdateName(ctx context.Context, ownerID, fileID, name string) error {
	query := `UPDATE files SET name = $3, updated_at = NOW() WHERE owner_id = $1 AND id = $2 AND is_deleted = false`
	_, err := s.db.ExecContext(ctx, query, ownerID, fileID, name)
	return err
}

func (s *PostgresFileStore) UpdateTags(ctx context.Context, ownerID, fileID string, tags []string) error {
	query := `UPDATE files SET tags = $3, updated_at = NOW() WHERE owner_id = $1 AND id = $2 AND is_deleted = false`
	_, err := s.db.ExecContext(ctx, query, ownerID, fileID, pq.Array(tags))
	return err
}

func (s *PostgresFileStore) UpdateDescription(ctx context.Context, ownerID, fileID, description string) error {
	query := `UPDATE files SET description = $3, updated_at = NOW() WHERE owner_id = $1 AND id = $2 AND is_deleted = false`
	_, err := s.db.ExecContext(ctx, query, ownerID, fileID, description)
	return err
}

func (s *PostgresFileStore) SearchLive(ctx context.Context, ownerID, query string) ([]*models.File, error) {
	q := `
	SELECT ` + fileColumns + ` FROM files
	WHERE owner_id = $1 AND name ILIKE '%' || $2 || '%' AND is_deleted = false
	ORDER BY created_at DESC
	`
	return s.queryMany(ctx, q, ownerID, query)
}

func (s *PostgresFileStore) ListLiveByTags(ctx context.Context, ownerID string, tags []string) ([]*models.File, error) {
	query := `
	SELECT ` + fileColumns + ` FROM files
	WHERE owner_id = $1 AND tags @> $2 AND is_deleted = false
	ORDER BY created_at DESC
	`
	return s.queryMany(ctx, query, ownerID, pq.Array(tags))
}

func (s *PostgresFileStore) StatsForOwner(ctx context.Context, ownerID string) (*models.UserFileStats, error) {
	query := `
	SELECT
		CASE
			WHEN mime_type LIKE 'image/%' THEN 'image'
			WHEN mime_type LIKE 'video/%' THEN 'video'
			WHEN mime_type LIKE 'audio/%' THEN 'audio'
			WHEN mime_type IN ('application/pdf', 'text/plain', 'application/msword',
				'application/vnd.openxmlformats-officedocument.wordprocessingml.document') THEN 'document'
			ELSE 'other'
		END AS bucket,
		COUNT(*), COALESCE(SUM(size), 0)
	FROM files
	WHERE owner_id = $1 AND status = 'active' AND is_deleted = false
	GROUP BY bucket
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &models.UserFileStats{CountByType: map[string]int64{}}
	for rows.Next() {
		var bucket string
		var count, size int64
		if err := rows.Scan(&bucket, &count, &size); err != nil {
			return nil, err
		}
		stats.CountByType[bucket] = count
		stats.TotalFiles += count
		stats.TotalSize += size
	}
	return stats, rows.Err()
}

func (s *PostgresFileStore) UpdatePreview(ctx context.Context, fileID, previewKey, status string, hasPreview bool) error {
	query := `
	UPDATE files SET preview_key = NULLIF($2, ''), preview_status = $3, has_preview = $4, updated_at = NOW()
	WHERE id = $1
	`
	_, err := s.db.ExecContext(ctx, query, fileID, previewKey, status, hasPreview)
	return err
}

func (s *PostgresFileStore) UpdateScanStatus(ctx context.Context, fileID, status string, at time.Time) error {
	query := `UPDATE files SET scan_status = $2, updated_at = $3 WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, fileID, status, at)
	return err
}

func (s *PostgresFileStore) SoftDeleteAllForOwner(ctx context.Context, ownerID string, at time.Time) (int64, error) {
	query := `UPDATE files SET is_deleted = true, deleted_at = $2, updated_at = NOW() WHERE owner_id = $1 AND is_deleted = false`
	res, err := s.db.ExecContext(ctx, query, ownerID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
