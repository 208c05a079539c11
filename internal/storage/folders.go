package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/models"
)

// PostgresFolderStore implements FolderStore over a *sql.DB.
type PostgresFolderStore struct {
	db *sql.DB
}

func NewPostgresFolderStore(db *sql.DB) *PostgresFolderStore {
	return &PostgresFolderStore{db: db}
}

const folderColumns = `id, owner_id, name, parent_folder_id, path, depth, folder_count, is_deleted, deleted_at, created_at, updated_at`

func scanFolder(row interface{ Scan(...interface{}) error }) (*models.Folder, error) {
	var f models.Folder
	var parentID sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(
		&f.ID,
		&f.OwnerID,
		&f.Name,
		&parentID,
		&f.Path,
		&f.Depth,
		&f.FolderCount,
		&f.IsDeleted,
		&deletedAt,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		f.ParentFolderID = &parentID.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		f.DeletedAt = &t
	}
	return &f, nil
}

func (s *PostgresFolderStore) queryOne(ctx context.Context, query string, args ...interface{}) (*models.Folder, error) {
	f, err := scanFolder(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return f, nil
}

func (s *PostgresFolderStore) Create(ctx context.Context, f *models.Folder) error {
	query := `
	INSERT INTO folders (id, owner_id, name, parent_folder_id, path, depth, folder_count, is_deleted, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, false, NOW(), NOW())
	`
	var parentID interface{}
	if f.ParentFolderID != nil {
		parentID = *f.ParentFolderID
	}
	_, err := s.db.ExecContext(ctx, query, f.ID, f.OwnerID, f.Name, parentID, f.Path, f.Depth, f.FolderCount)
	return err
}

func (s *PostgresFolderStore) GetByID(ctx context.Context, ownerID, folderID string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE owner_id = $1 AND id = $2`
	return s.queryOne(ctx, query, ownerID, folderID)
}

func (s *PostgresFolderStore) GetRoot(ctx context.Context, ownerID string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE owner_id = $1 AND parent_folder_id IS NULL AND is_deleted = false`
	return s.queryOne(ctx, query, ownerID)
}

func (s *PostgresFolderStore) GetLiveByPath(ctx context.Context, ownerID, path string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE owner_id = $1 AND path = $2 AND is_deleted = false`
	return s.queryOne(ctx, query, ownerID, path)
}

func (s *PostgresFolderStore) FindLiveChildByName(ctx context.Context, ownerID, parentID, name string) (*models.Folder, error) {
	query := `
	SELECT ` + folderColumns + ` FROM folders
	WHERE owner_id = $1 AND parent_folder_id = $2 AND LOWER(name) = LOWER($3) AND is_deleted = false
	`
	return s.queryOne(ctx, query, ownerID, parentID, name)
}

func (s *PostgresFolderStore) queryMany(ctx context.Context, query string, args ...interface{}) ([]*models.Folder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*models.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (s *PostgresFolderStore) ListLiveChildren(ctx context.Context, ownerID, parentID string) ([]*models.Folder, error) {
	query := `
	SELECT ` + folderColumns + ` FROM folders
	WHERE owner_id = $1 AND parent_folder_id = $2 AND is_deleted = false
	ORDER BY LOWER(name)
	`
	return s.queryMany(ctx, query, ownerID, parentID)
}

func (s *PostgresFolderStore) SearchLive(ctx context.Context, ownerID, query string) ([]*models.Folder, error) {
	q := `
	SELECT ` + folderColumns + ` FROM folders
	WHERE owner_id = $1 AND name ILIKE '%' || $2 || '%' AND is_deleted = false
	ORDER BY path
	`
	return s.queryMany(ctx, q, ownerID, query)
}

func (s *PostgresFolderStore) CountLiveChildren(ctx context.Context, ownerID, folderID string) (int64, error) {
	query := `SELECT COUNT(*) FROM folders WHERE owner_id = $1 AND parent_folder_id = $2 AND is_deleted = false`
	var n int64
	err := s.db.QueryRowContext(ctx, query, ownerID, folderID).Scan(&n)
	return n, err
}

func (s *PostgresFolderStore) MaxLiveDepthUnder(ctx context.Context, ownerID, path string) (int, error) {
	query := `
	SELECT COALESCE(MAX(depth), 0) FROM folders
	WHERE owner_id = $1 AND (path = $2 OR path LIKE $3) AND is_deleted = false
	`
	var depth int
	err := s.db.QueryRowContext(ctx, query, ownerID, path, likePrefix(path)).Scan(&depth)
	return depth, err
}

func (s *PostgresFolderStore) AdjustFolderCount(ctx context.Context, ownerID, folderID string, delta int) error {
	query := `UPDATE folders SET folder_count = folder_count + $3, updated_at = NOW() WHERE owner_id = $1 AND id = $2`
	_, err := s.db.ExecContext(ctx, query, ownerID, folderID, delta)
	return err
}

// RenameSubtree rewrites the folder row and every descendant's path in
// one serializable transaction. Deleted descendants are rewritten too
// so a later restore sees consistent paths. substr is
// character-indexed, so the cut offset counts runes, not bytes.
func (s *PostgresFolderStore) RenameSubtree(ctx context.Context, ownerID, folderID, newName, oldPath, newPath string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE folders SET name = $3, path = $4, updated_at = NOW() WHERE owner_id = $1 AND id = $2`,
			ownerID, folderID, newName, newPath,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE folders SET path = $2 || substr(path, $3), updated_at = NOW()
			 WHERE owner_id = $1 AND path LIKE $4`,
			ownerID, newPath, utf8.RuneCountInString(oldPath)+1, likePrefix(oldPath),
		)
		return err
	})
}

func (s *PostgresFolderStore) MoveSubtree(ctx context.Context, ownerID, folderID, oldParentID, newParentID, oldPath, newPath string, depthDelta int) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE folders SET parent_folder_id = $3, path = $4, depth = depth + $5, updated_at = NOW()
			 WHERE owner_id = $1 AND id = $2`,
			ownerID, folderID, newParentID, newPath, depthDelta,
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE folders SET path = $2 || substr(path, $3), depth = depth + $4, updated_at = NOW()
			 WHERE owner_id = $1 AND path LIKE $5`,
			ownerID, newPath, utf8.RuneCountInString(oldPath)+1, depthDelta, likePrefix(oldPath),
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE folders SET folder_count = folder_count - 1, updated_at = NOW() WHERE owner_id = $1 AND id = $2`,
			ownerID, oldParentID,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE folders SET folder_count = folder_count + 1, updated_at = NOW() WHERE owner_id = $1 AND id = $2`,
			ownerID, newParentID,
		)
		return err
	})
}

func (s *PostgresFolderStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func (s *PostgresFolderStore) SoftDeleteSubtree(ctx context.Context, ownerID, path string, at time.Time) (int64, error) {
	query := `
	UPDATE folders SET is_deleted = true, deleted_at = $3, updated_at = NOW()
	WHERE owner_id = $1 AND (path = $2 OR path LIKE $4) AND is_deleted = false
	`
	res, err := s.db.ExecContext(ctx, query, ownerID, path, at, likePrefix(path))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresFolderStore) SoftDelete(ctx context.Context, ownerID, folderID string, at time.Time) (bool, error) {
	query := `
	UPDATE folders SET is_deleted = true, deleted_at = $3, updated_at = NOW()
	WHERE owner_id = $1 AND id = $2 AND is_deleted = false
	`
	res, err := s.db.ExecContext(ctx, query, ownerID, folderID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *PostgresFolderStore) Restore(ctx context.Context, ownerID, folderID string) error {
	query := `
	UPDATE folders SET is_deleted = false, deleted_at = NULL, updated_at = NOW()
	WHERE owner_id = $1 AND id = $2
	`
	_, err := s.db.ExecContext(ctx, query, ownerID, folderID)
	return err
}
