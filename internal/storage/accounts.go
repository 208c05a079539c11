package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/models"
)

// PostgresAccountStore implements AccountStore over a *sql.DB. Both
// mutations are single UPDATE statements so the counter never goes
// through a read-modify-write cycle in this process.
type PostgresAccountStore struct {
	db *sql.DB
}

func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

func (s *PostgresAccountStore) Get(ctx context.Context, ownerID string) (*models.User, error) {
	query := `SELECT id, storage_used, storage_limit, created_at, updated_at FROM users WHERE id = $1`
	var u models.User
	err := s.db.QueryRowContext(ctx, query, ownerID).Scan(
		&u.ID, &u.StorageUsed, &u.StorageLimit, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresAccountStore) Create(ctx context.Context, ownerID string, storageLimit int64) error {
	query := `
	INSERT INTO users (id, storage_used, storage_limit, created_at, updated_at)
	VALUES ($1, 0, $2, NOW(), NOW())
	ON CONFLICT (id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, ownerID, storageLimit)
	return err
}

func (s *PostgresAccountStore) IncrementUsage(ctx context.Context, ownerID string, amount int64) error {
	query := `UPDATE users SET storage_used = storage_used + $2, updated_at = NOW() WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, ownerID, amount)
	return err
}

func (s *PostgresAccountStore) DecrementUsageGuarded(ctx context.Context, ownerID string, amount int64) (bool, error) {
	query := `
	UPDATE users SET storage_used = storage_used - $2, updated_at = NOW()
	WHERE id = $1 AND storage_used >= $2
	`
	res, err := s.db.ExecContext(ctx, query, ownerID, amount)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
