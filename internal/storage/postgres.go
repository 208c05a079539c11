package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Connect opens a PostgreSQL pool, verifies it and runs the idempotent
// schema migration.
func Connect(connectionString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Println("Connected to PostgreSQL successfully")
	return db, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			storage_used BIGINT NOT NULL DEFAULT 0 CHECK (storage_used >= 0),
			storage_limit BIGINT NOT NULL CHECK (storage_limit > 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS folders (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL,
			name VARCHAR(255) NOT NULL,
			parent_folder_id UUID,
			path VARCHAR(1024) NOT NULL,
			depth INT NOT NULL DEFAULT 0,
			folder_count INT NOT NULL DEFAULT 0,
			is_deleted BOOLEAN NOT NULL DEFAULT false,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			id UUID PRIMARY KEY,
			owner_id UUID NOT NULL,
			parent_folder_id UUID NOT NULL,
			name VARCHAR(255) NOT NULL,
			size BIGINT NOT NULL DEFAULT 0,
			mime_type VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			tags TEXT[] NOT NULL DEFAULT '{}',
			description TEXT NOT NULL DEFAULT '',
			s3_key VARCHAR(1024) NOT NULL UNIQUE,
			has_preview BOOLEAN NOT NULL DEFAULT false,
			preview_key VARCHAR(1024),
			preview_status VARCHAR(20) NOT NULL DEFAULT 'none',
			scan_status VARCHAR(20) NOT NULL DEFAULT 'pending',
			is_deleted BOOLEAN NOT NULL DEFAULT false,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_folders_owner_parent ON folders(owner_id, parent_folder_id, is_deleted)`,
		`CREATE INDEX IF NOT EXISTS idx_folders_owner_path ON folders(owner_id, path)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_folders_owner_root ON folders(owner_id) WHERE parent_folder_id IS NULL AND is_deleted = false`,
		`CREATE INDEX IF NOT EXISTS idx_files_owner_parent ON files(owner_id, parent_folder_id, is_deleted)`,
		`CREATE INDEX IF NOT EXISTS idx_files_owner_status ON files(owner_id, status, is_deleted)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique-index
// violation (code 23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// likePrefix builds a LIKE pattern matching strict descendants of a
// materialized path, escaping LIKE metacharacters in the path itself.
func likePrefix(path string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(path) + "/%"
}
