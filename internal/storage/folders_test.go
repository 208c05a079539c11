package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikePrefix(t *testing.T) {
	assert.Equal(t, `/a/%`, likePrefix("/a"))
	assert.Equal(t, `/a/b/%`, likePrefix("/a/b"))
	// LIKE metacharacters in folder names must not act as wildcards.
	assert.Equal(t, `/100\%/%`, likePrefix("/100%"))
	assert.Equal(t, `/a\_b/%`, likePrefix("/a_b"))
	assert.Equal(t, `/a\\b/%`, likePrefix(`/a\b`))
}

func TestRenameSubtreeTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresFolderStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE folders SET name = \$3, path = \$4`).
		WithArgs("user-1", "folder-1", "x", "/x").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE folders SET path = \$2 \|\| substr\(path, \$3\)`).
		WithArgs("user-1", "/x", 3, `/a/%`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err = store.RenameSubtree(context.Background(), "user-1", "folder-1", "x", "/a", "/x")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRenameSubtreeMultibytePathOffset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresFolderStore(db)

	// "/résumé" is 7 characters but 9 bytes; the substr offset must be
	// the character count or every descendant path loses its first
	// segments.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE folders SET name = \$3, path = \$4`).
		WithArgs("user-1", "folder-1", "x", "/x").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE folders SET path = \$2 \|\| substr\(path, \$3\)`).
		WithArgs("user-1", "/x", 8, `/résumé/%`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err = store.RenameSubtree(context.Background(), "user-1", "folder-1", "x", "/résumé", "/x")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRenameSubtreeRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresFolderStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE folders SET name = \$3, path = \$4`).
		WithArgs("user-1", "folder-1", "x", "/x").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = store.RenameSubtree(context.Background(), "user-1", "folder-1", "x", "/a", "/x")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveSubtreeTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresFolderStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE folders SET parent_folder_id = \$3, path = \$4, depth = depth \+ \$5`).
		WithArgs("user-1", "folder-1", "parent-new", "/dst/a", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE folders SET path = \$2 \|\| substr\(path, \$3\), depth = depth \+ \$4`).
		WithArgs("user-1", "/dst/a", 3, 1, `/a/%`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE folders SET folder_count = folder_count - 1`).
		WithArgs("user-1", "parent-old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE folders SET folder_count = folder_count \+ 1`).
		WithArgs("user-1", "parent-new").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = store.MoveSubtree(context.Background(), "user-1", "folder-1", "parent-old", "parent-new", "/a", "/dst/a", 1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveSubtreeMultibytePathOffset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresFolderStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE folders SET parent_folder_id = \$3, path = \$4, depth = depth \+ \$5`).
		WithArgs("user-1", "folder-1", "parent-new", "/dst/résumé", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE folders SET path = \$2 \|\| substr\(path, \$3\), depth = depth \+ \$4`).
		WithArgs("user-1", "/dst/résumé", 8, 1, `/résumé/%`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE folders SET folder_count = folder_count - 1`).
		WithArgs("user-1", "parent-old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE folders SET folder_count = folder_count \+ 1`).
		WithArgs("user-1", "parent-new").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = store.MoveSubtree(context.Background(), "user-1", "folder-1", "parent-old", "parent-new", "/résumé", "/dst/résumé", 1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderSoftDeleteReportsMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresFolderStore(db)
	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE folders SET is_deleted = true`).
		WithArgs("user-1", "folder-1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.SoftDelete(context.Background(), "user-1", "folder-1", at)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDeleteSubtreeCountsRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresFolderStore(db)
	at := time.Now().UTC()

	mock.ExpectExec(`UPDATE folders SET is_deleted = true`).
		WithArgs("user-1", "/a", at, `/a/%`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := store.SoftDeleteSubtree(context.Background(), "user-1", "/a", at)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
