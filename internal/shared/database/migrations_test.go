package database

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return &DB{sqlDB}, mock
}

func TestRunMigrationsAppliesPendingInOrder(t *testing.T) {
	db, mock := newMockDB(t)
	files := fstest.MapFS{
		"002_battles.sql": {Data: []byte("CREATE TABLE battles ();")},
		"001_games.sql":   {Data: []byte("CREATE TABLE games ();")},
		"README.md":       {Data: []byte("ignored")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)")).
		WithArgs("001_games.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)")).
		WithArgs("002_battles.sql").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE battles ();")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("002_battles.sql").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, db.RunMigrations(context.Background(), files))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsRollsBackFailedFile(t *testing.T) {
	db, mock := newMockDB(t)
	files := fstest.MapFS{"001_games.sql": {Data: []byte("CREATE TABLE games (;")}}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE games (;")).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := db.RunMigrations(context.Background(), files)
	assert.ErrorContains(t, err, "001_games.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}
