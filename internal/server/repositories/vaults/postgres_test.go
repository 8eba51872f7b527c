package vaults

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/avolkovs/fieldvault/internal/common"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestAddUsed_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := regexp.MustCompile(`UPDATE storage_vaults\s+SET capacity_used = GREATEST\(capacity_used \+ \$2, 0\).*`)

	mock.ExpectExec(q.String()).
		WithArgs("v1", int64(4096)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.AddUsed(context.Background(), "v1", 4096); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddUsed_QuotaExceededRowsAffected0(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := regexp.MustCompile(`UPDATE storage_vaults\s+SET capacity_used = GREATEST\(capacity_used \+ \$2, 0\).*`)

	mock.ExpectExec(q.String()).
		WithArgs("v1", int64(4096)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// The zero-row path re-reads the vault to distinguish "missing" from
	// "over quota".
	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "name", "capacity_limit", "capacity_used", "warning_threshold",
		"auto_archive", "compress_by_default", "deduplicate", "versioning_enabled",
		"max_versions", "created_at", "updated_at",
	}).AddRow("v1", "alice", "docs", int64(100), int64(98), int64(0),
		false, false, false, true, 10, time.Now(), time.Now())
	mock.ExpectQuery(`SELECT .* FROM storage_vaults WHERE id=\$1`).
		WithArgs("v1").
		WillReturnRows(rows)

	err := repo.AddUsed(context.Background(), "v1", 4096)
	if !errors.Is(err, common.ErrCapacity) {
		t.Fatalf("want ErrCapacity, got %v", err)
	}
}

func TestAddUsed_VaultMissing(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE storage_vaults\s+SET capacity_used = GREATEST.*`).
		WithArgs("nope", int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM storage_vaults WHERE id=\$1`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	err := repo.AddUsed(context.Background(), "nope", 10)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestAddUsed_DBExecError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE storage_vaults\s+SET capacity_used = GREATEST.*`).
		WithArgs("v1", int64(-10)).
		WillReturnError(errors.New("db is down"))

	err := repo.AddUsed(context.Background(), "v1", -10)
	if err == nil || !regexp.MustCompile(`failed to adjust vault usage: .*db is down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
