package repomanager

import (
	"context"
	"database/sql"

	"github.com/avolkovs/fieldvault/internal/dbx"
	"github.com/avolkovs/fieldvault/internal/server/migrations"
	"github.com/avolkovs/fieldvault/internal/server/repositories/items"
	"github.com/avolkovs/fieldvault/internal/server/repositories/keys"
	"github.com/avolkovs/fieldvault/internal/server/repositories/permissions"
	"github.com/avolkovs/fieldvault/internal/server/repositories/sharelinks"
	"github.com/avolkovs/fieldvault/internal/server/repositories/vaults"
	"github.com/avolkovs/fieldvault/internal/server/repositories/versions"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// NewPostgres returns a PostgreSQL-backed repository set bound to db.
func NewPostgres(db dbx.DBTX) Repositories {
	return Repositories{
		Items:       items.NewPostgresRepository(db),
		Versions:    versions.NewPostgresRepository(db),
		Permissions: permissions.NewPostgresRepository(db),
		ShareLinks:  sharelinks.NewPostgresRepository(db),
		Vaults:      vaults.NewPostgresRepository(db),
		Keys:        keys.NewPostgresRepository(db),
	}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
