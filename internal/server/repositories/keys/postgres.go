package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/dbx"
	"github.com/avolkovs/fieldvault/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, k *models.EncryptionKey) error {
	query := `
		INSERT INTO encryption_keys (id, algorithm, material, status, created_at, last_used)
		VALUES ($1,$2,$3,$4,$5,$6);
	`
	_, err := r.db.ExecContext(ctx, query,
		k.ID, k.Algorithm, k.Material, string(k.Status), k.CreatedAt, k.LastUsed)
	if err != nil {
		return fmt.Errorf("failed to insert key: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.EncryptionKey, error) {
	query := `SELECT id, algorithm, material, status, created_at, last_used FROM encryption_keys WHERE id=$1`
	var k models.EncryptionKey
	var status string
	var lastUsed sql.NullTime
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&k.ID, &k.Algorithm, &k.Material, &status, &k.CreatedAt, &lastUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select key: %w", err)
	}
	k.Status = models.KeyStatus(status)
	if lastUsed.Valid {
		k.LastUsed = &lastUsed.Time
	}
	return &k, nil
}

func (r *PostgresRepository) Touch(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE encryption_keys SET last_used=now() WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch key: %w", err)
	}
	return oneRow(res)
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.KeyStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE encryption_keys SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update key status: %w", err)
	}
	return oneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM encryption_keys WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return oneRow(res)
}

func oneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
