package versions

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

func (r *PostgresRepository) Create(ctx context.Context, v *models.StorageVersion) error {
	query := `
		INSERT INTO storage_versions
			(id, item_id, number, storage_key, size, checksum, key_id, nonce, compressed, encrypted, created_by, comment, restorable, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);
	`
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.ItemID, v.Number, v.StorageKey, v.Size, v.Checksum, nullStr(v.KeyID), v.Nonce,
		v.Compressed, v.Encrypted, v.CreatedBy, v.Comment, v.Restorable, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByNumber(ctx context.Context, itemID string, number int) (*models.StorageVersion, error) {
	query := `
		SELECT id, item_id, number, storage_key, size, checksum, key_id, nonce, compressed, encrypted, created_by, comment, restorable, created_at
		FROM storage_versions WHERE item_id=$1 AND number=$2
	`
	var v models.StorageVersion
	var keyID sql.NullString
	err := r.db.QueryRowContext(ctx, query, itemID, number).Scan(
		&v.ID, &v.ItemID, &v.Number, &v.StorageKey, &v.Size, &v.Checksum, &keyID, &v.Nonce,
		&v.Compressed, &v.Encrypted, &v.CreatedBy, &v.Comment, &v.Restorable, &v.CreatedAt)
	v.KeyID = keyID.String
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select version: %w", err)
	}
	return &v, nil
}

func (r *PostgresRepository) ListByItem(ctx context.Context, itemID string) ([]*models.StorageVersion, error) {
	query := `
		SELECT id, item_id, number, storage_key, size, checksum, key_id, nonce, compressed, encrypted, created_by, comment, restorable, created_at
		FROM storage_versions WHERE item_id=$1 ORDER BY number
	`
	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to select versions: %w", err)
	}
	defer rows.Close()

	var result []*models.StorageVersion
	for rows.Next() {
		var v models.StorageVersion
		var keyID sql.NullString
		if err := rows.Scan(&v.ID, &v.ItemID, &v.Number, &v.StorageKey, &v.Size,
			&v.Checksum, &keyID, &v.Nonce, &v.Compressed, &v.Encrypted,
			&v.CreatedBy, &v.Comment, &v.Restorable, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.KeyID = keyID.String
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) CountByItem(ctx context.Context, itemID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM storage_versions WHERE item_id=$1`, itemID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count versions: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM storage_versions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteByItem(ctx context.Context, itemID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM storage_versions WHERE item_id=$1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete versions: %w", err)
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
