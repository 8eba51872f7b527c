package items

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/dbx"
	"github.com/avolkovs/fieldvault/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const itemColumns = `id, owner_id, vault_id, name, content_type, metadata, size,
	storage_key, key_id, algorithm, nonce, compressed, encrypted, checksum,
	status, access_count, last_accessed, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, item *models.StorageItem) error {
	query := `
		INSERT INTO storage_items (` + itemColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19);
	`
	metadata, err := marshalMetadata(item.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query,
		item.ID, item.OwnerID, nullStr(item.VaultID), item.Name, item.ContentType, metadata, item.Size,
		item.StorageKey, nullStr(item.KeyID), item.Algorithm, item.Nonce,
		item.Compressed, item.Encrypted, item.Checksum,
		string(item.Status), item.AccessCount, item.LastAccessed, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.StorageItem, error) {
	query := `SELECT ` + itemColumns + ` FROM storage_items WHERE id=$1`
	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return item, err
}

func (r *PostgresRepository) Update(ctx context.Context, item *models.StorageItem) error {
	query := `
		UPDATE storage_items SET
			name=$2, content_type=$3, metadata=$4, size=$5, storage_key=$6,
			key_id=$7, nonce=$8, compressed=$9, encrypted=$10, checksum=$11,
			status=$12, updated_at=now()
		WHERE id=$1;
	`
	metadata, err := marshalMetadata(item.Metadata)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query,
		item.ID, item.Name, item.ContentType, metadata, item.Size, item.StorageKey,
		nullStr(item.KeyID), item.Nonce, item.Compressed, item.Encrypted,
		item.Checksum, string(item.Status))
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return oneRow(res)
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status models.ItemStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE storage_items SET status=$2, updated_at=now() WHERE id=$1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return oneRow(res)
}

func (r *PostgresRepository) RecordAccess(ctx context.Context, id string) error {
	// Single statement so the counter stays correct under concurrent reads.
	res, err := r.db.ExecContext(ctx,
		`UPDATE storage_items SET access_count=access_count+1, last_accessed=now() WHERE id=$1`,
		id)
	if err != nil {
		return fmt.Errorf("failed to record access: %w", err)
	}
	return oneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM storage_items WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return oneRow(res)
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string, status models.ItemStatus) ([]*models.StorageItem, error) {
	query := `SELECT ` + itemColumns + ` FROM storage_items WHERE owner_id=$1 AND status=$2 ORDER BY created_at`
	return r.list(ctx, query, ownerID, string(status))
}

func (r *PostgresRepository) ListByVault(ctx context.Context, vaultID string, status models.ItemStatus) ([]*models.StorageItem, error) {
	query := `SELECT ` + itemColumns + ` FROM storage_items WHERE vault_id=$1 AND status=$2 ORDER BY created_at`
	return r.list(ctx, query, vaultID, string(status))
}

func (r *PostgresRepository) ListByStatus(ctx context.Context, status models.ItemStatus) ([]*models.StorageItem, error) {
	query := `SELECT ` + itemColumns + ` FROM storage_items WHERE status=$1 ORDER BY created_at`
	return r.list(ctx, query, string(status))
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.StorageItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	var result []*models.StorageItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.StorageItem, error) {
	var item models.StorageItem
	var vaultID, keyID sql.NullString
	var metadata []byte
	var status string
	var lastAccessed sql.NullTime
	if err := row.Scan(&item.ID, &item.OwnerID, &vaultID, &item.Name, &item.ContentType,
		&metadata, &item.Size, &item.StorageKey, &keyID, &item.Algorithm, &item.Nonce,
		&item.Compressed, &item.Encrypted, &item.Checksum, &status,
		&item.AccessCount, &lastAccessed, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.VaultID = vaultID.String
	item.KeyID = keyID.String
	item.Status = models.ItemStatus(status)
	if lastAccessed.Valid {
		item.LastAccessed = &lastAccessed.Time
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode item metadata: %w", err)
		}
	}
	return &item, nil
}

func marshalMetadata(m map[string]string) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item metadata: %w", err)
	}
	return b, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
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
