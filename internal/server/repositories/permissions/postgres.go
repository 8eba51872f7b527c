package permissions

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

func (r *PostgresRepository) Create(ctx context.Context, p *models.StoragePermission) error {
	query := `
		INSERT INTO storage_permissions
			(id, item_id, user_id, role, capabilities, granted_by, granted_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8);
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.ItemID, p.UserID, p.Role, p.Capabilities.String(),
		p.GrantedBy, p.GrantedAt, p.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert permission: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetForUser(ctx context.Context, itemID, userID string) (*models.StoragePermission, error) {
	query := `
		SELECT id, item_id, user_id, role, capabilities, granted_by, granted_at, expires_at
		FROM storage_permissions WHERE item_id=$1 AND user_id=$2
	`
	p, err := scanPermission(r.db.QueryRowContext(ctx, query, itemID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) ListByItem(ctx context.Context, itemID string) ([]*models.StoragePermission, error) {
	query := `
		SELECT id, item_id, user_id, role, capabilities, granted_by, granted_at, expires_at
		FROM storage_permissions WHERE item_id=$1 ORDER BY granted_at
	`
	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to select permissions: %w", err)
	}
	defer rows.Close()

	var result []*models.StoragePermission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM storage_permissions WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
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
	_, err := r.db.ExecContext(ctx, `DELETE FROM storage_permissions WHERE item_id=$1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete permissions: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPermission(row rowScanner) (*models.StoragePermission, error) {
	var p models.StoragePermission
	var caps string
	var expires sql.NullTime
	if err := row.Scan(&p.ID, &p.ItemID, &p.UserID, &p.Role, &caps,
		&p.GrantedBy, &p.GrantedAt, &expires); err != nil {
		return nil, err
	}
	p.Capabilities = models.ParseCapabilitySet(caps)
	if expires.Valid {
		p.ExpiresAt = &expires.Time
	}
	return &p, nil
}
