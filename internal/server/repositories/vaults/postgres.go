package vaults

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

const vaultColumns = `id, owner_id, name, capacity_limit, capacity_used, warning_threshold,
	auto_archive, compress_by_default, deduplicate, versioning_enabled, max_versions,
	created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, v *models.StorageVault) error {
	query := `
		INSERT INTO storage_vaults (` + vaultColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);
	`
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.OwnerID, v.Name, v.CapacityLimit, v.CapacityUsed, v.WarningThreshold,
		v.AutoArchive, v.CompressByDefault, v.Deduplicate, v.VersioningEnabled,
		v.MaxVersions, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert vault: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.StorageVault, error) {
	query := `SELECT ` + vaultColumns + ` FROM storage_vaults WHERE id=$1`
	var v models.StorageVault
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.OwnerID, &v.Name, &v.CapacityLimit, &v.CapacityUsed, &v.WarningThreshold,
		&v.AutoArchive, &v.CompressByDefault, &v.Deduplicate, &v.VersioningEnabled,
		&v.MaxVersions, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select vault: %w", err)
	}
	return &v, nil
}

// AddUsed is a single conditional UPDATE so that concurrent store/delete
// operations against the same vault never lose a delta and never exceed
// the quota.
func (r *PostgresRepository) AddUsed(ctx context.Context, id string, delta int64) error {
	query := `
		UPDATE storage_vaults
		SET capacity_used = GREATEST(capacity_used + $2, 0), updated_at = now()
		WHERE id=$1 AND ($2 <= 0 OR capacity_limit = 0 OR capacity_used + $2 <= capacity_limit);
	`
	res, err := r.db.ExecContext(ctx, query, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust vault usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		// Either the vault is missing or the quota would be exceeded.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return common.ErrCapacity
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, v *models.StorageVault) error {
	query := `
		UPDATE storage_vaults SET
			name=$2, capacity_limit=$3, warning_threshold=$4, auto_archive=$5,
			compress_by_default=$6, deduplicate=$7, versioning_enabled=$8,
			max_versions=$9, updated_at=now()
		WHERE id=$1;
	`
	res, err := r.db.ExecContext(ctx, query,
		v.ID, v.Name, v.CapacityLimit, v.WarningThreshold, v.AutoArchive,
		v.CompressByDefault, v.Deduplicate, v.VersioningEnabled, v.MaxVersions)
	if err != nil {
		return fmt.Errorf("failed to update vault: %w", err)
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

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.StorageVault, error) {
	query := `SELECT ` + vaultColumns + ` FROM storage_vaults WHERE owner_id=$1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select vaults: %w", err)
	}
	defer rows.Close()

	var result []*models.StorageVault
	for rows.Next() {
		var v models.StorageVault
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.Name, &v.CapacityLimit, &v.CapacityUsed,
			&v.WarningThreshold, &v.AutoArchive, &v.CompressByDefault, &v.Deduplicate,
			&v.VersioningEnabled, &v.MaxVersions, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM storage_vaults WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vault: %w", err)
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
