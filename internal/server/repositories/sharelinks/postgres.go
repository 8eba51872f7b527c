package sharelinks

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

func (r *PostgresRepository) Create(ctx context.Context, l *models.ShareLink) error {
	query := `
		INSERT INTO share_links
			(id, item_id, token, capabilities, expires_at, max_access, access_count, password_hash, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);
	`
	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.ItemID, l.Token, l.Capabilities.String(), l.ExpiresAt,
		l.MaxAccess, l.AccessCount, l.PasswordHash, l.CreatedBy, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert share link: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	query := `
		SELECT id, item_id, token, capabilities, expires_at, max_access, access_count, password_hash, created_by, created_at
		FROM share_links WHERE token=$1
	`
	l, err := scanLink(r.db.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return l, err
}

// Redeem increments access_count in a single conditional statement. Zero
// affected rows means the link either does not exist or its cap is spent;
// the caller distinguishes the two with a follow-up GetByToken.
func (r *PostgresRepository) Redeem(ctx context.Context, token string) error {
	query := `
		UPDATE share_links SET access_count=access_count+1
		WHERE token=$1 AND (max_access=0 OR access_count<max_access);
	`
	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("failed to redeem share link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrAccessDenied
	}
	return nil
}

func (r *PostgresRepository) ListByItem(ctx context.Context, itemID string) ([]*models.ShareLink, error) {
	query := `
		SELECT id, item_id, token, capabilities, expires_at, max_access, access_count, password_hash, created_by, created_at
		FROM share_links WHERE item_id=$1 ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to select share links: %w", err)
	}
	defer rows.Close()

	var result []*models.ShareLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) SharedItemIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT item_id FROM share_links`)
	if err != nil {
		return nil, fmt.Errorf("failed to select shared item ids: %w", err)
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM share_links WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete share link: %w", err)
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
	_, err := r.db.ExecContext(ctx, `DELETE FROM share_links WHERE item_id=$1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete share links: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*models.ShareLink, error) {
	var l models.ShareLink
	var caps string
	var expires sql.NullTime
	if err := row.Scan(&l.ID, &l.ItemID, &l.Token, &caps, &expires,
		&l.MaxAccess, &l.AccessCount, &l.PasswordHash, &l.CreatedBy, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Capabilities = models.ParseCapabilitySet(caps)
	if expires.Valid {
		l.ExpiresAt = &expires.Time
	}
	return &l, nil
}
