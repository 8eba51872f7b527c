// Package keys persists EncryptionKey records. Durable storage here is
// what keeps previously encrypted objects readable across restarts.
package keys

import (
	"context"

	"github.com/avolkovs/fieldvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, k *models.EncryptionKey) error
	GetByID(ctx context.Context, id string) (*models.EncryptionKey, error)
	// Touch stamps the key's last-used time.
	Touch(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status models.KeyStatus) error
	Delete(ctx context.Context, id string) error
}
