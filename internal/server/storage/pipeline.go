package storage

import (
	"context"
	"fmt"

	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/compressx"
	"github.com/avolkovs/fieldvault/internal/cryptox"
	"github.com/avolkovs/fieldvault/internal/digest"
	"github.com/avolkovs/fieldvault/internal/server/models"
)

// payload is the outcome of running bytes through the write pipeline:
// compress (optional) then encrypt (optional). The checksum of the
// original bytes is computed by the caller before the pipeline runs.
type payload struct {
	data       []byte
	compressed bool
	encrypted  bool
	keyID      string
	nonce      []byte
}

// seal transforms plaintext for storage. With compress set, payloads above
// the threshold are compressed first. With encrypt set, a key is resolved
// (reused via keyID, or freshly minted when keyID is empty) and the bytes
// are sealed under a nonce generated for this write only.
func (e *Engine) seal(ctx context.Context, data []byte, compress, encrypt bool, keyID string) (*payload, error) {
	p := &payload{data: data}

	if compress && int64(len(data)) > e.compressionThreshold {
		p.data = compressx.Compress(p.data)
		p.compressed = true
	}

	if encrypt {
		var key *models.EncryptionKey
		var err error
		if keyID == "" {
			key, err = e.keys.Mint(ctx)
		} else {
			key, err = e.keys.Lookup(ctx, keyID)
		}
		if err != nil {
			return nil, err
		}

		ciphertext, nonce, err := cryptox.Encrypt(p.data, key.Material)
		if err != nil {
			e.log.Error(ctx, "encryption failed", "err", err)
			return nil, common.ErrCrypto
		}
		cryptox.WipeBytes(key.Material)

		p.data = ciphertext
		p.nonce = nonce
		p.keyID = key.ID
		p.encrypted = true
	}

	return p, nil
}

// open reverses seal for an item's stored bytes and verifies the content
// checksum. No plaintext leaves this function on any failure.
func (e *Engine) open(ctx context.Context, item *models.StorageItem, raw []byte) ([]byte, error) {
	data := raw

	if item.Encrypted {
		key, err := e.keys.Lookup(ctx, item.KeyID)
		if err != nil {
			return nil, err
		}
		plaintext, err := cryptox.Decrypt(data, item.Nonce, key.Material)
		cryptox.WipeBytes(key.Material)
		if err != nil {
			e.log.Error(ctx, "authenticated decryption failed", "item", item.ID, "err", err)
			return nil, common.ErrCrypto
		}
		data = plaintext
	}

	if item.Compressed {
		decompressed, err := compressx.Decompress(data)
		if err != nil {
			e.log.Error(ctx, "decompression failed", "item", item.ID, "err", err)
			return nil, common.ErrIntegrity
		}
		data = decompressed
	}

	if !digest.Verify(data, item.Checksum) {
		e.log.Error(ctx, "checksum mismatch", "item", item.ID)
		return nil, fmt.Errorf("%w: checksum mismatch", common.ErrIntegrity)
	}

	return data, nil
}
