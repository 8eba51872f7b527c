package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avolkovs/fieldvault/internal/bytestore"
	"github.com/avolkovs/fieldvault/internal/common"
	"github.com/avolkovs/fieldvault/internal/cryptox"
	"github.com/avolkovs/fieldvault/internal/digest"
	"github.com/avolkovs/fieldvault/internal/keymanager"
	"github.com/avolkovs/fieldvault/internal/logging"
	"github.com/avolkovs/fieldvault/internal/server/models"
	"github.com/avolkovs/fieldvault/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	engine *Engine
	repos  repomanager.Repositories
	blobs  *bytestore.MemoryStore
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	if opts.GrantSecret == "" {
		opts.GrantSecret = "test-grant-secret"
	}
	repos := repomanager.NewMemory()
	blobs := bytestore.NewMemoryStore()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	keys := keymanager.NewRepositoryProvider(repos.Keys)
	return &testEnv{
		engine: NewEngine(repos, blobs, keys, log, opts),
		repos:  repos,
		blobs:  blobs,
	}
}

func (env *testEnv) mustStore(t *testing.T, req StoreRequest) *StoreResult {
	t.Helper()
	res, err := env.engine.StoreFile(context.Background(), req)
	require.NoError(t, err)
	return res
}

func (env *testEnv) newVault(t *testing.T, req *VaultRequest) *models.StorageVault {
	t.Helper()
	vault, err := env.engine.CreateVault(context.Background(), req)
	require.NoError(t, err)
	return vault
}

func compressiblePayload(n int) []byte {
	return bytes.Repeat([]byte("fieldvault "), n/len("fieldvault ")+1)[:n]
}

func TestStoreRetrieveRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
		encrypt  bool
	}{
		{"plain", false, false},
		{"compressed", true, false},
		{"encrypted", false, true},
		{"compressed_encrypted", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, Options{})
			data := compressiblePayload(4096)

			res, err := env.engine.StoreFile(context.Background(), StoreRequest{
				Name:              "report.txt",
				ContentType:       "text/plain",
				Data:              data,
				OwnerID:           "alice",
				Compress:          tt.compress,
				DisableEncryption: !tt.encrypt,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.compress, res.Compressed)
			assert.Equal(t, tt.encrypt, res.Encrypted)
			assert.Equal(t, digest.Sum(data), res.Checksum)

			content, err := env.engine.RetrieveFile(context.Background(), res.ItemID, "alice")
			require.NoError(t, err)
			assert.Equal(t, data, content.Data)
			assert.Equal(t, "report.txt", content.Name)
			assert.Equal(t, "text/plain", content.ContentType)
			assert.Equal(t, int64(len(data)), content.Size)
		})
	}
}

func TestStoreCompressedEncryptedText(t *testing.T) {
	env := newTestEnv(t, Options{})
	data := compressiblePayload(2048)

	res := env.mustStore(t, StoreRequest{
		Name:        "notes.txt",
		ContentType: "text/plain",
		Data:        data,
		OwnerID:     "alice",
		Compress:    true,
	})
	assert.True(t, res.Compressed)
	assert.True(t, res.Encrypted)

	// Stored bytes must differ from the plaintext.
	item, err := env.repos.Items.GetByID(context.Background(), res.ItemID)
	require.NoError(t, err)
	stored, err := env.blobs.Read(context.Background(), item.StorageKey)
	require.NoError(t, err)
	assert.NotEqual(t, data, stored)
	assert.Len(t, item.Nonce, cryptox.NonceSize)

	content, err := env.engine.RetrieveFile(context.Background(), res.ItemID, "alice")
	require.NoError(t, err)
	assert.Equal(t, data, content.Data)
	assert.Equal(t, digest.Sum(data), res.Checksum)
}

func TestStoreBelowThresholdSkipsCompression(t *testing.T) {
	env := newTestEnv(t, Options{})
	res := env.mustStore(t, StoreRequest{
		Name:     "tiny.txt",
		Data:     []byte("small"),
		OwnerID:  "alice",
		Compress: true,
	})
	assert.False(t, res.Compressed)
}

func TestStoreCarriesMetadata(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	res := env.mustStore(t, StoreRequest{
		Name:     "doc",
		Data:     []byte("x"),
		OwnerID:  "alice",
		Metadata: map[string]string{"team": "billing", "origin": "import"},
	})

	item, err := env.repos.Items.GetByID(ctx, res.ItemID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"team": "billing", "origin": "import"}, item.Metadata)

	// Mutating the returned map must not leak into stored state.
	item.Metadata["team"] = "fraud"
	again, err := env.repos.Items.GetByID(ctx, res.ItemID)
	require.NoError(t, err)
	assert.Equal(t, "billing", again.Metadata["team"])
}

func TestStoreRejectsOversizedObject(t *testing.T) {
	env := newTestEnv(t, Options{MaxObjectSize: 1024})
	_, err := env.engine.StoreFile(context.Background(), StoreRequest{
		Name:    "big.bin",
		Data:    make([]byte, 2048),
		OwnerID: "alice",
	})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestStoreFreshNoncePerWrite(t *testing.T) {
	env := newTestEnv(t, Options{})
	data := []byte("same plaintext twice")

	first := env.mustStore(t, StoreRequest{Name: "a", Data: data, OwnerID: "alice"})
	second := env.mustStore(t, StoreRequest{Name: "b", Data: data, OwnerID: "alice"})

	a, err := env.repos.Items.GetByID(context.Background(), first.ItemID)
	require.NoError(t, err)
	b, err := env.repos.Items.GetByID(context.Background(), second.ItemID)
	require.NoError(t, err)
	assert.NotEqual(t, a.Nonce, b.Nonce)
}

func TestRetrieveDeniedWithoutPermission(t *testing.T) {
	env := newTestEnv(t, Options{})
	res := env.mustStore(t, StoreRequest{Name: "secret", Data: []byte("x"), OwnerID: "alice"})

	_, err := env.engine.RetrieveFile(context.Background(), res.ItemID, "mallory")
	assert.ErrorIs(t, err, common.ErrAccessDenied)
}

func TestGrantedPermissionAllowsRead(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	data := []byte("shared content")
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: data, OwnerID: "alice"})

	_, err := env.engine.GrantAccess(ctx, &GrantRequest{
		ItemID:       res.ItemID,
		CallerID:     "alice",
		UserID:       "bob",
		Role:         "viewer",
		Capabilities: models.CapabilitySet{models.CapRead},
	})
	require.NoError(t, err)

	content, err := env.engine.RetrieveFile(ctx, res.ItemID, "bob")
	require.NoError(t, err)
	assert.Equal(t, data, content.Data)

	// Read does not imply delete.
	err = env.engine.DeleteFile(ctx, res.ItemID, "bob", false)
	assert.ErrorIs(t, err, common.ErrAccessDenied)
}

func TestExpiredPermissionTreatedAsAbsent(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("x"), OwnerID: "alice"})

	past := time.Now().Add(-time.Hour)
	err := env.repos.Permissions.Create(ctx, &models.StoragePermission{
		ID:           "perm-1",
		ItemID:       res.ItemID,
		UserID:       "bob",
		Capabilities: models.CapabilitySet{models.CapRead},
		GrantedBy:    "alice",
		GrantedAt:    past.Add(-time.Hour),
		ExpiresAt:    &past,
	})
	require.NoError(t, err)

	_, err = env.engine.RetrieveFile(ctx, res.ItemID, "bob")
	assert.ErrorIs(t, err, common.ErrAccessDenied)
}

func TestRevokeAccess(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("x"), OwnerID: "alice"})

	_, err := env.engine.GrantAccess(ctx, &GrantRequest{
		ItemID:       res.ItemID,
		CallerID:     "alice",
		UserID:       "bob",
		Capabilities: models.CapabilitySet{models.CapRead},
	})
	require.NoError(t, err)

	require.NoError(t, env.engine.RevokeAccess(ctx, res.ItemID, "bob", "alice"))
	_, err = env.engine.RetrieveFile(ctx, res.ItemID, "bob")
	assert.ErrorIs(t, err, common.ErrAccessDenied)

	err = env.engine.RevokeAccess(ctx, res.ItemID, "alice", "alice")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestRetrieveRecordsAccess(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("x"), OwnerID: "alice"})

	for i := 0; i < 3; i++ {
		_, err := env.engine.RetrieveFile(ctx, res.ItemID, "alice")
		require.NoError(t, err)
	}

	item, err := env.repos.Items.GetByID(ctx, res.ItemID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), item.AccessCount)
	require.NotNil(t, item.LastAccessed)
}

func TestCorruptedCiphertextReturnsNoBytes(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("sensitive"), OwnerID: "alice"})

	item, err := env.repos.Items.GetByID(ctx, res.ItemID)
	require.NoError(t, err)
	require.True(t, env.blobs.Corrupt(item.StorageKey))

	content, err := env.engine.RetrieveFile(ctx, res.ItemID, "alice")
	assert.ErrorIs(t, err, common.ErrCrypto)
	assert.Nil(t, content)
}

func TestCorruptedPlainContentFlagsItem(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{
		Name: "doc", Data: []byte("plain bytes"), OwnerID: "alice",
		DisableEncryption: true,
	})

	item, err := env.repos.Items.GetByID(ctx, res.ItemID)
	require.NoError(t, err)
	require.True(t, env.blobs.Corrupt(item.StorageKey))

	content, err := env.engine.RetrieveFile(ctx, res.ItemID, "alice")
	assert.ErrorIs(t, err, common.ErrIntegrity)
	assert.Nil(t, content)

	item, err = env.repos.Items.GetByID(ctx, res.ItemID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCorrupted, item.Status)
}

func TestMissingBytesFlagsCorrupted(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("x"), OwnerID: "alice"})

	item, err := env.repos.Items.GetByID(ctx, res.ItemID)
	require.NoError(t, err)
	require.NoError(t, env.blobs.Delete(ctx, item.StorageKey))

	_, err = env.engine.RetrieveFile(ctx, res.ItemID, "alice")
	assert.ErrorIs(t, err, common.ErrIntegrity)

	item, err = env.repos.Items.GetByID(ctx, res.ItemID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCorrupted, item.Status)
}

func TestSoftDeleteAndUndelete(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	data := []byte("recoverable")
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: data, OwnerID: "alice"})

	require.NoError(t, env.engine.DeleteFile(ctx, res.ItemID, "alice", false))
	// Idempotent.
	require.NoError(t, env.engine.DeleteFile(ctx, res.ItemID, "alice", false))

	_, err := env.engine.RetrieveFile(ctx, res.ItemID, "alice")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, env.engine.UndeleteFile(ctx, res.ItemID, "alice"))
	content, err := env.engine.RetrieveFile(ctx, res.ItemID, "alice")
	require.NoError(t, err)
	assert.Equal(t, data, content.Data)
}

func TestPermanentDeleteRemovesEverything(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: compressiblePayload(2048), OwnerID: "alice"})

	for i := 0; i < 3; i++ {
		_, err := env.engine.CreateFileVersion(ctx, res.ItemID, compressiblePayload(2048+i), "alice", "rev")
		require.NoError(t, err)
	}
	_, err := env.engine.CreateShareLink(ctx, &ShareRequest{ItemID: res.ItemID, CallerID: "alice"})
	require.NoError(t, err)

	require.NoError(t, env.engine.DeleteFile(ctx, res.ItemID, "alice", true))

	assert.Zero(t, env.blobs.Len(), "all byte stores must be removed")
	_, err = env.repos.Items.GetByID(ctx, res.ItemID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	versions, err := env.repos.Versions.ListByItem(ctx, res.ItemID)
	require.NoError(t, err)
	assert.Empty(t, versions)
	links, err := env.repos.ShareLinks.ListByItem(ctx, res.ItemID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestVersioningCapsHistory(t *testing.T) {
	env := newTestEnv(t, Options{DefaultMaxVersions: 10})
	ctx := context.Background()

	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("content v0"), OwnerID: "alice"})

	for i := 1; i <= 11; i++ {
		vr, err := env.engine.CreateFileVersion(ctx, res.ItemID,
			[]byte(fmt.Sprintf("content v%d", i)), "alice", fmt.Sprintf("rev %d", i))
		require.NoError(t, err)
		assert.Equal(t, i, vr.Number)
		if i <= 10 {
			assert.Equal(t, i, vr.Retained)
		} else {
			assert.Equal(t, 10, vr.Retained)
		}
	}

	versions, err := env.repos.Versions.ListByItem(ctx, res.ItemID)
	require.NoError(t, err)
	require.Len(t, versions, 10)
	assert.Equal(t, 2, versions[0].Number, "oldest version must be evicted")

	item, err := env.repos.Items.GetByID(ctx, res.ItemID)
	require.NoError(t, err)
	assert.False(t, env.blobs.Exists(item.StorageKey+"_v1"), "evicted version bytes must be deleted")
	assert.True(t, env.blobs.Exists(item.StorageKey+"_v2"))

	content, err := env.engine.RetrieveFile(ctx, res.ItemID, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("content v11"), content.Data)
}

func TestVersionRequiresWrite(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("x"), OwnerID: "alice"})

	_, err := env.engine.CreateFileVersion(ctx, res.ItemID, []byte("y"), "bob", "")
	assert.ErrorIs(t, err, common.ErrAccessDenied)
}

func TestRestoreVersion(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	original := []byte("original content")

	res := env.mustStore(t, StoreRequest{Name: "doc", Data: original, OwnerID: "alice"})
	_, err := env.engine.CreateFileVersion(ctx, res.ItemID, []byte("newer content"), "alice", "edit")
	require.NoError(t, err)

	// Version 1 holds the original.
	restored, err := env.engine.RestoreFileVersion(ctx, res.ItemID, 1, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, restored)

	content, err := env.engine.RetrieveFile(ctx, res.ItemID, "alice")
	require.NoError(t, err)
	assert.Equal(t, original, content.Data)

	// The restore snapshotted the pre-restore state.
	versions, err := env.repos.Versions.ListByItem(ctx, res.ItemID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "backup before restore", versions[1].Comment)

	_, err = env.engine.RestoreFileVersion(ctx, res.ItemID, 99, "alice")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestVersionWriteUpdatesPipelineFlags(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	res := env.mustStore(t, StoreRequest{
		Name: "doc", Data: compressiblePayload(2048), OwnerID: "alice", Compress: true,
	})
	require.True(t, res.Compressed)

	// The replacement is below the compression threshold, so the item's
	// flags must follow the new bytes, not the previous write.
	_, err := env.engine.CreateFileVersion(ctx, res.ItemID, []byte("tiny"), "alice", "shrink")
	require.NoError(t, err)

	item, err := env.repos.Items.GetByID(ctx, res.ItemID)
	require.NoError(t, err)
	assert.False(t, item.Compressed)

	content, err := env.engine.RetrieveFile(ctx, res.ItemID, "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("tiny"), content.Data)
}

func TestRestoreVersionAfterCompression(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	original := compressiblePayload(8192)

	res := env.mustStore(t, StoreRequest{Name: "doc", Data: original, OwnerID: "alice"})
	require.False(t, res.Compressed)

	_, err := env.engine.CreateFileVersion(ctx, res.ItemID, compressiblePayload(4096), "alice", "edit")
	require.NoError(t, err)
	require.NoError(t, env.engine.CompressFile(ctx, res.ItemID, "alice"))

	// Version 1 was stored uncompressed; restoring it must bring back
	// its pipeline state along with the bytes.
	_, err = env.engine.RestoreFileVersion(ctx, res.ItemID, 1, "alice")
	require.NoError(t, err)

	item, err := env.repos.Items.GetByID(ctx, res.ItemID)
	require.NoError(t, err)
	assert.False(t, item.Compressed)

	content, err := env.engine.RetrieveFile(ctx, res.ItemID, "alice")
	require.NoError(t, err)
	assert.Equal(t, original, content.Data)
}

func TestConcurrentVersionWrites(t *testing.T) {
	env := newTestEnv(t, Options{DefaultMaxVersions: 100})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("v0"), OwnerID: "alice"})

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.engine.CreateFileVersion(ctx, res.ItemID, compressiblePayload(128+i), "alice", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	versions, err := env.repos.Versions.ListByItem(ctx, res.ItemID)
	require.NoError(t, err)
	require.Len(t, versions, writers)
	for i, v := range versions {
		assert.Equal(t, i+1, v.Number, "version numbers must be dense and unique")
	}
}

func TestVaultVersionBound(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	vault := env.newVault(t, &VaultRequest{
		OwnerID:           "alice",
		Name:              "projects",
		VersioningEnabled: true,
		MaxVersions:       2,
	})

	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("v0"), OwnerID: "alice", VaultID: vault.ID})
	for i := 1; i <= 4; i++ {
		_, err := env.engine.CreateFileVersion(ctx, res.ItemID, []byte(fmt.Sprintf("v%d", i)), "alice", "")
		require.NoError(t, err)
	}

	versions, err := env.repos.Versions.ListByItem(ctx, res.ItemID)
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestVersioningDisabledVault(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	vault := env.newVault(t, &VaultRequest{OwnerID: "alice", Name: "flat"})

	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("v0"), OwnerID: "alice", VaultID: vault.ID})
	_, err := env.engine.CreateFileVersion(ctx, res.ItemID, []byte("v1"), "alice", "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestVaultCapacityEnforced(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	vault := env.newVault(t, &VaultRequest{OwnerID: "alice", Name: "small", CapacityLimit: 100})

	res := env.mustStore(t, StoreRequest{Name: "a", Data: make([]byte, 60), OwnerID: "alice", VaultID: vault.ID})

	_, err := env.engine.StoreFile(ctx, StoreRequest{
		Name: "b", Data: make([]byte, 60), OwnerID: "alice", VaultID: vault.ID,
	})
	assert.ErrorIs(t, err, common.ErrCapacity)

	// Permanent delete releases the charged capacity.
	require.NoError(t, env.engine.DeleteFile(ctx, res.ItemID, "alice", true))
	v, err := env.repos.Vaults.GetByID(ctx, vault.ID)
	require.NoError(t, err)
	assert.Zero(t, v.CapacityUsed)

	_, err = env.engine.StoreFile(ctx, StoreRequest{
		Name: "b", Data: make([]byte, 60), OwnerID: "alice", VaultID: vault.ID,
	})
	require.NoError(t, err)
}

func TestVaultCompressByDefault(t *testing.T) {
	env := newTestEnv(t, Options{})
	vault := env.newVault(t, &VaultRequest{OwnerID: "alice", Name: "docs", CompressByDefault: true})

	res := env.mustStore(t, StoreRequest{
		Name: "doc", Data: compressiblePayload(4096), OwnerID: "alice", VaultID: vault.ID,
	})
	assert.True(t, res.Compressed)
}

func TestShareLinkRoundTrip(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	data := compressiblePayload(2048)
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: data, OwnerID: "alice", Compress: true})

	share, err := env.engine.CreateShareLink(ctx, &ShareRequest{ItemID: res.ItemID, CallerID: "alice"})
	require.NoError(t, err)
	assert.Len(t, share.Token, 64)
	assert.Equal(t, "/share/"+share.Token, share.URL)

	redeemed, err := env.engine.RedeemShareLink(ctx, share.Token, "")
	require.NoError(t, err)
	assert.Equal(t, res.ItemID, redeemed.ItemID)

	content, err := env.engine.RetrieveByGrant(ctx, redeemed.Grant)
	require.NoError(t, err)
	assert.Equal(t, data, content.Data)
}

func TestShareLinkRequiresShareCapability(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("x"), OwnerID: "alice"})

	_, err := env.engine.CreateShareLink(ctx, &ShareRequest{ItemID: res.ItemID, CallerID: "bob"})
	assert.ErrorIs(t, err, common.ErrAccessDenied)
}

func TestShareLinkExpiry(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("x"), OwnerID: "alice"})

	expires := time.Now().Add(50 * time.Millisecond)
	share, err := env.engine.CreateShareLink(ctx, &ShareRequest{
		ItemID: res.ItemID, CallerID: "alice", ExpiresAt: &expires,
	})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	_, err = env.engine.RedeemShareLink(ctx, share.Token, "")
	assert.ErrorIs(t, err, common.ErrAccessDenied)
}

func TestShareLinkPassword(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("x"), OwnerID: "alice"})

	share, err := env.engine.CreateShareLink(ctx, &ShareRequest{
		ItemID: res.ItemID, CallerID: "alice", Password: "s3cret",
	})
	require.NoError(t, err)

	_, err = env.engine.RedeemShareLink(ctx, share.Token, "wrong")
	assert.ErrorIs(t, err, common.ErrAccessDenied)

	_, err = env.engine.RedeemShareLink(ctx, share.Token, "s3cret")
	require.NoError(t, err)
}

func TestShareLinkUnknownToken(t *testing.T) {
	env := newTestEnv(t, Options{})
	_, err := env.engine.RedeemShareLink(context.Background(), strings.Repeat("ab", 32), "")
	assert.ErrorIs(t, err, common.ErrAccessDenied)
}

func TestShareLinkUsageCapUnderConcurrency(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("x"), OwnerID: "alice"})

	share, err := env.engine.CreateShareLink(ctx, &ShareRequest{
		ItemID: res.ItemID, CallerID: "alice", MaxAccess: 1,
	})
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	successes := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.engine.RedeemShareLink(ctx, share.Token, ""); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	assert.Equal(t, 1, len(successes), "a one-use link must be redeemable exactly once")
}

func TestShareLinkInactiveItemKeepsUsageCap(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("x"), OwnerID: "alice"})

	share, err := env.engine.CreateShareLink(ctx, &ShareRequest{
		ItemID: res.ItemID, CallerID: "alice", MaxAccess: 1,
	})
	require.NoError(t, err)

	require.NoError(t, env.engine.DeleteFile(ctx, res.ItemID, "alice", false))
	_, err = env.engine.RedeemShareLink(ctx, share.Token, "")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// The failed redemption must not consume the single allowed use.
	require.NoError(t, env.engine.UndeleteFile(ctx, res.ItemID, "alice"))
	_, err = env.engine.RedeemShareLink(ctx, share.Token, "")
	require.NoError(t, err)
}

func TestInvalidGrantRejected(t *testing.T) {
	env := newTestEnv(t, Options{})
	_, err := env.engine.RetrieveByGrant(context.Background(), "not-a-grant")
	assert.ErrorIs(t, err, common.ErrInvalidGrant)
}

func TestArchiveExcludesFromRetrieval(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: []byte("x"), OwnerID: "alice"})

	require.NoError(t, env.engine.ArchiveFile(ctx, res.ItemID, "alice"))
	_, err := env.engine.RetrieveFile(ctx, res.ItemID, "alice")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Archive of an archived item is a validation error, not a no-op.
	err = env.engine.ArchiveFile(ctx, res.ItemID, "alice")
	assert.ErrorIs(t, err, common.ErrValidation)

	require.NoError(t, env.engine.UnarchiveFile(ctx, res.ItemID, "alice"))
	_, err = env.engine.RetrieveFile(ctx, res.ItemID, "alice")
	require.NoError(t, err)
}

func TestCompressFileRewritesStoredBytes(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	data := compressiblePayload(8192)
	res := env.mustStore(t, StoreRequest{Name: "doc", Data: data, OwnerID: "alice"})
	require.False(t, res.Compressed)

	require.NoError(t, env.engine.CompressFile(ctx, res.ItemID, "alice"))

	item, err := env.repos.Items.GetByID(ctx, res.ItemID)
	require.NoError(t, err)
	assert.True(t, item.Compressed)

	content, err := env.engine.RetrieveFile(ctx, res.ItemID, "alice")
	require.NoError(t, err)
	assert.Equal(t, data, content.Data)
}

func TestStorageAnalytics(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	small := env.mustStore(t, StoreRequest{Name: "small.txt", ContentType: "text/plain", Data: compressiblePayload(2048), OwnerID: "alice", Compress: true})
	env.mustStore(t, StoreRequest{Name: "img.png", ContentType: "image/png", Data: make([]byte, 2<<20), OwnerID: "alice"})
	env.mustStore(t, StoreRequest{Name: "other", Data: []byte("not alice's"), OwnerID: "bob"})

	_, err := env.engine.RetrieveFile(ctx, small.ItemID, "alice")
	require.NoError(t, err)
	_, err = env.engine.CreateShareLink(ctx, &ShareRequest{ItemID: small.ItemID, CallerID: "alice"})
	require.NoError(t, err)

	report, err := env.engine.StorageAnalytics(ctx, "alice", "")
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalItems)
	assert.Equal(t, int64(2048+(2<<20)), report.TotalBytes)
	assert.Equal(t, 1, report.ByContentType["text/plain"])
	assert.Equal(t, 1, report.ByContentType["image/png"])
	assert.Equal(t, 1, report.SizeBuckets["<1MiB"])
	assert.Equal(t, 1, report.SizeBuckets["1-10MiB"])
	assert.Equal(t, 1, report.NeverAccessed)
	assert.Equal(t, 2, report.Encrypted)
	assert.Equal(t, 1, report.Compressed)
	assert.Equal(t, 1, report.Shared)
	require.NotEmpty(t, report.TopAccessed)
	assert.Equal(t, small.ItemID, report.TopAccessed[0].ID)
}

func TestStorageAnalyticsVaultScope(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	vault := env.newVault(t, &VaultRequest{OwnerID: "alice", Name: "scoped"})

	env.mustStore(t, StoreRequest{Name: "in", Data: []byte("x"), OwnerID: "alice", VaultID: vault.ID})
	env.mustStore(t, StoreRequest{Name: "out", Data: []byte("y"), OwnerID: "alice"})

	report, err := env.engine.StorageAnalytics(ctx, "alice", vault.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalItems)

	_, err = env.engine.StorageAnalytics(ctx, "bob", vault.ID)
	assert.ErrorIs(t, err, common.ErrAccessDenied)
}
