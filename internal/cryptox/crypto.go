// Package cryptox implements the authenticated encryption primitives used
// by the storage engine: AES-256-GCM sealing of byte streams with a fresh
// random nonce per operation, random key/token generation, and argon2id
// password verifiers for share links.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// NonceSize is the standard GCM nonce length in bytes.
	NonceSize = 12

	saltSize = 16
)

// argon2id parameters for share-link password verifiers.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// GenerateKey returns fresh random AES-256 key material.
func GenerateKey() ([]byte, error) {
	return randBytes(KeySize)
}

// Encrypt seals plaintext with AES-256-GCM under key. A new random 12-byte
// nonce is generated for every call; reusing a nonce with the same key
// breaks GCM, so the nonce is returned to be persisted alongside the
// object, never alongside the key. The authentication tag is appended to
// the ciphertext by Seal.
func Encrypt(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	nonce, err = randBytes(NonceSize)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt opens ciphertext produced by Encrypt. The trailing authentication
// tag is verified before any plaintext is returned; tampering with a single
// ciphertext byte makes this fail.
func Decrypt(ciphertext, nonce, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// MakeRandHexString generates a random hexadecimal string from size random
// bytes. The resulting string is twice size characters long. Used for
// share-link tokens, which must not be guessable from sequential or
// timestamp-derived values.
func MakeRandHexString(size int) (string, error) {
	b, err := randBytes(size)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashPassword returns an argon2id verifier for password in the form
// "<salt-hex>$<hash-hex>" with a per-verifier random salt.
func HashPassword(password string) (string, error) {
	salt, err := randBytes(saltSize)
	if err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

// VerifyPassword reports whether password matches a verifier produced by
// HashPassword.
func VerifyPassword(password, verifier string) bool {
	parts := strings.SplitN(verifier, "$", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtleEqual(got, want)
}

func subtleEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}

// WipeBytes overwrites the contents of b with zeros. Useful for removing
// key material from memory after use. A nil slice is a no-op.
func WipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func randBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("rand: %w", err)
	}
	return b, nil
}
