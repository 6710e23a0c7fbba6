// Package crypto provides the cryptographic primitives for the memvault
// secure store: PBKDF2 key derivation, AES-256-GCM authenticated encryption,
// keyed identifier hashing, and content hashing for deduplication.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived key size in bytes (AES-256).
	KeySize = 32

	// NonceSize is the GCM nonce size in bytes.
	NonceSize = 16

	// TagSize is the GCM authentication tag size in bytes.
	TagSize = 16

	// DefaultIterations is the default PBKDF2 iteration count.
	DefaultIterations = 100000

	// ContentHashLen is the hex length of the truncated content hash.
	// Collisions are an acceptable dedup risk, not a security boundary.
	ContentHashLen = 16

	// UserHashPrefixLen is the hex length of the reduced user hash used
	// in audit records.
	UserHashPrefixLen = 16
)

// ErrDecryptionFailed indicates the ciphertext could not be authenticated.
// Callers must treat it as fail-closed: no plaintext is ever returned with it.
var ErrDecryptionFailed = errors.New("crypto: decryption failed")

// DeriveKey derives a 256-bit key from the master key and installation salt
// using PBKDF2-SHA512. The returned buffer must be wiped with Zeroize when
// the caller is done with it; keys are never cached.
func DeriveKey(masterKey string, salt []byte, iterations int) []byte {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return pbkdf2.Key([]byte(masterKey), salt, iterations, KeySize, sha512.New)
}

// Zeroize overwrites the buffer with zero bytes.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Encrypt seals the plaintext with AES-256-GCM under a fresh random nonce.
// The ciphertext, nonce, and authentication tag are returned separately so
// the stored record keeps them as distinct fields.
func Encrypt(key, plaintext []byte) (ciphertext, nonce, tag []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, nil, err
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, nil, fmt.Errorf("crypto: nonce generation: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ciphertext = sealed[:len(sealed)-TagSize]
	tag = sealed[len(sealed)-TagSize:]
	return ciphertext, nonce, tag, nil
}

// Decrypt opens ciphertext sealed by Encrypt. Any authentication failure,
// including a tampered tag or wrong key, yields ErrDecryptionFailed with no
// plaintext.
func Decrypt(key, ciphertext, nonce, tag []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, ErrDecryptionFailed
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// HashUserID reduces a raw user identifier to a keyed one-way hash. The
// persisted table only ever contains this hash, never the raw identifier.
func HashUserID(userID string, salt []byte) string {
	mac := hmac.New(sha256.New, salt)
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// UserHashPrefix reduces a user hash to the short prefix recorded in audit
// entries.
func UserHashPrefix(userHash string) string {
	if len(userHash) <= UserHashPrefixLen {
		return userHash
	}
	return userHash[:UserHashPrefixLen]
}

// ContentHash computes the salted, truncated digest of plaintext content
// used for deduplication. It is computed pre-encryption so identical content
// always collides regardless of nonce randomness.
func ContentHash(plaintext, salt []byte) string {
	h := sha256.New()
	h.Write(salt)
	h.Write(plaintext)
	return hex.EncodeToString(h.Sum(nil))[:ContentHashLen]
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypto: invalid key size %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: cipher init: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("crypto: gcm init: %w", err)
	}
	return aead, nil
}
