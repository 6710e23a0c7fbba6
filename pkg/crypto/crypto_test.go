package crypto

import (
	"bytes"
	"errors"
	"testing"
)

// Test iteration count kept low so the suite stays fast; production uses
// DefaultIterations.
const testIterations = 1000

func testKey(t *testing.T) []byte {
	t.Helper()
	salt := []byte("test-salt-0123456789abcdef")
	key := DeriveKey("correct horse battery staple", salt, testIterations)
	if len(key) != KeySize {
		t.Fatalf("expected %d-byte key, got %d", KeySize, len(key))
	}
	return key
}

func TestDeriveKey_Deterministic(t *testing.T) {
	salt := []byte("salt-a")
	k1 := DeriveKey("passphrase", salt, testIterations)
	k2 := DeriveKey("passphrase", salt, testIterations)
	if !bytes.Equal(k1, k2) {
		t.Fatal("same passphrase and salt must derive the same key")
	}

	k3 := DeriveKey("passphrase", []byte("salt-b"), testIterations)
	if bytes.Equal(k1, k3) {
		t.Fatal("different salts must derive different keys")
	}

	k4 := DeriveKey("other passphrase", salt, testIterations)
	if bytes.Equal(k1, k4) {
		t.Fatal("different passphrases must derive different keys")
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := testKey(t)
	plaintext := []byte(`{"food":"user is allergic to peanuts"}`)

	ciphertext, nonce, tag, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	if len(nonce) != NonceSize {
		t.Fatalf("expected %d-byte nonce, got %d", NonceSize, len(nonce))
	}
	if len(tag) != TagSize {
		t.Fatalf("expected %d-byte tag, got %d", TagSize, len(tag))
	}
	if bytes.Contains(ciphertext, []byte("peanuts")) {
		t.Fatal("ciphertext leaks plaintext")
	}

	decrypted, err := Decrypt(key, ciphertext, nonce, tag)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("round trip mismatch: got %q", decrypted)
	}
}

func TestEncrypt_UniqueNonces(t *testing.T) {
	key := testKey(t)
	plaintext := []byte("same content twice")

	c1, n1, _, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	c2, n2, _, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(n1, n2) {
		t.Fatal("nonces must be unique per encryption")
	}
	if bytes.Equal(c1, c2) {
		t.Fatal("identical plaintexts must not produce identical ciphertexts")
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	key := testKey(t)
	ciphertext, nonce, tag, err := Encrypt(key, []byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	wrong := DeriveKey("wrong passphrase", []byte("test-salt-0123456789abcdef"), testIterations)
	if _, err := Decrypt(wrong, ciphertext, nonce, tag); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestDecrypt_Tampered(t *testing.T) {
	key := testKey(t)
	ciphertext, nonce, tag, err := Encrypt(key, []byte("integrity matters"))
	if err != nil {
		t.Fatal(err)
	}

	flip := func(b []byte) []byte {
		out := append([]byte(nil), b...)
		out[0] ^= 0xff
		return out
	}

	if _, err := Decrypt(key, flip(ciphertext), nonce, tag); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("tampered ciphertext: expected ErrDecryptionFailed, got %v", err)
	}
	if _, err := Decrypt(key, ciphertext, flip(nonce), tag); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("tampered nonce: expected ErrDecryptionFailed, got %v", err)
	}
	if _, err := Decrypt(key, ciphertext, nonce, flip(tag)); !errors.Is(err, ErrDecryptionFailed) {
		t.Fatalf("tampered tag: expected ErrDecryptionFailed, got %v", err)
	}
}

func TestHashUserID(t *testing.T) {
	salt := []byte("id-salt")
	h1 := HashUserID("alice", salt)
	h2 := HashUserID("alice", salt)
	if h1 != h2 {
		t.Fatal("user hash must be deterministic")
	}
	if h1 == HashUserID("bob", salt) {
		t.Fatal("different users must hash differently")
	}
	if h1 == HashUserID("alice", []byte("other-salt")) {
		t.Fatal("different salts must hash differently")
	}
	if bytes.Contains([]byte(h1), []byte("alice")) {
		t.Fatal("hash leaks the raw identifier")
	}

	prefix := UserHashPrefix(h1)
	if len(prefix) != UserHashPrefixLen {
		t.Fatalf("expected %d-char prefix, got %d", UserHashPrefixLen, len(prefix))
	}
}

func TestContentHash(t *testing.T) {
	salt := []byte("content-salt")
	h1 := ContentHash([]byte("likes jazz"), salt)
	h2 := ContentHash([]byte("likes jazz"), salt)
	if h1 != h2 {
		t.Fatal("content hash must be deterministic")
	}
	if len(h1) != ContentHashLen {
		t.Fatalf("expected %d-char hash, got %d", ContentHashLen, len(h1))
	}
	if h1 == ContentHash([]byte("likes rock"), salt) {
		t.Fatal("different content must hash differently")
	}
	if h1 == ContentHash([]byte("likes jazz"), []byte("other-salt")) {
		t.Fatal("different salts must hash differently")
	}
}

func TestZeroize(t *testing.T) {
	key := testKey(t)
	Zeroize(key)
	for i, b := range key {
		if b != 0 {
			t.Fatalf("byte %d not zeroed", i)
		}
	}
}
