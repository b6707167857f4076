package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// SealedPrefix marks a value produced by Sealer.Seal.
const SealedPrefix = "enc:v1:"

var (
	ErrEmptyKey   = errors.New("cryptox: empty master key")
	ErrNotSealed  = errors.New("cryptox: value is not sealed")
	ErrCiphertext = errors.New("cryptox: malformed ciphertext")
)

// Sealer encrypts short secrets (registrar passwords) with AES-256-GCM.
// The AES key is derived from the master key with HKDF-SHA256 so the raw
// master key material never touches the cipher directly.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a sealing key from master. info separates keys for
// different purposes that share one master key.
func NewSealer(master []byte, info string) (*Sealer, error) {
	if len(master) == 0 {
		return nil, ErrEmptyKey
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, master, nil, []byte(info))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: gcm}, nil
}

// IsSealed reports whether s carries the sealed prefix.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, SealedPrefix)
}

// Seal encrypts plaintext into "enc:v1:<base64url(nonce|ciphertext|tag)>".
// Empty strings and already sealed values are returned unchanged.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" || IsSealed(plaintext) {
		return plaintext, nil
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.RawURLEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Empty input yields an empty string.
func (s *Sealer) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	if !IsSealed(sealed) {
		return "", ErrNotSealed
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(sealed, SealedPrefix))
	if err != nil {
		return "", ErrCiphertext
	}

	nonceSize := s.aead.NonceSize()
	if len(raw) < nonceSize+s.aead.Overhead() {
		return "", ErrCiphertext
	}

	plain, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}
	return string(plain), nil
}
