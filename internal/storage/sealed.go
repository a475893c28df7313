package storage

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealInfo = "peoplepulse client storage v1"

// Sealed encrypts values before handing them to the underlying store.
// The client ID is bound as additional data, so a value copied to another
// client does not open.
type Sealed struct {
	next Store
	aead cipher.AEAD
}

// NewSealed derives an XChaCha20-Poly1305 key from secret
func NewSealed(next Store, secret []byte) (*Sealed, error) {
	if len(secret) == 0 {
		return nil, errors.New("storage: empty sealing secret")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("storage: derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("storage: init cipher: %w", err)
	}

	return &Sealed{next: next, aead: aead}, nil
}

func (s *Sealed) Get(ctx context.Context, clientID, key string) (string, error) {
	raw, err := s.next.Get(ctx, clientID, key)
	if err != nil {
		return "", err
	}

	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil || len(data) < s.aead.NonceSize() {
		return "", ErrNotFound
	}
	nonce, ciphertext := data[:s.aead.NonceSize()], data[s.aead.NonceSize():]

	plain, err := s.aead.Open(nil, nonce, ciphertext, additionalData(clientID, key))
	if err != nil {
		return "", ErrNotFound
	}
	return string(plain), nil
}

func (s *Sealed) Set(ctx context.Context, clientID, key, value string, ttl time.Duration) error {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("storage: nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(value), additionalData(clientID, key))
	return s.next.Set(ctx, clientID, key, base64.RawURLEncoding.EncodeToString(sealed), ttl)
}

func (s *Sealed) Delete(ctx context.Context, clientID, key string) error {
	return s.next.Delete(ctx, clientID, key)
}

func additionalData(clientID, key string) []byte {
	return []byte(clientID + "\x00" + key)
}
