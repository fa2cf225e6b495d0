package service

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/aegis-id/aegis/core"
)

const gateKeyInfo = "aegis/gate/v1"

// EncryptionGate performs AES-256-GCM encryption gated behind a valid
// session of at least basic level. The key is derived once from the
// server secret and is independent of any password, so key compromise
// and credential compromise are separate failure domains.
type EncryptionGate struct {
	sessions *SessionManager
	aead     cipher.AEAD
}

// NewEncryptionGate derives the gate key from secret and prepares the
// AEAD. It fails at construction time, before any request is served,
// if the key material is unusable.
func NewEncryptionGate(sessions *SessionManager, secret []byte) (*EncryptionGate, error) {
	kdf := hkdf.New(sha256.New, secret, nil, []byte(gateKeyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive gate key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AEAD: %w", err)
	}
	return &EncryptionGate{sessions: sessions, aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce. The nonce is
// prepended to the ciphertext. token must resolve to a valid session
// of at least basic level.
func (g *EncryptionGate) Encrypt(ctx context.Context, token string, plaintext []byte) ([]byte, error) {
	if err := g.authorize(ctx, token); err != nil {
		return nil, err
	}
	nonce := make([]byte, g.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return g.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a nonce-prefixed blob. It fails closed: any integrity
// mismatch or malformed input yields core.ErrCryptoFailure and nothing
// else, so the caller learns only that decryption failed.
func (g *EncryptionGate) Decrypt(ctx context.Context, token string, blob []byte) ([]byte, error) {
	if err := g.authorize(ctx, token); err != nil {
		return nil, err
	}
	ns := g.aead.NonceSize()
	if len(blob) < ns {
		return nil, core.ErrCryptoFailure
	}
	plaintext, err := g.aead.Open(nil, blob[:ns], blob[ns:], nil)
	if err != nil {
		return nil, core.ErrCryptoFailure
	}
	return plaintext, nil
}

func (g *EncryptionGate) authorize(ctx context.Context, token string) error {
	session, err := g.sessions.Validate(ctx, token)
	if err != nil {
		return core.ErrUnauthenticated
	}
	if session.Level < core.LevelBasic {
		return core.ErrUnauthenticated
	}
	return nil
}
