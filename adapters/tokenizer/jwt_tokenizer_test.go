package tokenizer_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-id/aegis/adapters/tokenizer"
	"github.com/aegis-id/aegis/core"
)

func testKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func testSession() *core.Session {
	now := time.Now()
	return &core.Session{
		ID:        "sess-abc",
		Username:  "alice",
		Level:     core.LevelBasic,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tk := tokenizer.NewJWTTokenizer(testKey(t))

	token, err := tk.SessionToToken(testSession())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	id, err := tk.TokenToSessionID(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-abc", id)
}

func TestTokenWrongKeyRejected(t *testing.T) {
	signer := tokenizer.NewJWTTokenizer(testKey(t))
	verifier := tokenizer.NewJWTTokenizer(testKey(t))

	token, err := signer.SessionToToken(testSession())
	require.NoError(t, err)

	_, err = verifier.TokenToSessionID(token)
	assert.Error(t, err)
}

func TestTokenGarbageRejected(t *testing.T) {
	tk := tokenizer.NewJWTTokenizer(testKey(t))

	_, err := tk.TokenToSessionID("not.a.jwt")
	assert.Error(t, err)
	_, err = tk.TokenToSessionID("")
	assert.Error(t, err)
}

func TestTokenWrongAudienceRejected(t *testing.T) {
	key := testKey(t)
	tk := tokenizer.NewJWTTokenizer(key)

	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		ID:        "sess-abc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		Audience:  jwt.ClaimStrings{"something-else"},
	}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	require.NoError(t, err)

	_, err = tk.TokenToSessionID(foreign)
	assert.Error(t, err)
}

func TestTokenMissingSessionIDRejected(t *testing.T) {
	key := testKey(t)
	tk := tokenizer.NewJWTTokenizer(key)

	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		Audience:  jwt.ClaimStrings{tokenizer.AudienceSession},
	}
	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	require.NoError(t, err)

	_, err = tk.TokenToSessionID(anonymous)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
