package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines the standard claims with the trust level.
// The JWT ID is the session ID; the session store stays authoritative
// for revocation and expiry.
type SessionClaims struct {
	jwt.RegisteredClaims
	Level string `json:"lvl"`
}
