package ports

import "github.com/aegis-id/aegis/core"

// Tokenizer converts between session records and bearer tokens.
// The token carries the session ID; the session store stays the
// single source of truth for revocation and expiry.
type Tokenizer interface {
	// SessionToToken encodes and signs a bearer token for the session.
	SessionToToken(session *core.Session) (string, error)

	// TokenToSessionID verifies the token's signature and structure
	// and returns the embedded session ID. It does not consult any
	// store.
	TokenToSessionID(token string) (string, error)
}
