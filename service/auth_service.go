package service

import (
	"context"
	"log/slog"

	"github.com/aegis-id/aegis/core"
	"github.com/aegis-id/aegis/ports"
)

// AuthService is the engine facade. It composes the password
// verifier, lockout policy, challenge registry, session manager,
// encryption gate, and stats collector into the public contract.
// Any type implementing this surface qualifies as an authentication
// engine; AuthService is the in-process composition.
type AuthService struct {
	creds      ports.CredentialStore
	verifier   *PasswordVerifier
	lockout    *LockoutPolicy
	challenges *ChallengeRegistry
	sessions   *SessionManager
	gate       *EncryptionGate
	stats      *StatsCollector
	events     ports.EventPublisher
	clock      ports.Clock
	logger     *slog.Logger
}

// Deps carries the constructed components for an AuthService.
type Deps struct {
	Credentials ports.CredentialStore
	Verifier    *PasswordVerifier
	Lockout     *LockoutPolicy
	Challenges  *ChallengeRegistry
	Sessions    *SessionManager
	Gate        *EncryptionGate
	Stats       *StatsCollector
	Events      ports.EventPublisher
	Clock       ports.Clock
	Logger      *slog.Logger
}

// NewAuthService creates the facade. Events and Logger may be nil;
// Clock defaults to the system clock.
func NewAuthService(d Deps) *AuthService {
	if d.Clock == nil {
		d.Clock = ports.SystemClock{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Stats == nil {
		d.Stats = NewStatsCollector()
	}
	return &AuthService{
		creds:      d.Credentials,
		verifier:   d.Verifier,
		lockout:    d.Lockout,
		challenges: d.Challenges,
		sessions:   d.Sessions,
		gate:       d.Gate,
		stats:      d.Stats,
		events:     d.Events,
		clock:      d.Clock,
		logger:     d.Logger,
	}
}

// AuthenticateUser verifies the password and, on success, issues a
// basic session. All failure causes are recorded in the stats and
// surface as either core.ErrAccountLocked or
// core.ErrInvalidCredentials; callers facing the outside world must
// present both identically. clientInfo is free-form context from the
// transport, used only for logging.
func (s *AuthService) AuthenticateUser(ctx context.Context, username, password, clientInfo string) (core.AuthResult, error) {
	start := s.clock.Now()
	fail := func(err error) (core.AuthResult, error) {
		elapsed := s.clock.Now().Sub(start)
		s.stats.RecordAttempt(false, elapsed)
		return core.AuthResult{Elapsed: elapsed}, err
	}

	status, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		s.logger.Error("verification error", "username", username, "error", err)
		return fail(core.ErrInvalidCredentials)
	}

	switch status {
	case VerifyMatched:
		token, session, err := s.sessions.Issue(ctx, username, core.LevelBasic)
		if err != nil {
			s.logger.Error("session issuance failed", "username", username, "error", err)
			return fail(err)
		}
		elapsed := s.clock.Now().Sub(start)
		s.stats.RecordAttempt(true, elapsed)
		s.logger.Info("authentication succeeded",
			"username", username, "session_id", session.ID, "client", clientInfo)
		return core.AuthResult{
			Success: true,
			Token:   token,
			Level:   core.LevelBasic,
			Elapsed: elapsed,
		}, nil

	case VerifyLocked:
		s.logger.Info("authentication rejected, account locked",
			"username", username, "client", clientInfo)
		return fail(core.ErrAccountLocked)

	default:
		// Unknown user and wrong password are indistinguishable
		// beyond this point.
		s.logger.Info("authentication failed",
			"username", username, "client", clientInfo)
		return fail(core.ErrInvalidCredentials)
	}
}

// ValidateSession resolves a bearer token. It has no side effects on
// the attempt counters.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*core.Session, error) {
	return s.sessions.Validate(ctx, token)
}

// LogoutUser revokes the token's session. It is idempotent and
// reports success even for tokens that are already expired, revoked,
// or unknown.
func (s *AuthService) LogoutUser(ctx context.Context, token string) error {
	session, err := s.sessions.Revoke(ctx, token)
	if err != nil {
		return err
	}
	if session != nil {
		s.logger.Info("session revoked", "username", session.Username, "session_id", session.ID)
		if s.events != nil {
			if err := s.events.PublishLogout(ctx, session.Username, session.ID); err != nil {
				s.logger.Warn("failed to publish logout event",
					"session_id", session.ID, "error", err)
			}
		}
	}
	return nil
}

// GenerateChallenge issues a one-time nonce for trust escalation,
// replacing any prior live challenge for the user.
func (s *AuthService) GenerateChallenge(ctx context.Context, username string) (string, error) {
	return s.challenges.Issue(ctx, username)
}

// ValidateChallengeResponse consumes the user's live challenge. On
// success an elevated session is issued; its token rides in the
// returned result.
func (s *AuthService) ValidateChallengeResponse(ctx context.Context, username, nonce, response string) (core.AuthResult, error) {
	start := s.clock.Now()
	fail := func(err error) (core.AuthResult, error) {
		elapsed := s.clock.Now().Sub(start)
		s.stats.RecordAttempt(false, elapsed)
		return core.AuthResult{Elapsed: elapsed}, err
	}

	if err := s.challenges.Validate(ctx, username, nonce, response); err != nil {
		if errChallengeTerminal(err) {
			s.logger.Info("challenge rejected", "username", username, "reason", err)
		} else {
			s.logger.Error("challenge validation error", "username", username, "error", err)
		}
		return fail(err)
	}

	token, session, err := s.sessions.Issue(ctx, username, core.LevelElevated)
	if err != nil {
		s.logger.Error("elevated session issuance failed", "username", username, "error", err)
		return fail(err)
	}

	elapsed := s.clock.Now().Sub(start)
	s.stats.RecordAttempt(true, elapsed)
	s.logger.Info("trust escalated", "username", username, "session_id", session.ID)
	return core.AuthResult{
		Success: true,
		Token:   token,
		Level:   core.LevelElevated,
		Elapsed: elapsed,
	}, nil
}

// Encrypt seals plaintext through the gate under the caller's session.
func (s *AuthService) Encrypt(ctx context.Context, token string, plaintext []byte) ([]byte, error) {
	return s.gate.Encrypt(ctx, token, plaintext)
}

// Decrypt opens a blob through the gate under the caller's session.
func (s *AuthService) Decrypt(ctx context.Context, token string, blob []byte) ([]byte, error) {
	return s.gate.Decrypt(ctx, token, blob)
}

// GetStats returns a point-in-time snapshot of engine activity.
func (s *AuthService) GetStats(ctx context.Context) (core.StatsSnapshot, error) {
	active, err := s.sessions.ActiveCount(ctx)
	if err != nil {
		return core.StatsSnapshot{}, err
	}
	locked, err := s.creds.LockedCount(ctx, s.clock.Now())
	if err != nil {
		return core.StatsSnapshot{}, err
	}
	return s.stats.Snapshot(active, locked), nil
}

// Drain stops new session issuance; in-flight validation continues.
func (s *AuthService) Drain() {
	s.sessions.Drain()
}

// Sweep reclaims expired session and challenge records.
func (s *AuthService) Sweep(ctx context.Context) {
	if n, err := s.sessions.Sweep(ctx); err != nil {
		s.logger.Warn("session sweep failed", "error", err)
	} else if n > 0 {
		s.logger.Debug("swept expired sessions", "count", n)
	}
	if n, err := s.challenges.store.DeleteExpired(ctx, s.clock.Now()); err != nil {
		s.logger.Warn("challenge sweep failed", "error", err)
	} else if n > 0 {
		s.logger.Debug("swept expired challenges", "count", n)
	}
}
