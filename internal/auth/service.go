package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"campushub-backend/internal/database"
	"campushub-backend/internal/models"
)

// SessionConfig controls session lifetime
type SessionConfig struct {
	TTL        time.Duration
	MaxPerUser int
}

// ClientInfo describes where a login came from
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// LoginResponse represents a successful login
type LoginResponse struct {
	Principal *models.Principal
	Session   *models.Session
	Token     string
}

// Service binds principals to persisted sessions and resolves session tokens
// back to principals.
type Service struct {
	credentials *CredentialStore
	sessions    *database.SessionRepo
	cfg         SessionConfig
	logger      *slog.Logger
}

// NewService creates a new session service
func NewService(credentials *CredentialStore, sessions *database.SessionRepo, cfg SessionConfig, logger *slog.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Service{
		credentials: credentials,
		sessions:    sessions,
		cfg:         cfg,
		logger:      logger,
	}
}

// Credentials returns the credential store backing the service
func (s *Service) Credentials() *CredentialStore {
	return s.credentials
}

// Login authenticates creds with authn and, on success, issues a session.
// Any credential failure surfaces as ErrAuthFailure.
func (s *Service) Login(ctx context.Context, authn Authenticator, creds Credentials, client ClientInfo) (*LoginResponse, error) {
	principal, err := authn.Authenticate(ctx, creds)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		return nil, ErrAuthFailure
	}

	token, session, err := s.SerializePrincipal(ctx, principal, client)
	if err != nil {
		return nil, err
	}

	if err := s.credentials.TouchLastLogin(ctx, principal.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to record last login",
			slog.Int64("user_id", principal.ID), slog.Any("error", err))
	}

	return &LoginResponse{
		Principal: principal,
		Session:   session,
		Token:     token,
	}, nil
}

// SerializePrincipal creates a session for principal and returns the opaque
// token the client presents on later requests. The oldest sessions beyond
// the per-user limit are evicted.
func (s *Service) SerializePrincipal(ctx context.Context, principal *models.Principal, client ClientInfo) (string, *models.Session, error) {
	if s.cfg.MaxPerUser > 0 {
		if _, err := s.sessions.PruneForUser(ctx, principal.ID, s.cfg.MaxPerUser-1); err != nil {
			return "", nil, storeUnavailable(err)
		}
	}

	token, session, err := s.sessions.Create(ctx, principal.ID, client.IPAddress, client.UserAgent, s.cfg.TTL)
	if err != nil {
		return "", nil, storeUnavailable(err)
	}
	return token, session, nil
}

// ResolvePrincipal maps a session token to its principal. Every failure,
// including store errors, is reported as ErrUnauthorized; store errors are
// additionally wrapped so callers can log them.
func (s *Service) ResolvePrincipal(ctx context.Context, token string) (*models.Principal, *models.Session, error) {
	if token == "" {
		return nil, nil, ErrUnauthorized
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, database.ErrSessionNotFound) || errors.Is(err, database.ErrSessionExpired) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrUnauthorized, storeUnavailable(err))
	}

	principal, err := s.credentials.Lookup(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			_ = s.sessions.Delete(ctx, session.ID)
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	return principal, session, nil
}

// Logout invalidates the session behind token
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			return ErrUnauthorized
		}
		return storeUnavailable(err)
	}
	return nil
}

// Refresh extends a live session by the configured TTL
func (s *Service) Refresh(ctx context.Context, session *models.Session) (*models.Session, error) {
	expiresAt, err := s.sessions.Extend(ctx, session.ID, s.cfg.TTL)
	if err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, storeUnavailable(err)
	}

	refreshed := *session
	refreshed.ExpiresAt = expiresAt
	return &refreshed, nil
}

// Sessions returns the live sessions of a principal
func (s *Service) Sessions(ctx context.Context, userID int64) ([]*models.Session, error) {
	sessions, err := s.sessions.GetByUserID(ctx, userID)
	if err != nil {
		return nil, storeUnavailable(err)
	}
	return sessions, nil
}

// RevokeSession deletes one of the principal's own sessions. Sessions of
// other principals are reported as not found.
func (s *Service) RevokeSession(ctx context.Context, userID, sessionID int64) error {
	if err := s.sessions.DeleteForUser(ctx, sessionID, userID); err != nil {
		if errors.Is(err, database.ErrSessionNotFound) {
			return err
		}
		return storeUnavailable(err)
	}
	return nil
}

// RevokeAllSessions deletes every session of a principal, the caller's
// included.
func (s *Service) RevokeAllSessions(ctx context.Context, userID int64) (int64, error) {
	n, err := s.sessions.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, storeUnavailable(err)
	}
	return n, nil
}

// PruneExpired removes expired sessions from the store
func (s *Service) PruneExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, storeUnavailable(err)
	}
	return n, nil
}
