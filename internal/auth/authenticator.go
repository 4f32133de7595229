package auth

import (
	"context"
	"errors"

	"campushub-backend/internal/models"
)

// Credentials carries what a client presented for a login attempt. Each
// Authenticator reads the fields it understands.
type Credentials struct {
	Username string
	Password string
	// Code is the authorization code of redirect-based strategies
	Code string
}

// Authenticator verifies presented credentials and yields a principal.
// Implementations return ErrAuthFailure for every credential problem and
// wrap ErrStoreUnavailable for infrastructure failures.
type Authenticator interface {
	Name() string
	Authenticate(ctx context.Context, creds Credentials) (*models.Principal, error)
}

// LocalAuthenticator checks usernames and passwords against the credential store
type LocalAuthenticator struct {
	store *CredentialStore
}

// NewLocalAuthenticator creates a username/password authenticator
func NewLocalAuthenticator(store *CredentialStore) *LocalAuthenticator {
	return &LocalAuthenticator{store: store}
}

// Name implements Authenticator
func (a *LocalAuthenticator) Name() string { return "local" }

// Authenticate implements Authenticator
func (a *LocalAuthenticator) Authenticate(ctx context.Context, creds Credentials) (*models.Principal, error) {
	principal, err := a.store.Verify(ctx, creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		return nil, ErrAuthFailure
	}
	return principal, nil
}

var _ Authenticator = (*LocalAuthenticator)(nil)
