package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"campushub-backend/internal/database"
	"campushub-backend/internal/models"
)

// OIDCConfig describes the campus identity provider
type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	EmailClaim   string
}

// OIDCAuthenticator signs in existing principals through a campus SSO
// provider. The verified email claim selects the principal; accounts are
// never created from claims because signup requires a campus.
type OIDCAuthenticator struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	store        *CredentialStore
	emailClaim   string
}

// NewOIDCAuthenticator discovers the provider and builds the authenticator
func NewOIDCAuthenticator(ctx context.Context, cfg OIDCConfig, store *CredentialStore) (*OIDCAuthenticator, error) {
	if cfg.IssuerURL == "" {
		return nil, fmt.Errorf("issuer URL is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	provider, err := oidc.NewProvider(initCtx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OIDC provider: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	emailClaim := cfg.EmailClaim
	if emailClaim == "" {
		emailClaim = "email"
	}

	return &OIDCAuthenticator{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       scopes,
		},
		verifier:   provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		store:      store,
		emailClaim: emailClaim,
	}, nil
}

// Name implements Authenticator
func (a *OIDCAuthenticator) Name() string { return "oidc" }

// AuthCodeURL returns the provider URL the browser is redirected to
func (a *OIDCAuthenticator) AuthCodeURL(state string) string {
	return a.oauth2Config.AuthCodeURL(state)
}

// Authenticate implements Authenticator by exchanging creds.Code
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, creds Credentials) (*models.Principal, error) {
	if creds.Code == "" {
		return nil, ErrAuthFailure
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	token, err := a.oauth2Config.Exchange(exchangeCtx, creds.Code)
	if err != nil {
		return nil, ErrAuthFailure
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, ErrAuthFailure
	}

	idToken, err := a.verifier.Verify(exchangeCtx, rawIDToken)
	if err != nil {
		return nil, ErrAuthFailure
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, ErrAuthFailure
	}

	email, ok := emailFromClaims(claims, a.emailClaim)
	if !ok {
		return nil, ErrAuthFailure
	}

	principal, err := a.store.LookupByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrAuthFailure
		}
		return nil, err
	}
	return principal, nil
}

// emailFromClaims extracts a usable email address. An explicit
// email_verified=false rejects the claim.
func emailFromClaims(claims map[string]any, emailClaim string) (string, bool) {
	if verified, ok := claims["email_verified"].(bool); ok && !verified {
		return "", false
	}
	email, ok := claims[emailClaim].(string)
	email = strings.TrimSpace(email)
	if !ok || email == "" {
		return "", false
	}
	return email, true
}

// NewState generates a random state parameter for the OAuth2 flow
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

var _ Authenticator = (*OIDCAuthenticator)(nil)
