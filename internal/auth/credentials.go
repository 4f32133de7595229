package auth

import (
	"context"
	"errors"
	"strings"

	"campushub-backend/internal/database"
	"campushub-backend/internal/models"
)

// Compared against when the username is unknown so that lookups for missing
// users cost the same as a wrong password.
var (
	dummySalt = make([]byte, saltLen)
	dummyHash = make([]byte, argonKeyLen)
)

// CredentialStore owns principal records and is the only component that
// touches password secrets.
type CredentialStore struct {
	users *database.UserRepo
}

// NewCredentialStore creates a credential store over the user repository
func NewCredentialStore(users *database.UserRepo) *CredentialStore {
	return &CredentialStore{users: users}
}

// Register stores a new principal with a salted hash of password. A username
// or email that is already taken yields ErrDuplicateIdentity and leaves the
// store untouched.
func (s *CredentialStore) Register(ctx context.Context, candidate *models.User, password string) (*models.Principal, error) {
	if strings.TrimSpace(candidate.Username) == "" || strings.TrimSpace(candidate.Email) == "" || password == "" {
		return nil, ErrInvalidCandidate
	}

	salt, err := NewSalt()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     strings.TrimSpace(candidate.Username),
		Email:        strings.TrimSpace(candidate.Email),
		FirstName:    strings.TrimSpace(candidate.FirstName),
		LastName:     strings.TrimSpace(candidate.LastName),
		Campus:       strings.TrimSpace(candidate.Campus),
		PasswordHash: HashPassword(password, salt),
		PasswordSalt: salt,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrUserAlreadyExists) {
			return nil, ErrDuplicateIdentity
		}
		return nil, storeUnavailable(err)
	}

	return user.Principal(), nil
}

// Verify checks a username/password pair. Unknown users, wrong passwords and
// empty input all return ErrAuthFailure.
func (s *CredentialStore) Verify(ctx context.Context, username, password string) (*models.Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrAuthFailure
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			VerifyPassword(password, dummyHash, dummySalt)
			return nil, ErrAuthFailure
		}
		return nil, storeUnavailable(err)
	}

	if !VerifyPassword(password, user.PasswordHash, user.PasswordSalt) {
		return nil, ErrAuthFailure
	}

	return user.Principal(), nil
}

// Lookup returns the principal with the given ID
func (s *CredentialStore) Lookup(ctx context.Context, id int64) (*models.Principal, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, err
		}
		return nil, storeUnavailable(err)
	}
	return user.Principal(), nil
}

// LookupByEmail returns the principal registered with email
func (s *CredentialStore) LookupByEmail(ctx context.Context, email string) (*models.Principal, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, err
		}
		return nil, storeUnavailable(err)
	}
	return user.Principal(), nil
}

// LookupByUsername returns the principal registered with username
func (s *CredentialStore) LookupByUsername(ctx context.Context, username string) (*models.Principal, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, err
		}
		return nil, storeUnavailable(err)
	}
	return user.Principal(), nil
}

// UpdateIdentity changes the name and campus fields of a principal
func (s *CredentialStore) UpdateIdentity(ctx context.Context, id int64, firstName, lastName, campus string) (*models.Principal, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, err
		}
		return nil, storeUnavailable(err)
	}

	user.FirstName = firstName
	user.LastName = lastName
	user.Campus = campus
	if err := s.users.UpdateIdentity(ctx, user); err != nil {
		return nil, storeUnavailable(err)
	}
	return user.Principal(), nil
}

// TouchLastLogin records a successful login
func (s *CredentialStore) TouchLastLogin(ctx context.Context, id int64) error {
	return s.users.UpdateLastLogin(ctx, id)
}
