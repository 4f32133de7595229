package auth

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campushub-backend/internal/database"
	"campushub-backend/internal/models"
)

type testEnv struct {
	store    *CredentialStore
	svc      *Service
	users    *database.UserRepo
	sessions *database.SessionRepo
}

func newTestEnv(t *testing.T, cfg SessionConfig) *testEnv {
	t.Helper()
	db, err := database.Open(t.Context(), slog.Default(), database.Config{Path: filepath.Join(t.TempDir(), "auth.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := database.NewUserRepo(db)
	sessions := database.NewSessionRepo(db)
	store := NewCredentialStore(users)
	return &testEnv{
		store:    store,
		svc:      NewService(store, sessions, cfg, slog.Default()),
		users:    users,
		sessions: sessions,
	}
}

func (e *testEnv) register(t *testing.T, username, email, password string) *models.Principal {
	t.Helper()
	p, err := e.store.Register(t.Context(), &models.User{
		Username:  username,
		Email:     email,
		FirstName: "First",
		LastName:  "Last",
		Campus:    "north",
	}, password)
	require.NoError(t, err)
	return p
}

func tamper(token string) string {
	b := []byte(token)
	if b[len(b)-1] == 'a' {
		b[len(b)-1] = 'b'
	} else {
		b[len(b)-1] = 'a'
	}
	return string(b)
}

func TestHashPassword(t *testing.T) {
	t.Parallel()

	salt, err := NewSalt()
	require.NoError(t, err)
	other, err := NewSalt()
	require.NoError(t, err)
	assert.Len(t, salt, saltLen)
	assert.NotEqual(t, salt, other)

	hash := HashPassword("correctpassword", salt)
	assert.Len(t, hash, argonKeyLen)
	assert.NotEqual(t, hash, HashPassword("correctpassword", other))

	t.Run("correct password", func(t *testing.T) {
		t.Parallel()
		assert.True(t, VerifyPassword("correctpassword", hash, salt))
	})

	t.Run("incorrect password", func(t *testing.T) {
		t.Parallel()
		assert.False(t, VerifyPassword("wrongpassword", hash, salt))
	})

	t.Run("wrong salt", func(t *testing.T) {
		t.Parallel()
		assert.False(t, VerifyPassword("correctpassword", hash, other))
	})
}

func TestCredentialStore_Register(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, SessionConfig{})

	alice := env.register(t, "alice", "a@x.com", "p1")
	assert.NotZero(t, alice.ID)
	assert.Equal(t, "alice", alice.Username)

	stored, err := env.users.GetByUsername(t.Context(), "alice")
	require.NoError(t, err)
	assert.NotEqual(t, []byte("p1"), stored.PasswordHash)
	assert.NotEmpty(t, stored.PasswordSalt)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := env.store.Register(t.Context(), &models.User{
			Username: "alice",
			Email:    "other@x.com",
			Campus:   "south",
		}, "p2")
		require.ErrorIs(t, err, ErrDuplicateIdentity)

		// store not mutated
		_, err = env.users.GetByEmail(t.Context(), "other@x.com")
		require.ErrorIs(t, err, database.ErrUserNotFound)
		got, err := env.store.Verify(t.Context(), "alice", "p1")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.Equal(t, "a@x.com", got.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := env.store.Register(t.Context(), &models.User{
			Username: "alice2",
			Email:    "A@X.com",
			Campus:   "south",
		}, "p2")
		require.ErrorIs(t, err, ErrDuplicateIdentity)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := env.store.Register(t.Context(), &models.User{Username: "bob", Email: "b@x.com"}, "")
		require.ErrorIs(t, err, ErrInvalidCandidate)
		_, err = env.store.Register(t.Context(), &models.User{Username: " ", Email: "b@x.com"}, "pw")
		require.ErrorIs(t, err, ErrInvalidCandidate)
	})
}

func TestCredentialStore_Verify(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, SessionConfig{})
	alice := env.register(t, "alice", "a@x.com", "p1")

	got, err := env.store.Verify(t.Context(), "alice", "p1")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, wrongErr := env.store.Verify(t.Context(), "alice", "wrong")
	_, unknownErr := env.store.Verify(t.Context(), "mallory", "p1")
	_, emptyErr := env.store.Verify(t.Context(), "", "")

	require.ErrorIs(t, wrongErr, ErrAuthFailure)
	require.ErrorIs(t, unknownErr, ErrAuthFailure)
	require.ErrorIs(t, emptyErr, ErrAuthFailure)
	assert.Equal(t, wrongErr.Error(), unknownErr.Error())
	assert.Equal(t, wrongErr, unknownErr)
}

func TestLocalAuthenticator(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, SessionConfig{})
	alice := env.register(t, "alice", "a@x.com", "p1")
	authn := NewLocalAuthenticator(env.store)

	assert.Equal(t, "local", authn.Name())

	p, err := authn.Authenticate(t.Context(), Credentials{Username: "alice", Password: "p1"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, p.ID)

	_, err = authn.Authenticate(t.Context(), Credentials{Username: "alice", Password: "wrong"})
	require.ErrorIs(t, err, ErrAuthFailure)

	_, err = authn.Authenticate(t.Context(), Credentials{Code: "abc"})
	require.ErrorIs(t, err, ErrAuthFailure)
}

func TestService_Login(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, SessionConfig{TTL: time.Hour})
	alice := env.register(t, "alice", "a@x.com", "p1")
	authn := NewLocalAuthenticator(env.store)

	resp, err := env.svc.Login(t.Context(), authn, Credentials{Username: "alice", Password: "p1"}, ClientInfo{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, resp.Principal.ID)
	assert.NotEmpty(t, resp.Token)
	assert.NotContains(t, resp.Token, "alice")
	assert.WithinDuration(t, time.Now().Add(time.Hour), resp.Session.ExpiresAt, time.Minute)

	stored, err := env.users.GetByID(t.Context(), alice.ID)
	require.NoError(t, err)
	assert.False(t, stored.LastLogin.IsZero())

	t.Run("resolves on every request", func(t *testing.T) {
		for range 3 {
			p, session, err := env.svc.ResolvePrincipal(t.Context(), resp.Token)
			require.NoError(t, err)
			assert.Equal(t, alice.ID, p.ID)
			assert.Equal(t, resp.Session.ID, session.ID)
		}
	})

	t.Run("tampered token fails closed", func(t *testing.T) {
		p, session, err := env.svc.ResolvePrincipal(t.Context(), tamper(resp.Token))
		require.ErrorIs(t, err, ErrUnauthorized)
		assert.Nil(t, p)
		assert.Nil(t, session)
	})

	t.Run("empty token", func(t *testing.T) {
		_, _, err := env.svc.ResolvePrincipal(t.Context(), "")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("bad password", func(t *testing.T) {
		_, err := env.svc.Login(t.Context(), authn, Credentials{Username: "alice", Password: "wrong"}, ClientInfo{})
		require.ErrorIs(t, err, ErrAuthFailure)
	})
}

func TestService_Logout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, SessionConfig{TTL: time.Hour})
	alice := env.register(t, "alice", "a@x.com", "p1")

	token, _, err := env.svc.SerializePrincipal(t.Context(), alice, ClientInfo{})
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(t.Context(), token))
	_, _, err = env.svc.ResolvePrincipal(t.Context(), token)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.ErrorIs(t, env.svc.Logout(t.Context(), token), ErrUnauthorized)
}

func TestService_ExpiredSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, SessionConfig{TTL: time.Hour})
	alice := env.register(t, "alice", "a@x.com", "p1")

	token, _, err := env.sessions.Create(t.Context(), alice.ID, "", "", -time.Second)
	require.NoError(t, err)

	_, _, err = env.svc.ResolvePrincipal(t.Context(), token)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestCredentialStore_VerifyPaddedUsername(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, SessionConfig{})
	alice := env.register(t, "  alice ", "a@x.com", "password1")
	assert.Equal(t, "alice", alice.Username)

	for _, name := range []string{"  alice ", "alice", "alice\t"} {
		got, err := env.store.Verify(t.Context(), name, "password1")
		require.NoError(t, err, name)
		assert.Equal(t, alice.ID, got.ID)
	}

	got, err := env.store.LookupByUsername(t.Context(), " alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = env.store.Verify(t.Context(), "   ", "password1")
	require.ErrorIs(t, err, ErrAuthFailure)
}

func TestService_MaxPerUser(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, SessionConfig{TTL: time.Hour, MaxPerUser: 2})
	alice := env.register(t, "alice", "a@x.com", "p1")

	var tokens []string
	for range 3 {
		token, _, err := env.svc.SerializePrincipal(t.Context(), alice, ClientInfo{})
		require.NoError(t, err)
		tokens = append(tokens, token)
	}

	_, _, err := env.svc.ResolvePrincipal(t.Context(), tokens[0])
	require.ErrorIs(t, err, ErrUnauthorized)
	for _, token := range tokens[1:] {
		_, _, err := env.svc.ResolvePrincipal(t.Context(), token)
		require.NoError(t, err)
	}

	sessions, err := env.svc.Sessions(t.Context(), alice.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestService_RevokeSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, SessionConfig{TTL: time.Hour})
	alice := env.register(t, "alice", "a@x.com", "p1")
	bob := env.register(t, "bob", "b@x.com", "p2")

	token, session, err := env.svc.SerializePrincipal(t.Context(), alice, ClientInfo{})
	require.NoError(t, err)

	require.ErrorIs(t, env.svc.RevokeSession(t.Context(), bob.ID, session.ID), database.ErrSessionNotFound)
	_, _, err = env.svc.ResolvePrincipal(t.Context(), token)
	require.NoError(t, err)

	require.NoError(t, env.svc.RevokeSession(t.Context(), alice.ID, session.ID))
	_, _, err = env.svc.ResolvePrincipal(t.Context(), token)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestService_RevokeAllSessions(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, SessionConfig{TTL: time.Hour})
	alice := env.register(t, "alice", "a@x.com", "p1")
	bob := env.register(t, "bob", "b@x.com", "p2")

	var aliceTokens []string
	for range 2 {
		token, _, err := env.svc.SerializePrincipal(t.Context(), alice, ClientInfo{})
		require.NoError(t, err)
		aliceTokens = append(aliceTokens, token)
	}
	bobToken, _, err := env.svc.SerializePrincipal(t.Context(), bob, ClientInfo{})
	require.NoError(t, err)

	n, err := env.svc.RevokeAllSessions(t.Context(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	for _, token := range aliceTokens {
		_, _, err := env.svc.ResolvePrincipal(t.Context(), token)
		require.ErrorIs(t, err, ErrUnauthorized)
	}
	_, _, err = env.svc.ResolvePrincipal(t.Context(), bobToken)
	require.NoError(t, err)
}

func TestService_Refresh(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, SessionConfig{TTL: time.Hour})
	alice := env.register(t, "alice", "a@x.com", "p1")

	_, session, err := env.sessions.Create(t.Context(), alice.ID, "", "", time.Minute)
	require.NoError(t, err)

	refreshed, err := env.svc.Refresh(t.Context(), session)
	require.NoError(t, err)
	assert.True(t, refreshed.ExpiresAt.After(session.ExpiresAt))
	assert.Equal(t, session.ID, refreshed.ID)

	require.NoError(t, env.sessions.Delete(t.Context(), session.ID))
	_, err = env.svc.Refresh(t.Context(), session)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestEmailFromClaims(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		claims map[string]any
		want   string
		wantOK bool
	}{
		{
			name:   "email present",
			claims: map[string]any{"email": "a@x.com"},
			want:   "a@x.com",
			wantOK: true,
		},
		{
			name:   "verified email",
			claims: map[string]any{"email": "a@x.com", "email_verified": true},
			want:   "a@x.com",
			wantOK: true,
		},
		{
			name:   "unverified email",
			claims: map[string]any{"email": "a@x.com", "email_verified": false},
		},
		{
			name:   "missing email",
			claims: map[string]any{"sub": "123"},
		},
		{
			name:   "non-string email",
			claims: map[string]any{"email": 42},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got, ok := emailFromClaims(test.claims, "email")
			assert.Equal(t, test.wantOK, ok)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestNewState(t *testing.T) {
	t.Parallel()
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}
