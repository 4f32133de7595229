package database

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"campushub-backend/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

const sessionColumns = "id, user_id, token_hash, csrf_token, created_at, expires_at, ip_address, user_agent"

// SessionRepo handles session database operations
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new session repository
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session and returns the plain token. Only the token's
// hash is persisted.
func (r *SessionRepo) Create(ctx context.Context, userID int64, ipAddress, userAgent string, duration time.Duration) (string, *models.Session, error) {
	token, err := randomHex(32)
	if err != nil {
		return "", nil, err
	}
	csrfToken, err := randomHex(32)
	if err != nil {
		return "", nil, err
	}

	ts := now()
	session := &models.Session{
		UserID:    userID,
		TokenHash: HashToken(token),
		CSRFToken: csrfToken,
		CreatedAt: ts,
		ExpiresAt: ts.Add(duration),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, token_hash, csrf_token, created_at, expires_at, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, session.UserID, session.TokenHash, session.CSRFToken, session.CreatedAt, session.ExpiresAt,
		session.IPAddress, session.UserAgent)
	if err != nil {
		return "", nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", nil, err
	}
	session.ID = id

	return token, session, nil
}

// GetByToken retrieves a live session by its plain token
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	return r.GetByTokenHash(ctx, HashToken(token))
}

// GetByTokenHash retrieves a live session by its hashed token. Expired
// sessions are removed and reported as ErrSessionExpired.
func (r *SessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE token_hash = ?", tokenHash)
	session, err := scanSession(row)
	if err != nil {
		return nil, err
	}

	if session.Expired(now()) {
		// Clean up expired session
		_ = r.Delete(ctx, session.ID)
		return nil, ErrSessionExpired
	}

	return session, nil
}

// GetByUserID retrieves all live sessions for a user, newest first
func (r *SessionRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.Session, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+sessionColumns+`
		FROM sessions WHERE user_id = ? AND expires_at > ?
		ORDER BY created_at DESC, id DESC
	`, userID, now())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session := &models.Session{}
		err := rows.Scan(
			&session.ID, &session.UserID, &session.TokenHash, &session.CSRFToken,
			&session.CreatedAt, &session.ExpiresAt, &session.IPAddress, &session.UserAgent,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// Extend moves a session's expiration to now+duration
func (r *SessionRepo) Extend(ctx context.Context, id int64, duration time.Duration) (time.Time, error) {
	newExpiry := now().Add(duration)
	result, err := r.db.ExecContext(ctx, "UPDATE sessions SET expires_at = ? WHERE id = ? AND expires_at > ?", newExpiry, id, now())
	if err != nil {
		return time.Time{}, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return time.Time{}, err
	}
	if rows == 0 {
		return time.Time{}, ErrSessionNotFound
	}

	return newExpiry, nil
}

// Delete deletes a session by ID
func (r *SessionRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	return err
}

// DeleteForUser deletes a session only if it belongs to userID
func (r *SessionRepo) DeleteForUser(ctx context.Context, id, userID int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteByToken deletes a session by its plain token
func (r *SessionRepo) DeleteByToken(ctx context.Context, token string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token_hash = ?", HashToken(token))
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// DeleteAllForUser deletes all sessions for a user and reports how many
// were removed.
func (r *SessionRepo) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PruneForUser keeps only the newest keep sessions of a user, deleting the
// rest in a single statement.
func (r *SessionRepo) PruneForUser(ctx context.Context, userID int64, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE id IN (
			SELECT id FROM sessions WHERE user_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT -1 OFFSET ?
		)
	`, userID, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteExpired removes all expired sessions
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// HashToken creates a SHA-256 hash of the token
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func scanSession(row *sql.Row) (*models.Session, error) {
	session := &models.Session{}
	err := row.Scan(
		&session.ID, &session.UserID, &session.TokenHash, &session.CSRFToken,
		&session.CreatedAt, &session.ExpiresAt, &session.IPAddress, &session.UserAgent,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}
