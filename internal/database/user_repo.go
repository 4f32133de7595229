package database

import (
	"context"
	"database/sql"
	"errors"

	"campushub-backend/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

const userColumns = `id, username, email, first_name, last_name, campus, password_hash, password_salt,
	created_at, updated_at, last_login`

// UserRepo handles user database operations
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user. Uniqueness of username and email is enforced by
// the schema, so concurrent signups for the same identity cannot both succeed.
func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	ts := now()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, email, first_name, last_name, campus, password_hash, password_salt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, user.Username, user.Email, user.FirstName, user.LastName, user.Campus,
		user.PasswordHash, user.PasswordSalt, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUserAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	user.CreatedAt = ts
	user.UpdatedAt = ts

	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetByUsername retrieves a user by username (case-insensitive)
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return scanUser(row)
}

// GetByEmail retrieves a user by email (case-insensitive)
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

// UpdateIdentity updates the name and campus fields of a user
func (r *UserRepo) UpdateIdentity(ctx context.Context, user *models.User) error {
	user.UpdatedAt = now()

	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			first_name = ?,
			last_name = ?,
			campus = ?,
			updated_at = ?
		WHERE id = ?
	`, user.FirstName, user.LastName, user.Campus, user.UpdatedAt, user.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdateLastLogin updates the user's last login timestamp
func (r *UserRepo) UpdateLastLogin(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", now(), id)
	return err
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var lastLogin sql.NullTime

	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName, &user.Campus,
		&user.PasswordHash, &user.PasswordSalt,
		&user.CreatedAt, &user.UpdatedAt, &lastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if lastLogin.Valid {
		user.LastLogin = lastLogin.Time
	}

	return user, nil
}
