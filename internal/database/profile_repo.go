package database

import (
	"context"
	"database/sql"
	"errors"

	"campushub-backend/internal/models"
)

// ProfileRepo handles extended profile records, keyed by user ID
type ProfileRepo struct {
	db *sql.DB
}

// NewProfileRepo creates a new profile repository
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Get returns the profile for a user. A user that never saved a profile gets
// an empty one rather than an error.
func (r *ProfileRepo) Get(ctx context.Context, userID int64) (*models.Profile, error) {
	profile := &models.Profile{UserID: userID}
	err := r.db.QueryRowContext(ctx, `
		SELECT bio, major, graduation_year, updated_at FROM profiles WHERE user_id = ?
	`, userID).Scan(&profile.Bio, &profile.Major, &profile.GraduationYear, &profile.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return profile, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Upsert stores the profile for profile.UserID
func (r *ProfileRepo) Upsert(ctx context.Context, profile *models.Profile) error {
	profile.UpdatedAt = now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, bio, major, graduation_year, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			bio = excluded.bio,
			major = excluded.major,
			graduation_year = excluded.graduation_year,
			updated_at = excluded.updated_at
	`, profile.UserID, profile.Bio, profile.Major, profile.GraduationYear, profile.UpdatedAt)
	return err
}
