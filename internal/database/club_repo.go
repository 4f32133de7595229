package database

import (
	"context"
	"database/sql"
	"errors"

	"campushub-backend/internal/models"
)

var ErrClubNotFound = errors.New("club not found")

const clubColumns = "id, owner_id, name, description, campus, image_key, image_type, created_at"

// ClubRepo handles club listing operations
type ClubRepo struct {
	db *sql.DB
}

// NewClubRepo creates a new club repository
func NewClubRepo(db *sql.DB) *ClubRepo {
	return &ClubRepo{db: db}
}

// Create inserts a club. The caller assigns the ID so an uploaded image can
// be stored under it before the row exists.
func (r *ClubRepo) Create(ctx context.Context, club *models.Club) error {
	club.CreatedAt = now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO clubs (id, owner_id, name, description, campus, image_key, image_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, club.ID, club.OwnerID, club.Name, club.Description, club.Campus,
		club.ImageKey, club.ImageType, club.CreatedAt)
	return err
}

// GetByID retrieves a club by ID
func (r *ClubRepo) GetByID(ctx context.Context, id string) (*models.Club, error) {
	club := &models.Club{}
	err := r.db.QueryRowContext(ctx, "SELECT "+clubColumns+" FROM clubs WHERE id = ?", id).Scan(
		&club.ID, &club.OwnerID, &club.Name, &club.Description, &club.Campus,
		&club.ImageKey, &club.ImageType, &club.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClubNotFound
	}
	if err != nil {
		return nil, err
	}
	return club, nil
}

// List returns clubs alphabetically, optionally restricted to a campus
func (r *ClubRepo) List(ctx context.Context, campus string) ([]*models.Club, error) {
	query := "SELECT " + clubColumns + " FROM clubs"
	var args []any
	if campus != "" {
		query += " WHERE campus = ?"
		args = append(args, campus)
	}
	query += " ORDER BY name COLLATE NOCASE"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clubs := []*models.Club{}
	for rows.Next() {
		club := &models.Club{}
		if err := rows.Scan(
			&club.ID, &club.OwnerID, &club.Name, &club.Description, &club.Campus,
			&club.ImageKey, &club.ImageType, &club.CreatedAt,
		); err != nil {
			return nil, err
		}
		clubs = append(clubs, club)
	}

	return clubs, rows.Err()
}
