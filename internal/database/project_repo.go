package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"campushub-backend/internal/models"
)

var ErrProjectNotFound = errors.New("project not found")

const projectSelect = `
	SELECT p.id, p.owner_id, u.username, p.title, p.description, p.tags, p.contact, p.campus,
	       p.created_at, p.updated_at
	FROM projects p JOIN users u ON u.id = p.owner_id`

// ProjectRepo handles project listing operations
type ProjectRepo struct {
	db *sql.DB
}

// NewProjectRepo creates a new project repository
func NewProjectRepo(db *sql.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

// Create inserts a project, assigning its ID and timestamps
func (r *ProjectRepo) Create(ctx context.Context, project *models.Project) error {
	if project.Tags == nil {
		project.Tags = []string{}
	}
	tags, err := json.Marshal(project.Tags)
	if err != nil {
		return err
	}

	project.ID = uuid.NewString()
	project.CreatedAt = now()
	project.UpdatedAt = project.CreatedAt

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (id, owner_id, title, description, tags, contact, campus, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, project.ID, project.OwnerID, project.Title, project.Description, string(tags),
		project.Contact, project.Campus, project.CreatedAt, project.UpdatedAt)
	return err
}

// GetByID retrieves a project by ID
func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	rows, err := r.db.QueryContext(ctx, projectSelect+" WHERE p.id = ?", id)
	if err != nil {
		return nil, err
	}
	projects, err := scanProjects(rows)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, ErrProjectNotFound
	}
	return projects[0], nil
}

// List returns projects newest first, optionally restricted to a campus
func (r *ProjectRepo) List(ctx context.Context, campus string) ([]*models.Project, error) {
	query := projectSelect
	var args []any
	if campus != "" {
		query += " WHERE p.campus = ?"
		args = append(args, campus)
	}
	query += " ORDER BY p.created_at DESC, p.rowid DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanProjects(rows)
}

// ListByOwner returns the projects of a single owner
func (r *ProjectRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Project, error) {
	rows, err := r.db.QueryContext(ctx, projectSelect+" WHERE p.owner_id = ? ORDER BY p.created_at DESC, p.rowid DESC", ownerID)
	if err != nil {
		return nil, err
	}
	return scanProjects(rows)
}

// DeleteOwned deletes a project only if ownerID owns it
func (r *ProjectRepo) DeleteOwned(ctx context.Context, id string, ownerID int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ? AND owner_id = ?", id, ownerID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrProjectNotFound
	}

	return nil
}

func scanProjects(rows *sql.Rows) ([]*models.Project, error) {
	defer rows.Close()

	projects := []*models.Project{}
	for rows.Next() {
		project := &models.Project{}
		var tags string
		if err := rows.Scan(
			&project.ID, &project.OwnerID, &project.OwnerName, &project.Title, &project.Description,
			&tags, &project.Contact, &project.Campus, &project.CreatedAt, &project.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tags), &project.Tags); err != nil {
			project.Tags = []string{}
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}
