package models

import "time"

// Project is a listing posted by a student looking for collaborators
type Project struct {
	ID          string    `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	OwnerName   string    `json:"owner_name"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Contact     string    `json:"contact,omitempty"`
	Campus      string    `json:"campus"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateProjectRequest represents the request body for creating a project.
// Ownership is never taken from the body.
type CreateProjectRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Contact     string   `json:"contact"`
}
