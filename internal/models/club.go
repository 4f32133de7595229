package models

import "time"

// Club is a campus club listing with an optional cover image
type Club struct {
	ID          string    `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Campus      string    `json:"campus"`
	ImageKey    string    `json:"-"`
	ImageType   string    `json:"-"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasImage reports whether an image was uploaded for the club
func (c *Club) HasImage() bool {
	return c.ImageKey != ""
}
