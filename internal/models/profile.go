package models

import "time"

// Profile holds the optional, self-maintained parts of a user's record
type Profile struct {
	UserID         int64     `json:"user_id"`
	Bio            string    `json:"bio"`
	Major          string    `json:"major"`
	GraduationYear int       `json:"graduation_year,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProfileView combines identity and profile for the owner
type ProfileView struct {
	*Principal
	Profile *Profile `json:"profile"`
}

// PublicProfile is what other users may see; it omits the email address
type PublicProfile struct {
	Username       string `json:"username"`
	FirstName      string `json:"firstname"`
	LastName       string `json:"lastname"`
	Campus         string `json:"campus"`
	Bio            string `json:"bio"`
	Major          string `json:"major"`
	GraduationYear int    `json:"graduation_year,omitempty"`
}

// UpdateProfileRequest represents the request body for PUT /api/profile.
// Nil fields are left unchanged.
type UpdateProfileRequest struct {
	FirstName      *string `json:"firstname,omitempty"`
	LastName       *string `json:"lastname,omitempty"`
	Campus         *string `json:"campus,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	Major          *string `json:"major,omitempty"`
	GraduationYear *int    `json:"graduation_year,omitempty"`
}
