package models

import "time"

// User is the stored credential record. It carries the password secret and
// must never be serialized to clients; use Principal for that.
type User struct {
	ID           int64
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Campus       string
	PasswordHash []byte
	PasswordSalt []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    time.Time
}

// Principal is an authenticated identity with all secret fields stripped
type Principal struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	Campus    string    `json:"campus"`
	CreatedAt time.Time `json:"created_at"`
	LastLogin time.Time `json:"last_login,omitzero"`
}

// Principal returns the public identity of the user
func (u *User) Principal() *Principal {
	return &Principal{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Campus:    u.Campus,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

// SignupRequest represents the request body for account creation
type SignupRequest struct {
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Campus    string `json:"campus"`
}

// Candidate returns the identity portion of the signup as an unsaved user
func (r *SignupRequest) Candidate() *User {
	return &User{
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Campus:    r.Campus,
	}
}
