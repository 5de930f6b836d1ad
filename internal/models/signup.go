package models

import "time"

// Role is the marketplace side a user signs up for.
type Role string

const (
	RoleRequester Role = "requester"
	RoleProvider  Role = "provider"
)

// Signup is a completed signup wizard submission.
type Signup struct {
	// ID is the unique identifier for the signup.
	ID string `json:"id"`

	FullName   string   `json:"full_name"`
	Email      string   `json:"email"`
	Role       Role     `json:"role"`
	Headline   string   `json:"headline"`
	Skills     []string `json:"skills,omitempty"`
	HourlyRate *float64 `json:"hourly_rate,omitempty"`

	// PasswordHash is never serialized.
	PasswordHash []byte `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// SignupRequest carries validated wizard values to a persistence backend.
// Password is plain text and must be hashed before storage.
type SignupRequest struct {
	FullName   string
	Email      string
	Password   string
	Role       Role
	Headline   string
	Skills     []string
	HourlyRate *float64
}
