package domain

import "time"

// DefaultImageFile is the sentinel profile picture assigned at creation.
const DefaultImageFile = "default.png"

type User struct {
	ID            string
	Username      string
	Email         string
	PasswordHash  string // argon2 encoded
	FirstName     string
	LastName      string
	Role          string // Member of the active policy's role set
	EmailVerified bool   // false at creation, flips true exactly once
	ImageFile     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
