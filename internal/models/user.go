package models

import "time"

// User is a principal that can authenticate against the API.
// Users are global; their standing inside an organization comes from a Membership.
type User struct {
	UserID       int64
	Email        string // unique, compared exactly as stored
	Name         string
	PasswordHash string
	Active       bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
