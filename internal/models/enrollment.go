package models

import "time"

const (
	EnrollmentAssigned = "ASSIGNED"
	ProgressNotStarted = "NOT_STARTED"
)

// Enrollment assigns a training to a user. There is at most one per (UserID, TrainingID).
type Enrollment struct {
	EnrollmentID int64
	UserID       int64
	TrainingID   int64
	Status       string
	AssignedBy   int64 // 0 when the assigning user was deleted
	DueAt        *time.Time
	CreatedAt    time.Time
}

// Progress tracks one user on one module. It reaches its tenant through the module's
// training.
type Progress struct {
	ProgressID int64
	UserID     int64
	ModuleID   int64
	Status     string
	CreatedAt  time.Time
}
