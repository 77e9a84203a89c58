package models

import "time"

// Training is an organization-owned training catalog entry.
type Training struct {
	TrainingID  int64
	OrgID       int64
	Title       string
	Description string
	Active      bool
	CreatedAt   time.Time
}

// Module belongs to a training and inherits its tenant through training_id.
type Module struct {
	ModuleID    int64
	TrainingID  int64
	Title       string
	ContentURL  string
	OrderIndex  int
	DurationMin int
	CreatedAt   time.Time
}
