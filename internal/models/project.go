package models

import "time"

// Project is an organization-owned record keyed directly by org_id.
type Project struct {
	ProjectID   int64
	OrgID       int64
	Name        string
	Description string
	CreatedAt   time.Time
}
