package models

import "time"

// Organization represents an organization (tenant) in the system.
// The slug is the host-safe key used to resolve the tenant from a subdomain and never changes
// once assigned.
type Organization struct {
	OrgID     int64
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
