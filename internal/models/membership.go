package models

import "time"

// Membership grants a user a role within one organization.
// There is at most one membership per (UserID, OrgID) pair.
//
// Role holds the value exactly as it was read from storage. It is validated into
// rbac.Role by the access guard and must not be compared as a raw string elsewhere.
type Membership struct {
	MembershipID int64
	UserID       int64
	OrgID        int64
	Role         string
	CreatedAt    time.Time
}
