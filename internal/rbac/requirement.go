package rbac

import (
	"slices"
	"strings"
)

type requirementKind int

const (
	kindAnyMember requirementKind = iota
	kindMinimum
	kindOneOf
)

// Requirement describes what an endpoint needs from the caller's membership.
//
// Build one with AnyMember, AtLeast or OneOf. Each constructor takes the owner override
// flag explicitly so that disabling it for sensitive operations is a visible decision at the
// call site.
type Requirement struct {
	kind       requirementKind
	minimum    Role
	roles      []Role
	allowOwner bool
}

// AnyMember is satisfied by any valid membership in the organization.
func AnyMember(allowOwner bool) Requirement {
	return Requirement{kind: kindAnyMember, allowOwner: allowOwner}
}

// AtLeast is satisfied by roles ranked at or above minimum.
func AtLeast(minimum Role, allowOwner bool) Requirement {
	return Requirement{kind: kindMinimum, minimum: minimum, allowOwner: allowOwner}
}

// OneOf is satisfied by any of the listed roles. An empty list is equivalent to AnyMember.
func OneOf(allowOwner bool, roles ...Role) Requirement {
	if len(roles) == 0 {
		return AnyMember(allowOwner)
	}
	return Requirement{kind: kindOneOf, roles: slices.Clone(roles), allowOwner: allowOwner}
}

// AllowOwner reports whether the owner override applies to this requirement.
func (r Requirement) AllowOwner() bool {
	return r.allowOwner
}

func (r Requirement) String() string {
	var b strings.Builder
	switch r.kind {
	case kindMinimum:
		b.WriteString("at_least:")
		b.WriteString(string(r.minimum))
	case kindOneOf:
		b.WriteString("one_of:")
		for i, role := range r.roles {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(string(role))
		}
	default:
		b.WriteString("any_member")
	}
	if !r.allowOwner {
		b.WriteString(" (no owner override)")
	}
	return b.String()
}

// Satisfies decides whether a member holding role meets req.
//
// An OWNER passes every requirement unless the override is disabled for it. Roles outside
// the closed set never satisfy anything, including AnyMember.
func Satisfies(role Role, req Requirement) bool {
	if !role.Valid() {
		return false
	}

	if role == RoleOwner && req.allowOwner {
		return true
	}

	switch req.kind {
	case kindMinimum:
		return req.minimum.Valid() && role.Rank() >= req.minimum.Rank()
	case kindOneOf:
		return slices.Contains(req.roles, role)
	default:
		return true
	}
}
