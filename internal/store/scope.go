package store

import (
	"errors"
	"fmt"

	"github.com/wolfeidau/cybaware/internal/tenancy"
)

// ErrScopeMismatch is returned when a store method receives a predicate built for a
// different entity kind, including the zero Predicate.
var ErrScopeMismatch = errors.New("scope does not match entity")

// CheckScope verifies that scope was built for kind.
func CheckScope(scope tenancy.Predicate, kind tenancy.EntityKind) error {
	if scope.Kind() != kind || scope.OrgID() <= 0 {
		return fmt.Errorf("%w: want %s, got %q", ErrScopeMismatch, kind, scope.Kind())
	}
	return nil
}
