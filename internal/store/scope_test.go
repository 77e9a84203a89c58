package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/cybaware/internal/rbac"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

func TestCheckScope(t *testing.T) {
	f := tenancy.DefaultFilter()
	ac := tenancy.NewAuthorizationContext(1, 2, rbac.RoleAdmin)

	p, err := f.Predicate(ac, tenancy.KindProject)
	require.NoError(t, err)

	require.NoError(t, CheckScope(p, tenancy.KindProject))
	require.ErrorIs(t, CheckScope(p, tenancy.KindTraining), ErrScopeMismatch)
	require.ErrorIs(t, CheckScope(tenancy.Predicate{}, tenancy.KindProject), ErrScopeMismatch)
}
