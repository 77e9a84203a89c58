package tenancy

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/cybaware/internal/rbac"
)

func TestDefaultFilter_directBinding(t *testing.T) {
	f := DefaultFilter()
	ac := NewAuthorizationContext(10, 7, rbac.RoleEmployee)

	p, err := f.Predicate(ac, KindProject)
	require.NoError(t, err)
	require.Equal(t, KindProject, p.Kind())
	require.Equal(t, int64(7), p.OrgID())

	joins, where, arg := p.SQL(1)
	require.Empty(t, joins)
	require.Equal(t, "projects.org_id = $1", where)
	require.Equal(t, int64(7), arg)
}

func TestDefaultFilter_joinBinding(t *testing.T) {
	f := DefaultFilter()
	ac := NewAuthorizationContext(10, 3, rbac.RoleManager)

	p, err := f.Predicate(ac, KindModule)
	require.NoError(t, err)

	joins, where, arg := p.SQL(2)
	require.Equal(t, " JOIN trainings ON trainings.training_id = modules.training_id", joins)
	require.Equal(t, "trainings.org_id = $2", where)
	require.Equal(t, int64(3), arg)
}

func TestDefaultFilter_twoHopBinding(t *testing.T) {
	f := DefaultFilter()
	ac := NewAuthorizationContext(10, 4, rbac.RoleEmployee)

	p, err := f.Predicate(ac, KindProgress)
	require.NoError(t, err)

	joins, where, arg := p.SQL(1)
	require.Equal(t, " JOIN modules ON modules.module_id = progress.module_id"+
		" JOIN trainings ON trainings.training_id = modules.training_id", joins)
	require.Equal(t, "trainings.org_id = $1", where)
	require.Equal(t, int64(4), arg)
	require.True(t, p.Matches(4))
	require.False(t, p.Matches(5))
}

func TestFilter_Predicate_unregistered(t *testing.T) {
	f := NewFilter()
	ac := NewAuthorizationContext(1, 1, rbac.RoleOwner)

	_, err := f.Predicate(ac, EntityKind("companies"))
	require.ErrorIs(t, err, ErrUnregisteredEntity)
}

func TestFilter_Predicate_requiresAuthorization(t *testing.T) {
	f := DefaultFilter()

	tests := []struct {
		name string
		ac   *AuthorizationContext
	}{
		{name: "nil context", ac: nil},
		{name: "zero org", ac: NewAuthorizationContext(1, 0, rbac.RoleOwner)},
		{name: "zero principal", ac: NewAuthorizationContext(0, 1, rbac.RoleOwner)},
		{name: "invalid role", ac: NewAuthorizationContext(1, 1, rbac.Role("ROOT"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Predicate(tt.ac, KindProject)
			require.ErrorIs(t, err, ErrNoAuthorization)
		})
	}
}

func TestFilter_Validate(t *testing.T) {
	f := DefaultFilter()
	require.NoError(t, f.Validate(KindMembership, KindProject, KindTraining, KindModule, KindEnrollment, KindProgress))

	err := f.Validate(KindProject, EntityKind("companies"), EntityKind("invoices"))
	require.ErrorIs(t, err, ErrUnregisteredEntity)
	require.Contains(t, err.Error(), "companies, invoices")
}

func TestFilter_Register_rejectsIncompleteBinding(t *testing.T) {
	f := NewFilter()

	require.ErrorIs(t, f.Register("", Binding{Table: "x", TenantColumn: "x.org_id"}), ErrInvalidBinding)
	require.ErrorIs(t, f.Register("x", Binding{TenantColumn: "x.org_id"}), ErrInvalidBinding)
	require.ErrorIs(t, f.Register("x", Binding{Table: "x"}), ErrInvalidBinding)
	require.ErrorIs(t, f.Register("x", Binding{
		Table:        "x",
		TenantColumn: "y.org_id",
		Via:          []Join{{Table: "y"}},
	}), ErrInvalidBinding)

	require.Panics(t, func() { f.MustRegister("x", Binding{}) })
}

func TestPredicate_Matches(t *testing.T) {
	p, err := DefaultFilter().Predicate(NewAuthorizationContext(1, 5, rbac.RoleAdmin), KindTraining)
	require.NoError(t, err)

	require.True(t, p.Matches(5))
	require.False(t, p.Matches(6))
	require.False(t, Predicate{}.Matches(0))
}
