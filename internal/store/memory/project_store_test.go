package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/store"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

func TestProjectStore_tenantIsolation(t *testing.T) {
	ctx := context.Background()
	st := NewProjectStore()

	orgA := scopeFor(t, 1, tenancy.KindProject)
	orgB := scopeFor(t, 2, tenancy.KindProject)

	p := &models.Project{OrgID: 2, Name: "Awareness 2026"}
	require.NoError(t, st.Create(ctx, orgA, p))
	require.Equal(t, int64(1), p.OrgID, "org id comes from the scope")
	require.NoError(t, st.Create(ctx, orgB, &models.Project{Name: "Other"}))

	t.Run("list is tenant scoped", func(t *testing.T) {
		list, err := st.List(ctx, orgA)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, "Awareness 2026", list[0].Name)
	})

	t.Run("get outside scope is not found", func(t *testing.T) {
		_, err := st.Get(ctx, orgB, p.ProjectID)
		require.Equal(t, store.ErrProjectNotFound, err)

		got, err := st.Get(ctx, orgA, p.ProjectID)
		require.NoError(t, err)
		require.Equal(t, "Awareness 2026", got.Name)

		// returned values are copies
		got.Name = "changed"
		again, err := st.Get(ctx, orgA, p.ProjectID)
		require.NoError(t, err)
		require.Equal(t, "Awareness 2026", again.Name)
	})
}

func TestProjectStore_rejectsWrongScope(t *testing.T) {
	ctx := context.Background()
	st := NewProjectStore()

	tests := []struct {
		name  string
		scope tenancy.Predicate
	}{
		{name: "zero predicate", scope: tenancy.Predicate{}},
		{name: "other kind", scope: scopeFor(t, 1, tenancy.KindTraining)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, st.Create(ctx, tt.scope, &models.Project{Name: "x"}), store.ErrScopeMismatch)

			_, err := st.Get(ctx, tt.scope, 1)
			require.ErrorIs(t, err, store.ErrScopeMismatch)

			_, err = st.List(ctx, tt.scope)
			require.ErrorIs(t, err, store.ErrScopeMismatch)
		})
	}
}
