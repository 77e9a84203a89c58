package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/store"
	"github.com/wolfeidau/cybaware/internal/tenancy"
)

func TestEnrollmentStore(t *testing.T) {
	ctx := context.Background()
	trainings := NewTrainingStore()
	st := NewEnrollmentStore(trainings)

	tr := &models.Training{Title: "Phishing basics", Active: true}
	require.NoError(t, trainings.Create(ctx, scopeFor(t, 1, tenancy.KindTraining), tr))
	for i, title := range []string{"links", "attachments"} {
		require.NoError(t, trainings.AddModule(ctx, scopeFor(t, 1, tenancy.KindModule), &models.Module{
			TrainingID: tr.TrainingID, Title: title, OrderIndex: i,
		}))
	}

	other := &models.Training{Title: "Other org", Active: true}
	require.NoError(t, trainings.Create(ctx, scopeFor(t, 2, tenancy.KindTraining), other))
	require.NoError(t, trainings.AddModule(ctx, scopeFor(t, 2, tenancy.KindModule), &models.Module{
		TrainingID: other.TrainingID, Title: "elsewhere",
	}))

	enrollA := scopeFor(t, 1, tenancy.KindEnrollment)
	enrollB := scopeFor(t, 2, tenancy.KindEnrollment)
	due := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)

	e, err := st.Enroll(ctx, enrollA, tr.TrainingID, 10, 1, &due)
	require.NoError(t, err)
	require.Equal(t, models.EnrollmentAssigned, e.Status)
	require.Equal(t, int64(1), e.AssignedBy)
	require.True(t, due.Equal(*e.DueAt))

	_, err = st.Enroll(ctx, enrollB, other.TrainingID, 11, 2, nil)
	require.NoError(t, err)

	t.Run("enroll is idempotent", func(t *testing.T) {
		again, err := st.Enroll(ctx, enrollA, tr.TrainingID, 10, 5, nil)
		require.NoError(t, err)
		require.Equal(t, e.EnrollmentID, again.EnrollmentID)
		require.Equal(t, int64(1), again.AssignedBy)
	})

	t.Run("training of another org is not found", func(t *testing.T) {
		_, err := st.Enroll(ctx, enrollB, tr.TrainingID, 11, 2, nil)
		require.Equal(t, store.ErrTrainingNotFound, err)
	})

	t.Run("progress reaches the tenant through module and training", func(t *testing.T) {
		progressA := scopeFor(t, 1, tenancy.KindProgress)

		rows, err := st.ListProgress(ctx, progressA, 0)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		for _, p := range rows {
			require.Equal(t, int64(10), p.UserID)
			require.Equal(t, models.ProgressNotStarted, p.Status)
		}

		rows, err = st.ListProgress(ctx, scopeFor(t, 2, tenancy.KindProgress), 0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, int64(11), rows[0].UserID)

		rows, err = st.ListProgress(ctx, progressA, 11)
		require.NoError(t, err)
		require.Empty(t, rows)
	})

	t.Run("scope kinds are not interchangeable", func(t *testing.T) {
		_, err := st.Enroll(ctx, scopeFor(t, 1, tenancy.KindTraining), tr.TrainingID, 10, 1, nil)
		require.ErrorIs(t, err, store.ErrScopeMismatch)

		_, err = st.ListProgress(ctx, scopeFor(t, 1, tenancy.KindModule), 0)
		require.ErrorIs(t, err, store.ErrScopeMismatch)
	})
}
