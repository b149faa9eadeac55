package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/internal/repository/memory"
	"github.com/medmap/scheduling-api/pkg/errors"
	"github.com/medmap/scheduling-api/pkg/logger"
	"github.com/medmap/scheduling-api/pkg/metrics"
)

const (
	doctorID     = int64(1)
	doctorUserID = int64(10)
)

var (
	owner    = &model.Identity{UserID: doctorUserID, IsDoctor: true, DoctorID: doctorID}
	stranger = &model.Identity{UserID: 99, IsDoctor: true, DoctorID: 2}
	admin    = &model.Identity{UserID: 1000, IsAdmin: true}
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.PutDoctor(&model.Doctor{ID: doctorID, UserID: doctorUserID})
	store.PutDoctor(&model.Doctor{ID: 2, UserID: 99})
	return NewService(store.Schedules(), store.Doctors(), logger.Nop(), metrics.NewTestMetrics()), store
}

func TestService_CreateWindow(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	created, err := svc.CreateWindow(ctx, owner, w(time.Monday, "09:00", "12:00", true))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	// Second shift on the same day is fine.
	_, err = svc.CreateWindow(ctx, owner, w(time.Monday, "13:00", "17:00", true))
	require.NoError(t, err)

	_, err = svc.CreateWindow(ctx, owner, w(time.Monday, "09:00", "10:00", true))
	assert.True(t, errors.IsConflict(err))

	_, err = svc.CreateWindow(ctx, stranger, w(time.Tuesday, "09:00", "10:00", true))
	assert.True(t, errors.IsPermission(err))

	_, err = svc.CreateWindow(ctx, owner, w(time.Tuesday, "10:00", "09:00", true))
	assert.True(t, errors.IsValidation(err))
}

func TestService_UpdateWindow(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	morning, err := svc.CreateWindow(ctx, owner, w(time.Monday, "09:00", "12:00", true))
	require.NoError(t, err)
	_, err = svc.CreateWindow(ctx, owner, w(time.Monday, "13:00", "17:00", true))
	require.NoError(t, err)

	end := model.NewTimeOfDay(13, 30)
	_, err = svc.UpdateWindow(ctx, owner, morning.ID, model.WindowPatch{EndTime: &end})
	assert.True(t, errors.IsConflict(err))

	off := false
	updated, err := svc.UpdateWindow(ctx, admin, morning.ID, model.WindowPatch{IsAvailable: &off})
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)

	_, err = svc.UpdateWindow(ctx, stranger, morning.ID, model.WindowPatch{IsAvailable: &off})
	assert.True(t, errors.IsPermission(err))
}

func TestService_DeleteWindow(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	window, err := svc.CreateWindow(ctx, owner, w(time.Monday, "09:00", "12:00", true))
	require.NoError(t, err)

	assert.True(t, errors.IsPermission(svc.DeleteWindow(ctx, stranger, window.ID)))
	require.NoError(t, svc.DeleteWindow(ctx, owner, window.ID))
	assert.True(t, errors.IsNotFound(svc.DeleteWindow(ctx, owner, window.ID)))
}

func TestService_ListWindowsOrdered(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, win := range []*model.WeeklyAvailabilityWindow{
		w(time.Wednesday, "09:00", "10:00", true),
		w(time.Monday, "14:00", "15:00", true),
		w(time.Monday, "08:00", "09:00", true),
	} {
		_, err := svc.CreateWindow(ctx, owner, win)
		require.NoError(t, err)
	}

	windows, err := svc.ListWindows(ctx, doctorID)
	require.NoError(t, err)
	require.Len(t, windows, 3)
	assert.Equal(t, "08:00", windows[0].StartTime.String())
	assert.Equal(t, "14:00", windows[1].StartTime.String())
	assert.Equal(t, time.Wednesday, windows[2].DayOfWeek)

	_, err = svc.ListWindows(ctx, 404)
	assert.True(t, errors.IsNotFound(err))
}

func TestService_BulkDeleteByDoctor(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, win := range []*model.WeeklyAvailabilityWindow{
		w(time.Monday, "09:00", "12:00", true),
		w(time.Monday, "13:00", "17:00", true),
		w(time.Friday, "09:00", "12:00", true),
	} {
		_, err := svc.CreateWindow(ctx, owner, win)
		require.NoError(t, err)
	}

	_, err := svc.BulkDeleteByDoctor(ctx, stranger, doctorID)
	assert.True(t, errors.IsPermission(err))

	_, err = svc.BulkDeleteByDoctor(ctx, admin, 404)
	assert.True(t, errors.IsNotFound(err))

	before, err := svc.ListWindows(ctx, doctorID)
	require.NoError(t, err)

	n, err := svc.BulkDeleteByDoctor(ctx, owner, doctorID)
	require.NoError(t, err)
	assert.Equal(t, int64(len(before)), n)

	after, err := svc.ListWindows(ctx, doctorID)
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestService_ReplaceWindows(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateWindow(ctx, owner, w(time.Monday, "09:00", "12:00", true))
	require.NoError(t, err)

	replaced, err := svc.ReplaceWindows(ctx, owner, doctorID, []*model.WeeklyAvailabilityWindow{
		w(time.Tuesday, "09:00", "12:00", true),
		w(time.Tuesday, "13:00", "16:00", true),
	})
	require.NoError(t, err)
	require.Len(t, replaced, 2)
	assert.Equal(t, time.Tuesday, replaced[0].DayOfWeek)

	_, err = svc.ReplaceWindows(ctx, stranger, doctorID, nil)
	assert.True(t, errors.IsPermission(err))

	_, err = svc.ReplaceWindows(ctx, owner, doctorID, []*model.WeeklyAvailabilityWindow{
		w(time.Tuesday, "12:00", "09:00", true),
	})
	assert.True(t, errors.IsValidation(err))
}
