package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/pkg/errors"
)

func window(doctorID int64, day time.Weekday, start, end model.TimeOfDay) *model.WeeklyAvailabilityWindow {
	return &model.WeeklyAvailabilityWindow{DoctorID: doctorID, DayOfWeek: day, StartTime: start, EndTime: end, IsAvailable: true}
}

func TestScheduleRepository_Constraints(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutDoctor(&model.Doctor{ID: 1, UserID: 10})
	repo := store.Schedules()

	require.NoError(t, repo.Create(ctx, window(1, time.Monday, model.NewTimeOfDay(9, 0), model.NewTimeOfDay(12, 0))))

	err := repo.Create(ctx, window(1, time.Monday, model.NewTimeOfDay(9, 0), model.NewTimeOfDay(10, 0)))
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ReasonWindowExists, appErr.Reason)

	err = repo.Create(ctx, window(1, time.Monday, model.NewTimeOfDay(11, 0), model.NewTimeOfDay(13, 0)))
	appErr, ok = errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ReasonWindowOverlap, appErr.Reason)

	// Touching windows do not overlap.
	assert.NoError(t, repo.Create(ctx, window(1, time.Monday, model.NewTimeOfDay(12, 0), model.NewTimeOfDay(13, 0))))
	assert.NoError(t, repo.Create(ctx, window(1, time.Tuesday, model.NewTimeOfDay(9, 0), model.NewTimeOfDay(12, 0))))

	err = repo.Create(ctx, window(2, time.Monday, model.NewTimeOfDay(9, 0), model.NewTimeOfDay(12, 0)))
	assert.True(t, errors.IsNotFound(err))
}

func TestScheduleRepository_ReplaceIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutDoctor(&model.Doctor{ID: 1, UserID: 10})
	repo := store.Schedules()

	require.NoError(t, repo.Create(ctx, window(1, time.Monday, model.NewTimeOfDay(9, 0), model.NewTimeOfDay(12, 0))))

	err := repo.ReplaceForDoctor(ctx, 1, []*model.WeeklyAvailabilityWindow{
		window(0, time.Friday, model.NewTimeOfDay(9, 0), model.NewTimeOfDay(12, 0)),
		window(0, time.Friday, model.NewTimeOfDay(10, 0), model.NewTimeOfDay(11, 0)),
	})
	assert.True(t, errors.IsConflict(err))

	windows, err := repo.ListByDoctor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, time.Monday, windows[0].DayOfWeek)

	require.NoError(t, repo.ReplaceForDoctor(ctx, 1, []*model.WeeklyAvailabilityWindow{
		window(0, time.Friday, model.NewTimeOfDay(9, 0), model.NewTimeOfDay(12, 0)),
	}))
	windows, err = repo.ListByDoctor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, time.Friday, windows[0].DayOfWeek)
}

func TestBookingRepository_SlotReleasedOnCancel(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutDoctor(&model.Doctor{ID: 1, UserID: 10})
	repo := store.Bookings()

	date := model.NewDate(2025, time.January, 6)
	first := &model.Booking{PatientID: 3, DoctorID: 1, AppointmentDate: date, AppointmentTime: model.NewTimeOfDay(9, 0), Status: model.BookingStatusPending}
	require.NoError(t, repo.Create(ctx, first))

	second := &model.Booking{PatientID: 4, DoctorID: 1, AppointmentDate: date, AppointmentTime: model.NewTimeOfDay(9, 0), Status: model.BookingStatusPending}
	assert.True(t, errors.IsConflict(repo.Create(ctx, second)))

	_, changed, err := repo.Transition(ctx, first.ID, []model.BookingStatus{model.BookingStatusPending}, model.BookingStatusCancelled, nil)
	require.NoError(t, err)
	assert.True(t, changed)

	require.NoError(t, repo.Create(ctx, second))
	taken, err := repo.TakenTimes(ctx, 1, date)
	require.NoError(t, err)
	assert.Equal(t, []model.TimeOfDay{model.NewTimeOfDay(9, 0)}, taken)
}

func TestBookingRepository_UpdateOnlyMovesPending(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutDoctor(&model.Doctor{ID: 1, UserID: 10})
	repo := store.Bookings()

	date := model.NewDate(2025, time.January, 6)
	b := &model.Booking{PatientID: 3, DoctorID: 1, AppointmentDate: date, AppointmentTime: model.NewTimeOfDay(9, 0), Status: model.BookingStatusPending}
	require.NoError(t, repo.Create(ctx, b))

	snapshot, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	_, _, err = repo.Transition(ctx, b.ID, []model.BookingStatus{model.BookingStatusPending}, model.BookingStatusConfirmed, nil)
	require.NoError(t, err)

	snapshot.AppointmentTime = model.NewTimeOfDay(10, 0)
	err = repo.Update(ctx, snapshot)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrConflict, appErr.Code)
	assert.Equal(t, errors.ReasonInvalidState, appErr.Reason)

	stored, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NewTimeOfDay(9, 0), stored.AppointmentTime)
	assert.Equal(t, model.BookingStatusConfirmed, stored.Status)

	notes := "parking at the back"
	stored.Notes = &notes
	require.NoError(t, repo.Update(ctx, stored))
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutDoctor(&model.Doctor{ID: 1, UserID: 10})
	date := model.NewDate(2025, time.January, 6)

	err := store.WithinTx(ctx, func(ctx context.Context) error {
		b := &model.Booking{PatientID: 3, DoctorID: 1, AppointmentDate: date, AppointmentTime: model.NewTimeOfDay(9, 0), Status: model.BookingStatusPending}
		require.NoError(t, store.Bookings().Create(ctx, b))
		require.NoError(t, store.Outbox().Create(ctx, &model.OutboxEvent{EventType: model.EventBookingCreated, Payload: []byte(`{}`)}))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	taken, err := store.Bookings().TakenTimes(ctx, 1, date)
	require.NoError(t, err)
	assert.Empty(t, taken)
	pending, err := store.Outbox().GetPendingEventsWithLock(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = store.WithinTx(ctx, func(ctx context.Context) error {
		b := &model.Booking{PatientID: 3, DoctorID: 1, AppointmentDate: date, AppointmentTime: model.NewTimeOfDay(9, 0), Status: model.BookingStatusPending}
		return store.Bookings().Create(ctx, b)
	})
	require.NoError(t, err)
	taken, err = store.Bookings().TakenTimes(ctx, 1, date)
	require.NoError(t, err)
	assert.Equal(t, []model.TimeOfDay{model.NewTimeOfDay(9, 0)}, taken)
}

func TestMembershipRepository_ActivateIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Memberships()

	now := time.Now().UTC()
	a := &model.MembershipActivation{UserID: 47, Tier: "premium", StartDate: now, EndDate: now.AddDate(0, 0, 30), PaymentReference: "pf-1"}

	m, changed, err := repo.Activate(ctx, a)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "premium", m.Tier)

	_, changed, err = repo.Activate(ctx, a)
	require.NoError(t, err)
	assert.False(t, changed)

	a2 := *a
	a2.Tier = "basic"
	a2.PaymentReference = "pf-2"
	m, changed, err = repo.Activate(ctx, &a2)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "basic", m.Tier)
}
