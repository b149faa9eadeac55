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
)

func newResolver(t *testing.T) (*Resolver, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.PutDoctor(&model.Doctor{ID: doctorID, UserID: doctorUserID})
	require.NoError(t, store.Schedules().Create(context.Background(), w(time.Monday, "09:00", "17:00", true)))
	return NewResolver(store.Schedules(), store.Bookings(), 30*time.Minute), store
}

func book(t *testing.T, store *memory.Store, at string) *model.Booking {
	t.Helper()
	tod, err := model.ParseTimeOfDay(at)
	require.NoError(t, err)
	b := &model.Booking{PatientID: 3, DoctorID: doctorID, AppointmentDate: monday, AppointmentTime: tod, Status: model.BookingStatusPending}
	require.NoError(t, store.Bookings().Create(context.Background(), b))
	return b
}

func TestResolver_FreeSlotsScenario(t *testing.T) {
	resolver, store := newResolver(t)
	ctx := context.Background()

	free, err := resolver.FreeSlots(ctx, doctorID, monday)
	require.NoError(t, err)
	require.Len(t, free, 16)
	assert.Equal(t, "09:00", free[0].String())

	book(t, store, "09:00")

	free, err = resolver.FreeSlots(ctx, doctorID, monday)
	require.NoError(t, err)
	require.Len(t, free, 15)
	assert.Equal(t, "09:30", free[0].String())
}

func TestResolver_FreeAndTakenAreDisjoint(t *testing.T) {
	resolver, store := newResolver(t)
	ctx := context.Background()

	book(t, store, "10:00")
	book(t, store, "13:30")
	// Outside the derived slots; still reported as taken.
	book(t, store, "18:00")

	free, err := resolver.FreeSlots(ctx, doctorID, monday)
	require.NoError(t, err)
	taken, err := resolver.TakenSlots(ctx, doctorID, monday)
	require.NoError(t, err)
	assert.Len(t, taken, 3)

	for _, f := range free {
		assert.NotContains(t, taken, f)
	}
}

func TestResolver_CancelReleasesSlot(t *testing.T) {
	resolver, store := newResolver(t)
	ctx := context.Background()

	b := book(t, store, "09:00")
	_, _, err := store.Bookings().Transition(ctx, b.ID, []model.BookingStatus{model.BookingStatusPending}, model.BookingStatusCancelled, nil)
	require.NoError(t, err)

	taken, err := resolver.TakenSlots(ctx, doctorID, monday)
	require.NoError(t, err)
	assert.Empty(t, taken)

	free, err := resolver.FreeSlots(ctx, doctorID, monday)
	require.NoError(t, err)
	assert.Contains(t, free, model.NewTimeOfDay(9, 0))
}

func TestResolver_NoWindowsIsEmptyNotError(t *testing.T) {
	resolver, _ := newResolver(t)

	free, err := resolver.FreeSlots(context.Background(), doctorID, model.NewDate(2025, time.January, 7))
	require.NoError(t, err)
	assert.Empty(t, free)
}

func TestResolver_Slots(t *testing.T) {
	resolver, store := newResolver(t)
	book(t, store, "09:30")

	slots, err := resolver.Slots(context.Background(), doctorID, monday)
	require.NoError(t, err)
	require.Len(t, slots, 16)
	assert.True(t, slots[0].Available)
	assert.False(t, slots[1].Available)
}

func TestParseQuery(t *testing.T) {
	id, date, err := ParseQuery("5", "2025-01-06")
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	assert.Equal(t, "2025-01-06", date.String())

	for _, tc := range []struct{ doctor, date string }{
		{"", "2025-01-06"},
		{"abc", "2025-01-06"},
		{"-1", "2025-01-06"},
		{"5", ""},
		{"5", "06/01/2025"},
	} {
		_, _, err := ParseQuery(tc.doctor, tc.date)
		assert.True(t, errors.IsValidation(err), "doctor=%q date=%q", tc.doctor, tc.date)
	}
}
