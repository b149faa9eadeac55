package schedule

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/internal/repository"
	"github.com/medmap/scheduling-api/pkg/errors"
)

// Resolver answers public availability questions for one (doctor, date).
type Resolver struct {
	windows     repository.ScheduleRepository
	bookings    repository.BookingRepository
	granularity time.Duration
}

func NewResolver(windows repository.ScheduleRepository, bookings repository.BookingRepository, granularity time.Duration) *Resolver {
	return &Resolver{
		windows:     windows,
		bookings:    bookings,
		granularity: granularity,
	}
}

func (r *Resolver) Granularity() time.Duration {
	return r.granularity
}

// ParseQuery validates the raw doctor and date parameters of an availability lookup.
func ParseQuery(doctor, date string) (int64, model.Date, error) {
	doctor = strings.TrimSpace(doctor)
	if doctor == "" {
		return 0, model.Date{}, errors.Validation("doctor is required", nil)
	}
	doctorID, err := strconv.ParseInt(doctor, 10, 64)
	if err != nil || doctorID <= 0 {
		return 0, model.Date{}, errors.Validation("doctor must be a positive integer", err)
	}
	if strings.TrimSpace(date) == "" {
		return 0, model.Date{}, errors.Validation("date is required", nil)
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return 0, model.Date{}, errors.Validation(err.Error(), err)
	}
	return doctorID, d, nil
}

// TakenSlots lists the times held by non-cancelled bookings. No patient data leaves this call.
func (r *Resolver) TakenSlots(ctx context.Context, doctorID int64, date model.Date) ([]model.TimeOfDay, error) {
	return r.bookings.TakenTimes(ctx, doctorID, date)
}

// FreeSlots is the derived slot set minus the taken slots.
func (r *Resolver) FreeSlots(ctx context.Context, doctorID int64, date model.Date) ([]model.TimeOfDay, error) {
	derived, taken, err := r.load(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	return subtract(derived, taken), nil
}

// Slots returns every derived slot for the date flagged with its availability.
func (r *Resolver) Slots(ctx context.Context, doctorID int64, date model.Date) ([]model.SlotAvailability, error) {
	derived, taken, err := r.load(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	busy := make(map[model.TimeOfDay]bool, len(taken))
	for _, t := range taken {
		busy[t] = true
	}
	out := make([]model.SlotAvailability, 0, len(derived))
	for _, t := range derived {
		out = append(out, model.SlotAvailability{Time: t, Available: !busy[t]})
	}
	return out, nil
}

func (r *Resolver) load(ctx context.Context, doctorID int64, date model.Date) ([]model.TimeOfDay, []model.TimeOfDay, error) {
	windows, err := r.windows.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, nil, err
	}
	taken, err := r.bookings.TakenTimes(ctx, doctorID, date)
	if err != nil {
		return nil, nil, err
	}
	return DeriveSlots(windows, date, r.granularity), taken, nil
}
