package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/pkg/errors"
)

type BookingRepository struct {
	s *Store
}

func (r *BookingRepository) slotTakenLocked(b *model.Booking) bool {
	for _, other := range r.s.bookings {
		if other.ID == b.ID || other.Status == model.BookingStatusCancelled {
			continue
		}
		if other.DoctorID == b.DoctorID &&
			other.AppointmentDate.Equal(b.AppointmentDate) &&
			other.AppointmentTime == b.AppointmentTime {
			return true
		}
	}
	return false
}

func slotTaken() error {
	return errors.Conflict(errors.ReasonSlotTaken, "this time slot is already booked", nil)
}

func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.doctors[booking.DoctorID]; !ok {
		return errors.NotFound("doctor", nil)
	}
	if booking.Status != model.BookingStatusCancelled && r.slotTakenLocked(booking) {
		return slotTaken()
	}

	now := time.Now().UTC()
	booking.ID = r.s.id()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	cp := *booking
	r.s.bookings[cp.ID] = &cp
	return nil
}

func (r *BookingRepository) Get(ctx context.Context, id int64) (*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, errors.NotFound("booking", nil)
	}
	cp := *b
	return &cp, nil
}

func (r *BookingRepository) List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	bookings := []*model.Booking{}
	for _, b := range r.s.bookings {
		if filters.ParticipantUserID != 0 && !r.participatesLocked(b, filters.ParticipantUserID) {
			continue
		}
		if filters.DoctorID != 0 && b.DoctorID != filters.DoctorID {
			continue
		}
		if filters.Status != "" && b.Status != filters.Status {
			continue
		}
		if filters.AppointmentDate != nil && !b.AppointmentDate.Equal(*filters.AppointmentDate) {
			continue
		}
		cp := *b
		bookings = append(bookings, &cp)
	}
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].AppointmentDate.Equal(bookings[j].AppointmentDate) {
			return bookings[i].AppointmentDate.After(bookings[j].AppointmentDate.Time)
		}
		return bookings[i].AppointmentTime > bookings[j].AppointmentTime
	})
	return paginate(bookings, filters.Pagination), nil
}

func (r *BookingRepository) participatesLocked(b *model.Booking, userID int64) bool {
	if b.PatientID == userID {
		return true
	}
	d, ok := r.s.doctors[b.DoctorID]
	return ok && d.UserID == userID
}

func (r *BookingRepository) TakenTimes(ctx context.Context, doctorID int64, date model.Date) ([]model.TimeOfDay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	times := []model.TimeOfDay{}
	for _, b := range r.s.bookings {
		if b.DoctorID == doctorID && b.AppointmentDate.Equal(date) && b.Status != model.BookingStatusCancelled {
			times = append(times, b.AppointmentTime)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times, nil
}

func (r *BookingRepository) Transition(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus, paymentStatus *string) (*model.Booking, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, false, errors.NotFound("booking", nil)
	}

	allowed := false
	for _, s := range from {
		if b.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		cp := *b
		return &cp, false, nil
	}

	b.Status = to
	if paymentStatus != nil {
		b.PaymentStatus = *paymentStatus
	}
	b.UpdatedAt = time.Now().UTC()
	cp := *b
	return &cp, true, nil
}

func (r *BookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.bookings[booking.ID]
	if !ok {
		return errors.NotFound("booking", nil)
	}

	moved := !current.AppointmentDate.Equal(booking.AppointmentDate) || current.AppointmentTime != booking.AppointmentTime
	if moved && current.Status != model.BookingStatusPending {
		return errors.Conflict(errors.ReasonInvalidState,
			fmt.Sprintf("a %s booking cannot be rescheduled", current.Status), nil)
	}

	next := *current
	next.AppointmentDate = booking.AppointmentDate
	next.AppointmentTime = booking.AppointmentTime
	if next.Status != model.BookingStatusCancelled && r.slotTakenLocked(&next) {
		return slotTaken()
	}

	current.AppointmentDate = booking.AppointmentDate
	current.AppointmentTime = booking.AppointmentTime
	current.Notes = booking.Notes
	current.UpdatedAt = time.Now().UTC()
	booking.UpdatedAt = current.UpdatedAt
	return nil
}
