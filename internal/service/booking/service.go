package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/internal/repository"
	"github.com/medmap/scheduling-api/internal/service/event"
	"github.com/medmap/scheduling-api/internal/service/schedule"
	"github.com/medmap/scheduling-api/pkg/errors"
	"github.com/medmap/scheduling-api/pkg/logger"
	"github.com/medmap/scheduling-api/pkg/metrics"
)

type Config struct {
	// BookingFee is the fixed platform fee added to every booking.
	BookingFee      decimal.Decimal
	SlotGranularity time.Duration

	// Location is the clinic's wall clock; appointment times are read in it.
	// Nil means UTC.
	Location *time.Location
}

type Service struct {
	bookings repository.BookingRepository
	doctors  repository.DoctorRepository
	windows  repository.ScheduleRepository
	tx       repository.Transactor
	events   event.Emitter
	config   Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(
	bookings repository.BookingRepository,
	doctors repository.DoctorRepository,
	windows repository.ScheduleRepository,
	tx repository.Transactor,
	events event.Emitter,
	config Config,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		bookings: bookings,
		doctors:  doctors,
		windows:  windows,
		tx:       tx,
		events:   events,
		config:   config,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// WithClock replaces the wall clock. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type CreateInput struct {
	DoctorID int64
	Date     model.Date
	Time     model.TimeOfDay
	Notes    *string
}

// CreateBooking books a slot for the requester. Fees are copied from the
// doctor's price at this instant. The storage layer rejects a second live
// booking for the same slot with a slot_taken conflict.
func (s *Service) CreateBooking(ctx context.Context, requester *model.Identity, in CreateInput) (*model.Booking, error) {
	if requester == nil {
		return nil, errors.Unauthorized(nil)
	}
	if !requester.IsPatient && !requester.IsStaff() {
		return nil, errors.Permission("only patients can create bookings")
	}

	doctor, err := s.doctors.Get(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSlot(ctx, doctor.ID, in.Date, in.Time); err != nil {
		return nil, err
	}

	b := &model.Booking{
		PatientID:       requester.UserID,
		DoctorID:        doctor.ID,
		AppointmentDate: in.Date,
		AppointmentTime: in.Time,
		Status:          model.BookingStatusPending,
		PaymentStatus:   model.PaymentStatusUnpaid,
		BookingFee:      s.config.BookingFee,
		ConsultationFee: doctor.Price,
		TotalAmount:     s.config.BookingFee.Add(doctor.Price),
		Notes:           in.Notes,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.bookings.Create(ctx, b); err != nil {
			return err
		}
		return s.emit(ctx, model.EventBookingCreated, b, requester.UserID)
	})
	if err != nil {
		return nil, s.observeConflict(err)
	}

	s.metrics.BookingsCreated.Inc()
	s.logger.Info("booking created",
		"booking_id", b.ID,
		"doctor_id", b.DoctorID,
		"date", b.AppointmentDate.String(),
		"time", b.AppointmentTime.String())
	return b, nil
}

// checkSlot requires a future appointment that lands on one of the doctor's derived slots.
func (s *Service) checkSlot(ctx context.Context, doctorID int64, date model.Date, at model.TimeOfDay) error {
	if !at.Valid() {
		return errors.Validation("appointment_time is invalid", nil)
	}
	if !at.On(date, s.config.Location).After(s.now()) {
		return errors.Validation("appointment must be in the future", nil)
	}

	windows, err := s.windows.ListByDoctor(ctx, doctorID)
	if err != nil {
		return err
	}
	if !schedule.Offers(windows, date, at, s.config.SlotGranularity) {
		return errors.Validation(
			fmt.Sprintf("%s %s is outside the doctor's schedule", date, at), nil,
		).WithReason(errors.ReasonOutsideSchedule)
	}
	return nil
}

func (s *Service) GetBooking(ctx context.Context, requester *model.Identity, id int64) (*model.Booking, error) {
	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.participant(ctx, requester, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ListBookings returns bookings the requester takes part in, or every booking for staff.
func (s *Service) ListBookings(ctx context.Context, requester *model.Identity, filters model.BookingFilters) ([]*model.Booking, error) {
	if requester == nil {
		return nil, errors.Unauthorized(nil)
	}
	if !requester.IsStaff() {
		filters.ParticipantUserID = requester.UserID
	}
	filters.Pagination = filters.Pagination.Normalize()
	return s.bookings.List(ctx, &filters)
}

// UpdateBooking edits notes and, while the booking is pending, reschedules it.
func (s *Service) UpdateBooking(ctx context.Context, requester *model.Identity, id int64, patch model.BookingPatch) (*model.Booking, error) {
	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.participant(ctx, requester, b); err != nil {
		return nil, err
	}

	if patch.Reschedules() {
		if b.Status != model.BookingStatusPending {
			return nil, errors.Conflict(errors.ReasonInvalidState,
				fmt.Sprintf("a %s booking cannot be rescheduled", b.Status), nil)
		}
		if patch.AppointmentDate != nil {
			b.AppointmentDate = *patch.AppointmentDate
		}
		if patch.AppointmentTime != nil {
			b.AppointmentTime = *patch.AppointmentTime
		}
		if err := s.checkSlot(ctx, b.DoctorID, b.AppointmentDate, b.AppointmentTime); err != nil {
			return nil, err
		}
	}
	if patch.Notes != nil {
		b.Notes = patch.Notes
	}

	if err := s.bookings.Update(ctx, b); err != nil {
		return nil, s.observeConflict(err)
	}
	return b, nil
}

// CancelBooking may be called by the patient, the doctor or an administrator.
// Cancelling an already cancelled booking returns it unchanged.
func (s *Service) CancelBooking(ctx context.Context, requester *model.Identity, id int64) (*model.Booking, error) {
	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.participant(ctx, requester, b); err != nil {
		return nil, err
	}
	if b.Status == model.BookingStatusCancelled {
		return b, nil
	}
	return s.transition(ctx, id, model.BookingStatusCancelled, nil, requester.UserID)
}

// ConfirmBooking is the system path used by payment reconciliation. It marks
// the booking paid and confirmed; repeating it changes nothing. The bool
// reports whether this call moved the booking out of pending.
func (s *Service) ConfirmBooking(ctx context.Context, id int64) (*model.Booking, bool, error) {
	paid := model.PaymentStatusComplete
	return s.confirm(ctx, id, &paid, 0)
}

// ConfirmByStaff lets the doctor or an administrator confirm without payment.
func (s *Service) ConfirmByStaff(ctx context.Context, requester *model.Identity, id int64) (*model.Booking, error) {
	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireDoctorOrAdmin(ctx, requester, b); err != nil {
		return nil, err
	}
	confirmed, _, err := s.confirm(ctx, id, nil, requester.UserID)
	return confirmed, err
}

func (s *Service) confirm(ctx context.Context, id int64, paymentStatus *string, actorID int64) (*model.Booking, bool, error) {
	b, changed, err := s.move(ctx, id, model.BookingStatusConfirmed, paymentStatus, actorID)
	if err != nil {
		return nil, false, err
	}
	if changed {
		return b, true, nil
	}

	switch b.Status {
	case model.BookingStatusConfirmed:
		// Already confirmed by staff; record the payment without a new transition.
		if paymentStatus != nil && b.PaymentStatus != *paymentStatus {
			b, _, err = s.bookings.Transition(ctx, id,
				[]model.BookingStatus{model.BookingStatusConfirmed}, model.BookingStatusConfirmed, paymentStatus)
			if err != nil {
				return nil, false, err
			}
		}
		return b, false, nil
	default:
		return b, false, errors.Conflict(errors.ReasonInvalidState,
			fmt.Sprintf("a %s booking cannot be confirmed", b.Status), nil)
	}
}

// CompleteBooking is a manual step for the doctor or an administrator.
func (s *Service) CompleteBooking(ctx context.Context, requester *model.Identity, id int64) (*model.Booking, error) {
	b, err := s.bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireDoctorOrAdmin(ctx, requester, b); err != nil {
		return nil, err
	}
	if b.Status == model.BookingStatusCompleted {
		return b, nil
	}
	return s.transition(ctx, id, model.BookingStatusCompleted, nil, requester.UserID)
}

// transition applies one lifecycle edge atomically. A booking whose status
// moved underneath us fails with an invalid_transition conflict.
func (s *Service) transition(ctx context.Context, id int64, to model.BookingStatus, paymentStatus *string, actorID int64) (*model.Booking, error) {
	b, changed, err := s.move(ctx, id, to, paymentStatus, actorID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, errors.Conflict(errors.ReasonInvalidState,
			fmt.Sprintf("cannot move a %s booking to %s", b.Status, to), nil)
	}
	return b, nil
}

// move writes the status change and its event in one transaction.
func (s *Service) move(ctx context.Context, id int64, to model.BookingStatus, paymentStatus *string, actorID int64) (*model.Booking, bool, error) {
	var (
		b       *model.Booking
		changed bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		b, changed, err = s.bookings.Transition(ctx, id, transitions[to], to, paymentStatus)
		if err != nil || !changed {
			return err
		}
		return s.emit(ctx, eventFor[b.Status], b, actorID)
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		s.metrics.BookingTransitions.WithLabelValues(string(b.Status)).Inc()
		s.logger.Info("booking status changed",
			"booking_id", b.ID,
			"status", string(b.Status),
			"actor_id", actorID)
	}
	return b, changed, nil
}

// participant allows the patient, the booked doctor and staff.
func (s *Service) participant(ctx context.Context, requester *model.Identity, b *model.Booking) (*model.Doctor, error) {
	if requester == nil {
		return nil, errors.Unauthorized(nil)
	}
	doctor, err := s.doctors.Get(ctx, b.DoctorID)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}
	if requester.IsStaff() || requester.UserID == b.PatientID || requester.OwnsDoctor(doctor) {
		return doctor, nil
	}
	return nil, errors.Permission("you are not a participant of this booking")
}

func (s *Service) requireDoctorOrAdmin(ctx context.Context, requester *model.Identity, b *model.Booking) error {
	if requester == nil {
		return errors.Unauthorized(nil)
	}
	if requester.IsStaff() {
		return nil
	}
	doctor, err := s.doctors.Get(ctx, b.DoctorID)
	if err != nil {
		return err
	}
	if !requester.OwnsDoctor(doctor) {
		return errors.Permission("only the doctor or an administrator can do this")
	}
	return nil
}

func (s *Service) observeConflict(err error) error {
	if appErr, ok := errors.As(err); ok && appErr.Code == errors.ErrConflict {
		s.metrics.BookingConflicts.WithLabelValues(appErr.Reason).Inc()
	}
	return err
}

// emit queues the event in the caller's transaction.
func (s *Service) emit(ctx context.Context, eventType string, b *model.Booking, actorID int64) error {
	if err := s.events.Emit(ctx, eventType, model.NewBookingEvent(b, actorID, s.now().UTC())); err != nil {
		return fmt.Errorf("failed to queue %s: %w", eventType, err)
	}
	return nil
}
