package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/pkg/errors"
)

const bookingColumns = `id, patient_id, doctor_id, appointment_date, appointment_time,
	status, payment_status, booking_fee, consultation_fee, total_amount, notes,
	created_at, updated_at`

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (
			patient_id, doctor_id, appointment_date, appointment_time,
			status, payment_status, booking_fee, consultation_fee, total_amount,
			notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	err := r.conn(ctx).QueryRowxContext(ctx, query,
		booking.PatientID,
		booking.DoctorID,
		booking.AppointmentDate,
		booking.AppointmentTime,
		booking.Status,
		booking.PaymentStatus,
		booking.BookingFee,
		booking.ConsultationFee,
		booking.TotalAmount,
		booking.Notes,
		booking.CreatedAt,
		booking.UpdatedAt,
	).Scan(&booking.ID)
	return translate(err, "doctor", "create booking")
}

func (r *bookingRepository) Get(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var booking model.Booking
	if err := sqlx.GetContext(ctx, r.conn(ctx), &booking, query, id); err != nil {
		return nil, translate(err, "booking", "get booking")
	}
	return &booking, nil
}

func (r *bookingRepository) List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filters.ParticipantUserID != 0 {
		args = append(args, filters.ParticipantUserID)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(patient_id = $%d OR doctor_id IN (SELECT id FROM doctors WHERE user_id = $%d))", n, n))
	}
	if filters.DoctorID != 0 {
		add("doctor_id = $%d", filters.DoctorID)
	}
	if filters.Status != "" {
		add("status = $%d", filters.Status)
	}
	if filters.AppointmentDate != nil {
		add("appointment_date = $%d", *filters.AppointmentDate)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	page := filters.Pagination.Normalize()
	args = append(args, page.PageSize, page.Offset())
	query += fmt.Sprintf(" ORDER BY appointment_date DESC, appointment_time DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	bookings := []*model.Booking{}
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) TakenTimes(ctx context.Context, doctorID int64, date model.Date) ([]model.TimeOfDay, error) {
	query := `
		SELECT appointment_time
		FROM bookings
		WHERE doctor_id = $1 AND appointment_date = $2 AND status <> 'cancelled'
		ORDER BY appointment_time
	`
	times := []model.TimeOfDay{}
	if err := sqlx.SelectContext(ctx, r.conn(ctx), &times, query, doctorID, date); err != nil {
		return nil, fmt.Errorf("failed to list taken times: %w", err)
	}
	return times, nil
}

func (r *bookingRepository) Transition(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus, paymentStatus *string) (*model.Booking, bool, error) {
	query := `
		UPDATE bookings
		SET status = $1,
			payment_status = COALESCE($2, payment_status),
			updated_at = NOW()
		WHERE id = $3 AND status = ANY($4)
		RETURNING ` + bookingColumns

	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	var booking model.Booking
	err := sqlx.GetContext(ctx, r.conn(ctx), &booking, query, to, paymentStatus, id, pq.Array(allowed))
	if err == nil {
		return &booking, true, nil
	}
	if !isNoRows(err) {
		return nil, false, translate(err, "booking", "transition booking")
	}

	// No row matched: either the booking is missing or its status is not in from.
	current, getErr := r.Get(ctx, id)
	if getErr != nil {
		return nil, false, getErr
	}
	return current, false, nil
}

// Update moves the appointment only while the booking is pending; a
// notes-only edit leaves date and time as stored and applies in any state.
func (r *bookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	query := `
		UPDATE bookings
		SET appointment_date = $1, appointment_time = $2, notes = $3, updated_at = $4
		WHERE id = $5
		  AND (status = 'pending' OR (appointment_date = $1 AND appointment_time = $2))
	`
	booking.UpdatedAt = time.Now().UTC()

	result, err := r.conn(ctx).ExecContext(ctx, query,
		booking.AppointmentDate,
		booking.AppointmentTime,
		booking.Notes,
		booking.UpdatedAt,
		booking.ID,
	)
	if err != nil {
		return translate(err, "booking", "update booking")
	}
	if err := expectRow(result, "booking"); !errors.IsNotFound(err) {
		return err
	}

	current, err := r.Get(ctx, booking.ID)
	if err != nil {
		return err
	}
	return errors.Conflict(errors.ReasonInvalidState,
		fmt.Sprintf("a %s booking cannot be rescheduled", current.Status), nil)
}
