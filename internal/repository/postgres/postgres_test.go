package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/pkg/errors"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var bookingCols = []string{
	"id", "patient_id", "doctor_id", "appointment_date", "appointment_time",
	"status", "payment_status", "booking_fee", "consultation_fee", "total_amount", "notes",
	"created_at", "updated_at",
}

func bookingRow(status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingCols).AddRow(
		int64(7), int64(3), int64(5), time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), "09:00:00",
		status, "unpaid", "10.00", "500.00", "510.00", nil, now, now,
	)
}

func TestBookingRepository_CreateTranslatesSlotConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnError(&pq.Error{Code: "23505", Constraint: constraintBookingSlot})

	err := repo.Create(context.Background(), &model.Booking{
		PatientID:       3,
		DoctorID:        5,
		AppointmentDate: model.NewDate(2025, time.January, 6),
		AppointmentTime: model.NewTimeOfDay(9, 0),
		Status:          model.BookingStatusPending,
		BookingFee:      decimal.RequireFromString("10.00"),
		ConsultationFee: decimal.RequireFromString("500.00"),
		TotalAmount:     decimal.RequireFromString("510.00"),
	})

	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrConflict, appErr.Code)
	assert.Equal(t, errors.ReasonSlotTaken, appErr.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_CreateReturnsID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	b := &model.Booking{PatientID: 3, DoctorID: 5, Status: model.BookingStatusPending}
	require.NoError(t, repo.Create(context.Background(), b))
	assert.Equal(t, int64(42), b.ID)
	assert.False(t, b.CreatedAt.IsZero())
}

func TestBookingRepository_Get(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(bookingRow("pending"))

	b, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(5), b.DoctorID)
	assert.Equal(t, "2025-01-06", b.AppointmentDate.String())
	assert.Equal(t, "09:00", b.AppointmentTime.String())
	assert.True(t, b.TotalAmount.Equal(decimal.RequireFromString("510")))
}

func TestBookingRepository_GetMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 99)
	assert.True(t, errors.IsNotFound(err))
}

func TestBookingRepository_TransitionApplied(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery("UPDATE bookings").
		WithArgs(model.BookingStatusCancelled, nil, int64(7), sqlmock.AnyArg()).
		WillReturnRows(bookingRow("cancelled"))

	b, changed, err := repo.Transition(context.Background(), 7,
		[]model.BookingStatus{model.BookingStatusPending, model.BookingStatusConfirmed},
		model.BookingStatusCancelled, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, model.BookingStatusCancelled, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_TransitionNotApplied(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery("UPDATE bookings").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").WillReturnRows(bookingRow("completed"))

	b, changed, err := repo.Transition(context.Background(), 7,
		[]model.BookingStatus{model.BookingStatusPending}, model.BookingStatusCancelled, nil)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, model.BookingStatusCompleted, b.Status)
}

func TestBookingRepository_UpdateRejectsMovingConfirmed(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectExec("UPDATE bookings .+status = 'pending'").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(bookingRow("confirmed"))

	err := repo.Update(context.Background(), &model.Booking{
		Base:            model.Base{ID: 7},
		AppointmentDate: model.NewDate(2025, time.January, 6),
		AppointmentTime: model.NewTimeOfDay(10, 0),
	})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrConflict, appErr.Code)
	assert.Equal(t, errors.ReasonInvalidState, appErr.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_UpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectExec("UPDATE bookings").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").WillReturnError(sql.ErrNoRows)

	err := repo.Update(context.Background(), &model.Booking{Base: model.Base{ID: 99}})
	assert.True(t, errors.IsNotFound(err))
}

func TestTransactor_OutboxWriteJoinsBookingTransaction(t *testing.T) {
	db, mock := newMock(t)
	bookings := NewBookingRepository(db)
	outbox := NewOutboxRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE bookings").WillReturnRows(bookingRow("confirmed"))
	mock.ExpectExec("INSERT INTO outbox_events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context) error {
		_, _, err := bookings.Transition(ctx, 7, []model.BookingStatus{model.BookingStatusPending}, model.BookingStatusConfirmed, nil)
		if err != nil {
			return err
		}
		return outbox.Create(ctx, &model.OutboxEvent{EventType: model.EventBookingConfirmed, Payload: []byte(`{}`)})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_RollsBackWhenOutboxWriteFails(t *testing.T) {
	db, mock := newMock(t)
	bookings := NewBookingRepository(db)
	outbox := NewOutboxRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE bookings").WillReturnRows(bookingRow("confirmed"))
	mock.ExpectExec("INSERT INTO outbox_events").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context) error {
		_, _, err := bookings.Transition(ctx, 7, []model.BookingStatus{model.BookingStatusPending}, model.BookingStatusConfirmed, nil)
		if err != nil {
			return err
		}
		return outbox.Create(ctx, &model.OutboxEvent{EventType: model.EventBookingConfirmed, Payload: []byte(`{}`)})
	})
	require.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_TakenTimes(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery("SELECT appointment_time").
		WillReturnRows(sqlmock.NewRows([]string{"appointment_time"}).AddRow("09:00:00").AddRow("10:30:00"))

	times, err := repo.TakenTimes(context.Background(), 5, model.NewDate(2025, time.January, 6))
	require.NoError(t, err)
	assert.Equal(t, []model.TimeOfDay{model.NewTimeOfDay(9, 0), model.NewTimeOfDay(10, 30)}, times)
}

func TestScheduleRepository_CreateTranslatesOverlap(t *testing.T) {
	db, mock := newMock(t)
	repo := NewScheduleRepository(db)

	mock.ExpectQuery("INSERT INTO schedules").
		WillReturnError(&pq.Error{Code: "23P01", Constraint: constraintWindowOverlap})

	err := repo.Create(context.Background(), &model.WeeklyAvailabilityWindow{
		DoctorID:  5,
		DayOfWeek: time.Monday,
		StartTime: model.NewTimeOfDay(9, 0),
		EndTime:   model.NewTimeOfDay(12, 0),
	})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ReasonWindowOverlap, appErr.Reason)
}

func TestScheduleRepository_CreateUnknownDoctor(t *testing.T) {
	db, mock := newMock(t)
	repo := NewScheduleRepository(db)

	mock.ExpectQuery("INSERT INTO schedules").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "schedules_doctor_id_fkey"})

	err := repo.Create(context.Background(), &model.WeeklyAvailabilityWindow{DoctorID: 404})
	assert.True(t, errors.IsNotFound(err))
}

func TestScheduleRepository_ListByDoctor(t *testing.T) {
	db, mock := newMock(t)
	repo := NewScheduleRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM schedules").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "doctor_id", "day_of_week", "start_time", "end_time", "is_available", "created_at", "updated_at",
		}).AddRow(int64(1), int64(5), int64(1), "09:00:00", "12:00:00", true, now, now))

	windows, err := repo.ListByDoctor(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, time.Monday, windows[0].DayOfWeek)
	assert.Equal(t, model.NewTimeOfDay(12, 0), windows[0].EndTime)
}

func TestScheduleRepository_ReplaceRollsBackOnConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM schedules").WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("INSERT INTO schedules").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectQuery("INSERT INTO schedules").
		WillReturnError(&pq.Error{Code: "23505", Constraint: constraintWindowStart})
	mock.ExpectRollback()

	err := repo.ReplaceForDoctor(context.Background(), 5, []*model.WeeklyAvailabilityWindow{
		{DayOfWeek: time.Monday, StartTime: model.NewTimeOfDay(9, 0), EndTime: model.NewTimeOfDay(10, 0)},
		{DayOfWeek: time.Monday, StartTime: model.NewTimeOfDay(9, 0), EndTime: model.NewTimeOfDay(11, 0)},
	})
	assert.True(t, errors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepository_DeleteMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewScheduleRepository(db)

	mock.ExpectExec("DELETE FROM schedules WHERE id").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.True(t, errors.IsNotFound(repo.Delete(context.Background(), 1)))
}

func TestPaymentRepository_CreateUnknownUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)
	userID := int64(999)

	mock.ExpectExec("INSERT INTO payment_transactions").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "payment_transactions_user_id_fkey"})

	err := repo.Create(context.Background(), &model.PaymentTransaction{UserID: &userID, Status: model.TransactionStatusComplete})
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMembershipRepository_ActivateReplay(t *testing.T) {
	db, mock := newMock(t)
	repo := NewMembershipRepository(db)

	now := time.Now()
	cols := []string{"id", "user_id", "tier", "status", "start_date", "end_date", "payment_reference", "created_at", "updated_at"}

	mock.ExpectQuery("INSERT INTO memberships").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM memberships").
		WithArgs(int64(47)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(1), int64(47), "premium", "active", now, now.AddDate(0, 0, 30), "pf-1", now, now))

	m, changed, err := repo.Activate(context.Background(), &model.MembershipActivation{
		UserID: 47, Tier: "premium", StartDate: now, EndDate: now.AddDate(0, 0, 30), PaymentReference: "pf-1",
	})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "premium", m.Tier)
}

func TestOutboxRepository_Claim(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOutboxRepository(db)

	now := time.Now()
	mock.ExpectQuery("UPDATE outbox_events").
		WithArgs(10, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "event_type", "payload", "status", "error_message", "created_at",
			"processed_at", "updated_at", "retry_count", "retry_at",
		}).AddRow("8f0a5a5e-4a4c-4d0a-9d35-0d3b3c1f2a11", model.EventBookingCreated, []byte(`{"booking_id":1}`),
			"processing", nil, now, nil, now, 0, nil))

	events, err := repo.GetPendingEventsWithLock(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxStatusProcessing, events[0].Status)
	assert.JSONEq(t, `{"booking_id":1}`, string(events[0].Payload))
}
