package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medmap/scheduling-api/internal/model"
)

// Transactor runs fn in one storage transaction carried by the ctx it passes
// on. Repository calls made with that ctx join the transaction, and every
// write is rolled back when fn fails.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// All repository interfaces in one file. Implementations enforce uniqueness
// atomically at write time and report violations as ConflictError.
type (
	// ScheduleRepository owns WeeklyAvailabilityWindow rows.
	ScheduleRepository interface {
		// Create fails with ConflictError when (doctor, day, start) exists or the window overlaps another.
		Create(ctx context.Context, window *model.WeeklyAvailabilityWindow) error
		Get(ctx context.Context, id int64) (*model.WeeklyAvailabilityWindow, error)
		Update(ctx context.Context, window *model.WeeklyAvailabilityWindow) error
		Delete(ctx context.Context, id int64) error
		// ListByDoctor orders by (day_of_week, start_time).
		ListByDoctor(ctx context.Context, doctorID int64) ([]*model.WeeklyAvailabilityWindow, error)
		DeleteByDoctor(ctx context.Context, doctorID int64) (int64, error)
		// ReplaceForDoctor deletes all of a doctor's windows and inserts the given ones in one transaction.
		ReplaceForDoctor(ctx context.Context, doctorID int64, windows []*model.WeeklyAvailabilityWindow) error
	}

	// BookingRepository is the Booking Ledger.
	BookingRepository interface {
		// Create fails with ConflictError when a non-cancelled booking holds the slot.
		Create(ctx context.Context, booking *model.Booking) error
		Get(ctx context.Context, id int64) (*model.Booking, error)
		List(ctx context.Context, filters *model.BookingFilters) ([]*model.Booking, error)
		// TakenTimes returns appointment times of non-cancelled bookings for the doctor and date.
		TakenTimes(ctx context.Context, doctorID int64, date model.Date) ([]model.TimeOfDay, error)
		// Transition moves the booking to `to` only if its current status is one of `from`.
		// It returns the updated row and whether a change was applied.
		Transition(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus, paymentStatus *string) (*model.Booking, bool, error)
		// Update writes notes and appointment date/time; rescheduling is subject to the slot constraint.
		Update(ctx context.Context, booking *model.Booking) error
	}

	// DoctorRepository reads doctor profiles owned by the identity collaborator.
	DoctorRepository interface {
		Get(ctx context.Context, id int64) (*model.Doctor, error)
	}

	// ContactRepository reads user contact details owned by the identity collaborator.
	ContactRepository interface {
		Get(ctx context.Context, userID int64) (*model.Contact, error)
	}

	PaymentRepository interface {
		Create(ctx context.Context, tx *model.PaymentTransaction) error
		List(ctx context.Context, filters *model.TransactionFilters) ([]*model.PaymentTransaction, error)
	}

	MembershipRepository interface {
		GetByUser(ctx context.Context, userID int64) (*model.Membership, error)
		// Activate upserts the membership, overwriting tier and dates. It reports
		// false when the same payment reference was already applied.
		Activate(ctx context.Context, activation *model.MembershipActivation) (*model.Membership, bool, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
