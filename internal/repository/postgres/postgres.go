package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/medmap/scheduling-api/internal/repository"
)

var _ repository.Transactor = (*Transactor)(nil)

type scheduleRepository struct {
	BaseRepository
}

type bookingRepository struct {
	BaseRepository
}

type doctorRepository struct {
	db *sqlx.DB
}

type contactRepository struct {
	db *sqlx.DB
}

type paymentRepository struct {
	db *sqlx.DB
}

type membershipRepository struct {
	BaseRepository
}

func NewScheduleRepository(db *sqlx.DB) repository.ScheduleRepository {
	return &scheduleRepository{NewBaseRepository(db)}
}

func NewBookingRepository(db *sqlx.DB) repository.BookingRepository {
	return &bookingRepository{NewBaseRepository(db)}
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{db: db}
}

func NewContactRepository(db *sqlx.DB) repository.ContactRepository {
	return &contactRepository{db: db}
}

func NewPaymentRepository(db *sqlx.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func NewMembershipRepository(db *sqlx.DB) repository.MembershipRepository {
	return &membershipRepository{NewBaseRepository(db)}
}
