package model

import (
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

const (
	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusComplete = "COMPLETE"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted
}

// Booking is one patient's claim on a (doctor, date, time) slot. Fees are
// snapshotted at creation and never recomputed.
type Booking struct {
	Base
	PatientID       int64           `db:"patient_id" json:"user"`
	DoctorID        int64           `db:"doctor_id" json:"doctor"`
	AppointmentDate Date            `db:"appointment_date" json:"appointment_date"`
	AppointmentTime TimeOfDay       `db:"appointment_time" json:"appointment_time"`
	Status          BookingStatus   `db:"status" json:"status"`
	PaymentStatus   string          `db:"payment_status" json:"payment_status"`
	BookingFee      decimal.Decimal `db:"booking_fee" json:"booking_fee"`
	ConsultationFee decimal.Decimal `db:"consultation_fee" json:"consultation_fee"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	Notes           *string         `db:"notes" json:"notes,omitempty"`
}

type CreateBookingRequest struct {
	DoctorID        int64   `json:"doctor" binding:"required,gt=0"`
	AppointmentDate string  `json:"appointment_date" binding:"required,isodate"`
	AppointmentTime string  `json:"appointment_time" binding:"required,hhmm"`
	Notes           *string `json:"notes" binding:"omitempty,max=2000"`
}

type UpdateBookingRequest struct {
	AppointmentDate *string `json:"appointment_date" binding:"omitempty,isodate"`
	AppointmentTime *string `json:"appointment_time" binding:"omitempty,hhmm"`
	Notes           *string `json:"notes" binding:"omitempty,max=2000"`
}

// BookingPatch carries the optional fields of a booking update.
type BookingPatch struct {
	AppointmentDate *Date
	AppointmentTime *TimeOfDay
	Notes           *string
}

func (p BookingPatch) Reschedules() bool {
	return p.AppointmentDate != nil || p.AppointmentTime != nil
}

type BookingFilters struct {
	// Visibility scope; zero means unrestricted (staff).
	ParticipantUserID int64
	DoctorID          int64
	Status            BookingStatus
	AppointmentDate   *Date
	Pagination
}

type ListBookingsQuery struct {
	DoctorID        int64  `form:"doctor"`
	Status          string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled completed"`
	AppointmentDate string `form:"appointment_date" binding:"omitempty,isodate"`
	Page            int    `form:"page"`
	PageSize        int    `form:"page_size"`
}
