package model

import "time"

// Domain event types. They double as broker channel names.
const (
	EventBookingCreated      = "booking.created"
	EventBookingConfirmed    = "booking.confirmed"
	EventBookingCancelled    = "booking.cancelled"
	EventBookingCompleted    = "booking.completed"
	EventMembershipActivated = "membership.activated"
)

var BookingEventTypes = []string{
	EventBookingCreated,
	EventBookingConfirmed,
	EventBookingCancelled,
	EventBookingCompleted,
}

type BookingEvent struct {
	BookingID       int64         `json:"booking_id"`
	PatientID       int64         `json:"patient_id"`
	DoctorID        int64         `json:"doctor_id"`
	AppointmentDate Date          `json:"appointment_date"`
	AppointmentTime TimeOfDay     `json:"appointment_time"`
	Status          BookingStatus `json:"status"`
	// ActorID is the user who caused the transition; zero for system transitions.
	ActorID    int64     `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewBookingEvent(b *Booking, actorID int64, at time.Time) BookingEvent {
	return BookingEvent{
		BookingID:       b.ID,
		PatientID:       b.PatientID,
		DoctorID:        b.DoctorID,
		AppointmentDate: b.AppointmentDate,
		AppointmentTime: b.AppointmentTime,
		Status:          b.Status,
		ActorID:         actorID,
		OccurredAt:      at,
	}
}

type MembershipEvent struct {
	UserID     int64     `json:"user_id"`
	Tier       string    `json:"tier"`
	EndDate    time.Time `json:"end_date"`
	OccurredAt time.Time `json:"occurred_at"`
}
