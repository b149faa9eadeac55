package booking

import "github.com/medmap/scheduling-api/internal/model"

// transitions lists the statuses each target may be entered from.
var transitions = map[model.BookingStatus][]model.BookingStatus{
	model.BookingStatusConfirmed: {model.BookingStatusPending},
	model.BookingStatusCancelled: {model.BookingStatusPending, model.BookingStatusConfirmed},
	model.BookingStatusCompleted: {model.BookingStatusConfirmed},
}

// CanTransition reports whether from -> to is an edge of the booking lifecycle.
func CanTransition(from, to model.BookingStatus) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

var eventFor = map[model.BookingStatus]string{
	model.BookingStatusConfirmed: model.EventBookingConfirmed,
	model.BookingStatusCancelled: model.EventBookingCancelled,
	model.BookingStatusCompleted: model.EventBookingCompleted,
}
