package postgres

import (
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/medmap/scheduling-api/pkg/errors"
)

// Constraint names declared in the migrations.
const (
	constraintBookingSlot   = "bookings_active_slot_key"
	constraintWindowStart   = "schedules_doctor_day_start_key"
	constraintWindowOverlap = "schedules_no_overlap"
	pqUniqueViolation       = "23505"
	pqForeignKeyViolation   = "23503"
	pqExclusionViolation    = "23P01"
	pqCheckViolation        = "23514"
)

// translate maps driver errors onto application errors. Anything it does not
// recognise is wrapped with the operation name.
func translate(err error, resource, op string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound(resource, err)
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation, pqExclusionViolation:
			reason, msg := conflictReason(pqErr.Constraint)
			return errors.Conflict(reason, msg, err)
		case pqForeignKeyViolation:
			return errors.NotFound(referencedResource(pqErr.Constraint), err)
		case pqCheckViolation:
			return errors.Validation(fmt.Sprintf("invalid %s", resource), err)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func conflictReason(constraint string) (string, string) {
	switch constraint {
	case constraintBookingSlot:
		return errors.ReasonSlotTaken, "this time slot is already booked"
	case constraintWindowStart:
		return errors.ReasonWindowExists, "a window already starts at this time on this day"
	case constraintWindowOverlap:
		return errors.ReasonWindowOverlap, "window overlaps an existing window"
	default:
		return "", "resource already exists"
	}
}

func referencedResource(constraint string) string {
	switch constraint {
	case "schedules_doctor_id_fkey", "bookings_doctor_id_fkey":
		return "doctor"
	case "bookings_patient_id_fkey", "memberships_user_id_fkey", "payment_transactions_user_id_fkey":
		return "user"
	default:
		return "referenced resource"
	}
}

func isNoRows(err error) bool {
	return stderrors.Is(err, sql.ErrNoRows)
}
