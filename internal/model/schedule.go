package model

import (
	"fmt"
	"time"
)

// WeeklyAvailabilityWindow is one recurring block of bookable time for a doctor.
// DayOfWeek follows time.Weekday: 0 is Sunday.
type WeeklyAvailabilityWindow struct {
	Base
	DoctorID    int64        `db:"doctor_id" json:"doctor_id"`
	DayOfWeek   time.Weekday `db:"day_of_week" json:"day_of_week"`
	StartTime   TimeOfDay    `db:"start_time" json:"start_time"`
	EndTime     TimeOfDay    `db:"end_time" json:"end_time"`
	IsAvailable bool         `db:"is_available" json:"is_available"`
}

// Validate checks the window's own fields. Uniqueness and overlap are storage concerns.
func (w *WeeklyAvailabilityWindow) Validate() error {
	if w.DoctorID <= 0 {
		return fmt.Errorf("doctor is required")
	}
	if w.DayOfWeek < time.Sunday || w.DayOfWeek > time.Saturday {
		return fmt.Errorf("day_of_week must be between 0 (Sunday) and 6 (Saturday)")
	}
	if !w.StartTime.Valid() || !w.EndTime.Valid() {
		return fmt.Errorf("start_time and end_time must be within the day")
	}
	if w.EndTime <= w.StartTime {
		return fmt.Errorf("end_time must be after start_time")
	}
	return nil
}

// Overlaps reports whether two windows share a weekday and intersect in time.
func (w *WeeklyAvailabilityWindow) Overlaps(other *WeeklyAvailabilityWindow) bool {
	return w.DoctorID == other.DoctorID &&
		w.DayOfWeek == other.DayOfWeek &&
		w.StartTime < other.EndTime &&
		other.StartTime < w.EndTime
}

type CreateWindowRequest struct {
	DoctorID    int64  `json:"doctor" binding:"required,gt=0"`
	DayOfWeek   *int   `json:"day_of_week" binding:"required,min=0,max=6"`
	StartTime   string `json:"start_time" binding:"required,hhmm"`
	EndTime     string `json:"end_time" binding:"required,hhmm"`
	IsAvailable *bool  `json:"is_available"`
}

type UpdateWindowRequest struct {
	DayOfWeek   *int    `json:"day_of_week" binding:"omitempty,min=0,max=6"`
	StartTime   *string `json:"start_time" binding:"omitempty,hhmm"`
	EndTime     *string `json:"end_time" binding:"omitempty,hhmm"`
	IsAvailable *bool   `json:"is_available"`
}

type ReplaceWindowsRequest struct {
	Windows []ReplaceWindowItem `json:"windows" binding:"dive"`
}

type ReplaceWindowItem struct {
	DayOfWeek   *int   `json:"day_of_week" binding:"required,min=0,max=6"`
	StartTime   string `json:"start_time" binding:"required,hhmm"`
	EndTime     string `json:"end_time" binding:"required,hhmm"`
	IsAvailable *bool  `json:"is_available"`
}

// WindowPatch carries the optional fields of a window update.
type WindowPatch struct {
	DayOfWeek   *time.Weekday
	StartTime   *TimeOfDay
	EndTime     *TimeOfDay
	IsAvailable *bool
}

func (p WindowPatch) Apply(w *WeeklyAvailabilityWindow) {
	if p.DayOfWeek != nil {
		w.DayOfWeek = *p.DayOfWeek
	}
	if p.StartTime != nil {
		w.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		w.EndTime = *p.EndTime
	}
	if p.IsAvailable != nil {
		w.IsAvailable = *p.IsAvailable
	}
}

// SlotAvailability is the public view of one derived slot.
type SlotAvailability struct {
	Time      TimeOfDay `json:"time"`
	Available bool      `json:"available"`
}
