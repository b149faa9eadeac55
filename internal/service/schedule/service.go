package schedule

import (
	"context"
	"time"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/internal/repository"
	"github.com/medmap/scheduling-api/pkg/errors"
	"github.com/medmap/scheduling-api/pkg/logger"
	"github.com/medmap/scheduling-api/pkg/metrics"
)

type Service struct {
	windows repository.ScheduleRepository
	doctors repository.DoctorRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(windows repository.ScheduleRepository, doctors repository.DoctorRepository, logger *logger.Logger, metrics *metrics.Metrics) *Service {
	return &Service{
		windows: windows,
		doctors: doctors,
		logger:  logger,
		metrics: metrics,
	}
}

// authorize loads the doctor and checks the requester owns it or is staff.
func (s *Service) authorize(ctx context.Context, requester *model.Identity, doctorID int64) (*model.Doctor, error) {
	doctor, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !requester.IsStaff() && !requester.OwnsDoctor(doctor) {
		return nil, errors.Permission("only the doctor or an administrator can manage this schedule")
	}
	return doctor, nil
}

func (s *Service) CreateWindow(ctx context.Context, requester *model.Identity, w *model.WeeklyAvailabilityWindow) (*model.WeeklyAvailabilityWindow, error) {
	if err := w.Validate(); err != nil {
		return nil, errors.Validation(err.Error(), err)
	}
	if _, err := s.authorize(ctx, requester, w.DoctorID); err != nil {
		return nil, err
	}
	if err := s.windows.Create(ctx, w); err != nil {
		return nil, s.observe(err)
	}

	s.logger.Info("schedule window created",
		"window_id", w.ID,
		"doctor_id", w.DoctorID,
		"day_of_week", int(w.DayOfWeek))
	return w, nil
}

func (s *Service) UpdateWindow(ctx context.Context, requester *model.Identity, id int64, patch model.WindowPatch) (*model.WeeklyAvailabilityWindow, error) {
	w, err := s.windows.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, requester, w.DoctorID); err != nil {
		return nil, err
	}

	patch.Apply(w)
	if err := w.Validate(); err != nil {
		return nil, errors.Validation(err.Error(), err)
	}
	if err := s.windows.Update(ctx, w); err != nil {
		return nil, s.observe(err)
	}
	return w, nil
}

func (s *Service) DeleteWindow(ctx context.Context, requester *model.Identity, id int64) error {
	w, err := s.windows.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.authorize(ctx, requester, w.DoctorID); err != nil {
		return err
	}
	return s.windows.Delete(ctx, id)
}

// ListWindows returns the doctor's windows ordered by (day_of_week, start_time).
func (s *Service) ListWindows(ctx context.Context, doctorID int64) ([]*model.WeeklyAvailabilityWindow, error) {
	if doctorID <= 0 {
		return nil, errors.Validation("doctor is required", nil)
	}
	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.windows.ListByDoctor(ctx, doctorID)
}

// BulkDeleteByDoctor removes every window of the doctor and returns how many went.
func (s *Service) BulkDeleteByDoctor(ctx context.Context, requester *model.Identity, doctorID int64) (int64, error) {
	if _, err := s.authorize(ctx, requester, doctorID); err != nil {
		return 0, err
	}

	n, err := s.windows.DeleteByDoctor(ctx, doctorID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("schedule cleared", "doctor_id", doctorID, "deleted", n)
	return n, nil
}

// ReplaceWindows swaps the doctor's whole schedule for windows in one step.
// Nothing changes if any window is invalid or conflicts with another.
func (s *Service) ReplaceWindows(ctx context.Context, requester *model.Identity, doctorID int64, windows []*model.WeeklyAvailabilityWindow) ([]*model.WeeklyAvailabilityWindow, error) {
	for _, w := range windows {
		w.DoctorID = doctorID
		if err := w.Validate(); err != nil {
			return nil, errors.Validation(err.Error(), err)
		}
	}
	if _, err := s.authorize(ctx, requester, doctorID); err != nil {
		return nil, err
	}
	if err := s.windows.ReplaceForDoctor(ctx, doctorID, windows); err != nil {
		return nil, s.observe(err)
	}
	return s.windows.ListByDoctor(ctx, doctorID)
}

func (s *Service) observe(err error) error {
	if appErr, ok := errors.As(err); ok && appErr.Code == errors.ErrConflict {
		s.metrics.BookingConflicts.WithLabelValues(appErr.Reason).Inc()
	}
	return err
}

// Granularity converts a minute count from configuration, falling back to the default.
func Granularity(minutes int) time.Duration {
	if minutes <= 0 {
		return DefaultGranularity
	}
	return time.Duration(minutes) * time.Minute
}
