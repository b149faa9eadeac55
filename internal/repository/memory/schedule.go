package memory

import (
	"context"
	"sort"
	"time"

	"github.com/medmap/scheduling-api/internal/model"
	"github.com/medmap/scheduling-api/pkg/errors"
)

type ScheduleRepository struct {
	s *Store
}

func (r *ScheduleRepository) Create(ctx context.Context, window *model.WeeklyAvailabilityWindow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkLocked(window, 0, nil); err != nil {
		return err
	}
	r.insertLocked(window)
	return nil
}

func (r *ScheduleRepository) insertLocked(window *model.WeeklyAvailabilityWindow) {
	now := time.Now().UTC()
	window.ID = r.s.id()
	window.CreatedAt = now
	window.UpdatedAt = now
	cp := *window
	r.s.windows[cp.ID] = &cp
}

// checkLocked applies the foreign key, uniqueness and overlap rules against
// stored windows plus pending. The stored window with id self is ignored.
func (r *ScheduleRepository) checkLocked(w *model.WeeklyAvailabilityWindow, self int64, pending []*model.WeeklyAvailabilityWindow) error {
	if _, ok := r.s.doctors[w.DoctorID]; !ok {
		return errors.NotFound("doctor", nil)
	}
	existing := make([]*model.WeeklyAvailabilityWindow, 0, len(r.s.windows)+len(pending))
	for _, other := range r.s.windows {
		if other.ID != self {
			existing = append(existing, other)
		}
	}
	existing = append(existing, pending...)

	for _, other := range existing {
		if other.DoctorID == w.DoctorID && other.DayOfWeek == w.DayOfWeek && other.StartTime == w.StartTime {
			return errors.Conflict(errors.ReasonWindowExists, "a window already starts at this time on this day", nil)
		}
	}
	for _, other := range existing {
		if w.Overlaps(other) {
			return errors.Conflict(errors.ReasonWindowOverlap, "window overlaps an existing window", nil)
		}
	}
	return nil
}

func (r *ScheduleRepository) Get(ctx context.Context, id int64) (*model.WeeklyAvailabilityWindow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.windows[id]
	if !ok {
		return nil, errors.NotFound("schedule", nil)
	}
	cp := *w
	return &cp, nil
}

func (r *ScheduleRepository) Update(ctx context.Context, window *model.WeeklyAvailabilityWindow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.windows[window.ID]
	if !ok {
		return errors.NotFound("schedule", nil)
	}
	window.DoctorID = current.DoctorID
	if err := r.checkLocked(window, window.ID, nil); err != nil {
		return err
	}
	window.CreatedAt = current.CreatedAt
	window.UpdatedAt = time.Now().UTC()
	cp := *window
	r.s.windows[window.ID] = &cp
	return nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.windows[id]; !ok {
		return errors.NotFound("schedule", nil)
	}
	delete(r.s.windows, id)
	return nil
}

func (r *ScheduleRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]*model.WeeklyAvailabilityWindow, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	windows := []*model.WeeklyAvailabilityWindow{}
	for _, w := range r.s.windows {
		if w.DoctorID == doctorID {
			cp := *w
			windows = append(windows, &cp)
		}
	}
	sort.Slice(windows, func(i, j int) bool {
		if windows[i].DayOfWeek != windows[j].DayOfWeek {
			return windows[i].DayOfWeek < windows[j].DayOfWeek
		}
		return windows[i].StartTime < windows[j].StartTime
	})
	return windows, nil
}

func (r *ScheduleRepository) DeleteByDoctor(ctx context.Context, doctorID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, w := range r.s.windows {
		if w.DoctorID == doctorID {
			delete(r.s.windows, id)
			n++
		}
	}
	return n, nil
}

func (r *ScheduleRepository) ReplaceForDoctor(ctx context.Context, doctorID int64, windows []*model.WeeklyAvailabilityWindow) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.doctors[doctorID]; !ok {
		return errors.NotFound("doctor", nil)
	}

	// Validate against the post-delete state before touching anything.
	kept := make(map[int64]*model.WeeklyAvailabilityWindow)
	for id, w := range r.s.windows {
		if w.DoctorID != doctorID {
			kept[id] = w
		}
	}
	saved := r.s.windows
	r.s.windows = kept
	var pending []*model.WeeklyAvailabilityWindow
	for _, w := range windows {
		w.DoctorID = doctorID
		if err := r.checkLocked(w, 0, pending); err != nil {
			r.s.windows = saved
			return err
		}
		pending = append(pending, w)
	}
	for _, w := range windows {
		r.insertLocked(w)
	}
	return nil
}
