package schedule

import (
	"sort"
	"time"

	"github.com/medmap/scheduling-api/internal/model"
)

const DefaultGranularity = 30 * time.Minute

// DeriveSlots returns the bookable start times for date: every granularity
// step inside an available window for date's weekday whose slot fits before
// the window ends. The result is sorted and free of duplicates.
func DeriveSlots(windows []*model.WeeklyAvailabilityWindow, date model.Date, granularity time.Duration) []model.TimeOfDay {
	if granularity < time.Minute {
		granularity = DefaultGranularity
	}
	step := model.TimeOfDay(granularity / time.Minute)
	weekday := date.Weekday()

	seen := make(map[model.TimeOfDay]struct{})
	slots := []model.TimeOfDay{}
	for _, w := range windows {
		if w.DayOfWeek != weekday || !w.IsAvailable {
			continue
		}
		for t := w.StartTime; t+step <= w.EndTime; t += step {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			slots = append(slots, t)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots
}

// Offers reports whether t is one of the derived slots for date.
func Offers(windows []*model.WeeklyAvailabilityWindow, date model.Date, t model.TimeOfDay, granularity time.Duration) bool {
	for _, slot := range DeriveSlots(windows, date, granularity) {
		if slot == t {
			return true
		}
	}
	return false
}

// subtract returns the members of all not present in taken, preserving order.
func subtract(all, taken []model.TimeOfDay) []model.TimeOfDay {
	busy := make(map[model.TimeOfDay]struct{}, len(taken))
	for _, t := range taken {
		busy[t] = struct{}{}
	}
	free := make([]model.TimeOfDay, 0, len(all))
	for _, t := range all {
		if _, ok := busy[t]; !ok {
			free = append(free, t)
		}
	}
	return free
}
