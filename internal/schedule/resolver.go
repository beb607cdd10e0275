package schedule

import (
	"context"
	"fmt"
)

const (
	slotIncrementMinutes = 30
	maxRecommendedTimes  = 24
)

const (
	ReasonNoSchedule = "no active schedule for this date"
	ReasonOutside    = "outside schedule"
	ReasonWindowFull = "schedule full for this window"
	ReasonDayFull    = "all schedule windows are full for this date"
)

// Resolver computes bookable windows for a doctor/department/date. It is a
// pure function of persisted state at call time and takes no locks; callers
// that need the answer to still hold at commit must re-resolve against a
// locking WindowSource inside their transaction.
type Resolver struct {
	src WindowSource
}

func NewResolver(src WindowSource) *Resolver {
	return &Resolver{src: src}
}

func (r *Resolver) Resolve(ctx context.Context, q Query) (*Availability, error) {
	dayOfWeek := int(q.Date.Weekday())

	windows, err := r.src.ActiveWindows(ctx, q.DoctorName, q.DepartmentName, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("load schedule windows: %w", err)
	}
	if len(windows) == 0 {
		return &Availability{IsAvailable: false, Reason: ReasonNoSchedule}, nil
	}

	slots := make([]WindowSlot, 0, len(windows))
	var recommended []string
	anyOpen := false

	for _, w := range windows {
		startMin, err := ParseClock(w.StartTime)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", w.ID, err)
		}
		endMin, err := ParseClock(w.EndTime)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", w.ID, err)
		}

		booked, err := r.src.BookedCount(ctx, q.DoctorName, q.Date, w.StartTime, w.EndTime, q.ExcludeBookingID)
		if err != nil {
			return nil, fmt.Errorf("count booked for window %s: %w", w.ID, err)
		}

		remaining := w.MaxAppointments - booked
		if remaining < 0 {
			remaining = 0
		}
		isOpen := remaining > 0
		if isOpen {
			anyOpen = true
			for t := startMin; t < endMin && len(recommended) < maxRecommendedTimes; t += slotIncrementMinutes {
				recommended = append(recommended, formatClock(t))
			}
		}

		slots = append(slots, WindowSlot{
			ScheduleID:      w.ID,
			StartTime:       w.StartTime,
			EndTime:         w.EndTime,
			MaxAppointments: w.MaxAppointments,
			Booked:          booked,
			Remaining:       remaining,
			IsOpen:          isOpen,
		})
	}

	avail := &Availability{Slots: slots, RecommendedTimes: recommended}

	if q.PreferredTime != "" {
		preferredMin, err := ParseClock(q.PreferredTime)
		if err != nil {
			return nil, err
		}

		containing := -1
		for i, w := range windows {
			startMin, _ := ParseClock(w.StartTime)
			endMin, _ := ParseClock(w.EndTime)
			if preferredMin >= startMin && preferredMin < endMin {
				containing = i
				break
			}
		}

		switch {
		case containing < 0:
			avail.Reason = ReasonOutside
		case !slots[containing].IsOpen:
			avail.Reason = ReasonWindowFull
		default:
			avail.IsAvailable = true
		}
		return avail, nil
	}

	if !anyOpen {
		avail.Reason = ReasonDayFull
		return avail, nil
	}

	avail.IsAvailable = true
	return avail, nil
}
