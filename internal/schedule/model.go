package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DoctorSchedule is one weekly recurring availability window. Admins upsert
// these; rows are never deleted, only deactivated via IsActive.
type DoctorSchedule struct {
	ID              uuid.UUID
	DoctorName      string
	DepartmentName  string
	DayOfWeek       int // 0=Sunday .. 6=Saturday, matches time.Weekday
	StartTime       string
	EndTime         string
	MaxAppointments int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WindowSlot is one schedule window resolved against a concrete date.
type WindowSlot struct {
	ScheduleID      uuid.UUID `json:"schedule_id"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	MaxAppointments int       `json:"max_appointments"`
	Booked          int       `json:"booked"`
	Remaining       int       `json:"remaining"`
	IsOpen          bool      `json:"is_open"`
}

// Availability is the resolver's answer for one doctor/department/date.
type Availability struct {
	IsAvailable      bool         `json:"is_available"`
	Reason           string       `json:"reason,omitempty"`
	Slots            []WindowSlot `json:"slots"`
	RecommendedTimes []string     `json:"recommended_times"`
}

// Query identifies the availability question being asked. PreferredTime and
// ExcludeBookingID are optional; ExcludeBookingID keeps a rescheduled
// appointment from counting against its own window.
type Query struct {
	DoctorName       string
	DepartmentName   string
	Date             time.Time
	PreferredTime    string
	ExcludeBookingID string
}

// ParseClock converts a zero-padded "HH:MM" wall-clock string to minutes
// since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
