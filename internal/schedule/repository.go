package schedule

import (
	"context"
	"errors"
	"time"
)

var (
	ErrScheduleNotFound = errors.New("schedule not found")
)

// CanceledStatus is the appointment status excluded from capacity counting.
// It must equal the value the booking package stores, compared case
// sensitively by Postgres.
const CanceledStatus = "Canceled"

// WindowSource is the read surface the resolver needs. The pool-backed
// repository serves read-only availability checks; a transaction-scoped
// locking repository serves the re-validation inside admission commits.
type WindowSource interface {
	ActiveWindows(ctx context.Context, doctorName, departmentName string, dayOfWeek int) ([]DoctorSchedule, error)
	BookedCount(ctx context.Context, doctorName string, date time.Time, startTime, endTime, excludeBookingID string) (int, error)
}

// Repository contains all DB interactions needed by the schedule service.
type Repository interface {
	WindowSource
	Upsert(ctx context.Context, s *DoctorSchedule) (*DoctorSchedule, error)
	ListByDoctor(ctx context.Context, doctorName, departmentName string) ([]DoctorSchedule, error)
}
