package booking

import (
	"context"
	"errors"

	"github.com/hackgods/clinic-workflow-engine/internal/schedule"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// AdmissionCheck re-validates availability against a WindowSource scoped to
// the committing transaction, with the schedule rows locked. Returning an
// error aborts the write.
type AdmissionCheck func(ctx context.Context, src schedule.WindowSource) error

// Repository contains all DB interactions needed by the booking service.
type Repository interface {
	GetByBookingID(ctx context.Context, bookingID string) (*Appointment, error)
	ListByPatient(ctx context.Context, patientName string, limit, offset int) ([]Appointment, error)

	// CreateAdmitted and UpdateAdmitted run the check and the write in one
	// transaction. A nil check skips re-validation (cancellation path).
	CreateAdmitted(ctx context.Context, appt *Appointment, check AdmissionCheck) (*Appointment, error)
	UpdateAdmitted(ctx context.Context, appt *Appointment, check AdmissionCheck) (*Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
