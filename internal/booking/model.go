package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusNew       Status = "New"
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusAccepted  Status = "Accepted"
	StatusAwaiting  Status = "Awaiting"
	StatusCanceled  Status = "Canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusPending, StatusConfirmed, StatusAccepted, StatusAwaiting, StatusCanceled:
		return true
	}
	return false
}

// Appointment is one admitted booking. Canceled appointments stay on file for
// audit but stop counting against window capacity.
type Appointment struct {
	ID              uuid.UUID
	BookingID       string
	PatientName     string
	DoctorName      string
	DepartmentName  string
	AppointmentDate time.Time
	PreferredTime   string
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type EventLog struct {
	ID        int64
	EventType string
	BookingID *string
	Payload   []byte
	CreatedAt time.Time
}
