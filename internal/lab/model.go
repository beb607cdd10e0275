package lab

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending     Status = "Pending"
	StatusInProgress  Status = "In Progress"
	StatusResultReady Status = "Result Ready"
	StatusCompleted   Status = "Completed"
	StatusCancelled   Status = "Cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Action string

const (
	ActionStartProcessing Action = "start_processing"
	ActionSaveResults     Action = "save_results"
	ActionRelease         Action = "release"
	ActionReject          Action = "reject"
)

// LabRequest is one diagnostic request from order to released result.
type LabRequest struct {
	RequestID       uuid.UUID
	PatientName     string
	TestType        string
	Status          Status
	SampleCollected bool
	CollectedBy     string
	CollectedAt     *time.Time
	SpecimenType    string
	EncodedResults  string
	ResultEncodedAt *time.Time
	VerifiedBy      string
	VerifiedAt      *time.Time
	ReleasedBy      string
	ReleasedAt      *time.Time
	RejectReason    string
	ResampleFlag    bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ActivityEntry is one append-only audit row. Entries are ordered by creation
// time and never updated or deleted.
type ActivityEntry struct {
	ID        int64
	RequestID uuid.UUID
	Action    string
	Detail    string
	Actor     string
	CreatedAt time.Time
}

// ActionPayload carries the optional fields a lab action may read.
type ActionPayload struct {
	CollectedBy    string `json:"collected_by,omitempty"`
	SpecimenType   string `json:"specimen_type,omitempty"`
	EncodedResults string `json:"encoded_results,omitempty"`
	Finalize       bool   `json:"finalize,omitempty"`
	VerifiedBy     string `json:"verified_by,omitempty"`
	ReleasedBy     string `json:"released_by,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Resample       bool   `json:"resample,omitempty"`
	Actor          string `json:"actor,omitempty"`
}
