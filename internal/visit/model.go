package visit

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusIntake         Status = "intake"
	StatusQueue          Status = "queue"
	StatusDoctorAssigned Status = "doctor_assigned"
	StatusInConsultation Status = "in_consultation"
	StatusLabRequested   Status = "lab_requested"
	StatusPharmacy       Status = "pharmacy"
	StatusCompleted      Status = "completed"
	StatusArchived       Status = "archived"
)

type Action string

const (
	ActionMoveToQueue       Action = "move_to_queue"
	ActionAssignDoctor      Action = "assign_doctor"
	ActionStartConsultation Action = "start_consultation"
	ActionSaveConsultation  Action = "save_consultation"
	ActionRequestLab        Action = "request_lab"
	ActionMarkLabReady      Action = "mark_lab_ready"
	ActionSendPharmacy      Action = "send_pharmacy"
	ActionMarkDispensed     Action = "mark_dispensed"
	ActionComplete          Action = "complete"
	ActionArchive           Action = "archive"
	ActionReopen            Action = "reopen"
	ActionEscalateEmergency Action = "escalate_emergency"
)

// Visit is one check-up visit from intake to archive. Version increments by
// exactly 1 on every accepted mutation; writers compare-and-swap on it
// instead of locking.
type Visit struct {
	ID                    uuid.UUID
	PatientName           string
	Status                Status
	IsEmergency           bool
	Version               int
	AssignedDoctor        string
	Diagnosis             string
	ClinicalNotes         string
	LabRequested          bool
	LabResultReady        bool
	PrescriptionCreated   bool
	PrescriptionDispensed bool
	FollowUpDate          *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ActionPayload carries the optional fields an action may read or store.
type ActionPayload struct {
	AssignedDoctor string     `json:"assigned_doctor,omitempty"`
	Diagnosis      string     `json:"diagnosis,omitempty"`
	ClinicalNotes  string     `json:"clinical_notes,omitempty"`
	FollowUpDate   *time.Time `json:"follow_up_date,omitempty"`
}
