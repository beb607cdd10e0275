package visit

import (
	"fmt"

	"github.com/hackgods/clinic-workflow-engine/internal/clinicerr"
)

// The transition table. Each action names its allowed source states, an
// optional guard over the payload-merged visit, a mutation, and the resulting
// state. Adding a state or action is a change here, not a branch scattered
// across handlers.
type rule struct {
	sources []Status
	guard   func(v *Visit, p ActionPayload) error
	apply   func(v *Visit, p ActionPayload)
	next    func(cur Status) Status
}

func stay(cur Status) Status { return cur }

func to(s Status) func(Status) Status {
	return func(Status) Status { return s }
}

var transitions = map[Action]rule{
	ActionMoveToQueue: {
		sources: []Status{StatusIntake},
		next:    to(StatusQueue),
	},
	ActionAssignDoctor: {
		sources: []Status{StatusQueue, StatusDoctorAssigned, StatusInConsultation},
		guard: func(v *Visit, p ActionPayload) error {
			if p.AssignedDoctor == "" {
				return clinicerr.NewValidation("assigned_doctor", "is required")
			}
			return nil
		},
		apply: func(v *Visit, p ActionPayload) {
			v.AssignedDoctor = p.AssignedDoctor
		},
		next: func(cur Status) Status {
			// Re-assignment while already in progress keeps the state.
			if cur == StatusQueue {
				return StatusDoctorAssigned
			}
			return cur
		},
	},
	ActionStartConsultation: {
		sources: []Status{StatusDoctorAssigned, StatusQueue},
		next:    to(StatusInConsultation),
	},
	ActionSaveConsultation: {
		sources: []Status{StatusInConsultation, StatusLabRequested},
		guard:   requireFindings,
		apply:   mergeFindings,
		next:    stay,
	},
	ActionRequestLab: {
		sources: []Status{StatusInConsultation, StatusDoctorAssigned},
		apply: func(v *Visit, p ActionPayload) {
			v.LabRequested = true
			v.LabResultReady = false
		},
		next: to(StatusLabRequested),
	},
	ActionMarkLabReady: {
		sources: []Status{StatusLabRequested},
		apply: func(v *Visit, p ActionPayload) {
			v.LabResultReady = true
		},
		next: to(StatusInConsultation),
	},
	ActionSendPharmacy: {
		sources: []Status{StatusInConsultation, StatusDoctorAssigned},
		apply: func(v *Visit, p ActionPayload) {
			v.PrescriptionCreated = true
		},
		next: to(StatusPharmacy),
	},
	ActionMarkDispensed: {
		sources: []Status{StatusPharmacy},
		apply: func(v *Visit, p ActionPayload) {
			v.PrescriptionDispensed = true
		},
		next: stay,
	},
	ActionComplete: {
		sources: []Status{StatusInConsultation, StatusPharmacy},
		guard: func(v *Visit, p ActionPayload) error {
			if err := requireFindings(v, p); err != nil {
				return err
			}
			if v.LabRequested && !v.LabResultReady {
				return clinicerr.NewValidation("lab_result", "lab results must be ready before completing the visit")
			}
			return nil
		},
		apply: mergeFindings,
		next:  to(StatusCompleted),
	},
	ActionArchive: {
		sources: []Status{StatusCompleted},
		next:    to(StatusArchived),
	},
	ActionReopen: {
		sources: []Status{StatusCompleted, StatusArchived},
		next:    to(StatusInConsultation),
	},
	ActionEscalateEmergency: {
		sources: []Status{
			StatusIntake, StatusQueue, StatusDoctorAssigned, StatusInConsultation,
			StatusLabRequested, StatusPharmacy, StatusCompleted,
		},
		apply: func(v *Visit, p ActionPayload) {
			v.IsEmergency = true
		},
		next: to(StatusInConsultation),
	},
}

// requireFindings checks diagnosis and clinical notes after merging the
// payload, so a save can supply one field and keep the stored other.
func requireFindings(v *Visit, p ActionPayload) error {
	diagnosis := v.Diagnosis
	if p.Diagnosis != "" {
		diagnosis = p.Diagnosis
	}
	notes := v.ClinicalNotes
	if p.ClinicalNotes != "" {
		notes = p.ClinicalNotes
	}
	if diagnosis == "" {
		return clinicerr.NewValidation("diagnosis", "is required")
	}
	if notes == "" {
		return clinicerr.NewValidation("clinical_notes", "is required")
	}
	return nil
}

func mergeFindings(v *Visit, p ActionPayload) {
	if p.Diagnosis != "" {
		v.Diagnosis = p.Diagnosis
	}
	if p.ClinicalNotes != "" {
		v.ClinicalNotes = p.ClinicalNotes
	}
	if p.FollowUpDate != nil {
		v.FollowUpDate = p.FollowUpDate
	}
}

// Transition validates action against v's current state and mutates v in
// place on success. Callers work on a copy and persist with a version CAS.
func Transition(v *Visit, action Action, p ActionPayload) error {
	r, ok := transitions[action]
	if !ok {
		return clinicerr.NewValidation("action", fmt.Sprintf("unknown action %q", action))
	}

	// Current product rule: archived visits stay archived, even for
	// emergencies.
	if action == ActionEscalateEmergency && v.Status == StatusArchived {
		return &clinicerr.StateTransitionError{
			Action:   string(action),
			Current:  string(v.Status),
			Required: sourceNames(r.sources),
			Detail:   "archived visits cannot be escalated",
		}
	}

	if !allowedFrom(r.sources, v.Status) {
		return &clinicerr.StateTransitionError{
			Action:   string(action),
			Current:  string(v.Status),
			Required: sourceNames(r.sources),
		}
	}

	if r.guard != nil {
		if err := r.guard(v, p); err != nil {
			return err
		}
	}
	if r.apply != nil {
		r.apply(v, p)
	}
	v.Status = r.next(v.Status)
	return nil
}

func allowedFrom(sources []Status, cur Status) bool {
	for _, s := range sources {
		if s == cur {
			return true
		}
	}
	return false
}

func sourceNames(sources []Status) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	return names
}
