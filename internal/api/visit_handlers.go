package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-workflow-engine/internal/visit"
)

func createVisitHandler(svc *visit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateVisitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		v, err := svc.Intake(r.Context(), req.PatientName, req.IsEmergency)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toVisitResponse(v))
	}
}

func applyVisitActionHandler(svc *visit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_visit_id", "id must be a valid UUID")
			return
		}

		var req VisitActionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		v, err := svc.Apply(r.Context(), id, visit.Action(req.Action), req.ExpectedVersion, req.Payload)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toVisitResponse(v))
	}
}

func getVisitHandler(svc *visit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_visit_id", "id must be a valid UUID")
			return
		}

		v, err := svc.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toVisitResponse(v))
	}
}

func toVisitResponse(v *visit.Visit) VisitResponse {
	return VisitResponse{
		ID:                    v.ID,
		PatientName:           v.PatientName,
		Status:                string(v.Status),
		IsEmergency:           v.IsEmergency,
		Version:               v.Version,
		AssignedDoctor:        v.AssignedDoctor,
		Diagnosis:             v.Diagnosis,
		ClinicalNotes:         v.ClinicalNotes,
		LabRequested:          v.LabRequested,
		LabResultReady:        v.LabResultReady,
		PrescriptionCreated:   v.PrescriptionCreated,
		PrescriptionDispensed: v.PrescriptionDispensed,
		FollowUpDate:          v.FollowUpDate,
	}
}
