package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-workflow-engine/internal/booking"
)

func createAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		date, ok := parseDate(req.AppointmentDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "appointment_date must be YYYY-MM-DD")
			return
		}

		appt, err := svc.Create(r.Context(), booking.CreateParams{
			PatientName:     req.PatientName,
			DoctorName:      req.DoctorName,
			DepartmentName:  req.DepartmentName,
			AppointmentDate: date,
			PreferredTime:   req.PreferredTime,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func updateAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID := chi.URLParam(r, "bookingID")

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		params := booking.UpdateParams{
			PatientName:    req.PatientName,
			DoctorName:     req.DoctorName,
			DepartmentName: req.DepartmentName,
			PreferredTime:  req.PreferredTime,
		}
		if req.AppointmentDate != nil {
			date, ok := parseDate(*req.AppointmentDate)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_date", "appointment_date must be YYYY-MM-DD")
				return
			}
			params.AppointmentDate = &date
		}
		if req.Status != nil {
			status := booking.Status(*req.Status)
			params.Status = &status
		}

		appt, err := svc.Update(r.Context(), bookingID, params)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Get(r.Context(), chi.URLParam(r, "bookingID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()

		patient := qs.Get("patient")
		if patient == "" {
			writeError(w, http.StatusBadRequest, "missing_patient", "patient query parameter is required")
			return
		}

		limit, _ := strconv.Atoi(qs.Get("limit"))
		offset, _ := strconv.Atoi(qs.Get("offset"))

		appointments, err := svc.ListByPatient(r.Context(), patient, limit, offset)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appointments))
		for i := range appointments {
			resp = append(resp, toAppointmentResponse(&appointments[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
