package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hackgods/clinic-workflow-engine/internal/booking"
	"github.com/hackgods/clinic-workflow-engine/internal/clinicerr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps the workflow error taxonomy onto HTTP. Unrecognized
// errors are internal.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		notFound   *clinicerr.NotFoundError
		conflict   *clinicerr.ConflictError
		transition *clinicerr.StateTransitionError
		validation *clinicerr.ValidationError
	)

	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.As(err, &transition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.As(err, &validation):
		code := "validation_failed"
		if validation.Capacity {
			code = "capacity_exceeded"
		}
		writeError(w, http.StatusUnprocessableEntity, code, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		BookingID:       a.BookingID,
		PatientName:     a.PatientName,
		DoctorName:      a.DoctorName,
		DepartmentName:  a.DepartmentName,
		AppointmentDate: a.AppointmentDate.Format(dateLayout),
		PreferredTime:   a.PreferredTime,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
	}
}
