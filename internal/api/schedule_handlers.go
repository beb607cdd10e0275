package api

import (
	"encoding/json"
	"net/http"

	"github.com/hackgods/clinic-workflow-engine/internal/schedule"
)

func resolveAvailabilityHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()

		dateStr := qs.Get("date")
		date, ok := parseDate(dateStr)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		q := schedule.Query{
			DoctorName:       qs.Get("doctor"),
			DepartmentName:   qs.Get("department"),
			Date:             date,
			PreferredTime:    qs.Get("preferred_time"),
			ExcludeBookingID: qs.Get("exclude_booking_id"),
		}

		avail, err := svc.ResolveAvailability(r.Context(), q)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, avail)
	}
}

func upsertScheduleHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpsertScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}

		sched := &schedule.DoctorSchedule{
			DoctorName:      req.DoctorName,
			DepartmentName:  req.DepartmentName,
			DayOfWeek:       req.DayOfWeek,
			StartTime:       req.StartTime,
			EndTime:         req.EndTime,
			MaxAppointments: req.MaxAppointments,
			IsActive:        active,
		}

		saved, err := svc.UpsertSchedule(r.Context(), sched)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, saved)
	}
}

func listSchedulesHandler(svc *schedule.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()

		schedules, err := svc.ListSchedules(r.Context(), qs.Get("doctor"), qs.Get("department"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, schedules)
	}
}
