package schedule

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-workflow-engine/internal/clinicerr"
)

type Service struct {
	repo     Repository
	resolver *Resolver
	log      zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: NewResolver(repo),
		log:      log,
	}
}

// ResolveAvailability answers the availability question read-only.
func (s *Service) ResolveAvailability(ctx context.Context, q Query) (*Availability, error) {
	if q.DoctorName == "" {
		return nil, clinicerr.NewValidation("doctor_name", "is required")
	}
	if q.DepartmentName == "" {
		return nil, clinicerr.NewValidation("department_name", "is required")
	}
	if q.Date.IsZero() {
		return nil, clinicerr.NewValidation("appointment_date", "is required")
	}
	if q.PreferredTime != "" {
		if _, err := ParseClock(q.PreferredTime); err != nil {
			return nil, clinicerr.NewValidation("preferred_time", err.Error())
		}
	}
	return s.resolver.Resolve(ctx, q)
}

// UpsertSchedule creates or updates one weekly window. The unique key is
// (doctor, department, day, start, end); hitting it updates capacity and
// active flag in place.
func (s *Service) UpsertSchedule(ctx context.Context, sched *DoctorSchedule) (*DoctorSchedule, error) {
	if sched.DoctorName == "" {
		return nil, clinicerr.NewValidation("doctor_name", "is required")
	}
	if sched.DepartmentName == "" {
		return nil, clinicerr.NewValidation("department_name", "is required")
	}
	if sched.DayOfWeek < 0 || sched.DayOfWeek > 6 {
		return nil, clinicerr.NewValidation("day_of_week", "must be between 0 (Sunday) and 6 (Saturday)")
	}
	startMin, err := ParseClock(sched.StartTime)
	if err != nil {
		return nil, clinicerr.NewValidation("start_time", err.Error())
	}
	endMin, err := ParseClock(sched.EndTime)
	if err != nil {
		return nil, clinicerr.NewValidation("end_time", err.Error())
	}
	if startMin >= endMin {
		return nil, clinicerr.NewValidation("end_time", "must be after start_time")
	}
	if sched.MaxAppointments < 1 {
		return nil, clinicerr.NewValidation("max_appointments", "must be at least 1")
	}

	saved, err := s.repo.Upsert(ctx, sched)
	if err != nil {
		return nil, fmt.Errorf("upsert schedule: %w", err)
	}

	s.log.Info().
		Str("doctor", saved.DoctorName).
		Str("department", saved.DepartmentName).
		Int("day_of_week", saved.DayOfWeek).
		Str("window", saved.StartTime+"-"+saved.EndTime).
		Bool("active", saved.IsActive).
		Msg("schedule upserted")

	return saved, nil
}

// ListSchedules returns every window for a doctor in a department, active or
// not, for the admin view.
func (s *Service) ListSchedules(ctx context.Context, doctorName, departmentName string) ([]DoctorSchedule, error) {
	if doctorName == "" {
		return nil, clinicerr.NewValidation("doctor_name", "is required")
	}
	if departmentName == "" {
		return nil, clinicerr.NewValidation("department_name", "is required")
	}
	return s.repo.ListByDoctor(ctx, doctorName, departmentName)
}
