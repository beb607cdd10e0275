package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-workflow-engine/internal/clinicerr"
	redisclient "github.com/hackgods/clinic-workflow-engine/internal/redis"
	"github.com/hackgods/clinic-workflow-engine/internal/schedule"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentCanceled    = "APPOINTMENT_CANCELED"
)

type Service struct {
	repo    Repository
	windows schedule.WindowSource
	locker  redisclient.Locker
	log     zerolog.Logger
}

func NewService(repo Repository, windows schedule.WindowSource, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		windows: windows,
		locker:  locker,
		log:     log,
	}
}

type CreateParams struct {
	PatientName     string
	DoctorName      string
	DepartmentName  string
	AppointmentDate time.Time
	PreferredTime   string
}

type UpdateParams struct {
	PatientName     *string
	DoctorName      *string
	DepartmentName  *string
	AppointmentDate *time.Time
	PreferredTime   *string
	Status          *Status
}

// Create admits a new appointment. Availability is checked twice: a cheap
// read-only pass up front, then again inside the insert transaction with the
// schedule windows locked, so concurrent bookings for the last place in a
// window cannot both land.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Appointment, error) {
	if err := validateCreate(p); err != nil {
		return nil, err
	}

	q := schedule.Query{
		DoctorName:     p.DoctorName,
		DepartmentName: p.DepartmentName,
		Date:           p.AppointmentDate,
		PreferredTime:  p.PreferredTime,
	}

	avail, err := schedule.NewResolver(s.windows).Resolve(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("resolve availability: %w", err)
	}
	if !avail.IsAvailable {
		return nil, admissionError(avail)
	}

	appt := &Appointment{
		ID:              uuid.New(),
		BookingID:       uuid.NewString(),
		PatientName:     p.PatientName,
		DoctorName:      p.DoctorName,
		DepartmentName:  p.DepartmentName,
		AppointmentDate: p.AppointmentDate,
		PreferredTime:   p.PreferredTime,
		Status:          StatusNew,
	}

	var created *Appointment

	err = s.locker.WithLock(ctx, admissionKey(p.DoctorName, p.AppointmentDate), func(lockCtx context.Context) error {
		c, err := s.repo.CreateAdmitted(lockCtx, appt, admissionCheck(q))
		if err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, clinicerr.NewConflict("appointment", "this window is currently being booked, please retry")
		}
		return nil, err
	}

	s.logEvent(ctx, created.BookingID, EventAppointmentBooked, map[string]any{
		"doctor":     created.DoctorName,
		"department": created.DepartmentName,
		"date":       created.AppointmentDate.Format("2006-01-02"),
		"time":       created.PreferredTime,
	})

	s.log.Info().
		Str("booking_id", created.BookingID).
		Str("doctor", created.DoctorName).
		Str("time", created.PreferredTime).
		Msg("appointment admitted")

	return created, nil
}

// Update reschedules or cancels. Cancellation is always admitted; anything
// else re-runs the availability check against the doctor/date/time that will
// result from the update, excluding the appointment's own slot.
func (s *Service) Update(ctx context.Context, bookingID string, p UpdateParams) (*Appointment, error) {
	if bookingID == "" {
		return nil, clinicerr.NewValidation("booking_id", "is required")
	}

	current, err := s.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, clinicerr.NewNotFound("appointment", bookingID)
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	merged := *current
	if p.PatientName != nil {
		merged.PatientName = *p.PatientName
	}
	if p.DoctorName != nil {
		merged.DoctorName = *p.DoctorName
	}
	if p.DepartmentName != nil {
		merged.DepartmentName = *p.DepartmentName
	}
	if p.AppointmentDate != nil {
		merged.AppointmentDate = *p.AppointmentDate
	}
	if p.PreferredTime != nil {
		merged.PreferredTime = *p.PreferredTime
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, clinicerr.NewValidation("status", fmt.Sprintf("unknown status %q", *p.Status))
		}
		merged.Status = *p.Status
	}
	if _, err := schedule.ParseClock(merged.PreferredTime); err != nil {
		return nil, clinicerr.NewValidation("preferred_time", err.Error())
	}

	// Cancellation is always permitted, no availability re-validation.
	if merged.Status == StatusCanceled {
		updated, err := s.repo.UpdateAdmitted(ctx, &merged, nil)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return nil, clinicerr.NewNotFound("appointment", bookingID)
			}
			return nil, err
		}
		s.logEvent(ctx, bookingID, EventAppointmentCanceled, map[string]any{})
		s.log.Info().Str("booking_id", bookingID).Msg("appointment canceled")
		return updated, nil
	}

	q := schedule.Query{
		DoctorName:       merged.DoctorName,
		DepartmentName:   merged.DepartmentName,
		Date:             merged.AppointmentDate,
		PreferredTime:    merged.PreferredTime,
		ExcludeBookingID: bookingID,
	}

	avail, err := schedule.NewResolver(s.windows).Resolve(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("resolve availability: %w", err)
	}
	if !avail.IsAvailable {
		return nil, admissionError(avail)
	}

	var updated *Appointment

	err = s.locker.WithLock(ctx, admissionKey(merged.DoctorName, merged.AppointmentDate), func(lockCtx context.Context) error {
		u, err := s.repo.UpdateAdmitted(lockCtx, &merged, admissionCheck(q))
		if err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, clinicerr.NewConflict("appointment", "this window is currently being booked, please retry")
		}
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, clinicerr.NewNotFound("appointment", bookingID)
		}
		return nil, err
	}

	s.logEvent(ctx, bookingID, EventAppointmentRescheduled, map[string]any{
		"doctor": updated.DoctorName,
		"date":   updated.AppointmentDate.Format("2006-01-02"),
		"time":   updated.PreferredTime,
	})

	return updated, nil
}

// Get retrieves an appointment by its booking reference
func (s *Service) Get(ctx context.Context, bookingID string) (*Appointment, error) {
	appt, err := s.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, clinicerr.NewNotFound("appointment", bookingID)
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// ListByPatient retrieves appointments for a specific patient
func (s *Service) ListByPatient(ctx context.Context, patientName string, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appointments, err := s.repo.ListByPatient(ctx, patientName, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appointments, nil
}

func validateCreate(p CreateParams) error {
	if p.PatientName == "" {
		return clinicerr.NewValidation("patient_name", "is required")
	}
	if p.DoctorName == "" {
		return clinicerr.NewValidation("doctor_name", "is required")
	}
	if p.DepartmentName == "" {
		return clinicerr.NewValidation("department_name", "is required")
	}
	if p.AppointmentDate.IsZero() {
		return clinicerr.NewValidation("appointment_date", "is required")
	}
	if p.PreferredTime == "" {
		return clinicerr.NewValidation("preferred_time", "is required")
	}
	if _, err := schedule.ParseClock(p.PreferredTime); err != nil {
		return clinicerr.NewValidation("preferred_time", err.Error())
	}
	return nil
}

// admissionCheck re-resolves the same query inside the committing
// transaction. The resolver sees the transaction's locked snapshot, so a
// concurrent booking that already claimed the last place makes this fail.
func admissionCheck(q schedule.Query) AdmissionCheck {
	return func(ctx context.Context, src schedule.WindowSource) error {
		avail, err := schedule.NewResolver(src).Resolve(ctx, q)
		if err != nil {
			return fmt.Errorf("re-resolve availability: %w", err)
		}
		if !avail.IsAvailable {
			return admissionError(avail)
		}
		return nil
	}
}

func admissionError(a *schedule.Availability) error {
	switch a.Reason {
	case schedule.ReasonWindowFull, schedule.ReasonDayFull:
		return clinicerr.NewCapacity(a.Reason)
	default:
		return clinicerr.NewValidation("", a.Reason)
	}
}

func admissionKey(doctorName string, date time.Time) string {
	return fmt.Sprintf("booking:%s:%s", doctorName, date.Format("2006-01-02"))
}

func (s *Service) logEvent(ctx context.Context, bookingID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	bid := bookingID

	ev := EventLog{
		EventType: eventType,
		BookingID: &bid,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Str("booking_id", bookingID).Msg("failed to insert event log")
	}
}
