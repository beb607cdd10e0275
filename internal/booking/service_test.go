package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-workflow-engine/internal/clinicerr"
	redisclient "github.com/hackgods/clinic-workflow-engine/internal/redis"
	"github.com/hackgods/clinic-workflow-engine/internal/schedule"
)

// fakeStore backs both the booking repository and the schedule window source
// with the same map, so the admission check sees the bookings it races with.
type fakeStore struct {
	windows []schedule.DoctorSchedule
	appts   map[string]*Appointment
	events  []EventLog
}

func newFakeStore(windows ...schedule.DoctorSchedule) *fakeStore {
	return &fakeStore{windows: windows, appts: map[string]*Appointment{}}
}

// schedule.WindowSource

func (f *fakeStore) ActiveWindows(ctx context.Context, doctorName, departmentName string, dayOfWeek int) ([]schedule.DoctorSchedule, error) {
	var out []schedule.DoctorSchedule
	for _, w := range f.windows {
		if w.DoctorName == doctorName && w.DepartmentName == departmentName && w.DayOfWeek == dayOfWeek && w.IsActive {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeStore) BookedCount(ctx context.Context, doctorName string, date time.Time, startTime, endTime, excludeBookingID string) (int, error) {
	count := 0
	for _, a := range f.appts {
		// Case-sensitive string compare against the stored value, matching
		// what the SQL predicate does.
		if a.DoctorName != doctorName || string(a.Status) == schedule.CanceledStatus {
			continue
		}
		if a.AppointmentDate.Year() != date.Year() || a.AppointmentDate.YearDay() != date.YearDay() {
			continue
		}
		if excludeBookingID != "" && a.BookingID == excludeBookingID {
			continue
		}
		if a.PreferredTime >= startTime && a.PreferredTime < endTime {
			count++
		}
	}
	return count, nil
}

// Repository

func (f *fakeStore) GetByBookingID(ctx context.Context, bookingID string) (*Appointment, error) {
	a, ok := f.appts[bookingID]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ListByPatient(ctx context.Context, patientName string, limit, offset int) ([]Appointment, error) {
	var out []Appointment
	for _, a := range f.appts {
		if a.PatientName == patientName {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateAdmitted(ctx context.Context, appt *Appointment, check AdmissionCheck) (*Appointment, error) {
	if check != nil {
		if err := check(ctx, f); err != nil {
			return nil, err
		}
	}
	cp := *appt
	f.appts[cp.BookingID] = &cp
	return &cp, nil
}

func (f *fakeStore) UpdateAdmitted(ctx context.Context, appt *Appointment, check AdmissionCheck) (*Appointment, error) {
	if _, ok := f.appts[appt.BookingID]; !ok {
		return nil, ErrAppointmentNotFound
	}
	if check != nil {
		if err := check(ctx, f); err != nil {
			return nil, err
		}
	}
	cp := *appt
	f.appts[cp.BookingID] = &cp
	return &cp, nil
}

func (f *fakeStore) InsertEvent(ctx context.Context, ev EventLog) error {
	f.events = append(f.events, ev)
	return nil
}

// noopLocker always grants the lock.
type noopLocker struct{}

func (noopLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// heldLocker simulates a contended admission key.
type heldLocker struct{}

func (heldLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

// 2026-09-07 is a Monday.
var monday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

func mondayWindow(doctor string, max int) schedule.DoctorSchedule {
	return schedule.DoctorSchedule{
		ID:              uuid.New(),
		DoctorName:      doctor,
		DepartmentName:  "Cardiology",
		DayOfWeek:       int(time.Monday),
		StartTime:       "09:00",
		EndTime:         "12:00",
		MaxAppointments: max,
		IsActive:        true,
	}
}

func newTestService(store *fakeStore, locker redisclient.Locker) *Service {
	return NewService(store, store, locker, zerolog.Nop())
}

func createParams(patient, preferred string) CreateParams {
	return CreateParams{
		PatientName:     patient,
		DoctorName:      "Dr. Reyes",
		DepartmentName:  "Cardiology",
		AppointmentDate: monday,
		PreferredTime:   preferred,
	}
}

func TestCreateAdmitsAndLogsEvent(t *testing.T) {
	store := newFakeStore(mondayWindow("Dr. Reyes", 4))
	svc := newTestService(store, noopLocker{})

	appt, err := svc.Create(context.Background(), createParams("Alice", "09:15"))
	require.NoError(t, err)

	assert.Equal(t, StatusNew, appt.Status)
	assert.NotEmpty(t, appt.BookingID)

	require.Len(t, store.events, 1)
	assert.Equal(t, EventAppointmentBooked, store.events[0].EventType)
}

func TestCreateValidation(t *testing.T) {
	store := newFakeStore(mondayWindow("Dr. Reyes", 4))
	svc := newTestService(store, noopLocker{})

	cases := []struct {
		name   string
		mutate func(*CreateParams)
		field  string
	}{
		{"missing patient", func(p *CreateParams) { p.PatientName = "" }, "patient_name"},
		{"missing doctor", func(p *CreateParams) { p.DoctorName = "" }, "doctor_name"},
		{"missing department", func(p *CreateParams) { p.DepartmentName = "" }, "department_name"},
		{"zero date", func(p *CreateParams) { p.AppointmentDate = time.Time{} }, "appointment_date"},
		{"missing time", func(p *CreateParams) { p.PreferredTime = "" }, "preferred_time"},
		{"malformed time", func(p *CreateParams) { p.PreferredTime = "quarter past nine" }, "preferred_time"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := createParams("Alice", "09:15")
			tc.mutate(&p)

			_, err := svc.Create(context.Background(), p)

			var verr *clinicerr.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
			assert.False(t, verr.Capacity)
		})
	}
}

func TestCreateRejectsWhenWindowFull(t *testing.T) {
	store := newFakeStore(mondayWindow("Dr. Reyes", 1))
	svc := newTestService(store, noopLocker{})

	_, err := svc.Create(context.Background(), createParams("Alice", "09:15"))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), createParams("Bob", "09:30"))

	var verr *clinicerr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Capacity)
	assert.Contains(t, verr.Reason, "full")
}

func TestCancelFreesTheWindow(t *testing.T) {
	store := newFakeStore(mondayWindow("Dr. Reyes", 1))
	svc := newTestService(store, noopLocker{})

	first, err := svc.Create(context.Background(), createParams("Alice", "09:15"))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), createParams("Bob", "09:30"))
	require.Error(t, err)

	canceled := StatusCanceled
	_, err = svc.Update(context.Background(), first.BookingID, UpdateParams{Status: &canceled})
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), createParams("Bob", "09:30"))
	require.NoError(t, err)
	assert.Equal(t, "Bob", second.PatientName)
}

// The status this package stores and the status the capacity query excludes
// live in different packages. If they drift apart, canceled appointments
// never release their capacity.
func TestCanceledStatusMatchesCapacityExclusion(t *testing.T) {
	assert.Equal(t, schedule.CanceledStatus, string(StatusCanceled))
	assert.True(t, Status(schedule.CanceledStatus).Valid())
}

func TestRescheduleExcludesOwnSlot(t *testing.T) {
	store := newFakeStore(mondayWindow("Dr. Reyes", 1))
	svc := newTestService(store, noopLocker{})

	appt, err := svc.Create(context.Background(), createParams("Alice", "09:15"))
	require.NoError(t, err)

	// Moving within the same (otherwise full) window must succeed because the
	// appointment does not count against itself.
	newTime := "10:00"
	updated, err := svc.Update(context.Background(), appt.BookingID, UpdateParams{PreferredTime: &newTime})
	require.NoError(t, err)
	assert.Equal(t, "10:00", updated.PreferredTime)
}

func TestAdmissionCheckRejectsCommitRace(t *testing.T) {
	store := newFakeStore(mondayWindow("Dr. Reyes", 1))

	// A competing booking lands between the read-only resolve and the commit.
	sneak := &Appointment{
		ID:              uuid.New(),
		BookingID:       "sneak",
		PatientName:     "Mallory",
		DoctorName:      "Dr. Reyes",
		DepartmentName:  "Cardiology",
		AppointmentDate: monday,
		PreferredTime:   "09:00",
		Status:          StatusNew,
	}

	check := admissionCheck(schedule.Query{
		DoctorName:     "Dr. Reyes",
		DepartmentName: "Cardiology",
		Date:           monday,
		PreferredTime:  "09:30",
	})

	// Before the race the check passes.
	require.NoError(t, check(context.Background(), store))

	store.appts[sneak.BookingID] = sneak

	err := check(context.Background(), store)
	var verr *clinicerr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Capacity)
}

func TestCreateLockContention(t *testing.T) {
	store := newFakeStore(mondayWindow("Dr. Reyes", 4))
	svc := newTestService(store, heldLocker{})

	_, err := svc.Create(context.Background(), createParams("Alice", "09:15"))

	var cerr *clinicerr.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "appointment", cerr.Entity)
}

func TestUpdateUnknownBooking(t *testing.T) {
	store := newFakeStore(mondayWindow("Dr. Reyes", 4))
	svc := newTestService(store, noopLocker{})

	newTime := "09:30"
	_, err := svc.Update(context.Background(), "missing", UpdateParams{PreferredTime: &newTime})

	var nerr *clinicerr.NotFoundError
	require.True(t, errors.As(err, &nerr))
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	store := newFakeStore(mondayWindow("Dr. Reyes", 4))
	svc := newTestService(store, noopLocker{})

	appt, err := svc.Create(context.Background(), createParams("Alice", "09:15"))
	require.NoError(t, err)

	bogus := Status("Teleported")
	_, err = svc.Update(context.Background(), appt.BookingID, UpdateParams{Status: &bogus})

	var verr *clinicerr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "status", verr.Field)
}
