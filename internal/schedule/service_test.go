package schedule

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
)

// memRepo extends the resolver's memSource with the admin operations.
type memRepo struct {
	memSource
}

func (r *memRepo) Upsert(ctx context.Context, s *DoctorSchedule) (*DoctorSchedule, error) {
	for i, w := range r.windows {
		if w.DoctorName == s.DoctorName && w.DepartmentName == s.DepartmentName &&
			w.DayOfWeek == s.DayOfWeek && w.StartTime == s.StartTime && w.EndTime == s.EndTime {
			r.windows[i].MaxAppointments = s.MaxAppointments
			r.windows[i].IsActive = s.IsActive
			cp := r.windows[i]
			return &cp, nil
		}
	}
	cp := *s
	cp.ID = uuid.New()
	r.windows = append(r.windows, cp)
	out := cp
	return &out, nil
}

func (r *memRepo) ListByDoctor(ctx context.Context, doctorName, departmentName string) ([]DoctorSchedule, error) {
	var out []DoctorSchedule
	for _, w := range r.windows {
		if w.DoctorName == doctorName && w.DepartmentName == departmentName {
			out = append(out, w)
		}
	}
	return out, nil
}

func testSchedule() *DoctorSchedule {
	return &DoctorSchedule{
		DoctorName:      "Dr. Reyes",
		DepartmentName:  "Cardiology",
		DayOfWeek:       int(time.Monday),
		StartTime:       "09:00",
		EndTime:         "12:00",
		MaxAppointments: 4,
		IsActive:        true,
	}
}

func TestUpsertScheduleValidation(t *testing.T) {
	svc := NewService(&memRepo{}, zerolog.Nop())

	cases := []struct {
		name   string
		mutate func(*DoctorSchedule)
		field  string
	}{
		{"missing doctor", func(s *DoctorSchedule) { s.DoctorName = "" }, "doctor_name"},
		{"missing department", func(s *DoctorSchedule) { s.DepartmentName = "" }, "department_name"},
		{"day too large", func(s *DoctorSchedule) { s.DayOfWeek = 7 }, "day_of_week"},
		{"negative day", func(s *DoctorSchedule) { s.DayOfWeek = -1 }, "day_of_week"},
		{"bad start", func(s *DoctorSchedule) { s.StartTime = "9am" }, "start_time"},
		{"bad end", func(s *DoctorSchedule) { s.EndTime = "noon" }, "end_time"},
		{"inverted window", func(s *DoctorSchedule) { s.StartTime, s.EndTime = "12:00", "09:00" }, "end_time"},
		{"zero capacity", func(s *DoctorSchedule) { s.MaxAppointments = 0 }, "max_appointments"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sched := testSchedule()
			tc.mutate(sched)

			_, err := svc.UpsertSchedule(context.Background(), sched)

			var verr *clinicerr.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestUpsertScheduleUpdatesInPlace(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	first, err := svc.UpsertSchedule(ctx, testSchedule())
	require.NoError(t, err)

	second := testSchedule()
	second.MaxAppointments = 8
	second.IsActive = false

	updated, err := svc.UpsertSchedule(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, first.ID, updated.ID, "same window key must update, not duplicate")
	assert.Equal(t, 8, updated.MaxAppointments)
	assert.False(t, updated.IsActive)

	windows, err := svc.ListSchedules(ctx, "Dr. Reyes", "Cardiology")
	require.NoError(t, err)
	assert.Len(t, windows, 1)
}

func TestResolveAvailabilityValidation(t *testing.T) {
	svc := NewService(&memRepo{}, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.ResolveAvailability(ctx, Query{DepartmentName: "Cardiology", Date: monday})
	var verr *clinicerr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "doctor_name", verr.Field)

	_, err = svc.ResolveAvailability(ctx, Query{DoctorName: "Dr. Reyes", DepartmentName: "Cardiology", Date: monday, PreferredTime: "half nine"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "preferred_time", verr.Field)
}
