package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-workflow-engine/internal/db"
)

type PgRepository struct {
	q           db.Querier
	lockWindows bool
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{q: q}
}

// NewLockingPgRepository returns a repository whose ActiveWindows query takes
// row locks. Use it with a transaction-scoped Querier when re-validating an
// admission at commit time.
func NewLockingPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{q: q, lockWindows: true}
}

// Helpers

func scanSchedule(row pgx.Row) (*DoctorSchedule, error) {
	var s DoctorSchedule

	err := row.Scan(
		&s.ID,
		&s.DoctorName,
		&s.DepartmentName,
		&s.DayOfWeek,
		&s.StartTime,
		&s.EndTime,
		&s.MaxAppointments,
		&s.IsActive,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	return &s, nil
}

// Interface methods

func (r *PgRepository) ActiveWindows(ctx context.Context, doctorName, departmentName string, dayOfWeek int) ([]DoctorSchedule, error) {
	query := `
		SELECT id, doctor_name, department_name, day_of_week, start_time, end_time,
		       max_appointments, is_active, created_at, updated_at
		FROM doctor_schedules
		WHERE doctor_name = $1
		  AND department_name = $2
		  AND day_of_week = $3
		  AND is_active
		ORDER BY start_time
	`
	if r.lockWindows {
		query += ` FOR UPDATE`
	}

	rows, err := r.q.Query(ctx, query, doctorName, departmentName, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DoctorSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) BookedCount(ctx context.Context, doctorName string, date time.Time, startTime, endTime, excludeBookingID string) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE doctor_name = $1
		  AND appointment_date = $2
		  AND preferred_time >= $3
		  AND preferred_time < $4
		  AND status <> $5
		  AND ($6 = '' OR booking_id <> $6)
	`, doctorName, date, startTime, endTime, CanceledStatus, excludeBookingID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PgRepository) Upsert(ctx context.Context, s *DoctorSchedule) (*DoctorSchedule, error) {
	id := uuid.New()

	row := r.q.QueryRow(ctx, `
		INSERT INTO doctor_schedules (id, doctor_name, department_name, day_of_week,
		                              start_time, end_time, max_appointments, is_active,
		                              created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (doctor_name, department_name, day_of_week, start_time, end_time)
		DO UPDATE SET max_appointments = EXCLUDED.max_appointments,
		              is_active = EXCLUDED.is_active,
		              updated_at = now()
		RETURNING id, doctor_name, department_name, day_of_week, start_time, end_time,
		          max_appointments, is_active, created_at, updated_at
	`, id, s.DoctorName, s.DepartmentName, s.DayOfWeek, s.StartTime, s.EndTime, s.MaxAppointments, s.IsActive)

	return scanSchedule(row)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorName, departmentName string) ([]DoctorSchedule, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, doctor_name, department_name, day_of_week, start_time, end_time,
		       max_appointments, is_active, created_at, updated_at
		FROM doctor_schedules
		WHERE doctor_name = $1
		  AND department_name = $2
		ORDER BY day_of_week, start_time
	`, doctorName, departmentName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DoctorSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
