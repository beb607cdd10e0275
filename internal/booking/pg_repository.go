package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-workflow-engine/internal/db"
	"github.com/hackgods/clinic-workflow-engine/internal/schedule"
)

type PgRepository struct {
	pool db.Beginner
}

func NewPgRepository(pool db.Beginner) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.BookingID,
		&a.PatientName,
		&a.DoctorName,
		&a.DepartmentName,
		&a.AppointmentDate,
		&a.PreferredTime,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

const appointmentColumns = `id, booking_id, patient_name, doctor_name, department_name,
	appointment_date, preferred_time, status, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetByBookingID(ctx context.Context, bookingID string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE booking_id = $1
	`, bookingID)
	return scanAppointment(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientName string, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_name = $1
		ORDER BY appointment_date DESC, preferred_time DESC
		LIMIT $2 OFFSET $3
	`, patientName, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) CreateAdmitted(ctx context.Context, appt *Appointment, check AdmissionCheck) (*Appointment, error) {
	var created *Appointment

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if check != nil {
			if err := check(ctx, schedule.NewLockingPgRepository(tx)); err != nil {
				return err
			}
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO appointments (id, booking_id, patient_name, doctor_name, department_name,
			                          appointment_date, preferred_time, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			RETURNING `+appointmentColumns+`
		`, appt.ID, appt.BookingID, appt.PatientName, appt.DoctorName, appt.DepartmentName,
			appt.AppointmentDate, appt.PreferredTime, appt.Status)

		a, err := scanAppointment(row)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *PgRepository) UpdateAdmitted(ctx context.Context, appt *Appointment, check AdmissionCheck) (*Appointment, error) {
	var updated *Appointment

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if check != nil {
			if err := check(ctx, schedule.NewLockingPgRepository(tx)); err != nil {
				return err
			}
		}

		row := tx.QueryRow(ctx, `
			UPDATE appointments
			SET patient_name = $2,
			    doctor_name = $3,
			    department_name = $4,
			    appointment_date = $5,
			    preferred_time = $6,
			    status = $7,
			    updated_at = now()
			WHERE booking_id = $1
			RETURNING `+appointmentColumns+`
		`, appt.BookingID, appt.PatientName, appt.DoctorName, appt.DepartmentName,
			appt.AppointmentDate, appt.PreferredTime, appt.Status)

		a, err := scanAppointment(row)
		if err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, booking_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.BookingID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
