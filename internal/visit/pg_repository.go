package visit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-workflow-engine/internal/db"
)

type PgRepository struct {
	q db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{q: q}
}

const visitColumns = `id, patient_name, status, is_emergency, version, assigned_doctor,
	diagnosis, clinical_notes, lab_requested, lab_result_ready,
	prescription_created, prescription_dispensed, follow_up_date, created_at, updated_at`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit

	err := row.Scan(
		&v.ID,
		&v.PatientName,
		&v.Status,
		&v.IsEmergency,
		&v.Version,
		&v.AssignedDoctor,
		&v.Diagnosis,
		&v.ClinicalNotes,
		&v.LabRequested,
		&v.LabResultReady,
		&v.PrescriptionCreated,
		&v.PrescriptionDispensed,
		&v.FollowUpDate,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVisitNotFound
		}
		return nil, err
	}

	return &v, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+visitColumns+`
		FROM visits
		WHERE id = $1
	`, id)
	return scanVisit(row)
}

func (r *PgRepository) Create(ctx context.Context, v *Visit) (*Visit, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO visits (id, patient_name, status, is_emergency, version, assigned_doctor,
		                    diagnosis, clinical_notes, lab_requested, lab_result_ready,
		                    prescription_created, prescription_dispensed, follow_up_date,
		                    created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, '', '', '', false, false, false, false, NULL, now(), now())
		RETURNING `+visitColumns+`
	`, v.ID, v.PatientName, v.Status, v.IsEmergency)

	return scanVisit(row)
}

// UpdateCAS is the optimistic-concurrency write: the WHERE clause checks the
// version the mutation was computed from, and zero affected rows means either
// a lost race or a missing visit.
func (r *PgRepository) UpdateCAS(ctx context.Context, v *Visit, expectedVersion int) (*Visit, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE visits
		SET status = $3,
		    is_emergency = $4,
		    version = version + 1,
		    assigned_doctor = $5,
		    diagnosis = $6,
		    clinical_notes = $7,
		    lab_requested = $8,
		    lab_result_ready = $9,
		    prescription_created = $10,
		    prescription_dispensed = $11,
		    follow_up_date = $12,
		    updated_at = now()
		WHERE id = $1
		  AND version = $2
		RETURNING `+visitColumns+`
	`, v.ID, expectedVersion, v.Status, v.IsEmergency, v.AssignedDoctor, v.Diagnosis,
		v.ClinicalNotes, v.LabRequested, v.LabResultReady, v.PrescriptionCreated,
		v.PrescriptionDispensed, v.FollowUpDate)

	updated, err := scanVisit(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrVisitNotFound) {
		return nil, err
	}

	// Distinguish a lost race from a missing row.
	if _, getErr := r.GetByID(ctx, v.ID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrVersionConflict
}
