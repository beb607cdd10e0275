package lab

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-workflow-engine/internal/db"
)

type PgRepository struct {
	pool db.Beginner
}

func NewPgRepository(pool db.Beginner) *PgRepository {
	return &PgRepository{pool: pool}
}

const labColumns = `request_id, patient_name, test_type, status, sample_collected,
	collected_by, collected_at, specimen_type, encoded_results, result_encoded_at,
	verified_by, verified_at, released_by, released_at, reject_reason, resample_flag,
	created_at, updated_at`

func scanRequest(row pgx.Row) (*LabRequest, error) {
	var lr LabRequest

	err := row.Scan(
		&lr.RequestID,
		&lr.PatientName,
		&lr.TestType,
		&lr.Status,
		&lr.SampleCollected,
		&lr.CollectedBy,
		&lr.CollectedAt,
		&lr.SpecimenType,
		&lr.EncodedResults,
		&lr.ResultEncodedAt,
		&lr.VerifiedBy,
		&lr.VerifiedAt,
		&lr.ReleasedBy,
		&lr.ReleasedAt,
		&lr.RejectReason,
		&lr.ResampleFlag,
		&lr.CreatedAt,
		&lr.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	return &lr, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*LabRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+labColumns+`
		FROM lab_requests
		WHERE request_id = $1
	`, id)
	return scanRequest(row)
}

func (r *PgRepository) Create(ctx context.Context, req *LabRequest, entry *ActivityEntry) (*LabRequest, error) {
	var created *LabRequest

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO lab_requests (request_id, patient_name, test_type, status,
			                          sample_collected, collected_by, specimen_type,
			                          encoded_results, reject_reason, resample_flag,
			                          created_at, updated_at)
			VALUES ($1, $2, $3, $4, false, '', '', '', '', false, now(), now())
			RETURNING `+labColumns+`
		`, req.RequestID, req.PatientName, req.TestType, req.Status)

		lr, err := scanRequest(row)
		if err != nil {
			return fmt.Errorf("insert lab request: %w", err)
		}
		created = lr

		return insertActivity(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Mutate runs fn on the row-locked request, then writes the mutated row and
// its activity entry in the same transaction.
func (r *PgRepository) Mutate(ctx context.Context, id uuid.UUID, fn Mutator) (*LabRequest, error) {
	var mutated *LabRequest

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT `+labColumns+`
			FROM lab_requests
			WHERE request_id = $1
			FOR UPDATE
		`, id)

		lr, err := scanRequest(row)
		if err != nil {
			return err
		}

		entry, err := fn(lr)
		if err != nil {
			return err
		}

		updatedRow := tx.QueryRow(ctx, `
			UPDATE lab_requests
			SET status = $2,
			    sample_collected = $3,
			    collected_by = $4,
			    collected_at = $5,
			    specimen_type = $6,
			    encoded_results = $7,
			    result_encoded_at = $8,
			    verified_by = $9,
			    verified_at = $10,
			    released_by = $11,
			    released_at = $12,
			    reject_reason = $13,
			    resample_flag = $14,
			    updated_at = now()
			WHERE request_id = $1
			RETURNING `+labColumns+`
		`, lr.RequestID, lr.Status, lr.SampleCollected, lr.CollectedBy, lr.CollectedAt,
			lr.SpecimenType, lr.EncodedResults, lr.ResultEncodedAt, lr.VerifiedBy,
			lr.VerifiedAt, lr.ReleasedBy, lr.ReleasedAt, lr.RejectReason, lr.ResampleFlag)

		updated, err := scanRequest(updatedRow)
		if err != nil {
			return fmt.Errorf("update lab request: %w", err)
		}
		mutated = updated

		return insertActivity(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	return mutated, nil
}

func (r *PgRepository) ListActivity(ctx context.Context, id uuid.UUID) ([]ActivityEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, request_id, action, detail, actor, created_at
		FROM lab_activity_log
		WHERE request_id = $1
		ORDER BY created_at, id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Action, &e.Detail, &e.Actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func insertActivity(ctx context.Context, tx pgx.Tx, entry *ActivityEntry) error {
	if entry == nil {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO lab_activity_log (request_id, action, detail, actor, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, entry.RequestID, entry.Action, entry.Detail, entry.Actor)
	if err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}
