package pharmacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/clinic-workflow-engine/internal/db"
)

type PgRepository struct {
	pool db.Beginner
}

func NewPgRepository(pool db.Beginner) *PgRepository {
	return &PgRepository{pool: pool}
}

const medicineColumns = `id, sku, name, stock_on_hand, stock_capacity, reorder_level,
	low_stock_threshold, expiry_date, is_archived, created_at, updated_at`

const requestColumns = `id, medicine_id, quantity, patient_name, prescription_ref,
	status, created_at, updated_at`

// Helpers

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine

	err := row.Scan(
		&m.ID,
		&m.SKU,
		&m.Name,
		&m.StockOnHand,
		&m.StockCapacity,
		&m.ReorderLevel,
		&m.LowStockThreshold,
		&m.ExpiryDate,
		&m.IsArchived,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMedicineNotFound
		}
		return nil, err
	}

	return &m, nil
}

func scanDispenseRequest(row pgx.Row) (*DispenseRequest, error) {
	var dr DispenseRequest

	err := row.Scan(
		&dr.ID,
		&dr.MedicineID,
		&dr.Quantity,
		&dr.PatientName,
		&dr.PrescriptionRef,
		&dr.Status,
		&dr.CreatedAt,
		&dr.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	return &dr, nil
}

func scanMovement(row pgx.Row) (*StockMovement, error) {
	var mv StockMovement

	err := row.Scan(
		&mv.ID,
		&mv.MedicineID,
		&mv.MovementType,
		&mv.QuantityChange,
		&mv.QuantityBefore,
		&mv.QuantityAfter,
		&mv.Reference,
		&mv.Actor,
		&mv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &mv, nil
}

func insertMovement(ctx context.Context, tx pgx.Tx, mv *StockMovement) (*StockMovement, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO stock_movements (medicine_id, movement_type, quantity_change,
		                             quantity_before, quantity_after, reference, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id, medicine_id, movement_type, quantity_change, quantity_before,
		          quantity_after, reference, actor, created_at
	`, mv.MedicineID, mv.MovementType, mv.QuantityChange, mv.QuantityBefore,
		mv.QuantityAfter, mv.Reference, mv.Actor)

	inserted, err := scanMovement(row)
	if err != nil {
		return nil, fmt.Errorf("insert stock movement: %w", err)
	}
	return inserted, nil
}

func writeMedicine(ctx context.Context, tx pgx.Tx, m *Medicine) (*Medicine, error) {
	row := tx.QueryRow(ctx, `
		UPDATE medicines
		SET stock_on_hand = $2,
		    stock_capacity = $3,
		    reorder_level = $4,
		    low_stock_threshold = $5,
		    expiry_date = $6,
		    is_archived = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+medicineColumns+`
	`, m.ID, m.StockOnHand, m.StockCapacity, m.ReorderLevel, m.LowStockThreshold,
		m.ExpiryDate, m.IsArchived)

	return scanMedicine(row)
}

// Interface methods

func (r *PgRepository) GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines
		WHERE id = $1
	`, id)
	return scanMedicine(row)
}

func (r *PgRepository) CreateMedicine(ctx context.Context, m *Medicine, mv *StockMovement) (*Medicine, error) {
	var created *Medicine

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO medicines (id, sku, name, stock_on_hand, stock_capacity,
			                       reorder_level, low_stock_threshold, expiry_date,
			                       is_archived, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, now(), now())
			RETURNING `+medicineColumns+`
		`, m.ID, m.SKU, m.Name, m.StockOnHand, m.StockCapacity, m.ReorderLevel,
			m.LowStockThreshold, m.ExpiryDate)

		med, err := scanMedicine(row)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrSKUTaken
			}
			return fmt.Errorf("insert medicine: %w", err)
		}
		created = med

		mv.MedicineID = med.ID
		_, err = insertMovement(ctx, tx, mv)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// MutateStock runs fn on the row-locked medicine, then writes the new stock
// level and its ledger row in the same transaction.
func (r *PgRepository) MutateStock(ctx context.Context, id uuid.UUID, fn StockMutator) (*Medicine, *StockMovement, error) {
	var (
		mutated  *Medicine
		movement *StockMovement
	)

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			SELECT `+medicineColumns+`
			FROM medicines
			WHERE id = $1
			FOR UPDATE
		`, id)

		m, err := scanMedicine(row)
		if err != nil {
			return err
		}

		mv, err := fn(m)
		if err != nil {
			return err
		}

		updated, err := writeMedicine(ctx, tx, m)
		if err != nil {
			return fmt.Errorf("update medicine: %w", err)
		}
		mutated = updated

		inserted, err := insertMovement(ctx, tx, mv)
		if err != nil {
			return err
		}
		movement = inserted
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return mutated, movement, nil
}

func (r *PgRepository) ListMovements(ctx context.Context, medicineID uuid.UUID, limit int) ([]StockMovement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, medicine_id, movement_type, quantity_change, quantity_before,
		       quantity_after, reference, actor, created_at
		FROM stock_movements
		WHERE medicine_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, medicineID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StockMovement
	for rows.Next() {
		mv, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *mv)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListActiveMedicines(ctx context.Context) ([]Medicine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines
		WHERE NOT is_archived
		ORDER BY sku
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetDispenseRequest(ctx context.Context, id uuid.UUID) (*DispenseRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM dispense_requests
		WHERE id = $1
	`, id)
	return scanDispenseRequest(row)
}

func (r *PgRepository) CreateDispenseRequest(ctx context.Context, req *DispenseRequest) (*DispenseRequest, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO dispense_requests (id, medicine_id, quantity, patient_name,
		                               prescription_ref, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+requestColumns+`
	`, req.ID, req.MedicineID, req.Quantity, req.PatientName, req.PrescriptionRef, req.Status)

	return scanDispenseRequest(row)
}

// FulfillRequest locks the request, then its medicine, in that order, runs fn
// and commits the request flip, the stock write, and the ledger row together.
func (r *PgRepository) FulfillRequest(ctx context.Context, requestID uuid.UUID, fn FulfillMutator) (*DispenseRequest, *Medicine, *StockMovement, error) {
	var (
		request  *DispenseRequest
		medicine *Medicine
		movement *StockMovement
	)

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		reqRow := tx.QueryRow(ctx, `
			SELECT `+requestColumns+`
			FROM dispense_requests
			WHERE id = $1
			FOR UPDATE
		`, requestID)

		req, err := scanDispenseRequest(reqRow)
		if err != nil {
			return err
		}

		medRow := tx.QueryRow(ctx, `
			SELECT `+medicineColumns+`
			FROM medicines
			WHERE id = $1
			FOR UPDATE
		`, req.MedicineID)

		m, err := scanMedicine(medRow)
		if err != nil {
			return err
		}

		mv, err := fn(req, m)
		if err != nil {
			return err
		}

		updatedMed, err := writeMedicine(ctx, tx, m)
		if err != nil {
			return fmt.Errorf("update medicine: %w", err)
		}
		medicine = updatedMed

		updatedReqRow := tx.QueryRow(ctx, `
			UPDATE dispense_requests
			SET status = $2,
			    updated_at = now()
			WHERE id = $1
			RETURNING `+requestColumns+`
		`, req.ID, req.Status)

		updatedReq, err := scanDispenseRequest(updatedReqRow)
		if err != nil {
			return fmt.Errorf("update dispense request: %w", err)
		}
		request = updatedReq

		inserted, err := insertMovement(ctx, tx, mv)
		if err != nil {
			return err
		}
		movement = inserted
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}

	return request, medicine, movement, nil
}

func (r *PgRepository) CancelRequest(ctx context.Context, requestID uuid.UUID) (*DispenseRequest, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE dispense_requests
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+requestColumns+`
	`, requestID, RequestCancelled, RequestPending)

	req, err := scanDispenseRequest(row)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, ErrRequestNotFound) {
		return nil, err
	}

	if _, getErr := r.GetDispenseRequest(ctx, requestID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrRequestNotPending
}
