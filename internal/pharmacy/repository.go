package pharmacy

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrMedicineNotFound  = errors.New("medicine not found")
	ErrRequestNotFound   = errors.New("dispense request not found")
	ErrRequestNotPending = errors.New("dispense request is not pending")
	ErrSKUTaken          = errors.New("sku already exists")
)

// StockMutator validates and mutates the medicine in place, returning the
// ledger row to append. It runs on the row-locked snapshot inside the
// repository's transaction.
type StockMutator func(m *Medicine) (*StockMovement, error)

// FulfillMutator works the same way with both the request and its medicine
// locked.
type FulfillMutator func(req *DispenseRequest, m *Medicine) (*StockMovement, error)

// Repository contains all DB interactions needed by the pharmacy service.
type Repository interface {
	GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error)
	CreateMedicine(ctx context.Context, m *Medicine, mv *StockMovement) (*Medicine, error)
	MutateStock(ctx context.Context, id uuid.UUID, fn StockMutator) (*Medicine, *StockMovement, error)
	ListMovements(ctx context.Context, medicineID uuid.UUID, limit int) ([]StockMovement, error)
	ListActiveMedicines(ctx context.Context) ([]Medicine, error)

	GetDispenseRequest(ctx context.Context, id uuid.UUID) (*DispenseRequest, error)
	CreateDispenseRequest(ctx context.Context, req *DispenseRequest) (*DispenseRequest, error)
	FulfillRequest(ctx context.Context, requestID uuid.UUID, fn FulfillMutator) (*DispenseRequest, *Medicine, *StockMovement, error)
	CancelRequest(ctx context.Context, requestID uuid.UUID) (*DispenseRequest, error)
}
