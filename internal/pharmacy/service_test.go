package pharmacy

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
)

// memRepo mirrors the transactional repository in memory: mutators run on a
// copy, and a mutator error writes neither the medicine nor the ledger row.
type memRepo struct {
	medicines map[uuid.UUID]*Medicine
	skus      map[string]bool
	movements map[uuid.UUID][]StockMovement
	requests  map[uuid.UUID]*DispenseRequest
}

func newMemRepo() *memRepo {
	return &memRepo{
		medicines: map[uuid.UUID]*Medicine{},
		skus:      map[string]bool{},
		movements: map[uuid.UUID][]StockMovement{},
		requests:  map[uuid.UUID]*DispenseRequest{},
	}
}

func (r *memRepo) GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	m, ok := r.medicines[id]
	if !ok {
		return nil, ErrMedicineNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memRepo) CreateMedicine(ctx context.Context, m *Medicine, mv *StockMovement) (*Medicine, error) {
	if r.skus[m.SKU] {
		return nil, ErrSKUTaken
	}
	cp := *m
	r.medicines[cp.ID] = &cp
	r.skus[cp.SKU] = true
	if mv != nil {
		mv.MedicineID = cp.ID
		r.movements[cp.ID] = append(r.movements[cp.ID], *mv)
	}
	out := cp
	return &out, nil
}

func (r *memRepo) MutateStock(ctx context.Context, id uuid.UUID, fn StockMutator) (*Medicine, *StockMovement, error) {
	stored, ok := r.medicines[id]
	if !ok {
		return nil, nil, ErrMedicineNotFound
	}

	cp := *stored
	mv, err := fn(&cp)
	if err != nil {
		return nil, nil, err
	}

	r.medicines[id] = &cp
	r.movements[id] = append(r.movements[id], *mv)
	out := cp
	outMv := *mv
	return &out, &outMv, nil
}

func (r *memRepo) ListMovements(ctx context.Context, medicineID uuid.UUID, limit int) ([]StockMovement, error) {
	mvs := r.movements[medicineID]
	if len(mvs) > limit {
		mvs = mvs[len(mvs)-limit:]
	}
	return mvs, nil
}

func (r *memRepo) ListActiveMedicines(ctx context.Context) ([]Medicine, error) {
	var out []Medicine
	for _, m := range r.medicines {
		if !m.IsArchived {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memRepo) GetDispenseRequest(ctx context.Context, id uuid.UUID) (*DispenseRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *memRepo) CreateDispenseRequest(ctx context.Context, req *DispenseRequest) (*DispenseRequest, error) {
	cp := *req
	r.requests[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memRepo) FulfillRequest(ctx context.Context, requestID uuid.UUID, fn FulfillMutator) (*DispenseRequest, *Medicine, *StockMovement, error) {
	storedReq, ok := r.requests[requestID]
	if !ok {
		return nil, nil, nil, ErrRequestNotFound
	}
	storedMed, ok := r.medicines[storedReq.MedicineID]
	if !ok {
		return nil, nil, nil, ErrMedicineNotFound
	}

	reqCp := *storedReq
	medCp := *storedMed
	mv, err := fn(&reqCp, &medCp)
	if err != nil {
		return nil, nil, nil, err
	}

	r.requests[requestID] = &reqCp
	r.medicines[medCp.ID] = &medCp
	r.movements[medCp.ID] = append(r.movements[medCp.ID], *mv)
	outReq, outMed, outMv := reqCp, medCp, *mv
	return &outReq, &outMed, &outMv, nil
}

func (r *memRepo) CancelRequest(ctx context.Context, requestID uuid.UUID) (*DispenseRequest, error) {
	stored, ok := r.requests[requestID]
	if !ok {
		return nil, ErrRequestNotFound
	}
	if stored.Status != RequestPending {
		return nil, ErrRequestNotPending
	}
	stored.Status = RequestCancelled
	cp := *stored
	return &cp, nil
}

type noopLocker struct{}

func (noopLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type heldLocker struct{}

func (heldLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func newPharmacyService(repo Repository, locker redisclient.Locker) *Service {
	svc := NewService(repo, locker, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC) }
	return svc
}

func createTestMedicine(t *testing.T, svc *Service, stock int) *Medicine {
	t.Helper()
	res, err := svc.CreateMedicine(context.Background(), CreateMedicineParams{
		SKU:           "MED-00001",
		Name:          "Amoxicillin 500mg",
		InitialStock:  stock,
		StockCapacity: 500,
		ReorderLevel:  10,
		Actor:         "pharmacist-lee",
	})
	require.NoError(t, err)
	return res.Medicine
}

func TestCreateMedicineWritesInitialMovement(t *testing.T) {
	repo := newMemRepo()
	svc := newPharmacyService(repo, noopLocker{})

	m := createTestMedicine(t, svc, 100)

	mvs, err := svc.Movements(context.Background(), m.ID, 0)
	require.NoError(t, err)
	require.Len(t, mvs, 1)
	assert.Equal(t, MovementInitialStock, mvs[0].MovementType)
	assert.Equal(t, 0, mvs[0].QuantityBefore)
	assert.Equal(t, 100, mvs[0].QuantityAfter)
}

func TestCreateMedicineDuplicateSKU(t *testing.T) {
	repo := newMemRepo()
	svc := newPharmacyService(repo, noopLocker{})
	createTestMedicine(t, svc, 100)

	_, err := svc.CreateMedicine(context.Background(), CreateMedicineParams{
		SKU:           "MED-00001",
		Name:          "Amoxicillin 250mg",
		InitialStock:  10,
		StockCapacity: 100,
	})

	var verr *clinicerr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "sku", verr.Field)
}

func TestRestockAndDispenseLedgerInvariant(t *testing.T) {
	repo := newMemRepo()
	svc := newPharmacyService(repo, noopLocker{})
	m := createTestMedicine(t, svc, 100)
	ctx := context.Background()

	res, err := svc.Restock(ctx, m.ID, 50, "PO-1234", "pharmacist-lee")
	require.NoError(t, err)
	assert.Equal(t, 150, res.Medicine.StockOnHand)

	res, err = svc.Dispense(ctx, DispenseParams{
		MedicineID:      m.ID,
		Quantity:        30,
		PatientName:     "Alice",
		PrescriptionRef: "RX-77",
		Actor:           "pharmacist-lee",
	})
	require.NoError(t, err)
	assert.Equal(t, 120, res.Medicine.StockOnHand)
	assert.Equal(t, -30, res.Movement.QuantityChange)

	mvs, err := svc.Movements(ctx, m.ID, 0)
	require.NoError(t, err)
	require.Len(t, mvs, 3)
	for _, mv := range mvs {
		assert.Equal(t, mv.QuantityAfter, mv.QuantityBefore+mv.QuantityChange,
			"ledger row %s violates before+change=after", mv.MovementType)
	}
}

func TestDispenseInsufficientStock(t *testing.T) {
	repo := newMemRepo()
	svc := newPharmacyService(repo, noopLocker{})
	m := createTestMedicine(t, svc, 5)
	ctx := context.Background()

	_, err := svc.Dispense(ctx, DispenseParams{
		MedicineID:      m.ID,
		Quantity:        6,
		PatientName:     "Alice",
		PrescriptionRef: "RX-77",
	})

	var verr *clinicerr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Capacity)
	assert.Equal(t, "Insufficient stock. Available: 5", verr.Reason)

	// Nothing was written: stock untouched, no ledger row beyond creation.
	stored, err := svc.GetMedicine(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.StockOnHand)

	mvs, err := svc.Movements(ctx, m.ID, 0)
	require.NoError(t, err)
	assert.Len(t, mvs, 1)

	// Dispensing exactly the remaining stock succeeds.
	res, err := svc.Dispense(ctx, DispenseParams{
		MedicineID:      m.ID,
		Quantity:        5,
		PatientName:     "Alice",
		PrescriptionRef: "RX-77",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Medicine.StockOnHand)
}

func TestDispenseEmitsOutOfStockAlert(t *testing.T) {
	repo := newMemRepo()
	svc := newPharmacyService(repo, noopLocker{})
	m := createTestMedicine(t, svc, 1)

	res, err := svc.Dispense(context.Background(), DispenseParams{
		MedicineID:      m.ID,
		Quantity:        1,
		PatientName:     "Alice",
		PrescriptionRef: "RX-77",
	})
	require.NoError(t, err)

	require.Len(t, res.Alerts, 1)
	assert.Equal(t, AlertOutOfStock, res.Alerts[0].Kind)
}

func TestAdjustStockRequiresReason(t *testing.T) {
	repo := newMemRepo()
	svc := newPharmacyService(repo, noopLocker{})
	m := createTestMedicine(t, svc, 100)

	_, err := svc.AdjustStock(context.Background(), m.ID, 90, "", "pharmacist-lee")

	var verr *clinicerr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "reason", verr.Field)
}

func TestAdjustStockRecordsDelta(t *testing.T) {
	repo := newMemRepo()
	svc := newPharmacyService(repo, noopLocker{})
	m := createTestMedicine(t, svc, 100)

	res, err := svc.AdjustStock(context.Background(), m.ID, 93, "stocktake correction", "pharmacist-lee")
	require.NoError(t, err)

	assert.Equal(t, 93, res.Medicine.StockOnHand)
	assert.Equal(t, -7, res.Movement.QuantityChange)
	assert.Equal(t, MovementAdjustment, res.Movement.MovementType)
}

func TestArchiveBlocksRestockAndDispense(t *testing.T) {
	repo := newMemRepo()
	svc := newPharmacyService(repo, noopLocker{})
	m := createTestMedicine(t, svc, 100)
	ctx := context.Background()

	res, err := svc.ArchiveMedicine(ctx, m.ID, "pharmacist-lee")
	require.NoError(t, err)
	assert.True(t, res.Medicine.IsArchived)
	assert.Equal(t, 0, res.Movement.QuantityChange)

	_, err = svc.Restock(ctx, m.ID, 10, "PO-1", "pharmacist-lee")
	var verr *clinicerr.ValidationError
	require.True(t, errors.As(err, &verr))

	_, err = svc.Dispense(ctx, DispenseParams{MedicineID: m.ID, Quantity: 1, PatientName: "Alice", PrescriptionRef: "RX-1"})
	require.True(t, errors.As(err, &verr))

	_, err = svc.ArchiveMedicine(ctx, m.ID, "pharmacist-lee")
	require.True(t, errors.As(err, &verr))
}

func TestStockLockContention(t *testing.T) {
	repo := newMemRepo()
	setup := newPharmacyService(repo, noopLocker{})
	m := createTestMedicine(t, setup, 100)

	svc := newPharmacyService(repo, heldLocker{})
	_, err := svc.Restock(context.Background(), m.ID, 10, "PO-1", "pharmacist-lee")

	var cerr *clinicerr.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "medicine", cerr.Entity)
}

func TestFulfillConsumesStockOnce(t *testing.T) {
	repo := newMemRepo()
	svc := newPharmacyService(repo, noopLocker{})
	m := createTestMedicine(t, svc, 100)
	ctx := context.Background()

	req, err := svc.CreateDispenseRequest(ctx, DispenseRequestParams{
		MedicineID:      m.ID,
		Quantity:        10,
		PatientName:     "Alice",
		PrescriptionRef: "RX-77",
	})
	require.NoError(t, err)
	assert.Equal(t, RequestPending, req.Status)

	res, err := svc.Fulfill(ctx, req.ID, "pharmacist-lee")
	require.NoError(t, err)
	assert.Equal(t, 90, res.Medicine.StockOnHand)
	assert.Equal(t, MovementFulfill, res.Movement.MovementType)

	// A second fulfillment attempt finds the request no longer Pending.
	_, err = svc.Fulfill(ctx, req.ID, "pharmacist-lee")
	var terr *clinicerr.StateTransitionError
	require.True(t, errors.As(err, &terr))

	stored, err := svc.GetMedicine(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, stored.StockOnHand, "stock consumed exactly once")
}

func TestFulfillInsufficientStockLeavesRequestPending(t *testing.T) {
	repo := newMemRepo()
	svc := newPharmacyService(repo, noopLocker{})
	m := createTestMedicine(t, svc, 5)
	ctx := context.Background()

	req, err := svc.CreateDispenseRequest(ctx, DispenseRequestParams{
		MedicineID:      m.ID,
		Quantity:        10,
		PatientName:     "Alice",
		PrescriptionRef: "RX-77",
	})
	require.NoError(t, err)

	_, err = svc.Fulfill(ctx, req.ID, "pharmacist-lee")
	var verr *clinicerr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Capacity)

	stored, err := repo.GetDispenseRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestPending, stored.Status, "failed fulfillment must not flip the request")
}

func TestCancelRequestOnlyWhenPending(t *testing.T) {
	repo := newMemRepo()
	svc := newPharmacyService(repo, noopLocker{})
	m := createTestMedicine(t, svc, 100)
	ctx := context.Background()

	req, err := svc.CreateDispenseRequest(ctx, DispenseRequestParams{
		MedicineID:      m.ID,
		Quantity:        10,
		PatientName:     "Alice",
		PrescriptionRef: "RX-77",
	})
	require.NoError(t, err)

	canceled, err := svc.CancelDispenseRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestCancelled, canceled.Status)

	_, err = svc.CancelDispenseRequest(ctx, req.ID)
	var terr *clinicerr.StateTransitionError
	require.True(t, errors.As(err, &terr))
}

func TestCreateDispenseRequestUnknownMedicine(t *testing.T) {
	svc := newPharmacyService(newMemRepo(), noopLocker{})

	_, err := svc.CreateDispenseRequest(context.Background(), DispenseRequestParams{
		MedicineID:      uuid.New(),
		Quantity:        1,
		PatientName:     "Alice",
		PrescriptionRef: "RX-77",
	})

	var nerr *clinicerr.NotFoundError
	require.True(t, errors.As(err, &nerr))
}
