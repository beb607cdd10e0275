package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-workflow-engine/internal/clinicerr"
	redisclient "github.com/hackgods/clinic-workflow-engine/internal/redis"
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log,
		now:    time.Now,
	}
}

// StockResult is what every stock-affecting action returns: the medicine
// after the write, the ledger row, and any alerts the new level derived.
type StockResult struct {
	Medicine *Medicine      `json:"medicine"`
	Movement *StockMovement `json:"movement"`
	Alerts   []Alert        `json:"alerts,omitempty"`
}

type CreateMedicineParams struct {
	SKU               string
	Name              string
	InitialStock      int
	StockCapacity     int
	ReorderLevel      int
	LowStockThreshold int
	ExpiryDate        *time.Time
	Actor             string
}

func (s *Service) CreateMedicine(ctx context.Context, p CreateMedicineParams) (*StockResult, error) {
	if p.SKU == "" {
		return nil, clinicerr.NewValidation("sku", "is required")
	}
	if p.Name == "" {
		return nil, clinicerr.NewValidation("name", "is required")
	}
	if p.InitialStock < 0 {
		return nil, clinicerr.NewValidation("initial_stock", "cannot be negative")
	}
	if p.StockCapacity < 1 {
		return nil, clinicerr.NewValidation("stock_capacity", "must be at least 1")
	}
	if p.ReorderLevel < 0 {
		return nil, clinicerr.NewValidation("reorder_level", "cannot be negative")
	}

	m := &Medicine{
		ID:                uuid.New(),
		SKU:               p.SKU,
		Name:              p.Name,
		StockOnHand:       p.InitialStock,
		StockCapacity:     p.StockCapacity,
		ReorderLevel:      p.ReorderLevel,
		LowStockThreshold: p.LowStockThreshold,
		ExpiryDate:        p.ExpiryDate,
	}

	mv := &StockMovement{
		MovementType:   MovementInitialStock,
		QuantityChange: p.InitialStock,
		QuantityBefore: 0,
		QuantityAfter:  p.InitialStock,
		Reference:      "initial stock on creation",
		Actor:          p.Actor,
	}

	created, err := s.repo.CreateMedicine(ctx, m, mv)
	if err != nil {
		if errors.Is(err, ErrSKUTaken) {
			return nil, clinicerr.NewValidation("sku", fmt.Sprintf("sku %q already exists", p.SKU))
		}
		return nil, fmt.Errorf("create medicine: %w", err)
	}

	res := &StockResult{Medicine: created, Movement: mv, Alerts: s.emitAlerts(created)}
	s.log.Info().Str("sku", created.SKU).Int("stock", created.StockOnHand).Msg("medicine created")
	return res, nil
}

// Restock adds quantity on hand.
func (s *Service) Restock(ctx context.Context, medicineID uuid.UUID, quantity int, reference, actor string) (*StockResult, error) {
	if quantity <= 0 {
		return nil, clinicerr.NewValidation("quantity", "must be greater than zero")
	}

	return s.mutate(ctx, medicineID, func(m *Medicine) (*StockMovement, error) {
		if m.IsArchived {
			return nil, clinicerr.NewValidation("medicine", "is archived")
		}
		before := m.StockOnHand
		m.StockOnHand = before + quantity
		return &StockMovement{
			MedicineID:     m.ID,
			MovementType:   MovementRestock,
			QuantityChange: quantity,
			QuantityBefore: before,
			QuantityAfter:  m.StockOnHand,
			Reference:      reference,
			Actor:          actor,
		}, nil
	})
}

type DispenseParams struct {
	MedicineID      uuid.UUID
	Quantity        int
	PatientName     string
	PrescriptionRef string
	Actor           string
}

// Dispense removes quantity on hand for a named patient. Rejected before any
// write when it would take the stock negative.
func (s *Service) Dispense(ctx context.Context, p DispenseParams) (*StockResult, error) {
	if p.Quantity <= 0 {
		return nil, clinicerr.NewValidation("quantity", "must be greater than zero")
	}
	if p.PatientName == "" {
		return nil, clinicerr.NewValidation("patient_name", "is required")
	}
	if p.PrescriptionRef == "" {
		return nil, clinicerr.NewValidation("prescription_ref", "is required")
	}

	return s.mutate(ctx, p.MedicineID, func(m *Medicine) (*StockMovement, error) {
		if m.IsArchived {
			return nil, clinicerr.NewValidation("medicine", "is archived")
		}
		before := m.StockOnHand
		after := before - p.Quantity
		if after < 0 {
			return nil, clinicerr.NewCapacity(fmt.Sprintf("Insufficient stock. Available: %d", before))
		}
		m.StockOnHand = after
		return &StockMovement{
			MedicineID:     m.ID,
			MovementType:   MovementDispense,
			QuantityChange: -p.Quantity,
			QuantityBefore: before,
			QuantityAfter:  after,
			Reference:      fmt.Sprintf("dispensed to %s (%s)", p.PatientName, p.PrescriptionRef),
			Actor:          p.Actor,
		}, nil
	})
}

// AdjustStock sets the on-hand quantity to an absolute level, recording the
// delta. Used for stocktake corrections.
func (s *Service) AdjustStock(ctx context.Context, medicineID uuid.UUID, newQuantity int, reason, actor string) (*StockResult, error) {
	if newQuantity < 0 {
		return nil, clinicerr.NewValidation("quantity", "cannot be negative")
	}
	if reason == "" {
		return nil, clinicerr.NewValidation("reason", "is required for a stock adjustment")
	}

	return s.mutate(ctx, medicineID, func(m *Medicine) (*StockMovement, error) {
		before := m.StockOnHand
		m.StockOnHand = newQuantity
		return &StockMovement{
			MedicineID:     m.ID,
			MovementType:   MovementAdjustment,
			QuantityChange: newQuantity - before,
			QuantityBefore: before,
			QuantityAfter:  newQuantity,
			Reference:      reason,
			Actor:          actor,
		}, nil
	})
}

// ArchiveMedicine retires a medicine from active use. Stock is untouched;
// the ledger records the archive point for reconciliation.
func (s *Service) ArchiveMedicine(ctx context.Context, medicineID uuid.UUID, actor string) (*StockResult, error) {
	return s.mutate(ctx, medicineID, func(m *Medicine) (*StockMovement, error) {
		if m.IsArchived {
			return nil, clinicerr.NewValidation("medicine", "is already archived")
		}
		m.IsArchived = true
		return &StockMovement{
			MedicineID:     m.ID,
			MovementType:   MovementArchive,
			QuantityChange: 0,
			QuantityBefore: m.StockOnHand,
			QuantityAfter:  m.StockOnHand,
			Reference:      "medicine archived",
			Actor:          actor,
		}, nil
	})
}

type DispenseRequestParams struct {
	MedicineID      uuid.UUID
	Quantity        int
	PatientName     string
	PrescriptionRef string
}

func (s *Service) CreateDispenseRequest(ctx context.Context, p DispenseRequestParams) (*DispenseRequest, error) {
	if p.Quantity <= 0 {
		return nil, clinicerr.NewValidation("quantity", "must be greater than zero")
	}
	if p.PatientName == "" {
		return nil, clinicerr.NewValidation("patient_name", "is required")
	}
	if p.PrescriptionRef == "" {
		return nil, clinicerr.NewValidation("prescription_ref", "is required")
	}

	if _, err := s.repo.GetMedicine(ctx, p.MedicineID); err != nil {
		if errors.Is(err, ErrMedicineNotFound) {
			return nil, clinicerr.NewNotFound("medicine", p.MedicineID.String())
		}
		return nil, fmt.Errorf("load medicine: %w", err)
	}

	req := &DispenseRequest{
		ID:              uuid.New(),
		MedicineID:      p.MedicineID,
		Quantity:        p.Quantity,
		PatientName:     p.PatientName,
		PrescriptionRef: p.PrescriptionRef,
		Status:          RequestPending,
	}

	created, err := s.repo.CreateDispenseRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create dispense request: %w", err)
	}
	return created, nil
}

// Fulfill consumes stock for a pending dispense request exactly once,
// flipping it to Fulfilled in the same transaction as the stock write.
func (s *Service) Fulfill(ctx context.Context, requestID uuid.UUID, actor string) (*StockResult, error) {
	var (
		medicine *Medicine
		movement *StockMovement
	)

	lockErr := s.locker.WithLock(ctx, "stock:request:"+requestID.String(), func(lockCtx context.Context) error {
		_, m, mv, err := s.repo.FulfillRequest(lockCtx, requestID, func(req *DispenseRequest, med *Medicine) (*StockMovement, error) {
			if req.Status != RequestPending {
				return nil, &clinicerr.StateTransitionError{
					Action:   "fulfill_request",
					Current:  string(req.Status),
					Required: []string{string(RequestPending)},
				}
			}
			if med.IsArchived {
				return nil, clinicerr.NewValidation("medicine", "is archived")
			}

			before := med.StockOnHand
			after := before - req.Quantity
			if after < 0 {
				return nil, clinicerr.NewCapacity(fmt.Sprintf("Insufficient stock. Available: %d", before))
			}

			med.StockOnHand = after
			req.Status = RequestFulfilled

			return &StockMovement{
				MedicineID:     med.ID,
				MovementType:   MovementFulfill,
				QuantityChange: -req.Quantity,
				QuantityBefore: before,
				QuantityAfter:  after,
				Reference:      fmt.Sprintf("request %s for %s (%s)", req.ID, req.PatientName, req.PrescriptionRef),
				Actor:          actor,
			}, nil
		})
		if err != nil {
			return err
		}
		medicine = m
		movement = mv
		return nil
	})
	if lockErr != nil {
		if errors.Is(lockErr, redisclient.ErrLockNotAcquired) {
			return nil, clinicerr.NewConflict("dispense request", "is currently being fulfilled, please retry")
		}
		if errors.Is(lockErr, ErrRequestNotFound) {
			return nil, clinicerr.NewNotFound("dispense request", requestID.String())
		}
		if errors.Is(lockErr, ErrMedicineNotFound) {
			return nil, clinicerr.NewNotFound("medicine", requestID.String())
		}
		return nil, lockErr
	}

	res := &StockResult{Medicine: medicine, Movement: movement, Alerts: s.emitAlerts(medicine)}
	s.log.Info().
		Str("request_id", requestID.String()).
		Str("sku", medicine.SKU).
		Int("stock", medicine.StockOnHand).
		Msg("dispense request fulfilled")
	return res, nil
}

func (s *Service) CancelDispenseRequest(ctx context.Context, requestID uuid.UUID) (*DispenseRequest, error) {
	req, err := s.repo.CancelRequest(ctx, requestID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRequestNotFound):
			return nil, clinicerr.NewNotFound("dispense request", requestID.String())
		case errors.Is(err, ErrRequestNotPending):
			return nil, &clinicerr.StateTransitionError{
				Action:   "cancel_request",
				Current:  "non-pending",
				Required: []string{string(RequestPending)},
			}
		}
		return nil, fmt.Errorf("cancel dispense request: %w", err)
	}
	return req, nil
}

// GetMedicine retrieves a medicine by id
func (s *Service) GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	m, err := s.repo.GetMedicine(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMedicineNotFound) {
			return nil, clinicerr.NewNotFound("medicine", id.String())
		}
		return nil, fmt.Errorf("get medicine: %w", err)
	}
	return m, nil
}

// Movements returns the most recent ledger rows for a medicine.
func (s *Service) Movements(ctx context.Context, medicineID uuid.UUID, limit int) ([]StockMovement, error) {
	if limit <= 0 {
		limit = 50 // default
	}
	if limit > 500 {
		limit = 500 // max
	}
	return s.repo.ListMovements(ctx, medicineID, limit)
}

// SweepAlerts evaluates every active medicine, for the periodic worker.
func (s *Service) SweepAlerts(ctx context.Context, horizon time.Duration) ([]Alert, error) {
	medicines, err := s.repo.ListActiveMedicines(ctx)
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}

	now := s.now()
	var all []Alert
	for i := range medicines {
		for _, a := range EvaluateAlerts(&medicines[i], now, horizon) {
			s.logAlert(a)
			all = append(all, a)
		}
	}
	return all, nil
}

func (s *Service) mutate(ctx context.Context, medicineID uuid.UUID, fn StockMutator) (*StockResult, error) {
	var (
		medicine *Medicine
		movement *StockMovement
	)

	lockErr := s.locker.WithLock(ctx, "stock:"+medicineID.String(), func(lockCtx context.Context) error {
		m, mv, err := s.repo.MutateStock(lockCtx, medicineID, fn)
		if err != nil {
			return err
		}
		medicine = m
		movement = mv
		return nil
	})
	if lockErr != nil {
		if errors.Is(lockErr, redisclient.ErrLockNotAcquired) {
			return nil, clinicerr.NewConflict("medicine", "stock is being updated, please retry")
		}
		if errors.Is(lockErr, ErrMedicineNotFound) {
			return nil, clinicerr.NewNotFound("medicine", medicineID.String())
		}
		return nil, lockErr
	}

	res := &StockResult{Medicine: medicine, Movement: movement, Alerts: s.emitAlerts(medicine)}
	s.log.Info().
		Str("sku", medicine.SKU).
		Str("movement", string(movement.MovementType)).
		Int("change", movement.QuantityChange).
		Int("stock", medicine.StockOnHand).
		Msg("stock movement")
	return res, nil
}

func (s *Service) emitAlerts(m *Medicine) []Alert {
	alerts := EvaluateAlerts(m, s.now(), ExpiryWarningWindow)
	for _, a := range alerts {
		s.logAlert(a)
	}
	return alerts
}

func (s *Service) logAlert(a Alert) {
	s.log.Warn().
		Str("kind", string(a.Kind)).
		Str("sku", a.SKU).
		Msg(a.Message)
}
