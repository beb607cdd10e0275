package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

// Medicine carries the numeric invariant of this package: StockOnHand never
// goes negative, and every change to it is paired with exactly one
// StockMovement row.
type Medicine struct {
	ID                uuid.UUID
	SKU               string
	Name              string
	StockOnHand       int
	StockCapacity     int
	ReorderLevel      int
	LowStockThreshold int
	ExpiryDate        *time.Time
	IsArchived        bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type MovementType string

const (
	MovementInitialStock MovementType = "initial_stock"
	MovementRestock      MovementType = "restock"
	MovementDispense     MovementType = "dispense"
	MovementAdjustment   MovementType = "adjustment"
	MovementFulfill      MovementType = "fulfill_request"
	MovementArchive      MovementType = "archive"
)

// StockMovement is one immutable ledger row:
// QuantityAfter = QuantityBefore + QuantityChange.
type StockMovement struct {
	ID             int64
	MedicineID     uuid.UUID
	MovementType   MovementType
	QuantityChange int
	QuantityBefore int
	QuantityAfter  int
	Reference      string
	Actor          string
	CreatedAt      time.Time
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "Pending"
	RequestFulfilled RequestStatus = "Fulfilled"
	RequestCancelled RequestStatus = "Cancelled"
)

// DispenseRequest consumes stock exactly once, on fulfillment.
type DispenseRequest struct {
	ID              uuid.UUID
	MedicineID      uuid.UUID
	Quantity        int
	PatientName     string
	PrescriptionRef string
	Status          RequestStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type AlertKind string

const (
	AlertOutOfStock    AlertKind = "out_of_stock"
	AlertLowStock      AlertKind = "low_stock"
	AlertExpiryWarning AlertKind = "expiry_warning"
)

// Alert is a derived warning. Alerts are logged after a successful movement
// and never block the mutation that produced them.
type Alert struct {
	Kind       AlertKind `json:"kind"`
	MedicineID uuid.UUID `json:"medicine_id"`
	SKU        string    `json:"sku"`
	Message    string    `json:"message"`
}
