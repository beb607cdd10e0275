package visit

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrVisitNotFound   = errors.New("visit not found")
	ErrVersionConflict = errors.New("visit version conflict")
)

// Repository contains all DB interactions needed by the visit service.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	Create(ctx context.Context, v *Visit) (*Visit, error)

	// UpdateCAS persists v only if the stored version still equals
	// expectedVersion, incrementing it by one. ErrVersionConflict means the
	// caller lost the race.
	UpdateCAS(ctx context.Context, v *Visit, expectedVersion int) (*Visit, error)
}
