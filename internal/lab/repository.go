package lab

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrRequestNotFound = errors.New("lab request not found")
)

// Mutator validates and mutates the request in place, returning the activity
// entry to append. It runs on the row-locked snapshot inside the repository's
// transaction, so concurrent actions on the same request serialize.
type Mutator func(req *LabRequest) (*ActivityEntry, error)

// Repository contains all DB interactions needed by the lab service.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*LabRequest, error)
	Create(ctx context.Context, req *LabRequest, entry *ActivityEntry) (*LabRequest, error)
	Mutate(ctx context.Context, id uuid.UUID, fn Mutator) (*LabRequest, error)
	ListActivity(ctx context.Context, id uuid.UUID) ([]ActivityEntry, error)
}
