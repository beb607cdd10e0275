package visit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-workflow-engine/internal/clinicerr"
)

// memRepo implements the version CAS in memory the same way the UPDATE ...
// WHERE version = $2 statement does.
type memRepo struct {
	visits map[uuid.UUID]*Visit
}

func newMemRepo() *memRepo {
	return &memRepo{visits: map[uuid.UUID]*Visit{}}
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, ok := r.visits[id]
	if !ok {
		return nil, ErrVisitNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *memRepo) Create(ctx context.Context, v *Visit) (*Visit, error) {
	cp := *v
	cp.Version = 1
	r.visits[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memRepo) UpdateCAS(ctx context.Context, v *Visit, expectedVersion int) (*Visit, error) {
	stored, ok := r.visits[v.ID]
	if !ok {
		return nil, ErrVisitNotFound
	}
	if stored.Version != expectedVersion {
		return nil, ErrVersionConflict
	}
	cp := *v
	cp.Version = expectedVersion + 1
	r.visits[cp.ID] = &cp
	out := cp
	return &out, nil
}

func newVisitService(repo Repository) *Service {
	return NewService(repo, zerolog.Nop())
}

func TestIntakeStartsAtVersionOne(t *testing.T) {
	repo := newMemRepo()
	svc := newVisitService(repo)

	v, err := svc.Intake(context.Background(), "Alice", false)
	require.NoError(t, err)

	assert.Equal(t, StatusIntake, v.Status)
	assert.Equal(t, 1, v.Version)
	assert.False(t, v.IsEmergency)
}

func TestIntakeRequiresPatientName(t *testing.T) {
	svc := newVisitService(newMemRepo())

	_, err := svc.Intake(context.Background(), "", false)

	var verr *clinicerr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "patient_name", verr.Field)
}

func TestApplyIncrementsVersionByOne(t *testing.T) {
	repo := newMemRepo()
	svc := newVisitService(repo)

	v, err := svc.Intake(context.Background(), "Alice", false)
	require.NoError(t, err)

	updated, err := svc.Apply(context.Background(), v.ID, ActionMoveToQueue, nil, ActionPayload{})
	require.NoError(t, err)

	assert.Equal(t, StatusQueue, updated.Status)
	assert.Equal(t, 2, updated.Version)
}

func TestApplyRejectedTransitionLeavesVersionUnchanged(t *testing.T) {
	repo := newMemRepo()
	svc := newVisitService(repo)

	v, err := svc.Intake(context.Background(), "Alice", false)
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), v.ID, ActionComplete, nil, ActionPayload{})
	var terr *clinicerr.StateTransitionError
	require.True(t, errors.As(err, &terr))

	stored, err := svc.Get(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
	assert.Equal(t, StatusIntake, stored.Status)
}

func TestApplyStaleExpectedVersion(t *testing.T) {
	repo := newMemRepo()
	svc := newVisitService(repo)

	v, err := svc.Intake(context.Background(), "Alice", false)
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), v.ID, ActionMoveToQueue, nil, ActionPayload{})
	require.NoError(t, err)

	// A client still holding version 1 must be told to refresh.
	stale := 1
	_, err = svc.Apply(context.Background(), v.ID, ActionAssignDoctor, &stale, ActionPayload{AssignedDoctor: "Dr. Reyes"})

	var cerr *clinicerr.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "visit", cerr.Entity)
}

func TestApplyLostCASRace(t *testing.T) {
	repo := newMemRepo()
	svc := newVisitService(repo)

	v, err := svc.Intake(context.Background(), "Alice", false)
	require.NoError(t, err)

	// Another writer bumps the version between our load and our CAS.
	racer := &raceRepo{memRepo: repo, visitID: v.ID}
	racySvc := newVisitService(racer)

	_, err = racySvc.Apply(context.Background(), v.ID, ActionMoveToQueue, nil, ActionPayload{})

	var cerr *clinicerr.ConflictError
	require.True(t, errors.As(err, &cerr))

	stored, err := svc.Get(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version, "only the racing writer's increment lands")
}

func TestApplyUnknownVisit(t *testing.T) {
	svc := newVisitService(newMemRepo())

	_, err := svc.Apply(context.Background(), uuid.New(), ActionMoveToQueue, nil, ActionPayload{})

	var nerr *clinicerr.NotFoundError
	require.True(t, errors.As(err, &nerr))
}

// raceRepo lets a competing write land after GetByID but before UpdateCAS.
type raceRepo struct {
	*memRepo
	visitID uuid.UUID
	raced   bool
}

func (r *raceRepo) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, err := r.memRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.raced && id == r.visitID {
		r.raced = true
		competing := *r.memRepo.visits[id]
		competing.Status = StatusQueue
		if _, err := r.memRepo.UpdateCAS(ctx, &competing, competing.Version); err != nil {
			return nil, err
		}
	}
	return v, nil
}
