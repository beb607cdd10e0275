package visit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-workflow-engine/internal/clinicerr"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Intake opens a new visit at the start of the lifecycle.
func (s *Service) Intake(ctx context.Context, patientName string, isEmergency bool) (*Visit, error) {
	if patientName == "" {
		return nil, clinicerr.NewValidation("patient_name", "is required")
	}

	v := &Visit{
		ID:          uuid.New(),
		PatientName: patientName,
		Status:      StatusIntake,
		IsEmergency: isEmergency,
	}

	created, err := s.repo.Create(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("create visit: %w", err)
	}

	s.log.Info().
		Str("visit_id", created.ID.String()).
		Bool("emergency", created.IsEmergency).
		Msg("visit intake")

	return created, nil
}

// Apply runs one action against the visit. The transition is computed on the
// loaded snapshot and persisted with a version compare-and-swap, so of two
// racing writers exactly one lands; the loser gets a ConflictError and must
// reload. A caller-supplied expectedVersion is checked first, letting a UI
// detect that its view is stale before any transition work happens.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, action Action, expectedVersion *int, p ActionPayload) (*Visit, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrVisitNotFound) {
			return nil, clinicerr.NewNotFound("visit", id.String())
		}
		return nil, fmt.Errorf("load visit: %w", err)
	}

	if expectedVersion != nil && *expectedVersion != current.Version {
		return nil, clinicerr.NewConflict("visit", "updated by another user, refresh and retry")
	}

	next := *current
	if err := Transition(&next, action, p); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateCAS(ctx, &next, current.Version)
	if err != nil {
		switch {
		case errors.Is(err, ErrVersionConflict):
			return nil, clinicerr.NewConflict("visit", "updated by another user, refresh and retry")
		case errors.Is(err, ErrVisitNotFound):
			return nil, clinicerr.NewNotFound("visit", id.String())
		}
		return nil, fmt.Errorf("persist visit: %w", err)
	}

	s.log.Info().
		Str("visit_id", id.String()).
		Str("action", string(action)).
		Str("from", string(current.Status)).
		Str("to", string(updated.Status)).
		Int("version", updated.Version).
		Msg("visit transition")

	return updated, nil
}

// Get retrieves a visit by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrVisitNotFound) {
			return nil, clinicerr.NewNotFound("visit", id.String())
		}
		return nil, fmt.Errorf("get visit: %w", err)
	}
	return v, nil
}
