package lab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-workflow-engine/internal/clinicerr"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

type CreateParams struct {
	PatientName string
	TestType    string
	Actor       string
}

// CreateRequest opens a new request in Pending.
func (s *Service) CreateRequest(ctx context.Context, p CreateParams) (*LabRequest, error) {
	if p.PatientName == "" {
		return nil, clinicerr.NewValidation("patient_name", "is required")
	}
	if p.TestType == "" {
		return nil, clinicerr.NewValidation("test_type", "is required")
	}

	req := &LabRequest{
		RequestID:   uuid.New(),
		PatientName: p.PatientName,
		TestType:    p.TestType,
		Status:      StatusPending,
	}

	entry := &ActivityEntry{
		RequestID: req.RequestID,
		Action:    "created",
		Detail:    fmt.Sprintf("request opened for %s", p.TestType),
		Actor:     p.Actor,
	}

	created, err := s.repo.Create(ctx, req, entry)
	if err != nil {
		return nil, fmt.Errorf("create lab request: %w", err)
	}

	s.log.Info().Str("request_id", created.RequestID.String()).Str("test_type", created.TestType).Msg("lab request created")
	return created, nil
}

// Apply dispatches one action against the request. Every accepted transition
// appends exactly one activity entry in the same transaction as the write.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, action Action, p ActionPayload) (*LabRequest, error) {
	var fn Mutator

	switch action {
	case ActionStartProcessing:
		fn = s.startProcessing(p)
	case ActionSaveResults:
		fn = s.saveResults(p)
	case ActionRelease:
		fn = s.release(p)
	case ActionReject:
		if p.Reason == "" {
			return nil, clinicerr.NewValidation("reason", "is required to reject a request")
		}
		fn = s.reject(p)
	default:
		return nil, clinicerr.NewValidation("action", fmt.Sprintf("unknown action %q", action))
	}

	updated, err := s.repo.Mutate(ctx, id, fn)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, clinicerr.NewNotFound("lab request", id.String())
		}
		return nil, err
	}

	s.log.Info().
		Str("request_id", id.String()).
		Str("action", string(action)).
		Str("status", string(updated.Status)).
		Msg("lab transition")

	return updated, nil
}

func (s *Service) startProcessing(p ActionPayload) Mutator {
	return func(req *LabRequest) (*ActivityEntry, error) {
		if err := requireStatus(ActionStartProcessing, req.Status, StatusPending); err != nil {
			return nil, err
		}

		now := s.now()
		req.Status = StatusInProgress
		req.SampleCollected = true
		req.CollectedBy = p.CollectedBy
		req.CollectedAt = &now
		req.SpecimenType = p.SpecimenType

		return &ActivityEntry{
			RequestID: req.RequestID,
			Action:    string(ActionStartProcessing),
			Detail:    fmt.Sprintf("sample collected (%s)", p.SpecimenType),
			Actor:     p.Actor,
		}, nil
	}
}

func (s *Service) saveResults(p ActionPayload) Mutator {
	return func(req *LabRequest) (*ActivityEntry, error) {
		if err := requireStatus(ActionSaveResults, req.Status, StatusInProgress); err != nil {
			return nil, err
		}

		req.EncodedResults = p.EncodedResults

		if !p.Finalize {
			return &ActivityEntry{
				RequestID: req.RequestID,
				Action:    string(ActionSaveResults),
				Detail:    "draft results saved",
				Actor:     p.Actor,
			}, nil
		}

		now := s.now()
		req.Status = StatusResultReady
		req.ResultEncodedAt = &now
		req.VerifiedBy = p.VerifiedBy
		req.VerifiedAt = &now

		return &ActivityEntry{
			RequestID: req.RequestID,
			Action:    string(ActionSaveResults),
			Detail:    "results finalized and verified",
			Actor:     p.Actor,
		}, nil
	}
}

func (s *Service) release(p ActionPayload) Mutator {
	return func(req *LabRequest) (*ActivityEntry, error) {
		// Release is legal from Result Ready only. Calling it again on a
		// Completed request is an error, never a duplicate release.
		if err := requireStatus(ActionRelease, req.Status, StatusResultReady); err != nil {
			return nil, err
		}

		now := s.now()
		req.Status = StatusCompleted
		req.ReleasedBy = p.ReleasedBy
		req.ReleasedAt = &now

		return &ActivityEntry{
			RequestID: req.RequestID,
			Action:    string(ActionRelease),
			Detail:    "result released",
			Actor:     p.Actor,
		}, nil
	}
}

func (s *Service) reject(p ActionPayload) Mutator {
	return func(req *LabRequest) (*ActivityEntry, error) {
		if req.Status.Terminal() {
			return nil, &clinicerr.StateTransitionError{
				Action:   string(ActionReject),
				Current:  string(req.Status),
				Required: []string{string(StatusPending), string(StatusInProgress), string(StatusResultReady)},
			}
		}

		req.Status = StatusCancelled
		req.RejectReason = p.Reason
		req.ResampleFlag = p.Resample

		detail := "request rejected: " + p.Reason
		if p.Resample {
			detail += " (resample requested)"
		}

		return &ActivityEntry{
			RequestID: req.RequestID,
			Action:    string(ActionReject),
			Detail:    detail,
			Actor:     p.Actor,
		}, nil
	}
}

// Get retrieves a request by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*LabRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, clinicerr.NewNotFound("lab request", id.String())
		}
		return nil, fmt.Errorf("get lab request: %w", err)
	}
	return req, nil
}

// Activity returns the append-only audit trail, oldest first.
func (s *Service) Activity(ctx context.Context, id uuid.UUID) ([]ActivityEntry, error) {
	entries, err := s.repo.ListActivity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}

func requireStatus(action Action, cur Status, allowed ...Status) error {
	for _, a := range allowed {
		if cur == a {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return &clinicerr.StateTransitionError{
		Action:   string(action),
		Current:  string(cur),
		Required: names,
	}
}
