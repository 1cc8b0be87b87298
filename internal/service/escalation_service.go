package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/config"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/events"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/repository"
	apperrors "github.com/FistoAR/AkiraServiceTool-sub000/pkg/util"
)

// writeAttempts bounds optimistic-write retries when a store write races the
// evaluator. Each retry re-reads a fresh snapshot, so the loop converges.
const writeAttempts = 3

// EscalationService owns the externally-triggered entry mutations: intake of
// a freshly assigned call and the explicit resolve action. Both go through
// the same versioned read-transform-write cycle the evaluator uses, so a
// resolve racing an in-flight evaluation is rejected and retried instead of
// being lost.
type EscalationService struct {
	store      repository.SnapshotStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.EscalationConfig
}

// EscalationDependencies bundles collaborators.
type EscalationDependencies struct {
	Store      repository.SnapshotStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewEscalationService creates the service.
func NewEscalationService(cfg config.EscalationConfig, deps EscalationDependencies) *EscalationService {
	return &EscalationService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		cfg:        cfg,
	}
}

// EntryCreateInput captures the intake payload for a call entering
// escalation tracking.
type EntryCreateInput struct {
	CallNumber  string
	HandlerID   string
	HandlerName string
	Payload     domain.CallPayload
}

// CreateEntry registers a call at level zero of the chain with an initial
// deadline. The engine owns the entry's lifecycle from this point on.
func (s *EscalationService) CreateEntry(ctx context.Context, input EntryCreateInput) (*domain.EscalationEntry, error) {
	if strings.TrimSpace(input.CallNumber) == "" {
		return nil, apperrors.NewValidationError("call_number required", nil)
	}

	now := time.Now()
	entry := domain.EscalationEntry{
		CallID:             uuid.NewString(),
		CallNumber:         input.CallNumber,
		Status:             domain.EscalationStatusPending,
		CurrentLevel:       0,
		CurrentDepartment:  s.cfg.Chain[0],
		CurrentHandlerID:   input.HandlerID,
		CurrentHandlerName: input.HandlerName,
		Deadline:           now.Add(s.cfg.Timeout),
		Payload:            input.Payload,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if input.HandlerID != "" {
		entry.Status = domain.EscalationStatusAssigned
	}

	err := s.mutate(ctx, func(snapshot *domain.Snapshot) error {
		for i := range snapshot.Entries {
			if snapshot.Entries[i].CallNumber == input.CallNumber && !snapshot.Entries[i].Status.IsTerminal() {
				return apperrors.NewConflict("call already under escalation tracking",
					map[string]any{"call_number": input.CallNumber})
			}
		}
		snapshot.Entries = append(snapshot.Entries, entry.Clone())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("escalation entry created",
		zap.String("call_id", entry.CallID),
		zap.String("call_number", entry.CallNumber),
		zap.String("department", entry.CurrentDepartment))
	return &entry, nil
}

// Resolve freezes the entry. Whether the viewer may resolve the call is the
// caller's concern; the engine trusts its inputs here.
func (s *EscalationService) Resolve(ctx context.Context, viewer *domain.Handler, callID string) (*domain.EscalationEntry, error) {
	if viewer == nil {
		return nil, apperrors.NewUnauthorized("handler required")
	}

	var resolved domain.EscalationEntry
	now := time.Now()

	err := s.mutate(ctx, func(snapshot *domain.Snapshot) error {
		entry := snapshot.FindEntry(callID)
		if entry == nil {
			return apperrors.NewNotFound("escalation entry", map[string]any{"call_id": callID})
		}
		if entry.Status.IsTerminal() {
			return apperrors.NewConflict("entry already terminal", map[string]any{
				"call_id": callID,
				"status":  entry.Status,
			})
		}

		entry.Status = domain.EscalationStatusResolved
		entry.ResolvedAt = &now
		entry.UpdatedAt = now
		resolved = entry.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishResolved(ctx, viewer, &resolved, now)
	return &resolved, nil
}

// ListEntries returns a copy of all tracked entries.
func (s *EscalationService) ListEntries(ctx context.Context) ([]domain.EscalationEntry, error) {
	snapshot, err := s.store.Read(ctx)
	if err != nil {
		return nil, err
	}
	return snapshot.Entries, nil
}

// GetEntry returns a single entry by call id.
func (s *EscalationService) GetEntry(ctx context.Context, callID string) (*domain.EscalationEntry, error) {
	snapshot, err := s.store.Read(ctx)
	if err != nil {
		return nil, err
	}
	entry := snapshot.FindEntry(callID)
	if entry == nil {
		return nil, apperrors.NewNotFound("escalation entry", map[string]any{"call_id": callID})
	}
	clone := entry.Clone()
	return &clone, nil
}

// mutate runs a read-transform-write cycle against the store, retrying a
// bounded number of times on version conflicts.
func (s *EscalationService) mutate(ctx context.Context, transform func(*domain.Snapshot) error) error {
	var lastErr error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		snapshot, err := s.store.Read(ctx)
		if err != nil {
			return err
		}
		if err := transform(snapshot); err != nil {
			return err
		}
		if err := s.store.Write(ctx, snapshot); err != nil {
			if apperrors.IsVersionConflict(err) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return lastErr
}

func (s *EscalationService) publishResolved(ctx context.Context, viewer *domain.Handler, entry *domain.EscalationEntry, now time.Time) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventCallResolved,
		CallID:     entry.CallID,
		CallNumber: entry.CallNumber,
		Timestamp:  now,
		Payload: events.CallResolvedPayload{
			ResolvedByID:   viewer.ID,
			ResolvedByName: viewer.Name,
			ResolvedAt:     now,
			HandlerID:      entry.CurrentHandlerID,
		},
	}
	_ = s.dispatcher.Publish(ctx, event)
}
