package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/events"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/repository"
	apperrors "github.com/FistoAR/AkiraServiceTool-sub000/pkg/util"
)

func newEscalationFixture(t *testing.T) (*EscalationService, repository.SnapshotStore, events.Dispatcher) {
	t.Helper()
	store := repository.NewMemorySnapshotStore()
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewEscalationService(evaluatorConfig(), EscalationDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
	return svc, store, dispatcher
}

func TestCreateEntry_AssignedAtChainStart(t *testing.T) {
	svc, store, _ := newEscalationFixture(t)
	ctx := context.Background()

	before := time.Now()
	entry, err := svc.CreateEntry(ctx, EntryCreateInput{
		CallNumber:  "C-1001",
		HandlerID:   "h-1",
		HandlerName: "First Line",
		Payload:     domain.CallPayload{Priority: "HIGH", CustomerName: "Acme"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, entry.CallID)
	assert.Equal(t, domain.EscalationStatusAssigned, entry.Status)
	assert.Equal(t, 0, entry.CurrentLevel)
	assert.Equal(t, "L1", entry.CurrentDepartment)
	assert.False(t, entry.Deadline.Before(before.Add(30*time.Minute)))

	snapshot, err := store.Read(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot.Entries, 1)
	assert.Equal(t, entry.CallID, snapshot.Entries[0].CallID)
}

func TestCreateEntry_PendingWithoutHandler(t *testing.T) {
	svc, _, _ := newEscalationFixture(t)

	entry, err := svc.CreateEntry(context.Background(), EntryCreateInput{CallNumber: "C-1002"})
	require.NoError(t, err)
	assert.Equal(t, domain.EscalationStatusPending, entry.Status)
	assert.Empty(t, entry.CurrentHandlerID)
}

func TestCreateEntry_RejectsBlankCallNumber(t *testing.T) {
	svc, _, _ := newEscalationFixture(t)

	_, err := svc.CreateEntry(context.Background(), EntryCreateInput{CallNumber: "   "})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestCreateEntry_RejectsDuplicateActiveCallNumber(t *testing.T) {
	svc, _, _ := newEscalationFixture(t)
	ctx := context.Background()

	_, err := svc.CreateEntry(ctx, EntryCreateInput{CallNumber: "C-1003"})
	require.NoError(t, err)

	_, err = svc.CreateEntry(ctx, EntryCreateInput{CallNumber: "C-1003"})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestCreateEntry_AllowsReuseAfterResolve(t *testing.T) {
	svc, _, _ := newEscalationFixture(t)
	ctx := context.Background()
	viewer := &domain.Handler{ID: "sup-1", Name: "Supervisor", Role: domain.HandlerRoleSupervisor}

	first, err := svc.CreateEntry(ctx, EntryCreateInput{CallNumber: "C-1004"})
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, viewer, first.CallID)
	require.NoError(t, err)

	second, err := svc.CreateEntry(ctx, EntryCreateInput{CallNumber: "C-1004"})
	require.NoError(t, err)
	assert.NotEqual(t, first.CallID, second.CallID)
}

func TestResolve_FreezesEntryAndPublishesEvent(t *testing.T) {
	svc, store, dispatcher := newEscalationFixture(t)
	ctx := context.Background()

	var published []events.Event
	dispatcher.Subscribe(events.EventCallResolved, func(ctx context.Context, event events.Event) error {
		published = append(published, event)
		return nil
	})

	entry, err := svc.CreateEntry(ctx, EntryCreateInput{
		CallNumber: "C-1005", HandlerID: "h-1", HandlerName: "First Line",
	})
	require.NoError(t, err)

	viewer := &domain.Handler{ID: "h-1", Name: "First Line", Role: domain.HandlerRoleAgent}
	resolved, err := svc.Resolve(ctx, viewer, entry.CallID)
	require.NoError(t, err)

	assert.Equal(t, domain.EscalationStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	snapshot, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.EscalationStatusResolved, snapshot.Entries[0].Status)

	require.Len(t, published, 1)
	payload, ok := published[0].Payload.(events.CallResolvedPayload)
	require.True(t, ok)
	assert.Equal(t, "h-1", payload.ResolvedByID)
	assert.Equal(t, "h-1", payload.HandlerID)
}

func TestResolve_UnknownCallIsNotFound(t *testing.T) {
	svc, _, _ := newEscalationFixture(t)
	viewer := &domain.Handler{ID: "h-1", Role: domain.HandlerRoleAgent}

	_, err := svc.Resolve(context.Background(), viewer, "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestResolve_AlreadyTerminalIsConflict(t *testing.T) {
	svc, _, _ := newEscalationFixture(t)
	ctx := context.Background()
	viewer := &domain.Handler{ID: "h-1", Role: domain.HandlerRoleAgent}

	entry, err := svc.CreateEntry(ctx, EntryCreateInput{CallNumber: "C-1006"})
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, viewer, entry.CallID)
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, viewer, entry.CallID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

// conflictingStore rejects the first n writes with a version conflict to
// simulate an evaluator apply racing the caller.
type conflictingStore struct {
	repository.SnapshotStore
	conflicts int
}

func (s *conflictingStore) Write(ctx context.Context, snapshot *domain.Snapshot) error {
	if s.conflicts > 0 {
		s.conflicts--
		return apperrors.NewVersionConflict(snapshot.Version, snapshot.Version+1)
	}
	return s.SnapshotStore.Write(ctx, snapshot)
}

func TestMutate_RetriesOnVersionConflict(t *testing.T) {
	store := &conflictingStore{SnapshotStore: repository.NewMemorySnapshotStore(), conflicts: 2}
	svc := NewEscalationService(evaluatorConfig(), EscalationDependencies{
		Store:      store,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     zap.NewNop(),
	})

	entry, err := svc.CreateEntry(context.Background(), EntryCreateInput{CallNumber: "C-1007"})
	require.NoError(t, err)
	assert.Equal(t, "C-1007", entry.CallNumber)
	assert.Zero(t, store.conflicts)
}

func TestMutate_GivesUpAfterRepeatedConflicts(t *testing.T) {
	store := &conflictingStore{SnapshotStore: repository.NewMemorySnapshotStore(), conflicts: 10}
	svc := NewEscalationService(evaluatorConfig(), EscalationDependencies{
		Store:      store,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     zap.NewNop(),
	})

	_, err := svc.CreateEntry(context.Background(), EntryCreateInput{CallNumber: "C-1008"})
	require.Error(t, err)
	assert.True(t, apperrors.IsVersionConflict(err))
}
