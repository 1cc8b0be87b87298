package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/config"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/events"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/observability"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/repository"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/service"
	apperrors "github.com/FistoAR/AkiraServiceTool-sub000/pkg/util"
)

type staticRoster struct {
	roster []domain.Handler
	load   map[string]int
}

func (s *staticRoster) Roster(ctx context.Context) ([]domain.Handler, error) { return s.roster, nil }
func (s *staticRoster) Load(ctx context.Context) (map[string]int, error)     { return s.load, nil }

// faultyStore fails reads on demand while delegating to a real store.
type faultyStore struct {
	repository.SnapshotStore
	failReads bool
}

func (s *faultyStore) Read(ctx context.Context) (*domain.Snapshot, error) {
	if s.failReads {
		return nil, apperrors.NewPersistenceError("read", errors.New("connection refused"))
	}
	return s.SnapshotStore.Read(ctx)
}

func workerConfig() config.EscalationConfig {
	return config.EscalationConfig{
		Chain:            []string{"L1", "L2", "L3"},
		Timeout:          30 * time.Minute,
		UrgencyThreshold: 5 * time.Minute,
		TickInterval:     5 * time.Millisecond,
		CoarseTickRatio:  2,
	}
}

type workerFixture struct {
	worker  *EscalationWorker
	store   *faultyStore
	metrics *observability.Metrics
	alerts  *service.AlertService
}

func newWorkerFixture(t *testing.T, roster RosterProvider) *workerFixture {
	t.Helper()
	cfg := workerConfig()
	store := &faultyStore{SnapshotStore: repository.NewMemorySnapshotStore()}
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	alerts := service.NewAlertService(dispatcher, zap.NewNop(), metrics)
	alerts.RegisterHandlers()

	w := NewEscalationWorker(cfg, WorkerDependencies{
		Store:      store,
		Roster:     roster,
		Evaluator:  service.NewDeadlineEvaluator(cfg),
		Projector:  service.NewTimerProjector(cfg),
		Alerts:     alerts,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     zap.NewNop(),
	})
	// Tests drive the tick methods synchronously, so the channels that Start
	// would create are set up here.
	w.requestCh = make(chan evalRequest, 1)
	w.responseCh = make(chan evalResponse, 1)
	return &workerFixture{worker: w, store: store, metrics: metrics, alerts: alerts}
}

func seedEntry(t *testing.T, store repository.SnapshotStore, entry domain.EscalationEntry) {
	t.Helper()
	ctx := context.Background()
	snapshot, err := store.Read(ctx)
	require.NoError(t, err)
	snapshot.Entries = append(snapshot.Entries, entry)
	require.NoError(t, store.Write(ctx, snapshot))
}

func overdueEntry(callID string) domain.EscalationEntry {
	return domain.EscalationEntry{
		CallID:            callID,
		CallNumber:        "C-" + callID,
		Status:            domain.EscalationStatusAssigned,
		CurrentDepartment: "L1",
		CurrentHandlerID:  "h-0",
		Deadline:          time.Now().Add(-time.Minute),
		Payload:           domain.CallPayload{Priority: "HIGH"},
	}
}

func TestFineTick_RefreshesTimerProjection(t *testing.T) {
	fx := newWorkerFixture(t, &staticRoster{})
	now := time.Now()
	entry := overdueEntry("c1")
	entry.Deadline = now.Add(30 * time.Second)
	seedEntry(t, fx.store, entry)

	fx.worker.fineTick(context.Background(), now)

	views := fx.worker.TimerViews()
	require.Len(t, views, 1)
	assert.Equal(t, "c1", views[0].CallID)
	assert.True(t, views[0].IsUrgent)
	// The urgency transition produced a reminder alert.
	assert.Equal(t, int64(1), fx.metrics.EngineCount(observability.CounterAlerts))
}

func TestFineTick_ReadFaultKeepsStaleProjection(t *testing.T) {
	fx := newWorkerFixture(t, &staticRoster{})
	now := time.Now()
	entry := overdueEntry("c1")
	entry.Deadline = now.Add(10 * time.Minute)
	seedEntry(t, fx.store, entry)

	fx.worker.fineTick(context.Background(), now)
	require.Len(t, fx.worker.TimerViews(), 1)

	fx.store.failReads = true
	fx.worker.fineTick(context.Background(), now.Add(time.Second))

	assert.Len(t, fx.worker.TimerViews(), 1)
	assert.Equal(t, int64(1), fx.metrics.EngineCount(observability.CounterPersistenceFaults))
}

func TestDispatchEvaluation_SkipsWhileInFlight(t *testing.T) {
	fx := newWorkerFixture(t, &staticRoster{})
	fx.worker.inFlight = true

	fx.worker.dispatchEvaluation(context.Background(), time.Now())

	assert.Empty(t, fx.worker.requestCh)
	assert.Equal(t, int64(1), fx.metrics.EngineCount(observability.CounterTicksSkipped))
}

func TestDispatchEvaluation_AttachesFreshRosterAndLoad(t *testing.T) {
	roster := &staticRoster{
		roster: []domain.Handler{{ID: "E2", Name: "Idle", Department: "L2"}},
		load:   map[string]int{"E2": 0},
	}
	fx := newWorkerFixture(t, roster)
	seedEntry(t, fx.store, overdueEntry("c1"))

	fx.worker.dispatchEvaluation(context.Background(), time.Now())

	require.True(t, fx.worker.inFlight)
	req := <-fx.worker.requestCh
	assert.Equal(t, roster.roster, req.snapshot.Roster)
	assert.Equal(t, roster.load, req.snapshot.Load)
	require.Len(t, req.snapshot.Entries, 1)
}

func TestApplyResult_PersistsAndPublishes(t *testing.T) {
	roster := &staticRoster{roster: []domain.Handler{{ID: "E2", Name: "Idle", Department: "L2"}}}
	fx := newWorkerFixture(t, roster)
	seedEntry(t, fx.store, overdueEntry("c1"))
	ctx := context.Background()
	now := time.Now()

	fx.worker.dispatchEvaluation(ctx, now)
	req := <-fx.worker.requestCh
	result := service.NewDeadlineEvaluator(workerConfig()).Evaluate(req.snapshot, now)

	fx.worker.applyResult(ctx, result)

	assert.False(t, fx.worker.inFlight)
	assert.Equal(t, int64(1), fx.metrics.EngineCount(observability.CounterEvaluations))
	assert.Equal(t, int64(1), fx.metrics.EngineCount(observability.CounterEscalations))

	snapshot, err := fx.store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Entries[0].CurrentLevel)
	assert.Equal(t, domain.EscalationStatusEscalated, snapshot.Entries[0].Status)

	feed := fx.alerts.ListForViewer(&domain.Handler{ID: "x", Role: domain.HandlerRoleSupervisor})
	require.Len(t, feed, 1)
	assert.Equal(t, service.AlertKindEscalation, feed[0].Kind)
}

func TestApplyResult_DiscardsStaleEvaluation(t *testing.T) {
	roster := &staticRoster{roster: []domain.Handler{{ID: "E2", Department: "L2"}}}
	fx := newWorkerFixture(t, roster)
	seedEntry(t, fx.store, overdueEntry("c1"))
	ctx := context.Background()
	now := time.Now()

	fx.worker.dispatchEvaluation(ctx, now)
	req := <-fx.worker.requestCh
	result := service.NewDeadlineEvaluator(workerConfig()).Evaluate(req.snapshot, now)

	// A resolve lands while the evaluation is in flight.
	racing, err := fx.store.Read(ctx)
	require.NoError(t, err)
	resolvedAt := now
	racing.Entries[0].Status = domain.EscalationStatusResolved
	racing.Entries[0].ResolvedAt = &resolvedAt
	require.NoError(t, fx.store.Write(ctx, racing))

	fx.worker.applyResult(ctx, result)

	assert.False(t, fx.worker.inFlight)
	snapshot, err := fx.store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.EscalationStatusResolved, snapshot.Entries[0].Status)
	assert.Equal(t, 0, snapshot.Entries[0].CurrentLevel)
	assert.Zero(t, fx.metrics.EngineCount(observability.CounterEscalations))
}

func TestWorker_RunLoopEscalatesOverdueEntry(t *testing.T) {
	roster := &staticRoster{roster: []domain.Handler{{ID: "E2", Name: "Idle", Department: "L2"}}}
	fx := newWorkerFixture(t, roster)
	seedEntry(t, fx.store, overdueEntry("c1"))

	fx.worker.Start()
	defer fx.worker.Stop()

	require.Eventually(t, func() bool {
		return fx.metrics.EngineCount(observability.CounterEscalations) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	snapshot, err := fx.store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Entries[0].CurrentLevel)
}

func TestWorker_StartTwiceIsNoOp(t *testing.T) {
	fx := newWorkerFixture(t, &staticRoster{})
	fx.worker.Start()
	fx.worker.Start()
	fx.worker.Stop()
	fx.worker.Stop()
}
