package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/config"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/events"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/observability"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/repository"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/service"
	apperrors "github.com/FistoAR/AkiraServiceTool-sub000/pkg/util"
)

// RosterProvider supplies the live roster and the active ticket-load view,
// refreshed on every coarse tick so evaluation reflects current staffing.
type RosterProvider interface {
	Roster(ctx context.Context) ([]domain.Handler, error)
	Load(ctx context.Context) (map[string]int, error)
}

// repositoryRosterProvider adapts the pgx repositories.
type repositoryRosterProvider struct {
	handlers repository.HandlerRepository
	tickets  repository.TicketLoadRepository
}

// NewRepositoryRosterProvider builds a provider over the roster and load
// repositories.
func NewRepositoryRosterProvider(handlers repository.HandlerRepository, tickets repository.TicketLoadRepository) RosterProvider {
	return &repositoryRosterProvider{handlers: handlers, tickets: tickets}
}

func (p *repositoryRosterProvider) Roster(ctx context.Context) ([]domain.Handler, error) {
	active := true
	return p.handlers.List(ctx, repository.HandlerFilter{Active: &active, Limit: 1000})
}

func (p *repositoryRosterProvider) Load(ctx context.Context) (map[string]int, error) {
	return p.tickets.ActiveCounts(ctx)
}

type evalRequest struct {
	snapshot *domain.Snapshot
	now      time.Time
}

type evalResponse struct {
	result service.EvaluationResult
}

// EscalationWorker drives the engine's two cadences from one ticker: the
// timer projector runs every fine tick, the deadline evaluator every Nth.
// Evaluation runs in its own goroutine fed by a single-slot request channel,
// so at most one evaluation is ever in flight and responses are applied in
// the order requests were issued.
type EscalationWorker struct {
	store      repository.SnapshotStore
	roster     RosterProvider
	evaluator  *service.DeadlineEvaluator
	projector  *service.TimerProjector
	alerts     *service.AlertService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.EscalationConfig

	requestCh  chan evalRequest
	responseCh chan evalResponse
	stopCh     chan struct{}
	doneCh     chan struct{}

	mu      sync.Mutex
	running bool

	// inFlight is touched only from the run loop (and synchronous tests).
	inFlight bool

	timerMu    sync.RWMutex
	timerViews []service.TimerView
}

// WorkerDependencies bundles collaborators.
type WorkerDependencies struct {
	Store      repository.SnapshotStore
	Roster     RosterProvider
	Evaluator  *service.DeadlineEvaluator
	Projector  *service.TimerProjector
	Alerts     *service.AlertService
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewEscalationWorker creates the worker.
func NewEscalationWorker(cfg config.EscalationConfig, deps WorkerDependencies) *EscalationWorker {
	return &EscalationWorker{
		store:      deps.Store,
		roster:     deps.Roster,
		evaluator:  deps.Evaluator,
		projector:  deps.Projector,
		alerts:     deps.Alerts,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		cfg:        cfg,
	}
}

// Start launches the tick loop and the evaluation goroutine. Starting an
// already-running worker is a no-op; the loop can be stopped and started
// again on whatever snapshot state the store holds.
func (w *EscalationWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		w.logger.Warn("escalation worker already running")
		return
	}
	w.running = true
	w.inFlight = false
	w.requestCh = make(chan evalRequest, 1)
	w.responseCh = make(chan evalResponse, 1)
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	go w.evalLoop()
	go w.run()

	w.logger.Info("escalation worker started",
		zap.Duration("tick_interval", w.cfg.TickInterval),
		zap.Int("coarse_tick_ratio", w.cfg.CoarseTickRatio))
}

// Stop halts the tick loop. An in-flight evaluation is not cancelled; its
// response is simply discarded.
func (w *EscalationWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info("escalation worker stopped")
}

// TimerViews returns the latest fine-tick projection.
func (w *EscalationWorker) TimerViews() []service.TimerView {
	w.timerMu.RLock()
	defer w.timerMu.RUnlock()
	return append([]service.TimerView(nil), w.timerViews...)
}

func (w *EscalationWorker) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()

	ctx := context.Background()
	tick := 0

	for {
		select {
		case <-ticker.C:
			tick++
			now := time.Now()
			w.fineTick(ctx, now)
			if tick%w.cfg.CoarseTickRatio == 0 {
				w.dispatchEvaluation(ctx, now)
			}
		case resp := <-w.responseCh:
			w.applyResult(ctx, resp.result)
		case <-w.stopCh:
			close(w.requestCh)
			return
		}
	}
}

// evalLoop is the isolated evaluation context. It consumes one request at a
// time; the buffered response channel lets it exit cleanly even when the run
// loop has already stopped.
func (w *EscalationWorker) evalLoop() {
	for req := range w.requestCh {
		result := w.evaluator.Evaluate(req.snapshot, req.now)
		w.responseCh <- evalResponse{result: result}
	}
}

// fineTick refreshes the timer projection. A read fault keeps the previous
// projection; stale timers beat corrupted ones.
func (w *EscalationWorker) fineTick(ctx context.Context, now time.Time) {
	snapshot, err := w.store.Read(ctx)
	if err != nil {
		w.metrics.IncEngine(observability.CounterPersistenceFaults)
		w.logger.Error("fine tick aborted: snapshot read failed", zap.Error(err))
		return
	}

	views := w.projector.Project(snapshot.Entries, now)
	w.timerMu.Lock()
	w.timerViews = views
	w.timerMu.Unlock()

	w.alerts.ObserveTimers(views)
}

// dispatchEvaluation hands a full snapshot, with a fresh roster and load
// view, to the evaluation goroutine. A tick that arrives while a previous
// evaluation is still in flight is skipped; the next coarse tick picks the
// work up against the then-current snapshot.
func (w *EscalationWorker) dispatchEvaluation(ctx context.Context, now time.Time) {
	if w.inFlight {
		w.metrics.IncEngine(observability.CounterTicksSkipped)
		w.logger.Debug("coarse tick skipped: evaluation in flight")
		return
	}

	snapshot, err := w.store.Read(ctx)
	if err != nil {
		w.metrics.IncEngine(observability.CounterPersistenceFaults)
		w.logger.Error("coarse tick aborted: snapshot read failed", zap.Error(err))
		return
	}

	roster, err := w.roster.Roster(ctx)
	if err != nil {
		w.logger.Error("coarse tick aborted: roster fetch failed", zap.Error(err))
		return
	}
	load, err := w.roster.Load(ctx)
	if err != nil {
		w.logger.Error("coarse tick aborted: load fetch failed", zap.Error(err))
		return
	}

	snapshot.Roster = roster
	snapshot.Load = load

	w.inFlight = true
	w.requestCh <- evalRequest{snapshot: snapshot, now: now}
}

// applyResult persists the evaluation outcome and forwards raised events.
// A version conflict means a resolve landed mid-evaluation; the result is
// dropped and the next coarse tick re-evaluates the fresher snapshot.
func (w *EscalationWorker) applyResult(ctx context.Context, result service.EvaluationResult) {
	w.inFlight = false
	w.metrics.IncEngine(observability.CounterEvaluations)

	if err := w.store.Write(ctx, result.Snapshot); err != nil {
		if apperrors.IsVersionConflict(err) {
			w.logger.Info("evaluation result discarded: snapshot changed during evaluation")
			return
		}
		w.metrics.IncEngine(observability.CounterPersistenceFaults)
		w.logger.Error("evaluation result not persisted", zap.Error(err))
		return
	}

	for _, event := range result.Events {
		switch event.Type {
		case events.EventEscalationRaised:
			w.metrics.IncEngine(observability.CounterEscalations)
		case events.EventCriticalRaised:
			w.metrics.IncEngine(observability.CounterCriticals)
		}
		_ = w.dispatcher.Publish(ctx, event)
	}
}
