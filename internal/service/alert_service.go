package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/events"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/observability"
)

// AlertKind enumerates user-facing alert categories.
type AlertKind string

const (
	AlertKindReminder   AlertKind = "reminder"
	AlertKindEscalation AlertKind = "escalation"
	AlertKindCritical   AlertKind = "critical"
	AlertKindResolved   AlertKind = "resolved"
)

// Alert is a user-facing notification derived from an event or a timer flag.
// HandlerID records who was responsible when the alert was generated; the
// per-viewer relevance filter runs at delivery time, not here.
type Alert struct {
	ID         string    `json:"id"`
	Kind       AlertKind `json:"kind"`
	CallID     string    `json:"call_id"`
	CallNumber string    `json:"call_number"`
	Message    string    `json:"message"`
	Priority   string    `json:"priority"`
	HandlerID  string    `json:"handler_id"`
	Timestamp  time.Time `json:"timestamp"`
}

const alertFeedLimit = 256

// AlertService converts raw events and timer transitions into deduplicated
// alerts. Escalation alerts fire at most once per (call, level) and critical
// alerts at most once per call; those marks are never cleared. Urgency and
// expiry reminders fire once per call but re-arm when the call leaves the
// urgent window, so the next level can remind again.
type AlertService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics

	mu              sync.Mutex
	escalationSeen  map[string]struct{}
	criticalSeen    map[string]struct{}
	urgentNotified  map[string]struct{}
	expiredNotified map[string]struct{}
	feed            []Alert
}

// NewAlertService creates the service.
func NewAlertService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AlertService {
	return &AlertService{
		dispatcher:      dispatcher,
		logger:          logger,
		metrics:         metrics,
		escalationSeen:  make(map[string]struct{}),
		criticalSeen:    make(map[string]struct{}),
		urgentNotified:  make(map[string]struct{}),
		expiredNotified: make(map[string]struct{}),
	}
}

// RegisterHandlers subscribes to evaluator and resolve events.
func (s *AlertService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventEscalationRaised, s.handleEscalationRaised)
	s.dispatcher.Subscribe(events.EventCriticalRaised, s.handleCriticalRaised)
	s.dispatcher.Subscribe(events.EventCallResolved, s.handleCallResolved)
}

func (s *AlertService) handleEscalationRaised(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EscalationRaisedPayload)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := fmt.Sprintf("%s:%d", event.CallID, payload.ToLevel)
	if _, seen := s.escalationSeen[key]; seen {
		return nil
	}
	s.escalationSeen[key] = struct{}{}

	// A fresh deadline means the previous urgency cycle is over.
	delete(s.urgentNotified, event.CallID)
	delete(s.expiredNotified, event.CallID)

	s.append(Alert{
		ID:         event.ID,
		Kind:       AlertKindEscalation,
		CallID:     event.CallID,
		CallNumber: event.CallNumber,
		Message: fmt.Sprintf("call %s escalated from %s to %s, now with %s",
			event.CallNumber, payload.FromDepartment, payload.ToDepartment, payload.HandlerName),
		Priority:  payload.Priority,
		HandlerID: payload.HandlerID,
		Timestamp: event.Timestamp,
	})
	return nil
}

func (s *AlertService) handleCriticalRaised(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CriticalRaisedPayload)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.criticalSeen[event.CallID]; seen {
		return nil
	}
	s.criticalSeen[event.CallID] = struct{}{}

	s.append(Alert{
		ID:         event.ID,
		Kind:       AlertKindCritical,
		CallID:     event.CallID,
		CallNumber: event.CallNumber,
		Message: fmt.Sprintf("call %s exhausted the escalation chain at %s and is critically unresolved",
			event.CallNumber, payload.Department),
		Priority:  payload.Priority,
		HandlerID: payload.HandlerID,
		Timestamp: event.Timestamp,
	})
	return nil
}

func (s *AlertService) handleCallResolved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CallResolvedPayload)
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.urgentNotified, event.CallID)
	delete(s.expiredNotified, event.CallID)

	s.append(Alert{
		ID:         event.ID,
		Kind:       AlertKindResolved,
		CallID:     event.CallID,
		CallNumber: event.CallNumber,
		Message:    fmt.Sprintf("call %s resolved by %s", event.CallNumber, payload.ResolvedByName),
		HandlerID:  payload.HandlerID,
		Timestamp:  event.Timestamp,
	})
	return nil
}

// ObserveTimers inspects the full fine-tick projection and raises reminder
// alerts on false-to-true urgency and expiry transitions. Calls absent from
// the projection (resolved or critical) have their reminder marks cleared.
func (s *AlertService) ObserveTimers(views []TimerView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[string]struct{}, len(views))
	for i := range views {
		view := &views[i]
		present[view.CallID] = struct{}{}

		if view.IsUrgent {
			if _, seen := s.urgentNotified[view.CallID]; !seen {
				s.urgentNotified[view.CallID] = struct{}{}
				s.append(Alert{
					ID:         fmt.Sprintf("urgent-%s-%d", view.CallID, view.CurrentLevel),
					Kind:       AlertKindReminder,
					CallID:     view.CallID,
					CallNumber: view.CallNumber,
					Message: fmt.Sprintf("call %s has %s left before escalation",
						view.CallNumber, view.RemainingFormatted),
					HandlerID: view.CurrentHandlerID,
					Timestamp: time.Now(),
				})
			}
		} else if !view.IsExpired {
			delete(s.urgentNotified, view.CallID)
		}

		if view.IsExpired {
			if _, seen := s.expiredNotified[view.CallID]; !seen {
				s.expiredNotified[view.CallID] = struct{}{}
				s.append(Alert{
					ID:         fmt.Sprintf("expired-%s-%d", view.CallID, view.CurrentLevel),
					Kind:       AlertKindReminder,
					CallID:     view.CallID,
					CallNumber: view.CallNumber,
					Message:    fmt.Sprintf("call %s deadline has expired", view.CallNumber),
					HandlerID:  view.CurrentHandlerID,
					Timestamp:  time.Now(),
				})
			}
		} else {
			delete(s.expiredNotified, view.CallID)
		}
	}

	for callID := range s.urgentNotified {
		if _, ok := present[callID]; !ok {
			delete(s.urgentNotified, callID)
		}
	}
	for callID := range s.expiredNotified {
		if _, ok := present[callID]; !ok {
			delete(s.expiredNotified, callID)
		}
	}
}

// ListForViewer returns the alert feed filtered by viewer relevance: current
// handler sees their own calls, supervisors and admins see everything.
func (s *AlertService) ListForViewer(viewer *domain.Handler) []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	if viewer == nil {
		return nil
	}
	elevated := viewer.Role == domain.HandlerRoleSupervisor || viewer.Role == domain.HandlerRoleAdmin

	out := make([]Alert, 0, len(s.feed))
	for _, alert := range s.feed {
		if elevated || alert.HandlerID == viewer.ID {
			out = append(out, alert)
		}
	}
	return out
}

// append assumes s.mu is held.
func (s *AlertService) append(alert Alert) {
	s.feed = append(s.feed, alert)
	if len(s.feed) > alertFeedLimit {
		s.feed = s.feed[len(s.feed)-alertFeedLimit:]
	}
	s.metrics.IncEngine(observability.CounterAlerts)
	s.logger.Info("alert raised",
		zap.String("kind", string(alert.Kind)),
		zap.String("call_number", alert.CallNumber),
		zap.String("handler_id", alert.HandlerID))
}
