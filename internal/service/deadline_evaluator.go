package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/config"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/events"
)

// DeadlineEvaluator is the state-machine core. It never touches the store
// itself: it maps (snapshot, now) to (new snapshot, raised events) and leaves
// persistence to the caller, so a failed write simply abandons the result.
type DeadlineEvaluator struct {
	chain   []string
	timeout time.Duration
}

// NewDeadlineEvaluator builds an evaluator from validated configuration.
func NewDeadlineEvaluator(cfg config.EscalationConfig) *DeadlineEvaluator {
	return &DeadlineEvaluator{
		chain:   append([]string(nil), cfg.Chain...),
		timeout: cfg.Timeout,
	}
}

// EvaluationResult carries the replacement snapshot plus the events raised
// while producing it, in entry order.
type EvaluationResult struct {
	Snapshot *domain.Snapshot
	Events   []events.Event
}

// Evaluate advances every entry whose deadline has been reached. Terminal
// entries are never touched; an empty target department leaves the entry
// untouched for a retry on the next coarse tick; an exhausted chain flips
// the entry to CRITICAL_UNRESOLVED exactly once. Business conditions never
// produce errors.
func (e *DeadlineEvaluator) Evaluate(snapshot *domain.Snapshot, now time.Time) EvaluationResult {
	next := snapshot.Clone()
	var raised []events.Event

	for i := range next.Entries {
		entry := &next.Entries[i]
		if entry.Status.IsChainTerminal() {
			continue
		}
		if now.Before(entry.Deadline) {
			continue
		}

		if entry.CurrentLevel+1 < len(e.chain) {
			targetDept := e.chain[entry.CurrentLevel+1]
			handler, ok := SelectHandler(targetDept, next.Roster, next.Load)
			if !ok {
				// Stalled: no handler in the target department. The entry
				// keeps its level and deadline and is retried next tick.
				continue
			}
			raised = append(raised, e.escalate(entry, handler, targetDept, now))
		} else {
			raised = append(raised, e.markCritical(entry, now))
		}
	}

	next.TakenAt = now
	return EvaluationResult{Snapshot: next, Events: raised}
}

func (e *DeadlineEvaluator) escalate(entry *domain.EscalationEntry, handler domain.Handler, targetDept string, now time.Time) events.Event {
	fromLevel := entry.CurrentLevel
	fromDept := entry.CurrentDepartment
	deadline := now.Add(e.timeout)

	entry.History = append(entry.History, domain.EscalationRecord{
		Level:               fromLevel + 1,
		Department:          targetDept,
		HandlerID:           handler.ID,
		HandlerName:         handler.Name,
		AssignedAt:          now,
		Deadline:            deadline,
		PreviousDepartment:  fromDept,
		PreviousHandlerID:   entry.CurrentHandlerID,
		PreviousHandlerName: entry.CurrentHandlerName,
		Reason:              fmt.Sprintf("deadline exceeded in %s; escalated to %s", fromDept, targetDept),
	})

	entry.CurrentLevel = fromLevel + 1
	entry.CurrentDepartment = targetDept
	entry.CurrentHandlerID = handler.ID
	entry.CurrentHandlerName = handler.Name
	entry.Deadline = deadline
	entry.Status = domain.EscalationStatusEscalated
	entry.UpdatedAt = now

	return events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventEscalationRaised,
		CallID:     entry.CallID,
		CallNumber: entry.CallNumber,
		Timestamp:  now,
		Payload: events.EscalationRaisedPayload{
			FromLevel:      fromLevel,
			ToLevel:        entry.CurrentLevel,
			FromDepartment: fromDept,
			ToDepartment:   targetDept,
			HandlerID:      handler.ID,
			HandlerName:    handler.Name,
			Priority:       entry.Payload.Priority,
			CustomerName:   entry.Payload.CustomerName,
		},
	}
}

func (e *DeadlineEvaluator) markCritical(entry *domain.EscalationEntry, now time.Time) events.Event {
	entry.Status = domain.EscalationStatusCriticalUnresolved
	entry.UpdatedAt = now

	return events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventCriticalRaised,
		CallID:     entry.CallID,
		CallNumber: entry.CallNumber,
		Timestamp:  now,
		Payload: events.CriticalRaisedPayload{
			Level:        entry.CurrentLevel,
			Department:   entry.CurrentDepartment,
			HandlerID:    entry.CurrentHandlerID,
			Priority:     entry.Payload.Priority,
			CustomerName: entry.Payload.CustomerName,
		},
	}
}
