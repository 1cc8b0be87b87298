package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventEscalationRaised EventType = "escalation_raised"
	EventCriticalRaised   EventType = "critical_raised"
	EventCallResolved     EventType = "call_resolved"
)

// Event represents a discrete fact raised by the deadline evaluator or the
// resolve action. Events are viewer-agnostic; relevance filtering happens at
// alert delivery time.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	CallID     string      `json:"call_id"`
	CallNumber string      `json:"call_number"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// EscalationRaisedPayload describes a level advance.
type EscalationRaisedPayload struct {
	FromLevel      int    `json:"from_level"`
	ToLevel        int    `json:"to_level"`
	FromDepartment string `json:"from_department"`
	ToDepartment   string `json:"to_department"`
	HandlerID      string `json:"handler_id"`
	HandlerName    string `json:"handler_name"`
	Priority       string `json:"priority"`
	CustomerName   string `json:"customer_name"`
}

// CriticalRaisedPayload describes chain exhaustion.
type CriticalRaisedPayload struct {
	Level        int    `json:"level"`
	Department   string `json:"department"`
	HandlerID    string `json:"handler_id"`
	Priority     string `json:"priority"`
	CustomerName string `json:"customer_name"`
}

// CallResolvedPayload describes an explicit resolve action.
type CallResolvedPayload struct {
	ResolvedByID   string    `json:"resolved_by_id"`
	ResolvedByName string    `json:"resolved_by_name"`
	ResolvedAt     time.Time `json:"resolved_at"`
	HandlerID      string    `json:"handler_id"`
}
