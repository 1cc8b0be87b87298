package domain

import "time"

// EscalationStatus enumerates lifecycle states for tracked calls.
type EscalationStatus string

const (
	EscalationStatusPending            EscalationStatus = "PENDING"
	EscalationStatusAssigned           EscalationStatus = "ASSIGNED"
	EscalationStatusEscalated          EscalationStatus = "ESCALATED"
	EscalationStatusResolved           EscalationStatus = "RESOLVED"
	EscalationStatusClosed             EscalationStatus = "CLOSED"
	EscalationStatusCriticalUnresolved EscalationStatus = "CRITICAL_UNRESOLVED"
)

// IsTerminal reports whether the entry is frozen for good.
func (s EscalationStatus) IsTerminal() bool {
	return s == EscalationStatusResolved || s == EscalationStatusClosed
}

// IsChainTerminal reports whether the escalation chain is exhausted for the
// entry. Critical entries stay visible but never advance another level.
func (s EscalationStatus) IsChainTerminal() bool {
	return s.IsTerminal() || s == EscalationStatusCriticalUnresolved
}

// CallPayload carries the descriptive ticket fields the engine stores and
// forwards untouched. Extra holds anything the intake form sends beyond the
// named fields.
type CallPayload struct {
	Priority     string         `json:"priority"`
	CustomerName string         `json:"customer_name"`
	PartyCode    string         `json:"party_code"`
	Category     string         `json:"category"`
	Description  string         `json:"description"`
	ErrorCode    string         `json:"error_code"`
	Products     []string       `json:"products"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// EscalationRecord is an immutable log line appended on every level
// transition. Records are never mutated after the append.
type EscalationRecord struct {
	Level               int       `json:"level"`
	Department          string    `json:"department"`
	HandlerID           string    `json:"handler_id"`
	HandlerName         string    `json:"handler_name"`
	AssignedAt          time.Time `json:"assigned_at"`
	Deadline            time.Time `json:"deadline"`
	PreviousDepartment  string    `json:"previous_department"`
	PreviousHandlerID   string    `json:"previous_handler_id"`
	PreviousHandlerName string    `json:"previous_handler_name"`
	Reason              string    `json:"reason"`
}

// EscalationEntry is the aggregate tracked per open call. CurrentLevel is
// monotonically non-decreasing; RESOLVED and CLOSED freeze every field.
type EscalationEntry struct {
	CallID             string             `json:"call_id"`
	CallNumber         string             `json:"call_number"`
	Status             EscalationStatus   `json:"status"`
	CurrentLevel       int                `json:"current_level"`
	CurrentDepartment  string             `json:"current_department"`
	CurrentHandlerID   string             `json:"current_handler_id"`
	CurrentHandlerName string             `json:"current_handler_name"`
	Deadline           time.Time          `json:"deadline"`
	ResolvedAt         *time.Time         `json:"resolved_at,omitempty"`
	History            []EscalationRecord `json:"history"`
	Payload            CallPayload        `json:"payload"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Clone returns a deep copy of the entry so snapshot readers never alias the
// stored collection.
func (e EscalationEntry) Clone() EscalationEntry {
	clone := e
	if e.ResolvedAt != nil {
		t := *e.ResolvedAt
		clone.ResolvedAt = &t
	}
	if e.History != nil {
		clone.History = make([]EscalationRecord, len(e.History))
		copy(clone.History, e.History)
	}
	if e.Payload.Products != nil {
		clone.Payload.Products = append([]string(nil), e.Payload.Products...)
	}
	if e.Payload.Extra != nil {
		clone.Payload.Extra = make(map[string]any, len(e.Payload.Extra))
		for k, v := range e.Payload.Extra {
			clone.Payload.Extra[k] = v
		}
	}
	return clone
}
