package dto

import (
	"time"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/service"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse payload.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Handler   Handler   `json:"handler"`
}

// Handler response shape.
type Handler struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

// CreateEntryRequest is the intake payload for a call entering tracking.
type CreateEntryRequest struct {
	CallNumber   string         `json:"call_number"`
	HandlerID    string         `json:"handler_id"`
	HandlerName  string         `json:"handler_name"`
	Priority     string         `json:"priority"`
	CustomerName string         `json:"customer_name"`
	PartyCode    string         `json:"party_code"`
	Category     string         `json:"category"`
	Description  string         `json:"description"`
	ErrorCode    string         `json:"error_code"`
	Products     []string       `json:"products"`
	Extra        map[string]any `json:"extra"`
}

// EntryResponse mirrors a tracked entry.
type EntryResponse struct {
	CallID             string                    `json:"call_id"`
	CallNumber         string                    `json:"call_number"`
	Status             domain.EscalationStatus   `json:"status"`
	CurrentLevel       int                       `json:"current_level"`
	CurrentDepartment  string                    `json:"current_department"`
	CurrentHandlerID   string                    `json:"current_handler_id"`
	CurrentHandlerName string                    `json:"current_handler_name"`
	Deadline           time.Time                 `json:"deadline"`
	ResolvedAt         *time.Time                `json:"resolved_at,omitempty"`
	History            []domain.EscalationRecord `json:"history"`
	Payload            domain.CallPayload        `json:"payload"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// FromEntry maps a domain entry to its response shape.
func FromEntry(entry *domain.EscalationEntry) EntryResponse {
	return EntryResponse{
		CallID:             entry.CallID,
		CallNumber:         entry.CallNumber,
		Status:             entry.Status,
		CurrentLevel:       entry.CurrentLevel,
		CurrentDepartment:  entry.CurrentDepartment,
		CurrentHandlerID:   entry.CurrentHandlerID,
		CurrentHandlerName: entry.CurrentHandlerName,
		Deadline:           entry.Deadline,
		ResolvedAt:         entry.ResolvedAt,
		History:            entry.History,
		Payload:            entry.Payload,
		CreatedAt:          entry.CreatedAt,
		UpdatedAt:          entry.UpdatedAt,
	}
}

// TimerViewResponse is the per-entry countdown view.
type TimerViewResponse = service.TimerView

// AlertResponse is a delivered alert.
type AlertResponse = service.Alert
