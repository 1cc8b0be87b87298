package service

import (
	"fmt"
	"time"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/config"
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
)

// TimerView is the per-entry remaining-time projection refreshed every fine
// tick for the UI.
type TimerView struct {
	CallID             string `json:"call_id"`
	CallNumber         string `json:"call_number"`
	RemainingMs        int64  `json:"remaining_ms"`
	RemainingFormatted string `json:"remaining_formatted"`
	IsUrgent           bool   `json:"is_urgent"`
	IsExpired          bool   `json:"is_expired"`
	CurrentLevel       int    `json:"current_level"`
	CurrentDepartment  string `json:"current_department"`
	CurrentHandlerID   string `json:"current_handler_id"`
	CurrentHandlerName string `json:"current_handler_name"`
}

// TimerProjector computes the read-side countdown views. It never mutates
// anything; it runs every fine tick, far more often than the evaluator.
type TimerProjector struct {
	urgencyThreshold time.Duration
}

// NewTimerProjector builds a projector from validated configuration.
func NewTimerProjector(cfg config.EscalationConfig) *TimerProjector {
	return &TimerProjector{urgencyThreshold: cfg.UrgencyThreshold}
}

// Project returns a view for every non-terminal, non-critical entry.
func (p *TimerProjector) Project(entries []domain.EscalationEntry, now time.Time) []TimerView {
	views := make([]TimerView, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		if entry.Status.IsChainTerminal() {
			continue
		}

		remaining := entry.Deadline.Sub(now)
		if remaining < 0 {
			remaining = 0
		}

		views = append(views, TimerView{
			CallID:             entry.CallID,
			CallNumber:         entry.CallNumber,
			RemainingMs:        remaining.Milliseconds(),
			RemainingFormatted: formatRemaining(remaining),
			IsUrgent:           remaining > 0 && remaining <= p.urgencyThreshold,
			IsExpired:          remaining == 0,
			CurrentLevel:       entry.CurrentLevel,
			CurrentDepartment:  entry.CurrentDepartment,
			CurrentHandlerID:   entry.CurrentHandlerID,
			CurrentHandlerName: entry.CurrentHandlerName,
		})
	}
	return views
}

func formatRemaining(d time.Duration) string {
	total := int64(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
