package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
)

func TestProject_UrgentEntry(t *testing.T) {
	now := time.Now()
	entries := []domain.EscalationEntry{
		entryFixture(0, "L1", domain.EscalationStatusAssigned, now.Add(30*time.Second)),
	}

	views := NewTimerProjector(evaluatorConfig()).Project(entries, now)

	require.Len(t, views, 1)
	view := views[0]
	assert.Equal(t, int64(30000), view.RemainingMs)
	assert.Equal(t, "00:30", view.RemainingFormatted)
	assert.True(t, view.IsUrgent)
	assert.False(t, view.IsExpired)
	assert.Equal(t, 0, view.CurrentLevel)
	assert.Equal(t, "L1", view.CurrentDepartment)
}

func TestProject_ExpiredEntryClampsToZero(t *testing.T) {
	now := time.Now()
	entries := []domain.EscalationEntry{
		entryFixture(1, "L2", domain.EscalationStatusEscalated, now.Add(-10*time.Minute)),
	}

	views := NewTimerProjector(evaluatorConfig()).Project(entries, now)

	require.Len(t, views, 1)
	assert.Equal(t, int64(0), views[0].RemainingMs)
	assert.Equal(t, "00:00", views[0].RemainingFormatted)
	assert.True(t, views[0].IsExpired)
	assert.False(t, views[0].IsUrgent)
}

func TestProject_NotUrgentAboveThreshold(t *testing.T) {
	now := time.Now()
	entries := []domain.EscalationEntry{
		entryFixture(0, "L1", domain.EscalationStatusAssigned, now.Add(12*time.Minute+34*time.Second)),
	}

	views := NewTimerProjector(evaluatorConfig()).Project(entries, now)

	require.Len(t, views, 1)
	assert.Equal(t, "12:34", views[0].RemainingFormatted)
	assert.False(t, views[0].IsUrgent)
	assert.False(t, views[0].IsExpired)
}

func TestProject_SkipsTerminalAndCriticalEntries(t *testing.T) {
	now := time.Now()
	resolved := entryFixture(0, "L1", domain.EscalationStatusResolved, now.Add(-time.Hour))
	closed := entryFixture(0, "L1", domain.EscalationStatusClosed, now.Add(-time.Hour))
	closed.CallID = "call-2"
	critical := entryFixture(2, "L3", domain.EscalationStatusCriticalUnresolved, now.Add(-time.Hour))
	critical.CallID = "call-3"
	live := entryFixture(0, "L1", domain.EscalationStatusPending, now.Add(time.Minute))
	live.CallID = "call-4"

	views := NewTimerProjector(evaluatorConfig()).Project(
		[]domain.EscalationEntry{resolved, closed, critical, live}, now)

	require.Len(t, views, 1)
	assert.Equal(t, "call-4", views[0].CallID)
}
