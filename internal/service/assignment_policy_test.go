package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
)

func rosterFixture() []domain.Handler {
	return []domain.Handler{
		{ID: "h-3", Name: "Cara", Department: "L2"},
		{ID: "h-1", Name: "Ana", Department: "L2"},
		{ID: "h-2", Name: "Ben", Department: "L2"},
		{ID: "h-9", Name: "Zoe", Department: "L3"},
	}
}

func TestSelectHandler_PrefersFreeHandler(t *testing.T) {
	load := map[string]int{"h-1": 3, "h-3": 1}

	handler, ok := SelectHandler("L2", rosterFixture(), load)
	require.True(t, ok)
	assert.Equal(t, "h-2", handler.ID)
}

func TestSelectHandler_FreeTieBreaksOnSmallestID(t *testing.T) {
	handler, ok := SelectHandler("L2", rosterFixture(), map[string]int{})
	require.True(t, ok)
	assert.Equal(t, "h-1", handler.ID)
}

func TestSelectHandler_AllBusyPicksMinimumLoad(t *testing.T) {
	load := map[string]int{"h-1": 3, "h-2": 2, "h-3": 5}

	handler, ok := SelectHandler("L2", rosterFixture(), load)
	require.True(t, ok)
	assert.Equal(t, "h-2", handler.ID)
}

func TestSelectHandler_BusyTieBreaksOnSmallestID(t *testing.T) {
	load := map[string]int{"h-1": 2, "h-2": 2, "h-3": 2}

	handler, ok := SelectHandler("L2", rosterFixture(), load)
	require.True(t, ok)
	assert.Equal(t, "h-1", handler.ID)
}

func TestSelectHandler_EmptyDepartment(t *testing.T) {
	_, ok := SelectHandler("L4", rosterFixture(), map[string]int{})
	assert.False(t, ok)
}

func TestSelectHandler_Deterministic(t *testing.T) {
	load := map[string]int{"h-1": 1, "h-2": 4, "h-3": 1}

	first, ok := SelectHandler("L2", rosterFixture(), load)
	require.True(t, ok)
	for i := 0; i < 50; i++ {
		again, ok := SelectHandler("L2", rosterFixture(), load)
		require.True(t, ok)
		assert.Equal(t, first.ID, again.ID)
	}
}
