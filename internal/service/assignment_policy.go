package service

import (
	"github.com/FistoAR/AkiraServiceTool-sub000/internal/domain"
)

// SelectHandler picks the roster member that should receive the next
// escalation level for the target department. Pure and deterministic:
// identical inputs always return the same handler, which keeps repeated
// evaluation of the same snapshot idempotent.
//
// Free handlers (zero active load) win over busy ones; among free handlers
// the lexicographically smallest ID is chosen so repeated ties never thrash
// between equally-idle handlers. Among busy handlers the minimum load wins,
// ties again broken by smallest ID. An empty department yields ok=false,
// which is a legitimate stalled state, not an error.
func SelectHandler(department string, roster []domain.Handler, load map[string]int) (domain.Handler, bool) {
	var free, busy []domain.Handler
	for _, h := range roster {
		if h.Department != department {
			continue
		}
		if load[h.ID] == 0 {
			free = append(free, h)
		} else {
			busy = append(busy, h)
		}
	}

	if len(free) > 0 {
		best := free[0]
		for _, h := range free[1:] {
			if h.ID < best.ID {
				best = h
			}
		}
		return best, true
	}

	if len(busy) > 0 {
		best := busy[0]
		for _, h := range busy[1:] {
			if load[h.ID] < load[best.ID] || (load[h.ID] == load[best.ID] && h.ID < best.ID) {
				best = h
			}
		}
		return best, true
	}

	return domain.Handler{}, false
}
