package domain

import "time"

// Snapshot is an immutable point-in-time copy of the escalation collection
// plus the read-only views the evaluator needs. Version implements optimistic
// concurrency: a write whose base version is stale is rejected by the store.
type Snapshot struct {
	Version int64             `json:"version"`
	Entries []EscalationEntry `json:"entries"`
	Roster  []Handler         `json:"roster"`
	Load    map[string]int    `json:"load"`
	TakenAt time.Time         `json:"taken_at"`
}

// Clone deep-copies the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	clone := &Snapshot{
		Version: s.Version,
		TakenAt: s.TakenAt,
	}
	if s.Entries != nil {
		clone.Entries = make([]EscalationEntry, len(s.Entries))
		for i := range s.Entries {
			clone.Entries[i] = s.Entries[i].Clone()
		}
	}
	clone.Roster = append([]Handler(nil), s.Roster...)
	if s.Load != nil {
		clone.Load = make(map[string]int, len(s.Load))
		for k, v := range s.Load {
			clone.Load[k] = v
		}
	}
	return clone
}

// FindEntry returns a pointer into Entries for the given call, or nil.
func (s *Snapshot) FindEntry(callID string) *EscalationEntry {
	for i := range s.Entries {
		if s.Entries[i].CallID == callID {
			return &s.Entries[i]
		}
	}
	return nil
}
