package model

import "time"

// StatusHistoryEntry is one immutable record in the status ledger. Entries
// are only ever appended; replaying them in created_at order reconstructs
// the full deliberation trail for an entity.
type StatusHistoryEntry struct {
	ID             string    `json:"id"`
	EntityID       string    `json:"entity_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Reason         string    `json:"reason,omitempty"`
	ChangedByName  string    `json:"changed_by_name"`
	CreatedAt      time.Time `json:"created_at"`
}
