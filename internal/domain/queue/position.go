package queue

import "github.com/google/uuid"

// Position is the result of resolving one appointment against its slot's
// booking order.
type Position struct {
	// Position is the 1-based rank among active appointments, or 0 when the
	// appointment is absent from the order or no longer active.
	Position    int
	PeopleAhead int
	TotalActive int
}

// Queued reports whether the appointment holds a place in the queue.
func (p Position) Queued() bool { return p.Position > 0 }

// ResolvePosition computes an appointment's rank within a slot's booking
// order. order is the stored append-only sequence for the bucket; active
// holds the ids that are neither cancelled nor completed. Inactive entries
// are skipped at read time, the stored order is never compacted, so a
// cancellation ahead of a patient improves that patient's rank without
// mutating the sequence.
func ResolvePosition(order []uuid.UUID, active map[uuid.UUID]bool, id uuid.UUID) Position {
	var pos Position
	for _, entry := range order {
		if !active[entry] {
			continue
		}
		pos.TotalActive++
		if entry == id {
			pos.Position = pos.TotalActive
		}
	}
	if pos.Position == 0 {
		// Not in the order, or cancelled/completed: not queued.
		return Position{TotalActive: pos.TotalActive}
	}
	pos.PeopleAhead = pos.Position - 1
	return pos
}
