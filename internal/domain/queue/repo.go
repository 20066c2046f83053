package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByDate(ctx context.Context, date string, limit, offset int) ([]*Appointment, int, error)

	// ListUnnotifiedByDate returns active appointments on the given date
	// whose "you're next" notification has not been sent. This is the
	// sweeper's candidate query.
	ListUnnotifiedByDate(ctx context.Context, date string) ([]*Appointment, error)

	// ActiveIDsBySlot returns the ids of non-cancelled, non-completed
	// appointments in one bucket, for filtering the stored booking order.
	ActiveIDsBySlot(ctx context.Context, key SlotKey) (map[uuid.UUID]bool, error)

	SetTiming(ctx context.Context, id uuid.UUID, estimated, suggested string) error
	SetCancelled(ctx context.Context, id uuid.UUID) error
	SetCompleted(ctx context.Context, id uuid.UUID) error
	SetPatientStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error

	// MarkNotified flips notification_sent from false to true and records
	// the send time. It reports false when the flag was already set, so of
	// any number of concurrent callers exactly one observes true. This is
	// the conditional write the dispatcher's at-most-once guarantee rests
	// on.
	MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// ClearNotified reverts a claim after a failed gateway send so the next
	// sweep retries naturally.
	ClearNotified(ctx context.Context, id uuid.UUID) error
}

type SlotOrderRepository interface {
	// Append adds an appointment at the end of a bucket's booking order and
	// returns its 1-based position in the stored sequence.
	Append(ctx context.Context, key SlotKey, appointmentID uuid.UUID) (int, error)

	// OrderFor returns the bucket's stored booking order, oldest first.
	// Cancelled and completed appointments are still present; callers
	// filter through ResolvePosition.
	OrderFor(ctx context.Context, key SlotKey) ([]uuid.UUID, error)
}

// Clock abstracts wall-clock time so the sweeper and dispatcher can be
// driven by a fake in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real-time Clock used in production.
func SystemClock() Clock { return systemClock{} }
