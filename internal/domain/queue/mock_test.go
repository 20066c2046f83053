package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// mockApptRepo is an in-memory AppointmentRepository for tests.
type mockApptRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment

	failMarkNotified  bool
	failClearNotified bool
	failActiveIDs     bool
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockApptRepo) Create(ctx context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.PatientStatus == "" {
		a.PatientStatus = StatusWaiting
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockApptRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockApptRepo) ListByDate(ctx context.Context, date string, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Appointment
	for _, a := range m.appts {
		if a.SlotDate == date {
			cp := *a
			all = append(all, &cp)
		}
	}
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockApptRepo) ListUnnotifiedByDate(ctx context.Context, date string) ([]*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for _, a := range m.appts {
		if a.SlotDate == date && a.Active() && !a.NotificationSent {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockApptRepo) ActiveIDsBySlot(ctx context.Context, key SlotKey) (map[uuid.UUID]bool, error) {
	if m.failActiveIDs {
		return nil, fmt.Errorf("active lookup failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	active := make(map[uuid.UUID]bool)
	for _, a := range m.appts {
		if a.SlotKey() == key && a.Active() {
			active[a.ID] = true
		}
	}
	return active, nil
}

func (m *mockApptRepo) SetTiming(ctx context.Context, id uuid.UUID, estimated, suggested string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return ErrNotFound
	}
	a.EstimatedTime = &estimated
	a.SuggestedArrival = &suggested
	return nil
}

func (m *mockApptRepo) SetCancelled(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return ErrNotFound
	}
	a.Cancelled = true
	return nil
}

func (m *mockApptRepo) SetCompleted(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return ErrNotFound
	}
	a.Completed = true
	return nil
}

func (m *mockApptRepo) SetPatientStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return ErrNotFound
	}
	a.PatientStatus = status
	t := at
	a.StatusUpdatedAt = &t
	return nil
}

func (m *mockApptRepo) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	if m.failMarkNotified {
		return false, fmt.Errorf("mark notified failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return false, ErrNotFound
	}
	if a.NotificationSent {
		return false, nil
	}
	a.NotificationSent = true
	t := at
	a.NotificationSentAt = &t
	return true, nil
}

func (m *mockApptRepo) ClearNotified(ctx context.Context, id uuid.UUID) error {
	if m.failClearNotified {
		return fmt.Errorf("clear notified failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return ErrNotFound
	}
	a.NotificationSent = false
	a.NotificationSentAt = nil
	return nil
}

// mockSlotRepo is an in-memory SlotOrderRepository. Buckets listed in
// failKeys report a lookup error.
type mockSlotRepo struct {
	mu     sync.Mutex
	orders map[SlotKey][]uuid.UUID

	failKeys map[SlotKey]bool
}

func newMockSlotRepo() *mockSlotRepo {
	return &mockSlotRepo{orders: make(map[SlotKey][]uuid.UUID)}
}

func (m *mockSlotRepo) Append(ctx context.Context, key SlotKey, appointmentID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[key] = append(m.orders[key], appointmentID)
	return len(m.orders[key]), nil
}

func (m *mockSlotRepo) OrderFor(ctx context.Context, key SlotKey) ([]uuid.UUID, error) {
	if m.failKeys[key] {
		return nil, fmt.Errorf("order lookup failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order := make([]uuid.UUID, len(m.orders[key]))
	copy(order, m.orders[key])
	return order, nil
}

// fakeClock returns a fixed instant.
type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

// mockGateway records sends and can be told to fail.
type mockGateway struct {
	mu         sync.Mutex
	calls      []gatewayCall
	shouldFail bool
}

type gatewayCall struct {
	To      string
	Subject string
	Body    string
}

func (g *mockGateway) Send(ctx context.Context, to, subject, htmlBody string) (SendResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.shouldFail {
		return SendResult{}, fmt.Errorf("gateway unavailable")
	}
	g.calls = append(g.calls, gatewayCall{To: to, Subject: subject, Body: htmlBody})
	return SendResult{MessageID: fmt.Sprintf("msg-%d", len(g.calls))}, nil
}

func (g *mockGateway) Calls() []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]gatewayCall, len(g.calls))
	copy(out, g.calls)
	return out
}

// stubRenderer produces fixed subjects and bodies.
type stubRenderer struct{ fail bool }

func (r stubRenderer) Render(n Notification) (string, string, error) {
	if r.fail {
		return "", "", fmt.Errorf("render failed")
	}
	return "You're next",
		fmt.Sprintf("<p>%s at %s, arrive by %s</p>", n.Appointment.PatientName, n.EstimatedTime, n.SuggestedArrival),
		nil
}

func (r stubRenderer) RenderConfirmation(n Notification) (string, string, error) {
	if r.fail {
		return "", "", fmt.Errorf("render failed")
	}
	return "Appointment Confirmed",
		fmt.Sprintf("<p>%s booked #%d, estimate %s</p>", n.Appointment.PatientName, n.QueuePosition, n.EstimatedTime),
		nil
}
