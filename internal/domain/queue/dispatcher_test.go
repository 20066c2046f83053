package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestDispatcher(appts *mockApptRepo, gateway *mockGateway) *Dispatcher {
	clock := fakeClock{now: time.Date(2026, 3, 10, 13, 40, 0, 0, time.UTC)}
	return NewDispatcher(appts, gateway, stubRenderer{}, testTiming, clock, zerolog.Nop())
}

func seedAppointment(t *testing.T, appts *mockApptRepo) *Appointment {
	t.Helper()
	a := &Appointment{
		DoctorID:     uuid.New(),
		PatientID:    uuid.New(),
		SlotDate:     "2026-03-10",
		SlotTime:     "02:00 PM",
		PatientName:  "Asha",
		PatientEmail: "asha@example.com",
		DoctorName:   "Dr. Rao",
	}
	if err := appts.Create(context.Background(), a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return a
}

func TestNotify_SendsAndRecords(t *testing.T) {
	appts := newMockApptRepo()
	gateway := &mockGateway{}
	d := newTestDispatcher(appts, gateway)
	a := seedAppointment(t, appts)

	delivered, err := d.Notify(context.Background(), a, Position{Position: 2, PeopleAhead: 1, TotalActive: 3})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if !delivered {
		t.Fatal("delivered = false, want true")
	}

	calls := gateway.Calls()
	if len(calls) != 1 {
		t.Fatalf("gateway calls = %d, want 1", len(calls))
	}
	if calls[0].To != "asha@example.com" {
		t.Errorf("recipient = %q", calls[0].To)
	}

	stored, _ := appts.GetByID(context.Background(), a.ID)
	if !stored.NotificationSent {
		t.Error("NotificationSent not recorded")
	}
	if stored.NotificationSentAt == nil {
		t.Error("NotificationSentAt not recorded")
	}
}

func TestNotify_SecondCallIsNoop(t *testing.T) {
	appts := newMockApptRepo()
	gateway := &mockGateway{}
	d := newTestDispatcher(appts, gateway)
	a := seedAppointment(t, appts)

	pos := Position{Position: 2, PeopleAhead: 1, TotalActive: 3}
	if _, err := d.Notify(context.Background(), a, pos); err != nil {
		t.Fatalf("first Notify: %v", err)
	}
	delivered, err := d.Notify(context.Background(), a, pos)
	if err != nil {
		t.Fatalf("second Notify: %v", err)
	}
	if delivered {
		t.Error("second Notify delivered = true, want false")
	}
	if got := len(gateway.Calls()); got != 1 {
		t.Errorf("gateway calls = %d, want exactly 1", got)
	}
}

func TestNotify_ReleasesClaimOnSendFailure(t *testing.T) {
	appts := newMockApptRepo()
	gateway := &mockGateway{shouldFail: true}
	d := newTestDispatcher(appts, gateway)
	a := seedAppointment(t, appts)

	pos := Position{Position: 2, PeopleAhead: 1, TotalActive: 3}
	delivered, err := d.Notify(context.Background(), a, pos)
	if err == nil {
		t.Fatal("expected error from failed send")
	}
	if delivered {
		t.Error("delivered = true on failure")
	}

	// Claim must be released so the next sweep retries.
	stored, _ := appts.GetByID(context.Background(), a.ID)
	if stored.NotificationSent {
		t.Error("claim not released after send failure")
	}

	gateway.shouldFail = false
	delivered, err = d.Notify(context.Background(), a, pos)
	if err != nil || !delivered {
		t.Fatalf("retry failed: delivered=%v err=%v", delivered, err)
	}
}

func TestNotify_ReleasesClaimOnRenderFailure(t *testing.T) {
	appts := newMockApptRepo()
	gateway := &mockGateway{}
	clock := fakeClock{now: time.Now()}
	d := NewDispatcher(appts, gateway, stubRenderer{fail: true}, testTiming, clock, zerolog.Nop())
	a := seedAppointment(t, appts)

	if _, err := d.Notify(context.Background(), a, Position{Position: 2, PeopleAhead: 1}); err == nil {
		t.Fatal("expected render error")
	}
	if got := len(gateway.Calls()); got != 0 {
		t.Errorf("gateway calls = %d, want 0", got)
	}
	stored, _ := appts.GetByID(context.Background(), a.ID)
	if stored.NotificationSent {
		t.Error("claim not released after render failure")
	}
}

func TestNotify_ReleaseFailureKeepsClaim(t *testing.T) {
	appts := newMockApptRepo()
	appts.failClearNotified = true
	gateway := &mockGateway{shouldFail: true}
	d := newTestDispatcher(appts, gateway)
	a := seedAppointment(t, appts)

	pos := Position{Position: 2, PeopleAhead: 1, TotalActive: 3}
	if _, err := d.Notify(context.Background(), a, pos); err == nil {
		t.Fatal("expected error from failed send")
	}

	// The release itself failed, so the record stays marked notified and
	// later sweeps do not resend. Risks a lost mail, never a duplicate.
	stored, _ := appts.GetByID(context.Background(), a.ID)
	if !stored.NotificationSent {
		t.Fatal("claim should remain set when the release write fails")
	}

	gateway.shouldFail = false
	delivered, err := d.Notify(context.Background(), a, pos)
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if delivered {
		t.Error("delivered = true, want false for stuck claim")
	}
	if got := len(gateway.Calls()); got != 0 {
		t.Errorf("gateway calls = %d, want 0", got)
	}
}

func TestNotify_ClaimFailure(t *testing.T) {
	appts := newMockApptRepo()
	appts.failMarkNotified = true
	gateway := &mockGateway{}
	d := newTestDispatcher(appts, gateway)
	a := seedAppointment(t, appts)

	if _, err := d.Notify(context.Background(), a, Position{Position: 2, PeopleAhead: 1}); err == nil {
		t.Fatal("expected error when claim write fails")
	}
	if got := len(gateway.Calls()); got != 0 {
		t.Errorf("gateway calls = %d, want 0", got)
	}
}
