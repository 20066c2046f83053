package queue

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// dateLayout is the calendar-day format used for slot dates. The sweeper's
// "today" is the current day in the process's local time zone.
const dateLayout = "2006-01-02"

// Service exposes the queue engine's operations: booking-order writes on
// behalf of the booking subsystem, live queue reads, and patient status
// updates. Queue positions and timings are recomputed from current store
// state on every read.
type Service struct {
	appts     AppointmentRepository
	slots     SlotOrderRepository
	timing    TimingConfig
	clock     Clock
	confirmer ConfirmationSender
}

// ConfirmationSender delivers the booking confirmation message. Delivery is
// best effort; implementations log failures rather than returning them.
type ConfirmationSender interface {
	Confirm(ctx context.Context, a *Appointment, pos Position)
}

func NewService(appts AppointmentRepository, slots SlotOrderRepository, timing TimingConfig, clock Clock) *Service {
	return &Service{appts: appts, slots: slots, timing: timing, clock: clock}
}

// SetConfirmer wires the optional booking-confirmation sender.
func (s *Service) SetConfirmer(c ConfirmationSender) {
	s.confirmer = c
}

// Book creates the appointment record, appends it to its bucket's booking
// order, and precomputes the consultation estimate from the booked position.
func (s *Service) Book(ctx context.Context, a *Appointment) error {
	if a.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.PatientEmail == "" {
		return fmt.Errorf("patient_email is required")
	}
	if a.SlotDate == "" {
		return fmt.Errorf("slot_date is required")
	}
	if _, err := ParseClockTime(a.SlotTime); err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.PatientStatus == "" {
		a.PatientStatus = StatusWaiting
	}
	if err := s.appts.Create(ctx, a); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	position, err := s.slots.Append(ctx, a.SlotKey(), a.ID)
	if err != nil {
		return fmt.Errorf("append slot order: %w", err)
	}
	timing, err := ComputeTiming(a.SlotTime, position-1, s.timing)
	if err != nil {
		return err
	}
	a.EstimatedTime = &timing.EstimatedTime
	a.SuggestedArrival = &timing.SuggestedArrival
	if err := s.appts.SetTiming(ctx, a.ID, timing.EstimatedTime, timing.SuggestedArrival); err != nil {
		return err
	}
	if s.confirmer != nil {
		s.confirmer.Confirm(ctx, a, Position{
			Position:    position,
			PeopleAhead: position - 1,
			TotalActive: position,
		})
	}
	return nil
}

// Cancel soft-deletes an appointment. The stored booking order is not
// compacted; readers filter inactive entries at resolve time.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.appts.SetCancelled(ctx, id)
}

// Complete marks the consultation finished, removing the appointment from
// the effective queue.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	return s.appts.SetCompleted(ctx, id)
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

func (s *Service) ListByDate(ctx context.Context, date string, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.ListByDate(ctx, date, limit, offset)
}

// Status computes the live queue view for one appointment.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (*QueueStatus, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pos, err := s.resolve(ctx, a)
	if err != nil {
		return nil, err
	}
	st := &QueueStatus{
		QueuePosition:    pos.Position,
		PeopleAhead:      pos.PeopleAhead,
		TotalInSlot:      pos.TotalActive,
		PatientStatus:    a.PatientStatus,
		NotificationSent: a.NotificationSent,
	}
	if pos.Queued() {
		timing, err := ComputeTiming(a.SlotTime, pos.PeopleAhead, s.timing)
		if err != nil {
			return nil, err
		}
		st.EstimatedTime = timing.EstimatedTime
		st.SuggestedArrival = timing.SuggestedArrival
	}
	return st, nil
}

// resolve loads the bucket's booking order and active set and ranks the
// appointment within it.
func (s *Service) resolve(ctx context.Context, a *Appointment) (Position, error) {
	key := a.SlotKey()
	order, err := s.slots.OrderFor(ctx, key)
	if err != nil {
		return Position{}, fmt.Errorf("load slot order: %w", err)
	}
	active, err := s.appts.ActiveIDsBySlot(ctx, key)
	if err != nil {
		return Position{}, fmt.Errorf("load active set: %w", err)
	}
	return ResolvePosition(order, active, a.ID), nil
}

// SetPatientStatus records patient self-reported progress. Any of the five
// values may be written at any time; the engine never enforces a transition
// graph and never branches on the result beyond display copy.
func (s *Service) SetPatientStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !validPatientStatuses[status] {
		return fmt.Errorf("invalid patient status: %s", status)
	}
	return s.appts.SetPatientStatus(ctx, id, status, s.clock.Now())
}

// SlotQueue returns the ordered active queue for one bucket (staff view).
func (s *Service) SlotQueue(ctx context.Context, key SlotKey) ([]*Appointment, error) {
	order, err := s.slots.OrderFor(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load slot order: %w", err)
	}
	var items []*Appointment
	for _, id := range order {
		a, err := s.appts.GetByID(ctx, id)
		if err != nil {
			// Referenced in the order but missing from the store: skip, the
			// rest of the queue is still valid.
			continue
		}
		if a.Active() {
			items = append(items, a)
		}
	}
	return items, nil
}
