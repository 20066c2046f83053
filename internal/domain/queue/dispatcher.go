package queue

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Notification is the payload handed to the renderer for the "you're next"
// message.
type Notification struct {
	Appointment      *Appointment
	QueuePosition    int
	EstimatedTime    string
	SuggestedArrival string
}

// Renderer produces the outbound subject and HTML body for the two queue
// messages: the "you're next" notification and the booking confirmation.
type Renderer interface {
	Render(n Notification) (subject, htmlBody string, err error)
	RenderConfirmation(n Notification) (subject, htmlBody string, err error)
}

// SendResult reports a successful gateway send.
type SendResult struct {
	MessageID string
}

// Gateway is the external messaging capability the dispatcher depends on.
type Gateway interface {
	Send(ctx context.Context, to, subject, htmlBody string) (SendResult, error)
}

// Dispatcher sends the "you're next" notification for an appointment and
// records the send. The notified flag is claimed with a conditional write
// before the gateway call, so when two sweeps race on the same appointment
// only the claim winner dispatches; the loser sees the flag already set and
// does nothing. A failed send releases the claim so the next sweep retries.
type Dispatcher struct {
	appts    AppointmentRepository
	gateway  Gateway
	renderer Renderer
	timing   TimingConfig
	clock    Clock
	logger   zerolog.Logger
}

func NewDispatcher(appts AppointmentRepository, gateway Gateway, renderer Renderer, timing TimingConfig, clock Clock, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		appts:    appts,
		gateway:  gateway,
		renderer: renderer,
		timing:   timing,
		clock:    clock,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Notify sends the notification for an appointment resolved at the given
// position. Returns (false, nil) when another worker already holds the
// claim, so callers can tell a skip from a send.
func (d *Dispatcher) Notify(ctx context.Context, a *Appointment, pos Position) (bool, error) {
	claimed, err := d.appts.MarkNotified(ctx, a.ID, d.clock.Now())
	if err != nil {
		return false, fmt.Errorf("claim notification for %s: %w", a.ID, err)
	}
	if !claimed {
		// Already sent (or being sent) by a concurrent sweep.
		return false, nil
	}

	timing, err := ComputeTiming(a.SlotTime, pos.PeopleAhead, d.timing)
	if err != nil {
		d.release(ctx, a)
		return false, err
	}
	subject, body, err := d.renderer.Render(Notification{
		Appointment:      a,
		QueuePosition:    pos.Position,
		EstimatedTime:    timing.EstimatedTime,
		SuggestedArrival: timing.SuggestedArrival,
	})
	if err != nil {
		d.release(ctx, a)
		return false, fmt.Errorf("render notification for %s: %w", a.ID, err)
	}

	res, err := d.gateway.Send(ctx, a.PatientEmail, subject, body)
	if err != nil {
		d.release(ctx, a)
		return false, fmt.Errorf("send notification for %s: %w", a.ID, err)
	}

	d.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("recipient", a.PatientEmail).
		Str("message_id", res.MessageID).
		Int("position", pos.Position).
		Msg("notification sent")
	return true, nil
}

// Confirm sends the booking confirmation for a freshly booked appointment.
// Confirmation mail is best effort: a failure is logged and the booking
// stands, so this method never propagates an error to the caller.
func (d *Dispatcher) Confirm(ctx context.Context, a *Appointment, pos Position) {
	timing, err := ComputeTiming(a.SlotTime, pos.PeopleAhead, d.timing)
	if err != nil {
		d.logger.Error().Err(err).
			Str("appointment_id", a.ID.String()).
			Msg("confirmation timing failed")
		return
	}
	subject, body, err := d.renderer.RenderConfirmation(Notification{
		Appointment:      a,
		QueuePosition:    pos.Position,
		EstimatedTime:    timing.EstimatedTime,
		SuggestedArrival: timing.SuggestedArrival,
	})
	if err != nil {
		d.logger.Error().Err(err).
			Str("appointment_id", a.ID.String()).
			Msg("confirmation render failed")
		return
	}
	res, err := d.gateway.Send(ctx, a.PatientEmail, subject, body)
	if err != nil {
		d.logger.Warn().Err(err).
			Str("appointment_id", a.ID.String()).
			Str("recipient", a.PatientEmail).
			Msg("confirmation send failed")
		return
	}
	d.logger.Info().
		Str("appointment_id", a.ID.String()).
		Str("recipient", a.PatientEmail).
		Str("message_id", res.MessageID).
		Msg("confirmation sent")
}

// release clears the claimed flag so the appointment is re-evaluated on the
// next sweep. A release failure is only logged: the record then stays marked
// notified, which errs on the side of not double-mailing the patient.
func (d *Dispatcher) release(ctx context.Context, a *Appointment) {
	if err := d.appts.ClearNotified(ctx, a.ID); err != nil {
		d.logger.Error().Err(err).
			Str("appointment_id", a.ID.String()).
			Msg("failed to release notification claim")
	}
}
