package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper is the periodic scan that finds patients who have advanced to the
// notify threshold and hands them to the dispatcher. One instance runs for
// the life of the process; Run executes a sweep immediately and then on
// every tick until the context is cancelled. Because the loop consumes the
// ticker in a single goroutine, sweeps never overlap: an overrunning sweep
// delays the next one rather than racing it.
type Sweeper struct {
	appts      AppointmentRepository
	slots      SlotOrderRepository
	dispatcher *Dispatcher
	interval   time.Duration
	threshold  int
	clock      Clock
	logger     zerolog.Logger
}

func NewSweeper(appts AppointmentRepository, slots SlotOrderRepository, dispatcher *Dispatcher, interval time.Duration, threshold int, clock Clock, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		appts:      appts,
		slots:      slots,
		dispatcher: dispatcher,
		interval:   interval,
		threshold:  threshold,
		clock:      clock,
		logger:     logger.With().Str("component", "sweeper").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Int("threshold", s.threshold).
		Msg("queue sweeper started")

	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("queue sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep executes one scan. Failures are contained per group and per
// appointment: a broken slot order or a failed send is logged and skipped,
// and the affected appointment is naturally retried on the next sweep as
// long as its flag stays unset. Returns the number of notifications sent,
// which a zero-candidate sweep reports as 0 without error.
func (s *Sweeper) Sweep(ctx context.Context) int {
	today := s.clock.Now().Format(dateLayout)

	candidates, err := s.appts.ListUnnotifiedByDate(ctx, today)
	if err != nil {
		s.logger.Error().Err(err).Str("date", today).Msg("candidate query failed")
		return 0
	}
	if len(candidates) == 0 {
		return 0
	}

	// The query is date-scoped, so doctor + slot time identifies a bucket.
	groups := make(map[SlotKey][]*Appointment)
	for _, a := range candidates {
		groups[a.SlotKey()] = append(groups[a.SlotKey()], a)
	}

	sent := 0
	for key, appts := range groups {
		sent += s.sweepGroup(ctx, key, appts)
	}
	if sent > 0 {
		s.logger.Info().Int("sent", sent).Int("candidates", len(candidates)).Msg("sweep complete")
	}
	return sent
}

func (s *Sweeper) sweepGroup(ctx context.Context, key SlotKey, appts []*Appointment) int {
	order, err := s.slots.OrderFor(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).
			Str("doctor_id", key.DoctorID.String()).
			Str("slot_time", key.Time).
			Msg("slot order lookup failed, skipping group")
		return 0
	}
	if len(order) == 0 {
		return 0
	}

	// Candidates exclude already-notified appointments, but those may still
	// be active and ahead in the queue; ranking against anything but the
	// authoritative active set would shift positions early and mail the
	// wrong patient. When the lookup fails the group is skipped and picked
	// up again next tick.
	active, err := s.appts.ActiveIDsBySlot(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).
			Str("doctor_id", key.DoctorID.String()).
			Str("slot_time", key.Time).
			Msg("active set lookup failed, skipping group")
		return 0
	}

	sent := 0
	for _, a := range appts {
		pos := ResolvePosition(order, active, a.ID)
		if pos.Position != s.threshold {
			continue
		}
		delivered, err := s.dispatcher.Notify(ctx, a, pos)
		if err != nil {
			s.logger.Error().Err(err).
				Str("appointment_id", a.ID.String()).
				Msg("dispatch failed, will retry next sweep")
			continue
		}
		if delivered {
			sent++
		}
	}
	return sent
}
