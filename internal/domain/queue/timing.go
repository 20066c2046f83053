package queue

// Timing holds the computed consultation estimate for one appointment.
type Timing struct {
	EstimatedTime    string
	SuggestedArrival string
}

// TimingConfig carries the two tunable durations of the estimate.
type TimingConfig struct {
	// ConsultMinutes is the assumed per-patient consultation duration.
	ConsultMinutes int
	// ArrivalBufferMinutes is subtracted from the estimate to get the
	// suggested arrival time.
	ArrivalBufferMinutes int
}

// ComputeTiming derives the estimated consultation time and suggested
// arrival time for a patient with peopleAhead active patients before them in
// a slot starting at slotStart ("HH:MM AM/PM"). Hour and meridiem rollover
// follow the wall clock, so "11:50 AM" plus 20 minutes crosses into
// "12:10 PM".
func ComputeTiming(slotStart string, peopleAhead int, cfg TimingConfig) (Timing, error) {
	start, err := ParseClockTime(slotStart)
	if err != nil {
		return Timing{}, err
	}
	estimated := start.Add(peopleAhead * cfg.ConsultMinutes)
	return Timing{
		EstimatedTime:    estimated.String(),
		SuggestedArrival: estimated.Add(-cfg.ArrivalBufferMinutes).String(),
	}, nil
}
