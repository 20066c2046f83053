package mail

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/clinicq/clinicq/internal/domain/queue"
)

const youreNextSubject = "Your Appointment is Coming Up - You're Next!"

// youreNextBody is the notification template. Placeholders are replaced with
// {{key}} substitution.
const youreNextBody = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="text-align: center;">Your Turn is Coming Up</h1>
    <p style="font-size: 18px; font-weight: bold;">
      You're next in line. Only 1 person ahead of you.
    </p>
    <p>Dear {{patient_name}},</p>
    <p>Your appointment with <strong>Dr. {{doctor_name}}</strong> is coming up soon.</p>
    <h3>Appointment Details</h3>
    <p><strong>Date:</strong> {{slot_date}}</p>
    <p><strong>Original Slot:</strong> {{slot_time}}</p>
    <p><strong>Your Position:</strong> #{{position}}</p>
    <p><strong>Estimated Time:</strong> {{estimated_time}}</p>
    <h3>When to Arrive</h3>
    <p style="font-size: 24px; font-weight: bold;">{{suggested_arrival}}</p>
    <p>Please arrive between {{earliest_arrival}} - {{suggested_arrival}}.</p>
    <p>Don't arrive at the slot start time ({{slot_time}}); you would wait
    unnecessarily. Don't be late either - the doctor will move on to the next
    patient.</p>
    <p><strong>Location:</strong><br>{{doctor_address}}</p>
    <p style="color: #666; font-size: 12px;">
      This is an automated notification from your appointment booking system.
    </p>
  </div>
</body>
</html>`

const confirmedSubject = "Appointment Confirmed"

const confirmedBody = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="text-align: center;">Appointment Confirmed!</h1>
    <p>Dear {{patient_name}},</p>
    <p>Your appointment has been successfully booked.</p>
    <h3>Details</h3>
    <p><strong>Doctor:</strong> Dr. {{doctor_name}}</p>
    <p><strong>Date:</strong> {{slot_date}}</p>
    <p><strong>Time Slot:</strong> {{slot_time}}</p>
    <p><strong>Your Position:</strong> #{{position}}</p>
    <p><strong>Estimated Time:</strong> {{estimated_time}}</p>
    <p><strong>Suggested Arrival:</strong> {{suggested_arrival}}</p>
    <p><strong>Important:</strong> Please arrive at {{suggested_arrival}},
    not at the slot start time.</p>
    <p>You will receive another notification when you're next in line.</p>
    <p style="color: #666; font-size: 12px;">
      This is an automated notification from your appointment booking system.
    </p>
  </div>
</body>
</html>`

// earliestArrivalWindowMinutes is the display-only window before the
// suggested arrival. Distinct from the arrival buffer used in the estimate.
const earliestArrivalWindowMinutes = 5

// Renderer renders the "you're next" notification. Implements
// queue.Renderer.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

func (Renderer) Render(n queue.Notification) (string, string, error) {
	body, err := substitute(youreNextBody, n)
	if err != nil {
		return "", "", err
	}
	return youreNextSubject, body, nil
}

// RenderConfirmation renders the booking confirmation sent right after a
// successful booking.
func (Renderer) RenderConfirmation(n queue.Notification) (string, string, error) {
	body, err := substitute(confirmedBody, n)
	if err != nil {
		return "", "", err
	}
	return confirmedSubject, body, nil
}

func substitute(template string, n queue.Notification) (string, error) {
	a := n.Appointment
	if a == nil {
		return "", fmt.Errorf("notification has no appointment")
	}
	arrival, err := queue.ParseClockTime(n.SuggestedArrival)
	if err != nil {
		return "", err
	}
	address := ""
	if a.DoctorAddress != nil {
		address = *a.DoctorAddress
	}
	data := map[string]string{
		"patient_name":      a.PatientName,
		"doctor_name":       a.DoctorName,
		"slot_date":         humanDate(a.SlotDate),
		"slot_time":         a.SlotTime,
		"position":          strconv.Itoa(n.QueuePosition),
		"estimated_time":    n.EstimatedTime,
		"suggested_arrival": n.SuggestedArrival,
		"earliest_arrival":  arrival.Add(-earliestArrivalWindowMinutes).String(),
		"doctor_address":    address,
	}
	body := template
	for k, v := range data {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body, nil
}

// humanDate reformats "2006-01-02" as "02 Jan 2006" for mail copy, falling
// back to the raw value when it does not parse.
func humanDate(slotDate string) string {
	t, err := time.Parse("2006-01-02", slotDate)
	if err != nil {
		return slotDate
	}
	return t.Format("02 Jan 2006")
}
