package queue

import (
	"time"

	"github.com/google/uuid"
)

// Patient status values a patient (or staff on their behalf) can report.
// The queue engine never infers these from position; they are display state.
const (
	StatusWaiting        = "waiting"
	StatusOnMyWay        = "on-my-way"
	StatusArrived        = "arrived"
	StatusInConsultation = "in-consultation"
	StatusCompleted      = "completed"
)

var validPatientStatuses = map[string]bool{
	StatusWaiting: true, StatusOnMyWay: true, StatusArrived: true,
	StatusInConsultation: true, StatusCompleted: true,
}

// SlotKey identifies one shared time bucket: every appointment booked for the
// same doctor, calendar date and slot time competes in the same queue.
type SlotKey struct {
	DoctorID uuid.UUID
	Date     string // "2006-01-02"
	Time     string // "03:04 PM"
}

// Appointment maps to the appointment table.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	SlotDate  string    `db:"slot_date" json:"slot_date"`
	SlotTime  string    `db:"slot_time" json:"slot_time"`

	PatientName    string  `db:"patient_name" json:"patient_name"`
	PatientEmail   string  `db:"patient_email" json:"patient_email"`
	PatientAddress *string `db:"patient_address" json:"patient_address,omitempty"`

	DoctorName      string  `db:"doctor_name" json:"doctor_name"`
	DoctorSpecialty *string `db:"doctor_specialty" json:"doctor_specialty,omitempty"`
	DoctorAddress   *string `db:"doctor_address" json:"doctor_address,omitempty"`

	Amount    int  `db:"amount" json:"amount"`
	Payment   bool `db:"payment" json:"payment"`
	Cancelled bool `db:"cancelled" json:"cancelled"`
	Completed bool `db:"completed" json:"completed"`

	EstimatedTime    *string `db:"estimated_time" json:"estimated_time,omitempty"`
	SuggestedArrival *string `db:"suggested_arrival" json:"suggested_arrival,omitempty"`

	NotificationSent   bool       `db:"notification_sent" json:"notification_sent"`
	NotificationSentAt *time.Time `db:"notification_sent_at" json:"notification_sent_at,omitempty"`

	PatientStatus   string     `db:"patient_status" json:"patient_status"`
	StatusUpdatedAt *time.Time `db:"status_updated_at" json:"status_updated_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Active reports whether the appointment still occupies a place in its
// slot's effective queue.
func (a *Appointment) Active() bool {
	return !a.Cancelled && !a.Completed
}

// SlotKey returns the bucket this appointment belongs to.
func (a *Appointment) SlotKey() SlotKey {
	return SlotKey{DoctorID: a.DoctorID, Date: a.SlotDate, Time: a.SlotTime}
}

// QueueStatus is the live view computed for one appointment. Field names
// follow the client contract; everything is recomputed from current store
// state on each read, never cached from a past sweep.
type QueueStatus struct {
	QueuePosition    int    `json:"queuePosition"`
	PeopleAhead      int    `json:"peopleAhead"`
	TotalInSlot      int    `json:"totalInSlot"`
	EstimatedTime    string `json:"estimatedTime"`
	SuggestedArrival string `json:"suggestedArrival"`
	PatientStatus    string `json:"patientStatus"`
	NotificationSent bool   `json:"notificationSent"`
}
