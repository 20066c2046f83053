package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

const apptCols = `id, doctor_id, patient_id, slot_date, slot_time,
	patient_name, patient_email, patient_address,
	doctor_name, doctor_specialty, doctor_address,
	amount, payment, cancelled, completed,
	estimated_time, suggested_arrival,
	notification_sent, notification_sent_at,
	patient_status, status_updated_at,
	created_at, updated_at`

func scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.SlotDate, &a.SlotTime,
		&a.PatientName, &a.PatientEmail, &a.PatientAddress,
		&a.DoctorName, &a.DoctorSpecialty, &a.DoctorAddress,
		&a.Amount, &a.Payment, &a.Cancelled, &a.Completed,
		&a.EstimatedTime, &a.SuggestedArrival,
		&a.NotificationSent, &a.NotificationSentAt,
		&a.PatientStatus, &a.StatusUpdatedAt,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.PatientStatus == "" {
		a.PatientStatus = StatusWaiting
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment (id, doctor_id, patient_id, slot_date, slot_time,
			patient_name, patient_email, patient_address,
			doctor_name, doctor_specialty, doctor_address,
			amount, payment, cancelled, completed,
			estimated_time, suggested_arrival, patient_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		a.ID, a.DoctorID, a.PatientID, a.SlotDate, a.SlotTime,
		a.PatientName, a.PatientEmail, a.PatientAddress,
		a.DoctorName, a.DoctorSpecialty, a.DoctorAddress,
		a.Amount, a.Payment, a.Cancelled, a.Completed,
		a.EstimatedTime, a.SuggestedArrival, a.PatientStatus)
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppt(r.pool.QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *appointmentRepoPG) ListByDate(ctx context.Context, date string, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE slot_date = $1`, date).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE slot_date = $1 ORDER BY slot_time ASC, created_at ASC LIMIT $2 OFFSET $3`,
		date, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *appointmentRepoPG) ListUnnotifiedByDate(ctx context.Context, date string) ([]*Appointment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+apptCols+` FROM appointment
		WHERE slot_date = $1 AND cancelled = false AND completed = false AND notification_sent = false`,
		date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *appointmentRepoPG) ActiveIDsBySlot(ctx context.Context, key SlotKey) (map[uuid.UUID]bool, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM appointment
		WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3
		AND cancelled = false AND completed = false`,
		key.DoctorID, key.Date, key.Time)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	active := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		active[id] = true
	}
	return active, rows.Err()
}

func (r *appointmentRepoPG) SetTiming(ctx context.Context, id uuid.UUID, estimated, suggested string) error {
	_, err := r.pool.Exec(ctx, `UPDATE appointment
		SET estimated_time = $2, suggested_arrival = $3, updated_at = NOW()
		WHERE id = $1`, id, estimated, suggested)
	return err
}

func (r *appointmentRepoPG) SetCancelled(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE appointment SET cancelled = true, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) SetCompleted(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE appointment SET completed = true, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) SetPatientStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE appointment
		SET patient_status = $2, status_updated_at = $3, updated_at = NOW()
		WHERE id = $1`, id, status, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkNotified is a single conditional UPDATE; the WHERE clause makes the
// false->true transition atomic, so concurrent sweeps cannot both claim the
// same appointment.
func (r *appointmentRepoPG) MarkNotified(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE appointment
		SET notification_sent = true, notification_sent_at = $2, updated_at = NOW()
		WHERE id = $1 AND notification_sent = false`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *appointmentRepoPG) ClearNotified(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE appointment
		SET notification_sent = false, notification_sent_at = NULL, updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

// =========== Slot Order Repository ===========

type slotOrderRepoPG struct{ pool *pgxpool.Pool }

func NewSlotOrderRepoPG(pool *pgxpool.Pool) SlotOrderRepository {
	return &slotOrderRepoPG{pool: pool}
}

func (r *slotOrderRepoPG) Append(ctx context.Context, key SlotKey, appointmentID uuid.UUID) (int, error) {
	var position int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO slot_order (doctor_id, slot_date, slot_time, position, appointment_id)
		SELECT $1, $2, $3, COALESCE(MAX(position), 0) + 1, $4
		FROM slot_order WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3
		RETURNING position`,
		key.DoctorID, key.Date, key.Time, appointmentID).Scan(&position)
	if err != nil {
		return 0, err
	}
	return position, nil
}

func (r *slotOrderRepoPG) OrderFor(ctx context.Context, key SlotKey) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT appointment_id FROM slot_order
		WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3
		ORDER BY position ASC`,
		key.DoctorID, key.Date, key.Time)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var order []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		order = append(order, id)
	}
	return order, rows.Err()
}
