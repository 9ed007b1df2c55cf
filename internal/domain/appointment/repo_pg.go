package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio/consultorio/internal/domain"
	"github.com/consultorio/consultorio/internal/platform/db"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &appointmentRepoPG{pool: pool} }

const (
	appointmentTable = `appointment a
	JOIN patient p ON p.id = a.patient_id
	LEFT JOIN doctor d ON d.id = a.doctor_id
	LEFT JOIN consulting_room r ON r.id = a.room_id
	LEFT JOIN appointment_type t ON t.id = a.type_id`
	appointmentCols = `a.id, a.patient_id, a.doctor_id, a.room_id, a.type_id, a.date,
	to_char(a.time, 'HH24:MI'), a.status, a.overbooking, a.reason, a.notes, a.reception_time,
	a.no_show_reason, a.no_show_follow_up, a.created_at, a.updated_at,
	p.last_name || ', ' || p.first_name, p.document_number,
	d.last_name || ', ' || d.first_name, r.name, t.name`
)

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.RoomID, &a.TypeID, &a.Date,
		&a.Time, &a.Status, &a.Overbooking, &a.Reason, &a.Notes, &a.ReceptionTime,
		&a.NoShowReason, &a.NoShowFollowUp, &a.CreatedAt, &a.UpdatedAt,
		&a.PatientName, &a.PatientDocument, &a.DoctorName, &a.RoomName, &a.TypeName)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO appointment (id, patient_id, doctor_id, room_id, type_id, date, time, status,
			overbooking, reason, notes, reception_time, no_show_reason, no_show_follow_up)
		VALUES ($1,$2,$3,$4,$5,$6,$7::time,$8,$9,$10,$11,$12,$13,$14)`,
		a.ID, a.PatientID, a.DoctorID, a.RoomID, a.TypeID, a.Date, a.Time, a.Status,
		a.Overbooking, a.Reason, a.Notes, a.ReceptionTime, a.NoShowReason, a.NoShowFollowUp)
	return db.Translate(err)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM `+appointmentTable+` WHERE a.id = $1`, id))
}

func (r *appointmentRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM `+appointmentTable+` WHERE a.id = $1 FOR UPDATE OF a`, id))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE appointment SET patient_id=$2, doctor_id=$3, room_id=$4, type_id=$5, date=$6,
			time=$7::time, status=$8, overbooking=$9, reason=$10, notes=$11, reception_time=$12,
			no_show_reason=$13, no_show_follow_up=$14, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.PatientID, a.DoctorID, a.RoomID, a.TypeID, a.Date,
		a.Time, a.Status, a.Overbooking, a.Reason, a.Notes, a.ReceptionTime,
		a.NoShowReason, a.NoShowFollowUp)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	sq := db.NewSearchQuery(appointmentTable, appointmentCols)
	sq.DateRange("a.date", f.From, f.To)
	if f.DoctorID != nil {
		sq.Eq("a.doctor_id", *f.DoctorID)
	}
	if f.PatientID != nil {
		sq.Eq("a.patient_id", *f.PatientID)
	}
	if f.Status != "" {
		sq.Eq("a.status", f.Status)
	}
	sq.OrderBy("a.date DESC, a.time")
	return db.Page(ctx, db.Conn(ctx, r.pool), sq, limit, offset, scanAppointment)
}

// maxAgenda bounds one day's agenda.
const maxAgenda = 500

func (r *appointmentRepoPG) Agenda(ctx context.Context, date time.Time, doctorID *uuid.UUID) ([]*Appointment, error) {
	sq := db.NewSearchQuery(appointmentTable, appointmentCols)
	sq.Eq("a.date", date)
	if doctorID != nil {
		sq.Eq("a.doctor_id", *doctorID)
	}
	sq.OrderBy("a.time, d.last_name")
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sq.DataSQL(), sq.DataArgs(maxAgenda, 0)...)
	return db.Collect(rows, err, scanAppointment)
}

func (r *appointmentRepoPG) SlotTaken(ctx context.Context, doctorID uuid.UUID, date time.Time, clock string, excludeID *uuid.UUID) (bool, error) {
	var taken bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE doctor_id = $1 AND date = $2 AND time = $3::time AND status = $4
			  AND ($5::uuid IS NULL OR id <> $5)
		)`, doctorID, date, clock, StatusScheduled, excludeID).Scan(&taken)
	if err != nil {
		return false, db.Translate(err)
	}
	return taken, nil
}

func (r *appointmentRepoPG) LockSlot(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		doctorID.String()+"/"+date.Format(domain.DateLayout))
	return db.Translate(err)
}
