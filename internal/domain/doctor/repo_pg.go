package doctor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio/consultorio/internal/platform/db"
)

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &doctorRepoPG{pool: pool} }

// TIME columns travel as "HH:MM" text in both directions.
const doctorCols = `id, first_name, last_name, document_number, license_number, specialty,
	phone, email, to_char(attention_start, 'HH24:MI'), to_char(attention_end, 'HH24:MI'),
	active, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.DocumentNumber, &d.LicenseNumber, &d.Specialty,
		&d.Phone, &d.Email, &d.AttentionStart, &d.AttentionEnd,
		&d.Active, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO doctor (id, first_name, last_name, document_number, license_number, specialty,
			phone, email, attention_start, attention_end, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::time,$10::time,$11)`,
		d.ID, d.FirstName, d.LastName, d.DocumentNumber, d.LicenseNumber, d.Specialty,
		d.Phone, d.Email, d.AttentionStart, d.AttentionEnd, d.Active)
	return db.Translate(err)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE doctor SET first_name=$2, last_name=$3, document_number=$4, license_number=$5,
			specialty=$6, phone=$7, email=$8, attention_start=$9::time, attention_end=$10::time,
			active=$11, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.FirstName, d.LastName, d.DocumentNumber, d.LicenseNumber,
		d.Specialty, d.Phone, d.Email, d.AttentionStart, d.AttentionEnd, d.Active)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// Delete fails with a foreign-key error while appointments reference the
// doctor. Unavailable days cascade.
func (r *doctorRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM doctor WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *doctorRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Doctor, int, error) {
	sq := db.NewSearchQuery("doctor", doctorCols)
	if f.Query != "" {
		sq.Contains(f.Query, "first_name", "last_name", "license_number", "specialty")
	}
	if f.ActiveOnly {
		sq.Add("active")
	}
	sq.OrderBy("last_name, first_name")
	return db.Page(ctx, db.Conn(ctx, r.pool), sq, limit, offset, scanDoctor)
}

func (r *doctorRepoPG) Search(ctx context.Context, q string, limit int) ([]*Doctor, error) {
	sq := db.NewSearchQuery("doctor", doctorCols)
	sq.Contains(q, "first_name", "last_name")
	sq.OrderBy("last_name, first_name")
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sq.DataSQL(), sq.DataArgs(limit, 0)...)
	return db.Collect(rows, err, scanDoctor)
}

func (r *doctorRepoPG) ListActive(ctx context.Context) ([]*Doctor, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+doctorCols+` FROM doctor WHERE active ORDER BY last_name, first_name`)
	return db.Collect(rows, err, scanDoctor)
}

const dayCols = `id, doctor_id, date, reason, created_at`

func scanDay(row pgx.Row) (*UnavailableDay, error) {
	var d UnavailableDay
	if err := row.Scan(&d.ID, &d.DoctorID, &d.Date, &d.Reason, &d.CreatedAt); err != nil {
		return nil, db.Translate(err)
	}
	return &d, nil
}

func (r *doctorRepoPG) AddUnavailableDay(ctx context.Context, d *UnavailableDay) error {
	d.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO doctor_unavailable_day (id, doctor_id, date, reason)
		VALUES ($1,$2,$3,$4)`,
		d.ID, d.DoctorID, d.Date, d.Reason)
	return db.Translate(err)
}

func (r *doctorRepoPG) RemoveUnavailableDay(ctx context.Context, doctorID, dayID uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM doctor_unavailable_day WHERE id = $1 AND doctor_id = $2`, dayID, doctorID)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// maxDays bounds one listing of unavailable days.
const maxDays = 366

func (r *doctorRepoPG) ListUnavailableDays(ctx context.Context, doctorID uuid.UUID, from, to *time.Time) ([]*UnavailableDay, error) {
	sq := db.NewSearchQuery("doctor_unavailable_day", dayCols)
	sq.Eq("doctor_id", doctorID)
	sq.DateRange("date", from, to)
	sq.OrderBy("date")
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sq.DataSQL(), sq.DataArgs(maxDays, 0)...)
	return db.Collect(rows, err, scanDay)
}

func (r *doctorRepoPG) IsUnavailable(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM doctor_unavailable_day WHERE doctor_id = $1 AND date = $2)`,
		doctorID, date).Scan(&exists)
	if err != nil {
		return false, db.Translate(err)
	}
	return exists, nil
}
