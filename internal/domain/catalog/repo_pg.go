package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio/consultorio/internal/platform/db"
)

// =========== Consulting room ===========

type roomRepoPG struct{ pool *pgxpool.Pool }

func NewRoomRepoPG(pool *pgxpool.Pool) RoomRepository { return &roomRepoPG{pool: pool} }

const roomCols = `id, name, location, description, active, created_at, updated_at`

func scanRoom(row pgx.Row) (*ConsultingRoom, error) {
	var r ConsultingRoom
	err := row.Scan(&r.ID, &r.Name, &r.Location, &r.Description, &r.Active, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &r, nil
}

func (r *roomRepoPG) Create(ctx context.Context, room *ConsultingRoom) error {
	room.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO consulting_room (id, name, location, description, active)
		VALUES ($1,$2,$3,$4,$5)`,
		room.ID, room.Name, room.Location, room.Description, room.Active)
	return db.Translate(err)
}

func (r *roomRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ConsultingRoom, error) {
	return scanRoom(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+roomCols+` FROM consulting_room WHERE id = $1`, id))
}

func (r *roomRepoPG) Update(ctx context.Context, room *ConsultingRoom) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE consulting_room SET name=$2, location=$3, description=$4, active=$5, updated_at=NOW()
		WHERE id = $1`,
		room.ID, room.Name, room.Location, room.Description, room.Active)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *roomRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, db.Conn(ctx, r.pool), "consulting_room", id)
}

func (r *roomRepoPG) List(ctx context.Context, q string, limit, offset int) ([]*ConsultingRoom, int, error) {
	sq := db.NewSearchQuery("consulting_room", roomCols)
	if q != "" {
		sq.Contains(q, "name", "location")
	}
	sq.OrderBy("name")
	return db.Page(ctx, db.Conn(ctx, r.pool), sq, limit, offset, scanRoom)
}

func (r *roomRepoPG) Search(ctx context.Context, q string, limit int) ([]*ConsultingRoom, error) {
	sq := db.NewSearchQuery("consulting_room", roomCols)
	sq.Contains(q, "name", "location")
	sq.OrderBy("name")
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sq.DataSQL(), sq.DataArgs(limit, 0)...)
	return db.Collect(rows, err, scanRoom)
}

func (r *roomRepoPG) ListActive(ctx context.Context) ([]*ConsultingRoom, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+roomCols+` FROM consulting_room WHERE active ORDER BY name`)
	return db.Collect(rows, err, scanRoom)
}

// =========== Appointment type ===========

type typeRepoPG struct{ pool *pgxpool.Pool }

func NewTypeRepoPG(pool *pgxpool.Pool) TypeRepository { return &typeRepoPG{pool: pool} }

const typeCols = `id, name, description, duration_minutes, created_at, updated_at`

func scanType(row pgx.Row) (*AppointmentType, error) {
	var t AppointmentType
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.DurationMinutes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &t, nil
}

func (r *typeRepoPG) Create(ctx context.Context, t *AppointmentType) error {
	t.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO appointment_type (id, name, description, duration_minutes)
		VALUES ($1,$2,$3,$4)`,
		t.ID, t.Name, t.Description, t.DurationMinutes)
	return db.Translate(err)
}

func (r *typeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*AppointmentType, error) {
	return scanType(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+typeCols+` FROM appointment_type WHERE id = $1`, id))
}

func (r *typeRepoPG) Update(ctx context.Context, t *AppointmentType) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE appointment_type SET name=$2, description=$3, duration_minutes=$4, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Name, t.Description, t.DurationMinutes)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *typeRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, db.Conn(ctx, r.pool), "appointment_type", id)
}

func (r *typeRepoPG) List(ctx context.Context, q string, limit, offset int) ([]*AppointmentType, int, error) {
	sq := db.NewSearchQuery("appointment_type", typeCols)
	if q != "" {
		sq.Contains(q, "name", "description")
	}
	sq.OrderBy("name")
	return db.Page(ctx, db.Conn(ctx, r.pool), sq, limit, offset, scanType)
}

func (r *typeRepoPG) Search(ctx context.Context, q string, limit int) ([]*AppointmentType, error) {
	sq := db.NewSearchQuery("appointment_type", typeCols)
	sq.Contains(q, "name", "description")
	sq.OrderBy("name")
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sq.DataSQL(), sq.DataArgs(limit, 0)...)
	return db.Collect(rows, err, scanType)
}

func (r *typeRepoPG) ListAll(ctx context.Context) ([]*AppointmentType, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+typeCols+` FROM appointment_type ORDER BY name`)
	return db.Collect(rows, err, scanType)
}

// =========== Insurance company ===========

type insuranceRepoPG struct{ pool *pgxpool.Pool }

func NewInsuranceRepoPG(pool *pgxpool.Pool) InsuranceRepository {
	return &insuranceRepoPG{pool: pool}
}

const insuranceCols = `id, name, code, phone, email, website, notes, created_at, updated_at`

func scanInsurance(row pgx.Row) (*InsuranceCompany, error) {
	var ic InsuranceCompany
	err := row.Scan(&ic.ID, &ic.Name, &ic.Code, &ic.Phone, &ic.Email, &ic.Website, &ic.Notes,
		&ic.CreatedAt, &ic.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &ic, nil
}

func (r *insuranceRepoPG) Create(ctx context.Context, ic *InsuranceCompany) error {
	ic.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO insurance_company (id, name, code, phone, email, website, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ic.ID, ic.Name, ic.Code, ic.Phone, ic.Email, ic.Website, ic.Notes)
	return db.Translate(err)
}

func (r *insuranceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*InsuranceCompany, error) {
	return scanInsurance(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+insuranceCols+` FROM insurance_company WHERE id = $1`, id))
}

func (r *insuranceRepoPG) Update(ctx context.Context, ic *InsuranceCompany) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE insurance_company SET name=$2, code=$3, phone=$4, email=$5, website=$6, notes=$7,
			updated_at=NOW()
		WHERE id = $1`,
		ic.ID, ic.Name, ic.Code, ic.Phone, ic.Email, ic.Website, ic.Notes)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *insuranceRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, db.Conn(ctx, r.pool), "insurance_company", id)
}

func (r *insuranceRepoPG) List(ctx context.Context, q string, limit, offset int) ([]*InsuranceCompany, int, error) {
	sq := db.NewSearchQuery("insurance_company", insuranceCols)
	if q != "" {
		sq.Contains(q, "name", "code")
	}
	sq.OrderBy("name")
	return db.Page(ctx, db.Conn(ctx, r.pool), sq, limit, offset, scanInsurance)
}

func (r *insuranceRepoPG) Search(ctx context.Context, q string, limit int) ([]*InsuranceCompany, error) {
	sq := db.NewSearchQuery("insurance_company", insuranceCols)
	sq.Contains(q, "name", "code")
	sq.OrderBy("name")
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sq.DataSQL(), sq.DataArgs(limit, 0)...)
	return db.Collect(rows, err, scanInsurance)
}

func (r *insuranceRepoPG) ListAll(ctx context.Context) ([]*InsuranceCompany, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `SELECT `+insuranceCols+` FROM insurance_company ORDER BY name`)
	return db.Collect(rows, err, scanInsurance)
}

// =========== Institution ===========

type institutionRepoPG struct{ pool *pgxpool.Pool }

func NewInstitutionRepoPG(pool *pgxpool.Pool) InstitutionRepository {
	return &institutionRepoPG{pool: pool}
}

const institutionCols = `id, name, address, phone, email, notes, created_at, updated_at`

func scanInstitution(row pgx.Row) (*Institution, error) {
	var i Institution
	err := row.Scan(&i.ID, &i.Name, &i.Address, &i.Phone, &i.Email, &i.Notes, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &i, nil
}

func (r *institutionRepoPG) Create(ctx context.Context, i *Institution) error {
	i.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO institution (id, name, address, phone, email, notes)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		i.ID, i.Name, i.Address, i.Phone, i.Email, i.Notes)
	return db.Translate(err)
}

func (r *institutionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Institution, error) {
	return scanInstitution(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+institutionCols+` FROM institution WHERE id = $1`, id))
}

func (r *institutionRepoPG) Update(ctx context.Context, i *Institution) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE institution SET name=$2, address=$3, phone=$4, email=$5, notes=$6, updated_at=NOW()
		WHERE id = $1`,
		i.ID, i.Name, i.Address, i.Phone, i.Email, i.Notes)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *institutionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, db.Conn(ctx, r.pool), "institution", id)
}

func (r *institutionRepoPG) List(ctx context.Context, q string, limit, offset int) ([]*Institution, int, error) {
	sq := db.NewSearchQuery("institution", institutionCols)
	if q != "" {
		sq.Contains(q, "name", "address")
	}
	sq.OrderBy("name")
	return db.Page(ctx, db.Conn(ctx, r.pool), sq, limit, offset, scanInstitution)
}

func (r *institutionRepoPG) Search(ctx context.Context, q string, limit int) ([]*Institution, error) {
	sq := db.NewSearchQuery("institution", institutionCols)
	sq.Contains(q, "name", "address")
	sq.OrderBy("name")
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sq.DataSQL(), sq.DataArgs(limit, 0)...)
	return db.Collect(rows, err, scanInstitution)
}

const dayCols = `id, institution_id, date, reason, created_at`

func scanDay(row pgx.Row) (*UnavailableDay, error) {
	var d UnavailableDay
	if err := row.Scan(&d.ID, &d.InstitutionID, &d.Date, &d.Reason, &d.CreatedAt); err != nil {
		return nil, db.Translate(err)
	}
	return &d, nil
}

func (r *institutionRepoPG) AddUnavailableDay(ctx context.Context, d *UnavailableDay) error {
	d.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO institution_unavailable_day (id, institution_id, date, reason)
		VALUES ($1,$2,$3,$4)`,
		d.ID, d.InstitutionID, d.Date, d.Reason)
	return db.Translate(err)
}

func (r *institutionRepoPG) RemoveUnavailableDay(ctx context.Context, institutionID, dayID uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM institution_unavailable_day WHERE id = $1 AND institution_id = $2`, dayID, institutionID)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *institutionRepoPG) ListUnavailableDays(ctx context.Context, institutionID uuid.UUID, from, to *time.Time) ([]*UnavailableDay, error) {
	sq := db.NewSearchQuery("institution_unavailable_day", dayCols)
	sq.Eq("institution_id", institutionID)
	sq.DateRange("date", from, to)
	sq.OrderBy("date")
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sq.DataSQL(), sq.DataArgs(maxDays, 0)...)
	return db.Collect(rows, err, scanDay)
}

// maxDays bounds an unavailable-day listing; a year of closures fits.
const maxDays = 366

func deleteByID(ctx context.Context, conn db.Querier, table string, id uuid.UUID) error {
	tag, err := conn.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}
