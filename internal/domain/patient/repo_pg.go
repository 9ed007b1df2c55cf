package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio/consultorio/internal/platform/db"
)

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &patientRepoPG{pool: pool} }

const (
	patientTable = `patient p LEFT JOIN insurance_company ic ON ic.id = p.insurance_company_id`
	patientCols  = `p.id, p.first_name, p.last_name, p.document_number, p.birth_date, p.gender,
	p.phone, p.email, p.address, p.medical_record_number, p.insurance_company_id,
	p.insurance_plan, p.affiliate_number, p.notes, p.created_at, p.updated_at, ic.name`
)

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DocumentNumber, &p.BirthDate, &p.Gender,
		&p.Phone, &p.Email, &p.Address, &p.MedicalRecordNumber, &p.InsuranceCompanyID,
		&p.InsurancePlan, &p.AffiliateNumber, &p.Notes, &p.CreatedAt, &p.UpdatedAt, &p.InsuranceName)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patient (id, first_name, last_name, document_number, birth_date, gender,
			phone, email, address, medical_record_number, insurance_company_id,
			insurance_plan, affiliate_number, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.FirstName, p.LastName, p.DocumentNumber, p.BirthDate, p.Gender,
		p.Phone, p.Email, p.Address, p.MedicalRecordNumber, p.InsuranceCompanyID,
		p.InsurancePlan, p.AffiliateNumber, p.Notes)
	return db.Translate(err)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM `+patientTable+` WHERE p.id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE patient SET first_name=$2, last_name=$3, document_number=$4, birth_date=$5,
			gender=$6, phone=$7, email=$8, address=$9, medical_record_number=$10,
			insurance_company_id=$11, insurance_plan=$12, affiliate_number=$13, notes=$14,
			updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.DocumentNumber, p.BirthDate,
		p.Gender, p.Phone, p.Email, p.Address, p.MedicalRecordNumber,
		p.InsuranceCompanyID, p.InsurancePlan, p.AffiliateNumber, p.Notes)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// Delete removes the patient; appointments go with it (ON DELETE CASCADE),
// invoices block it.
func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	sq := db.NewSearchQuery(patientTable, patientCols)
	if f.Query != "" {
		sq.Contains(f.Query, "p.first_name", "p.last_name", "p.document_number", "p.medical_record_number")
	}
	if f.InsuranceCompanyID != nil {
		sq.Eq("p.insurance_company_id", *f.InsuranceCompanyID)
	}
	sq.OrderBy("p.last_name, p.first_name")
	return db.Page(ctx, db.Conn(ctx, r.pool), sq, limit, offset, scanPatient)
}

func (r *patientRepoPG) SearchByName(ctx context.Context, q string, limit int) ([]*Patient, error) {
	sq := db.NewSearchQuery(patientTable, patientCols)
	sq.Contains(q, "p.first_name", "p.last_name")
	sq.OrderBy("p.last_name, p.first_name")
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sq.DataSQL(), sq.DataArgs(limit, 0)...)
	return db.Collect(rows, err, scanPatient)
}

func (r *patientRepoPG) SearchByDocument(ctx context.Context, q string, limit int) ([]*Patient, error) {
	sq := db.NewSearchQuery(patientTable, patientCols)
	sq.Contains(q, "p.document_number")
	sq.OrderBy("p.document_number")
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sq.DataSQL(), sq.DataArgs(limit, 0)...)
	return db.Collect(rows, err, scanPatient)
}
