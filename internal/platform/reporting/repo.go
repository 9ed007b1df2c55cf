package reporting

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/consultorio/consultorio/internal/platform/db"
)

// Repository runs the aggregate queries behind the reports.
type Repository interface {
	AppointmentSummary(ctx context.Context, r Range) ([]DoctorSummary, error)
	BillingSummary(ctx context.Context, r Range) (*BillingSummary, error)
	PatientsPerInsurance(ctx context.Context) ([]InsuranceCount, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) AppointmentSummary(ctx context.Context, rg Range) ([]DoctorSummary, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT a.doctor_id, COALESCE(d.last_name || ', ' || d.first_name, ''),
			COUNT(*) FILTER (WHERE a.status = 'scheduled'),
			COUNT(*) FILTER (WHERE a.status = 'attended'),
			COUNT(*) FILTER (WHERE a.status = 'cancelled'),
			COUNT(*) FILTER (WHERE a.status = 'no_show')
		FROM appointment a
		LEFT JOIN doctor d ON d.id = a.doctor_id
		WHERE a.date BETWEEN $1 AND $2
		GROUP BY a.doctor_id, d.last_name, d.first_name
		ORDER BY d.last_name NULLS LAST, d.first_name`, rg.From, rg.To)
	return db.Collect(rows, err, func(row pgx.Row) (DoctorSummary, error) {
		var s DoctorSummary
		err := row.Scan(&s.DoctorID, &s.DoctorName, &s.Scheduled, &s.Attended, &s.Cancelled, &s.NoShow)
		return s, db.Translate(err)
	})
}

func (r *repoPG) BillingSummary(ctx context.Context, rg Range) (*BillingSummary, error) {
	var s BillingSummary
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COALESCE(SUM(amount) FILTER (WHERE status <> 'cancelled'), 0),
			COALESCE(SUM(paid) FILTER (WHERE status <> 'cancelled'), 0),
			COALESCE(SUM(GREATEST(amount - paid, 0)) FILTER (WHERE status = 'pending'), 0),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'paid'),
			COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM (
			SELECT i.status, i.amount,
				COALESCE((SELECT SUM(p.amount) FROM payment p WHERE p.invoice_id = i.id), 0) AS paid
			FROM invoice i
			WHERE i.issue_date BETWEEN $1 AND $2
		) t`, rg.From, rg.To).
		Scan(&s.Invoiced, &s.Collected, &s.Outstanding, &s.Pending, &s.Paid, &s.Cancelled)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &s, nil
}

func (r *repoPG) PatientsPerInsurance(ctx context.Context) ([]InsuranceCount, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT ic.id, ic.name, COUNT(p.id)
		FROM insurance_company ic
		LEFT JOIN patient p ON p.insurance_company_id = ic.id
		GROUP BY ic.id, ic.name
		UNION ALL
		SELECT NULL, '', COUNT(*) FROM patient WHERE insurance_company_id IS NULL
		ORDER BY 3 DESC, 2`)
	return db.Collect(rows, err, func(row pgx.Row) (InsuranceCount, error) {
		var c InsuranceCount
		err := row.Scan(&c.InsuranceCompanyID, &c.Name, &c.Patients)
		return c, db.Translate(err)
	})
}
