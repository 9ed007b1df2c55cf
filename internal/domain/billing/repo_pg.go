package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/consultorio/consultorio/internal/platform/db"
)

// =========== Invoice ===========

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository { return &invoiceRepoPG{pool: pool} }

const (
	invoiceTable = `invoice i
	JOIN patient p ON p.id = i.patient_id
	LEFT JOIN insurance_company ic ON ic.id = i.insurance_company_id`
	invoiceCols = `i.id, i.number, i.patient_id, i.appointment_id, i.insurance_company_id, i.issue_date,
	i.description, i.amount, i.status, i.created_at, i.updated_at,
	COALESCE((SELECT SUM(pay.amount) FROM payment pay WHERE pay.invoice_id = i.id), 0),
	p.last_name || ', ' || p.first_name, p.document_number, p.email, ic.name`
)

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.PatientID, &inv.AppointmentID, &inv.InsuranceCompanyID, &inv.IssueDate,
		&inv.Description, &inv.Amount, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt,
		&inv.Paid,
		&inv.PatientName, &inv.PatientDocument, &inv.PatientEmail, &inv.InsuranceName)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &inv, nil
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO invoice (id, number, patient_id, appointment_id, insurance_company_id,
			issue_date, description, amount, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		inv.ID, inv.Number, inv.PatientID, inv.AppointmentID, inv.InsuranceCompanyID,
		inv.IssueDate, inv.Description, inv.Amount, inv.Status)
	return db.Translate(err)
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return scanInvoice(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM `+invoiceTable+` WHERE i.id = $1`, id))
}

func (r *invoiceRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	conn := db.Conn(ctx, r.pool)
	var locked uuid.UUID
	if err := conn.QueryRow(ctx, `SELECT id FROM invoice WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
		return nil, db.Translate(err)
	}
	return scanInvoice(conn.QueryRow(ctx, `SELECT `+invoiceCols+` FROM `+invoiceTable+` WHERE i.id = $1`, id))
}

func (r *invoiceRepoPG) Update(ctx context.Context, inv *Invoice) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE invoice SET number=$2, patient_id=$3, appointment_id=$4, insurance_company_id=$5,
			issue_date=$6, description=$7, amount=$8, status=$9, updated_at=NOW()
		WHERE id = $1`,
		inv.ID, inv.Number, inv.PatientID, inv.AppointmentID, inv.InsuranceCompanyID,
		inv.IssueDate, inv.Description, inv.Amount, inv.Status)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *invoiceRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE invoice SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

// Delete removes the invoice and, by cascade, its payments.
func (r *invoiceRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM invoice WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *invoiceRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Invoice, int, error) {
	sq := db.NewSearchQuery(invoiceTable, invoiceCols)
	if f.Status != "" {
		sq.Eq("i.status", f.Status)
	}
	if f.PatientID != nil {
		sq.Eq("i.patient_id", *f.PatientID)
	}
	sq.DateRange("i.issue_date", f.From, f.To)
	sq.OrderBy("i.issue_date DESC, i.number DESC")
	return db.Page(ctx, db.Conn(ctx, r.pool), sq, limit, offset, scanInvoice)
}

// =========== Payment ===========

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

const paymentCols = `id, invoice_id, amount, method, paid_at, reference, notes, created_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.PaidAt, &p.Reference, &p.Notes, &p.CreatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &p, nil
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO payment (id, invoice_id, amount, method, paid_at, reference, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.InvoiceID, p.Amount, p.Method, p.PaidAt, p.Reference, p.Notes)
	return db.Translate(err)
}

func (r *paymentRepoPG) Delete(ctx context.Context, invoiceID, paymentID uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM payment WHERE id = $1 AND invoice_id = $2`, paymentID, invoiceID)
	if err != nil {
		return db.Translate(err)
	}
	if tag.RowsAffected() == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *paymentRepoPG) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+paymentCols+` FROM payment WHERE invoice_id = $1 ORDER BY paid_at, created_at`, invoiceID)
	return db.Collect(rows, err, scanPayment)
}

func (r *paymentRepoPG) SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payment WHERE invoice_id = $1`, invoiceID).Scan(&sum)
	if err != nil {
		return decimal.Zero, db.Translate(err)
	}
	return sum, nil
}
