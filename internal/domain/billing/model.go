// Package billing issues invoices to patients and reconciles the payments
// made against them.
package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

var InvoiceStatuses = [][2]string{
	{StatusPending, "Pending"},
	{StatusPaid, "Paid"},
	{StatusCancelled, "Cancelled"},
}

var PaymentMethods = [][2]string{
	{"cash", "Cash"},
	{"card", "Card"},
	{"transfer", "Bank transfer"},
	{"insurance", "Insurance"},
	{"other", "Other"},
}

func label(pairs [][2]string, value string) string {
	for _, p := range pairs {
		if p[0] == value {
			return p[1]
		}
	}
	return value
}

func StatusLabel(status string) string { return label(InvoiceStatuses, status) }
func MethodLabel(method string) string { return label(PaymentMethods, method) }

// Invoice maps to the invoice table. Paid is the sum of its payments.
type Invoice struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	Number             string          `db:"number" json:"number"`
	PatientID          uuid.UUID       `db:"patient_id" json:"patient_id"`
	AppointmentID      *uuid.UUID      `db:"appointment_id" json:"appointment_id,omitempty"`
	InsuranceCompanyID *uuid.UUID      `db:"insurance_company_id" json:"insurance_company_id,omitempty"`
	IssueDate          time.Time       `db:"issue_date" json:"issue_date"`
	Description        *string         `db:"description" json:"description,omitempty"`
	Amount             decimal.Decimal `db:"amount" json:"amount"`
	Status             string          `db:"status" json:"status"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`

	// Read-only, computed or joined.
	Paid            decimal.Decimal `db:"paid" json:"paid"`
	PatientName     string          `db:"patient_name" json:"patient_name"`
	PatientDocument string          `db:"patient_document" json:"patient_document"`
	PatientEmail    *string         `db:"patient_email" json:"-"`
	InsuranceName   *string         `db:"insurance_name" json:"insurance_name,omitempty"`
}

// Balance is what is still owed, never negative.
func (i *Invoice) Balance() decimal.Decimal {
	b := i.Amount.Sub(i.Paid)
	if b.IsNegative() {
		return decimal.Zero
	}
	return b
}

// Payment maps to the payment table.
type Payment struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	InvoiceID uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Method    string          `db:"method" json:"method"`
	PaidAt    time.Time       `db:"paid_at" json:"paid_at"`
	Reference *string         `db:"reference" json:"reference,omitempty"`
	Notes     *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// InvoiceDetail is an invoice together with its payments.
type InvoiceDetail struct {
	*Invoice
	Payments []*Payment
}

type Filter struct {
	Status    string
	PatientID *uuid.UUID
	From      *time.Time
	To        *time.Time
}

type InvoiceForm struct {
	PatientID          string `form:"patient_id"`
	AppointmentID      string `form:"appointment_id"`
	InsuranceCompanyID string `form:"insurance_company_id"`
	Number             string `form:"number"`
	IssueDate          string `form:"issue_date"`
	Description        string `form:"description"`
	Amount             string `form:"amount"`
}

type PaymentForm struct {
	Amount    string `form:"amount"`
	Method    string `form:"method"`
	PaidAt    string `form:"paid_at"`
	Reference string `form:"reference"`
	Notes     string `form:"notes"`
}

type EmailForm struct {
	To string `form:"to"`
}
