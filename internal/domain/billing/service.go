package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/consultorio/consultorio/internal/domain"
	"github.com/consultorio/consultorio/internal/platform/db"
	"github.com/consultorio/consultorio/internal/platform/mail"
	"github.com/consultorio/consultorio/internal/platform/pdf"
	"github.com/consultorio/consultorio/internal/platform/web"
)

// Clinic carries what printed invoices say about the issuer.
type Clinic struct {
	Name           string
	Address        string
	CurrencySymbol string
}

// Money formats an amount in the clinic's currency.
func (c Clinic) Money(d decimal.Decimal) string {
	return web.Money(c.CurrencySymbol, d)
}

type Service struct {
	invoices InvoiceRepository
	payments PaymentRepository
	tx       db.Transactor
	mailer   mail.Sender
	clinic   Clinic
	now      func() time.Time
	suffix   func() string
}

func NewService(invoices InvoiceRepository, payments PaymentRepository, tx db.Transactor, mailer mail.Sender, clinic Clinic) *Service {
	return &Service{
		invoices: invoices,
		payments: payments,
		tx:       tx,
		mailer:   mailer,
		clinic:   clinic,
		now:      time.Now,
		suffix:   func() string { return strings.ToUpper(uuid.NewString()[:6]) },
	}
}

func (s *Service) Clinic() Clinic { return s.clinic }

// MailEnabled reports whether invoices can be sent by e-mail.
func (s *Service) MailEnabled() bool { return s.mailer.Enabled() }

var (
	ErrNotPending       = domain.Invalid("Only pending invoices can be edited.")
	ErrInvoiceCancelled = domain.Invalid("The invoice is cancelled; it does not accept payments.")
	ErrInvoicePaid      = domain.Invalid("The invoice is already paid.")
	ErrCancelPaid       = domain.Invalid("A paid invoice cannot be cancelled.")
	ErrAlreadyCancelled = domain.Invalid("The invoice is already cancelled.")
	ErrMailDisabled     = domain.Invalid("E-mail delivery is not configured.")
	ErrNoRecipient      = domain.Invalid("The patient has no e-mail address; enter one to send the invoice.")
)

const (
	// numberAttempts bounds retries when a generated number collides.
	numberAttempts = 3
	// invoiceReferences names what an invoice can point at.
	invoiceReferences = "patient, appointment or insurance company"
)

func (s *Service) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// generateNumber builds "F-YYYYMMDD-XXXXXX" from the issue date.
func (s *Service) generateNumber(issue time.Time) string {
	return "F-" + issue.Format("20060102") + "-" + s.suffix()
}

func (s *Service) fromForm(inv *Invoice, f InvoiceForm) error {
	patientID, err := domain.ParseUUID(f.PatientID, "Patient")
	if err != nil {
		return err
	}
	amount, err := domain.ParseAmount(f.Amount, "Amount")
	if err != nil {
		return err
	}
	issue, err := domain.ParseOptionalDate(f.IssueDate, "Issue date")
	if err != nil {
		return err
	}
	appointmentID, err := domain.ParseOptionalUUID(f.AppointmentID, "Appointment")
	if err != nil {
		return err
	}
	insuranceID, err := domain.ParseOptionalUUID(f.InsuranceCompanyID, "Insurance company")
	if err != nil {
		return err
	}
	number := strings.ToUpper(strings.TrimSpace(f.Number))
	if len(number) > 30 {
		return domain.Invalid("Number can have at most 30 characters.")
	}
	inv.PatientID = patientID
	inv.AppointmentID = appointmentID
	inv.InsuranceCompanyID = insuranceID
	inv.Amount = amount
	inv.Description = domain.Optional(f.Description)
	if issue != nil {
		inv.IssueDate = *issue
	} else if inv.IssueDate.IsZero() {
		inv.IssueDate = s.today()
	}
	if number != "" {
		inv.Number = number
	}
	return nil
}

// CreateInvoice issues a pending invoice. A blank number is generated from
// the issue date.
func (s *Service) CreateInvoice(ctx context.Context, f InvoiceForm) (*Invoice, error) {
	inv := &Invoice{Status: StatusPending}
	if err := s.fromForm(inv, f); err != nil {
		return nil, err
	}
	generated := inv.Number == ""
	for attempt := 1; ; attempt++ {
		if generated {
			inv.Number = s.generateNumber(inv.IssueDate)
		}
		err := s.invoices.Create(ctx, inv)
		if err == nil {
			return inv, nil
		}
		col, dup := db.DuplicateColumn(err)
		if generated && dup && col == "number" && attempt < numberAttempts {
			continue
		}
		return nil, domain.MissingReference(err, invoiceReferences)
	}
}

// GetInvoice returns the invoice with its payments; Paid and Balance()
// reflect them.
func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceDetail, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return &InvoiceDetail{Invoice: inv, Payments: payments}, nil
}

// UpdateInvoice edits a pending invoice. Lowering the amount to what was
// already paid settles it.
func (s *Service) UpdateInvoice(ctx context.Context, id uuid.UUID, f InvoiceForm) (*Invoice, error) {
	var inv *Invoice
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.invoices.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusPending {
			return ErrNotPending
		}
		inv = current
		if err := s.fromForm(inv, f); err != nil {
			return err
		}
		paid, err := s.payments.SumByInvoice(ctx, id)
		if err != nil {
			return err
		}
		inv.Paid = paid
		if paid.GreaterThanOrEqual(inv.Amount) {
			inv.Status = StatusPaid
		}
		return s.invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, domain.MissingReference(err, invoiceReferences)
	}
	return inv, nil
}

func (s *Service) CancelInvoice(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch inv.Status {
		case StatusPaid:
			return ErrCancelPaid
		case StatusCancelled:
			return ErrAlreadyCancelled
		}
		return s.invoices.SetStatus(ctx, id, StatusCancelled)
	})
}

// DeleteInvoice removes the invoice and its payments.
func (s *Service) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	return s.invoices.Delete(ctx, id)
}

func (s *Service) ListInvoices(ctx context.Context, f Filter, limit, offset int) ([]*Invoice, int, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, 0, domain.Invalid("The end date must not be before the start date.")
	}
	if f.Status != "" && StatusLabel(f.Status) == f.Status {
		return nil, 0, domain.Invalid("Status is not valid.")
	}
	return s.invoices.List(ctx, f, limit, offset)
}

func (s *Service) paymentFromForm(invoiceID uuid.UUID, f PaymentForm) (*Payment, error) {
	amount, err := domain.ParseAmount(f.Amount, "Amount")
	if err != nil {
		return nil, err
	}
	method := strings.TrimSpace(f.Method)
	if method == "" {
		method = "cash"
	}
	if MethodLabel(method) == method {
		return nil, domain.Invalid("Payment method is not valid.")
	}
	paidAt, err := domain.ParseOptionalDate(f.PaidAt, "Payment date")
	if err != nil {
		return nil, err
	}
	p := &Payment{
		InvoiceID: invoiceID,
		Amount:    amount,
		Method:    method,
		PaidAt:    s.today(),
		Reference: domain.Optional(f.Reference),
		Notes:     domain.Optional(f.Notes),
	}
	if paidAt != nil {
		p.PaidAt = *paidAt
	}
	return p, nil
}

// AddPayment records a payment and marks the invoice paid once its payments
// cover the amount. The invoice row stays locked for the whole check, so
// concurrent payments are applied one after the other.
func (s *Service) AddPayment(ctx context.Context, invoiceID uuid.UUID, f PaymentForm) (*Payment, error) {
	p, err := s.paymentFromForm(invoiceID, f)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		switch inv.Status {
		case StatusCancelled:
			return ErrInvoiceCancelled
		case StatusPaid:
			return ErrInvoicePaid
		}
		if err := s.payments.Create(ctx, p); err != nil {
			return err
		}
		paid, err := s.payments.SumByInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if paid.GreaterThanOrEqual(inv.Amount) {
			return s.invoices.SetStatus(ctx, invoiceID, StatusPaid)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePayment removes a payment; a paid invoice goes back to pending when
// the remaining payments no longer cover it.
func (s *Service) DeletePayment(ctx context.Context, invoiceID, paymentID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == StatusCancelled {
			return domain.Invalid("Payments of a cancelled invoice cannot be changed.")
		}
		if err := s.payments.Delete(ctx, invoiceID, paymentID); err != nil {
			return err
		}
		paid, err := s.payments.SumByInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == StatusPaid && paid.LessThan(inv.Amount) {
			return s.invoices.SetStatus(ctx, invoiceID, StatusPending)
		}
		return nil
	})
}

func (s *Service) document(d *InvoiceDetail) pdf.Invoice {
	doc := pdf.Invoice{
		ClinicName:    s.clinic.Name,
		ClinicAddress: s.clinic.Address,
		Number:        d.Number,
		IssueDate:     d.IssueDate.Format("02/01/2006"),
		Status:        StatusLabel(d.Status),
		PatientName:   d.PatientName,
		PatientDoc:    d.PatientDocument,
		Insurance:     domain.Deref(d.InsuranceName),
		Description:   domain.Deref(d.Description),
		Amount:        s.clinic.Money(d.Amount),
		Paid:          s.clinic.Money(d.Paid),
		Balance:       s.clinic.Money(d.Balance()),
	}
	for _, p := range d.Payments {
		doc.Payments = append(doc.Payments, pdf.PaymentLine{
			Date:      p.PaidAt.Format("02/01/2006"),
			Method:    MethodLabel(p.Method),
			Reference: domain.Deref(p.Reference),
			Amount:    s.clinic.Money(p.Amount),
		})
	}
	return doc
}

// InvoicePDF renders the invoice and returns the document with its file name.
func (s *Service) InvoicePDF(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	d, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, "", err
	}
	data, err := pdf.BuildInvoicePDF(s.document(d))
	if err != nil {
		return nil, "", err
	}
	return data, d.Number + ".pdf", nil
}

// EmailInvoice sends the invoice PDF to to, or to the patient's address when
// to is blank, and returns the recipient.
func (s *Service) EmailInvoice(ctx context.Context, id uuid.UUID, f EmailForm) (string, error) {
	if !s.mailer.Enabled() {
		return "", ErrMailDisabled
	}
	d, err := s.GetInvoice(ctx, id)
	if err != nil {
		return "", err
	}
	to, err := domain.NormalizeEmail(f.To, "E-mail")
	if err != nil {
		return "", err
	}
	if to == "" {
		to = domain.Deref(d.PatientEmail)
	}
	if to == "" {
		return "", ErrNoRecipient
	}
	data, err := pdf.BuildInvoicePDF(s.document(d))
	if err != nil {
		return "", err
	}
	msg := mail.Message{
		To:      []string{to},
		Subject: fmt.Sprintf("%s: invoice %s", s.clinic.Name, d.Number),
		TextBody: fmt.Sprintf("Dear %s,\n\nAttached is invoice %s for %s, issued on %s.\nOutstanding balance: %s.\n\n%s\n",
			d.PatientName, d.Number, s.clinic.Money(d.Amount), d.IssueDate.Format("02/01/2006"),
			s.clinic.Money(d.Balance()), s.clinic.Name),
		Attachments: []mail.Attachment{{Name: d.Number + ".pdf", ContentType: "application/pdf", Data: data}},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		var invalid *mail.InvalidMessageError
		if errors.As(err, &invalid) {
			return "", domain.Invalid("The invoice could not be sent: %s.", invalid.Reason)
		}
		return "", fmt.Errorf("email invoice %s: %w", d.Number, err)
	}
	return to, nil
}
