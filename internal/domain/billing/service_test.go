package billing

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/consultorio/consultorio/internal/domain"
	"github.com/consultorio/consultorio/internal/platform/db"
	"github.com/consultorio/consultorio/internal/platform/mail"
)

// -- Mocks --

// store backs both repositories so Paid follows the payments.
type store struct {
	invoices map[uuid.UUID]*Invoice
	payments map[uuid.UUID]*Payment
	patients map[uuid.UUID]string
	emails   map[uuid.UUID]string
	locked   []uuid.UUID
	// taken numbers make Create report a duplicate.
	taken map[string]bool
}

func newStore() *store {
	return &store{
		invoices: make(map[uuid.UUID]*Invoice),
		payments: make(map[uuid.UUID]*Payment),
		patients: make(map[uuid.UUID]string),
		emails:   make(map[uuid.UUID]string),
		taken:    make(map[string]bool),
	}
}

func (s *store) paid(id uuid.UUID) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range s.payments {
		if p.InvoiceID == id {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}

type invoiceRepo struct{ *store }

func (r invoiceRepo) Create(_ context.Context, inv *Invoice) error {
	if _, ok := r.patients[inv.PatientID]; !ok {
		return &db.ConstraintError{Kind: db.ErrForeignKey, Table: "invoice", Constraint: "invoice_patient_id_fkey"}
	}
	if r.taken[inv.Number] {
		return &db.ConstraintError{Kind: db.ErrDuplicate, Table: "invoice", Column: "number", Constraint: "invoice_number_key"}
	}
	r.taken[inv.Number] = true
	inv.ID = uuid.New()
	stored := *inv
	r.invoices[inv.ID] = &stored
	return nil
}

func (r invoiceRepo) GetByID(_ context.Context, id uuid.UUID) (*Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *inv
	cp.Paid = r.paid(id)
	cp.PatientName = r.patients[inv.PatientID]
	if email, ok := r.emails[inv.PatientID]; ok {
		cp.PatientEmail = &email
	}
	return &cp, nil
}

func (r invoiceRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	r.locked = append(r.locked, id)
	return r.GetByID(ctx, id)
}

func (r invoiceRepo) Update(_ context.Context, inv *Invoice) error {
	if _, ok := r.invoices[inv.ID]; !ok {
		return db.ErrNotFound
	}
	stored := *inv
	r.invoices[inv.ID] = &stored
	return nil
}

func (r invoiceRepo) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	inv, ok := r.invoices[id]
	if !ok {
		return db.ErrNotFound
	}
	inv.Status = status
	return nil
}

func (r invoiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.invoices[id]; !ok {
		return db.ErrNotFound
	}
	delete(r.invoices, id)
	for pid, p := range r.payments {
		if p.InvoiceID == id {
			delete(r.payments, pid)
		}
	}
	return nil
}

func (r invoiceRepo) List(ctx context.Context, f Filter, limit, offset int) ([]*Invoice, int, error) {
	var result []*Invoice
	for id, inv := range r.invoices {
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		if f.PatientID != nil && inv.PatientID != *f.PatientID {
			continue
		}
		if f.From != nil && inv.IssueDate.Before(*f.From) || f.To != nil && inv.IssueDate.After(*f.To) {
			continue
		}
		cp, _ := r.GetByID(ctx, id)
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number > result[j].Number })
	total := len(result)
	if offset < len(result) {
		result = result[offset:]
	} else {
		result = nil
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, total, nil
}

type paymentRepo struct{ *store }

func (r paymentRepo) Create(_ context.Context, p *Payment) error {
	if _, ok := r.invoices[p.InvoiceID]; !ok {
		return &db.ConstraintError{Kind: db.ErrForeignKey, Table: "payment"}
	}
	p.ID = uuid.New()
	stored := *p
	r.payments[p.ID] = &stored
	return nil
}

func (r paymentRepo) Delete(_ context.Context, invoiceID, paymentID uuid.UUID) error {
	p, ok := r.payments[paymentID]
	if !ok || p.InvoiceID != invoiceID {
		return db.ErrNotFound
	}
	delete(r.payments, paymentID)
	return nil
}

func (r paymentRepo) ListByInvoice(_ context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	var result []*Payment
	for _, p := range r.payments {
		if p.InvoiceID == invoiceID {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PaidAt.Before(result[j].PaidAt) })
	return result, nil
}

func (r paymentRepo) SumByInvoice(_ context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	return r.paid(invoiceID), nil
}

// inlineTx runs fn directly; the mock store has nothing to roll back.
type inlineTx struct{ calls int }

func (t *inlineTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type fakeMailer struct {
	enabled bool
	sent    []mail.Message
	err     error
}

func (m *fakeMailer) Enabled() bool { return m.enabled }

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fixture struct {
	svc     *Service
	store   *store
	tx      *inlineTx
	mailer  *fakeMailer
	patient uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		store:   newStore(),
		tx:      &inlineTx{},
		mailer:  &fakeMailer{enabled: true},
		patient: uuid.New(),
	}
	f.store.patients[f.patient] = "Pérez, Ana"
	f.svc = NewService(invoiceRepo{f.store}, paymentRepo{f.store}, f.tx, f.mailer,
		Clinic{Name: "Consultorio Central", Address: "Av. Siempreviva 742", CurrencySymbol: "$"})
	f.svc.now = func() time.Time { return time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) invoice(t *testing.T, amount string) *Invoice {
	t.Helper()
	inv, err := f.svc.CreateInvoice(context.Background(), InvoiceForm{PatientID: f.patient.String(), Amount: amount})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	return inv
}

func (f *fixture) status(id uuid.UUID) string { return f.store.invoices[id].Status }

// -- Tests --

func TestCreateInvoice_GeneratesNumber(t *testing.T) {
	f := newFixture()
	inv := f.invoice(t, "1500")

	if !regexp.MustCompile(`^F-20260309-[0-9A-F]{6}$`).MatchString(inv.Number) {
		t.Errorf("unexpected number %q", inv.Number)
	}
	if inv.Status != StatusPending {
		t.Errorf("expected pending, got %q", inv.Status)
	}
	if !inv.IssueDate.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected today's issue date, got %v", inv.IssueDate)
	}
	if !inv.Amount.Equal(decimal.RequireFromString("1500")) {
		t.Errorf("unexpected amount %s", inv.Amount)
	}
}

func TestCreateInvoice_NumberFromIssueDate(t *testing.T) {
	f := newFixture()
	inv, err := f.svc.CreateInvoice(context.Background(), InvoiceForm{
		PatientID: f.patient.String(), Amount: "10", IssueDate: "2026-01-31",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(inv.Number, "F-20260131-") {
		t.Errorf("expected the issue date in the number, got %q", inv.Number)
	}
}

func TestCreateInvoice_RetriesGeneratedNumber(t *testing.T) {
	f := newFixture()
	suffixes := []string{"AAAAAA", "BBBBBB"}
	f.svc.suffix = func() string {
		s := suffixes[0]
		suffixes = suffixes[1:]
		return s
	}
	f.store.taken["F-20260309-AAAAAA"] = true

	inv := f.invoice(t, "10")
	if inv.Number != "F-20260309-BBBBBB" {
		t.Errorf("expected the second generated number, got %q", inv.Number)
	}
}

func TestCreateInvoice_ExplicitNumberDuplicate(t *testing.T) {
	f := newFixture()
	f.store.taken["A-1"] = true
	_, err := f.svc.CreateInvoice(context.Background(), InvoiceForm{PatientID: f.patient.String(), Amount: "10", Number: "a-1"})
	if col, ok := db.DuplicateColumn(err); !ok || col != "number" {
		t.Fatalf("expected a duplicate number, got %v", err)
	}
}

func TestCreateInvoice_DeletedPatient(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateInvoice(context.Background(), InvoiceForm{PatientID: uuid.NewString(), Amount: "10"})
	ve, ok := domain.AsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Message != "The selected patient, appointment or insurance company no longer exists." {
		t.Errorf("unexpected message %q", ve.Message)
	}
}

func TestCreateInvoice_Validation(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name string
		form InvoiceForm
		want string
	}{
		{"no patient", InvoiceForm{Amount: "10"}, "Patient is required."},
		{"no amount", InvoiceForm{PatientID: f.patient.String()}, "Amount is required."},
		{"zero amount", InvoiceForm{PatientID: f.patient.String(), Amount: "0"}, "Amount must be greater than zero."},
		{"three decimals", InvoiceForm{PatientID: f.patient.String(), Amount: "1.005"}, "Amount can have at most two decimals."},
		{"bad date", InvoiceForm{PatientID: f.patient.String(), Amount: "10", IssueDate: "09/03/2026"}, "Issue date must be a date (YYYY-MM-DD)."},
		{"long number", InvoiceForm{PatientID: f.patient.String(), Amount: "10", Number: strings.Repeat("9", 31)}, "Number can have at most 30 characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateInvoice(context.Background(), tt.form)
			ve, ok := domain.AsValidation(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ve.Message != tt.want {
				t.Errorf("got %q, want %q", ve.Message, tt.want)
			}
		})
	}
}

func TestAddPayment_PartialStaysPending(t *testing.T) {
	f := newFixture()
	inv := f.invoice(t, "1000")

	p, err := f.svc.AddPayment(context.Background(), inv.ID, PaymentForm{Amount: "400", Method: "card"})
	if err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if p.Method != "card" || !p.Amount.Equal(decimal.NewFromInt(400)) {
		t.Errorf("unexpected payment %+v", p)
	}
	if got := f.status(inv.ID); got != StatusPending {
		t.Errorf("expected pending, got %q", got)
	}
	if f.tx.calls == 0 || len(f.store.locked) == 0 || f.store.locked[len(f.store.locked)-1] != inv.ID {
		t.Error("expected the payment to run in a transaction holding the invoice lock")
	}
}

func TestAddPayment_SettlesInvoice(t *testing.T) {
	f := newFixture()
	inv := f.invoice(t, "1000.50")
	ctx := context.Background()

	if _, err := f.svc.AddPayment(ctx, inv.ID, PaymentForm{Amount: "600"}); err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if _, err := f.svc.AddPayment(ctx, inv.ID, PaymentForm{Amount: "400.50"}); err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if got := f.status(inv.ID); got != StatusPaid {
		t.Fatalf("expected paid, got %q", got)
	}

	d, err := f.svc.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if len(d.Payments) != 2 || !d.Balance().IsZero() {
		t.Errorf("expected two payments and no balance, got %d and %s", len(d.Payments), d.Balance())
	}
}

func TestAddPayment_Overpayment(t *testing.T) {
	f := newFixture()
	inv := f.invoice(t, "100")
	if _, err := f.svc.AddPayment(context.Background(), inv.ID, PaymentForm{Amount: "150"}); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if got := f.status(inv.ID); got != StatusPaid {
		t.Errorf("expected paid, got %q", got)
	}
}

func TestAddPayment_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   error
	}{
		{"cancelled", StatusCancelled, ErrInvoiceCancelled},
		{"paid", StatusPaid, ErrInvoicePaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			inv := f.invoice(t, "100")
			f.store.invoices[inv.ID].Status = tt.status

			_, err := f.svc.AddPayment(context.Background(), inv.ID, PaymentForm{Amount: "10"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if len(f.store.payments) != 0 {
				t.Error("expected no payment to be stored")
			}
		})
	}
}

func TestAddPayment_Validation(t *testing.T) {
	f := newFixture()
	inv := f.invoice(t, "100")
	tests := []struct {
		name string
		form PaymentForm
		want string
	}{
		{"no amount", PaymentForm{}, "Amount is required."},
		{"negative", PaymentForm{Amount: "-5"}, "Amount must be greater than zero."},
		{"unknown method", PaymentForm{Amount: "5", Method: "bitcoin"}, "Payment method is not valid."},
		{"bad date", PaymentForm{Amount: "5", PaidAt: "ayer"}, "Payment date must be a date (YYYY-MM-DD)."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddPayment(context.Background(), inv.ID, tt.form)
			ve, ok := domain.AsValidation(err)
			if !ok || ve.Message != tt.want {
				t.Fatalf("got %v, want %q", err, tt.want)
			}
		})
	}
}

func TestAddPayment_UnknownInvoice(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.AddPayment(context.Background(), uuid.New(), PaymentForm{Amount: "5"}); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeletePayment_ReopensInvoice(t *testing.T) {
	f := newFixture()
	inv := f.invoice(t, "100")
	ctx := context.Background()
	first, _ := f.svc.AddPayment(ctx, inv.ID, PaymentForm{Amount: "60"})
	if _, err := f.svc.AddPayment(ctx, inv.ID, PaymentForm{Amount: "40"}); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if f.status(inv.ID) != StatusPaid {
		t.Fatal("expected the invoice to be paid")
	}

	if err := f.svc.DeletePayment(ctx, inv.ID, first.ID); err != nil {
		t.Fatalf("DeletePayment: %v", err)
	}
	if got := f.status(inv.ID); got != StatusPending {
		t.Errorf("expected pending after removing a payment, got %q", got)
	}
}

func TestDeletePayment_WrongInvoice(t *testing.T) {
	f := newFixture()
	a := f.invoice(t, "100")
	b := f.invoice(t, "100")
	p, _ := f.svc.AddPayment(context.Background(), a.ID, PaymentForm{Amount: "10"})

	if err := f.svc.DeletePayment(context.Background(), b.ID, p.ID); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateInvoice(t *testing.T) {
	f := newFixture()
	inv := f.invoice(t, "100")
	ctx := context.Background()
	if _, err := f.svc.AddPayment(ctx, inv.ID, PaymentForm{Amount: "80"}); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}

	updated, err := f.svc.UpdateInvoice(ctx, inv.ID, InvoiceForm{
		PatientID: f.patient.String(), Amount: "80", Description: " Consulta ", Number: inv.Number,
	})
	if err != nil {
		t.Fatalf("UpdateInvoice: %v", err)
	}
	if updated.Number != inv.Number || domain.Deref(updated.Description) != "Consulta" {
		t.Errorf("unexpected invoice %+v", updated)
	}
	if f.status(inv.ID) != StatusPaid {
		t.Error("expected lowering the amount to the paid sum to settle the invoice")
	}

	_, err = f.svc.UpdateInvoice(ctx, inv.ID, InvoiceForm{PatientID: f.patient.String(), Amount: "90"})
	if !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending for a paid invoice, got %v", err)
	}
}

func TestCancelInvoice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv := f.invoice(t, "100")
	if err := f.svc.CancelInvoice(ctx, inv.ID); err != nil {
		t.Fatalf("CancelInvoice: %v", err)
	}
	if f.status(inv.ID) != StatusCancelled {
		t.Fatal("expected cancelled")
	}
	if err := f.svc.CancelInvoice(ctx, inv.ID); !errors.Is(err, ErrAlreadyCancelled) {
		t.Errorf("expected ErrAlreadyCancelled, got %v", err)
	}

	paid := f.invoice(t, "10")
	if _, err := f.svc.AddPayment(ctx, paid.ID, PaymentForm{Amount: "10"}); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if err := f.svc.CancelInvoice(ctx, paid.ID); !errors.Is(err, ErrCancelPaid) {
		t.Errorf("expected ErrCancelPaid, got %v", err)
	}
}

func TestDeleteInvoice_RemovesPayments(t *testing.T) {
	f := newFixture()
	inv := f.invoice(t, "100")
	if _, err := f.svc.AddPayment(context.Background(), inv.ID, PaymentForm{Amount: "10"}); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if err := f.svc.DeleteInvoice(context.Background(), inv.ID); err != nil {
		t.Fatalf("DeleteInvoice: %v", err)
	}
	if len(f.store.invoices) != 0 || len(f.store.payments) != 0 {
		t.Error("expected the invoice and its payments to be gone")
	}
}

func TestListInvoices(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.invoice(t, "100")
	f.invoice(t, "200")
	if err := f.svc.CancelInvoice(ctx, a.ID); err != nil {
		t.Fatalf("CancelInvoice: %v", err)
	}

	got, total, err := f.svc.ListInvoices(ctx, Filter{Status: StatusPending}, 20, 0)
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].ID == a.ID {
		t.Errorf("expected only the pending invoice, got %d", total)
	}

	if _, _, err := f.svc.ListInvoices(ctx, Filter{Status: "overdue"}, 20, 0); err == nil {
		t.Error("expected an unknown status to be rejected")
	}
	from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, _, err := f.svc.ListInvoices(ctx, Filter{From: &from, To: &to}, 20, 0); err == nil {
		t.Error("expected an inverted range to be rejected")
	}
}

func TestInvoicePDF(t *testing.T) {
	f := newFixture()
	inv := f.invoice(t, "100")
	if _, err := f.svc.AddPayment(context.Background(), inv.ID, PaymentForm{Amount: "25", Reference: "op 991"}); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	data, name, err := f.svc.InvoicePDF(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("InvoicePDF: %v", err)
	}
	if name != inv.Number+".pdf" || !strings.HasPrefix(string(data), "%PDF-") {
		t.Errorf("unexpected document %q (%d bytes)", name, len(data))
	}
}

func TestEmailInvoice(t *testing.T) {
	f := newFixture()
	f.store.emails[f.patient] = "ana@example.com"
	inv := f.invoice(t, "100")

	to, err := f.svc.EmailInvoice(context.Background(), inv.ID, EmailForm{})
	if err != nil {
		t.Fatalf("EmailInvoice: %v", err)
	}
	if to != "ana@example.com" || len(f.mailer.sent) != 1 {
		t.Fatalf("expected one message to the patient, got %q and %d", to, len(f.mailer.sent))
	}
	msg := f.mailer.sent[0]
	if len(msg.Attachments) != 1 || msg.Attachments[0].Name != inv.Number+".pdf" || msg.Attachments[0].ContentType != "application/pdf" {
		t.Errorf("expected the invoice PDF attached, got %+v", msg.Attachments)
	}
	if !strings.Contains(msg.Subject, inv.Number) || !strings.Contains(msg.TextBody, "$ 100.00") {
		t.Errorf("unexpected message %q / %q", msg.Subject, msg.TextBody)
	}

	to, err = f.svc.EmailInvoice(context.Background(), inv.ID, EmailForm{To: "Admin@Example.com"})
	if err != nil || to != "admin@example.com" {
		t.Fatalf("expected the explicit address, got %q, %v", to, err)
	}
}

func TestEmailInvoice_Failures(t *testing.T) {
	f := newFixture()
	inv := f.invoice(t, "100")
	ctx := context.Background()

	if _, err := f.svc.EmailInvoice(ctx, inv.ID, EmailForm{}); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("expected ErrNoRecipient, got %v", err)
	}
	if _, err := f.svc.EmailInvoice(ctx, inv.ID, EmailForm{To: "not an address"}); err == nil {
		t.Error("expected an invalid address to be rejected")
	}

	f.mailer.err = &mail.SendError{Err: errors.New("550 mailbox unavailable")}
	_, err := f.svc.EmailInvoice(ctx, inv.ID, EmailForm{To: "ana@example.com"})
	var sendErr *mail.SendError
	if !errors.As(err, &sendErr) {
		t.Errorf("expected the send error to be wrapped, got %v", err)
	}

	f.mailer.enabled = false
	if _, err := f.svc.EmailInvoice(ctx, inv.ID, EmailForm{To: "ana@example.com"}); !errors.Is(err, ErrMailDisabled) {
		t.Errorf("expected ErrMailDisabled, got %v", err)
	}
}

func TestClinicMoney(t *testing.T) {
	if got := (Clinic{CurrencySymbol: "$"}).Money(decimal.RequireFromString("1234.5")); got != "$ 1234.50" {
		t.Errorf("got %q", got)
	}
	if got := (Clinic{}).Money(decimal.NewFromInt(3)); got != "3.00" {
		t.Errorf("got %q", got)
	}
}
