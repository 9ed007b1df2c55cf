package billing

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultorio/consultorio/internal/domain"
	"github.com/consultorio/consultorio/internal/platform/auth"
	"github.com/consultorio/consultorio/internal/platform/web"
	"github.com/consultorio/consultorio/pkg/pagination"
)

// Lookups supplies the insurance companies and patient labels shown on
// invoice forms.
type Lookups interface {
	InsuranceCompanyOptions(ctx context.Context) ([][2]string, error)
	PatientLabel(ctx context.Context, id uuid.UUID) (string, error)
}

type Handler struct {
	svc     *Service
	lookups Lookups
}

func NewHandler(svc *Service, lookups Lookups) *Handler {
	return &Handler{svc: svc, lookups: lookups}
}

func (h *Handler) RegisterRoutes(app *echo.Group) {
	app.GET("/invoices", h.List)
	app.GET("/invoices/new", h.New)
	app.POST("/invoices", h.Create)
	app.GET("/invoices/:id", h.Show)
	app.GET("/invoices/:id/edit", h.Edit)
	app.POST("/invoices/:id", h.Update)
	app.POST("/invoices/:id/delete", h.Delete, auth.RequireTokenType(auth.TokenAdmin))
	app.POST("/invoices/:id/cancel", h.Cancel)
	app.POST("/invoices/:id/payments", h.AddPayment)
	app.POST("/invoices/:id/payments/:paymentID/delete", h.DeletePayment)
	app.POST("/invoices/:id/email", h.Email)
	app.GET("/invoices/:id/pdf", h.PDF)
}

func (h *Handler) formPage(ctx context.Context, title, action, cancel string, f InvoiceForm) (*web.Page, error) {
	insurers, err := h.lookups.InsuranceCompanyOptions(ctx)
	if err != nil {
		return nil, err
	}
	display := ""
	if pid, perr := uuid.Parse(f.PatientID); perr == nil {
		if label, lerr := h.lookups.PatientLabel(ctx, pid); lerr == nil {
			display = label
		}
	}
	return &web.Page{
		Title:   title,
		Section: "invoices",
		Form: &web.Form{
			Action: action,
			Submit: "Save",
			Cancel: cancel,
			Fields: []web.Field{
				{Name: "patient_id", Label: "Patient", Type: "patient", Value: f.PatientID, Display: display, Required: true},
				{Name: "number", Label: "Number", Type: "text", Value: f.Number, Help: "Leave blank to generate one."},
				{Name: "issue_date", Label: "Issue date", Type: "date", Value: f.IssueDate},
				{Name: "amount", Label: "Amount", Type: "text", Value: f.Amount, Placeholder: "0.00", Required: true},
				{Name: "insurance_company_id", Label: "Insurance company", Type: "select", Options: web.Options(insurers, f.InsuranceCompanyID, "None")},
				{Name: "description", Label: "Description", Type: "textarea", Value: f.Description},
				{Name: "appointment_id", Type: "hidden", Value: f.AppointmentID},
			},
		},
	}, nil
}

func toForm(inv *Invoice) InvoiceForm {
	return InvoiceForm{
		PatientID:          inv.PatientID.String(),
		AppointmentID:      web.OptID(inv.AppointmentID),
		InsuranceCompanyID: web.OptID(inv.InsuranceCompanyID),
		Number:             inv.Number,
		IssueDate:          inv.IssueDate.Format(domain.DateLayout),
		Description:        web.Str(inv.Description),
		Amount:             inv.Amount.StringFixed(2),
	}
}

func (h *Handler) renderForm(c echo.Context, cause error, title, action, cancel string, f InvoiceForm) error {
	status, msg, ok := web.FormError(cause)
	if !ok {
		return cause
	}
	page, err := h.formPage(c.Request().Context(), title, action, cancel, f)
	if err != nil {
		return err
	}
	page.Error = msg
	return web.Render(c, status, page)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)
	f := Filter{
		Status:    c.QueryParam("status"),
		PatientID: web.QueryUUID(c, "patient_id"),
		From:      web.QueryDate(c, "from"),
		To:        web.QueryDate(c, "to"),
	}
	invoices, total, err := h.svc.ListInvoices(ctx, f, pg.Limit, pg.Offset)
	if err != nil {
		if ve, ok := domain.AsValidation(err); ok {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Message)
		}
		return err
	}

	clinic := h.svc.Clinic()
	links := pg.PageLinks(c.Request().URL, total)
	table := &web.Table{
		Columns: []string{"Number", "Date", "Patient", "Amount", "Balance", "Status"},
		Pager:   &links,
		Empty:   "No invoices match.",
	}
	for _, inv := range invoices {
		table.Rows = append(table.Rows, web.Row{
			Cells: []string{inv.Number, web.Date(inv.IssueDate), inv.PatientName,
				clinic.Money(inv.Amount), clinic.Money(inv.Balance()), StatusLabel(inv.Status)},
			Link:  "/invoices/" + inv.ID.String(),
			Muted: inv.Status == StatusCancelled,
		})
	}
	newURL := "/invoices/new"
	if f.PatientID != nil {
		newURL += "?patient_id=" + f.PatientID.String()
	}
	return web.OK(c, &web.Page{
		Title:   "Invoices",
		Section: "invoices",
		Actions: []web.Action{web.Link("New invoice", newURL)},
		Filter: &web.Form{
			Action: "/invoices",
			Method: http.MethodGet,
			Submit: "Filter",
			Inline: true,
			Fields: []web.Field{
				{Name: "from", Label: "From", Type: "date", Value: web.ISODate(f.From)},
				{Name: "to", Label: "To", Type: "date", Value: web.ISODate(f.To)},
				{Name: "status", Label: "Status", Type: "select", Options: web.Options(InvoiceStatuses, f.Status, "All")},
				{Name: "patient_id", Type: "hidden", Value: web.OptID(f.PatientID)},
			},
		},
		Tables: []*web.Table{table},
	})
}

func (h *Handler) New(c echo.Context) error {
	f := InvoiceForm{
		PatientID:     c.QueryParam("patient_id"),
		AppointmentID: c.QueryParam("appointment_id"),
	}
	page, err := h.formPage(c.Request().Context(), "New invoice", "/invoices", "/invoices", f)
	if err != nil {
		return err
	}
	return web.OK(c, page)
}

func (h *Handler) Create(c echo.Context) error {
	var f InvoiceForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	inv, err := h.svc.CreateInvoice(c.Request().Context(), f)
	if err != nil {
		return h.renderForm(c, err, "New invoice", "/invoices", "/invoices", f)
	}
	return web.Redirect(c, "/invoices/"+inv.ID.String(), "Invoice "+inv.Number+" created.")
}

// showPage renders the invoice with its payments. payForm carries back a
// rejected payment.
func (h *Handler) showPage(c echo.Context, d *InvoiceDetail, payForm PaymentForm) *web.Page {
	clinic := h.svc.Clinic()
	base := "/invoices/" + d.ID.String()

	payments := &web.Table{
		Title:   "Payments",
		Columns: []string{"Date", "Method", "Reference", "Amount"},
		Empty:   "No payments yet.",
	}
	for _, p := range d.Payments {
		row := web.Row{Cells: []string{web.Date(p.PaidAt), MethodLabel(p.Method), web.Str(p.Reference), clinic.Money(p.Amount)}}
		if d.Status != StatusCancelled {
			row.Actions = []web.Action{{Label: "Remove", URL: base + "/payments/" + p.ID.String() + "/delete",
				Method: http.MethodPost, Danger: true, Confirm: "Remove this payment?"}}
		}
		payments.Rows = append(payments.Rows, row)
	}
	if d.Status == StatusPending {
		if payForm.Amount == "" {
			payForm.Amount = d.Balance().StringFixed(2)
		}
		payments.Form = &web.Form{
			Action: base + "/payments",
			Submit: "Add payment",
			Inline: true,
			Fields: []web.Field{
				{Name: "amount", Label: "Amount", Type: "text", Value: payForm.Amount, Required: true},
				{Name: "method", Label: "Method", Type: "select", Options: web.Options(PaymentMethods, payForm.Method, "")},
				{Name: "paid_at", Label: "Date", Type: "date", Value: payForm.PaidAt},
				{Name: "reference", Label: "Reference", Type: "text", Value: payForm.Reference},
			},
		}
	}

	actions := []web.Action{web.Link("PDF", base+"/pdf")}
	if d.Status == StatusPending {
		actions = append(actions, web.Link("Edit", base+"/edit"),
			web.Action{Label: "Cancel invoice", URL: base + "/cancel", Method: http.MethodPost, Danger: true,
				Confirm: "Cancel this invoice?"})
	}
	actions = append(actions, web.Link("Back", "/invoices"))
	if auth.IsAdmin(c) {
		actions = append(actions, web.Action{
			Label: "Delete", URL: base + "/delete", Method: http.MethodPost, Danger: true,
			Confirm: "Delete this invoice and its payments? This cannot be undone.",
		})
	}

	page := &web.Page{
		Title:   "Invoice " + d.Number,
		Section: "invoices",
		Actions: []web.Action{web.Link("Patient", "/patients/"+d.PatientID.String())},
		Detail: &web.Detail{
			Fields: []web.KV{
				{Label: "Patient", Value: d.PatientName},
				{Label: "Document", Value: d.PatientDocument},
				{Label: "Issue date", Value: web.Date(d.IssueDate)},
				{Label: "Status", Value: StatusLabel(d.Status)},
				{Label: "Insurance company", Value: web.Str(d.InsuranceName)},
				{Label: "Description", Value: web.Str(d.Description)},
				{Label: "Amount", Value: clinic.Money(d.Amount)},
				{Label: "Paid", Value: clinic.Money(d.Paid)},
				{Label: "Balance", Value: clinic.Money(d.Balance())},
			},
			Actions: actions,
		},
		Tables: []*web.Table{payments},
	}
	if d.AppointmentID != nil {
		page.Actions = append(page.Actions, web.Link("Appointment", "/appointments/"+d.AppointmentID.String()))
	}
	if h.svc.MailEnabled() && d.Status != StatusCancelled {
		page.Form = &web.Form{
			Title:  "Send by e-mail",
			Action: base + "/email",
			Submit: "Send",
			Inline: true,
			Fields: []web.Field{
				{Name: "to", Label: "To", Type: "email", Value: web.Str(d.PatientEmail), Placeholder: "patient e-mail"},
			},
		}
	}
	return page
}

func (h *Handler) Show(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return web.OK(c, h.showPage(c, d, PaymentForm{}))
}

func (h *Handler) Edit(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return err
	}
	base := "/invoices/" + d.ID.String()
	if d.Status != StatusPending {
		return web.RedirectError(c, base, ErrNotPending.Message)
	}
	page, err := h.formPage(c.Request().Context(), "Edit invoice", base, base, toForm(d.Invoice))
	if err != nil {
		return err
	}
	return web.OK(c, page)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	var f InvoiceForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	base := "/invoices/" + id.String()
	if _, err := h.svc.UpdateInvoice(c.Request().Context(), id, f); err != nil {
		if errors.Is(err, ErrNotPending) {
			return web.RedirectError(c, base, ErrNotPending.Message)
		}
		return h.renderForm(c, err, "Edit invoice", base, base, f)
	}
	return web.Redirect(c, base, "Invoice updated.")
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteInvoice(c.Request().Context(), id); err != nil {
		return err
	}
	zerolog.Ctx(c.Request().Context()).Info().Str("invoice_id", id.String()).Msg("invoice deleted")
	return web.Redirect(c, "/invoices", "Invoice deleted.")
}

// actionFailure sends a rejected invoice action back to the invoice.
func actionFailure(c echo.Context, err error, id uuid.UUID) error {
	if _, msg, ok := web.FormError(err); ok {
		return web.RedirectError(c, "/invoices/"+id.String(), msg)
	}
	return err
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.CancelInvoice(c.Request().Context(), id); err != nil {
		return actionFailure(c, err, id)
	}
	return web.Redirect(c, "/invoices/"+id.String(), "Invoice cancelled.")
}

func (h *Handler) AddPayment(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	var f PaymentForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	ctx := c.Request().Context()
	p, err := h.svc.AddPayment(ctx, id, f)
	if err != nil {
		if errors.Is(err, ErrInvoiceCancelled) || errors.Is(err, ErrInvoicePaid) {
			return actionFailure(c, err, id)
		}
		status, msg, ok := web.FormError(err)
		if !ok {
			return err
		}
		d, gerr := h.svc.GetInvoice(ctx, id)
		if gerr != nil {
			return gerr
		}
		page := h.showPage(c, d, f)
		page.Error = msg
		return web.Render(c, status, page)
	}
	zerolog.Ctx(ctx).Info().
		Str("invoice_id", id.String()).
		Str("payment_id", p.ID.String()).
		Str("amount", p.Amount.String()).
		Msg("payment recorded")
	return web.Redirect(c, "/invoices/"+id.String(), "Payment of "+h.svc.Clinic().Money(p.Amount)+" recorded.")
}

func (h *Handler) DeletePayment(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	paymentID, err := web.ParamID(c, "paymentID")
	if err != nil {
		return err
	}
	if err := h.svc.DeletePayment(c.Request().Context(), id, paymentID); err != nil {
		return actionFailure(c, err, id)
	}
	return web.Redirect(c, "/invoices/"+id.String(), "Payment removed.")
}

func (h *Handler) Email(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	var f EmailForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	to, err := h.svc.EmailInvoice(c.Request().Context(), id, f)
	if err != nil {
		return actionFailure(c, err, id)
	}
	return web.Redirect(c, "/invoices/"+id.String(), "Invoice sent to "+to+".")
}

func (h *Handler) PDF(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	data, name, err := h.svc.InvoicePDF(c.Request().Context(), id)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, "inline; filename="+strconv.Quote(name))
	return c.Blob(http.StatusOK, "application/pdf", data)
}
