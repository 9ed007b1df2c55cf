package reporting

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/consultorio/consultorio/internal/domain"
	"github.com/consultorio/consultorio/internal/domain/appointment"
	"github.com/consultorio/consultorio/internal/platform/auth"
	"github.com/consultorio/consultorio/internal/platform/web"
)

// DoctorLister supplies the doctor filter of the agenda.
type DoctorLister interface {
	DoctorOptions(ctx context.Context) ([][2]string, error)
}

// Handler serves the reports as pages under /reports and as JSON under
// /api/reports. All of them are for administrators.
type Handler struct {
	svc      *Service
	doctors  DoctorLister
	currency string
}

func NewHandler(svc *Service, doctors DoctorLister, currency string) *Handler {
	return &Handler{svc: svc, doctors: doctors, currency: currency}
}

func (h *Handler) RegisterRoutes(app *echo.Group) {
	admin := auth.RequireTokenType(auth.TokenAdmin)
	app.GET("/reports", h.Index, admin)
	app.GET("/reports/appointments", h.Appointments, admin)
	app.GET("/reports/agenda", h.Agenda, admin)
	app.GET("/reports/billing", h.Billing, admin)
	app.GET("/reports/insurance", h.Insurance, admin)

	app.GET("/api/reports", h.ListAPI, admin)
	app.GET("/api/reports/appointments", h.AppointmentsAPI, admin)
	app.GET("/api/reports/agenda", h.AgendaAPI, admin)
	app.GET("/api/reports/billing", h.BillingAPI, admin)
	app.GET("/api/reports/insurance", h.InsuranceAPI, admin)
}

// badRequest turns a rejected parameter into a 400.
func badRequest(err error) error {
	if ve, ok := domain.AsValidation(err); ok {
		return echo.NewHTTPError(http.StatusBadRequest, ve.Message)
	}
	return err
}

func (h *Handler) rangeParam(c echo.Context) (Range, error) {
	r, err := h.svc.ResolveRange(web.QueryDate(c, "from"), web.QueryDate(c, "to"))
	if err != nil {
		return r, badRequest(err)
	}
	return r, nil
}

func rangeParams(r Range) map[string]string {
	return map[string]string{"from": r.From.Format(domain.DateLayout), "to": r.To.Format(domain.DateLayout)}
}

// page builds the frame shared by every report page: the report menu and,
// for ranged reports, the from/to filter.
func page(id string, r *Range) *web.Page {
	def := FindDefinition(id)
	p := &web.Page{Title: def.Name, Section: "reports"}
	for _, d := range Definitions {
		if d.ID != id {
			p.Actions = append(p.Actions, web.Link(d.Name, "/reports/"+d.ID))
		}
	}
	if r != nil {
		p.Filter = &web.Form{
			Action: "/reports/" + id,
			Method: http.MethodGet,
			Submit: "Show",
			Inline: true,
			Fields: []web.Field{
				{Name: "from", Label: "From", Type: "date", Value: r.From.Format(domain.DateLayout)},
				{Name: "to", Label: "To", Type: "date", Value: r.To.Format(domain.DateLayout)},
			},
		}
	}
	return p
}

func (h *Handler) Index(c echo.Context) error {
	return c.Redirect(http.StatusSeeOther, "/reports/"+Definitions[0].ID)
}

func (h *Handler) Appointments(c echo.Context) error {
	r, err := h.rangeParam(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.AppointmentSummary(c.Request().Context(), r)
	if err != nil {
		return err
	}
	table := &web.Table{
		Columns: []string{"Doctor", "Scheduled", "Attended", "Cancelled", "No-show", "Total"},
		Empty:   "No appointments in this range.",
	}
	for _, s := range rows {
		name := s.DoctorName
		if s.DoctorID == nil {
			name = "No doctor"
		}
		table.Rows = append(table.Rows, web.Row{Cells: summaryCells(name, s)})
	}
	if len(rows) > 0 {
		table.Rows = append(table.Rows, web.Row{Cells: summaryCells("Total", Totals(rows)), Muted: true})
	}
	p := page("appointments", &r)
	p.Tables = []*web.Table{table}
	return web.OK(c, p)
}

func summaryCells(name string, s DoctorSummary) []string {
	return []string{name, strconv.Itoa(s.Scheduled), strconv.Itoa(s.Attended),
		strconv.Itoa(s.Cancelled), strconv.Itoa(s.NoShow), strconv.Itoa(s.Total())}
}

func (h *Handler) Agenda(c echo.Context) error {
	ctx := c.Request().Context()
	doctorID := web.QueryUUID(c, "doctor_id")
	day, items, err := h.svc.Agenda(ctx, web.QueryDate(c, "date"), doctorID)
	if err != nil {
		return err
	}
	doctors, err := h.doctors.DoctorOptions(ctx)
	if err != nil {
		return err
	}
	table := &web.Table{
		Title:   web.Date(day),
		Columns: []string{"Time", "Patient", "Document", "Doctor", "Room", "Type", "Status"},
		Empty:   "No appointments on this date.",
	}
	for _, a := range items {
		table.Rows = append(table.Rows, web.Row{
			Cells: []string{a.Time, a.PatientName, a.PatientDocument, web.Str(a.DoctorName),
				web.Str(a.RoomName), web.Str(a.TypeName), appointment.StatusLabel(a.Status)},
			Link:  "/appointments/" + a.ID.String(),
			Muted: a.Status == appointment.StatusCancelled,
		})
	}
	p := page("agenda", nil)
	p.Filter = &web.Form{
		Action: "/reports/agenda",
		Method: http.MethodGet,
		Submit: "Show",
		Inline: true,
		Fields: []web.Field{
			{Name: "date", Label: "Date", Type: "date", Value: day.Format(domain.DateLayout)},
			{Name: "doctor_id", Label: "Doctor", Type: "select", Options: web.Options(doctors, web.OptID(doctorID), "All")},
		},
	}
	p.Tables = []*web.Table{table}
	return web.OK(c, p)
}

func (h *Handler) Billing(c echo.Context) error {
	r, err := h.rangeParam(c)
	if err != nil {
		return err
	}
	s, err := h.svc.BillingSummary(c.Request().Context(), r)
	if err != nil {
		return err
	}
	p := page("billing", &r)
	p.Detail = &web.Detail{Fields: []web.KV{
		{Label: "Invoiced", Value: web.Money(h.currency, s.Invoiced)},
		{Label: "Collected", Value: web.Money(h.currency, s.Collected)},
		{Label: "Outstanding", Value: web.Money(h.currency, s.Outstanding)},
		{Label: "Pending invoices", Value: strconv.Itoa(s.Pending)},
		{Label: "Paid invoices", Value: strconv.Itoa(s.Paid)},
		{Label: "Cancelled invoices", Value: strconv.Itoa(s.Cancelled)},
	}}
	p.Actions = append(p.Actions, web.Link("Invoices in range",
		"/invoices?from="+r.From.Format(domain.DateLayout)+"&to="+r.To.Format(domain.DateLayout)))
	return web.OK(c, p)
}

func (h *Handler) Insurance(c echo.Context) error {
	rows, err := h.svc.PatientsPerInsurance(c.Request().Context())
	if err != nil {
		return err
	}
	table := &web.Table{
		Columns: []string{"Insurance company", "Patients"},
		Empty:   "No insurance companies yet.",
	}
	for _, ic := range rows {
		row := web.Row{Cells: []string{ic.Name, strconv.Itoa(ic.Patients)}}
		if ic.InsuranceCompanyID == nil {
			row.Cells[0] = "No insurance"
			row.Muted = true
		} else {
			row.Link = "/patients?insurance_company_id=" + ic.InsuranceCompanyID.String()
		}
		table.Rows = append(table.Rows, row)
	}
	p := page("insurance", nil)
	p.Tables = []*web.Table{table}
	return web.OK(c, p)
}

// ListAPI returns the report definitions.
func (h *Handler) ListAPI(c echo.Context) error {
	return c.JSON(http.StatusOK, Definitions)
}

func (h *Handler) AppointmentsAPI(c echo.Context) error {
	r, err := h.rangeParam(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.AppointmentSummary(c.Request().Context(), r)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []DoctorSummary{}
	}
	return c.JSON(http.StatusOK, h.svc.Envelope("appointments", rangeParams(r), rows))
}

// agendaJSON is one appointment of the agenda API.
type agendaJSON struct {
	ID       string `json:"id"`
	Time     string `json:"time"`
	Patient  string `json:"patient"`
	Document string `json:"document"`
	Doctor   string `json:"doctor,omitempty"`
	Room     string `json:"room,omitempty"`
	Type     string `json:"type,omitempty"`
	Status   string `json:"status"`
}

func (h *Handler) AgendaAPI(c echo.Context) error {
	doctorID := web.QueryUUID(c, "doctor_id")
	day, items, err := h.svc.Agenda(c.Request().Context(), web.QueryDate(c, "date"), doctorID)
	if err != nil {
		return err
	}
	out := make([]agendaJSON, 0, len(items))
	for _, a := range items {
		out = append(out, agendaJSON{
			ID: a.ID.String(), Time: a.Time, Patient: a.PatientName, Document: a.PatientDocument,
			Doctor: web.Str(a.DoctorName), Room: web.Str(a.RoomName), Type: web.Str(a.TypeName), Status: a.Status,
		})
	}
	params := map[string]string{"date": day.Format(domain.DateLayout)}
	if doctorID != nil {
		params["doctor_id"] = doctorID.String()
	}
	return c.JSON(http.StatusOK, h.svc.Envelope("agenda", params, out))
}

func (h *Handler) BillingAPI(c echo.Context) error {
	r, err := h.rangeParam(c)
	if err != nil {
		return err
	}
	s, err := h.svc.BillingSummary(c.Request().Context(), r)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.svc.Envelope("billing", rangeParams(r), s))
}

func (h *Handler) InsuranceAPI(c echo.Context) error {
	rows, err := h.svc.PatientsPerInsurance(c.Request().Context())
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []InsuranceCount{}
	}
	return c.JSON(http.StatusOK, h.svc.Envelope("insurance", map[string]string{"as_of": h.svc.today().Format(domain.DateLayout)}, rows))
}

