package appointment

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultorio/consultorio/internal/domain"
	"github.com/consultorio/consultorio/internal/platform/web"
	"github.com/consultorio/consultorio/pkg/pagination"
)

// DoctorLister offers the active doctors for selects.
type DoctorLister interface {
	DoctorOptions(ctx context.Context) ([][2]string, error)
}

// CatalogLister offers rooms and appointment types for selects.
type CatalogLister interface {
	RoomOptions(ctx context.Context) ([][2]string, error)
	TypeOptions(ctx context.Context) ([][2]string, error)
}

// PatientNamer labels the patient preselected on a form.
type PatientNamer interface {
	PatientLabel(ctx context.Context, id uuid.UUID) (string, error)
}

type Handler struct {
	svc      *Service
	doctors  DoctorLister
	catalog  CatalogLister
	patients PatientNamer
}

func NewHandler(svc *Service, doctors DoctorLister, catalog CatalogLister, patients PatientNamer) *Handler {
	return &Handler{svc: svc, doctors: doctors, catalog: catalog, patients: patients}
}

func (h *Handler) RegisterRoutes(app *echo.Group) {
	app.GET("/", h.Dashboard)
	app.GET("/appointments", h.List)
	app.GET("/appointments/new", h.New)
	app.POST("/appointments", h.Create)
	app.GET("/appointments/:id", h.Show)
	app.GET("/appointments/:id/edit", h.Edit)
	app.POST("/appointments/:id", h.Update)
	app.POST("/appointments/:id/delete", h.Delete)
	app.POST("/appointments/:id/attend", h.Attend)
	app.GET("/appointments/:id/cancel", h.CancelForm)
	app.POST("/appointments/:id/cancel", h.Cancel)
	app.GET("/appointments/:id/no-show", h.NoShowForm)
	app.POST("/appointments/:id/no-show", h.NoShow)
}

func (h *Handler) patientDisplay(ctx context.Context, id string) string {
	pid, err := uuid.Parse(id)
	if err != nil {
		return ""
	}
	label, err := h.patients.PatientLabel(ctx, pid)
	if err != nil {
		return ""
	}
	return label
}

func (h *Handler) formPage(ctx context.Context, title, action, cancel string, f Form, edit bool) (*web.Page, error) {
	doctors, err := h.doctors.DoctorOptions(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := h.catalog.RoomOptions(ctx)
	if err != nil {
		return nil, err
	}
	types, err := h.catalog.TypeOptions(ctx)
	if err != nil {
		return nil, err
	}
	fields := []web.Field{
		{Name: "patient_id", Label: "Patient", Type: "patient", Value: f.PatientID, Display: h.patientDisplay(ctx, f.PatientID), Required: true},
		{Name: "doctor_id", Label: "Doctor", Type: "select", Options: web.Options(doctors, f.DoctorID, "-")},
		{Name: "date", Label: "Date", Type: "date", Value: f.Date, Required: true},
		{Name: "time", Label: "Time", Type: "time", Value: f.Time, Required: true},
		{Name: "room_id", Label: "Consulting room", Type: "select", Options: web.Options(rooms, f.RoomID, "-")},
		{Name: "type_id", Label: "Type", Type: "select", Options: web.Options(types, f.TypeID, "-")},
		{Name: "overbooking", Label: "Overbooking", Type: "checkbox", Value: f.Overbooking,
			Help: "Allows booking a time the doctor already has taken."},
		{Name: "reason", Label: "Reason", Type: "text", Value: f.Reason},
		{Name: "notes", Label: "Notes", Type: "textarea", Value: f.Notes},
	}
	if edit {
		fields = append(fields,
			web.Field{Name: "status", Label: "Status", Type: "select", Options: web.Options(Statuses, f.Status, "")},
			web.Field{Name: "no_show_reason", Label: "No-show reason", Type: "text", Value: f.NoShowReason},
			web.Field{Name: "no_show_follow_up", Label: "No-show follow-up", Type: "textarea", Value: f.NoShowFollowUp},
		)
	}
	return &web.Page{
		Title:   title,
		Section: "appointments",
		Form:    &web.Form{Action: action, Submit: "Save", Cancel: cancel, Fields: fields},
	}, nil
}

func toForm(a *Appointment) Form {
	f := Form{
		PatientID:      a.PatientID.String(),
		DoctorID:       web.OptID(a.DoctorID),
		RoomID:         web.OptID(a.RoomID),
		TypeID:         web.OptID(a.TypeID),
		Date:           a.Date.Format(domain.DateLayout),
		Time:           a.Time,
		Reason:         web.Str(a.Reason),
		Notes:          web.Str(a.Notes),
		Status:         a.Status,
		NoShowReason:   web.Str(a.NoShowReason),
		NoShowFollowUp: web.Str(a.NoShowFollowUp),
	}
	if a.Overbooking {
		f.Overbooking = "on"
	}
	return f
}

func (h *Handler) renderForm(c echo.Context, cause error, title, action, cancel string, f Form, edit bool) error {
	status, msg, ok := web.FormError(cause)
	if !ok {
		return cause
	}
	page, err := h.formPage(c.Request().Context(), title, action, cancel, f, edit)
	if err != nil {
		return err
	}
	page.Error = msg
	return web.Render(c, status, page)
}

// rowActions offers the one-click arrival on scheduled appointments.
func rowActions(a *Appointment) []web.Action {
	if a.Status != StatusScheduled {
		return nil
	}
	return []web.Action{web.Post("Attended", "/appointments/"+a.ID.String()+"/attend")}
}

// Dashboard shows the agenda of one day, today by default.
func (h *Handler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	day := h.svc.Today()
	if d := web.QueryDate(c, "date"); d != nil {
		day = *d
	}
	doctorID := web.QueryUUID(c, "doctor_id")
	agenda, err := h.svc.Agenda(ctx, day, doctorID)
	if err != nil {
		return err
	}
	doctors, err := h.doctors.DoctorOptions(ctx)
	if err != nil {
		return err
	}

	table := &web.Table{
		Columns: []string{"Time", "Patient", "Doctor", "Room", "Type", "Status"},
		Empty:   "No appointments on this day.",
	}
	for _, a := range agenda {
		table.Rows = append(table.Rows, web.Row{
			Cells:   []string{a.Time, a.PatientName, web.Str(a.DoctorName), web.Str(a.RoomName), web.Str(a.TypeName), StatusLabel(a.Status)},
			Link:    "/appointments/" + a.ID.String(),
			Actions: rowActions(a),
			Muted:   a.Status == StatusCancelled,
		})
	}

	dayLink := func(d int) string {
		q := url.Values{"date": {day.AddDate(0, 0, d).Format(domain.DateLayout)}}
		if doctorID != nil {
			q.Set("doctor_id", doctorID.String())
		}
		return "/?" + q.Encode()
	}
	return web.OK(c, &web.Page{
		Title:   "Agenda " + web.Date(day),
		Section: "agenda",
		Actions: []web.Action{
			web.Link("Previous day", dayLink(-1)),
			web.Link("Next day", dayLink(1)),
			web.Link("New appointment", "/appointments/new?date="+day.Format(domain.DateLayout)),
		},
		Filter: &web.Form{
			Action: "/",
			Method: http.MethodGet,
			Submit: "Show",
			Inline: true,
			Fields: []web.Field{
				{Name: "date", Label: "Date", Type: "date", Value: day.Format(domain.DateLayout)},
				{Name: "doctor_id", Label: "Doctor", Type: "select", Options: web.Options(doctors, web.OptID(doctorID), "All")},
			},
		},
		Tables: []*web.Table{table},
	})
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)
	f := Filter{
		From:      web.QueryDate(c, "from"),
		To:        web.QueryDate(c, "to"),
		DoctorID:  web.QueryUUID(c, "doctor_id"),
		PatientID: web.QueryUUID(c, "patient_id"),
		Status:    c.QueryParam("status"),
	}
	appointments, total, err := h.svc.List(ctx, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	doctors, err := h.doctors.DoctorOptions(ctx)
	if err != nil {
		return err
	}

	links := pg.PageLinks(c.Request().URL, total)
	table := &web.Table{
		Columns: []string{"Date", "Time", "Patient", "Doctor", "Type", "Status"},
		Pager:   &links,
		Empty:   "No appointments match.",
	}
	for _, a := range appointments {
		table.Rows = append(table.Rows, web.Row{
			Cells:   []string{web.Date(a.Date), a.Time, a.PatientName, web.Str(a.DoctorName), web.Str(a.TypeName), StatusLabel(a.Status)},
			Link:    "/appointments/" + a.ID.String(),
			Actions: rowActions(a),
			Muted:   a.Status == StatusCancelled,
		})
	}
	patientID := web.OptID(f.PatientID)
	newURL := "/appointments/new"
	if patientID != "" {
		newURL += "?patient_id=" + patientID
	}
	return web.OK(c, &web.Page{
		Title:   "Appointments",
		Section: "appointments",
		Actions: []web.Action{web.Link("New appointment", newURL)},
		Filter: &web.Form{
			Action: "/appointments",
			Method: http.MethodGet,
			Submit: "Filter",
			Inline: true,
			Fields: []web.Field{
				{Name: "from", Label: "From", Type: "date", Value: web.ISODate(f.From)},
				{Name: "to", Label: "To", Type: "date", Value: web.ISODate(f.To)},
				{Name: "doctor_id", Label: "Doctor", Type: "select", Options: web.Options(doctors, web.OptID(f.DoctorID), "All")},
				{Name: "patient_id", Label: "Patient", Type: "patient", Value: patientID, Display: h.patientDisplay(ctx, patientID)},
				{Name: "status", Label: "Status", Type: "select", Options: web.Options(Statuses, f.Status, "All")},
			},
		},
		Tables: []*web.Table{table},
	})
}

func (h *Handler) New(c echo.Context) error {
	f := Form{
		PatientID: c.QueryParam("patient_id"),
		DoctorID:  c.QueryParam("doctor_id"),
		Date:      c.QueryParam("date"),
	}
	if f.Date == "" {
		f.Date = h.svc.Today().Format(domain.DateLayout)
	}
	page, err := h.formPage(c.Request().Context(), "New appointment", "/appointments", "/appointments", f, false)
	if err != nil {
		return err
	}
	return web.OK(c, page)
}

func (h *Handler) Create(c echo.Context) error {
	var f Form
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	a, err := h.svc.Create(c.Request().Context(), f)
	if err != nil {
		return h.renderForm(c, err, "New appointment", "/appointments", "/appointments", f, false)
	}
	return web.Redirect(c, "/appointments/"+a.ID.String(), "Appointment booked.")
}

func (h *Handler) Show(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	base := "/appointments/" + a.ID.String()
	actions := []web.Action{web.Link("Edit", base+"/edit")}
	if a.Status == StatusScheduled {
		actions = append(actions,
			web.Post("Mark attended", base+"/attend"),
			web.Link("Cancel appointment", base+"/cancel"),
			web.Link("No show", base+"/no-show"),
		)
	}
	actions = append(actions, web.Link("Back", "/appointments"), web.DeleteAction(base+"/delete"))

	return web.OK(c, &web.Page{
		Title:   "Appointment " + web.Date(a.Date) + " " + a.Time,
		Section: "appointments",
		Actions: []web.Action{
			web.Link("Patient", "/patients/"+a.PatientID.String()),
			web.Link("New invoice", "/invoices/new?patient_id="+a.PatientID.String()+"&appointment_id="+a.ID.String()),
		},
		Detail: &web.Detail{
			Fields: []web.KV{
				{Label: "Patient", Value: a.PatientName + " (" + a.PatientDocument + ")"},
				{Label: "Doctor", Value: web.Str(a.DoctorName)},
				{Label: "Date", Value: web.Date(a.Date)},
				{Label: "Time", Value: a.Time},
				{Label: "Consulting room", Value: web.Str(a.RoomName)},
				{Label: "Type", Value: web.Str(a.TypeName)},
				{Label: "Status", Value: StatusLabel(a.Status)},
				{Label: "Overbooking", Value: web.YesNo(a.Overbooking)},
				{Label: "Reason", Value: web.Str(a.Reason)},
				{Label: "Notes", Value: web.Str(a.Notes)},
				{Label: "Reception time", Value: web.OptDateTime(a.ReceptionTime)},
				{Label: "No-show reason", Value: web.Str(a.NoShowReason)},
				{Label: "No-show follow-up", Value: web.Str(a.NoShowFollowUp)},
			},
			Actions: actions,
		},
	})
}

func (h *Handler) Edit(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	base := "/appointments/" + a.ID.String()
	page, err := h.formPage(c.Request().Context(), "Edit appointment", base, base, toForm(a), true)
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
	var f Form
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	base := "/appointments/" + id.String()
	if _, err := h.svc.Update(c.Request().Context(), id, f); err != nil {
		return h.renderForm(c, err, "Edit appointment", base, base, f, true)
	}
	return web.Redirect(c, base, "Appointment updated.")
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	zerolog.Ctx(c.Request().Context()).Info().Str("appointment_id", id.String()).Msg("appointment deleted")
	return web.Redirect(c, "/appointments", "Appointment deleted.")
}

// statusFailure sends a rejected transition back to the appointment.
func statusFailure(c echo.Context, err error, id uuid.UUID) error {
	if ve, ok := domain.AsValidation(err); ok {
		return web.RedirectError(c, "/appointments/"+id.String(), ve.Message)
	}
	return err
}

func (h *Handler) Attend(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.svc.MarkAsAttended(c.Request().Context(), id); err != nil {
		return statusFailure(c, err, id)
	}
	back := "/appointments/" + id.String()
	if ref := c.Request().Referer(); ref != "" {
		if u, perr := url.Parse(ref); perr == nil && (u.Path == "/" || u.Path == "/appointments") {
			back = u.RequestURI()
		}
	}
	return web.Redirect(c, back, "Patient marked as attended.")
}

func (h *Handler) CancelForm(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return web.OK(c, cancelPage(a, CancelForm{Notes: web.Str(a.Notes)}))
}

func cancelPage(a *Appointment, f CancelForm) *web.Page {
	base := "/appointments/" + a.ID.String()
	return &web.Page{
		Title:   "Cancel appointment of " + a.PatientName,
		Section: "appointments",
		Form: &web.Form{
			Action: base + "/cancel",
			Submit: "Cancel appointment",
			Cancel: base,
			Fields: []web.Field{{Name: "notes", Label: "Notes", Type: "textarea", Value: f.Notes}},
		},
	}
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	var f CancelForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	if _, err := h.svc.Cancel(c.Request().Context(), id, f); err != nil {
		return statusFailure(c, err, id)
	}
	return web.Redirect(c, "/appointments/"+id.String(), "Appointment cancelled.")
}

func (h *Handler) NoShowForm(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	base := "/appointments/" + a.ID.String()
	return web.OK(c, &web.Page{
		Title:   "No show: " + a.PatientName,
		Section: "appointments",
		Form: &web.Form{
			Action: base + "/no-show",
			Submit: "Mark as no show",
			Cancel: base,
			Fields: []web.Field{
				{Name: "no_show_reason", Label: "Reason", Type: "text", Value: web.Str(a.NoShowReason)},
				{Name: "no_show_follow_up", Label: "Follow-up", Type: "textarea", Value: web.Str(a.NoShowFollowUp),
					Help: "What the clinic will do next, e.g. call to reschedule."},
			},
		},
	})
}

func (h *Handler) NoShow(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	var f NoShowForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	if _, err := h.svc.MarkNoShow(c.Request().Context(), id, f); err != nil {
		return statusFailure(c, err, id)
	}
	return web.Redirect(c, "/appointments/"+id.String(), "Appointment marked as no show.")
}
