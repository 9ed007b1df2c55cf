package doctor

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultorio/consultorio/internal/domain"
	"github.com/consultorio/consultorio/internal/platform/auth"
	"github.com/consultorio/consultorio/internal/platform/db"
	"github.com/consultorio/consultorio/internal/platform/web"
	"github.com/consultorio/consultorio/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(app *echo.Group) {
	app.GET("/doctors", h.List)
	app.GET("/doctors/new", h.New)
	app.POST("/doctors", h.Create)
	app.GET("/doctors/:id", h.Show)
	app.GET("/doctors/:id/edit", h.Edit)
	app.POST("/doctors/:id", h.Update)
	app.POST("/doctors/:id/delete", h.Delete, auth.RequireTokenType(auth.TokenAdmin))
	app.POST("/doctors/:id/unavailable-days", h.AddUnavailableDay)
	app.POST("/doctors/:id/unavailable-days/:dayID/delete", h.RemoveUnavailableDay)

	app.GET("/api/doctors/:id/unavailable-days", h.UnavailableDaysAPI)
}

func formPage(title, action, cancel string, f Form) *web.Page {
	return &web.Page{
		Title:   title,
		Section: "doctors",
		Form: &web.Form{
			Action: action,
			Submit: "Save",
			Cancel: cancel,
			Fields: []web.Field{
				{Name: "last_name", Label: "Last name", Type: "text", Value: f.LastName, Required: true},
				{Name: "first_name", Label: "First name", Type: "text", Value: f.FirstName, Required: true},
				{Name: "license_number", Label: "License number", Type: "text", Value: f.LicenseNumber, Required: true},
				{Name: "document_number", Label: "Document number", Type: "text", Value: f.DocumentNumber},
				{Name: "specialty", Label: "Specialty", Type: "text", Value: f.Specialty},
				{Name: "phone", Label: "Phone", Type: "tel", Value: f.Phone},
				{Name: "email", Label: "E-mail", Type: "email", Value: f.Email},
				{Name: "attention_start", Label: "Attention from", Type: "time", Value: f.AttentionStart},
				{Name: "attention_end", Label: "Attention until", Type: "time", Value: f.AttentionEnd},
				{Name: "active", Label: "Active", Type: "checkbox", Value: f.Active},
			},
		},
	}
}

func toForm(d *Doctor) Form {
	f := Form{
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		DocumentNumber: web.Str(d.DocumentNumber),
		LicenseNumber:  d.LicenseNumber,
		Specialty:      web.Str(d.Specialty),
		Phone:          web.Str(d.Phone),
		Email:          web.Str(d.Email),
		AttentionStart: web.Str(d.AttentionStart),
		AttentionEnd:   web.Str(d.AttentionEnd),
	}
	if d.Active {
		f.Active = "on"
	}
	return f
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{Query: c.QueryParam("q"), ActiveOnly: domain.ParseBool(c.QueryParam("active"))}
	doctors, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	links := pg.PageLinks(c.Request().URL, total)
	table := &web.Table{
		Columns: []string{"Name", "License", "Specialty", "Attention", "Active"},
		Pager:   &links,
		Empty:   "No doctors match.",
	}
	for _, d := range doctors {
		table.Rows = append(table.Rows, web.Row{
			Cells: []string{d.FullName(), d.LicenseNumber, web.Str(d.Specialty), d.AttentionHours(), web.YesNo(d.Active)},
			Link:  "/doctors/" + d.ID.String(),
			Muted: !d.Active,
		})
	}
	active := ""
	if f.ActiveOnly {
		active = "on"
	}
	return web.OK(c, &web.Page{
		Title:   "Doctors",
		Section: "doctors",
		Actions: []web.Action{web.Link("New doctor", "/doctors/new")},
		Filter: &web.Form{
			Action: "/doctors",
			Method: http.MethodGet,
			Submit: "Search",
			Inline: true,
			Fields: []web.Field{
				{Name: "q", Label: "Name, license or specialty", Type: "text", Value: f.Query},
				{Name: "active", Label: "Active only", Type: "checkbox", Value: active},
			},
		},
		Tables: []*web.Table{table},
	})
}

func (h *Handler) New(c echo.Context) error {
	return web.OK(c, formPage("New doctor", "/doctors", "/doctors", Form{Active: "on"}))
}

func (h *Handler) Create(c echo.Context) error {
	var f Form
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	d, err := h.svc.Create(c.Request().Context(), f)
	if err != nil {
		return formFailure(c, err, formPage("New doctor", "/doctors", "/doctors", f))
	}
	return web.Redirect(c, "/doctors/"+d.ID.String(), "Doctor created.")
}

// showPage renders the doctor with their unavailable days. dayForm carries
// back a rejected day.
func (h *Handler) showPage(c echo.Context, d *Doctor, dayForm UnavailableDayForm) (*web.Page, error) {
	days, err := h.svc.ListUnavailableDays(c.Request().Context(), d.ID, web.QueryDate(c, "from"), web.QueryDate(c, "to"))
	if err != nil {
		return nil, err
	}
	base := "/doctors/" + d.ID.String()
	table := &web.Table{
		Title:   "Unavailable days",
		Columns: []string{"Date", "Reason"},
		Empty:   "No unavailable days.",
		Form: &web.Form{
			Action: base + "/unavailable-days",
			Submit: "Add day",
			Inline: true,
			Fields: []web.Field{
				{Name: "date", Label: "Date", Type: "date", Value: dayForm.Date, Required: true},
				{Name: "reason", Label: "Reason", Type: "text", Value: dayForm.Reason},
			},
		},
	}
	for _, day := range days {
		table.Rows = append(table.Rows, web.Row{
			Cells:   []string{web.Date(day.Date), web.Str(day.Reason)},
			Actions: []web.Action{{Label: "Remove", URL: base + "/unavailable-days/" + day.ID.String() + "/delete", Method: http.MethodPost, Danger: true}},
		})
	}

	actions := []web.Action{web.Link("Edit", base+"/edit"), web.Link("Back", "/doctors")}
	if auth.IsAdmin(c) {
		actions = append(actions, web.DeleteAction(base+"/delete"))
	}
	return &web.Page{
		Title:   d.FullName(),
		Section: "doctors",
		Actions: []web.Action{
			web.Link("Appointments", "/appointments?doctor_id="+d.ID.String()),
			web.Link("New appointment", "/appointments/new?doctor_id="+d.ID.String()),
		},
		Detail: &web.Detail{
			Fields: []web.KV{
				{Label: "License number", Value: d.LicenseNumber},
				{Label: "Document number", Value: web.Str(d.DocumentNumber)},
				{Label: "Specialty", Value: web.Str(d.Specialty)},
				{Label: "Phone", Value: web.Str(d.Phone)},
				{Label: "E-mail", Value: web.Str(d.Email)},
				{Label: "Attention hours", Value: d.AttentionHours()},
				{Label: "Active", Value: web.YesNo(d.Active)},
			},
			Actions: actions,
		},
		Tables: []*web.Table{table},
	}, nil
}

func (h *Handler) Show(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	page, err := h.showPage(c, d, UnavailableDayForm{})
	if err != nil {
		return err
	}
	return web.OK(c, page)
}

func (h *Handler) Edit(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	base := "/doctors/" + d.ID.String()
	return web.OK(c, formPage("Edit doctor", base, base, toForm(d)))
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
	base := "/doctors/" + id.String()
	if _, err := h.svc.Update(c.Request().Context(), id, f); err != nil {
		return formFailure(c, err, formPage("Edit doctor", base, base, f))
	}
	return web.Redirect(c, base, "Doctor updated.")
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, db.ErrForeignKey) {
			return web.RedirectError(c, "/doctors/"+id.String(), "Cannot delete: this doctor has appointments.")
		}
		return err
	}
	zerolog.Ctx(c.Request().Context()).Info().Str("doctor_id", id.String()).Msg("doctor deleted")
	return web.Redirect(c, "/doctors", "Doctor deleted.")
}

func (h *Handler) AddUnavailableDay(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	var f UnavailableDayForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.svc.AddUnavailableDay(ctx, id, f); err != nil {
		status, msg, ok := web.FormError(err)
		if !ok {
			return err
		}
		d, gerr := h.svc.Get(ctx, id)
		if gerr != nil {
			return gerr
		}
		page, perr := h.showPage(c, d, f)
		if perr != nil {
			return perr
		}
		page.Error = msg
		return web.Render(c, status, page)
	}
	return web.Redirect(c, "/doctors/"+id.String(), "Unavailable day added.")
}

func (h *Handler) RemoveUnavailableDay(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	dayID, err := web.ParamID(c, "dayID")
	if err != nil {
		return err
	}
	if err := h.svc.RemoveUnavailableDay(c.Request().Context(), id, dayID); err != nil {
		return err
	}
	return web.Redirect(c, "/doctors/"+id.String(), "Unavailable day removed.")
}

// dayJSON is one entry of the unavailable-days API.
type dayJSON struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// UnavailableDaysAPI lists the doctor's days off as YYYY-MM-DD dates, for the
// appointment form's date picker.
func (h *Handler) UnavailableDaysAPI(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.svc.Get(ctx, id); err != nil {
		return err
	}
	days, err := h.svc.ListUnavailableDays(ctx, id, web.QueryDate(c, "from"), web.QueryDate(c, "to"))
	if err != nil {
		if ve, ok := domain.AsValidation(err); ok {
			return echo.NewHTTPError(http.StatusBadRequest, ve.Message)
		}
		return err
	}
	out := make([]dayJSON, len(days))
	for i, d := range days {
		out[i] = dayJSON{ID: d.ID.String(), Date: d.Date.Format(domain.DateLayout), Reason: web.Str(d.Reason)}
	}
	return c.JSON(http.StatusOK, out)
}

func formFailure(c echo.Context, err error, page *web.Page) error {
	if status, msg, ok := web.FormError(err); ok {
		page.Error = msg
		return web.Render(c, status, page)
	}
	return err
}
