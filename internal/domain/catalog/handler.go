package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

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

// RegisterRoutes mounts the catalog pages on the session-protected group.
// Deleting a catalog record is reserved to administrators.
func (h *Handler) RegisterRoutes(app *echo.Group) {
	admin := auth.RequireTokenType(auth.TokenAdmin)

	app.GET("/rooms", h.ListRooms)
	app.GET("/rooms/new", h.NewRoom)
	app.POST("/rooms", h.CreateRoom)
	app.GET("/rooms/:id", h.ShowRoom)
	app.GET("/rooms/:id/edit", h.EditRoom)
	app.POST("/rooms/:id", h.UpdateRoom)
	app.POST("/rooms/:id/delete", h.DeleteRoom, admin)

	app.GET("/appointment-types", h.ListTypes)
	app.GET("/appointment-types/new", h.NewType)
	app.POST("/appointment-types", h.CreateType)
	app.GET("/appointment-types/:id", h.ShowType)
	app.GET("/appointment-types/:id/edit", h.EditType)
	app.POST("/appointment-types/:id", h.UpdateType)
	app.POST("/appointment-types/:id/delete", h.DeleteType, admin)

	app.GET("/insurance-companies", h.ListInsurance)
	app.GET("/insurance-companies/new", h.NewInsurance)
	app.POST("/insurance-companies", h.CreateInsurance)
	app.GET("/insurance-companies/:id", h.ShowInsurance)
	app.GET("/insurance-companies/:id/edit", h.EditInsurance)
	app.POST("/insurance-companies/:id", h.UpdateInsurance)
	app.POST("/insurance-companies/:id/delete", h.DeleteInsurance, admin)

	app.GET("/institutions", h.ListInstitutions)
	app.GET("/institutions/new", h.NewInstitution)
	app.POST("/institutions", h.CreateInstitution)
	app.GET("/institutions/:id", h.ShowInstitution)
	app.GET("/institutions/:id/edit", h.EditInstitution)
	app.POST("/institutions/:id", h.UpdateInstitution)
	app.POST("/institutions/:id/delete", h.DeleteInstitution, admin)
	app.POST("/institutions/:id/unavailable-days", h.AddUnavailableDay)
	app.POST("/institutions/:id/unavailable-days/:dayID/delete", h.RemoveUnavailableDay)
}

// -- shared page pieces --

func searchFilter(action, q string) *web.Form {
	return &web.Form{
		Action: action,
		Method: http.MethodGet,
		Submit: "Search",
		Inline: true,
		Fields: []web.Field{{Name: "q", Label: "Search", Type: "text", Value: q}},
	}
}

func listPage(title, section, base, q string, table *web.Table) *web.Page {
	return &web.Page{
		Title:   title,
		Section: section,
		Actions: []web.Action{web.Link("New", base+"/new")},
		Filter:  searchFilter(base, q),
		Tables:  []*web.Table{table},
	}
}

func detailActions(c echo.Context, base string) []web.Action {
	actions := []web.Action{web.Link("Edit", base+"/edit"), web.Link("Back", "/"+firstSegment(base))}
	if auth.IsAdmin(c) {
		actions = append(actions, web.DeleteAction(base+"/delete"))
	}
	return actions
}

func firstSegment(path string) string {
	for i := 1; i < len(path); i++ {
		if path[i] == '/' {
			return path[1:i]
		}
	}
	return path[1:]
}

// formFailure re-renders a form for errors the user can fix and passes any
// other error on to the error handler.
func formFailure(c echo.Context, err error, page *web.Page) error {
	if status, msg, ok := web.FormError(err); ok {
		page.Error = msg
		return web.Render(c, status, page)
	}
	return err
}

// deleteFailure sends a blocked delete back to the record with the reason.
func deleteFailure(c echo.Context, err error, back string) error {
	if errors.Is(err, db.ErrForeignKey) {
		return web.RedirectError(c, back, web.MsgForeignKey)
	}
	return err
}

func logDeleted(c echo.Context, entity string, id string) {
	zerolog.Ctx(c.Request().Context()).Info().Str("entity", entity).Str("id", id).Msg("record deleted")
}

// -- Consulting room --

func roomFormPage(title, action, cancel string, f RoomForm) *web.Page {
	return &web.Page{
		Title:   title,
		Section: "rooms",
		Form: &web.Form{
			Action: action,
			Submit: "Save",
			Cancel: cancel,
			Fields: []web.Field{
				{Name: "name", Label: "Name", Type: "text", Value: f.Name, Required: true},
				{Name: "location", Label: "Location", Type: "text", Value: f.Location},
				{Name: "description", Label: "Description", Type: "textarea", Value: f.Description},
				{Name: "active", Label: "Active", Type: "checkbox", Value: f.Active},
			},
		},
	}
}

func roomToForm(r *ConsultingRoom) RoomForm {
	f := RoomForm{Name: r.Name, Location: web.Str(r.Location), Description: web.Str(r.Description)}
	if r.Active {
		f.Active = "on"
	}
	return f
}

func (h *Handler) ListRooms(c echo.Context) error {
	pg := pagination.FromContext(c)
	q := c.QueryParam("q")
	rooms, total, err := h.svc.ListRooms(c.Request().Context(), q, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	links := pg.PageLinks(c.Request().URL, total)
	table := &web.Table{Columns: []string{"Name", "Location", "Active"}, Pager: &links, Empty: "No consulting rooms yet."}
	for _, r := range rooms {
		table.Rows = append(table.Rows, web.Row{
			Cells: []string{r.Name, web.Str(r.Location), web.YesNo(r.Active)},
			Link:  "/rooms/" + r.ID.String(),
			Muted: !r.Active,
		})
	}
	return web.OK(c, listPage("Consulting rooms", "rooms", "/rooms", q, table))
}

func (h *Handler) NewRoom(c echo.Context) error {
	return web.OK(c, roomFormPage("New consulting room", "/rooms", "/rooms", RoomForm{Active: "on"}))
}

func (h *Handler) CreateRoom(c echo.Context) error {
	var f RoomForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	r, err := h.svc.CreateRoom(c.Request().Context(), f)
	if err != nil {
		return formFailure(c, err, roomFormPage("New consulting room", "/rooms", "/rooms", f))
	}
	return web.Redirect(c, "/rooms/"+r.ID.String(), "Consulting room created.")
}

func (h *Handler) ShowRoom(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.svc.GetRoom(c.Request().Context(), id)
	if err != nil {
		return err
	}
	base := "/rooms/" + r.ID.String()
	return web.OK(c, &web.Page{
		Title:   r.Name,
		Section: "rooms",
		Detail: &web.Detail{
			Fields: []web.KV{
				{Label: "Name", Value: r.Name},
				{Label: "Location", Value: web.Str(r.Location)},
				{Label: "Description", Value: web.Str(r.Description)},
				{Label: "Active", Value: web.YesNo(r.Active)},
			},
			Actions: detailActions(c, base),
		},
	})
}

func (h *Handler) EditRoom(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.svc.GetRoom(c.Request().Context(), id)
	if err != nil {
		return err
	}
	base := "/rooms/" + r.ID.String()
	return web.OK(c, roomFormPage("Edit consulting room", base, base, roomToForm(r)))
}

func (h *Handler) UpdateRoom(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	var f RoomForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	base := "/rooms/" + id.String()
	if _, err := h.svc.UpdateRoom(c.Request().Context(), id, f); err != nil {
		return formFailure(c, err, roomFormPage("Edit consulting room", base, base, f))
	}
	return web.Redirect(c, base, "Consulting room updated.")
}

func (h *Handler) DeleteRoom(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteRoom(c.Request().Context(), id); err != nil {
		return deleteFailure(c, err, "/rooms/"+id.String())
	}
	logDeleted(c, "consulting_room", id.String())
	return web.Redirect(c, "/rooms", "Consulting room deleted.")
}

// -- Appointment type --

func typeFormPage(title, action, cancel string, f TypeForm) *web.Page {
	return &web.Page{
		Title:   title,
		Section: "appointment-types",
		Form: &web.Form{
			Action: action,
			Submit: "Save",
			Cancel: cancel,
			Fields: []web.Field{
				{Name: "name", Label: "Name", Type: "text", Value: f.Name, Required: true},
				{Name: "description", Label: "Description", Type: "textarea", Value: f.Description},
				{Name: "duration_minutes", Label: "Duration (minutes)", Type: "number", Value: f.DurationMinutes, Required: true},
			},
		},
	}
}

func typeToForm(t *AppointmentType) TypeForm {
	return TypeForm{Name: t.Name, Description: web.Str(t.Description), DurationMinutes: strconv.Itoa(t.DurationMinutes)}
}

func (h *Handler) ListTypes(c echo.Context) error {
	pg := pagination.FromContext(c)
	q := c.QueryParam("q")
	types, total, err := h.svc.ListTypes(c.Request().Context(), q, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	links := pg.PageLinks(c.Request().URL, total)
	table := &web.Table{Columns: []string{"Name", "Duration", "Description"}, Pager: &links, Empty: "No appointment types yet."}
	for _, t := range types {
		table.Rows = append(table.Rows, web.Row{
			Cells: []string{t.Name, strconv.Itoa(t.DurationMinutes) + " min", web.Str(t.Description)},
			Link:  "/appointment-types/" + t.ID.String(),
		})
	}
	return web.OK(c, listPage("Appointment types", "appointment-types", "/appointment-types", q, table))
}

func (h *Handler) NewType(c echo.Context) error {
	return web.OK(c, typeFormPage("New appointment type", "/appointment-types", "/appointment-types", TypeForm{DurationMinutes: "30"}))
}

func (h *Handler) CreateType(c echo.Context) error {
	var f TypeForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	t, err := h.svc.CreateType(c.Request().Context(), f)
	if err != nil {
		return formFailure(c, err, typeFormPage("New appointment type", "/appointment-types", "/appointment-types", f))
	}
	return web.Redirect(c, "/appointment-types/"+t.ID.String(), "Appointment type created.")
}

func (h *Handler) ShowType(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	t, err := h.svc.GetType(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return web.OK(c, &web.Page{
		Title:   t.Name,
		Section: "appointment-types",
		Detail: &web.Detail{
			Fields: []web.KV{
				{Label: "Name", Value: t.Name},
				{Label: "Duration", Value: strconv.Itoa(t.DurationMinutes) + " minutes"},
				{Label: "Description", Value: web.Str(t.Description)},
			},
			Actions: detailActions(c, "/appointment-types/"+t.ID.String()),
		},
	})
}

func (h *Handler) EditType(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	t, err := h.svc.GetType(c.Request().Context(), id)
	if err != nil {
		return err
	}
	base := "/appointment-types/" + t.ID.String()
	return web.OK(c, typeFormPage("Edit appointment type", base, base, typeToForm(t)))
}

func (h *Handler) UpdateType(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	var f TypeForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	base := "/appointment-types/" + id.String()
	if _, err := h.svc.UpdateType(c.Request().Context(), id, f); err != nil {
		return formFailure(c, err, typeFormPage("Edit appointment type", base, base, f))
	}
	return web.Redirect(c, base, "Appointment type updated.")
}

func (h *Handler) DeleteType(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteType(c.Request().Context(), id); err != nil {
		return deleteFailure(c, err, "/appointment-types/"+id.String())
	}
	logDeleted(c, "appointment_type", id.String())
	return web.Redirect(c, "/appointment-types", "Appointment type deleted.")
}

// -- Insurance company --

func insuranceFormPage(title, action, cancel string, f InsuranceForm) *web.Page {
	return &web.Page{
		Title:   title,
		Section: "insurance-companies",
		Form: &web.Form{
			Action: action,
			Submit: "Save",
			Cancel: cancel,
			Fields: []web.Field{
				{Name: "name", Label: "Name", Type: "text", Value: f.Name, Required: true},
				{Name: "code", Label: "Code", Type: "text", Value: f.Code},
				{Name: "phone", Label: "Phone", Type: "tel", Value: f.Phone},
				{Name: "email", Label: "E-mail", Type: "email", Value: f.Email},
				{Name: "website", Label: "Website", Type: "text", Value: f.Website},
				{Name: "notes", Label: "Notes", Type: "textarea", Value: f.Notes},
			},
		},
	}
}

func insuranceToForm(ic *InsuranceCompany) InsuranceForm {
	return InsuranceForm{
		Name: ic.Name, Code: web.Str(ic.Code), Phone: web.Str(ic.Phone),
		Email: web.Str(ic.Email), Website: web.Str(ic.Website), Notes: web.Str(ic.Notes),
	}
}

func (h *Handler) ListInsurance(c echo.Context) error {
	pg := pagination.FromContext(c)
	q := c.QueryParam("q")
	all, total, err := h.svc.ListInsurance(c.Request().Context(), q, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	links := pg.PageLinks(c.Request().URL, total)
	table := &web.Table{Columns: []string{"Name", "Code", "Phone", "E-mail"}, Pager: &links, Empty: "No insurance companies yet."}
	for _, ic := range all {
		table.Rows = append(table.Rows, web.Row{
			Cells: []string{ic.Name, web.Str(ic.Code), web.Str(ic.Phone), web.Str(ic.Email)},
			Link:  "/insurance-companies/" + ic.ID.String(),
		})
	}
	return web.OK(c, listPage("Insurance companies", "insurance-companies", "/insurance-companies", q, table))
}

func (h *Handler) NewInsurance(c echo.Context) error {
	return web.OK(c, insuranceFormPage("New insurance company", "/insurance-companies", "/insurance-companies", InsuranceForm{}))
}

func (h *Handler) CreateInsurance(c echo.Context) error {
	var f InsuranceForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	ic, err := h.svc.CreateInsurance(c.Request().Context(), f)
	if err != nil {
		return formFailure(c, err, insuranceFormPage("New insurance company", "/insurance-companies", "/insurance-companies", f))
	}
	return web.Redirect(c, "/insurance-companies/"+ic.ID.String(), "Insurance company created.")
}

func (h *Handler) ShowInsurance(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	ic, err := h.svc.GetInsurance(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return web.OK(c, &web.Page{
		Title:   ic.Name,
		Section: "insurance-companies",
		Actions: []web.Action{web.Link("Patients", "/patients?insurance_company_id="+ic.ID.String())},
		Detail: &web.Detail{
			Fields: []web.KV{
				{Label: "Name", Value: ic.Name},
				{Label: "Code", Value: web.Str(ic.Code)},
				{Label: "Phone", Value: web.Str(ic.Phone)},
				{Label: "E-mail", Value: web.Str(ic.Email)},
				{Label: "Website", Value: web.Str(ic.Website)},
				{Label: "Notes", Value: web.Str(ic.Notes)},
			},
			Actions: detailActions(c, "/insurance-companies/"+ic.ID.String()),
		},
	})
}

func (h *Handler) EditInsurance(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	ic, err := h.svc.GetInsurance(c.Request().Context(), id)
	if err != nil {
		return err
	}
	base := "/insurance-companies/" + ic.ID.String()
	return web.OK(c, insuranceFormPage("Edit insurance company", base, base, insuranceToForm(ic)))
}

func (h *Handler) UpdateInsurance(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	var f InsuranceForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	base := "/insurance-companies/" + id.String()
	if _, err := h.svc.UpdateInsurance(c.Request().Context(), id, f); err != nil {
		return formFailure(c, err, insuranceFormPage("Edit insurance company", base, base, f))
	}
	return web.Redirect(c, base, "Insurance company updated.")
}

func (h *Handler) DeleteInsurance(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteInsurance(c.Request().Context(), id); err != nil {
		return deleteFailure(c, err, "/insurance-companies/"+id.String())
	}
	logDeleted(c, "insurance_company", id.String())
	return web.Redirect(c, "/insurance-companies", "Insurance company deleted.")
}

// -- Institution --

func institutionFormPage(title, action, cancel string, f InstitutionForm) *web.Page {
	return &web.Page{
		Title:   title,
		Section: "institutions",
		Form: &web.Form{
			Action: action,
			Submit: "Save",
			Cancel: cancel,
			Fields: []web.Field{
				{Name: "name", Label: "Name", Type: "text", Value: f.Name, Required: true},
				{Name: "address", Label: "Address", Type: "text", Value: f.Address},
				{Name: "phone", Label: "Phone", Type: "tel", Value: f.Phone},
				{Name: "email", Label: "E-mail", Type: "email", Value: f.Email},
				{Name: "notes", Label: "Notes", Type: "textarea", Value: f.Notes},
			},
		},
	}
}

func institutionToForm(i *Institution) InstitutionForm {
	return InstitutionForm{
		Name: i.Name, Address: web.Str(i.Address), Phone: web.Str(i.Phone),
		Email: web.Str(i.Email), Notes: web.Str(i.Notes),
	}
}

func (h *Handler) ListInstitutions(c echo.Context) error {
	pg := pagination.FromContext(c)
	q := c.QueryParam("q")
	all, total, err := h.svc.ListInstitutions(c.Request().Context(), q, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	links := pg.PageLinks(c.Request().URL, total)
	table := &web.Table{Columns: []string{"Name", "Address", "Phone"}, Pager: &links, Empty: "No institutions yet."}
	for _, i := range all {
		table.Rows = append(table.Rows, web.Row{
			Cells: []string{i.Name, web.Str(i.Address), web.Str(i.Phone)},
			Link:  "/institutions/" + i.ID.String(),
		})
	}
	return web.OK(c, listPage("Institutions", "institutions", "/institutions", q, table))
}

func (h *Handler) NewInstitution(c echo.Context) error {
	return web.OK(c, institutionFormPage("New institution", "/institutions", "/institutions", InstitutionForm{}))
}

func (h *Handler) CreateInstitution(c echo.Context) error {
	var f InstitutionForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	i, err := h.svc.CreateInstitution(c.Request().Context(), f)
	if err != nil {
		return formFailure(c, err, institutionFormPage("New institution", "/institutions", "/institutions", f))
	}
	return web.Redirect(c, "/institutions/"+i.ID.String(), "Institution created.")
}

func (h *Handler) institutionPage(c echo.Context, i *Institution, dayForm UnavailableDayForm) (*web.Page, error) {
	ctx := c.Request().Context()
	from := web.QueryDate(c, "from")
	days, err := h.svc.ListUnavailableDays(ctx, i.ID, from, web.QueryDate(c, "to"))
	if err != nil {
		return nil, err
	}
	base := "/institutions/" + i.ID.String()
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
	for _, d := range days {
		table.Rows = append(table.Rows, web.Row{
			Cells:   []string{web.Date(d.Date), web.Str(d.Reason)},
			Actions: []web.Action{{Label: "Remove", URL: base + "/unavailable-days/" + d.ID.String() + "/delete", Method: http.MethodPost, Danger: true}},
		})
	}
	return &web.Page{
		Title:   i.Name,
		Section: "institutions",
		Detail: &web.Detail{
			Fields: []web.KV{
				{Label: "Name", Value: i.Name},
				{Label: "Address", Value: web.Str(i.Address)},
				{Label: "Phone", Value: web.Str(i.Phone)},
				{Label: "E-mail", Value: web.Str(i.Email)},
				{Label: "Notes", Value: web.Str(i.Notes)},
			},
			Actions: detailActions(c, base),
		},
		Tables: []*web.Table{table},
	}, nil
}

func (h *Handler) ShowInstitution(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	i, err := h.svc.GetInstitution(c.Request().Context(), id)
	if err != nil {
		return err
	}
	page, err := h.institutionPage(c, i, UnavailableDayForm{})
	if err != nil {
		return err
	}
	return web.OK(c, page)
}

func (h *Handler) EditInstitution(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	i, err := h.svc.GetInstitution(c.Request().Context(), id)
	if err != nil {
		return err
	}
	base := "/institutions/" + i.ID.String()
	return web.OK(c, institutionFormPage("Edit institution", base, base, institutionToForm(i)))
}

func (h *Handler) UpdateInstitution(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	var f InstitutionForm
	if err := web.Bind(c, &f); err != nil {
		return err
	}
	base := "/institutions/" + id.String()
	if _, err := h.svc.UpdateInstitution(c.Request().Context(), id, f); err != nil {
		return formFailure(c, err, institutionFormPage("Edit institution", base, base, f))
	}
	return web.Redirect(c, base, "Institution updated.")
}

func (h *Handler) DeleteInstitution(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteInstitution(c.Request().Context(), id); err != nil {
		return deleteFailure(c, err, "/institutions/"+id.String())
	}
	logDeleted(c, "institution", id.String())
	return web.Redirect(c, "/institutions", "Institution deleted.")
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
		i, gerr := h.svc.GetInstitution(ctx, id)
		if gerr != nil {
			return gerr
		}
		page, perr := h.institutionPage(c, i, f)
		if perr != nil {
			return perr
		}
		page.Error = msg
		return web.Render(c, status, page)
	}
	return web.Redirect(c, "/institutions/"+id.String(), "Unavailable day added.")
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
	return web.Redirect(c, "/institutions/"+id.String(), "Unavailable day removed.")
}
