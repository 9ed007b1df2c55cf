package patient

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultorio/consultorio/internal/platform/auth"
	"github.com/consultorio/consultorio/internal/platform/db"
	"github.com/consultorio/consultorio/internal/platform/web"
	"github.com/consultorio/consultorio/pkg/pagination"
)

// Lookups supplies the insurance companies offered on the form.
type Lookups interface {
	InsuranceCompanyOptions(ctx context.Context) ([][2]string, error)
}

type Handler struct {
	svc     *Service
	lookups Lookups
}

func NewHandler(svc *Service, lookups Lookups) *Handler {
	return &Handler{svc: svc, lookups: lookups}
}

func (h *Handler) RegisterRoutes(app *echo.Group) {
	app.GET("/patients", h.List)
	app.GET("/patients/new", h.New)
	app.POST("/patients", h.Create)
	app.GET("/patients/:id", h.Show)
	app.GET("/patients/:id/edit", h.Edit)
	app.POST("/patients/:id", h.Update)
	app.POST("/patients/:id/delete", h.Delete, auth.RequireTokenType(auth.TokenAdmin))

	app.GET("/api/patients/search", h.SearchAPI)
}

func (h *Handler) formPage(ctx context.Context, title, action, cancel string, f Form) (*web.Page, error) {
	insurers, err := h.lookups.InsuranceCompanyOptions(ctx)
	if err != nil {
		return nil, err
	}
	return &web.Page{
		Title:   title,
		Section: "patients",
		Form: &web.Form{
			Action: action,
			Submit: "Save",
			Cancel: cancel,
			Fields: []web.Field{
				{Name: "last_name", Label: "Last name", Type: "text", Value: f.LastName, Required: true},
				{Name: "first_name", Label: "First name", Type: "text", Value: f.FirstName, Required: true},
				{Name: "document_number", Label: "Document number", Type: "text", Value: f.DocumentNumber, Required: true},
				{Name: "birth_date", Label: "Birth date", Type: "date", Value: f.BirthDate},
				{Name: "gender", Label: "Gender", Type: "select", Options: web.Options(Genders, f.Gender, "-")},
				{Name: "phone", Label: "Phone", Type: "tel", Value: f.Phone},
				{Name: "email", Label: "E-mail", Type: "email", Value: f.Email},
				{Name: "address", Label: "Address", Type: "text", Value: f.Address},
				{Name: "medical_record_number", Label: "Medical record (HC)", Type: "text", Value: f.MedicalRecordNumber},
				{Name: "insurance_company_id", Label: "Insurance company", Type: "select", Options: web.Options(insurers, f.InsuranceCompanyID, "None")},
				{Name: "insurance_plan", Label: "Plan", Type: "text", Value: f.InsurancePlan},
				{Name: "affiliate_number", Label: "Affiliate number", Type: "text", Value: f.AffiliateNumber},
				{Name: "notes", Label: "Notes", Type: "textarea", Value: f.Notes},
			},
		},
	}, nil
}

func toForm(p *Patient) Form {
	return Form{
		FirstName:           p.FirstName,
		LastName:            p.LastName,
		DocumentNumber:      p.DocumentNumber,
		BirthDate:           web.ISODate(p.BirthDate),
		Gender:              web.Str(p.Gender),
		Phone:               web.Str(p.Phone),
		Email:               web.Str(p.Email),
		Address:             web.Str(p.Address),
		MedicalRecordNumber: web.Str(p.MedicalRecordNumber),
		InsuranceCompanyID:  web.OptID(p.InsuranceCompanyID),
		InsurancePlan:       web.Str(p.InsurancePlan),
		AffiliateNumber:     web.Str(p.AffiliateNumber),
		Notes:               web.Str(p.Notes),
	}
}

// renderForm shows a form again with the error the user can fix, or passes
// anything else to the error handler.
func (h *Handler) renderForm(c echo.Context, cause error, title, action, cancel string, f Form) error {
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
	f := Filter{Query: c.QueryParam("q"), InsuranceCompanyID: web.QueryUUID(c, "insurance_company_id")}

	patients, total, err := h.svc.List(ctx, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	insurers, err := h.lookups.InsuranceCompanyOptions(ctx)
	if err != nil {
		return err
	}

	links := pg.PageLinks(c.Request().URL, total)
	table := &web.Table{
		Columns: []string{"Name", "Document", "HC", "Phone", "Insurance"},
		Pager:   &links,
		Empty:   "No patients match.",
	}
	for _, p := range patients {
		table.Rows = append(table.Rows, web.Row{
			Cells: []string{p.FullName(), p.DocumentNumber, web.Str(p.MedicalRecordNumber), web.Str(p.Phone), web.Str(p.InsuranceName)},
			Link:  "/patients/" + p.ID.String(),
		})
	}
	return web.OK(c, &web.Page{
		Title:   "Patients",
		Section: "patients",
		Actions: []web.Action{web.Link("New patient", "/patients/new")},
		Filter: &web.Form{
			Action: "/patients",
			Method: http.MethodGet,
			Submit: "Search",
			Inline: true,
			Fields: []web.Field{
				{Name: "q", Label: "Name, document or HC", Type: "text", Value: f.Query},
				{Name: "insurance_company_id", Label: "Insurance", Type: "select",
					Options: web.Options(insurers, web.OptID(f.InsuranceCompanyID), "All")},
			},
		},
		Tables: []*web.Table{table},
	})
}

func (h *Handler) New(c echo.Context) error {
	page, err := h.formPage(c.Request().Context(), "New patient", "/patients", "/patients", Form{})
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
	p, err := h.svc.Create(c.Request().Context(), f)
	if err != nil {
		return h.renderForm(c, err, "New patient", "/patients", "/patients", f)
	}
	return web.Redirect(c, "/patients/"+p.ID.String(), "Patient created.")
}

func (h *Handler) Show(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	age := ""
	if years := p.Age(time.Now()); years >= 0 {
		age = strconv.Itoa(years)
	}
	base := "/patients/" + p.ID.String()
	actions := []web.Action{web.Link("Edit", base+"/edit"), web.Link("Back", "/patients")}
	if auth.IsAdmin(c) {
		actions = append(actions, web.Action{
			Label: "Delete", URL: base + "/delete", Method: http.MethodPost, Danger: true,
			Confirm: "Delete this patient and all their appointments? This cannot be undone.",
		})
	}
	return web.OK(c, &web.Page{
		Title:   p.FullName(),
		Section: "patients",
		Actions: []web.Action{
			web.Link("New appointment", "/appointments/new?patient_id="+p.ID.String()),
			web.Link("Appointments", "/appointments?patient_id="+p.ID.String()),
			web.Link("New invoice", "/invoices/new?patient_id="+p.ID.String()),
			web.Link("Invoices", "/invoices?patient_id="+p.ID.String()),
		},
		Detail: &web.Detail{
			Fields: []web.KV{
				{Label: "Document number", Value: p.DocumentNumber},
				{Label: "Medical record (HC)", Value: web.Str(p.MedicalRecordNumber)},
				{Label: "Birth date", Value: web.OptDate(p.BirthDate)},
				{Label: "Age", Value: age},
				{Label: "Gender", Value: genderLabel(p.Gender)},
				{Label: "Phone", Value: web.Str(p.Phone)},
				{Label: "E-mail", Value: web.Str(p.Email)},
				{Label: "Address", Value: web.Str(p.Address)},
				{Label: "Insurance company", Value: web.Str(p.InsuranceName)},
				{Label: "Plan", Value: web.Str(p.InsurancePlan)},
				{Label: "Affiliate number", Value: web.Str(p.AffiliateNumber)},
				{Label: "Notes", Value: web.Str(p.Notes)},
			},
			Actions: actions,
		},
	})
}

func genderLabel(g *string) string {
	if g == nil {
		return ""
	}
	for _, pair := range Genders {
		if pair[0] == *g {
			return pair[1]
		}
	}
	return *g
}

func (h *Handler) Edit(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	base := "/patients/" + p.ID.String()
	page, err := h.formPage(c.Request().Context(), "Edit patient", base, base, toForm(p))
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
	base := "/patients/" + id.String()
	if _, err := h.svc.Update(c.Request().Context(), id, f); err != nil {
		return h.renderForm(c, err, "Edit patient", base, base, f)
	}
	return web.Redirect(c, base, "Patient updated.")
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := web.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, db.ErrForeignKey) {
			return web.RedirectError(c, "/patients/"+id.String(), "Cannot delete: this patient has invoices.")
		}
		return err
	}
	zerolog.Ctx(c.Request().Context()).Info().Str("patient_id", id.String()).Msg("patient deleted")
	return web.Redirect(c, "/patients", "Patient deleted.")
}

// SearchAPI answers the patient picker with at most ten {id, label} pairs.
func (h *Handler) SearchAPI(c echo.Context) error {
	found, err := h.svc.Suggest(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	if found == nil {
		found = []Suggestion{}
	}
	return c.JSON(http.StatusOK, found)
}
