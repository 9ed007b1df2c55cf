package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages are the top-level templates; each defines "content" inside layout.
var pages = []string{"page", "login", "error"}

// actionView and formView pair a component with the page's CSRF token, which
// nested templates cannot reach otherwise.
type actionView struct {
	Action
	CSRF string
}

type formView struct {
	*Form
	CSRF string
}

var funcs = template.FuncMap{
	"lower": strings.ToLower,
	"act":   func(a Action, csrf string) actionView { return actionView{Action: a, CSRF: csrf} },
	"frm":   func(f *Form, csrf string) formView { return formView{Form: f, CSRF: csrf} },
	"sectionClass": func(current, section string) string {
		if current == section {
			return "active"
		}
		return ""
	},
}

// Renderer implements echo.Renderer over the embedded templates.
type Renderer struct {
	templates  map[string]*template.Template
	clinicName string
}

func NewRenderer(clinicName string) (*Renderer, error) {
	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &Renderer{templates: make(map[string]*template.Template, len(pages)), clinicName: clinicName}
	for _, name := range pages {
		t, err := template.Must(layout.Clone()).ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Render fills the session-derived fields of a *Page before executing it.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	if p, ok := data.(*Page); ok {
		p.ClinicName = r.clinicName
		if p.Flash == nil {
			p.Flash = popFlash(c)
		}
		if tt, ok := c.Get("token_type").(string); ok {
			p.TokenType = tt
		}
		if csrf, ok := c.Get("csrf").(string); ok {
			p.CSRF = csrf
		}
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// Render writes p with the generic page template.
func Render(c echo.Context, status int, p *Page) error {
	p.Status = status
	return c.Render(status, "page", p)
}

// OK renders p with 200.
func OK(c echo.Context, p *Page) error { return Render(c, http.StatusOK, p) }
