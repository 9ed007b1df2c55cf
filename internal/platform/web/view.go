package web

import (
	"github.com/consultorio/consultorio/pkg/pagination"
)

// Page is the single view model behind every server-rendered screen. The
// page template renders whichever of Filter, Tables, Detail and Form are set,
// in that order.
type Page struct {
	Title      string
	Section    string
	Flash      *Flash
	Error      string
	TokenType  string
	CSRF       string
	ClinicName string
	Status     int

	Actions []Action
	Filter  *Form
	Tables  []*Table
	Detail  *Detail
	Form    *Form
}

func (p *Page) IsAdmin() bool { return p.TokenType == "admin" }

// Action is a link (GET) or a one-button form (POST).
type Action struct {
	Label   string
	URL     string
	Method  string
	Confirm string
	Danger  bool
}

func Link(label, url string) Action { return Action{Label: label, URL: url, Method: "GET"} }

func Post(label, url string) Action { return Action{Label: label, URL: url, Method: "POST"} }

// DeleteAction posts to url after a browser confirmation.
func DeleteAction(url string) Action {
	return Action{Label: "Delete", URL: url, Method: "POST", Confirm: "Delete this record? This cannot be undone.", Danger: true}
}

type Table struct {
	Title   string
	Columns []string
	Rows    []Row
	Empty   string
	Pager   *pagination.Links
	Form    *Form
}

type Row struct {
	Cells   []string
	Link    string
	Actions []Action
	Muted   bool
}

type Detail struct {
	Fields  []KV
	Actions []Action
}

type KV struct {
	Label string
	Value string
}

type Form struct {
	Title  string
	Action string
	Method string
	Submit string
	Cancel string
	Inline bool
	Fields []Field
}

// Field types understood by the form template: text, date, time, number,
// email, tel, password, textarea, select, checkbox, hidden and patient (a
// text box with autocomplete that fills a hidden patient_id).
type Field struct {
	Name        string
	Label       string
	Type        string
	Value       string
	Display     string
	Placeholder string
	Required    bool
	Options     []Option
	Help        string
}

type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Options builds select options from value/label pairs, marking selected.
// A leading empty choice is added when blank is non-empty.
func Options(pairs [][2]string, selected, blank string) []Option {
	var opts []Option
	if blank != "" {
		opts = append(opts, Option{Value: "", Label: blank, Selected: selected == ""})
	}
	for _, p := range pairs {
		opts = append(opts, Option{Value: p[0], Label: p[1], Selected: p[0] == selected})
	}
	return opts
}
