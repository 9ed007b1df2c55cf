// Package reporting produces the administrative listings: appointments per
// doctor, the daily agenda, billing totals and patients per insurance
// company.
package reporting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Definition describes one of the available reports.
type Definition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// Ranged reports take from/to query parameters.
	Ranged bool `json:"ranged"`
}

// Definitions is the list of available reports, in menu order.
var Definitions = []Definition{
	{
		ID:          "appointments",
		Name:        "Appointments by doctor",
		Description: "Appointments per doctor and status over a date range",
		Ranged:      true,
	},
	{
		ID:          "agenda",
		Name:        "Daily agenda",
		Description: "Appointments for one date, optionally for one doctor",
	},
	{
		ID:          "billing",
		Name:        "Billing summary",
		Description: "Invoiced, collected and outstanding amounts over a date range",
		Ranged:      true,
	},
	{
		ID:          "insurance",
		Name:        "Patients per insurance company",
		Description: "Number of patients covered by each insurance company",
	},
}

// FindDefinition looks up a report by ID.
func FindDefinition(id string) *Definition {
	for i := range Definitions {
		if Definitions[i].ID == id {
			return &Definitions[i]
		}
	}
	return nil
}

// Report is the JSON envelope every report is served in.
type Report struct {
	ID          string            `json:"report"`
	Name        string            `json:"name"`
	GeneratedAt time.Time         `json:"generated_at"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	Results     interface{}       `json:"results"`
}

// Range is an inclusive span of dates.
type Range struct {
	From time.Time
	To   time.Time
}

// DoctorSummary counts a doctor's appointments by status. DoctorID is nil
// for appointments booked without a doctor.
type DoctorSummary struct {
	DoctorID   *uuid.UUID `json:"doctor_id"`
	DoctorName string     `json:"doctor_name"`
	Scheduled  int        `json:"scheduled"`
	Attended   int        `json:"attended"`
	Cancelled  int        `json:"cancelled"`
	NoShow     int        `json:"no_show"`
}

func (s DoctorSummary) Total() int { return s.Scheduled + s.Attended + s.Cancelled + s.NoShow }

// Totals adds up the rows of an appointment summary.
func Totals(rows []DoctorSummary) DoctorSummary {
	var t DoctorSummary
	for _, r := range rows {
		t.Scheduled += r.Scheduled
		t.Attended += r.Attended
		t.Cancelled += r.Cancelled
		t.NoShow += r.NoShow
	}
	return t
}

// BillingSummary totals the invoices issued in a range. Cancelled invoices
// are counted but left out of the amounts.
type BillingSummary struct {
	Invoiced    decimal.Decimal `json:"invoiced"`
	Collected   decimal.Decimal `json:"collected"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Pending     int             `json:"pending"`
	Paid        int             `json:"paid"`
	Cancelled   int             `json:"cancelled"`
}

// InsuranceCount is the number of patients of one insurance company. The
// row with a nil ID counts patients without insurance.
type InsuranceCount struct {
	InsuranceCompanyID *uuid.UUID `json:"insurance_company_id"`
	Name               string     `json:"name"`
	Patients           int        `json:"patients"`
}
