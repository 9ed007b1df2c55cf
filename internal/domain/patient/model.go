package patient

import (
	"time"

	"github.com/google/uuid"
)

// Genders accepted on the patient form.
var Genders = [][2]string{{"female", "Female"}, {"male", "Male"}, {"other", "Other"}}

// Patient maps to the patient table.
type Patient struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	FirstName           string     `db:"first_name" json:"first_name"`
	LastName            string     `db:"last_name" json:"last_name"`
	DocumentNumber      string     `db:"document_number" json:"document_number"`
	BirthDate           *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender              *string    `db:"gender" json:"gender,omitempty"`
	Phone               *string    `db:"phone" json:"phone,omitempty"`
	Email               *string    `db:"email" json:"email,omitempty"`
	Address             *string    `db:"address" json:"address,omitempty"`
	MedicalRecordNumber *string    `db:"medical_record_number" json:"medical_record_number,omitempty"`
	InsuranceCompanyID  *uuid.UUID `db:"insurance_company_id" json:"insurance_company_id,omitempty"`
	InsurancePlan       *string    `db:"insurance_plan" json:"insurance_plan,omitempty"`
	AffiliateNumber     *string    `db:"affiliate_number" json:"affiliate_number,omitempty"`
	Notes               *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`

	// Read-only, joined from insurance_company.
	InsuranceName *string `db:"insurance_name" json:"insurance_name,omitempty"`
}

// FullName is "Last, First", the order used in every listing.
func (p *Patient) FullName() string {
	return p.LastName + ", " + p.FirstName
}

// Label identifies the patient in pickers: name plus document number.
func (p *Patient) Label() string {
	return p.FullName() + " (" + p.DocumentNumber + ")"
}

// Age in whole years on day now; -1 without a birth date.
func (p *Patient) Age(now time.Time) int {
	if p.BirthDate == nil {
		return -1
	}
	b := *p.BirthDate
	years := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		years--
	}
	return years
}

// Filter narrows the patient listing.
type Filter struct {
	Query              string
	InsuranceCompanyID *uuid.UUID
}

// Suggestion is one autocomplete entry.
type Suggestion struct {
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"`
}

// Form is the submitted patient form.
type Form struct {
	FirstName           string `form:"first_name"`
	LastName            string `form:"last_name"`
	DocumentNumber      string `form:"document_number"`
	BirthDate           string `form:"birth_date"`
	Gender              string `form:"gender"`
	Phone               string `form:"phone"`
	Email               string `form:"email"`
	Address             string `form:"address"`
	MedicalRecordNumber string `form:"medical_record_number"`
	InsuranceCompanyID  string `form:"insurance_company_id"`
	InsurancePlan       string `form:"insurance_plan"`
	AffiliateNumber     string `form:"affiliate_number"`
	Notes               string `form:"notes"`
}
