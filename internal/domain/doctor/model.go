// Package doctor manages the clinic's doctors, their attention hours and the
// days they do not attend.
package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Doctor maps to the doctor table. Attention hours are "HH:MM" strings.
type Doctor struct {
	ID             uuid.UUID `db:"id" json:"id"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	DocumentNumber *string   `db:"document_number" json:"document_number,omitempty"`
	LicenseNumber  string    `db:"license_number" json:"license_number"`
	Specialty      *string   `db:"specialty" json:"specialty,omitempty"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Email          *string   `db:"email" json:"email,omitempty"`
	AttentionStart *string   `db:"attention_start" json:"attention_start,omitempty"`
	AttentionEnd   *string   `db:"attention_end" json:"attention_end,omitempty"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// FullName is "Last, First".
func (d *Doctor) FullName() string {
	return d.LastName + ", " + d.FirstName
}

// AttentionHours renders "09:00 - 13:00", or "" when unset.
func (d *Doctor) AttentionHours() string {
	if d.AttentionStart == nil && d.AttentionEnd == nil {
		return ""
	}
	start, end := "?", "?"
	if d.AttentionStart != nil {
		start = *d.AttentionStart
	}
	if d.AttentionEnd != nil {
		end = *d.AttentionEnd
	}
	return start + " - " + end
}

// UnavailableDay is a date on which the doctor does not attend.
type UnavailableDay struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      time.Time `db:"date" json:"date"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Filter narrows the doctor listing.
type Filter struct {
	Query      string
	ActiveOnly bool
}

type Form struct {
	FirstName      string `form:"first_name"`
	LastName       string `form:"last_name"`
	DocumentNumber string `form:"document_number"`
	LicenseNumber  string `form:"license_number"`
	Specialty      string `form:"specialty"`
	Phone          string `form:"phone"`
	Email          string `form:"email"`
	AttentionStart string `form:"attention_start"`
	AttentionEnd   string `form:"attention_end"`
	Active         string `form:"active"`
}

type UnavailableDayForm struct {
	Date   string `form:"date"`
	Reason string `form:"reason"`
}
