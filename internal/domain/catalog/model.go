// Package catalog manages the lookup records the rest of the clinic points
// at: consulting rooms, appointment types, insurance companies (obras
// sociales) and institutions.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// ConsultingRoom maps to the consulting_room table.
type ConsultingRoom struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Location    *string   `db:"location" json:"location,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AppointmentType maps to the appointment_type table.
type AppointmentType struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Description     *string   `db:"description" json:"description,omitempty"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// InsuranceCompany maps to the insurance_company table.
type InsuranceCompany struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      *string   `db:"code" json:"code,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Website   *string   `db:"website" json:"website,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Institution maps to the institution table.
type Institution struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   *string   `db:"address" json:"address,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UnavailableDay is a date on which an institution does not operate.
type UnavailableDay struct {
	ID            uuid.UUID `db:"id" json:"id"`
	InstitutionID uuid.UUID `db:"institution_id" json:"institution_id"`
	Date          time.Time `db:"date" json:"date"`
	Reason        *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Form inputs. Every field arrives as submitted text.

type RoomForm struct {
	Name        string `form:"name"`
	Location    string `form:"location"`
	Description string `form:"description"`
	Active      string `form:"active"`
}

type TypeForm struct {
	Name            string `form:"name"`
	Description     string `form:"description"`
	DurationMinutes string `form:"duration_minutes"`
}

type InsuranceForm struct {
	Name    string `form:"name"`
	Code    string `form:"code"`
	Phone   string `form:"phone"`
	Email   string `form:"email"`
	Website string `form:"website"`
	Notes   string `form:"notes"`
}

type InstitutionForm struct {
	Name    string `form:"name"`
	Address string `form:"address"`
	Phone   string `form:"phone"`
	Email   string `form:"email"`
	Notes   string `form:"notes"`
}

type UnavailableDayForm struct {
	Date   string `form:"date"`
	Reason string `form:"reason"`
}
