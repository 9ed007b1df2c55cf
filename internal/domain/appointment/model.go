// Package appointment schedules patients with doctors and moves each
// appointment through its status lifecycle.
package appointment

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "scheduled"
	StatusAttended  = "attended"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// Statuses pairs each status with its label, in lifecycle order.
var Statuses = [][2]string{
	{StatusScheduled, "Scheduled"},
	{StatusAttended, "Attended"},
	{StatusCancelled, "Cancelled"},
	{StatusNoShow, "No show"},
}

// StatusLabel returns the display label of status.
func StatusLabel(status string) string {
	for _, s := range Statuses {
		if s[0] == status {
			return s[1]
		}
	}
	return status
}

// Appointment maps to the appointment table. Time is "HH:MM".
type Appointment struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID       *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	RoomID         *uuid.UUID `db:"room_id" json:"room_id,omitempty"`
	TypeID         *uuid.UUID `db:"type_id" json:"type_id,omitempty"`
	Date           time.Time  `db:"date" json:"date"`
	Time           string     `db:"time" json:"time"`
	Status         string     `db:"status" json:"status"`
	Overbooking    bool       `db:"overbooking" json:"overbooking"`
	Reason         *string    `db:"reason" json:"reason,omitempty"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	ReceptionTime  *time.Time `db:"reception_time" json:"reception_time,omitempty"`
	NoShowReason   *string    `db:"no_show_reason" json:"no_show_reason,omitempty"`
	NoShowFollowUp *string    `db:"no_show_follow_up" json:"no_show_follow_up,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`

	// Read-only, joined for listings.
	PatientName     string  `db:"patient_name" json:"patient_name"`
	PatientDocument string  `db:"patient_document" json:"patient_document"`
	DoctorName      *string `db:"doctor_name" json:"doctor_name,omitempty"`
	RoomName        *string `db:"room_name" json:"room_name,omitempty"`
	TypeName        *string `db:"type_name" json:"type_name,omitempty"`
}

// Filter narrows the appointment listing. Nil or empty fields do not filter.
type Filter struct {
	From      *time.Time
	To        *time.Time
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Status    string
}

// Form is the booking and edit form. Status and the no-show fields are only
// read on edit.
type Form struct {
	PatientID      string `form:"patient_id"`
	DoctorID       string `form:"doctor_id"`
	RoomID         string `form:"room_id"`
	TypeID         string `form:"type_id"`
	Date           string `form:"date"`
	Time           string `form:"time"`
	Overbooking    string `form:"overbooking"`
	Reason         string `form:"reason"`
	Notes          string `form:"notes"`
	Status         string `form:"status"`
	NoShowReason   string `form:"no_show_reason"`
	NoShowFollowUp string `form:"no_show_follow_up"`
}

type CancelForm struct {
	Notes string `form:"notes"`
}

type NoShowForm struct {
	Reason   string `form:"no_show_reason"`
	FollowUp string `form:"no_show_follow_up"`
}
