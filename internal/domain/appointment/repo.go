package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetForUpdate reads the appointment and row-locks it until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error)

	// Agenda returns every appointment on date ordered by time, optionally
	// for one doctor.
	Agenda(ctx context.Context, date time.Time, doctorID *uuid.UUID) ([]*Appointment, error)

	// SlotTaken reports whether a scheduled appointment other than
	// excludeID holds the doctor at date and clock.
	SlotTaken(ctx context.Context, doctorID uuid.UUID, date time.Time, clock string, excludeID *uuid.UUID) (bool, error)

	// LockSlot serialises bookings for one doctor and day until the
	// surrounding transaction ends.
	LockSlot(ctx context.Context, doctorID uuid.UUID, date time.Time) error
}
