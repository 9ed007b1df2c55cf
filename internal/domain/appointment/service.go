package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/consultorio/consultorio/internal/domain"
	"github.com/consultorio/consultorio/internal/platform/db"
)

// DoctorCalendar tells whether a doctor attends on a given day.
type DoctorCalendar interface {
	IsDoctorUnavailable(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error)
}

type Service struct {
	repo     Repository
	tx       db.Transactor
	calendar DoctorCalendar
	now      func() time.Time
}

func NewService(repo Repository, tx db.Transactor, calendar DoctorCalendar) *Service {
	return &Service{repo: repo, tx: tx, calendar: calendar, now: time.Now}
}

var (
	errDoctorUnavailable = domain.Invalid("The doctor is not available on that date.")
	errSlotTaken         = domain.Invalid("The doctor already has an appointment at that time. Tick overbooking to book it anyway.")
	errMissingReference  = domain.Invalid("The selected patient, doctor, room or type no longer exists.")
)

// CheckTransition enforces the status lifecycle: only a scheduled
// appointment may become attended, cancelled or no-show, and the other
// states are final.
func CheckTransition(from, to string) error {
	switch to {
	case StatusAttended, StatusCancelled, StatusNoShow:
	case StatusScheduled:
		if from == StatusScheduled {
			return domain.Invalid("The appointment is already scheduled.")
		}
		return domain.Invalid("A %s appointment cannot be scheduled again.", StatusLabel(from))
	default:
		return domain.Invalid("Status is not valid.")
	}
	if from == to {
		return domain.Invalid("The appointment is already marked as %s.", StatusLabel(to))
	}
	if from != StatusScheduled {
		return domain.Invalid("Only scheduled appointments can change status; this one is %s.", StatusLabel(from))
	}
	return nil
}

// fromForm fills a with the schedule fields of f.
func fromForm(a *Appointment, f Form) error {
	patientID, err := domain.ParseUUID(f.PatientID, "Patient")
	if err != nil {
		return err
	}
	date, err := domain.ParseDate(f.Date, "Date")
	if err != nil {
		return err
	}
	clock, err := domain.ParseClock(f.Time, "Time")
	if err != nil {
		return err
	}
	doctorID, err := domain.ParseOptionalUUID(f.DoctorID, "Doctor")
	if err != nil {
		return err
	}
	roomID, err := domain.ParseOptionalUUID(f.RoomID, "Consulting room")
	if err != nil {
		return err
	}
	typeID, err := domain.ParseOptionalUUID(f.TypeID, "Appointment type")
	if err != nil {
		return err
	}
	a.PatientID = patientID
	a.DoctorID = doctorID
	a.RoomID = roomID
	a.TypeID = typeID
	a.Date = date
	a.Time = clock
	a.Overbooking = domain.ParseBool(f.Overbooking)
	a.Reason = domain.Optional(f.Reason)
	a.Notes = domain.Optional(f.Notes)
	return nil
}

// checkSchedule rejects a doctor's day off and, without overbooking, a slot
// already held by another scheduled appointment. Runs inside the booking
// transaction.
func (s *Service) checkSchedule(ctx context.Context, a *Appointment, excludeID *uuid.UUID) error {
	if a.DoctorID == nil || a.Status != StatusScheduled {
		return nil
	}
	off, err := s.calendar.IsDoctorUnavailable(ctx, *a.DoctorID, a.Date)
	if err != nil {
		return err
	}
	if off {
		return errDoctorUnavailable
	}
	if a.Overbooking {
		return nil
	}
	if err := s.repo.LockSlot(ctx, *a.DoctorID, a.Date); err != nil {
		return err
	}
	taken, err := s.repo.SlotTaken(ctx, *a.DoctorID, a.Date, a.Time, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return errSlotTaken
	}
	return nil
}

func storeError(err error) error {
	if errors.Is(err, db.ErrForeignKey) {
		return errMissingReference
	}
	return err
}

// Create books a new appointment in status scheduled.
func (s *Service) Create(ctx context.Context, f Form) (*Appointment, error) {
	a := &Appointment{Status: StatusScheduled}
	if err := fromForm(a, f); err != nil {
		return nil, err
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.checkSchedule(ctx, a, nil); err != nil {
			return err
		}
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return nil, storeError(err)
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies the edit form. A changed status goes through
// CheckTransition; an unchanged one is left alone.
func (s *Service) Update(ctx context.Context, id uuid.UUID, f Form) (*Appointment, error) {
	var a *Appointment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		a = current
		if err := fromForm(a, f); err != nil {
			return err
		}
		if f.Status != "" && f.Status != a.Status {
			if err := CheckTransition(a.Status, f.Status); err != nil {
				return err
			}
			s.applyStatus(a, f.Status)
		}
		if a.Status == StatusNoShow {
			a.NoShowReason = domain.Optional(f.NoShowReason)
			a.NoShowFollowUp = domain.Optional(f.NoShowFollowUp)
		}
		if err := s.checkSchedule(ctx, a, &a.ID); err != nil {
			return err
		}
		return s.repo.Update(ctx, a)
	})
	if err != nil {
		return nil, storeError(err)
	}
	return a, nil
}

func (s *Service) applyStatus(a *Appointment, status string) {
	a.Status = status
	if status == StatusAttended && a.ReceptionTime == nil {
		now := s.now()
		a.ReceptionTime = &now
	}
}

// transition locks the appointment, checks the move to status, lets edit
// adjust the record and saves it, all in one transaction so concurrent
// transitions see each other's result.
func (s *Service) transition(ctx context.Context, id uuid.UUID, status string, edit func(a *Appointment)) (*Appointment, error) {
	var a *Appointment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := CheckTransition(current.Status, status); err != nil {
			return err
		}
		s.applyStatus(current, status)
		if edit != nil {
			edit(current)
		}
		if err := s.repo.Update(ctx, current); err != nil {
			return err
		}
		a = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// MarkAsAttended records the patient's arrival at the current time.
func (s *Service) MarkAsAttended(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusAttended, nil)
}

// Cancel changes only the status and the notes; patient, doctor, room,
// type, date and time stay as booked.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, f CancelForm) (*Appointment, error) {
	return s.transition(ctx, id, StatusCancelled, func(a *Appointment) {
		if notes := domain.Optional(f.Notes); notes != nil {
			a.Notes = notes
		}
	})
}

func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID, f NoShowForm) (*Appointment, error) {
	return s.transition(ctx, id, StatusNoShow, func(a *Appointment) {
		a.NoShowReason = domain.Optional(f.Reason)
		a.NoShowFollowUp = domain.Optional(f.FollowUp)
	})
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, 0, domain.Invalid("The end date must not be before the start date.")
	}
	if f.Status != "" && StatusLabel(f.Status) == f.Status {
		return nil, 0, domain.Invalid("Status is not valid.")
	}
	return s.repo.List(ctx, f, limit, offset)
}

// Agenda lists one day's appointments by time.
func (s *Service) Agenda(ctx context.Context, date time.Time, doctorID *uuid.UUID) ([]*Appointment, error) {
	return s.repo.Agenda(ctx, date, doctorID)
}

// Today is the local calendar date now, at midnight UTC like DATE columns.
func (s *Service) Today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
