package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/consultorio/consultorio/internal/domain"
	"github.com/consultorio/consultorio/internal/domain/appointment"
)

// AgendaSource lists one day's appointments.
type AgendaSource interface {
	Agenda(ctx context.Context, date time.Time, doctorID *uuid.UUID) ([]*appointment.Appointment, error)
}

// maxRangeDays bounds ranged reports to about a year.
const maxRangeDays = 366

type Service struct {
	repo   Repository
	agenda AgendaSource
	now    func() time.Time
}

func NewService(repo Repository, agenda AgendaSource) *Service {
	return &Service{repo: repo, agenda: agenda, now: time.Now}
}

func (s *Service) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ResolveRange fills in missing bounds and checks the span. A missing end is
// today, or the start when that lies in the future; a missing start is the
// first of the end's month.
func (s *Service) ResolveRange(from, to *time.Time) (Range, error) {
	var r Range
	switch {
	case to != nil:
		r.To = *to
	case from != nil && from.After(s.today()):
		r.To = *from
	default:
		r.To = s.today()
	}
	if from != nil {
		r.From = *from
	} else {
		r.From = time.Date(r.To.Year(), r.To.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if r.To.Before(r.From) {
		return r, domain.Invalid("The end date must not be before the start date.")
	}
	if r.To.Sub(r.From) > maxRangeDays*24*time.Hour {
		return r, domain.Invalid("A report can cover at most %d days.", maxRangeDays)
	}
	return r, nil
}

func (s *Service) AppointmentSummary(ctx context.Context, r Range) ([]DoctorSummary, error) {
	return s.repo.AppointmentSummary(ctx, r)
}

// Agenda lists the appointments of date, today when nil.
func (s *Service) Agenda(ctx context.Context, date *time.Time, doctorID *uuid.UUID) (time.Time, []*appointment.Appointment, error) {
	day := s.today()
	if date != nil {
		day = *date
	}
	items, err := s.agenda.Agenda(ctx, day, doctorID)
	return day, items, err
}

func (s *Service) BillingSummary(ctx context.Context, r Range) (*BillingSummary, error) {
	return s.repo.BillingSummary(ctx, r)
}

func (s *Service) PatientsPerInsurance(ctx context.Context) ([]InsuranceCount, error) {
	return s.repo.PatientsPerInsurance(ctx)
}

// Envelope wraps results for the JSON API.
func (s *Service) Envelope(id string, params map[string]string, results interface{}) Report {
	rep := Report{ID: id, GeneratedAt: s.now().UTC(), Parameters: params, Results: results}
	if def := FindDefinition(id); def != nil {
		rep.Name = def.Name
	}
	return rep
}
