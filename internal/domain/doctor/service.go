package doctor

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/consultorio/consultorio/internal/domain"
)

type Service struct {
	repo        Repository
	phoneRegion string
}

func NewService(repo Repository, phoneRegion string) *Service {
	return &Service{repo: repo, phoneRegion: phoneRegion}
}

func (s *Service) fromForm(f Form) (*Doctor, error) {
	first, err := domain.Required(f.FirstName, "First name")
	if err != nil {
		return nil, err
	}
	last, err := domain.Required(f.LastName, "Last name")
	if err != nil {
		return nil, err
	}
	license, err := domain.Required(f.LicenseNumber, "License number")
	if err != nil {
		return nil, err
	}
	start, err := domain.ParseOptionalClock(f.AttentionStart, "Attention start")
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseOptionalClock(f.AttentionEnd, "Attention end")
	if err != nil {
		return nil, err
	}
	// "HH:MM" strings compare in clock order.
	if start != "" && end != "" && start >= end {
		return nil, domain.Invalid("Attention start must be before attention end.")
	}
	phone, err := domain.NormalizePhone(f.Phone, s.phoneRegion, "Phone")
	if err != nil {
		return nil, err
	}
	email, err := domain.NormalizeEmail(f.Email, "E-mail")
	if err != nil {
		return nil, err
	}
	return &Doctor{
		FirstName:      first,
		LastName:       last,
		DocumentNumber: domain.Optional(strings.ReplaceAll(f.DocumentNumber, ".", "")),
		LicenseNumber:  license,
		Specialty:      domain.Optional(f.Specialty),
		Phone:          domain.Optional(phone),
		Email:          domain.Optional(email),
		AttentionStart: domain.Optional(start),
		AttentionEnd:   domain.Optional(end),
		Active:         domain.ParseBool(f.Active),
	}, nil
}

func (s *Service) Create(ctx context.Context, f Form) (*Doctor, error) {
	d, err := s.fromForm(f)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, f Form) (*Doctor, error) {
	d, err := s.fromForm(f)
	if err != nil {
		return nil, err
	}
	d.ID = id
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Doctor, int, error) {
	f.Query = strings.TrimSpace(f.Query)
	return s.repo.List(ctx, f, limit, offset)
}

func (s *Service) Search(ctx context.Context, q string) ([]*Doctor, error) {
	term, ok := domain.SearchTerm(q, domain.SearchMinLength)
	if !ok {
		return nil, nil
	}
	return s.repo.Search(ctx, term, domain.SearchLimit)
}

// DoctorOptions lists active doctors as (id, name) pairs for selects.
func (s *Service) DoctorOptions(ctx context.Context) ([][2]string, error) {
	doctors, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([][2]string, len(doctors))
	for i, d := range doctors {
		label := d.FullName()
		if d.Specialty != nil {
			label += " (" + *d.Specialty + ")"
		}
		opts[i] = [2]string{d.ID.String(), label}
	}
	return opts, nil
}

func (s *Service) AddUnavailableDay(ctx context.Context, doctorID uuid.UUID, f UnavailableDayForm) (*UnavailableDay, error) {
	date, err := domain.ParseDate(f.Date, "Date")
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, doctorID); err != nil {
		return nil, err
	}
	d := &UnavailableDay{DoctorID: doctorID, Date: date, Reason: domain.Optional(f.Reason)}
	if err := s.repo.AddUnavailableDay(ctx, d); err != nil {
		return nil, domain.MissingReference(err, "doctor")
	}
	return d, nil
}

func (s *Service) RemoveUnavailableDay(ctx context.Context, doctorID, dayID uuid.UUID) error {
	return s.repo.RemoveUnavailableDay(ctx, doctorID, dayID)
}

// ListUnavailableDays returns the doctor's days off between from and to
// inclusive; nil bounds are open.
func (s *Service) ListUnavailableDays(ctx context.Context, doctorID uuid.UUID, from, to *time.Time) ([]*UnavailableDay, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.Invalid("The end date must not be before the start date.")
	}
	return s.repo.ListUnavailableDays(ctx, doctorID, from, to)
}

// IsDoctorUnavailable reports whether the doctor is marked as not attending
// on date.
func (s *Service) IsDoctorUnavailable(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error) {
	return s.repo.IsUnavailable(ctx, doctorID, date)
}
