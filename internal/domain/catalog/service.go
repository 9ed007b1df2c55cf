package catalog

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/consultorio/consultorio/internal/domain"
)

type Service struct {
	rooms        RoomRepository
	types        TypeRepository
	insurance    InsuranceRepository
	institutions InstitutionRepository
	phoneRegion  string
}

func NewService(rooms RoomRepository, types TypeRepository, ins InsuranceRepository, inst InstitutionRepository, phoneRegion string) *Service {
	return &Service{rooms: rooms, types: types, insurance: ins, institutions: inst, phoneRegion: phoneRegion}
}

// -- Consulting room --

func (s *Service) roomFromForm(f RoomForm) (*ConsultingRoom, error) {
	name, err := domain.Required(f.Name, "Name")
	if err != nil {
		return nil, err
	}
	return &ConsultingRoom{
		Name:        name,
		Location:    domain.Optional(f.Location),
		Description: domain.Optional(f.Description),
		Active:      domain.ParseBool(f.Active),
	}, nil
}

func (s *Service) CreateRoom(ctx context.Context, f RoomForm) (*ConsultingRoom, error) {
	r, err := s.roomFromForm(f)
	if err != nil {
		return nil, err
	}
	if err := s.rooms.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) GetRoom(ctx context.Context, id uuid.UUID) (*ConsultingRoom, error) {
	return s.rooms.GetByID(ctx, id)
}

func (s *Service) UpdateRoom(ctx context.Context, id uuid.UUID, f RoomForm) (*ConsultingRoom, error) {
	r, err := s.roomFromForm(f)
	if err != nil {
		return nil, err
	}
	r.ID = id
	if err := s.rooms.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	return s.rooms.Delete(ctx, id)
}

func (s *Service) ListRooms(ctx context.Context, q string, limit, offset int) ([]*ConsultingRoom, int, error) {
	return s.rooms.List(ctx, strings.TrimSpace(q), limit, offset)
}

func (s *Service) SearchRooms(ctx context.Context, q string) ([]*ConsultingRoom, error) {
	term, ok := domain.SearchTerm(q, domain.SearchMinLength)
	if !ok {
		return nil, nil
	}
	return s.rooms.Search(ctx, term, domain.SearchLimit)
}

// RoomOptions lists active rooms as select choices.
func (s *Service) RoomOptions(ctx context.Context) ([][2]string, error) {
	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([][2]string, len(rooms))
	for i, r := range rooms {
		opts[i] = [2]string{r.ID.String(), r.Name}
	}
	return opts, nil
}

// -- Appointment type --

func (s *Service) typeFromForm(f TypeForm) (*AppointmentType, error) {
	name, err := domain.Required(f.Name, "Name")
	if err != nil {
		return nil, err
	}
	duration, err := domain.ParsePositiveInt(f.DurationMinutes, "Duration")
	if err != nil {
		return nil, err
	}
	return &AppointmentType{
		Name:            name,
		Description:     domain.Optional(f.Description),
		DurationMinutes: duration,
	}, nil
}

func (s *Service) CreateType(ctx context.Context, f TypeForm) (*AppointmentType, error) {
	t, err := s.typeFromForm(f)
	if err != nil {
		return nil, err
	}
	if err := s.types.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) GetType(ctx context.Context, id uuid.UUID) (*AppointmentType, error) {
	return s.types.GetByID(ctx, id)
}

func (s *Service) UpdateType(ctx context.Context, id uuid.UUID, f TypeForm) (*AppointmentType, error) {
	t, err := s.typeFromForm(f)
	if err != nil {
		return nil, err
	}
	t.ID = id
	if err := s.types.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) DeleteType(ctx context.Context, id uuid.UUID) error {
	return s.types.Delete(ctx, id)
}

func (s *Service) ListTypes(ctx context.Context, q string, limit, offset int) ([]*AppointmentType, int, error) {
	return s.types.List(ctx, strings.TrimSpace(q), limit, offset)
}

func (s *Service) SearchTypes(ctx context.Context, q string) ([]*AppointmentType, error) {
	term, ok := domain.SearchTerm(q, domain.SearchMinLength)
	if !ok {
		return nil, nil
	}
	return s.types.Search(ctx, term, domain.SearchLimit)
}

func (s *Service) TypeOptions(ctx context.Context) ([][2]string, error) {
	types, err := s.types.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([][2]string, len(types))
	for i, t := range types {
		opts[i] = [2]string{t.ID.String(), t.Name}
	}
	return opts, nil
}

// -- Insurance company --

func (s *Service) insuranceFromForm(f InsuranceForm) (*InsuranceCompany, error) {
	name, err := domain.Required(f.Name, "Name")
	if err != nil {
		return nil, err
	}
	phone, err := domain.NormalizePhone(f.Phone, s.phoneRegion, "Phone")
	if err != nil {
		return nil, err
	}
	email, err := domain.NormalizeEmail(f.Email, "E-mail")
	if err != nil {
		return nil, err
	}
	website, err := normalizeWebsite(f.Website)
	if err != nil {
		return nil, err
	}
	return &InsuranceCompany{
		Name:    name,
		Code:    domain.Optional(f.Code),
		Phone:   domain.Optional(phone),
		Email:   domain.Optional(email),
		Website: domain.Optional(website),
		Notes:   domain.Optional(f.Notes),
	}, nil
}

// normalizeWebsite accepts "example.com" and stores "https://example.com".
func normalizeWebsite(value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", nil
	}
	if !strings.Contains(v, "://") {
		v = "https://" + v
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", domain.Invalid("Website is not a valid address.")
	}
	return u.String(), nil
}

func (s *Service) CreateInsurance(ctx context.Context, f InsuranceForm) (*InsuranceCompany, error) {
	ic, err := s.insuranceFromForm(f)
	if err != nil {
		return nil, err
	}
	if err := s.insurance.Create(ctx, ic); err != nil {
		return nil, err
	}
	return ic, nil
}

func (s *Service) GetInsurance(ctx context.Context, id uuid.UUID) (*InsuranceCompany, error) {
	return s.insurance.GetByID(ctx, id)
}

func (s *Service) UpdateInsurance(ctx context.Context, id uuid.UUID, f InsuranceForm) (*InsuranceCompany, error) {
	ic, err := s.insuranceFromForm(f)
	if err != nil {
		return nil, err
	}
	ic.ID = id
	if err := s.insurance.Update(ctx, ic); err != nil {
		return nil, err
	}
	return ic, nil
}

func (s *Service) DeleteInsurance(ctx context.Context, id uuid.UUID) error {
	return s.insurance.Delete(ctx, id)
}

func (s *Service) ListInsurance(ctx context.Context, q string, limit, offset int) ([]*InsuranceCompany, int, error) {
	return s.insurance.List(ctx, strings.TrimSpace(q), limit, offset)
}

func (s *Service) SearchInsurance(ctx context.Context, q string) ([]*InsuranceCompany, error) {
	term, ok := domain.SearchTerm(q, domain.SearchMinLength)
	if !ok {
		return nil, nil
	}
	return s.insurance.Search(ctx, term, domain.SearchLimit)
}

func (s *Service) InsuranceCompanyOptions(ctx context.Context) ([][2]string, error) {
	all, err := s.insurance.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	opts := make([][2]string, len(all))
	for i, ic := range all {
		opts[i] = [2]string{ic.ID.String(), ic.Name}
	}
	return opts, nil
}

// -- Institution --

func (s *Service) institutionFromForm(f InstitutionForm) (*Institution, error) {
	name, err := domain.Required(f.Name, "Name")
	if err != nil {
		return nil, err
	}
	phone, err := domain.NormalizePhone(f.Phone, s.phoneRegion, "Phone")
	if err != nil {
		return nil, err
	}
	email, err := domain.NormalizeEmail(f.Email, "E-mail")
	if err != nil {
		return nil, err
	}
	return &Institution{
		Name:    name,
		Address: domain.Optional(f.Address),
		Phone:   domain.Optional(phone),
		Email:   domain.Optional(email),
		Notes:   domain.Optional(f.Notes),
	}, nil
}

func (s *Service) CreateInstitution(ctx context.Context, f InstitutionForm) (*Institution, error) {
	i, err := s.institutionFromForm(f)
	if err != nil {
		return nil, err
	}
	if err := s.institutions.Create(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

func (s *Service) GetInstitution(ctx context.Context, id uuid.UUID) (*Institution, error) {
	return s.institutions.GetByID(ctx, id)
}

func (s *Service) UpdateInstitution(ctx context.Context, id uuid.UUID, f InstitutionForm) (*Institution, error) {
	i, err := s.institutionFromForm(f)
	if err != nil {
		return nil, err
	}
	i.ID = id
	if err := s.institutions.Update(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

func (s *Service) DeleteInstitution(ctx context.Context, id uuid.UUID) error {
	return s.institutions.Delete(ctx, id)
}

func (s *Service) ListInstitutions(ctx context.Context, q string, limit, offset int) ([]*Institution, int, error) {
	return s.institutions.List(ctx, strings.TrimSpace(q), limit, offset)
}

func (s *Service) SearchInstitutions(ctx context.Context, q string) ([]*Institution, error) {
	term, ok := domain.SearchTerm(q, domain.SearchMinLength)
	if !ok {
		return nil, nil
	}
	return s.institutions.Search(ctx, term, domain.SearchLimit)
}

func (s *Service) AddUnavailableDay(ctx context.Context, institutionID uuid.UUID, f UnavailableDayForm) (*UnavailableDay, error) {
	date, err := domain.ParseDate(f.Date, "Date")
	if err != nil {
		return nil, err
	}
	if _, err := s.institutions.GetByID(ctx, institutionID); err != nil {
		return nil, err
	}
	d := &UnavailableDay{InstitutionID: institutionID, Date: date, Reason: domain.Optional(f.Reason)}
	if err := s.institutions.AddUnavailableDay(ctx, d); err != nil {
		return nil, domain.MissingReference(err, "institution")
	}
	return d, nil
}

func (s *Service) RemoveUnavailableDay(ctx context.Context, institutionID, dayID uuid.UUID) error {
	return s.institutions.RemoveUnavailableDay(ctx, institutionID, dayID)
}

// ListUnavailableDays returns the institution's closures between from and to
// inclusive; nil bounds are open.
func (s *Service) ListUnavailableDays(ctx context.Context, institutionID uuid.UUID, from, to *time.Time) ([]*UnavailableDay, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.Invalid("The end date must not be before the start date.")
	}
	return s.institutions.ListUnavailableDays(ctx, institutionID, from, to)
}
