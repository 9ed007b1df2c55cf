package patient

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/consultorio/consultorio/internal/domain"
)

type Service struct {
	repo        Repository
	phoneRegion string
	now         func() time.Time
}

func NewService(repo Repository, phoneRegion string) *Service {
	return &Service{repo: repo, phoneRegion: phoneRegion, now: time.Now}
}

var documentCleaner = strings.NewReplacer(".", "", " ", "", "-", "")

// NormalizeDocument strips the separators people type into document
// numbers ("30.111.222" is stored as "30111222").
func NormalizeDocument(value string) string {
	return strings.ToUpper(documentCleaner.Replace(strings.TrimSpace(value)))
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func (s *Service) fromForm(f Form) (*Patient, error) {
	first, err := domain.Required(f.FirstName, "First name")
	if err != nil {
		return nil, err
	}
	last, err := domain.Required(f.LastName, "Last name")
	if err != nil {
		return nil, err
	}
	doc := NormalizeDocument(f.DocumentNumber)
	if doc == "" {
		return nil, domain.Invalid("Document number is required.")
	}
	if len(doc) > 20 || !isAlphanumeric(doc) {
		return nil, domain.Invalid("Document number may only contain letters and digits (at most 20).")
	}
	birth, err := domain.ParseOptionalDate(f.BirthDate, "Birth date")
	if err != nil {
		return nil, err
	}
	if birth != nil && birth.After(s.now()) {
		return nil, domain.Invalid("Birth date cannot be in the future.")
	}
	gender := domain.Optional(f.Gender)
	if gender != nil && !validGender(*gender) {
		return nil, domain.Invalid("Gender is not valid.")
	}
	phone, err := domain.NormalizePhone(f.Phone, s.phoneRegion, "Phone")
	if err != nil {
		return nil, err
	}
	email, err := domain.NormalizeEmail(f.Email, "E-mail")
	if err != nil {
		return nil, err
	}
	insuranceID, err := domain.ParseOptionalUUID(f.InsuranceCompanyID, "Insurance company")
	if err != nil {
		return nil, err
	}
	p := &Patient{
		FirstName:           first,
		LastName:            last,
		DocumentNumber:      doc,
		BirthDate:           birth,
		Gender:              gender,
		Phone:               domain.Optional(phone),
		Email:               domain.Optional(email),
		Address:             domain.Optional(f.Address),
		MedicalRecordNumber: domain.Optional(f.MedicalRecordNumber),
		InsuranceCompanyID:  insuranceID,
		Notes:               domain.Optional(f.Notes),
	}
	// Plan and affiliate number only mean something with a company.
	if insuranceID != nil {
		p.InsurancePlan = domain.Optional(f.InsurancePlan)
		p.AffiliateNumber = domain.Optional(f.AffiliateNumber)
	}
	return p, nil
}

func validGender(g string) bool {
	for _, pair := range Genders {
		if pair[0] == g {
			return true
		}
	}
	return false
}

func (s *Service) Create(ctx context.Context, f Form) (*Patient, error) {
	p, err := s.fromForm(f)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, domain.MissingReference(err, "insurance company")
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, f Form) (*Patient, error) {
	p, err := s.fromForm(f)
	if err != nil {
		return nil, err
	}
	p.ID = id
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, domain.MissingReference(err, "insurance company")
	}
	return p, nil
}

// Delete removes the patient together with their appointments.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	f.Query = strings.TrimSpace(f.Query)
	return s.repo.List(ctx, f, limit, offset)
}

// Search matches first or last name. Fewer than two characters return
// nothing.
func (s *Service) Search(ctx context.Context, q string) ([]*Patient, error) {
	term, ok := domain.SearchTerm(q, domain.SearchMinLength)
	if !ok {
		return nil, nil
	}
	return s.repo.SearchByName(ctx, term, domain.SearchLimit)
}

// SearchByDocument matches document numbers from the first character.
func (s *Service) SearchByDocument(ctx context.Context, q string) ([]*Patient, error) {
	term, ok := domain.SearchTerm(NormalizeDocument(q), domain.DocumentSearchMinLength)
	if !ok {
		return nil, nil
	}
	return s.repo.SearchByDocument(ctx, term, domain.SearchLimit)
}

// Suggest backs the patient picker: digits search by document, anything
// else by name.
func (s *Service) Suggest(ctx context.Context, q string) ([]Suggestion, error) {
	var (
		found []*Patient
		err   error
	)
	if looksLikeDocument(q) {
		found, err = s.SearchByDocument(ctx, q)
	} else {
		found, err = s.Search(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	out := make([]Suggestion, len(found))
	for i, p := range found {
		out[i] = Suggestion{ID: p.ID, Label: p.Label()}
	}
	return out, nil
}

func looksLikeDocument(q string) bool {
	q = NormalizeDocument(q)
	if q == "" {
		return false
	}
	for _, r := range q {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// PatientLabel names a patient for forms that reference one.
func (s *Service) PatientLabel(ctx context.Context, id uuid.UUID) (string, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Label(), nil
}
