package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/consultorio/consultorio/internal/domain"
	"github.com/consultorio/consultorio/internal/platform/db"
)

// -- Mock Repositories --

type mockRoomRepo struct {
	rooms       map[uuid.UUID]*ConsultingRoom
	searchCalls int
	deleteErr   error
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{rooms: make(map[uuid.UUID]*ConsultingRoom)}
}

func (m *mockRoomRepo) Create(_ context.Context, r *ConsultingRoom) error {
	for _, existing := range m.rooms {
		if existing.Name == r.Name {
			return &db.ConstraintError{Kind: db.ErrDuplicate, Table: "consulting_room", Column: "name"}
		}
	}
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.rooms[r.ID] = r
	return nil
}

func (m *mockRoomRepo) GetByID(_ context.Context, id uuid.UUID) (*ConsultingRoom, error) {
	r, ok := m.rooms[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return r, nil
}

func (m *mockRoomRepo) Update(_ context.Context, r *ConsultingRoom) error {
	if _, ok := m.rooms[r.ID]; !ok {
		return db.ErrNotFound
	}
	m.rooms[r.ID] = r
	return nil
}

func (m *mockRoomRepo) Delete(_ context.Context, id uuid.UUID) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.rooms[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.rooms, id)
	return nil
}

func (m *mockRoomRepo) List(_ context.Context, q string, limit, offset int) ([]*ConsultingRoom, int, error) {
	var result []*ConsultingRoom
	for _, r := range m.rooms {
		if q == "" || strings.Contains(strings.ToLower(r.Name), strings.ToLower(q)) {
			result = append(result, r)
		}
	}
	return result, len(result), nil
}

func (m *mockRoomRepo) Search(ctx context.Context, q string, limit int) ([]*ConsultingRoom, error) {
	m.searchCalls++
	result, _, _ := m.List(ctx, q, limit, 0)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockRoomRepo) ListActive(_ context.Context) ([]*ConsultingRoom, error) {
	var result []*ConsultingRoom
	for _, r := range m.rooms {
		if r.Active {
			result = append(result, r)
		}
	}
	return result, nil
}

type mockTypeRepo struct {
	types map[uuid.UUID]*AppointmentType
}

func newMockTypeRepo() *mockTypeRepo {
	return &mockTypeRepo{types: make(map[uuid.UUID]*AppointmentType)}
}

func (m *mockTypeRepo) Create(_ context.Context, t *AppointmentType) error {
	t.ID = uuid.New()
	m.types[t.ID] = t
	return nil
}

func (m *mockTypeRepo) GetByID(_ context.Context, id uuid.UUID) (*AppointmentType, error) {
	t, ok := m.types[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return t, nil
}

func (m *mockTypeRepo) Update(_ context.Context, t *AppointmentType) error {
	m.types[t.ID] = t
	return nil
}

func (m *mockTypeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.types, id)
	return nil
}

func (m *mockTypeRepo) List(_ context.Context, _ string, limit, offset int) ([]*AppointmentType, int, error) {
	var result []*AppointmentType
	for _, t := range m.types {
		result = append(result, t)
	}
	return result, len(result), nil
}

func (m *mockTypeRepo) Search(ctx context.Context, q string, limit int) ([]*AppointmentType, error) {
	result, _, _ := m.List(ctx, q, limit, 0)
	return result, nil
}

func (m *mockTypeRepo) ListAll(ctx context.Context) ([]*AppointmentType, error) {
	result, _, _ := m.List(ctx, "", 0, 0)
	return result, nil
}

type mockInsuranceRepo struct {
	companies   map[uuid.UUID]*InsuranceCompany
	searchCalls int
}

func newMockInsuranceRepo() *mockInsuranceRepo {
	return &mockInsuranceRepo{companies: make(map[uuid.UUID]*InsuranceCompany)}
}

func (m *mockInsuranceRepo) Create(_ context.Context, ic *InsuranceCompany) error {
	ic.ID = uuid.New()
	m.companies[ic.ID] = ic
	return nil
}

func (m *mockInsuranceRepo) GetByID(_ context.Context, id uuid.UUID) (*InsuranceCompany, error) {
	ic, ok := m.companies[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return ic, nil
}

func (m *mockInsuranceRepo) Update(_ context.Context, ic *InsuranceCompany) error {
	m.companies[ic.ID] = ic
	return nil
}

func (m *mockInsuranceRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.companies, id)
	return nil
}

func (m *mockInsuranceRepo) List(_ context.Context, _ string, limit, offset int) ([]*InsuranceCompany, int, error) {
	var result []*InsuranceCompany
	for _, ic := range m.companies {
		result = append(result, ic)
	}
	return result, len(result), nil
}

func (m *mockInsuranceRepo) Search(ctx context.Context, q string, limit int) ([]*InsuranceCompany, error) {
	m.searchCalls++
	result, _, _ := m.List(ctx, q, limit, 0)
	return result, nil
}

func (m *mockInsuranceRepo) ListAll(ctx context.Context) ([]*InsuranceCompany, error) {
	result, _, _ := m.List(ctx, "", 0, 0)
	return result, nil
}

type mockInstitutionRepo struct {
	institutions map[uuid.UUID]*Institution
	days         map[uuid.UUID]*UnavailableDay
}

func newMockInstitutionRepo() *mockInstitutionRepo {
	return &mockInstitutionRepo{
		institutions: make(map[uuid.UUID]*Institution),
		days:         make(map[uuid.UUID]*UnavailableDay),
	}
}

func (m *mockInstitutionRepo) Create(_ context.Context, i *Institution) error {
	i.ID = uuid.New()
	m.institutions[i.ID] = i
	return nil
}

func (m *mockInstitutionRepo) GetByID(_ context.Context, id uuid.UUID) (*Institution, error) {
	i, ok := m.institutions[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return i, nil
}

func (m *mockInstitutionRepo) Update(_ context.Context, i *Institution) error {
	m.institutions[i.ID] = i
	return nil
}

func (m *mockInstitutionRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.institutions, id)
	return nil
}

func (m *mockInstitutionRepo) List(_ context.Context, _ string, limit, offset int) ([]*Institution, int, error) {
	var result []*Institution
	for _, i := range m.institutions {
		result = append(result, i)
	}
	return result, len(result), nil
}

func (m *mockInstitutionRepo) Search(ctx context.Context, q string, limit int) ([]*Institution, error) {
	result, _, _ := m.List(ctx, q, limit, 0)
	return result, nil
}

func (m *mockInstitutionRepo) AddUnavailableDay(_ context.Context, d *UnavailableDay) error {
	for _, existing := range m.days {
		if existing.InstitutionID == d.InstitutionID && existing.Date.Equal(d.Date) {
			return &db.ConstraintError{Kind: db.ErrDuplicate, Table: "institution_unavailable_day",
				Constraint: "institution_unavailable_day_institution_id_date_key"}
		}
	}
	d.ID = uuid.New()
	m.days[d.ID] = d
	return nil
}

func (m *mockInstitutionRepo) RemoveUnavailableDay(_ context.Context, institutionID, dayID uuid.UUID) error {
	d, ok := m.days[dayID]
	if !ok || d.InstitutionID != institutionID {
		return db.ErrNotFound
	}
	delete(m.days, dayID)
	return nil
}

func (m *mockInstitutionRepo) ListUnavailableDays(_ context.Context, institutionID uuid.UUID, from, to *time.Time) ([]*UnavailableDay, error) {
	var result []*UnavailableDay
	for _, d := range m.days {
		if d.InstitutionID != institutionID {
			continue
		}
		if from != nil && d.Date.Before(*from) {
			continue
		}
		if to != nil && d.Date.After(*to) {
			continue
		}
		result = append(result, d)
	}
	return result, nil
}

type testRepos struct {
	rooms        *mockRoomRepo
	types        *mockTypeRepo
	insurance    *mockInsuranceRepo
	institutions *mockInstitutionRepo
}

func newTestService() (*Service, testRepos) {
	r := testRepos{
		rooms:        newMockRoomRepo(),
		types:        newMockTypeRepo(),
		insurance:    newMockInsuranceRepo(),
		institutions: newMockInstitutionRepo(),
	}
	return NewService(r.rooms, r.types, r.insurance, r.institutions, "AR"), r
}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	ve, ok := domain.AsValidation(err)
	if !ok {
		t.Fatalf("expected a validation error, got %v", err)
	}
	return ve.Message
}

// -- Consulting room --

func TestService_CreateRoom(t *testing.T) {
	svc, _ := newTestService()
	r, err := svc.CreateRoom(context.Background(), RoomForm{Name: "  Consultorio 1 ", Location: "Planta baja", Active: "on"})
	if err != nil {
		t.Fatalf("CreateRoom() error: %v", err)
	}
	if r.Name != "Consultorio 1" {
		t.Errorf("expected trimmed name, got %q", r.Name)
	}
	if !r.Active || r.Description != nil {
		t.Errorf("unexpected room: %+v", r)
	}
}

func TestService_CreateRoom_NameRequired(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateRoom(context.Background(), RoomForm{Name: "  "})
	if msg := validationMessage(t, err); msg != "Name is required." {
		t.Errorf("unexpected message: %q", msg)
	}
}

func TestService_CreateRoom_Duplicate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.CreateRoom(ctx, RoomForm{Name: "A"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.CreateRoom(ctx, RoomForm{Name: "A"})
	if !errors.Is(err, db.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestService_UpdateRoom_NotFound(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.UpdateRoom(context.Background(), uuid.New(), RoomForm{Name: "X"})
	if !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_DeleteRoom_ForeignKey(t *testing.T) {
	svc, repos := newTestService()
	r, _ := svc.CreateRoom(context.Background(), RoomForm{Name: "A"})
	repos.rooms.deleteErr = &db.ConstraintError{Kind: db.ErrForeignKey, Table: "appointment"}

	err := svc.DeleteRoom(context.Background(), r.ID)
	if !errors.Is(err, db.ErrForeignKey) {
		t.Fatalf("expected foreign key error, got %v", err)
	}
}

func TestService_SearchRooms_MinLength(t *testing.T) {
	svc, repos := newTestService()
	ctx := context.Background()
	svc.CreateRoom(ctx, RoomForm{Name: "Box"})

	got, err := svc.SearchRooms(ctx, "B")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v, %v", got, err)
	}
	if repos.rooms.searchCalls != 0 {
		t.Error("a short query must not reach the store")
	}

	got, _ = svc.SearchRooms(ctx, "Bo")
	if len(got) != 1 || repos.rooms.searchCalls != 1 {
		t.Errorf("expected one match from one store call, got %d (%d calls)", len(got), repos.rooms.searchCalls)
	}
}

func TestService_RoomOptions_ActiveOnly(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.CreateRoom(ctx, RoomForm{Name: "Open", Active: "on"})
	svc.CreateRoom(ctx, RoomForm{Name: "Closed"})

	opts, err := svc.RoomOptions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 1 || opts[0][1] != "Open" {
		t.Errorf("unexpected options: %v", opts)
	}
}

// -- Appointment type --

func TestService_CreateType_Duration(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		duration string
		wantErr  bool
	}{
		{"30", false},
		{"0", true},
		{"-5", true},
		{"abc", true},
		{"", true},
	}
	for _, tt := range tests {
		_, err := svc.CreateType(ctx, TypeForm{Name: "Consulta " + tt.duration, DurationMinutes: tt.duration})
		if (err != nil) != tt.wantErr {
			t.Errorf("duration %q: error = %v, wantErr %v", tt.duration, err, tt.wantErr)
		}
	}
}

// -- Insurance company --

func TestService_CreateInsurance_Normalizes(t *testing.T) {
	svc, _ := newTestService()
	ic, err := svc.CreateInsurance(context.Background(), InsuranceForm{
		Name:    "OSDE",
		Phone:   "011 4321-0000",
		Email:   "Contacto@OSDE.com.ar",
		Website: "www.osde.com.ar",
	})
	if err != nil {
		t.Fatalf("CreateInsurance() error: %v", err)
	}
	if web := *ic.Website; web != "https://www.osde.com.ar" {
		t.Errorf("unexpected website %q", web)
	}
	if *ic.Email != "contacto@osde.com.ar" {
		t.Errorf("unexpected email %q", *ic.Email)
	}
	if !strings.HasPrefix(*ic.Phone, "+54") {
		t.Errorf("expected E.164 phone, got %q", *ic.Phone)
	}
}

func TestService_CreateInsurance_Invalid(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	tests := []InsuranceForm{
		{Name: ""},
		{Name: "A", Email: "not-an-email"},
		{Name: "A", Phone: "12"},
		{Name: "A", Website: "ftp://files.example.com"},
	}
	for _, f := range tests {
		if _, err := svc.CreateInsurance(ctx, f); err == nil {
			t.Errorf("expected validation error for %+v", f)
		} else {
			validationMessage(t, err)
		}
	}
}

func TestService_SearchInsurance_MinLength(t *testing.T) {
	svc, repos := newTestService()
	got, err := svc.SearchInsurance(context.Background(), " O ")
	if err != nil || got != nil {
		t.Fatalf("expected nil result, got %v, %v", got, err)
	}
	if repos.insurance.searchCalls != 0 {
		t.Error("a short query must not reach the store")
	}
}

// -- Institution --

func TestService_InstitutionUnavailableDays(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	inst, err := svc.CreateInstitution(ctx, InstitutionForm{Name: "Hospital Italiano"})
	if err != nil {
		t.Fatal(err)
	}

	d, err := svc.AddUnavailableDay(ctx, inst.ID, UnavailableDayForm{Date: "2026-12-25", Reason: "Navidad"})
	if err != nil {
		t.Fatalf("AddUnavailableDay() error: %v", err)
	}
	if _, err := svc.AddUnavailableDay(ctx, inst.ID, UnavailableDayForm{Date: "2026-12-25"}); !errors.Is(err, db.ErrDuplicate) {
		t.Errorf("expected duplicate error, got %v", err)
	}
	svc.AddUnavailableDay(ctx, inst.ID, UnavailableDayForm{Date: "2027-01-01"})

	from := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	days, err := svc.ListUnavailableDays(ctx, inst.ID, &from, &to)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 || days[0].ID != d.ID {
		t.Errorf("expected only the December day, got %d days", len(days))
	}

	if err := svc.RemoveUnavailableDay(ctx, inst.ID, d.ID); err != nil {
		t.Fatalf("RemoveUnavailableDay() error: %v", err)
	}
	if err := svc.RemoveUnavailableDay(ctx, uuid.New(), d.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected not found for a removed day, got %v", err)
	}
}

func TestService_AddUnavailableDay_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.AddUnavailableDay(ctx, uuid.New(), UnavailableDayForm{Date: "2026-01-01"}); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected not found for unknown institution, got %v", err)
	}
	inst, _ := svc.CreateInstitution(ctx, InstitutionForm{Name: "Clínica"})
	_, err := svc.AddUnavailableDay(ctx, inst.ID, UnavailableDayForm{Date: "25/12/2026"})
	validationMessage(t, err)
}

func TestService_ListUnavailableDays_InvertedRange(t *testing.T) {
	svc, _ := newTestService()
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	_, err := svc.ListUnavailableDays(context.Background(), uuid.New(), &from, &to)
	validationMessage(t, err)
}
