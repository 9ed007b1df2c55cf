package reporting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/consultorio/consultorio/internal/domain"
	"github.com/consultorio/consultorio/internal/domain/appointment"
	"github.com/consultorio/consultorio/internal/platform/auth"
	"github.com/consultorio/consultorio/internal/platform/web"
)

type mockRepo struct {
	summary   []DoctorSummary
	billing   *BillingSummary
	insurance []InsuranceCount
	lastRange Range
}

func (m *mockRepo) AppointmentSummary(_ context.Context, r Range) ([]DoctorSummary, error) {
	m.lastRange = r
	return m.summary, nil
}

func (m *mockRepo) BillingSummary(_ context.Context, r Range) (*BillingSummary, error) {
	m.lastRange = r
	return m.billing, nil
}

func (m *mockRepo) PatientsPerInsurance(context.Context) ([]InsuranceCount, error) {
	return m.insurance, nil
}

type fakeAgenda struct {
	items    []*appointment.Appointment
	lastDate time.Time
	lastDoc  *uuid.UUID
}

func (f *fakeAgenda) Agenda(_ context.Context, date time.Time, doctorID *uuid.UUID) ([]*appointment.Appointment, error) {
	f.lastDate, f.lastDoc = date, doctorID
	return f.items, nil
}

type stubDoctors struct{}

func (stubDoctors) DoctorOptions(context.Context) ([][2]string, error) {
	return [][2]string{{uuid.NewString(), "Méndez, Laura"}}, nil
}

var fixedNow = time.Date(2026, 5, 20, 14, 0, 0, 0, time.UTC)

func newTestService() (*Service, *mockRepo, *fakeAgenda) {
	repo := &mockRepo{}
	agenda := &fakeAgenda{}
	svc := NewService(repo, agenda)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, agenda
}

func date(s string) *time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestDefinitions(t *testing.T) {
	want := []string{"appointments", "agenda", "billing", "insurance"}
	if len(Definitions) != len(want) {
		t.Fatalf("expected %d reports, got %d", len(want), len(Definitions))
	}
	for i, id := range want {
		if Definitions[i].ID != id || Definitions[i].Name == "" {
			t.Errorf("unexpected definition %d: %+v", i, Definitions[i])
		}
	}
	if FindDefinition("billing") == nil || FindDefinition("nonexistent") != nil {
		t.Error("FindDefinition mismatch")
	}
}

func TestResolveRange(t *testing.T) {
	svc, _, _ := newTestService()

	r, err := svc.ResolveRange(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.From.Equal(*date("2026-05-01")) || !r.To.Equal(*date("2026-05-20")) {
		t.Errorf("expected the current month to date, got %v - %v", r.From, r.To)
	}

	r, err = svc.ResolveRange(date("2026-01-10"), date("2026-01-10"))
	if err != nil || !r.From.Equal(r.To) {
		t.Errorf("expected a single-day range, got %v, %v", r, err)
	}

	r, err = svc.ResolveRange(date("2026-06-01"), nil)
	if err != nil {
		t.Fatalf("a future start without an end must not fail: %v", err)
	}
	if !r.From.Equal(*date("2026-06-01")) || !r.To.Equal(*date("2026-06-01")) {
		t.Errorf("expected the end to default to the start, got %v - %v", r.From, r.To)
	}

	r, err = svc.ResolveRange(date("2026-03-15"), nil)
	if err != nil || !r.To.Equal(*date("2026-05-20")) {
		t.Errorf("expected a past start to run to today, got %v, %v", r, err)
	}

	r, err = svc.ResolveRange(nil, date("2026-02-14"))
	if err != nil || !r.From.Equal(*date("2026-02-01")) {
		t.Errorf("expected the start to default to the first of the end's month, got %v, %v", r, err)
	}

	tests := []struct {
		name     string
		from, to *time.Time
	}{
		{"inverted", date("2026-03-02"), date("2026-03-01")},
		{"too long", date("2024-01-01"), date("2026-01-01")},
		{"too long to today", date("2025-01-01"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.ResolveRange(tt.from, tt.to); err == nil {
				t.Fatal("expected an error")
			} else if _, ok := domain.AsValidation(err); !ok {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestTotals(t *testing.T) {
	rows := []DoctorSummary{
		{DoctorName: "A", Scheduled: 2, Attended: 5, Cancelled: 1},
		{DoctorName: "B", Attended: 1, NoShow: 3},
	}
	got := Totals(rows)
	if got.Scheduled != 2 || got.Attended != 6 || got.Cancelled != 1 || got.NoShow != 3 || got.Total() != 12 {
		t.Errorf("unexpected totals %+v", got)
	}
}

func TestAgenda_DefaultsToToday(t *testing.T) {
	svc, _, agenda := newTestService()
	day, _, err := svc.Agenda(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !day.Equal(*date("2026-05-20")) || !agenda.lastDate.Equal(day) {
		t.Errorf("expected today, got %v", day)
	}
}

// -- Handlers --

func newTestHandler(t *testing.T) (*Handler, *echo.Echo, *mockRepo, *fakeAgenda) {
	t.Helper()
	svc, repo, agenda := newTestService()
	r, err := web.NewRenderer("Test Clinic")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	e := echo.New()
	e.Renderer = r
	e.HTTPErrorHandler = web.HTTPErrorHandler
	h := NewHandler(svc, stubDoctors{}, "$")
	h.RegisterRoutes(e.Group(""))
	return h, e, repo, agenda
}

func get(e *echo.Echo, target, tokenType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(context.WithValue(req.Context(), auth.TokenTypeKey, tokenType))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestReports_RequireAdmin(t *testing.T) {
	_, e, _, _ := newTestHandler(t)
	for _, target := range []string{"/reports/appointments", "/reports/agenda", "/reports/billing", "/reports/insurance", "/api/reports/billing"} {
		if rec := get(e, target, auth.TokenReception); rec.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403, got %d", target, rec.Code)
		}
	}
}

func TestAppointmentsPage(t *testing.T) {
	_, e, repo, _ := newTestHandler(t)
	doctor := uuid.New()
	repo.summary = []DoctorSummary{
		{DoctorID: &doctor, DoctorName: "Méndez, Laura", Attended: 4, NoShow: 1},
		{DoctorName: "", Scheduled: 2},
	}

	rec := get(e, "/reports/appointments?from=2026-04-01&to=2026-04-30", auth.TokenAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Méndez, Laura", "No doctor", "Total", "2026-04-30"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q on the page", want)
		}
	}
	if !repo.lastRange.From.Equal(*date("2026-04-01")) || !repo.lastRange.To.Equal(*date("2026-04-30")) {
		t.Errorf("unexpected range %+v", repo.lastRange)
	}
}

func TestAppointmentsAPI(t *testing.T) {
	_, e, repo, _ := newTestHandler(t)
	repo.summary = nil

	rec := get(e, "/api/reports/appointments", auth.TokenAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got struct {
		Report     string            `json:"report"`
		Parameters map[string]string `json:"parameters"`
		Results    []DoctorSummary   `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Report != "appointments" || got.Parameters["from"] != "2026-05-01" || got.Parameters["to"] != "2026-05-20" {
		t.Errorf("unexpected envelope %+v", got)
	}
	if got.Results == nil || !strings.Contains(rec.Body.String(), `"results":[]`) {
		t.Error("expected an empty array, not null")
	}
}

func TestBillingAPI_InvertedRange(t *testing.T) {
	_, e, _, _ := newTestHandler(t)
	rec := get(e, "/api/reports/billing?from=2026-05-10&to=2026-05-01", auth.TokenAdmin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "end date must not be before") {
		t.Errorf("expected the message in the body, got %s", rec.Body.String())
	}
}

func TestBillingPage(t *testing.T) {
	_, e, repo, _ := newTestHandler(t)
	repo.billing = &BillingSummary{
		Invoiced:    decimal.RequireFromString("3000"),
		Collected:   decimal.RequireFromString("1750.5"),
		Outstanding: decimal.RequireFromString("1249.5"),
		Pending:     2, Paid: 3, Cancelled: 1,
	}
	rec := get(e, "/reports/billing", auth.TokenAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"$ 3000.00", "$ 1750.50", "$ 1249.50", "Cancelled invoices"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q on the page", want)
		}
	}
}

func TestBillingAPI(t *testing.T) {
	_, e, repo, _ := newTestHandler(t)
	repo.billing = &BillingSummary{Invoiced: decimal.NewFromInt(100), Collected: decimal.NewFromInt(40), Outstanding: decimal.NewFromInt(60), Pending: 1}
	rec := get(e, "/api/reports/billing?from=2026-05-01&to=2026-05-31", auth.TokenAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got struct {
		Results BillingSummary `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Results.Outstanding.Equal(decimal.NewFromInt(60)) || got.Results.Pending != 1 {
		t.Errorf("unexpected results %+v", got.Results)
	}
}

func TestInsurancePageAndAPI(t *testing.T) {
	_, e, repo, _ := newTestHandler(t)
	osde := uuid.New()
	repo.insurance = []InsuranceCount{
		{InsuranceCompanyID: &osde, Name: "OSDE", Patients: 12},
		{Name: "", Patients: 4},
	}

	rec := get(e, "/reports/insurance", auth.TokenAdmin)
	body := rec.Body.String()
	if !strings.Contains(body, "OSDE") || !strings.Contains(body, "No insurance") ||
		!strings.Contains(body, "/patients?insurance_company_id="+osde.String()) {
		t.Error("expected both rows and a link to the insured patients")
	}

	rec = get(e, "/api/reports/insurance", auth.TokenAdmin)
	var got struct {
		Results []InsuranceCount `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Results) != 2 || got.Results[0].Patients != 12 || got.Results[1].InsuranceCompanyID != nil {
		t.Errorf("unexpected results %+v", got.Results)
	}
}

func TestAgendaPage(t *testing.T) {
	_, e, _, agenda := newTestHandler(t)
	doctor := "Méndez, Laura"
	agenda.items = []*appointment.Appointment{
		{ID: uuid.New(), Time: "09:30", PatientName: "Pérez, Ana", PatientDocument: "28000111", DoctorName: &doctor, Status: appointment.StatusScheduled},
	}
	doctorID := uuid.New()

	rec := get(e, "/reports/agenda?date=2026-05-22&doctor_id="+doctorID.String(), auth.TokenAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "09:30") || !strings.Contains(body, "Pérez, Ana") || !strings.Contains(body, "22/05/2026") {
		t.Error("expected the appointment and the date on the page")
	}
	if agenda.lastDoc == nil || *agenda.lastDoc != doctorID {
		t.Error("expected the doctor filter to be passed on")
	}

	rec = get(e, "/api/reports/agenda?date=2026-05-22", auth.TokenAdmin)
	if !strings.Contains(rec.Body.String(), `"time":"09:30"`) || !strings.Contains(rec.Body.String(), `"date":"2026-05-22"`) {
		t.Errorf("unexpected agenda JSON %s", rec.Body.String())
	}
}

func TestIndexRedirects(t *testing.T) {
	_, e, _, _ := newTestHandler(t)
	rec := get(e, "/reports", auth.TokenAdmin)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/reports/appointments" {
		t.Fatalf("expected a redirect to the first report, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}
