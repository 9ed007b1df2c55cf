//go:build integration

package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/consultorio/consultorio/internal/domain/appointment"
	"github.com/consultorio/consultorio/internal/domain/catalog"
	"github.com/consultorio/consultorio/internal/domain/doctor"
	"github.com/consultorio/consultorio/internal/domain/patient"
	"github.com/consultorio/consultorio/internal/platform/db"
)

func TestPatient_DuplicateDocument(t *testing.T) {
	pool := newSchema(t)
	createPatient(t, pool, "Juan", "Pérez", "30111222")

	_, err := patient.NewService(patient.NewRepoPG(pool), "AR").Create(context.Background(), patient.Form{
		FirstName: "Otro", LastName: "Pérez", DocumentNumber: "30111222",
	})
	if !errors.Is(err, db.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if col, ok := db.DuplicateColumn(err); !ok || col != "document_number" {
		t.Errorf("expected document_number column, got %q", col)
	}
}

func TestPatient_SearchAndLabel(t *testing.T) {
	pool := newSchema(t)
	svc := patient.NewService(patient.NewRepoPG(pool), "AR")
	p := createPatient(t, pool, "María", "Núñez", "27999888")
	createPatient(t, pool, "Pedro", "Gómez", "20111333")

	found, err := svc.Search(context.Background(), "Núñez")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || found[0].ID != p.ID {
		t.Fatalf("expected only Núñez, got %d results", len(found))
	}

	label, err := svc.PatientLabel(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("PatientLabel: %v", err)
	}
	if label != "Núñez, María (27999888)" {
		t.Errorf("unexpected label %q", label)
	}
}

func TestDoctor_DeleteWithAppointments(t *testing.T) {
	ctx := context.Background()
	pool := newSchema(t)
	p := createPatient(t, pool, "Juan", "Pérez", "30111222")
	d := createDoctor(t, pool, "López")

	doctors := doctor.NewService(doctor.NewRepoPG(pool), "AR")
	appts := appointment.NewService(appointment.NewRepoPG(pool), db.NewTransactor(pool), doctors)
	if _, err := appts.Create(ctx, appointment.Form{
		PatientID: p.ID.String(),
		DoctorID:  d.ID.String(),
		Date:      "2026-03-10",
		Time:      "10:00",
	}); err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	if err := doctors.Delete(ctx, d.ID); !errors.Is(err, db.ErrForeignKey) {
		t.Fatalf("expected foreign key error, got %v", err)
	}
}

func TestCatalog_DeleteRoomAndTypeWithAppointments(t *testing.T) {
	ctx := context.Background()
	pool := newSchema(t)
	p := createPatient(t, pool, "Juan", "Pérez", "30111222")
	cat := newCatalog(pool)

	room, err := cat.CreateRoom(ctx, catalog.RoomForm{Name: "Consultorio 1", Active: "on"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	typ, err := cat.CreateType(ctx, catalog.TypeForm{Name: "Primera vez", DurationMinutes: "30"})
	if err != nil {
		t.Fatalf("create type: %v", err)
	}

	doctors := doctor.NewService(doctor.NewRepoPG(pool), "AR")
	appts := appointment.NewService(appointment.NewRepoPG(pool), db.NewTransactor(pool), doctors)
	if _, err := appts.Create(ctx, appointment.Form{
		PatientID: p.ID.String(),
		RoomID:    room.ID.String(),
		TypeID:    typ.ID.String(),
		Date:      "2026-03-10",
		Time:      "10:00",
	}); err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	if err := cat.DeleteRoom(ctx, room.ID); !errors.Is(err, db.ErrForeignKey) {
		t.Errorf("expected foreign key error deleting the room, got %v", err)
	}
	if err := cat.DeleteType(ctx, typ.ID); !errors.Is(err, db.ErrForeignKey) {
		t.Errorf("expected foreign key error deleting the type, got %v", err)
	}
}

func TestAppointment_ConcurrentTransitions(t *testing.T) {
	ctx := context.Background()
	pool := newSchema(t)
	p := createPatient(t, pool, "Juan", "Pérez", "30111222")

	doctors := doctor.NewService(doctor.NewRepoPG(pool), "AR")
	appts := appointment.NewService(appointment.NewRepoPG(pool), db.NewTransactor(pool), doctors)
	a, err := appts.Create(ctx, appointment.Form{PatientID: p.ID.String(), Date: "2026-03-10", Time: "09:30"})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = appts.MarkAsAttended(ctx, a.ID)
			} else {
				_, err = appts.Cancel(ctx, a.ID, appointment.CancelForm{Notes: "Called"})
			}
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one transition to succeed, got %d", wins)
	}
	got, err := appts.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if (got.Status == appointment.StatusAttended) != (got.ReceptionTime != nil) {
		t.Errorf("status %s does not match reception time", got.Status)
	}
}

func TestPatient_DeleteCascadesAppointments(t *testing.T) {
	ctx := context.Background()
	pool := newSchema(t)
	p := createPatient(t, pool, "Juan", "Pérez", "30111222")

	doctors := doctor.NewService(doctor.NewRepoPG(pool), "AR")
	appts := appointment.NewService(appointment.NewRepoPG(pool), db.NewTransactor(pool), doctors)
	a, err := appts.Create(ctx, appointment.Form{PatientID: p.ID.String(), Date: "2026-03-10", Time: "09:30"})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	if err := patient.NewService(patient.NewRepoPG(pool), "AR").Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete patient: %v", err)
	}
	if _, err := appts.Get(ctx, a.ID); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected appointment to be gone, got %v", err)
	}
}

func TestAppointment_SlotTaken(t *testing.T) {
	ctx := context.Background()
	pool := newSchema(t)
	p := createPatient(t, pool, "Juan", "Pérez", "30111222")
	d := createDoctor(t, pool, "López")

	doctors := doctor.NewService(doctor.NewRepoPG(pool), "AR")
	appts := appointment.NewService(appointment.NewRepoPG(pool), db.NewTransactor(pool), doctors)
	form := appointment.Form{PatientID: p.ID.String(), DoctorID: d.ID.String(), Date: "2026-03-10", Time: "11:00"}
	if _, err := appts.Create(ctx, form); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	if _, err := appts.Create(ctx, form); err == nil {
		t.Fatal("expected the second booking of the slot to fail")
	}

	form.Overbooking = "on"
	if _, err := appts.Create(ctx, form); err != nil {
		t.Fatalf("overbooking should be accepted: %v", err)
	}
}

func TestCatalog_InsuranceDuplicateName(t *testing.T) {
	ctx := context.Background()
	svc := newCatalog(newSchema(t))
	if _, err := svc.CreateInsurance(ctx, catalog.InsuranceForm{Name: "OSDE"}); err != nil {
		t.Fatalf("create insurance: %v", err)
	}
	if _, err := svc.CreateInsurance(ctx, catalog.InsuranceForm{Name: "OSDE"}); err == nil {
		t.Fatal("expected duplicate insurance name to fail")
	}
}
