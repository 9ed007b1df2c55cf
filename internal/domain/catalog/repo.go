package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RoomRepository interface {
	Create(ctx context.Context, r *ConsultingRoom) error
	GetByID(ctx context.Context, id uuid.UUID) (*ConsultingRoom, error)
	Update(ctx context.Context, r *ConsultingRoom) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q string, limit, offset int) ([]*ConsultingRoom, int, error)
	Search(ctx context.Context, q string, limit int) ([]*ConsultingRoom, error)
	ListActive(ctx context.Context) ([]*ConsultingRoom, error)
}

type TypeRepository interface {
	Create(ctx context.Context, t *AppointmentType) error
	GetByID(ctx context.Context, id uuid.UUID) (*AppointmentType, error)
	Update(ctx context.Context, t *AppointmentType) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q string, limit, offset int) ([]*AppointmentType, int, error)
	Search(ctx context.Context, q string, limit int) ([]*AppointmentType, error)
	ListAll(ctx context.Context) ([]*AppointmentType, error)
}

type InsuranceRepository interface {
	Create(ctx context.Context, ic *InsuranceCompany) error
	GetByID(ctx context.Context, id uuid.UUID) (*InsuranceCompany, error)
	Update(ctx context.Context, ic *InsuranceCompany) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q string, limit, offset int) ([]*InsuranceCompany, int, error)
	Search(ctx context.Context, q string, limit int) ([]*InsuranceCompany, error)
	ListAll(ctx context.Context) ([]*InsuranceCompany, error)
}

type InstitutionRepository interface {
	Create(ctx context.Context, i *Institution) error
	GetByID(ctx context.Context, id uuid.UUID) (*Institution, error)
	Update(ctx context.Context, i *Institution) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q string, limit, offset int) ([]*Institution, int, error)
	Search(ctx context.Context, q string, limit int) ([]*Institution, error)
	// Unavailable days
	AddUnavailableDay(ctx context.Context, d *UnavailableDay) error
	RemoveUnavailableDay(ctx context.Context, institutionID, dayID uuid.UUID) error
	ListUnavailableDays(ctx context.Context, institutionID uuid.UUID, from, to *time.Time) ([]*UnavailableDay, error)
}
