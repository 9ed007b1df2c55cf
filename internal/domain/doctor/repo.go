package doctor

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Doctor, int, error)
	Search(ctx context.Context, q string, limit int) ([]*Doctor, error)
	ListActive(ctx context.Context) ([]*Doctor, error)

	// Unavailable days
	AddUnavailableDay(ctx context.Context, d *UnavailableDay) error
	RemoveUnavailableDay(ctx context.Context, doctorID, dayID uuid.UUID) error
	ListUnavailableDays(ctx context.Context, doctorID uuid.UUID, from, to *time.Time) ([]*UnavailableDay, error)
	IsUnavailable(ctx context.Context, doctorID uuid.UUID, date time.Time) (bool, error)
}
