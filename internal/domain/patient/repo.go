package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error)
	// SearchByName matches first or last name.
	SearchByName(ctx context.Context, q string, limit int) ([]*Patient, error)
	SearchByDocument(ctx context.Context, q string, limit int) ([]*Patient, error)
}
