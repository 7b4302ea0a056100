package billing

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Bill, error)
	Update(ctx context.Context, b *Bill) error
	List(ctx context.Context, limit, offset int) ([]*Bill, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Bill, int, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Bill, int, error)
}
