package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AvailabilityRepository interface {
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*AvailabilityWindow, error)
	// ReplaceForDoctor swaps the doctor's whole weekly pattern in one shot.
	ReplaceForDoctor(ctx context.Context, doctorID uuid.UUID, windows []*AvailabilityWindow) error
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	List(ctx context.Context, limit, offset int) ([]*Appointment, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	// BookedSlots returns the time slots held by non-cancelled appointments
	// for a doctor on a date.
	BookedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error)
	// CountActive counts non-cancelled appointments occupying the exact
	// doctor/date/slot combination.
	CountActive(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string) (int, error)
}
