package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/apperror"
)

type Service struct {
	patients PatientRepository
	doctors  DoctorRepository
}

func NewService(patients PatientRepository, doctors DoctorRepository) *Service {
	return &Service{patients: patients, doctors: doctors}
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return apperror.InvalidInput("patient name is required")
	}
	p.Active = true
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return apperror.InvalidInput("patient name is required")
	}
	if _, err := s.patients.GetByID(ctx, p.ID); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

// -- Doctor --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.Name == "" {
		return apperror.InvalidInput("doctor name is required")
	}
	if d.Specialization == "" {
		return apperror.InvalidInput("specialization is required")
	}
	if d.ConsultationFee < 0 {
		return apperror.InvalidInput("consultation fee must not be negative")
	}
	d.Active = true
	return s.doctors.Create(ctx, d)
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

// UpdateDoctor replaces the doctor's profile fields. A fee change affects
// future bookings only; existing bills keep their amounts.
func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if d.Name == "" {
		return apperror.InvalidInput("doctor name is required")
	}
	if d.Specialization == "" {
		return apperror.InvalidInput("specialization is required")
	}
	if d.ConsultationFee < 0 {
		return apperror.InvalidInput("consultation fee must not be negative")
	}
	if _, err := s.doctors.GetByID(ctx, d.ID); err != nil {
		return err
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) ListDoctors(ctx context.Context, specialization string, limit, offset int) ([]*Doctor, int, error) {
	if specialization != "" {
		return s.doctors.ListBySpecialization(ctx, specialization, limit, offset)
	}
	return s.doctors.List(ctx, limit, offset)
}
