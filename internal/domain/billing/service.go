package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinicdesk/internal/platform/apperror"
	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type Service struct {
	bills Repository
	tx    db.TxRunner
}

func NewService(bills Repository, tx db.TxRunner) *Service {
	return &Service{bills: bills, tx: tx}
}

// CreateForAppointment opens a PENDING bill for a freshly booked appointment.
// The amount is the doctor's consultation fee at booking time. A second bill
// for the same appointment is an IllegalState.
func (s *Service) CreateForAppointment(ctx context.Context, appointmentID, patientID uuid.UUID, amount float64) error {
	if _, err := s.bills.GetByAppointment(ctx, appointmentID); err == nil {
		return apperror.IllegalState("bill already exists for appointment %s", appointmentID)
	} else if !apperror.IsNotFound(err) {
		return err
	}

	b := &Bill{
		AppointmentID: appointmentID,
		PatientID:     patientID,
		Amount:        amount,
		Status:        StatusPending,
		BillDate:      time.Now(),
	}
	return s.bills.Create(ctx, b)
}

// RecordPayment marks a bill PAID. Paying an already PAID bill is a no-op;
// paying a cancelled or refunded bill is an IllegalState.
func (s *Service) RecordPayment(ctx context.Context, billID uuid.UUID) (*Bill, error) {
	var bill *Bill
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		b, err := s.bills.GetByID(ctx, billID)
		if err != nil {
			return err
		}
		switch b.Status {
		case StatusPaid:
			bill = b
			return nil
		case StatusPending:
			b.Status = StatusPaid
			if err := s.bills.Update(ctx, b); err != nil {
				return err
			}
			bill = b
			return nil
		default:
			return apperror.IllegalState("cannot record payment on %s bill %s", b.Status, b.ID)
		}
	})
	return bill, err
}

// UpdateForDoctorChange rewrites the bill amount after an appointment is
// rescheduled to a different doctor. Status is left untouched.
func (s *Service) UpdateForDoctorChange(ctx context.Context, appointmentID uuid.UUID, amount float64) error {
	b, err := s.bills.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	b.Amount = amount
	return s.bills.Update(ctx, b)
}

// CancelForAppointment settles the bill when its appointment is cancelled:
// a PAID bill becomes REFUNDED, a PENDING bill becomes CANCELLED, any other
// status is left as is.
func (s *Service) CancelForAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		b, err := s.bills.GetByAppointment(ctx, appointmentID)
		if err != nil {
			return err
		}
		switch b.Status {
		case StatusPaid:
			b.Status = StatusRefunded
		case StatusPending:
			b.Status = StatusCancelled
		default:
			return nil
		}
		return s.bills.Update(ctx, b)
	})
}

func (s *Service) GetBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return s.bills.GetByID(ctx, id)
}

func (s *Service) GetBillForAppointment(ctx context.Context, appointmentID uuid.UUID) (*Bill, error) {
	return s.bills.GetByAppointment(ctx, appointmentID)
}

var validStatuses = map[string]bool{
	StatusPending: true, StatusPaid: true, StatusCancelled: true, StatusRefunded: true,
}

func (s *Service) ListBills(ctx context.Context, status string, patientID uuid.UUID, limit, offset int) ([]*Bill, int, error) {
	if status != "" {
		if !validStatuses[status] {
			return nil, 0, apperror.InvalidInput("invalid bill status: %s", status)
		}
		return s.bills.ListByStatus(ctx, status, limit, offset)
	}
	if patientID != uuid.Nil {
		return s.bills.ListByPatient(ctx, patientID, limit, offset)
	}
	return s.bills.List(ctx, limit, offset)
}
