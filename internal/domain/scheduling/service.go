package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/apperror"
	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

const dateLayout = "2006-01-02"

// DoctorInfo is what booking needs to know about a doctor.
type DoctorInfo struct {
	ID              uuid.UUID
	Name            string
	Specialization  string
	ConsultationFee float64
}

// PatientInfo is what booking needs to know about a patient.
type PatientInfo struct {
	ID   uuid.UUID
	Name string
}

// DoctorDirectory resolves doctor references. Implemented by the identity
// service, wired through an adapter in main.
type DoctorDirectory interface {
	DoctorInfo(ctx context.Context, id uuid.UUID) (*DoctorInfo, error)
}

// PatientDirectory resolves patient references.
type PatientDirectory interface {
	PatientInfo(ctx context.Context, id uuid.UUID) (*PatientInfo, error)
}

// Biller is the billing surface scheduling drives. Satisfied by the billing
// service.
type Biller interface {
	CreateForAppointment(ctx context.Context, appointmentID, patientID uuid.UUID, amount float64) error
	UpdateForDoctorChange(ctx context.Context, appointmentID uuid.UUID, amount float64) error
	CancelForAppointment(ctx context.Context, appointmentID uuid.UUID) error
}

type Service struct {
	availability AvailabilityRepository
	appointments AppointmentRepository
	doctors      DoctorDirectory
	patients     PatientDirectory
	biller       Biller
	tx           db.TxRunner
	log          zerolog.Logger
}

func NewService(
	availability AvailabilityRepository,
	appointments AppointmentRepository,
	doctors DoctorDirectory,
	patients PatientDirectory,
	biller Biller,
	tx db.TxRunner,
	log zerolog.Logger,
) *Service {
	return &Service{
		availability: availability,
		appointments: appointments,
		doctors:      doctors,
		patients:     patients,
		biller:       biller,
		tx:           tx,
		log:          log,
	}
}

var validDays = map[string]bool{
	"MONDAY": true, "TUESDAY": true, "WEDNESDAY": true, "THURSDAY": true,
	"FRIDAY": true, "SATURDAY": true, "SUNDAY": true,
}

var validStatuses = map[string]bool{
	StatusConfirmed: true, StatusCompleted: true, StatusCancelled: true,
}

// -- Availability --

// ReplaceAvailability swaps the doctor's weekly pattern. Windows must be
// well formed and must not overlap within a day; the swap is all or nothing.
func (s *Service) ReplaceAvailability(ctx context.Context, doctorID uuid.UUID, windows []*AvailabilityWindow) error {
	if _, err := s.doctors.DoctorInfo(ctx, doctorID); err != nil {
		return err
	}

	byDay := make(map[string][]*AvailabilityWindow)
	for _, w := range windows {
		if !validDays[w.DayOfWeek] {
			return apperror.InvalidInput("invalid day of week: %s", w.DayOfWeek)
		}
		start, err := parseClock(w.StartTime)
		if err != nil {
			return err
		}
		end, err := parseClock(w.EndTime)
		if err != nil {
			return err
		}
		if !start.Before(end) {
			return apperror.InvalidInput("window %s-%s on %s: start must be before end", w.StartTime, w.EndTime, w.DayOfWeek)
		}
		byDay[w.DayOfWeek] = append(byDay[w.DayOfWeek], w)
	}

	for day, dayWindows := range byDay {
		sort.Slice(dayWindows, func(i, j int) bool {
			return dayWindows[i].StartTime < dayWindows[j].StartTime
		})
		for i := 1; i < len(dayWindows); i++ {
			if dayWindows[i].StartTime < dayWindows[i-1].EndTime {
				return apperror.InvalidInput("windows %s-%s and %s-%s overlap on %s",
					dayWindows[i-1].StartTime, dayWindows[i-1].EndTime,
					dayWindows[i].StartTime, dayWindows[i].EndTime, day)
			}
		}
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.availability.ReplaceForDoctor(ctx, doctorID, windows)
	})
}

func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID) ([]*AvailabilityWindow, error) {
	if _, err := s.doctors.DoctorInfo(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.availability.ListByDoctor(ctx, doctorID)
}

// AvailableSlots generates the doctor's open slots for a date: every
// half-hour step inside that weekday's windows, minus slots held by
// non-cancelled appointments. Computed fresh on every call.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	if _, err := s.doctors.DoctorInfo(ctx, doctorID); err != nil {
		return nil, err
	}

	windows, err := s.availability.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	day := WeekdayName(date)
	var candidates []string
	for _, w := range windows {
		if w.DayOfWeek != day {
			continue
		}
		slots, err := SlotsWithin(w.StartTime, w.EndTime)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, slots...)
	}
	if len(candidates) == 0 {
		return []string{}, nil
	}

	booked, err := s.appointments.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(booked))
	for _, slot := range booked {
		taken[slot] = true
	}

	open := make([]string, 0, len(candidates))
	for _, slot := range candidates {
		if !taken[slot] {
			open = append(open, slot)
		}
	}
	sort.Strings(open)
	return open, nil
}

// -- Booking --

// Book validates the request and, inside one transaction, claims the slot,
// stores the CONFIRMED appointment and opens the bill at the doctor's
// current fee.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*AppointmentRecord, error) {
	date, err := time.ParseInLocation(dateLayout, req.Date, time.Local)
	if err != nil {
		return nil, apperror.InvalidInput("invalid date %q, expected YYYY-MM-DD", req.Date)
	}

	patient, err := s.patients.PatientInfo(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.doctors.DoctorInfo(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	start, err := s.validateSlot(ctx, req.DoctorID, date, req.TimeSlot)
	if err != nil {
		return nil, err
	}
	if slotAt(date, start).Before(time.Now()) {
		return nil, apperror.InvalidInput("appointment time must be in the future")
	}

	appt := &Appointment{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      date,
		TimeSlot:  req.TimeSlot,
		Reason:    req.Reason,
		Status:    StatusConfirmed,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		count, err := s.appointments.CountActive(ctx, req.DoctorID, date, req.TimeSlot)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperror.Conflict("time slot %s on %s is already booked", req.TimeSlot, req.Date)
		}
		if err := s.appointments.Create(ctx, appt); err != nil {
			return err
		}
		return s.biller.CreateForAppointment(ctx, appt.ID, appt.PatientID, doctor.ConsultationFee)
	})
	if err != nil {
		return nil, err
	}

	return &AppointmentRecord{
		Appointment:          appt,
		PatientName:          patient.Name,
		DoctorName:           doctor.Name,
		DoctorSpecialization: doctor.Specialization,
	}, nil
}

// Reschedule moves a CONFIRMED appointment to a new doctor, date or slot.
// The conflict check is skipped when nothing moved, so resubmitting the
// current slot is not a self-conflict. A doctor change reprices the bill at
// the new doctor's fee.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req RescheduleRequest) (*AppointmentRecord, error) {
	date, err := time.ParseInLocation(dateLayout, req.Date, time.Local)
	if err != nil {
		return nil, apperror.InvalidInput("invalid date %q, expected YYYY-MM-DD", req.Date)
	}

	doctor, err := s.doctors.DoctorInfo(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	var appt *Appointment
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		appt, err = s.appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if appt.Status == StatusCancelled || appt.Status == StatusCompleted {
			return apperror.IllegalState("cannot reschedule a %s appointment", appt.Status)
		}

		start, err := s.validateSlot(ctx, req.DoctorID, date, req.TimeSlot)
		if err != nil {
			return err
		}
		if slotAt(date, start).Before(time.Now()) {
			return apperror.InvalidInput("appointment time must be in the future")
		}

		unchanged := appt.DoctorID == req.DoctorID &&
			appt.Date.Equal(date) &&
			appt.TimeSlot == req.TimeSlot
		if !unchanged {
			count, err := s.appointments.CountActive(ctx, req.DoctorID, date, req.TimeSlot)
			if err != nil {
				return err
			}
			if count > 0 {
				return apperror.Conflict("time slot %s on %s is already booked", req.TimeSlot, req.Date)
			}
		}

		doctorChanged := appt.DoctorID != req.DoctorID
		appt.DoctorID = req.DoctorID
		appt.Date = date
		appt.TimeSlot = req.TimeSlot
		appt.Reason = req.Reason
		appt.Status = StatusConfirmed
		if err := s.appointments.Update(ctx, appt); err != nil {
			return err
		}
		if doctorChanged {
			return s.biller.UpdateForDoctorChange(ctx, appt.ID, doctor.ConsultationFee)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.record(ctx, appt), nil
}

// UpdateStatus overwrites the appointment status. Moving to CANCELLED also
// settles the bill; an appointment without a bill is logged and tolerated.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req StatusUpdateRequest) (*AppointmentRecord, error) {
	if !validStatuses[req.Status] {
		return nil, apperror.InvalidInput("invalid appointment status: %s", req.Status)
	}

	var appt *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = s.appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		appt.Status = req.Status
		if req.Remarks != nil {
			appt.Remarks = req.Remarks
		}
		if err := s.appointments.Update(ctx, appt); err != nil {
			return err
		}
		if req.Status == StatusCancelled {
			return s.settleBill(ctx, appt.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.record(ctx, appt), nil
}

// Cancel releases the slot. Cancelling twice is a no-op; a completed
// appointment cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*AppointmentRecord, error) {
	var appt *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = s.appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		switch appt.Status {
		case StatusCompleted:
			return apperror.IllegalState("cannot cancel a completed appointment")
		case StatusCancelled:
			return nil
		}
		appt.Status = StatusCancelled
		if err := s.appointments.Update(ctx, appt); err != nil {
			return err
		}
		return s.settleBill(ctx, appt.ID)
	})
	if err != nil {
		return nil, err
	}
	return s.record(ctx, appt), nil
}

// settleBill cancels the appointment's bill. A missing bill is tolerated so
// legacy appointments without billing records can still be cancelled.
func (s *Service) settleBill(ctx context.Context, appointmentID uuid.UUID) error {
	err := s.biller.CancelForAppointment(ctx, appointmentID)
	if apperror.IsNotFound(err) {
		s.log.Warn().Str("appointment_id", appointmentID.String()).Msg("no bill to settle for cancelled appointment")
		return nil
	}
	return err
}

// -- Reads --

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentRecord, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, appt), nil
}

func (s *Service) ListAppointments(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.List(ctx, limit, offset)
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByDoctor(ctx, doctorID, limit, offset)
}

// validateSlot checks the slot's shape and that it fits inside one of the
// doctor's windows for that weekday. Returns the parsed start time.
func (s *Service) validateSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, slot string) (time.Time, error) {
	start, end, err := ParseTimeSlot(slot)
	if err != nil {
		return time.Time{}, err
	}

	windows, err := s.availability.ListByDoctor(ctx, doctorID)
	if err != nil {
		return time.Time{}, err
	}

	day := WeekdayName(date)
	dayHasWindows := false
	for _, w := range windows {
		if w.DayOfWeek != day {
			continue
		}
		dayHasWindows = true
		ws, err := parseClock(w.StartTime)
		if err != nil {
			return time.Time{}, err
		}
		we, err := parseClock(w.EndTime)
		if err != nil {
			return time.Time{}, err
		}
		if !start.Before(ws) && !end.After(we) {
			return start, nil
		}
	}
	if !dayHasWindows {
		return time.Time{}, apperror.InvalidInput("doctor is not available on %s", day)
	}
	return time.Time{}, apperror.InvalidInput("time slot %s is outside the doctor's availability", slot)
}

// record enriches an appointment with names. Lookups are best effort; a
// record with blank names is still useful.
func (s *Service) record(ctx context.Context, appt *Appointment) *AppointmentRecord {
	rec := &AppointmentRecord{Appointment: appt}
	if p, err := s.patients.PatientInfo(ctx, appt.PatientID); err == nil {
		rec.PatientName = p.Name
	}
	if d, err := s.doctors.DoctorInfo(ctx, appt.DoctorID); err == nil {
		rec.DoctorName = d.Name
		rec.DoctorSpecialization = d.Specialization
	}
	return rec
}
