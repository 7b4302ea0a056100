package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses.
const (
	StatusConfirmed = "CONFIRMED"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
)

// AvailabilityWindow maps to the doctor_availability table. A doctor can
// have several windows on the same weekday; times are "HH:mm" clock strings.
type AvailabilityWindow struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	DayOfWeek string    `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Appointment maps to the appointment table. TimeSlot is the booked
// half-hour in "HH:mm-HH:mm" form. Appointments are never deleted; a
// cancellation flips the status and releases the slot.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      time.Time `db:"appointment_date" json:"date"`
	TimeSlot  string    `db:"time_slot" json:"time_slot"`
	Reason    string    `db:"reason" json:"reason"`
	Status    string    `db:"status" json:"status"`
	Remarks   *string   `db:"remarks" json:"remarks,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AppointmentRecord is the appointment enriched with names for API
// responses.
type AppointmentRecord struct {
	*Appointment
	PatientName          string `json:"patient_name,omitempty"`
	DoctorName           string `json:"doctor_name,omitempty"`
	DoctorSpecialization string `json:"doctor_specialization,omitempty"`
}

// BookingRequest is the payload for booking a new appointment.
type BookingRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	TimeSlot  string    `json:"time_slot"`
	Reason    string    `json:"reason"`
}

// RescheduleRequest moves an appointment to a new doctor, date or slot.
type RescheduleRequest struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	TimeSlot string    `json:"time_slot"`
	Reason   string    `json:"reason"`
}

// StatusUpdateRequest overwrites the appointment status.
type StatusUpdateRequest struct {
	Status  string  `json:"status"`
	Remarks *string `json:"remarks,omitempty"`
}
