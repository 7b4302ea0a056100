package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/apperror"
)

type mockAvailRepo struct {
	windows []*AvailabilityWindow
}

func (m *mockAvailRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*AvailabilityWindow, error) {
	var out []*AvailabilityWindow
	for _, w := range m.windows {
		if w.DoctorID == doctorID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *mockAvailRepo) ReplaceForDoctor(ctx context.Context, doctorID uuid.UUID, windows []*AvailabilityWindow) error {
	var kept []*AvailabilityWindow
	for _, w := range m.windows {
		if w.DoctorID != doctorID {
			kept = append(kept, w)
		}
	}
	for _, w := range windows {
		w.ID = uuid.New()
		w.DoctorID = doctorID
		kept = append(kept, w)
	}
	m.windows = kept
	return nil
}

type mockApptRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockApptRepo) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, apperror.NotFound("appointment %s not found", id)
	}
	return a, nil
}

func (m *mockApptRepo) Update(ctx context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return apperror.NotFound("appointment %s not found", a.ID)
	}
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	var items []*Appointment
	for _, a := range m.appts {
		items = append(items, a)
	}
	return items, len(items), nil
}

func (m *mockApptRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var items []*Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			items = append(items, a)
		}
	}
	return items, len(items), nil
}

func (m *mockApptRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var items []*Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID {
			items = append(items, a)
		}
	}
	return items, len(items), nil
}

func (m *mockApptRepo) BookedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	var slots []string
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status != StatusCancelled {
			slots = append(slots, a.TimeSlot)
		}
	}
	return slots, nil
}

func (m *mockApptRepo) CountActive(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string) (int, error) {
	count := 0
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.TimeSlot == timeSlot && a.Status != StatusCancelled {
			count++
		}
	}
	return count, nil
}

type mockDirectory struct {
	doctors  map[uuid.UUID]*DoctorInfo
	patients map[uuid.UUID]*PatientInfo
}

func (m *mockDirectory) DoctorInfo(ctx context.Context, id uuid.UUID) (*DoctorInfo, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, apperror.NotFound("doctor %s not found", id)
	}
	return d, nil
}

func (m *mockDirectory) PatientInfo(ctx context.Context, id uuid.UUID) (*PatientInfo, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperror.NotFound("patient %s not found", id)
	}
	return p, nil
}

// mockBiller tracks bill amounts per appointment.
type mockBiller struct {
	amounts   map[uuid.UUID]float64
	cancelled map[uuid.UUID]bool
}

func newMockBiller() *mockBiller {
	return &mockBiller{
		amounts:   make(map[uuid.UUID]float64),
		cancelled: make(map[uuid.UUID]bool),
	}
}

func (m *mockBiller) CreateForAppointment(ctx context.Context, appointmentID, patientID uuid.UUID, amount float64) error {
	m.amounts[appointmentID] = amount
	return nil
}

func (m *mockBiller) UpdateForDoctorChange(ctx context.Context, appointmentID uuid.UUID, amount float64) error {
	if _, ok := m.amounts[appointmentID]; !ok {
		return apperror.NotFound("bill for appointment %s not found", appointmentID)
	}
	m.amounts[appointmentID] = amount
	return nil
}

func (m *mockBiller) CancelForAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	if _, ok := m.amounts[appointmentID]; !ok {
		return apperror.NotFound("bill for appointment %s not found", appointmentID)
	}
	m.cancelled[appointmentID] = true
	return nil
}

type passthroughTx struct{}

func (passthroughTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc       *Service
	avail     *mockAvailRepo
	appts     *mockApptRepo
	biller    *mockBiller
	doctorID  uuid.UUID
	doctor2ID uuid.UUID
	patientID uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		avail:     &mockAvailRepo{},
		appts:     newMockApptRepo(),
		biller:    newMockBiller(),
		doctorID:  uuid.New(),
		doctor2ID: uuid.New(),
		patientID: uuid.New(),
	}
	dir := &mockDirectory{
		doctors: map[uuid.UUID]*DoctorInfo{
			f.doctorID:  {ID: f.doctorID, Name: "Dr. Meera Shah", Specialization: "Cardiology", ConsultationFee: 500},
			f.doctor2ID: {ID: f.doctor2ID, Name: "Dr. Arun Pillai", Specialization: "Dermatology", ConsultationFee: 800},
		},
		patients: map[uuid.UUID]*PatientInfo{
			f.patientID: {ID: f.patientID, Name: "John Doe"},
		},
	}
	f.svc = NewService(f.avail, f.appts, dir, dir, f.biller, passthroughTx{}, zerolog.Nop())
	return f
}

// allowDay gives a doctor a 09:00-12:00 window on the given weekday.
func (f *fixture) allowDay(doctorID uuid.UUID, day string) {
	f.avail.windows = append(f.avail.windows, &AvailabilityWindow{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		DayOfWeek: day,
		StartTime: "09:00",
		EndTime:   "12:00",
	})
}

// futureDate returns a date two weeks out, at midnight local time.
func futureDate() (time.Time, string) {
	d := time.Now().AddDate(0, 0, 14)
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local)
	return d, d.Format(dateLayout)
}

func (f *fixture) book(t *testing.T, slot string) *AppointmentRecord {
	t.Helper()
	date, dateStr := futureDate()
	f.allowDay(f.doctorID, WeekdayName(date))
	rec, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.patientID,
		DoctorID:  f.doctorID,
		Date:      dateStr,
		TimeSlot:  slot,
		Reason:    "checkup",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	return rec
}

func TestBook(t *testing.T) {
	f := newFixture()
	rec := f.book(t, "10:00-10:30")

	if rec.Status != StatusConfirmed {
		t.Errorf("status = %s, want %s", rec.Status, StatusConfirmed)
	}
	if rec.PatientName != "John Doe" || rec.DoctorName != "Dr. Meera Shah" {
		t.Errorf("record names = %q / %q", rec.PatientName, rec.DoctorName)
	}
	if got := f.biller.amounts[rec.ID]; got != 500 {
		t.Errorf("bill amount = %v, want 500", got)
	}
}

func TestBook_SlotTaken(t *testing.T) {
	f := newFixture()
	f.book(t, "10:00-10:30")

	_, dateStr := futureDate()
	_, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.patientID,
		DoctorID:  f.doctorID,
		Date:      dateStr,
		TimeSlot:  "10:00-10:30",
		Reason:    "second opinion",
	})
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("got %v, want conflict", err)
	}
}

func TestBook_OutsideAvailability(t *testing.T) {
	f := newFixture()
	date, dateStr := futureDate()
	f.allowDay(f.doctorID, WeekdayName(date))

	_, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.patientID,
		DoctorID:  f.doctorID,
		Date:      dateStr,
		TimeSlot:  "13:00-13:30",
		Reason:    "checkup",
	})
	if apperror.KindOf(err) != apperror.KindInvalidInput {
		t.Fatalf("got %v, want invalid input", err)
	}
}

func TestBook_NoWindowsThatDay(t *testing.T) {
	f := newFixture()
	date, _ := futureDate()
	f.allowDay(f.doctorID, WeekdayName(date))

	// The day after has a different weekday, with no windows.
	next := date.AddDate(0, 0, 1)
	_, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.patientID,
		DoctorID:  f.doctorID,
		Date:      next.Format(dateLayout),
		TimeSlot:  "10:00-10:30",
		Reason:    "checkup",
	})
	if apperror.KindOf(err) != apperror.KindInvalidInput {
		t.Fatalf("got %v, want invalid input", err)
	}
}

func TestBook_PastDate(t *testing.T) {
	f := newFixture()
	past := time.Now().AddDate(0, 0, -7)
	f.allowDay(f.doctorID, WeekdayName(past))

	_, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.patientID,
		DoctorID:  f.doctorID,
		Date:      past.Format(dateLayout),
		TimeSlot:  "10:00-10:30",
		Reason:    "checkup",
	})
	if apperror.KindOf(err) != apperror.KindInvalidInput {
		t.Fatalf("got %v, want invalid input", err)
	}
}

func TestBook_WrongSlotLength(t *testing.T) {
	f := newFixture()
	date, dateStr := futureDate()
	f.allowDay(f.doctorID, WeekdayName(date))

	_, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.patientID,
		DoctorID:  f.doctorID,
		Date:      dateStr,
		TimeSlot:  "09:00-10:00",
		Reason:    "checkup",
	})
	if apperror.KindOf(err) != apperror.KindInvalidInput {
		t.Fatalf("got %v, want invalid input", err)
	}
}

func TestBook_UnknownDoctor(t *testing.T) {
	f := newFixture()
	_, dateStr := futureDate()

	_, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: f.patientID,
		DoctorID:  uuid.New(),
		Date:      dateStr,
		TimeSlot:  "10:00-10:30",
		Reason:    "checkup",
	})
	if !apperror.IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestBook_UnknownPatient(t *testing.T) {
	f := newFixture()
	_, dateStr := futureDate()

	_, err := f.svc.Book(context.Background(), BookingRequest{
		PatientID: uuid.New(),
		DoctorID:  f.doctorID,
		Date:      dateStr,
		TimeSlot:  "10:00-10:30",
		Reason:    "checkup",
	})
	if !apperror.IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestAvailableSlots(t *testing.T) {
	f := newFixture()
	date, _ := futureDate()
	f.allowDay(f.doctorID, WeekdayName(date))

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctorID, date)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 6 {
		t.Fatalf("got %d slots, want 6: %v", len(slots), slots)
	}
}

func TestAvailableSlots_ExcludesBookedAndFreesOnCancel(t *testing.T) {
	f := newFixture()
	rec := f.book(t, "10:00-10:30")
	date, _ := futureDate()

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctorID, date)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 5 {
		t.Fatalf("got %d slots, want 5: %v", len(slots), slots)
	}
	for _, s := range slots {
		if s == "10:00-10:30" {
			t.Fatal("booked slot still offered")
		}
	}

	if _, err := f.svc.Cancel(context.Background(), rec.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	slots, err = f.svc.AvailableSlots(context.Background(), f.doctorID, date)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 6 {
		t.Fatalf("cancelled slot not released, got %v", slots)
	}
}

func TestAvailableSlots_NoWindows(t *testing.T) {
	f := newFixture()
	date, _ := futureDate()

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctorID, date)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("got %v, want none", slots)
	}
}

func TestReschedule_SameSlotIsNotSelfConflict(t *testing.T) {
	f := newFixture()
	rec := f.book(t, "10:00-10:30")
	_, dateStr := futureDate()

	moved, err := f.svc.Reschedule(context.Background(), rec.ID, RescheduleRequest{
		DoctorID: f.doctorID,
		Date:     dateStr,
		TimeSlot: "10:00-10:30",
		Reason:   "updated reason",
	})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if moved.Reason != "updated reason" {
		t.Errorf("reason = %q", moved.Reason)
	}
	if moved.Status != StatusConfirmed {
		t.Errorf("status = %s", moved.Status)
	}
}

func TestReschedule_DoctorChangeReprices(t *testing.T) {
	f := newFixture()
	rec := f.book(t, "10:00-10:30")
	date, dateStr := futureDate()
	f.allowDay(f.doctor2ID, WeekdayName(date))

	moved, err := f.svc.Reschedule(context.Background(), rec.ID, RescheduleRequest{
		DoctorID: f.doctor2ID,
		Date:     dateStr,
		TimeSlot: "11:00-11:30",
		Reason:   "needs a dermatologist",
	})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if moved.DoctorID != f.doctor2ID {
		t.Errorf("doctor = %s", moved.DoctorID)
	}
	if got := f.biller.amounts[rec.ID]; got != 800 {
		t.Errorf("bill amount = %v, want 800 after doctor change", got)
	}
}

func TestReschedule_SameDoctorKeepsBillAmount(t *testing.T) {
	f := newFixture()
	rec := f.book(t, "10:00-10:30")
	_, dateStr := futureDate()

	if _, err := f.svc.Reschedule(context.Background(), rec.ID, RescheduleRequest{
		DoctorID: f.doctorID,
		Date:     dateStr,
		TimeSlot: "11:00-11:30",
		Reason:   "checkup",
	}); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if got := f.biller.amounts[rec.ID]; got != 500 {
		t.Errorf("bill amount = %v, want unchanged 500", got)
	}
}

func TestReschedule_TargetTaken(t *testing.T) {
	f := newFixture()
	f.book(t, "10:00-10:30")
	second := f.book(t, "11:00-11:30")
	_, dateStr := futureDate()

	_, err := f.svc.Reschedule(context.Background(), second.ID, RescheduleRequest{
		DoctorID: f.doctorID,
		Date:     dateStr,
		TimeSlot: "10:00-10:30",
		Reason:   "earlier please",
	})
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("got %v, want conflict", err)
	}
}

func TestReschedule_CancelledRejected(t *testing.T) {
	f := newFixture()
	rec := f.book(t, "10:00-10:30")
	if _, err := f.svc.Cancel(context.Background(), rec.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	_, dateStr := futureDate()

	_, err := f.svc.Reschedule(context.Background(), rec.ID, RescheduleRequest{
		DoctorID: f.doctorID,
		Date:     dateStr,
		TimeSlot: "11:00-11:30",
		Reason:   "changed my mind",
	})
	if apperror.KindOf(err) != apperror.KindIllegalState {
		t.Fatalf("got %v, want illegal state", err)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture()
	rec := f.book(t, "10:00-10:30")

	got, err := f.svc.Cancel(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %s", got.Status)
	}
	if !f.biller.cancelled[rec.ID] {
		t.Error("bill not settled on cancel")
	}
}

func TestCancel_Idempotent(t *testing.T) {
	f := newFixture()
	rec := f.book(t, "10:00-10:30")

	if _, err := f.svc.Cancel(context.Background(), rec.ID); err != nil {
		t.Fatalf("first Cancel: %v", err)
	}
	got, err := f.svc.Cancel(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("second Cancel: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Errorf("status = %s", got.Status)
	}
}

func TestCancel_CompletedRejected(t *testing.T) {
	f := newFixture()
	rec := f.book(t, "10:00-10:30")
	if _, err := f.svc.UpdateStatus(context.Background(), rec.ID, StatusUpdateRequest{Status: StatusCompleted}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	_, err := f.svc.Cancel(context.Background(), rec.ID)
	if apperror.KindOf(err) != apperror.KindIllegalState {
		t.Fatalf("got %v, want illegal state", err)
	}
}

func TestUpdateStatus_Completed(t *testing.T) {
	f := newFixture()
	rec := f.book(t, "10:00-10:30")
	remarks := "patient seen"

	got, err := f.svc.UpdateStatus(context.Background(), rec.ID, StatusUpdateRequest{
		Status:  StatusCompleted,
		Remarks: &remarks,
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("status = %s", got.Status)
	}
	if got.Remarks == nil || *got.Remarks != remarks {
		t.Errorf("remarks = %v", got.Remarks)
	}
}

func TestUpdateStatus_Invalid(t *testing.T) {
	f := newFixture()
	rec := f.book(t, "10:00-10:30")

	_, err := f.svc.UpdateStatus(context.Background(), rec.ID, StatusUpdateRequest{Status: "NO_SHOW"})
	if apperror.KindOf(err) != apperror.KindInvalidInput {
		t.Fatalf("got %v, want invalid input", err)
	}
}

func TestUpdateStatus_CancelSettlesBill(t *testing.T) {
	f := newFixture()
	rec := f.book(t, "10:00-10:30")

	if _, err := f.svc.UpdateStatus(context.Background(), rec.ID, StatusUpdateRequest{Status: StatusCancelled}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !f.biller.cancelled[rec.ID] {
		t.Error("bill not settled")
	}
}

func TestUpdateStatus_CancelWithoutBillTolerated(t *testing.T) {
	f := newFixture()
	rec := f.book(t, "10:00-10:30")
	delete(f.biller.amounts, rec.ID)

	if _, err := f.svc.UpdateStatus(context.Background(), rec.ID, StatusUpdateRequest{Status: StatusCancelled}); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
}

func TestReplaceAvailability(t *testing.T) {
	f := newFixture()
	windows := []*AvailabilityWindow{
		{DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "12:00"},
		{DayOfWeek: "MONDAY", StartTime: "14:00", EndTime: "17:00"},
		{DayOfWeek: "FRIDAY", StartTime: "10:00", EndTime: "13:00"},
	}
	if err := f.svc.ReplaceAvailability(context.Background(), f.doctorID, windows); err != nil {
		t.Fatalf("ReplaceAvailability: %v", err)
	}

	got, err := f.svc.Availability(context.Background(), f.doctorID)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d windows, want 3", len(got))
	}
}

func TestReplaceAvailability_Invalid(t *testing.T) {
	f := newFixture()
	cases := []struct {
		name    string
		windows []*AvailabilityWindow
	}{
		{"bad day", []*AvailabilityWindow{{DayOfWeek: "FUNDAY", StartTime: "09:00", EndTime: "12:00"}}},
		{"start after end", []*AvailabilityWindow{{DayOfWeek: "MONDAY", StartTime: "12:00", EndTime: "09:00"}}},
		{"zero length", []*AvailabilityWindow{{DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "09:00"}}},
		{"bad clock", []*AvailabilityWindow{{DayOfWeek: "MONDAY", StartTime: "9am", EndTime: "12:00"}}},
		{"overlap", []*AvailabilityWindow{
			{DayOfWeek: "MONDAY", StartTime: "09:00", EndTime: "12:00"},
			{DayOfWeek: "MONDAY", StartTime: "11:00", EndTime: "14:00"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.svc.ReplaceAvailability(context.Background(), f.doctorID, tc.windows)
			if apperror.KindOf(err) != apperror.KindInvalidInput {
				t.Fatalf("got %v, want invalid input", err)
			}
		})
	}
}

func TestReplaceAvailability_TouchingWindowsAllowed(t *testing.T) {
	f := newFixture()
	windows := []*AvailabilityWindow{
		{DayOfWeek: "TUESDAY", StartTime: "09:00", EndTime: "12:00"},
		{DayOfWeek: "TUESDAY", StartTime: "12:00", EndTime: "15:00"},
	}
	if err := f.svc.ReplaceAvailability(context.Background(), f.doctorID, windows); err != nil {
		t.Fatalf("ReplaceAvailability: %v", err)
	}
}

func TestGetAppointment(t *testing.T) {
	f := newFixture()
	rec := f.book(t, "10:00-10:30")

	got, err := f.svc.GetAppointment(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("GetAppointment: %v", err)
	}
	if got.DoctorSpecialization != "Cardiology" {
		t.Errorf("specialization = %q", got.DoctorSpecialization)
	}

	if _, err := f.svc.GetAppointment(context.Background(), uuid.New()); !apperror.IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}
}
