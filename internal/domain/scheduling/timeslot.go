package scheduling

import (
	"strings"
	"time"

	"github.com/clinicdesk/clinicdesk/internal/platform/apperror"
)

// SlotDuration is the fixed length of every bookable slot.
const SlotDuration = 30 * time.Minute

const clockLayout = "15:04"

// Weekday names as stored in doctor_availability.day_of_week.
var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "SUNDAY",
	time.Monday:    "MONDAY",
	time.Tuesday:   "TUESDAY",
	time.Wednesday: "WEDNESDAY",
	time.Thursday:  "THURSDAY",
	time.Friday:    "FRIDAY",
	time.Saturday:  "SATURDAY",
}

// WeekdayName returns the uppercase day name for a date.
func WeekdayName(date time.Time) string {
	return weekdayNames[date.Weekday()]
}

func parseClock(s string) (time.Time, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return time.Time{}, apperror.InvalidInput("invalid time %q, expected HH:mm", s)
	}
	return t, nil
}

// ParseTimeSlot splits an "HH:mm-HH:mm" slot into its start and end clock
// times. Format errors and slots whose length is not exactly SlotDuration
// are InvalidInput.
func ParseTimeSlot(slot string) (start, end time.Time, err error) {
	parts := strings.Split(slot, "-")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, apperror.InvalidInput("invalid time slot %q, expected HH:mm-HH:mm", slot)
	}
	start, err = parseClock(parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = parseClock(parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Sub(start) != SlotDuration {
		return time.Time{}, time.Time{}, apperror.InvalidInput("time slot %q must be exactly %d minutes", slot, int(SlotDuration.Minutes()))
	}
	return start, end, nil
}

// FormatSlot renders the slot beginning at start.
func FormatSlot(start time.Time) string {
	return start.Format(clockLayout) + "-" + start.Add(SlotDuration).Format(clockLayout)
}

// SlotsWithin walks a window in SlotDuration steps and returns every slot
// that fits. A slot ending exactly at the window end is included, so a
// 09:00-12:00 window yields six slots.
func SlotsWithin(startTime, endTime string) ([]string, error) {
	start, err := parseClock(startTime)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(endTime)
	if err != nil {
		return nil, err
	}

	var slots []string
	for cur := start; !cur.Add(SlotDuration).After(end); cur = cur.Add(SlotDuration) {
		slots = append(slots, FormatSlot(cur))
	}
	return slots, nil
}

// slotAt combines an appointment date with a slot's start clock time into a
// single instant, in the local timezone.
func slotAt(date time.Time, start time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(),
		start.Hour(), start.Minute(), 0, 0, time.Local)
}
