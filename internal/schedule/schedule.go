package schedule

import (
	"fmt"
	"time"
)

// TimeSlot is one contiguous availability window on a day.
type TimeSlot struct {
	Start ClockTime `json:"start" yaml:"start"`
	End   ClockTime `json:"end" yaml:"end"`
}

// Valid reports whether both ends parse and Start < End.
func (s TimeSlot) Valid() bool {
	start, err := ToMinutes(s.Start)
	if err != nil {
		return false
	}
	end, err := ToMinutes(s.End)
	if err != nil {
		return false
	}
	return start < end
}

// WeekTemplate is the default recurring availability, one list per weekday.
type WeekTemplate struct {
	Monday    []TimeSlot `json:"monday" yaml:"monday"`
	Tuesday   []TimeSlot `json:"tuesday" yaml:"tuesday"`
	Wednesday []TimeSlot `json:"wednesday" yaml:"wednesday"`
	Thursday  []TimeSlot `json:"thursday" yaml:"thursday"`
	Friday    []TimeSlot `json:"friday" yaml:"friday"`
	Saturday  []TimeSlot `json:"saturday" yaml:"saturday"`
	Sunday    []TimeSlot `json:"sunday" yaml:"sunday"`
}

// For returns the template entry for a weekday (Sunday=0 ... Saturday=6).
func (w WeekTemplate) For(day time.Weekday) []TimeSlot {
	switch day {
	case time.Sunday:
		return w.Sunday
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	}
	return nil
}

// Set replaces the template entry for a weekday.
func (w *WeekTemplate) Set(day time.Weekday, slots []TimeSlot) {
	switch day {
	case time.Sunday:
		w.Sunday = slots
	case time.Monday:
		w.Monday = slots
	case time.Tuesday:
		w.Tuesday = slots
	case time.Wednesday:
		w.Wednesday = slots
	case time.Thursday:
		w.Thursday = slots
	case time.Friday:
		w.Friday = slots
	case time.Saturday:
		w.Saturday = slots
	}
}

// DayOff closes a room for a whole calendar date.
type DayOff struct {
	Date   string `json:"date" yaml:"date"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// DateOverride replaces the template for one calendar date.
type DateOverride struct {
	Date  string     `json:"date" yaml:"date"`
	Slots []TimeSlot `json:"slots" yaml:"slots"`
}

// Schedule is the availability configuration owned by a room.
// Precedence for any date: DaysOff > Overrides > Template.
type Schedule struct {
	Template  WeekTemplate   `json:"template" yaml:"template"`
	DaysOff   []DayOff       `json:"daysOff" yaml:"days_off"`
	Overrides []DateOverride `json:"overrides" yaml:"overrides"`
}

// ResolveDay returns the open windows of s on date (YYYY-MM-DD).
// Structurally invalid slots are dropped rather than reported; only a
// malformed date is an error. An empty result means closed, whatever the cause.
func ResolveDay(s Schedule, date string) ([]TimeSlot, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	for _, off := range s.DaysOff {
		if off.Date == date {
			return []TimeSlot{}, nil
		}
	}

	for _, o := range s.Overrides {
		if o.Date == date {
			return validSlots(o.Slots), nil
		}
	}

	return validSlots(s.Template.For(day.Weekday())), nil
}

// IsDayOff reports whether date is listed in s.DaysOff, and why.
func (s Schedule) IsDayOff(date string) (bool, string) {
	for _, off := range s.DaysOff {
		if off.Date == date {
			return true, off.Reason
		}
	}
	return false, ""
}

// Validate is the strict counterpart of ResolveDay's filtering, used when an
// administrator saves a schedule.
func (s Schedule) Validate() error {
	for day := time.Sunday; day <= time.Saturday; day++ {
		for i, slot := range s.Template.For(day) {
			if !slot.Valid() {
				return fmt.Errorf("template.%s[%d]: invalid slot %s-%s", weekdayKey(day), i, slot.Start, slot.End)
			}
		}
	}

	seenOff := make(map[string]bool, len(s.DaysOff))
	for i, off := range s.DaysOff {
		if _, err := ParseDate(off.Date); err != nil {
			return fmt.Errorf("daysOff[%d]: %w", i, err)
		}
		if seenOff[off.Date] {
			return fmt.Errorf("daysOff[%d]: duplicate date %s", i, off.Date)
		}
		seenOff[off.Date] = true
	}

	seenOverride := make(map[string]bool, len(s.Overrides))
	for i, o := range s.Overrides {
		if _, err := ParseDate(o.Date); err != nil {
			return fmt.Errorf("overrides[%d]: %w", i, err)
		}
		if seenOverride[o.Date] {
			return fmt.Errorf("overrides[%d]: duplicate date %s", i, o.Date)
		}
		seenOverride[o.Date] = true
		if len(o.Slots) == 0 {
			return fmt.Errorf("overrides[%d]: at least one slot is required", i)
		}
		for j, slot := range o.Slots {
			if !slot.Valid() {
				return fmt.Errorf("overrides[%d].slots[%d]: invalid slot %s-%s", i, j, slot.Start, slot.End)
			}
		}
	}
	return nil
}

func validSlots(in []TimeSlot) []TimeSlot {
	out := make([]TimeSlot, 0, len(in))
	for _, slot := range in {
		if slot.Valid() {
			out = append(out, slot)
		}
	}
	return out
}

func weekdayKey(day time.Weekday) string {
	switch day {
	case time.Sunday:
		return "sunday"
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	}
	return "saturday"
}
