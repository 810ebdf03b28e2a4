package domain

import (
	"errors"
	"time"
)

const (
	DefaultSlotStep    = 30 * time.Minute
	DefaultHorizonDays = 4
)

// Slot is a candidate bookable half-open interval derived from a provider's
// availability window. Slots are virtual; they are never persisted.
type Slot struct {
	StartTime time.Time
	EndTime   time.Time
	Formatted string
	Day       string
}

// DaySlots groups the bookable slots of one horizon day, in chronological
// order.
type DaySlots struct {
	Date        string
	DisplayDate string
	Slots       []Slot
}

// GenerateSlots projects the provider's availability window onto each of the
// next horizonDays calendar days starting at now and walks each projected
// interval in fixed steps. A slot is dropped when it starts before now or
// overlaps any of the given scheduled appointments. If the step does not
// evenly divide the window, the trailing partial slot is dropped. Days come
// back in horizon order.
func GenerateSlots(window AvailabilityWindow, scheduled []Appointment, now time.Time, horizonDays int, step time.Duration) ([]DaySlots, error) {
	if !window.StartTime.Before(window.EndTime) {
		return nil, errors.New("window start must be before end")
	}
	if horizonDays < 1 {
		horizonDays = DefaultHorizonDays
	}
	if step <= 0 {
		step = DefaultSlotStep
	}

	now = now.UTC()
	out := make([]DaySlots, 0, horizonDays)

	for i := 0; i < horizonDays; i++ {
		day := now.AddDate(0, 0, i)
		dayStart := projectOntoDay(window.StartTime.UTC(), day)
		dayEnd := projectOntoDay(window.EndTime.UTC(), day)

		slots := make([]Slot, 0, dayEnd.Sub(dayStart)/step)
		for current := dayStart; !current.Add(step).After(dayEnd); current = current.Add(step) {
			next := current.Add(step)
			if current.Before(now) {
				continue
			}
			if overlapsAny(scheduled, current, next) {
				continue
			}
			slots = append(slots, Slot{
				StartTime: current,
				EndTime:   next,
				Formatted: current.Format("3:04 PM") + " - " + next.Format("3:04 PM"),
				Day:       current.Format("Monday, January 2"),
			})
		}

		display := day.Format("Monday, January 2")
		if len(slots) > 0 {
			display = slots[0].Day
		}

		out = append(out, DaySlots{
			Date:        day.Format("2006-01-02"),
			DisplayDate: display,
			Slots:       slots,
		})
	}

	return out, nil
}

func projectOntoDay(wallClock, day time.Time) time.Time {
	return time.Date(
		day.Year(),
		day.Month(),
		day.Day(),
		wallClock.Hour(),
		wallClock.Minute(),
		wallClock.Second(),
		wallClock.Nanosecond(),
		time.UTC,
	)
}

func overlapsAny(scheduled []Appointment, start, end time.Time) bool {
	for _, a := range scheduled {
		if a.Status != AppointmentStatusScheduled {
			continue
		}
		if a.Overlaps(start, end) {
			return true
		}
	}
	return false
}
