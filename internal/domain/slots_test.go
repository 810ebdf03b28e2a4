package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func window(start, end time.Time) AvailabilityWindow {
	return AvailabilityWindow{
		ID:         uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		ProviderID: uuid.MustParse("00000000-0000-0000-0000-000000000002"),
		StartTime:  start,
		EndTime:    end,
		Status:     AvailabilityStatusAvailable,
	}
}

func slotStarts(day DaySlots) []string {
	out := make([]string, 0, len(day.Slots))
	for _, s := range day.Slots {
		out = append(out, s.StartTime.Format("15:04"))
	}
	return out
}

func TestGenerateSlots_ExcludesBookedAndPastSlots(t *testing.T) {
	// Window 09:00-12:00 on a reference day; one scheduled appointment
	// 10:00-10:30 on the first horizon day.
	w := window(
		time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	)
	now := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)
	scheduled := []Appointment{
		{
			ProviderID: w.ProviderID,
			StartTime:  time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
			EndTime:    time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC),
			Status:     AppointmentStatusScheduled,
		},
	}

	days, err := GenerateSlots(w, scheduled, now, 4, 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateSlots error: %v", err)
	}
	if len(days) != 4 {
		t.Fatalf("len(days) = %d, want 4", len(days))
	}

	got := slotStarts(days[0])
	want := []string{"09:00", "09:30", "10:30", "11:00", "11:30"}
	if len(got) != len(want) {
		t.Fatalf("day 0 slots = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("day 0 slots = %v, want %v", got, want)
		}
	}

	// Later days have no bookings, so the full window is open.
	for d := 1; d < 4; d++ {
		if len(days[d].Slots) != 6 {
			t.Fatalf("day %d slot count = %d, want 6", d, len(days[d].Slots))
		}
	}
}

func TestGenerateSlots_NoSlotStartsBeforeNow(t *testing.T) {
	w := window(
		time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	)
	now := time.Date(2026, 1, 5, 10, 15, 0, 0, time.UTC)

	days, err := GenerateSlots(w, nil, now, 4, 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateSlots error: %v", err)
	}

	for _, day := range days {
		for _, s := range day.Slots {
			if s.StartTime.Before(now) {
				t.Fatalf("slot %v starts before now %v", s.StartTime, now)
			}
		}
	}

	// 10:00 has already started; next bookable slot today is 10:30.
	got := slotStarts(days[0])
	if len(got) == 0 || got[0] != "10:30" {
		t.Fatalf("day 0 slots = %v, want first slot at 10:30", got)
	}
}

func TestGenerateSlots_DropsTrailingPartialStep(t *testing.T) {
	// 09:00-10:45 with a 30 minute step: the 10:30-11:00 slot does not fit.
	w := window(
		time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 10, 45, 0, 0, time.UTC),
	)
	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	days, err := GenerateSlots(w, nil, now, 1, 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateSlots error: %v", err)
	}

	got := slotStarts(days[0])
	want := []string{"09:00", "09:30", "10:00"}
	if len(got) != len(want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slots = %v, want %v", got, want)
		}
	}
}

func TestGenerateSlots_IgnoresNonScheduledAppointments(t *testing.T) {
	w := window(
		time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	)
	now := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	cancelled := []Appointment{
		{
			ProviderID: w.ProviderID,
			StartTime:  time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
			EndTime:    time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC),
			Status:     AppointmentStatusCancelled,
		},
	}

	days, err := GenerateSlots(w, cancelled, now, 1, 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateSlots error: %v", err)
	}
	if len(days[0].Slots) != 2 {
		t.Fatalf("slot count = %d, want 2", len(days[0].Slots))
	}
}

func TestGenerateSlots_DayLabels(t *testing.T) {
	w := window(
		time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
	)
	// Now is past the window on the first day, so that day has no slots and
	// falls back to the date label.
	now := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC) // a Monday

	days, err := GenerateSlots(w, nil, now, 2, 30*time.Minute)
	if err != nil {
		t.Fatalf("GenerateSlots error: %v", err)
	}

	if days[0].Date != "2026-01-05" {
		t.Fatalf("day 0 date = %q, want %q", days[0].Date, "2026-01-05")
	}
	if len(days[0].Slots) != 0 {
		t.Fatalf("day 0 slot count = %d, want 0", len(days[0].Slots))
	}
	if days[0].DisplayDate != "Monday, January 5" {
		t.Fatalf("day 0 display = %q, want %q", days[0].DisplayDate, "Monday, January 5")
	}
	if days[1].DisplayDate != "Tuesday, January 6" {
		t.Fatalf("day 1 display = %q, want %q", days[1].DisplayDate, "Tuesday, January 6")
	}
	if days[1].Slots[0].Formatted != "9:00 AM - 9:30 AM" {
		t.Fatalf("formatted = %q, want %q", days[1].Slots[0].Formatted, "9:00 AM - 9:30 AM")
	}
}

func TestGenerateSlots_InvertedWindow(t *testing.T) {
	w := window(
		time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	)
	if _, err := GenerateSlots(w, nil, time.Now(), 4, 30*time.Minute); err == nil {
		t.Fatalf("expected error for inverted window")
	}
}
