package slotting

import (
	"errors"
	"testing"
	"time"
)

var zagreb = mustLoadLocation("Europe/Zagreb")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func at(t *testing.T, day time.Time, hour, min int) time.Time {
	t.Helper()
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, zagreb)
}

func TestFreeSlots_EmptyDayOnlyLunchBlocked(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, zagreb)

	slots, err := FreeSlots(day, nil, 30*time.Minute, zagreb)
	if err != nil {
		t.Fatalf("FreeSlots error: %v", err)
	}

	// 08:00-12:00 and 13:00-16:00 in 30-minute steps.
	if len(slots) != 8+6 {
		t.Fatalf("slots = %d, want 14", len(slots))
	}
	if !slots[0].Start.Equal(at(t, day, 8, 0)) {
		t.Fatalf("first slot = %v, want 08:00", slots[0].Start)
	}
	if !slots[7].End.Equal(at(t, day, 12, 0)) {
		t.Fatalf("last morning slot end = %v, want 12:00", slots[7].End)
	}
	if !slots[8].Start.Equal(at(t, day, 13, 0)) {
		t.Fatalf("first afternoon slot = %v, want 13:00", slots[8].Start)
	}
	if !slots[len(slots)-1].End.Equal(at(t, day, 16, 0)) {
		t.Fatalf("last slot end = %v, want 16:00", slots[len(slots)-1].End)
	}
}

func TestFreeSlots_BusyMorningIntervalFixture(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, zagreb)
	busy := []Interval{
		{Start: at(t, day, 10, 0), End: at(t, day, 10, 30)},
	}

	slots, err := FreeSlots(day, busy, 15*time.Minute, zagreb)
	if err != nil {
		t.Fatalf("FreeSlots error: %v", err)
	}

	// [08:00,10:00) then [10:30,12:00) then [13:00,16:00) in 15-minute steps.
	want := 8 + 6 + 12
	if len(slots) != want {
		t.Fatalf("slots = %d, want %d", len(slots), want)
	}

	busyStart := at(t, day, 10, 0)
	busyEnd := at(t, day, 10, 30)
	lunchStart := at(t, day, 12, 0)
	lunchEnd := at(t, day, 13, 0)

	for i, s := range slots {
		if s.End.Sub(s.Start) != 15*time.Minute {
			t.Fatalf("slot %d length = %v, want 15m", i, s.End.Sub(s.Start))
		}
		if s.Start.Before(busyEnd) && s.End.After(busyStart) {
			t.Fatalf("slot %d [%v,%v) overlaps busy interval", i, s.Start, s.End)
		}
		if s.Start.Before(lunchEnd) && s.End.After(lunchStart) {
			t.Fatalf("slot %d [%v,%v) overlaps lunch break", i, s.Start, s.End)
		}
		if i > 0 && slots[i-1].End.After(s.Start) {
			t.Fatalf("slot %d overlaps previous slot", i)
		}
	}

	if !slots[7].End.Equal(busyStart) {
		t.Fatalf("slot before busy ends at %v, want 10:00", slots[7].End)
	}
	if !slots[8].Start.Equal(busyEnd) {
		t.Fatalf("slot after busy starts at %v, want 10:30", slots[8].Start)
	}
}

func TestFreeSlots_AbuttingBoundaryIsFree(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, zagreb)
	busy := []Interval{
		{Start: at(t, day, 9, 0), End: at(t, day, 9, 30)},
	}

	slots, err := FreeSlots(day, busy, 30*time.Minute, zagreb)
	if err != nil {
		t.Fatalf("FreeSlots error: %v", err)
	}

	if !Covers(slots, at(t, day, 8, 30), 30*time.Minute) {
		t.Fatalf("slot ending exactly at busy start should be free")
	}
	if !Covers(slots, at(t, day, 9, 30), 30*time.Minute) {
		t.Fatalf("slot starting exactly at busy end should be free")
	}
	if Covers(slots, at(t, day, 9, 0), 30*time.Minute) {
		t.Fatalf("busy window must not be offered")
	}
}

func TestFreeSlots_OverlappingBusyIntervalsJumpToMaxEnd(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, zagreb)
	busy := []Interval{
		{Start: at(t, day, 9, 0), End: at(t, day, 10, 0)},
		{Start: at(t, day, 9, 30), End: at(t, day, 11, 0)},
	}

	slots, err := FreeSlots(day, busy, 15*time.Minute, zagreb)
	if err != nil {
		t.Fatalf("FreeSlots error: %v", err)
	}

	for i, s := range slots {
		if s.Start.Before(at(t, day, 11, 0)) && s.End.After(at(t, day, 9, 0)) {
			t.Fatalf("slot %d [%v,%v) overlaps merged busy block", i, s.Start, s.End)
		}
	}
}

func TestFreeSlots_FullyBookedDay(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, zagreb)
	busy := []Interval{
		{Start: at(t, day, 7, 0), End: at(t, day, 17, 0)},
	}

	slots, err := FreeSlots(day, busy, 15*time.Minute, zagreb)
	if err != nil {
		t.Fatalf("FreeSlots error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("slots = %d, want 0", len(slots))
	}
}

func TestFreeSlots_MultiDayIntervalsIgnored(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, zagreb)
	busy := []Interval{
		// All-day block spanning two days: must not constrain the grid.
		{Start: time.Date(2026, 3, 1, 0, 0, 0, 0, zagreb), End: time.Date(2026, 3, 3, 0, 0, 0, 0, zagreb)},
	}

	slots, err := FreeSlots(day, busy, 30*time.Minute, zagreb)
	if err != nil {
		t.Fatalf("FreeSlots error: %v", err)
	}
	if len(slots) != 14 {
		t.Fatalf("slots = %d, want 14", len(slots))
	}
}

func TestFreeSlots_Deterministic(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, zagreb)
	busy := []Interval{
		{Start: at(t, day, 14, 0), End: at(t, day, 14, 45)},
		{Start: at(t, day, 9, 15), End: at(t, day, 9, 45)},
	}

	first, err := FreeSlots(day, busy, 15*time.Minute, zagreb)
	if err != nil {
		t.Fatalf("FreeSlots error: %v", err)
	}
	second, err := FreeSlots(day, busy, 15*time.Minute, zagreb)
	if err != nil {
		t.Fatalf("FreeSlots error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Start.Equal(second[i].Start) || !first[i].End.Equal(second[i].End) {
			t.Fatalf("slot %d differs between runs", i)
		}
	}
	for i := 1; i < len(first); i++ {
		if !first[i-1].Start.Before(first[i].Start) {
			t.Fatalf("slots not sorted ascending at %d", i)
		}
	}
}

func TestFreeSlots_InvalidInterval(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, zagreb)
	busy := []Interval{
		{Start: at(t, day, 10, 0), End: at(t, day, 9, 0)},
	}

	if _, err := FreeSlots(day, busy, 15*time.Minute, zagreb); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("error = %v, want ErrInvalidInterval", err)
	}
}

func TestFreeSlots_InvalidSlotLength(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, zagreb)
	if _, err := FreeSlots(day, nil, 0, zagreb); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("error = %v, want ErrInvalidInterval", err)
	}
}
