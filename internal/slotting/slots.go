// Package slotting derives free appointment slots for a single business day
// from a set of busy calendar intervals. It performs no I/O.
package slotting

import (
	"errors"
	"sort"
	"time"
)

// Business-day bounds and the daily break, in the calendar's local time zone.
const (
	WindowStartHour = 8
	WindowEndHour   = 16
	BreakStartHour  = 12
	BreakEndHour    = 13
)

var ErrInvalidInterval = errors.New("invalid interval")

// Interval is a half-open busy range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Slot is a half-open free range [Start, End) of fixed length.
type Slot struct {
	Start time.Time
	End   time.Time
}

// ServiceSlotLength maps the long-service flag to the slot grid step.
func ServiceSlotLength(longService bool) time.Duration {
	if longService {
		return 30 * time.Minute
	}
	return 15 * time.Minute
}

// DayWindow returns the business window [start, end) for the given day.
func DayWindow(day time.Time, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), WindowStartHour, 0, 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), WindowEndHour, 0, 0, 0, loc)
	return start, end
}

// FreeSlots computes the ordered free slots of slotLength within the business
// window of day, given the busy intervals already on the calendar. The daily
// break is always treated as busy. All-day and multi-day busy intervals are
// ignored: they do not constrain the single-day grid.
//
// A slot is free only if it is fully disjoint from every busy interval; a slot
// that exactly abuts a busy boundary does not collide. When the cursor enters
// a busy period it jumps to the furthest busy end covering it, so overlapping
// busy intervals are tolerated.
func FreeSlots(day time.Time, busy []Interval, slotLength time.Duration, loc *time.Location) ([]Slot, error) {
	if slotLength <= 0 {
		return nil, ErrInvalidInterval
	}
	for _, b := range busy {
		if b.End.Before(b.Start) {
			return nil, ErrInvalidInterval
		}
	}

	windowStart, windowEnd := DayWindow(day, loc)

	periods := make([]Interval, 0, len(busy)+1)
	for _, b := range busy {
		if spansMultipleDays(b, loc) {
			continue
		}
		if !b.Start.Before(windowEnd) || !b.End.After(windowStart) {
			continue
		}
		periods = append(periods, b)
	}
	periods = append(periods, Interval{
		Start: time.Date(day.Year(), day.Month(), day.Day(), BreakStartHour, 0, 0, 0, loc),
		End:   time.Date(day.Year(), day.Month(), day.Day(), BreakEndHour, 0, 0, 0, loc),
	})

	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Start.Before(periods[j].Start)
	})

	slots := make([]Slot, 0, 16)
	cursor := windowStart
	for {
		slotEnd := cursor.Add(slotLength)
		if slotEnd.After(windowEnd) {
			break
		}

		jump := cursor
		for _, p := range periods {
			if p.Start.Before(slotEnd) && p.End.After(cursor) {
				if p.End.After(jump) {
					jump = p.End
				}
			}
		}
		if jump.After(cursor) {
			cursor = jump
			continue
		}

		slots = append(slots, Slot{Start: cursor, End: slotEnd})
		cursor = slotEnd
	}

	return slots, nil
}

// Covers reports whether the window [start, start+slotLength) is one of the
// free slots for the day.
func Covers(slots []Slot, start time.Time, slotLength time.Duration) bool {
	end := start.Add(slotLength)
	for _, s := range slots {
		if s.Start.Equal(start) && s.End.Equal(end) {
			return true
		}
	}
	return false
}

func spansMultipleDays(b Interval, loc *time.Location) bool {
	if b.End.Sub(b.Start) >= 24*time.Hour {
		return true
	}
	start := b.Start.In(loc)
	// End is exclusive, so an interval ending exactly at midnight stays
	// within its day.
	last := b.End.In(loc).Add(-time.Nanosecond)
	sy, sm, sd := start.Date()
	ly, lm, ld := last.Date()
	return sy != ly || sm != lm || sd != ld
}
