package availability

import "time"

// Interval represents a half-open busy time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Slot represents a candidate bookable time range of fixed duration within a day.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Config captures the booking page settings that drive slot computation.
//
// DayStart and DayEnd are offsets from midnight of the target day; Weekdays
// lists the days of week on which slots may be offered at all.
type Config struct {
	Duration     time.Duration
	BufferBefore time.Duration
	BufferAfter  time.Duration
	DayStart     time.Duration
	DayEnd       time.Duration
	Weekdays     []time.Weekday
}

// AllowsWeekday reports whether the configuration permits slots on the given day.
func (c Config) AllowsWeekday(day time.Weekday) bool {
	for _, allowed := range c.Weekdays {
		if allowed == day {
			return true
		}
	}
	return false
}

// Overlaps reports whether two half-open intervals share any time. Touching
// endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	return start.Before(end)
}

// Slots computes the ordered list of bookable slots for the given day.
//
// day identifies the target calendar day; any sub-day component is discarded.
// busy must already be filtered to intervals relevant to that day — filtering
// by calendar and date is the caller's job, interval arithmetic is this
// function's. Slots whose start precedes now are excluded. The caller is
// responsible for validating the configuration (Duration > 0, buffers >= 0,
// DayStart < DayEnd) before invoking.
func Slots(day time.Time, cfg Config, busy []Interval, now time.Time) []Slot {
	if !cfg.AllowsWeekday(day.Weekday()) {
		return nil
	}

	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	windowStart := midnight.Add(cfg.DayStart)
	windowEnd := midnight.Add(cfg.DayEnd)

	var slots []Slot
	for start := windowStart; !start.Add(cfg.Duration).After(windowEnd); start = start.Add(cfg.Duration) {
		if start.Before(now) {
			continue
		}
		candidate := Interval{
			Start: start.Add(-cfg.BufferBefore),
			End:   start.Add(cfg.Duration).Add(cfg.BufferAfter),
		}
		if anyOverlap(candidate, busy) {
			continue
		}
		slots = append(slots, Slot{Start: start, End: start.Add(cfg.Duration)})
	}
	return slots
}

// FitsSlot reports whether a single candidate slot starting at start is free
// under the configuration, using the same buffered overlap test as Slots.
// It is the single-slot recheck used when confirming a booking.
func FitsSlot(start time.Time, cfg Config, busy []Interval, now time.Time) bool {
	if !cfg.AllowsWeekday(start.Weekday()) {
		return false
	}
	if start.Before(now) {
		return false
	}

	midnight := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	if start.Before(midnight.Add(cfg.DayStart)) {
		return false
	}
	if start.Add(cfg.Duration).After(midnight.Add(cfg.DayEnd)) {
		return false
	}

	candidate := Interval{
		Start: start.Add(-cfg.BufferBefore),
		End:   start.Add(cfg.Duration).Add(cfg.BufferAfter),
	}
	return !anyOverlap(candidate, busy)
}

func anyOverlap(candidate Interval, busy []Interval) bool {
	for _, interval := range busy {
		if Overlaps(candidate, interval) {
			return true
		}
	}
	return false
}
