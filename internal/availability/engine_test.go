package availability

import (
	"testing"
	"time"
)

var weekdaysMonFri = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// monday is a Monday in UTC used as the reference day across tests.
var monday = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func at(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	return monday.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func officeHours(duration time.Duration) Config {
	return Config{
		Duration: duration,
		DayStart: 9 * time.Hour,
		DayEnd:   17 * time.Hour,
		Weekdays: weekdaysMonFri,
	}
}

func TestSlots_EmptyDayYieldsFullGrid(t *testing.T) {
	t.Parallel()

	cfg := officeHours(30 * time.Minute)
	slots := Slots(monday, cfg, nil, monday)

	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(at(t, 9, 0)) {
		t.Errorf("first slot should start 09:00, got %v", slots[0].Start)
	}
	if !slots[15].Start.Equal(at(t, 16, 30)) {
		t.Errorf("last slot should start 16:30, got %v", slots[15].Start)
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].Start.After(slots[i-1].Start) {
			t.Fatalf("slots out of order at index %d", i)
		}
	}
}

func TestSlots_DisallowedWeekdayReturnsNothing(t *testing.T) {
	t.Parallel()

	saturday := monday.AddDate(0, 0, 5)
	cfg := officeHours(30 * time.Minute)

	slots := Slots(saturday, cfg, nil, monday)
	if len(slots) != 0 {
		t.Fatalf("expected no slots on a disallowed weekday, got %d", len(slots))
	}
}

func TestSlots_BufferArithmetic(t *testing.T) {
	t.Parallel()

	// Busy 10:00-10:30 with buffers (before=10m, after=5m) and 30-minute
	// slots starting on a 5-minute mesh: the candidate at 10:35 tests
	// [10:25,11:10) and conflicts; the candidate at 10:40 tests [10:30,11:15)
	// which only touches the busy end and stays available.
	cfg := Config{
		Duration:     30 * time.Minute,
		BufferBefore: 10 * time.Minute,
		BufferAfter:  5 * time.Minute,
		DayStart:     9 * time.Hour,
		DayEnd:       17 * time.Hour,
		Weekdays:     weekdaysMonFri,
	}
	busy := []Interval{{Start: at(t, 10, 0), End: at(t, 10, 30)}}

	if FitsSlot(at(t, 10, 35), cfg, busy, monday) {
		t.Errorf("10:35 slot should be excluded: buffered window overlaps busy interval")
	}
	if !FitsSlot(at(t, 10, 40), cfg, busy, monday) {
		t.Errorf("10:40 slot should be available: buffered window only touches busy end")
	}
}

func TestSlots_BusyIntervalRemovesOverlappingCandidates(t *testing.T) {
	t.Parallel()

	cfg := officeHours(30 * time.Minute)
	busy := []Interval{{Start: at(t, 9, 0), End: at(t, 9, 30)}}

	slots := Slots(monday, cfg, busy, monday)
	if len(slots) != 15 {
		t.Fatalf("expected 15 slots after one busy interval, got %d", len(slots))
	}
	for _, slot := range slots {
		if slot.Start.Equal(at(t, 9, 0)) {
			t.Fatalf("09:00 slot should be gone")
		}
	}
}

func TestSlots_MultipleOverlappingBusyIntervals(t *testing.T) {
	t.Parallel()

	cfg := officeHours(time.Hour)
	busy := []Interval{
		{Start: at(t, 9, 15), End: at(t, 10, 45)},
		{Start: at(t, 10, 0), End: at(t, 11, 30)},
		{Start: at(t, 10, 30), End: at(t, 10, 40)},
	}

	slots := Slots(monday, cfg, busy, monday)
	// 09:00, 10:00 and 11:00 are blocked; 12:00-16:00 remain.
	if len(slots) != 5 {
		t.Fatalf("expected 5 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(at(t, 12, 0)) {
		t.Errorf("first available slot should be 12:00, got %v", slots[0].Start)
	}
}

func TestSlots_PastSlotsExcluded(t *testing.T) {
	t.Parallel()

	cfg := officeHours(30 * time.Minute)
	now := at(t, 12, 10)

	slots := Slots(monday, cfg, nil, now)
	if len(slots) != 9 {
		t.Fatalf("expected 9 future slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(at(t, 12, 30)) {
		t.Errorf("first future slot should be 12:30, got %v", slots[0].Start)
	}
}

func TestSlots_ZeroLengthWindow(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Duration: 30 * time.Minute,
		DayStart: 9 * time.Hour,
		DayEnd:   9 * time.Hour,
		Weekdays: weekdaysMonFri,
	}

	if slots := Slots(monday, cfg, nil, monday); len(slots) != 0 {
		t.Fatalf("zero-length window should yield no slots, got %d", len(slots))
	}
}

func TestSlots_TrailingPartialSlotDropped(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Duration: 45 * time.Minute,
		DayStart: 9 * time.Hour,
		DayEnd:   10*time.Hour + 30*time.Minute,
		Weekdays: weekdaysMonFri,
	}

	slots := Slots(monday, cfg, nil, monday)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots in a 90-minute window, got %d", len(slots))
	}
	if !slots[1].End.Equal(at(t, 10, 30)) {
		t.Errorf("last slot must end at window end, got %v", slots[1].End)
	}
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{
			name: "disjoint",
			a:    Interval{Start: at(t, 9, 0), End: at(t, 10, 0)},
			b:    Interval{Start: at(t, 11, 0), End: at(t, 12, 0)},
			want: false,
		},
		{
			name: "touching endpoints do not conflict",
			a:    Interval{Start: at(t, 9, 0), End: at(t, 10, 0)},
			b:    Interval{Start: at(t, 10, 0), End: at(t, 11, 0)},
			want: false,
		},
		{
			name: "partial overlap",
			a:    Interval{Start: at(t, 9, 0), End: at(t, 10, 0)},
			b:    Interval{Start: at(t, 9, 30), End: at(t, 10, 30)},
			want: true,
		},
		{
			name: "containment",
			a:    Interval{Start: at(t, 9, 0), End: at(t, 12, 0)},
			b:    Interval{Start: at(t, 10, 0), End: at(t, 10, 30)},
			want: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Overlaps(tc.a, tc.b); got != tc.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
			if got := Overlaps(tc.b, tc.a); got != tc.want {
				t.Fatalf("Overlaps is not symmetric for %s", tc.name)
			}
		})
	}
}
