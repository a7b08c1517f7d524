package calendar

import (
	"errors"
	"testing"
	"time"

	gcal "google.golang.org/api/calendar/v3"
)

func TestBusyFromGoogleEventsSkipsCancelled(t *testing.T) {
	t.Parallel()

	items := []*gcal.Event{
		{
			Id:      "evt-1",
			Summary: "standup",
			Status:  "confirmed",
			Start:   &gcal.EventDateTime{DateTime: "2026-03-02T10:00:00Z"},
			End:     &gcal.EventDateTime{DateTime: "2026-03-02T10:30:00Z"},
		},
		{
			Id:     "evt-2",
			Status: "cancelled",
			Start:  &gcal.EventDateTime{DateTime: "2026-03-02T11:00:00Z"},
			End:    &gcal.EventDateTime{DateTime: "2026-03-02T11:30:00Z"},
		},
	}

	intervals := busyFromGoogleEvents(items)

	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	if intervals[0].ID != "evt-1" {
		t.Errorf("expected evt-1, got %s", intervals[0].ID)
	}
	if intervals[0].Title != "standup" {
		t.Errorf("expected title standup, got %q", intervals[0].Title)
	}
	want := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	if !intervals[0].Start.Equal(want) {
		t.Errorf("expected start %v, got %v", want, intervals[0].Start)
	}
}

func TestBusyFromGoogleEventsAllDay(t *testing.T) {
	t.Parallel()

	items := []*gcal.Event{
		{
			Id:    "evt-3",
			Start: &gcal.EventDateTime{Date: "2026-03-02"},
			End:   &gcal.EventDateTime{Date: "2026-03-03"},
		},
	}

	intervals := busyFromGoogleEvents(items)

	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	if !intervals[0].AllDay {
		t.Error("expected all-day interval")
	}
	wantStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	if !intervals[0].Start.Equal(wantStart) || !intervals[0].End.Equal(wantEnd) {
		t.Errorf("expected [%v, %v), got [%v, %v)", wantStart, wantEnd, intervals[0].Start, intervals[0].End)
	}
}

func TestParseGraphTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value graphDateTime
		want  time.Time
	}{
		{
			name:  "graph layout without zone",
			value: graphDateTime{DateTime: "2026-03-02T10:00:00.0000000", TimeZone: "UTC"},
			want:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "rfc3339 fallback",
			value: graphDateTime{DateTime: "2026-03-02T10:00:00Z"},
			want:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseGraphTime(tt.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCalDAVObjectPath(t *testing.T) {
	t.Parallel()

	g := &caldavGateway{endpoint: "https://caldav.example.com/"}

	got := g.objectPath("https://caldav.example.com/123/calendars/work/", "abc")
	if got != "123/calendars/work/abc.ics" {
		t.Errorf("unexpected object path: %s", got)
	}
}

func TestRegistryConnectUnknownProvider(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(map[string]Connector{})

	_, err := registry.Connect(t.Context(), "google", Account{Email: "owner@example.com"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("expected GatewayError, got %T", err)
	}
}
