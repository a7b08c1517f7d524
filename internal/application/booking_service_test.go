package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/calbook/internal/calendar"
	"github.com/example/calbook/internal/persistence"
)

type pageCatalogStub struct {
	page   BookingPage
	getErr error
}

func (p *pageCatalogStub) GetPageBySlug(ctx context.Context, slug string) (BookingPage, error) {
	if p.getErr != nil {
		return BookingPage{}, p.getErr
	}
	if p.page.Slug != slug {
		return BookingPage{}, persistence.ErrNotFound
	}
	return p.page, nil
}

type bookingStoreStub struct {
	createErr error
	created   *Booking

	byTrackingID map[string]Booking
	getErr       error

	updateErr error
	updated   *Booking

	confirmed []Booking
	listErr   error
}

func (b *bookingStoreStub) CreateBooking(ctx context.Context, booking Booking) (Booking, error) {
	if b.createErr != nil {
		return Booking{}, b.createErr
	}
	b.created = &booking
	return booking, nil
}

func (b *bookingStoreStub) UpdateBooking(ctx context.Context, booking Booking) (Booking, error) {
	if b.updateErr != nil {
		return Booking{}, b.updateErr
	}
	b.updated = &booking
	return booking, nil
}

func (b *bookingStoreStub) GetBookingByTrackingID(ctx context.Context, trackingID string) (Booking, error) {
	if b.getErr != nil {
		return Booking{}, b.getErr
	}
	booking, ok := b.byTrackingID[trackingID]
	if !ok {
		return Booking{}, persistence.ErrNotFound
	}
	return booking, nil
}

func (b *bookingStoreStub) ListConfirmedBetween(ctx context.Context, pageID string, from, to time.Time) ([]Booking, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := make([]Booking, len(b.confirmed))
	copy(out, b.confirmed)
	return out, nil
}

type busySourceStub struct {
	intervals []BusyInterval
	err       error

	requestedCalendarIDs []string
}

func (s *busySourceStub) ListBusyIntervals(ctx context.Context, calendarIDs []string, from, to time.Time) ([]BusyInterval, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.requestedCalendarIDs = append([]string(nil), calendarIDs...)
	return s.intervals, nil
}

type calendarDirStub struct {
	calendars map[string]Calendar
	list      []Calendar
	err       error
}

func (s *calendarDirStub) GetCalendar(ctx context.Context, id string) (Calendar, error) {
	if s.err != nil {
		return Calendar{}, s.err
	}
	cal, ok := s.calendars[id]
	if !ok {
		return Calendar{}, persistence.ErrNotFound
	}
	return cal, nil
}

func (s *calendarDirStub) ListCalendarsForAccounts(ctx context.Context, accountIDs []string) ([]Calendar, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.list, nil
}

type accountDirStub struct {
	accounts map[string]CalendarAccount
	list     []CalendarAccount
	err      error
}

func (s *accountDirStub) GetAccount(ctx context.Context, id string) (CalendarAccount, error) {
	if s.err != nil {
		return CalendarAccount{}, s.err
	}
	account, ok := s.accounts[id]
	if !ok {
		return CalendarAccount{}, persistence.ErrNotFound
	}
	return account, nil
}

func (s *accountDirStub) ListAccountsForOwner(ctx context.Context, ownerID string) ([]CalendarAccount, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.list, nil
}

type fakeGateway struct {
	calendars    []calendar.ProviderCalendar
	calendarsErr error

	busy    map[string][]calendar.BusyInterval
	busyErr error

	createdRequests []calendar.EventRequest
	createResult    calendar.CreatedEvent
	createErr       error

	deletedEvents []string
	deleteErr     error
}

func (g *fakeGateway) ListCalendars(ctx context.Context) ([]calendar.ProviderCalendar, error) {
	if g.calendarsErr != nil {
		return nil, g.calendarsErr
	}
	return g.calendars, nil
}

func (g *fakeGateway) ListBusyIntervals(ctx context.Context, calendarID string, from, to time.Time) ([]calendar.BusyInterval, error) {
	if g.busyErr != nil {
		return nil, g.busyErr
	}
	return g.busy[calendarID], nil
}

func (g *fakeGateway) CreateEvent(ctx context.Context, calendarID string, req calendar.EventRequest) (calendar.CreatedEvent, error) {
	if g.createErr != nil {
		return calendar.CreatedEvent{}, g.createErr
	}
	g.createdRequests = append(g.createdRequests, req)
	return g.createResult, nil
}

func (g *fakeGateway) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deletedEvents = append(g.deletedEvents, eventID)
	return nil
}

type gatewayOpenerStub struct {
	gateway    *fakeGateway
	connectErr error
}

func (s *gatewayOpenerStub) Connect(ctx context.Context, provider string, account calendar.Account) (calendar.Gateway, error) {
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	return s.gateway, nil
}

func fixedBookingClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}
}

func sequentialIDs(prefix string) func() string {
	counter := 0
	return func() string {
		counter++
		return prefix + string(rune('0'+counter))
	}
}

func testBookingPage() BookingPage {
	return BookingPage{
		ID:              "page-1",
		OwnerID:         "owner-1",
		Slug:            "intro-call",
		Title:           "Intro Call",
		DurationMinutes: 30,
		DayStartMinutes: 9 * 60,
		DayEndMinutes:   17 * 60,
		Weekdays:        []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		CalendarIDs:     []string{"cal-1"},
		Active:          true,
	}
}

func newTestBookingService(pages *pageCatalogStub, bookings *bookingStoreStub, busy *busySourceStub, opener *gatewayOpenerStub) *BookingService {
	var gateways GatewayOpener
	if opener != nil {
		gateways = opener
	}
	return NewBookingService(pages, bookings, busy, &calendarDirStub{}, &accountDirStub{}, gateways, time.Second, sequentialIDs("id-"), fixedBookingClock())
}

func TestBookingService_AvailableSlots(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	t.Run("returns the full grid for an open day", func(t *testing.T) {
		svc := newTestBookingService(
			&pageCatalogStub{page: testBookingPage()},
			&bookingStoreStub{},
			&busySourceStub{},
			nil,
		)

		slots, err := svc.AvailableSlots(context.Background(), "intro-call", monday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(slots) != 16 {
			t.Fatalf("expected 16 slots, got %d", len(slots))
		}
		first := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		if !slots[0].Start.Equal(first) {
			t.Errorf("expected first slot at %v, got %v", first, slots[0].Start)
		}
		last := time.Date(2026, 3, 2, 16, 30, 0, 0, time.UTC)
		if !slots[len(slots)-1].Start.Equal(last) {
			t.Errorf("expected last slot at %v, got %v", last, slots[len(slots)-1].Start)
		}
	})

	t.Run("counts confirmed bookings as busy", func(t *testing.T) {
		nine := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		svc := newTestBookingService(
			&pageCatalogStub{page: testBookingPage()},
			&bookingStoreStub{confirmed: []Booking{{
				Start: nine,
				End:   nine.Add(30 * time.Minute),
			}}},
			&busySourceStub{},
			nil,
		)

		slots, err := svc.AvailableSlots(context.Background(), "intro-call", monday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(slots) != 15 {
			t.Fatalf("expected 15 slots, got %d", len(slots))
		}
		if slots[0].Start.Equal(nine) {
			t.Error("expected the booked slot to be excluded")
		}
	})

	t.Run("counts cached calendar events as busy", func(t *testing.T) {
		svc := newTestBookingService(
			&pageCatalogStub{page: testBookingPage()},
			&bookingStoreStub{},
			&busySourceStub{intervals: []BusyInterval{{
				Start: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
				End:   time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
			}}},
			nil,
		)

		slots, err := svc.AvailableSlots(context.Background(), "intro-call", monday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(slots) != 14 {
			t.Fatalf("expected 14 slots, got %d", len(slots))
		}
	})

	t.Run("falls back to the owner's calendars when the page selects none", func(t *testing.T) {
		page := testBookingPage()
		page.CalendarIDs = nil
		busy := &busySourceStub{intervals: []BusyInterval{{
			Start: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC),
		}}}
		svc := NewBookingService(
			&pageCatalogStub{page: page},
			&bookingStoreStub{},
			busy,
			&calendarDirStub{list: []Calendar{
				{ID: "cal-a", AccountID: "acct-1"},
				{ID: "cal-b", AccountID: "acct-1"},
			}},
			&accountDirStub{list: []CalendarAccount{
				{ID: "acct-1", Active: true},
				{ID: "acct-2", Active: false},
			}},
			nil,
			time.Second,
			sequentialIDs("id-"),
			fixedBookingClock(),
		)

		slots, err := svc.AvailableSlots(context.Background(), "intro-call", monday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(slots) != 0 {
			t.Fatalf("expected no slots while the owner's calendars are busy, got %d", len(slots))
		}
		if len(busy.requestedCalendarIDs) != 2 {
			t.Fatalf("expected both owner calendars consulted, got %v", busy.requestedCalendarIDs)
		}
	})

	t.Run("drops slots that started while the grid was cached", func(t *testing.T) {
		current := time.Date(2026, 3, 2, 9, 29, 50, 0, time.UTC)
		svc := NewBookingService(
			&pageCatalogStub{page: testBookingPage()},
			&bookingStoreStub{},
			&busySourceStub{},
			&calendarDirStub{},
			&accountDirStub{},
			nil,
			time.Second,
			sequentialIDs("id-"),
			func() time.Time { return current },
		)

		slots, err := svc.AvailableSlots(context.Background(), "intro-call", monday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(slots) != 15 {
			t.Fatalf("expected 15 slots, got %d", len(slots))
		}

		// Still inside the cache TTL, but the 09:30 slot has started.
		current = current.Add(20 * time.Second)

		slots, err = svc.AvailableSlots(context.Background(), "intro-call", monday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(slots) != 14 {
			t.Fatalf("expected 14 slots after 09:30 passed, got %d", len(slots))
		}
		ten := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		if !slots[0].Start.Equal(ten) {
			t.Errorf("expected first slot at %v, got %v", ten, slots[0].Start)
		}
	})

	t.Run("returns an empty grid on a disallowed weekday", func(t *testing.T) {
		sunday := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		svc := newTestBookingService(
			&pageCatalogStub{page: testBookingPage()},
			&bookingStoreStub{},
			&busySourceStub{},
			nil,
		)

		slots, err := svc.AvailableSlots(context.Background(), "intro-call", sunday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(slots) != 0 {
			t.Fatalf("expected no slots, got %d", len(slots))
		}
	})

	t.Run("hides inactive pages", func(t *testing.T) {
		page := testBookingPage()
		page.Active = false
		svc := newTestBookingService(&pageCatalogStub{page: page}, &bookingStoreStub{}, &busySourceStub{}, nil)

		_, err := svc.AvailableSlots(context.Background(), "intro-call", monday)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("reports unknown pages", func(t *testing.T) {
		svc := newTestBookingService(&pageCatalogStub{page: testBookingPage()}, &bookingStoreStub{}, &busySourceStub{}, nil)

		_, err := svc.AvailableSlots(context.Background(), "missing", monday)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestBookingService_CreateBooking(t *testing.T) {
	nine := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	validParams := func() CreateBookingParams {
		return CreateBookingParams{
			PageSlug:       "intro-call",
			RequesterName:  "Ada Lovelace",
			RequesterEmail: "ada@example.com",
			Start:          nine,
		}
	}

	t.Run("validates required attributes", func(t *testing.T) {
		svc := newTestBookingService(&pageCatalogStub{page: testBookingPage()}, &bookingStoreStub{}, &busySourceStub{}, nil)

		_, err := svc.CreateBooking(context.Background(), CreateBookingParams{PageSlug: "intro-call"})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"requester_name", "requester_email", "start"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Errorf("expected field error for %s", field)
			}
		}
	})

	t.Run("rejects malformed email addresses", func(t *testing.T) {
		svc := newTestBookingService(&pageCatalogStub{page: testBookingPage()}, &bookingStoreStub{}, &busySourceStub{}, nil)

		params := validParams()
		params.RequesterEmail = "not-an-email"
		_, err := svc.CreateBooking(context.Background(), params)

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["requester_email"]; !ok {
			t.Error("expected field error for requester_email")
		}
	})

	t.Run("rejects starts off the slot grid", func(t *testing.T) {
		svc := newTestBookingService(&pageCatalogStub{page: testBookingPage()}, &bookingStoreStub{}, &busySourceStub{}, nil)

		params := validParams()
		params.Start = nine.Add(10 * time.Minute)
		_, err := svc.CreateBooking(context.Background(), params)

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["start"]; !ok {
			t.Error("expected field error for start")
		}
	})

	t.Run("persists a confirmed booking", func(t *testing.T) {
		store := &bookingStoreStub{}
		svc := newTestBookingService(&pageCatalogStub{page: testBookingPage()}, store, &busySourceStub{}, nil)

		booking, err := svc.CreateBooking(context.Background(), validParams())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.created == nil {
			t.Fatal("expected booking to be persisted")
		}
		if booking.Status != BookingStatusConfirmed {
			t.Errorf("expected confirmed status, got %s", booking.Status)
		}
		if !booking.End.Equal(nine.Add(30 * time.Minute)) {
			t.Errorf("expected end %v, got %v", nine.Add(30*time.Minute), booking.End)
		}
		if booking.TrackingID == "" {
			t.Error("expected a tracking ID")
		}
	})

	t.Run("rejects a slot held by a confirmed booking", func(t *testing.T) {
		store := &bookingStoreStub{confirmed: []Booking{{
			Start: nine,
			End:   nine.Add(30 * time.Minute),
		}}}
		svc := newTestBookingService(&pageCatalogStub{page: testBookingPage()}, store, &busySourceStub{}, nil)

		_, err := svc.CreateBooking(context.Background(), validParams())
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("maps a storage duplicate to a conflict", func(t *testing.T) {
		store := &bookingStoreStub{createErr: persistence.ErrDuplicate}
		svc := newTestBookingService(&pageCatalogStub{page: testBookingPage()}, store, &busySourceStub{}, nil)

		_, err := svc.CreateBooking(context.Background(), validParams())
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("rejects slots entirely in the past", func(t *testing.T) {
		svc := newTestBookingService(&pageCatalogStub{page: testBookingPage()}, &bookingStoreStub{}, &busySourceStub{}, nil)

		params := validParams()
		params.Start = time.Date(2026, 2, 23, 9, 0, 0, 0, time.UTC)
		_, err := svc.CreateBooking(context.Background(), params)
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("rechecks the owner's calendars when the page selects none", func(t *testing.T) {
		page := testBookingPage()
		page.CalendarIDs = nil
		busy := &busySourceStub{intervals: []BusyInterval{{
			Start: nine,
			End:   nine.Add(30 * time.Minute),
		}}}
		svc := NewBookingService(
			&pageCatalogStub{page: page},
			&bookingStoreStub{},
			busy,
			&calendarDirStub{list: []Calendar{{ID: "cal-a", AccountID: "acct-1"}}},
			&accountDirStub{list: []CalendarAccount{{ID: "acct-1", Active: true}}},
			nil,
			time.Second,
			sequentialIDs("id-"),
			fixedBookingClock(),
		)

		_, err := svc.CreateBooking(context.Background(), validParams())
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("stamps the destination calendar before the insert", func(t *testing.T) {
		page := testBookingPage()
		destinationID := "cal-dest"
		page.DestinationCalendarID = &destinationID

		store := &bookingStoreStub{}
		svc := NewBookingService(
			&pageCatalogStub{page: page},
			store,
			&busySourceStub{},
			&calendarDirStub{calendars: map[string]Calendar{
				"cal-dest": {ID: "cal-dest", AccountID: "acct-1", ProviderID: "provider-cal"},
			}},
			&accountDirStub{accounts: map[string]CalendarAccount{
				"acct-1": {ID: "acct-1", Provider: "google", Active: true},
			}},
			&gatewayOpenerStub{connectErr: errors.New("provider unavailable")},
			time.Second,
			sequentialIDs("id-"),
			fixedBookingClock(),
		)

		_, err := svc.CreateBooking(context.Background(), validParams())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if store.created == nil {
			t.Fatal("expected booking to be persisted")
		}
		if store.created.DestinationCalendarID == nil || *store.created.DestinationCalendarID != "cal-dest" {
			t.Fatalf("expected the stored row to carry the destination calendar, got %+v", store.created)
		}
	})

	t.Run("mirrors the booking into the destination calendar", func(t *testing.T) {
		page := testBookingPage()
		destinationID := "cal-dest"
		page.DestinationCalendarID = &destinationID

		gateway := &fakeGateway{createResult: calendar.CreatedEvent{ID: "evt-1", VideoLink: "https://meet.example.com/abc"}}
		store := &bookingStoreStub{}
		svc := NewBookingService(
			&pageCatalogStub{page: page},
			store,
			&busySourceStub{},
			&calendarDirStub{calendars: map[string]Calendar{
				"cal-dest": {ID: "cal-dest", AccountID: "acct-1", ProviderID: "provider-cal"},
			}},
			&accountDirStub{accounts: map[string]CalendarAccount{
				"acct-1": {ID: "acct-1", Provider: "google", Email: "owner@example.com", Active: true},
			}},
			&gatewayOpenerStub{gateway: gateway},
			time.Second,
			sequentialIDs("id-"),
			fixedBookingClock(),
		)

		booking, err := svc.CreateBooking(context.Background(), validParams())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(gateway.createdRequests) != 1 {
			t.Fatalf("expected 1 gateway event, got %d", len(gateway.createdRequests))
		}
		if booking.ExternalEventID == nil || *booking.ExternalEventID != "evt-1" {
			t.Errorf("expected external event evt-1, got %v", booking.ExternalEventID)
		}
		if booking.MeetingURL == nil || *booking.MeetingURL != "https://meet.example.com/abc" {
			t.Errorf("expected meeting URL, got %v", booking.MeetingURL)
		}
	})

	t.Run("books even when the gateway is down", func(t *testing.T) {
		page := testBookingPage()
		destinationID := "cal-dest"
		page.DestinationCalendarID = &destinationID

		store := &bookingStoreStub{}
		svc := NewBookingService(
			&pageCatalogStub{page: page},
			store,
			&busySourceStub{},
			&calendarDirStub{calendars: map[string]Calendar{
				"cal-dest": {ID: "cal-dest", AccountID: "acct-1", ProviderID: "provider-cal"},
			}},
			&accountDirStub{accounts: map[string]CalendarAccount{
				"acct-1": {ID: "acct-1", Provider: "google", Active: true},
			}},
			&gatewayOpenerStub{connectErr: errors.New("provider unavailable")},
			time.Second,
			sequentialIDs("id-"),
			fixedBookingClock(),
		)

		booking, err := svc.CreateBooking(context.Background(), validParams())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if booking.ExternalEventID != nil {
			t.Error("expected no external event")
		}
		if store.created == nil {
			t.Fatal("expected booking to be persisted")
		}
	})
}

func TestBookingService_CancelBooking(t *testing.T) {
	nine := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	t.Run("cancels a confirmed booking", func(t *testing.T) {
		store := &bookingStoreStub{byTrackingID: map[string]Booking{
			"track-1": {
				ID:            "booking-1",
				BookingPageID: "page-1",
				TrackingID:    "track-1",
				Start:         nine,
				End:           nine.Add(30 * time.Minute),
				Status:        BookingStatusConfirmed,
			},
		}}
		svc := newTestBookingService(&pageCatalogStub{page: testBookingPage()}, store, &busySourceStub{}, nil)

		booking, err := svc.CancelBooking(context.Background(), "track-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !booking.Cancelled() {
			t.Error("expected booking to be cancelled")
		}
		if store.updated == nil {
			t.Fatal("expected booking update to be persisted")
		}
	})

	t.Run("cancelling twice succeeds without another write", func(t *testing.T) {
		store := &bookingStoreStub{byTrackingID: map[string]Booking{
			"track-1": {
				ID:         "booking-1",
				TrackingID: "track-1",
				Status:     BookingStatusCancelled,
			},
		}}
		svc := newTestBookingService(&pageCatalogStub{page: testBookingPage()}, store, &busySourceStub{}, nil)

		booking, err := svc.CancelBooking(context.Background(), "track-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !booking.Cancelled() {
			t.Error("expected booking to stay cancelled")
		}
		if store.updated != nil {
			t.Error("expected no further write")
		}
	})

	t.Run("reports unknown tracking IDs", func(t *testing.T) {
		svc := newTestBookingService(&pageCatalogStub{page: testBookingPage()}, &bookingStoreStub{}, &busySourceStub{}, nil)

		_, err := svc.CancelBooking(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("removes the mirrored provider event", func(t *testing.T) {
		eventID := "evt-1"
		destinationID := "cal-dest"
		gateway := &fakeGateway{}
		store := &bookingStoreStub{byTrackingID: map[string]Booking{
			"track-1": {
				ID:                    "booking-1",
				BookingPageID:         "page-1",
				TrackingID:            "track-1",
				Status:                BookingStatusConfirmed,
				ExternalEventID:       &eventID,
				DestinationCalendarID: &destinationID,
			},
		}}
		svc := NewBookingService(
			&pageCatalogStub{page: testBookingPage()},
			store,
			&busySourceStub{},
			&calendarDirStub{calendars: map[string]Calendar{
				"cal-dest": {ID: "cal-dest", AccountID: "acct-1", ProviderID: "provider-cal"},
			}},
			&accountDirStub{accounts: map[string]CalendarAccount{
				"acct-1": {ID: "acct-1", Provider: "google", Active: true},
			}},
			&gatewayOpenerStub{gateway: gateway},
			time.Second,
			sequentialIDs("id-"),
			fixedBookingClock(),
		)

		_, err := svc.CancelBooking(context.Background(), "track-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(gateway.deletedEvents) != 1 || gateway.deletedEvents[0] != "evt-1" {
			t.Errorf("expected evt-1 deletion, got %v", gateway.deletedEvents)
		}
	})
}
