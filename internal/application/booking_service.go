package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/calbook/internal/availability"
	"github.com/example/calbook/internal/calendar"
	"github.com/example/calbook/internal/persistence"
)

// PageCatalog exposes the booking page lookups needed by the service.
type PageCatalog interface {
	GetPageBySlug(ctx context.Context, slug string) (BookingPage, error)
}

// BookingStore captures the persistence interactions needed by the service.
// CreateBooking reports a slot already held by a confirmed booking as a
// duplicate, which is the backstop for two concurrent bookers racing for the
// same slot.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBookingByTrackingID(ctx context.Context, trackingID string) (Booking, error)
	ListConfirmedBetween(ctx context.Context, pageID string, from, to time.Time) ([]Booking, error)
}

// BusySource reads cached busy intervals for a set of mirrored calendars.
type BusySource interface {
	ListBusyIntervals(ctx context.Context, calendarIDs []string, from, to time.Time) ([]BusyInterval, error)
}

// CalendarDirectory exposes mirrored calendar lookups.
type CalendarDirectory interface {
	GetCalendar(ctx context.Context, id string) (Calendar, error)
	ListCalendarsForAccounts(ctx context.Context, accountIDs []string) ([]Calendar, error)
}

// AccountDirectory exposes connected account lookups.
type AccountDirectory interface {
	GetAccount(ctx context.Context, id string) (CalendarAccount, error)
	ListAccountsForOwner(ctx context.Context, ownerID string) ([]CalendarAccount, error)
}

// GatewayOpener opens provider gateways for connected accounts.
type GatewayOpener interface {
	Connect(ctx context.Context, provider string, account calendar.Account) (calendar.Gateway, error)
}

// BookingService orchestrates availability queries and slot bookings for
// public bookers.
type BookingService struct {
	pages          PageCatalog
	bookings       BookingStore
	busy           BusySource
	calendars      CalendarDirectory
	accounts       AccountDirectory
	gateways       GatewayOpener
	slots          *slotCache
	gatewayTimeout time.Duration
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewBookingService constructs a booking service with the provided dependencies.
func NewBookingService(pages PageCatalog, bookings BookingStore, busy BusySource, calendars CalendarDirectory, accounts AccountDirectory, gateways GatewayOpener, gatewayTimeout time.Duration, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(pages, bookings, busy, calendars, accounts, gateways, gatewayTimeout, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(pages PageCatalog, bookings BookingStore, busy BusySource, calendars CalendarDirectory, accounts AccountDirectory, gateways GatewayOpener, gatewayTimeout time.Duration, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if gatewayTimeout <= 0 {
		gatewayTimeout = 5 * time.Second
	}
	return &BookingService{
		pages:          pages,
		bookings:       bookings,
		busy:           busy,
		calendars:      calendars,
		accounts:       accounts,
		gateways:       gateways,
		slots:          newSlotCache(30*time.Second, 256, now),
		gatewayTimeout: gatewayTimeout,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// AvailableSlots computes the open slot grid for the page on the given day.
// Slots entirely in the past are excluded, as are slots whose buffered window
// overlaps a cached calendar event or a confirmed booking.
func (s *BookingService) AvailableSlots(ctx context.Context, pageSlug string, day time.Time) (slots []Slot, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.pages == nil {
		err = fmt.Errorf("page catalog not configured")
		return
	}

	logger := s.loggerWith(ctx, "AvailableSlots",
		"page_slug", pageSlug,
		"day", day.UTC().Format("2006-01-02"),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute available slots", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("slot_count", len(slots)).InfoContext(ctx, "available slots computed")
	}()

	page, err := s.pages.GetPageBySlug(ctx, pageSlug)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if !page.Active {
		err = ErrNotFound
		return
	}

	day = truncateToDay(day)

	key := buildSlotCacheKey(page.ID, day)
	if cached, ok := s.slots.Get(key); ok {
		// A grid cached moments ago can still hold slots whose start has
		// since passed.
		slots = dropPastSlots(cached, s.now())
		return
	}

	busy, err := s.busyForPage(ctx, page, day)
	if err != nil {
		return
	}

	computed := availability.Slots(day, availabilityConfig(page), busy, s.now())
	slots = make([]Slot, 0, len(computed))
	for _, slot := range computed {
		slots = append(slots, Slot{Start: slot.Start, End: slot.End})
	}

	s.slots.Store(key, slots)
	return
}

// CreateBooking validates the request, rechecks the requested slot against
// current busy data, and persists a confirmed booking. The storage layer's
// uniqueness guarantee settles races between concurrent bookers: the loser
// receives ErrConflict. Mirroring the booking into the owner's destination
// calendar is best effort and never fails the booking.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.pages == nil || s.bookings == nil {
		err = fmt.Errorf("booking repositories not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"page_slug", params.PageSlug,
		"start", params.Start.UTC().Format(time.RFC3339),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID, "tracking_id", booking.TrackingID).InfoContext(ctx, "booking created")
	}()

	vErr := validateBookingInput(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	page, err := s.pages.GetPageBySlug(ctx, params.PageSlug)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if !page.Active {
		err = ErrNotFound
		return
	}

	start := params.Start.UTC()
	day := truncateToDay(start)
	cfg := availabilityConfig(page)

	if !slotAligned(start, day, cfg) {
		vErr := &ValidationError{}
		vErr.add("start", "start does not fall on a slot boundary")
		err = vErr
		return
	}

	busy, err := s.busyForPage(ctx, page, day)
	if err != nil {
		return
	}
	if !availability.FitsSlot(start, cfg, busy, s.now()) {
		err = ErrConflict
		return
	}

	createdAt := s.now()
	booking = Booking{
		ID:             s.idGenerator(),
		BookingPageID:  page.ID,
		TrackingID:     s.idGenerator(),
		RequesterName:  strings.TrimSpace(params.RequesterName),
		RequesterEmail: strings.TrimSpace(params.RequesterEmail),
		Start:          start,
		End:            start.Add(page.Duration()),
		Notes:          params.Notes,
		Status:         BookingStatusConfirmed,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}

	// The destination calendar is resolved up front so the row carries it
	// into the uniqueness check: two pages feeding the same calendar then
	// collide on insert instead of at the next sync.
	account, destination, resolved := s.resolveDestination(ctx, logger, page)
	if resolved {
		destinationID := destination.ID
		booking.DestinationCalendarID = &destinationID
	}

	persisted, err := s.bookings.CreateBooking(ctx, booking)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	booking = persisted

	s.slots.InvalidatePage(page.ID)

	if resolved {
		s.mirrorBooking(ctx, logger, page, account, destination, &booking)
	}
	return
}

// CancelBooking marks the booking cancelled and frees its slot. Cancelling an
// already cancelled booking succeeds without further effect.
func (s *BookingService) CancelBooking(ctx context.Context, trackingID string) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CancelBooking", "tracking_id", trackingID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking cancelled")
	}()

	existing, err := s.bookings.GetBookingByTrackingID(ctx, trackingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if existing.Cancelled() {
		booking = existing
		return
	}

	updated := existing
	updated.Status = BookingStatusCancelled
	updated.UpdatedAt = s.now()

	booking, err = s.bookings.UpdateBooking(ctx, updated)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	s.slots.InvalidatePage(booking.BookingPageID)

	s.removeMirroredEvent(ctx, logger, booking)
	return
}

// GetBooking returns the booking identified by its public tracking ID.
func (s *BookingService) GetBooking(ctx context.Context, trackingID string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return Booking{}, fmt.Errorf("booking repository not configured")
	}

	booking, err := s.bookings.GetBookingByTrackingID(ctx, trackingID)
	if err != nil {
		return Booking{}, mapBookingRepoError(err)
	}
	return booking, nil
}

// busyForPage merges cached calendar events with confirmed bookings for the
// day. Confirmed bookings are counted even when the event cache is stale, so
// a booked slot disappears from the grid immediately. A page with no explicit
// calendar selection consults every calendar under the owner's active
// accounts.
func (s *BookingService) busyForPage(ctx context.Context, page BookingPage, day time.Time) ([]availability.Interval, error) {
	from := day
	to := day.Add(24 * time.Hour)

	var intervals []availability.Interval

	if s.busy != nil {
		calendarIDs := page.CalendarIDs
		if len(calendarIDs) == 0 {
			resolved, err := s.ownerCalendarIDs(ctx, page.OwnerID)
			if err != nil {
				return nil, err
			}
			calendarIDs = resolved
		}
		if len(calendarIDs) > 0 {
			cached, err := s.busy.ListBusyIntervals(ctx, calendarIDs, from, to)
			if err != nil {
				return nil, err
			}
			for _, interval := range cached {
				intervals = append(intervals, availability.Interval{Start: interval.Start, End: interval.End})
			}
		}
	}

	confirmed, err := s.bookings.ListConfirmedBetween(ctx, page.ID, from, to)
	if err != nil {
		return nil, err
	}
	for _, existing := range confirmed {
		intervals = append(intervals, availability.Interval{Start: existing.Start, End: existing.End})
	}

	return intervals, nil
}

// ownerCalendarIDs lists every mirrored calendar under the owner's active
// accounts. It backs the default busy lookup for pages that select no
// calendars explicitly.
func (s *BookingService) ownerCalendarIDs(ctx context.Context, ownerID string) ([]string, error) {
	if s.accounts == nil || s.calendars == nil {
		return nil, nil
	}

	accounts, err := s.accounts.ListAccountsForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var accountIDs []string
	for _, account := range accounts {
		if account.Active {
			accountIDs = append(accountIDs, account.ID)
		}
	}
	if len(accountIDs) == 0 {
		return nil, nil
	}

	calendars, err := s.calendars.ListCalendarsForAccounts(ctx, accountIDs)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(calendars))
	for _, cal := range calendars {
		ids = append(ids, cal.ID)
	}
	return ids, nil
}

func dropPastSlots(slots []Slot, now time.Time) []Slot {
	kept := slots[:0:0]
	for _, slot := range slots {
		if !slot.Start.Before(now) {
			kept = append(kept, slot)
		}
	}
	return kept
}

// mirrorBooking pushes the booking into the owner's destination calendar.
// Gateway failures are logged and swallowed: the booking stands regardless of
// provider health.
func (s *BookingService) mirrorBooking(ctx context.Context, logger *slog.Logger, page BookingPage, account CalendarAccount, destination Calendar, booking *Booking) {
	if s.gateways == nil {
		return
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	gateway, err := s.gateways.Connect(gatewayCtx, account.Provider, gatewayAccount(account))
	if err != nil {
		logger.WarnContext(ctx, "skipping calendar mirror", "error", err)
		return
	}

	created, err := gateway.CreateEvent(gatewayCtx, destination.ProviderID, calendar.EventRequest{
		Summary:              fmt.Sprintf("%s with %s", page.Title, booking.RequesterName),
		Description:          booking.Notes,
		Start:                booking.Start,
		End:                  booking.End,
		Attendees:            []string{booking.RequesterEmail},
		WantsVideoConference: true,
	})
	if err != nil {
		logger.WarnContext(ctx, "skipping calendar mirror", "error", err)
		return
	}

	updated := *booking
	updated.ExternalEventID = &created.ID
	if created.VideoLink != "" {
		updated.MeetingURL = &created.VideoLink
	}
	updated.UpdatedAt = s.now()

	persisted, err := s.bookings.UpdateBooking(ctx, updated)
	if err != nil {
		logger.WarnContext(ctx, "failed to record mirrored event", "error", err)
		return
	}
	*booking = persisted
}

// removeMirroredEvent deletes the provider-side event for a cancelled
// booking. A missing provider event is treated as already removed.
func (s *BookingService) removeMirroredEvent(ctx context.Context, logger *slog.Logger, booking Booking) {
	if s.gateways == nil || booking.ExternalEventID == nil || booking.DestinationCalendarID == nil {
		return
	}
	if s.calendars == nil || s.accounts == nil {
		return
	}

	destination, err := s.calendars.GetCalendar(ctx, *booking.DestinationCalendarID)
	if err != nil {
		logger.WarnContext(ctx, "skipping mirrored event removal", "error", err)
		return
	}
	account, err := s.accounts.GetAccount(ctx, destination.AccountID)
	if err != nil {
		logger.WarnContext(ctx, "skipping mirrored event removal", "error", err)
		return
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	gateway, err := s.gateways.Connect(gatewayCtx, account.Provider, gatewayAccount(account))
	if err != nil {
		logger.WarnContext(ctx, "skipping mirrored event removal", "error", err)
		return
	}

	if err := gateway.DeleteEvent(gatewayCtx, destination.ProviderID, *booking.ExternalEventID); err != nil && !calendar.IsNotFound(err) {
		logger.WarnContext(ctx, "failed to remove mirrored event", "error", err)
	}
}

// resolveDestination picks the calendar that receives mirrored events: the
// page's explicit destination when set, otherwise the primary calendar of the
// owner's primary active account.
func (s *BookingService) resolveDestination(ctx context.Context, logger *slog.Logger, page BookingPage) (CalendarAccount, Calendar, bool) {
	if s.calendars == nil || s.accounts == nil {
		return CalendarAccount{}, Calendar{}, false
	}

	if page.DestinationCalendarID != nil {
		destination, err := s.calendars.GetCalendar(ctx, *page.DestinationCalendarID)
		if err != nil {
			logger.WarnContext(ctx, "destination calendar unavailable", "error", err)
			return CalendarAccount{}, Calendar{}, false
		}
		account, err := s.accounts.GetAccount(ctx, destination.AccountID)
		if err != nil {
			logger.WarnContext(ctx, "destination account unavailable", "error", err)
			return CalendarAccount{}, Calendar{}, false
		}
		return account, destination, true
	}

	accounts, err := s.accounts.ListAccountsForOwner(ctx, page.OwnerID)
	if err != nil {
		logger.WarnContext(ctx, "destination account unavailable", "error", err)
		return CalendarAccount{}, Calendar{}, false
	}

	var chosen *CalendarAccount
	for i := range accounts {
		if !accounts[i].Active {
			continue
		}
		if accounts[i].Primary {
			chosen = &accounts[i]
			break
		}
		if chosen == nil {
			chosen = &accounts[i]
		}
	}
	if chosen == nil {
		return CalendarAccount{}, Calendar{}, false
	}

	calendars, err := s.calendars.ListCalendarsForAccounts(ctx, []string{chosen.ID})
	if err != nil {
		logger.WarnContext(ctx, "destination calendar unavailable", "error", err)
		return CalendarAccount{}, Calendar{}, false
	}
	for _, cal := range calendars {
		if cal.Primary {
			return *chosen, cal, true
		}
	}
	if len(calendars) > 0 {
		return *chosen, calendars[0], true
	}
	return CalendarAccount{}, Calendar{}, false
}

func gatewayAccount(account CalendarAccount) calendar.Account {
	return calendar.Account{
		Email:        account.Email,
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		TokenExpiry:  account.TokenExpiry,
	}
}

func availabilityConfig(page BookingPage) availability.Config {
	return availability.Config{
		Duration:     time.Duration(page.DurationMinutes) * time.Minute,
		BufferBefore: time.Duration(page.BufferBeforeMinutes) * time.Minute,
		BufferAfter:  time.Duration(page.BufferAfterMinutes) * time.Minute,
		DayStart:     time.Duration(page.DayStartMinutes) * time.Minute,
		DayEnd:       time.Duration(page.DayEndMinutes) * time.Minute,
		Weekdays:     page.Weekdays,
	}
}

func slotAligned(start, day time.Time, cfg availability.Config) bool {
	windowStart := day.Add(cfg.DayStart)
	offset := start.Sub(windowStart)
	if offset < 0 {
		return false
	}
	return cfg.Duration > 0 && offset%cfg.Duration == 0
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func validateBookingInput(params CreateBookingParams) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(params.PageSlug) == "" {
		vErr.add("page_slug", "page slug is required")
	}
	if strings.TrimSpace(params.RequesterName) == "" {
		vErr.add("requester_name", "name is required")
	}
	email := strings.TrimSpace(params.RequesterEmail)
	if email == "" {
		vErr.add("requester_email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("requester_email", "must be a valid email address")
	}
	if params.Start.IsZero() {
		vErr.add("start", "start is required")
	}

	return vErr
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrConflict
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	return err
}
