package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/calbook/internal/application"
	"github.com/example/calbook/internal/persistence"
)

var (
	ownerCounter   uint64
	pageCounter    uint64
	bookingCounter uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures. It
// falls on a Monday so weekday rules admit it by default.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Owner fixtures -----------------------------

// OwnerFixture represents a deterministic owner record that can be
// materialised in either the application or persistence shape.
type OwnerFixture struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OwnerOption mutates an OwnerFixture during construction.
type OwnerOption func(*OwnerFixture)

// NewOwnerFixture builds an owner with deterministic defaults.
func NewOwnerFixture(opts ...OwnerOption) OwnerFixture {
	n := atomic.AddUint64(&ownerCounter, 1)
	fixture := OwnerFixture{
		ID:           fmt.Sprintf("owner-%d", n),
		Email:        fmt.Sprintf("owner%d@example.com", n),
		DisplayName:  fmt.Sprintf("Owner %d", n),
		PasswordHash: "argon2id$fixture-hash",
		CreatedAt:    referenceTime,
		UpdatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithOwnerID overrides the generated identifier.
func WithOwnerID(id string) OwnerOption {
	return func(f *OwnerFixture) { f.ID = id }
}

// WithOwnerEmail overrides the generated email address.
func WithOwnerEmail(email string) OwnerOption {
	return func(f *OwnerFixture) { f.Email = email }
}

// Application converts the fixture into the application layer shape.
func (f OwnerFixture) Application() application.Owner {
	return application.Owner{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Credentials converts the fixture into the credential shape used by the
// authentication service.
func (f OwnerFixture) Credentials() application.OwnerCredentials {
	return application.OwnerCredentials{
		Owner:        f.Application(),
		PasswordHash: f.PasswordHash,
	}
}

// Principal returns the principal acting as this owner.
func (f OwnerFixture) Principal() application.Principal {
	return application.Principal{OwnerID: f.ID}
}

// Persistence converts the fixture into the persistence layer shape.
func (f OwnerFixture) Persistence() persistence.Owner {
	return persistence.Owner{
		ID:           f.ID,
		Email:        f.Email,
		DisplayName:  f.DisplayName,
		PasswordHash: f.PasswordHash,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// -------------------------- Booking page fixtures --------------------------

// PageFixture represents a deterministic booking page. The defaults describe a
// 30 minute page open 09:00 to 17:00 on weekdays.
type PageFixture struct {
	ID                    string
	OwnerID               string
	Slug                  string
	Title                 string
	DurationMinutes       int
	BufferBeforeMinutes   int
	BufferAfterMinutes    int
	DayStartMinutes       int
	DayEndMinutes         int
	Weekdays              []time.Weekday
	CalendarIDs           []string
	DestinationCalendarID *string
	Active                bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// PageOption mutates a PageFixture during construction.
type PageOption func(*PageFixture)

// NewPageFixture builds a booking page with deterministic defaults.
func NewPageFixture(opts ...PageOption) PageFixture {
	n := atomic.AddUint64(&pageCounter, 1)
	fixture := PageFixture{
		ID:              fmt.Sprintf("page-%d", n),
		OwnerID:         "owner-1",
		Slug:            fmt.Sprintf("intro-call-%d", n),
		Title:           fmt.Sprintf("Intro Call %d", n),
		DurationMinutes: 30,
		DayStartMinutes: 9 * 60,
		DayEndMinutes:   17 * 60,
		Weekdays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		Active:    true,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPageID overrides the generated identifier.
func WithPageID(id string) PageOption {
	return func(f *PageFixture) { f.ID = id }
}

// WithPageOwner assigns the page to the given owner.
func WithPageOwner(ownerID string) PageOption {
	return func(f *PageFixture) { f.OwnerID = ownerID }
}

// WithPageSlug overrides the generated slug.
func WithPageSlug(slug string) PageOption {
	return func(f *PageFixture) { f.Slug = slug }
}

// WithPageBuffers sets the before and after buffers in minutes.
func WithPageBuffers(before, after int) PageOption {
	return func(f *PageFixture) {
		f.BufferBeforeMinutes = before
		f.BufferAfterMinutes = after
	}
}

// WithPageWeekdays restricts the page to the given weekdays.
func WithPageWeekdays(days ...time.Weekday) PageOption {
	return func(f *PageFixture) { f.Weekdays = days }
}

// WithPageCalendars sets the calendars counted against availability.
func WithPageCalendars(calendarIDs ...string) PageOption {
	return func(f *PageFixture) { f.CalendarIDs = calendarIDs }
}

// WithPageDestination sets the calendar that receives mirrored bookings.
func WithPageDestination(calendarID string) PageOption {
	return func(f *PageFixture) { f.DestinationCalendarID = &calendarID }
}

// Application converts the fixture into the application layer shape.
func (f PageFixture) Application() application.BookingPage {
	return application.BookingPage{
		ID:                    f.ID,
		OwnerID:               f.OwnerID,
		Slug:                  f.Slug,
		Title:                 f.Title,
		DurationMinutes:       f.DurationMinutes,
		BufferBeforeMinutes:   f.BufferBeforeMinutes,
		BufferAfterMinutes:    f.BufferAfterMinutes,
		DayStartMinutes:       f.DayStartMinutes,
		DayEndMinutes:         f.DayEndMinutes,
		Weekdays:              append([]time.Weekday(nil), f.Weekdays...),
		CalendarIDs:           append([]string(nil), f.CalendarIDs...),
		DestinationCalendarID: copyStringPtr(f.DestinationCalendarID),
		Active:                f.Active,
		CreatedAt:             f.CreatedAt,
		UpdatedAt:             f.UpdatedAt,
	}
}

// Input converts the fixture into the caller supplied input shape.
func (f PageFixture) Input() application.BookingPageInput {
	return application.BookingPageInput{
		Slug:                  f.Slug,
		Title:                 f.Title,
		DurationMinutes:       f.DurationMinutes,
		BufferBeforeMinutes:   f.BufferBeforeMinutes,
		BufferAfterMinutes:    f.BufferAfterMinutes,
		DayStartMinutes:       f.DayStartMinutes,
		DayEndMinutes:         f.DayEndMinutes,
		Weekdays:              append([]time.Weekday(nil), f.Weekdays...),
		CalendarIDs:           append([]string(nil), f.CalendarIDs...),
		DestinationCalendarID: copyStringPtr(f.DestinationCalendarID),
		Active:                f.Active,
	}
}

// Persistence converts the fixture into the persistence layer shape.
func (f PageFixture) Persistence() persistence.BookingPage {
	return persistence.BookingPage{
		ID:                    f.ID,
		OwnerID:               f.OwnerID,
		Slug:                  f.Slug,
		Title:                 f.Title,
		DurationMinutes:       f.DurationMinutes,
		BufferBeforeMinutes:   f.BufferBeforeMinutes,
		BufferAfterMinutes:    f.BufferAfterMinutes,
		DayStartMinutes:       f.DayStartMinutes,
		DayEndMinutes:         f.DayEndMinutes,
		Weekdays:              append([]time.Weekday(nil), f.Weekdays...),
		CalendarIDs:           append([]string(nil), f.CalendarIDs...),
		DestinationCalendarID: copyStringPtr(f.DestinationCalendarID),
		Active:                f.Active,
		CreatedAt:             f.CreatedAt,
		UpdatedAt:             f.UpdatedAt,
	}
}

// ---------------------------- Booking fixtures ----------------------------

// BookingFixture represents a deterministic confirmed booking starting an hour
// after ReferenceTime.
type BookingFixture struct {
	ID             string
	BookingPageID  string
	TrackingID     string
	RequesterName  string
	RequesterEmail string
	Start          time.Time
	End            time.Time
	Notes          string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BookingOption mutates a BookingFixture during construction.
type BookingOption func(*BookingFixture)

// NewBookingFixture builds a booking with deterministic defaults.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	n := atomic.AddUint64(&bookingCounter, 1)
	start := referenceTime.Add(time.Hour)
	fixture := BookingFixture{
		ID:             fmt.Sprintf("booking-%d", n),
		BookingPageID:  "page-1",
		TrackingID:     fmt.Sprintf("trk-%d", n),
		RequesterName:  fmt.Sprintf("Requester %d", n),
		RequesterEmail: fmt.Sprintf("requester%d@example.com", n),
		Start:          start,
		End:            start.Add(30 * time.Minute),
		Status:         persistence.BookingStatusConfirmed,
		CreatedAt:      referenceTime,
		UpdatedAt:      referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the generated identifier.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) { f.ID = id }
}

// WithBookingPage assigns the booking to the given page.
func WithBookingPage(pageID string) BookingOption {
	return func(f *BookingFixture) { f.BookingPageID = pageID }
}

// WithBookingTrackingID overrides the generated tracking identifier.
func WithBookingTrackingID(trackingID string) BookingOption {
	return func(f *BookingFixture) { f.TrackingID = trackingID }
}

// WithBookingStartEnd sets the reserved interval.
func WithBookingStartEnd(start, end time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.Start = start
		f.End = end
	}
}

// WithBookingCancelled marks the booking as cancelled.
func WithBookingCancelled() BookingOption {
	return func(f *BookingFixture) { f.Status = persistence.BookingStatusCancelled }
}

// Application converts the fixture into the application layer shape.
func (f BookingFixture) Application() application.Booking {
	return application.Booking{
		ID:             f.ID,
		BookingPageID:  f.BookingPageID,
		TrackingID:     f.TrackingID,
		RequesterName:  f.RequesterName,
		RequesterEmail: f.RequesterEmail,
		Start:          f.Start,
		End:            f.End,
		Notes:          f.Notes,
		Status:         f.Status,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Persistence converts the fixture into the persistence layer shape.
func (f BookingFixture) Persistence() persistence.Booking {
	return persistence.Booking{
		ID:             f.ID,
		BookingPageID:  f.BookingPageID,
		TrackingID:     f.TrackingID,
		RequesterName:  f.RequesterName,
		RequesterEmail: f.RequesterEmail,
		Start:          f.Start,
		End:            f.End,
		Notes:          f.Notes,
		Status:         f.Status,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// ------------------------- Event session fixtures -------------------------

// EventSessionFixture represents a deterministic community event session with
// three speaker seats.
type EventSessionFixture struct {
	ID                  string
	CommunityEventID    string
	Title               string
	Start               time.Time
	End                 time.Time
	MaxSpeakers         int
	CurrentSpeakers     int
	PendingApplications int
	AllowsApplications  bool
	BlockOnApplication  bool
	Status              string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// EventSessionOption mutates an EventSessionFixture during construction.
type EventSessionOption func(*EventSessionFixture)

// NewEventSessionFixture builds an event session with deterministic defaults.
func NewEventSessionFixture(opts ...EventSessionOption) EventSessionFixture {
	n := atomic.AddUint64(&sessionCounter, 1)
	start := referenceTime.Add(2 * time.Hour)
	fixture := EventSessionFixture{
		ID:                 fmt.Sprintf("session-%d", n),
		CommunityEventID:   "event-1",
		Title:              fmt.Sprintf("Session %d", n),
		Start:              start,
		End:                start.Add(45 * time.Minute),
		MaxSpeakers:        3,
		AllowsApplications: true,
		Status:             persistence.SessionStatusAvailable,
		CreatedAt:          referenceTime,
		UpdatedAt:          referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the generated identifier.
func WithSessionID(id string) EventSessionOption {
	return func(f *EventSessionFixture) { f.ID = id }
}

// WithSessionEvent assigns the session to the given community event.
func WithSessionEvent(eventID string) EventSessionOption {
	return func(f *EventSessionFixture) { f.CommunityEventID = eventID }
}

// WithSessionCapacity sets the speaker capacity and current fill.
func WithSessionCapacity(max, current int) EventSessionOption {
	return func(f *EventSessionFixture) {
		f.MaxSpeakers = max
		f.CurrentSpeakers = current
	}
}

// WithSessionBlockOnApplication makes pending applications block the slot.
func WithSessionBlockOnApplication() EventSessionOption {
	return func(f *EventSessionFixture) { f.BlockOnApplication = true }
}

// Application converts the fixture into the application layer shape.
func (f EventSessionFixture) Application() application.EventSession {
	return application.EventSession{
		ID:                  f.ID,
		CommunityEventID:    f.CommunityEventID,
		Title:               f.Title,
		Start:               f.Start,
		End:                 f.End,
		MaxSpeakers:         f.MaxSpeakers,
		CurrentSpeakers:     f.CurrentSpeakers,
		PendingApplications: f.PendingApplications,
		AllowsApplications:  f.AllowsApplications,
		BlockOnApplication:  f.BlockOnApplication,
		Status:              f.Status,
		CreatedAt:           f.CreatedAt,
		UpdatedAt:           f.UpdatedAt,
	}
}

// Persistence converts the fixture into the persistence layer shape.
func (f EventSessionFixture) Persistence() persistence.EventSession {
	return persistence.EventSession{
		ID:                  f.ID,
		CommunityEventID:    f.CommunityEventID,
		Title:               f.Title,
		Start:               f.Start,
		End:                 f.End,
		MaxSpeakers:         f.MaxSpeakers,
		CurrentSpeakers:     f.CurrentSpeakers,
		PendingApplications: f.PendingApplications,
		AllowsApplications:  f.AllowsApplications,
		BlockOnApplication:  f.BlockOnApplication,
		Status:              f.Status,
		CreatedAt:           f.CreatedAt,
		UpdatedAt:           f.UpdatedAt,
	}
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
