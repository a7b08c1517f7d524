package persistence

import "time"

// Owner represents a registered account holder who publishes booking pages.
type Owner struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for an owner.
type Session struct {
	ID        string
	OwnerID   string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// CalendarAccount represents a connected external calendar identity.
type CalendarAccount struct {
	ID           string
	OwnerID      string
	Provider     string
	Email        string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	Active       bool
	Primary      bool
	Color        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Calendar represents a provider-side calendar mirrored under an account.
type Calendar struct {
	ID         string
	AccountID  string
	ProviderID string
	Name       string
	Color      string
	Visible    bool
	Primary    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CalendarEvent is a cached busy interval rebuilt on each sync.
type CalendarEvent struct {
	ID              string
	CalendarID      string
	ProviderEventID string
	Title           string
	Start           time.Time
	End             time.Time
	AllDay          bool
	SyncedAt        time.Time
}

// BusyInterval is the projection of cached events consumed by availability
// computation.
type BusyInterval struct {
	Start time.Time
	End   time.Time
	Title string
}

// BookingPage represents the published booking configuration of an owner.
//
// DayStartMinutes and DayEndMinutes are offsets from midnight of the booked
// day; Weekdays is the set of allowed days.
type BookingPage struct {
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

// Booking statuses. Cancelled is terminal.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking represents a reserved slot on a booking page.
type Booking struct {
	ID                    string
	BookingPageID         string
	TrackingID            string
	RequesterName         string
	RequesterEmail        string
	Start                 time.Time
	End                   time.Time
	Notes                 string
	Status                string
	ExternalEventID       *string
	MeetingURL            *string
	DestinationCalendarID *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Event session statuses derived from the capacity counters.
const (
	SessionStatusAvailable = "available"
	SessionStatusPending   = "pending"
	SessionStatusConfirmed = "confirmed"
	SessionStatusFull      = "full"
	SessionStatusCancelled = "cancelled"
)

// EventSession represents a schedulable session of a community event with
// speaker capacity tracking.
type EventSession struct {
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
