package application

import "time"

// Principal represents the authenticated owner invoking a service method.
type Principal struct {
	OwnerID string
}

// Owner represents a registered account holder.
type Owner struct {
	ID          string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnerCredentials models the authentication attributes persisted for an owner.
type OwnerCredentials struct {
	Owner        Owner
	PasswordHash string
}

// Session represents an authenticated session issued to an owner.
type Session struct {
	ID        string
	OwnerID   string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// RegisterOwnerParams captures the data required to register an owner.
type RegisterOwnerParams struct {
	Email       string
	DisplayName string
	Password    string
}

// AuthenticateParams captures the data required to authenticate an owner.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	Owner   Owner
	Session Session
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

// ConnectAccountParams wraps the data required to register an external account.
type ConnectAccountParams struct {
	Principal    Principal
	Provider     string
	Email        string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}

// BookingPageInput captures caller provided booking page fields.
type BookingPageInput struct {
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
}

// BookingPage represents a published booking configuration.
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

// Duration returns the configured slot length.
func (p BookingPage) Duration() time.Duration {
	return time.Duration(p.DurationMinutes) * time.Minute
}

// CreateBookingPageParams wraps the data required to create a booking page.
type CreateBookingPageParams struct {
	Principal Principal
	Input     BookingPageInput
}

// UpdateBookingPageParams wraps the data required to update a booking page.
type UpdateBookingPageParams struct {
	Principal Principal
	PageID    string
	Input     BookingPageInput
}

// Slot is a bookable time range offered to public bookers.
type Slot struct {
	Start time.Time
	End   time.Time
}

// BusyInterval is a cached occupied time range counted against availability.
type BusyInterval struct {
	Start time.Time
	End   time.Time
	Title string
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

// Cancelled reports whether the booking reached its terminal state.
func (b Booking) Cancelled() bool {
	return b.Status == BookingStatusCancelled
}

// CreateBookingParams wraps the data submitted by a public booker.
type CreateBookingParams struct {
	PageSlug       string
	RequesterName  string
	RequesterEmail string
	Start          time.Time
	Notes          string
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

// EventSessionInput captures caller provided session fields.
type EventSessionInput struct {
	CommunityEventID   string
	Title              string
	Start              time.Time
	End                time.Time
	MaxSpeakers        int
	AllowsApplications bool
	BlockOnApplication bool
}

// CreateEventSessionParams wraps the data required to create an event session.
type CreateEventSessionParams struct {
	Principal Principal
	Input     EventSessionInput
}
