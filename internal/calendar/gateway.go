// Package calendar defines the capability interface over external calendar
// providers and its provider-specific adapters. The rest of the system talks
// to a Gateway and never branches on provider type.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Account carries the credentials an adapter needs to act on behalf of a
// connected calendar account.
type Account struct {
	Email        string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}

// EventRequest describes an event to mirror into an external calendar.
type EventRequest struct {
	Summary              string
	Description          string
	Location             string
	Start                time.Time
	End                  time.Time
	Attendees            []string
	WantsVideoConference bool
}

// CreatedEvent is the provider's handle for a mirrored event.
type CreatedEvent struct {
	ID        string
	HTMLLink  string
	VideoLink string
}

// BusyInterval is an occupied time range reported by the provider.
type BusyInterval struct {
	Start  time.Time
	End    time.Time
	Title  string
	AllDay bool
	ID     string
}

// ProviderCalendar describes a calendar discovered under an account.
type ProviderCalendar struct {
	ID      string
	Name    string
	Color   string
	Primary bool
}

// Gateway is the provider-facing capability used for mirroring bookings and
// syncing busy intervals.
type Gateway interface {
	ListCalendars(ctx context.Context) ([]ProviderCalendar, error)
	ListBusyIntervals(ctx context.Context, calendarID string, from, to time.Time) ([]BusyInterval, error)
	CreateEvent(ctx context.Context, calendarID string, req EventRequest) (CreatedEvent, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// Connector builds a Gateway bound to one account's credentials.
type Connector interface {
	Connect(ctx context.Context, account Account) (Gateway, error)
}

// Registry resolves connectors by provider name.
type Registry struct {
	connectors map[string]Connector
}

// NewRegistry builds a registry over the given provider connectors.
func NewRegistry(connectors map[string]Connector) *Registry {
	copied := make(map[string]Connector, len(connectors))
	for name, connector := range connectors {
		copied[name] = connector
	}
	return &Registry{connectors: copied}
}

// Connect resolves the provider's connector and opens a gateway for the account.
func (r *Registry) Connect(ctx context.Context, provider string, account Account) (Gateway, error) {
	if r == nil {
		return nil, &GatewayError{Provider: provider, Op: "connect", Err: errors.New("registry not configured")}
	}
	connector, ok := r.connectors[provider]
	if !ok {
		return nil, &GatewayError{Provider: provider, Op: "connect", Err: fmt.Errorf("unknown provider %q", provider)}
	}
	return connector.Connect(ctx, account)
}

// GatewayError wraps any provider-side failure (auth, rate limit, validation).
type GatewayError struct {
	Provider string
	Op       string
	NotFound bool
	Err      error
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("calendar %s: %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap exposes the underlying provider error.
func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether the error indicates a missing provider-side resource.
func IsNotFound(err error) bool {
	var gErr *GatewayError
	return errors.As(err, &gErr) && gErr.NotFound
}
