package calendar

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const googleProvider = "google"

// GoogleConnector opens Google Calendar gateways for connected accounts.
type GoogleConnector struct{}

// Connect builds a gateway over the Google Calendar API authenticated with
// the account's access token.
func (GoogleConnector) Connect(ctx context.Context, account Account) (Gateway, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		Expiry:       account.TokenExpiry,
	})
	service, err := gcal.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, &GatewayError{Provider: googleProvider, Op: "connect", Err: err}
	}
	return &googleGateway{service: service}, nil
}

type googleGateway struct {
	service *gcal.Service
}

func (g *googleGateway) ListCalendars(ctx context.Context) ([]ProviderCalendar, error) {
	list, err := g.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, googleError("list calendars", err)
	}

	calendars := make([]ProviderCalendar, 0, len(list.Items))
	for _, item := range list.Items {
		calendars = append(calendars, ProviderCalendar{
			ID:      item.Id,
			Name:    item.Summary,
			Color:   item.BackgroundColor,
			Primary: item.Primary,
		})
	}
	return calendars, nil
}

func (g *googleGateway) ListBusyIntervals(ctx context.Context, calendarID string, from, to time.Time) ([]BusyInterval, error) {
	events, err := g.service.Events.List(calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, googleError("list events", err)
	}
	return busyFromGoogleEvents(events.Items), nil
}

func (g *googleGateway) CreateEvent(ctx context.Context, calendarID string, req EventRequest) (CreatedEvent, error) {
	event := &gcal.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
		Start:       &gcal.EventDateTime{DateTime: req.Start.Format(time.RFC3339)},
		End:         &gcal.EventDateTime{DateTime: req.End.Format(time.RFC3339)},
	}
	for _, email := range req.Attendees {
		event.Attendees = append(event.Attendees, &gcal.EventAttendee{Email: email})
	}

	call := g.service.Events.Insert(calendarID, event).Context(ctx)
	if req.WantsVideoConference {
		event.ConferenceData = &gcal.ConferenceData{
			CreateRequest: &gcal.CreateConferenceRequest{RequestId: uuid.NewString()},
		}
		call = call.ConferenceDataVersion(1)
	}

	created, err := call.Do()
	if err != nil {
		return CreatedEvent{}, googleError("create event", err)
	}

	result := CreatedEvent{ID: created.Id, HTMLLink: created.HtmlLink, VideoLink: created.HangoutLink}
	if result.VideoLink == "" && created.ConferenceData != nil {
		for _, entry := range created.ConferenceData.EntryPoints {
			if entry.EntryPointType == "video" {
				result.VideoLink = entry.Uri
				break
			}
		}
	}
	return result, nil
}

func (g *googleGateway) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := g.service.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return googleError("delete event", err)
	}
	return nil
}

// busyFromGoogleEvents converts provider events to busy intervals. All-day
// events carry a date without a time and normalize to full-day bounds.
func busyFromGoogleEvents(items []*gcal.Event) []BusyInterval {
	var intervals []BusyInterval
	for _, item := range items {
		if item.Status == "cancelled" || item.Start == nil || item.End == nil {
			continue
		}

		if item.Start.DateTime == "" {
			day, err := time.Parse("2006-01-02", item.Start.Date)
			if err != nil {
				continue
			}
			endDay, err := time.Parse("2006-01-02", item.End.Date)
			if err != nil {
				endDay = day.AddDate(0, 0, 1)
			}
			intervals = append(intervals, BusyInterval{
				Start:  day,
				End:    endDay,
				Title:  item.Summary,
				AllDay: true,
				ID:     item.Id,
			})
			continue
		}

		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			continue
		}
		intervals = append(intervals, BusyInterval{Start: start, End: end, Title: item.Summary, ID: item.Id})
	}
	return intervals
}

func googleError(op string, err error) *GatewayError {
	gErr := &GatewayError{Provider: googleProvider, Op: op, Err: err}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		gErr.NotFound = true
	}
	return gErr
}
