package calendar

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

const caldavProvider = "caldav"

// basicAuthTransport adds Basic Auth and a User-Agent to every request.
// CalDAV accounts authenticate with an app-specific password stored in
// the account's access token.
type basicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "calbook/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVConnector opens gateways against a CalDAV server such as iCloud.
type CalDAVConnector struct {
	Endpoint string
}

// Connect builds a gateway for the given account. The account email is the
// CalDAV username and the access token holds the app-specific password.
func (c CalDAVConnector) Connect(_ context.Context, account Account) (Gateway, error) {
	httpClient := &http.Client{Transport: &basicAuthTransport{
		Username:  account.Email,
		Password:  account.AccessToken,
		Transport: http.DefaultTransport,
	}}

	caldavClient, err := caldav.NewClient(httpClient, c.Endpoint)
	if err != nil {
		return nil, caldavError("connect", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, c.Endpoint)
	if err != nil {
		return nil, caldavError("connect", err)
	}

	return &caldavGateway{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		httpClient:   httpClient,
		endpoint:     c.Endpoint,
	}, nil
}

type caldavGateway struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	httpClient   *http.Client
	endpoint     string
}

// ListCalendars walks the discovery chain: current user principal, calendar
// home set, then the calendars under it. Calendar paths double as IDs.
func (g *caldavGateway) ListCalendars(ctx context.Context) ([]ProviderCalendar, error) {
	principalPath, err := g.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, caldavError("find principal", err)
	}
	homeSetPath, err := g.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return nil, caldavError("find calendar home set", err)
	}
	found, err := g.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return nil, caldavError("find calendars", err)
	}

	calendars := make([]ProviderCalendar, 0, len(found))
	for _, cal := range found {
		calendars = append(calendars, ProviderCalendar{
			ID:   cal.Path,
			Name: cal.Name,
		})
	}
	return calendars, nil
}

func (g *caldavGateway) ListBusyIntervals(ctx context.Context, calendarID string, from, to time.Time) ([]BusyInterval, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  ical.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{Name: ical.CompEvent, AllProps: true}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: from.UTC(),
				End:   to.UTC(),
			}},
		},
	}

	objects, err := g.caldavClient.QueryCalendar(ctx, calendarID, query)
	if err != nil {
		return nil, caldavError("query calendar", err)
	}

	var intervals []BusyInterval
	for _, object := range objects {
		if object.Data == nil {
			continue
		}
		for _, event := range object.Data.Events() {
			start, err := event.DateTimeStart(time.UTC)
			if err != nil {
				continue
			}
			end, err := event.DateTimeEnd(time.UTC)
			if err != nil {
				continue
			}
			interval := BusyInterval{Start: start, End: end}
			if summary := event.Props.Get(ical.PropSummary); summary != nil {
				interval.Title = summary.Value
			}
			if uid := event.Props.Get(ical.PropUID); uid != nil {
				interval.ID = uid.Value
			}
			intervals = append(intervals, interval)
		}
	}
	return intervals, nil
}

// CreateEvent uploads a single-event iCalendar object. The returned event ID
// is the generated UID, which DeleteEvent turns back into the object path.
func (g *caldavGateway) CreateEvent(ctx context.Context, calendarID string, req EventRequest) (CreatedEvent, error) {
	uid := uuid.NewString()

	vevent := ical.NewComponent(ical.CompEvent)
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetText(ical.PropSummary, req.Summary)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeStart, req.Start.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, req.End.UTC())
	if req.Description != "" {
		vevent.Props.SetText(ical.PropDescription, req.Description)
	}
	if req.Location != "" {
		vevent.Props.SetText(ical.PropLocation, req.Location)
	}
	for _, attendee := range req.Attendees {
		prop := ical.NewProp(ical.PropAttendee)
		prop.SetText(fmt.Sprintf("mailto:%s", attendee))
		vevent.Props.Add(prop)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//calbook//EN")
	cal.Children = append(cal.Children, vevent)

	writer, err := g.webdavClient.Create(ctx, g.objectPath(calendarID, uid))
	if err != nil {
		return CreatedEvent{}, caldavError("create event", err)
	}
	if err := ical.NewEncoder(writer).Encode(cal); err != nil {
		writer.Close()
		return CreatedEvent{}, caldavError("create event", err)
	}
	if err := writer.Close(); err != nil {
		return CreatedEvent{}, caldavError("create event", err)
	}

	return CreatedEvent{ID: uid}, nil
}

// DeleteEvent issues a plain WebDAV DELETE so the response status can be
// inspected directly.
func (g *caldavGateway) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	endpoint := strings.TrimSuffix(g.endpoint, "/") + "/" + strings.TrimPrefix(g.objectPath(calendarID, eventID), "/")
	request, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return caldavError("delete event", err)
	}

	response, err := g.httpClient.Do(request)
	if err != nil {
		return caldavError("delete event", err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return &GatewayError{Provider: caldavProvider, Op: "delete event", NotFound: true, Err: fmt.Errorf("event %s not found", eventID)}
	}
	if response.StatusCode >= 400 {
		return caldavError("delete event", fmt.Errorf("server returned status %d", response.StatusCode))
	}
	return nil
}

// objectPath builds the event object path relative to the endpoint, as the
// webdav client expects.
func (g *caldavGateway) objectPath(calendarID, uid string) string {
	relative := strings.TrimPrefix(calendarID, g.endpoint)
	return path.Join(relative, fmt.Sprintf("%s.ics", uid))
}

func caldavError(op string, err error) *GatewayError {
	return &GatewayError{Provider: caldavProvider, Op: op, Err: err}
}
