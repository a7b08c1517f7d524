package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

const (
	microsoftProvider = "microsoft"
	graphBaseURL      = "https://graph.microsoft.com/v1.0"

	// Graph serializes event times without a zone designator; the Prefer
	// header below pins them to UTC.
	graphTimeLayout = "2006-01-02T15:04:05.9999999"
)

// MicrosoftConnector opens Microsoft Graph gateways for connected accounts.
// There is no official Graph SDK in use here; the adapter speaks the REST
// API directly over an oauth2-authenticated client.
type MicrosoftConnector struct{}

// Connect builds a gateway over the Microsoft Graph API authenticated with
// the account's access token.
func (MicrosoftConnector) Connect(ctx context.Context, account Account) (Gateway, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		Expiry:       account.TokenExpiry,
	})
	return &graphGateway{client: oauth2.NewClient(ctx, source)}, nil
}

type graphGateway struct {
	client *http.Client
}

type graphCalendar struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	HexColor          string `json:"hexColor"`
	IsDefaultCalendar bool   `json:"isDefaultCalendar"`
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEvent struct {
	ID          string        `json:"id"`
	Subject     string        `json:"subject"`
	IsAllDay    bool          `json:"isAllDay"`
	IsCancelled bool          `json:"isCancelled"`
	Start       graphDateTime `json:"start"`
	End         graphDateTime `json:"end"`
	WebLink     string        `json:"webLink"`
	OnlineMeeting *struct {
		JoinURL string `json:"joinUrl"`
	} `json:"onlineMeeting"`
}

func (g *graphGateway) ListCalendars(ctx context.Context) ([]ProviderCalendar, error) {
	var payload struct {
		Value []graphCalendar `json:"value"`
	}
	if err := g.get(ctx, graphBaseURL+"/me/calendars", &payload); err != nil {
		return nil, graphError("list calendars", err)
	}

	calendars := make([]ProviderCalendar, 0, len(payload.Value))
	for _, item := range payload.Value {
		calendars = append(calendars, ProviderCalendar{
			ID:      item.ID,
			Name:    item.Name,
			Color:   item.HexColor,
			Primary: item.IsDefaultCalendar,
		})
	}
	return calendars, nil
}

func (g *graphGateway) ListBusyIntervals(ctx context.Context, calendarID string, from, to time.Time) ([]BusyInterval, error) {
	endpoint := fmt.Sprintf("%s/me/calendars/%s/calendarView?startDateTime=%s&endDateTime=%s",
		graphBaseURL,
		url.PathEscape(calendarID),
		url.QueryEscape(from.UTC().Format(time.RFC3339)),
		url.QueryEscape(to.UTC().Format(time.RFC3339)),
	)

	var payload struct {
		Value []graphEvent `json:"value"`
	}
	if err := g.get(ctx, endpoint, &payload); err != nil {
		return nil, graphError("list events", err)
	}

	var intervals []BusyInterval
	for _, item := range payload.Value {
		if item.IsCancelled {
			continue
		}
		start, err := parseGraphTime(item.Start)
		if err != nil {
			continue
		}
		end, err := parseGraphTime(item.End)
		if err != nil {
			continue
		}
		intervals = append(intervals, BusyInterval{
			Start:  start,
			End:    end,
			Title:  item.Subject,
			AllDay: item.IsAllDay,
			ID:     item.ID,
		})
	}
	return intervals, nil
}

func (g *graphGateway) CreateEvent(ctx context.Context, calendarID string, req EventRequest) (CreatedEvent, error) {
	type emailAddress struct {
		Address string `json:"address"`
	}
	type attendee struct {
		EmailAddress emailAddress `json:"emailAddress"`
		Type         string       `json:"type"`
	}

	body := map[string]any{
		"subject": req.Summary,
		"body": map[string]string{
			"contentType": "text",
			"content":     req.Description,
		},
		"start": graphDateTime{DateTime: req.Start.UTC().Format(graphTimeLayout), TimeZone: "UTC"},
		"end":   graphDateTime{DateTime: req.End.UTC().Format(graphTimeLayout), TimeZone: "UTC"},
	}
	if req.Location != "" {
		body["location"] = map[string]string{"displayName": req.Location}
	}
	if len(req.Attendees) > 0 {
		attendees := make([]attendee, 0, len(req.Attendees))
		for _, email := range req.Attendees {
			attendees = append(attendees, attendee{EmailAddress: emailAddress{Address: email}, Type: "required"})
		}
		body["attendees"] = attendees
	}
	if req.WantsVideoConference {
		body["isOnlineMeeting"] = true
		body["onlineMeetingProvider"] = "teamsForBusiness"
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return CreatedEvent{}, graphError("create event", err)
	}

	endpoint := fmt.Sprintf("%s/me/calendars/%s/events", graphBaseURL, url.PathEscape(calendarID))
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return CreatedEvent{}, graphError("create event", err)
	}
	request.Header.Set("Content-Type", "application/json")

	var created graphEvent
	if err := g.do(request, &created); err != nil {
		return CreatedEvent{}, graphError("create event", err)
	}

	result := CreatedEvent{ID: created.ID, HTMLLink: created.WebLink}
	if created.OnlineMeeting != nil {
		result.VideoLink = created.OnlineMeeting.JoinURL
	}
	return result, nil
}

func (g *graphGateway) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	endpoint := fmt.Sprintf("%s/me/calendars/%s/events/%s",
		graphBaseURL, url.PathEscape(calendarID), url.PathEscape(eventID))
	request, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return graphError("delete event", err)
	}

	response, err := g.client.Do(request)
	if err != nil {
		return graphError("delete event", err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return &GatewayError{Provider: microsoftProvider, Op: "delete event", NotFound: true, Err: fmt.Errorf("event %s not found", eventID)}
	}
	if response.StatusCode >= 400 {
		return graphError("delete event", fmt.Errorf("graph returned status %d", response.StatusCode))
	}
	return nil
}

func (g *graphGateway) get(ctx context.Context, endpoint string, out any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	request.Header.Set("Prefer", `outlook.timezone="UTC"`)
	return g.do(request, out)
}

func (g *graphGateway) do(request *http.Request, out any) error {
	response, err := g.client.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		return fmt.Errorf("graph returned status %d: %s", response.StatusCode, bytes.TrimSpace(body))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(out)
}

func parseGraphTime(value graphDateTime) (time.Time, error) {
	if ts, err := time.Parse(graphTimeLayout, value.DateTime); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value.DateTime)
}

func graphError(op string, err error) *GatewayError {
	return &GatewayError{Provider: microsoftProvider, Op: op, Err: err}
}
