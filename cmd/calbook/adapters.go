package main

import (
	"context"
	"time"

	"github.com/example/calbook/internal/application"
	"github.com/example/calbook/internal/persistence"
	"github.com/example/calbook/internal/persistence/sqlite"
)

// The application layer speaks its own model types while the sqlite
// repositories exchange persistence models. The adapters below bridge the two.

type credentialStoreAdapter struct {
	repo *sqlite.OwnerRepository
}

func newCredentialStoreAdapter(repo *sqlite.OwnerRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) CreateOwner(ctx context.Context, creds application.OwnerCredentials) (application.Owner, error) {
	if err := a.repo.CreateOwner(ctx, toPersistenceOwner(creds)); err != nil {
		return application.Owner{}, err
	}
	stored, err := a.repo.GetOwner(ctx, creds.Owner.ID)
	if err != nil {
		return application.Owner{}, err
	}
	return toApplicationOwner(stored), nil
}

func (a *credentialStoreAdapter) GetOwnerCredentialsByEmail(ctx context.Context, email string) (application.OwnerCredentials, error) {
	stored, err := a.repo.GetOwnerByEmail(ctx, email)
	if err != nil {
		return application.OwnerCredentials{}, err
	}
	return application.OwnerCredentials{
		Owner:        toApplicationOwner(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *credentialStoreAdapter) GetOwner(ctx context.Context, id string) (application.Owner, error) {
	stored, err := a.repo.GetOwner(ctx, id)
	if err != nil {
		return application.Owner{}, err
	}
	return toApplicationOwner(stored), nil
}

type sessionStoreAdapter struct {
	repo *sqlite.SessionRepository
}

func newSessionStoreAdapter(repo *sqlite.SessionRepository) *sessionStoreAdapter {
	return &sessionStoreAdapter{repo: repo}
}

func (a *sessionStoreAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionStoreAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionStoreAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionStoreAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type pageRepositoryAdapter struct {
	repo *sqlite.BookingPageRepository
}

func newPageRepositoryAdapter(repo *sqlite.BookingPageRepository) *pageRepositoryAdapter {
	return &pageRepositoryAdapter{repo: repo}
}

func (a *pageRepositoryAdapter) CreatePage(ctx context.Context, page application.BookingPage) (application.BookingPage, error) {
	if err := a.repo.CreatePage(ctx, toPersistencePage(page)); err != nil {
		return application.BookingPage{}, err
	}
	stored, err := a.repo.GetPage(ctx, page.ID)
	if err != nil {
		return application.BookingPage{}, err
	}
	return toApplicationPage(stored), nil
}

func (a *pageRepositoryAdapter) UpdatePage(ctx context.Context, page application.BookingPage) (application.BookingPage, error) {
	if err := a.repo.UpdatePage(ctx, toPersistencePage(page)); err != nil {
		return application.BookingPage{}, err
	}
	stored, err := a.repo.GetPage(ctx, page.ID)
	if err != nil {
		return application.BookingPage{}, err
	}
	return toApplicationPage(stored), nil
}

func (a *pageRepositoryAdapter) GetPage(ctx context.Context, id string) (application.BookingPage, error) {
	stored, err := a.repo.GetPage(ctx, id)
	if err != nil {
		return application.BookingPage{}, err
	}
	return toApplicationPage(stored), nil
}

func (a *pageRepositoryAdapter) GetPageBySlug(ctx context.Context, slug string) (application.BookingPage, error) {
	stored, err := a.repo.GetPageBySlug(ctx, slug)
	if err != nil {
		return application.BookingPage{}, err
	}
	return toApplicationPage(stored), nil
}

func (a *pageRepositoryAdapter) ListPagesForOwner(ctx context.Context, ownerID string) ([]application.BookingPage, error) {
	models, err := a.repo.ListPagesForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	pages := make([]application.BookingPage, 0, len(models))
	for _, model := range models {
		pages = append(pages, toApplicationPage(model))
	}
	return pages, nil
}

func (a *pageRepositoryAdapter) DeletePage(ctx context.Context, id string) error {
	return a.repo.DeletePage(ctx, id)
}

type bookingStoreAdapter struct {
	repo *sqlite.BookingRepository
}

func newBookingStoreAdapter(repo *sqlite.BookingRepository) *bookingStoreAdapter {
	return &bookingStoreAdapter{repo: repo}
}

func (a *bookingStoreAdapter) CreateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.repo.CreateBooking(ctx, toPersistenceBooking(booking)); err != nil {
		return application.Booking{}, err
	}
	stored, err := a.repo.GetBooking(ctx, booking.ID)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingStoreAdapter) UpdateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.repo.UpdateBooking(ctx, toPersistenceBooking(booking)); err != nil {
		return application.Booking{}, err
	}
	stored, err := a.repo.GetBooking(ctx, booking.ID)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingStoreAdapter) GetBookingByTrackingID(ctx context.Context, trackingID string) (application.Booking, error) {
	stored, err := a.repo.GetBookingByTrackingID(ctx, trackingID)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingStoreAdapter) ListConfirmedBetween(ctx context.Context, pageID string, from, to time.Time) ([]application.Booking, error) {
	models, err := a.repo.ListConfirmedBetween(ctx, pageID, from, to)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	bookings := make([]application.Booking, 0, len(models))
	for _, model := range models {
		bookings = append(bookings, toApplicationBooking(model))
	}
	return bookings, nil
}

type accountRepositoryAdapter struct {
	repo *sqlite.AccountRepository
}

func newAccountRepositoryAdapter(repo *sqlite.AccountRepository) *accountRepositoryAdapter {
	return &accountRepositoryAdapter{repo: repo}
}

func (a *accountRepositoryAdapter) CreateAccount(ctx context.Context, account application.CalendarAccount) (application.CalendarAccount, error) {
	if err := a.repo.CreateAccount(ctx, toPersistenceAccount(account)); err != nil {
		return application.CalendarAccount{}, err
	}
	stored, err := a.repo.GetAccount(ctx, account.ID)
	if err != nil {
		return application.CalendarAccount{}, err
	}
	return toApplicationAccount(stored), nil
}

func (a *accountRepositoryAdapter) UpdateAccount(ctx context.Context, account application.CalendarAccount) (application.CalendarAccount, error) {
	if err := a.repo.UpdateAccount(ctx, toPersistenceAccount(account)); err != nil {
		return application.CalendarAccount{}, err
	}
	stored, err := a.repo.GetAccount(ctx, account.ID)
	if err != nil {
		return application.CalendarAccount{}, err
	}
	return toApplicationAccount(stored), nil
}

func (a *accountRepositoryAdapter) GetAccount(ctx context.Context, id string) (application.CalendarAccount, error) {
	stored, err := a.repo.GetAccount(ctx, id)
	if err != nil {
		return application.CalendarAccount{}, err
	}
	return toApplicationAccount(stored), nil
}

func (a *accountRepositoryAdapter) ListAccountsForOwner(ctx context.Context, ownerID string) ([]application.CalendarAccount, error) {
	models, err := a.repo.ListAccountsForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	accounts := make([]application.CalendarAccount, 0, len(models))
	for _, model := range models {
		accounts = append(accounts, toApplicationAccount(model))
	}
	return accounts, nil
}

type calendarStoreAdapter struct {
	repo *sqlite.CalendarRepository
}

func newCalendarStoreAdapter(repo *sqlite.CalendarRepository) *calendarStoreAdapter {
	return &calendarStoreAdapter{repo: repo}
}

func (a *calendarStoreAdapter) UpsertCalendar(ctx context.Context, cal application.Calendar) (application.Calendar, error) {
	if err := a.repo.UpsertCalendar(ctx, toPersistenceCalendar(cal)); err != nil {
		return application.Calendar{}, err
	}
	// An upsert hitting an existing (account, provider calendar) pair keeps
	// the original row id, so the stored row has to be located by provider id.
	stored, err := a.repo.ListCalendarsForAccounts(ctx, []string{cal.AccountID})
	if err != nil {
		return application.Calendar{}, err
	}
	for _, model := range stored {
		if model.ProviderID == cal.ProviderID {
			return toApplicationCalendar(model), nil
		}
	}
	return application.Calendar{}, persistence.ErrNotFound
}

func (a *calendarStoreAdapter) GetCalendar(ctx context.Context, id string) (application.Calendar, error) {
	stored, err := a.repo.GetCalendar(ctx, id)
	if err != nil {
		return application.Calendar{}, err
	}
	return toApplicationCalendar(stored), nil
}

func (a *calendarStoreAdapter) ListCalendarsForAccounts(ctx context.Context, accountIDs []string) ([]application.Calendar, error) {
	models, err := a.repo.ListCalendarsForAccounts(ctx, accountIDs)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	calendars := make([]application.Calendar, 0, len(models))
	for _, model := range models {
		calendars = append(calendars, toApplicationCalendar(model))
	}
	return calendars, nil
}

func (a *calendarStoreAdapter) DeleteCalendarsMissingFrom(ctx context.Context, accountID string, keepProviderIDs []string) error {
	return a.repo.DeleteCalendarsMissingFrom(ctx, accountID, keepProviderIDs)
}

func (a *calendarStoreAdapter) ReplaceEvents(ctx context.Context, calendarID string, window application.SyncWindow, events []application.CachedEvent) error {
	models := make([]persistence.CalendarEvent, 0, len(events))
	for _, event := range events {
		models = append(models, persistence.CalendarEvent{
			ID:              event.ID,
			CalendarID:      event.CalendarID,
			ProviderEventID: event.ProviderEventID,
			Title:           event.Title,
			Start:           event.Start,
			End:             event.End,
			AllDay:          event.AllDay,
			SyncedAt:        event.SyncedAt,
		})
	}
	return a.repo.ReplaceEvents(ctx, calendarID, persistence.EventWindow{From: window.From, To: window.To}, models)
}

func (a *calendarStoreAdapter) ListBusyIntervals(ctx context.Context, calendarIDs []string, from, to time.Time) ([]application.BusyInterval, error) {
	models, err := a.repo.ListBusyIntervals(ctx, calendarIDs, from, to)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	intervals := make([]application.BusyInterval, 0, len(models))
	for _, model := range models {
		intervals = append(intervals, application.BusyInterval{
			Start: model.Start,
			End:   model.End,
			Title: model.Title,
		})
	}
	return intervals, nil
}

type eventSessionStoreAdapter struct {
	repo *sqlite.EventSessionRepository
}

func newEventSessionStoreAdapter(repo *sqlite.EventSessionRepository) *eventSessionStoreAdapter {
	return &eventSessionStoreAdapter{repo: repo}
}

func (a *eventSessionStoreAdapter) CreateSession(ctx context.Context, session application.EventSession) (application.EventSession, error) {
	if err := a.repo.CreateSession(ctx, toPersistenceEventSession(session)); err != nil {
		return application.EventSession{}, err
	}
	stored, err := a.repo.GetSession(ctx, session.ID)
	if err != nil {
		return application.EventSession{}, err
	}
	return toApplicationEventSession(stored), nil
}

func (a *eventSessionStoreAdapter) GetSession(ctx context.Context, id string) (application.EventSession, error) {
	stored, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return application.EventSession{}, err
	}
	return toApplicationEventSession(stored), nil
}

func (a *eventSessionStoreAdapter) ListSessionsForEvent(ctx context.Context, communityEventID string) ([]application.EventSession, error) {
	models, err := a.repo.ListSessionsForEvent(ctx, communityEventID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	sessions := make([]application.EventSession, 0, len(models))
	for _, model := range models {
		sessions = append(sessions, toApplicationEventSession(model))
	}
	return sessions, nil
}

func (a *eventSessionStoreAdapter) Mutate(ctx context.Context, id string, fn func(*application.EventSession) error) (application.EventSession, error) {
	mutated, err := a.repo.Mutate(ctx, id, func(model *persistence.EventSession) error {
		session := toApplicationEventSession(*model)
		if err := fn(&session); err != nil {
			return err
		}
		*model = toPersistenceEventSession(session)
		return nil
	})
	if err != nil {
		return application.EventSession{}, err
	}
	return toApplicationEventSession(mutated), nil
}

func toApplicationOwner(model persistence.Owner) application.Owner {
	return application.Owner{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceOwner(creds application.OwnerCredentials) persistence.Owner {
	return persistence.Owner{
		ID:           creds.Owner.ID,
		Email:        creds.Owner.Email,
		DisplayName:  creds.Owner.DisplayName,
		PasswordHash: creds.PasswordHash,
		CreatedAt:    creds.Owner.CreatedAt,
		UpdatedAt:    creds.Owner.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		OwnerID:   model.OwnerID,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		RevokedAt: model.RevokedAt,
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		OwnerID:   session.OwnerID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: session.RevokedAt,
	}
}

func toApplicationPage(model persistence.BookingPage) application.BookingPage {
	return application.BookingPage{
		ID:                    model.ID,
		OwnerID:               model.OwnerID,
		Slug:                  model.Slug,
		Title:                 model.Title,
		DurationMinutes:       model.DurationMinutes,
		BufferBeforeMinutes:   model.BufferBeforeMinutes,
		BufferAfterMinutes:    model.BufferAfterMinutes,
		DayStartMinutes:       model.DayStartMinutes,
		DayEndMinutes:         model.DayEndMinutes,
		Weekdays:              model.Weekdays,
		CalendarIDs:           model.CalendarIDs,
		DestinationCalendarID: model.DestinationCalendarID,
		Active:                model.Active,
		CreatedAt:             model.CreatedAt,
		UpdatedAt:             model.UpdatedAt,
	}
}

func toPersistencePage(page application.BookingPage) persistence.BookingPage {
	return persistence.BookingPage{
		ID:                    page.ID,
		OwnerID:               page.OwnerID,
		Slug:                  page.Slug,
		Title:                 page.Title,
		DurationMinutes:       page.DurationMinutes,
		BufferBeforeMinutes:   page.BufferBeforeMinutes,
		BufferAfterMinutes:    page.BufferAfterMinutes,
		DayStartMinutes:       page.DayStartMinutes,
		DayEndMinutes:         page.DayEndMinutes,
		Weekdays:              page.Weekdays,
		CalendarIDs:           page.CalendarIDs,
		DestinationCalendarID: page.DestinationCalendarID,
		Active:                page.Active,
		CreatedAt:             page.CreatedAt,
		UpdatedAt:             page.UpdatedAt,
	}
}

func toApplicationBooking(model persistence.Booking) application.Booking {
	return application.Booking{
		ID:                    model.ID,
		BookingPageID:         model.BookingPageID,
		TrackingID:            model.TrackingID,
		RequesterName:         model.RequesterName,
		RequesterEmail:        model.RequesterEmail,
		Start:                 model.Start,
		End:                   model.End,
		Notes:                 model.Notes,
		Status:                model.Status,
		ExternalEventID:       model.ExternalEventID,
		MeetingURL:            model.MeetingURL,
		DestinationCalendarID: model.DestinationCalendarID,
		CreatedAt:             model.CreatedAt,
		UpdatedAt:             model.UpdatedAt,
	}
}

func toPersistenceBooking(booking application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:                    booking.ID,
		BookingPageID:         booking.BookingPageID,
		TrackingID:            booking.TrackingID,
		RequesterName:         booking.RequesterName,
		RequesterEmail:        booking.RequesterEmail,
		Start:                 booking.Start,
		End:                   booking.End,
		Notes:                 booking.Notes,
		Status:                booking.Status,
		ExternalEventID:       booking.ExternalEventID,
		MeetingURL:            booking.MeetingURL,
		DestinationCalendarID: booking.DestinationCalendarID,
		CreatedAt:             booking.CreatedAt,
		UpdatedAt:             booking.UpdatedAt,
	}
}

func toApplicationAccount(model persistence.CalendarAccount) application.CalendarAccount {
	return application.CalendarAccount{
		ID:           model.ID,
		OwnerID:      model.OwnerID,
		Provider:     model.Provider,
		Email:        model.Email,
		AccessToken:  model.AccessToken,
		RefreshToken: model.RefreshToken,
		TokenExpiry:  model.TokenExpiry,
		Active:       model.Active,
		Primary:      model.Primary,
		Color:        model.Color,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toPersistenceAccount(account application.CalendarAccount) persistence.CalendarAccount {
	return persistence.CalendarAccount{
		ID:           account.ID,
		OwnerID:      account.OwnerID,
		Provider:     account.Provider,
		Email:        account.Email,
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		TokenExpiry:  account.TokenExpiry,
		Active:       account.Active,
		Primary:      account.Primary,
		Color:        account.Color,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}
}

func toApplicationCalendar(model persistence.Calendar) application.Calendar {
	return application.Calendar{
		ID:         model.ID,
		AccountID:  model.AccountID,
		ProviderID: model.ProviderID,
		Name:       model.Name,
		Color:      model.Color,
		Visible:    model.Visible,
		Primary:    model.Primary,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

func toPersistenceCalendar(cal application.Calendar) persistence.Calendar {
	return persistence.Calendar{
		ID:         cal.ID,
		AccountID:  cal.AccountID,
		ProviderID: cal.ProviderID,
		Name:       cal.Name,
		Color:      cal.Color,
		Visible:    cal.Visible,
		Primary:    cal.Primary,
		CreatedAt:  cal.CreatedAt,
		UpdatedAt:  cal.UpdatedAt,
	}
}

func toApplicationEventSession(model persistence.EventSession) application.EventSession {
	return application.EventSession{
		ID:                  model.ID,
		CommunityEventID:    model.CommunityEventID,
		Title:               model.Title,
		Start:               model.Start,
		End:                 model.End,
		MaxSpeakers:         model.MaxSpeakers,
		CurrentSpeakers:     model.CurrentSpeakers,
		PendingApplications: model.PendingApplications,
		AllowsApplications:  model.AllowsApplications,
		BlockOnApplication:  model.BlockOnApplication,
		Status:              model.Status,
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
}

func toPersistenceEventSession(session application.EventSession) persistence.EventSession {
	return persistence.EventSession{
		ID:                  session.ID,
		CommunityEventID:    session.CommunityEventID,
		Title:               session.Title,
		Start:               session.Start,
		End:                 session.End,
		MaxSpeakers:         session.MaxSpeakers,
		CurrentSpeakers:     session.CurrentSpeakers,
		PendingApplications: session.PendingApplications,
		AllowsApplications:  session.AllowsApplications,
		BlockOnApplication:  session.BlockOnApplication,
		Status:              session.Status,
		CreatedAt:           session.CreatedAt,
		UpdatedAt:           session.UpdatedAt,
	}
}
