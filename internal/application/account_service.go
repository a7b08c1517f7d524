package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/example/calbook/internal/calendar"
	"github.com/example/calbook/internal/persistence"
)

// CalendarAccountRepository captures the persistence interactions needed by the service.
type CalendarAccountRepository interface {
	CreateAccount(ctx context.Context, account CalendarAccount) (CalendarAccount, error)
	UpdateAccount(ctx context.Context, account CalendarAccount) (CalendarAccount, error)
	GetAccount(ctx context.Context, id string) (CalendarAccount, error)
	ListAccountsForOwner(ctx context.Context, ownerID string) ([]CalendarAccount, error)
}

// SyncWindow bounds the range of events rebuilt by a calendar sync.
type SyncWindow struct {
	From time.Time
	To   time.Time
}

// CachedEvent is one provider event written into the local event cache.
type CachedEvent struct {
	ID              string
	CalendarID      string
	ProviderEventID string
	Title           string
	Start           time.Time
	End             time.Time
	AllDay          bool
	SyncedAt        time.Time
}

// CalendarStore writes mirrored calendars and their cached events.
type CalendarStore interface {
	UpsertCalendar(ctx context.Context, cal Calendar) (Calendar, error)
	ListCalendarsForAccounts(ctx context.Context, accountIDs []string) ([]Calendar, error)
	DeleteCalendarsMissingFrom(ctx context.Context, accountID string, keepProviderIDs []string) error
	ReplaceEvents(ctx context.Context, calendarID string, window SyncWindow, events []CachedEvent) error
}

// TokenRefresher exchanges a stale refresh token for fresh credentials.
type TokenRefresher interface {
	Refresh(ctx context.Context, provider string, account calendar.Account) (calendar.Account, error)
}

// Colors cycled through as owners connect additional accounts.
var accountColorPalette = []string{
	"#4285f4",
	"#ea4335",
	"#34a853",
	"#fbbc04",
	"#9334e6",
	"#12b5cb",
}

var supportedProviders = map[string]struct{}{
	"google":    {},
	"microsoft": {},
	"caldav":    {},
}

// tokenExpiryLeeway keeps a token considered stale slightly before its actual
// expiry so in-flight gateway calls do not race the cutoff.
const tokenExpiryLeeway = 2 * time.Minute

// AccountService manages connected calendar accounts and their mirrored
// calendar state.
type AccountService struct {
	accounts       CalendarAccountRepository
	calendars      CalendarStore
	gateways       GatewayOpener
	refresher      TokenRefresher
	gatewayTimeout time.Duration
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewAccountService constructs an account service with the provided dependencies.
func NewAccountService(accounts CalendarAccountRepository, calendars CalendarStore, gateways GatewayOpener, refresher TokenRefresher, gatewayTimeout time.Duration, idGenerator func() string, now func() time.Time) *AccountService {
	return NewAccountServiceWithLogger(accounts, calendars, gateways, refresher, gatewayTimeout, idGenerator, now, nil)
}

// NewAccountServiceWithLogger constructs an account service with a specified logger.
func NewAccountServiceWithLogger(accounts CalendarAccountRepository, calendars CalendarStore, gateways GatewayOpener, refresher TokenRefresher, gatewayTimeout time.Duration, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AccountService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if gatewayTimeout <= 0 {
		gatewayTimeout = 5 * time.Second
	}
	return &AccountService{
		accounts:       accounts,
		calendars:      calendars,
		gateways:       gateways,
		refresher:      refresher,
		gatewayTimeout: gatewayTimeout,
		idGenerator:    idGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *AccountService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AccountService", operation, attrs...)
}

// ConnectAccount registers an external calendar account for the owner. The
// first active account becomes the owner's primary, and each account receives
// the next color from the palette.
func (s *AccountService) ConnectAccount(ctx context.Context, params ConnectAccountParams) (account CalendarAccount, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("account repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ConnectAccount",
		"owner_id", params.Principal.OwnerID,
		"provider", params.Provider,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to connect account", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("account_id", account.ID).InfoContext(ctx, "account connected")
	}()

	if params.Principal.OwnerID == "" {
		err = ErrUnauthorized
		return
	}

	vErr := validateConnectInput(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	existing, err := s.accounts.ListAccountsForOwner(ctx, params.Principal.OwnerID)
	if err != nil && !isNotFoundError(err) {
		return
	}
	err = nil

	hasPrimary := false
	for _, other := range existing {
		if other.Active && other.Primary {
			hasPrimary = true
			break
		}
	}

	createdAt := s.now()
	account = CalendarAccount{
		ID:           s.idGenerator(),
		OwnerID:      params.Principal.OwnerID,
		Provider:     params.Provider,
		Email:        strings.TrimSpace(params.Email),
		AccessToken:  params.AccessToken,
		RefreshToken: params.RefreshToken,
		TokenExpiry:  params.TokenExpiry,
		Active:       true,
		Primary:      !hasPrimary,
		Color:        accountColorPalette[len(existing)%len(accountColorPalette)],
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}

	persisted, err := s.accounts.CreateAccount(ctx, account)
	if err != nil {
		err = mapAccountRepoError(err)
		return
	}

	account = persisted
	return
}

// ListAccounts enumerates the owner's connected accounts ordered by creation.
func (s *AccountService) ListAccounts(ctx context.Context, principal Principal) ([]CalendarAccount, error) {
	if s == nil {
		return nil, fmt.Errorf("AccountService is nil")
	}
	if s.accounts == nil {
		return nil, fmt.Errorf("account repository not configured")
	}
	if principal.OwnerID == "" {
		return nil, ErrUnauthorized
	}

	accounts, err := s.accounts.ListAccountsForOwner(ctx, principal.OwnerID)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	ordered := make([]CalendarAccount, len(accounts))
	copy(ordered, accounts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	return ordered, nil
}

// DeactivateAccount disconnects an account without discarding its mirrored
// calendars. If the primary account is deactivated, the oldest remaining
// active account is promoted.
func (s *AccountService) DeactivateAccount(ctx context.Context, principal Principal, accountID string) (account CalendarAccount, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("account repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "DeactivateAccount",
		"owner_id", principal.OwnerID,
		"account_id", accountID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to deactivate account", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "account deactivated")
	}()

	existing, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		err = mapAccountRepoError(err)
		return
	}
	if existing.OwnerID != principal.OwnerID {
		err = ErrUnauthorized
		return
	}
	if !existing.Active {
		account = existing
		return
	}

	updated := existing
	updated.Active = false
	updated.Primary = false
	updated.UpdatedAt = s.now()

	account, err = s.accounts.UpdateAccount(ctx, updated)
	if err != nil {
		err = mapAccountRepoError(err)
		return
	}

	if existing.Primary {
		err = s.promoteNextPrimary(ctx, principal.OwnerID)
	}
	return
}

// EnsureFreshToken refreshes the account's credentials when they are at or
// past expiry. Accounts without an expiry, such as CalDAV app passwords, and
// accounts still inside the leeway window are returned unchanged, so repeated
// calls settle into no-ops.
func (s *AccountService) EnsureFreshToken(ctx context.Context, principal Principal, accountID string) (account CalendarAccount, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}
	if s.accounts == nil {
		err = fmt.Errorf("account repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "EnsureFreshToken", "account_id", accountID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to refresh token", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	existing, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		err = mapAccountRepoError(err)
		return
	}
	if existing.OwnerID != principal.OwnerID {
		err = ErrUnauthorized
		return
	}

	if existing.TokenExpiry.IsZero() || s.now().Add(tokenExpiryLeeway).Before(existing.TokenExpiry) {
		account = existing
		return
	}
	if s.refresher == nil {
		err = fmt.Errorf("token refresher not configured")
		return
	}

	refreshed, err := s.refresher.Refresh(ctx, existing.Provider, gatewayAccount(existing))
	if err != nil {
		return
	}

	updated := existing
	updated.AccessToken = refreshed.AccessToken
	if refreshed.RefreshToken != "" {
		updated.RefreshToken = refreshed.RefreshToken
	}
	updated.TokenExpiry = refreshed.TokenExpiry
	updated.UpdatedAt = s.now()

	account, err = s.accounts.UpdateAccount(ctx, updated)
	if err != nil {
		err = mapAccountRepoError(err)
	}
	return
}

// SyncCalendars mirrors the provider's calendar list and rebuilds the cached
// events for each mirrored calendar inside the window. A calendar whose event
// listing fails keeps its previous cache; the failure never aborts the sync
// of the other calendars.
func (s *AccountService) SyncCalendars(ctx context.Context, principal Principal, accountID string, window SyncWindow) (synced []Calendar, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}
	if s.accounts == nil || s.calendars == nil {
		err = fmt.Errorf("account repositories not configured")
		return
	}
	if s.gateways == nil {
		err = fmt.Errorf("gateway registry not configured")
		return
	}

	logger := s.loggerWith(ctx, "SyncCalendars", "account_id", accountID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to sync calendars", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("calendar_count", len(synced)).InfoContext(ctx, "calendars synced")
	}()

	account, err := s.EnsureFreshToken(ctx, principal, accountID)
	if err != nil {
		return
	}
	if !account.Active {
		err = invariantError("account is deactivated")
		return
	}
	if window.From.IsZero() || window.To.IsZero() || !window.From.Before(window.To) {
		vErr := &ValidationError{}
		vErr.add("window", "sync window start must be before its end")
		err = vErr
		return
	}

	gateway, err := s.gateways.Connect(ctx, account.Provider, gatewayAccount(account))
	if err != nil {
		return
	}

	listCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	provCalendars, err := gateway.ListCalendars(listCtx)
	cancel()
	if err != nil {
		return
	}

	syncedAt := s.now()
	keepProviderIDs := make([]string, 0, len(provCalendars))
	for _, provCal := range provCalendars {
		keepProviderIDs = append(keepProviderIDs, provCal.ID)

		cal := Calendar{
			ID:         s.idGenerator(),
			AccountID:  account.ID,
			ProviderID: provCal.ID,
			Name:       provCal.Name,
			Color:      provCal.Color,
			Visible:    true,
			Primary:    provCal.Primary,
			CreatedAt:  syncedAt,
			UpdatedAt:  syncedAt,
		}
		if cal.Color == "" {
			cal.Color = account.Color
		}

		persisted, upsertErr := s.calendars.UpsertCalendar(ctx, cal)
		if upsertErr != nil {
			err = upsertErr
			return
		}
		synced = append(synced, persisted)
	}

	if err = s.calendars.DeleteCalendarsMissingFrom(ctx, account.ID, keepProviderIDs); err != nil {
		return
	}

	for _, cal := range synced {
		if !cal.Visible {
			continue
		}
		if syncErr := s.syncCalendarEvents(ctx, gateway, cal, window, syncedAt); syncErr != nil {
			logger.WarnContext(ctx, "keeping previous event cache", "calendar_id", cal.ID, "error", syncErr)
		}
	}
	return
}

func (s *AccountService) syncCalendarEvents(ctx context.Context, gateway calendar.Gateway, cal Calendar, window SyncWindow, syncedAt time.Time) error {
	listCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	busy, err := gateway.ListBusyIntervals(listCtx, cal.ProviderID, window.From, window.To)
	if err != nil {
		return err
	}

	events := make([]CachedEvent, 0, len(busy))
	for _, interval := range busy {
		events = append(events, CachedEvent{
			ID:              s.idGenerator(),
			CalendarID:      cal.ID,
			ProviderEventID: interval.ID,
			Title:           interval.Title,
			Start:           interval.Start,
			End:             interval.End,
			AllDay:          interval.AllDay,
			SyncedAt:        syncedAt,
		})
	}

	return s.calendars.ReplaceEvents(ctx, cal.ID, window, events)
}

func (s *AccountService) promoteNextPrimary(ctx context.Context, ownerID string) error {
	accounts, err := s.accounts.ListAccountsForOwner(ctx, ownerID)
	if err != nil {
		if isNotFoundError(err) {
			return nil
		}
		return err
	}

	var oldest *CalendarAccount
	for i := range accounts {
		if !accounts[i].Active {
			continue
		}
		if oldest == nil || accounts[i].CreatedAt.Before(oldest.CreatedAt) {
			oldest = &accounts[i]
		}
	}
	if oldest == nil {
		return nil
	}

	promoted := *oldest
	promoted.Primary = true
	promoted.UpdatedAt = s.now()
	if _, err := s.accounts.UpdateAccount(ctx, promoted); err != nil {
		return mapAccountRepoError(err)
	}
	return nil
}

func validateConnectInput(params ConnectAccountParams) *ValidationError {
	vErr := &ValidationError{}

	if _, ok := supportedProviders[params.Provider]; !ok {
		vErr.add("provider", "provider must be google, microsoft, or caldav")
	}

	email := strings.TrimSpace(params.Email)
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "must be a valid email address")
	}

	if params.AccessToken == "" {
		vErr.add("access_token", "access token is required")
	}

	return vErr
}

func mapAccountRepoError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFoundError(err) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return err
}
