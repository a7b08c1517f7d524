package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/example/calbook/internal/persistence"
)

// BookingPageRepository captures the persistence interactions needed by the service.
type BookingPageRepository interface {
	CreatePage(ctx context.Context, page BookingPage) (BookingPage, error)
	UpdatePage(ctx context.Context, page BookingPage) (BookingPage, error)
	GetPage(ctx context.Context, id string) (BookingPage, error)
	GetPageBySlug(ctx context.Context, slug string) (BookingPage, error)
	ListPagesForOwner(ctx context.Context, ownerID string) ([]BookingPage, error)
	DeletePage(ctx context.Context, id string) error
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// PageService orchestrates validation, authorization, and persistence for
// booking pages.
type PageService struct {
	pages       BookingPageRepository
	calendars   CalendarDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewPageService constructs a page service with the provided dependencies.
func NewPageService(pages BookingPageRepository, calendars CalendarDirectory, idGenerator func() string, now func() time.Time) *PageService {
	return NewPageServiceWithLogger(pages, calendars, idGenerator, now, nil)
}

// NewPageServiceWithLogger constructs a page service with a specified logger.
func NewPageServiceWithLogger(pages BookingPageRepository, calendars CalendarDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PageService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &PageService{
		pages:       pages,
		calendars:   calendars,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *PageService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PageService", operation, attrs...)
}

// CreatePage validates input and persists a new booking page for the owner.
func (s *PageService) CreatePage(ctx context.Context, params CreateBookingPageParams) (page BookingPage, err error) {
	if s == nil {
		err = fmt.Errorf("PageService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreatePage",
		"owner_id", params.Principal.OwnerID,
		"slug", params.Input.Slug,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking page", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("page_id", page.ID).InfoContext(ctx, "booking page created")
	}()

	if params.Principal.OwnerID == "" {
		err = ErrUnauthorized
		return
	}

	vErr := validatePageInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.ensureDestinationExists(ctx, params.Input.DestinationCalendarID); err != nil {
		return
	}

	createdAt := s.now()
	page = BookingPage{
		ID:                    s.idGenerator(),
		OwnerID:               params.Principal.OwnerID,
		Slug:                  strings.TrimSpace(params.Input.Slug),
		Title:                 strings.TrimSpace(params.Input.Title),
		DurationMinutes:       params.Input.DurationMinutes,
		BufferBeforeMinutes:   params.Input.BufferBeforeMinutes,
		BufferAfterMinutes:    params.Input.BufferAfterMinutes,
		DayStartMinutes:       params.Input.DayStartMinutes,
		DayEndMinutes:         params.Input.DayEndMinutes,
		Weekdays:              normalizeWeekdays(params.Input.Weekdays),
		CalendarIDs:           uniqueStrings(params.Input.CalendarIDs),
		DestinationCalendarID: params.Input.DestinationCalendarID,
		Active:                params.Input.Active,
		CreatedAt:             createdAt,
		UpdatedAt:             createdAt,
	}

	if s.pages == nil {
		return
	}

	var persisted BookingPage
	persisted, err = s.pages.CreatePage(ctx, page)
	if err != nil {
		err = mapPageRepoError(err)
		return
	}

	page = persisted
	return
}

// UpdatePage applies validation and authorization before updating a page.
func (s *PageService) UpdatePage(ctx context.Context, params UpdateBookingPageParams) (page BookingPage, err error) {
	if s == nil {
		err = fmt.Errorf("PageService is nil")
		return
	}
	if s.pages == nil {
		err = fmt.Errorf("page repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdatePage",
		"owner_id", params.Principal.OwnerID,
		"page_id", params.PageID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update booking page", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("page_id", page.ID).InfoContext(ctx, "booking page updated")
	}()

	var existing BookingPage
	existing, err = s.pages.GetPage(ctx, params.PageID)
	if err != nil {
		err = mapPageRepoError(err)
		return
	}

	if existing.OwnerID != params.Principal.OwnerID {
		err = ErrUnauthorized
		return
	}

	vErr := validatePageInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.ensureDestinationExists(ctx, params.Input.DestinationCalendarID); err != nil {
		return
	}

	updated := existing
	updated.Slug = strings.TrimSpace(params.Input.Slug)
	updated.Title = strings.TrimSpace(params.Input.Title)
	updated.DurationMinutes = params.Input.DurationMinutes
	updated.BufferBeforeMinutes = params.Input.BufferBeforeMinutes
	updated.BufferAfterMinutes = params.Input.BufferAfterMinutes
	updated.DayStartMinutes = params.Input.DayStartMinutes
	updated.DayEndMinutes = params.Input.DayEndMinutes
	updated.Weekdays = normalizeWeekdays(params.Input.Weekdays)
	updated.CalendarIDs = uniqueStrings(params.Input.CalendarIDs)
	updated.DestinationCalendarID = params.Input.DestinationCalendarID
	updated.Active = params.Input.Active
	updated.UpdatedAt = s.now()

	var persisted BookingPage
	persisted, err = s.pages.UpdatePage(ctx, updated)
	if err != nil {
		err = mapPageRepoError(err)
		return
	}

	page = persisted
	return
}

// GetPage returns one of the owner's pages.
func (s *PageService) GetPage(ctx context.Context, principal Principal, pageID string) (BookingPage, error) {
	if s == nil {
		return BookingPage{}, fmt.Errorf("PageService is nil")
	}
	if s.pages == nil {
		return BookingPage{}, fmt.Errorf("page repository not configured")
	}

	page, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return BookingPage{}, mapPageRepoError(err)
	}
	if page.OwnerID != principal.OwnerID {
		return BookingPage{}, ErrUnauthorized
	}
	return page, nil
}

// ListPages enumerates the owner's pages ordered by slug.
func (s *PageService) ListPages(ctx context.Context, principal Principal) ([]BookingPage, error) {
	if s == nil {
		return nil, fmt.Errorf("PageService is nil")
	}
	if s.pages == nil {
		return nil, fmt.Errorf("page repository not configured")
	}
	if principal.OwnerID == "" {
		return nil, ErrUnauthorized
	}

	pages, err := s.pages.ListPagesForOwner(ctx, principal.OwnerID)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	ordered := make([]BookingPage, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Slug < ordered[j].Slug
	})
	return ordered, nil
}

// DeletePage ensures authorization before deleting a page.
func (s *PageService) DeletePage(ctx context.Context, principal Principal, pageID string) (err error) {
	if s == nil {
		return fmt.Errorf("PageService is nil")
	}
	if s.pages == nil {
		return fmt.Errorf("page repository not configured")
	}

	logger := s.loggerWith(ctx, "DeletePage",
		"owner_id", principal.OwnerID,
		"page_id", pageID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete booking page", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking page deleted")
	}()

	existing, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		err = mapPageRepoError(err)
		return
	}
	if existing.OwnerID != principal.OwnerID {
		err = ErrUnauthorized
		return
	}

	if err = s.pages.DeletePage(ctx, pageID); err != nil {
		err = mapPageRepoError(err)
		return
	}
	return
}

func (s *PageService) ensureDestinationExists(ctx context.Context, destinationID *string) error {
	if destinationID == nil || s.calendars == nil {
		return nil
	}
	_, err := s.calendars.GetCalendar(ctx, *destinationID)
	if err == nil {
		return nil
	}
	if isNotFoundError(err) {
		vErr := &ValidationError{}
		vErr.add("destination_calendar_id", "destination calendar does not exist")
		return vErr
	}
	return err
}

func validatePageInput(input BookingPageInput) *ValidationError {
	vErr := &ValidationError{}

	slug := strings.TrimSpace(input.Slug)
	if slug == "" {
		vErr.add("slug", "slug is required")
	} else if !slugPattern.MatchString(slug) {
		vErr.add("slug", "slug may contain lowercase letters, digits, and hyphens")
	}

	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}

	if input.DurationMinutes <= 0 {
		vErr.add("duration_minutes", "duration must be positive")
	}
	if input.BufferBeforeMinutes < 0 {
		vErr.add("buffer_before_minutes", "buffer must not be negative")
	}
	if input.BufferAfterMinutes < 0 {
		vErr.add("buffer_after_minutes", "buffer must not be negative")
	}

	if input.DayStartMinutes < 0 || input.DayStartMinutes >= 24*60 {
		vErr.add("day_start_minutes", "day start must fall within the day")
	}
	if input.DayEndMinutes <= 0 || input.DayEndMinutes > 24*60 {
		vErr.add("day_end_minutes", "day end must fall within the day")
	}
	if input.DayStartMinutes >= 0 && input.DayEndMinutes <= 24*60 && input.DayStartMinutes >= input.DayEndMinutes {
		vErr.add("day_window", "day start must be before day end")
	}

	if len(input.Weekdays) == 0 {
		vErr.add("weekdays", "at least one weekday is required")
	}
	for _, day := range input.Weekdays {
		if day < time.Sunday || day > time.Saturday {
			vErr.add("weekdays", "weekdays must be between Sunday and Saturday")
			break
		}
	}

	return vErr
}

func normalizeWeekdays(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]struct{}, len(days))
	result := make([]time.Weekday, 0, len(days))
	for _, day := range days {
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		result = append(result, day)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}

func mapPageRepoError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFoundError(err) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("calendar_ids", "referenced calendar does not exist")
		return vErr
	}
	return err
}
