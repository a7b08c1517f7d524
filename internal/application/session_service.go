package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/calbook/internal/persistence"
)

// EventSessionStore captures the persistence interactions needed by the
// service. Mutate applies fn to the current row inside a transaction so
// concurrent capacity adjustments cannot lose updates.
type EventSessionStore interface {
	CreateSession(ctx context.Context, session EventSession) (EventSession, error)
	GetSession(ctx context.Context, id string) (EventSession, error)
	ListSessionsForEvent(ctx context.Context, communityEventID string) ([]EventSession, error)
	Mutate(ctx context.Context, id string, fn func(*EventSession) error) (EventSession, error)
}

// SessionService manages community event sessions and their speaker capacity.
type SessionService struct {
	sessions    EventSessionStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSessionService constructs a session service with the provided dependencies.
func NewSessionService(sessions EventSessionStore, idGenerator func() string, now func() time.Time) *SessionService {
	return NewSessionServiceWithLogger(sessions, idGenerator, now, nil)
}

// NewSessionServiceWithLogger constructs a session service with a specified logger.
func NewSessionServiceWithLogger(sessions EventSessionStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions:    sessions,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// CreateSession validates input and persists a new event session.
func (s *SessionService) CreateSession(ctx context.Context, params CreateEventSessionParams) (session EventSession, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateSession",
		"owner_id", params.Principal.OwnerID,
		"community_event_id", params.Input.CommunityEventID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", session.ID).InfoContext(ctx, "session created")
	}()

	if params.Principal.OwnerID == "" {
		err = ErrUnauthorized
		return
	}

	vErr := validateSessionInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	createdAt := s.now()
	session = EventSession{
		ID:                 s.idGenerator(),
		CommunityEventID:   params.Input.CommunityEventID,
		Title:              strings.TrimSpace(params.Input.Title),
		Start:              params.Input.Start,
		End:                params.Input.End,
		MaxSpeakers:        params.Input.MaxSpeakers,
		AllowsApplications: params.Input.AllowsApplications,
		BlockOnApplication: params.Input.BlockOnApplication,
		CreatedAt:          createdAt,
		UpdatedAt:          createdAt,
	}
	session.Status = sessionStatus(session)

	if s.sessions == nil {
		return
	}

	persisted, err := s.sessions.CreateSession(ctx, session)
	if err != nil {
		err = mapSessionRepoError(err)
		return
	}

	session = persisted
	return
}

// GetSession returns one session by ID.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (EventSession, error) {
	if s == nil {
		return EventSession{}, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return EventSession{}, fmt.Errorf("session repository not configured")
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return EventSession{}, mapSessionRepoError(err)
	}
	return session, nil
}

// ListSessions enumerates the sessions of a community event ordered by start.
func (s *SessionService) ListSessions(ctx context.Context, communityEventID string) ([]EventSession, error) {
	if s == nil {
		return nil, fmt.Errorf("SessionService is nil")
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("session repository not configured")
	}

	sessions, err := s.sessions.ListSessionsForEvent(ctx, communityEventID)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	ordered := make([]EventSession, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.Before(ordered[j].Start)
	})
	return ordered, nil
}

// ConfirmSpeaker adds a confirmed speaker to the session. The confirmed count
// never exceeds the maximum.
func (s *SessionService) ConfirmSpeaker(ctx context.Context, principal Principal, sessionID string) (EventSession, error) {
	if principal.OwnerID == "" {
		return EventSession{}, ErrUnauthorized
	}
	return s.mutate(ctx, "ConfirmSpeaker", sessionID, func(session *EventSession) error {
		if session.Status == SessionStatusCancelled {
			return invariantError("session is cancelled")
		}
		if session.CurrentSpeakers >= session.MaxSpeakers {
			return invariantError("session is at speaker capacity")
		}
		session.CurrentSpeakers++
		return nil
	})
}

// UnconfirmSpeaker removes a confirmed speaker. The count never drops below
// zero, so removing from an empty session succeeds without effect.
func (s *SessionService) UnconfirmSpeaker(ctx context.Context, principal Principal, sessionID string) (EventSession, error) {
	if principal.OwnerID == "" {
		return EventSession{}, ErrUnauthorized
	}
	return s.mutate(ctx, "UnconfirmSpeaker", sessionID, func(session *EventSession) error {
		if session.Status == SessionStatusCancelled {
			return invariantError("session is cancelled")
		}
		if session.CurrentSpeakers > 0 {
			session.CurrentSpeakers--
		}
		return nil
	})
}

// SubmitApplication records a speaker application from a public applicant.
func (s *SessionService) SubmitApplication(ctx context.Context, sessionID string) (EventSession, error) {
	return s.mutate(ctx, "SubmitApplication", sessionID, func(session *EventSession) error {
		if !CanAcceptApplication(*session) {
			return invariantError("session is not accepting applications")
		}
		session.PendingApplications++
		return nil
	})
}

// ApproveApplication converts one pending application into a confirmed speaker.
func (s *SessionService) ApproveApplication(ctx context.Context, principal Principal, sessionID string) (EventSession, error) {
	if principal.OwnerID == "" {
		return EventSession{}, ErrUnauthorized
	}
	return s.mutate(ctx, "ApproveApplication", sessionID, func(session *EventSession) error {
		if session.Status == SessionStatusCancelled {
			return invariantError("session is cancelled")
		}
		if session.PendingApplications == 0 {
			return invariantError("no pending applications")
		}
		if session.CurrentSpeakers >= session.MaxSpeakers {
			return invariantError("session is at speaker capacity")
		}
		session.PendingApplications--
		session.CurrentSpeakers++
		return nil
	})
}

// RejectApplication discards one pending application.
func (s *SessionService) RejectApplication(ctx context.Context, principal Principal, sessionID string) (EventSession, error) {
	if principal.OwnerID == "" {
		return EventSession{}, ErrUnauthorized
	}
	return s.mutate(ctx, "RejectApplication", sessionID, func(session *EventSession) error {
		if session.PendingApplications == 0 {
			return invariantError("no pending applications")
		}
		session.PendingApplications--
		return nil
	})
}

// WithdrawApplication removes one pending application on behalf of the
// applicant. Withdrawing when nothing is pending succeeds without effect.
func (s *SessionService) WithdrawApplication(ctx context.Context, sessionID string) (EventSession, error) {
	return s.mutate(ctx, "WithdrawApplication", sessionID, func(session *EventSession) error {
		if session.PendingApplications > 0 {
			session.PendingApplications--
		}
		return nil
	})
}

// CancelSession moves the session into its terminal state. Cancelling twice
// succeeds without further effect.
func (s *SessionService) CancelSession(ctx context.Context, principal Principal, sessionID string) (EventSession, error) {
	if principal.OwnerID == "" {
		return EventSession{}, ErrUnauthorized
	}
	return s.mutate(ctx, "CancelSession", sessionID, func(session *EventSession) error {
		session.Status = SessionStatusCancelled
		return nil
	})
}

func (s *SessionService) mutate(ctx context.Context, operation string, sessionID string, fn func(*EventSession) error) (session EventSession, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, operation, "session_id", sessionID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session mutation rejected", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("status", session.Status).InfoContext(ctx, "session updated")
	}()

	session, err = s.sessions.Mutate(ctx, sessionID, func(current *EventSession) error {
		wasCancelled := current.Status == SessionStatusCancelled
		if err := fn(current); err != nil {
			return err
		}
		if wasCancelled && current.Status == SessionStatusCancelled {
			return nil
		}
		current.Status = sessionStatus(*current)
		current.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		err = mapSessionRepoError(err)
	}
	return
}

// CanAcceptApplication reports whether the session takes another application:
// it must allow applications, not be cancelled or full, and a session that
// holds while reviewing must have no application pending.
func CanAcceptApplication(session EventSession) bool {
	if !session.AllowsApplications {
		return false
	}
	if session.Status == SessionStatusCancelled {
		return false
	}
	if session.CurrentSpeakers >= session.MaxSpeakers {
		return false
	}
	if session.BlockOnApplication && session.PendingApplications > 0 {
		return false
	}
	return true
}

// sessionStatus derives the stored status from the capacity counters.
// Cancelled is terminal and wins over everything else.
func sessionStatus(session EventSession) string {
	switch {
	case session.Status == SessionStatusCancelled:
		return SessionStatusCancelled
	case session.CurrentSpeakers >= session.MaxSpeakers:
		return SessionStatusFull
	case session.BlockOnApplication && session.PendingApplications > 0:
		return SessionStatusPending
	case session.CurrentSpeakers > 0:
		return SessionStatusConfirmed
	default:
		return SessionStatusAvailable
	}
}

func validateSessionInput(input EventSessionInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.CommunityEventID) == "" {
		vErr.add("community_event_id", "community event is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("time", "start must be before end")
	}
	if input.MaxSpeakers <= 0 {
		vErr.add("max_speakers", "speaker capacity must be positive")
	}

	return vErr
}

func mapSessionRepoError(err error) error {
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
