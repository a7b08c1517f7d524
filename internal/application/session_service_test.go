package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/calbook/internal/persistence"
)

type sessionStoreStub struct {
	sessions map[string]EventSession

	createErr error
	mutateErr error

	list    []EventSession
	listErr error
}

func (s *sessionStoreStub) CreateSession(ctx context.Context, session EventSession) (EventSession, error) {
	if s.createErr != nil {
		return EventSession{}, s.createErr
	}
	if s.sessions == nil {
		s.sessions = make(map[string]EventSession)
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *sessionStoreStub) GetSession(ctx context.Context, id string) (EventSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return EventSession{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *sessionStoreStub) ListSessionsForEvent(ctx context.Context, communityEventID string) ([]EventSession, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]EventSession, len(s.list))
	copy(out, s.list)
	return out, nil
}

func (s *sessionStoreStub) Mutate(ctx context.Context, id string, fn func(*EventSession) error) (EventSession, error) {
	if s.mutateErr != nil {
		return EventSession{}, s.mutateErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return EventSession{}, persistence.ErrNotFound
	}
	if err := fn(&session); err != nil {
		return EventSession{}, err
	}
	s.sessions[id] = session
	return session, nil
}

func storedSession(t *testing.T, overrides func(*EventSession)) (*sessionStoreStub, *SessionService) {
	t.Helper()

	session := EventSession{
		ID:                 "sess-1",
		CommunityEventID:   "event-1",
		Title:              "Lightning Talks",
		Start:              time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC),
		End:                time.Date(2026, 4, 10, 19, 0, 0, 0, time.UTC),
		MaxSpeakers:        2,
		AllowsApplications: true,
		Status:             SessionStatusAvailable,
	}
	if overrides != nil {
		overrides(&session)
	}

	store := &sessionStoreStub{sessions: map[string]EventSession{session.ID: session}}
	svc := NewSessionService(store, func() string { return "sess-2" }, func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})
	return store, svc
}

func TestSessionService_CreateSession(t *testing.T) {
	t.Run("validates required attributes", func(t *testing.T) {
		svc := NewSessionService(nil, nil, nil)

		_, err := svc.CreateSession(context.Background(), CreateEventSessionParams{
			Principal: Principal{OwnerID: "owner-1"},
			Input: EventSessionInput{
				Start: time.Date(2026, 4, 10, 19, 0, 0, 0, time.UTC),
				End:   time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC),
			},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"community_event_id", "title", "time", "max_speakers"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Errorf("expected field error for %s", field)
			}
		}
	})

	t.Run("persists a new available session", func(t *testing.T) {
		store := &sessionStoreStub{}
		svc := NewSessionService(store, func() string { return "sess-1" }, nil)

		session, err := svc.CreateSession(context.Background(), CreateEventSessionParams{
			Principal: Principal{OwnerID: "owner-1"},
			Input: EventSessionInput{
				CommunityEventID:   "event-1",
				Title:              "Lightning Talks",
				Start:              time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC),
				End:                time.Date(2026, 4, 10, 19, 0, 0, 0, time.UTC),
				MaxSpeakers:        3,
				AllowsApplications: true,
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.Status != SessionStatusAvailable {
			t.Errorf("expected available status, got %s", session.Status)
		}
		if session.CurrentSpeakers != 0 || session.PendingApplications != 0 {
			t.Errorf("expected zeroed counters, got %+v", session)
		}
	})

	t.Run("requires an authenticated owner", func(t *testing.T) {
		svc := NewSessionService(&sessionStoreStub{}, nil, nil)

		_, err := svc.CreateSession(context.Background(), CreateEventSessionParams{})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestSessionService_ConfirmSpeaker(t *testing.T) {
	owner := Principal{OwnerID: "owner-1"}

	t.Run("increments the confirmed count", func(t *testing.T) {
		_, svc := storedSession(t, nil)

		session, err := svc.ConfirmSpeaker(context.Background(), owner, "sess-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.CurrentSpeakers != 1 {
			t.Errorf("expected 1 speaker, got %d", session.CurrentSpeakers)
		}
		if session.Status != SessionStatusConfirmed {
			t.Errorf("expected confirmed status, got %s", session.Status)
		}
	})

	t.Run("fills the session at capacity", func(t *testing.T) {
		_, svc := storedSession(t, func(s *EventSession) {
			s.CurrentSpeakers = 1
		})

		session, err := svc.ConfirmSpeaker(context.Background(), owner, "sess-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.Status != SessionStatusFull {
			t.Errorf("expected full status, got %s", session.Status)
		}
	})

	t.Run("never exceeds capacity", func(t *testing.T) {
		store, svc := storedSession(t, func(s *EventSession) {
			s.CurrentSpeakers = 2
			s.Status = SessionStatusFull
		})

		_, err := svc.ConfirmSpeaker(context.Background(), owner, "sess-1")
		var iErr *InvariantError
		if !errors.As(err, &iErr) {
			t.Fatalf("expected InvariantError, got %v", err)
		}
		if store.sessions["sess-1"].CurrentSpeakers != 2 {
			t.Error("expected counters to stay unchanged")
		}
	})

	t.Run("rejects cancelled sessions", func(t *testing.T) {
		_, svc := storedSession(t, func(s *EventSession) {
			s.Status = SessionStatusCancelled
		})

		_, err := svc.ConfirmSpeaker(context.Background(), owner, "sess-1")
		var iErr *InvariantError
		if !errors.As(err, &iErr) {
			t.Fatalf("expected InvariantError, got %v", err)
		}
	})
}

func TestSessionService_UnconfirmSpeaker(t *testing.T) {
	owner := Principal{OwnerID: "owner-1"}

	t.Run("frees capacity on a full session", func(t *testing.T) {
		_, svc := storedSession(t, func(s *EventSession) {
			s.CurrentSpeakers = 2
			s.Status = SessionStatusFull
		})

		session, err := svc.UnconfirmSpeaker(context.Background(), owner, "sess-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.CurrentSpeakers != 1 {
			t.Errorf("expected 1 speaker, got %d", session.CurrentSpeakers)
		}
		if session.Status != SessionStatusConfirmed {
			t.Errorf("expected confirmed status, got %s", session.Status)
		}
	})

	t.Run("clamps at zero", func(t *testing.T) {
		_, svc := storedSession(t, nil)

		session, err := svc.UnconfirmSpeaker(context.Background(), owner, "sess-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.CurrentSpeakers != 0 {
			t.Errorf("expected 0 speakers, got %d", session.CurrentSpeakers)
		}
	})
}

func TestSessionService_Applications(t *testing.T) {
	owner := Principal{OwnerID: "owner-1"}

	t.Run("submit and approve converts a pending application", func(t *testing.T) {
		_, svc := storedSession(t, nil)

		session, err := svc.SubmitApplication(context.Background(), "sess-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.PendingApplications != 1 {
			t.Fatalf("expected 1 pending application, got %d", session.PendingApplications)
		}

		session, err = svc.ApproveApplication(context.Background(), owner, "sess-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.PendingApplications != 0 || session.CurrentSpeakers != 1 {
			t.Errorf("expected converted application, got %+v", session)
		}
	})

	t.Run("a blocking session holds further applications while one is pending", func(t *testing.T) {
		_, svc := storedSession(t, func(s *EventSession) {
			s.BlockOnApplication = true
		})

		session, err := svc.SubmitApplication(context.Background(), "sess-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.Status != SessionStatusPending {
			t.Errorf("expected pending status, got %s", session.Status)
		}

		_, err = svc.SubmitApplication(context.Background(), "sess-1")
		var iErr *InvariantError
		if !errors.As(err, &iErr) {
			t.Fatalf("expected InvariantError, got %v", err)
		}
	})

	t.Run("rejects applications when the session is full", func(t *testing.T) {
		_, svc := storedSession(t, func(s *EventSession) {
			s.CurrentSpeakers = 2
			s.Status = SessionStatusFull
		})

		_, err := svc.SubmitApplication(context.Background(), "sess-1")
		var iErr *InvariantError
		if !errors.As(err, &iErr) {
			t.Fatalf("expected InvariantError, got %v", err)
		}
	})

	t.Run("rejects applications when the session forbids them", func(t *testing.T) {
		_, svc := storedSession(t, func(s *EventSession) {
			s.AllowsApplications = false
		})

		_, err := svc.SubmitApplication(context.Background(), "sess-1")
		var iErr *InvariantError
		if !errors.As(err, &iErr) {
			t.Fatalf("expected InvariantError, got %v", err)
		}
	})

	t.Run("approve requires capacity", func(t *testing.T) {
		_, svc := storedSession(t, func(s *EventSession) {
			s.CurrentSpeakers = 2
			s.PendingApplications = 1
			s.Status = SessionStatusFull
		})

		_, err := svc.ApproveApplication(context.Background(), owner, "sess-1")
		var iErr *InvariantError
		if !errors.As(err, &iErr) {
			t.Fatalf("expected InvariantError, got %v", err)
		}
	})

	t.Run("withdraw clamps at zero", func(t *testing.T) {
		_, svc := storedSession(t, nil)

		session, err := svc.WithdrawApplication(context.Background(), "sess-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.PendingApplications != 0 {
			t.Errorf("expected 0 pending applications, got %d", session.PendingApplications)
		}
	})

	t.Run("reject discards one pending application", func(t *testing.T) {
		_, svc := storedSession(t, func(s *EventSession) {
			s.PendingApplications = 2
		})

		session, err := svc.RejectApplication(context.Background(), owner, "sess-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.PendingApplications != 1 {
			t.Errorf("expected 1 pending application, got %d", session.PendingApplications)
		}
	})
}

func TestSessionService_CancelSession(t *testing.T) {
	owner := Principal{OwnerID: "owner-1"}

	t.Run("cancels and stays cancelled", func(t *testing.T) {
		_, svc := storedSession(t, func(s *EventSession) {
			s.CurrentSpeakers = 1
		})

		session, err := svc.CancelSession(context.Background(), owner, "sess-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.Status != SessionStatusCancelled {
			t.Errorf("expected cancelled status, got %s", session.Status)
		}

		session, err = svc.CancelSession(context.Background(), owner, "sess-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.Status != SessionStatusCancelled {
			t.Errorf("expected cancellation to be idempotent, got %s", session.Status)
		}
	})

	t.Run("reports unknown sessions", func(t *testing.T) {
		_, svc := storedSession(t, nil)

		_, err := svc.CancelSession(context.Background(), owner, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestCanAcceptApplication(t *testing.T) {
	base := EventSession{
		MaxSpeakers:        2,
		AllowsApplications: true,
		Status:             SessionStatusAvailable,
	}

	tests := []struct {
		name     string
		mutate   func(*EventSession)
		expected bool
	}{
		{name: "open session", mutate: nil, expected: true},
		{name: "applications disabled", mutate: func(s *EventSession) { s.AllowsApplications = false }, expected: false},
		{name: "cancelled", mutate: func(s *EventSession) { s.Status = SessionStatusCancelled }, expected: false},
		{name: "full", mutate: func(s *EventSession) { s.CurrentSpeakers = 2 }, expected: false},
		{name: "blocking with pending", mutate: func(s *EventSession) { s.BlockOnApplication = true; s.PendingApplications = 1 }, expected: false},
		{name: "non-blocking with pending", mutate: func(s *EventSession) { s.PendingApplications = 3 }, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := base
			if tt.mutate != nil {
				tt.mutate(&session)
			}
			if got := CanAcceptApplication(session); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
