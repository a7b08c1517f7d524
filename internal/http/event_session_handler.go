package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/calbook/internal/application"
)

type eventSessionService interface {
	CreateSession(ctx context.Context, params application.CreateEventSessionParams) (application.EventSession, error)
	GetSession(ctx context.Context, sessionID string) (application.EventSession, error)
	ListSessions(ctx context.Context, communityEventID string) ([]application.EventSession, error)
	ConfirmSpeaker(ctx context.Context, principal application.Principal, sessionID string) (application.EventSession, error)
	UnconfirmSpeaker(ctx context.Context, principal application.Principal, sessionID string) (application.EventSession, error)
	SubmitApplication(ctx context.Context, sessionID string) (application.EventSession, error)
	WithdrawApplication(ctx context.Context, sessionID string) (application.EventSession, error)
	ApproveApplication(ctx context.Context, principal application.Principal, sessionID string) (application.EventSession, error)
	RejectApplication(ctx context.Context, principal application.Principal, sessionID string) (application.EventSession, error)
	CancelSession(ctx context.Context, principal application.Principal, sessionID string) (application.EventSession, error)
}

// EventSessionHandler serves community event sessions. Viewing sessions and
// submitting or withdrawing a speaker application are public; everything else
// requires the organizer's session.
type EventSessionHandler struct {
	service   eventSessionService
	responder responder
	logger    *slog.Logger
}

func NewEventSessionHandler(service eventSessionService, logger *slog.Logger) *EventSessionHandler {
	base := defaultLogger(logger)
	return &EventSessionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EventSessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventSessionHandler", operation, attrs...)
}

func (h *EventSessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req eventSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "community_event_id", req.CommunityEventID)

	session, err := h.service.CreateSession(r.Context(), application.CreateEventSessionParams{
		Principal: principal,
		Input: application.EventSessionInput{
			CommunityEventID:   req.CommunityEventID,
			Title:              req.Title,
			Start:              req.Start,
			End:                req.End,
			MaxSpeakers:        req.MaxSpeakers,
			AllowsApplications: req.AllowsApplications,
			BlockOnApplication: req.BlockOnApplication,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("session_id", session.ID).InfoContext(r.Context(), "event session created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEventSessionDTO(session))
}

func (h *EventSessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventSessionDTO(session))
}

func (h *EventSessionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusNotFound, nil)
		return
	}

	sessions, err := h.service.ListSessions(r.Context(), eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEventSessionsResponse{
		Sessions: toEventSessionDTOs(sessions),
	})
}

// ownerAction runs one of the organizer-only session transitions.
func (h *EventSessionHandler) ownerAction(
	w http.ResponseWriter,
	r *http.Request,
	operation string,
	action func(ctx context.Context, principal application.Principal, sessionID string) (application.EventSession, error),
) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), operation, "session_id", sessionID)

	session, err := action(r.Context(), principal, sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", session.Status).InfoContext(r.Context(), "event session updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventSessionDTO(session))
}

// publicAction runs one of the speaker-facing session transitions.
func (h *EventSessionHandler) publicAction(
	w http.ResponseWriter,
	r *http.Request,
	operation string,
	action func(ctx context.Context, sessionID string) (application.EventSession, error),
) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	logger := h.log(r.Context(), operation, "session_id", sessionID)

	session, err := action(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("status", session.Status).InfoContext(r.Context(), "event session updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toEventSessionDTO(session))
}

func (h *EventSessionHandler) ConfirmSpeaker(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, "ConfirmSpeaker", func(ctx context.Context, principal application.Principal, sessionID string) (application.EventSession, error) {
		return h.service.ConfirmSpeaker(ctx, principal, sessionID)
	})
}

func (h *EventSessionHandler) UnconfirmSpeaker(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, "UnconfirmSpeaker", func(ctx context.Context, principal application.Principal, sessionID string) (application.EventSession, error) {
		return h.service.UnconfirmSpeaker(ctx, principal, sessionID)
	})
}

func (h *EventSessionHandler) ApproveApplication(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, "ApproveApplication", func(ctx context.Context, principal application.Principal, sessionID string) (application.EventSession, error) {
		return h.service.ApproveApplication(ctx, principal, sessionID)
	})
}

func (h *EventSessionHandler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, "RejectApplication", func(ctx context.Context, principal application.Principal, sessionID string) (application.EventSession, error) {
		return h.service.RejectApplication(ctx, principal, sessionID)
	})
}

func (h *EventSessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.ownerAction(w, r, "Cancel", func(ctx context.Context, principal application.Principal, sessionID string) (application.EventSession, error) {
		return h.service.CancelSession(ctx, principal, sessionID)
	})
}

func (h *EventSessionHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	h.publicAction(w, r, "SubmitApplication", func(ctx context.Context, sessionID string) (application.EventSession, error) {
		return h.service.SubmitApplication(ctx, sessionID)
	})
}

func (h *EventSessionHandler) WithdrawApplication(w http.ResponseWriter, r *http.Request) {
	h.publicAction(w, r, "WithdrawApplication", func(ctx context.Context, sessionID string) (application.EventSession, error) {
		return h.service.WithdrawApplication(ctx, sessionID)
	})
}

type eventSessionRequest struct {
	CommunityEventID   string    `json:"community_event_id"`
	Title              string    `json:"title"`
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	MaxSpeakers        int       `json:"max_speakers"`
	AllowsApplications bool      `json:"allows_applications"`
	BlockOnApplication bool      `json:"block_on_application"`
}

type listEventSessionsResponse struct {
	Sessions []eventSessionDTO `json:"sessions"`
}

type eventSessionDTO struct {
	ID                  string `json:"id"`
	CommunityEventID    string `json:"community_event_id"`
	Title               string `json:"title"`
	Start               string `json:"start"`
	End                 string `json:"end"`
	MaxSpeakers         int    `json:"max_speakers"`
	CurrentSpeakers     int    `json:"current_speakers"`
	PendingApplications int    `json:"pending_applications"`
	AllowsApplications  bool   `json:"allows_applications"`
	BlockOnApplication  bool   `json:"block_on_application"`
	Status              string `json:"status"`
}

func toEventSessionDTO(session application.EventSession) eventSessionDTO {
	return eventSessionDTO{
		ID:                  session.ID,
		CommunityEventID:    session.CommunityEventID,
		Title:               session.Title,
		Start:               session.Start.UTC().Format(time.RFC3339),
		End:                 session.End.UTC().Format(time.RFC3339),
		MaxSpeakers:         session.MaxSpeakers,
		CurrentSpeakers:     session.CurrentSpeakers,
		PendingApplications: session.PendingApplications,
		AllowsApplications:  session.AllowsApplications,
		BlockOnApplication:  session.BlockOnApplication,
		Status:              session.Status,
	}
}

func toEventSessionDTOs(sessions []application.EventSession) []eventSessionDTO {
	dtos := make([]eventSessionDTO, 0, len(sessions))
	for _, session := range sessions {
		dtos = append(dtos, toEventSessionDTO(session))
	}
	return dtos
}
