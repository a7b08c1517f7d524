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

type bookingService interface {
	AvailableSlots(ctx context.Context, pageSlug string, day time.Time) ([]application.Slot, error)
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	CancelBooking(ctx context.Context, trackingID string) (application.Booking, error)
	GetBooking(ctx context.Context, trackingID string) (application.Booking, error)
}

// BookingHandler serves the public booking surface: slot queries, booking
// creation and self-service cancellation by tracking ID. None of its
// endpoints require a session.
type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slug, ok := PageSlugFromContext(r.Context())
	if !ok || strings.TrimSpace(slug) == "" {
		h.responder.writeError(r.Context(), w, http.StatusNotFound, nil)
		return
	}

	day, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	slots, err := h.service.AvailableSlots(r.Context(), slug, day)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotsResponse{
		Date:  day.Format("2006-01-02"),
		Slots: toSlotDTOs(slots),
	})
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	slug, ok := PageSlugFromContext(r.Context())
	if !ok || strings.TrimSpace(slug) == "" {
		h.responder.writeError(r.Context(), w, http.StatusNotFound, nil)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "page_slug", slug)

	booking, err := h.service.CreateBooking(r.Context(), application.CreateBookingParams{
		PageSlug:       slug,
		RequesterName:  req.RequesterName,
		RequesterEmail: req.RequesterEmail,
		Start:          req.Start,
		Notes:          req.Notes,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("tracking_id", booking.TrackingID).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toBookingDTO(booking))
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trackingID, ok := TrackingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(trackingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTrackingID)
		return
	}

	booking, err := h.service.GetBooking(r.Context(), trackingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(booking))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	trackingID, ok := TrackingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(trackingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTrackingID)
		return
	}

	logger := h.log(r.Context(), "Cancel", "tracking_id", trackingID)

	booking, err := h.service.CancelBooking(r.Context(), trackingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toBookingDTO(booking))
}

type bookingRequest struct {
	RequesterName  string    `json:"requester_name"`
	RequesterEmail string    `json:"requester_email"`
	Start          time.Time `json:"start"`
	Notes          string    `json:"notes"`
}

type slotsResponse struct {
	Date  string    `json:"date"`
	Slots []slotDTO `json:"slots"`
}

type slotDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func toSlotDTOs(slots []application.Slot) []slotDTO {
	dtos := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		dtos = append(dtos, slotDTO{
			Start: slot.Start.UTC().Format(time.RFC3339),
			End:   slot.End.UTC().Format(time.RFC3339),
		})
	}
	return dtos
}

type bookingDTO struct {
	TrackingID     string  `json:"tracking_id"`
	PageID         string  `json:"booking_page_id"`
	RequesterName  string  `json:"requester_name"`
	RequesterEmail string  `json:"requester_email"`
	Start          string  `json:"start"`
	End            string  `json:"end"`
	Notes          string  `json:"notes,omitempty"`
	Status         string  `json:"status"`
	MeetingURL     *string `json:"meeting_url,omitempty"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	return bookingDTO{
		TrackingID:     booking.TrackingID,
		PageID:         booking.BookingPageID,
		RequesterName:  booking.RequesterName,
		RequesterEmail: booking.RequesterEmail,
		Start:          booking.Start.UTC().Format(time.RFC3339),
		End:            booking.End.UTC().Format(time.RFC3339),
		Notes:          booking.Notes,
		Status:         booking.Status,
		MeetingURL:     booking.MeetingURL,
	}
}
