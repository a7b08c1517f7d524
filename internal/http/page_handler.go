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

type pageService interface {
	CreatePage(ctx context.Context, params application.CreateBookingPageParams) (application.BookingPage, error)
	UpdatePage(ctx context.Context, params application.UpdateBookingPageParams) (application.BookingPage, error)
	GetPage(ctx context.Context, principal application.Principal, pageID string) (application.BookingPage, error)
	ListPages(ctx context.Context, principal application.Principal) ([]application.BookingPage, error)
	DeletePage(ctx context.Context, principal application.Principal, pageID string) error
}

type PageHandler struct {
	service   pageService
	responder responder
	logger    *slog.Logger
}

func NewPageHandler(service pageService, logger *slog.Logger) *PageHandler {
	base := defaultLogger(logger)
	return &PageHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PageHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PageHandler", operation, attrs...)
}

func (h *PageHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req pageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "slug", req.Slug)

	page, err := h.service.CreatePage(r.Context(), application.CreateBookingPageParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("page_id", page.ID).InfoContext(r.Context(), "booking page created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toPageDTO(page))
}

func (h *PageHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	pageID, ok := PageIDFromContext(r.Context())
	if !ok || strings.TrimSpace(pageID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPageID)
		return
	}

	var req pageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	page, err := h.service.UpdatePage(r.Context(), application.UpdateBookingPageParams{
		Principal: principal,
		PageID:    pageID,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPageDTO(page))
}

func (h *PageHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	pageID, ok := PageIDFromContext(r.Context())
	if !ok || strings.TrimSpace(pageID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPageID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	page, err := h.service.GetPage(r.Context(), principal, pageID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPageDTO(page))
}

func (h *PageHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	pages, err := h.service.ListPages(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listPagesResponse{Pages: toPageDTOs(pages)})
}

func (h *PageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	pageID, ok := PageIDFromContext(r.Context())
	if !ok || strings.TrimSpace(pageID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPageID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "page_id", pageID)

	if err := h.service.DeletePage(r.Context(), principal, pageID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking page deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type pageRequest struct {
	Slug                  string   `json:"slug"`
	Title                 string   `json:"title"`
	DurationMinutes       int      `json:"duration_minutes"`
	BufferBeforeMinutes   int      `json:"buffer_before_minutes"`
	BufferAfterMinutes    int      `json:"buffer_after_minutes"`
	DayStartMinutes       int      `json:"day_start_minutes"`
	DayEndMinutes         int      `json:"day_end_minutes"`
	Weekdays              []int    `json:"weekdays"`
	CalendarIDs           []string `json:"calendar_ids"`
	DestinationCalendarID *string  `json:"destination_calendar_id"`
	Active                bool     `json:"active"`
}

func (req pageRequest) toInput() application.BookingPageInput {
	weekdays := make([]time.Weekday, 0, len(req.Weekdays))
	for _, day := range req.Weekdays {
		weekdays = append(weekdays, time.Weekday(day))
	}

	return application.BookingPageInput{
		Slug:                  req.Slug,
		Title:                 req.Title,
		DurationMinutes:       req.DurationMinutes,
		BufferBeforeMinutes:   req.BufferBeforeMinutes,
		BufferAfterMinutes:    req.BufferAfterMinutes,
		DayStartMinutes:       req.DayStartMinutes,
		DayEndMinutes:         req.DayEndMinutes,
		Weekdays:              weekdays,
		CalendarIDs:           req.CalendarIDs,
		DestinationCalendarID: req.DestinationCalendarID,
		Active:                req.Active,
	}
}

type listPagesResponse struct {
	Pages []pageDTO `json:"pages"`
}

type pageDTO struct {
	ID                    string   `json:"id"`
	Slug                  string   `json:"slug"`
	Title                 string   `json:"title"`
	DurationMinutes       int      `json:"duration_minutes"`
	BufferBeforeMinutes   int      `json:"buffer_before_minutes"`
	BufferAfterMinutes    int      `json:"buffer_after_minutes"`
	DayStartMinutes       int      `json:"day_start_minutes"`
	DayEndMinutes         int      `json:"day_end_minutes"`
	Weekdays              []int    `json:"weekdays"`
	CalendarIDs           []string `json:"calendar_ids"`
	DestinationCalendarID *string  `json:"destination_calendar_id,omitempty"`
	Active                bool     `json:"active"`
}

func toPageDTO(page application.BookingPage) pageDTO {
	weekdays := make([]int, 0, len(page.Weekdays))
	for _, day := range page.Weekdays {
		weekdays = append(weekdays, int(day))
	}

	return pageDTO{
		ID:                    page.ID,
		Slug:                  page.Slug,
		Title:                 page.Title,
		DurationMinutes:       page.DurationMinutes,
		BufferBeforeMinutes:   page.BufferBeforeMinutes,
		BufferAfterMinutes:    page.BufferAfterMinutes,
		DayStartMinutes:       page.DayStartMinutes,
		DayEndMinutes:         page.DayEndMinutes,
		Weekdays:              weekdays,
		CalendarIDs:           page.CalendarIDs,
		DestinationCalendarID: page.DestinationCalendarID,
		Active:                page.Active,
	}
}

func toPageDTOs(pages []application.BookingPage) []pageDTO {
	dtos := make([]pageDTO, 0, len(pages))
	for _, page := range pages {
		dtos = append(dtos, toPageDTO(page))
	}
	return dtos
}
