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

type accountService interface {
	ConnectAccount(ctx context.Context, params application.ConnectAccountParams) (application.CalendarAccount, error)
	ListAccounts(ctx context.Context, principal application.Principal) ([]application.CalendarAccount, error)
	DeactivateAccount(ctx context.Context, principal application.Principal, accountID string) (application.CalendarAccount, error)
	SyncCalendars(ctx context.Context, principal application.Principal, accountID string, window application.SyncWindow) ([]application.Calendar, error)
}

// AccountHandler manages connected calendar accounts. Tokens never appear in
// responses; the DTO carries connection metadata only.
type AccountHandler struct {
	service   accountService
	responder responder
	logger    *slog.Logger
}

func NewAccountHandler(service accountService, logger *slog.Logger) *AccountHandler {
	base := defaultLogger(logger)
	return &AccountHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AccountHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AccountHandler", operation, attrs...)
}

func (h *AccountHandler) Connect(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req connectAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Connect", "provider", req.Provider)

	account, err := h.service.ConnectAccount(r.Context(), application.ConnectAccountParams{
		Principal:    principal,
		Provider:     req.Provider,
		Email:        req.Email,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		TokenExpiry:  req.TokenExpiry,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("account_id", account.ID).InfoContext(r.Context(), "calendar account connected")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toAccountDTO(account))
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	accounts, err := h.service.ListAccounts(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAccountsResponse{Accounts: toAccountDTOs(accounts)})
}

func (h *AccountHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	accountID, ok := AccountIDFromContext(r.Context())
	if !ok || strings.TrimSpace(accountID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAccountID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Deactivate", "account_id", accountID)

	account, err := h.service.DeactivateAccount(r.Context(), principal, accountID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "calendar account deactivated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAccountDTO(account))
}

func (h *AccountHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	accountID, ok := AccountIDFromContext(r.Context())
	if !ok || strings.TrimSpace(accountID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAccountID)
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Sync", "account_id", accountID)

	calendars, err := h.service.SyncCalendars(r.Context(), principal, accountID, application.SyncWindow{
		From: req.From,
		To:   req.To,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("calendar_count", len(calendars)).InfoContext(r.Context(), "calendars synced")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, syncResponse{Calendars: toCalendarDTOs(calendars)})
}

type connectAccountRequest struct {
	Provider     string    `json:"provider"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenExpiry  time.Time `json:"token_expiry"`
}

type syncRequest struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type listAccountsResponse struct {
	Accounts []accountDTO `json:"accounts"`
}

type syncResponse struct {
	Calendars []calendarDTO `json:"calendars"`
}

type accountDTO struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Email    string `json:"email"`
	Active   bool   `json:"active"`
	Primary  bool   `json:"primary"`
	Color    string `json:"color"`
}

func toAccountDTO(account application.CalendarAccount) accountDTO {
	return accountDTO{
		ID:       account.ID,
		Provider: account.Provider,
		Email:    account.Email,
		Active:   account.Active,
		Primary:  account.Primary,
		Color:    account.Color,
	}
}

func toAccountDTOs(accounts []application.CalendarAccount) []accountDTO {
	dtos := make([]accountDTO, 0, len(accounts))
	for _, account := range accounts {
		dtos = append(dtos, toAccountDTO(account))
	}
	return dtos
}

type calendarDTO struct {
	ID         string `json:"id"`
	AccountID  string `json:"account_id"`
	ProviderID string `json:"provider_id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Visible    bool   `json:"visible"`
	Primary    bool   `json:"primary"`
}

func toCalendarDTOs(calendars []application.Calendar) []calendarDTO {
	dtos := make([]calendarDTO, 0, len(calendars))
	for _, calendar := range calendars {
		dtos = append(dtos, calendarDTO{
			ID:         calendar.ID,
			AccountID:  calendar.AccountID,
			ProviderID: calendar.ProviderID,
			Name:       calendar.Name,
			Color:      calendar.Color,
			Visible:    calendar.Visible,
			Primary:    calendar.Primary,
		})
	}
	return dtos
}
