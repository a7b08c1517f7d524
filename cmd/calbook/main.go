package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/example/calbook/internal/application"
	"github.com/example/calbook/internal/calendar"
	"github.com/example/calbook/internal/config"
	httptransport "github.com/example/calbook/internal/http"
	"github.com/example/calbook/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close database", "error", cerr)
		}
	}()

	if err := pool.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	credentialStore := newCredentialStoreAdapter(sqlite.NewOwnerRepository(pool))
	sessionStore := newSessionStoreAdapter(sqlite.NewSessionRepository(pool))
	pageRepo := newPageRepositoryAdapter(sqlite.NewBookingPageRepository(pool))
	bookingStore := newBookingStoreAdapter(sqlite.NewBookingRepository(pool))
	accountRepo := newAccountRepositoryAdapter(sqlite.NewAccountRepository(pool))
	calendarStore := newCalendarStoreAdapter(sqlite.NewCalendarRepository(pool))
	eventSessionStore := newEventSessionStoreAdapter(sqlite.NewEventSessionRepository(pool))

	connectors := map[string]calendar.Connector{
		"google":    calendar.GoogleConnector{},
		"microsoft": calendar.MicrosoftConnector{},
	}
	if cfg.CalDAVEndpoint != "" {
		connectors["caldav"] = calendar.CalDAVConnector{Endpoint: cfg.CalDAVEndpoint}
	}
	registry := calendar.NewRegistry(connectors)

	oauthConfigs := map[string]*oauth2.Config{}
	if cfg.GoogleEnabled() {
		oauthConfigs["google"] = &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"https://www.googleapis.com/auth/calendar"},
		}
	}
	refresher := calendar.NewOAuthRefresher(oauthConfigs)

	authService := application.NewAuthServiceWithLogger(credentialStore, sessionStore, idGenerator, tokenGenerator, now, cfg.SessionTTL, logger)
	pageService := application.NewPageServiceWithLogger(pageRepo, calendarStore, idGenerator, now, logger)
	accountService := application.NewAccountServiceWithLogger(accountRepo, calendarStore, registry, refresher, cfg.GatewayTimeout, idGenerator, now, logger)
	bookingService := application.NewBookingServiceWithLogger(pageRepo, bookingStore, calendarStore, calendarStore, accountRepo, registry, cfg.GatewayTimeout, idGenerator, now, logger)
	sessionService := application.NewSessionServiceWithLogger(eventSessionStore, idGenerator, now, logger)

	go purgeExpiredSessions(ctx, sessionStore, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(authService, logger),
		Bookings:       httptransport.NewBookingHandler(bookingService, logger),
		Pages:          httptransport.NewPageHandler(pageService, logger),
		Accounts:       httptransport.NewAccountHandler(accountService, logger),
		EventSessions:  httptransport.NewEventSessionHandler(sessionService, logger),
		RequireSession: httptransport.RequireSession(authService, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("calbook API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// purgeExpiredSessions drops expired session rows hourly until ctx is done.
func purgeExpiredSessions(ctx context.Context, sessions *sessionStoreAdapter, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.DeleteExpiredSessions(ctx, time.Now()); err != nil {
				logger.Error("failed to purge expired sessions", "error", err)
			}
		}
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
