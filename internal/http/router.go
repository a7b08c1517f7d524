package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth          *AuthHandler
	Bookings      *BookingHandler
	Pages         *PageHandler
	Accounts      *AccountHandler
	EventSessions *EventSessionHandler
	// RequireSession guards the owner-facing routes. Public booking and
	// application routes bypass it.
	RequireSession func(http.Handler) http.Handler
	Middleware     []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	guard := cfg.RequireSession
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}
	protect := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			guard(next).ServeHTTP(w, r)
		}
	}

	if cfg.Auth != nil {
		mux.HandleFunc("/owners", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.Register(w, r)
		})
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.CreateSession(w, r)
		})
		mux.HandleFunc("/sessions/current", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Auth.DeleteCurrentSession(w, r)
		})
	}

	if cfg.Bookings != nil {
		mux.HandleFunc("/booking-pages/", func(w http.ResponseWriter, r *http.Request) {
			slug, action, ok := splitTwo(strings.TrimPrefix(r.URL.Path, "/booking-pages/"))
			if !ok {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithPageSlug(r.Context(), slug))
			switch action {
			case "slots":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Bookings.ListSlots(w, r)
			case "bookings":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Bookings.Create(w, r)
			default:
				http.NotFound(w, r)
			}
		})
		mux.HandleFunc("/bookings/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/bookings/")
			trackingID, action, _ := strings.Cut(rest, "/")
			if trackingID == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithTrackingID(r.Context(), trackingID))
			switch action {
			case "":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Bookings.Get(w, r)
			case "cancel":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Bookings.Cancel(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Pages != nil {
		mux.HandleFunc("/pages", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Pages.List(w, r)
			case http.MethodPost:
				cfg.Pages.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.HandleFunc("/pages/", protect(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/pages/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithPageID(r.Context(), id))
			switch r.Method {
			case http.MethodGet:
				cfg.Pages.Get(w, r)
			case http.MethodPut:
				cfg.Pages.Update(w, r)
			case http.MethodDelete:
				cfg.Pages.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		}))
	}

	if cfg.Accounts != nil {
		mux.HandleFunc("/accounts", protect(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Accounts.List(w, r)
			case http.MethodPost:
				cfg.Accounts.Connect(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		}))
		mux.HandleFunc("/accounts/", protect(func(w http.ResponseWriter, r *http.Request) {
			id, action, ok := splitTwo(strings.TrimPrefix(r.URL.Path, "/accounts/"))
			if !ok {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			r = r.WithContext(ContextWithAccountID(r.Context(), id))
			switch action {
			case "deactivate":
				cfg.Accounts.Deactivate(w, r)
			case "sync":
				cfg.Accounts.Sync(w, r)
			default:
				http.NotFound(w, r)
			}
		}))
	}

	if cfg.EventSessions != nil {
		mux.HandleFunc("/events/", func(w http.ResponseWriter, r *http.Request) {
			eventID, action, ok := splitTwo(strings.TrimPrefix(r.URL.Path, "/events/"))
			if !ok || action != "sessions" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			r = r.WithContext(ContextWithEventID(r.Context(), eventID))
			cfg.EventSessions.List(w, r)
		})
		mux.HandleFunc("/event-sessions", protect(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.EventSessions.Create(w, r)
		}))
		mux.HandleFunc("/event-sessions/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/event-sessions/")
			id, action, _ := strings.Cut(rest, "/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithSessionID(r.Context(), id))
			switch action {
			case "":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.EventSessions.Get(w, r)
			case "speakers":
				switch r.Method {
				case http.MethodPost:
					protect(cfg.EventSessions.ConfirmSpeaker)(w, r)
				case http.MethodDelete:
					protect(cfg.EventSessions.UnconfirmSpeaker)(w, r)
				default:
					methodNotAllowed(w, http.MethodPost, http.MethodDelete)
				}
			case "applications":
				switch r.Method {
				case http.MethodPost:
					cfg.EventSessions.SubmitApplication(w, r)
				case http.MethodDelete:
					cfg.EventSessions.WithdrawApplication(w, r)
				default:
					methodNotAllowed(w, http.MethodPost, http.MethodDelete)
				}
			case "applications/approve":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				protect(cfg.EventSessions.ApproveApplication)(w, r)
			case "applications/reject":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				protect(cfg.EventSessions.RejectApplication)(w, r)
			case "cancel":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				protect(cfg.EventSessions.Cancel)(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// splitTwo splits "first/second" and rejects anything deeper or shorter.
func splitTwo(path string) (string, string, bool) {
	first, second, found := strings.Cut(path, "/")
	if !found || first == "" || second == "" || strings.Contains(second, "/") {
		return "", "", false
	}
	return first, second, true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
