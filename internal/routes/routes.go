package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stanstork/sponsordesk-api/internal/authz"
	"github.com/stanstork/sponsordesk-api/internal/handlers"
	"github.com/stanstork/sponsordesk-api/internal/middleware"
)

type Handlers struct {
	Auth          *handlers.AuthHandler
	Campaigns     *handlers.CampaignHandler
	Notifications *handlers.NotificationHandler
	Stream        *handlers.StreamHandler
	Finance       *handlers.FinanceHandler
	Health        http.HandlerFunc
}

// NewRouter sets up the API routes. Everything under /api except the auth
// entry points requires a live session.
func NewRouter(h Handlers, authenticator authz.Authenticator, limiter *middleware.RateLimiter) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Metrics)

	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Public auth endpoints, throttled per client IP
	throttle := func(fn http.HandlerFunc) http.Handler {
		if limiter == nil {
			return fn
		}
		return limiter.Middleware(fn)
	}
	router.Handle("/api/signup", throttle(h.Auth.SignUp)).Methods(http.MethodPost)
	router.Handle("/api/login", throttle(h.Auth.Login)).Methods(http.MethodPost)
	router.Handle("/api/confirm", throttle(h.Auth.Confirm)).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(authz.RequireIdentity(authenticator))

	api.HandleFunc("/logout", h.Auth.Logout).Methods(http.MethodPost)
	api.HandleFunc("/me", h.Auth.Me).Methods(http.MethodGet)

	api.HandleFunc("/campaigns", h.Campaigns.List).Methods(http.MethodGet)
	api.HandleFunc("/campaigns", h.Campaigns.Create).Methods(http.MethodPost)
	api.HandleFunc("/campaigns/{campaignID}", h.Campaigns.Get).Methods(http.MethodGet)
	api.HandleFunc("/campaigns/{campaignID}", h.Campaigns.Update).Methods(http.MethodPatch)
	api.HandleFunc("/campaigns/{campaignID}", h.Campaigns.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/campaigns/{campaignID}/status", h.Campaigns.SetStatus).Methods(http.MethodPut)
	api.HandleFunc("/campaigns/{campaignID}/paid", h.Campaigns.MarkPaid).Methods(http.MethodPost)
	api.HandleFunc("/campaigns/{campaignID}/items/{index:[0-9]+}/toggle", h.Campaigns.ToggleItem).Methods(http.MethodPost)
	api.HandleFunc("/campaigns/{campaignID}/link", h.Campaigns.UpdateLink).Methods(http.MethodPut)

	api.HandleFunc("/notifications", h.Notifications.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications/read-all", h.Notifications.MarkAllRead).Methods(http.MethodPost)
	api.HandleFunc("/notifications/scan", h.Notifications.Scan).Methods(http.MethodPost)
	api.HandleFunc("/notifications/stream", h.Stream.Stream).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{notificationID}/read", h.Notifications.MarkRead).Methods(http.MethodPut)
	api.HandleFunc("/notifications/{notificationID}", h.Notifications.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/settings/notifications", h.Notifications.Settings).Methods(http.MethodGet)
	api.HandleFunc("/settings/notifications", h.Notifications.UpdateSettings).Methods(http.MethodPut)

	api.HandleFunc("/finance", h.Finance.Summary).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", h.Finance.Dashboard).Methods(http.MethodGet)

	return router
}
