package router

import (
	"net/http"
	"strconv"
	"strings"

	"homeservices/backend/internal/auth"
	"homeservices/backend/internal/handlers"
	"homeservices/backend/internal/middleware"
	"homeservices/backend/internal/realtime"
)

type Router struct {
	api        *handlers.API
	auth       middleware.TokenVerifier
	limiter    *middleware.RateLimiter
	origin     string
	presence   *realtime.Synchronizer
	sendBuffer int
}

func New(api *handlers.API, verifier middleware.TokenVerifier, limiter *middleware.RateLimiter, origin string, presenceSync *realtime.Synchronizer, sendBuffer int) *Router {
	return &Router{api: api, auth: verifier, limiter: limiter, origin: origin, presence: presenceSync, sendBuffer: sendBuffer}
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte("{\"error\":\"" + message + "\"}"))
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if middleware.HandleCORS(w, r, rt.origin) {
		return
	}
	middleware.SecurityHeaders(w)

	path := strings.TrimSuffix(r.URL.Path, "/")
	if path == "" {
		path = "/"
	}

	// The websocket authenticates inside the connection so that a bad token
	// is answered with auth_error instead of a failed upgrade.
	if path == "/api/v1/ws" && rt.presence != nil {
		if r.Method != http.MethodGet {
			writeStatus(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if rt.limiter != nil && !rt.limiter.Allow(middleware.ClientKey(r)) {
			writeStatus(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		realtime.ServeWS(w, r, rt.presence, middleware.TokenFromRequest(r), rt.sendBuffer)
		return
	}

	if requiresAuth(path) {
		identity, err := middleware.Authenticate(r, rt.auth)
		if err != nil {
			writeStatus(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if rt.limiter != nil {
			key := string(identity.Role) + ":" + strconv.FormatInt(identity.SubjectID, 10)
			if !rt.limiter.Allow(key) {
				writeStatus(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		if !handlers.Authorize(identity, handlers.RequiredRole(path, r.Method)) {
			writeStatus(w, http.StatusForbidden, "forbidden")
			return
		}
		r = r.WithContext(auth.WithIdentity(r.Context(), identity))
	} else if rt.limiter != nil {
		if !rt.limiter.Allow(middleware.ClientKey(r)) {
			writeStatus(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	switch {
	case path == "/healthz":
		if r.Method == http.MethodGet {
			rt.api.Health(w, r)
			return
		}
	case path == "/api/v1/auth/login":
		if r.Method == http.MethodPost {
			rt.api.Login(w, r)
			return
		}
	case path == "/api/v1/auth/me":
		if r.Method == http.MethodGet {
			rt.api.Me(w, r)
			return
		}
	case path == "/api/v1/bookings":
		switch r.Method {
		case http.MethodGet:
			rt.api.ListBookings(w, r)
			return
		case http.MethodPost:
			rt.api.CreateBooking(w, r)
			return
		}
	case strings.HasPrefix(path, "/api/v1/bookings/"):
		segments := strings.Split(strings.TrimPrefix(path, "/api/v1/bookings/"), "/")
		if len(segments) == 2 && segments[1] == "status" && r.Method == http.MethodPatch {
			if id, ok := handlers.ParseID(segments[0]); ok {
				rt.api.UpdateBookingStatus(w, r, id)
				return
			}
		}
	case path == "/api/v1/messages":
		if r.Method == http.MethodPost {
			rt.api.SendMessage(w, r)
			return
		}
	case path == "/api/v1/presence/providers":
		if r.Method == http.MethodGet {
			rt.api.OnlineProviders(w, r)
			return
		}
	}

	writeStatus(w, http.StatusNotFound, "not found")
}

func requiresAuth(path string) bool {
	switch path {
	case "/api/v1/auth/login", "/healthz":
		return false
	default:
		return strings.HasPrefix(path, "/api/v1/")
	}
}
