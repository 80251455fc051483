package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"homeservices/backend/internal/db"
	"homeservices/backend/internal/models"
	"homeservices/backend/internal/presence"
)

type Repository interface {
	FindAccount(ctx context.Context, role models.Role, email string) (models.Account, error)
	AccountName(ctx context.Context, identity models.Identity) (string, error)
	CreateBooking(ctx context.Context, in db.NewBooking) (models.Booking, error)
	GetBooking(ctx context.Context, id int64) (models.Booking, error)
	ListBookings(ctx context.Context, identity models.Identity, limit, offset int) ([]models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id, providerID int64, status string) (models.Booking, bool, error)
	CreateMessage(ctx context.Context, bookingID int64, sender models.Identity, content string) (models.Message, error)
}

type TokenIssuer interface {
	GenerateToken(identity models.Identity) (string, error)
}

type Notifier interface {
	NotifyNewBooking(ctx context.Context, providerID *int64, card models.BookingCard) int
	NotifyBookingStatus(ctx context.Context, booking models.Booking) int
	NotifyMessage(ctx context.Context, recipient models.Identity, message models.Message) int
}

type API struct {
	Store    Repository
	Auth     TokenIssuer
	Presence *presence.Store
	Notifier Notifier
	log      zerolog.Logger
}

func NewAPI(store Repository, authService TokenIssuer, roster *presence.Store, notifier Notifier, log zerolog.Logger) *API {
	return &API{
		Store:    store,
		Auth:     authService,
		Presence: roster,
		Notifier: notifier,
		log:      log.With().Str("component", "api").Logger(),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func ParseID(pathPart string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(pathPart), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// maxPage keeps (page-1)*limit well inside the range Postgres accepts.
const maxPage = 100000

func parsePagination(r *http.Request) (int, int) {
	page := 1
	limit := 20
	if value := r.URL.Query().Get("page"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			page = min(parsed, maxPage)
		}
	}
	if value := r.URL.Query().Get("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return page, limit
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"online_users":     a.Presence.Size(models.RoleUser),
		"online_providers": a.Presence.Size(models.RoleProvider),
	})
}

// OnlineProviders returns the current provider roster.
func (a *API) OnlineProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"entries": a.Presence.Snapshot(models.RoleProvider)})
}
