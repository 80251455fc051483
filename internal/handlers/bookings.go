package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"homeservices/backend/internal/auth"
	"homeservices/backend/internal/db"
	"homeservices/backend/internal/models"
)

type createBookingRequest struct {
	ProviderID  *int64    `json:"provider_id"`
	ServiceName string    `json:"service_name"`
	Address     string    `json:"address"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Notes       *string   `json:"notes"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

var providerStatuses = map[string]bool{
	models.BookingAccepted:  true,
	models.BookingRejected:  true,
	models.BookingCompleted: true,
	models.BookingCancelled: true,
}

func (a *API) ListBookings(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	page, limit := parsePagination(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	bookings, err := a.Store.ListBookings(ctx, identity, limit, (page-1)*limit)
	if err != nil {
		a.log.Error().Err(err).Msg("list bookings failed")
		writeError(w, http.StatusInternalServerError, "failed to load bookings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  bookings,
		"page":  page,
		"limit": limit,
	})
}

// CreateBooking stores a booking for the calling user and pushes it to the
// chosen provider, or to every online provider when none is chosen.
func (a *API) CreateBooking(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity.Role != models.RoleUser {
		writeError(w, http.StatusForbidden, "only users can create bookings")
		return
	}
	var req createBookingRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.ServiceName = strings.TrimSpace(req.ServiceName)
	req.Address = strings.TrimSpace(req.Address)
	if req.ServiceName == "" || req.Address == "" || req.ScheduledAt.IsZero() {
		writeError(w, http.StatusBadRequest, "service_name, address, and scheduled_at are required")
		return
	}
	if req.ProviderID != nil && *req.ProviderID <= 0 {
		writeError(w, http.StatusBadRequest, "provider_id must be positive")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	booking, err := a.Store.CreateBooking(ctx, db.NewBooking{
		UserID:      identity.SubjectID,
		ProviderID:  req.ProviderID,
		ServiceName: req.ServiceName,
		Address:     req.Address,
		ScheduledAt: req.ScheduledAt.UTC(),
		Notes:       req.Notes,
	})
	if err != nil {
		a.log.Error().Err(err).Int64("user", identity.SubjectID).Msg("create booking failed")
		writeError(w, http.StatusInternalServerError, "failed to create booking")
		return
	}

	userName, err := a.Store.AccountName(ctx, identity)
	if err != nil {
		a.log.Warn().Err(err).Int64("user", identity.SubjectID).Msg("booking card without user name")
	}
	delivered := a.Notifier.NotifyNewBooking(ctx, booking.ProviderID, models.NewBookingCard(booking, userName))

	writeJSON(w, http.StatusCreated, map[string]any{
		"booking":   booking,
		"delivered": delivered,
	})
}

// UpdateBookingStatus lets a provider accept, reject, complete or cancel a
// booking. Accepting an open booking assigns it to the caller; rejecting one
// leaves it open for other providers.
func (a *API) UpdateBookingStatus(w http.ResponseWriter, r *http.Request, id int64) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity.Role != models.RoleProvider {
		writeError(w, http.StatusForbidden, "only providers can update booking status")
		return
	}
	var req updateStatusRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if !providerStatuses[req.Status] {
		writeError(w, http.StatusBadRequest, "status must be accepted, rejected, completed, or cancelled")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	booking, changed, err := a.Store.UpdateBookingStatus(ctx, id, identity.SubjectID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			writeError(w, http.StatusNotFound, "booking not found")
		case errors.Is(err, db.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "booking cannot move to "+req.Status)
		default:
			a.log.Error().Err(err).Int64("booking", id).Msg("update booking status failed")
			writeError(w, http.StatusInternalServerError, "failed to update booking")
		}
		return
	}
	if changed {
		a.Notifier.NotifyBookingStatus(ctx, booking)
	}

	writeJSON(w, http.StatusOK, booking)
}
