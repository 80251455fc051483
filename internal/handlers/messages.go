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

type sendMessageRequest struct {
	BookingID int64  `json:"booking_id"`
	Content   string `json:"content"`
}

// counterpart returns the other participant of booking as seen by sender.
func counterpart(booking models.Booking, sender models.Identity) (models.Identity, bool) {
	switch sender.Role {
	case models.RoleUser:
		if booking.UserID != sender.SubjectID || booking.ProviderID == nil {
			return models.Identity{}, false
		}
		return models.Identity{SubjectID: *booking.ProviderID, Role: models.RoleProvider}, true
	case models.RoleProvider:
		if booking.ProviderID == nil || *booking.ProviderID != sender.SubjectID {
			return models.Identity{}, false
		}
		return models.Identity{SubjectID: booking.UserID, Role: models.RoleUser}, true
	}
	return models.Identity{}, false
}

func (a *API) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req sendMessageRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.BookingID == 0 || req.Content == "" {
		writeError(w, http.StatusBadRequest, "booking_id and content are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	booking, err := a.Store.GetBooking(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load booking")
		return
	}
	recipient, ok := counterpart(booking, identity)
	if !ok {
		writeError(w, http.StatusForbidden, "not a participant of this booking")
		return
	}

	message, err := a.Store.CreateMessage(ctx, booking.ID, identity, req.Content)
	if err != nil {
		a.log.Error().Err(err).Int64("booking", booking.ID).Msg("save message failed")
		writeError(w, http.StatusInternalServerError, "failed to save message")
		return
	}
	a.Notifier.NotifyMessage(ctx, recipient, message)

	writeJSON(w, http.StatusCreated, message)
}
