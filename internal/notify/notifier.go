// Package notify turns booking and chat activity into realtime events.
//
// Every method is fire-and-forget. A recipient that is not connected is the
// normal case: the caller's request has already succeeded, and the client can
// still find the booking by polling. When a push queue is configured, an
// unreachable recipient gets a push job instead.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"homeservices/backend/internal/models"
	"homeservices/backend/internal/presence"
	"homeservices/backend/internal/push"
	"homeservices/backend/internal/realtime"
)

type Roster interface {
	Snapshot(role models.Role) []presence.Entry
	Find(role models.Role, subjectID int64) []presence.Entry
}

type Router interface {
	SendToConnection(connectionID string, event realtime.Event) bool
	SendToSubject(role models.Role, subjectID int64, event realtime.Event) int
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job push.Job) error
}

type Notifier struct {
	roster Roster
	router Router
	push   Enqueuer
	log    zerolog.Logger
}

// New builds a notifier. pushQueue may be nil.
func New(roster Roster, router Router, pushQueue Enqueuer, log zerolog.Logger) *Notifier {
	return &Notifier{
		roster: roster,
		router: router,
		push:   pushQueue,
		log:    log.With().Str("component", "notifier").Logger(),
	}
}

// NotifyNewBooking pushes new_booking to providerID's live connections, or to
// every online provider when providerID is nil. It returns the number of
// connections that accepted the event. An assigned booking that reached no
// connection is handed to the push queue.
func (n *Notifier) NotifyNewBooking(ctx context.Context, providerID *int64, card models.BookingCard) int {
	delivered := n.DeliverNewBooking(ctx, providerID, card)
	if providerID != nil && delivered == 0 {
		n.enqueue(ctx, push.NewJob(
			models.Identity{SubjectID: *providerID, Role: models.RoleProvider},
			"New booking request",
			fmt.Sprintf("%s at %s", card.ServiceName, card.Address),
			map[string]any{"bookingId": card.ID},
		))
	}
	return delivered
}

// DeliverNewBooking is NotifyNewBooking without the push fallback. It serves
// events that every instance receives, where a miss on one instance says
// nothing about the provider being offline.
func (n *Notifier) DeliverNewBooking(_ context.Context, providerID *int64, card models.BookingCard) int {
	event := realtime.Event{Name: realtime.EventNewBooking, Payload: card}

	entries := n.roster.Snapshot(models.RoleProvider)
	if providerID != nil {
		entries = n.roster.Find(models.RoleProvider, *providerID)
	}
	delivered := 0
	for _, entry := range entries {
		if n.router.SendToConnection(entry.ConnectionID, event) {
			delivered++
		}
	}

	logEvent := n.log.Debug().Int64("booking", card.ID).Int("online", len(entries)).Int("delivered", delivered)
	if providerID != nil {
		logEvent = logEvent.Int64("provider", *providerID)
	}
	logEvent.Msg("new booking delivered")
	return delivered
}

type bookingStatus struct {
	BookingID  int64  `json:"bookingId"`
	Status     string `json:"status"`
	ProviderID *int64 `json:"providerId"`
}

// NotifyBookingStatus tells the booking's user that its status changed.
func (n *Notifier) NotifyBookingStatus(ctx context.Context, booking models.Booking) int {
	event := realtime.Event{Name: realtime.EventBookingStatus, Payload: bookingStatus{
		BookingID:  booking.ID,
		Status:     booking.Status,
		ProviderID: booking.ProviderID,
	}}
	delivered := n.router.SendToSubject(models.RoleUser, booking.UserID, event)
	if delivered == 0 {
		n.enqueue(ctx, push.NewJob(
			models.Identity{SubjectID: booking.UserID, Role: models.RoleUser},
			"Booking update",
			fmt.Sprintf("Your %s booking is %s", booking.ServiceName, booking.Status),
			map[string]any{"bookingId": booking.ID, "status": booking.Status},
		))
	}
	return delivered
}

// NotifyMessage routes a chat message to its recipient.
func (n *Notifier) NotifyMessage(ctx context.Context, recipient models.Identity, message models.Message) int {
	delivered := n.router.SendToSubject(recipient.Role, recipient.SubjectID, realtime.Event{Name: realtime.EventNewMessage, Payload: message})
	if delivered == 0 {
		n.enqueue(ctx, push.NewJob(recipient, "New message", message.Content, map[string]any{
			"bookingId": message.BookingID,
			"messageId": message.ID,
		}))
	}
	return delivered
}

func (n *Notifier) enqueue(ctx context.Context, job push.Job) {
	if n.push == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := n.push.Enqueue(ctx, job); err != nil {
		if errors.Is(err, push.ErrQueueDisabled) {
			return
		}
		n.log.Warn().Err(err).Str("role", string(job.Role)).Int64("subject", job.SubjectID).Msg("push enqueue failed")
		return
	}
	n.log.Debug().Str("job", job.ID).Str("role", string(job.Role)).Int64("subject", job.SubjectID).Msg("push queued")
}
