// Package events receives booking activity published by other services.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"homeservices/backend/internal/models"
)

const DefaultBookingSubject = "bookings.created"

// BookingCreated is the payload published on the booking subject.
type BookingCreated struct {
	ProviderID *int64             `json:"providerId"`
	Booking    models.BookingCard `json:"booking"`
}

// BookingNotifier delivers to live connections only. Every instance receives
// every event, so queueing offline push here would repeat it once per
// instance; the publisher owns push for bookings it announces.
type BookingNotifier interface {
	DeliverNewBooking(ctx context.Context, providerID *int64, card models.BookingCard) int
}

type Subscriber struct {
	notifier BookingNotifier
	log      zerolog.Logger
	sub      *nats.Subscription
}

func NewSubscriber(notifier BookingNotifier, log zerolog.Logger) *Subscriber {
	return &Subscriber{
		notifier: notifier,
		log:      log.With().Str("component", "booking_events").Logger(),
	}
}

// Connect dials NATS and keeps reconnecting for the life of the process.
func Connect(url string, log zerolog.Logger) (*nats.Conn, error) {
	var (
		nc  *nats.Conn
		err error
	)
	for attempt := 1; attempt <= 5; attempt++ {
		nc, err = nats.Connect(url,
			nats.Name("homeservices-realtime"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				log.Warn().Err(err).Msg("nats disconnected")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
			}),
		)
		if err == nil {
			return nc, nil
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("nats connect failed")
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return nil, fmt.Errorf("connect nats: %w", err)
}

// Subscribe listens on subject. Every instance must see every booking because
// each one only holds its own connections, so no queue group is used.
func (s *Subscriber) Subscribe(nc *nats.Conn, subject string) error {
	if subject == "" {
		subject = DefaultBookingSubject
	}
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		if err := s.Handle(context.Background(), msg.Data); err != nil {
			s.log.Warn().Err(err).Str("subject", msg.Subject).Msg("dropping booking event")
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.sub = sub
	s.log.Info().Str("subject", subject).Msg("listening for bookings")
	return nil
}

// Handle decodes one booking event and delivers it to the matching providers
// connected to this instance.
func (s *Subscriber) Handle(ctx context.Context, data []byte) error {
	var event BookingCreated
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("decode booking event: %w", err)
	}
	if event.Booking.ID == 0 {
		return errors.New("booking event without booking id")
	}
	if event.ProviderID == nil {
		event.ProviderID = event.Booking.ProviderID
	}
	delivered := s.notifier.DeliverNewBooking(ctx, event.ProviderID, event.Booking)
	s.log.Debug().Int64("booking", event.Booking.ID).Int("delivered", delivered).Msg("booking event handled")
	return nil
}

func (s *Subscriber) Close() error {
	if s == nil || s.sub == nil {
		return nil
	}
	return s.sub.Unsubscribe()
}
