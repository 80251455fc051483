package push

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// Sender hands a job to the mobile push provider.
type Sender interface {
	Send(ctx context.Context, job Job) error
}

// LogSender records jobs without contacting a provider. Used until a real
// push gateway is wired in.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("component", "push_sender").Logger()}
}

func (s *LogSender) Send(_ context.Context, job Job) error {
	s.log.Info().
		Str("job", job.ID).
		Str("role", string(job.Role)).
		Int64("subject", job.SubjectID).
		Str("title", job.Title).
		Msg("push handed off")
	return nil
}

// BreakerSender stops calling a failing provider for a while instead of
// spending every job on it.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerSender(next Sender, log zerolog.Logger) *BreakerSender {
	settings := gobreaker.Settings{
		Name:        "push-sender",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}
	return &BreakerSender{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerSender) Send(ctx context.Context, job Job) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, job)
	})
	return err
}

func (b *BreakerSender) State() gobreaker.State {
	return b.cb.State()
}
