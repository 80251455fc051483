package push

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

type Source interface {
	DequeueBatch(ctx context.Context, batchSize int) ([][]byte, error)
}

// Worker drains the push queue and hands each job to a Sender. Jobs that fail
// to send are logged and dropped.
type Worker struct {
	Source    Source
	Sender    Sender
	BatchSize int
	Idle      time.Duration
	Backoff   time.Duration
	log       zerolog.Logger
}

func NewWorker(source Source, sender Sender, log zerolog.Logger) *Worker {
	return &Worker{
		Source:    source,
		Sender:    sender,
		BatchSize: 100,
		Idle:      500 * time.Millisecond,
		Backoff:   2 * time.Second,
		log:       log.With().Str("component", "push_worker").Logger(),
	}
}

func (w *Worker) Start(ctx context.Context) {
	batch := w.BatchSize
	if batch <= 0 {
		batch = 100
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		items, err := w.Source.DequeueBatch(ctx, batch)
		if err != nil {
			w.log.Warn().Err(err).Msg("dequeue failed")
			if !sleep(ctx, w.Backoff) {
				return
			}
			continue
		}
		if len(items) == 0 {
			if !sleep(ctx, w.Idle) {
				return
			}
			continue
		}

		for _, raw := range items {
			var job Job
			if err := json.Unmarshal(raw, &job); err != nil {
				w.log.Warn().Err(err).Msg("dropping malformed push job")
				continue
			}
			sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err := w.Sender.Send(sendCtx, job)
			cancel()
			if err != nil {
				w.log.Error().Err(err).Str("job", job.ID).Msg("push send failed")
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
