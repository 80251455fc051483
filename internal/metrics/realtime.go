package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"homeservices/backend/internal/models"
)

// RosterSizer reports how many connections a role's roster holds.
type RosterSizer interface {
	Size(role models.Role) int
}

// Realtime records delivery and presence metrics for the realtime hub.
type Realtime struct {
	delivered        metric.Int64Counter
	dropped          metric.Int64Counter
	recomputeFailure metric.Int64Counter
}

// NewRealtime registers the instruments on meter. A nil meter uses the
// global provider.
func NewRealtime(meter metric.Meter, roster RosterSizer) (*Realtime, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}
	delivered, err := meter.Int64Counter("realtime_events_delivered_total",
		metric.WithDescription("Events accepted by a connection's send buffer"))
	if err != nil {
		return nil, err
	}
	dropped, err := meter.Int64Counter("realtime_events_dropped_total",
		metric.WithDescription("Events dropped because a connection was closed or full"))
	if err != nil {
		return nil, err
	}
	recompute, err := meter.Int64Counter("presence_recompute_failures_total",
		metric.WithDescription("Roster rebuilds that kept the previous roster"))
	if err != nil {
		return nil, err
	}
	rosterSize, err := meter.Int64ObservableGauge("presence_roster_size",
		metric.WithDescription("Connections in each presence roster"))
	if err != nil {
		return nil, err
	}
	if roster != nil {
		_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			for _, role := range models.Roles {
				o.ObserveInt64(rosterSize, int64(roster.Size(role)), metric.WithAttributes(
					attribute.String("role", string(role)),
				))
			}
			return nil
		}, rosterSize)
		if err != nil {
			return nil, err
		}
	}
	return &Realtime{delivered: delivered, dropped: dropped, recomputeFailure: recompute}, nil
}

func (r *Realtime) Delivered(event string, n int) {
	if n <= 0 {
		return
	}
	r.delivered.Add(context.Background(), int64(n), metric.WithAttributes(attribute.String("event", event)))
}

func (r *Realtime) Dropped(event string, n int) {
	if n <= 0 {
		return
	}
	r.dropped.Add(context.Background(), int64(n), metric.WithAttributes(attribute.String("event", event)))
}

func (r *Realtime) RecomputeFailed(role models.Role) {
	r.recomputeFailure.Add(context.Background(), 1, metric.WithAttributes(attribute.String("role", string(role))))
}
