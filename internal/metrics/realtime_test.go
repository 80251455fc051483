package metrics

import (
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"homeservices/backend/internal/models"
	"homeservices/backend/internal/presence"
	"homeservices/backend/internal/realtime"
)

var _ realtime.Recorder = (*Realtime)(nil)

func TestNewRealtimeWithNoopMeter(t *testing.T) {
	store := presence.NewStore()
	store.Replace(models.RoleProvider, []presence.Entry{{SubjectID: 1, ConnectionID: "c1"}})

	r, err := NewRealtime(noop.NewMeterProvider().Meter("test"), store)
	if err != nil {
		t.Fatalf("NewRealtime: %v", err)
	}
	r.Delivered("new_booking", 2)
	r.Delivered("new_booking", 0)
	r.Dropped("new_booking", 1)
	r.RecomputeFailed(models.RoleUser)
}

func TestNewRealtimeGlobalMeter(t *testing.T) {
	r, err := NewRealtime(nil, nil)
	if err != nil {
		t.Fatalf("NewRealtime: %v", err)
	}
	r.Dropped("pong", 3)
}
