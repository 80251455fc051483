package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"homeservices/backend/internal/auth"
	"homeservices/backend/internal/models"
	"homeservices/backend/internal/presence"
	"homeservices/backend/internal/realtime"
)

type wireFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dial(t *testing.T, url string, authService *auth.Service, identity models.Identity) (*websocket.Conn, realtime.AuthenticatedPayload) {
	t.Helper()
	token, err := authService.GenerateToken(identity)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	f := readUntil(t, conn, realtime.EventAuthenticated)
	var ack realtime.AuthenticatedPayload
	if err := json.Unmarshal(f.Data, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	return conn, ack
}

func readUntil(t *testing.T, conn *websocket.Conn, event string) wireFrame {
	t.Helper()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		var f wireFrame
		if err := json.Unmarshal(message, &f); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if f.Event == event {
			return f
		}
	}
}

func TestBookingReachesOnlineProviderAndOfflineIsAnnounced(t *testing.T) {
	authService, err := auth.NewService("flow-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	store := presence.NewStore()
	hub := realtime.NewHub(zerolog.Nop(), nil)
	presenceSync := realtime.NewSynchronizer(hub, store, authService, zerolog.Nop())
	notifier := New(store, hub, nil, zerolog.Nop())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		realtime.ServeWS(w, r, presenceSync, r.URL.Query().Get("token"), 16)
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	userConn, _ := dial(t, url, authService, models.Identity{SubjectID: 1, Role: models.RoleUser})
	providerConn, providerAck := dial(t, url, authService, models.Identity{SubjectID: 42, Role: models.RoleProvider})

	roster := store.Snapshot(models.RoleProvider)
	if len(roster) != 1 || roster[0].SubjectID != 42 || roster[0].ConnectionID != providerAck.ConnectionID {
		t.Fatalf("unexpected provider roster: %+v", roster)
	}
	online := readUntil(t, userConn, realtime.EventProviderStatus)
	if !strings.Contains(string(online.Data), `"online"`) {
		t.Fatalf("expected online status, got %s", online.Data)
	}

	providerID := int64(42)
	booking := models.BookingCard{ID: 77, UserID: 1, UserName: "Ada", ProviderID: &providerID, ServiceName: "Plumbing", Status: models.BookingPending}
	if delivered := notifier.NotifyNewBooking(context.Background(), &providerID, booking); delivered != 1 {
		t.Fatalf("expected one delivery, got %d", delivered)
	}
	f := readUntil(t, providerConn, realtime.EventNewBooking)
	var got models.BookingCard
	if err := json.Unmarshal(f.Data, &got); err != nil {
		t.Fatalf("decode booking: %v", err)
	}
	if got.ID != 77 || got.UserName != "Ada" {
		t.Fatalf("unexpected booking card: %+v", got)
	}

	_ = providerConn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for store.Size(models.RoleProvider) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("provider roster did not empty")
		}
		time.Sleep(10 * time.Millisecond)
	}

	offline := readUntil(t, userConn, realtime.EventProviderStatus)
	var status struct {
		ProviderID int64  `json:"providerId"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(offline.Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.ProviderID != 42 || status.Status != realtime.StatusOffline {
		t.Fatalf("unexpected status: %+v", status)
	}

	if delivered := notifier.NotifyNewBooking(context.Background(), &providerID, booking); delivered != 0 {
		t.Fatalf("closed provider should not receive bookings, got %d", delivered)
	}
}
