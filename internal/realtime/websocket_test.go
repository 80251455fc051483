package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"homeservices/backend/internal/models"
)

func newWSServer(t *testing.T, s *Synchronizer) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(w, r, s, r.URL.Query().Get("token"), 16)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return f
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestServeWSRejectsMissingToken(t *testing.T) {
	s, hub, _ := newTestSync(fakeAuth{})
	url := newWSServer(t, s)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if f := readFrame(t, conn); f.Event != EventAuthError {
		t.Fatalf("expected auth_error, got %s", f.Event)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
	if hub.Count() != 0 {
		t.Fatal("rejected connection must not be registered")
	}
}

func TestServeWSAdmitsAndReleases(t *testing.T) {
	s, hub, _ := newTestSync(fakeAuth{"p42": provider(42)})
	url := newWSServer(t, s)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token=p42", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	f := readFrame(t, conn)
	if f.Event != EventAuthenticated {
		t.Fatalf("expected authenticated, got %s", f.Event)
	}
	var ack AuthenticatedPayload
	if err := json.Unmarshal(f.Data, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.SubjectID != 42 || ack.Role != models.RoleProvider || ack.ConnectionID == "" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	entries := s.Store().Find(models.RoleProvider, 42)
	if len(entries) != 1 || entries[0].ConnectionID != ack.ConnectionID {
		t.Fatalf("roster does not match ack: %+v", entries)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if f := readFrame(t, conn); f.Event != EventPong {
		t.Fatalf("expected pong, got %s", f.Event)
	}

	_ = conn.Close()
	waitFor(t, func() bool { return s.Store().Size(models.RoleProvider) == 0 && hub.Count() == 0 })
}
