package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWS upgrades the request and runs the connection until it closes. The
// token comes from the handshake, never from a message.
func ServeWS(w http.ResponseWriter, r *http.Request, presenceSync *Synchronizer, token string, sendBuffer int) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		presenceSync.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := NewClient(sendBuffer)

	go writePump(conn, client)
	if err := presenceSync.Connect(client, token); err != nil {
		client.shutdown(websocket.ClosePolicyViolation, "authentication required")
		return
	}
	readPump(conn, client, presenceSync)
}

func readPump(conn *websocket.Conn, client *Client, presenceSync *Synchronizer) {
	defer func() {
		presenceSync.Disconnect(client)
		_ = conn.Close()
	}()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		presenceSync.HandleMessage(client, message)
	}
}

func writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, client.closeMessage())
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleMessage dispatches a client frame by its "type" field.
func (s *Synchronizer) HandleMessage(client *Client, message []byte) {
	switch kind := gjson.GetBytes(message, "type").String(); kind {
	case "authenticate":
		_ = s.Reauthenticate(client, gjson.GetBytes(message, "token").String())
	case "ping":
		s.hub.deliverTo(client, Event{Name: EventPong})
	default:
		s.log.Debug().Str("connection", client.ID).Str("type", kind).Msg("ignoring client message")
	}
}
