package realtime

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"homeservices/backend/internal/models"
	"homeservices/backend/internal/presence"
)

// ErrRosterRecompute is returned when the live connection set cannot be
// projected into a roster. The previous roster stays in place.
var ErrRosterRecompute = errors.New("roster recompute failed")

// ErrInvalidIdentity is returned when asked to admit an identity with no
// subject or an unknown role.
var ErrInvalidIdentity = errors.New("invalid identity")

// Recorder observes delivery outcomes.
type Recorder interface {
	Delivered(event string, n int)
	Dropped(event string, n int)
	RecomputeFailed(role models.Role)
}

type nopRecorder struct{}

func (nopRecorder) Delivered(string, int)       {}
func (nopRecorder) Dropped(string, int)         {}
func (nopRecorder) RecomputeFailed(models.Role) {}

// Hub is the registry of admitted connections and their role groups. It also
// routes events: every send is fire-and-forget and reports how many
// connections accepted the event.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	groups   map[models.Role]map[string]*Client
	log      zerolog.Logger
	recorder Recorder
}

func NewHub(log zerolog.Logger, recorder Recorder) *Hub {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	groups := map[models.Role]map[string]*Client{}
	for _, role := range models.Roles {
		groups[role] = map[string]*Client{}
	}
	return &Hub{
		clients:  map[string]*Client{},
		groups:   groups,
		log:      log.With().Str("component", "realtime_hub").Logger(),
		recorder: recorder,
	}
}

// admit tags client with identity and places it in identity's role group.
// It returns the identity the client carried before, if any.
func (h *Hub) admit(client *Client, identity models.Identity) (models.Identity, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	previous, had := client.Identity()
	if had && previous.Role != identity.Role {
		delete(h.groups[previous.Role], client.ID)
	}
	client.setIdentity(identity)
	h.clients[client.ID] = client
	if h.groups[identity.Role] == nil {
		h.groups[identity.Role] = map[string]*Client{}
	}
	h.groups[identity.Role][client.ID] = client
	return previous, had
}

// remove drops client from the registry. It reports false if the client was
// never admitted or is already gone.
func (h *Hub) remove(client *Client) (models.Identity, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; !ok {
		return models.Identity{}, false
	}
	delete(h.clients, client.ID)
	identity, had := client.Identity()
	if !had {
		return models.Identity{}, false
	}
	delete(h.groups[identity.Role], client.ID)
	return identity, true
}

// scan projects every admitted connection of role into roster entries.
func (h *Hub) scan(role models.Role) (entries []presence.Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			entries = nil
			err = fmt.Errorf("%w: %v", ErrRosterRecompute, r)
		}
	}()

	h.mu.RLock()
	defer h.mu.RUnlock()
	entries = make([]presence.Entry, 0, len(h.groups[role]))
	for id, client := range h.clients {
		identity, ok := client.Identity()
		if !ok || !identity.Valid() {
			return nil, fmt.Errorf("%w: connection %s carries identity %+v", ErrRosterRecompute, id, identity)
		}
		if identity.Role == role {
			entries = append(entries, presence.Entry{SubjectID: identity.SubjectID, ConnectionID: id})
		}
	}
	return entries, nil
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendToConnection delivers event to a single connection.
func (h *Hub) SendToConnection(connectionID string, event Event) bool {
	h.mu.RLock()
	client, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		h.log.Debug().Str("connection", connectionID).Str("event", event.Name).Msg("delivery target not connected")
		h.recorder.Dropped(event.Name, 1)
		return false
	}
	return h.deliver([]*Client{client}, event) == 1
}

// SendToSubject delivers event to every connection of one subject.
func (h *Hub) SendToSubject(role models.Role, subjectID int64, event Event) int {
	h.mu.RLock()
	targets := make([]*Client, 0, 1)
	for _, client := range h.groups[role] {
		if identity, ok := client.Identity(); ok && identity.SubjectID == subjectID {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		h.log.Debug().Str("role", string(role)).Int64("subject", subjectID).Str("event", event.Name).Msg("subject not connected")
	}
	return h.deliver(targets, event)
}

// SendToRole delivers event to the whole role group.
func (h *Hub) SendToRole(role models.Role, event Event) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.groups[role]))
	for _, client := range h.groups[role] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()
	return h.deliver(targets, event)
}

// Broadcast delivers event to every admitted connection.
func (h *Hub) Broadcast(event Event) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()
	return h.deliver(targets, event)
}

// deliverTo reaches a client whether or not it has been admitted. Used for
// handshake replies.
func (h *Hub) deliverTo(client *Client, event Event) bool {
	return h.deliver([]*Client{client}, event) == 1
}

func (h *Hub) deliver(targets []*Client, event Event) int {
	if len(targets) == 0 {
		return 0
	}
	message, err := event.encode()
	if err != nil {
		h.log.Error().Err(err).Str("event", event.Name).Msg("failed to encode event")
		return 0
	}
	delivered := 0
	for _, client := range targets {
		if client.deliver(message) {
			delivered++
		}
	}
	if delivered > 0 {
		h.recorder.Delivered(event.Name, delivered)
	}
	if missed := len(targets) - delivered; missed > 0 {
		h.log.Debug().Str("event", event.Name).Int("missed", missed).Msg("event dropped")
		h.recorder.Dropped(event.Name, missed)
	}
	return delivered
}

// Close shuts every admitted connection and empties the registry.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = map[string]*Client{}
	for _, role := range models.Roles {
		h.groups[role] = map[string]*Client{}
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.shutdown(websocket.CloseGoingAway, "server shutting down")
	}
	h.log.Info().Int("connections", len(clients)).Msg("hub closed")
}
