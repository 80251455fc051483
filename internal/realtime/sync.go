package realtime

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"homeservices/backend/internal/models"
	"homeservices/backend/internal/presence"
)

type Authenticator interface {
	VerifyToken(token string) (models.Identity, error)
}

// Synchronizer keeps the presence store in step with the hub. It is the only
// writer of the store.
//
// Every roster change is a scan-then-replace: the role's roster is rebuilt
// from all admitted connections and swapped in whole. The scan, the swap and
// the roster broadcast run under a per-role mutex, so two near-simultaneous
// changes for the same role cannot interleave and the last scan always sees
// both mutations. The cost is O(total live connections) per change, which is
// fine into the low thousands of connections.
type Synchronizer struct {
	hub    *Hub
	store  *presence.Store
	auth   Authenticator
	log    zerolog.Logger
	roleMu map[models.Role]*sync.Mutex
}

func NewSynchronizer(hub *Hub, store *presence.Store, auth Authenticator, log zerolog.Logger) *Synchronizer {
	roleMu := map[models.Role]*sync.Mutex{}
	for _, role := range models.Roles {
		roleMu[role] = &sync.Mutex{}
	}
	return &Synchronizer{
		hub:    hub,
		store:  store,
		auth:   auth,
		log:    log.With().Str("component", "presence_sync").Logger(),
		roleMu: roleMu,
	}
}

// Connect authenticates a fresh connection with its handshake token and
// admits it. On failure the client gets auth_error and is not admitted.
func (s *Synchronizer) Connect(client *Client, token string) error {
	identity, err := s.auth.VerifyToken(token)
	if err != nil {
		s.log.Warn().Err(err).Str("connection", client.ID).Msg("handshake rejected")
		s.hub.deliverTo(client, AuthErrorEvent(err))
		return err
	}
	return s.Admit(client, identity)
}

// Reauthenticate handles a repeated handshake on an open connection. A failed
// attempt leaves the current admission untouched.
func (s *Synchronizer) Reauthenticate(client *Client, token string) error {
	identity, err := s.auth.VerifyToken(token)
	if err != nil {
		s.log.Warn().Err(err).Str("connection", client.ID).Msg("re-authentication rejected")
		s.hub.deliverTo(client, AuthErrorEvent(err))
		return err
	}
	return s.Admit(client, identity)
}

// Admit tags client with identity, refreshes the roster for identity's role
// and tells the opposite role group. Admitting the same identity twice is a
// no-op apart from re-sending the roster. An invalid identity is refused and
// leaves the client as it was.
func (s *Synchronizer) Admit(client *Client, identity models.Identity) error {
	if !identity.Valid() {
		err := fmt.Errorf("%w: %+v", ErrInvalidIdentity, identity)
		s.log.Warn().Err(err).Str("connection", client.ID).Msg("admission refused")
		s.hub.deliverTo(client, AuthErrorEvent(err))
		return err
	}
	previous, had := s.hub.admit(client, identity)
	changed := !had || previous != identity

	if had && changed {
		if previous.Role != identity.Role {
			s.refresh(previous.Role)
		}
		s.hub.SendToRole(previous.Role.Opposite(), StatusEvent(previous, StatusOffline))
	}
	s.refresh(identity.Role)
	if changed {
		s.hub.SendToRole(identity.Role.Opposite(), StatusEvent(identity, StatusOnline))
	}

	s.hub.deliverTo(client, Event{Name: EventAuthenticated, Payload: AuthenticatedPayload{
		ConnectionID: client.ID,
		SubjectID:    identity.SubjectID,
		Role:         identity.Role,
		Online:       s.store.Snapshot(identity.Role.Opposite()),
	}})
	s.log.Info().Str("connection", client.ID).Int64("subject", identity.SubjectID).Str("role", string(identity.Role)).Msg("connection admitted")
	return nil
}

// Disconnect removes client and, if it had been admitted, refreshes its
// role's roster and announces it offline. Safe to call more than once.
func (s *Synchronizer) Disconnect(client *Client) {
	identity, ok := s.hub.remove(client)
	client.close()
	if !ok {
		s.log.Debug().Str("connection", client.ID).Msg("unadmitted connection closed")
		return
	}
	s.refresh(identity.Role)
	s.hub.SendToRole(identity.Role.Opposite(), StatusEvent(identity, StatusOffline))
	s.log.Info().Str("connection", client.ID).Int64("subject", identity.SubjectID).Str("role", string(identity.Role)).Msg("connection closed")
}

// refresh rebuilds role's roster. If the scan fails the previous roster is
// kept and nothing is published.
func (s *Synchronizer) refresh(role models.Role) bool {
	mu := s.roleMu[role]
	mu.Lock()
	defer mu.Unlock()

	entries, err := s.hub.scan(role)
	if err != nil {
		s.log.Error().Err(err).Str("role", string(role)).Msg("keeping previous roster")
		s.hub.recorder.RecomputeFailed(role)
		return false
	}
	s.store.Replace(role, entries)
	s.hub.SendToRole(role.Opposite(), RosterEvent(role, entries))
	return true
}

// Store exposes the roster the synchronizer maintains.
func (s *Synchronizer) Store() *presence.Store {
	return s.store
}
