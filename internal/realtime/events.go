package realtime

import (
	"github.com/goccy/go-json"

	"homeservices/backend/internal/models"
	"homeservices/backend/internal/presence"
)

const (
	EventUserStatus     = "user_status_update"
	EventProviderStatus = "provider_status_update"
	EventOnlineUsers    = "online_users"
	EventOnlineProvider = "online_providers"
	EventNewBooking     = "new_booking"
	EventBookingStatus  = "booking_status_update"
	EventNewMessage     = "new_message"
	EventAuthError      = "auth_error"
	EventAuthenticated  = "authenticated"
	EventPong           = "pong"

	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Event is a named payload. On the wire it is {"event": name, "data": payload}.
type Event struct {
	Name    string
	Payload any
}

type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(envelope{Event: e.Name, Data: e.Payload})
}

type userStatus struct {
	UserID int64  `json:"userId"`
	Status string `json:"status"`
}

type providerStatus struct {
	ProviderID int64  `json:"providerId"`
	Status     string `json:"status"`
}

// StatusEvent announces that identity went online or offline. It is addressed
// to the opposite role group.
func StatusEvent(identity models.Identity, status string) Event {
	if identity.Role == models.RoleProvider {
		return Event{Name: EventProviderStatus, Payload: providerStatus{ProviderID: identity.SubjectID, Status: status}}
	}
	return Event{Name: EventUserStatus, Payload: userStatus{UserID: identity.SubjectID, Status: status}}
}

type RosterPayload struct {
	Entries []presence.Entry `json:"entries"`
}

func RosterEvent(role models.Role, entries []presence.Entry) Event {
	if entries == nil {
		entries = []presence.Entry{}
	}
	name := EventOnlineUsers
	if role == models.RoleProvider {
		name = EventOnlineProvider
	}
	return Event{Name: name, Payload: RosterPayload{Entries: entries}}
}

type authErrorPayload struct {
	Message string `json:"message"`
}

func AuthErrorEvent(err error) Event {
	return Event{Name: EventAuthError, Payload: authErrorPayload{Message: err.Error()}}
}

type AuthenticatedPayload struct {
	ConnectionID string           `json:"connectionId"`
	SubjectID    int64            `json:"subjectId"`
	Role         models.Role      `json:"role"`
	Online       []presence.Entry `json:"online"`
}
