package models

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleProvider Role = "provider"
)

// Roles lists every role that owns a presence roster.
var Roles = []Role{RoleUser, RoleProvider}

func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleUser, RoleProvider:
		return Role(value), nil
	}
	return "", fmt.Errorf("unknown role %q", value)
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleProvider
}

// Opposite returns the role whose members are told about r's presence.
func (r Role) Opposite() Role {
	if r == RoleProvider {
		return RoleUser
	}
	return RoleProvider
}

type Identity struct {
	SubjectID int64 `json:"subjectId"`
	Role      Role  `json:"role"`
}

func (i Identity) Valid() bool {
	return i.SubjectID > 0 && i.Role.Valid()
}

type Account struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	BookingPending   = "pending"
	BookingAccepted  = "accepted"
	BookingRejected  = "rejected"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

type Booking struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ProviderID  *int64    `json:"provider_id"`
	ServiceName string    `json:"service_name"`
	Address     string    `json:"address"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Notes       *string   `json:"notes"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BookingCard is the denormalized display record pushed with new_booking.
type BookingCard struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	UserName    string    `json:"userName"`
	ProviderID  *int64    `json:"providerId"`
	ServiceName string    `json:"serviceName"`
	Address     string    `json:"address"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Notes       *string   `json:"notes,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func NewBookingCard(b Booking, userName string) BookingCard {
	return BookingCard{
		ID:          b.ID,
		UserID:      b.UserID,
		UserName:    userName,
		ProviderID:  b.ProviderID,
		ServiceName: b.ServiceName,
		Address:     b.Address,
		ScheduledAt: b.ScheduledAt,
		Notes:       b.Notes,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
	}
}

type Message struct {
	ID         int64     `json:"id"`
	BookingID  int64     `json:"booking_id"`
	SenderID   int64     `json:"sender_id"`
	SenderRole Role      `json:"sender_role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
