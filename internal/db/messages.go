package db

import (
	"context"
	"time"

	"homeservices/backend/internal/models"
)

func (s *Store) CreateMessage(ctx context.Context, bookingID int64, sender models.Identity, content string) (models.Message, error) {
	var message models.Message
	query := `
		INSERT INTO messages (booking_id, sender_id, sender_role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, booking_id, sender_id, sender_role, content, created_at`

	err := s.Pool.QueryRow(ctx, query, bookingID, sender.SubjectID, string(sender.Role), content, time.Now().UTC()).Scan(
		&message.ID, &message.BookingID, &message.SenderID, &message.SenderRole, &message.Content, &message.CreatedAt,
	)
	return message, err
}
