package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"homeservices/backend/internal/models"
)

const bookingColumns = `id, user_id, provider_id, service_name, address, scheduled_at, notes, status, created_at, updated_at`

type NewBooking struct {
	UserID      int64
	ProviderID  *int64
	ServiceName string
	Address     string
	ScheduledAt time.Time
	Notes       *string
}

func scanBooking(row pgx.Row) (models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.ProviderID, &b.ServiceName, &b.Address, &b.ScheduledAt, &b.Notes, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return b, ErrNotFound
	}
	return b, err
}

func (s *Store) CreateBooking(ctx context.Context, in NewBooking) (models.Booking, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO bookings (user_id, provider_id, service_name, address, scheduled_at, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING ` + bookingColumns
	return scanBooking(s.Pool.QueryRow(ctx, query,
		in.UserID, in.ProviderID, in.ServiceName, in.Address, in.ScheduledAt, in.Notes, models.BookingPending, now,
	))
}

func (s *Store) GetBooking(ctx context.Context, id int64) (models.Booking, error) {
	return scanBooking(s.Pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
}

// ListBookings returns the bookings visible to identity, newest first. Providers
// also see open bookings that nobody has accepted yet.
func (s *Store) ListBookings(ctx context.Context, identity models.Identity, limit, offset int) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if identity.Role == models.RoleProvider {
		query = `SELECT ` + bookingColumns + ` FROM bookings
			WHERE provider_id=$1 OR (provider_id IS NULL AND status='pending')
			ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	}
	rows, err := s.Pool.Query(ctx, query, identity.SubjectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ErrInvalidTransition is returned when a booking cannot move to the
// requested status from its current one.
var ErrInvalidTransition = errors.New("invalid booking status transition")

// ApplyStatus computes the booking that results from providerID setting
// status. Only accepting assigns an open booking. Rejecting an open booking
// declines it for the caller and leaves it open, reported as unchanged.
// Completed and cancelled require an accepted booking held by the caller.
func ApplyStatus(b models.Booking, providerID int64, status string) (models.Booking, bool, error) {
	assigned := b.ProviderID != nil
	if assigned && *b.ProviderID != providerID {
		return b, false, ErrNotFound
	}

	switch status {
	case models.BookingAccepted:
		if b.Status != models.BookingPending {
			return b, false, ErrInvalidTransition
		}
		if !assigned {
			owner := providerID
			b.ProviderID = &owner
		}
	case models.BookingRejected:
		if b.Status != models.BookingPending {
			return b, false, ErrInvalidTransition
		}
		if !assigned {
			return b, false, nil
		}
	case models.BookingCompleted, models.BookingCancelled:
		if !assigned || b.Status != models.BookingAccepted {
			return b, false, ErrInvalidTransition
		}
	default:
		return b, false, ErrInvalidTransition
	}
	b.Status = status
	return b, true, nil
}

// UpdateBookingStatus applies status on behalf of providerID under a row lock.
// It reports whether the stored booking changed.
func (s *Store) UpdateBookingStatus(ctx context.Context, id, providerID int64, status string) (models.Booking, bool, error) {
	var (
		booking models.Booking
		changed bool
	)
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		current, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		booking, changed, err = ApplyStatus(current, providerID, status)
		if err != nil || !changed {
			return err
		}
		query := `
			UPDATE bookings
			SET status=$1, provider_id=$2, updated_at=$3
			WHERE id=$4
			RETURNING ` + bookingColumns
		booking, err = scanBooking(tx.QueryRow(ctx, query, booking.Status, booking.ProviderID, time.Now().UTC(), id))
		return err
	})
	return booking, changed, err
}
