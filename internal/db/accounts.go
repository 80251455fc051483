package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"homeservices/backend/internal/models"
)

func accountTable(role models.Role) (string, error) {
	switch role {
	case models.RoleUser:
		return "users", nil
	case models.RoleProvider:
		return "providers", nil
	}
	return "", fmt.Errorf("unknown role %q", role)
}

// FindAccount looks up a login by email in the role's table.
func (s *Store) FindAccount(ctx context.Context, role models.Role, email string) (models.Account, error) {
	table, err := accountTable(role)
	if err != nil {
		return models.Account{}, err
	}
	account := models.Account{Role: role}
	query := fmt.Sprintf(`
		SELECT id, email, name, password_hash, created_at
		FROM %s
		WHERE email=$1`, table)

	if err := s.Pool.QueryRow(ctx, query, email).Scan(
		&account.ID, &account.Email, &account.Name, &account.PasswordHash, &account.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, err
	}
	return account, nil
}

// AccountName returns the display name of a user or provider.
func (s *Store) AccountName(ctx context.Context, identity models.Identity) (string, error) {
	table, err := accountTable(identity.Role)
	if err != nil {
		return "", err
	}
	var name string
	if err := s.Pool.QueryRow(ctx, fmt.Sprintf("SELECT name FROM %s WHERE id=$1", table), identity.SubjectID).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return name, nil
}
