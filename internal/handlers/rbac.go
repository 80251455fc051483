package handlers

import (
	"net/http"
	"strings"

	"homeservices/backend/internal/models"
)

// RequiredRole returns the role a route is restricted to, or "" when any
// authenticated caller may use it.
func RequiredRole(path, method string) models.Role {
	switch {
	case path == "/api/v1/bookings" && method == http.MethodPost:
		return models.RoleUser
	case strings.HasPrefix(path, "/api/v1/bookings/") && strings.HasSuffix(path, "/status"):
		return models.RoleProvider
	}
	return ""
}

// Authorize reports whether identity may call a route requiring role.
func Authorize(identity models.Identity, role models.Role) bool {
	return role == "" || identity.Role == role
}
