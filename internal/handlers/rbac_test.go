package handlers

import (
	"net/http"
	"testing"

	"homeservices/backend/internal/models"
)

func TestRequiredRole(t *testing.T) {
	tests := []struct {
		path     string
		method   string
		expected models.Role
	}{
		{"/api/v1/bookings", http.MethodGet, ""},
		{"/api/v1/bookings", http.MethodPost, models.RoleUser},
		{"/api/v1/bookings/12/status", http.MethodPatch, models.RoleProvider},
		{"/api/v1/messages", http.MethodPost, ""},
		{"/api/v1/presence/providers", http.MethodGet, ""},
	}

	for _, test := range tests {
		if got := RequiredRole(test.path, test.method); got != test.expected {
			t.Fatalf("RequiredRole(%s, %s)=%s, expected %s", test.path, test.method, got, test.expected)
		}
	}
}

func TestAuthorize(t *testing.T) {
	user := models.Identity{SubjectID: 1, Role: models.RoleUser}
	if !Authorize(user, "") {
		t.Fatal("open route should allow any role")
	}
	if !Authorize(user, models.RoleUser) {
		t.Fatal("user route should allow users")
	}
	if Authorize(user, models.RoleProvider) {
		t.Fatal("provider route should reject users")
	}
}
