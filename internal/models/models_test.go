package models

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		value   string
		want    Role
		wantErr bool
	}{
		{"user", RoleUser, false},
		{"provider", RoleProvider, false},
		{"admin", "", true},
		{"", "", true},
	}
	for _, test := range tests {
		got, err := ParseRole(test.value)
		if (err != nil) != test.wantErr {
			t.Fatalf("ParseRole(%q) err=%v, wantErr=%v", test.value, err, test.wantErr)
		}
		if got != test.want {
			t.Fatalf("ParseRole(%q)=%q, expected %q", test.value, got, test.want)
		}
	}
}

func TestRoleOpposite(t *testing.T) {
	if RoleUser.Opposite() != RoleProvider {
		t.Fatal("users should be told about providers")
	}
	if RoleProvider.Opposite() != RoleUser {
		t.Fatal("providers should be told about users")
	}
}

func TestIdentityValid(t *testing.T) {
	if (Identity{SubjectID: 0, Role: RoleUser}).Valid() {
		t.Fatal("zero subject should be invalid")
	}
	if (Identity{SubjectID: 4, Role: Role("guest")}).Valid() {
		t.Fatal("unknown role should be invalid")
	}
	if !(Identity{SubjectID: 4, Role: RoleProvider}).Valid() {
		t.Fatal("expected valid identity")
	}
}
