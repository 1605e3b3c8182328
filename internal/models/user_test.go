package models

import "testing"

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		user User
		want string
	}{
		{"chosen name wins", User{Name: "Captain", Email: "cap@example.com"}, "Captain"},
		{"email local part", User{Email: "cap@example.com"}, "cap"},
		{"email without at", User{Email: "cap"}, "cap"},
		{"anonymous", User{AnonID: "abc"}, "Guest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.user.DisplayName(); got != tt.want {
				t.Errorf("DisplayName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAnonymous(t *testing.T) {
	if !(&User{AnonID: "abc"}).IsAnonymous() {
		t.Error("cookie-only user not anonymous")
	}
	if (&User{Email: "cap@example.com"}).IsAnonymous() {
		t.Error("email user reported anonymous")
	}
}
