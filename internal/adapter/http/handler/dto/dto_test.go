package dto

import (
	"testing"

	"github.com/torimichi/guide-match-system/pkg/validator"
)

func TestValidateNewUser(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterUserRequest
		ok   bool
	}{
		{"valid traveler", RegisterUserRequest{Name: "A", Email: "a@b.co", Password: "password123"}, true},
		{"valid guide", RegisterUserRequest{Name: "A", Email: "a@b.co", Password: "password123", Role: "GUIDE"}, true},
		{"admin role rejected", RegisterUserRequest{Name: "A", Email: "a@b.co", Password: "password123", Role: "ADMIN"}, false},
		{"short password", RegisterUserRequest{Name: "A", Email: "a@b.co", Password: "short"}, false},
		{"bad email", RegisterUserRequest{Name: "A", Email: "nope", Password: "password123"}, false},
		{"missing name", RegisterUserRequest{Email: "a@b.co", Password: "password123"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := validator.New()
			ValidateNewUser(v, &tc.req)
			if v.Valid() != tc.ok {
				t.Fatalf("valid = %v, want %v (errors: %v)", v.Valid(), tc.ok, v.Errors)
			}
		})
	}
}

func TestCreateMatchRequestValidate(t *testing.T) {
	v := validator.New()
	req := CreateMatchRequest{GuideID: "x", Date: "2026-09-15", TimeSlot: "10:00-15:00"}
	req.Validate(v)
	if !v.Valid() {
		t.Fatalf("unexpected errors: %v", v.Errors)
	}

	v = validator.New()
	bad := CreateMatchRequest{GuideID: "x", Date: "15/09/2026", TimeSlot: "10:00-15:00"}
	bad.Validate(v)
	if _, ok := v.Errors["date"]; !ok {
		t.Fatal("expected a date format error")
	}
}

func TestUpdateProfileRequestValidate(t *testing.T) {
	empty := ""
	v := validator.New()
	(&UpdateProfileRequest{Name: &empty}).Validate(v)
	if _, ok := v.Errors["name"]; !ok {
		t.Fatal("blank name must be rejected")
	}

	loc := Point{Lat: 95, Lng: 0}
	v = validator.New()
	(&UpdateProfileRequest{Location: &loc}).Validate(v)
	if _, ok := v.Errors["location"]; !ok {
		t.Fatal("out-of-range latitude must be rejected")
	}

	good := Point{Lat: 43.2, Lng: 76.9}
	v = validator.New()
	(&UpdateProfileRequest{Location: &good}).Validate(v)
	if !v.Valid() {
		t.Fatalf("unexpected errors: %v", v.Errors)
	}
}
