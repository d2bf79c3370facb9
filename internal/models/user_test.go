package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveFirstName(t *testing.T) {
	tests := []struct {
		name        string
		firstName   string
		fullName    string
		displayName string
		expected    string
	}{
		{"first name wins", "Amelia", "Bessie Coleman", "Jacqueline", "Amelia"},
		{"first name trimmed", "  Amelia ", "", "", "Amelia"},
		{"blank first name falls through", "   ", "Bessie Coleman", "", "Bessie"},
		{"full name first token", "", "Bessie  Coleman", "Jacqueline Cochran", "Bessie"},
		{"display name first token", "", "", "Jacqueline Cochran", "Jacqueline"},
		{"whitespace everywhere", "", "  ", "\t", "Unknown"},
		{"nothing at all", "", "", "", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveFirstName(tt.firstName, tt.fullName, tt.displayName))
		})
	}
}

func TestDeriveRole_Threshold(t *testing.T) {
	assert.Equal(t, RoleMentee, DeriveRole(0))
	assert.Equal(t, RoleMentee, DeriveRole(19.999))
	assert.Equal(t, RoleMentor, DeriveRole(20))
	assert.Equal(t, RoleMentor, DeriveRole(250.5))
}

func TestUserRecord_Profile(t *testing.T) {
	u := UserRecord{ID: "u1", FullName: "Chuck Yeager", TotalHours: 42, Region: "West", FlightSchool: "Edwards"}

	assert.Equal(t, UserProfile{
		ID:           "u1",
		FirstName:    "Chuck",
		Role:         RoleMentor,
		TotalHours:   42,
		Region:       "West",
		FlightSchool: "Edwards",
	}, u.Profile())
}
