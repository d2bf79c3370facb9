package models

import (
	"strings"
	"time"
)

// Role is derived from logged hours and never stored
type Role string

const (
	RoleMentor Role = "Mentor"
	RoleMentee Role = "Mentee"
)

// MentorHoursThreshold is the total hours at which a user counts as a mentor
const MentorHoursThreshold = 20.0

// UnknownFirstName is shown when no name field is usable
const UnknownFirstName = "Unknown"

// Stored field names of users documents
const (
	UserFieldFirstName          = "firstName"
	UserFieldFullName           = "fullName"
	UserFieldDisplayName        = "displayName"
	UserFieldTotalHours         = "totalHours"
	UserFieldRegion             = "region"
	UserFieldFlightSchool       = "flightSchool"
	UserFieldEnrolledPrograms   = "enrolledPrograms"
	UserFieldOnboarding         = "onboardingResponses"
	UserFieldEnrollmentAgreedAt = "enrollmentAgreementTimestamp"
)

// UserRecord is the stored shape of a users document after decoding.
// Every field is optional in storage.
type UserRecord struct {
	ID                  string
	FirstName           string
	FullName            string
	DisplayName         string
	TotalHours          float64
	Region              string
	FlightSchool        string
	EnrolledPrograms    []string
	OnboardingResponses map[string]any
	EnrollmentAgreedAt  *time.Time
}

// UserProfile is the public view of a user with derived name and role
type UserProfile struct {
	ID           string  `json:"id"`
	FirstName    string  `json:"firstName"`
	Role         Role    `json:"role"`
	TotalHours   float64 `json:"totalHours"`
	Region       string  `json:"region"`
	FlightSchool string  `json:"flightSchool,omitempty"`
}

// DeriveFirstName picks the first usable name: firstName, then the first
// word of fullName, then of displayName.
func DeriveFirstName(firstName, fullName, displayName string) string {
	if name := strings.TrimSpace(firstName); name != "" {
		return name
	}
	if word := firstWord(fullName); word != "" {
		return word
	}
	if word := firstWord(displayName); word != "" {
		return word
	}
	return UnknownFirstName
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// DeriveRole classifies a user by total logged hours
func DeriveRole(totalHours float64) Role {
	if totalHours >= MentorHoursThreshold {
		return RoleMentor
	}
	return RoleMentee
}

// Profile projects the record to its public view
func (u *UserRecord) Profile() UserProfile {
	return UserProfile{
		ID:           u.ID,
		FirstName:    DeriveFirstName(u.FirstName, u.FullName, u.DisplayName),
		Role:         DeriveRole(u.TotalHours),
		TotalHours:   u.TotalHours,
		Region:       u.Region,
		FlightSchool: u.FlightSchool,
	}
}

// UserSearchFilter narrows a directory search. Empty fields are ignored.
type UserSearchFilter struct {
	Region       string `form:"region" binding:"max=128"`
	FlightSchool string `form:"flightSchool" binding:"max=128"`
	Query        string `form:"q" binding:"max=128"`
}

// UsersResponse wraps directory results
type UsersResponse struct {
	Users []UserProfile `json:"users"`
	Total int           `json:"total"`
}
