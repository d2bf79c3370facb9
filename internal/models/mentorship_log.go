package models

import "time"

// LogStatus is the verification state of a mentorship log
type LogStatus string

const (
	LogStatusPending  LogStatus = "pending"
	LogStatusVerified LogStatus = "verified"
)

// DefaultProgram is used when a log or enrollment names no program
const DefaultProgram = "Foundational"

// Stored field names of mentorship_logs documents
const (
	LogFieldMentorID    = "mentorId"
	LogFieldMenteeID    = "menteeId"
	LogFieldMenteeEmail = "menteeEmail"
	LogFieldHours       = "hoursLogged"
	LogFieldDescription = "sessionDescription"
	LogFieldProgram     = "program"
	LogFieldStatus      = "status"
	LogFieldCreatedAt   = "createdAt"
)

// MentorshipLog is one party's record of a mentoring session. It is created
// pending and promoted to verified once the other party logs the same session.
type MentorshipLog struct {
	ID                 string    `json:"id"`
	MentorID           string    `json:"mentorId"`
	MenteeID           string    `json:"menteeId"`
	MenteeEmail        string    `json:"menteeEmail"`
	HoursLogged        float64   `json:"hoursLogged"`
	SessionDescription string    `json:"sessionDescription"`
	Program            string    `json:"program"`
	Status             LogStatus `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
}

// NewMentorshipLog is the submission payload
type NewMentorshipLog struct {
	MentorID           string  `json:"mentorId" binding:"required,max=128"`
	MenteeID           string  `json:"menteeId" binding:"required,max=128"`
	MenteeEmail        string  `json:"menteeEmail" binding:"required,email,max=255"`
	HoursLogged        float64 `json:"hoursLogged" binding:"required,gt=0"`
	SessionDescription string  `json:"sessionDescription" binding:"required,max=4000"`
	Program            string  `json:"program" binding:"max=64"`
}

// SubmitLogResponse is returned after a submission
type SubmitLogResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// LogsResponse wraps the caller's logbook
type LogsResponse struct {
	Logs  []MentorshipLog `json:"logs"`
	Total int             `json:"total"`
}

// PairingKey identifies the logs that verify each other
type PairingKey struct {
	MentorID    string
	MenteeID    string
	HoursLogged float64
}

// PairingKey returns the log's pairing triple
func (l *MentorshipLog) PairingKey() PairingKey {
	return PairingKey{MentorID: l.MentorID, MenteeID: l.MenteeID, HoursLogged: l.HoursLogged}
}
