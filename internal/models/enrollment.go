package models

// EnrollRequest enrolls the caller in a program
type EnrollRequest struct {
	Program string `json:"program" binding:"max=64"`
}

// CompleteEnrollmentRequest records the onboarding answers and agreement
type CompleteEnrollmentRequest struct {
	Responses map[string]any `json:"responses" binding:"required"`
}

// EnrollmentStatusResponse lists the caller's programs. Foundational gates
// access to the mentorship features.
type EnrollmentStatusResponse struct {
	EnrolledPrograms []string `json:"enrolledPrograms"`
	Foundational     bool     `json:"foundational"`
}

// IsEnrolled reports whether program is among programs
func IsEnrolled(programs []string, program string) bool {
	for _, p := range programs {
		if p == program {
			return true
		}
	}
	return false
}
