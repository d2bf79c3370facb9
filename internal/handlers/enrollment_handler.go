package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wingmentor/wingmentor-api/internal/middleware"
	"github.com/wingmentor/wingmentor-api/internal/models"
	"github.com/wingmentor/wingmentor-api/internal/services"
)

// EnrollmentHandler serves the caller's program enrollment
type EnrollmentHandler struct {
	service services.EnrollmentServiceInterface
}

// NewEnrollmentHandler creates a new EnrollmentHandler
func NewEnrollmentHandler(service services.EnrollmentServiceInterface) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

// GetStatus handles GET /api/v1/enrollment
func (h *EnrollmentHandler) GetStatus(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	h.respondStatus(c, user.ID)
}

// Enroll handles POST /api/v1/enrollment
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var req models.EnrollRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindingError(c, err)
			return
		}
	}

	if err := h.service.EnrollInProgram(c.Request.Context(), user.ID, req.Program); err != nil {
		respondServiceError(c, err, "Failed to enroll")
		return
	}
	h.respondStatus(c, user.ID)
}

// Complete handles POST /api/v1/enrollment/complete
func (h *EnrollmentHandler) Complete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var req models.CompleteEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	if err := h.service.CompleteEnrollment(c.Request.Context(), user.ID, req.Responses); err != nil {
		respondServiceError(c, err, "Failed to complete enrollment")
		return
	}
	h.respondStatus(c, user.ID)
}

func (h *EnrollmentHandler) respondStatus(c *gin.Context, uid string) {
	programs, err := h.service.GetEnrollmentStatus(c.Request.Context(), uid)
	if err != nil {
		respondServiceError(c, err, "Failed to fetch enrollment")
		return
	}
	c.JSON(http.StatusOK, models.EnrollmentStatusResponse{
		EnrolledPrograms: programs,
		Foundational:     models.IsEnrolled(programs, models.DefaultProgram),
	})
}
