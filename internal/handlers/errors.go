package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/wingmentor/wingmentor-api/pkg/errors"
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
// so the observability middleware can include the reason in the request log.
func respondError(c *gin.Context, status int, message string, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message})
}

// respondErrorWithDetails sends an error response with an additional details field.
func respondErrorWithDetails(c *gin.Context, status int, message string, details any, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message, "details": details})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// fallback is the message used for store failures.
func respondServiceError(c *gin.Context, err error, fallback string) {
	var validationErr *pkgerrors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respondErrorWithDetails(c, http.StatusBadRequest, "Invalid request",
			[]ValidationError{{Field: validationErr.Field, Message: validationErr.Field + " " + validationErr.Reason}}, err)
	case errors.Is(err, pkgerrors.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, pkgerrors.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
	case errors.Is(err, pkgerrors.ErrAccessDenied):
		respondError(c, http.StatusForbidden, "Access denied", err)
	case errors.Is(err, pkgerrors.ErrNotFound):
		respondError(c, http.StatusNotFound, "Not found", err)
	default:
		respondError(c, http.StatusInternalServerError, fallback, err)
	}
}
