package response

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/auth"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/liveness"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/hrmsapi"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var rejected *liveness.RejectedError
	if errors.As(err, &rejected) {
		LivenessRejected(w, rejected.Reason)
		return
	}

	var captureErr *attendance.CaptureError
	if errors.As(err, &captureErr) {
		BadRequest(w, captureErr.Error(), nil)
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, auth.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrSessionNotFound), errors.Is(err, hrmsapi.ErrUnauthorized):
		Unauthorized(w, "Session expired, please log in again")
	case errors.Is(err, auth.ErrIncompleteProfile):
		Unauthorized(w, err.Error())

	// Liveness domain errors
	case errors.Is(err, liveness.ErrUndecodableImage), errors.Is(err, liveness.ErrEmptyImage):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, liveness.ErrUnsupportedPlatform):
		BadRequest(w, err.Error(), nil)

	// Attendance domain errors
	case errors.Is(err, attendance.ErrPunchInProgress):
		Conflict(w, "A punch is already in progress")
	case errors.Is(err, attendance.ErrNoAttendanceYet):
		NotFound(w, attendance.ErrNoAttendanceYet.Error())

	case errors.Is(err, context.Canceled):
		// Client went away; nobody is reading the response.
		slog.Debug("Request cancelled", "error", err)
		writeError(w, 499, "CLIENT_CLOSED_REQUEST", "Request cancelled", nil)

	default:
		handleUpstreamOrInternal(w, err)
	}
}

func handleUpstreamOrInternal(w http.ResponseWriter, err error) {
	var apiErr *hrmsapi.Error
	if !errors.As(err, &apiErr) {
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
		return
	}

	slog.Warn("Upstream call failed",
		"op", apiErr.Op,
		"status", apiErr.StatusCode,
		"transient", apiErr.Transient,
		"error", err,
	)

	switch {
	case apiErr.Timeout():
		GatewayTimeout(w, "The HR server took too long to respond, please try again")
	case apiErr.Transient:
		ServiceUnavailable(w, "The HR server is unavailable, please try again")
	default:
		BadGateway(w, apiErr.Message)
	}
}
