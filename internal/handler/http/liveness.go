package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/liveness"
	"github.com/cmlabs-hris/hris-mobile-bff/internal/handler/http/response"
)

// maxUploadSize bounds multipart selfie uploads. The request body may carry
// a little more for the other form fields.
const (
	maxUploadSize  = 10 << 20
	maxRequestSize = maxUploadSize + 1<<20
)

// parseUploadForm caps the request body and parses the multipart form. It
// writes the error response itself and reports whether to continue.
func parseUploadForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	err := r.ParseMultipartForm(maxUploadSize)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.PayloadTooLarge(w, fmt.Sprintf("Upload exceeds %d bytes", maxRequestSize))
		return false
	}
	slog.Error("Failed to parse multipart form", "error", err)
	response.BadRequest(w, "Failed to parse form data", nil)
	return false
}

type LivenessHandler interface {
	Analyze(w http.ResponseWriter, r *http.Request)
}

type livenessHandlerImpl struct {
	livenessService liveness.Service
}

func NewLivenessHandler(livenessService liveness.Service) LivenessHandler {
	return &livenessHandlerImpl{
		livenessService: livenessService,
	}
}

// Analyze runs the liveness gate on an uploaded photo without punching.
func (h *livenessHandlerImpl) Analyze(w http.ResponseWriter, r *http.Request) {
	if !parseUploadForm(w, r) {
		return
	}

	// An empty platform is treated as a web capture.
	platform := liveness.Platform(r.FormValue("platform"))

	file, _, err := r.FormFile("photo")
	if err != nil {
		if err == http.ErrMissingFile {
			response.BadRequest(w, "Field 'photo' is required", nil)
			return
		}
		slog.Error("Failed to get file from form", "error", err)
		response.BadRequest(w, "Invalid file upload", nil)
		return
	}
	defer file.Close()

	photo, err := io.ReadAll(file)
	if err != nil {
		slog.Error("Failed to read uploaded photo", "error", err)
		response.BadRequest(w, "Invalid file upload", nil)
		return
	}

	result, err := h.livenessService.Analyze(r.Context(), liveness.AnalyzeRequest{
		Platform: platform,
		Photo:    photo,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
