package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"classattend/internal/attendance"
	"classattend/internal/face"
	"classattend/internal/registration"
	"classattend/internal/session"
	"classattend/internal/timetable"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, face.ErrInvalidInput), errors.Is(err, timetable.ErrInvalidSlot),
		errors.Is(err, attendance.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, face.ErrNoFaceDetected), errors.Is(err, face.ErrMultipleFacesDetected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, attendance.ErrNoActiveClass), errors.Is(err, timetable.ErrOverlapConflict):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotFound), errors.Is(err, registration.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, session.ErrNoDetector):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var overlap *timetable.OverlapError
	if errors.As(err, &overlap) {
		body["conflict"] = []timetable.Slot{overlap.A, overlap.B}
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
