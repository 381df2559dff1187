package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"classattend/internal/auth"
	"classattend/internal/face"
	"classattend/internal/photos"
	"classattend/internal/session"
)

type sessionHandler struct {
	manager *session.Manager
}

type sessionResponse struct {
	ID      string        `json:"id"`
	State   session.State `json:"state"`
	Sampled *bool         `json:"sampled,omitempty"`
	Dropped bool          `json:"dropped,omitempty"`
}

func (h *sessionHandler) open(c *gin.Context) {
	ctl := h.manager.Open()
	kiosk, _ := auth.KioskID(c)
	slog.Info("session opened", "session", ctl.ID(), "kiosk", kiosk)
	c.JSON(http.StatusCreated, sessionResponse{ID: ctl.ID(), State: ctl.State()})
}

func (h *sessionHandler) lookup(c *gin.Context) (*session.Controller, bool) {
	ctl, err := h.manager.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return ctl, true
}

func (h *sessionHandler) get(c *gin.Context) {
	ctl, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionResponse{ID: ctl.ID(), State: ctl.State()})
}

// sample takes detections made on the kiosk itself.
func (h *sessionHandler) sample(c *gin.Context) {
	ctl, ok := h.lookup(c)
	if !ok {
		return
	}
	var req struct {
		Detections []face.Detection `json:"detections"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := ctl.Sample(c.Request.Context(), req.Detections)
	h.respond(c, ctl, st, nil, err)
}

// frame takes a raw camera frame; the session decides whether to sample it.
func (h *sessionHandler) frame(c *gin.Context) {
	ctl, ok := h.lookup(c)
	if !ok {
		return
	}
	var (
		image []byte
		err   error
	)
	if strings.Contains(c.ContentType(), "multipart/form-data") {
		image, err = readFormFile(c, "frame")
	} else {
		image, err = io.ReadAll(io.LimitReader(c.Request.Body, photos.MaxSize+1))
	}
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(image) > photos.MaxSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "frame too large"})
		return
	}
	st, sampled, err := ctl.OfferFrame(c.Request.Context(), image)
	h.respond(c, ctl, st, &sampled, err)
}

func (h *sessionHandler) respond(c *gin.Context, ctl *session.Controller, st session.State, sampled *bool, err error) {
	switch {
	case errors.Is(err, session.ErrSampleDropped):
		c.JSON(http.StatusAccepted, sessionResponse{ID: ctl.ID(), State: st, Sampled: sampled, Dropped: true})
	case err != nil:
		respondError(c, err)
	default:
		c.JSON(http.StatusOK, sessionResponse{ID: ctl.ID(), State: st, Sampled: sampled})
	}
}

func (h *sessionHandler) reset(c *gin.Context) {
	ctl, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := ctl.Reset(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{ID: ctl.ID(), State: ctl.State()})
}

func (h *sessionHandler) close(c *gin.Context) {
	if err := h.manager.Close(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
