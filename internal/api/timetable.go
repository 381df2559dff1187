package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"classattend/internal/timetable"
)

type timetableHandler struct {
	index *timetable.Index
}

func (h *timetableHandler) replace(c *gin.Context) {
	var doc timetable.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.index.Replace(c.Request.Context(), doc.Subjects); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, timetable.Document{Subjects: h.index.Slots()})
}

func (h *timetableHandler) get(c *gin.Context) {
	slots := h.index.Slots()
	if slots == nil {
		slots = []timetable.Slot{}
	}
	c.JSON(http.StatusOK, timetable.Document{Subjects: slots})
}

func (h *timetableHandler) current(c *gin.Context) {
	slot, ok := h.index.CurrentSlot(time.Now())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active class"})
		return
	}
	c.JSON(http.StatusOK, slot)
}
