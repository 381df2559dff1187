package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"classattend/internal/attendance"
)

type attendanceHandler struct {
	svc *attendance.Service
}

type markRequest struct {
	IdentityID  string `json:"identity_id"`
	SubjectCode string `json:"subject_code"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

// mark records attendance for an explicitly named subject. Duplicates
// answer 200 with the stored event.
func (h *attendanceHandler) mark(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	evt := attendance.Event{IdentityID: req.IdentityID, SubjectCode: req.SubjectCode, Date: req.Date}
	if req.Time != "" {
		at, err := h.markedAt(req.Date, req.Time)
		if err != nil {
			respondError(c, err)
			return
		}
		evt.MarkedAt = at
	}

	outcome, stored, err := h.svc.Mark(c.Request.Context(), evt)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if outcome == attendance.AlreadyMarked {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"outcome": outcome, "event": stored})
}

func (h *attendanceHandler) markedAt(date, clock string) (time.Time, error) {
	loc := h.svc.Location()
	day := time.Now().In(loc)
	if date != "" {
		d, err := time.ParseInLocation(attendance.DateLayout, date, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: invalid date %q", attendance.ErrInvalidEvent, date)
		}
		day = d
	}
	for _, layout := range []string{time.TimeOnly, "15:04"} {
		if t, err := time.Parse(layout, clock); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid time %q, want HH:MM[:SS]", attendance.ErrInvalidEvent, clock)
}

func (h *attendanceHandler) events(c *gin.Context) (string, []attendance.Event, bool) {
	date, err := attendance.ParseDate(c.Param("date"))
	if err != nil {
		badRequest(c, err.Error())
		return "", nil, false
	}
	events, err := h.svc.ByDate(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return "", nil, false
	}
	if events == nil {
		events = []attendance.Event{}
	}
	return date, events, true
}

func (h *attendanceHandler) byDate(c *gin.Context) {
	date, events, ok := h.events(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "events": events, "total": len(events)})
}

func (h *attendanceHandler) csv(c *gin.Context) {
	date, events, ok := h.events(c)
	if !ok {
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance_%s.csv"`, date))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := attendance.WriteCSV(c.Writer, events, h.svc.Location()); err != nil {
		c.Error(err)
	}
}

func (h *attendanceHandler) report(c *gin.Context) {
	date, events, ok := h.events(c)
	if !ok {
		return
	}
	groups := attendance.GroupBySubject(events)
	if groups == nil {
		groups = []attendance.SubjectGroup{}
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "subjects": groups, "total": len(events)})
}
